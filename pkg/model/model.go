package model

import (
	"fmt"
	"html"
	"log/slog"
	"maps"
	"reflect"
	"slices"

	"github.com/google/uuid"

	"github.com/attrbus/attrbus-go/pkg/events"
)

// DefaultIDAttribute is the attribute that holds a model's identity.
const DefaultIDAttribute = "id"

// ParseFunc converts a raw response into attributes.
type ParseFunc func(raw map[string]any) map[string]any

// Validator inspects a prospective attribute set. A non-nil error vetoes it.
type Validator func(attrs map[string]any, opts SetOptions) error

// InvalidFunc receives a validation or persistence error in place of the
// corresponding bus event.
type InvalidFunc func(m *Model, err error, opts SetOptions)

// SetOptions controls a single mutation. The same value is passed to every
// event the mutation triggers.
type SetOptions struct {
	// Silent applies the mutation without notification or validation.
	// Silent changes are reported by the next non-silent cycle.
	Silent bool

	// Unset removes the supplied keys instead of writing them.
	Unset bool

	// Error, when set, receives validation failures instead of an
	// "invalid" event.
	Error InvalidFunc
}

// config holds the construction-time settings shared with clones.
type config struct {
	parse       ParseFunc
	parseInput  bool
	defaults    map[string]any
	validator   Validator
	idAttribute string
	urlRoot     string
	urlFunc     func(*Model) (string, error)
	syncer      Syncer
	logger      *slog.Logger
}

// Option configures a Model.
type Option func(*config)

// WithParse sets the hook applied to persistence responses.
func WithParse(fn ParseFunc) Option {
	return func(c *config) {
		c.parse = fn
	}
}

// WithParseInput applies the parse hook to the construction attributes too.
func WithParseInput() Option {
	return func(c *config) {
		c.parseInput = true
	}
}

// WithDefaults sets values used for keys missing from the construction attributes.
func WithDefaults(defaults map[string]any) Option {
	return func(c *config) {
		c.defaults = defaults
	}
}

// WithValidator sets the validation gate.
func WithValidator(v Validator) Option {
	return func(c *config) {
		c.validator = v
	}
}

// WithIDAttribute sets the attribute that holds the model's identity.
func WithIDAttribute(name string) Option {
	return func(c *config) {
		c.idAttribute = name
	}
}

// WithURLRoot sets the base URL used to address the model.
func WithURLRoot(root string) Option {
	return func(c *config) {
		c.urlRoot = root
	}
}

// WithURL overrides URL resolution.
func WithURL(fn func(*Model) (string, error)) Option {
	return func(c *config) {
		c.urlFunc = fn
	}
}

// WithSyncer sets the persistence collaborator.
func WithSyncer(s Syncer) Option {
	return func(c *config) {
		c.syncer = s
	}
}

// WithLogger sets the operational logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *config) {
		c.logger = logger
	}
}

// Model is an entity: an attribute store with change tracking on top of an
// event bus.
type Model struct {
	*events.Bus

	cfg config

	attributes map[string]any
	previous   map[string]any
	changed    map[string]any
	escaped    map[string]string
	silent     map[string]struct{}
	pending    map[string]struct{}

	id  any
	cid string

	cycle           CycleState
	validationError error
}

// New creates a model from attrs. Defaults fill missing keys and the initial
// assignment is silent, so construction fires no events.
func New(attrs map[string]any, opts ...Option) *Model {
	cfg := config{idAttribute: DefaultIDAttribute}
	for _, opt := range opts {
		opt(&cfg)
	}

	m := &Model{
		Bus: events.NewBus(),
		cfg: cfg,
		cid: uuid.NewString(),
	}
	m.SetOwner(m)
	m.reset()

	if attrs != nil && cfg.parseInput {
		attrs = m.parse(attrs)
	}
	initial := make(map[string]any, len(cfg.defaults)+len(attrs))
	maps.Copy(initial, cfg.defaults)
	maps.Copy(initial, attrs)

	m.Set(initial, SetOptions{Silent: true})

	m.changed = make(map[string]any)
	m.silent = make(map[string]struct{})
	m.pending = make(map[string]struct{})
	m.previous = maps.Clone(m.attributes)

	return m
}

func (m *Model) reset() {
	m.attributes = make(map[string]any)
	m.previous = make(map[string]any)
	m.changed = make(map[string]any)
	m.escaped = make(map[string]string)
	m.silent = make(map[string]struct{})
	m.pending = make(map[string]struct{})
}

// ID returns the model's identity, or nil for a model that was never persisted.
func (m *Model) ID() any {
	return m.id
}

// CID returns the client-side identifier assigned at construction.
func (m *Model) CID() string {
	return m.cid
}

// IDAttribute returns the name of the identity attribute.
func (m *Model) IDAttribute() string {
	return m.cfg.idAttribute
}

// IsNew reports whether the model has no identity yet.
func (m *Model) IsNew() bool {
	return m.id == nil
}

// Get returns the value stored under key, or nil.
func (m *Model) Get(key string) any {
	return m.attributes[key]
}

// Has reports whether key holds a non-nil value. Typed nils, such as a nil
// pointer, slice, or map stored in the attribute, count as no value.
func (m *Model) Has(key string) bool {
	return !isNil(m.attributes[key])
}

// Escape returns the HTML-escaped string form of the value under key.
// Results are cached until the key changes.
func (m *Model) Escape(key string) string {
	if s, ok := m.escaped[key]; ok {
		return s
	}
	v := m.attributes[key]
	var s string
	if v != nil {
		s = html.EscapeString(fmt.Sprint(v))
	}
	m.escaped[key] = s
	return s
}

// Attributes returns a copy of the current attributes.
func (m *Model) Attributes() map[string]any {
	return maps.Clone(m.attributes)
}

// Keys returns the attribute keys, sorted.
func (m *Model) Keys() []string {
	return sortedKeys(m.attributes)
}

// Clone returns a new model with the same configuration and a copy of the
// current attributes. Bindings are not copied.
func (m *Model) Clone() *Model {
	cfg := m.cfg
	cfg.parseInput = false
	cfg.defaults = nil
	return New(m.Attributes(), func(c *config) { *c = cfg })
}

// ValidationError returns the error from the most recent validation veto,
// or nil if the last validated mutation passed.
func (m *Model) ValidationError() error {
	return m.validationError
}

func (m *Model) parse(raw map[string]any) map[string]any {
	if m.cfg.parse == nil {
		return raw
	}
	return m.cfg.parse(raw)
}

// debugLog logs at debug level if a logger is configured.
func (m *Model) debugLog(msg string, args ...any) {
	if m.cfg.logger != nil {
		m.cfg.logger.Debug(msg, append([]any{"cid", m.cid}, args...)...)
	}
}

func isNil(v any) bool {
	if v == nil {
		return true
	}
	switch rv := reflect.ValueOf(v); rv.Kind() {
	case reflect.Pointer, reflect.Slice, reflect.Map, reflect.Chan, reflect.Func, reflect.Interface:
		return rv.IsNil()
	}
	return false
}

// equal is the structural comparison used for change detection.
func equal(a, b any) bool {
	return reflect.DeepEqual(a, b)
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}
