package model

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"net/url"
	"strings"
)

// Verb names the persistence operation requested from a Syncer.
type Verb uint8

const (
	VerbCreate Verb = iota
	VerbRead
	VerbUpdate
	VerbDelete
)

// String returns the verb name.
func (v Verb) String() string {
	switch v {
	case VerbCreate:
		return "create"
	case VerbRead:
		return "read"
	case VerbUpdate:
		return "update"
	case VerbDelete:
		return "delete"
	default:
		return "unknown"
	}
}

// Syncer persists models.
//
// Sync performs verb for m and returns the response body, which may be nil.
// Implementations address the model through m.URL and read its state through
// m.Attributes.
type Syncer interface {
	Sync(ctx context.Context, verb Verb, m *Model) (map[string]any, error)
}

// SyncerFunc adapts a function to the Syncer interface.
type SyncerFunc func(ctx context.Context, verb Verb, m *Model) (map[string]any, error)

// Sync calls f.
func (f SyncerFunc) Sync(ctx context.Context, verb Verb, m *Model) (map[string]any, error) {
	return f(ctx, verb, m)
}

// SaveOptions controls Fetch, Save, and Destroy.
type SaveOptions struct {
	SetOptions

	// Wait defers local changes until the Syncer succeeds. For Save the
	// attributes are only validated up front and applied together with the
	// response; for Destroy the "destroyed" event fires after the round trip.
	Wait bool
}

// URL returns the address of the model. A URL func takes precedence over
// the URL root. Persisted models have their escaped id appended to the root.
func (m *Model) URL() (string, error) {
	if m.cfg.urlFunc != nil {
		return m.cfg.urlFunc(m)
	}
	base := m.cfg.urlRoot
	if base == "" {
		return "", ErrMissingURL
	}
	if m.IsNew() {
		return base, nil
	}
	if !strings.HasSuffix(base, "/") {
		base += "/"
	}
	return base + url.PathEscape(fmt.Sprint(m.id)), nil
}

// Fetch reads the model from its Syncer and applies the parsed response.
func (m *Model) Fetch(ctx context.Context, opts ...SaveOptions) error {
	o := saveOptions(opts)
	s, err := m.syncer()
	if err != nil {
		return err
	}

	resp, err := s.Sync(ctx, VerbRead, m)
	if err != nil {
		return m.syncFailed(VerbRead, err, o)
	}
	if !m.Set(m.parse(resp), o.SetOptions) {
		return m.invalidErr()
	}

	m.Trigger(EventSynced, m, resp, o)
	return nil
}

// Save applies attrs (which may be nil) and persists the model, creating it
// when it is new and updating it otherwise. The parsed response is applied
// with Set.
func (m *Model) Save(ctx context.Context, attrs map[string]any, opts ...SaveOptions) error {
	o := saveOptions(opts)
	s, err := m.syncer()
	if err != nil {
		return err
	}

	var (
		current    map[string]any
		silentKeys map[string]struct{}
	)
	if o.Wait {
		if !m.validate(attrs, o.SetOptions) {
			return m.invalidErr()
		}
		current = m.Attributes()
		silentKeys = maps.Clone(m.silent)
	}

	if attrs != nil {
		setOpts := o.SetOptions
		if o.Wait {
			setOpts.Silent = true
		}
		if !m.Set(attrs, setOpts) {
			return m.invalidErr()
		}
	}

	verb := VerbUpdate
	if m.IsNew() {
		verb = VerbCreate
	}
	resp, syncErr := s.Sync(ctx, verb, m)

	if o.Wait {
		m.restore(current, silentKeys)
	}
	if syncErr != nil {
		return m.syncFailed(verb, syncErr, o)
	}

	serverAttrs := m.parse(resp)
	if o.Wait && attrs != nil {
		merged := maps.Clone(attrs)
		maps.Copy(merged, serverAttrs)
		serverAttrs = merged
	}
	if !m.Set(serverAttrs, o.SetOptions) {
		return m.invalidErr()
	}

	m.Trigger(EventSynced, m, resp, o)
	return nil
}

// Destroy deletes the model through its Syncer and triggers "destroyed".
// A new model has nothing to delete; it only triggers the event.
func (m *Model) Destroy(ctx context.Context, opts ...SaveOptions) error {
	o := saveOptions(opts)
	if m.IsNew() {
		m.Trigger(EventDestroyed, m, o)
		return nil
	}

	s, err := m.syncer()
	if err != nil {
		return err
	}

	if !o.Wait {
		m.Trigger(EventDestroyed, m, o)
	}
	resp, err := s.Sync(ctx, VerbDelete, m)
	if err != nil {
		return m.syncFailed(VerbDelete, err, o)
	}
	if o.Wait {
		m.Trigger(EventDestroyed, m, o)
	}

	m.Trigger(EventSynced, m, resp, o)
	return nil
}

func (m *Model) syncer() (Syncer, error) {
	if m.cfg.syncer == nil {
		return nil, ErrNoSyncer
	}
	return m.cfg.syncer, nil
}

// restore silently puts back the attributes captured before a waiting Save.
func (m *Model) restore(attrs map[string]any, silentKeys map[string]struct{}) {
	var added map[string]any
	for key := range m.attributes {
		if _, ok := attrs[key]; !ok {
			if added == nil {
				added = make(map[string]any)
			}
			added[key] = nil
		}
	}
	m.Set(added, SetOptions{Silent: true, Unset: true})
	m.Set(attrs, SetOptions{Silent: true})
	m.silent = silentKeys
	if id, ok := attrs[m.cfg.idAttribute]; ok {
		m.id = id
	} else {
		m.id = nil
	}
}

// syncFailed reports a persistence failure. Configuration errors are
// returned to the caller without an event.
func (m *Model) syncFailed(verb Verb, err error, o SaveOptions) error {
	if errors.Is(err, ErrMissingURL) {
		return err
	}
	m.debugLog("sync failed", "verb", verb.String(), "error", err)
	if o.Error != nil {
		o.Error(m, err, o.SetOptions)
	} else {
		m.Trigger(EventError, m, err, o)
	}
	return fmt.Errorf("%s %s: %w", verb, m.cid, err)
}

func (m *Model) invalidErr() error {
	if m.validationError == nil {
		return ErrValidation
	}
	return fmt.Errorf("%w: %w", ErrValidation, m.validationError)
}

func saveOptions(opts []SaveOptions) SaveOptions {
	if len(opts) == 0 {
		return SaveOptions{}
	}
	return opts[0]
}
