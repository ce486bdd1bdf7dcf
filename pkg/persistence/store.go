package persistence

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"net/url"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	jsoniter "github.com/json-iterator/go"

	"github.com/attrbus/attrbus-go/pkg/model"
)

// StoreVersion is the current version of the store file format.
const StoreVersion = 1

// ErrNotFound is returned when no record exists at a model's URL.
var ErrNotFound = errors.New("record not found")

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Record is one persisted model.
type Record struct {
	// URL is the address the record is stored under.
	URL string `json:"url"`

	// Attrs holds the attribute snapshot.
	Attrs map[string]any `json:"attrs"`

	// UpdatedAt is when the record was last written.
	UpdatedAt time.Time `json:"updated_at"`
}

// storeFile is the on-disk layout.
type storeFile struct {
	Version int                `json:"version"`
	SavedAt time.Time          `json:"saved_at"`
	Records map[string]*Record `json:"records,omitempty"`
}

// FileStore persists records to a single JSON file.
type FileStore struct {
	mu     sync.Mutex
	path   string
	logger *slog.Logger
	now    func() time.Time
	newID  func() string
}

// FileStoreOption configures a FileStore.
type FileStoreOption func(*FileStore)

// WithLogger sets the logger for store operations.
func WithLogger(l *slog.Logger) FileStoreOption {
	return func(s *FileStore) { s.logger = l }
}

// WithIDFunc overrides how ids are assigned on create.
func WithIDFunc(fn func() string) FileStoreOption {
	return func(s *FileStore) { s.newID = fn }
}

// NewFileStore creates a store backed by the file at path. The file is
// created on first write.
func NewFileStore(path string, opts ...FileStoreOption) *FileStore {
	s := &FileStore{
		path:  path,
		now:   time.Now,
		newID: uuid.NewString,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Path returns the backing file path.
func (s *FileStore) Path() string {
	return s.path
}

// Sync implements model.Syncer.
func (s *FileStore) Sync(ctx context.Context, verb model.Verb, m *model.Model) (map[string]any, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	addr, err := m.URL()
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	f, err := s.load()
	if err != nil {
		return nil, err
	}

	s.debugLog("sync", "verb", verb.String(), "url", addr)

	switch verb {
	case model.VerbCreate:
		id := s.newID()
		attrs := m.Attributes()
		attrs[m.IDAttribute()] = id
		key := recordURL(addr, id)
		f.Records[key] = &Record{URL: key, Attrs: attrs, UpdatedAt: s.now()}
		if err := s.write(f); err != nil {
			return nil, err
		}
		return map[string]any{m.IDAttribute(): id}, nil

	case model.VerbRead:
		rec, ok := f.Records[addr]
		if !ok {
			return nil, fmt.Errorf("%s: %w", addr, ErrNotFound)
		}
		return maps.Clone(rec.Attrs), nil

	case model.VerbUpdate:
		f.Records[addr] = &Record{URL: addr, Attrs: m.Attributes(), UpdatedAt: s.now()}
		return nil, s.write(f)

	case model.VerbDelete:
		if _, ok := f.Records[addr]; !ok {
			return nil, fmt.Errorf("%s: %w", addr, ErrNotFound)
		}
		delete(f.Records, addr)
		return nil, s.write(f)
	}

	return nil, fmt.Errorf("unsupported verb %s", verb)
}

// Get returns the record stored at addr.
func (s *FileStore) Get(addr string) (*Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	f, err := s.load()
	if err != nil {
		return nil, err
	}
	rec, ok := f.Records[addr]
	if !ok {
		return nil, fmt.Errorf("%s: %w", addr, ErrNotFound)
	}
	return rec, nil
}

// List returns all records whose URL starts with prefix, sorted by URL.
func (s *FileStore) List(ctx context.Context, prefix string) ([]*Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	f, err := s.load()
	if err != nil {
		return nil, err
	}
	var out []*Record
	keys := make([]string, 0, len(f.Records))
	for k := range f.Records {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	for _, key := range keys {
		if strings.HasPrefix(key, prefix) {
			out = append(out, f.Records[key])
		}
	}
	return out, nil
}

// Clear removes the store file.
func (s *FileStore) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	err := os.Remove(s.path)
	if os.IsNotExist(err) {
		return nil
	}
	return err
}

// load reads the store file. A missing file is an empty store.
func (s *FileStore) load() (*storeFile, error) {
	f := &storeFile{Version: StoreVersion}

	data, err := os.ReadFile(s.path)
	if os.IsNotExist(err) {
		f.Records = make(map[string]*Record)
		return f, nil
	}
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal(data, f); err != nil {
		return nil, fmt.Errorf("decoding %s: %w", s.path, err)
	}
	if f.Records == nil {
		f.Records = make(map[string]*Record)
	}
	return f, nil
}

// write replaces the store file through a temp file and rename.
func (s *FileStore) write(f *storeFile) error {
	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}

	f.Version = StoreVersion
	f.SavedAt = s.now()

	data, err := json.MarshalIndent(f, "", "  ")
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(s.path)+".*.tmp")
	if err != nil {
		return err
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return err
	}
	return os.Rename(tmp.Name(), s.path)
}

func (s *FileStore) debugLog(msg string, args ...any) {
	if s.logger != nil {
		s.logger.Debug(msg, args...)
	}
}

// recordURL returns the address of a newly created record under root.
func recordURL(root, id string) string {
	if !strings.HasSuffix(root, "/") {
		root += "/"
	}
	return root + url.PathEscape(id)
}
