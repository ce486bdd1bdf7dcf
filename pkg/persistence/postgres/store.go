package postgres

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"net/url"
	"strings"
	"time"

	"github.com/doug-martin/goqu/v9"
	_ "github.com/doug-martin/goqu/v9/dialect/postgres" // dialect registration
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	jsoniter "github.com/json-iterator/go"
	"github.com/jmoiron/sqlx"

	"github.com/attrbus/attrbus-go/pkg/model"
	"github.com/attrbus/attrbus-go/pkg/persistence"
)

const (
	defaultTableName = "records"
	dialectPostgres  = "postgres"
	colURL           = "url"
	colAttrs         = "attrs"
	colUpdatedAt     = "updated_at"
	castJsonb        = "?::jsonb"
)

// Store errors.
var (
	ErrNilDatabaseConnection = errors.New("database connection is nil")
	ErrEmptyTableName        = errors.New("table name must not be empty")
	ErrBuildingQueryFailed   = errors.New("building query failed")
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Logger receives SQL and operation logs. *slog.Logger satisfies it.
type Logger interface {
	Debug(msg string, args ...any)
	Error(msg string, args ...any)
}

// Store persists records in a PostgreSQL table.
type Store struct {
	db        DBAdapter
	tableName string
	logger    Logger
	now       func() time.Time
	newID     func() string
}

// Option configures a Store.
type Option func(*Store) error

// WithTableName sets the records table name.
func WithTableName(name string) Option {
	return func(s *Store) error {
		if name == "" {
			return ErrEmptyTableName
		}
		s.tableName = name
		return nil
	}
}

// WithLogger sets the logger for executed SQL.
func WithLogger(logger Logger) Option {
	return func(s *Store) error {
		s.logger = logger
		return nil
	}
}

// WithIDFunc overrides how ids are assigned on create.
func WithIDFunc(fn func() string) Option {
	return func(s *Store) error {
		s.newID = fn
		return nil
	}
}

// NewStore creates a Store on top of an adapter.
func NewStore(db DBAdapter, options ...Option) (*Store, error) {
	if db == nil {
		return nil, ErrNilDatabaseConnection
	}
	s := &Store{
		db:        db,
		tableName: defaultTableName,
		now:       time.Now,
		newID:     uuid.NewString,
	}
	for _, option := range options {
		if err := option(s); err != nil {
			return nil, err
		}
	}
	return s, nil
}

// NewStoreFromPGXPool creates a Store using a pgx pool.
func NewStoreFromPGXPool(pool *pgxpool.Pool, options ...Option) (*Store, error) {
	if pool == nil {
		return nil, ErrNilDatabaseConnection
	}
	return NewStore(NewPGXAdapter(pool), options...)
}

// NewStoreFromSQLX creates a Store using a sqlx handle.
func NewStoreFromSQLX(db *sqlx.DB, options ...Option) (*Store, error) {
	if db == nil {
		return nil, ErrNilDatabaseConnection
	}
	return NewStore(NewSQLXAdapter(db), options...)
}

// CreateTable creates the records table if it does not exist.
func (s *Store) CreateTable(ctx context.Context) error {
	ddl := fmt.Sprintf(
		"CREATE TABLE IF NOT EXISTS %s (%s TEXT PRIMARY KEY, %s JSONB NOT NULL, %s TIMESTAMPTZ NOT NULL)",
		pgx.Identifier{s.tableName}.Sanitize(), colURL, colAttrs, colUpdatedAt,
	)
	_, err := s.exec(ctx, ddl)
	return err
}

// Sync implements model.Syncer.
func (s *Store) Sync(ctx context.Context, verb model.Verb, m *model.Model) (map[string]any, error) {
	addr, err := m.URL()
	if err != nil {
		return nil, err
	}

	switch verb {
	case model.VerbCreate:
		id := s.newID()
		attrs := m.Attributes()
		attrs[m.IDAttribute()] = id
		key := recordURL(addr, id)
		if err := s.write(ctx, key, attrs, false); err != nil {
			return nil, err
		}
		return map[string]any{m.IDAttribute(): id}, nil

	case model.VerbRead:
		rec, err := s.Get(ctx, addr)
		if err != nil {
			return nil, err
		}
		return maps.Clone(rec.Attrs), nil

	case model.VerbUpdate:
		return nil, s.write(ctx, addr, m.Attributes(), true)

	case model.VerbDelete:
		return nil, s.delete(ctx, addr)
	}

	return nil, fmt.Errorf("unsupported verb %s", verb)
}

// Get returns the record stored at addr.
func (s *Store) Get(ctx context.Context, addr string) (*persistence.Record, error) {
	query, _, err := goqu.Dialect(dialectPostgres).
		From(s.tableName).
		Select(colURL, colAttrs, colUpdatedAt).
		Where(goqu.C(colURL).Eq(addr)).
		ToSQL()
	if err != nil {
		return nil, errors.Join(ErrBuildingQueryFailed, err)
	}

	recs, err := s.query(ctx, query)
	if err != nil {
		return nil, err
	}
	if len(recs) == 0 {
		return nil, fmt.Errorf("%s: %w", addr, persistence.ErrNotFound)
	}
	return recs[0], nil
}

// List returns all records whose URL starts with prefix, ordered by URL.
func (s *Store) List(ctx context.Context, prefix string) ([]*persistence.Record, error) {
	stmt := goqu.Dialect(dialectPostgres).
		From(s.tableName).
		Select(colURL, colAttrs, colUpdatedAt).
		Order(goqu.I(colURL).Asc())
	if prefix != "" {
		stmt = stmt.Where(goqu.C(colURL).Like(escapeLike(prefix) + "%"))
	}

	query, _, err := stmt.ToSQL()
	if err != nil {
		return nil, errors.Join(ErrBuildingQueryFailed, err)
	}
	return s.query(ctx, query)
}

func (s *Store) write(ctx context.Context, addr string, attrs map[string]any, upsert bool) error {
	payload, err := json.Marshal(attrs)
	if err != nil {
		return fmt.Errorf("encoding %s: %w", addr, err)
	}

	stmt := goqu.Dialect(dialectPostgres).
		Insert(s.tableName).
		Rows(goqu.Record{
			colURL:       addr,
			colAttrs:     goqu.L(castJsonb, string(payload)),
			colUpdatedAt: s.now().UTC(),
		})
	if upsert {
		stmt = stmt.OnConflict(goqu.DoUpdate(colURL, goqu.Record{
			colAttrs:     goqu.L("EXCLUDED." + colAttrs),
			colUpdatedAt: goqu.L("EXCLUDED." + colUpdatedAt),
		}))
	}

	query, _, err := stmt.ToSQL()
	if err != nil {
		return errors.Join(ErrBuildingQueryFailed, err)
	}
	_, err = s.exec(ctx, query)
	return err
}

func (s *Store) delete(ctx context.Context, addr string) error {
	query, _, err := goqu.Dialect(dialectPostgres).
		Delete(s.tableName).
		Where(goqu.C(colURL).Eq(addr)).
		ToSQL()
	if err != nil {
		return errors.Join(ErrBuildingQueryFailed, err)
	}

	n, err := s.exec(ctx, query)
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("%s: %w", addr, persistence.ErrNotFound)
	}
	return nil
}

func (s *Store) query(ctx context.Context, query string) ([]*persistence.Record, error) {
	s.logSQL(query)
	rows, err := s.db.Query(ctx, query)
	if err != nil {
		s.logError("query failed", err, query)
		return nil, err
	}

	var recs []*persistence.Record
	for rows.Next() {
		var (
			rec     persistence.Record
			payload []byte
		)
		if err := rows.Scan(&rec.URL, &payload, &rec.UpdatedAt); err != nil {
			rows.Close()
			return nil, err
		}
		if err := json.Unmarshal(payload, &rec.Attrs); err != nil {
			rows.Close()
			return nil, fmt.Errorf("decoding %s: %w", rec.URL, err)
		}
		recs = append(recs, &rec)
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}
	return recs, nil
}

func (s *Store) exec(ctx context.Context, query string) (int64, error) {
	s.logSQL(query)
	res, err := s.db.Exec(ctx, query)
	if err != nil {
		s.logError("exec failed", err, query)
		return 0, err
	}
	return res.RowsAffected()
}

func (s *Store) logSQL(query string) {
	if s.logger != nil {
		s.logger.Debug("executing sql", "query", query)
	}
}

func (s *Store) logError(msg string, err error, query string) {
	if s.logger != nil {
		s.logger.Error(msg, "error", err.Error(), "query", query)
	}
}

func recordURL(root, id string) string {
	if !strings.HasSuffix(root, "/") {
		root += "/"
	}
	return root + url.PathEscape(id)
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}
