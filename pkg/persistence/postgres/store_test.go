package postgres

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/attrbus/attrbus-go/pkg/model"
	"github.com/attrbus/attrbus-go/pkg/persistence"
)

type fakeRow struct {
	url       string
	attrs     []byte
	updatedAt time.Time
}

// fakeDB records statements and serves canned rows.
type fakeDB struct {
	queries  []string
	execs    []string
	rows     []fakeRow
	affected int64
	err      error
}

func (f *fakeDB) Query(_ context.Context, query string) (DBRows, error) {
	f.queries = append(f.queries, query)
	if f.err != nil {
		return nil, f.err
	}
	return &fakeRows{rows: f.rows, pos: -1}, nil
}

func (f *fakeDB) Exec(_ context.Context, query string) (DBResult, error) {
	f.execs = append(f.execs, query)
	if f.err != nil {
		return nil, f.err
	}
	return fakeResult(f.affected), nil
}

type fakeRows struct {
	rows []fakeRow
	pos  int
}

func (r *fakeRows) Next() bool {
	r.pos++
	return r.pos < len(r.rows)
}

func (r *fakeRows) Scan(dest ...any) error {
	if len(dest) != 3 {
		return fmt.Errorf("scan: got %d destinations", len(dest))
	}
	row := r.rows[r.pos]
	*dest[0].(*string) = row.url
	*dest[1].(*[]byte) = row.attrs
	*dest[2].(*time.Time) = row.updatedAt
	return nil
}

func (r *fakeRows) Close() error { return nil }

type fakeResult int64

func (f fakeResult) RowsAffected() (int64, error) { return int64(f), nil }

func newTestStore(t *testing.T, db *fakeDB, opts ...Option) *Store {
	t.Helper()
	opts = append([]Option{WithIDFunc(func() string { return "id-1" })}, opts...)
	s, err := NewStore(db, opts...)
	require.NoError(t, err)
	return s
}

func TestNewStore(t *testing.T) {
	_, err := NewStore(nil)
	assert.ErrorIs(t, err, ErrNilDatabaseConnection)

	_, err = NewStoreFromPGXPool(nil)
	assert.ErrorIs(t, err, ErrNilDatabaseConnection)

	_, err = NewStoreFromSQLX(nil)
	assert.ErrorIs(t, err, ErrNilDatabaseConnection)

	_, err = NewStore(&fakeDB{}, WithTableName(""))
	assert.ErrorIs(t, err, ErrEmptyTableName)
}

func TestCreate(t *testing.T) {
	db := &fakeDB{affected: 1}
	store := newTestStore(t, db)
	m := model.New(map[string]any{"title": "milk"}, model.WithURLRoot("/todos"), model.WithSyncer(store))

	require.NoError(t, m.Save(context.Background(), nil))

	assert.Equal(t, "id-1", m.ID())
	require.Len(t, db.execs, 1)
	stmt := db.execs[0]
	assert.Contains(t, stmt, `INSERT INTO "records"`)
	assert.Contains(t, stmt, `'{"id":"id-1","title":"milk"}'::jsonb`)
	assert.Contains(t, stmt, `'/todos/id-1'`)
	assert.NotContains(t, stmt, "ON CONFLICT")
}

func TestUpdateUpserts(t *testing.T) {
	db := &fakeDB{affected: 1}
	store := newTestStore(t, db, WithTableName("todos"))
	m := model.New(map[string]any{"id": 7}, model.WithURLRoot("/todos"), model.WithSyncer(store))

	require.NoError(t, m.Save(context.Background(), map[string]any{"done": true}))

	require.Len(t, db.execs, 1)
	assert.Contains(t, db.execs[0], `INSERT INTO "todos"`)
	assert.Contains(t, db.execs[0], "ON CONFLICT")
	assert.Contains(t, db.execs[0], `'{"done":true,"id":7}'::jsonb`)
}

func TestFetch(t *testing.T) {
	db := &fakeDB{rows: []fakeRow{{url: "/todos/7", attrs: []byte(`{"id":7,"title":"remote"}`)}}}
	store := newTestStore(t, db)
	m := model.New(map[string]any{"id": 7}, model.WithURLRoot("/todos"), model.WithSyncer(store))

	require.NoError(t, m.Fetch(context.Background()))

	assert.Equal(t, "remote", m.Get("title"))
	require.Len(t, db.queries, 1)
	assert.Contains(t, db.queries[0], `FROM "records"`)
	assert.Contains(t, db.queries[0], `"url" = '/todos/7'`)
}

func TestFetchMissing(t *testing.T) {
	store := newTestStore(t, &fakeDB{})
	m := model.New(map[string]any{"id": 7}, model.WithURLRoot("/todos"), model.WithSyncer(store))

	assert.ErrorIs(t, m.Fetch(context.Background()), persistence.ErrNotFound)
}

func TestFetchBadPayload(t *testing.T) {
	db := &fakeDB{rows: []fakeRow{{url: "/todos/7", attrs: []byte(`{broken`)}}}
	store := newTestStore(t, db)

	_, err := store.Get(context.Background(), "/todos/7")
	assert.Error(t, err)
}

func TestDestroy(t *testing.T) {
	ctx := context.Background()

	t.Run("Deleted", func(t *testing.T) {
		db := &fakeDB{affected: 1}
		m := model.New(map[string]any{"id": 7}, model.WithURLRoot("/todos"), model.WithSyncer(newTestStore(t, db)))

		require.NoError(t, m.Destroy(ctx, model.SaveOptions{Wait: true}))
		require.Len(t, db.execs, 1)
		assert.Contains(t, db.execs[0], `DELETE FROM "records"`)
		assert.Contains(t, db.execs[0], `'/todos/7'`)
	})

	t.Run("Missing", func(t *testing.T) {
		db := &fakeDB{affected: 0}
		m := model.New(map[string]any{"id": 7}, model.WithURLRoot("/todos"), model.WithSyncer(newTestStore(t, db)))

		assert.ErrorIs(t, m.Destroy(ctx), persistence.ErrNotFound)
	})
}

func TestList(t *testing.T) {
	now := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	db := &fakeDB{rows: []fakeRow{
		{url: "/todos/a", attrs: []byte(`{"id":"a"}`), updatedAt: now},
		{url: "/todos/b", attrs: []byte(`{"id":"b"}`), updatedAt: now},
	}}
	store := newTestStore(t, db)

	recs, err := store.List(context.Background(), "/todos_x/")
	require.NoError(t, err)

	require.Len(t, recs, 2)
	assert.Equal(t, "/todos/b", recs[1].URL)
	assert.Equal(t, now, recs[0].UpdatedAt)
	assert.Contains(t, db.queries[0], `"url" LIKE '/todos`)
	assert.Contains(t, db.queries[0], `ORDER BY "url" ASC`)
}

func TestDatabaseError(t *testing.T) {
	errDown := errors.New("connection refused")
	store := newTestStore(t, &fakeDB{err: errDown})
	m := model.New(map[string]any{"id": 7}, model.WithURLRoot("/todos"), model.WithSyncer(store))

	assert.ErrorIs(t, m.Fetch(context.Background()), errDown)
	assert.ErrorIs(t, m.Save(context.Background(), nil), errDown)
}

func TestCreateTable(t *testing.T) {
	db := &fakeDB{}
	store := newTestStore(t, db, WithTableName("my records"))

	require.NoError(t, store.CreateTable(context.Background()))

	require.Len(t, db.execs, 1)
	assert.Contains(t, db.execs[0], `CREATE TABLE IF NOT EXISTS "my records"`)
	assert.Contains(t, db.execs[0], "attrs JSONB NOT NULL")
}
