package persistence

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/attrbus/attrbus-go/pkg/model"
)

func newTestStore(t *testing.T) *FileStore {
	t.Helper()
	ids := []string{"id-1", "id-2", "id-3"}
	next := 0
	return NewFileStore(filepath.Join(t.TempDir(), "data", "store.json"), WithIDFunc(func() string {
		id := ids[next]
		next++
		return id
	}))
}

func TestFileStoreCreate(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	m := model.New(map[string]any{"title": "milk"}, model.WithURLRoot("/todos"), model.WithSyncer(store))

	require.NoError(t, m.Save(ctx, nil))

	assert.Equal(t, "id-1", m.ID())
	url, err := m.URL()
	require.NoError(t, err)
	assert.Equal(t, "/todos/id-1", url)

	rec, err := store.Get("/todos/id-1")
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"id": "id-1", "title": "milk"}, rec.Attrs)
	assert.False(t, rec.UpdatedAt.IsZero())
}

func TestFileStoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	m := model.New(map[string]any{"title": "milk", "count": 2}, model.WithURLRoot("/todos"), model.WithSyncer(store))
	require.NoError(t, m.Save(ctx, nil))
	require.NoError(t, m.Save(ctx, map[string]any{"done": true}))

	// A fresh store instance reads what the first wrote.
	reopened := NewFileStore(store.Path())
	loaded := model.New(map[string]any{"id": "id-1"}, model.WithURLRoot("/todos"), model.WithSyncer(reopened))
	require.NoError(t, loaded.Fetch(ctx))

	assert.Equal(t, "milk", loaded.Get("title"))
	assert.Equal(t, true, loaded.Get("done"))
	assert.Equal(t, float64(2), loaded.Get("count"))
}

func TestFileStoreFetchMissing(t *testing.T) {
	store := newTestStore(t)
	m := model.New(map[string]any{"id": "nope"}, model.WithURLRoot("/todos"), model.WithSyncer(store))

	var evt error
	m.OnError(func(_ *model.Model, err error, _ model.SaveOptions) { evt = err })

	err := m.Fetch(context.Background())

	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, evt, ErrNotFound)
}

func TestFileStoreDestroy(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	m := model.New(map[string]any{"title": "milk"}, model.WithURLRoot("/todos"), model.WithSyncer(store))
	require.NoError(t, m.Save(ctx, nil))

	require.NoError(t, m.Destroy(ctx))

	_, err := store.Get("/todos/id-1")
	assert.ErrorIs(t, err, ErrNotFound)

	assert.ErrorIs(t, m.Destroy(ctx), ErrNotFound)
}

func TestFileStoreList(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	for _, root := range []string{"/todos", "/todos", "/notes"} {
		m := model.New(nil, model.WithURLRoot(root), model.WithSyncer(store))
		require.NoError(t, m.Save(ctx, nil))
	}

	todos, err := store.List(ctx, "/todos/")
	require.NoError(t, err)
	require.Len(t, todos, 2)
	assert.Equal(t, "/todos/id-1", todos[0].URL)
	assert.Equal(t, "/todos/id-2", todos[1].URL)

	all, err := store.List(ctx, "")
	require.NoError(t, err)
	assert.Len(t, all, 3)
}

func TestFileStoreMissingURL(t *testing.T) {
	store := newTestStore(t)
	m := model.New(nil, model.WithSyncer(store))

	assert.ErrorIs(t, m.Save(context.Background(), nil), model.ErrMissingURL)
}

func TestFileStoreCanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	store := newTestStore(t)
	m := model.New(nil, model.WithURLRoot("/todos"), model.WithSyncer(store))

	err := m.Save(ctx, nil)

	assert.True(t, errors.Is(err, context.Canceled))
	assert.NoFileExists(t, store.Path())
}

func TestFileStoreCorrupt(t *testing.T) {
	store := newTestStore(t)
	require.NoError(t, os.MkdirAll(filepath.Dir(store.Path()), 0755))
	require.NoError(t, os.WriteFile(store.Path(), []byte("{not json"), 0644))

	_, err := store.List(context.Background(), "")
	assert.Error(t, err)
}

func TestFileStoreClear(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	require.NoError(t, store.Clear(), "clearing a missing file")

	m := model.New(nil, model.WithURLRoot("/todos"), model.WithSyncer(store))
	require.NoError(t, m.Save(ctx, nil))
	assert.FileExists(t, store.Path())

	require.NoError(t, store.Clear())
	assert.NoFileExists(t, store.Path())

	entries, err := os.ReadDir(filepath.Dir(store.Path()))
	require.NoError(t, err)
	assert.Empty(t, entries, "no temp files left behind")
}
