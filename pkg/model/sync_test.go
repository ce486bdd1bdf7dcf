package model_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/attrbus/attrbus-go/pkg/model"
	"github.com/attrbus/attrbus-go/pkg/model/mocks"
)

func TestURL(t *testing.T) {
	t.Run("Missing", func(t *testing.T) {
		_, err := model.New(nil).URL()
		assert.ErrorIs(t, err, model.ErrMissingURL)
	})

	t.Run("NewUsesRoot", func(t *testing.T) {
		url, err := model.New(nil, model.WithURLRoot("/todos")).URL()
		require.NoError(t, err)
		assert.Equal(t, "/todos", url)
	})

	t.Run("EscapesID", func(t *testing.T) {
		m := model.New(map[string]any{"id": "a b/c"}, model.WithURLRoot("/todos/"))
		url, err := m.URL()
		require.NoError(t, err)
		assert.Equal(t, "/todos/a%20b%2Fc", url)
	})

	t.Run("CustomFunc", func(t *testing.T) {
		m := model.New(nil, model.WithURL(func(m *model.Model) (string, error) {
			return "/custom/" + m.CID(), nil
		}))
		url, err := m.URL()
		require.NoError(t, err)
		assert.Equal(t, "/custom/"+m.CID(), url)
	})
}

func TestFetch(t *testing.T) {
	ctx := context.Background()

	t.Run("AppliesParsedResponse", func(t *testing.T) {
		syncer := mocks.NewMockSyncer(t)
		m := model.New(map[string]any{"id": 1},
			model.WithSyncer(syncer),
			model.WithParse(func(raw map[string]any) map[string]any {
				return raw["item"].(map[string]any)
			}),
		)
		syncer.EXPECT().Sync(mock.Anything, model.VerbRead, m).
			Return(map[string]any{"item": map[string]any{"id": 1, "title": "remote"}}, nil)

		var synced bool
		m.OnSynced(func(_ *model.Model, resp map[string]any, _ model.SaveOptions) {
			synced = resp["item"] != nil
		})

		require.NoError(t, m.Fetch(ctx))
		assert.Equal(t, "remote", m.Get("title"))
		assert.True(t, synced)
	})

	t.Run("ErrorEvent", func(t *testing.T) {
		syncer := mocks.NewMockSyncer(t)
		m := model.New(map[string]any{"id": 1}, model.WithSyncer(syncer))
		errDown := errors.New("down")
		syncer.EXPECT().Sync(mock.Anything, model.VerbRead, m).Return(nil, errDown)

		var gotErr error
		m.OnError(func(_ *model.Model, err error, _ model.SaveOptions) { gotErr = err })

		err := m.Fetch(ctx)
		assert.ErrorIs(t, err, errDown)
		assert.ErrorIs(t, gotErr, errDown)
	})

	t.Run("NoSyncer", func(t *testing.T) {
		assert.ErrorIs(t, model.New(nil).Fetch(ctx), model.ErrNoSyncer)
	})

	t.Run("MissingURLNoEvent", func(t *testing.T) {
		m := model.New(nil, model.WithSyncer(model.SyncerFunc(func(_ context.Context, _ model.Verb, m *model.Model) (map[string]any, error) {
			_, err := m.URL()
			return nil, err
		})))
		fired := false
		m.OnError(func(*model.Model, error, model.SaveOptions) { fired = true })

		err := m.Fetch(ctx)

		assert.ErrorIs(t, err, model.ErrMissingURL)
		assert.False(t, fired)
	})
}

func TestSave(t *testing.T) {
	ctx := context.Background()

	t.Run("CreateThenUpdate", func(t *testing.T) {
		syncer := mocks.NewMockSyncer(t)
		m := model.New(map[string]any{"title": "x"}, model.WithSyncer(syncer))

		syncer.EXPECT().Sync(mock.Anything, model.VerbCreate, m).
			Return(map[string]any{"id": "abc"}, nil).Once()
		require.NoError(t, m.Save(ctx, nil))
		assert.False(t, m.IsNew())
		assert.Equal(t, "abc", m.ID())

		syncer.EXPECT().Sync(mock.Anything, model.VerbUpdate, m).Return(nil, nil).Once()
		require.NoError(t, m.Save(ctx, map[string]any{"title": "y"}))
		assert.Equal(t, "y", m.Get("title"))
	})

	t.Run("SyncerSeesAttributes", func(t *testing.T) {
		syncer := mocks.NewMockSyncer(t)
		m := model.New(nil, model.WithSyncer(syncer))
		var sent map[string]any
		syncer.EXPECT().Sync(mock.Anything, model.VerbCreate, m).
			Run(func(_ context.Context, _ model.Verb, m *model.Model) { sent = m.Attributes() }).
			Return(nil, nil)

		require.NoError(t, m.Save(ctx, map[string]any{"title": "z"}))
		assert.Equal(t, map[string]any{"title": "z"}, sent)
	})

	t.Run("ValidationStopsSync", func(t *testing.T) {
		syncer := mocks.NewMockSyncer(t)
		errBad := errors.New("bad")
		m := model.New(nil, model.WithSyncer(syncer), model.WithValidator(func(attrs map[string]any, _ model.SetOptions) error {
			if attrs["title"] == "" {
				return errBad
			}
			return nil
		}))

		err := m.Save(ctx, map[string]any{"title": ""})

		assert.ErrorIs(t, err, model.ErrValidation)
		assert.ErrorIs(t, err, errBad)
		syncer.AssertNotCalled(t, "Sync", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("WaitDefersChanges", func(t *testing.T) {
		syncer := mocks.NewMockSyncer(t)
		m := model.New(map[string]any{"id": 1, "title": "x"}, model.WithSyncer(syncer))
		var sent map[string]any
		syncer.EXPECT().Sync(mock.Anything, model.VerbUpdate, m).
			Run(func(_ context.Context, _ model.Verb, m *model.Model) { sent = m.Attributes() }).
			Return(map[string]any{"updated": true}, nil)

		var titleEvents int
		m.OnAttributeChanged("title", func(*model.Model, any, model.SetOptions) { titleEvents++ })

		require.NoError(t, m.Save(ctx, map[string]any{"title": "y"}, model.SaveOptions{Wait: true}))

		assert.Equal(t, "y", sent["title"])
		assert.Equal(t, "y", m.Get("title"))
		assert.Equal(t, true, m.Get("updated"))
		assert.Equal(t, 1, titleEvents)
	})

	t.Run("WaitRestoresOnError", func(t *testing.T) {
		syncer := mocks.NewMockSyncer(t)
		m := model.New(map[string]any{"id": 1, "title": "x"}, model.WithSyncer(syncer))
		syncer.EXPECT().Sync(mock.Anything, model.VerbUpdate, m).Return(nil, errors.New("offline"))

		var titleEvents int
		m.OnAttributeChanged("title", func(*model.Model, any, model.SetOptions) { titleEvents++ })

		err := m.Save(ctx, map[string]any{"title": "y", "extra": 1}, model.SaveOptions{Wait: true})

		require.Error(t, err)
		assert.Equal(t, map[string]any{"id": 1, "title": "x"}, m.Attributes())
		assert.False(t, m.HasChanged())
		assert.Zero(t, titleEvents)

		m.Change()
		assert.Zero(t, titleEvents, "no silent leftovers")
	})

	t.Run("ErrorCallback", func(t *testing.T) {
		syncer := mocks.NewMockSyncer(t)
		m := model.New(map[string]any{"id": 1}, model.WithSyncer(syncer))
		syncer.EXPECT().Sync(mock.Anything, model.VerbUpdate, m).Return(nil, errors.New("offline"))

		var viaCallback error
		eventFired := false
		m.OnError(func(*model.Model, error, model.SaveOptions) { eventFired = true })

		err := m.Save(ctx, nil, model.SaveOptions{SetOptions: model.SetOptions{
			Error: func(_ *model.Model, err error, _ model.SetOptions) { viaCallback = err },
		}})

		require.Error(t, err)
		assert.Error(t, viaCallback)
		assert.False(t, eventFired)
	})
}

func TestDestroy(t *testing.T) {
	ctx := context.Background()

	t.Run("NewModelOnlyTriggers", func(t *testing.T) {
		syncer := mocks.NewMockSyncer(t)
		m := model.New(nil, model.WithSyncer(syncer))
		destroyed := 0
		m.OnDestroyed(func(*model.Model, model.SaveOptions) { destroyed++ })

		require.NoError(t, m.Destroy(ctx))
		assert.Equal(t, 1, destroyed)
	})

	t.Run("Optimistic", func(t *testing.T) {
		syncer := mocks.NewMockSyncer(t)
		m := model.New(map[string]any{"id": 9}, model.WithSyncer(syncer))
		var order []string
		m.OnDestroyed(func(*model.Model, model.SaveOptions) { order = append(order, "destroyed") })
		m.OnSynced(func(*model.Model, map[string]any, model.SaveOptions) { order = append(order, "synced") })
		syncer.EXPECT().Sync(mock.Anything, model.VerbDelete, m).
			Run(func(context.Context, model.Verb, *model.Model) { order = append(order, "sync") }).
			Return(nil, nil)

		require.NoError(t, m.Destroy(ctx))
		assert.Equal(t, []string{"destroyed", "sync", "synced"}, order)
	})

	t.Run("Wait", func(t *testing.T) {
		syncer := mocks.NewMockSyncer(t)
		m := model.New(map[string]any{"id": 9}, model.WithSyncer(syncer))
		var order []string
		m.OnDestroyed(func(*model.Model, model.SaveOptions) { order = append(order, "destroyed") })
		syncer.EXPECT().Sync(mock.Anything, model.VerbDelete, m).
			Run(func(context.Context, model.Verb, *model.Model) { order = append(order, "sync") }).
			Return(nil, nil)

		require.NoError(t, m.Destroy(ctx, model.SaveOptions{Wait: true}))
		assert.Equal(t, []string{"sync", "destroyed"}, order)
	})

	t.Run("WaitFailureNoEvent", func(t *testing.T) {
		syncer := mocks.NewMockSyncer(t)
		m := model.New(map[string]any{"id": 9}, model.WithSyncer(syncer))
		destroyed := false
		m.OnDestroyed(func(*model.Model, model.SaveOptions) { destroyed = true })
		syncer.EXPECT().Sync(mock.Anything, model.VerbDelete, m).Return(nil, errors.New("gone"))

		assert.Error(t, m.Destroy(ctx, model.SaveOptions{Wait: true}))
		assert.False(t, destroyed)
	})
}

func TestVerbString(t *testing.T) {
	assert.Equal(t, "create", model.VerbCreate.String())
	assert.Equal(t, "read", model.VerbRead.String())
	assert.Equal(t, "update", model.VerbUpdate.String())
	assert.Equal(t, "delete", model.VerbDelete.String())
	assert.Equal(t, "unknown", model.Verb(99).String())
}
