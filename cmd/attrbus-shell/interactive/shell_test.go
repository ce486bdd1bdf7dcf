package interactive

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/attrbus/attrbus-go/pkg/model"
	"github.com/attrbus/attrbus-go/pkg/persistence"
	"github.com/attrbus/attrbus-go/pkg/subscription"
)

func testShell(t *testing.T, m *model.Model, opts Options) (*Shell, *bytes.Buffer) {
	t.Helper()
	out := &bytes.Buffer{}
	return newShell(m, opts, out), out
}

func run(t *testing.T, s *Shell, out *bytes.Buffer, line string) string {
	t.Helper()
	out.Reset()
	require.True(t, s.Execute(context.Background(), line))
	return out.String()
}

func TestSetAndGet(t *testing.T) {
	m := model.New(nil)
	s, out := testShell(t, m, Options{})

	run(t, s, out, `set title "buy milk"`)
	run(t, s, out, "set count 3")
	run(t, s, out, "set owner alice")

	assert.Equal(t, "buy milk", m.Get("title"))
	assert.Equal(t, float64(3), m.Get("count"))
	assert.Equal(t, "alice", m.Get("owner"))

	assert.Equal(t, "count = 3\n", run(t, s, out, "get count"))
	assert.Equal(t, "missing is not set\n", run(t, s, out, "get missing"))

	shown := run(t, s, out, "show")
	assert.Contains(t, shown, "cid "+m.CID())
	assert.Contains(t, shown, `  title = "buy milk"`)
}

func TestSilentSetAndChange(t *testing.T) {
	m := model.New(nil)
	s, out := testShell(t, m, Options{})

	run(t, s, out, "on changed:a")
	assert.Empty(t, run(t, s, out, "set -s a 1"))
	assert.Equal(t, float64(1), m.Get("a"))

	assert.Equal(t, "[event] changed:a 1\n", run(t, s, out, "change"))
}

func TestOnAllAndOff(t *testing.T) {
	m := model.New(nil)
	s, out := testShell(t, m, Options{})

	run(t, s, out, "on *")
	assert.Equal(t, "[event] changed:a\n[event] changed\n", run(t, s, out, "set a 1"))

	assert.Equal(t, "Already printing all\n", run(t, s, out, "on all"))

	run(t, s, out, "off all")
	assert.Empty(t, run(t, s, out, "set a 2"))
	assert.Equal(t, "Not printing all\n", run(t, s, out, "off all"))

	run(t, s, out, "on changed")
	run(t, s, out, "on changed:a")
	run(t, s, out, "off")
	assert.Empty(t, run(t, s, out, "set a 3"))
	assert.Zero(t, m.Count("changed"))
}

func TestUnsetClearAndPrevious(t *testing.T) {
	m := model.New(map[string]any{"a": 1, "b": 2})
	s, out := testShell(t, m, Options{})

	run(t, s, out, "unset -s a")
	assert.False(t, m.Has("a"))
	assert.Equal(t, "a was 1\n", run(t, s, out, "previous a"))

	run(t, s, out, "change")
	assert.Equal(t, "a was null\n", run(t, s, out, "previous a"))

	run(t, s, out, "clear")
	assert.Empty(t, m.Attributes())
	assert.Equal(t, "(no changes)\n", run(t, s, out, "changed"))
}

func TestRejectedSet(t *testing.T) {
	errNegative := errors.New("negative")
	m := model.New(nil, model.WithValidator(func(attrs map[string]any, _ model.SetOptions) error {
		if v, ok := attrs["n"].(float64); ok && v < 0 {
			return errNegative
		}
		return nil
	}))
	s, out := testShell(t, m, Options{})

	assert.Equal(t, "Rejected: negative\n", run(t, s, out, "set n -1"))
	assert.False(t, m.Has("n"))
	assert.Equal(t, "Valid\n", run(t, s, out, "validate"))
}

func TestEscape(t *testing.T) {
	m := model.New(map[string]any{"html": "<b>&</b>"})
	s, out := testShell(t, m, Options{})

	assert.Equal(t, "&lt;b&gt;&amp;&lt;/b&gt;\n", run(t, s, out, "escape html"))
}

func TestPersistenceCommands(t *testing.T) {
	ids := []string{"id-1", "id-2"}
	store := persistence.NewFileStore(filepath.Join(t.TempDir(), "records.json"),
		persistence.WithIDFunc(func() string {
			id := ids[0]
			ids = ids[1:]
			return id
		}))

	m := model.New(nil, model.WithURLRoot("/todos"), model.WithSyncer(store))
	s, out := testShell(t, m, Options{Store: store})

	assert.Equal(t, "/todos\n", run(t, s, out, "url"))
	assert.Equal(t, "Saved (id \"id-1\")\n", run(t, s, out, "save title milk"))
	assert.Equal(t, "/todos/id-1\n", run(t, s, out, "url"))

	listed := run(t, s, out, "list /todos")
	assert.Contains(t, listed, "/todos/id-1")
	assert.Contains(t, listed, `"title":"milk"`)

	run(t, s, out, "set -s title bread")
	assert.Equal(t, "Fetched\n", run(t, s, out, "fetch"))
	assert.Equal(t, "milk", m.Get("title"))

	assert.Equal(t, "Destroyed\n", run(t, s, out, "destroy -wait"))
	assert.Equal(t, "(no records)\n", run(t, s, out, "list"))
	assert.Contains(t, run(t, s, out, "fetch"), "Fetch failed")
}

func TestPersistenceWithoutStore(t *testing.T) {
	m := model.New(nil)
	s, out := testShell(t, m, Options{})

	assert.Equal(t, "No store configured\n", run(t, s, out, "list"))
	assert.Contains(t, run(t, s, out, "url"), "Error:")
	assert.Contains(t, run(t, s, out, "save"), "Save failed")
}

func TestWatch(t *testing.T) {
	now := time.Unix(1000, 0)
	mgr := subscription.NewManagerWithConfig(subscription.Config{
		MaxSubscriptions:    4,
		MaxAttributesPerSub: 8,
		Clock:               func() time.Time { return now },
	})

	m := model.New(map[string]any{"a": 1})
	s, out := testShell(t, m, Options{Subscriptions: mgr})
	mgr.OnNotification(s.PrintNotification)

	got := run(t, s, out, "watch 1s a")
	var id uint32
	_, err := fmt.Sscanf(got[strings.Index(got, "Watching"):], "Watching (id %d)", &id)
	require.NoError(t, err)
	assert.Contains(t, got, fmt.Sprintf(`[watch %d] priming {"a":1}`, id))

	out.Reset()
	m.SetKey("a", 2)
	now = now.Add(2 * time.Second)
	mgr.ProcessNotifications()
	assert.Equal(t, fmt.Sprintf("[watch %d] change {\"a\":2}\n", id), out.String())

	run(t, s, out, fmt.Sprintf("unwatch %d", id))
	assert.Zero(t, mgr.Count())
	assert.Contains(t, run(t, s, out, fmt.Sprintf("unwatch %d", id)), "Unwatch failed")
	assert.Contains(t, run(t, s, out, "watch soon"), "Invalid interval")
}

func TestUnknownAndQuit(t *testing.T) {
	s, out := testShell(t, model.New(nil), Options{})

	assert.Contains(t, run(t, s, out, "frobnicate"), "Unknown command: frobnicate")
	assert.Empty(t, run(t, s, out, "   "))
	assert.Contains(t, run(t, s, out, "help"), "Commands:")

	out.Reset()
	assert.False(t, s.Execute(context.Background(), "quit"))
}
