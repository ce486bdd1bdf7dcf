package log

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"testing"
)

func decodeSlog(t *testing.T, buf *bytes.Buffer) map[string]any {
	t.Helper()
	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("parsing log output %q: %v", buf.String(), err)
	}
	return entry
}

func TestSlogAdapterAttributeEvent(t *testing.T) {
	var buf bytes.Buffer
	adapter := NewSlogAdapter(slog.New(slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug})))

	adapter.Log(Event{
		EntityID: "c1",
		ModelID:  "7",
		Name:     "changed:title",
		Category: CategoryAttribute,
		Key:      "title",
		Value:    "milk",
		Cycle:    "DISPATCHING",
	})

	entry := decodeSlog(t, &buf)
	want := map[string]any{
		"msg":      "model event",
		"cid":      "c1",
		"id":       "7",
		"event":    "changed:title",
		"category": "ATTRIBUTE",
		"key":      "title",
		"value":    "milk",
		"cycle":    "DISPATCHING",
	}
	for k, v := range want {
		if entry[k] != v {
			t.Errorf("%s = %v, want %v", k, entry[k], v)
		}
	}
}

func TestSlogAdapterErrorEvent(t *testing.T) {
	var buf bytes.Buffer
	adapter := NewSlogAdapter(slog.New(slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug})))

	adapter.Log(Event{EntityID: "c1", Name: "error", Category: CategoryError, Error: &ErrorData{Message: "offline"}})

	entry := decodeSlog(t, &buf)
	if entry["error"] != "offline" {
		t.Errorf("error = %v", entry["error"])
	}
	if _, ok := entry["key"]; ok {
		t.Error("key should be absent")
	}
}

func TestSlogAdapterRespectsLevel(t *testing.T) {
	var buf bytes.Buffer
	adapter := NewSlogAdapter(slog.New(slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelInfo})))

	adapter.Log(Event{Name: "changed"})

	if buf.Len() != 0 {
		t.Errorf("unexpected output %q", buf.String())
	}
}
