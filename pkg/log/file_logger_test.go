package log

import (
	"io"
	"path/filepath"
	"sync"
	"testing"
	"time"
)

func readAll(t *testing.T, path string, filter Filter) []Event {
	t.Helper()
	r, err := NewFilteredReader(path, filter)
	if err != nil {
		t.Fatalf("NewFilteredReader() error = %v", err)
	}
	defer r.Close()

	var out []Event
	for {
		ev, err := r.Next()
		if err == io.EOF {
			return out
		}
		if err != nil {
			t.Fatalf("Next() error = %v", err)
		}
		out = append(out, ev)
	}
}

func TestFileLoggerWritesAndAppends(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "trace.alog")

	l, err := NewFileLogger(path)
	if err != nil {
		t.Fatalf("NewFileLogger() error = %v", err)
	}
	l.Log(Event{Timestamp: time.Now(), EntityID: "c1", Name: "changed:a"})
	if err := l.Close(); err != nil {
		t.Fatal(err)
	}

	l, err = NewFileLogger(path)
	if err != nil {
		t.Fatal(err)
	}
	l.Log(Event{Timestamp: time.Now(), EntityID: "c1", Name: "changed"})
	if l.Written() != 1 {
		t.Errorf("Written() = %d, want 1", l.Written())
	}
	l.Close()

	events := readAll(t, path, Filter{})
	if len(events) != 2 {
		t.Fatalf("got %d events, want 2", len(events))
	}
	if events[0].Name != "changed:a" || events[1].Name != "changed" {
		t.Errorf("events = %+v", events)
	}
}

func TestFileLoggerAfterClose(t *testing.T) {
	path := filepath.Join(t.TempDir(), "trace.alog")
	l, err := NewFileLogger(path)
	if err != nil {
		t.Fatal(err)
	}
	l.Close()
	l.Log(Event{Name: "dropped"})

	if err := l.Close(); err != nil {
		t.Errorf("second Close() error = %v", err)
	}
	if got := readAll(t, path, Filter{}); len(got) != 0 {
		t.Errorf("got %d events after close", len(got))
	}
}

func TestFileLoggerUnencodableValue(t *testing.T) {
	path := filepath.Join(t.TempDir(), "trace.alog")
	l, err := NewFileLogger(path)
	if err != nil {
		t.Fatal(err)
	}
	defer l.Close()

	l.Log(Event{Name: "changed:fn", Value: func() {}})

	if l.Err() == nil {
		t.Error("expected encoding error")
	}
	if l.Written() != 0 {
		t.Errorf("Written() = %d", l.Written())
	}
}

func TestFileLoggerConcurrent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "trace.alog")
	l, err := NewFileLogger(path)
	if err != nil {
		t.Fatal(err)
	}

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 20; j++ {
				l.Log(Event{EntityID: "c1", Name: "changed"})
			}
		}()
	}
	wg.Wait()
	l.Close()

	if got := len(readAll(t, path, Filter{})); got != 200 {
		t.Errorf("got %d events, want 200", got)
	}
}
