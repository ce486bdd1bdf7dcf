package log

// Logger receives trace events. Pass NoopLogger to disable tracing.
type Logger interface {
	// Log records an event. Implementations used across goroutines must be
	// safe for concurrent use.
	Log(event Event)
}

// NoopLogger discards all events.
type NoopLogger struct{}

// Log discards the event.
func (NoopLogger) Log(Event) {}

var _ Logger = NoopLogger{}
