package log

import (
	"context"
	"log/slog"
)

// SlogAdapter writes trace events to an slog.Logger at Debug level.
type SlogAdapter struct {
	logger *slog.Logger
}

// NewSlogAdapter creates a SlogAdapter writing to logger.
func NewSlogAdapter(logger *slog.Logger) *SlogAdapter {
	return &SlogAdapter{logger: logger}
}

// Log writes the event.
func (a *SlogAdapter) Log(event Event) {
	attrs := []slog.Attr{
		slog.String("cid", event.EntityID),
		slog.String("event", event.Name),
		slog.String("category", event.Category.String()),
	}
	if event.ModelID != "" {
		attrs = append(attrs, slog.String("id", event.ModelID))
	}
	if event.Key != "" {
		attrs = append(attrs,
			slog.String("key", event.Key),
			slog.Any("value", event.Value),
		)
	}
	if event.Cycle != "" {
		attrs = append(attrs, slog.String("cycle", event.Cycle))
	}
	if event.Error != nil {
		attrs = append(attrs, slog.String("error", event.Error.Message))
	}

	a.logger.LogAttrs(context.Background(), slog.LevelDebug, "model event", attrs...)
}

var _ Logger = (*SlogAdapter)(nil)
