package log

import (
	"fmt"
	"time"

	"github.com/attrbus/attrbus-go/pkg/events"
	"github.com/attrbus/attrbus-go/pkg/model"
)

// Recorder converts the events of one model into trace Events.
type Recorder struct {
	model  *model.Model
	logger Logger
	cb     *events.Callback
	now    func() time.Time
}

// RecorderOption configures a Recorder.
type RecorderOption func(*Recorder)

// WithClock overrides the timestamp source.
func WithClock(now func() time.Time) RecorderOption {
	return func(r *Recorder) { r.now = now }
}

// NewRecorder binds a wildcard handler on m that logs every triggered event.
func NewRecorder(m *model.Model, logger Logger, opts ...RecorderOption) *Recorder {
	if logger == nil {
		logger = NoopLogger{}
	}
	r := &Recorder{model: m, logger: logger, now: time.Now}
	for _, opt := range opts {
		opt(r)
	}
	r.cb = events.Listen(r.record)
	m.On(events.All, r.cb, r)
	return r
}

// Detach unbinds the recorder. Other handlers on the model are untouched.
func (r *Recorder) Detach() {
	r.model.Off(events.All, r.cb, r)
}

func (r *Recorder) record(_ any, args ...any) {
	if len(args) == 0 {
		return
	}
	name, ok := args[0].(string)
	if !ok {
		return
	}
	r.logger.Log(r.eventFor(name, args[1:]))
}

// eventFor builds the trace event for name. args are the trigger arguments,
// which for model events start with the model itself.
func (r *Recorder) eventFor(name string, args []any) Event {
	ev := Event{
		Timestamp: r.now(),
		EntityID:  r.model.CID(),
		Name:      name,
		Category:  CategoryOther,
		Cycle:     r.model.Cycle().String(),
	}
	if id := r.model.ID(); id != nil {
		ev.ModelID = fmt.Sprint(id)
	}

	if key, ok := model.AttributeKey(name); ok {
		ev.Category = CategoryAttribute
		ev.Key = key
		if len(args) > 1 {
			ev.Value = args[1]
		}
		return ev
	}

	switch name {
	case model.EventChanged:
		ev.Category = CategoryBulk
	case model.EventInvalid:
		ev.Category = CategoryInvalid
		ev.Error = errorData(args)
	case model.EventDestroyed:
		ev.Category = CategoryLifecycle
	case model.EventSynced:
		ev.Category = CategorySync
	case model.EventError:
		ev.Category = CategoryError
		ev.Error = errorData(args)
	}
	return ev
}

func errorData(args []any) *ErrorData {
	if len(args) > 1 {
		if err, ok := args[1].(error); ok && err != nil {
			return &ErrorData{Message: err.Error()}
		}
	}
	return nil
}
