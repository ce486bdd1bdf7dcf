package model

import "github.com/attrbus/attrbus-go/pkg/events"

// The On* helpers bind typed handlers to the model's events. Each returns the
// bound callback so it can be passed to Off.

// OnAttributeChanged binds fn to "changed:<key>".
func (m *Model) OnAttributeChanged(key string, fn func(m *Model, value any, opts SetOptions)) *events.Callback {
	cb := events.Listen(func(_ any, args ...any) {
		fn(args[0].(*Model), args[1], args[2].(SetOptions))
	})
	m.On(AttributeEvent(key), cb, nil)
	return cb
}

// OnChanged binds fn to the bulk "changed" event.
func (m *Model) OnChanged(fn func(m *Model, opts SetOptions)) *events.Callback {
	cb := events.Listen(func(_ any, args ...any) {
		fn(args[0].(*Model), args[1].(SetOptions))
	})
	m.On(EventChanged, cb, nil)
	return cb
}

// OnInvalid binds fn to "invalid".
func (m *Model) OnInvalid(fn func(m *Model, err error, opts SetOptions)) *events.Callback {
	cb := events.Listen(func(_ any, args ...any) {
		fn(args[0].(*Model), args[1].(error), args[2].(SetOptions))
	})
	m.On(EventInvalid, cb, nil)
	return cb
}

// OnSynced binds fn to "synced".
func (m *Model) OnSynced(fn func(m *Model, resp map[string]any, opts SaveOptions)) *events.Callback {
	cb := events.Listen(func(_ any, args ...any) {
		resp, _ := args[1].(map[string]any)
		fn(args[0].(*Model), resp, args[2].(SaveOptions))
	})
	m.On(EventSynced, cb, nil)
	return cb
}

// OnDestroyed binds fn to "destroyed".
func (m *Model) OnDestroyed(fn func(m *Model, opts SaveOptions)) *events.Callback {
	cb := events.Listen(func(_ any, args ...any) {
		fn(args[0].(*Model), args[1].(SaveOptions))
	})
	m.On(EventDestroyed, cb, nil)
	return cb
}

// OnError binds fn to "error".
func (m *Model) OnError(fn func(m *Model, err error, opts SaveOptions)) *events.Callback {
	cb := events.Listen(func(_ any, args ...any) {
		fn(args[0].(*Model), args[1].(error), args[2].(SaveOptions))
	})
	m.On(EventError, cb, nil)
	return cb
}
