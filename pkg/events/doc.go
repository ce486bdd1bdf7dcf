// Package events implements the synchronous event bus that entities are built on.
//
// A Bus maps event names to an ordered list of bindings. Each binding pairs a
// Callback with an optional receiver. Triggering a name invokes every binding
// registered for it, in registration order, and then every binding registered
// for the reserved All name with the triggered name prepended to the arguments.
// Triggering All directly runs the All bindings twice, first without and then
// with the name prepended, so a wildcard callback cannot assume args[0] is
// always the event name.
//
// # Names
//
// On, Off, and Trigger accept one or more space-separated names:
//
//	bus.On("changed:title changed:body", cb, nil)
//	bus.Trigger("saved synced", m)
//
// # Callback Identity
//
// Go function values are not comparable, so a Callback is a pointer created with
// Listen. Keep the pointer to remove the binding later:
//
//	cb := events.Listen(func(recv any, args ...any) { ... })
//	bus.On("changed", cb, nil)
//	bus.Off("changed", cb, nil)
//
// # Dispatch
//
// Dispatch is synchronous and happens on the caller's goroutine. The binding
// lists are copied before any callback runs, so bindings added or removed by a
// callback take effect from the next Trigger. Panics raised by callbacks are
// not recovered and abort the remainder of the dispatch.
//
// A Bus is not safe for concurrent use.
package events
