package events

import (
	"reflect"
	"slices"
	"strings"
)

// All is the reserved name whose bindings receive every triggered event.
// The triggered name is passed as the first argument.
const All = "all"

// allAlias is accepted wherever All is.
const allAlias = "*"

// Func is the signature of an event callback. recv is the receiver bound with
// the callback, or the bus owner when none was bound.
type Func func(recv any, args ...any)

// Callback wraps a Func so bindings can be matched by identity.
type Callback struct {
	fn Func
}

// Listen wraps fn in a new Callback.
func Listen(fn Func) *Callback {
	if fn == nil {
		return nil
	}
	return &Callback{fn: fn}
}

// Call invokes the wrapped function.
func (c *Callback) Call(recv any, args ...any) {
	c.fn(recv, args...)
}

// binding is a single subscription.
type binding struct {
	callback *Callback
	receiver any
}

// Bus is a registry of named callback lists.
type Bus struct {
	callbacks map[string][]binding

	// owner is the default receiver for bindings without one.
	owner any
}

// NewBus creates an empty bus.
func NewBus() *Bus {
	return &Bus{}
}

// SetOwner sets the receiver passed to callbacks bound without a receiver.
// Types embedding a Bus set this to themselves.
func (b *Bus) SetOwner(owner any) {
	b.owner = owner
}

// On binds cb to every name in names. A nil callback is ignored.
func (b *Bus) On(names string, cb *Callback, receiver any) *Bus {
	if cb == nil {
		return b
	}
	if b.callbacks == nil {
		b.callbacks = make(map[string][]binding)
	}
	for _, name := range splitNames(names) {
		b.callbacks[name] = append(b.callbacks[name], binding{callback: cb, receiver: receiver})
	}
	return b
}

// Once binds cb so that it runs at most once for any of the given names.
// The returned callback is the one actually bound and can be passed to Off.
func (b *Bus) Once(names string, cb *Callback, receiver any) *Callback {
	if cb == nil {
		return nil
	}
	var wrapper *Callback
	fired := false
	wrapper = Listen(func(recv any, args ...any) {
		if fired {
			return
		}
		fired = true
		b.Off(names, wrapper, receiver)
		cb.Call(recv, args...)
	})
	b.On(names, wrapper, receiver)
	return wrapper
}

// Off removes bindings.
//
// With no names, callback, or receiver every binding is dropped. With no names
// the callback and receiver filters apply to every registered name. A binding
// is removed when it matches every filter that was supplied.
func (b *Bus) Off(names string, cb *Callback, receiver any) *Bus {
	if len(b.callbacks) == 0 {
		return b
	}

	targets := splitNames(names)
	if len(targets) == 0 {
		if cb == nil && receiver == nil {
			b.callbacks = nil
			return b
		}
		targets = b.Names()
	}

	for _, name := range targets {
		list, ok := b.callbacks[name]
		if !ok {
			continue
		}
		if cb == nil && receiver == nil {
			delete(b.callbacks, name)
			continue
		}
		for i := len(list) - 1; i >= 0; i-- {
			bd := list[i]
			if cb != nil && bd.callback != cb {
				continue
			}
			if receiver != nil && !sameReceiver(bd.receiver, receiver) {
				continue
			}
			list = slices.Delete(list, i, i+1)
		}
		if len(list) == 0 {
			delete(b.callbacks, name)
		} else {
			b.callbacks[name] = list
		}
	}
	return b
}

// Trigger dispatches each name in names, left to right. For every name the
// bindings for that name run first with args, then the All bindings run with
// the name prepended. Triggering All itself runs its bindings twice: once
// as the named list and once as the wildcard list.
func (b *Bus) Trigger(names string, args ...any) *Bus {
	if len(b.callbacks) == 0 {
		return b
	}
	for _, name := range splitNames(names) {
		named := slices.Clone(b.callbacks[name])
		all := slices.Clone(b.callbacks[All])

		for _, bd := range named {
			bd.callback.Call(b.receiverFor(bd), args...)
		}
		if len(all) == 0 {
			continue
		}
		withName := make([]any, 0, len(args)+1)
		withName = append(withName, name)
		withName = append(withName, args...)
		for _, bd := range all {
			bd.callback.Call(b.receiverFor(bd), withName...)
		}
	}
	return b
}

// Has reports whether any binding exists for name.
func (b *Bus) Has(name string) bool {
	_, ok := b.callbacks[normalizeName(name)]
	return ok
}

// Count returns the number of bindings for name.
func (b *Bus) Count(name string) int {
	return len(b.callbacks[normalizeName(name)])
}

// Names returns the registered event names, sorted.
func (b *Bus) Names() []string {
	names := make([]string, 0, len(b.callbacks))
	for name := range b.callbacks {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

func (b *Bus) receiverFor(bd binding) any {
	if bd.receiver != nil {
		return bd.receiver
	}
	if b.owner != nil {
		return b.owner
	}
	return b
}

func splitNames(names string) []string {
	fields := strings.Fields(names)
	for i, f := range fields {
		fields[i] = normalizeName(f)
	}
	return fields
}

func normalizeName(name string) string {
	if name == allAlias {
		return All
	}
	return name
}

// sameReceiver compares receivers without panicking on uncomparable values.
func sameReceiver(a, b any) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	ta, tb := reflect.TypeOf(a), reflect.TypeOf(b)
	if ta != tb || !ta.Comparable() {
		return false
	}
	return a == b
}
