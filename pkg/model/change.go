package model

import (
	"maps"
	"slices"
	"strings"
)

// Event names triggered by a Model.
const (
	EventChanged   = "changed"
	EventInvalid   = "invalid"
	EventSynced    = "synced"
	EventDestroyed = "destroyed"
	EventError     = "error"

	// attributeEventPrefix prefixes the per-attribute change event.
	attributeEventPrefix = "changed:"
)

// AttributeEvent returns the name of the change event for key.
func AttributeEvent(key string) string {
	return attributeEventPrefix + key
}

// AttributeKey returns the key of a per-attribute change event name.
func AttributeKey(name string) (string, bool) {
	return strings.CutPrefix(name, attributeEventPrefix)
}

// CycleState is the phase of a model's notification cycle.
type CycleState uint8

const (
	// CycleIdle means no notification cycle is running.
	CycleIdle CycleState = iota

	// CycleDispatching means per-attribute events are being triggered.
	CycleDispatching

	// CycleDraining means bulk "changed" events are being triggered until
	// no pending keys remain.
	CycleDraining

	// CycleSettled means the drain loop found no pending keys and the
	// previous attributes match the current ones.
	CycleSettled
)

// String returns the cycle state name.
func (s CycleState) String() string {
	switch s {
	case CycleIdle:
		return "IDLE"
	case CycleDispatching:
		return "DISPATCHING"
	case CycleDraining:
		return "DRAINING"
	case CycleSettled:
		return "SETTLED"
	default:
		return "UNKNOWN"
	}
}

// Cycle returns the current notification cycle state.
func (m *Model) Cycle() CycleState {
	return m.cycle
}

// Change runs a notification cycle, reporting any silent changes.
func (m *Model) Change(opts ...SetOptions) *Model {
	m.change(setOptions(opts), nil)
	return m
}

// change triggers "changed:<key>" for this call's changes and every
// outstanding silent change, then drains pending keys with bulk "changed"
// events. A call made while a cycle is active only triggers the
// per-attribute events; the active drain loop picks up its pending keys.
func (m *Model) change(o SetOptions, changes []string) {
	nested := m.cycle != CycleIdle
	if !nested {
		m.setCycle(CycleDispatching)
		defer m.setCycle(CycleIdle)
	}

	fire := changes
	for _, key := range sortedKeys(m.silent) {
		m.pending[key] = struct{}{}
		if !slices.Contains(changes, key) {
			fire = append(fire, key)
		}
	}
	m.silent = make(map[string]struct{})

	for _, key := range fire {
		m.Trigger(AttributeEvent(key), m, m.Get(key), o)
	}

	if nested {
		return
	}

	for len(m.pending) > 0 {
		m.setCycle(CycleDraining)
		m.pending = make(map[string]struct{})

		m.Trigger(EventChanged, m, o)

		for key := range m.changed {
			if _, ok := m.pending[key]; ok {
				continue
			}
			if _, ok := m.silent[key]; ok {
				continue
			}
			delete(m.changed, key)
		}
		m.previous = maps.Clone(m.attributes)
	}
	m.setCycle(CycleSettled)
}

func (m *Model) setCycle(s CycleState) {
	if m.cycle == s {
		return
	}
	m.debugLog("notification cycle", "from", m.cycle.String(), "to", s.String())
	m.cycle = s
}
