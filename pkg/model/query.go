package model

import "maps"

// HasChanged reports whether any attribute changed in the current cycle, or,
// given a key, whether that attribute did.
func (m *Model) HasChanged(key ...string) bool {
	if len(key) == 0 {
		return len(m.changed) > 0
	}
	_, ok := m.changed[key[0]]
	return ok
}

// ChangedAttributes returns a copy of the changed attributes.
//
// Given a candidate diff it instead returns the subset of the diff whose
// values differ from the previous attributes. The boolean is false when the
// result is empty.
func (m *Model) ChangedAttributes(diff ...map[string]any) (map[string]any, bool) {
	if len(diff) == 0 || diff[0] == nil {
		if !m.HasChanged() {
			return nil, false
		}
		return maps.Clone(m.changed), true
	}

	var changed map[string]any
	for key, val := range diff[0] {
		if equal(m.previous[key], val) {
			continue
		}
		if changed == nil {
			changed = make(map[string]any)
		}
		changed[key] = val
	}
	return changed, changed != nil
}

// Previous returns the value key held at the end of the last notification
// cycle.
func (m *Model) Previous(key string) any {
	if m.previous == nil {
		return nil
	}
	return m.previous[key]
}

// PreviousAttributes returns a copy of the attributes as of the end of the
// last notification cycle.
func (m *Model) PreviousAttributes() map[string]any {
	return maps.Clone(m.previous)
}
