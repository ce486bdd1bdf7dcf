package model

import "maps"

// Set applies attrs to the model and, unless opts.Silent, runs a notification
// cycle. It returns false, without mutating anything, if the validation gate
// vetoes the result.
func (m *Model) Set(attrs map[string]any, opts ...SetOptions) bool {
	o := setOptions(opts)
	if attrs == nil {
		return true
	}
	if o.Unset {
		cleared := make(map[string]any, len(attrs))
		for key := range attrs {
			cleared[key] = nil
		}
		attrs = cleared
	}

	if !m.validate(attrs, o) {
		return false
	}

	if _, ok := attrs[m.cfg.idAttribute]; ok {
		if o.Unset {
			m.id = nil
		} else {
			m.id = attrs[m.cfg.idAttribute]
		}
	}

	var changes []string
	for _, key := range sortedKeys(attrs) {
		val := attrs[key]
		cur, exists := m.attributes[key]

		if !equal(cur, val) || (o.Unset && exists) {
			delete(m.escaped, key)
			if o.Silent {
				m.silent[key] = struct{}{}
			} else {
				changes = append(changes, key)
			}
		}

		if o.Unset {
			delete(m.attributes, key)
		} else {
			m.attributes[key] = val
		}

		prev, hadPrev := m.previous[key]
		_, exists = m.attributes[key]
		if !equal(prev, val) || exists != hadPrev {
			m.changed[key] = val
			if !o.Silent {
				m.pending[key] = struct{}{}
			}
		} else {
			delete(m.changed, key)
			delete(m.pending, key)
		}
	}

	if !o.Silent {
		m.change(o, changes)
	}
	return true
}

// SetKey sets a single attribute.
func (m *Model) SetKey(key string, value any, opts ...SetOptions) bool {
	return m.Set(map[string]any{key: value}, opts...)
}

// Unset removes key from the model.
func (m *Model) Unset(key string, opts ...SetOptions) bool {
	o := setOptions(opts)
	o.Unset = true
	return m.Set(map[string]any{key: nil}, o)
}

// Clear removes every attribute from the model.
func (m *Model) Clear(opts ...SetOptions) bool {
	o := setOptions(opts)
	o.Unset = true
	return m.Set(m.Attributes(), o)
}

// Validate runs the validation gate against the current attributes.
func (m *Model) Validate() error {
	if m.cfg.validator == nil {
		return nil
	}
	return m.cfg.validator(m.Attributes(), SetOptions{})
}

// IsValid reports whether the current attributes pass the validation gate.
func (m *Model) IsValid() bool {
	return m.Validate() == nil
}

// validate runs the gate against the attributes that would result from
// applying attrs. On a veto it reports the error through opts.Error or an
// "invalid" event.
func (m *Model) validate(attrs map[string]any, o SetOptions) bool {
	if o.Silent || m.cfg.validator == nil {
		return true
	}

	next := maps.Clone(m.attributes)
	for key, val := range attrs {
		if o.Unset {
			delete(next, key)
		} else {
			next[key] = val
		}
	}

	err := m.cfg.validator(next, o)
	m.validationError = err
	if err == nil {
		return true
	}

	m.debugLog("validation vetoed mutation", "error", err)
	if o.Error != nil {
		o.Error(m, err, o)
	} else {
		m.Trigger(EventInvalid, m, err, o)
	}
	return false
}

func setOptions(opts []SetOptions) SetOptions {
	if len(opts) == 0 {
		return SetOptions{}
	}
	return opts[0]
}
