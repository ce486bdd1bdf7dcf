package log

import (
	"strings"
	"time"
)

// Event is one model event captured in the trace.
// CBOR encoding uses integer keys for compactness.
type Event struct {
	// Timestamp when the event was triggered (nanosecond precision).
	Timestamp time.Time `cbor:"1,keyasint"`

	// EntityID is the client id of the model that triggered the event.
	EntityID string `cbor:"2,keyasint"`

	// ModelID is the persistent id of the model, if it has one.
	ModelID string `cbor:"3,keyasint,omitempty"`

	// Name is the full event name, e.g. "changed:title".
	Name string `cbor:"4,keyasint"`

	// Category classifies the event.
	Category Category `cbor:"5,keyasint"`

	// Key is the attribute key for attribute events.
	Key string `cbor:"6,keyasint,omitempty"`

	// Value is the attribute value for attribute events.
	Value any `cbor:"7,keyasint,omitempty"`

	// Cycle is the notification cycle state when the event fired.
	Cycle string `cbor:"8,keyasint,omitempty"`

	// Error carries the failure for invalid and error events.
	Error *ErrorData `cbor:"9,keyasint,omitempty"`
}

// ErrorData describes a validation or persistence failure.
type ErrorData struct {
	// Message is the error text.
	Message string `cbor:"1,keyasint"`
}

// Category classifies the event type.
type Category uint8

const (
	// CategoryAttribute is a per-attribute "changed:<key>" event.
	CategoryAttribute Category = 0
	// CategoryBulk is the "changed" event closing a notification cycle.
	CategoryBulk Category = 1
	// CategoryInvalid is a validation veto.
	CategoryInvalid Category = 2
	// CategoryLifecycle covers "destroyed".
	CategoryLifecycle Category = 3
	// CategorySync is a completed persistence round trip.
	CategorySync Category = 4
	// CategoryError is a failed persistence round trip.
	CategoryError Category = 5
	// CategoryOther is any application-defined event.
	CategoryOther Category = 6
)

var categoryNames = []string{"ATTRIBUTE", "BULK", "INVALID", "LIFECYCLE", "SYNC", "ERROR", "OTHER"}

// String returns the category name.
func (c Category) String() string {
	if int(c) < len(categoryNames) {
		return categoryNames[c]
	}
	return "UNKNOWN"
}

// ParseCategory returns the category with the given name, ignoring case.
func ParseCategory(s string) (Category, bool) {
	for i, name := range categoryNames {
		if strings.EqualFold(name, s) {
			return Category(i), true
		}
	}
	return 0, false
}
