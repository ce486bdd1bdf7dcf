package subscription

import (
	"errors"
	"maps"
	"reflect"
	"slices"
	"sync"
	"sync/atomic"
	"time"
)

// Subscription errors.
var (
	ErrInvalidInterval      = errors.New("invalid subscription interval")
	ErrResourceExhausted    = errors.New("maximum subscriptions reached")
	ErrSubscriptionNotFound = errors.New("subscription not found")
	ErrTooManyKeys          = errors.New("too many subscribed keys")
)

// Default subscription limits.
const (
	DefaultMinInterval         = 1 * time.Second
	DefaultMaxInterval         = 60 * time.Second
	DefaultMaxSubscriptions    = 50
	DefaultMaxAttributesPerSub = 100
)

// HeartbeatMode specifies what content is sent in heartbeat notifications.
type HeartbeatMode uint8

const (
	// HeartbeatEmpty sends only the subscription id and timestamp.
	HeartbeatEmpty HeartbeatMode = iota

	// HeartbeatFull sends the last delivered value of every watched key.
	HeartbeatFull
)

// String returns a human-readable heartbeat mode name.
func (m HeartbeatMode) String() string {
	switch m {
	case HeartbeatEmpty:
		return "EMPTY"
	case HeartbeatFull:
		return "FULL"
	default:
		return "UNKNOWN"
	}
}

// Config holds subscription manager configuration.
type Config struct {
	// MaxSubscriptions is the maximum number of subscriptions allowed.
	MaxSubscriptions int

	// MaxAttributesPerSub is the maximum keys per subscription.
	MaxAttributesPerSub int

	// HeartbeatMode specifies heartbeat content.
	HeartbeatMode HeartbeatMode

	// SuppressBounceBack enables bounce-back suppression.
	SuppressBounceBack bool

	// AutoCorrectIntervals swaps min/max if min > max.
	AutoCorrectIntervals bool

	// Clock returns the current time. Defaults to time.Now.
	Clock func() time.Time
}

// DefaultConfig returns the default subscription configuration.
func DefaultConfig() Config {
	return Config{
		MaxSubscriptions:    DefaultMaxSubscriptions,
		MaxAttributesPerSub: DefaultMaxAttributesPerSub,
		HeartbeatMode:       HeartbeatFull,
		SuppressBounceBack:  true,
	}
}

// Subscription is one active watch on a model.
type Subscription struct {
	mu sync.RWMutex

	// ID is the unique subscription identifier.
	ID uint32

	// EntityID is the client id of the watched model.
	EntityID string

	// Keys lists the watched attribute keys (empty = all).
	Keys []string

	// MinInterval is the minimum time between notifications.
	MinInterval time.Duration

	// MaxInterval is the maximum time without notification (heartbeat).
	MaxInterval time.Duration

	now          func() time.Time
	lastNotified time.Time

	// lastValues holds the delivered values for bounce-back detection.
	lastValues map[string]any

	// pendingChanges accumulates changes during the coalescing window.
	pendingChanges map[string]any

	windowStart time.Time
	hasChanges  bool
	active      bool

	unbind func()
}

// NewSubscription creates a subscription. now may be nil.
func NewSubscription(id uint32, entityID string, keys []string, minInterval, maxInterval time.Duration, now func() time.Time) *Subscription {
	if now == nil {
		now = time.Now
	}
	return &Subscription{
		ID:             id,
		EntityID:       entityID,
		Keys:           keys,
		MinInterval:    minInterval,
		MaxInterval:    maxInterval,
		now:            now,
		lastNotified:   now(),
		lastValues:     make(map[string]any),
		pendingChanges: make(map[string]any),
		active:         true,
	}
}

// IsActive returns whether the subscription is active.
func (s *Subscription) IsActive() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.active
}

// Deactivate marks the subscription inactive and unbinds it from its model.
func (s *Subscription) Deactivate() {
	s.mu.Lock()
	unbind := s.unbind
	s.unbind = nil
	s.active = false
	s.mu.Unlock()

	if unbind != nil {
		unbind()
	}
}

// Watches reports whether key is covered by the subscription.
func (s *Subscription) Watches(key string) bool {
	return len(s.Keys) == 0 || slices.Contains(s.Keys, key)
}

// RecordChange records a new value for key. It returns true if the change
// opened a coalescing window.
func (s *Subscription) RecordChange(key string, value any) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.active || !s.Watches(key) {
		return false
	}

	opened := !s.hasChanges
	if opened {
		s.windowStart = s.now()
	}
	s.pendingChanges[key] = value
	s.hasChanges = true
	return opened
}

// PendingNotification returns the changes due for delivery and clears them.
// It returns nil while the coalescing window is open or when every change
// bounced back.
func (s *Subscription) PendingNotification(suppressBounceBack bool) map[string]any {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.active || !s.hasChanges {
		return nil
	}
	if s.now().Sub(s.windowStart) < s.MinInterval {
		return nil
	}

	notification := make(map[string]any)
	for key, value := range s.pendingChanges {
		if suppressBounceBack {
			if last, ok := s.lastValues[key]; ok && reflect.DeepEqual(last, value) {
				continue
			}
		}
		notification[key] = value
		s.lastValues[key] = value
	}

	s.pendingChanges = make(map[string]any)
	s.hasChanges = false
	s.lastNotified = s.now()

	if len(notification) == 0 {
		return nil
	}
	return notification
}

// NeedsHeartbeat reports whether maxInterval passed since the last
// notification.
func (s *Subscription) NeedsHeartbeat() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if !s.active {
		return false
	}
	return s.now().Sub(s.lastNotified) >= s.MaxInterval
}

// RecordHeartbeat records that a heartbeat was sent.
func (s *Subscription) RecordHeartbeat() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastNotified = s.now()
}

// SetPrimingValues stores the values delivered by the priming notification.
func (s *Subscription) SetPrimingValues(values map[string]any) {
	s.mu.Lock()
	defer s.mu.Unlock()

	maps.Copy(s.lastValues, values)
	s.lastNotified = s.now()
}

// LastValues returns a copy of the delivered values.
func (s *Subscription) LastValues() map[string]any {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return maps.Clone(s.lastValues)
}

// TimeUntilCoalesceExpiry returns the time left in the coalescing window,
// or 0 when nothing is pending.
func (s *Subscription) TimeUntilCoalesceExpiry() time.Duration {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if !s.hasChanges {
		return 0
	}
	elapsed := s.now().Sub(s.windowStart)
	if elapsed >= s.MinInterval {
		return 0
	}
	return s.MinInterval - elapsed
}

var idGenerator atomic.Uint32

func nextID() uint32 {
	return idGenerator.Add(1)
}
