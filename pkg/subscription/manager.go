package subscription

import (
	"context"
	"log/slog"
	"maps"
	"slices"
	"sync"
	"time"

	"github.com/attrbus/attrbus-go/pkg/events"
	"github.com/attrbus/attrbus-go/pkg/model"
)

// Notification is a batch of attribute values delivered to a subscriber.
type Notification struct {
	// SubscriptionID identifies the subscription.
	SubscriptionID uint32

	// EntityID is the client id of the model.
	EntityID string

	// Attributes maps keys to their latest values.
	Attributes map[string]any

	// IsPriming marks the initial notification.
	IsPriming bool

	// IsHeartbeat marks a keep-alive notification.
	IsHeartbeat bool

	// Timestamp is when the notification was generated.
	Timestamp time.Time
}

// Manager manages subscriptions over models.
type Manager struct {
	mu sync.RWMutex

	config         Config
	subscriptions  map[uint32]*Subscription
	onNotification func(Notification)
	logger         *slog.Logger
}

// NewManager creates a manager with the default configuration.
func NewManager() *Manager {
	return NewManagerWithConfig(DefaultConfig())
}

// NewManagerWithConfig creates a manager with a custom configuration.
func NewManagerWithConfig(config Config) *Manager {
	if config.MaxSubscriptions <= 0 {
		config.MaxSubscriptions = DefaultMaxSubscriptions
	}
	if config.MaxAttributesPerSub <= 0 {
		config.MaxAttributesPerSub = DefaultMaxAttributesPerSub
	}
	if config.Clock == nil {
		config.Clock = time.Now
	}
	return &Manager{
		config:        config,
		subscriptions: make(map[uint32]*Subscription),
	}
}

// SetLogger sets the logger for subscription lifecycle messages.
func (m *Manager) SetLogger(logger *slog.Logger) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.logger = logger
}

// Subscribe watches keys of ent (all keys when empty) and returns the
// subscription id. A priming notification with the current values is sent
// right away. The subscription ends when the model is destroyed.
func (m *Manager) Subscribe(ent *model.Model, keys []string, minInterval, maxInterval time.Duration) (uint32, error) {
	if maxInterval <= 0 || minInterval < 0 {
		return 0, ErrInvalidInterval
	}
	if minInterval > maxInterval {
		if !m.config.AutoCorrectIntervals {
			return 0, ErrInvalidInterval
		}
		minInterval, maxInterval = maxInterval, minInterval
	}
	if len(keys) > m.config.MaxAttributesPerSub {
		return 0, ErrTooManyKeys
	}

	m.mu.Lock()
	if len(m.subscriptions) >= m.config.MaxSubscriptions {
		m.mu.Unlock()
		return 0, ErrResourceExhausted
	}

	id := nextID()
	sub := NewSubscription(id, ent.CID(), slices.Clone(keys), minInterval, maxInterval, m.config.Clock)
	priming := filterAttributes(ent.Attributes(), keys)
	sub.SetPrimingValues(priming)
	m.subscriptions[id] = sub

	onNotify := m.onNotification
	m.mu.Unlock()

	unbind := m.bind(ent, sub)
	sub.mu.Lock()
	sub.unbind = unbind
	sub.mu.Unlock()
	m.debugLog("subscribed", "subscription", id, "cid", ent.CID(), "keys", keys)

	if onNotify != nil && len(priming) > 0 {
		onNotify(Notification{
			SubscriptionID: id,
			EntityID:       sub.EntityID,
			Attributes:     priming,
			IsPriming:      true,
			Timestamp:      m.config.Clock(),
		})
	}
	return id, nil
}

// bind attaches sub to the model's events and returns the matching unbind.
// A subscription to all keys uses one wildcard binding; otherwise each key
// gets its own "changed:<key>" binding.
func (m *Manager) bind(ent *model.Model, sub *Subscription) func() {
	type binding struct {
		name string
		cb   *events.Callback
	}
	var bindings []binding

	if len(sub.Keys) == 0 {
		bindings = append(bindings, binding{events.All, events.Listen(func(_ any, args ...any) {
			if len(args) < 3 {
				return
			}
			name, _ := args[0].(string)
			if key, ok := model.AttributeKey(name); ok {
				sub.RecordChange(key, args[2])
			}
		})})
	} else {
		for _, key := range sub.Keys {
			key := key
			bindings = append(bindings, binding{model.AttributeEvent(key), events.Listen(func(_ any, args ...any) {
				sub.RecordChange(key, args[1])
			})})
		}
	}

	destroyed := events.Listen(func(any, ...any) {
		_ = m.Unsubscribe(sub.ID)
	})
	bindings = append(bindings, binding{model.EventDestroyed, destroyed})

	for _, b := range bindings {
		ent.On(b.name, b.cb, sub)
	}
	return func() {
		for _, b := range bindings {
			ent.Off(b.name, b.cb, sub)
		}
	}
}

// Unsubscribe removes a subscription and unbinds it from its model.
func (m *Manager) Unsubscribe(subscriptionID uint32) error {
	m.mu.Lock()
	sub, exists := m.subscriptions[subscriptionID]
	if !exists {
		m.mu.Unlock()
		return ErrSubscriptionNotFound
	}
	delete(m.subscriptions, subscriptionID)
	m.mu.Unlock()

	sub.Deactivate()
	m.debugLog("unsubscribed", "subscription", subscriptionID)
	return nil
}

// ProcessNotifications sends due change batches and heartbeats. Call it
// periodically, or use Run.
func (m *Manager) ProcessNotifications() {
	m.mu.RLock()
	subs := make([]*Subscription, 0, len(m.subscriptions))
	ids := make([]uint32, 0, len(m.subscriptions))
	for id := range m.subscriptions {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	for _, id := range ids {
		subs = append(subs, m.subscriptions[id])
	}
	onNotify := m.onNotification
	config := m.config
	m.mu.RUnlock()

	if onNotify == nil {
		return
	}

	for _, sub := range subs {
		if attrs := sub.PendingNotification(config.SuppressBounceBack); attrs != nil {
			onNotify(Notification{
				SubscriptionID: sub.ID,
				EntityID:       sub.EntityID,
				Attributes:     attrs,
				Timestamp:      config.Clock(),
			})
		}

		if sub.NeedsHeartbeat() {
			n := Notification{
				SubscriptionID: sub.ID,
				EntityID:       sub.EntityID,
				IsHeartbeat:    true,
				Timestamp:      config.Clock(),
			}
			if config.HeartbeatMode == HeartbeatFull {
				n.Attributes = sub.LastValues()
			}
			sub.RecordHeartbeat()
			onNotify(n)
		}
	}
}

// Run calls ProcessNotifications every interval until ctx is done.
func (m *Manager) Run(ctx context.Context, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			m.ProcessNotifications()
		}
	}
}

// ClearAll removes every subscription.
func (m *Manager) ClearAll() {
	m.mu.Lock()
	subs := m.subscriptions
	m.subscriptions = make(map[uint32]*Subscription)
	m.mu.Unlock()

	for _, sub := range subs {
		sub.Deactivate()
	}
}

// Count returns the number of active subscriptions.
func (m *Manager) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.subscriptions)
}

// Get returns a subscription by id.
func (m *Manager) Get(subscriptionID uint32) (*Subscription, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	sub, exists := m.subscriptions[subscriptionID]
	if !exists {
		return nil, ErrSubscriptionNotFound
	}
	return sub, nil
}

// OnNotification sets the callback for notifications.
func (m *Manager) OnNotification(fn func(Notification)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.onNotification = fn
}

func (m *Manager) debugLog(msg string, args ...any) {
	m.mu.RLock()
	logger := m.logger
	m.mu.RUnlock()
	if logger != nil {
		logger.Debug(msg, args...)
	}
}

// filterAttributes returns the watched subset of values. Empty keys selects
// all of them.
func filterAttributes(values map[string]any, keys []string) map[string]any {
	if len(keys) == 0 {
		return maps.Clone(values)
	}
	result := make(map[string]any)
	for _, key := range keys {
		if v, ok := values[key]; ok {
			result[key] = v
		}
	}
	return result
}
