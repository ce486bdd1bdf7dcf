// Package subscription delivers coalesced attribute changes of models.
//
// A subscription watches a model's "changed:<key>" events and reports them
// in batches instead of one callback per mutation.
//
// # Subscription Parameters
//
// Each subscription has:
//   - minInterval: minimum time between notifications (coalescing window)
//   - maxInterval: maximum time without a notification (heartbeat)
//   - keys: attribute keys to watch (empty = all)
//
// # Coalescing Behavior
//
// The coalescing window starts with the first change after the previous
// notification. Changes accumulate until minInterval expires and only the
// final value of each key is delivered.
//
// # Bounce-Back Suppression
//
// A key that changes and returns to its last delivered value within the
// window is not reported.
//
// # Priming and Heartbeat
//
// Subscribe sends a priming notification with the current values of the
// watched keys. A heartbeat is sent when maxInterval passes without any
// notification.
//
// # Threading
//
// Subscribe and Unsubscribe bind to the model's event bus and must run on the
// goroutine that owns the model. ProcessNotifications and Run may run
// elsewhere.
package subscription
