package scope

import "context"

// Bindable is implemented by model-backed layers. Scope queries such layers
// only through Get, never by reflection.
type Bindable interface {
	Get(key string) (any, bool)
}

// Writable is implemented by layers that accept writes through a [Ref].
type Writable interface {
	Set(key string, value any) error
}

// Saver is implemented by layers that can persist themselves.
type Saver interface {
	Save(ctx context.Context) error
}

// Notifier is implemented by layers that publish changes. Once registers
// fn for the next event named event and returns its subscription; fn runs
// at most once.
type Notifier interface {
	Once(event string, fn Handler) Subscription
}

// Handler receives one change notification.
type Handler func(Change)

// Subscription is a registered handler that can be withdrawn. Off is
// idempotent.
type Subscription interface {
	Off()
}

// Change describes one mutation published by a [Notifier].
type Change struct {
	Action   string
	Key      string
	Value    any
	Previous any
}

// ActionChange is the action published when an attribute value changes.
const ActionChange = "change"

// Event returns the event name for action on key, such as "change:title".
// An empty key names the action for every key.
func Event(action, key string) string {
	if key == "" {
		return action
	}

	return action + ":" + key
}
