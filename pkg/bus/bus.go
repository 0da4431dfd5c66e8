// Package bus implements a synchronous publish/subscribe channel for
// broadcasting state-change events to any number of listeners.
//
// Delivery is synchronous and ordered: Publish invokes every registered
// listener on the calling goroutine, in subscription order. A listener that
// panics is recovered and logged so it cannot prevent later listeners from
// running or corrupt the mutation that triggered the event.
package bus

import (
	"sync"

	"github.com/rs/zerolog"
)

// Event names a category of notification.
type Event string

// Listener receives every published event together with its payload.
type Listener func(event Event, payload any)

type subscription struct {
	id int
	fn Listener
}

// Bus fan-outs events to registered listeners.
type Bus struct {
	mu     sync.RWMutex
	nextID int
	subs   []subscription
	logger zerolog.Logger
}

// Option customizes a Bus.
type Option func(*Bus)

// WithLogger routes recovered listener panics to the given logger.
func WithLogger(logger zerolog.Logger) Option {
	return func(b *Bus) { b.logger = logger }
}

// New returns an empty bus.
func New(opts ...Option) *Bus {
	b := &Bus{logger: zerolog.Nop()}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Subscribe registers a listener and returns a token for Unsubscribe.
// A nil listener is ignored and yields a token that unsubscribes nothing.
func (b *Bus) Subscribe(fn Listener) int {
	if fn == nil {
		return -1
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.nextID++
	b.subs = append(b.subs, subscription{id: b.nextID, fn: fn})
	return b.nextID
}

// Unsubscribe removes the listener registered under id. It reports whether a
// listener was actually removed.
func (b *Bus) Unsubscribe(id int) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	for i, sub := range b.subs {
		if sub.id == id {
			b.subs = append(b.subs[:i], b.subs[i+1:]...)
			return true
		}
	}
	return false
}

// Publish delivers the event to every listener in subscription order on the
// calling goroutine. Listener panics are isolated per listener.
func (b *Bus) Publish(event Event, payload any) {
	b.mu.RLock()
	subs := make([]subscription, len(b.subs))
	copy(subs, b.subs)
	b.mu.RUnlock()

	for _, sub := range subs {
		b.deliver(sub, event, payload)
	}
}

func (b *Bus) deliver(sub subscription, event Event, payload any) {
	defer func() {
		if r := recover(); r != nil {
			b.logger.Error().
				Str("event", string(event)).
				Int("listener", sub.id).
				Interface("panic", r).
				Msg("bus: listener panicked")
		}
	}()
	sub.fn(event, payload)
}
