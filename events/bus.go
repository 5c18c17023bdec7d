// Package events carries fire-and-forget notifications from the session core
// to whatever renders user feedback. The core publishes and moves on; it
// never waits on subscribers.
package events

import "sync"

// Kind is a session lifecycle event observable by the UI.
type Kind string

const (
	RefreshStart   Kind = "refresh:start"
	RefreshSuccess Kind = "refresh:success"
	RefreshFailed  Kind = "refresh:failed"
	SessionExpired Kind = "session:expired"
	Forbidden      Kind = "forbidden"
)

// Event is the published payload. Message is optional human-readable detail.
type Event struct {
	Kind    Kind
	Message string
}

// Bus is a process-wide publish/subscribe channel. Construct one at bootstrap
// and inject it; there is no ambient global.
type Bus struct {
	mu     sync.RWMutex
	nextID int
	subs   map[int]func(Event)
}

func NewBus() *Bus {
	return &Bus{
		subs: make(map[int]func(Event)),
	}
}

// Subscribe registers handler and returns a function that removes it.
// Handlers are invoked synchronously in publish order; they must not block.
func (b *Bus) Subscribe(handler func(Event)) (unsubscribe func()) {
	b.mu.Lock()
	defer b.mu.Unlock()

	id := b.nextID
	b.nextID++
	b.subs[id] = handler

	return func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		delete(b.subs, id)
	}
}

// Publish delivers the event to every current subscriber. No acknowledgment,
// no buffering: a bus with no subscribers drops events silently.
func (b *Bus) Publish(event Event) {
	b.mu.RLock()
	handlers := make([]func(Event), 0, len(b.subs))
	for _, handler := range b.subs {
		handlers = append(handlers, handler)
	}
	b.mu.RUnlock()

	for _, handler := range handlers {
		handler(event)
	}
}
