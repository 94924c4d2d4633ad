// Package eventbus provides the per-match publish/subscribe channel that
// decouples state transitions from whoever presents them.
package eventbus

import (
	"sync"

	"github.com/rs/zerolog"
)

// Wildcard subscribes a handler to every event emitted on a bus.
const Wildcard = "*"

// Event is a named notification with an arbitrary payload.
type Event struct {
	Name   string
	Detail any
}

// Handler receives events.
type Handler func(Event)

// Subscription identifies a registered handler. The zero Subscription is
// returned when registration was refused.
type Subscription struct {
	name string
	id   uint64
}

// Valid reports whether the subscription refers to a registered handler.
func (s Subscription) Valid() bool { return s.id != 0 }

type handlerEntry struct {
	id uint64
	fn Handler
}

// Bus delivers events to handlers in registration order, wildcard handlers
// included.
type Bus struct {
	mu       sync.RWMutex
	handlers map[string][]handlerEntry
	nextID   uint64
	disposed bool
	logger   zerolog.Logger
}

// New creates an empty bus.
func New(logger zerolog.Logger) *Bus {
	return &Bus{
		handlers: make(map[string][]handlerEntry),
		logger:   logger.With().Str("component", "eventbus").Logger(),
	}
}

// On registers h for events named name. A disposed bus refuses new handlers.
func (b *Bus) On(name string, h Handler) Subscription {
	if h == nil || name == "" {
		return Subscription{}
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.disposed {
		return Subscription{}
	}
	b.nextID++
	b.handlers[name] = append(b.handlers[name], handlerEntry{id: b.nextID, fn: h})
	return Subscription{name: name, id: b.nextID}
}

// Off removes a handler. It reports whether anything was removed.
func (b *Bus) Off(sub Subscription) bool {
	if !sub.Valid() {
		return false
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	entries := b.handlers[sub.name]
	for i, e := range entries {
		if e.id == sub.id {
			b.handlers[sub.name] = append(entries[:i:i], entries[i+1:]...)
			if len(b.handlers[sub.name]) == 0 {
				delete(b.handlers, sub.name)
			}
			return true
		}
	}
	return false
}

// Emit delivers an event synchronously. A panicking handler is isolated; the
// remaining handlers still run.
func (b *Bus) Emit(name string, detail any) {
	b.mu.RLock()
	if b.disposed {
		b.mu.RUnlock()
		return
	}
	var targets []handlerEntry
	if name == Wildcard {
		targets = append(targets, b.handlers[Wildcard]...)
	} else {
		targets = mergeByID(b.handlers[name], b.handlers[Wildcard])
	}
	b.mu.RUnlock()

	evt := Event{Name: name, Detail: detail}
	for _, t := range targets {
		b.deliver(t, evt)
	}
}

// mergeByID interleaves two id-ordered handler lists into one.
func mergeByID(a, w []handlerEntry) []handlerEntry {
	out := make([]handlerEntry, 0, len(a)+len(w))
	for len(a) > 0 && len(w) > 0 {
		if a[0].id < w[0].id {
			out, a = append(out, a[0]), a[1:]
		} else {
			out, w = append(out, w[0]), w[1:]
		}
	}
	out = append(out, a...)
	return append(out, w...)
}

func (b *Bus) deliver(t handlerEntry, evt Event) {
	defer func() {
		if r := recover(); r != nil {
			b.logger.Error().
				Str("event", evt.Name).
				Interface("panic", r).
				Msg("event handler panicked")
		}
	}()
	t.fn(evt)
}

// Dispose removes every handler and makes the bus inert: later On calls are
// refused and Emit does nothing.
func (b *Bus) Dispose() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.disposed = true
	b.handlers = make(map[string][]handlerEntry)
}

// Disposed reports whether Dispose has been called.
func (b *Bus) Disposed() bool {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.disposed
}

// HandlerCount returns the number of handlers registered for name.
func (b *Bus) HandlerCount(name string) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.handlers[name])
}
