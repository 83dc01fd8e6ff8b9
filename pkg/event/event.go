// Package event provides a small in-process event dispatcher.
//
// The supervisor publishes its lifecycle on a Bus so that the CLI (or a
// test) can react without reaching into the loop:
//
//	bus := event.NewBus()
//	bus.Listen("supervisor.ready", func(p any) { fmt.Println("up") })
package event

import (
	"sync"
)

// Handler is a function that receives an event payload.
type Handler func(payload any)

// Bus maps event names to listeners. The zero value is not usable; call
// NewBus.
type Bus struct {
	mu       sync.RWMutex
	handlers map[string][]Handler
}

// NewBus returns an empty Bus.
func NewBus() *Bus {
	return &Bus{handlers: map[string][]Handler{}}
}

// Listen registers a handler for the given event name.
func (b *Bus) Listen(event string, handler Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.handlers[event] = append(b.handlers[event], handler)
}

// Fire dispatches an event synchronously to all registered listeners. A nil
// Bus drops the event.
func (b *Bus) Fire(event string, payload any) {
	for _, h := range b.snapshot(event) {
		h(payload)
	}
}

// FireAsync dispatches the event to all listeners concurrently and returns
// without waiting for them.
func (b *Bus) FireAsync(event string, payload any) {
	for _, h := range b.snapshot(event) {
		go h(payload)
	}
}

// Flush removes all listeners.
func (b *Bus) Flush() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.handlers = map[string][]Handler{}
}

func (b *Bus) snapshot(event string) []Handler {
	if b == nil {
		return nil
	}
	b.mu.RLock()
	defer b.mu.RUnlock()
	hs := make([]Handler, len(b.handlers[event]))
	copy(hs, b.handlers[event])
	return hs
}
