package watch

import "sync"

// Restarts is a capacity-1 trigger channel with a non-blocking send.
type Restarts struct {
	ch     chan struct{}
	mu     sync.RWMutex
	closed bool
}

// NewRestarts returns an open, empty restart channel.
func NewRestarts() *Restarts {
	return &Restarts{ch: make(chan struct{}, 1)}
}

// Send queues a trigger. If one is already pending the new one is dropped:
// triggers carry no payload, so the pending one stands for both.
func (r *Restarts) Send() error {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if r.closed {
		return ErrRestartsClosed
	}
	select {
	case r.ch <- struct{}{}:
	default:
	}
	return nil
}

// C is the consumer side.
func (r *Restarts) C() <-chan struct{} {
	return r.ch
}

// Close marks the consumer as gone. Later sends fail with ErrRestartsClosed.
func (r *Restarts) Close() {
	r.mu.Lock()
	r.closed = true
	r.mu.Unlock()
}
