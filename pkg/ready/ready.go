// Package ready provides a single-fire readiness signal.
//
// The server side holds a *Sender and calls Fire once it is accepting
// connections. The caller holds the *Receiver and waits:
//
//	tx, rx := ready.New()
//	go srv.Start(ctx, tx)
//	ok, err := rx.Wait(ctx) // ok=false: the server ended before it was ready
//
// A nil *Sender is valid. Fire and Close on it do nothing, so a server can
// always call tx.Fire() whether or not anyone asked to be told.
package ready

import (
	"context"
	"sync"
)

// Sender is the producing half. Fire and Close are safe for concurrent use.
type Sender struct {
	ch   chan struct{}
	once sync.Once
}

// Receiver is the consuming half.
type Receiver struct {
	ch <-chan struct{}
}

// New returns a connected Sender/Receiver pair.
func New() (*Sender, *Receiver) {
	ch := make(chan struct{}, 1)
	return &Sender{ch: ch}, &Receiver{ch: ch}
}

// Fire signals readiness. Only the first call to Fire or Close has any
// effect.
func (s *Sender) Fire() {
	if s == nil {
		return
	}
	s.once.Do(func() {
		s.ch <- struct{}{}
		close(s.ch)
	})
}

// Close ends the signal without firing it. The receiver then observes
// closure instead of readiness.
func (s *Sender) Close() {
	if s == nil {
		return
	}
	s.once.Do(func() {
		close(s.ch)
	})
}

// C exposes the underlying channel. A receive yields ok=true exactly when
// readiness was fired.
func (r *Receiver) C() <-chan struct{} {
	return r.ch
}

// Wait blocks until the sender fires (true), closes without firing (false),
// or ctx is done.
func (r *Receiver) Wait(ctx context.Context) (bool, error) {
	select {
	case _, ok := <-r.ch:
		return ok, nil
	case <-ctx.Done():
		return false, ctx.Err()
	}
}
