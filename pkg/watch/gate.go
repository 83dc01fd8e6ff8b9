package watch

import (
	"context"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/shashiranjanraj/hotserve/pkg/metrics"
)

// Gate forwards at most one restart trigger per window.
//
// The window is measured from the last accepted event, not the last raw
// event, so a burst of any length produces one trigger and the restart rate
// stays bounded. Offer and Run must be driven from a single goroutine; the
// timestamp is not shared.
type Gate struct {
	window   time.Duration
	now      func() time.Time
	log      *slog.Logger
	restarts *Restarts

	last time.Time

	accepted atomic.Int64
	dropped  atomic.Int64
}

// NewGate returns a Gate forwarding into restarts.
func NewGate(restarts *Restarts, opts ...Option) *Gate {
	o := buildOptions(opts)
	return &Gate{
		window:   o.window,
		now:      o.now,
		log:      o.log,
		restarts: restarts,
	}
}

// Window reports the configured debounce window.
func (g *Gate) Window() time.Duration { return g.window }

// Offer decides on a single event. It returns true when the event was
// accepted and a trigger was handed to the restart channel.
func (g *Gate) Offer(ev Event) bool {
	now := g.now()
	if !g.last.IsZero() && now.Sub(g.last) < g.window {
		g.dropped.Add(1)
		metrics.WatchEvents.WithLabelValues("dropped").Inc()
		return false
	}

	g.last = now
	g.accepted.Add(1)
	metrics.WatchEvents.WithLabelValues("accepted").Inc()

	if err := g.restarts.Send(); err != nil {
		metrics.WatchForwardFailures.Inc()
		g.log.Warn("restart signal not delivered, supervisor is shutting down",
			"path", ev.Path,
			"error", err,
		)
		return true
	}
	g.log.Debug("change accepted", "path", ev.Path, "op", ev.Op.String())
	return true
}

// Run consumes events in arrival order until the channel is closed or ctx
// is done.
func (g *Gate) Run(ctx context.Context, events <-chan Event) {
	for {
		select {
		case ev, ok := <-events:
			if !ok {
				return
			}
			g.Offer(ev)
		case <-ctx.Done():
			return
		}
	}
}

// Accepted is the number of events that produced a trigger.
func (g *Gate) Accepted() int64 { return g.accepted.Load() }

// Dropped is the number of events that fell inside the window.
func (g *Gate) Dropped() int64 { return g.dropped.Load() }
