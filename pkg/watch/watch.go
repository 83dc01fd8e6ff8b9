// Package watch turns filesystem changes into restart triggers.
//
// Three pieces are chained together by the caller:
//
//	restarts := watch.NewRestarts()
//	producer, err := watch.NewProducer(paths)   // setup errors surface here
//	gate := watch.NewGate(restarts)
//	go gate.Run(ctx, producer.Events())
//	// consumer: <-restarts.C()
//
// The Producer monitors every path recursively and emits one Event per
// mutation. The Gate collapses bursts so that at most one trigger is
// forwarded per debounce window. Restarts is the capacity-1 hand-off to the
// consumer; a trigger sent while another is pending is coalesced.
package watch

import (
	"errors"
	"log/slog"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/shashiranjanraj/hotserve/pkg/logger"
)

// DefaultDebounce is the minimum spacing between two forwarded triggers.
const DefaultDebounce = time.Second

var (
	// ErrEmptyWatchSet is returned by NewProducer when no path is given.
	ErrEmptyWatchSet = errors.New("watch: no paths to watch")

	// ErrRestartsClosed is returned by Restarts.Send once the consumer has
	// gone away.
	ErrRestartsClosed = errors.New("watch: restart channel closed")
)

// Event is a single filesystem mutation.
type Event struct {
	Path string
	Op   fsnotify.Op
	Time time.Time
}

// Option configures a Producer or a Gate.
type Option func(*options)

type options struct {
	window time.Duration
	now    func() time.Time
	log    *slog.Logger
}

// WithWindow sets the debounce window. Non-positive values keep the default.
func WithWindow(d time.Duration) Option {
	return func(o *options) {
		if d > 0 {
			o.window = d
		}
	}
}

// WithClock replaces time.Now, mainly for tests.
func WithClock(now func() time.Time) Option {
	return func(o *options) {
		if now != nil {
			o.now = now
		}
	}
}

// WithLogger sets the logger used for watch errors and restart decisions.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.log = l
		}
	}
}

func buildOptions(opts []Option) options {
	o := options{
		window: DefaultDebounce,
		now:    time.Now,
		log:    logger.L.With("component", "watch"),
	}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

func isMutation(op fsnotify.Op) bool {
	return op.Has(fsnotify.Create) || op.Has(fsnotify.Write) ||
		op.Has(fsnotify.Remove) || op.Has(fsnotify.Rename)
}
