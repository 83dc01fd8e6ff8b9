// Package supervisor keeps a single server task alive and restarts it on
// demand.
//
// A Supervisor races the running task against a trigger channel. When the
// task finishes on its own the supervisor stops and returns the task's
// result. When a trigger arrives first the task is cancelled and a fresh one
// is spawned in its place; triggers never stop the supervisor.
//
//	restarts := watch.NewRestarts()
//	sup := supervisor.New(task, restarts, supervisor.WithReady(tx))
//	err := sup.Run(ctx)
//
// Cancellation of a replaced task is a request: the supervisor does not wait
// for the old task to unwind before starting the new one. A task must
// therefore release its own resources on the ctx.Done path.
package supervisor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"
	"sync/atomic"

	"github.com/shashiranjanraj/hotserve/pkg/event"
	"github.com/shashiranjanraj/hotserve/pkg/logger"
	"github.com/shashiranjanraj/hotserve/pkg/metrics"
	"github.com/shashiranjanraj/hotserve/pkg/ready"
)

// Lifecycle event names published on the Bus given with WithEvents. The
// payload is always a Lifecycle.
const (
	EventSpawned    = "supervisor.spawned"
	EventReady      = "supervisor.ready"
	EventRestarting = "supervisor.restarting"
	EventStopped    = "supervisor.stopped"
)

// ErrAlreadyStarted is returned when Run is called a second time.
var ErrAlreadyStarted = errors.New("supervisor: already started")

// Task is one run of the supervised server. It must fire ready (at most
// once) when it accepts connections, and return once ctx is cancelled.
type Task func(ctx context.Context, ready *ready.Sender) error

// Triggers is the restart source. Close tells the producer side that the
// supervisor is gone.
type Triggers interface {
	C() <-chan struct{}
	Close()
}

// Lifecycle describes one supervisor transition.
type Lifecycle struct {
	Spawn int
	State State
	Err   error
}

// Option configures a Supervisor.
type Option func(*Supervisor)

// WithReady hands the caller's readiness sender to the supervisor. It fires
// the first time any spawned task becomes ready and is closed when Run
// returns.
func WithReady(tx *ready.Sender) Option {
	return func(s *Supervisor) { s.ready = tx }
}

// WithLogger sets the logger used for restart and task-error lines.
func WithLogger(l *slog.Logger) Option {
	return func(s *Supervisor) {
		if l != nil {
			s.log = l
		}
	}
}

// WithEvents publishes lifecycle events on bus.
func WithEvents(bus *event.Bus) Option {
	return func(s *Supervisor) { s.bus = bus }
}

// Supervisor owns the handle of the single live task.
type Supervisor struct {
	task     Task
	triggers Triggers
	ready    *ready.Sender
	log      *slog.Logger
	bus      *event.Bus

	started  atomic.Bool
	state    atomic.Int32
	spawns   atomic.Int64
	restarts atomic.Int64
}

type handle struct {
	spawn    int
	cancel   context.CancelFunc
	done     <-chan error
	observed <-chan struct{}
}

// New returns an idle Supervisor. A nil triggers source never restarts.
func New(task Task, triggers Triggers, opts ...Option) *Supervisor {
	if triggers == nil {
		triggers = noTriggers{}
	}
	s := &Supervisor{
		task:     task,
		triggers: triggers,
		log:      logger.L.With("component", "supervisor"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Run spawns the task and supervises it until it completes without an
// intervening trigger, returning the task's error. Cancelling ctx cancels
// the current task; Run then waits for it and returns its outcome.
func (s *Supervisor) Run(ctx context.Context) error {
	if !s.started.CompareAndSwap(false, true) {
		return ErrAlreadyStarted
	}
	defer s.triggers.Close()
	defer s.ready.Close()

	s.setState(Starting)
	current := s.spawn(ctx)
	triggers := s.triggers.C()

	for {
		s.setState(Running)

		select {
		case err := <-current.done:
			// A trigger that landed together with completion still counts as
			// intervening.
			if ctx.Err() == nil && pending(triggers) {
				if err != nil {
					metrics.SupervisorTaskErrors.Inc()
					s.log.Warn("server task failed before restart", "spawn", current.spawn, "error", err)
				}
				current = s.restart(ctx, current)
				continue
			}
			return s.stop(current, err)

		case _, ok := <-triggers:
			if !ok {
				triggers = nil
				continue
			}
			if ctx.Err() != nil {
				continue
			}
			current = s.restart(ctx, current)
		}
	}
}

// State reports the current loop state.
func (s *Supervisor) State() State { return State(s.state.Load()) }

// Spawns is the number of tasks started so far, the initial one included.
func (s *Supervisor) Spawns() int { return int(s.spawns.Load()) }

// Restarts is the number of triggers acted on.
func (s *Supervisor) Restarts() int { return int(s.restarts.Load()) }

func (s *Supervisor) spawn(ctx context.Context) *handle {
	n := int(s.spawns.Add(1))
	metrics.SupervisorSpawns.Inc()
	s.log.Debug("server task spawned", "spawn", n)
	s.bus.Fire(EventSpawned, Lifecycle{Spawn: n, State: Starting})

	taskCtx, cancel := context.WithCancel(ctx)
	tx, rx := ready.New()

	done := make(chan error, 1)
	observed := make(chan struct{})
	go func() {
		err := s.runTask(taskCtx, tx)
		tx.Close()
		done <- err
	}()
	go s.observeReady(taskCtx, n, rx, observed)

	return &handle{spawn: n, cancel: cancel, done: done, observed: observed}
}

func (s *Supervisor) runTask(ctx context.Context, tx *ready.Sender) (err error) {
	defer func() {
		if r := recover(); r != nil {
			s.log.Error("server task panicked",
				"panic", r,
				"stack", string(debug.Stack()),
			)
			err = fmt.Errorf("supervisor: task panicked: %v", r)
		}
	}()
	return s.task(ctx, tx)
}

// observeReady forwards a spawn's readiness to the caller's sender. A spawn
// that was cancelled before it became ready is no longer the live server
// and is not reported.
func (s *Supervisor) observeReady(ctx context.Context, spawn int, rx *ready.Receiver, observed chan<- struct{}) {
	defer close(observed)

	ok, _ := rx.Wait(context.Background())
	if !ok {
		return
	}
	if ctx.Err() != nil {
		s.log.Debug("ignoring readiness of replaced task", "spawn", spawn)
		return
	}
	s.log.Info("server ready", "spawn", spawn)
	s.ready.Fire()
	s.bus.Fire(EventReady, Lifecycle{Spawn: spawn, State: Running})
}

func (s *Supervisor) restart(ctx context.Context, old *handle) *handle {
	s.setState(Restarting)
	s.restarts.Add(1)
	metrics.SupervisorRestarts.Inc()

	s.log.Info("restarting server due to file changes", "spawn", old.spawn)
	s.bus.Fire(EventRestarting, Lifecycle{Spawn: old.spawn, State: Restarting})
	old.cancel()

	s.setState(Starting)
	return s.spawn(ctx)
}

func (s *Supervisor) stop(h *handle, err error) error {
	h.cancel()
	<-h.observed
	s.setState(Stopped)

	if err != nil {
		metrics.SupervisorTaskErrors.Inc()
		s.log.Error("server task failed", "spawn", h.spawn, "error", err)
	} else {
		s.log.Info("server task finished", "spawn", h.spawn)
	}
	s.bus.Fire(EventStopped, Lifecycle{Spawn: h.spawn, State: Stopped, Err: err})
	return err
}

func (s *Supervisor) setState(st State) {
	s.state.Store(int32(st))
	metrics.SupervisorState.Set(float64(st))
}

func pending(triggers <-chan struct{}) bool {
	if triggers == nil {
		return false
	}
	select {
	case _, ok := <-triggers:
		return ok
	default:
		return false
	}
}

// RunOnce runs task a single time without supervision. tx is closed when
// the task returns, so a receiver always learns the outcome.
func RunOnce(ctx context.Context, task Task, tx *ready.Sender) error {
	defer tx.Close()
	return task(ctx, tx)
}

type noTriggers struct{}

func (noTriggers) C() <-chan struct{} { return nil }
func (noTriggers) Close()             {}
