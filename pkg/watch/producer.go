package watch

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/shashiranjanraj/hotserve/pkg/metrics"
)

// Producer monitors a fixed set of paths and emits their mutations.
//
// The blocking fsnotify receive runs on its own goroutine and feeds an
// unbounded queue, so a slow consumer never stalls event delivery.
type Producer struct {
	fs    *fsnotify.Watcher
	paths []string
	files map[string]bool // root paths that are regular files
	dirs  map[string]bool // directories watched for their whole content
	// filtered holds parents watched only on behalf of files; other entries
	// in them are ignored.
	filtered map[string]bool
	now      func() time.Time
	log      *slog.Logger

	queue chan Event
	out   chan Event
	done  chan struct{}
	once  sync.Once
	wg    sync.WaitGroup

	errors atomic.Uint64
}

// NewProducer starts monitoring paths. Every path must exist and be
// watchable; the first one that is not aborts setup and nothing is left
// running.
func NewProducer(paths []string, opts ...Option) (*Producer, error) {
	if len(paths) == 0 {
		return nil, ErrEmptyWatchSet
	}
	o := buildOptions(opts)

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("watch: create watcher: %w", err)
	}

	p := &Producer{
		fs:       fsw,
		paths:    make([]string, len(paths)),
		files:    map[string]bool{},
		dirs:     map[string]bool{},
		filtered: map[string]bool{},
		now:      o.now,
		log:      o.log,
		queue:    make(chan Event),
		out:      make(chan Event),
		done:     make(chan struct{}),
	}

	for i, path := range paths {
		p.paths[i] = filepath.Clean(path)
	}
	for _, path := range p.paths {
		if err := p.addTree(path); err != nil {
			_ = fsw.Close()
			return nil, err
		}
	}
	if err := p.watchFileParents(); err != nil {
		_ = fsw.Close()
		return nil, err
	}

	p.wg.Add(2)
	go p.receive()
	go p.pump()

	p.log.Info("watching for changes", "paths", p.paths)
	return p, nil
}

// Events delivers mutations in the order fsnotify reported them. It is
// closed by Close.
func (p *Producer) Events() <-chan Event {
	return p.out
}

// Paths returns the watch set.
func (p *Producer) Paths() []string {
	return append([]string(nil), p.paths...)
}

// Errors is the number of driver errors seen since setup.
func (p *Producer) Errors() uint64 {
	return p.errors.Load()
}

// Close stops monitoring and closes Events. Safe to call more than once.
func (p *Producer) Close() error {
	var err error
	p.once.Do(func() {
		close(p.done)
		err = p.fs.Close()
		p.wg.Wait()
	})
	return err
}

func (p *Producer) receive() {
	defer p.wg.Done()

	for {
		select {
		case ev, ok := <-p.fs.Events:
			if !ok {
				return
			}
			if !isMutation(ev.Op) || p.ignored(ev.Name) {
				continue
			}
			if ev.Has(fsnotify.Create) {
				p.followNewDir(ev.Name)
			}
			select {
			case p.queue <- Event{Path: ev.Name, Op: ev.Op, Time: p.now()}:
			case <-p.done:
				return
			}

		case err, ok := <-p.fs.Errors:
			if !ok {
				return
			}
			p.errors.Add(1)
			metrics.WatchErrors.Inc()
			p.log.Warn("watch error", "error", err)

		case <-p.done:
			return
		}
	}
}

// pump buffers between receive and the consumer without a size limit.
func (p *Producer) pump() {
	defer p.wg.Done()
	defer close(p.out)

	var pending []Event
	for {
		var out chan Event
		var head Event
		if len(pending) > 0 {
			out = p.out
			head = pending[0]
		}

		select {
		case ev := <-p.queue:
			pending = append(pending, ev)
		case out <- head:
			pending[0] = Event{}
			pending = pending[1:]
		case <-p.done:
			return
		}
	}
}

func (p *Producer) followNewDir(path string) {
	info, err := os.Stat(path)
	if err != nil || !info.IsDir() {
		return
	}
	if err := p.addTree(path); err != nil {
		p.log.Warn("watch error", "path", path, "error", err)
	}
}

