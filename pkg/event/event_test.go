package event_test

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/shashiranjanraj/hotserve/pkg/event"
)

func TestFireCallsListenersInOrder(t *testing.T) {
	bus := event.NewBus()
	var got []string
	bus.Listen("supervisor.spawned", func(p any) { got = append(got, "first:"+p.(string)) })
	bus.Listen("supervisor.spawned", func(p any) { got = append(got, "second:"+p.(string)) })
	bus.Listen("supervisor.stopped", func(p any) { got = append(got, "other") })

	bus.Fire("supervisor.spawned", "x")

	assert.Equal(t, []string{"first:x", "second:x"}, got)
}

func TestFireAsync(t *testing.T) {
	bus := event.NewBus()
	var wg sync.WaitGroup
	wg.Add(2)
	bus.Listen("e", func(any) { wg.Done() })
	bus.Listen("e", func(any) { wg.Done() })

	bus.FireAsync("e", nil)

	done := make(chan struct{})
	go func() { wg.Wait(); close(done) }()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("async listeners did not run")
	}
}

func TestFlushAndNilBus(t *testing.T) {
	bus := event.NewBus()
	called := false
	bus.Listen("e", func(any) { called = true })
	bus.Flush()
	bus.Fire("e", nil)
	assert.False(t, called)

	var none *event.Bus
	assert.NotPanics(t, func() { none.Fire("e", nil) })
}
