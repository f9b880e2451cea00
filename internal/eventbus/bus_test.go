package eventbus

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func TestBus_DeliversToSubscribers(t *testing.T) {
	bus := NewWithConfig(2, 10)

	var wg sync.WaitGroup
	var snapshots, failures atomic.Int32
	wg.Add(3)
	bus.Subscribe(EventTypeSnapshot, func(e Event) {
		if e.BedID == "100" {
			snapshots.Add(1)
		}
		wg.Done()
	})
	bus.Subscribe(EventTypeSnapshot, func(Event) {
		snapshots.Add(1)
		wg.Done()
	})
	bus.Subscribe(EventTypeFetchFailed, func(Event) {
		failures.Add(1)
		wg.Done()
	})

	bus.Publish(Event{Type: EventTypeSnapshot, BedID: "100"})
	bus.Publish(Event{Type: EventTypeFetchFailed})
	bus.Publish(Event{Type: EventTypeCommand}) // no subscribers

	wg.Wait()
	bus.Close(context.Background())

	if snapshots.Load() != 2 {
		t.Errorf("snapshot deliveries = %d, want 2", snapshots.Load())
	}
	if failures.Load() != 1 {
		t.Errorf("failure deliveries = %d, want 1", failures.Load())
	}
}

func TestBus_HandlerPanicDoesNotKillWorker(t *testing.T) {
	bus := NewWithConfig(1, 10)
	defer bus.Close(context.Background())

	done := make(chan struct{})
	calls := 0
	bus.Subscribe(EventTypeCommand, func(Event) {
		calls++
		if calls == 1 {
			panic("boom")
		}
		close(done)
	})

	bus.Publish(Event{Type: EventTypeCommand})
	bus.Publish(Event{Type: EventTypeCommand})

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("second event was not handled after a panic")
	}
}

func TestBus_PublishAfterCloseIsDropped(t *testing.T) {
	bus := NewWithConfig(1, 1)

	var calls atomic.Int32
	bus.Subscribe(EventTypeSnapshot, func(Event) { calls.Add(1) })
	bus.Close(context.Background())
	bus.Close(context.Background())

	bus.Publish(Event{Type: EventTypeSnapshot})

	if calls.Load() != 0 {
		t.Errorf("calls = %d after Close, want 0", calls.Load())
	}
}

func TestBus_FullQueueDrops(t *testing.T) {
	bus := NewWithConfig(1, 1)

	block := make(chan struct{})
	started := make(chan struct{}, 1)
	bus.Subscribe(EventTypeSnapshot, func(Event) {
		select {
		case started <- struct{}{}:
		default:
		}
		<-block
	})

	bus.Publish(Event{Type: EventTypeSnapshot})
	<-started
	bus.Publish(Event{Type: EventTypeSnapshot}) // fills the queue
	bus.Publish(Event{Type: EventTypeSnapshot}) // dropped, must not block

	close(block)
	bus.Close(context.Background())
}
