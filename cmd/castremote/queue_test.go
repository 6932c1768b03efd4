package main

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"
)

func TestEventQueue_FIFOOrder(t *testing.T) {
	q := NewEventQueue()

	for i := 0; i < 5; i++ {
		q.Put(fmt.Sprintf("ev%d", i), nil)
	}
	if q.Len() != 5 {
		t.Fatalf("Len = %d, want 5", q.Len())
	}

	for i := 0; i < 5; i++ {
		ev, ok := q.Get(context.Background())
		if !ok {
			t.Fatal("Get returned not-ok with items queued")
		}
		if want := fmt.Sprintf("ev%d", i); ev.Kind != want {
			t.Fatalf("got %q at position %d, want %q", ev.Kind, i, want)
		}
	}
}

func TestEventQueue_GetBlocksUntilPut(t *testing.T) {
	q := NewEventQueue()

	go func() {
		time.Sleep(30 * time.Millisecond)
		q.Put("late", map[string]any{"n": 1})
	}()

	start := time.Now()
	ev, ok := q.Get(context.Background())
	if !ok {
		t.Fatal("Get returned not-ok")
	}
	if ev.Kind != "late" {
		t.Fatalf("got %q, want late", ev.Kind)
	}
	if time.Since(start) < 20*time.Millisecond {
		t.Fatal("Get returned before the event was put")
	}
}

func TestEventQueue_GetTimeoutExpires(t *testing.T) {
	q := NewEventQueue()

	if _, ok := q.GetTimeout(context.Background(), 20*time.Millisecond); ok {
		t.Fatal("expected timeout on empty queue")
	}
}

func TestEventQueue_GetCanceled(t *testing.T) {
	q := NewEventQueue()

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()

	if _, ok := q.Get(ctx); ok {
		t.Fatal("expected not-ok after cancellation")
	}
}

func TestEventQueue_ConcurrentProducers(t *testing.T) {
	q := NewEventQueue()

	const producers = 4
	const perProducer = 25

	var wg sync.WaitGroup
	for p := 0; p < producers; p++ {
		wg.Add(1)
		go func(p int) {
			defer wg.Done()
			for i := 0; i < perProducer; i++ {
				q.Put(fmt.Sprintf("p%d", p), map[string]any{"i": i})
			}
		}(p)
	}
	wg.Wait()

	counts := make(map[string]int)
	for i := 0; i < producers*perProducer; i++ {
		ev, ok := q.GetTimeout(context.Background(), time.Second)
		if !ok {
			t.Fatalf("missing event %d of %d", i, producers*perProducer)
		}
		counts[ev.Kind]++
	}
	for p := 0; p < producers; p++ {
		if got := counts[fmt.Sprintf("p%d", p)]; got != perProducer {
			t.Fatalf("producer %d delivered %d events, want %d", p, got, perProducer)
		}
	}
	if q.Len() != 0 {
		t.Fatalf("queue should be drained, Len = %d", q.Len())
	}
}
