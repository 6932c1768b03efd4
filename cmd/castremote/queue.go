package main

import (
	"context"
	"sync"
	"time"
)

// ============================================================================
// Event Queue
// ============================================================================
// Unbounded, ordered, multi-producer/single-consumer queue. Put never blocks
// the producer; Get suspends the (single) consumer until an event arrives or
// the context is canceled. FIFO is the only ordering guarantee; coalescing
// and suppression are dispatcher policy, not queue properties.
// ============================================================================

// EventQueue is the central event bus between input sources and the dispatcher.
type EventQueue struct {
	mu     sync.Mutex
	items  []Event
	notify chan struct{}
}

// NewEventQueue returns an empty queue.
func NewEventQueue() *EventQueue {
	return &EventQueue{notify: make(chan struct{}, 1)}
}

// Put appends an event. Safe for concurrent producers; never blocks.
func (q *EventQueue) Put(kind string, data map[string]any) {
	q.mu.Lock()
	q.items = append(q.items, Event{Kind: kind, Data: data})
	q.mu.Unlock()

	// Wake the consumer. The channel holds one token; a consumer that wakes
	// re-checks the list, so collapsed signals are fine.
	select {
	case q.notify <- struct{}{}:
	default:
	}
}

// Get returns the next event in FIFO order, blocking until one is available.
// Returns ok=false only when ctx is canceled.
func (q *EventQueue) Get(ctx context.Context) (Event, bool) {
	for {
		if ev, ok := q.pop(); ok {
			return ev, true
		}
		select {
		case <-ctx.Done():
			return Event{}, false
		case <-q.notify:
		}
	}
}

// GetTimeout is Get with an upper bound on the wait.
// Returns ok=false on timeout or context cancellation.
func (q *EventQueue) GetTimeout(ctx context.Context, d time.Duration) (Event, bool) {
	timer := time.NewTimer(d)
	defer timer.Stop()

	for {
		if ev, ok := q.pop(); ok {
			return ev, true
		}
		select {
		case <-ctx.Done():
			return Event{}, false
		case <-timer.C:
			return Event{}, false
		case <-q.notify:
		}
	}
}

// Len reports the number of queued events.
func (q *EventQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

func (q *EventQueue) pop() (Event, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.items) == 0 {
		return Event{}, false
	}
	ev := q.items[0]
	q.items = q.items[1:]
	return ev, true
}
