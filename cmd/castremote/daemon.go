package main

import (
	"context"
	"log/slog"
	"time"
)

// runDispatchLoop is the single consumer of the event queue. Events from all
// producers (input bridge, control socket) funnel through here one at a time,
// in arrival order. Command execution happens inline, so a blocking playback
// launch naturally defers everything queued behind it.
//
// Exactly one instance of this loop runs per daemon. Do not start a second
// one: ordering and the debounce ledger both assume a single consumer.
func runDispatchLoop(ctx context.Context, queue *EventQueue, dispatcher *Dispatcher, sup *Supervisor, tracker *StatusTracker, logger *slog.Logger) error {
	logger.Info("dispatch loop starting")

	for {
		ev, ok := queue.Get(ctx)
		if !ok {
			logger.Info("dispatch loop stopping (context canceled)")
			return nil
		}

		tracker.SetQueueDepth(queue.Len())

		if dispatcher.Handle(ctx, ev) {
			now := time.Now()
			tracker.RecordEvent(ev.Kind, now)
			tracker.RecordCommand(sup.CurrentCommand(), now)
		}
	}
}
