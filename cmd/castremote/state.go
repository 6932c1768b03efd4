package main

import (
	"encoding/json"
	"log/slog"
	"slices"
	"sync"
	"time"
)

// StatusSnapshot is the externally visible state of the daemon: what is
// playing, what was last asked for, and how busy the queue is. It backs both
// the /status endpoint and the websocket status stream.
type StatusSnapshot struct {
	QueueDepth       int       `json:"queue_depth"`
	CurrentCommand   []string  `json:"current_command,omitempty"`
	LastEventKind    string    `json:"last_event_kind,omitempty"`
	LastEventAt      time.Time `json:"last_event_at,omitzero"`
	EventsDispatched uint64    `json:"events_dispatched"`
}

// envelope is the wire format for websocket status messages.
type envelope struct {
	Type string     `json:"type"`
	Ts   *time.Time `json:"ts,omitempty"`
	Data any        `json:"data,omitempty"`
}

// StatusTracker maintains the snapshot and pushes change notifications to
// websocket observers. All methods are safe for concurrent use; in practice
// writers are the dispatch loop and readers are HTTP handlers.
type StatusTracker struct {
	hub    *Hub
	logger *slog.Logger

	mu   sync.Mutex
	snap StatusSnapshot
}

func NewStatusTracker(hub *Hub, logger *slog.Logger) *StatusTracker {
	return &StatusTracker{hub: hub, logger: logger}
}

// Snapshot returns a copy of the current status.
func (t *StatusTracker) Snapshot() StatusSnapshot {
	t.mu.Lock()
	defer t.mu.Unlock()
	snap := t.snap
	snap.CurrentCommand = append([]string(nil), t.snap.CurrentCommand...)
	return snap
}

// RecordEvent notes that an event finished dispatching.
func (t *StatusTracker) RecordEvent(kind string, at time.Time) {
	t.mu.Lock()
	t.snap.LastEventKind = kind
	t.snap.LastEventAt = at
	t.snap.EventsDispatched++
	t.mu.Unlock()

	t.publish("event_dispatched", map[string]any{"event_kind": kind}, at)
}

// RecordCommand notes the currently supervised command, broadcasting only
// when it changed.
func (t *StatusTracker) RecordCommand(argv []string, at time.Time) {
	t.mu.Lock()
	changed := !slices.Equal(t.snap.CurrentCommand, argv)
	if changed {
		t.snap.CurrentCommand = append([]string(nil), argv...)
	}
	t.mu.Unlock()

	if changed {
		t.publish("command_changed", map[string]any{"argv": argv}, at)
	}
}

// SetQueueDepth updates the queue depth without broadcasting; depth changes
// constantly and observers can poll /status for it.
func (t *StatusTracker) SetQueueDepth(n int) {
	t.mu.Lock()
	t.snap.QueueDepth = n
	t.mu.Unlock()
}

func (t *StatusTracker) publish(msgType string, data any, at time.Time) {
	if t.hub == nil {
		return
	}
	ts := at.UTC()
	msg, err := json.Marshal(envelope{Type: msgType, Ts: &ts, Data: data})
	if err != nil {
		t.logger.Warn("status marshal failed", "error", err, "type", msgType)
		return
	}
	t.hub.BroadcastBytes(msg)
}
