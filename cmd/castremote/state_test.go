package main

import (
	"encoding/json"
	"testing"
	"time"
)

func TestStatusTracker_SnapshotReflectsRecordedState(t *testing.T) {
	tracker := NewStatusTracker(nil, newTestLogger())
	at := time.Unix(2000, 0)

	tracker.RecordEvent("youtube", at)
	tracker.RecordCommand([]string{"catt", "cast", "x"}, at)
	tracker.SetQueueDepth(3)

	snap := tracker.Snapshot()
	if snap.LastEventKind != "youtube" {
		t.Fatalf("LastEventKind = %q", snap.LastEventKind)
	}
	if !snap.LastEventAt.Equal(at) {
		t.Fatalf("LastEventAt = %v, want %v", snap.LastEventAt, at)
	}
	if snap.EventsDispatched != 1 {
		t.Fatalf("EventsDispatched = %d, want 1", snap.EventsDispatched)
	}
	if snap.QueueDepth != 3 {
		t.Fatalf("QueueDepth = %d, want 3", snap.QueueDepth)
	}
	if len(snap.CurrentCommand) != 3 || snap.CurrentCommand[2] != "x" {
		t.Fatalf("CurrentCommand = %v", snap.CurrentCommand)
	}

	// The snapshot is a copy; mutating it must not leak back.
	snap.CurrentCommand[2] = "tampered"
	if tracker.Snapshot().CurrentCommand[2] != "x" {
		t.Fatal("snapshot aliasing detected")
	}
}

func TestStatusTracker_CommandBroadcastOnlyOnChange(t *testing.T) {
	hub := newTestHub(t, 8, 8)
	tracker := NewStatusTracker(hub, newTestLogger())
	at := time.Unix(2000, 0)

	tracker.RecordCommand([]string{"catt", "cast", "a"}, at)
	tracker.RecordCommand([]string{"catt", "cast", "a"}, at.Add(time.Second))
	tracker.RecordCommand([]string{"catt", "cast", "b"}, at.Add(2*time.Second))

	// The hub is not running; broadcasts just pile up in its inbound queue.
	if got := len(hub.broadcast); got != 2 {
		t.Fatalf("expected 2 broadcasts (a, b), got %d", got)
	}

	first := <-hub.broadcast
	var msg struct {
		Type string `json:"type"`
		Data struct {
			Argv []string `json:"argv"`
		} `json:"data"`
	}
	if err := json.Unmarshal(first, &msg); err != nil {
		t.Fatalf("unmarshal broadcast: %v", err)
	}
	if msg.Type != "command_changed" || len(msg.Data.Argv) != 3 || msg.Data.Argv[2] != "a" {
		t.Fatalf("unexpected broadcast: %s", first)
	}
}
