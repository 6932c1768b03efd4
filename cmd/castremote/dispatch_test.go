package main

import (
	"context"
	"testing"
	"time"
)

func testConfig() Config {
	cfg := DefaultConfig()
	cfg.Cast.MinExecTimeSec = 0.02
	cfg.Cast.EnqueueDelaySec = 0
	cfg.Remote.DebounceWindowSec = 10
	cfg.Remote.Bindings = map[string]string{
		"c": "play_stream",
		"y": "play_mix",
		"u": "louder",
	}
	cfg.Remote.Keys = map[string]KeyAction{
		"play_stream": {Method: "url", Params: []string{"https://example.com/stream"}},
		"play_mix":    {Method: "youtube", Params: []string{"vid1", "vid2", "vid3", "vid4"}, MaxEnqueuedVideos: 2},
		"louder":      {Method: "volume_up", Params: []string{"5"}},
	}
	return cfg
}

func newTestDispatcher(cfg Config, runner ProcessRunner) *Dispatcher {
	logger := newTestLogger()
	metrics := NewMetrics()
	sup := NewSupervisor(runner, logger, metrics)
	return NewDispatcher(cfg, sup, logger, metrics)
}

func keyEvent(key string) Event {
	return Event{Kind: EventKindKeyboard, Data: map[string]any{"key": key}}
}

func TestDispatcher_KeyBindingCastsURL(t *testing.T) {
	runner := &fakeRunner{}
	d := newTestDispatcher(testConfig(), runner)

	if !d.Handle(context.Background(), keyEvent("c")) {
		t.Fatal("bound key should dispatch")
	}

	started := runner.startedCommands()
	if len(started) != 1 {
		t.Fatalf("expected 1 start, got %d", len(started))
	}
	want := []string{"catt", "cast", "https://example.com/stream"}
	for i := range want {
		if started[0][i] != want[i] {
			t.Fatalf("started %v, want %v", started[0], want)
		}
	}
}

func TestDispatcher_UnboundKeyDropped(t *testing.T) {
	runner := &fakeRunner{}
	d := newTestDispatcher(testConfig(), runner)

	if d.Handle(context.Background(), keyEvent("z")) {
		t.Fatal("unbound key should be dropped")
	}
	if len(runner.startedCommands()) != 0 {
		t.Fatal("no command should have started")
	}
}

func TestDispatcher_BindingToUndefinedActionDropped(t *testing.T) {
	cfg := testConfig()
	cfg.Remote.Bindings["x"] = "no_such_action"
	runner := &fakeRunner{}
	d := newTestDispatcher(cfg, runner)

	if d.Handle(context.Background(), keyEvent("x")) {
		t.Fatal("binding to undefined action should be dropped")
	}
}

func TestDispatcher_DebounceScopedPerKey(t *testing.T) {
	runner := &fakeRunner{}
	d := newTestDispatcher(testConfig(), runner)

	now := time.Unix(1000, 0)
	d.now = func() time.Time { return now }

	if !d.Handle(context.Background(), keyEvent("c")) {
		t.Fatal("first press should dispatch")
	}

	now = now.Add(2 * time.Second)
	if d.Handle(context.Background(), keyEvent("c")) {
		t.Fatal("repeat within the window should be suppressed")
	}

	// A different key is an independent debounce scope.
	if !d.Handle(context.Background(), keyEvent("u")) {
		t.Fatal("other key should not be affected by the suppressed one")
	}

	now = now.Add(11 * time.Second)
	if !d.Handle(context.Background(), keyEvent("c")) {
		t.Fatal("press after the window should dispatch again")
	}
}

func TestDispatcher_InjectedURLEvent(t *testing.T) {
	runner := &fakeRunner{}
	d := newTestDispatcher(testConfig(), runner)

	ev := Event{Kind: "url", Data: map[string]any{"params": []any{"https://example.com/x"}}}
	if !d.Handle(context.Background(), ev) {
		t.Fatal("injected url event should dispatch")
	}

	started := runner.startedCommands()
	if len(started) != 1 || started[0][2] != "https://example.com/x" {
		t.Fatalf("unexpected starts: %v", started)
	}
}

func TestDispatcher_YouTubeKeyEnqueuesBudgetedFollowUps(t *testing.T) {
	runner := &fakeRunner{}
	d := newTestDispatcher(testConfig(), runner)

	if !d.Handle(context.Background(), keyEvent("y")) {
		t.Fatal("youtube key should dispatch")
	}

	// One exclusive cast plus MaxEnqueuedVideos adds.
	started := runner.startedCommands()
	if len(started) != 3 {
		t.Fatalf("expected 3 starts (1 cast + 2 add), got %d: %v", len(started), started)
	}
	if started[0][1] != "cast" {
		t.Fatalf("first invocation should cast, got %v", started[0])
	}
	for _, s := range started[1:] {
		if s[1] != "add" {
			t.Fatalf("follow-up should enqueue, got %v", s)
		}
	}
}

func TestDispatcher_InjectedYouTubeBudgetOverride(t *testing.T) {
	runner := &fakeRunner{}
	d := newTestDispatcher(testConfig(), runner)

	ev := Event{Kind: "youtube", Data: map[string]any{
		"params":              []any{"a", "b", "c"},
		"max_enqueued_videos": float64(1),
	}}
	if !d.Handle(context.Background(), ev) {
		t.Fatal("injected youtube event should dispatch")
	}

	started := runner.startedCommands()
	if len(started) != 2 {
		t.Fatalf("expected 2 starts (1 cast + 1 add), got %d: %v", len(started), started)
	}
}

func TestDispatcher_YouTubeBareIDBecomesWatchURL(t *testing.T) {
	runner := &fakeRunner{}
	d := newTestDispatcher(testConfig(), runner)

	ev := Event{Kind: "youtube", Data: map[string]any{"params": []any{"dQw4w9WgXcQ"}}}
	d.Handle(context.Background(), ev)

	started := runner.startedCommands()
	if len(started) != 1 {
		t.Fatalf("expected 1 start, got %v", started)
	}
	if started[0][2] != "https://www.youtube.com/watch?v=dQw4w9WgXcQ" {
		t.Fatalf("expected watch URL, got %q", started[0][2])
	}
}

func TestDispatcher_UnknownMethodDropped(t *testing.T) {
	runner := &fakeRunner{}
	d := newTestDispatcher(testConfig(), runner)

	if d.Handle(context.Background(), Event{Kind: "reboot", Data: map[string]any{}}) {
		t.Fatal("unknown method should be dropped")
	}
	if len(runner.startedCommands()) != 0 {
		t.Fatal("no command should have started")
	}
}

func TestDispatcher_VolumeUpDispatch(t *testing.T) {
	runner := &fakeRunner{}
	d := newTestDispatcher(testConfig(), runner)

	ev := Event{Kind: "volume_up", Data: map[string]any{"params": []any{"4"}}}
	if !d.Handle(context.Background(), ev) {
		t.Fatal("volume event should dispatch")
	}

	started := runner.startedCommands()
	if len(started) != 1 || started[0][1] != "volumeup" || started[0][2] != "4" {
		t.Fatalf("unexpected starts: %v", started)
	}
}

func TestDispatcher_VolumePanicsOnBadParams(t *testing.T) {
	runner := &fakeRunner{}
	d := newTestDispatcher(testConfig(), runner)

	defer func() {
		if recover() == nil {
			t.Fatal("expected panic on wrong parameter count")
		}
	}()
	d.Handle(context.Background(), Event{Kind: "volume_down", Data: map[string]any{"params": []any{}}})
}

func TestDispatcher_VolumePanicsOnNonNumericParam(t *testing.T) {
	runner := &fakeRunner{}
	d := newTestDispatcher(testConfig(), runner)

	defer func() {
		if recover() == nil {
			t.Fatal("expected panic on non-numeric parameter")
		}
	}()
	d.Handle(context.Background(), Event{Kind: "volume_up", Data: map[string]any{"params": []any{"loud"}}})
}

func TestDispatcher_VideoPlaysOneCandidate(t *testing.T) {
	runner := &fakeRunner{}
	d := newTestDispatcher(testConfig(), runner)

	ev := Event{Kind: "video", Data: map[string]any{"params": []any{"/media/a.mkv", "/media/b.mkv", "/media/c.mkv"}}}
	if !d.Handle(context.Background(), ev) {
		t.Fatal("video event should dispatch")
	}

	started := runner.startedCommands()
	if len(started) != 1 {
		t.Fatalf("expected exactly 1 start, got %v", started)
	}
	argv := started[0]
	if argv[1] != "cast" || argv[2] != "--block" {
		t.Fatalf("expected blocking cast, got %v", argv)
	}
	switch argv[3] {
	case "/media/a.mkv", "/media/b.mkv", "/media/c.mkv":
	default:
		t.Fatalf("picked a path outside the candidate set: %q", argv[3])
	}
}

func TestDispatcher_GlobWithoutMatchesStartsNothing(t *testing.T) {
	runner := &fakeRunner{}
	d := newTestDispatcher(testConfig(), runner)

	ev := Event{Kind: "glob", Data: map[string]any{"params": []any{"/nonexistent-dir-for-test/*.mkv"}}}
	d.Handle(context.Background(), ev)

	if len(runner.startedCommands()) != 0 {
		t.Fatal("no command should start when the glob matches nothing")
	}
}
