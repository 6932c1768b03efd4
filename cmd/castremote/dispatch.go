package main

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"strconv"
	"time"
)

// ============================================================================
// Command Dispatcher
// ============================================================================
// Consumes one event at a time, decodes it into a concrete action, applies
// per-key debouncing, and invokes the supervisor or a fire-and-forget call.
//
// Handle returns once the action has been *initiated*; for supervised
// long-running playback that means the minimum-execution-time guard has
// resolved, not that playback finished.
//
// Handle is only ever called from the single dispatch goroutine; no two
// invocations run concurrently.
// ============================================================================

// Method names understood by the dispatcher.
const (
	methodYouTube    = "youtube"
	methodVideo      = "video"
	methodURL        = "url"
	methodGlob       = "glob"
	methodVolumeUp   = "volume_up"
	methodVolumeDown = "volume_down"
)

// decoded is the result of resolving an event against the binding table.
type decoded struct {
	method      string
	params      []string
	maxEnqueued int
	debounceKey string
}

// Dispatcher decodes events and initiates external actions.
type Dispatcher struct {
	remote   RemoteConfig
	cast     CastTool
	sup      *Supervisor
	debounce *DebouncePolicy
	logger   *slog.Logger
	metrics  *Metrics

	minExecTime        time.Duration
	maxAttempts        int
	enqueueDelay       time.Duration
	defaultMaxEnqueued int

	rng *rand.Rand
	now func() time.Time
}

// NewDispatcher wires a dispatcher from the loaded configuration.
func NewDispatcher(cfg Config, sup *Supervisor, logger *slog.Logger, metrics *Metrics) *Dispatcher {
	return &Dispatcher{
		remote:   cfg.Remote,
		cast:     CastTool{Bin: cfg.Cast.Tool},
		sup:      sup,
		debounce: NewDebouncePolicy(cfg.Remote.DebounceWindow()),
		logger:   logger,
		metrics:  metrics,

		minExecTime:        cfg.Cast.MinExecTime(),
		maxAttempts:        cfg.Cast.MaxAttempts,
		enqueueDelay:       cfg.Cast.EnqueueDelay(),
		defaultMaxEnqueued: cfg.Cast.MaxEnqueuedVideos,

		rng: rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64())),
		now: time.Now,
	}
}

// Handle consumes one event and reports whether it resulted in an action.
// It never returns an error: bad events are logged and dropped, and external
// failures are absorbed by the supervisor.
func (d *Dispatcher) Handle(ctx context.Context, ev Event) bool {
	dec, ok := d.decode(ev)
	if !ok {
		d.metrics.IncDropped()
		return false
	}

	if !d.debounce.Allow(dec.debounceKey, d.now()) {
		d.logger.Debug("debounced", "key", dec.debounceKey, "method", dec.method)
		d.metrics.IncDebounced()
		return false
	}

	switch dec.method {
	case methodYouTube:
		d.playYouTube(ctx, dec.params, dec.maxEnqueued)

	case methodVideo:
		d.playLocal(ctx, dec.params)

	case methodGlob:
		d.playLocal(ctx, expandGlobs(dec.params))

	case methodURL:
		if len(dec.params) == 0 {
			d.logger.Warn("url action without a url, dropping")
			d.metrics.IncDropped()
			return false
		}
		d.logger.Info("casting url", "url", dec.params[0])
		d.sup.RunAsync(d.cast.Cast(dec.params[0]))

	case methodVolumeUp:
		step := volumeStep(dec.method, dec.params)
		d.logger.Info("volume up", "step", step)
		d.sup.RunAsync(d.cast.VolumeUp(step))

	case methodVolumeDown:
		step := volumeStep(dec.method, dec.params)
		d.logger.Info("volume down", "step", step)
		d.sup.RunAsync(d.cast.VolumeDown(step))

	default:
		d.logger.Debug("unknown method, dropping", "method", dec.method)
		d.metrics.IncDropped()
		return false
	}

	d.metrics.IncDispatched()
	return true
}

// decode resolves an event to a method, parameter list and debounce key.
//
// Keyboard events go through the binding table; any other kind is taken as a
// method name with parameters in the payload — that is how the control
// channel injects arbitrary actions.
func (d *Dispatcher) decode(ev Event) (decoded, bool) {
	if ev.Kind == EventKindKeyboard {
		key, _ := ev.Data["key"].(string)
		if key == "" {
			d.logger.Debug("keyboard event without key, dropping")
			return decoded{}, false
		}

		actionName, ok := d.remote.Bindings[key]
		if !ok {
			d.logger.Debug("unbound key, dropping", "key", key)
			return decoded{}, false
		}

		action, ok := d.remote.Keys[actionName]
		if !ok {
			d.logger.Warn("binding points at undefined action, dropping",
				"key", key, "action", actionName)
			return decoded{}, false
		}

		return decoded{
			method:      action.Method,
			params:      action.Params,
			maxEnqueued: action.MaxEnqueuedVideos,
			debounceKey: key,
		}, true
	}

	maxEnq := d.defaultMaxEnqueued
	if n, ok := intField(ev.Data, "max_enqueued_videos"); ok {
		maxEnq = n
	}

	return decoded{
		method:      ev.Kind,
		params:      stringParams(ev.Data["params"]),
		maxEnqueued: maxEnq,
		debounceKey: ev.Kind,
	}, true
}

// playYouTube shuffles the candidate videos for fairness, plays the first
// through the exclusive slot, and enqueues up to maxEnqueued of the rest with
// a fixed inter-enqueue delay.
//
// The delays run inside Handle: events that arrive meanwhile stay queued
// until every enqueue step has finished. A slow action delaying later events
// is the documented trade-off of single-threaded dispatch.
func (d *Dispatcher) playYouTube(ctx context.Context, params []string, maxEnqueued int) {
	if len(params) == 0 {
		d.logger.Warn("youtube action without videos, dropping")
		return
	}

	videos := make([]string, len(params))
	copy(videos, params)
	d.rng.Shuffle(len(videos), func(i, j int) {
		videos[i], videos[j] = videos[j], videos[i]
	})

	primary := youtubeURL(videos[0])
	d.logger.Info("casting youtube video", "url", primary)
	d.sup.RunExclusive(d.cast.Cast(primary))

	rest := videos[1:]
	if maxEnqueued < len(rest) {
		rest = rest[:max(maxEnqueued, 0)]
	}
	for _, v := range rest {
		select {
		case <-ctx.Done():
			return
		case <-time.After(d.enqueueDelay):
		}
		url := youtubeURL(v)
		d.logger.Info("enqueueing youtube video", "url", url)
		d.sup.RunAsync(d.cast.Add(url))
	}
}

// playLocal picks one candidate uniformly at random and plays it through the
// supervisor with the minimum-execution-time guard.
func (d *Dispatcher) playLocal(ctx context.Context, candidates []string) {
	if len(candidates) == 0 {
		d.logger.Warn("no playable files for action, dropping")
		return
	}

	path := candidates[d.rng.IntN(len(candidates))]
	d.logger.Info("casting local file", "path", path, "candidates", len(candidates))
	d.sup.RunBlocking(ctx, d.cast.CastBlocking(path), d.minExecTime, d.maxAttempts)
}

// volumeStep validates the volume action's parameter contract: exactly one
// numeric parameter. Anything else is a configuration bug, not a runtime
// condition, and fails loudly.
func volumeStep(method string, params []string) string {
	if len(params) != 1 {
		panic(fmt.Sprintf("%s requires exactly one parameter, got %d", method, len(params)))
	}
	if _, err := strconv.Atoi(params[0]); err != nil {
		panic(fmt.Sprintf("%s requires a numeric parameter, got %q", method, params[0]))
	}
	return params[0]
}
