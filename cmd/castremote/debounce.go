package main

import "time"

// DebouncePolicy suppresses repeated acceptance of logically-identical events
// within a time window. A single physical key press can generate several rapid
// logical events; without this the daemon would re-trigger an expensive remote
// cast for each one.
//
// Keys are scoped per key identifier (or per injected method name), not
// globally. Entries are never pruned; the key space is bounded by
// configuration.
//
// Only the dispatch goroutine touches the ledger, so no locking is needed.
type DebouncePolicy struct {
	window time.Duration
	last   map[string]time.Time
}

// NewDebouncePolicy returns a policy with the given window.
// A zero or negative window disables debouncing.
func NewDebouncePolicy(window time.Duration) *DebouncePolicy {
	return &DebouncePolicy{
		window: window,
		last:   make(map[string]time.Time),
	}
}

// Allow reports whether an event for key should be accepted at time now,
// recording the acceptance if so.
func (p *DebouncePolicy) Allow(key string, now time.Time) bool {
	if p.window <= 0 {
		return true
	}
	if last, ok := p.last[key]; ok && now.Sub(last) < p.window {
		return false
	}
	p.last[key] = now
	return true
}
