package main

import "strconv"

// ============================================================================
// Events
// ============================================================================
// An Event is one user or remote intent: a key press translated by the input
// bridge, or an arbitrary action injected through the control channel.
// Events are immutable once enqueued and consumed exactly once by the
// dispatcher.
// ============================================================================

// EventKindKeyboard is emitted by the input bridge; Data carries "key".
// Any other kind is treated as a method name with Data carrying "params".
const EventKindKeyboard = "keyboard_input"

// Event is an opaque (kind, payload) message.
type Event struct {
	Kind string
	Data map[string]any
}

// stringParams extracts the "params" list from injected event data.
// JSON decoding produces []any; config-produced events may carry []string.
func stringParams(v any) []string {
	switch vv := v.(type) {
	case nil:
		return nil
	case []string:
		return vv
	case []any:
		out := make([]string, 0, len(vv))
		for _, p := range vv {
			if s, ok := p.(string); ok {
				out = append(out, s)
			}
		}
		return out
	default:
		return nil
	}
}

// intField extracts an optional integer field from event data.
// JSON numbers decode as float64; accept int and string forms too.
func intField(data map[string]any, key string) (int, bool) {
	v, ok := data[key]
	if !ok {
		return 0, false
	}
	switch vv := v.(type) {
	case float64:
		return int(vv), true
	case int:
		return vv, true
	case string:
		n, err := strconv.Atoi(vv)
		if err != nil {
			return 0, false
		}
		return n, true
	default:
		return 0, false
	}
}
