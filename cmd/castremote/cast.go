package main

import (
	"path/filepath"
	"sort"
	"strings"
)

// ============================================================================
// Cast tool invocation
// ============================================================================
// The playback device is driven entirely through an external cast command
// (catt by default). Exit codes and stdout are never parsed; for supervised
// playback only process liveness after a timeout matters.
// ============================================================================

// CastTool builds argv slices for the external cast command.
type CastTool struct {
	Bin string
}

// Cast plays a URL or local path on the device.
func (c CastTool) Cast(target string) []string {
	return []string{c.Bin, "cast", target}
}

// CastBlocking plays a local file with the blocking variant, used together
// with the supervisor's minimum-execution-time guard.
func (c CastTool) CastBlocking(path string) []string {
	return []string{c.Bin, "cast", "--block", path}
}

// Add enqueues a URL on the device's play queue.
func (c CastTool) Add(url string) []string {
	return []string{c.Bin, "add", url}
}

// VolumeUp raises the device volume by step.
func (c CastTool) VolumeUp(step string) []string {
	return []string{c.Bin, "volumeup", step}
}

// VolumeDown lowers the device volume by step.
func (c CastTool) VolumeDown(step string) []string {
	return []string{c.Bin, "volumedown", step}
}

// youtubeURL turns a bare video ID into a watch URL. Full URLs pass through.
func youtubeURL(idOrURL string) string {
	if strings.Contains(idOrURL, "://") {
		return idOrURL
	}
	return "https://www.youtube.com/watch?v=" + idOrURL
}

// expandGlobs resolves glob patterns into a sorted, de-duplicated list of
// candidate file paths. Patterns that match nothing or fail to parse
// contribute nothing.
func expandGlobs(patterns []string) []string {
	seen := make(map[string]struct{})
	var out []string
	for _, pat := range patterns {
		matches, err := filepath.Glob(ExpandPath(pat))
		if err != nil {
			continue
		}
		for _, m := range matches {
			if _, ok := seen[m]; ok {
				continue
			}
			seen[m] = struct{}{}
			out = append(out, m)
		}
	}
	sort.Strings(out)
	return out
}
