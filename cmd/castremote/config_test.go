package main

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeTempConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadConfigFile_OverlaysDefaults(t *testing.T) {
	path := writeTempConfig(t, `
remote:
  debounce_window_sec: 5
  bindings:
    c: play_stream
  keys:
    play_stream:
      method: url
      params: ["https://example.com/stream"]
cast:
  tool: mycatt
`)

	cfg, err := LoadConfigFile(path)
	if err != nil {
		t.Fatalf("LoadConfigFile: %v", err)
	}

	if cfg.Cast.Tool != "mycatt" {
		t.Fatalf("tool = %q, want mycatt", cfg.Cast.Tool)
	}
	if cfg.Remote.DebounceWindow() != 5*time.Second {
		t.Fatalf("debounce window = %v, want 5s", cfg.Remote.DebounceWindow())
	}
	// Untouched sections keep their defaults.
	if cfg.Cast.MaxAttempts != defaultMaxAttempts {
		t.Fatalf("max attempts = %d, want default %d", cfg.Cast.MaxAttempts, defaultMaxAttempts)
	}
	if cfg.IPC.SocketPath != defaultSocketPath {
		t.Fatalf("socket = %q, want default", cfg.IPC.SocketPath)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}
}

func TestLoadConfigFile_UnknownFieldRejected(t *testing.T) {
	path := writeTempConfig(t, `
cast:
  tool: catt
  retry_count: 3
`)

	if _, err := LoadConfigFile(path); err == nil {
		t.Fatal("expected error for unknown field")
	}
}

func TestLoadConfigFile_TrailingDocumentRejected(t *testing.T) {
	path := writeTempConfig(t, `
cast:
  tool: catt
---
cast:
  tool: other
`)

	if _, err := LoadConfigFile(path); err == nil {
		t.Fatal("expected error for trailing document")
	}
}

func TestConfigValidate_BindingToUndefinedAction(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Remote.Bindings = map[string]string{"c": "ghost"}

	err := cfg.Validate()
	if err == nil || !strings.Contains(err.Error(), "undefined action") {
		t.Fatalf("expected undefined-action error, got %v", err)
	}
}

func TestConfigValidate_VolumeActionArity(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Remote.Keys = map[string]KeyAction{
		"louder": {Method: "volume_up", Params: []string{"5", "6"}},
	}

	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for volume action with two parameters")
	}

	cfg.Remote.Keys["louder"] = KeyAction{Method: "volume_up", Params: []string{"loud"}}
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for non-numeric volume parameter")
	}
}

func TestConfigValidate_UnknownMethod(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Remote.Keys = map[string]KeyAction{
		"weird": {Method: "teleport"},
	}

	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for unknown method")
	}
}

func TestFlagOverrides_PointerMeansSet(t *testing.T) {
	cfg := DefaultConfig()

	tool := "other-tool"
	port := 0
	FlagOverrides{CastTool: &tool, HTTPPort: &port}.Apply(&cfg)

	if cfg.Cast.Tool != "other-tool" {
		t.Fatalf("tool = %q, want other-tool", cfg.Cast.Tool)
	}
	// Zero values are applied when the pointer is set.
	if cfg.HTTP.Port != 0 {
		t.Fatalf("port = %d, want 0", cfg.HTTP.Port)
	}
	// Unset pointers leave the config alone.
	if cfg.IPC.SocketPath != defaultSocketPath {
		t.Fatalf("socket = %q, want default", cfg.IPC.SocketPath)
	}
}

func TestExpandPath(t *testing.T) {
	home, err := os.UserHomeDir()
	if err != nil {
		t.Skipf("no home dir: %v", err)
	}

	if got := ExpandPath("~/media"); got != filepath.Join(home, "media") {
		t.Fatalf("ExpandPath(~/media) = %q", got)
	}
	if got := ExpandPath("~"); got != home {
		t.Fatalf("ExpandPath(~) = %q", got)
	}
	if got := ExpandPath("/abs/path"); got != "/abs/path" {
		t.Fatalf("ExpandPath(/abs/path) = %q", got)
	}
	if got := ExpandPath("rel/path"); got != "rel/path" {
		t.Fatalf("ExpandPath(rel/path) = %q", got)
	}
}
