package main

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config is the top-level YAML configuration for the castremote daemon.
//
// The config file is the primary configuration surface; flags exist for small
// overrides and for environments where a file is awkward. Defaults and
// validation are centralized here so the rest of the code can assume a
// well-formed config.
type Config struct {
	// Key bindings and actions
	Remote RemoteConfig `yaml:"remote"`

	// External cast tool invocation
	Cast CastConfig `yaml:"cast"`

	// Input devices feeding keyboard events
	Input InputConfig `yaml:"input"`

	// Control channel socket
	IPC IPCConfig `yaml:"ipc"`

	// Metrics / status HTTP listener
	HTTP HTTPConfig `yaml:"http"`

	// Logging
	Logging LoggingConfig `yaml:"logging"`
}

// RemoteConfig maps input keys to actions.
//
// Bindings maps a key identifier (e.g. "c") to an action name; Keys maps the
// action name to the method and parameters to run. Both are loaded once at
// daemon start and immutable afterwards.
type RemoteConfig struct {
	Bindings map[string]string    `yaml:"bindings"`
	Keys     map[string]KeyAction `yaml:"keys"`

	// DebounceWindowSec suppresses re-acceptance of the same key within the
	// window. Tens of seconds by default: a cheap cast must not be retriggered
	// by the event burst of one physical press.
	DebounceWindowSec float64 `yaml:"debounce_window_sec"`
}

// KeyAction is one configuration-derived action binding.
type KeyAction struct {
	Method            string   `yaml:"method"`
	Params            []string `yaml:"params"`
	MaxEnqueuedVideos int      `yaml:"max_enqueued_videos,omitempty"`
}

type CastConfig struct {
	// Tool is the external cast command (catt-compatible CLI).
	Tool string `yaml:"tool"`

	// MinExecTimeSec is how long a supervised playback must survive to count
	// as started; earlier exits are treated as false starts and relaunched.
	MinExecTimeSec float64 `yaml:"min_exec_time_sec"`

	// MaxAttempts bounds relaunches of a supervised command.
	MaxAttempts int `yaml:"max_attempts"`

	// EnqueueDelaySec is the pause between follow-up video enqueues.
	EnqueueDelaySec float64 `yaml:"enqueue_delay_sec"`

	// MaxEnqueuedVideos is the default follow-up budget for injected youtube
	// events that do not carry their own.
	MaxEnqueuedVideos int `yaml:"max_enqueued_videos"`
}

type InputConfig struct {
	// Devices lists Linux input event devices to read key presses from.
	// Empty means the daemon runs control-channel-only.
	Devices []string `yaml:"devices,omitempty"`
}

type IPCConfig struct {
	SocketPath string `yaml:"socket_path"`
}

type HTTPConfig struct {
	Port int `yaml:"port"`
}

type LoggingConfig struct {
	Level string `yaml:"level"`
}

// DebounceWindow returns the debounce window as a duration.
func (r RemoteConfig) DebounceWindow() time.Duration {
	return time.Duration(r.DebounceWindowSec * float64(time.Second))
}

// MinExecTime returns the supervised minimum execution time as a duration.
func (c CastConfig) MinExecTime() time.Duration {
	return time.Duration(c.MinExecTimeSec * float64(time.Second))
}

// EnqueueDelay returns the inter-enqueue delay as a duration.
func (c CastConfig) EnqueueDelay() time.Duration {
	return time.Duration(c.EnqueueDelaySec * float64(time.Second))
}

// DefaultConfig returns a fully-populated Config with defaults.
func DefaultConfig() Config {
	return Config{
		Remote: RemoteConfig{
			Bindings:          map[string]string{},
			Keys:              map[string]KeyAction{},
			DebounceWindowSec: defaultDebounceWindowSec,
		},
		Cast: CastConfig{
			Tool:              "catt",
			MinExecTimeSec:    defaultMinExecTimeSec,
			MaxAttempts:       defaultMaxAttempts,
			EnqueueDelaySec:   defaultEnqueueDelaySec,
			MaxEnqueuedVideos: defaultMaxEnqueuedVideos,
		},
		Input: InputConfig{},
		IPC: IPCConfig{
			SocketPath: defaultSocketPath,
		},
		HTTP: HTTPConfig{
			Port: defaultHTTPPort,
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// LoadConfigFile reads and parses a YAML config file.
//
// Unknown fields are rejected (helps catch typos) via KnownFields(true), and
// trailing documents are an error.
func LoadConfigFile(path string) (Config, error) {
	if path == "" {
		return Config{}, errors.New("config path is empty")
	}
	b, err := os.ReadFile(ExpandPath(path))
	if err != nil {
		return Config{}, fmt.Errorf("read config file: %w", err)
	}

	cfg := DefaultConfig()

	dec := yaml.NewDecoder(bytes.NewReader(b))
	dec.KnownFields(true)

	if err := dec.Decode(&cfg); err != nil {
		return Config{}, fmt.Errorf("decode config yaml: %w", err)
	}
	if err := dec.Decode(&struct{}{}); err == nil {
		return Config{}, fmt.Errorf("decode config yaml: unexpected trailing document")
	}

	return cfg, nil
}

// Validate checks cross-field constraints the decoder cannot express.
func (c Config) Validate() error {
	if c.Cast.Tool == "" {
		return errors.New("cast.tool must not be empty")
	}
	if c.Cast.MaxAttempts < 1 {
		return errors.New("cast.max_attempts must be >= 1")
	}
	if c.Cast.MinExecTimeSec < 0 {
		return errors.New("cast.min_exec_time_sec must be >= 0")
	}
	if c.Remote.DebounceWindowSec < 0 {
		return errors.New("remote.debounce_window_sec must be >= 0")
	}
	if c.HTTP.Port < 0 || c.HTTP.Port > 65535 {
		return errors.New("http.port must be a valid port")
	}
	for key, actionName := range c.Remote.Bindings {
		if _, ok := c.Remote.Keys[actionName]; !ok {
			return fmt.Errorf("remote.bindings[%s] points at undefined action %q", key, actionName)
		}
	}
	for name, action := range c.Remote.Keys {
		switch action.Method {
		case methodYouTube, methodVideo, methodURL, methodGlob:
		case methodVolumeUp, methodVolumeDown:
			if len(action.Params) != 1 {
				return fmt.Errorf("remote.keys[%s]: %s requires exactly one parameter", name, action.Method)
			}
			if _, err := strconv.Atoi(action.Params[0]); err != nil {
				return fmt.Errorf("remote.keys[%s]: %s parameter must be numeric", name, action.Method)
			}
		default:
			return fmt.Errorf("remote.keys[%s]: unknown method %q", name, action.Method)
		}
	}
	return nil
}

// FlagOverrides applies command-line overrides on top of a loaded config.
// A nil pointer means "not set"; a non-nil pointer is applied even when it
// carries a zero value.
type FlagOverrides struct {
	CastTool      *string
	IPCSocketPath *string
	HTTPPort      *int
	InputDevice   *string
	DebounceSec   *float64
	LogLevel      *string
}

// Apply merges the overrides into cfg.
func (o FlagOverrides) Apply(cfg *Config) {
	if cfg == nil {
		return
	}
	if o.CastTool != nil {
		cfg.Cast.Tool = *o.CastTool
	}
	if o.IPCSocketPath != nil {
		cfg.IPC.SocketPath = *o.IPCSocketPath
	}
	if o.HTTPPort != nil {
		cfg.HTTP.Port = *o.HTTPPort
	}
	if o.InputDevice != nil {
		cfg.Input.Devices = []string{*o.InputDevice}
	}
	if o.DebounceSec != nil {
		cfg.Remote.DebounceWindowSec = *o.DebounceSec
	}
	if o.LogLevel != nil {
		cfg.Logging.Level = *o.LogLevel
	}
}

// LoadEnvOverrides layers environment overrides (optionally from a .env file
// in the working directory) on top of cfg. Useful for systemd drop-ins and
// container deployments where editing the config file is awkward.
func LoadEnvOverrides(cfg *Config) {
	_ = godotenv.Load()

	if s := os.Getenv("CASTREMOTE_CAST_TOOL"); s != "" {
		cfg.Cast.Tool = s
	}
	if s := os.Getenv("CASTREMOTE_SOCKET"); s != "" {
		cfg.IPC.SocketPath = s
	}
	if s := os.Getenv("CASTREMOTE_HTTP_PORT"); s != "" {
		if n, err := strconv.Atoi(s); err == nil {
			cfg.HTTP.Port = n
		}
	}
	if s := os.Getenv("CASTREMOTE_LOG_LEVEL"); s != "" {
		cfg.Logging.Level = s
	}
}

// ExpandPath expands a leading "~" in a path using the current user's home
// directory. Paths without a leading "~" are returned unchanged.
func ExpandPath(p string) string {
	if p == "~" || strings.HasPrefix(p, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return p
		}
		if p == "~" {
			return home
		}
		return filepath.Join(home, p[2:])
	}
	return p
}
