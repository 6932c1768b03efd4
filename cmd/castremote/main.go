package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	flag "github.com/spf13/pflag"
	"golang.org/x/sync/errgroup"
)

const version = "1.0.0"

func printVersion() {
	fmt.Printf("castremote v%s\n", version)
	fmt.Println("Media remote daemon for casting to the living-room TV")
}

func printUsage() {
	printVersion()
	fmt.Println()
	fmt.Println("USAGE:")
	fmt.Println("  castremote start [OPTIONS]")
	fmt.Println("  castremote send-event [OPTIONS] <event_kind> [json-data]")
	fmt.Println()
	fmt.Println("DESCRIPTION:")
	fmt.Println("  Daemon that turns key presses (via Linux input devices) and injected")
	fmt.Println("  control-socket events into cast-tool invocations: play a YouTube")
	fmt.Println("  video, a local file, a URL, or step the volume.")
	fmt.Println()
	fmt.Println("SUBCOMMANDS:")
	fmt.Println("  start")
	fmt.Println("        Run the daemon")
	fmt.Println("  send-event")
	fmt.Println("        Inject one event into a running daemon over the control socket")
	fmt.Println()
	fmt.Println("EXAMPLES:")
	fmt.Println("  # Start daemon with a config file")
	fmt.Println("  castremote start --config ~/.castremote/config.yaml")
	fmt.Println()
	fmt.Println("  # Simulate a key press")
	fmt.Println("  castremote send-event keyboard_input '{\"key\": \"c\"}'")
	fmt.Println()
	fmt.Println("  # Inject a playback request directly")
	fmt.Println("  castremote send-event youtube dQw4w9WgXcQ --max-enqueued-videos 2")
	fmt.Println()
	fmt.Println("NOTES:")
	fmt.Println("  - Reading input devices requires read access (run as root or add")
	fmt.Println("    the user to the 'input' group)")
	fmt.Println("  - The cast tool (catt by default) must be on PATH")
	fmt.Println()
}

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(2)
	}

	switch os.Args[1] {
	case "start":
		runStart(os.Args[2:])
	case "send-event":
		runSendEvent(os.Args[2:])
	case "-version", "--version", "version":
		printVersion()
	case "-help", "--help", "-h", "help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "unknown subcommand: %s\n\n", os.Args[1])
		printUsage()
		os.Exit(2)
	}
}

// runStart wires up and runs the daemon until a signal arrives or a
// component fails.
func runStart(args []string) {
	fs := flag.NewFlagSet("start", flag.ExitOnError)
	fs.Usage = printUsage

	configPath := fs.String("config", "", "path to YAML config file")
	castTool := fs.String("cast-tool", "", "cast tool binary (overrides config)")
	socketPath := fs.String("socket", "", "control socket path (overrides config)")
	httpPort := fs.Int("http-port", 0, "metrics/status HTTP port, 0 disables (overrides config)")
	inputDevice := fs.String("input-device", "", "Linux input event device (overrides config)")
	debounceSec := fs.Float64("debounce-sec", 0, "debounce window in seconds (overrides config)")
	logLevelStr := fs.String("log-level", "", "log level: error, warn, info, debug (overrides config)")

	_ = fs.Parse(args)

	cfg := DefaultConfig()
	if *configPath != "" {
		var err error
		cfg, err = LoadConfigFile(*configPath)
		if err != nil {
			fmt.Fprintln(os.Stderr, "error:", err)
			os.Exit(1)
		}
	}

	LoadEnvOverrides(&cfg)

	overrides := FlagOverrides{}
	if fs.Changed("cast-tool") {
		overrides.CastTool = castTool
	}
	if fs.Changed("socket") {
		overrides.IPCSocketPath = socketPath
	}
	if fs.Changed("http-port") {
		overrides.HTTPPort = httpPort
	}
	if fs.Changed("input-device") {
		overrides.InputDevice = inputDevice
	}
	if fs.Changed("debounce-sec") {
		overrides.DebounceSec = debounceSec
	}
	if fs.Changed("log-level") {
		overrides.LogLevel = logLevelStr
	}
	overrides.Apply(&cfg)

	if err := cfg.Validate(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}

	logLevel, err := parseLogLevel(cfg.Logging.Level)
	if err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
	logger := setupLogger(logLevel)

	metrics := NewMetrics()
	queue := NewEventQueue()
	hub := NewHub(logger, HubConfig{})
	tracker := NewStatusTracker(hub, logger)
	sup := NewSupervisor(NewExecRunner(), logger, metrics)
	dispatcher := NewDispatcher(cfg, sup, logger, metrics)

	logger.Info("starting castremote", "version", version,
		"cast_tool", cfg.Cast.Tool,
		"socket", cfg.IPC.SocketPath,
		"http_port", cfg.HTTP.Port,
		"input_devices", cfg.Input.Devices,
		"debounce_window_sec", cfg.Remote.DebounceWindowSec,
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return runDispatchLoop(ctx, queue, dispatcher, sup, tracker, logger)
	})
	g.Go(func() error {
		return runIPCServer(ctx, cfg.IPC.SocketPath, queue, metrics, logger)
	})
	g.Go(func() error {
		return runInputBridge(ctx, cfg.Input.Devices, queue, logger)
	})
	g.Go(func() error {
		return runHTTPServer(ctx, cfg.HTTP.Port, queue, tracker, hub, metrics, logger)
	})
	g.Go(func() error {
		hub.Run(ctx)
		return nil
	})

	if err := g.Wait(); err != nil {
		logger.Error("daemon stopped", "error", err)
		os.Exit(1)
	}

	logger.Info("daemon stopped")
}

// runSendEvent injects one event into a running daemon. Exit status reports
// whether the daemon acknowledged it.
//
// Positional arguments after the kind become the event's params. A single
// argument that looks like a JSON object is used as the event data verbatim,
// for callers that need fields beyond params.
func runSendEvent(args []string) {
	fs := flag.NewFlagSet("send-event", flag.ExitOnError)
	fs.Usage = printUsage

	socketPath := fs.String("socket", defaultSocketPath, "control socket path")
	logLevelStr := fs.String("log-level", "warn", "log level: error, warn, info, debug")
	maxEnqueued := fs.Int("max-enqueued-videos", -1, "follow-up enqueue budget for youtube events")

	_ = fs.Parse(args)

	rest := fs.Args()
	if len(rest) < 1 {
		fmt.Fprintln(os.Stderr, "usage: castremote send-event [OPTIONS] <event_kind> [data...]")
		os.Exit(2)
	}

	kind := rest[0]
	data := map[string]any{}
	if len(rest) == 2 && strings.HasPrefix(rest[1], "{") {
		if err := json.Unmarshal([]byte(rest[1]), &data); err != nil {
			fmt.Fprintln(os.Stderr, "error: data is not a JSON object:", err)
			os.Exit(2)
		}
	} else if len(rest) > 1 {
		data["params"] = rest[1:]
	}
	if *maxEnqueued >= 0 {
		data["max_enqueued_videos"] = *maxEnqueued
	}

	logLevel, err := parseLogLevel(*logLevelStr)
	if err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
	logger := setupLogger(logLevel)

	if !SendEvent(*socketPath, kind, data, logger) {
		fmt.Fprintln(os.Stderr, "event not delivered")
		os.Exit(1)
	}
	fmt.Println("OK")
}
