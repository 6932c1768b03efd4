package main

// Daemon defaults. Everything here is overridable via the config file.
const (
	defaultSocketPath = "~/.castremote/event.sock"
	defaultHTTPPort   = 9843

	// Same key within this window is treated as switch bounce / an impatient
	// finger, not a new request.
	defaultDebounceWindowSec = 30.0

	// A supervised playback that dies before this has not really started.
	defaultMinExecTimeSec = 180.0
	defaultMaxAttempts    = 3

	// Pause between follow-up video enqueues so the device finishes
	// registering the previous one.
	defaultEnqueueDelaySec = 2.0

	defaultMaxEnqueuedVideos = 3
)

// Wire protocol limits for the unix-socket control channel.
const (
	// maxFrameSize bounds a single length-prefixed frame. Events are small
	// JSON documents; anything past this is a broken or hostile client.
	maxFrameSize = 1 << 20
)

// Linux input event types and codes (from <linux/input.h>)
const (
	EV_KEY = 0x01
)

// Input event value constants
const (
	evValueRelease = 0
	evValuePress   = 1
	evValueRepeat  = 2
)
