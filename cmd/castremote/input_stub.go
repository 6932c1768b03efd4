//go:build !linux

package main

import (
	"context"
	"errors"
	"log/slog"
)

// Input device reading relies on the Linux evdev interface. On other
// platforms the daemon still runs, but only the control socket can inject
// events.
func runInputBridge(ctx context.Context, devices []string, queue *EventQueue, logger *slog.Logger) error {
	if len(devices) > 0 {
		return errors.New("input devices are only supported on linux")
	}
	logger.Info("no input devices configured, control channel only")
	<-ctx.Done()
	return nil
}
