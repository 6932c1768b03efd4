//go:build linux

package main

import (
	"bytes"
	"context"
	"encoding/binary"
	"fmt"
	"log/slog"
	"os"
	"syscall"

	"golang.org/x/sys/unix"
)

// inputEvent represents a Linux input event structure
// struct input_event { struct timeval time; __u16 type; __u16 code; __s32 value; };
type inputEvent struct {
	Sec   int64
	Usec  int64
	Type  uint16
	Code  uint16
	Value int32
}

// keyNames maps Linux key codes (from <linux/input-event-codes.h>) to the key
// identifiers used in remote.bindings. Only keys a numeric/alpha remote can
// emit are mapped; unmapped codes are ignored at the source.
var keyNames = map[uint16]string{
	2: "1", 3: "2", 4: "3", 5: "4", 6: "5",
	7: "6", 8: "7", 9: "8", 10: "9", 11: "0",

	16: "q", 17: "w", 18: "e", 19: "r", 20: "t",
	21: "y", 22: "u", 23: "i", 24: "o", 25: "p",
	30: "a", 31: "s", 32: "d", 33: "f", 34: "g",
	35: "h", 36: "j", 37: "k", 38: "l",
	44: "z", 45: "x", 46: "c", 47: "v", 48: "b",
	49: "n", 50: "m",

	28: "enter", 57: "space",
	113: "mute", 114: "volumedown", 115: "volumeup",
}

// runInputBridge opens the configured input devices and feeds key presses
// into the event queue as keyboard events. It returns when ctx is canceled
// or a device fails.
//
// A single goroutine multiplexes all devices via epoll; the kernel wakes us
// only when one of them has data.
func runInputBridge(ctx context.Context, devices []string, queue *EventQueue, logger *slog.Logger) error {
	if len(devices) == 0 {
		logger.Info("no input devices configured, control channel only")
		<-ctx.Done()
		return nil
	}

	files := make([]*os.File, 0, len(devices))
	defer func() {
		for _, f := range files {
			_ = f.Close()
		}
	}()

	for _, dev := range devices {
		f, err := os.Open(ExpandPath(dev))
		if err != nil {
			return fmt.Errorf("open input device: %w", err)
		}
		files = append(files, f)
		logger.Info("reading input device", "device", dev)
	}

	raw := make(chan inputEvent, 16)
	readErr := make(chan error, 1)
	go readInputDevices(files, raw, readErr)

	for {
		select {
		case <-ctx.Done():
			return nil
		case err := <-readErr:
			return fmt.Errorf("input bridge: %w", err)
		case ev := <-raw:
			if ev.Type != EV_KEY || ev.Value != evValuePress {
				continue
			}
			name, ok := keyNames[ev.Code]
			if !ok {
				logger.Debug("unmapped key code", "code", ev.Code)
				continue
			}
			queue.Put(EventKindKeyboard, map[string]any{"key": name})
		}
	}
}

// readInputDevices reads from multiple input devices using epoll and sends
// raw events to a channel. Any device error is fatal for the whole bridge;
// the daemon task group decides whether that brings the process down.
func readInputDevices(files []*os.File, events chan<- inputEvent, readErr chan<- error) {
	epfd, err := unix.EpollCreate1(0)
	if err != nil {
		readErr <- fmt.Errorf("epoll_create1: %w", err)
		return
	}
	defer unix.Close(epfd)

	fdToFile := make(map[int]*os.File)
	for _, f := range files {
		fd := int(f.Fd())
		fdToFile[fd] = f

		event := unix.EpollEvent{
			Events: unix.EPOLLIN,
			Fd:     int32(fd),
		}
		if err := unix.EpollCtl(epfd, unix.EPOLL_CTL_ADD, fd, &event); err != nil {
			readErr <- fmt.Errorf("epoll_ctl_add fd=%d: %w", fd, err)
			return
		}
	}

	const maxEvents = 32
	epollEvents := make([]unix.EpollEvent, maxEvents)
	evSize := binary.Size(inputEvent{})
	buf := make([]byte, evSize)
	reader := bytes.NewReader(buf)

	for {
		n, err := unix.EpollWait(epfd, epollEvents, -1)
		if err != nil {
			if err == syscall.EINTR {
				continue
			}
			readErr <- fmt.Errorf("epoll_wait: %w", err)
			return
		}

		for i := 0; i < n; i++ {
			fd := int(epollEvents[i].Fd)
			f := fdToFile[fd]

			if epollEvents[i].Events&(unix.EPOLLERR|unix.EPOLLHUP) != 0 {
				readErr <- fmt.Errorf("device error/hangup: %s (fd=%d)", f.Name(), fd)
				return
			}

			if _, err := f.Read(buf); err != nil {
				readErr <- fmt.Errorf("read from %s: %w", f.Name(), err)
				return
			}

			reader.Reset(buf)
			var ev inputEvent
			if err := binary.Read(reader, binary.LittleEndian, &ev); err != nil {
				// Skip malformed events
				continue
			}

			events <- ev
		}
	}
}
