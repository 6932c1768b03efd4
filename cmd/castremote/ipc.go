package main

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"os"
	"path/filepath"
	"strings"
)

// ============================================================================
// IPC Server - Unix Domain Socket Control Channel
// ============================================================================
// The IPC server lets external clients inject events into the daemon's queue
// via a Unix domain socket. This enables:
//   - Remote control via the send-event subcommand
//   - Integration with home-automation scripts
//   - Testing without physical input devices
//
// Protocol: length-prefixed JSON frames
//   - Client sends: 4-byte big-endian payload length, then that many bytes of
//     UTF-8 JSON: {"event_kind": "...", "event_data": {...}}
//   - Server responds with a plain-text line: "OK\n" or "ERROR: <reason>\n"
//   - The connection is reused for further frames until the client closes it.
// ============================================================================

// ipcEnvelope is the on-the-wire shape of one injected event.
type ipcEnvelope struct {
	EventKind string         `json:"event_kind"`
	EventData map[string]any `json:"event_data"`
}

// runIPCServer starts the Unix domain socket server.
// It runs until ctx is canceled, at which point it closes the listener and exits.
//
// This function is context-aware so the main program can implement proper shutdown semantics.
func runIPCServer(ctx context.Context, socketPath string, queue *EventQueue, metrics *Metrics, logger *slog.Logger) error {
	socketPath = ExpandPath(socketPath)

	// The default socket lives under ~/.castremote; create the directory on
	// first run.
	if err := os.MkdirAll(filepath.Dir(socketPath), 0o755); err != nil {
		return fmt.Errorf("create socket directory: %w", err)
	}

	// Remove a stale socket file left behind by an unclean shutdown.
	if err := os.RemoveAll(socketPath); err != nil {
		return fmt.Errorf("remove existing socket: %w", err)
	}

	listener, err := net.Listen("unix", socketPath)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", socketPath, err)
	}
	defer listener.Close()
	defer os.Remove(socketPath)

	// Make socket accessible (consider security implications in production)
	if err := os.Chmod(socketPath, 0666); err != nil {
		return fmt.Errorf("chmod socket: %w", err)
	}

	logger.Info("IPC listening", "socket", socketPath)

	// Close the listener on shutdown. This unblocks Accept().
	go func() {
		<-ctx.Done()
		_ = listener.Close()
	}()

	for {
		conn, err := listener.Accept()
		if err != nil {
			// Exit cleanly on shutdown/close.
			if ctx.Err() != nil {
				logger.Debug("IPC listener closed (shutdown)")
				return nil
			}

			// Some platforms return net.ErrClosed; keep this defensive.
			if errors.Is(err, net.ErrClosed) || strings.Contains(err.Error(), "use of closed network connection") {
				logger.Debug("IPC listener closed")
				return nil
			}

			logger.Error("IPC accept error", "error", err)
			continue
		}

		go handleIPCConnection(conn, queue, metrics, logger)
	}
}

// handleIPCConnection serves length-prefixed frames on one client connection
// until the client closes it.
func handleIPCConnection(conn net.Conn, queue *EventQueue, metrics *Metrics, logger *slog.Logger) {
	defer conn.Close()

	logger.Debug("IPC connection opened")

	for {
		payload, err := readFrame(conn)
		if err != nil {
			if !errors.Is(err, io.EOF) {
				logger.Warn("IPC read error", "error", err)
				metrics.IncIPCErrors()
				// Framing is broken at this point; a reply could be
				// misinterpreted, so just drop the connection.
			}
			break
		}

		metrics.IncIPCRequests()

		ev, err := parseIPCEvent(payload)
		if err != nil {
			logger.Warn("IPC rejected event", "error", err)
			metrics.IncIPCErrors()
			writeIPCReply(conn, fmt.Sprintf("ERROR: %v\n", err), logger)
			continue
		}

		queue.Put(ev.Kind, ev.Data)
		logger.Debug("IPC event accepted", "kind", ev.Kind)
		writeIPCReply(conn, "OK\n", logger)
	}

	logger.Debug("IPC connection closed")
}

// readFrame reads one 4-byte big-endian length prefix and its payload.
func readFrame(conn net.Conn) ([]byte, error) {
	var header [4]byte
	if _, err := io.ReadFull(conn, header[:]); err != nil {
		// EOF here means the client closed between frames, which is the
		// normal end of a session.
		if errors.Is(err, io.EOF) {
			return nil, io.EOF
		}
		return nil, fmt.Errorf("read frame header: %w", err)
	}

	n := binary.BigEndian.Uint32(header[:])
	if n == 0 {
		return nil, errors.New("zero-length frame")
	}
	if n > maxFrameSize {
		return nil, fmt.Errorf("frame of %d bytes exceeds limit", n)
	}

	payload := make([]byte, n)
	if _, err := io.ReadFull(conn, payload); err != nil {
		return nil, fmt.Errorf("read frame payload: %w", err)
	}
	return payload, nil
}

// parseIPCEvent validates a frame payload and converts it into an Event.
func parseIPCEvent(payload []byte) (Event, error) {
	var env ipcEnvelope
	if err := json.Unmarshal(payload, &env); err != nil {
		return Event{}, fmt.Errorf("parse event: %v", err)
	}
	if env.EventKind == "" {
		return Event{}, errors.New("event_kind is required")
	}
	if env.EventData == nil {
		return Event{}, errors.New("event_data is required")
	}
	return Event{Kind: env.EventKind, Data: env.EventData}, nil
}

func writeIPCReply(conn net.Conn, reply string, logger *slog.Logger) {
	if _, err := io.WriteString(conn, reply); err != nil {
		logger.Error("IPC failed to send response", "error", err)
	}
}

// ============================================================================
// IPC Client
// ============================================================================

// SendEvent delivers one event to a running daemon over the control socket.
// It reports whether the daemon acknowledged the event. All failure modes
// (daemon not running, connect error, daemon rejection) are logged and
// reported as false rather than returned, so callers can fire-and-check.
func SendEvent(socketPath, kind string, data map[string]any, logger *slog.Logger) bool {
	socketPath = ExpandPath(socketPath)

	if _, err := os.Stat(socketPath); err != nil {
		logger.Warn("control socket not available", "socket", socketPath, "error", err)
		return false
	}

	conn, err := net.Dial("unix", socketPath)
	if err != nil {
		logger.Warn("connect to control socket", "socket", socketPath, "error", err)
		return false
	}
	defer conn.Close()

	if data == nil {
		data = map[string]any{}
	}
	payload, err := json.Marshal(ipcEnvelope{EventKind: kind, EventData: data})
	if err != nil {
		logger.Error("marshal event", "error", err)
		return false
	}

	var header [4]byte
	binary.BigEndian.PutUint32(header[:], uint32(len(payload)))
	if _, err := conn.Write(append(header[:], payload...)); err != nil {
		logger.Warn("send event", "error", err)
		return false
	}

	reply, err := readIPCReply(conn)
	if err != nil {
		logger.Warn("read reply", "error", err)
		return false
	}
	if reply != "OK" {
		logger.Warn("daemon rejected event", "reply", reply)
		return false
	}
	return true
}

// readIPCReply reads one newline-terminated reply line.
func readIPCReply(conn net.Conn) (string, error) {
	var buf []byte
	b := make([]byte, 1)
	for {
		if _, err := conn.Read(b); err != nil {
			return "", err
		}
		if b[0] == '\n' {
			return string(buf), nil
		}
		buf = append(buf, b[0])
		if len(buf) > 4096 {
			return "", errors.New("reply too long")
		}
	}
}
