package main

import (
	"encoding/json"
	"fmt"
	"log"
	"net/url"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/gorilla/websocket"
	flag "github.com/spf13/pflag"
)

// castwatch tails the status stream of a running castremote daemon and
// prints state changes. Useful for debugging key bindings and watching
// what the remote is doing from another terminal.

type statusMessage struct {
	Type string          `json:"type"`
	Ts   *time.Time      `json:"ts,omitempty"`
	Data json.RawMessage `json:"data,omitempty"`
}

func main() {
	var (
		wsURL = flag.String("ws", "ws://127.0.0.1:9843/ws", "castremote status websocket URL")
		raw   = flag.BoolP("raw", "r", false, "print raw JSON frames instead of formatted lines")
	)
	flag.Parse()

	u, err := url.Parse(*wsURL)
	if err != nil {
		log.Fatalf("invalid websocket URL: %v", err)
	}

	sigc := make(chan os.Signal, 1)
	signal.Notify(sigc, syscall.SIGINT, syscall.SIGTERM)

	d := websocket.Dialer{
		HandshakeTimeout: 5 * time.Second,
	}

	log.Printf("connecting to %s...", u.String())
	conn, _, err := d.Dial(u.String(), nil)
	if err != nil {
		log.Fatalf("failed to connect: %v", err)
	}
	defer conn.Close()

	log.Printf("connected! (press Ctrl+C to exit)")

	// Mutex to protect concurrent writes to websocket
	var writeMu sync.Mutex

	// Ping/pong keepalive
	conn.SetReadDeadline(time.Now().Add(60 * time.Second))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(60 * time.Second))
		return nil
	})

	pingTicker := time.NewTicker(30 * time.Second)
	defer pingTicker.Stop()

	go func() {
		for range pingTicker.C {
			writeMu.Lock()
			err := conn.WriteMessage(websocket.PingMessage, nil)
			writeMu.Unlock()
			if err != nil {
				log.Printf("ping failed: %v", err)
				return
			}
		}
	}()

	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			messageType, message, err := conn.ReadMessage()
			if err != nil {
				if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
					log.Printf("websocket error: %v", err)
				}
				return
			}

			if messageType != websocket.TextMessage {
				continue
			}
			if *raw {
				fmt.Printf("%s\n", string(message))
				continue
			}
			printStatusMessage(message)
		}
	}()

	select {
	case <-sigc:
		log.Printf("shutting down...")
		writeMu.Lock()
		err := conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
		writeMu.Unlock()
		if err != nil {
			log.Printf("error closing connection: %v", err)
		}
	case <-done:
		log.Printf("connection closed")
	}
}

// printStatusMessage formats one envelope into a human-readable line.
func printStatusMessage(message []byte) {
	var msg statusMessage
	if err := json.Unmarshal(message, &msg); err != nil {
		fmt.Printf("[TEXT] %s\n", string(message))
		return
	}

	switch msg.Type {
	case "status_init":
		pretty, _ := json.MarshalIndent(json.RawMessage(msg.Data), "", "  ")
		fmt.Printf("[INIT]\n%s\n\n", string(pretty))

	case "event_dispatched":
		var data struct {
			EventKind string `json:"event_kind"`
		}
		_ = json.Unmarshal(msg.Data, &data)
		fmt.Printf("[EVENT] %s\n", data.EventKind)

	case "command_changed":
		var data struct {
			Argv []string `json:"argv"`
		}
		_ = json.Unmarshal(msg.Data, &data)
		if len(data.Argv) == 0 {
			fmt.Printf("[COMMAND] (idle)\n")
		} else {
			fmt.Printf("[COMMAND] %v\n", data.Argv)
		}

	default:
		pretty, _ := json.MarshalIndent(json.RawMessage(msg.Data), "", "  ")
		fmt.Printf("[%s]\n%s\n\n", msg.Type, string(pretty))
	}
}
