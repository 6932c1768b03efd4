package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
)

// ============================================================================
// HTTP Server
// ============================================================================
// Local observability surface: Prometheus metrics, a health probe, the status
// snapshot, and the websocket status stream. No control endpoints live here;
// event injection goes through the unix socket only.
// ============================================================================

// runHTTPServer starts the HTTP server on the specified port and shuts it down
// gracefully when ctx is canceled. Port 0 disables the server.
func runHTTPServer(ctx context.Context, port int, queue *EventQueue, tracker *StatusTracker, hub *Hub, metrics *Metrics, logger *slog.Logger) error {
	if port == 0 {
		logger.Info("HTTP server disabled")
		<-ctx.Done()
		return nil
	}

	r := chi.NewRouter()

	r.Get("/metrics", func(w http.ResponseWriter, req *http.Request) {
		metrics.Handler(func() {
			metrics.SetQueueDepth(queue.Len())
		}).ServeHTTP(w, req)
	})

	r.Get("/healthz", func(w http.ResponseWriter, req *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok\n"))
	})

	r.Get("/status", func(w http.ResponseWriter, req *http.Request) {
		snap := tracker.Snapshot()
		snap.QueueDepth = queue.Len()

		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(snap); err != nil {
			logger.Warn("status encode failed", "error", err)
		}
	})

	r.Get("/ws", handleStatusWS(hub, tracker, logger))

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", port),
		Handler: r,
	}

	logger.Info("HTTP server listening", "port", port)

	errCh := make(chan error, 1)

	go func() {
		// ListenAndServe returns http.ErrServerClosed on Shutdown; treat that as clean exit.
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("HTTP server: %w", err)
			return
		}
		errCh <- nil
	}()

	select {
	case <-ctx.Done():
		// Graceful shutdown with a timeout.
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("HTTP server shutdown: %w", err)
		}
		// Wait for the ListenAndServe goroutine to return.
		_ = <-errCh
		return nil

	case err := <-errCh:
		return err
	}
}
