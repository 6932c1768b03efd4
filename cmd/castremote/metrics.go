package main

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds Prometheus counters and gauges for the daemon.
type Metrics struct {
	registry *prometheus.Registry

	eventsDispatchedTotal prometheus.Counter
	eventsDebouncedTotal  prometheus.Counter
	eventsDroppedTotal    prometheus.Counter
	spawnErrorsTotal      prometheus.Counter
	earlyExitRetriesTotal prometheus.Counter
	ipcRequestsTotal      prometheus.Counter
	ipcErrorsTotal        prometheus.Counter
	queueDepth            prometheus.Gauge
}

// NewMetrics creates and registers the daemon metrics on a private registry.
func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()

	eventsDispatchedTotal := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "castremote_events_dispatched_total",
		Help: "Total number of events accepted and dispatched to an action",
	})
	eventsDebouncedTotal := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "castremote_events_debounced_total",
		Help: "Total number of events suppressed by the debounce window",
	})
	eventsDroppedTotal := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "castremote_events_dropped_total",
		Help: "Total number of events dropped (unknown key or method)",
	})
	spawnErrorsTotal := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "castremote_spawn_errors_total",
		Help: "Total number of external process spawn failures",
	})
	earlyExitRetriesTotal := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "castremote_early_exit_retries_total",
		Help: "Total number of supervised relaunches after an early exit",
	})
	ipcRequestsTotal := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "castremote_ipc_requests_total",
		Help: "Total number of control channel requests received",
	})
	ipcErrorsTotal := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "castremote_ipc_errors_total",
		Help: "Total number of malformed control channel requests",
	})
	queueDepth := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "castremote_queue_depth",
		Help: "Number of events waiting in the event queue",
	})

	registry.MustRegister(
		eventsDispatchedTotal,
		eventsDebouncedTotal,
		eventsDroppedTotal,
		spawnErrorsTotal,
		earlyExitRetriesTotal,
		ipcRequestsTotal,
		ipcErrorsTotal,
		queueDepth,
	)

	return &Metrics{
		registry:              registry,
		eventsDispatchedTotal: eventsDispatchedTotal,
		eventsDebouncedTotal:  eventsDebouncedTotal,
		eventsDroppedTotal:    eventsDroppedTotal,
		spawnErrorsTotal:      spawnErrorsTotal,
		earlyExitRetriesTotal: earlyExitRetriesTotal,
		ipcRequestsTotal:      ipcRequestsTotal,
		ipcErrorsTotal:        ipcErrorsTotal,
		queueDepth:            queueDepth,
	}
}

// IncDispatched increments the dispatched events counter.
func (m *Metrics) IncDispatched() { m.eventsDispatchedTotal.Inc() }

// IncDebounced increments the debounced events counter.
func (m *Metrics) IncDebounced() { m.eventsDebouncedTotal.Inc() }

// IncDropped increments the dropped events counter.
func (m *Metrics) IncDropped() { m.eventsDroppedTotal.Inc() }

// IncSpawnErrors increments the spawn failure counter.
func (m *Metrics) IncSpawnErrors() { m.spawnErrorsTotal.Inc() }

// IncEarlyExitRetries increments the supervised relaunch counter.
func (m *Metrics) IncEarlyExitRetries() { m.earlyExitRetriesTotal.Inc() }

// IncIPCRequests increments the control channel request counter.
func (m *Metrics) IncIPCRequests() { m.ipcRequestsTotal.Inc() }

// IncIPCErrors increments the control channel error counter.
func (m *Metrics) IncIPCErrors() { m.ipcErrorsTotal.Inc() }

// SetQueueDepth sets the queue depth gauge.
func (m *Metrics) SetQueueDepth(n int) { m.queueDepth.Set(float64(n)) }

// Handler returns an http.Handler that serves the registry.
// updateGauges is called before each scrape to refresh gauge values.
func (m *Metrics) Handler(updateGauges func()) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if updateGauges != nil {
			updateGauges()
		}
		promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{}).ServeHTTP(w, r)
	})
}
