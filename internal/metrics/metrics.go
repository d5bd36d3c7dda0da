package metrics

import (
	"errors"
	"net/http"
	"sync/atomic"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Package-level Prometheus collectors. They are registered via Register.
var (
	regOK atomic.Bool

	ingests = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "tracklink",
			Subsystem: "relay",
			Name:      "ingests_total",
			Help:      "Number of position reports ingested.",
		},
	)
	statusBroadcasts = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "tracklink",
			Subsystem: "relay",
			Name:      "status_broadcasts_total",
			Help:      "Number of system-wide status broadcasts fired.",
		},
	)
	deliveries = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "tracklink",
			Subsystem: "relay",
			Name:      "deliveries_total",
			Help:      "Number of events enqueued for observers.",
		},
	)
	dropped = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "tracklink",
			Subsystem: "relay",
			Name:      "deliveries_dropped_total",
			Help:      "Events dropped because an observer queue was full.",
		},
	)
	links = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "tracklink",
			Subsystem: "registry",
			Name:      "links",
			Help:      "Current number of tracking links.",
		},
	)
	observers = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "tracklink",
			Subsystem: "relay",
			Name:      "observers",
			Help:      "Currently connected observers.",
		},
	)
)

// Register registers all metrics with the provided registerer.
// It is safe to call multiple times; subsequent calls after success are no-ops.
func Register(r prometheus.Registerer) error {
	if regOK.Load() {
		return nil
	}
	cs := []prometheus.Collector{ingests, statusBroadcasts, deliveries, dropped, links, observers}
	for _, c := range cs {
		if err := r.Register(c); err != nil {
			// If already registered, ignore (allows double Register with default registry)
			var are prometheus.AlreadyRegisteredError
			if errors.As(err, &are) {
				continue
			}
			return err
		}
	}
	regOK.Store(true)
	return nil
}

// Handler returns an http.Handler that serves Prometheus metrics for the DefaultGatherer.
// The caller is responsible for starting an HTTP server and wiring the route.
func Handler() http.Handler { return promhttp.Handler() }

// Below are lightweight helpers used by internal packages to record metrics.
// They no-op if Register hasn't been called.

func IncIngest() {
	if regOK.Load() {
		ingests.Inc()
	}
}

func IncStatusBroadcast() {
	if regOK.Load() {
		statusBroadcasts.Inc()
	}
}

func IncDelivery() {
	if regOK.Load() {
		deliveries.Inc()
	}
}

func IncDropped() {
	if regOK.Load() {
		dropped.Inc()
	}
}

func SetLinks(n int) {
	if regOK.Load() {
		links.Set(float64(n))
	}
}

func SetObservers(n int) {
	if regOK.Load() {
		observers.Set(float64(n))
	}
}
