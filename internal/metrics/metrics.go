// Package metrics wraps the Prometheus collectors that mirror the
// broker's stats record and resource samples for scraping. This is
// purely observational: nothing in this package can reject or
// throttle a connection, and it never substitutes for the literal
// five-line stats report the wire protocol mandates.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"psbroker/internal/stats"
)

// Registry holds the Prometheus collectors exposed by the broker.
type Registry struct {
	ConnectedClients prometheus.Gauge
	CompletedClients prometheus.Counter
	PubOperations    prometheus.Counter
	SubOperations    prometheus.Counter
	UnsubOperations  prometheus.Counter

	CPUPercent  prometheus.Gauge
	MemoryBytes prometheus.Gauge

	lastSnapshot stats.Snapshot
}

// NewRegistry registers and returns the broker's Prometheus
// collectors.
func NewRegistry() *Registry {
	return &Registry{
		ConnectedClients: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "psbroker_connected_clients",
			Help: "Number of currently connected client sessions.",
		}),
		CompletedClients: promauto.NewCounter(prometheus.CounterOpts{
			Name: "psbroker_completed_clients_total",
			Help: "Total number of client sessions that have torn down.",
		}),
		PubOperations: promauto.NewCounter(prometheus.CounterOpts{
			Name: "psbroker_pub_operations_total",
			Help: "Total number of valid pub commands processed.",
		}),
		SubOperations: promauto.NewCounter(prometheus.CounterOpts{
			Name: "psbroker_sub_operations_total",
			Help: "Total number of valid sub commands processed.",
		}),
		UnsubOperations: promauto.NewCounter(prometheus.CounterOpts{
			Name: "psbroker_unsub_operations_total",
			Help: "Total number of unsub commands that actually removed a subscription.",
		}),
		CPUPercent: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "psbroker_cpu_percent",
			Help: "Most recent system-wide CPU usage sample across all CPUs, in percent.",
		}),
		MemoryBytes: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "psbroker_memory_bytes",
			Help: "Most recent sample of Go heap bytes allocated by the process, in bytes.",
		}),
	}
}

// MirrorSnapshot copies a stats.Snapshot into the corresponding
// Prometheus collectors. Counters only move forward, so this tracks
// the delta against the last mirrored snapshot rather than re-setting
// absolute values on collectors that Prometheus models as
// monotonic counters.
func (r *Registry) MirrorSnapshot(snap stats.Snapshot) {
	r.ConnectedClients.Set(float64(snap.ConnectedClients))

	if delta := snap.CompletedClients - r.lastSnapshot.CompletedClients; delta > 0 {
		r.CompletedClients.Add(float64(delta))
	}
	if delta := snap.PubOperations - r.lastSnapshot.PubOperations; delta > 0 {
		r.PubOperations.Add(float64(delta))
	}
	if delta := snap.SubOperations - r.lastSnapshot.SubOperations; delta > 0 {
		r.SubOperations.Add(float64(delta))
	}
	if delta := snap.UnsubOperations - r.lastSnapshot.UnsubOperations; delta > 0 {
		r.UnsubOperations.Add(float64(delta))
	}

	r.lastSnapshot = snap
}

// Handler returns an HTTP handler exposing the registry in the
// Prometheus exposition format.
func (r *Registry) Handler() http.Handler {
	return promhttp.Handler()
}
