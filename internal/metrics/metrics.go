// Package metrics registers the Prometheus metrics used by the aggregator.
// Import this package (via blank import, or just by calling into it) from
// the server entry point to register all metrics before the /metrics
// handler is mounted.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// CatalogSize reports the number of models currently held by the store.
	CatalogSize = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "aggregator_catalog_size",
			Help: "Number of models currently known to the catalog.",
		},
	)

	// QueueLength reports the number of models pending enrichment.
	QueueLength = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "aggregator_queue_length",
			Help: "Number of models currently queued for enrichment.",
		},
	)

	// EnrichDuration observes the wall-clock time of enriching one model
	// within an EnrichBatch call.
	EnrichDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "aggregator_enrich_duration_seconds",
			Help:    "Duration of enriching one model in seconds.",
			Buckets: []float64{.1, .25, .5, 1, 2.5, 5, 10, 30, 60},
		},
		[]string{"outcome"},
	)

	// ProviderFetchErrors counts fetch failures by provider and error kind
	// ("http_status", "connection", "malformed_payload", "circuit_open").
	ProviderFetchErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "aggregator_provider_fetch_errors_total",
			Help: "Total provider fetch errors by provider and error kind.",
		},
		[]string{"provider", "error_kind"},
	)

	// ProviderCircuitState tracks per-provider circuit breaker state as a
	// gauge: 0 = closed, 1 = open, 2 = half_open.
	ProviderCircuitState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "aggregator_provider_circuit_state",
			Help: "Circuit breaker state per provider (0=closed 1=open 2=half_open).",
		},
		[]string{"provider"},
	)

	// RefreshDuration observes the wall-clock time of one refresh cycle
	// (aggregator fan-out plus store update).
	RefreshDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "aggregator_refresh_duration_seconds",
			Help:    "Duration of one provider refresh cycle in seconds.",
			Buckets: []float64{.05, .1, .25, .5, 1, 2.5, 5, 10, 30},
		},
	)
)
