// Package metrics provides Prometheus metrics for the country snapshot and upstream client.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Snapshot lookup outcomes.
const (
	OutcomeHit  = "hit"
	OutcomeMiss = "miss"
)

type Metrics struct {
	SnapshotLookupsTotal   *prometheus.CounterVec // hit or miss
	SnapshotRefreshesTotal *prometheus.CounterVec // success or failure
	SnapshotRecords        prometheus.Gauge
	SnapshotFetchedAt      prometheus.Gauge // unix seconds of the last successful refresh

	UpstreamRequestsTotal   *prometheus.CounterVec   // by endpoint and result category
	UpstreamDurationSeconds *prometheus.HistogramVec // by endpoint
	CircuitOpen             prometheus.Gauge
}

// New registers the countries metrics on reg. A nil reg uses the default registerer.
func New(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)
	return &Metrics{
		SnapshotLookupsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "atlas_snapshot_lookups_total",
			Help: "Snapshot reads by outcome (hit, miss)",
		}, []string{"outcome"}),
		SnapshotRefreshesTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "atlas_snapshot_refreshes_total",
			Help: "Snapshot refresh attempts by result (success, failure)",
		}, []string{"result"}),
		SnapshotRecords: factory.NewGauge(prometheus.GaugeOpts{
			Name: "atlas_snapshot_records",
			Help: "Number of country records in the current snapshot",
		}),
		SnapshotFetchedAt: factory.NewGauge(prometheus.GaugeOpts{
			Name: "atlas_snapshot_fetched_at_seconds",
			Help: "Unix time of the last successful snapshot refresh",
		}),
		UpstreamRequestsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "atlas_upstream_requests_total",
			Help: "Upstream requests by endpoint and result category",
		}, []string{"endpoint", "result"}),
		UpstreamDurationSeconds: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "atlas_upstream_request_duration_seconds",
			Help:    "Duration of upstream requests by endpoint",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		}, []string{"endpoint"}),
		CircuitOpen: factory.NewGauge(prometheus.GaugeOpts{
			Name: "atlas_upstream_circuit_open",
			Help: "1 while the upstream circuit breaker is open",
		}),
	}
}

func (m *Metrics) RecordLookup(hit bool) {
	if hit {
		m.SnapshotLookupsTotal.WithLabelValues(OutcomeHit).Inc()
		return
	}
	m.SnapshotLookupsTotal.WithLabelValues(OutcomeMiss).Inc()
}

// RecordRefresh records a refresh attempt. records and fetchedAt are only used on success.
func (m *Metrics) RecordRefresh(err error, records int, fetchedAt time.Time) {
	if err != nil {
		m.SnapshotRefreshesTotal.WithLabelValues("failure").Inc()
		return
	}
	m.SnapshotRefreshesTotal.WithLabelValues("success").Inc()
	m.SnapshotRecords.Set(float64(records))
	m.SnapshotFetchedAt.Set(float64(fetchedAt.Unix()))
}

func (m *Metrics) ObserveUpstream(endpoint, result string, d time.Duration) {
	m.UpstreamRequestsTotal.WithLabelValues(endpoint, result).Inc()
	m.UpstreamDurationSeconds.WithLabelValues(endpoint).Observe(d.Seconds())
}

func (m *Metrics) SetCircuitOpen(open bool) {
	if open {
		m.CircuitOpen.Set(1)
		return
	}
	m.CircuitOpen.Set(0)
}
