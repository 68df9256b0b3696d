package request

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Metrics struct {
	EndpointLatency *prometheus.HistogramVec
	Requests        *prometheus.CounterVec
}

// NewMetrics registers the HTTP metrics on reg. A nil reg uses the default registerer.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)
	return &Metrics{
		EndpointLatency: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "atlas_endpoint_latency_seconds",
			Help:    "Latency of endpoints in seconds",
			Buckets: prometheus.DefBuckets,
		}, []string{"endpoint"}),
		Requests: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "atlas_http_requests_total",
			Help: "HTTP requests by route pattern and status code",
		}, []string{"endpoint", "status"}),
	}
}

func (m *Metrics) ObserveRequest(endpoint, status string, durationSeconds float64) {
	m.EndpointLatency.WithLabelValues(endpoint).Observe(durationSeconds)
	m.Requests.WithLabelValues(endpoint, status).Inc()
}
