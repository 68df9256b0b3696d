package httptransport

import (
	"log/slog"
	"net/http"
	"net/netip"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"atlas/pkg/platform/middleware/request"
)

// RouteRegistrar mounts a module's routes.
type RouteRegistrar interface {
	Register(r chi.Router)
}

type RouterConfig struct {
	Logger         *slog.Logger
	Metrics        *request.Metrics
	Gatherer       prometheus.Gatherer
	CORSOrigins    []string
	TrustedProxies []netip.Prefix
	RequestTimeout time.Duration
}

// NewRouter wires the public endpoints behind the shared middleware stack.
func NewRouter(cfg RouterConfig, modules ...RouteRegistrar) http.Handler {
	if cfg.RequestTimeout == 0 {
		cfg.RequestTimeout = 30 * time.Second
	}
	if len(cfg.CORSOrigins) == 0 {
		cfg.CORSOrigins = []string{"*"}
	}
	if cfg.Gatherer == nil {
		cfg.Gatherer = prometheus.DefaultGatherer
	}

	r := chi.NewRouter()
	r.Use(request.Recovery(cfg.Logger))
	r.Use(request.RequestID)
	r.Use(request.ClientIP(cfg.TrustedProxies))
	r.Use(request.Logger(cfg.Logger))
	r.Use(request.LatencyMiddleware(cfg.Metrics))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: cfg.CORSOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type", request.HeaderRequestID},
		ExposedHeaders: []string{request.HeaderRequestID},
		MaxAge:         300,
	}))
	r.Use(request.Timeout(cfg.RequestTimeout))

	for _, m := range modules {
		m.Register(r)
	}
	r.Handle("/metrics", promhttp.HandlerFor(cfg.Gatherer, promhttp.HandlerOpts{}))

	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"error":"Not found"}`)) //nolint:errcheck // headers already sent
	})
	return r
}
