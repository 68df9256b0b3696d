package main

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"atlas/internal/countries/handler"
	"atlas/internal/countries/metrics"
	"atlas/internal/countries/refresh"
	"atlas/internal/countries/service"
	"atlas/internal/countries/snapshot"
	"atlas/internal/countries/tracer"
	"atlas/internal/countries/upstream"
	"atlas/internal/platform/config"
	"atlas/internal/platform/health"
	"atlas/internal/platform/httpserver"
	"atlas/internal/platform/logger"
	httptransport "atlas/internal/transport/http"
	"atlas/pkg/platform/circuit"
	"atlas/pkg/platform/middleware/request"
)

var errNoSnapshot = errors.New("no snapshot loaded and upstream circuit open")

type snapshotState interface {
	Loaded() bool
}

type circuitState interface {
	CircuitState() circuit.State
}

// registerReadiness reports ready while the API can answer list requests:
// a snapshot is loaded, or upstream is reachable to load one.
func registerReadiness(h *health.Handler, snap snapshotState, circ circuitState) {
	h.RegisterCheck("snapshot", func(context.Context) error {
		if !snap.Loaded() && circ.CircuitState() == circuit.StateOpen {
			return errNoSnapshot
		}
		return nil
	})
}

// main wires high-level dependencies, exposes the HTTP router, and keeps the
// server lifecycle small. Business logic lives in internal/countries.
func main() {
	config.LoadDotEnv()
	cfg := config.FromEnv()
	log := logger.New(cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log); err != nil {
		log.Error("server exited with error", "error", err)
		stop()
		os.Exit(1)
	}
	log.Info("server stopped")
}

func run(ctx context.Context, cfg config.Server, log *slog.Logger) error {
	log.Info("initializing atlas",
		"addr", cfg.Addr,
		"environment", cfg.Environment,
		"upstream", cfg.UpstreamURL,
		"cache_ttl", cfg.CacheTTL.String(),
	)

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	countryMetrics := metrics.New(reg)
	trc := tracer.NewOTel()

	breaker := circuit.New("restcountries",
		circuit.WithFailureThreshold(cfg.FailureThreshold),
		circuit.WithCooldown(cfg.BreakerCooldown),
	)
	client := upstream.New(upstream.Config{
		BaseURL: cfg.UpstreamURL,
		Timeout: cfg.UpstreamTimeout,
		Breaker: breaker,
		Tracer:  trc,
		Metrics: countryMetrics,
		Logger:  log,
	})
	cache := snapshot.New(client,
		snapshot.WithTTL(cfg.CacheTTL),
		snapshot.WithLogger(log),
		snapshot.WithTracer(trc),
		snapshot.WithMetrics(countryMetrics),
	)
	svc := service.New(cache, client, service.WithLogger(log))

	healthHandler := health.New(cfg.Environment)
	registerReadiness(healthHandler, cache, client)

	router := httptransport.NewRouter(httptransport.RouterConfig{
		Logger:         log,
		Metrics:        request.NewMetrics(reg),
		Gatherer:       reg,
		CORSOrigins:    cfg.CORSOrigins,
		TrustedProxies: cfg.TrustedProxies,
	}, healthHandler, handler.New(svc, log))

	if cfg.WarmInterval > 0 {
		warmer := refresh.New(cache, refresh.WithLogger(log), refresh.WithInterval(cfg.WarmInterval))
		go func() {
			_ = warmer.Start(ctx) //nolint:errcheck // returns ctx.Err on shutdown
		}()
	}

	ln, err := net.Listen("tcp", cfg.Addr)
	if err != nil {
		return err
	}
	return httpserver.Run(ctx, httpserver.New(cfg.Addr, router), ln, log)
}
