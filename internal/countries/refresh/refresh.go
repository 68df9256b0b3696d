// Package refresh runs the background worker that keeps the country snapshot warm.
package refresh

import (
	"context"
	"log/slog"
	"time"
)

// Snapshot is the part of snapshot.Cache the warmer drives.
type Snapshot interface {
	StaleWithin(d time.Duration) bool
	Refresh(ctx context.Context) error
}

// Result describes a single warm-up run.
type Result struct {
	Refreshed bool
	Duration  time.Duration
}

type Option func(*Warmer)

func WithLogger(logger *slog.Logger) Option {
	return func(w *Warmer) {
		if logger != nil {
			w.logger = logger
		}
	}
}

func WithInterval(interval time.Duration) Option {
	return func(w *Warmer) {
		if interval > 0 {
			w.interval = interval
		}
	}
}

// Warmer refreshes the snapshot when it would go stale before the next tick,
// so request paths rarely pay for an upstream fetch.
type Warmer struct {
	snapshot Snapshot
	logger   *slog.Logger
	interval time.Duration
}

func New(snapshot Snapshot, opts ...Option) *Warmer {
	w := &Warmer{
		snapshot: snapshot,
		logger:   slog.Default(),
		interval: 5 * time.Minute,
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Start runs once immediately and then on every tick until ctx is done.
func (w *Warmer) Start(ctx context.Context) error {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	w.run(ctx)
	for {
		select {
		case <-ticker.C:
			w.run(ctx)
		case <-ctx.Done():
			w.logger.Info("snapshot warmer stopping", "reason", ctx.Err())
			return ctx.Err()
		}
	}
}

func (w *Warmer) run(ctx context.Context) {
	res, err := w.RunOnce(ctx)
	if err != nil {
		w.logger.Error("snapshot_warm_failed",
			"error", err,
			"duration_ms", res.Duration.Milliseconds(),
		)
		return
	}
	if res.Refreshed {
		w.logger.Info("snapshot_warm_completed", "duration_ms", res.Duration.Milliseconds())
	}
}

// RunOnce refreshes the snapshot if it is missing or expires within one interval.
// Logging is handled by the caller (Start).
func (w *Warmer) RunOnce(ctx context.Context) (Result, error) {
	if !w.snapshot.StaleWithin(w.interval) {
		return Result{}, nil
	}
	start := time.Now()
	err := w.snapshot.Refresh(ctx)
	res := Result{Refreshed: err == nil, Duration: time.Since(start)}
	return res, err
}
