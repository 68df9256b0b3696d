// Package snapshot keeps the full country list in memory and refreshes it from
// the upstream once it is older than the TTL.
package snapshot

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"atlas/internal/countries/metrics"
	"atlas/internal/countries/tracer"
	"atlas/internal/countries/upstream"
)

// DefaultTTL is how long a snapshot is served before the next read refetches it.
const DefaultTTL = time.Hour

const refreshKey = "all"

// Fetcher loads the full country list.
type Fetcher interface {
	FetchAll(ctx context.Context) ([]upstream.Country, error)
}

// Cache holds one snapshot of the upstream list. It is replaced wholesale on a
// successful fetch and left untouched when a fetch fails.
type Cache struct {
	fetcher Fetcher
	ttl     time.Duration
	now     func() time.Time
	logger  *slog.Logger
	tracer  tracer.Tracer
	metrics *metrics.Metrics

	mu        sync.RWMutex
	data      []upstream.Country
	fetchedAt time.Time

	group singleflight.Group
}

type Option func(*Cache)

func WithTTL(ttl time.Duration) Option {
	return func(c *Cache) {
		if ttl > 0 {
			c.ttl = ttl
		}
	}
}

// WithClock overrides the time source (tests).
func WithClock(now func() time.Time) Option {
	return func(c *Cache) {
		if now != nil {
			c.now = now
		}
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(c *Cache) {
		if logger != nil {
			c.logger = logger
		}
	}
}

func WithTracer(t tracer.Tracer) Option {
	return func(c *Cache) {
		if t != nil {
			c.tracer = t
		}
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(c *Cache) {
		c.metrics = m
	}
}

func New(fetcher Fetcher, opts ...Option) *Cache {
	c := &Cache{
		fetcher: fetcher,
		ttl:     DefaultTTL,
		now:     time.Now,
		logger:  slog.New(slog.DiscardHandler),
		tracer:  tracer.NewNoop(),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(c)
		}
	}
	return c
}

// Get returns the current snapshot, fetching a new one first if none is loaded
// or the loaded one is stale. On fetch failure the error is returned and the
// previous snapshot is kept for the next call to retry against.
//
// The returned slice is shared between callers and must not be modified.
func (c *Cache) Get(ctx context.Context) (data []upstream.Country, err error) {
	ctx, span := c.tracer.Start(ctx, tracer.SpanSnapshotGet)
	defer func() { span.End(err) }()

	c.mu.RLock()
	data, fetchedAt := c.data, c.fetchedAt
	c.mu.RUnlock()

	now := c.now()
	hit := !fetchedAt.IsZero() && now.Sub(fetchedAt) < c.ttl
	span.SetAttributes(tracer.Bool(tracer.AttrCacheHit, hit))
	if c.metrics != nil {
		c.metrics.RecordLookup(hit)
	}
	if hit {
		span.SetAttributes(tracer.Duration(tracer.AttrCacheAgeMs, now.Sub(fetchedAt)))
		return data, nil
	}
	return c.refresh(ctx)
}

// Refresh fetches a new snapshot regardless of age.
func (c *Cache) Refresh(ctx context.Context) error {
	_, err := c.refresh(ctx)
	return err
}

// FetchedAt returns when the current snapshot was fetched, or the zero time.
func (c *Cache) FetchedAt() time.Time {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.fetchedAt
}

// Loaded reports whether any snapshot has been fetched.
func (c *Cache) Loaded() bool {
	return !c.FetchedAt().IsZero()
}

// StaleWithin reports whether the snapshot is missing or will be stale d from now.
func (c *Cache) StaleWithin(d time.Duration) bool {
	fetchedAt := c.FetchedAt()
	return fetchedAt.IsZero() || c.now().Add(d).Sub(fetchedAt) >= c.ttl
}

// refresh collapses concurrent fetches into one upstream call. The fetch is
// detached from the caller's cancellation so one disconnecting client does not
// fail everyone sharing the call; the caller still stops waiting when ctx ends.
func (c *Cache) refresh(ctx context.Context) ([]upstream.Country, error) {
	detached := context.WithoutCancel(ctx)
	ch := c.group.DoChan(refreshKey, func() (any, error) {
		return c.load(detached)
	})

	select {
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.([]upstream.Country), nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (c *Cache) load(ctx context.Context) (data []upstream.Country, err error) {
	ctx, span := c.tracer.Start(ctx, tracer.SpanSnapshotRefresh)
	defer func() { span.End(err) }()

	countries, err := c.fetcher.FetchAll(ctx)
	if err != nil {
		if c.metrics != nil {
			c.metrics.RecordRefresh(err, 0, time.Time{})
		}
		span.AddEvent(tracer.EventSnapshotPreserved,
			tracer.String(tracer.AttrErrorCategory, string(upstream.CategoryOf(err))))
		c.logger.WarnContext(ctx, "snapshot refresh failed, keeping previous snapshot",
			"error", err,
			"previous_fetched_at", c.FetchedAt(),
		)
		return nil, err
	}
	if countries == nil {
		countries = []upstream.Country{}
	}

	fetchedAt := c.now()
	c.mu.Lock()
	c.data = countries
	c.fetchedAt = fetchedAt
	c.mu.Unlock()

	if c.metrics != nil {
		c.metrics.RecordRefresh(nil, len(countries), fetchedAt)
	}
	span.AddEvent(tracer.EventSnapshotReplaced, tracer.Int(tracer.AttrRecordCount, len(countries)))
	c.logger.InfoContext(ctx, "snapshot refreshed", "records", len(countries))
	return countries, nil
}
