package snapshot

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"atlas/internal/countries/metrics"
	"atlas/internal/countries/upstream"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/suite"
)

type fakeFetcher struct {
	mu      sync.Mutex
	calls   atomic.Int32
	data    []upstream.Country
	err     error
	block   chan struct{}
	started chan struct{}
}

func (f *fakeFetcher) FetchAll(ctx context.Context) ([]upstream.Country, error) {
	f.calls.Add(1)
	if f.started != nil {
		select {
		case f.started <- struct{}{}:
		default:
		}
	}
	if f.block != nil {
		<-f.block
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.data, f.err
}

func (f *fakeFetcher) set(data []upstream.Country, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.data, f.err = data, err
}

func country(code, name string) upstream.Country {
	return upstream.Country{CCA2: code, Name: upstream.Name{Common: name}}
}

type CacheSuite struct {
	suite.Suite
	now     time.Time
	clockMu sync.Mutex
	fetcher *fakeFetcher
	metrics *metrics.Metrics
	cache   *Cache
}

func TestCacheSuite(t *testing.T) {
	suite.Run(t, new(CacheSuite))
}

func (s *CacheSuite) SetupTest() {
	s.now = time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	s.fetcher = &fakeFetcher{data: []upstream.Country{country("DE", "Germany"), country("FR", "France")}}
	s.metrics = metrics.New(prometheus.NewRegistry())
	s.cache = New(s.fetcher,
		WithTTL(time.Hour),
		WithClock(s.clock),
		WithMetrics(s.metrics),
	)
}

func (s *CacheSuite) clock() time.Time {
	s.clockMu.Lock()
	defer s.clockMu.Unlock()
	return s.now
}

func (s *CacheSuite) advance(d time.Duration) {
	s.clockMu.Lock()
	defer s.clockMu.Unlock()
	s.now = s.now.Add(d)
}

func (s *CacheSuite) TestGetWithinTTLUsesOneUpstreamCall() {
	first, err := s.cache.Get(context.Background())
	s.Require().NoError(err)

	s.advance(59 * time.Minute)
	second, err := s.cache.Get(context.Background())
	s.Require().NoError(err)

	s.Equal(first, second)
	s.Equal(int32(1), s.fetcher.calls.Load())
	s.False(s.cache.StaleWithin(0))
	s.Equal(1.0, testutil.ToFloat64(s.metrics.SnapshotLookupsTotal.WithLabelValues(metrics.OutcomeHit)))
	s.Equal(1.0, testutil.ToFloat64(s.metrics.SnapshotLookupsTotal.WithLabelValues(metrics.OutcomeMiss)))
}

func (s *CacheSuite) TestStaleSnapshotIsReplaced() {
	_, err := s.cache.Get(context.Background())
	s.Require().NoError(err)

	s.advance(time.Hour)
	s.True(s.cache.StaleWithin(0), "age equal to TTL is stale")

	s.fetcher.set([]upstream.Country{country("ES", "Spain")}, nil)
	data, err := s.cache.Get(context.Background())
	s.Require().NoError(err)
	s.Equal([]upstream.Country{country("ES", "Spain")}, data)
	s.Equal(int32(2), s.fetcher.calls.Load())
	s.Equal(s.clock(), s.cache.FetchedAt())
}

func (s *CacheSuite) TestFailedRefreshPreservesPreviousSnapshot() {
	_, err := s.cache.Get(context.Background())
	s.Require().NoError(err)
	fetchedAt := s.cache.FetchedAt()

	s.advance(2 * time.Hour)
	upstreamErr := upstream.NewError(upstream.ErrorUnavailable, upstream.EndpointAll, "down", nil)
	s.fetcher.set(nil, upstreamErr)

	_, err = s.cache.Get(context.Background())
	s.Require().ErrorIs(err, upstreamErr)
	s.Equal(fetchedAt, s.cache.FetchedAt(), "timestamp untouched")
	s.True(s.cache.Loaded())
	s.Equal(1.0, testutil.ToFloat64(s.metrics.SnapshotRefreshesTotal.WithLabelValues("failure")))

	s.Run("next call retries", func() {
		s.fetcher.set([]upstream.Country{country("IT", "Italy")}, nil)
		data, err := s.cache.Get(context.Background())
		s.Require().NoError(err)
		s.Equal("IT", data[0].CCA2)
		s.Equal(int32(3), s.fetcher.calls.Load())
	})
}

func (s *CacheSuite) TestFailureWithoutSnapshot() {
	s.fetcher.set(nil, errors.New("connection refused"))

	_, err := s.cache.Get(context.Background())
	s.Require().Error(err)
	s.False(s.cache.Loaded())
	s.True(s.cache.StaleWithin(0))
}

func (s *CacheSuite) TestEmptyUpstreamListCountsAsLoaded() {
	s.fetcher.set(nil, nil)

	data, err := s.cache.Get(context.Background())
	s.Require().NoError(err)
	s.NotNil(data)
	s.Empty(data)
	s.True(s.cache.Loaded())
}

func (s *CacheSuite) TestStaleWithin() {
	s.True(s.cache.StaleWithin(time.Minute), "nothing loaded yet")

	_, err := s.cache.Get(context.Background())
	s.Require().NoError(err)
	s.advance(50 * time.Minute)

	s.False(s.cache.StaleWithin(5 * time.Minute))
	s.True(s.cache.StaleWithin(10 * time.Minute))
}

func (s *CacheSuite) TestRefreshIgnoresAge() {
	_, err := s.cache.Get(context.Background())
	s.Require().NoError(err)

	s.Require().NoError(s.cache.Refresh(context.Background()))
	s.Equal(int32(2), s.fetcher.calls.Load())
}

func (s *CacheSuite) TestConcurrentMissesShareOneFetch() {
	s.fetcher.block = make(chan struct{})
	s.fetcher.started = make(chan struct{}, 1)

	const callers = 16
	var wg sync.WaitGroup
	errs := make(chan error, callers)
	for range callers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := s.cache.Get(context.Background())
			errs <- err
		}()
	}

	<-s.fetcher.started
	time.Sleep(20 * time.Millisecond)
	close(s.fetcher.block)
	wg.Wait()
	close(errs)

	for err := range errs {
		s.NoError(err)
	}
	s.Equal(int32(1), s.fetcher.calls.Load())
}

func (s *CacheSuite) TestCanceledCallerDoesNotAbortRefresh() {
	s.fetcher.block = make(chan struct{})
	s.fetcher.started = make(chan struct{}, 1)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		_, err := s.cache.Get(ctx)
		done <- err
	}()

	<-s.fetcher.started
	cancel()
	s.ErrorIs(<-done, context.Canceled)

	close(s.fetcher.block)
	s.Eventually(s.cache.Loaded, time.Second, 5*time.Millisecond)
}
