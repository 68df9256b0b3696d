package upstream

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"atlas/internal/countries/metrics"
	"atlas/pkg/platform/circuit"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/suite"
)

const germanyJSON = `{
	"name": {"common": "Germany", "official": "Federal Republic of Germany",
		"nativeName": {"deu": {"official": "Bundesrepublik Deutschland", "common": "Deutschland"}}},
	"cca2": "DE",
	"flags": {"png": "https://flagcdn.com/w320/de.png", "svg": "https://flagcdn.com/de.svg"},
	"region": "Europe",
	"capital": ["Berlin"],
	"population": 83240525,
	"timezones": ["UTC+01:00"],
	"currencies": {"EUR": {"name": "Euro", "symbol": "€"}},
	"languages": {"deu": "German"},
	"borders": ["AUT", "BEL"]
}`

type ClientSuite struct {
	suite.Suite
	server  *httptest.Server
	handler atomic.Pointer[http.HandlerFunc]
	calls   atomic.Int32
	metrics *metrics.Metrics
	client  *Client
}

func TestClientSuite(t *testing.T) {
	suite.Run(t, new(ClientSuite))
}

func (s *ClientSuite) SetupTest() {
	s.calls.Store(0)
	s.handle(func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusOK) })
	s.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.calls.Add(1)
		(*s.handler.Load())(w, r)
	}))
	s.metrics = metrics.New(prometheus.NewRegistry())
	s.client = New(Config{BaseURL: s.server.URL, Timeout: time.Second, Metrics: s.metrics})
}

func (s *ClientSuite) TearDownTest() {
	s.server.Close()
}

func (s *ClientSuite) handle(h http.HandlerFunc) {
	s.handler.Store(&h)
}

func (s *ClientSuite) respond(status int, body string) {
	s.handle(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	})
}

func (s *ClientSuite) TestFailuresAreLoggedWithRetryability() {
	var buf bytes.Buffer
	client := New(Config{
		BaseURL: s.server.URL,
		Timeout: time.Second,
		Logger:  slog.New(slog.NewJSONHandler(&buf, nil)),
	})

	s.respond(http.StatusServiceUnavailable, `{}`)
	_, err := client.FetchAll(context.Background())
	s.Require().Error(err)

	var entry map[string]any
	s.Require().NoError(json.Unmarshal(buf.Bytes(), &entry))
	s.Equal("upstream request failed", entry["msg"])
	s.Equal(string(ErrorUnavailable), entry["category"])
	s.Equal(true, entry["retryable"])

	buf.Reset()
	s.respond(http.StatusOK, `not json`)
	_, err = client.FetchAll(context.Background())
	s.Require().Error(err)
	s.Require().NoError(json.Unmarshal(buf.Bytes(), &entry))
	s.Equal(false, entry["retryable"])
}

func (s *ClientSuite) TestFetchAll() {
	s.Run("requests the restricted field set and decodes records", func() {
		var gotPath, gotFields string
		s.handle(func(w http.ResponseWriter, r *http.Request) {
			gotPath = r.URL.Path
			gotFields = r.URL.Query().Get("fields")
			_, _ = w.Write([]byte(`[` + germanyJSON + `,{"name":{"common":"Antarctica"},"cca2":"AQ","region":"Antarctic","population":1000}]`))
		})

		countries, err := s.client.FetchAll(context.Background())
		s.Require().NoError(err)
		s.Equal("/all", gotPath)
		s.Equal(ListFields, gotFields)
		s.Require().Len(countries, 2)
		s.Equal("Germany", countries[0].Name.Common)
		s.Equal([]string{"Berlin"}, countries[0].Capital)
		s.Nil(countries[1].Capital)
		s.Equal(1.0, testutil.ToFloat64(s.metrics.UpstreamRequestsTotal.WithLabelValues(EndpointAll, "ok")))
	})

	s.Run("malformed body is bad data", func() {
		s.respond(http.StatusOK, `{"not":"a list"`)
		_, err := s.client.FetchAll(context.Background())
		s.Equal(ErrorBadData, CategoryOf(err))
		s.False(IsRetryable(err))
	})

	s.Run("5xx is unavailable and retryable", func() {
		s.respond(http.StatusBadGateway, `{}`)
		_, err := s.client.FetchAll(context.Background())
		s.Equal(ErrorUnavailable, CategoryOf(err))
		s.True(IsRetryable(err))

		var ue *Error
		s.Require().ErrorAs(err, &ue)
		s.Equal(http.StatusBadGateway, ue.StatusCode)
	})

	s.Run("429 is rate limited", func() {
		s.respond(http.StatusTooManyRequests, ``)
		_, err := s.client.FetchAll(context.Background())
		s.Equal(ErrorRateLimited, CategoryOf(err))
	})
}

func (s *ClientSuite) TestFetchByCode() {
	s.Run("array response returns first element", func() {
		var gotPath string
		s.handle(func(w http.ResponseWriter, r *http.Request) {
			gotPath = r.URL.Path
			_, _ = w.Write([]byte(`[` + germanyJSON + `]`))
		})

		country, err := s.client.FetchByCode(context.Background(), "DE")
		s.Require().NoError(err)
		s.Equal("/alpha/DE", gotPath)
		s.Equal("DE", country.CCA2)
		s.Equal("Deutschland", country.Name.NativeName["deu"].Common)
		s.Equal("Euro", country.Currencies["EUR"].Name)
	})

	s.Run("object response is accepted", func() {
		s.respond(http.StatusOK, germanyJSON)
		country, err := s.client.FetchByCode(context.Background(), "DEU")
		s.Require().NoError(err)
		s.Equal("Germany", country.Name.Common)
	})

	s.Run("empty array is not found", func() {
		s.respond(http.StatusOK, `[]`)
		_, err := s.client.FetchByCode(context.Background(), "XX")
		s.Equal(ErrorNotFound, CategoryOf(err))
	})

	s.Run("404 and 400 are not found", func() {
		for _, status := range []int{http.StatusNotFound, http.StatusBadRequest} {
			s.respond(status, `{"status":404,"message":"Not Found"}`)
			_, err := s.client.FetchByCode(context.Background(), "ZZ")
			s.Equal(ErrorNotFound, CategoryOf(err), "status %d", status)
		}
	})
}

func (s *ClientSuite) TestTimeout() {
	release := make(chan struct{})
	defer close(release)
	s.handle(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	})

	client := New(Config{BaseURL: s.server.URL, Timeout: 50 * time.Millisecond})
	_, err := client.FetchAll(context.Background())
	s.Equal(ErrorTimeout, CategoryOf(err))
}

func (s *ClientSuite) TestCanceledContext() {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := s.client.FetchByCode(ctx, "DE")
	s.Equal(ErrorCanceled, CategoryOf(err))
	s.False(IsRetryable(err))
}

func (s *ClientSuite) TestCircuitBreaker() {
	now := time.Now()
	breaker := circuit.New("restcountries",
		circuit.WithFailureThreshold(2),
		circuit.WithCooldown(time.Minute),
		circuit.WithClock(func() time.Time { return now }),
	)
	client := New(Config{BaseURL: s.server.URL, Breaker: breaker, Metrics: s.metrics})
	s.respond(http.StatusServiceUnavailable, ``)

	for range 2 {
		_, err := client.FetchAll(context.Background())
		s.Equal(ErrorUnavailable, CategoryOf(err))
	}
	s.Equal(circuit.StateOpen, client.CircuitState())
	s.Equal(1.0, testutil.ToFloat64(s.metrics.CircuitOpen))

	s.Run("open circuit fails fast without calling upstream", func() {
		callsBefore := s.calls.Load()
		_, err := client.FetchAll(context.Background())
		s.True(errors.Is(err, ErrCircuitOpen))
		s.Equal(callsBefore, s.calls.Load())
	})

	s.Run("not found does not trip the breaker", func() {
		breaker.Reset()
		s.respond(http.StatusNotFound, ``)
		for range 3 {
			_, _ = client.FetchByCode(context.Background(), "ZZ")
		}
		s.Equal(circuit.StateClosed, client.CircuitState())
	})

	s.Run("successful probe closes the circuit", func() {
		s.respond(http.StatusServiceUnavailable, ``)
		for range 2 {
			_, _ = client.FetchAll(context.Background())
		}
		s.Require().Equal(circuit.StateOpen, client.CircuitState())

		now = now.Add(time.Minute)
		s.respond(http.StatusOK, `[]`)
		_, err := client.FetchAll(context.Background())
		s.Require().NoError(err)
		s.Equal(circuit.StateClosed, client.CircuitState())
		s.Equal(0.0, testutil.ToFloat64(s.metrics.CircuitOpen))
	})
}

func TestNewDefaults(t *testing.T) {
	c := New(Config{BaseURL: "http://example.invalid"})
	hc, ok := c.http.(*http.Client)
	if !ok || hc.Timeout != 10*time.Second {
		t.Fatalf("expected default http client with 10s timeout, got %#v", c.http)
	}
	if c.CircuitState() != circuit.StateClosed {
		t.Fatalf("expected closed circuit without breaker")
	}
}
