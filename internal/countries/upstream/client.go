// Package upstream is the HTTP client for the restcountries v3.1 API.
package upstream

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"time"

	"atlas/internal/countries/metrics"
	"atlas/internal/countries/tracer"
	"atlas/pkg/platform/circuit"
)

// ListFields is the field set requested from /all. The upstream rejects /all
// without an explicit field filter.
const ListFields = "name,cca2,flags,region,capital,population,timezones"

// Endpoint labels used in errors, logs, and metrics.
const (
	EndpointAll   = "all"
	EndpointAlpha = "alpha"
)

// maxBodyBytes caps a single upstream response.
const maxBodyBytes = 16 << 20

// HTTPDoer is the minimal interface needed from an HTTP client.
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

type Config struct {
	BaseURL    string
	Timeout    time.Duration
	HTTPClient HTTPDoer
	Breaker    *circuit.Breaker
	Tracer     tracer.Tracer
	Metrics    *metrics.Metrics
	Logger     *slog.Logger
}

type Client struct {
	baseURL string
	http    HTTPDoer
	breaker *circuit.Breaker
	tracer  tracer.Tracer
	metrics *metrics.Metrics
	logger  *slog.Logger
}

// New builds a client. A zero Timeout defaults to 10s; nil collaborators are
// replaced by no-op ones, except Metrics which is simply skipped.
func New(cfg Config) *Client {
	if cfg.Timeout == 0 {
		cfg.Timeout = 10 * time.Second
	}
	c := &Client{
		baseURL: cfg.BaseURL,
		http:    cfg.HTTPClient,
		breaker: cfg.Breaker,
		tracer:  cfg.Tracer,
		metrics: cfg.Metrics,
		logger:  cfg.Logger,
	}
	if c.http == nil {
		c.http = &http.Client{Timeout: cfg.Timeout}
	}
	if c.tracer == nil {
		c.tracer = tracer.NewNoop()
	}
	if c.logger == nil {
		c.logger = slog.New(slog.DiscardHandler)
	}
	return c
}

// FetchAll returns every country with the ListFields subset populated.
func (c *Client) FetchAll(ctx context.Context) (countries []Country, err error) {
	ctx, span := c.tracer.Start(ctx, tracer.SpanUpstreamAll)
	defer func() { span.End(err) }()

	err = c.get(ctx, EndpointAll, "/all?fields="+ListFields, func(body []byte) error {
		if err := json.Unmarshal(body, &countries); err != nil {
			return NewError(ErrorBadData, EndpointAll, "decode country list", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	span.SetAttributes(tracer.Int(tracer.AttrRecordCount, len(countries)))
	return countries, nil
}

// FetchByCode looks up a single country by its alpha-2 or alpha-3 code.
// The upstream answers with either an array or a single object.
func (c *Client) FetchByCode(ctx context.Context, code string) (country *Country, err error) {
	ctx, span := c.tracer.Start(ctx, tracer.SpanUpstreamAlpha, tracer.String(tracer.AttrCountryCode, code))
	defer func() { span.End(err) }()

	err = c.get(ctx, EndpointAlpha, "/alpha/"+url.PathEscape(code), func(body []byte) error {
		trimmed := bytes.TrimSpace(body)
		if len(trimmed) == 0 || trimmed[0] != '[' {
			country = &Country{}
			if err := json.Unmarshal(trimmed, country); err != nil {
				return NewError(ErrorBadData, EndpointAlpha, "decode country", err)
			}
			return nil
		}

		var list []Country
		if err := json.Unmarshal(trimmed, &list); err != nil {
			return NewError(ErrorBadData, EndpointAlpha, "decode country", err)
		}
		if len(list) == 0 {
			return NewError(ErrorNotFound, EndpointAlpha, fmt.Sprintf("country %q not found", code), nil)
		}
		country = &list[0]
		return nil
	})
	if err != nil {
		return nil, err
	}
	return country, nil
}

// CircuitState reports the breaker state, or closed when no breaker is configured.
func (c *Client) CircuitState() circuit.State {
	if c.breaker == nil {
		return circuit.StateClosed
	}
	return c.breaker.State()
}

// get performs a GET and hands the body of a 2xx response to decode. Failures
// are classified, reported to the breaker, and recorded in metrics.
func (c *Client) get(ctx context.Context, endpoint, path string, decode func([]byte) error) error {
	if c.breaker != nil && !c.breaker.Allow() {
		err := NewError(ErrorUnavailable, endpoint, "failing fast", ErrCircuitOpen)
		c.observe(endpoint, err, 0)
		return err
	}

	start := time.Now()
	body, err := c.doGet(ctx, endpoint, path)
	if err == nil {
		err = decode(body)
	}
	c.record(endpoint, err)
	c.observe(endpoint, err, time.Since(start))
	if err != nil && CategoryOf(err) != ErrorNotFound {
		c.logger.WarnContext(ctx, "upstream request failed",
			"endpoint", endpoint,
			"category", CategoryOf(err),
			"retryable", IsRetryable(err),
			"error", err,
		)
	}
	return err
}

func (c *Client) doGet(ctx context.Context, endpoint, path string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return nil, NewError(ErrorInternal, endpoint, "failed to create request", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, classifyTransportError(ctx, endpoint, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, classifyTransportError(ctx, endpoint, err)
	}

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return body, nil
	}
	uerr := classifyStatus(endpoint, resp.StatusCode)
	uerr.StatusCode = resp.StatusCode
	return nil, uerr
}

func classifyTransportError(ctx context.Context, endpoint string, err error) *Error {
	var netErr net.Error
	switch {
	case errors.Is(ctx.Err(), context.Canceled):
		return NewError(ErrorCanceled, endpoint, "request canceled", err)
	case errors.Is(err, context.DeadlineExceeded), errors.As(err, &netErr) && netErr.Timeout():
		return NewError(ErrorTimeout, endpoint, "request timeout", err)
	default:
		return NewError(ErrorUnavailable, endpoint, "failed to execute request", err)
	}
}

func classifyStatus(endpoint string, status int) *Error {
	switch {
	case status == http.StatusNotFound:
		return NewError(ErrorNotFound, endpoint, "record not found", nil)
	case status == http.StatusBadRequest && endpoint == EndpointAlpha:
		// restcountries answers 400 for codes it cannot resolve.
		return NewError(ErrorNotFound, endpoint, "record not found", nil)
	case status == http.StatusTooManyRequests:
		return NewError(ErrorRateLimited, endpoint, "rate limit exceeded", nil)
	case status == http.StatusRequestTimeout, status == http.StatusGatewayTimeout:
		return NewError(ErrorTimeout, endpoint, fmt.Sprintf("upstream timeout: %d", status), nil)
	case status >= http.StatusInternalServerError:
		return NewError(ErrorUnavailable, endpoint, fmt.Sprintf("upstream unavailable: %d", status), nil)
	default:
		return NewError(ErrorInternal, endpoint, fmt.Sprintf("unexpected status: %d", status), nil)
	}
}

func (c *Client) record(endpoint string, err error) {
	if c.breaker == nil {
		return
	}
	var change circuit.StateChange
	switch {
	case err == nil:
		change = c.breaker.RecordSuccess()
	case tripsBreaker(CategoryOf(err)):
		change = c.breaker.RecordFailure()
	default:
		return
	}
	if change.Opened {
		c.logger.Warn("upstream circuit opened", "breaker", c.breaker.Name(), "endpoint", endpoint, "error", err)
	}
	if change.Closed {
		c.logger.Info("upstream circuit closed", "breaker", c.breaker.Name(), "endpoint", endpoint)
	}
	if c.metrics != nil && (change.Opened || change.Closed) {
		c.metrics.SetCircuitOpen(change.Opened)
	}
}

func (c *Client) observe(endpoint string, err error, d time.Duration) {
	if c.metrics == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = string(CategoryOf(err))
	}
	c.metrics.ObserveUpstream(endpoint, result, d)
}
