// Package client is the typed HTTP client for the atlas country API.
package client

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"atlas/internal/countries/models"
	"atlas/pkg/platform/httputil"
	"atlas/pkg/platform/middleware/request"

	"github.com/google/uuid"
)

// DefaultBaseURL is used when no base URL is configured.
const DefaultBaseURL = "http://localhost:3001"

// HTTPDoer is the minimal interface needed from an HTTP client.
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// APIError is returned for non-2xx responses and carries the server's error message.
type APIError struct {
	StatusCode int
	Message    string
	Path       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("atlas api %s: %d %s", e.Path, e.StatusCode, e.Message)
}

type Client struct {
	baseURL string
	http    HTTPDoer
	logger  *slog.Logger
}

type Option func(*Client)

func WithHTTPClient(doer HTTPDoer) Option {
	return func(c *Client) {
		if doer != nil {
			c.http = doer
		}
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// New creates a client for baseURL, or DefaultBaseURL when it is empty.
func New(baseURL string, opts ...Option) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	c := &Client{
		baseURL: baseURL,
		http:    &http.Client{Timeout: 15 * time.Second},
		logger:  slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// FetchCountries returns one page of the name-sorted list.
func (c *Client) FetchCountries(ctx context.Context, page, limit int) ([]models.Country, error) {
	q := url.Values{}
	q.Set("page", strconv.Itoa(page))
	q.Set("limit", strconv.Itoa(limit))

	var out []models.Country
	if err := c.get(ctx, "/countries?"+q.Encode(), &out); err != nil {
		return nil, err
	}
	return out, nil
}

// FetchCountryByCode returns the extended record for code.
func (c *Client) FetchCountryByCode(ctx context.Context, code string) (*models.Country, error) {
	var out models.Country
	if err := c.get(ctx, "/countries/"+url.PathEscape(code), &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// SearchCountries sends only the non-empty fields of params.
func (c *Client) SearchCountries(ctx context.Context, params models.SearchParams) ([]models.Country, error) {
	q := url.Values{}
	for key, value := range map[string]string{
		"name":     params.Name,
		"capital":  params.Capital,
		"region":   params.Region,
		"timezone": params.Timezone,
	} {
		if value != "" {
			q.Set(key, value)
		}
	}

	var out []models.Country
	if err := c.get(ctx, "/countries/search?"+q.Encode(), &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) FetchCountriesByRegion(ctx context.Context, region string) ([]models.Country, error) {
	var out []models.Country
	if err := c.get(ctx, "/countries/region/"+url.PathEscape(region), &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) get(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("build request %s: %w", path, err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set(request.HeaderRequestID, uuid.NewString())

	resp, err := c.http.Do(req)
	if err != nil {
		c.logger.WarnContext(ctx, "atlas api request failed", "path", path, "error", err)
		return fmt.Errorf("request %s: %w", path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		apiErr := &APIError{StatusCode: resp.StatusCode, Path: path, Message: http.StatusText(resp.StatusCode)}
		var envelope httputil.ErrorResponse
		if body, readErr := io.ReadAll(io.LimitReader(resp.Body, 64<<10)); readErr == nil &&
			json.Unmarshal(body, &envelope) == nil && envelope.Error != "" {
			apiErr.Message = envelope.Error
		}
		c.logger.WarnContext(ctx, "atlas api error response",
			"path", path,
			"status", resp.StatusCode,
			"message", apiErr.Message,
		)
		return apiErr
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s: %w", path, err)
	}
	return nil
}
