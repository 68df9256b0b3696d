package httputil

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dErrors "atlas/pkg/domain-errors"
)

func decodeEnvelope(t *testing.T, rec *httptest.ResponseRecorder) ErrorResponse {
	t.Helper()
	var body ErrorResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	return body
}

func TestWriteError(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantMsg    string
	}{
		{"not found keeps domain message", dErrors.New(dErrors.CodeNotFound, "Country not found"), http.StatusNotFound, "Country not found"},
		{"invalid input keeps domain message", dErrors.New(dErrors.CodeInvalidInput, "Invalid country code"), http.StatusBadRequest, "Invalid country code"},
		{"timeout uses fallback", dErrors.New(dErrors.CodeTimeout, "upstream timed out"), http.StatusInternalServerError, "Failed to fetch countries"},
		{"unavailable uses fallback", dErrors.New(dErrors.CodeUnavailable, "dial tcp"), http.StatusInternalServerError, "Failed to fetch countries"},
		{"foreign error uses fallback", errors.New("boom"), http.StatusInternalServerError, "Failed to fetch countries"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			WriteError(rec, tt.err, "Failed to fetch countries")

			assert.Equal(t, tt.wantStatus, rec.Code)
			assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
			assert.Equal(t, tt.wantMsg, decodeEnvelope(t, rec).Error)
		})
	}
}

func TestPositiveIntQuery(t *testing.T) {
	tests := []struct {
		query string
		want  int
	}{
		{"", 1},
		{"page=3", 3},
		{"page=abc", 1},
		{"page=0", 1},
		{"page=-4", 1},
		{"page=2.5", 1},
	}

	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/countries?"+tt.query, nil)
			assert.Equal(t, tt.want, PositiveIntQuery(req, "page", 1))
		})
	}
}

type trimmedRequest struct {
	Name string
}

func (r *trimmedRequest) Normalize() { r.Name = strings.TrimSpace(r.Name) }

func (r *trimmedRequest) Validate() error {
	if r.Name == "" {
		return errors.New("name is required")
	}
	return nil
}

func TestPrepareRequest(t *testing.T) {
	t.Run("normalizes before validating", func(t *testing.T) {
		req := &trimmedRequest{Name: "  Norway "}
		require.NoError(t, PrepareRequest(req))
		assert.Equal(t, "Norway", req.Name)
	})

	t.Run("returns validation error", func(t *testing.T) {
		assert.Error(t, PrepareRequest(&trimmedRequest{Name: "   "}))
	})

	t.Run("ignores plain values", func(t *testing.T) {
		assert.NoError(t, PrepareRequest(&struct{}{}))
	})
}
