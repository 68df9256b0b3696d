package request

import (
	"net/http"
	"net/http/httptest"
	"net/netip"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClientIP(t *testing.T) {
	tests := []struct {
		name       string
		remoteAddr string
		headers    map[string]string
		trusted    []string
		expected   string
	}{
		{
			name:       "peer address when no proxies are trusted",
			remoteAddr: "192.0.2.10:4321",
			headers:    map[string]string{"X-Forwarded-For": "203.0.113.1"},
			expected:   "192.0.2.10",
		},
		{
			name:       "first forwarded address from a trusted proxy",
			remoteAddr: "10.0.0.5:4321",
			headers:    map[string]string{"X-Forwarded-For": "203.0.113.1, 10.0.0.5"},
			trusted:    []string{"10.0.0.0/8"},
			expected:   "203.0.113.1",
		},
		{
			name:       "forwarded header ignored from an untrusted peer",
			remoteAddr: "198.51.100.7:4321",
			headers:    map[string]string{"X-Forwarded-For": "203.0.113.1"},
			trusted:    []string{"10.0.0.0/8"},
			expected:   "198.51.100.7",
		},
		{
			name:       "invalid forwarded address falls back to peer",
			remoteAddr: "10.0.0.5:4321",
			headers:    map[string]string{"X-Forwarded-For": "not-an-ip"},
			trusted:    []string{"10.0.0.0/8"},
			expected:   "10.0.0.5",
		},
		{
			name:       "oversized forwarded header falls back to peer",
			remoteAddr: "10.0.0.5:4321",
			headers:    map[string]string{"X-Forwarded-For": strings.Repeat("1", MaxForwardedHeaderLength+1)},
			trusted:    []string{"10.0.0.0/8"},
			expected:   "10.0.0.5",
		},
		{
			name:       "real ip header from a trusted proxy",
			remoteAddr: "10.0.0.5:4321",
			headers:    map[string]string{"X-Real-IP": "203.0.113.9"},
			trusted:    []string{"10.0.0.0/8"},
			expected:   "203.0.113.9",
		},
		{
			name:       "bracketed ipv6 peer",
			remoteAddr: "[2001:db8::1]:4321",
			expected:   "2001:db8::1",
		},
		{
			name:     "missing peer",
			expected: "unknown",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var prefixes []netip.Prefix
			for _, p := range tt.trusted {
				prefixes = append(prefixes, netip.MustParsePrefix(p))
			}

			var got string
			h := ClientIP(prefixes)(http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
				got = ClientIPFrom(r.Context())
			}))

			req := httptest.NewRequest(http.MethodGet, "/countries", nil)
			req.RemoteAddr = tt.remoteAddr
			for k, v := range tt.headers {
				req.Header.Set(k, v)
			}
			h.ServeHTTP(httptest.NewRecorder(), req)

			assert.Equal(t, tt.expected, got)
		})
	}
}
