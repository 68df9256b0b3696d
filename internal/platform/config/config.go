package config

import (
	"log/slog"
	"net/netip"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	s "atlas/pkg/string"
)

// Defaults shared by the server and the dashboard client.
const (
	DefaultAddr            = ":3001"
	DefaultUpstreamURL     = "https://restcountries.com/v3.1"
	DefaultUpstreamTimeout = 10 * time.Second
	DefaultCacheTTL        = time.Hour
	DefaultAPIURL          = "http://localhost:3001"
	DefaultPageSize        = 20
	DefaultSearchDebounce  = 500 * time.Millisecond
)

// Server captures HTTP server level configuration.
type Server struct {
	Addr            string
	Environment     string
	LogLevel        slog.Level
	UpstreamURL     string
	UpstreamTimeout time.Duration
	CacheTTL        time.Duration
	// WarmInterval enables the background snapshot warmer when > 0.
	WarmInterval time.Duration
	CORSOrigins  []string
	// FailureThreshold and BreakerCooldown drive the upstream circuit breaker.
	FailureThreshold int
	BreakerCooldown  time.Duration
	// TrustedProxies may set X-Forwarded-For for the access log's client_ip.
	TrustedProxies []netip.Prefix
}

// Dashboard captures configuration for the API client and list loader.
type Dashboard struct {
	APIURL         string
	PageSize       int
	SearchDebounce time.Duration
	LogLevel       slog.Level
}

// LoadDotEnv loads a .env file from the working directory if one exists.
// Variables already present in the environment win.
func LoadDotEnv() {
	_ = godotenv.Load() //nolint:errcheck // .env is optional
}

// FromEnv builds a Server config from environment variables so main stays lean.
func FromEnv() Server {
	return Server{
		Addr:             getString("ATLAS_ADDR", DefaultAddr),
		Environment:      getString("ATLAS_ENVIRONMENT", "development"),
		LogLevel:         getLevel("ATLAS_LOG_LEVEL"),
		UpstreamURL:      strings.TrimRight(getString("ATLAS_UPSTREAM_URL", DefaultUpstreamURL), "/"),
		UpstreamTimeout:  getDuration("ATLAS_UPSTREAM_TIMEOUT", DefaultUpstreamTimeout),
		CacheTTL:         getDuration("ATLAS_CACHE_TTL", DefaultCacheTTL),
		WarmInterval:     getDuration("ATLAS_WARM_INTERVAL", 0),
		CORSOrigins:      getList("ATLAS_CORS_ORIGINS", []string{"*"}),
		FailureThreshold: getInt("ATLAS_BREAKER_THRESHOLD", 5),
		BreakerCooldown:  getDuration("ATLAS_BREAKER_COOLDOWN", 30*time.Second),
		TrustedProxies:   getPrefixes("ATLAS_TRUSTED_PROXIES"),
	}
}

// DashboardFromEnv builds the client-side configuration.
func DashboardFromEnv() Dashboard {
	return Dashboard{
		APIURL:         strings.TrimRight(getString("ATLAS_API_URL", DefaultAPIURL), "/"),
		PageSize:       getInt("ATLAS_PAGE_SIZE", DefaultPageSize),
		SearchDebounce: getDuration("ATLAS_SEARCH_DEBOUNCE", DefaultSearchDebounce),
		LogLevel:       getLevel("ATLAS_LOG_LEVEL"),
	}
}

func getString(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

// getDuration accepts Go durations; invalid or negative values fall back to def.
func getDuration(key string, def time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil || d < 0 {
		return def
	}
	return d
}

func getInt(key string, def int) int {
	n, err := strconv.Atoi(os.Getenv(key))
	if err != nil || n < 1 {
		return def
	}
	return n
}

func getList(key string, def []string) []string {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	out := s.DedupeAndTrim(strings.Split(v, ","))
	if len(out) == 0 {
		return def
	}
	return out
}

// getPrefixes parses a comma-separated CIDR list. Bare addresses become
// single-host prefixes; unparsable entries are skipped.
func getPrefixes(key string) []netip.Prefix {
	var out []netip.Prefix
	for _, part := range getList(key, nil) {
		if prefix, err := netip.ParsePrefix(part); err == nil {
			out = append(out, prefix)
			continue
		}
		if addr, err := netip.ParseAddr(part); err == nil {
			out = append(out, netip.PrefixFrom(addr, addr.BitLen()))
		}
	}
	return out
}

func getLevel(key string) slog.Level {
	var level slog.Level
	if err := level.UnmarshalText([]byte(os.Getenv(key))); err != nil {
		return slog.LevelInfo
	}
	return level
}
