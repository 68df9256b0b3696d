// Package tracer provides a small tracing abstraction for the countries module.
//
// Snapshot refreshes and upstream calls open spans through the Tracer interface
// so the rest of the module never imports OpenTelemetry directly.
//
// Implementations:
//   - NoopTracer: tests and local runs
//   - OTelTracer: OpenTelemetry adapter
package tracer

import (
	"context"
	"time"
)

// Span represents an active trace span.
type Span interface {
	// End completes the span. A non-nil err marks the span as failed.
	// End must be called exactly once.
	End(err error)
	SetAttributes(attrs ...Attribute)
	AddEvent(name string, attrs ...Attribute)
}

// Tracer creates spans. Implementations must be safe for concurrent use.
type Tracer interface {
	Start(ctx context.Context, name string, attrs ...Attribute) (context.Context, Span)
}

// Attribute represents a key-value pair attached to spans.
type Attribute struct {
	Key   string
	Value any
}

func String(key, value string) Attribute {
	return Attribute{Key: key, Value: value}
}

func Bool(key string, value bool) Attribute {
	return Attribute{Key: key, Value: value}
}

func Int(key string, value int) Attribute {
	return Attribute{Key: key, Value: value}
}

// Duration creates a duration attribute in milliseconds.
func Duration(key string, value time.Duration) Attribute {
	return Attribute{Key: key, Value: value.Milliseconds()}
}

// Span names used by the countries module.
const (
	SpanSnapshotGet     = "countries.snapshot.get"
	SpanSnapshotRefresh = "countries.snapshot.refresh"
	SpanUpstreamAll     = "countries.upstream.all"
	SpanUpstreamAlpha   = "countries.upstream.alpha"
)

// Attribute keys used by the countries module.
const (
	AttrCacheHit      = "cache.hit"
	AttrCacheAgeMs    = "cache.age_ms"
	AttrRecordCount   = "records.count"
	AttrCountryCode   = "country.code"
	AttrHTTPStatus    = "http.status_code"
	AttrErrorCategory = "error.category"
)

// Event names used by the countries module.
const (
	EventSnapshotReplaced  = "snapshot.replaced"
	EventSnapshotPreserved = "snapshot.preserved"
)
