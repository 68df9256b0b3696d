package upstream

import (
	"errors"
	"fmt"
)

// ErrorCategory is the normalized failure taxonomy for restcountries calls.
type ErrorCategory string

const (
	ErrorTimeout     ErrorCategory = "timeout"
	ErrorUnavailable ErrorCategory = "unavailable"
	ErrorNotFound    ErrorCategory = "not_found"
	ErrorBadData     ErrorCategory = "bad_data"
	ErrorRateLimited ErrorCategory = "rate_limited"
	ErrorCanceled    ErrorCategory = "canceled"
	ErrorInternal    ErrorCategory = "internal"
)

// ErrCircuitOpen is wrapped by calls rejected while the circuit breaker is open.
var ErrCircuitOpen = errors.New("upstream circuit open")

// Error wraps an upstream failure with its category.
type Error struct {
	Category   ErrorCategory
	Endpoint   string
	Message    string
	StatusCode int
	Underlying error
	// Retryable is set for transient categories (timeout, unavailable, rate limited).
	Retryable bool
}

func (e *Error) Error() string {
	if e.Underlying != nil {
		return fmt.Sprintf("upstream %s [%s]: %s: %v", e.Endpoint, e.Category, e.Message, e.Underlying)
	}
	return fmt.Sprintf("upstream %s [%s]: %s", e.Endpoint, e.Category, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Underlying
}

// NewError builds an Error and classifies it as retryable from its category.
func NewError(category ErrorCategory, endpoint, message string, underlying error) *Error {
	retryable := category == ErrorTimeout ||
		category == ErrorUnavailable ||
		category == ErrorRateLimited

	return &Error{
		Category:   category,
		Endpoint:   endpoint,
		Message:    message,
		Underlying: underlying,
		Retryable:  retryable,
	}
}

// IsRetryable reports whether err is a transient upstream failure.
func IsRetryable(err error) bool {
	var ue *Error
	if errors.As(err, &ue) {
		return ue.Retryable
	}
	return false
}

// CategoryOf extracts the category from err, or ErrorInternal for foreign errors.
func CategoryOf(err error) ErrorCategory {
	var ue *Error
	if errors.As(err, &ue) {
		return ue.Category
	}
	return ErrorInternal
}

// tripsBreaker reports whether a failure says something about upstream health.
func tripsBreaker(category ErrorCategory) bool {
	switch category {
	case ErrorTimeout, ErrorUnavailable, ErrorRateLimited, ErrorBadData:
		return true
	}
	return false
}
