package providers

import (
	"fmt"
	"time"
)

// The error types below are what adapters and the transport return.
// Classify maps them to an ErrorKind; callers never switch on them directly.

// ProviderError is a non-2xx response that is neither an auth nor a rate
// limit signal by status alone. Message holds the (possibly truncated)
// response body, which Classify searches for hints.
type ProviderError struct {
	Provider   string
	StatusCode int
	Message    string
	Cause      error
}

func (e *ProviderError) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("%s: status %d: %s", e.Provider, e.StatusCode, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Provider, e.Message)
}

func (e *ProviderError) Unwrap() error { return e.Cause }

// AuthError is a 401 or 403 from the provider.
type AuthError struct {
	Provider   string
	StatusCode int
	Message    string
}

func (e *AuthError) Error() string {
	return fmt.Sprintf("%s: key rejected (status %d): %s", e.Provider, e.StatusCode, e.Message)
}

// RateLimitError is a 429 from the provider. RetryAfter is parsed from the
// Retry-After header and is zero when the provider sent none.
type RateLimitError struct {
	Provider   string
	RetryAfter time.Duration
	Message    string
}

func (e *RateLimitError) Error() string {
	if e.RetryAfter > 0 {
		return fmt.Sprintf("%s: rate limited, retry after %s: %s", e.Provider, e.RetryAfter, e.Message)
	}
	return fmt.Sprintf("%s: rate limited: %s", e.Provider, e.Message)
}

// TimeoutError is a call that outlived its deadline.
type TimeoutError struct {
	Provider string
	Timeout  time.Duration
	Cause    error
}

func (e *TimeoutError) Error() string {
	if e.Timeout > 0 {
		return fmt.Sprintf("%s: no response within %s", e.Provider, e.Timeout)
	}
	return fmt.Sprintf("%s: deadline exceeded", e.Provider)
}

func (e *TimeoutError) Unwrap() error { return e.Cause }

// NetworkError is a failure before any response arrived.
type NetworkError struct {
	Provider string
	Cause    error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("%s: unreachable: %v", e.Provider, e.Cause)
}

func (e *NetworkError) Unwrap() error { return e.Cause }

// EmptyResponseError is a 2xx response with a zero-length body.
type EmptyResponseError struct {
	Provider   string
	StatusCode int
}

func (e *EmptyResponseError) Error() string {
	return fmt.Sprintf("%s: empty body with status %d", e.Provider, e.StatusCode)
}

// ValidationError is a call rejected before it was sent. A missing secret
// is reported with Field "secret".
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid call: %s: %s", e.Field, e.Message)
}

// ConfigError is a descriptor an adapter cannot be built from.
type ConfigError struct {
	Provider string
	Field    string
	Message  string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("provider %s: %s: %s", e.Provider, e.Field, e.Message)
}
