package providers

import (
	"context"
	"errors"
	"net"
	"net/http"
	"net/url"
	"strings"
)

// Hints lists lowercase substrings that identify an error kind inside a
// provider's error text. Providers phrase errors differently, so each
// adapter contributes its own.
type Hints struct {
	RateLimit []string
	Auth      []string
}

// DefaultHints returns the substrings shared by most providers.
func DefaultHints() Hints {
	return Hints{
		RateLimit: []string{
			"rate_limit",
			"rate limit",
			"too many requests",
			"resource_exhausted",
			"quota exceeded",
		},
		Auth: []string{
			"invalid_api_key",
			"invalid api key",
			"incorrect api key",
			"authentication_error",
			"unauthorized",
			"permission_denied",
		},
	}
}

// Merge returns h with other's substrings appended.
func (h Hints) Merge(other Hints) Hints {
	return Hints{
		RateLimit: append(append([]string(nil), h.RateLimit...), other.RateLimit...),
		Auth:      append(append([]string(nil), h.Auth...), other.Auth...),
	}
}

// Classify maps err to an ErrorKind. Typed errors are checked first, then
// HTTP status, then the hint substrings in the error text.
func Classify(err error, hints Hints) ErrorKind {
	if err == nil {
		return KindUnknown
	}

	var (
		authErr     *AuthError
		rateErr     *RateLimitError
		timeoutErr  *TimeoutError
		netErr      *NetworkError
		emptyErr    *EmptyResponseError
		provErr     *ProviderError
		validateErr *ValidationError
	)

	switch {
	case errors.As(err, &authErr):
		return KindAuth
	case errors.As(err, &rateErr):
		return KindProviderRateLimited
	case errors.As(err, &emptyErr):
		return KindEmptyResponse
	case errors.As(err, &timeoutErr), errors.As(err, &netErr):
		return KindNetwork
	case errors.As(err, &validateErr):
		if validateErr.Field == "secret" {
			return KindAuth
		}
		return KindUnknown
	}

	if errors.As(err, &provErr) {
		switch provErr.StatusCode {
		case http.StatusUnauthorized, http.StatusForbidden:
			return KindAuth
		case http.StatusTooManyRequests:
			return KindProviderRateLimited
		}
		if kind, ok := matchHints(provErr.Message, hints); ok {
			return kind
		}
		if provErr.Cause != nil && isTransportError(provErr.Cause) {
			return KindNetwork
		}
		return KindUnknown
	}

	if isTransportError(err) {
		return KindNetwork
	}

	if kind, ok := matchHints(err.Error(), hints); ok {
		return kind
	}
	return KindUnknown
}

func matchHints(text string, hints Hints) (ErrorKind, bool) {
	lower := strings.ToLower(text)
	for _, s := range hints.RateLimit {
		if strings.Contains(lower, s) {
			return KindProviderRateLimited, true
		}
	}
	for _, s := range hints.Auth {
		if strings.Contains(lower, s) {
			return KindAuth, true
		}
	}
	return "", false
}

func isTransportError(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return true
	}

	var (
		netErr net.Error
		opErr  *net.OpError
		dnsErr *net.DNSError
		urlErr *url.Error
	)
	return errors.As(err, &netErr) ||
		errors.As(err, &opErr) ||
		errors.As(err, &dnsErr) ||
		errors.As(err, &urlErr)
}
