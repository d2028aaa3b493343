package providers

import (
	"fmt"
	"log/slog"
	"time"
)

// ErrorKind classifies a failed generation.
type ErrorKind string

const (
	// KindRateLimited means the local quota is exhausted; nothing was sent.
	KindRateLimited ErrorKind = "rate_limited"

	// KindProviderRateLimited means the provider returned a rate-limit signal.
	KindProviderRateLimited ErrorKind = "provider_rate_limited"

	// KindAuth means the provider rejected the credential.
	KindAuth ErrorKind = "auth_error"

	// KindNetwork covers transport failures: DNS, connection reset, timeout.
	KindNetwork ErrorKind = "network_error"

	// KindProviderUnsupported means the provider id is not registered.
	KindProviderUnsupported ErrorKind = "provider_unsupported"

	// KindEmptyResponse means the provider answered with an empty body.
	KindEmptyResponse ErrorKind = "empty_response"

	// KindUnknown is the catch-all.
	KindUnknown ErrorKind = "unknown_error"
)

// String returns the kind's wire name.
func (k ErrorKind) String() string {
	return string(k)
}

// Call holds everything an adapter needs to build one outbound request.
type Call struct {
	// SystemPrompt is the fixed instruction preamble.
	SystemPrompt string

	// UserPrompt is the caller's prompt text.
	UserPrompt string

	// Model is the resolved model identifier.
	Model string

	// Secret is the provider credential. It is never logged.
	Secret string

	// Endpoint is the provider's completion URL.
	Endpoint string

	// MaxTokens caps the completion length. Zero lets the adapter choose.
	MaxTokens int
}

// String implements fmt.Stringer without exposing the secret.
func (c Call) String() string {
	return fmt.Sprintf("Call{Model: %q, Endpoint: %q, Secret: %s}", c.Model, c.Endpoint, redacted(c.Secret))
}

// LogValue implements slog.LogValuer without exposing the secret.
func (c Call) LogValue() slog.Value {
	return slog.GroupValue(
		slog.String("model", c.Model),
		slog.String("endpoint", c.Endpoint),
		slog.Int("prompt_len", len(c.UserPrompt)),
	)
}

func redacted(secret string) string {
	if secret == "" {
		return `""`
	}
	return "[REDACTED]"
}

// TokenUsage is the token count reported by a provider.
type TokenUsage struct {
	InputTokens  int `json:"input_tokens"`
	OutputTokens int `json:"output_tokens"`
}

// Total returns input plus output tokens.
func (u TokenUsage) Total() int {
	return u.InputTokens + u.OutputTokens
}

// TransportConfig configures the shared HTTP transport.
type TransportConfig struct {
	// Timeout bounds one HTTP exchange. The caller's context deadline still
	// applies on top of it. Default: 60s.
	Timeout time.Duration

	// MaxRetries is the number of retries for network errors and 5xx
	// responses. Default: 0, so a call makes exactly one request.
	MaxRetries int

	// RetryBackoff is the first retry delay; later retries double it.
	// Default: 1s.
	RetryBackoff time.Duration

	// MaxIdleConns is the maximum number of idle connections overall.
	MaxIdleConns int

	// MaxIdleConnsPerHost is the maximum number of idle connections per host.
	MaxIdleConnsPerHost int

	// IdleConnTimeout is how long idle connections stay open.
	IdleConnTimeout time.Duration

	// MaxResponseBytes caps how much of a response body is read.
	// Default: 8 MiB.
	MaxResponseBytes int64
}

// applyDefaults fills zero fields.
func (c *TransportConfig) applyDefaults() {
	if c.Timeout == 0 {
		c.Timeout = 60 * time.Second
	}
	if c.RetryBackoff == 0 {
		c.RetryBackoff = time.Second
	}
	if c.MaxIdleConns == 0 {
		c.MaxIdleConns = 100
	}
	if c.MaxIdleConnsPerHost == 0 {
		c.MaxIdleConnsPerHost = 10
	}
	if c.IdleConnTimeout == 0 {
		c.IdleConnTimeout = 90 * time.Second
	}
	if c.MaxResponseBytes == 0 {
		c.MaxResponseBytes = 8 << 20
	}
}
