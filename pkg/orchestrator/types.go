package orchestrator

import (
	"fmt"
	"log/slog"
	"time"

	"mercator-hq/sketch/pkg/providers"
)

// Request is one generation request. It is never persisted.
type Request struct {
	Prompt     string
	ProviderID string

	// ModelID selects the model. Empty uses the provider's default.
	ModelID string

	// Secret is the provider credential. It is never logged.
	Secret string
}

// String implements fmt.Stringer without the secret.
func (r Request) String() string {
	return fmt.Sprintf("Request{provider=%s model=%s prompt_len=%d secret=%s}",
		r.ProviderID, r.ModelID, len(r.Prompt), redactSecret(r.Secret))
}

// LogValue implements slog.LogValuer without the secret.
func (r Request) LogValue() slog.Value {
	return slog.GroupValue(
		slog.String("provider", r.ProviderID),
		slog.String("model", r.ModelID),
		slog.Int("prompt_len", len(r.Prompt)),
		slog.String("secret", redactSecret(r.Secret)),
	)
}

func redactSecret(secret string) string {
	if secret == "" {
		return "<empty>"
	}
	return "<redacted>"
}

// Success is a completed generation.
type Success struct {
	RequestID string `json:"request_id"`
	Provider  string `json:"provider"`
	Model     string `json:"model"`

	// DiagramText is the generated text with fences stripped. It may be
	// empty when the response matched no known envelope.
	DiagramText string `json:"diagram_text"`

	Usage providers.TokenUsage `json:"usage"`

	// Cost is the estimated cost in USD.
	Cost float64 `json:"cost"`

	// PricingFallback reports that Cost used the provider's default rate.
	PricingFallback bool `json:"pricing_fallback,omitempty"`

	Duration time.Duration `json:"duration"`
}

// Failure is a generation that did not produce text.
type Failure struct {
	RequestID string              `json:"request_id"`
	Provider  string              `json:"provider"`
	Kind      providers.ErrorKind `json:"kind"`
	Message   string              `json:"message"`

	// ResetAt is when the local quota window ends. Set for RateLimited.
	ResetAt time.Time `json:"reset_at,omitzero"`

	// RetryAfter is the provider's requested wait. Set for
	// ProviderRateLimited when the provider sent one.
	RetryAfter time.Duration `json:"retry_after,omitempty"`
}

// Result holds exactly one of Success or Failure.
type Result struct {
	Success *Success `json:"success,omitempty"`
	Failure *Failure `json:"failure,omitempty"`
}

// OK reports whether the generation succeeded.
func (r Result) OK() bool {
	return r.Success != nil
}

// IsEmpty reports a success without text, which callers should surface as
// a soft failure.
func (r Result) IsEmpty() bool {
	return r.Success != nil && r.Success.DiagramText == ""
}

// Kind returns the failure kind, or "" on success.
func (r Result) Kind() providers.ErrorKind {
	if r.Failure == nil {
		return ""
	}
	return r.Failure.Kind
}
