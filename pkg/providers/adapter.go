package providers

import (
	"context"
	"net/http"

	"mercator-hq/sketch/pkg/processing/costs"
)

// Adapter translates between the uniform generation contract and one
// provider's wire format.
//
// Adapters hold no per-call state and must be safe for concurrent use. They
// never perform the HTTP exchange themselves; the orchestrator sends the
// request built by BuildRequest through a Transport and hands the body back
// to ParseResponse and ExtractUsage.
type Adapter interface {
	// Name returns the provider id this adapter serves.
	Name() string

	// Type returns the adapter type ("openai", "anthropic", "gemini",
	// "generic").
	Type() string

	// BuildRequest builds the outbound POST for call.
	BuildRequest(ctx context.Context, call Call) (*http.Request, error)

	// ParseResponse extracts the generated text from a response body.
	// A body that matches no known envelope yields "".
	ParseResponse(body []byte) string

	// ExtractUsage reads token counts from a response body. Missing counts
	// are zero.
	ExtractUsage(body []byte) TokenUsage

	// EstimateCost prices the given token counts for model.
	EstimateCost(model string, inputTokens, outputTokens int) costs.Estimate

	// ClassifyError maps a failure from BuildRequest, the transport, or
	// response handling to an ErrorKind.
	ClassifyError(err error) ErrorKind
}

// Base implements the provider-independent half of Adapter. Concrete
// adapters embed it and add BuildRequest.
type Base struct {
	name       string
	typ        string
	calculator *costs.Calculator
	hints      Hints
}

// NewBase creates the shared adapter half. calculator may be nil, in which
// case every estimate is zero. hints extends the default error hints.
func NewBase(name, typ string, calculator *costs.Calculator, hints Hints) Base {
	return Base{
		name:       name,
		typ:        typ,
		calculator: calculator,
		hints:      DefaultHints().Merge(hints),
	}
}

// Name returns the provider id.
func (b Base) Name() string {
	return b.name
}

// Type returns the adapter type.
func (b Base) Type() string {
	return b.typ
}

// ParseResponse extracts text from any of the known envelopes.
func (b Base) ParseResponse(body []byte) string {
	return ParseEnvelope(body)
}

// ExtractUsage reads token counts from any of the known usage shapes.
func (b Base) ExtractUsage(body []byte) TokenUsage {
	return ParseUsage(body)
}

// EstimateCost prices tokens with the adapter's calculator.
func (b Base) EstimateCost(model string, inputTokens, outputTokens int) costs.Estimate {
	if b.calculator == nil {
		return costs.Estimate{
			Provider:     b.name,
			Model:        model,
			InputTokens:  inputTokens,
			OutputTokens: outputTokens,
			Currency:     "USD",
		}
	}
	return b.calculator.Estimate(b.name, model, inputTokens, outputTokens)
}

// ClassifyError maps err using the adapter's hints.
func (b Base) ClassifyError(err error) ErrorKind {
	return Classify(err, b.hints)
}

// ValidateCall checks the fields every adapter needs.
func ValidateCall(call Call) error {
	if call.Endpoint == "" {
		return &ValidationError{Field: "endpoint", Message: "endpoint is required"}
	}
	if call.Model == "" {
		return &ValidationError{Field: "model", Message: "model is required"}
	}
	if call.UserPrompt == "" {
		return &ValidationError{Field: "prompt", Message: "prompt is required"}
	}
	if call.Secret == "" {
		return &ValidationError{Field: "secret", Message: "credential is required"}
	}
	return nil
}
