package generic

import (
	"mercator-hq/sketch/pkg/processing/costs"
	"mercator-hq/sketch/pkg/providers"
	"mercator-hq/sketch/pkg/providers/openai"
)

// TypeName is the adapter type reported by generic adapters.
const TypeName = "generic"

// Config configures a generic adapter.
type Config struct {
	Name       string
	Calculator *costs.Calculator
	Headers    map[string]string
}

// Adapter is an OpenAI-compatible adapter.
type Adapter struct {
	*openai.Adapter
}

// NewAdapter creates a generic adapter.
func NewAdapter(cfg Config) (*Adapter, error) {
	if cfg.Name == "" {
		return nil, &providers.ConfigError{
			Provider: TypeName,
			Field:    "name",
			Message:  "provider name is required",
		}
	}

	inner, err := openai.NewAdapter(openai.Config{
		Name:       cfg.Name,
		Type:       TypeName,
		Calculator: cfg.Calculator,
		Headers:    cfg.Headers,
		Hints: providers.Hints{
			// OpenRouter reports upstream throttling in the error text.
			RateLimit: []string{"rate-limited upstream", "requests per minute"},
			Auth:      []string{"no auth credentials", "invalid api key", "user not found"},
		},
	})
	if err != nil {
		return nil, err
	}

	return &Adapter{Adapter: inner}, nil
}
