package providerfactory

import (
	"fmt"
	"log/slog"

	"mercator-hq/sketch/pkg/processing/costs"
	"mercator-hq/sketch/pkg/providers"
	"mercator-hq/sketch/pkg/providers/anthropic"
	"mercator-hq/sketch/pkg/providers/gemini"
	"mercator-hq/sketch/pkg/providers/generic"
	"mercator-hq/sketch/pkg/providers/openai"
	"mercator-hq/sketch/pkg/registry"
)

// Options holds what adapters share beyond their descriptor.
type Options struct {
	// Calculator prices token usage for every adapter. Nil yields zero
	// estimates.
	Calculator *costs.Calculator

	// Headers are extra request headers per provider id, for example
	// OpenRouter's HTTP-Referer and X-Title.
	Headers map[string]map[string]string
}

// NewAdapter creates the adapter selected by desc.Type.
//
// Supported types:
//   - "openai": chat completions with a bearer token
//   - "anthropic": Messages API with x-api-key
//   - "gemini": generateContent with the key in the query
//   - "generic": any OpenAI-compatible endpoint
//
// An empty type is inferred from the provider id, falling back to generic.
func NewAdapter(desc registry.Descriptor, opts Options) (providers.Adapter, error) {
	adapterType := desc.Type
	if adapterType == "" {
		adapterType = inferAdapterType(desc.ID)
	}

	slog.Debug("creating adapter",
		"provider", desc.ID,
		"type", adapterType,
	)

	var (
		adapter providers.Adapter
		err     error
	)

	switch adapterType {
	case registry.TypeOpenAI:
		adapter, err = openai.NewAdapter(openai.Config{
			Name:       desc.ID,
			Calculator: opts.Calculator,
			Headers:    opts.Headers[desc.ID],
		})

	case registry.TypeAnthropic:
		adapter, err = anthropic.NewAdapter(anthropic.Config{
			Name:       desc.ID,
			Calculator: opts.Calculator,
		})

	case registry.TypeGemini:
		adapter, err = gemini.NewAdapter(gemini.Config{
			Name:       desc.ID,
			Calculator: opts.Calculator,
		})

	case registry.TypeGeneric:
		adapter, err = generic.NewAdapter(generic.Config{
			Name:       desc.ID,
			Calculator: opts.Calculator,
			Headers:    opts.Headers[desc.ID],
		})

	default:
		return nil, &providers.ConfigError{
			Provider: desc.ID,
			Field:    "type",
			Message:  fmt.Sprintf("unsupported adapter type: %q (supported: openai, anthropic, gemini, generic)", adapterType),
		}
	}

	if err != nil {
		return nil, fmt.Errorf("failed to create adapter %q: %w", desc.ID, err)
	}

	return adapter, nil
}

func inferAdapterType(id string) string {
	switch id {
	case "openai":
		return registry.TypeOpenAI
	case "anthropic":
		return registry.TypeAnthropic
	case "gemini":
		return registry.TypeGemini
	default:
		return registry.TypeGeneric
	}
}
