package openai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"mercator-hq/sketch/pkg/processing/costs"
	"mercator-hq/sketch/pkg/providers"
)

// Config configures an OpenAI-style adapter.
type Config struct {
	// Name is the provider id the adapter serves.
	Name string

	// Type overrides the reported adapter type. Default: "openai".
	Type string

	// Calculator prices token usage. Nil yields zero estimates.
	Calculator *costs.Calculator

	// Headers are added to every request (e.g. OpenRouter attribution).
	Headers map[string]string

	// Hints extends error classification.
	Hints providers.Hints
}

// Adapter is the OpenAI chat completions adapter.
type Adapter struct {
	providers.Base
	headers map[string]string
}

// NewAdapter creates an OpenAI adapter.
func NewAdapter(cfg Config) (*Adapter, error) {
	if cfg.Name == "" {
		return nil, &providers.ConfigError{
			Provider: "openai",
			Field:    "name",
			Message:  "provider name is required",
		}
	}
	if cfg.Type == "" {
		cfg.Type = "openai"
	}

	headers := make(map[string]string, len(cfg.Headers))
	for k, v := range cfg.Headers {
		headers[k] = v
	}

	return &Adapter{
		Base:    providers.NewBase(cfg.Name, cfg.Type, cfg.Calculator, cfg.Hints),
		headers: headers,
	}, nil
}

// BuildRequest builds a chat completions POST with a bearer token.
func (a *Adapter) BuildRequest(ctx context.Context, call providers.Call) (*http.Request, error) {
	if err := providers.ValidateCall(call); err != nil {
		return nil, err
	}

	body, err := json.Marshal(transformCall(call))
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, call.Endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+call.Secret)
	for k, v := range a.headers {
		req.Header.Set(k, v)
	}

	return req, nil
}
