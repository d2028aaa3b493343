package anthropic

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"mercator-hq/sketch/pkg/processing/costs"
	"mercator-hq/sketch/pkg/providers"
)

// APIVersion is the anthropic-version header value.
const APIVersion = "2023-06-01"

// Config configures an Anthropic adapter.
type Config struct {
	Name       string
	Calculator *costs.Calculator

	// APIVersion overrides the anthropic-version header.
	APIVersion string
}

// Adapter is the Anthropic Messages API adapter.
type Adapter struct {
	providers.Base
	apiVersion string
}

// NewAdapter creates an Anthropic adapter.
func NewAdapter(cfg Config) (*Adapter, error) {
	if cfg.Name == "" {
		return nil, &providers.ConfigError{
			Provider: "anthropic",
			Field:    "name",
			Message:  "provider name is required",
		}
	}
	if cfg.APIVersion == "" {
		cfg.APIVersion = APIVersion
	}

	hints := providers.Hints{
		RateLimit: []string{"rate_limit_error", "overloaded_error"},
		Auth:      []string{"invalid x-api-key"},
	}

	return &Adapter{
		Base:       providers.NewBase(cfg.Name, "anthropic", cfg.Calculator, hints),
		apiVersion: cfg.APIVersion,
	}, nil
}

// BuildRequest builds a Messages API POST.
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
	req.Header.Set("x-api-key", call.Secret)
	req.Header.Set("anthropic-version", a.apiVersion)

	return req, nil
}
