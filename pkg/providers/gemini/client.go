package gemini

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"mercator-hq/sketch/pkg/processing/costs"
	"mercator-hq/sketch/pkg/providers"
)

// ModelPlaceholder is replaced with the call's model in the endpoint.
const ModelPlaceholder = "{model}"

// Config configures a Gemini adapter.
type Config struct {
	Name       string
	Calculator *costs.Calculator
}

// Adapter is the Gemini generateContent adapter.
type Adapter struct {
	providers.Base
}

// NewAdapter creates a Gemini adapter.
func NewAdapter(cfg Config) (*Adapter, error) {
	if cfg.Name == "" {
		return nil, &providers.ConfigError{
			Provider: "gemini",
			Field:    "name",
			Message:  "provider name is required",
		}
	}

	hints := providers.Hints{
		Auth: []string{"api_key_invalid", "api key not valid", "api key expired"},
	}

	return &Adapter{
		Base: providers.NewBase(cfg.Name, "gemini", cfg.Calculator, hints),
	}, nil
}

// BuildRequest builds a generateContent POST with the key in the query.
func (a *Adapter) BuildRequest(ctx context.Context, call providers.Call) (*http.Request, error) {
	if err := providers.ValidateCall(call); err != nil {
		return nil, err
	}

	body, err := json.Marshal(transformCall(call))
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpointURL(call), bytes.NewReader(body))
	if err != nil {
		// The URL holds the key; do not echo it.
		return nil, &providers.ValidationError{Field: "endpoint", Message: "invalid endpoint URL"}
	}

	req.Header.Set("Content-Type", "application/json")

	return req, nil
}

func endpointURL(call providers.Call) string {
	endpoint := strings.ReplaceAll(call.Endpoint, ModelPlaceholder, url.PathEscape(call.Model))

	sep := "?"
	if strings.Contains(endpoint, "?") {
		sep = "&"
	}
	return endpoint + sep + "key=" + url.QueryEscape(call.Secret)
}
