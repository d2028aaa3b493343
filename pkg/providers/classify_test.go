package providers

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"
	"testing"
)

func TestClassify(t *testing.T) {
	hints := DefaultHints().Merge(Hints{Auth: []string{"api_key_invalid"}})

	tests := []struct {
		name string
		err  error
		want ErrorKind
	}{
		{"nil", nil, KindUnknown},
		{"auth error", &AuthError{Provider: "p", StatusCode: 401}, KindAuth},
		{"wrapped auth", fmt.Errorf("calling: %w", &AuthError{Provider: "p"}), KindAuth},
		{"rate limit error", &RateLimitError{Provider: "p"}, KindProviderRateLimited},
		{"timeout", &TimeoutError{Provider: "p"}, KindNetwork},
		{"network", &NetworkError{Provider: "p", Cause: errors.New("connection reset")}, KindNetwork},
		{"empty", &EmptyResponseError{Provider: "p", StatusCode: 200}, KindEmptyResponse},
		{"missing secret", &ValidationError{Field: "secret"}, KindAuth},
		{"missing model", &ValidationError{Field: "model"}, KindUnknown},
		{"status 403", &ProviderError{StatusCode: 403}, KindAuth},
		{"status 429", &ProviderError{StatusCode: 429}, KindProviderRateLimited},
		{
			"gemini quota text",
			&ProviderError{StatusCode: 400, Message: `{"error":{"status":"RESOURCE_EXHAUSTED"}}`},
			KindProviderRateLimited,
		},
		{
			"anthropic overload text",
			&ProviderError{StatusCode: 400, Message: `{"type":"error","error":{"type":"rate_limit_error"}}`},
			KindProviderRateLimited,
		},
		{
			"provider hint",
			&ProviderError{StatusCode: 400, Message: `{"error":{"details":[{"reason":"API_KEY_INVALID"}]}}`},
			KindAuth,
		},
		{"plain 400", &ProviderError{StatusCode: 400, Message: "bad request"}, KindUnknown},
		{"5xx", &ProviderError{StatusCode: 503, Message: "unavailable"}, KindUnknown},
		{"deadline", context.DeadlineExceeded, KindNetwork},
		{"dns", &net.DNSError{Err: "no such host", Name: "example.invalid"}, KindNetwork},
		{"text hint", errors.New("invalid_api_key supplied"), KindAuth},
		{"other", errors.New("boom"), KindUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Classify(tt.err, hints); got != tt.want {
				t.Errorf("Classify(%v) = %s, want %s", tt.err, got, tt.want)
			}
		})
	}
}

func TestCall_RedactsSecret(t *testing.T) {
	c := Call{Model: "m", Endpoint: "https://x", Secret: "sk-very-secret"}
	if s := fmt.Sprintf("%v", c); s == "" || strings.Contains(s, "sk-very-secret") {
		t.Errorf("String() leaked secret: %s", s)
	}
	if s := c.LogValue().String(); strings.Contains(s, "sk-very-secret") {
		t.Errorf("LogValue() leaked secret: %s", s)
	}
}
