package providers

import (
	"testing"
	"time"

	"mercator-hq/sketch/pkg/processing/costs"
	"mercator-hq/sketch/pkg/providers"
)

// TestCall returns a call aimed at endpoint with a fixed prompt pair.
func TestCall(endpoint, model string) providers.Call {
	return providers.Call{
		SystemPrompt: "You output only Mermaid diagrams.",
		UserPrompt:   "a login flow",
		Model:        model,
		Secret:       "test-key",
		Endpoint:     endpoint,
	}
}

// TestTransportConfig returns a transport config suited to tests: short
// timeout, no retries.
func TestTransportConfig() providers.TransportConfig {
	return providers.TransportConfig{
		Timeout:      2 * time.Second,
		RetryBackoff: 10 * time.Millisecond,
	}
}

// TestCalculator returns a calculator with a single "demo" provider table.
func TestCalculator() *costs.Calculator {
	return costs.NewCalculator(costs.Merge(costs.BuiltinPricing(), costs.Table{
		"demo": {
			Default: "demo-model",
			Models: map[string]costs.Rate{
				"demo-model": {InputPer1K: 0.001, OutputPer1K: 0.002},
			},
		},
	}), nil)
}

// AssertNoError fails the test if err is not nil.
func AssertNoError(t *testing.T, err error) {
	t.Helper()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

// AssertError fails the test if err is nil.
func AssertError(t *testing.T, err error) {
	t.Helper()
	if err == nil {
		t.Fatal("expected error, got nil")
	}
}

// AssertEqual fails the test if got != expected.
func AssertEqual(t *testing.T, got, expected interface{}) {
	t.Helper()
	if got != expected {
		t.Fatalf("expected %v, got %v", expected, got)
	}
}

// AssertKind fails the test if got is not want.
func AssertKind(t *testing.T, got, want providers.ErrorKind) {
	t.Helper()
	if got != want {
		t.Fatalf("expected error kind %s, got %s", want, got)
	}
}

// WaitForCondition waits for a condition to become true within a timeout.
func WaitForCondition(t *testing.T, timeout time.Duration, condition func() bool, message string) {
	t.Helper()

	deadline := time.Now().Add(timeout)
	ticker := time.NewTicker(10 * time.Millisecond)
	defer ticker.Stop()

	for {
		if condition() {
			return
		}

		if time.Now().After(deadline) {
			t.Fatalf("condition not met within %s: %s", timeout, message)
		}

		<-ticker.C
	}
}
