package server

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"mercator-hq/sketch/pkg/config"
	"mercator-hq/sketch/pkg/limits/ratelimit"
	"mercator-hq/sketch/pkg/orchestrator"
	"mercator-hq/sketch/pkg/providers"
	"mercator-hq/sketch/pkg/registry"
	"mercator-hq/sketch/pkg/security/secrets"
	"mercator-hq/sketch/pkg/usage"
)

type fakeGenerator struct {
	mu      sync.Mutex
	result  orchestrator.Result
	last    orchestrator.Request
	calls   int
	resets  int
	ledger  usage.Ledger
	remains map[string]int
}

func (f *fakeGenerator) Generate(ctx context.Context, req orchestrator.Request) orchestrator.Result {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	f.last = req
	return f.result
}

func (f *fakeGenerator) QuotaStatus(ctx context.Context, id string) ratelimit.Status {
	return ratelimit.Status{Provider: id, Limit: 10, Remaining: f.remains[id], Allowed: f.remains[id] > 0}
}

func (f *fakeGenerator) LedgerSnapshot(ctx context.Context) usage.Ledger {
	return f.ledger
}

func (f *fakeGenerator) ResetLedger(ctx context.Context) {
	f.mu.Lock()
	f.resets++
	f.mu.Unlock()
}

type fakeKeys struct {
	keys map[string]string
	err  error
}

func (f fakeKeys) ProviderKey(ctx context.Context, id string) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	if k, ok := f.keys[id]; ok {
		return k, nil
	}
	return "", secrets.ErrNotFound
}

func newTestServer(t *testing.T, gen *fakeGenerator, keys KeySource) *Server {
	t.Helper()

	reg, err := registry.New(registry.Builtin()...)
	if err != nil {
		t.Fatalf("registry: %v", err)
	}

	s, err := New(Options{
		Config:    config.ServerConfig{MaxBodyBytes: 1 << 10},
		Generator: gen,
		Catalog:   reg,
		Keys:      keys,
		Metrics: http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_, _ = io.WriteString(w, "sketch_generations_total 0\n")
		}),
		MetricsPath: "/metrics",
		Version:     "test",
		Logger:      slog.New(slog.NewTextHandler(io.Discard, nil)),
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return s
}

func do(t *testing.T, h http.Handler, method, path, body string, header map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, r)
	for k, v := range header {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestNew_RequiresDependencies(t *testing.T) {
	if _, err := New(Options{}); err == nil {
		t.Error("expected error without generator")
	}
	if _, err := New(Options{Generator: &fakeGenerator{}}); err == nil {
		t.Error("expected error without catalog")
	}
}

func TestGenerate_Success(t *testing.T) {
	gen := &fakeGenerator{result: orchestrator.Result{Success: &orchestrator.Success{
		RequestID:   "gen-1",
		Provider:    "openai",
		Model:       "gpt-4o-mini",
		DiagramText: "graph TD\nA-->B",
		Usage:       providers.TokenUsage{InputTokens: 12, OutputTokens: 8},
		Cost:        0.0001,
	}}}
	s := newTestServer(t, gen, fakeKeys{keys: map[string]string{"openai": "sk-from-store"}})

	rec := do(t, s.Handler(), http.MethodPost, "/v1/generate",
		`{"prompt":"  login flow ","provider":"openai","model":"gpt-4o-mini"}`, nil)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var got orchestrator.Success
	if err := json.NewDecoder(rec.Body).Decode(&got); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if got.DiagramText != "graph TD\nA-->B" || got.RequestID != "gen-1" {
		t.Errorf("unexpected success %+v", got)
	}
	if gen.last.Prompt != "login flow" || gen.last.Secret != "sk-from-store" || gen.last.ModelID != "gpt-4o-mini" {
		t.Errorf("unexpected request %v", gen.last)
	}
	if rec.Header().Get("X-Request-ID") == "" {
		t.Error("missing X-Request-ID header")
	}
}

func TestGenerate_SecretSource(t *testing.T) {
	tests := []struct {
		name   string
		keys   KeySource
		auth   string
		want   string
		status int
	}{
		{"bearer wins", fakeKeys{keys: map[string]string{"openai": "sk-store"}}, "Bearer sk-header", "sk-header", http.StatusOK},
		{"store fallback", fakeKeys{keys: map[string]string{"openai": "sk-store"}}, "", "sk-store", http.StatusOK},
		{"missing key passes empty", fakeKeys{}, "", "", http.StatusOK},
		{"no key source", nil, "", "", http.StatusOK},
		{"non bearer ignored", fakeKeys{}, "Basic abc", "", http.StatusOK},
		{"store failure", fakeKeys{err: errors.New("insecure permissions")}, "", "", http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gen := &fakeGenerator{result: orchestrator.Result{Success: &orchestrator.Success{Provider: "openai"}}}
			s := newTestServer(t, gen, tt.keys)

			header := map[string]string{}
			if tt.auth != "" {
				header["Authorization"] = tt.auth
			}
			rec := do(t, s.Handler(), http.MethodPost, "/v1/generate", `{"prompt":"p","provider":"openai"}`, header)

			if rec.Code != tt.status {
				t.Fatalf("expected %d, got %d: %s", tt.status, rec.Code, rec.Body.String())
			}
			if tt.status == http.StatusOK && gen.last.Secret != tt.want {
				t.Errorf("expected secret %q, got %q", tt.want, gen.last.Secret)
			}
			if tt.status != http.StatusOK && gen.calls != 0 {
				t.Error("generator called despite key failure")
			}
		})
	}
}

func TestGenerate_InvalidRequests(t *testing.T) {
	tests := []struct {
		name   string
		body   string
		status int
	}{
		{"not json", `{`, http.StatusBadRequest},
		{"unknown field", `{"prompt":"p","provider":"openai","temperature":1}`, http.StatusBadRequest},
		{"empty prompt", `{"prompt":"  ","provider":"openai"}`, http.StatusBadRequest},
		{"no provider", `{"prompt":"p"}`, http.StatusBadRequest},
		{"too large", `{"prompt":"` + strings.Repeat("x", 2048) + `","provider":"openai"}`, http.StatusRequestEntityTooLarge},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gen := &fakeGenerator{}
			s := newTestServer(t, gen, nil)

			rec := do(t, s.Handler(), http.MethodPost, "/v1/generate", tt.body, nil)
			if rec.Code != tt.status {
				t.Fatalf("expected %d, got %d: %s", tt.status, rec.Code, rec.Body.String())
			}
			var body ErrorBody
			if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
				t.Fatalf("invalid JSON: %v", err)
			}
			if body.Error.Kind != kindInvalidRequest {
				t.Errorf("expected invalid_request, got %q", body.Error.Kind)
			}
			if gen.calls != 0 {
				t.Error("generator called for invalid request")
			}
		})
	}
}

func TestGenerate_FailureStatus(t *testing.T) {
	tests := []struct {
		kind   providers.ErrorKind
		status int
	}{
		{providers.KindRateLimited, http.StatusTooManyRequests},
		{providers.KindProviderRateLimited, http.StatusTooManyRequests},
		{providers.KindAuth, http.StatusUnauthorized},
		{providers.KindProviderUnsupported, http.StatusNotFound},
		{providers.KindNetwork, http.StatusBadGateway},
		{providers.KindEmptyResponse, http.StatusBadGateway},
		{providers.KindUnknown, http.StatusBadGateway},
	}

	for _, tt := range tests {
		t.Run(string(tt.kind), func(t *testing.T) {
			gen := &fakeGenerator{result: orchestrator.Result{Failure: &orchestrator.Failure{
				RequestID: "gen-2",
				Provider:  "openai",
				Kind:      tt.kind,
				Message:   "failed",
			}}}
			s := newTestServer(t, gen, nil)

			rec := do(t, s.Handler(), http.MethodPost, "/v1/generate", `{"prompt":"p","provider":"openai"}`, nil)
			if rec.Code != tt.status {
				t.Fatalf("expected %d, got %d", tt.status, rec.Code)
			}
			var body ErrorBody
			if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
				t.Fatalf("invalid JSON: %v", err)
			}
			if body.Error.Kind != string(tt.kind) || body.Error.RequestID != "gen-2" {
				t.Errorf("unexpected error body %+v", body.Error)
			}
		})
	}
}

func TestGenerate_RetryAfter(t *testing.T) {
	gen := &fakeGenerator{result: orchestrator.Result{Failure: &orchestrator.Failure{
		Provider:   "openai",
		Kind:       providers.KindProviderRateLimited,
		Message:    "slow down",
		RetryAfter: 2500 * time.Millisecond,
	}}}
	s := newTestServer(t, gen, nil)

	rec := do(t, s.Handler(), http.MethodPost, "/v1/generate", `{"prompt":"p","provider":"openai"}`, nil)
	if got := rec.Header().Get("Retry-After"); got != "3" {
		t.Errorf("expected Retry-After 3, got %q", got)
	}
}

func TestRetryAfter(t *testing.T) {
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	tests := []struct {
		name    string
		failure orchestrator.Failure
		want    int
	}{
		{"none", orchestrator.Failure{}, 0},
		{"reset in future", orchestrator.Failure{ResetAt: now.Add(90 * time.Second)}, 90},
		{"partial second rounds up", orchestrator.Failure{ResetAt: now.Add(100 * time.Millisecond)}, 1},
		{"reset passed", orchestrator.Failure{ResetAt: now.Add(-time.Second)}, 0},
		{"provider hint wins", orchestrator.Failure{ResetAt: now.Add(time.Hour), RetryAfter: 5 * time.Second}, 5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := retryAfter(&tt.failure, now); got != tt.want {
				t.Errorf("expected %d, got %d", tt.want, got)
			}
		})
	}
}

func TestProviders(t *testing.T) {
	gen := &fakeGenerator{remains: map[string]int{"openai": 7}}
	s := newTestServer(t, gen, nil)

	rec := do(t, s.Handler(), http.MethodGet, "/v1/providers", "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	var body struct {
		Providers []ProviderInfo `json:"providers"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if len(body.Providers) != len(registry.Builtin()) {
		t.Fatalf("expected %d providers, got %d", len(registry.Builtin()), len(body.Providers))
	}

	var found bool
	for _, p := range body.Providers {
		if p.ID == "openai" {
			found = true
			if p.Status.Remaining != 7 || len(p.Models) == 0 {
				t.Errorf("unexpected openai entry %+v", p)
			}
		}
	}
	if !found {
		t.Error("openai missing from catalog")
	}
}

func TestQuota(t *testing.T) {
	gen := &fakeGenerator{remains: map[string]int{"anthropic": 3}}
	s := newTestServer(t, gen, nil)

	rec := do(t, s.Handler(), http.MethodGet, "/v1/quota/anthropic", "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var status ratelimit.Status
	if err := json.NewDecoder(rec.Body).Decode(&status); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if status.Provider != "anthropic" || status.Remaining != 3 {
		t.Errorf("unexpected status %+v", status)
	}

	rec = do(t, s.Handler(), http.MethodGet, "/v1/quota/nope", "", nil)
	if rec.Code != http.StatusNotFound {
		t.Errorf("expected 404 for unknown provider, got %d", rec.Code)
	}
}

func TestUsage(t *testing.T) {
	gen := &fakeGenerator{ledger: usage.Ledger{
		TotalGenerations: 3,
		SuccessCount:     2,
		FailureCount:     1,
		TotalTokens:      120,
		PerProvider:      map[string]usage.ProviderUsage{"openai": {Count: 3}},
	}}
	s := newTestServer(t, gen, nil)

	rec := do(t, s.Handler(), http.MethodGet, "/v1/usage", "", nil)
	var ledger usage.Ledger
	if err := json.NewDecoder(rec.Body).Decode(&ledger); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if ledger.TotalGenerations != 3 || ledger.PerProvider["openai"].Count != 3 {
		t.Errorf("unexpected ledger %+v", ledger)
	}

	rec = do(t, s.Handler(), http.MethodDelete, "/v1/usage", "", nil)
	if rec.Code != http.StatusNoContent || gen.resets != 1 {
		t.Errorf("expected 204 and one reset, got %d and %d", rec.Code, gen.resets)
	}
}

func TestAmbientRoutes(t *testing.T) {
	s := newTestServer(t, &fakeGenerator{}, nil)

	tests := []struct {
		method string
		path   string
		status int
	}{
		{http.MethodGet, "/health", http.StatusOK},
		{http.MethodGet, "/ready", http.StatusOK},
		{http.MethodGet, "/version", http.StatusOK},
		{http.MethodGet, "/metrics", http.StatusOK},
		{http.MethodGet, "/v1/generate", http.StatusMethodNotAllowed},
		{http.MethodGet, "/unknown", http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.method+" "+tt.path, func(t *testing.T) {
			rec := do(t, s.Handler(), tt.method, tt.path, "", nil)
			if rec.Code != tt.status {
				t.Errorf("expected %d, got %d", tt.status, rec.Code)
			}
		})
	}
}

func TestStart_Shutdown(t *testing.T) {
	gen := &fakeGenerator{}
	reg, err := registry.New(registry.Builtin()...)
	if err != nil {
		t.Fatal(err)
	}
	s, err := New(Options{
		Config: config.ServerConfig{
			ListenAddress:   "127.0.0.1:0",
			ShutdownTimeout: 2 * time.Second,
		},
		Generator: gen,
		Catalog:   reg,
		Logger:    slog.New(slog.NewTextHandler(io.Discard, nil)),
	})
	if err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- s.Start(ctx) }()

	var addr string
	deadline := time.Now().Add(2 * time.Second)
	for addr == "" && time.Now().Before(deadline) {
		addr = s.Addr()
		time.Sleep(10 * time.Millisecond)
	}
	if addr == "" {
		t.Fatal("server did not start")
	}

	resp, err := http.Get("http://" + addr + "/health")
	if err != nil {
		t.Fatalf("GET /health: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("expected 200, got %d", resp.StatusCode)
	}

	if err := s.Start(ctx); err == nil {
		t.Error("expected error starting twice")
	}

	cancel()
	select {
	case err := <-errCh:
		if err != nil {
			t.Errorf("Start returned %v", err)
		}
	case <-time.After(3 * time.Second):
		t.Fatal("server did not stop")
	}
	if s.IsRunning() {
		t.Error("server still running after shutdown")
	}
}
