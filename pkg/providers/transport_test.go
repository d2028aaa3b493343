package providers

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"
)

func newTestTransport(maxRetries int) *Transport {
	return NewTransport(TransportConfig{
		Timeout:      2 * time.Second,
		MaxRetries:   maxRetries,
		RetryBackoff: 5 * time.Millisecond,
	}, nil)
}

func postRequest(t *testing.T, url string) *http.Request {
	t.Helper()
	req, err := http.NewRequest(http.MethodPost, url, bytes.NewReader([]byte(`{"x":1}`)))
	if err != nil {
		t.Fatalf("NewRequest failed: %v", err)
	}
	return req
}

func TestTransport_Success(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"choices":[{"message":{"content":"ok"}}]}`))
	}))
	defer server.Close()

	resp, err := newTestTransport(0).Do(context.Background(), "demo", postRequest(t, server.URL))
	if err != nil {
		t.Fatalf("Do failed: %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Errorf("expected 200, got %d", resp.StatusCode)
	}
	if ParseEnvelope(resp.Body) != "ok" {
		t.Errorf("unexpected body: %s", resp.Body)
	}
}

func TestTransport_StatusMapping(t *testing.T) {
	tests := []struct {
		name   string
		status int
		header map[string]string
		check  func(t *testing.T, err error)
	}{
		{
			name:   "401",
			status: http.StatusUnauthorized,
			check: func(t *testing.T, err error) {
				var authErr *AuthError
				if !errors.As(err, &authErr) {
					t.Fatalf("expected AuthError, got %T: %v", err, err)
				}
			},
		},
		{
			name:   "403",
			status: http.StatusForbidden,
			check: func(t *testing.T, err error) {
				var authErr *AuthError
				if !errors.As(err, &authErr) || authErr.StatusCode != 403 {
					t.Fatalf("expected AuthError(403), got %T: %v", err, err)
				}
			},
		},
		{
			name:   "429",
			status: http.StatusTooManyRequests,
			header: map[string]string{"Retry-After": "7"},
			check: func(t *testing.T, err error) {
				var rateErr *RateLimitError
				if !errors.As(err, &rateErr) {
					t.Fatalf("expected RateLimitError, got %T: %v", err, err)
				}
				if rateErr.RetryAfter != 7*time.Second {
					t.Errorf("expected retry after 7s, got %s", rateErr.RetryAfter)
				}
			},
		},
		{
			name:   "400",
			status: http.StatusBadRequest,
			check: func(t *testing.T, err error) {
				var provErr *ProviderError
				if !errors.As(err, &provErr) || provErr.StatusCode != 400 {
					t.Fatalf("expected ProviderError(400), got %T: %v", err, err)
				}
				if !strings.Contains(provErr.Message, "boom") {
					t.Errorf("expected body in message, got %q", provErr.Message)
				}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				for k, v := range tt.header {
					w.Header().Set(k, v)
				}
				w.WriteHeader(tt.status)
				w.Write([]byte(`{"error":"boom"}`))
			}))
			defer server.Close()

			_, err := newTestTransport(2).Do(context.Background(), "demo", postRequest(t, server.URL))
			if err == nil {
				t.Fatal("expected error, got nil")
			}
			tt.check(t, err)
		})
	}
}

func TestTransport_EmptyBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	_, err := newTestTransport(0).Do(context.Background(), "demo", postRequest(t, server.URL))
	var emptyErr *EmptyResponseError
	if !errors.As(err, &emptyErr) {
		t.Fatalf("expected EmptyResponseError, got %T: %v", err, err)
	}
}

func TestTransport_RetriesServerErrors(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body := new(bytes.Buffer)
		body.ReadFrom(r.Body)
		if body.String() != `{"x":1}` {
			t.Errorf("retry lost request body: %q", body.String())
		}
		if atomic.AddInt32(&calls, 1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.Write([]byte(`{"content":[{"text":"done"}]}`))
	}))
	defer server.Close()

	resp, err := newTestTransport(2).Do(context.Background(), "demo", postRequest(t, server.URL))
	if err != nil {
		t.Fatalf("Do failed: %v", err)
	}
	if ParseEnvelope(resp.Body) != "done" {
		t.Errorf("unexpected body: %s", resp.Body)
	}
	if got := atomic.LoadInt32(&calls); got != 3 {
		t.Errorf("expected 3 calls, got %d", got)
	}
}

func TestTransport_NoRetryByDefault(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	_, err := newTestTransport(0).Do(context.Background(), "demo", postRequest(t, server.URL))
	var provErr *ProviderError
	if !errors.As(err, &provErr) || provErr.StatusCode != http.StatusBadGateway {
		t.Fatalf("expected ProviderError(502), got %T: %v", err, err)
	}
	if got := atomic.LoadInt32(&calls); got != 1 {
		t.Errorf("expected exactly 1 call, got %d", got)
	}
}

func TestTransport_Deadline(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-time.After(2 * time.Second):
		case <-r.Context().Done():
		}
	}))
	defer server.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := newTestTransport(0).Do(ctx, "demo", postRequest(t, server.URL))
	var timeoutErr *TimeoutError
	if !errors.As(err, &timeoutErr) {
		t.Fatalf("expected TimeoutError, got %T: %v", err, err)
	}
	if Classify(err, DefaultHints()) != KindNetwork {
		t.Errorf("expected network kind, got %s", Classify(err, DefaultHints()))
	}
}

func TestTransport_ConnectionRefused(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := server.URL + "/v1beta/models/m:generateContent?key=AIzaSECRET"
	server.Close()

	_, err := newTestTransport(0).Do(context.Background(), "demo", postRequest(t, url))
	var netErr *NetworkError
	if !errors.As(err, &netErr) {
		t.Fatalf("expected NetworkError, got %T: %v", err, err)
	}
	if strings.Contains(err.Error(), "AIzaSECRET") {
		t.Errorf("error leaked the key: %v", err)
	}
}

func TestParseRetryAfter(t *testing.T) {
	if got := parseRetryAfter(""); got != 0 {
		t.Errorf("empty: got %s", got)
	}
	if got := parseRetryAfter("3"); got != 3*time.Second {
		t.Errorf("seconds: got %s", got)
	}
	if got := parseRetryAfter("soon"); got != 0 {
		t.Errorf("garbage: got %s", got)
	}
}
