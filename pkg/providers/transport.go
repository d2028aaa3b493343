package providers

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// Response is a successful provider reply.
type Response struct {
	StatusCode int
	Header     http.Header
	Body       []byte
}

// Transport sends adapter-built requests over a pooled HTTP client and maps
// failures to typed errors.
type Transport struct {
	config TransportConfig
	client *http.Client
	logger *slog.Logger
}

// NewTransport creates a transport with connection pooling.
func NewTransport(config TransportConfig, logger *slog.Logger) *Transport {
	config.applyDefaults()
	if logger == nil {
		logger = slog.Default()
	}

	transport := &http.Transport{
		Proxy:               http.ProxyFromEnvironment,
		MaxIdleConns:        config.MaxIdleConns,
		MaxIdleConnsPerHost: config.MaxIdleConnsPerHost,
		IdleConnTimeout:     config.IdleConnTimeout,
		ForceAttemptHTTP2:   true,
	}

	return &Transport{
		config: config,
		client: &http.Client{
			Transport: transport,
			Timeout:   config.Timeout,
		},
		logger: logger.With("component", "providers.transport"),
	}
}

// NewTransportWithClient creates a transport over an existing client, e.g.
// an httptest server's client.
func NewTransportWithClient(config TransportConfig, client *http.Client, logger *slog.Logger) *Transport {
	t := NewTransport(config, logger)
	t.client = client
	return t
}

// Config returns the transport configuration with defaults applied.
func (t *Transport) Config() TransportConfig {
	return t.config
}

// Do sends req on behalf of provider. Network errors and 5xx responses are
// retried up to MaxRetries times with exponential backoff; other failures
// return at once.
//
// A 2xx response with an empty body returns *EmptyResponseError.
func (t *Transport) Do(ctx context.Context, provider string, req *http.Request) (*Response, error) {
	var lastErr error

	for attempt := 0; attempt <= t.config.MaxRetries; attempt++ {
		if attempt > 0 {
			backoff := time.Duration(math.Pow(2, float64(attempt-1))) * t.config.RetryBackoff
			t.logger.Debug("retrying request",
				"provider", provider,
				"attempt", attempt,
				"max_retries", t.config.MaxRetries,
				"backoff", backoff,
			)

			select {
			case <-ctx.Done():
				return nil, &TimeoutError{Provider: provider, Cause: ctx.Err()}
			case <-time.After(backoff):
			}

			retry, err := rewind(ctx, req)
			if err != nil {
				return nil, lastErr
			}
			req = retry
		}

		t.logger.Debug("sending request to provider",
			"provider", provider,
			"method", req.Method,
			"url", safeURL(req.URL),
		)

		resp, err := t.client.Do(req.WithContext(ctx))
		if err != nil {
			if ctx.Err() != nil {
				return nil, &TimeoutError{Provider: provider, Cause: ctx.Err()}
			}

			var urlErr *url.Error
			if errors.As(err, &urlErr) && urlErr.Timeout() {
				lastErr = &TimeoutError{Provider: provider, Timeout: t.config.Timeout, Cause: err}
			} else {
				lastErr = &NetworkError{Provider: provider, Cause: scrub(err)}
			}

			t.logger.Warn("request failed",
				"provider", provider,
				"attempt", attempt+1,
				"error", lastErr,
			)
			continue
		}

		body, err := io.ReadAll(io.LimitReader(resp.Body, t.config.MaxResponseBytes))
		resp.Body.Close()
		if err != nil {
			if ctx.Err() != nil {
				return nil, &TimeoutError{Provider: provider, Cause: ctx.Err()}
			}
			lastErr = &NetworkError{Provider: provider, Cause: fmt.Errorf("failed to read response: %w", err)}
			continue
		}

		if resp.StatusCode >= 200 && resp.StatusCode < 300 {
			if len(strings.TrimSpace(string(body))) == 0 {
				return nil, &EmptyResponseError{Provider: provider, StatusCode: resp.StatusCode}
			}
			return &Response{StatusCode: resp.StatusCode, Header: resp.Header, Body: body}, nil
		}

		switch {
		case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
			return nil, &AuthError{
				Provider:   provider,
				StatusCode: resp.StatusCode,
				Message:    string(body),
			}

		case resp.StatusCode == http.StatusTooManyRequests:
			return nil, &RateLimitError{
				Provider:   provider,
				RetryAfter: parseRetryAfter(resp.Header.Get("Retry-After")),
				Message:    string(body),
			}

		case resp.StatusCode >= 500:
			lastErr = &ProviderError{
				Provider:   provider,
				StatusCode: resp.StatusCode,
				Message:    string(body),
			}
			t.logger.Warn("request returned error status",
				"provider", provider,
				"status", resp.StatusCode,
				"attempt", attempt+1,
			)

		default:
			return nil, &ProviderError{
				Provider:   provider,
				StatusCode: resp.StatusCode,
				Message:    string(body),
			}
		}
	}

	return nil, lastErr
}

// CloseIdleConnections releases pooled connections.
func (t *Transport) CloseIdleConnections() {
	t.client.CloseIdleConnections()
}

// rewind returns a copy of req with a fresh body for a retry.
func rewind(ctx context.Context, req *http.Request) (*http.Request, error) {
	clone := req.Clone(ctx)
	if req.Body == nil || req.Body == http.NoBody {
		return clone, nil
	}
	if req.GetBody == nil {
		return nil, fmt.Errorf("request body cannot be replayed")
	}
	body, err := req.GetBody()
	if err != nil {
		return nil, err
	}
	clone.Body = body
	return clone, nil
}

// safeURL drops the query string, which may carry a credential.
func safeURL(u *url.URL) string {
	if u == nil {
		return ""
	}
	c := *u
	c.RawQuery = ""
	c.User = nil
	return c.String()
}

// scrub removes query strings from URLs embedded in transport errors.
func scrub(err error) error {
	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		if u, perr := url.Parse(urlErr.URL); perr == nil {
			return &url.Error{Op: urlErr.Op, URL: safeURL(u), Err: urlErr.Err}
		}
	}
	return err
}

// parseRetryAfter parses the Retry-After header value.
// It supports both delay-seconds and HTTP-date formats.
func parseRetryAfter(header string) time.Duration {
	if header == "" {
		return 0
	}

	var seconds int
	if _, err := fmt.Sscanf(header, "%d", &seconds); err == nil {
		return time.Duration(seconds) * time.Second
	}

	if t, err := http.ParseTime(header); err == nil {
		return time.Until(t)
	}

	return 0
}
