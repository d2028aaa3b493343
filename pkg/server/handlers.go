package server

import (
	"encoding/json"
	"errors"
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"

	"mercator-hq/sketch/pkg/limits/ratelimit"
	"mercator-hq/sketch/pkg/orchestrator"
	"mercator-hq/sketch/pkg/providers"
	"mercator-hq/sketch/pkg/registry"
	"mercator-hq/sketch/pkg/security/secrets"
)

// GenerateRequest is the body of POST /v1/generate.
type GenerateRequest struct {
	Prompt   string `json:"prompt"`
	Provider string `json:"provider"`
	Model    string `json:"model,omitempty"`
}

// ErrorBody is the JSON error envelope.
type ErrorBody struct {
	Error ErrorDetail `json:"error"`
}

// ErrorDetail describes one failed request.
type ErrorDetail struct {
	Kind              string    `json:"kind"`
	Message           string    `json:"message"`
	RequestID         string    `json:"request_id,omitempty"`
	Provider          string    `json:"provider,omitempty"`
	ResetAt           time.Time `json:"reset_at,omitzero"`
	RetryAfterSeconds int       `json:"retry_after_seconds,omitempty"`
}

// ProviderInfo is one entry of GET /v1/providers.
type ProviderInfo struct {
	registry.Descriptor
	Status ratelimit.Status `json:"status"`
}

// Kinds used for request errors that never reach the orchestrator.
const (
	kindInvalidRequest = "invalid_request"
	kindNotFound       = "not_found"
	kindInternal       = "internal_error"
)

func (s *Server) handleGenerate(w http.ResponseWriter, r *http.Request) {
	var req GenerateRequest
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			writeError(w, http.StatusRequestEntityTooLarge, ErrorDetail{
				Kind:    kindInvalidRequest,
				Message: "request body too large",
			})
			return
		}
		writeError(w, http.StatusBadRequest, ErrorDetail{
			Kind:    kindInvalidRequest,
			Message: "invalid JSON body: " + err.Error(),
		})
		return
	}

	req.Prompt = strings.TrimSpace(req.Prompt)
	req.Provider = strings.TrimSpace(req.Provider)
	switch {
	case req.Prompt == "":
		writeError(w, http.StatusBadRequest, ErrorDetail{Kind: kindInvalidRequest, Message: "prompt is required"})
		return
	case req.Provider == "":
		writeError(w, http.StatusBadRequest, ErrorDetail{Kind: kindInvalidRequest, Message: "provider is required"})
		return
	}

	secret, err := s.secretFor(r, req.Provider)
	if err != nil {
		s.logger.ErrorContext(r.Context(), "failed to resolve provider key",
			"provider", req.Provider,
			"error", err,
		)
		writeError(w, http.StatusInternalServerError, ErrorDetail{
			Kind:     kindInternal,
			Message:  "failed to resolve provider key",
			Provider: req.Provider,
		})
		return
	}

	res := s.opts.Generator.Generate(r.Context(), orchestrator.Request{
		Prompt:     req.Prompt,
		ProviderID: req.Provider,
		ModelID:    strings.TrimSpace(req.Model),
		Secret:     secret,
	})

	if res.OK() {
		writeJSON(w, http.StatusOK, res.Success)
		return
	}

	f := res.Failure
	detail := ErrorDetail{
		Kind:      string(f.Kind),
		Message:   f.Message,
		RequestID: f.RequestID,
		Provider:  f.Provider,
		ResetAt:   f.ResetAt,
	}

	if retry := retryAfter(f, time.Now()); retry > 0 {
		detail.RetryAfterSeconds = retry
		w.Header().Set("Retry-After", strconv.Itoa(retry))
	}

	writeError(w, statusForKind(f.Kind), detail)
}

// secretFor prefers a bearer token and falls back to the key source. A key
// that is simply absent yields "".
func (s *Server) secretFor(r *http.Request, providerID string) (string, error) {
	if token, ok := bearerToken(r); ok {
		return token, nil
	}
	if s.opts.Keys == nil {
		return "", nil
	}

	key, err := s.opts.Keys.ProviderKey(r.Context(), providerID)
	if errors.Is(err, secrets.ErrNotFound) {
		return "", nil
	}
	return key, err
}

func bearerToken(r *http.Request) (string, bool) {
	scheme, token, ok := strings.Cut(r.Header.Get("Authorization"), " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}

// retryAfter returns whole seconds to wait, rounded up, or 0 when unknown.
func retryAfter(f *orchestrator.Failure, now time.Time) int {
	var d time.Duration
	switch {
	case f.RetryAfter > 0:
		d = f.RetryAfter
	case !f.ResetAt.IsZero():
		d = f.ResetAt.Sub(now)
	}
	if d <= 0 {
		return 0
	}
	return int(math.Ceil(d.Seconds()))
}

func statusForKind(kind providers.ErrorKind) int {
	switch kind {
	case providers.KindRateLimited, providers.KindProviderRateLimited:
		return http.StatusTooManyRequests
	case providers.KindAuth:
		return http.StatusUnauthorized
	case providers.KindProviderUnsupported:
		return http.StatusNotFound
	default:
		return http.StatusBadGateway
	}
}

func (s *Server) handleProviders(w http.ResponseWriter, r *http.Request) {
	descs := s.opts.Catalog.List()
	out := make([]ProviderInfo, 0, len(descs))
	for _, d := range descs {
		out = append(out, ProviderInfo{
			Descriptor: d,
			Status:     s.opts.Generator.QuotaStatus(r.Context(), d.ID),
		})
	}
	writeJSON(w, http.StatusOK, map[string]any{"providers": out})
}

func (s *Server) handleQuota(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("provider")
	if _, err := s.opts.Catalog.Get(id); err != nil {
		writeError(w, http.StatusNotFound, ErrorDetail{
			Kind:     kindNotFound,
			Message:  err.Error(),
			Provider: id,
		})
		return
	}
	writeJSON(w, http.StatusOK, s.opts.Generator.QuotaStatus(r.Context(), id))
}

func (s *Server) handleUsage(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.opts.Generator.LedgerSnapshot(r.Context()))
}

func (s *Server) handleResetUsage(w http.ResponseWriter, r *http.Request) {
	s.opts.Generator.ResetLedger(r.Context())
	w.WriteHeader(http.StatusNoContent)
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, code int, detail ErrorDetail) {
	writeJSON(w, code, ErrorBody{Error: detail})
}
