// Package server exposes the generation orchestrator over HTTP.
//
// # Routes
//
//   - POST   /v1/generate          run one generation
//   - GET    /v1/providers         the provider catalog with quota status
//   - GET    /v1/quota/{provider}  one provider's quota status
//   - GET    /v1/usage             the usage ledger
//   - DELETE /v1/usage             zero the usage ledger
//   - GET    /health, /ready       liveness and readiness
//   - GET    /version              build information
//   - GET    /metrics              Prometheus metrics, when configured
//
// A generate request is JSON:
//
//	{"prompt": "login flow", "provider": "openai", "model": "gpt-4o-mini"}
//
// The provider key comes from an "Authorization: Bearer" header when
// present, otherwise from the configured KeySource. A missing key is not a
// server error; the orchestrator reports it as an auth_error failure.
//
// Failures map to HTTP status by kind: rate_limited and
// provider_rate_limited to 429 (with Retry-After when known), auth_error to
// 401, provider_unsupported to 404, and the rest to 502.
package server
