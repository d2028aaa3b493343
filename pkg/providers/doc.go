// Package providers holds the uniform contract between the orchestrator and
// the generation providers.
//
// # Overview
//
// Each provider speaks its own wire format. An Adapter translates one call
// into that format and back:
//
//   - BuildRequest shapes the outbound POST (headers, body, URL).
//   - ParseResponse pulls the generated text out of the response body.
//   - ExtractUsage reads token counts.
//   - EstimateCost prices the tokens with a costs.Calculator.
//   - ClassifyError maps any failure to an ErrorKind.
//
// Adapters live in sub-packages (openai, anthropic, gemini, generic) and
// embed Base for the provider-independent half.
//
// # Response Envelopes
//
// ParseEnvelope understands three shapes and returns "" for anything else:
//
//	{"choices": [{"message": {"content": "..."}}]}
//	{"content": [{"type": "text", "text": "..."}]}
//	{"candidates": [{"content": {"parts": [{"text": "..."}]}}]}
//
// # Transport
//
// Transport sends the built request over a pooled HTTP client and maps the
// outcome to typed errors:
//
//   - 401/403 -> *AuthError
//   - 429 -> *RateLimitError
//   - 5xx -> *ProviderError, retried when MaxRetries > 0
//   - other 4xx -> *ProviderError
//   - empty 2xx body -> *EmptyResponseError
//   - deadline -> *TimeoutError
//   - connection failures -> *NetworkError
//
// Query strings are stripped from logged URLs and transport errors, since
// some providers carry the key there.
//
// # Error Classification
//
// Classify checks typed errors first, then the HTTP status, then provider
// specific substrings (Hints) in the error text. Adapters extend the default
// hints with their own phrasing.
package providers
