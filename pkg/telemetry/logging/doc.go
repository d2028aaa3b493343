// Package logging builds the process logger: log/slog with secret redaction
// and context-derived fields.
//
// # Usage
//
//	logger, err := logging.New(logging.Config{
//	    Level:         "info",
//	    Format:        "json",
//	    RedactSecrets: true,
//	})
//	slog.SetDefault(logger.Slog())
//
//	ctx = logging.WithRequestID(ctx, id)
//	logger.InfoContext(ctx, "generation started",
//	    "provider", "openai",
//	    "secret", key, // logged as "sk-p***"
//	)
//
// Components receive the *slog.Logger from Slog(), so redaction applies to
// every record regardless of which API produced it.
//
// # Redaction
//
// With RedactSecrets enabled the handler rewrites:
//
//   - provider key shapes: sk-…, sk-ant-…, sk-or-…, gsk_…, AIza… → prefix***
//   - bearer tokens: Bearer abc → Bearer ***
//   - key query parameters: ?key=abc → ?key=***
//   - values under sensitive attribute names (secret, token, api_key, ...)
package logging
