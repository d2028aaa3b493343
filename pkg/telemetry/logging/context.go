package logging

import "context"

type contextKey string

// Context keys for fields added to every record logged with a context.
const (
	RequestIDKey contextKey = "request_id"
	ProviderKey  contextKey = "provider"
	ModelKey     contextKey = "model"
)

// fieldKeys is the order context fields appear in a record.
var fieldKeys = []contextKey{RequestIDKey, ProviderKey, ModelKey}

// WithRequestID tags ctx with the id of one generation or HTTP request.
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, RequestIDKey, requestID)
}

// GetRequestID returns the request id stored in ctx, or "".
func GetRequestID(ctx context.Context) string {
	return stringValue(ctx, RequestIDKey)
}

// WithProvider tags ctx with a provider id.
func WithProvider(ctx context.Context, provider string) context.Context {
	return context.WithValue(ctx, ProviderKey, provider)
}

// GetProvider returns the provider id stored in ctx, or "".
func GetProvider(ctx context.Context) string {
	return stringValue(ctx, ProviderKey)
}

// WithModel tags ctx with the model a generation targets.
func WithModel(ctx context.Context, model string) context.Context {
	return context.WithValue(ctx, ModelKey, model)
}

// GetModel returns the model stored in ctx, or "".
func GetModel(ctx context.Context) string {
	return stringValue(ctx, ModelKey)
}

func stringValue(ctx context.Context, key contextKey) string {
	if ctx == nil {
		return ""
	}
	v, _ := ctx.Value(key).(string)
	return v
}

// extractContextFields returns the non-empty context fields as key-value
// pairs ready for slog.
func extractContextFields(ctx context.Context) []any {
	var fields []any
	for _, key := range fieldKeys {
		if v := stringValue(ctx, key); v != "" {
			fields = append(fields, string(key), v)
		}
	}
	return fields
}
