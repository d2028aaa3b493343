package logging

import (
	"fmt"
	"log/slog"
	"regexp"
	"strings"
)

// Pattern is an extra redaction rule. Replacement may reference groups.
type Pattern struct {
	Name        string `yaml:"name"`
	Pattern     string `yaml:"pattern"`
	Replacement string `yaml:"replacement"`
}

// Redactor masks credentials in log values.
type Redactor struct {
	patterns []*redactPattern
}

type redactPattern struct {
	name        string
	regex       *regexp.Regexp
	replacement string
}

// Built-in pattern names.
const (
	PatternProviderKey = "provider_key"
	PatternBearerToken = "bearer_token"
	PatternQueryKey    = "query_key"
	PatternPassword    = "password"
)

// Order matters: the alternation tries the longer key prefixes first.
var defaultPatterns = []Pattern{
	{
		Name:        PatternProviderKey,
		Pattern:     `\b(sk-ant-|sk-or-|sk-|gsk_|AIza)[A-Za-z0-9_\-]{8,}`,
		Replacement: "${1}***",
	},
	{
		Name:        PatternBearerToken,
		Pattern:     `Bearer\s+[A-Za-z0-9\-._~+/]+=*`,
		Replacement: "Bearer ***",
	},
	{
		Name:        PatternQueryKey,
		Pattern:     `([?&]key=)[^&\s"']+`,
		Replacement: "${1}***",
	},
	{
		Name:        PatternPassword,
		Pattern:     `(password|passwd|pwd)[:=]\s*[^\s]+`,
		Replacement: "$1: ***",
	},
}

var sensitiveKeys = []string{
	"password", "passwd", "pwd",
	"secret", "token", "key", "api_key", "apikey",
	"authorization", "credential", "private_key",
}

// NewRedactor creates a redactor with the built-in patterns followed by
// custom. Custom patterns that fail to compile are returned as an error.
func NewRedactor(custom []Pattern) (*Redactor, error) {
	r := &Redactor{}

	for _, p := range defaultPatterns {
		r.patterns = append(r.patterns, &redactPattern{
			name:        p.Name,
			regex:       regexp.MustCompile(p.Pattern),
			replacement: p.Replacement,
		})
	}

	for _, p := range custom {
		regex, err := regexp.Compile(p.Pattern)
		if err != nil {
			return nil, fmt.Errorf("redact pattern %q: %w", p.Name, err)
		}
		r.patterns = append(r.patterns, &redactPattern{
			name:        p.Name,
			regex:       regex,
			replacement: p.Replacement,
		})
	}

	return r, nil
}

// RedactString masks every credential shape found in value.
func (r *Redactor) RedactString(value string) string {
	if value == "" {
		return value
	}

	for _, p := range r.patterns {
		value = p.regex.ReplaceAllString(value, p.replacement)
	}
	return value
}

// RedactAttr redacts a single attribute, descending into groups.
func (r *Redactor) RedactAttr(a slog.Attr) slog.Attr {
	a.Value = a.Value.Resolve()

	if isSensitiveKey(a.Key) {
		return slog.String(a.Key, maskValue(a.Value))
	}

	switch a.Value.Kind() {
	case slog.KindString:
		return slog.String(a.Key, r.RedactString(a.Value.String()))

	case slog.KindGroup:
		attrs := a.Value.Group()
		redacted := make([]slog.Attr, len(attrs))
		for i, ga := range attrs {
			redacted[i] = r.RedactAttr(ga)
		}
		return slog.Attr{Key: a.Key, Value: slog.GroupValue(redacted...)}

	case slog.KindAny:
		switch v := a.Value.Any().(type) {
		case error:
			return slog.String(a.Key, r.RedactString(v.Error()))
		case fmt.Stringer:
			return slog.String(a.Key, r.RedactString(v.String()))
		}
	}

	return a
}

// isSensitiveKey matches whole names and separator-delimited suffixes, so
// "x-api-key" and "access_token" match but "input_tokens" does not.
func isSensitiveKey(key string) bool {
	lower := strings.ToLower(key)
	for _, s := range sensitiveKeys {
		if lower == s || strings.HasSuffix(lower, "_"+s) || strings.HasSuffix(lower, "-"+s) || strings.HasSuffix(lower, "."+s) {
			return true
		}
	}
	return false
}

func maskValue(v slog.Value) string {
	if v.Kind() != slog.KindString {
		return "***"
	}
	return RedactSecret(v.String())
}

// RedactSecret keeps the first four characters of secret.
func RedactSecret(secret string) string {
	if secret == "" {
		return ""
	}
	if len(secret) <= 8 {
		return "***"
	}
	return secret[:4] + "***"
}
