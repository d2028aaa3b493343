package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"
)

func newBufferLogger(t *testing.T, cfg Config) (*Logger, *bytes.Buffer) {
	t.Helper()
	buf := &bytes.Buffer{}
	cfg.Writer = buf
	logger, err := New(cfg)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	return logger, buf
}

func decodeLines(t *testing.T, buf *bytes.Buffer) []map[string]any {
	t.Helper()
	var out []map[string]any
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		if line == "" {
			continue
		}
		var m map[string]any
		if err := json.Unmarshal([]byte(line), &m); err != nil {
			t.Fatalf("invalid JSON line %q: %v", line, err)
		}
		out = append(out, m)
	}
	return out
}

func TestNew(t *testing.T) {
	tests := []struct {
		name    string
		config  Config
		wantErr bool
	}{
		{"json", Config{Level: "info", Format: "json"}, false},
		{"text", Config{Level: "debug", Format: "text"}, false},
		{"console is text", Config{Level: "WARN", Format: "console"}, false},
		{"defaults", Config{}, false},
		{"invalid level", Config{Level: "loud"}, true},
		{"invalid format", Config{Format: "xml"}, true},
		{"invalid pattern", Config{RedactSecrets: true, RedactPatterns: []Pattern{{Name: "x", Pattern: "("}}}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.config.Writer = &bytes.Buffer{}
			_, err := New(tt.config)
			if (err != nil) != tt.wantErr {
				t.Errorf("New() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestLogger_LevelFiltering(t *testing.T) {
	logger, buf := newBufferLogger(t, Config{Level: "warn"})

	logger.Debug("debug")
	logger.Info("info")
	logger.Warn("warn")
	logger.Error("error")

	lines := decodeLines(t, buf)
	if len(lines) != 2 {
		t.Fatalf("expected 2 lines, got %d: %s", len(lines), buf.String())
	}
	if lines[0]["msg"] != "warn" || lines[1]["msg"] != "error" {
		t.Errorf("unexpected messages: %v", lines)
	}
}

func TestLogger_RedactsSecrets(t *testing.T) {
	logger, buf := newBufferLogger(t, Config{RedactSecrets: true})

	logger.Info("calling provider with sk-proj-abcdef123456",
		"secret", "sk-ant-api03-abcdefgh",
		"url", "https://x.test/m:generateContent?key=AIzaSyA1234567890",
		"model", "gpt-4o",
	)
	logger.With("authorization", "Bearer abcdefghijk").Info("bound")
	logger.Slog().Info("via slog", "note", "gsk_abcdefgh12")

	out := buf.String()
	for _, leaked := range []string{"abcdef123456", "api03-abcdefgh", "SyA1234567890", "abcdefghijk", "abcdefgh12"} {
		if strings.Contains(out, leaked) {
			t.Errorf("secret fragment %q leaked: %s", leaked, out)
		}
	}
	if !strings.Contains(out, `"model":"gpt-4o"`) {
		t.Errorf("expected model to be logged verbatim: %s", out)
	}
}

func TestLogger_NoRedactionWhenDisabled(t *testing.T) {
	logger, buf := newBufferLogger(t, Config{})

	logger.Info("plain", "note", "sk-proj-abcdef123456")
	if !strings.Contains(buf.String(), "sk-proj-abcdef123456") {
		t.Errorf("expected value unchanged: %s", buf.String())
	}
}

func TestLogger_ContextFields(t *testing.T) {
	logger, buf := newBufferLogger(t, Config{Level: "debug"})

	ctx := WithRequestID(context.Background(), "req-1")
	ctx = WithProvider(ctx, "openai")
	ctx = WithModel(ctx, "gpt-4o-mini")

	logger.InfoContext(ctx, "via logger")
	logger.Slog().DebugContext(ctx, "via slog")
	logger.Info("no context")

	lines := decodeLines(t, buf)
	if len(lines) != 3 {
		t.Fatalf("expected 3 lines, got %d", len(lines))
	}
	for _, line := range lines[:2] {
		if line["request_id"] != "req-1" || line["provider"] != "openai" || line["model"] != "gpt-4o-mini" {
			t.Errorf("missing context fields: %v", line)
		}
	}
	if _, ok := lines[2]["request_id"]; ok {
		t.Errorf("unexpected request_id without context: %v", lines[2])
	}
}

func TestLogger_WithContext(t *testing.T) {
	logger, buf := newBufferLogger(t, Config{})

	bound := logger.WithContext(WithRequestID(context.Background(), "req-2"))
	bound.Info("bound")

	if !strings.Contains(buf.String(), `"request_id":"req-2"`) {
		t.Errorf("expected request_id: %s", buf.String())
	}
	if logger.WithContext(context.Background()) != logger {
		t.Error("expected the same logger for an empty context")
	}
}

func TestLogger_TextFormat(t *testing.T) {
	logger, buf := newBufferLogger(t, Config{Format: "text"})

	logger.Info("hello", "provider", "gemini")
	if !strings.Contains(buf.String(), "provider=gemini") {
		t.Errorf("expected logfmt output: %s", buf.String())
	}
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"", slog.LevelInfo},
		{"WARNING", slog.LevelWarn},
		{"error", slog.LevelError},
	}
	for _, tt := range tests {
		got, err := parseLevel(tt.in)
		if err != nil || got != tt.want {
			t.Errorf("parseLevel(%q) = %v, %v", tt.in, got, err)
		}
	}
}

func TestContextKeys_Empty(t *testing.T) {
	ctx := context.Background()
	if GetRequestID(ctx) != "" || GetProvider(ctx) != "" || GetModel(ctx) != "" {
		t.Error("expected empty values")
	}
	if fields := extractContextFields(ctx); len(fields) != 0 {
		t.Errorf("expected no fields, got %v", fields)
	}
}

func BenchmarkLogger_WithRedaction(b *testing.B) {
	logger, err := New(Config{RedactSecrets: true, Writer: &bytes.Buffer{}})
	if err != nil {
		b.Fatalf("New failed: %v", err)
	}

	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		logger.Info("generation", "provider", "openai", "secret", "sk-abcdefghijkl", "count", i)
	}
}
