package config

import (
	"errors"
	"strings"
	"testing"
	"time"

	"mercator-hq/sketch/pkg/processing/costs"
	"mercator-hq/sketch/pkg/registry"
)

func TestValidate_Defaults(t *testing.T) {
	if err := Validate(Default()); err != nil {
		t.Fatalf("defaults should validate: %v", err)
	}
}

func TestValidate_Fields(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		field  string
	}{
		{"listen address", func(c *Config) { c.Server.ListenAddress = "localhost" }, "server.listen_address"},
		{"write timeout below generation", func(c *Config) { c.Server.WriteTimeout = 30 * time.Second }, "server.write_timeout"},
		{"max body", func(c *Config) { c.Server.MaxBodyBytes = -1 }, "server.max_body_bytes"},
		{"provider id", func(c *Config) { c.Providers = map[string]ProviderConfig{"Bad ID": {}} }, "providers.Bad ID"},
		{"provider type", func(c *Config) { c.Providers = map[string]ProviderConfig{"x": {Type: "soap"}} }, "providers.x.type"},
		{"provider endpoint", func(c *Config) {
			c.Providers = map[string]ProviderConfig{"x": {Endpoint: "ftp://files"}}
		}, "providers.x.endpoint"},
		{"provider model", func(c *Config) {
			c.Providers = map[string]ProviderConfig{"x": {Models: []string{"ok", " "}}}
		}, "providers.x.models[1]"},
		{"provider quota", func(c *Config) {
			c.Providers = map[string]ProviderConfig{"x": {Quota: registry.Quota{MaxRequests: -1}}}
		}, "providers.x.quota.max_requests"},
		{"generation timeout", func(c *Config) { c.Generation.Timeout = 0 }, "generation.timeout"},
		{"max tokens", func(c *Config) { c.Generation.MaxTokens = -5 }, "generation.max_tokens"},
		{"retries", func(c *Config) { c.Transport.MaxRetries = 11 }, "transport.max_retries"},
		{"backend", func(c *Config) { c.Storage.Backend = "postgres" }, "storage.backend"},
		{"sqlite driver", func(c *Config) { c.Storage.SQLite.Driver = "pgx" }, "storage.sqlite.driver"},
		{"sqlite path", func(c *Config) { c.Storage.SQLite.Path = "" }, "storage.sqlite.path"},
		{"pricing", func(c *Config) {
			c.Pricing = costs.Table{"x": {Models: map[string]costs.Rate{"m": {InputPer1K: -1}}}}
		}, "pricing.x.models.m"},
		{"watch without dir", func(c *Config) { c.Secrets.Watch = true }, "secrets.watch"},
		{"schedule", func(c *Config) { c.Scheduler.PruneSchedule = "sometimes" }, "scheduler.prune_schedule"},
		{"log level", func(c *Config) { c.Telemetry.Logging.Level = "verbose" }, "telemetry.logging.level"},
		{"log format", func(c *Config) { c.Telemetry.Logging.Format = "xml" }, "telemetry.logging.format"},
		{"metrics path", func(c *Config) { c.Telemetry.Metrics.Path = "metrics" }, "telemetry.metrics.path"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)

			err := Validate(cfg)
			var verr ValidationError
			if !errors.As(err, &verr) {
				t.Fatalf("expected ValidationError, got %v", err)
			}
			found := false
			for _, fe := range verr.Errors {
				if fe.Field == tt.field {
					found = true
				}
			}
			if !found {
				t.Errorf("expected error on %s, got %v", tt.field, verr.Errors)
			}
		})
	}
}

func TestValidate_ScheduleOff(t *testing.T) {
	cfg := Default()
	cfg.Scheduler.PruneSchedule = ScheduleOff
	if err := Validate(cfg); err != nil {
		t.Errorf("off schedule should validate: %v", err)
	}
}

func TestValidationError_Message(t *testing.T) {
	single := ValidationError{Errors: []FieldError{{Field: "a", Message: "bad"}}}
	if single.Error() != "configuration validation failed: a: bad" {
		t.Errorf("unexpected single message %q", single.Error())
	}

	multi := ValidationError{Errors: []FieldError{{Field: "a", Message: "bad"}, {Field: "b", Message: "worse"}}}
	if !strings.Contains(multi.Error(), "2 errors") || !strings.Contains(multi.Error(), "  - b: worse") {
		t.Errorf("unexpected multi message %q", multi.Error())
	}

	if (ValidationError{}).Error() != "configuration validation failed" {
		t.Error("unexpected empty message")
	}
}
