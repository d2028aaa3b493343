package config

import (
	"fmt"
	"net"
	"net/url"
	"regexp"
	"sort"
	"strings"

	"github.com/robfig/cron/v3"

	"mercator-hq/sketch/pkg/kvstore"
	"mercator-hq/sketch/pkg/registry"
)

// ScheduleOff disables a scheduler job.
const ScheduleOff = "off"

var providerIDPattern = regexp.MustCompile(`^[a-z0-9][a-z0-9_-]*$`)

// FieldError is a validation error for one configuration field.
type FieldError struct {
	// Field is the dotted path to the field (e.g. "server.listen_address").
	Field string

	// Message is a human-readable error message.
	Message string
}

// Error returns the error message for this field error.
func (e FieldError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidationError collects every field error found in a configuration.
type ValidationError struct {
	Errors []FieldError
}

// Error returns a formatted string containing all validation errors.
func (e ValidationError) Error() string {
	if len(e.Errors) == 0 {
		return "configuration validation failed"
	}
	if len(e.Errors) == 1 {
		return fmt.Sprintf("configuration validation failed: %s", e.Errors[0].Error())
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "configuration validation failed with %d errors:\n", len(e.Errors))
	for _, err := range e.Errors {
		fmt.Fprintf(&sb, "  - %s\n", err.Error())
	}
	return sb.String()
}

// Validate checks the whole configuration and returns a ValidationError
// holding every problem, or nil.
func Validate(cfg *Config) error {
	var errs []FieldError

	errs = append(errs, validateServer(cfg)...)
	errs = append(errs, validateProviders(cfg.Providers)...)
	errs = append(errs, validateGeneration(&cfg.Generation)...)
	errs = append(errs, validateTransport(&cfg.Transport)...)
	errs = append(errs, validateStorage(&cfg.Storage)...)
	errs = append(errs, validatePricing(cfg)...)
	errs = append(errs, validateSecrets(&cfg.Secrets)...)
	errs = append(errs, validateScheduler(&cfg.Scheduler)...)
	errs = append(errs, validateTelemetry(&cfg.Telemetry)...)

	if len(errs) > 0 {
		return ValidationError{Errors: errs}
	}
	return nil
}

func validateServer(cfg *Config) []FieldError {
	var errs []FieldError
	s := &cfg.Server

	if s.ListenAddress == "" {
		errs = append(errs, FieldError{Field: "server.listen_address", Message: "listen address is required"})
	} else if _, _, err := net.SplitHostPort(s.ListenAddress); err != nil {
		errs = append(errs, FieldError{Field: "server.listen_address", Message: fmt.Sprintf("invalid address: %v", err)})
	}

	if s.ReadTimeout < 0 {
		errs = append(errs, FieldError{Field: "server.read_timeout", Message: "read timeout must be positive"})
	}
	if s.WriteTimeout < 0 {
		errs = append(errs, FieldError{Field: "server.write_timeout", Message: "write timeout must be positive"})
	} else if s.WriteTimeout > 0 && s.WriteTimeout <= cfg.Generation.Timeout {
		errs = append(errs, FieldError{
			Field:   "server.write_timeout",
			Message: fmt.Sprintf("write timeout %s must exceed generation timeout %s", s.WriteTimeout, cfg.Generation.Timeout),
		})
	}
	if s.IdleTimeout < 0 {
		errs = append(errs, FieldError{Field: "server.idle_timeout", Message: "idle timeout must be positive"})
	}
	if s.ShutdownTimeout < 0 {
		errs = append(errs, FieldError{Field: "server.shutdown_timeout", Message: "shutdown timeout must be positive"})
	}
	if s.MaxBodyBytes < 0 {
		errs = append(errs, FieldError{Field: "server.max_body_bytes", Message: "max body bytes must be non-negative"})
	}

	return errs
}

func validateProviders(providers map[string]ProviderConfig) []FieldError {
	var errs []FieldError

	ids := make([]string, 0, len(providers))
	for id := range providers {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	for _, id := range ids {
		p := providers[id]
		prefix := "providers." + id

		if !providerIDPattern.MatchString(id) {
			errs = append(errs, FieldError{Field: prefix, Message: "provider id must be lower-case letters, digits, '-' or '_'"})
		}

		switch p.Type {
		case "", registry.TypeOpenAI, registry.TypeAnthropic, registry.TypeGemini, registry.TypeGeneric:
		default:
			errs = append(errs, FieldError{Field: prefix + ".type", Message: fmt.Sprintf("unsupported type %q", p.Type)})
		}

		if p.Endpoint != "" {
			u, err := url.Parse(p.Endpoint)
			if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
				errs = append(errs, FieldError{Field: prefix + ".endpoint", Message: "endpoint must be an absolute http(s) URL"})
			}
		}

		for i, m := range p.Models {
			if strings.TrimSpace(m) == "" {
				errs = append(errs, FieldError{Field: fmt.Sprintf("%s.models[%d]", prefix, i), Message: "model id cannot be empty"})
			}
		}

		if p.Quota.MaxRequests < 0 {
			errs = append(errs, FieldError{Field: prefix + ".quota.max_requests", Message: "must be non-negative"})
		}
		if p.Quota.WindowMinutes < 0 {
			errs = append(errs, FieldError{Field: prefix + ".quota.window_minutes", Message: "must be non-negative"})
		}

		for name := range p.Headers {
			if strings.TrimSpace(name) == "" {
				errs = append(errs, FieldError{Field: prefix + ".headers", Message: "header name cannot be empty"})
			}
		}
	}

	return errs
}

func validateGeneration(g *GenerationConfig) []FieldError {
	var errs []FieldError
	if g.Timeout <= 0 {
		errs = append(errs, FieldError{Field: "generation.timeout", Message: "timeout must be positive"})
	}
	if g.MaxTokens < 0 {
		errs = append(errs, FieldError{Field: "generation.max_tokens", Message: "max tokens must be non-negative"})
	}
	return errs
}

func validateTransport(t *TransportConfig) []FieldError {
	var errs []FieldError
	if t.MaxRetries < 0 {
		errs = append(errs, FieldError{Field: "transport.max_retries", Message: "max retries must be non-negative"})
	}
	if t.MaxRetries > 10 {
		errs = append(errs, FieldError{Field: "transport.max_retries", Message: "max retries exceeds reasonable limit (10)"})
	}
	if t.RetryBackoff < 0 {
		errs = append(errs, FieldError{Field: "transport.retry_backoff", Message: "retry backoff must be non-negative"})
	}
	return errs
}

func validateStorage(s *StorageConfig) []FieldError {
	var errs []FieldError

	switch s.Backend {
	case kvstore.BackendMemory:
	case kvstore.BackendSQLite:
		if s.SQLite.Path == "" {
			errs = append(errs, FieldError{Field: "storage.sqlite.path", Message: "path is required for the sqlite backend"})
		}
		switch s.SQLite.Driver {
		case kvstore.DriverModernc, kvstore.DriverCGO:
		default:
			errs = append(errs, FieldError{
				Field:   "storage.sqlite.driver",
				Message: fmt.Sprintf("driver must be %q or %q", kvstore.DriverModernc, kvstore.DriverCGO),
			})
		}
		if s.SQLite.BusyTimeout < 0 {
			errs = append(errs, FieldError{Field: "storage.sqlite.busy_timeout", Message: "busy timeout must be non-negative"})
		}
	default:
		errs = append(errs, FieldError{
			Field:   "storage.backend",
			Message: fmt.Sprintf("backend must be %q or %q", kvstore.BackendSQLite, kvstore.BackendMemory),
		})
	}

	return errs
}

func validatePricing(cfg *Config) []FieldError {
	var errs []FieldError

	ids := make([]string, 0, len(cfg.Pricing))
	for id := range cfg.Pricing {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	for _, id := range ids {
		pricing := cfg.Pricing[id]
		for model, rate := range pricing.Models {
			if rate.InputPer1K < 0 || rate.OutputPer1K < 0 {
				errs = append(errs, FieldError{
					Field:   fmt.Sprintf("pricing.%s.models.%s", id, model),
					Message: "rates must be non-negative",
				})
			}
		}
	}

	return errs
}

func validateSecrets(s *SecretsConfig) []FieldError {
	var errs []FieldError
	if s.Watch && s.Dir == "" {
		errs = append(errs, FieldError{Field: "secrets.watch", Message: "watch requires secrets.dir"})
	}
	if s.CacheTTL < 0 {
		errs = append(errs, FieldError{Field: "secrets.cache_ttl", Message: "cache TTL must be non-negative"})
	}
	if s.CacheMaxSize < 0 {
		errs = append(errs, FieldError{Field: "secrets.cache_max_size", Message: "cache size must be non-negative"})
	}
	return errs
}

func validateScheduler(s *SchedulerConfig) []FieldError {
	var errs []FieldError
	check := func(field, spec string) {
		if spec == "" || spec == ScheduleOff {
			return
		}
		if _, err := cron.ParseStandard(spec); err != nil {
			errs = append(errs, FieldError{Field: field, Message: fmt.Sprintf("invalid schedule %q: %v", spec, err)})
		}
	}
	check("scheduler.prune_schedule", s.PruneSchedule)
	check("scheduler.summary_schedule", s.SummarySchedule)
	return errs
}

func validateTelemetry(t *TelemetryConfig) []FieldError {
	var errs []FieldError

	switch strings.ToLower(t.Logging.Level) {
	case "debug", "info", "warn", "warning", "error":
	default:
		errs = append(errs, FieldError{
			Field:   "telemetry.logging.level",
			Message: fmt.Sprintf("invalid level %q (must be debug, info, warn or error)", t.Logging.Level),
		})
	}

	switch strings.ToLower(t.Logging.Format) {
	case "json", "text", "console":
	default:
		errs = append(errs, FieldError{
			Field:   "telemetry.logging.format",
			Message: fmt.Sprintf("invalid format %q (must be json or text)", t.Logging.Format),
		})
	}

	if !strings.HasPrefix(t.Metrics.Path, "/") {
		errs = append(errs, FieldError{Field: "telemetry.metrics.path", Message: "path must start with '/'"})
	}
	if t.Metrics.MaxCardinality < 0 {
		errs = append(errs, FieldError{Field: "telemetry.metrics.max_cardinality", Message: "must be non-negative"})
	}

	return errs
}
