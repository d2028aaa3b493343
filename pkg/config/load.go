package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// EnvPrefix prefixes every environment override.
const EnvPrefix = "SKETCH_"

// LoadConfig reads the YAML file at path, applies defaults and validates.
// Environment variables are not consulted.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read configuration file %q: %w", path, err)
	}

	cfg, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse configuration file %q: %w", path, err)
	}

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return cfg, nil
}

// Parse decodes YAML and applies defaults without validating. Unknown
// fields are rejected.
func Parse(data []byte) (*Config, error) {
	var cfg Config

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, err
	}

	ApplyDefaults(&cfg)
	return &cfg, nil
}

// LoadConfigWithEnvOverrides loads path and then applies SKETCH_*
// environment overrides, which take precedence over the file. An empty
// path starts from the defaults instead of a file.
//
// The loading sequence is:
//  1. Load YAML from file (or defaults)
//  2. Apply environment variable overrides
//  3. Validate the result
func LoadConfigWithEnvOverrides(path string) (*Config, error) {
	var cfg *Config
	if path == "" {
		cfg = Default()
	} else {
		loaded, err := LoadConfig(path)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}

	if err := applyEnvOverrides(cfg, os.Environ()); err != nil {
		return nil, err
	}
	ApplyDefaults(cfg)

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed after environment overrides: %w", err)
	}
	return cfg, nil
}

type envSetter func(cfg *Config, value string) error

var envOverrides = map[string]envSetter{
	"SERVER_LISTEN_ADDRESS":   func(c *Config, v string) error { c.Server.ListenAddress = v; return nil },
	"SERVER_READ_TIMEOUT":     durationField(func(c *Config) *time.Duration { return &c.Server.ReadTimeout }),
	"SERVER_WRITE_TIMEOUT":    durationField(func(c *Config) *time.Duration { return &c.Server.WriteTimeout }),
	"SERVER_MAX_BODY_BYTES":   int64Field(func(c *Config) *int64 { return &c.Server.MaxBodyBytes }),
	"GENERATION_TIMEOUT":      durationField(func(c *Config) *time.Duration { return &c.Generation.Timeout }),
	"GENERATION_MAX_TOKENS":   intField(func(c *Config) *int { return &c.Generation.MaxTokens }),
	"TRANSPORT_MAX_RETRIES":   intField(func(c *Config) *int { return &c.Transport.MaxRetries }),
	"STORAGE_BACKEND":         func(c *Config, v string) error { c.Storage.Backend = v; return nil },
	"STORAGE_SQLITE_PATH":     func(c *Config, v string) error { c.Storage.SQLite.Path = v; return nil },
	"STORAGE_SQLITE_DRIVER":   func(c *Config, v string) error { c.Storage.SQLite.Driver = v; return nil },
	"SECRETS_ENV_PREFIX":      func(c *Config, v string) error { c.Secrets.EnvPrefix = v; return nil },
	"SECRETS_DIR":             func(c *Config, v string) error { c.Secrets.Dir = v; return nil },
	"SECRETS_WATCH":           boolField(func(c *Config) *bool { return &c.Secrets.Watch }),
	"SCHEDULER_PRUNE":         func(c *Config, v string) error { c.Scheduler.PruneSchedule = v; return nil },
	"SCHEDULER_SUMMARY":       func(c *Config, v string) error { c.Scheduler.SummarySchedule = v; return nil },
	"LOG_LEVEL":               func(c *Config, v string) error { c.Telemetry.Logging.Level = v; return nil },
	"LOG_FORMAT":              func(c *Config, v string) error { c.Telemetry.Logging.Format = v; return nil },
	"LOG_REDACT_SECRETS":      boolPtrField(func(c *Config) **bool { return &c.Telemetry.Logging.RedactSecrets }),
	"METRICS_ENABLED":         boolPtrField(func(c *Config) **bool { return &c.Telemetry.Metrics.Enabled }),
	"METRICS_PATH":            func(c *Config, v string) error { c.Telemetry.Metrics.Path = v; return nil },
	"METRICS_MAX_CARDINALITY": intField(func(c *Config) *int { return &c.Telemetry.Metrics.MaxCardinality }),
}

// Provider fields settable as SKETCH_PROVIDERS_<ID>_<FIELD>.
var providerEnvFields = map[string]func(p *ProviderConfig, v string) error{
	"ENDPOINT":       func(p *ProviderConfig, v string) error { p.Endpoint = v; return nil },
	"TYPE":           func(p *ProviderConfig, v string) error { p.Type = v; return nil },
	"MODELS":         func(p *ProviderConfig, v string) error { p.Models = splitList(v); return nil },
	"KEY_PREFIX":     func(p *ProviderConfig, v string) error { p.KeyPrefix = &v; return nil },
	"MAX_REQUESTS":   func(p *ProviderConfig, v string) error { return atoi(v, &p.Quota.MaxRequests) },
	"WINDOW_MINUTES": func(p *ProviderConfig, v string) error { return atoi(v, &p.Quota.WindowMinutes) },
}

// applyEnvOverrides applies SKETCH_* variables from environ. Malformed
// values are reported rather than ignored.
func applyEnvOverrides(cfg *Config, environ []string) error {
	var errs []FieldError

	vars := make(map[string]string)
	for _, kv := range environ {
		key, value, ok := strings.Cut(kv, "=")
		if !ok || !strings.HasPrefix(key, EnvPrefix) || value == "" {
			continue
		}
		vars[strings.TrimPrefix(key, EnvPrefix)] = value
	}

	keys := make([]string, 0, len(vars))
	for k := range vars {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, key := range keys {
		value := vars[key]

		if set, ok := envOverrides[key]; ok {
			if err := set(cfg, value); err != nil {
				errs = append(errs, FieldError{Field: EnvPrefix + key, Message: err.Error()})
			}
			continue
		}

		rest, ok := strings.CutPrefix(key, "PROVIDERS_")
		if !ok {
			continue
		}
		id, set := providerEnvField(rest)
		if set == nil {
			continue
		}
		if cfg.Providers == nil {
			cfg.Providers = make(map[string]ProviderConfig)
		}
		p := cfg.Providers[id]
		if err := set(&p, value); err != nil {
			errs = append(errs, FieldError{Field: EnvPrefix + key, Message: err.Error()})
			continue
		}
		cfg.Providers[id] = p
	}

	if len(errs) > 0 {
		return ValidationError{Errors: errs}
	}
	return nil
}

// providerEnvField splits "OPEN_ROUTER_MAX_REQUESTS" into the provider id
// "open-router" and the MAX_REQUESTS setter. The longest field suffix wins.
func providerEnvField(rest string) (string, func(*ProviderConfig, string) error) {
	var field string
	for f := range providerEnvFields {
		if strings.HasSuffix(rest, "_"+f) && len(f) > len(field) {
			field = f
		}
	}
	if field == "" {
		return "", nil
	}
	id := strings.TrimSuffix(rest, "_"+field)
	if id == "" {
		return "", nil
	}
	return strings.ToLower(strings.ReplaceAll(id, "_", "-")), providerEnvFields[field]
}

func atoi(v string, dst *int) error {
	n, err := strconv.Atoi(v)
	if err != nil {
		return err
	}
	*dst = n
	return nil
}

func splitList(v string) []string {
	var out []string
	for _, item := range strings.Split(v, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}

func durationField(get func(*Config) *time.Duration) envSetter {
	return func(c *Config, v string) error {
		d, err := time.ParseDuration(v)
		if err != nil {
			return err
		}
		*get(c) = d
		return nil
	}
}

func intField(get func(*Config) *int) envSetter {
	return func(c *Config, v string) error {
		n, err := strconv.Atoi(v)
		if err != nil {
			return err
		}
		*get(c) = n
		return nil
	}
}

func int64Field(get func(*Config) *int64) envSetter {
	return func(c *Config, v string) error {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return err
		}
		*get(c) = n
		return nil
	}
}

func boolField(get func(*Config) *bool) envSetter {
	return func(c *Config, v string) error {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return err
		}
		*get(c) = b
		return nil
	}
}

func boolPtrField(get func(*Config) **bool) envSetter {
	return func(c *Config, v string) error {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return err
		}
		*get(c) = &b
		return nil
	}
}
