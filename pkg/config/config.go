package config

import (
	"time"

	"mercator-hq/sketch/pkg/kvstore"
	"mercator-hq/sketch/pkg/processing/costs"
	"mercator-hq/sketch/pkg/providers"
	"mercator-hq/sketch/pkg/registry"
	"mercator-hq/sketch/pkg/scheduler"
	"mercator-hq/sketch/pkg/security/secrets"
	"mercator-hq/sketch/pkg/telemetry/logging"
	"mercator-hq/sketch/pkg/telemetry/metrics"
)

// Config is the root configuration of the diagram generation service.
type Config struct {
	// Server configures the HTTP API started by "sketch serve".
	Server ServerConfig `yaml:"server"`

	// Providers overlays the built-in provider catalog. Keys are provider
	// ids; an unknown id registers a new provider.
	Providers map[string]ProviderConfig `yaml:"providers"`

	// Generation configures prompt assembly and the per-call deadline.
	Generation GenerationConfig `yaml:"generation"`

	// Transport configures the outbound HTTP client.
	Transport TransportConfig `yaml:"transport"`

	// Storage selects where quota windows and the usage ledger persist.
	Storage StorageConfig `yaml:"storage"`

	// Pricing overlays the built-in rate table, keyed by provider id.
	Pricing costs.Table `yaml:"pricing"`

	// Secrets configures where provider API keys are looked up.
	Secrets SecretsConfig `yaml:"secrets"`

	// Scheduler configures housekeeping jobs.
	Scheduler SchedulerConfig `yaml:"scheduler"`

	// Telemetry configures logging and metrics.
	Telemetry TelemetryConfig `yaml:"telemetry"`
}

// ServerConfig configures the HTTP API.
type ServerConfig struct {
	// ListenAddress is "host:port". Default: "127.0.0.1:8420"
	ListenAddress string `yaml:"listen_address"`

	// ReadTimeout bounds reading a request. Default: 15s
	ReadTimeout time.Duration `yaml:"read_timeout"`

	// WriteTimeout bounds writing a response. It must exceed the generation
	// timeout. Default: 90s
	WriteTimeout time.Duration `yaml:"write_timeout"`

	// IdleTimeout is the keep-alive idle limit. Default: 120s
	IdleTimeout time.Duration `yaml:"idle_timeout"`

	// ShutdownTimeout bounds graceful shutdown. Default: 30s
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`

	// MaxBodyBytes caps request bodies. Default: 65536
	MaxBodyBytes int64 `yaml:"max_body_bytes"`
}

// ProviderConfig overrides or defines one provider.
type ProviderConfig struct {
	DisplayName string   `yaml:"display_name"`
	Type        string   `yaml:"type"`
	Models      []string `yaml:"models"`

	// KeyPrefix is a pointer so an explicit "" can disable the check.
	KeyPrefix *string `yaml:"key_prefix"`

	Endpoint string         `yaml:"endpoint"`
	Quota    registry.Quota `yaml:"quota"`

	// Headers are sent with every request to this provider.
	Headers map[string]string `yaml:"headers"`
}

// GenerationConfig configures generation requests.
type GenerationConfig struct {
	// Timeout is the deadline of one provider call. Default: 60s
	Timeout time.Duration `yaml:"timeout"`

	// SystemPrompt replaces the built-in Mermaid instructions when set.
	SystemPrompt string `yaml:"system_prompt"`

	// MaxTokens caps output tokens where the wire format allows it.
	// Zero leaves the provider default.
	MaxTokens int `yaml:"max_tokens"`
}

// TransportConfig configures the outbound HTTP client.
type TransportConfig struct {
	// MaxRetries retries network errors and 5xx responses. Default: 0
	MaxRetries int `yaml:"max_retries"`

	// RetryBackoff is the first retry delay. Default: 1s
	RetryBackoff time.Duration `yaml:"retry_backoff"`

	MaxIdleConns        int           `yaml:"max_idle_conns"`
	MaxIdleConnsPerHost int           `yaml:"max_idle_conns_per_host"`
	IdleConnTimeout     time.Duration `yaml:"idle_conn_timeout"`
}

// StorageConfig selects the persistence backend.
type StorageConfig struct {
	// Backend is "sqlite" or "memory". Default: "sqlite"
	Backend string `yaml:"backend"`

	SQLite SQLiteConfig `yaml:"sqlite"`
}

// SQLiteConfig configures the SQLite backend.
type SQLiteConfig struct {
	// Path is the database file. Default: <user config dir>/sketch/state.db
	Path string `yaml:"path"`

	// Driver is "sqlite" (pure Go) or "sqlite3" (cgo). Default: "sqlite"
	Driver string `yaml:"driver"`

	// BusyTimeout is how long to wait on a locked database. Default: 5s
	BusyTimeout time.Duration `yaml:"busy_timeout"`

	// CheckpointInterval is the WAL checkpoint period. Default: 5m
	CheckpointInterval time.Duration `yaml:"checkpoint_interval"`
}

// SecretsConfig configures API key lookup.
type SecretsConfig struct {
	// EnvPrefix is prepended to key variable names, so "SKETCH_" makes the
	// OpenAI key SKETCH_OPENAI_API_KEY. Default: ""
	EnvPrefix string `yaml:"env_prefix"`

	// Dir holds one file per key ("openai-api-key"). Empty disables it.
	Dir string `yaml:"dir"`

	// Watch reloads keys when files in Dir change.
	Watch bool `yaml:"watch"`

	// CacheTTL is how long resolved keys are cached. Default: 5m
	CacheTTL time.Duration `yaml:"cache_ttl"`

	// CacheMaxSize bounds the cache. Default: 64
	CacheMaxSize int `yaml:"cache_max_size"`
}

// SchedulerConfig configures housekeeping jobs. An empty schedule
// disables the job.
type SchedulerConfig struct {
	// PruneSchedule drops expired quota windows. Default: "@every 5m"
	PruneSchedule string `yaml:"prune_schedule"`

	// SummarySchedule logs the usage ledger. Default: "@hourly"
	SummarySchedule string `yaml:"summary_schedule"`
}

// TelemetryConfig configures observability.
type TelemetryConfig struct {
	Logging LoggingConfig `yaml:"logging"`
	Metrics MetricsConfig `yaml:"metrics"`
}

// LoggingConfig configures structured logging.
type LoggingConfig struct {
	// Level is debug, info, warn or error. Default: "info"
	Level string `yaml:"level"`

	// Format is json or text. Default: "text"
	Format string `yaml:"format"`

	AddSource bool `yaml:"add_source"`

	// RedactSecrets masks API keys in log output. Default: true
	RedactSecrets *bool `yaml:"redact_secrets"`
}

// MetricsConfig configures Prometheus metrics.
type MetricsConfig struct {
	// Enabled registers the collectors. Default: true
	Enabled *bool `yaml:"enabled"`

	// Path is where the server exposes metrics. Default: "/metrics"
	Path string `yaml:"path"`

	// Namespace prefixes metric names. Default: "sketch"
	Namespace string `yaml:"namespace"`

	// MaxCardinality caps distinct model labels. Default: 1000
	MaxCardinality int `yaml:"max_cardinality"`
}

// RegistryOverrides converts the provider section for registry.Apply.
func (c *Config) RegistryOverrides() map[string]registry.Override {
	out := make(map[string]registry.Override, len(c.Providers))
	for id, p := range c.Providers {
		out[id] = registry.Override{
			DisplayName: p.DisplayName,
			Type:        p.Type,
			Models:      p.Models,
			KeyPrefix:   p.KeyPrefix,
			Endpoint:    p.Endpoint,
			Quota:       p.Quota,
		}
	}
	return out
}

// ProviderHeaders returns the extra request headers per provider id.
func (c *Config) ProviderHeaders() map[string]map[string]string {
	out := make(map[string]map[string]string)
	for id, p := range c.Providers {
		if len(p.Headers) > 0 {
			out[id] = p.Headers
		}
	}
	return out
}

// KVStore returns the storage section as a kvstore config.
func (c *Config) KVStore() kvstore.Config {
	return kvstore.Config{
		Backend: c.Storage.Backend,
		SQLite: kvstore.SQLiteConfig{
			Path:               c.Storage.SQLite.Path,
			Driver:             c.Storage.SQLite.Driver,
			BusyTimeout:        c.Storage.SQLite.BusyTimeout,
			CheckpointInterval: c.Storage.SQLite.CheckpointInterval,
		},
	}
}

// HTTPTransport returns the transport section with the generation
// timeout applied to each exchange.
func (c *Config) HTTPTransport() providers.TransportConfig {
	return providers.TransportConfig{
		Timeout:             c.Generation.Timeout,
		MaxRetries:          c.Transport.MaxRetries,
		RetryBackoff:        c.Transport.RetryBackoff,
		MaxIdleConns:        c.Transport.MaxIdleConns,
		MaxIdleConnsPerHost: c.Transport.MaxIdleConnsPerHost,
		IdleConnTimeout:     c.Transport.IdleConnTimeout,
	}
}

// SecretsCache returns the cache settings for the secrets manager.
func (c *Config) SecretsCache() secrets.CacheConfig {
	return secrets.CacheConfig{
		Enabled: c.Secrets.CacheTTL > 0,
		TTL:     c.Secrets.CacheTTL,
		MaxSize: c.Secrets.CacheMaxSize,
	}
}

// Logging returns the logging section as a logger config.
func (c *Config) Logging() logging.Config {
	return logging.Config{
		Level:         c.Telemetry.Logging.Level,
		Format:        c.Telemetry.Logging.Format,
		AddSource:     c.Telemetry.Logging.AddSource,
		RedactSecrets: boolValue(c.Telemetry.Logging.RedactSecrets, DefaultRedactSecrets),
	}
}

// Metrics returns the metrics section as a collector config.
func (c *Config) Metrics() metrics.Config {
	return metrics.Config{
		Enabled:        boolValue(c.Telemetry.Metrics.Enabled, DefaultMetricsEnabled),
		Namespace:      c.Telemetry.Metrics.Namespace,
		MaxCardinality: c.Telemetry.Metrics.MaxCardinality,
	}
}

func boolValue(p *bool, def bool) bool {
	if p == nil {
		return def
	}
	return *p
}

// SchedulerJobs returns the scheduler section with "off" mapped to a
// disabled job.
func (c *Config) SchedulerJobs() scheduler.Config {
	off := func(s string) string {
		if s == ScheduleOff {
			return ""
		}
		return s
	}
	return scheduler.Config{
		PruneSchedule:   off(c.Scheduler.PruneSchedule),
		SummarySchedule: off(c.Scheduler.SummarySchedule),
	}
}
