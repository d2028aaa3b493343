package config

import (
	"os"
	"path/filepath"
	"time"

	"mercator-hq/sketch/pkg/kvstore"
	"mercator-hq/sketch/pkg/scheduler"
)

// Default values for configuration fields.
const (
	// Server defaults
	DefaultListenAddress   = "127.0.0.1:8420"
	DefaultReadTimeout     = 15 * time.Second
	DefaultWriteTimeout    = 90 * time.Second
	DefaultIdleTimeout     = 120 * time.Second
	DefaultShutdownTimeout = 30 * time.Second
	DefaultMaxBodyBytes    = int64(64 << 10)

	// Generation defaults
	DefaultGenerationTimeout = 60 * time.Second

	// Transport defaults
	DefaultRetryBackoff        = time.Second
	DefaultMaxIdleConns        = 20
	DefaultMaxIdleConnsPerHost = 4
	DefaultIdleConnTimeout     = 90 * time.Second

	// Storage defaults
	DefaultStorageBackend     = kvstore.BackendSQLite
	DefaultSQLiteDriver       = kvstore.DriverModernc
	DefaultBusyTimeout        = 5 * time.Second
	DefaultCheckpointInterval = 5 * time.Minute
	DefaultStateFile          = "state.db"

	// Secrets defaults
	DefaultSecretsCacheTTL     = 5 * time.Minute
	DefaultSecretsCacheMaxSize = 64

	// Telemetry defaults
	DefaultLogLevel       = "info"
	DefaultLogFormat      = "text"
	DefaultRedactSecrets  = true
	DefaultMetricsEnabled = true
	DefaultMetricsPath    = "/metrics"
	DefaultMetricsNS      = "sketch"
	DefaultMaxCardinality = 1000
)

// Default returns a configuration with every default applied.
func Default() *Config {
	cfg := &Config{}
	ApplyDefaults(cfg)
	return cfg
}

// ApplyDefaults fills zero-valued fields. Pointer booleans are set only
// when absent so an explicit false survives.
func ApplyDefaults(cfg *Config) {
	// Server defaults
	if cfg.Server.ListenAddress == "" {
		cfg.Server.ListenAddress = DefaultListenAddress
	}
	if cfg.Server.ReadTimeout == 0 {
		cfg.Server.ReadTimeout = DefaultReadTimeout
	}
	if cfg.Server.WriteTimeout == 0 {
		cfg.Server.WriteTimeout = DefaultWriteTimeout
	}
	if cfg.Server.IdleTimeout == 0 {
		cfg.Server.IdleTimeout = DefaultIdleTimeout
	}
	if cfg.Server.ShutdownTimeout == 0 {
		cfg.Server.ShutdownTimeout = DefaultShutdownTimeout
	}
	if cfg.Server.MaxBodyBytes == 0 {
		cfg.Server.MaxBodyBytes = DefaultMaxBodyBytes
	}

	// Generation defaults
	if cfg.Generation.Timeout == 0 {
		cfg.Generation.Timeout = DefaultGenerationTimeout
	}

	// Transport defaults; retries stay at zero so each call is one request.
	if cfg.Transport.RetryBackoff == 0 {
		cfg.Transport.RetryBackoff = DefaultRetryBackoff
	}
	if cfg.Transport.MaxIdleConns == 0 {
		cfg.Transport.MaxIdleConns = DefaultMaxIdleConns
	}
	if cfg.Transport.MaxIdleConnsPerHost == 0 {
		cfg.Transport.MaxIdleConnsPerHost = DefaultMaxIdleConnsPerHost
	}
	if cfg.Transport.IdleConnTimeout == 0 {
		cfg.Transport.IdleConnTimeout = DefaultIdleConnTimeout
	}

	// Storage defaults
	if cfg.Storage.Backend == "" {
		cfg.Storage.Backend = DefaultStorageBackend
	}
	if cfg.Storage.SQLite.Path == "" {
		cfg.Storage.SQLite.Path = DefaultStatePath()
	}
	if cfg.Storage.SQLite.Driver == "" {
		cfg.Storage.SQLite.Driver = DefaultSQLiteDriver
	}
	if cfg.Storage.SQLite.BusyTimeout == 0 {
		cfg.Storage.SQLite.BusyTimeout = DefaultBusyTimeout
	}
	if cfg.Storage.SQLite.CheckpointInterval == 0 {
		cfg.Storage.SQLite.CheckpointInterval = DefaultCheckpointInterval
	}

	// Secrets defaults
	if cfg.Secrets.CacheTTL == 0 {
		cfg.Secrets.CacheTTL = DefaultSecretsCacheTTL
	}
	if cfg.Secrets.CacheMaxSize == 0 {
		cfg.Secrets.CacheMaxSize = DefaultSecretsCacheMaxSize
	}

	// Scheduler defaults
	if cfg.Scheduler.PruneSchedule == "" {
		cfg.Scheduler.PruneSchedule = scheduler.DefaultPruneSchedule
	}
	if cfg.Scheduler.SummarySchedule == "" {
		cfg.Scheduler.SummarySchedule = scheduler.DefaultSummarySchedule
	}

	// Telemetry defaults
	applyTelemetryDefaults(&cfg.Telemetry)
}

func applyTelemetryDefaults(t *TelemetryConfig) {
	if t.Logging.Level == "" {
		t.Logging.Level = DefaultLogLevel
	}
	if t.Logging.Format == "" {
		t.Logging.Format = DefaultLogFormat
	}
	if t.Logging.RedactSecrets == nil {
		v := DefaultRedactSecrets
		t.Logging.RedactSecrets = &v
	}

	if t.Metrics.Enabled == nil {
		v := DefaultMetricsEnabled
		t.Metrics.Enabled = &v
	}
	if t.Metrics.Path == "" {
		t.Metrics.Path = DefaultMetricsPath
	}
	if t.Metrics.Namespace == "" {
		t.Metrics.Namespace = DefaultMetricsNS
	}
	if t.Metrics.MaxCardinality == 0 {
		t.Metrics.MaxCardinality = DefaultMaxCardinality
	}
}

// DefaultStatePath returns <user config dir>/sketch/state.db, or
// .sketch/state.db when the user config dir is unknown.
func DefaultStatePath() string {
	dir, err := os.UserConfigDir()
	if err != nil || dir == "" {
		return filepath.Join(".sketch", DefaultStateFile)
	}
	return filepath.Join(dir, "sketch", DefaultStateFile)
}
