package main

import (
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"

	"mercator-hq/sketch/pkg/cli"
	"mercator-hq/sketch/pkg/config"
	"mercator-hq/sketch/pkg/kvstore"
	"mercator-hq/sketch/pkg/limits/ratelimit"
	"mercator-hq/sketch/pkg/orchestrator"
	"mercator-hq/sketch/pkg/processing/costs"
	"mercator-hq/sketch/pkg/providerfactory"
	"mercator-hq/sketch/pkg/providers"
	"mercator-hq/sketch/pkg/registry"
	"mercator-hq/sketch/pkg/security/secrets"
	"mercator-hq/sketch/pkg/telemetry/logging"
	"mercator-hq/sketch/pkg/telemetry/metrics"
	"mercator-hq/sketch/pkg/usage"
)

// app holds the services one command invocation uses.
type app struct {
	cfg          *config.Config
	logger       *slog.Logger
	store        kvstore.Store
	registry     *registry.Registry
	limiter      *ratelimit.Limiter
	tracker      *usage.Tracker
	transport    *providers.Transport
	collector    *metrics.Collector
	orchestrator *orchestrator.Orchestrator
	secrets      *secrets.Manager
	format       cli.OutputFormat
}

// newApp loads configuration and wires every service. Logs go to logOut.
func newApp(flags *globalFlags, logOut io.Writer) (*app, error) {
	cfg, err := config.LoadConfigWithEnvOverrides(flags.configFile)
	if err != nil {
		return nil, cli.NewConfigError(flags.configFile, err.Error())
	}
	if flags.logLevel != "" {
		cfg.Telemetry.Logging.Level = flags.logLevel
	}
	format, err := cli.ParseFormat(flags.output)
	if err != nil {
		return nil, err
	}

	logCfg := cfg.Logging()
	logCfg.Writer = logOut
	logger, err := logging.New(logCfg)
	if err != nil {
		return nil, cli.NewConfigError("telemetry.logging", err.Error())
	}
	log := logger.Slog()

	a := &app{cfg: cfg, logger: log, format: format}

	a.registry, err = registry.New(registry.Apply(registry.Builtin(), cfg.RegistryOverrides())...)
	if err != nil {
		return nil, cli.NewConfigError("providers", err.Error())
	}

	a.store, err = kvstore.Open(cfg.KVStore())
	if err != nil {
		return nil, fmt.Errorf("failed to open state store: %w", err)
	}

	calculator := costs.NewCalculator(costs.Merge(costs.BuiltinPricing(), cfg.Pricing), log)
	adapters, err := providerfactory.NewManagerFromRegistry(a.registry, providerfactory.Options{
		Calculator: calculator,
		Headers:    cfg.ProviderHeaders(),
	})
	if err != nil {
		_ = a.store.Close()
		return nil, fmt.Errorf("failed to create provider adapters: %w", err)
	}

	a.limiter = ratelimit.NewLimiter(a.store, a.registry, ratelimit.Config{Logger: log})
	a.tracker = usage.NewTracker(a.store, usage.Config{Logger: log})
	a.transport = providers.NewTransport(cfg.HTTPTransport(), log)
	a.collector = metrics.NewCollector(cfg.Metrics(), prometheus.NewRegistry())

	a.orchestrator, err = orchestrator.New(orchestrator.Config{
		SystemPrompt: cfg.Generation.SystemPrompt,
		Timeout:      cfg.Generation.Timeout,
		MaxTokens:    cfg.Generation.MaxTokens,
		Logger:       log,
	}, orchestrator.Dependencies{
		Registry:  a.registry,
		Adapters:  adapters,
		Limiter:   a.limiter,
		Ledger:    a.tracker,
		Transport: a.transport,
		Metrics:   a.collector,
	})
	if err != nil {
		_ = a.store.Close()
		return nil, err
	}

	sources := []secrets.SecretProvider{secrets.NewEnvProvider(cfg.Secrets.EnvPrefix)}
	if cfg.Secrets.Dir != "" {
		fileProvider, err := secrets.NewFileProvider(secrets.FileConfig{
			Dir:    cfg.Secrets.Dir,
			Watch:  cfg.Secrets.Watch,
			Logger: log,
		})
		if err != nil {
			_ = a.store.Close()
			return nil, cli.NewConfigError("secrets.dir", err.Error())
		}
		sources = append(sources, fileProvider)
	}
	a.secrets = secrets.NewManager(sources, cfg.SecretsCache(), log)

	return a, nil
}

// Close releases the store, the secret sources and idle connections.
func (a *app) Close() error {
	a.transport.CloseIdleConnections()
	return errors.Join(a.secrets.Close(), a.store.Close())
}

// print writes v in the selected output format.
func (a *app) print(w io.Writer, v any) error {
	return cli.NewFormatter(a.format).FormatTo(w, v)
}
