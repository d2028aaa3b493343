package config

import (
	"testing"
	"time"

	"mercator-hq/sketch/pkg/processing/costs"
	"mercator-hq/sketch/pkg/registry"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	if cfg.Server.ListenAddress != DefaultListenAddress {
		t.Errorf("unexpected listen address %q", cfg.Server.ListenAddress)
	}
	if cfg.Generation.Timeout != 60*time.Second {
		t.Errorf("expected 60s generation timeout, got %s", cfg.Generation.Timeout)
	}
	if cfg.Transport.MaxRetries != 0 {
		t.Errorf("expected no retries by default, got %d", cfg.Transport.MaxRetries)
	}
	if cfg.Storage.Backend != "sqlite" || cfg.Storage.SQLite.Driver != "sqlite" {
		t.Errorf("unexpected storage defaults %+v", cfg.Storage)
	}
	if cfg.Storage.SQLite.Path == "" {
		t.Error("expected a default state path")
	}
	if cfg.Scheduler.PruneSchedule != "@every 5m" || cfg.Scheduler.SummarySchedule != "@hourly" {
		t.Errorf("unexpected scheduler defaults %+v", cfg.Scheduler)
	}
	if !cfg.Metrics().Enabled || cfg.Metrics().Namespace != "sketch" {
		t.Errorf("unexpected metrics defaults %+v", cfg.Metrics())
	}
}

func TestApplyDefaults_KeepsExplicitFalse(t *testing.T) {
	off := false
	cfg := &Config{}
	cfg.Telemetry.Logging.RedactSecrets = &off
	cfg.Telemetry.Metrics.Enabled = &off

	ApplyDefaults(cfg)

	if cfg.Logging().RedactSecrets {
		t.Error("explicit redact_secrets=false was overwritten")
	}
	if cfg.Metrics().Enabled {
		t.Error("explicit metrics.enabled=false was overwritten")
	}
}

func TestRegistryOverrides(t *testing.T) {
	empty := ""
	cfg := Default()
	cfg.Providers = map[string]ProviderConfig{
		"openai": {Quota: registry.Quota{MaxRequests: 3, WindowMinutes: 1}},
		"local": {
			Type:      registry.TypeOpenAI,
			Endpoint:  "http://localhost:8080/v1/chat/completions",
			Models:    []string{"llama"},
			KeyPrefix: &empty,
			Quota:     registry.Quota{MaxRequests: 50, WindowMinutes: 1},
			Headers:   map[string]string{"X-Client": "sketch"},
		},
	}

	descs := registry.Apply(registry.Builtin(), cfg.RegistryOverrides())
	reg, err := registry.New(descs...)
	if err != nil {
		t.Fatalf("registry.New failed: %v", err)
	}

	openai, _ := reg.Get("openai")
	if openai.Quota.MaxRequests != 3 {
		t.Errorf("expected overridden quota, got %+v", openai.Quota)
	}
	if openai.Endpoint == "" {
		t.Error("override must keep the built-in endpoint")
	}

	local, err := reg.Get("local")
	if err != nil {
		t.Fatalf("expected new provider: %v", err)
	}
	if local.Type != registry.TypeOpenAI || local.KeyPrefix != "" {
		t.Errorf("unexpected local descriptor %+v", local)
	}

	headers := cfg.ProviderHeaders()
	if len(headers) != 1 || headers["local"]["X-Client"] != "sketch" {
		t.Errorf("unexpected headers %v", headers)
	}
}

func TestConversions(t *testing.T) {
	cfg := Default()
	cfg.Storage.SQLite.Path = "/tmp/state.db"
	cfg.Transport.MaxRetries = 2
	cfg.Scheduler.SummarySchedule = ScheduleOff
	cfg.Pricing = costs.Table{"openai": {Default: "gpt-4o"}}

	kv := cfg.KVStore()
	if kv.Backend != "sqlite" || kv.SQLite.Path != "/tmp/state.db" || kv.SQLite.BusyTimeout != DefaultBusyTimeout {
		t.Errorf("unexpected kvstore config %+v", kv)
	}

	tr := cfg.HTTPTransport()
	if tr.Timeout != cfg.Generation.Timeout || tr.MaxRetries != 2 {
		t.Errorf("unexpected transport config %+v", tr)
	}

	sc := cfg.SecretsCache()
	if !sc.Enabled || sc.TTL != DefaultSecretsCacheTTL || sc.MaxSize != DefaultSecretsCacheMaxSize {
		t.Errorf("unexpected cache config %+v", sc)
	}

	jobs := cfg.SchedulerJobs()
	if jobs.PruneSchedule != "@every 5m" || jobs.SummarySchedule != "" {
		t.Errorf("unexpected scheduler config %+v", jobs)
	}
}
