package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// ProviderMetrics tracks per-provider failures and local quota.
type ProviderMetrics struct {
	errors         *prometheus.CounterVec
	quotaRemaining *prometheus.GaugeVec
	quotaDenied    *prometheus.CounterVec
}

// NewProviderMetrics creates and registers provider metrics.
func NewProviderMetrics(cfg Config, registry *prometheus.Registry) *ProviderMetrics {
	pm := &ProviderMetrics{
		errors: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "provider_errors_total",
				Help:      "Total number of failed generations by error kind",
			},
			[]string{"provider", "kind"},
		),

		quotaRemaining: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "quota_remaining",
				Help:      "Requests left in the provider's current quota window",
			},
			[]string{"provider"},
		),

		quotaDenied: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "quota_denied_total",
				Help:      "Total number of generations refused by the local quota",
			},
			[]string{"provider"},
		),
	}

	registry.MustRegister(
		pm.errors,
		pm.quotaRemaining,
		pm.quotaDenied,
	)

	return pm
}

// RecordError increments the error counter for kind.
func (pm *ProviderMetrics) RecordError(provider, kind string) {
	pm.errors.WithLabelValues(provider, kind).Inc()
}

// UpdateQuota sets the remaining quota gauge.
func (pm *ProviderMetrics) UpdateQuota(provider string, remaining int) {
	pm.quotaRemaining.WithLabelValues(provider).Set(float64(remaining))
}

// RecordDenied increments the local denial counter.
func (pm *ProviderMetrics) RecordDenied(provider string) {
	pm.quotaDenied.WithLabelValues(provider).Inc()
}
