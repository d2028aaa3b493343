package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// GenerationMetrics tracks generation outcomes, latency and tokens.
type GenerationMetrics struct {
	generationsTotal *prometheus.CounterVec
	duration         *prometheus.HistogramVec
	tokensTotal      *prometheus.CounterVec
}

// NewGenerationMetrics creates and registers generation metrics.
func NewGenerationMetrics(cfg Config, registry *prometheus.Registry) *GenerationMetrics {
	gm := &GenerationMetrics{
		generationsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "generations_total",
				Help:      "Total number of generation requests by outcome",
			},
			[]string{"provider", "model", "status"},
		),

		duration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "generation_duration_seconds",
				Help:      "Duration of generation calls in seconds",
				Buckets:   cfg.DurationBuckets,
			},
			[]string{"provider"},
		),

		tokensTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "tokens_total",
				Help:      "Total number of tokens reported by providers",
			},
			[]string{"provider", "model", "direction"},
		),
	}

	registry.MustRegister(
		gm.generationsTotal,
		gm.duration,
		gm.tokensTotal,
	)

	return gm
}

// Record counts a generation and observes its duration. Calls refused
// before reaching the network carry no duration.
func (gm *GenerationMetrics) Record(provider, model, status string, duration time.Duration) {
	gm.generationsTotal.WithLabelValues(provider, model, status).Inc()

	if duration > 0 {
		gm.duration.WithLabelValues(provider).Observe(duration.Seconds())
	}
}

// RecordTokens adds input and output token counts.
func (gm *GenerationMetrics) RecordTokens(provider, model string, inputTokens, outputTokens int) {
	if inputTokens > 0 {
		gm.tokensTotal.WithLabelValues(provider, model, "input").Add(float64(inputTokens))
	}
	if outputTokens > 0 {
		gm.tokensTotal.WithLabelValues(provider, model, "output").Add(float64(outputTokens))
	}
}
