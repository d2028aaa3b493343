package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Pricing label values.
const (
	PricingExact    = "exact"
	PricingFallback = "fallback"
)

// CostMetrics tracks estimated spend.
type CostMetrics struct {
	costTotal      *prometheus.CounterVec
	costPerRequest *prometheus.HistogramVec
	pricingLookups *prometheus.CounterVec
}

// NewCostMetrics creates and registers cost metrics.
func NewCostMetrics(cfg Config, registry *prometheus.Registry) *CostMetrics {
	cm := &CostMetrics{
		costTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "cost_usd_total",
				Help:      "Total estimated cost in USD by provider and model",
			},
			[]string{"provider", "model"},
		),

		costPerRequest: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "cost_per_generation_usd",
				Help:      "Estimated cost distribution per generation in USD",
				// Diagram prompts are short: $0.00001 to $0.1
				Buckets: []float64{0.00001, 0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1},
			},
			[]string{"provider"},
		),

		pricingLookups: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "pricing_lookups_total",
				Help:      "Cost estimates by whether the model had its own rate",
			},
			[]string{"provider", "pricing"},
		),
	}

	registry.MustRegister(
		cm.costTotal,
		cm.costPerRequest,
		cm.pricingLookups,
	)

	return cm
}

// RecordCost records the estimated cost of one generation.
func (cm *CostMetrics) RecordCost(provider, model string, cost float64, fallback bool) {
	if cost > 0 {
		cm.costTotal.WithLabelValues(provider, model).Add(cost)
	}
	cm.costPerRequest.WithLabelValues(provider).Observe(cost)

	pricing := PricingExact
	if fallback {
		pricing = PricingFallback
	}
	cm.pricingLookups.WithLabelValues(provider, pricing).Inc()
}
