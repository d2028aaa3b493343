package metrics

import (
	"fmt"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Generation statuses.
const (
	StatusSuccess     = "success"
	StatusFailure     = "failure"
	StatusRateLimited = "rate_limited"
)

// UnknownProvider is the provider label for requests naming a provider that
// is not registered. Caller-supplied ids never become label values.
const UnknownProvider = "unknown"

// Config configures the collector.
type Config struct {
	Enabled   bool
	Namespace string
	Subsystem string

	// DurationBuckets are the latency histogram buckets in seconds.
	DurationBuckets []float64

	// MaxCardinality caps distinct model labels; overflow is reported as
	// "other".
	MaxCardinality int
}

// Generation is one completed generation attempt.
type Generation struct {
	Provider     string
	Model        string
	Status       string
	Duration     time.Duration
	InputTokens  int
	OutputTokens int
	Cost         float64

	// PricingFallback reports that the cost used the provider default rate.
	PricingFallback bool
}

// Collector owns every metric the service exports.
type Collector struct {
	config   Config
	registry *prometheus.Registry

	generationMetrics *GenerationMetrics
	providerMetrics   *ProviderMetrics
	costMetrics       *CostMetrics

	cardinalityLimiter *CardinalityLimiter
}

// NewCollector creates a collector registered on registry. A nil registry
// gets a fresh one.
func NewCollector(cfg Config, registry *prometheus.Registry) *Collector {
	if registry == nil {
		registry = prometheus.NewRegistry()
	}

	if cfg.Namespace == "" {
		cfg.Namespace = "sketch"
	}
	if len(cfg.DurationBuckets) == 0 {
		// Generation latencies: 100ms - 60s
		cfg.DurationBuckets = []float64{0.1, 0.25, 0.5, 1, 2, 5, 10, 30, 60}
	}
	if cfg.MaxCardinality <= 0 {
		cfg.MaxCardinality = 1000
	}

	return &Collector{
		config:             cfg,
		registry:           registry,
		generationMetrics:  NewGenerationMetrics(cfg, registry),
		providerMetrics:    NewProviderMetrics(cfg, registry),
		costMetrics:        NewCostMetrics(cfg, registry),
		cardinalityLimiter: NewCardinalityLimiter(cfg.MaxCardinality),
	}
}

// Enabled reports whether the collector records anything.
func (c *Collector) Enabled() bool {
	return c.config.Enabled
}

// RecordGeneration records a finished generation.
func (c *Collector) RecordGeneration(g Generation) {
	if !c.config.Enabled {
		return
	}

	model := g.Model
	if !c.cardinalityLimiter.Allow(fmt.Sprintf("%s:%s", g.Provider, model)) {
		model = "other"
	}

	c.generationMetrics.Record(g.Provider, model, g.Status, g.Duration)
	c.generationMetrics.RecordTokens(g.Provider, model, g.InputTokens, g.OutputTokens)

	if g.Status == StatusSuccess {
		c.costMetrics.RecordCost(g.Provider, model, g.Cost, g.PricingFallback)
	}
}

// RecordError records a failed generation's error kind.
func (c *Collector) RecordError(provider, kind string) {
	if !c.config.Enabled {
		return
	}

	c.providerMetrics.RecordError(provider, kind)
}

// UpdateQuota sets the remaining-requests gauge of provider.
func (c *Collector) UpdateQuota(provider string, remaining int) {
	if !c.config.Enabled {
		return
	}

	c.providerMetrics.UpdateQuota(provider, remaining)
}

// RecordQuotaDenied records a generation refused by the local quota.
func (c *Collector) RecordQuotaDenied(provider string) {
	if !c.config.Enabled {
		return
	}

	c.providerMetrics.RecordDenied(provider)
}

// Registry returns the Prometheus registry used by this collector.
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

// CardinalityLimiter caps the number of distinct label sets.
type CardinalityLimiter struct {
	maxCardinality int
	current        map[string]struct{}
	mu             sync.RWMutex
}

// NewCardinalityLimiter creates a limiter allowing maxCardinality label sets.
func NewCardinalityLimiter(maxCardinality int) *CardinalityLimiter {
	return &CardinalityLimiter{
		maxCardinality: maxCardinality,
		current:        make(map[string]struct{}),
	}
}

// Allow reports whether labelSet is known or still fits under the cap.
func (cl *CardinalityLimiter) Allow(labelSet string) bool {
	cl.mu.RLock()
	if _, exists := cl.current[labelSet]; exists {
		cl.mu.RUnlock()
		return true
	}
	cl.mu.RUnlock()

	cl.mu.Lock()
	defer cl.mu.Unlock()

	// Double-check after acquiring write lock
	if _, exists := cl.current[labelSet]; exists {
		return true
	}

	if len(cl.current) >= cl.maxCardinality {
		return false
	}

	cl.current[labelSet] = struct{}{}
	return true
}

// Count returns the current cardinality.
func (cl *CardinalityLimiter) Count() int {
	cl.mu.RLock()
	defer cl.mu.RUnlock()
	return len(cl.current)
}
