package costs

import (
	"log/slog"
	"regexp"
	"strings"
	"sync"
)

// snapshotSuffix matches the dated suffix providers append to a model name,
// e.g. "-2024-08-06" or "-20250514".
var snapshotSuffix = regexp.MustCompile(`^-(\d{4}-\d{2}-\d{2}|\d{8})$`)

// Calculator prices token usage against a rate table.
// It is thread-safe and supports hot-reload of the table.
type Calculator struct {
	table  Table
	logger *slog.Logger
	mu     sync.RWMutex
}

// NewCalculator creates a calculator over table. A nil logger uses
// slog.Default().
func NewCalculator(table Table, logger *slog.Logger) *Calculator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Calculator{
		table:  Merge(table, nil),
		logger: logger.With("component", "costs"),
	}
}

// Estimate prices inputTokens and outputTokens of model under provider.
func (c *Calculator) Estimate(provider, model string, inputTokens, outputTokens int) Estimate {
	est := Estimate{
		Provider:     provider,
		Model:        model,
		InputTokens:  inputTokens,
		OutputTokens: outputTokens,
		Currency:     "USD",
	}

	pricedAs, rate, fallback, ok := c.lookup(provider, model)
	if !ok {
		c.logger.Warn("no pricing for provider, cost reported as zero",
			"provider", provider,
			"model", model,
		)
		est.Fallback = true
		return est
	}

	if fallback {
		c.logger.Warn("unknown model priced at provider default rate",
			"provider", provider,
			"model", model,
			"priced_as", pricedAs,
		)
	}

	est.PricedAs = pricedAs
	est.Fallback = fallback
	est.InputCost = calculateTokenCost(inputTokens, rate.InputPer1K)
	est.OutputCost = calculateTokenCost(outputTokens, rate.OutputPer1K)
	est.TotalCost = est.InputCost + est.OutputCost
	return est
}

// Rate returns the rate applied to model under provider and whether it came
// from the provider default.
func (c *Calculator) Rate(provider, model string) (Rate, bool, bool) {
	_, rate, fallback, ok := c.lookup(provider, model)
	return rate, fallback, ok
}

// UpdatePricing replaces the rate table.
func (c *Calculator) UpdatePricing(table Table) {
	merged := Merge(table, nil)

	c.mu.Lock()
	defer c.mu.Unlock()

	c.table = merged
}

// lookup tries exact match, then a dated snapshot of a known model, then the
// provider default.
func (c *Calculator) lookup(provider, model string) (string, Rate, bool, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	pricing, ok := c.table[provider]
	if !ok {
		return "", Rate{}, false, false
	}

	if rate, ok := pricing.Models[model]; ok {
		return model, rate, false, true
	}

	if base, ok := snapshotBase(model, pricing.Models); ok {
		return base, pricing.Models[base], false, true
	}

	if rate, ok := pricing.Models[pricing.Default]; ok {
		return pricing.Default, rate, true, true
	}

	return "", Rate{}, false, false
}

// snapshotBase returns the known model that model is a dated snapshot of.
func snapshotBase(model string, models map[string]Rate) (string, bool) {
	for known := range models {
		rest, ok := strings.CutPrefix(model, known)
		if ok && snapshotSuffix.MatchString(rest) {
			return known, true
		}
	}
	return "", false
}

// calculateTokenCost calculates the cost for a given number of tokens.
// costPer1K is the cost per 1000 tokens in USD.
func calculateTokenCost(tokens int, costPer1K float64) float64 {
	if tokens <= 0 {
		return 0.0
	}

	return (float64(tokens) / 1000.0) * costPer1K
}
