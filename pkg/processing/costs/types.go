package costs

// Rate is the price of one model in USD per 1K tokens.
type Rate struct {
	InputPer1K  float64 `json:"input_per_1k" yaml:"input_per_1k"`
	OutputPer1K float64 `json:"output_per_1k" yaml:"output_per_1k"`
}

// ProviderPricing is the rate table of one provider.
type ProviderPricing struct {
	// Default names the model whose rate prices unknown models.
	Default string `json:"default" yaml:"default"`

	// Models maps model id to its rate. Dated snapshots of a listed id share
	// its rate.
	Models map[string]Rate `json:"models" yaml:"models"`
}

// Table maps provider id to its pricing.
type Table map[string]ProviderPricing

// Estimate is the computed cost of one generation.
type Estimate struct {
	// Provider and Model identify what was priced.
	Provider string `json:"provider"`
	Model    string `json:"model"`

	// PricedAs is the table entry whose rate was applied.
	PricedAs string `json:"priced_as,omitempty"`

	InputTokens  int `json:"input_tokens"`
	OutputTokens int `json:"output_tokens"`

	InputCost  float64 `json:"input_cost"`
	OutputCost float64 `json:"output_cost"`
	TotalCost  float64 `json:"total_cost"`

	// Fallback is set when the model was not in the table and another
	// model's rate was used.
	Fallback bool `json:"fallback,omitempty"`

	// Currency is always "USD".
	Currency string `json:"currency"`
}
