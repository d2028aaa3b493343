package costs

// BuiltinPricing returns the rate table for the built-in providers.
func BuiltinPricing() Table {
	return Table{
		"openai": {
			Default: "gpt-4o-mini",
			Models: map[string]Rate{
				"gpt-4o-mini":  {InputPer1K: 0.00015, OutputPer1K: 0.0006},
				"gpt-4o":       {InputPer1K: 0.0025, OutputPer1K: 0.01},
				"gpt-4.1-mini": {InputPer1K: 0.0004, OutputPer1K: 0.0016},
				"gpt-4.1":      {InputPer1K: 0.002, OutputPer1K: 0.008},
			},
		},
		"anthropic": {
			Default: "claude-3-5-haiku-latest",
			Models: map[string]Rate{
				"claude-3-5-haiku-latest":  {InputPer1K: 0.0008, OutputPer1K: 0.004},
				"claude-sonnet-4-20250514": {InputPer1K: 0.003, OutputPer1K: 0.015},
				"claude-3-5-sonnet-latest": {InputPer1K: 0.003, OutputPer1K: 0.015},
			},
		},
		"gemini": {
			Default: "gemini-2.0-flash",
			Models: map[string]Rate{
				"gemini-2.0-flash": {InputPer1K: 0.0001, OutputPer1K: 0.0004},
				"gemini-1.5-flash": {InputPer1K: 0.000075, OutputPer1K: 0.0003},
				"gemini-1.5-pro":   {InputPer1K: 0.00125, OutputPer1K: 0.005},
			},
		},
		"openrouter": {
			Default: "openai/gpt-4o-mini",
			Models: map[string]Rate{
				"openai/gpt-4o-mini":                {InputPer1K: 0.00015, OutputPer1K: 0.0006},
				"anthropic/claude-3.5-sonnet":       {InputPer1K: 0.003, OutputPer1K: 0.015},
				"meta-llama/llama-3.1-70b-instruct": {InputPer1K: 0.00012, OutputPer1K: 0.0003},
			},
		},
		"mistral": {
			Default: "mistral-small-latest",
			Models: map[string]Rate{
				"mistral-small-latest": {InputPer1K: 0.0002, OutputPer1K: 0.0006},
				"mistral-large-latest": {InputPer1K: 0.002, OutputPer1K: 0.006},
				"codestral-latest":     {InputPer1K: 0.0003, OutputPer1K: 0.0009},
			},
		},
		"groq": {
			Default: "llama-3.1-8b-instant",
			Models: map[string]Rate{
				"llama-3.1-8b-instant":    {InputPer1K: 0.00005, OutputPer1K: 0.00008},
				"llama-3.3-70b-versatile": {InputPer1K: 0.00059, OutputPer1K: 0.00079},
			},
		},
	}
}

// Merge returns base with overrides layered on top. Override models are
// added to (or replace) the base models of the same provider; a non-empty
// override Default replaces the base default.
func Merge(base, overrides Table) Table {
	out := make(Table, len(base)+len(overrides))
	for id, p := range base {
		out[id] = p.clone()
	}

	for id, o := range overrides {
		p, ok := out[id]
		if !ok {
			p = ProviderPricing{Models: make(map[string]Rate)}
		}
		if o.Default != "" {
			p.Default = o.Default
		}
		for model, rate := range o.Models {
			p.Models[model] = rate
		}
		out[id] = p
	}

	return out
}

func (p ProviderPricing) clone() ProviderPricing {
	models := make(map[string]Rate, len(p.Models))
	for k, v := range p.Models {
		models[k] = v
	}
	return ProviderPricing{Default: p.Default, Models: models}
}
