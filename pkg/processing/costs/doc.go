// Package costs estimates the monetary cost of a generation from its token
// usage.
//
// # Pricing Model
//
// Each provider has a table of per-model rates in USD per 1K tokens, with
// separate input and output rates, and a designated default model:
//
//	cost = (inputTokens/1000)*rateIn + (outputTokens/1000)*rateOut
//
// # Lookup Order
//
//  1. Exact model match within the provider's table.
//  2. A dated snapshot of a listed model: "gpt-4o" prices
//     "gpt-4o-2024-08-06" and "claude-x-20250514" is priced as "claude-x".
//  3. The provider's default model for anything else, including names that
//     merely share a prefix with a listed model ("gpt-4.1-nano"). The
//     estimate is marked Fallback and a warning is logged.
//
// A provider with no table at all yields a zero Fallback estimate.
//
// # Usage
//
//	calc := costs.NewCalculator(costs.BuiltinPricing(), nil)
//	est := calc.Estimate("openai", "gpt-4o-mini", 1200, 300)
//	fmt.Printf("$%.6f\n", est.TotalCost)
//
// The table can be replaced at runtime with UpdatePricing.
package costs
