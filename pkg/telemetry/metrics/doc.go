// Package metrics provides Prometheus metrics for the generation pipeline.
//
// # Metrics
//
//   - sketch_generations_total{provider,model,status}: generations by outcome
//   - sketch_generation_duration_seconds{provider}: outbound call latency
//   - sketch_tokens_total{provider,model,direction}: input/output tokens
//   - sketch_provider_errors_total{provider,kind}: failures by error kind
//   - sketch_quota_remaining{provider}: requests left in the current window
//   - sketch_quota_denied_total{provider}: generations refused locally
//   - sketch_cost_usd_total{provider,model}: estimated spend
//   - sketch_cost_per_generation_usd{provider}: spend distribution
//   - sketch_pricing_lookups_total{provider,pricing}: exact vs fallback rates
//
// # Usage
//
//	collector := metrics.NewCollector(metrics.Config{Enabled: true}, nil)
//	collector.RecordGeneration(metrics.Generation{
//	    Provider: "openai",
//	    Model:    "gpt-4o-mini",
//	    Status:   metrics.StatusSuccess,
//	    Duration: 1200 * time.Millisecond,
//	})
//	mux.Handle("/metrics", collector.Handler())
//
// A disabled collector accepts every call and records nothing.
package metrics
