// Package orchestrator runs one generation request end to end.
//
// Generate resolves the provider and its adapter, reserves one request from
// the provider's local quota, performs the outbound call under a deadline,
// and records the outcome in the usage ledger. Every outcome, including
// unknown providers and exhausted quota, is returned as a Result; Generate
// never returns an error.
//
//	orch, err := orchestrator.New(orchestrator.Config{Timeout: 60 * time.Second}, orchestrator.Dependencies{
//	    Registry:  reg,
//	    Adapters:  adapters,
//	    Limiter:   limiter,
//	    Ledger:    tracker,
//	    Transport: transport,
//	})
//	res := orch.Generate(ctx, orchestrator.Request{
//	    Prompt:     "a login flow",
//	    ProviderID: "openai",
//	    Secret:     key,
//	})
//	switch {
//	case res.Failure != nil:
//	    // res.Failure.Kind drives the UI hint
//	case res.IsEmpty():
//	    // the provider answered but no text could be extracted
//	default:
//	    render(res.Success.DiagramText)
//	}
//
// A request refused by the local quota, or naming an unknown provider, is
// not written to the ledger. Quota reserved for a call is never refunded.
package orchestrator
