// Package health serves liveness, readiness and version endpoints.
//
// A Checker holds named component checks. Liveness never runs them;
// readiness runs all of them concurrently, each under its own timeout, and
// reports "degraded" with HTTP 503 when any fails.
//
//	checker := health.New(2 * time.Second)
//	checker.RegisterCheck("storage", health.StoreCheck(store))
//	checker.RegisterCheck("registry", health.CatalogCheck(reg))
//
//	mux.HandleFunc("GET /health", checker.LivenessHandler())
//	mux.HandleFunc("GET /ready", checker.ReadinessHandler())
package health
