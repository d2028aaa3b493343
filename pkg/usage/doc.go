// Package usage keeps the durable ledger of generation attempts.
//
// The Tracker counts every dispatched generation as a success or a failure,
// accumulates token and cost totals from successful calls, and remembers when
// each provider was last used. The full ledger is persisted after every
// mutation under the "usage-ledger" key of a kvstore.Store.
//
// The ledger always satisfies:
//
//	SuccessCount + FailureCount == TotalGenerations
//
// Snapshot returns a deep copy; callers cannot reach internal state through
// it. Reset zeroes every counter and persists the empty ledger.
package usage
