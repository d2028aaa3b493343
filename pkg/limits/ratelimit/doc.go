// Package ratelimit enforces the per-provider request quota.
//
// # Overview
//
// Each provider has a quota of MaxRequests per window of WindowMinutes. The
// limiter keeps one Window per provider:
//
//	{RequestCount, WindowResetAt}
//
// A window is live while the current time is before WindowResetAt. An absent
// or expired window reads as "no history": the full quota is available.
//
// # Operations
//
//   - CanProceed is a pure read. It never writes state.
//   - Reserve is the only transition. On an absent or expired window it opens
//     a new one with RequestCount 1; otherwise it increments the count.
//   - TryReserve performs the check and the reservation under one lock, so
//     two concurrent callers cannot both take the last slot.
//
// Reservations count attempts, not successes. Quota spent is never refunded.
//
//	limiter := ratelimit.NewLimiter(store, reg, ratelimit.Config{})
//	if status, ok := limiter.TryReserve(ctx, "openai"); !ok {
//	    return fmt.Errorf("quota exhausted, resets at %s", status.ResetAt)
//	}
//
// # Persistence
//
// All windows live in one record, "rate-limit-state", in a kvstore.Store.
// A corrupt record is logged and replaced with an empty one. Store failures
// are logged and never surface to callers.
//
// # Thread Safety
//
// A per-provider mutex serializes check and transition for one provider. A
// state mutex serializes load-modify-write of the shared record.
package ratelimit
