package ratelimit

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"sync"
	"time"

	"mercator-hq/sketch/pkg/kvstore"
	"mercator-hq/sketch/pkg/registry"
)

// StateKey is the store key of the persisted window map.
const StateKey = "rate-limit-state"

// Window is the persisted quota window of one provider.
type Window struct {
	RequestCount  int       `json:"request_count"`
	WindowResetAt time.Time `json:"window_reset_at"`
}

// Live reports whether the window is still open at now.
func (w Window) Live(now time.Time) bool {
	return now.Before(w.WindowResetAt)
}

// Status summarizes a provider's quota at one instant.
type Status struct {
	Provider  string    `json:"provider"`
	Limit     int       `json:"limit"`
	Remaining int       `json:"remaining"`
	ResetAt   time.Time `json:"reset_at,omitzero"`
	Allowed   bool      `json:"allowed"`
}

// QuotaSource resolves a provider's quota. *registry.Registry satisfies it.
type QuotaSource interface {
	Get(id string) (registry.Descriptor, error)
}

// Config configures a Limiter.
type Config struct {
	// Clock returns the current time. Default: time.Now.
	Clock func() time.Time

	// Logger receives warnings about store failures and corrupt state.
	// Default: slog.Default().
	Logger *slog.Logger
}

// Limiter tracks per-provider quota windows.
type Limiter struct {
	store  kvstore.Store
	quotas QuotaSource
	now    func() time.Time
	logger *slog.Logger

	// stateMu guards the store record and the mirror below. last is the
	// window map as of the last successful read or write; pending counts
	// reservations made while the store could not be read.
	stateMu sync.Mutex
	last    map[string]Window
	pending map[string]int

	locksMu sync.Mutex
	locks   map[string]*sync.Mutex
}

// NewLimiter creates a limiter persisting to store.
func NewLimiter(store kvstore.Store, quotas QuotaSource, cfg Config) *Limiter {
	if cfg.Clock == nil {
		cfg.Clock = time.Now
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	return &Limiter{
		store:   store,
		quotas:  quotas,
		now:     cfg.Clock,
		logger:  cfg.Logger.With("component", "ratelimit"),
		locks:   make(map[string]*sync.Mutex),
		last:    make(map[string]Window),
		pending: make(map[string]int),
	}
}

// CanProceed reports whether providerID has quota left. It does not modify
// state. Unknown providers are never allowed.
func (l *Limiter) CanProceed(ctx context.Context, providerID string) bool {
	quota, ok := l.quota(providerID)
	if !ok {
		return false
	}

	mu := l.providerLock(providerID)
	mu.Lock()
	defer mu.Unlock()

	return l.allowedLocked(ctx, providerID, quota)
}

// Reserve consumes one request from providerID's quota, opening a new window
// when none is live. It reserves even when the quota is exhausted; use
// TryReserve to check and reserve in one step.
func (l *Limiter) Reserve(ctx context.Context, providerID string) {
	quota, ok := l.quota(providerID)
	if !ok {
		return
	}

	mu := l.providerLock(providerID)
	mu.Lock()
	defer mu.Unlock()

	l.reserveLocked(ctx, providerID, quota)
}

// TryReserve reserves one request only if quota remains. It returns the
// status after the attempt and whether the reservation was made.
func (l *Limiter) TryReserve(ctx context.Context, providerID string) (Status, bool) {
	quota, ok := l.quota(providerID)
	if !ok {
		return Status{Provider: providerID}, false
	}

	mu := l.providerLock(providerID)
	mu.Lock()
	defer mu.Unlock()

	if !l.allowedLocked(ctx, providerID, quota) {
		return l.statusLocked(ctx, providerID, quota), false
	}

	w := l.reserveLocked(ctx, providerID, quota)
	return Status{
		Provider:  providerID,
		Limit:     quota.MaxRequests,
		Remaining: remaining(quota, w, l.now()),
		ResetAt:   w.WindowResetAt,
		Allowed:   w.RequestCount < quota.MaxRequests,
	}, true
}

// Remaining returns the requests left in the live window, or the full quota
// when no window is live. Unknown providers report 0.
func (l *Limiter) Remaining(ctx context.Context, providerID string) int {
	return l.Status(ctx, providerID).Remaining
}

// ResetAt returns the stored reset time of providerID's window, or the zero
// time when none is stored.
func (l *Limiter) ResetAt(ctx context.Context, providerID string) time.Time {
	l.stateMu.Lock()
	defer l.stateMu.Unlock()

	windows, _ := l.loadLocked(ctx)
	return windows[providerID].WindowResetAt
}

// Status returns the quota status of providerID.
func (l *Limiter) Status(ctx context.Context, providerID string) Status {
	quota, ok := l.quota(providerID)
	if !ok {
		return Status{Provider: providerID}
	}

	mu := l.providerLock(providerID)
	mu.Lock()
	defer mu.Unlock()

	return l.statusLocked(ctx, providerID, quota)
}

// Prune drops expired windows from the persisted record and returns how
// many were removed.
func (l *Limiter) Prune(ctx context.Context) int {
	l.stateMu.Lock()
	defer l.stateMu.Unlock()

	windows, fresh := l.loadLocked(ctx)
	if !fresh {
		return 0
	}
	now := l.now()

	removed := 0
	for id, w := range windows {
		if !w.Live(now) {
			delete(windows, id)
			removed++
		}
	}

	if removed > 0 {
		l.saveLocked(ctx, windows)
	}
	return removed
}

func (l *Limiter) quota(providerID string) (registry.Quota, bool) {
	d, err := l.quotas.Get(providerID)
	if err != nil {
		return registry.Quota{}, false
	}
	return d.Quota, true
}

func (l *Limiter) providerLock(providerID string) *sync.Mutex {
	l.locksMu.Lock()
	defer l.locksMu.Unlock()

	mu, ok := l.locks[providerID]
	if !ok {
		mu = &sync.Mutex{}
		l.locks[providerID] = mu
	}
	return mu
}

// Caller must hold the provider lock.
func (l *Limiter) allowedLocked(ctx context.Context, providerID string, quota registry.Quota) bool {
	l.stateMu.Lock()
	windows, _ := l.loadLocked(ctx)
	w, ok := windows[providerID]
	l.stateMu.Unlock()

	if !ok || !w.Live(l.now()) {
		return true
	}
	return w.RequestCount < quota.MaxRequests
}

// Caller must hold the provider lock.
func (l *Limiter) reserveLocked(ctx context.Context, providerID string, quota registry.Quota) Window {
	l.stateMu.Lock()
	defer l.stateMu.Unlock()

	windows, fresh := l.loadLocked(ctx)
	now := l.now()

	w, ok := windows[providerID]
	if !ok || !w.Live(now) {
		w = Window{
			RequestCount:  1,
			WindowResetAt: now.Add(time.Duration(quota.WindowMinutes) * time.Minute),
		}
	} else {
		w.RequestCount++
	}

	windows[providerID] = w
	if !fresh {
		// Writing now would drop other providers' windows.
		l.last = windows
		l.pending[providerID]++
		return w
	}
	l.saveLocked(ctx, windows)
	return w
}

// Caller must hold the provider lock.
func (l *Limiter) statusLocked(ctx context.Context, providerID string, quota registry.Quota) Status {
	l.stateMu.Lock()
	windows, _ := l.loadLocked(ctx)
	w := windows[providerID]
	l.stateMu.Unlock()

	now := l.now()
	rem := remaining(quota, w, now)
	return Status{
		Provider:  providerID,
		Limit:     quota.MaxRequests,
		Remaining: rem,
		ResetAt:   w.WindowResetAt,
		Allowed:   rem > 0,
	}
}

func remaining(quota registry.Quota, w Window, now time.Time) int {
	if !w.Live(now) {
		return quota.MaxRequests
	}
	if rem := quota.MaxRequests - w.RequestCount; rem > 0 {
		return rem
	}
	return 0
}

// loadLocked reads the window map and reports whether it came from the
// store. Missing state yields an empty map and a corrupt record is replaced.
// When the store cannot be read the last known map is returned instead.
// Caller must hold stateMu.
func (l *Limiter) loadLocked(ctx context.Context) (map[string]Window, bool) {
	windows := make(map[string]Window)

	data, err := l.store.Get(ctx, StateKey)
	switch {
	case errors.Is(err, kvstore.ErrNotFound):
	case err != nil:
		l.logger.Warn("failed to load rate limit state, using last known", "error", err)
		return cloneWindows(l.last), false
	default:
		if err := json.Unmarshal(data, &windows); err != nil {
			l.logger.Warn("corrupt rate limit state, resetting", "error", err)
			windows = make(map[string]Window)
			l.saveLocked(ctx, windows)
		}
	}

	if len(l.pending) > 0 {
		l.mergePendingLocked(windows)
		l.saveLocked(ctx, windows)
	}
	l.last = cloneWindows(windows)
	return windows, true
}

// mergePendingLocked adds reservations made while the store was unreadable
// to windows. Caller must hold stateMu.
func (l *Limiter) mergePendingLocked(windows map[string]Window) {
	now := l.now()
	for id, n := range l.pending {
		if w, ok := windows[id]; ok && w.Live(now) {
			w.RequestCount += n
			windows[id] = w
		} else if w := l.last[id]; w.Live(now) {
			windows[id] = Window{RequestCount: n, WindowResetAt: w.WindowResetAt}
		}
	}
	l.pending = make(map[string]int)
}

func cloneWindows(windows map[string]Window) map[string]Window {
	out := make(map[string]Window, len(windows))
	for id, w := range windows {
		out[id] = w
	}
	return out
}

// Caller must hold stateMu.
func (l *Limiter) saveLocked(ctx context.Context, windows map[string]Window) {
	data, err := json.Marshal(windows)
	if err != nil {
		l.logger.Warn("failed to encode rate limit state", "error", err)
		return
	}
	if err := l.store.Put(ctx, StateKey, data); err != nil {
		l.logger.Warn("failed to persist rate limit state", "error", err)
		return
	}
	l.last = cloneWindows(windows)
}
