package usage

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"sync"
	"time"

	"mercator-hq/sketch/pkg/kvstore"
)

// LedgerKey is the store key of the persisted ledger.
const LedgerKey = "usage-ledger"

// ProviderUsage is the per-provider part of the ledger.
type ProviderUsage struct {
	Count      int       `json:"count"`
	LastUsedAt time.Time `json:"last_used_at"`
}

// Ledger is the cumulative record of generation attempts.
type Ledger struct {
	TotalGenerations int                      `json:"total_generations"`
	SuccessCount     int                      `json:"success_count"`
	FailureCount     int                      `json:"failure_count"`
	TotalTokens      int64                    `json:"total_tokens"`
	EstimatedCost    float64                  `json:"estimated_cost"`
	LastUsedAt       time.Time                `json:"last_used_at,omitzero"`
	PerProvider      map[string]ProviderUsage `json:"per_provider"`
}

// Clone returns a deep copy of the ledger.
func (l Ledger) Clone() Ledger {
	out := l
	out.PerProvider = make(map[string]ProviderUsage, len(l.PerProvider))
	for id, p := range l.PerProvider {
		out.PerProvider[id] = p
	}
	return out
}

// Usage is the measured cost of one successful generation.
type Usage struct {
	InputTokens  int
	OutputTokens int
	Cost         float64
}

// Config configures a Tracker.
type Config struct {
	// Clock returns the current time. Default: time.Now.
	Clock func() time.Time

	// Logger receives warnings about store failures and corrupt state.
	// Default: slog.Default().
	Logger *slog.Logger
}

// Tracker maintains the usage ledger.
type Tracker struct {
	store  kvstore.Store
	now    func() time.Time
	logger *slog.Logger

	mu     sync.Mutex
	ledger Ledger
	loaded bool
}

// NewTracker creates a tracker persisting to store. The ledger is loaded on
// first access.
func NewTracker(store kvstore.Store, cfg Config) *Tracker {
	if cfg.Clock == nil {
		cfg.Clock = time.Now
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	return &Tracker{
		store:  store,
		now:    cfg.Clock,
		logger: cfg.Logger.With("component", "usage"),
		ledger: emptyLedger(),
	}
}

// Record counts one generation attempt for providerID. usage is added to the
// token and cost totals when non-nil.
func (t *Tracker) Record(ctx context.Context, providerID string, succeeded bool, usage *Usage) {
	t.mu.Lock()
	defer t.mu.Unlock()

	loaded := t.ensureLoadedLocked(ctx)

	now := t.now()
	l := &t.ledger

	l.TotalGenerations++
	if succeeded {
		l.SuccessCount++
	} else {
		l.FailureCount++
	}

	if usage != nil {
		if usage.InputTokens > 0 {
			l.TotalTokens += int64(usage.InputTokens)
		}
		if usage.OutputTokens > 0 {
			l.TotalTokens += int64(usage.OutputTokens)
		}
		if usage.Cost > 0 {
			l.EstimatedCost += usage.Cost
		}
	}

	p := l.PerProvider[providerID]
	p.Count++
	p.LastUsedAt = now
	l.PerProvider[providerID] = p
	l.LastUsedAt = now

	if loaded {
		t.saveLocked(ctx)
	}
}

// Snapshot returns a copy of the current ledger.
func (t *Tracker) Snapshot(ctx context.Context) Ledger {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.ensureLoadedLocked(ctx)
	return t.ledger.Clone()
}

// Reset zeroes the ledger and persists it.
func (t *Tracker) Reset(ctx context.Context) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.ledger = emptyLedger()
	t.loaded = true
	t.saveLocked(ctx)
}

func emptyLedger() Ledger {
	return Ledger{PerProvider: make(map[string]ProviderUsage)}
}

// ensureLoadedLocked loads the persisted ledger once and reports whether the
// in-memory ledger mirrors the store. After a failed read the ledger only
// holds what was recorded since; it is folded into the stored ledger on the
// next successful load. Caller must hold mu.
func (t *Tracker) ensureLoadedLocked(ctx context.Context) bool {
	if t.loaded {
		return true
	}

	data, err := t.store.Get(ctx, LedgerKey)
	switch {
	case errors.Is(err, kvstore.ErrNotFound):
		t.loaded = true
		if !t.ledger.empty() {
			t.saveLocked(ctx)
		}
		return true
	case err != nil:
		t.logger.Warn("failed to load usage ledger, will retry", "error", err)
		return false
	}

	var l Ledger
	corrupt := false
	if err := json.Unmarshal(data, &l); err != nil || !consistent(l) {
		t.logger.Warn("corrupt usage ledger, resetting", "error", err)
		l = emptyLedger()
		corrupt = true
	}
	if l.PerProvider == nil {
		l.PerProvider = make(map[string]ProviderUsage)
	}

	pending := t.ledger
	l.add(pending)
	t.ledger = l
	t.loaded = true
	if corrupt || !pending.empty() {
		t.saveLocked(ctx)
	}
	return true
}

func (l Ledger) empty() bool {
	return l.TotalGenerations == 0 && len(l.PerProvider) == 0
}

// add folds other's counters into l.
func (l *Ledger) add(other Ledger) {
	l.TotalGenerations += other.TotalGenerations
	l.SuccessCount += other.SuccessCount
	l.FailureCount += other.FailureCount
	l.TotalTokens += other.TotalTokens
	l.EstimatedCost += other.EstimatedCost
	if other.LastUsedAt.After(l.LastUsedAt) {
		l.LastUsedAt = other.LastUsedAt
	}
	for id, o := range other.PerProvider {
		p := l.PerProvider[id]
		p.Count += o.Count
		if o.LastUsedAt.After(p.LastUsedAt) {
			p.LastUsedAt = o.LastUsedAt
		}
		l.PerProvider[id] = p
	}
}

func consistent(l Ledger) bool {
	return l.SuccessCount >= 0 &&
		l.FailureCount >= 0 &&
		l.TotalTokens >= 0 &&
		l.EstimatedCost >= 0 &&
		l.SuccessCount+l.FailureCount == l.TotalGenerations
}

// Caller must hold mu.
func (t *Tracker) saveLocked(ctx context.Context) {
	data, err := json.Marshal(t.ledger)
	if err != nil {
		t.logger.Warn("failed to encode usage ledger", "error", err)
		return
	}
	if err := t.store.Put(ctx, LedgerKey, data); err != nil {
		t.logger.Warn("failed to persist usage ledger", "error", err)
	}
}
