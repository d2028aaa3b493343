// Package scheduler runs periodic housekeeping for the generation service.
//
// Two jobs are supported: pruning expired rate-limit windows from the store
// and logging a summary of the usage ledger. Schedules use cron syntax,
// including descriptors such as "@every 5m" and "@hourly". An empty
// schedule disables its job.
package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"mercator-hq/sketch/pkg/usage"
)

// Default schedules.
const (
	DefaultPruneSchedule   = "@every 5m"
	DefaultSummarySchedule = "@hourly"
)

// Pruner removes expired quota windows and reports how many it dropped.
type Pruner interface {
	Prune(ctx context.Context) int
}

// LedgerSource exposes the current usage ledger.
type LedgerSource interface {
	Snapshot(ctx context.Context) usage.Ledger
}

// Config configures the scheduler.
type Config struct {
	PruneSchedule   string
	SummarySchedule string
	Logger          *slog.Logger
}

// Scheduler owns a cron runner and the housekeeping jobs.
type Scheduler struct {
	cfg     Config
	pruner  Pruner
	ledger  LedgerSource
	cron    *cron.Cron
	logger  *slog.Logger
	mu      sync.Mutex
	running bool
	jobs    map[string]cron.EntryID
}

// New creates a scheduler. Either dependency may be nil, which disables
// the matching job.
func New(cfg Config, pruner Pruner, ledger LedgerSource) *Scheduler {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Scheduler{
		cfg:    cfg,
		pruner: pruner,
		ledger: ledger,
		cron:   cron.New(),
		logger: cfg.Logger.With("component", "scheduler"),
		jobs:   make(map[string]cron.EntryID),
	}
}

// Start validates the schedules, registers the jobs and starts the cron
// runner. It stops when ctx is cancelled. Starting with no jobs is a no-op.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return fmt.Errorf("scheduler already running")
	}

	if s.pruner != nil && s.cfg.PruneSchedule != "" {
		if err := s.addLocked(ctx, "prune", s.cfg.PruneSchedule, s.RunPrune); err != nil {
			return err
		}
	}
	if s.ledger != nil && s.cfg.SummarySchedule != "" {
		if err := s.addLocked(ctx, "summary", s.cfg.SummarySchedule, s.RunSummary); err != nil {
			return err
		}
	}

	if len(s.jobs) == 0 {
		s.logger.Info("no housekeeping jobs configured")
		return nil
	}

	s.cron.Start()
	s.running = true
	s.logger.Info("scheduler started",
		"prune_schedule", s.cfg.PruneSchedule,
		"summary_schedule", s.cfg.SummarySchedule,
	)

	go func() {
		<-ctx.Done()
		s.Stop()
	}()

	return nil
}

func (s *Scheduler) addLocked(ctx context.Context, name, spec string, run func(context.Context)) error {
	if _, err := cron.ParseStandard(spec); err != nil {
		return fmt.Errorf("invalid %s schedule %q: %w", name, spec, err)
	}
	id, err := s.cron.AddFunc(spec, func() { run(ctx) })
	if err != nil {
		return fmt.Errorf("failed to schedule %s: %w", name, err)
	}
	s.jobs[name] = id
	return nil
}

// Stop stops the cron runner and waits for running jobs.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running {
		return
	}
	<-s.cron.Stop().Done()
	s.running = false
	s.logger.Info("scheduler stopped")
}

// IsRunning reports whether the cron runner is active.
func (s *Scheduler) IsRunning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

// Jobs returns the registered job names.
func (s *Scheduler) Jobs() []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	names := make([]string, 0, len(s.jobs))
	for name := range s.jobs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// NextRun returns the next activation of job, or false if it is not
// scheduled.
func (s *Scheduler) NextRun(job string) (time.Time, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id, ok := s.jobs[job]
	if !ok {
		return time.Time{}, false
	}
	entry := s.cron.Entry(id)
	if !entry.Valid() {
		return time.Time{}, false
	}
	return entry.Next, true
}

// RunPrune runs one pruning pass.
func (s *Scheduler) RunPrune(ctx context.Context) {
	if s.pruner == nil {
		return
	}
	if n := s.pruner.Prune(ctx); n > 0 {
		s.logger.Info("pruned expired quota windows", "count", n)
	} else {
		s.logger.Debug("no expired quota windows")
	}
}

// RunSummary logs the current ledger totals.
func (s *Scheduler) RunSummary(ctx context.Context) {
	if s.ledger == nil {
		return
	}
	l := s.ledger.Snapshot(ctx)

	attrs := []any{
		"total_generations", l.TotalGenerations,
		"success_count", l.SuccessCount,
		"failure_count", l.FailureCount,
		"total_tokens", l.TotalTokens,
		"estimated_cost_usd", l.EstimatedCost,
	}
	if !l.LastUsedAt.IsZero() {
		attrs = append(attrs, "last_used_at", l.LastUsedAt.Format(time.RFC3339))
	}

	ids := make([]string, 0, len(l.PerProvider))
	for id := range l.PerProvider {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	for _, id := range ids {
		attrs = append(attrs, slog.Int("provider."+id, l.PerProvider[id].Count))
	}

	s.logger.Info("usage summary", attrs...)
}
