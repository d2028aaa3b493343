package scheduler

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"reflect"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"mercator-hq/sketch/pkg/usage"
)

type countingPruner struct {
	calls   atomic.Int32
	removed int
}

func (p *countingPruner) Prune(ctx context.Context) int {
	p.calls.Add(1)
	return p.removed
}

type fixedLedger struct {
	ledger usage.Ledger
}

func (f fixedLedger) Snapshot(ctx context.Context) usage.Ledger {
	return f.ledger
}

func bufferLogger() (*slog.Logger, *bytes.Buffer) {
	buf := new(bytes.Buffer)
	return slog.New(slog.NewJSONHandler(buf, &slog.HandlerOptions{Level: slog.LevelDebug})), buf
}

func TestScheduler_Start(t *testing.T) {
	tests := []struct {
		name        string
		prune       string
		summary     string
		wantJobs    []string
		wantRunning bool
		wantErr     bool
	}{
		{"defaults", DefaultPruneSchedule, DefaultSummarySchedule, []string{"prune", "summary"}, true, false},
		{"prune only", "*/10 * * * *", "", []string{"prune"}, true, false},
		{"nothing", "", "", []string{}, false, false},
		{"invalid", "every now and then", "", nil, false, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := New(Config{PruneSchedule: tt.prune, SummarySchedule: tt.summary}, &countingPruner{}, fixedLedger{})

			ctx, cancel := context.WithCancel(context.Background())
			defer cancel()

			err := s.Start(ctx)
			if (err != nil) != tt.wantErr {
				t.Fatalf("Start() error = %v, wantErr %v", err, tt.wantErr)
			}
			defer s.Stop()

			if s.IsRunning() != tt.wantRunning {
				t.Errorf("IsRunning() = %v, want %v", s.IsRunning(), tt.wantRunning)
			}
			if tt.wantErr {
				return
			}
			if got := s.Jobs(); !reflect.DeepEqual(got, tt.wantJobs) {
				t.Errorf("Jobs() = %v, want %v", got, tt.wantJobs)
			}
			for _, job := range tt.wantJobs {
				next, ok := s.NextRun(job)
				if !ok || !next.After(time.Now().Add(-time.Second)) {
					t.Errorf("NextRun(%s) = %v, %v", job, next, ok)
				}
			}
		})
	}
}

func TestScheduler_NilDependenciesDisableJobs(t *testing.T) {
	s := New(Config{PruneSchedule: DefaultPruneSchedule, SummarySchedule: DefaultSummarySchedule}, nil, nil)
	if err := s.Start(context.Background()); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	if s.IsRunning() {
		t.Error("scheduler without jobs should not run")
	}
	if _, ok := s.NextRun("prune"); ok {
		t.Error("prune should not be scheduled")
	}
}

func TestScheduler_StopsOnContextCancel(t *testing.T) {
	s := New(Config{PruneSchedule: DefaultPruneSchedule}, &countingPruner{}, nil)

	ctx, cancel := context.WithCancel(context.Background())
	if err := s.Start(ctx); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	if err := s.Start(ctx); err == nil {
		t.Error("expected error when starting twice")
	}

	cancel()
	deadline := time.Now().Add(2 * time.Second)
	for s.IsRunning() {
		if time.Now().After(deadline) {
			t.Fatal("scheduler still running after cancel")
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func TestScheduler_RunsEverySecond(t *testing.T) {
	p := &countingPruner{}
	s := New(Config{PruneSchedule: "@every 1s"}, p, nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := s.Start(ctx); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	defer s.Stop()

	deadline := time.Now().Add(3 * time.Second)
	for p.calls.Load() == 0 {
		if time.Now().After(deadline) {
			t.Fatal("prune job never ran")
		}
		time.Sleep(50 * time.Millisecond)
	}
}

func TestRunPrune(t *testing.T) {
	logger, buf := bufferLogger()
	p := &countingPruner{removed: 2}
	s := New(Config{Logger: logger}, p, nil)

	s.RunPrune(context.Background())

	if p.calls.Load() != 1 {
		t.Errorf("expected one prune, got %d", p.calls.Load())
	}
	if !strings.Contains(buf.String(), `"count":2`) {
		t.Errorf("expected prune count in log, got %s", buf.String())
	}
}

func TestRunSummary(t *testing.T) {
	logger, buf := bufferLogger()
	last := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	ledger := usage.Ledger{
		TotalGenerations: 5,
		SuccessCount:     4,
		FailureCount:     1,
		TotalTokens:      1200,
		EstimatedCost:    0.0123,
		LastUsedAt:       last,
		PerProvider: map[string]usage.ProviderUsage{
			"openai": {Count: 3, LastUsedAt: last},
			"gemini": {Count: 2, LastUsedAt: last},
		},
	}

	New(Config{Logger: logger}, nil, fixedLedger{ledger}).RunSummary(context.Background())

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("log line is not JSON: %v (%s)", err, buf.String())
	}
	if entry["msg"] != "usage summary" {
		t.Errorf("unexpected message %v", entry["msg"])
	}
	if entry["total_generations"] != float64(5) || entry["failure_count"] != float64(1) {
		t.Errorf("unexpected totals: %v", entry)
	}
	if entry["last_used_at"] != "2025-03-01T10:00:00Z" {
		t.Errorf("unexpected last_used_at %v", entry["last_used_at"])
	}
	if entry["provider.openai"] != float64(3) || entry["provider.gemini"] != float64(2) {
		t.Errorf("missing per-provider counts: %v", entry)
	}
}
