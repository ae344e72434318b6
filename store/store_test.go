package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/nathoo/aplcore/engine/batch"
)

func openTempStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "history.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() {
		if err := s.Close(); err != nil {
			t.Fatalf("close store: %v", err)
		}
	})
	return s
}

func summary(rotation string, dps, hps float64) batch.Summary {
	return batch.Summary{
		Rotation:   rotation,
		Iterations: 100,
		Horizon:    5 * time.Minute,
		BaseSeed:   42,
		DPS:        batch.Stat{Mean: dps, StdDev: 12.5, Min: dps - 30, Max: dps + 30, Median: dps},
		HPS:        batch.Stat{Mean: hps},
		Casts:      batch.Stat{Mean: 180},
	}
}

func TestSaveAndListRuns(t *testing.T) {
	s := openTempStore(t)
	ctx := context.Background()
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return now }

	if _, err := s.SaveSummary(ctx, summary("disc", 1000, 4000)); err != nil {
		t.Fatalf("save: %v", err)
	}
	now = now.Add(time.Minute)
	if _, err := s.SaveSummary(ctx, summary("shadow", 3000, 0)); err != nil {
		t.Fatalf("save: %v", err)
	}
	now = now.Add(time.Minute)
	id, err := s.SaveSummary(ctx, summary("disc", 1100, 4100))
	if err != nil {
		t.Fatalf("save: %v", err)
	}

	runs, err := s.ListRuns(ctx, "disc", 10)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(runs) != 2 {
		t.Fatalf("runs = %d, want 2", len(runs))
	}
	if runs[0].ID != id {
		t.Errorf("runs[0].ID = %d, want newest %d", runs[0].ID, id)
	}
	got := runs[0].Summary
	want := summary("disc", 1100, 4100)
	if got != want {
		t.Errorf("summary =\n%+v\nwant\n%+v", got, want)
	}
	if !runs[0].CreatedAt.Equal(now) {
		t.Errorf("CreatedAt = %v, want %v", runs[0].CreatedAt, now)
	}

	all, err := s.ListRuns(ctx, "", 10)
	if err != nil {
		t.Fatalf("list all: %v", err)
	}
	if len(all) != 3 {
		t.Errorf("all runs = %d, want 3", len(all))
	}

	limited, err := s.ListRuns(ctx, "", 1)
	if err != nil || len(limited) != 1 {
		t.Errorf("limited = %d, %v", len(limited), err)
	}
}

func TestBest(t *testing.T) {
	s := openTempStore(t)
	ctx := context.Background()

	if _, ok, err := s.Best(ctx, "disc"); err != nil || ok {
		t.Fatalf("Best on empty store = %v, %v", ok, err)
	}
	for _, dps := range []float64{900, 1500, 1200} {
		if _, err := s.SaveSummary(ctx, summary("disc", dps, 100)); err != nil {
			t.Fatal(err)
		}
	}
	best, ok, err := s.Best(ctx, "disc")
	if err != nil || !ok {
		t.Fatalf("Best = %v, %v", ok, err)
	}
	if best.Summary.DPS.Mean != 1500 {
		t.Errorf("best DPS = %v, want 1500", best.Summary.DPS.Mean)
	}
}

func TestSaveSummaryValidation(t *testing.T) {
	s := openTempStore(t)
	ctx := context.Background()

	if _, err := s.SaveSummary(ctx, batch.Summary{Iterations: 1}); err == nil {
		t.Error("expected error for missing rotation")
	}
	if _, err := s.SaveSummary(ctx, batch.Summary{Rotation: "disc"}); err == nil {
		t.Error("expected error for zero iterations")
	}
	if _, err := s.ListRuns(ctx, "", 0); err == nil {
		t.Error("expected error for zero limit")
	}

	cancelled, cancel := context.WithCancel(ctx)
	cancel()
	if _, err := s.SaveSummary(cancelled, summary("disc", 1, 1)); err == nil {
		t.Error("expected error for cancelled context")
	}
}

func TestOpenRequiresPath(t *testing.T) {
	if _, err := Open("  "); err == nil {
		t.Fatal("expected error for empty path")
	}
}
