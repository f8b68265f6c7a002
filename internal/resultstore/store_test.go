package resultstore

import (
	"context"
	"io"
	"log/slog"
	"path/filepath"
	"testing"
	"time"

	"github.com/guofoo/mofa-studio/internal/config"
)

func newLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelError}))
}

func TestOpenEphemeral(t *testing.T) {
	ctx := context.Background()
	cfg := config.ResultStoreConfig{RetentionMode: "ephemeral"}
	rs, err := Open(ctx, cfg, newLogger())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	t.Cleanup(func() { _ = rs.Close() })
	if err := rs.Ensure(); err != nil {
		t.Fatalf("ensure failed: %v", err)
	}
}

func TestAppendAndList(t *testing.T) {
	tmp := t.TempDir()
	cfg := config.ResultStoreConfig{Path: filepath.Join(tmp, "results.db"), RetentionMode: "session"}
	rs, err := Open(context.Background(), cfg, newLogger())
	if err != nil {
		t.Fatalf("open result store: %v", err)
	}
	t.Cleanup(func() { _ = rs.Close() })

	runID := "run-123"
	if err := rs.BeginRun(context.Background(), runID, "audio-sink", "session-1"); err != nil {
		t.Fatalf("begin run: %v", err)
	}
	if err := rs.AppendUnit(context.Background(), Unit{RunID: runID, Seq: 1, QuestionID: "1", Duration: 4.0, SampleCount: 64000}); err != nil {
		t.Fatalf("append unit: %v", err)
	}
	if err := rs.AppendUnit(context.Background(), Unit{RunID: runID, Seq: 2, QuestionID: "2", Duration: 3.5, SampleCount: 56000}); err != nil {
		t.Fatalf("append unit: %v", err)
	}
	units, err := rs.ListRunUnits(context.Background(), runID, 10)
	if err != nil {
		t.Fatalf("list units: %v", err)
	}
	if len(units) != 2 {
		t.Fatalf("expected 2 units, got %d", len(units))
	}
	if units[0].Seq != 1 || units[0].QuestionID != "1" {
		t.Fatalf("unexpected first unit: %+v", units[0])
	}
	if units[1].Duration != 3.5 {
		t.Fatalf("unexpected second unit duration: %f", units[1].Duration)
	}
}

func TestPruneByDaysAndRuns(t *testing.T) {
	tmp := t.TempDir()
	cfg := config.ResultStoreConfig{Path: filepath.Join(tmp, "results.db"), RetentionMode: "persistent", RetentionDays: 1, MaxRuns: 1}
	rs, err := Open(context.Background(), cfg, newLogger())
	if err != nil {
		t.Fatalf("open result store: %v", err)
	}
	t.Cleanup(func() { _ = rs.Close() })

	rs.clock = func() time.Time { return time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC) }
	if err := rs.BeginRun(context.Background(), "old-run", "audio-sink", "s"); err != nil {
		t.Fatalf("begin run: %v", err)
	}
	if err := rs.AppendUnit(context.Background(), Unit{RunID: "old-run", Seq: 1}); err != nil {
		t.Fatalf("append unit: %v", err)
	}

	rs.clock = func() time.Time { return time.Date(2026, 1, 3, 0, 0, 0, 0, time.UTC) }
	if err := rs.BeginRun(context.Background(), "new-run", "audio-sink", "s"); err != nil {
		t.Fatalf("begin run: %v", err)
	}
	if err := rs.Prune(context.Background()); err != nil {
		t.Fatalf("prune: %v", err)
	}

	units, err := rs.ListRunUnits(context.Background(), "old-run", 10)
	if err != nil {
		t.Fatalf("list units: %v", err)
	}
	if len(units) != 0 {
		t.Fatalf("expected old run pruned")
	}
}
