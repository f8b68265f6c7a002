package bench

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/guofoo/mofa-studio/internal/asr"
	"github.com/guofoo/mofa-studio/internal/config"
	"github.com/guofoo/mofa-studio/internal/tts"
)

func newLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelError}))
}

func benchConfig(t *testing.T) config.BenchConfig {
	t.Helper()
	return config.BenchConfig{
		Mode:       "mock",
		Text:       "hello from the benchmark",
		Iterations: 3,
		Warmup:     1,
		SampleRate: 16000,
		Channels:   1,
		OutputPath: filepath.Join(t.TempDir(), "bench.wav"),
	}
}

func TestRunCollectsIterations(t *testing.T) {
	cfg := benchConfig(t)
	synth := tts.NewMockSynth(cfg.SampleRate, cfg.Channels)
	runner := NewWithSynth(cfg, synth, nil, newLogger())

	report, err := runner.Run(context.Background())
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if len(report.Iterations) != 3 {
		t.Fatalf("expected 3 iterations, got %d", len(report.Iterations))
	}
	for _, it := range report.Iterations {
		if it.AudioDuration <= 0 {
			t.Fatalf("iteration %d has no audio", it.Seq)
		}
		if it.SynthTime <= 0 {
			t.Fatalf("iteration %d has no timing", it.Seq)
		}
	}
	if report.Min > report.Avg || report.Avg > report.Max {
		t.Fatalf("summary ordering broken: min=%s avg=%s max=%s", report.Min, report.Avg, report.Max)
	}
	if report.RTF <= 0 || report.CharsPerSec <= 0 {
		t.Fatalf("throughput metrics missing: rtf=%f chars/sec=%f", report.RTF, report.CharsPerSec)
	}
	if _, err := os.Stat(report.ArtifactPath); err != nil {
		t.Fatalf("artifact missing: %v", err)
	}
}

func TestRoundTripScoring(t *testing.T) {
	cfg := benchConfig(t)
	cfg.Text = "good morning"
	synth := tts.NewMockSynth(cfg.SampleRate, cfg.Channels)
	recognizer := asr.NewStaticRecognizer("Good morning!", 0.9)
	runner := NewWithSynth(cfg, synth, recognizer, newLogger())

	report, err := runner.Run(context.Background())
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if report.RoundTrip == nil {
		t.Fatal("expected a round-trip comparison")
	}
	if report.RoundTrip.Similarity != 1.0 {
		t.Fatalf("normalized texts should match exactly, got %f", report.RoundTrip.Similarity)
	}
}

func TestNewRejectsUnknownMode(t *testing.T) {
	cfg := benchConfig(t)
	cfg.Mode = "quantum"
	if _, err := New(cfg, nil, newLogger()); err == nil {
		t.Fatal("expected error for unknown mode")
	}
}

func TestReportTable(t *testing.T) {
	cfg := benchConfig(t)
	synth := tts.NewMockSynth(cfg.SampleRate, cfg.Channels)
	runner := NewWithSynth(cfg, synth, nil, newLogger())

	report, err := runner.Run(context.Background())
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	var buf bytes.Buffer
	report.WriteTable(&buf)
	out := buf.String()
	if !strings.Contains(out, "ITER") || !strings.Contains(out, "rtf=") {
		t.Fatalf("unexpected report output:\n%s", out)
	}
}

func TestCancelledContextFailsRun(t *testing.T) {
	cfg := benchConfig(t)
	cfg.Warmup = 0
	synth := tts.NewMockSynth(cfg.SampleRate, cfg.Channels)
	runner := NewWithSynth(cfg, synth, nil, newLogger())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := runner.Run(ctx); err == nil {
		t.Fatal("expected error for cancelled context")
	}
}
