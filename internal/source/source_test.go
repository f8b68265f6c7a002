package source

import (
	"math"
	"path/filepath"
	"strconv"
	"testing"

	"github.com/guofoo/mofa-studio/internal/config"
	"github.com/guofoo/mofa-studio/internal/protocol"
	"github.com/guofoo/mofa-studio/internal/wavio"
)

func collectEmissions(t *testing.T, run Run, maxTicks int) []protocol.Envelope {
	t.Helper()
	var sent []protocol.Envelope
	for i := 0; i < maxTicks; i++ {
		done, err := run.HandleTick(func(subject string, env protocol.Envelope) error {
			sent = append(sent, env)
			return nil
		})
		if err != nil {
			t.Fatalf("tick %d: %v", i, err)
		}
		if done {
			return sent
		}
	}
	t.Fatalf("run did not finish within %d ticks", maxTicks)
	return nil
}

func TestTextRunEmitsAllSentences(t *testing.T) {
	cfg := config.SourceConfig{
		Mode:             "text",
		Sentences:        []string{"one", "two", "three"},
		WaitTicks:        4,
		InitialWaitTicks: 2,
	}
	run := NewTextRun(cfg)
	sent := collectEmissions(t, run, 100)

	if len(sent) != 3 {
		t.Fatalf("expected 3 units, got %d", len(sent))
	}
	for i, env := range sent {
		if env.Payload.Text != cfg.Sentences[i] {
			t.Fatalf("unit %d text %q, want %q", i, env.Payload.Text, cfg.Sentences[i])
		}
		if got := env.Metadata[protocol.MetaQuestionID]; got != strconv.Itoa(i+1) {
			t.Fatalf("unit %d question_id %q", i, got)
		}
		if env.Metadata[protocol.MetaSessionStatus] != protocol.StatusActive {
			t.Fatalf("unit %d missing active session status", i)
		}
	}
}

func writeTestWav(t *testing.T, seconds float64, rate int) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "source.wav")
	samples := make([]float32, int(seconds*float64(rate)))
	for i := range samples {
		samples[i] = float32(0.25 * math.Sin(2*math.Pi*220*float64(i)/float64(rate)))
	}
	if err := wavio.WriteFile(path, samples, rate); err != nil {
		t.Fatalf("write test wav: %v", err)
	}
	return path
}

func TestAudioRunSegmentsAndMetadata(t *testing.T) {
	rate := 16000
	cfg := config.SourceConfig{
		Mode:               "audio",
		AudioFile:          writeTestWav(t, 9.0, rate),
		SegmentDuration:    4.0,
		MaxSegments:        10,
		MinSegmentDuration: 0.5,
		WaitTicks:          3,
		InitialWaitTicks:   1,
	}
	run, err := NewAudioRun(cfg)
	if err != nil {
		t.Fatalf("new audio run: %v", err)
	}
	// 9s at 4s per segment: two full segments plus a viable 1s tail.
	if run.Total() != 3 {
		t.Fatalf("expected 3 segments, got %d", run.Total())
	}

	sent := collectEmissions(t, run, 100)
	if len(sent) != 3 {
		t.Fatalf("expected 3 emissions, got %d", len(sent))
	}
	for i, env := range sent {
		if env.Metadata[protocol.MetaSegment] != strconv.Itoa(i) {
			t.Fatalf("unit %d segment metadata %q", i, env.Metadata[protocol.MetaSegment])
		}
		if env.Metadata[protocol.MetaSampleRate] != "16000" {
			t.Fatalf("unit %d sample_rate metadata %q", i, env.Metadata[protocol.MetaSampleRate])
		}
		if _, err := env.Payload.Flatten(); err != nil {
			t.Fatalf("unit %d payload: %v", i, err)
		}
	}
	if len(sent[0].Payload.Samples) != 4*rate {
		t.Fatalf("first segment has %d samples, want %d", len(sent[0].Payload.Samples), 4*rate)
	}
}

func TestAudioRunFailsFastOnMissingFile(t *testing.T) {
	cfg := config.SourceConfig{
		Mode:               "audio",
		AudioFile:          filepath.Join(t.TempDir(), "missing.wav"),
		SegmentDuration:    4.0,
		MaxSegments:        10,
		MinSegmentDuration: 0.5,
		WaitTicks:          3,
	}
	if _, err := NewAudioRun(cfg); err == nil {
		t.Fatal("expected startup failure for missing audio file")
	}
}

func TestAudioRunRejectsAllShortSegments(t *testing.T) {
	rate := 16000
	cfg := config.SourceConfig{
		Mode:               "audio",
		AudioFile:          writeTestWav(t, 0.3, rate),
		SegmentDuration:    4.0,
		MaxSegments:        10,
		MinSegmentDuration: 0.5,
		WaitTicks:          3,
	}
	if _, err := NewAudioRun(cfg); err == nil {
		t.Fatal("expected error when no viable segments remain")
	}
}
