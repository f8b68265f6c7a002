package wavio

import (
	"math"
	"path/filepath"
	"testing"
)

func TestRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tone.wav")

	rate := 16000
	samples := make([]float32, rate/2)
	for i := range samples {
		samples[i] = float32(0.5 * math.Sin(2*math.Pi*440*float64(i)/float64(rate)))
	}

	if err := WriteFile(path, samples, rate); err != nil {
		t.Fatalf("write: %v", err)
	}

	got, gotRate, err := ReadFile(path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if gotRate != rate {
		t.Fatalf("expected sample rate %d, got %d", rate, gotRate)
	}
	if len(got) != len(samples) {
		t.Fatalf("expected %d samples, got %d", len(samples), len(got))
	}
	for i := range samples {
		if diff := math.Abs(float64(got[i] - samples[i])); diff > 1.0/32768 {
			t.Fatalf("sample %d off by %f, beyond 16-bit quantization", i, diff)
		}
	}
}

func TestWriteClampsOutOfRange(t *testing.T) {
	path := filepath.Join(t.TempDir(), "clamp.wav")
	if err := WriteFile(path, []float32{2.0, -2.0, 0}, 8000); err != nil {
		t.Fatalf("write: %v", err)
	}
	got, _, err := ReadFile(path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if got[0] < 0.99 || got[1] > -0.99 {
		t.Fatalf("expected clamped extremes, got %v", got)
	}
}

func TestWriteRejectsBadRate(t *testing.T) {
	if err := WriteFile(filepath.Join(t.TempDir(), "x.wav"), nil, 0); err == nil {
		t.Fatal("expected error for zero sample rate")
	}
}

func TestReadMissingFile(t *testing.T) {
	if _, _, err := ReadFile(filepath.Join(t.TempDir(), "absent.wav")); err == nil {
		t.Fatal("expected error for missing file")
	}
}
