package segment

import "testing"

func TestSplitFullSegments(t *testing.T) {
	rate := 16000
	// 45s of audio, 4s segments, max 10 -> ten 4s segments plus a dropped 5s
	// remainder beyond the max.
	samples := make([]float32, 45*rate)
	segs := Split(samples, rate, 4.0, 10, DefaultMinDuration)
	if len(segs) != 10 {
		t.Fatalf("expected 10 segments, got %d", len(segs))
	}
	for i, s := range segs {
		if len(s.Samples) != 4*rate {
			t.Fatalf("segment %d has %d samples, want %d", i, len(s.Samples), 4*rate)
		}
		if s.Start != i*4*rate {
			t.Fatalf("segment %d starts at %d, want %d", i, s.Start, i*4*rate)
		}
	}
}

func TestSplitDropsShortTail(t *testing.T) {
	rate := 16000
	// 8.3s source: two full 4s segments, 0.3s remainder dropped.
	samples := make([]float32, 8*rate+rate*3/10)
	segs := Split(samples, rate, 4.0, 10, DefaultMinDuration)
	if len(segs) != 2 {
		t.Fatalf("expected short tail dropped, got %d segments", len(segs))
	}
}

func TestSplitKeepsViableTail(t *testing.T) {
	rate := 16000
	// 8.6s source: the 0.6s remainder is above the minimum and kept.
	samples := make([]float32, 8*rate+rate*6/10)
	segs := Split(samples, rate, 4.0, 10, DefaultMinDuration)
	if len(segs) != 3 {
		t.Fatalf("expected viable tail kept, got %d segments", len(segs))
	}
	if d := segs[2].Duration(); d < 0.59 || d > 0.61 {
		t.Fatalf("tail duration %f, want ~0.6", d)
	}
}

func TestSplitEndsEarlyOnExhaustion(t *testing.T) {
	rate := 16000
	samples := make([]float32, 6*rate)
	segs := Split(samples, rate, 4.0, 10, DefaultMinDuration)
	if len(segs) != 2 {
		t.Fatalf("expected 2 segments from a 6s source, got %d", len(segs))
	}
}

func TestSplitWholeBuffer(t *testing.T) {
	rate := 16000
	samples := make([]float32, 3*rate)
	segs := Split(samples, rate, 0, 1, DefaultMinDuration)
	if len(segs) != 1 || len(segs[0].Samples) != len(samples) {
		t.Fatalf("expected the whole buffer as one segment, got %v", segs)
	}
}

func TestSplitEmptyInput(t *testing.T) {
	if segs := Split(nil, 16000, 4.0, 10, DefaultMinDuration); segs != nil {
		t.Fatalf("expected nil for empty input, got %v", segs)
	}
}
