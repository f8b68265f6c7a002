package tts

import (
	"context"
	"testing"
)

func TestMockSynthStreamsFragments(t *testing.T) {
	synth := NewMockSynth(16000, 1)
	chunks, errs := synth.Synthesize(context.Background(), SynthRequest{
		SessionID: "s1",
		Text:      "this sentence is long enough for several fragments",
	})

	var total int
	var finals int
	last := -1
	for chunk := range chunks {
		if chunk.Sequence != last+1 {
			t.Fatalf("fragment sequence gap: %d after %d", chunk.Sequence, last)
		}
		last = chunk.Sequence
		total += len(chunk.PCM)
		if chunk.Final {
			finals++
		}
	}
	if err := <-errs; err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if last < 1 {
		t.Fatalf("expected multiple fragments, got %d", last+1)
	}
	if finals != 1 {
		t.Fatalf("expected exactly one final fragment, got %d", finals)
	}
	if total%2 != 0 || total == 0 {
		t.Fatalf("pcm payload misaligned: %d bytes", total)
	}
}

func TestMockSynthSpeedShortensAudio(t *testing.T) {
	synth := NewMockSynth(16000, 1)
	slow := collect(t, synth, SynthRequest{Text: "same text for both runs goes here", Speed: 1.0})
	fast := collect(t, synth, SynthRequest{Text: "same text for both runs goes here", Speed: 2.0})
	if fast >= slow {
		t.Fatalf("speed 2.0 should shorten audio: fast=%d slow=%d", fast, slow)
	}
}

func collect(t *testing.T, synth Synthesizer, req SynthRequest) int {
	t.Helper()
	chunks, errs := synth.Synthesize(context.Background(), req)
	total := 0
	for chunk := range chunks {
		total += len(chunk.PCM)
	}
	if err := <-errs; err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	return total
}
