package asr

import (
	"context"
	"fmt"
)

type staticRecognizer struct {
	text       string
	confidence float64
}

// NewStaticRecognizer returns a recognizer that always reports the given
// text. Used when no ASR engine is configured and in tests.
func NewStaticRecognizer(text string, confidence float64) Recognizer {
	return &staticRecognizer{text: text, confidence: confidence}
}

func (s *staticRecognizer) Transcribe(_ context.Context, pcm []byte, _, _ int) (Result, error) {
	if len(pcm) == 0 {
		return Result{}, fmt.Errorf("empty pcm payload")
	}
	return Result{Text: s.text, Confidence: s.confidence}, nil
}
