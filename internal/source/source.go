// Package source implements the producing harness nodes: a text source that
// emits test sentences for TTS, and an audio source that emits fixed
// duration segments of a WAV file for ASR. Both are paced by externally
// delivered ticks through a pacer.
package source

import (
	"fmt"
	"strconv"

	"github.com/guofoo/mofa-studio/internal/config"
	"github.com/guofoo/mofa-studio/internal/pacer"
	"github.com/guofoo/mofa-studio/internal/protocol"
	"github.com/guofoo/mofa-studio/internal/segment"
	"github.com/guofoo/mofa-studio/internal/wavio"
)

// PublishFunc sends one envelope on a subject.
type PublishFunc func(subject string, env protocol.Envelope) error

// Run is the tick-driven emission state of a source node.
type Run interface {
	// HandleTick consumes one tick, possibly emitting one unit. It reports
	// true once all units are sent and the trailing interval elapsed.
	HandleTick(publish PublishFunc) (done bool, err error)
	// Total is the number of units this run will emit.
	Total() int
	// Emitted is the number of units released so far.
	Emitted() int
}

// TextRun emits one test sentence per eligible tick.
type TextRun struct {
	sentences []string
	pace      *pacer.Pacer
}

func NewTextRun(cfg config.SourceConfig) *TextRun {
	return &TextRun{
		sentences: cfg.Sentences,
		pace:      pacer.New(len(cfg.Sentences), cfg.InitialWaitTicks, cfg.WaitTicks),
	}
}

func (r *TextRun) Total() int   { return len(r.sentences) }
func (r *TextRun) Emitted() int { return r.pace.Emitted() }

func (r *TextRun) HandleTick(publish PublishFunc) (bool, error) {
	switch r.pace.Tick() {
	case pacer.Emit:
		idx := r.pace.Emitted() - 1
		env := protocol.Envelope{
			Input: protocol.InputText,
			Metadata: map[string]string{
				protocol.MetaQuestionID:    strconv.Itoa(idx + 1),
				protocol.MetaSessionStatus: protocol.StatusActive,
				protocol.MetaSegmentIndex:  strconv.Itoa(idx),
			},
			Payload: protocol.Payload{Text: r.sentences[idx]},
		}
		if err := publish(protocol.SubjectText, env); err != nil {
			return false, err
		}
	case pacer.Done:
		return true, nil
	}
	return false, nil
}

// AudioRun emits one audio segment per eligible tick.
type AudioRun struct {
	segments   []segment.Segment
	sampleRate int
	pace       *pacer.Pacer
}

// NewAudioRun loads and splits the configured audio file. A file that cannot
// be read or decoded aborts startup here, before any pacer exists.
func NewAudioRun(cfg config.SourceConfig) (*AudioRun, error) {
	samples, sampleRate, err := wavio.ReadFile(cfg.AudioFile)
	if err != nil {
		return nil, fmt.Errorf("load audio source %s: %w", cfg.AudioFile, err)
	}
	segments := segment.Split(samples, sampleRate, cfg.SegmentDuration, cfg.MaxSegments, cfg.MinSegmentDuration)
	if len(segments) == 0 {
		return nil, fmt.Errorf("audio source %s yields no viable segments", cfg.AudioFile)
	}
	return &AudioRun{
		segments:   segments,
		sampleRate: sampleRate,
		pace:       pacer.New(len(segments), cfg.InitialWaitTicks, cfg.WaitTicks),
	}, nil
}

func (r *AudioRun) Total() int      { return len(r.segments) }
func (r *AudioRun) Emitted() int    { return r.pace.Emitted() }
func (r *AudioRun) SampleRate() int { return r.sampleRate }

func (r *AudioRun) HandleTick(publish PublishFunc) (bool, error) {
	switch r.pace.Tick() {
	case pacer.Emit:
		idx := r.pace.Emitted() - 1
		seg := r.segments[idx]
		env := protocol.Envelope{
			Input: protocol.InputAudio,
			Metadata: map[string]string{
				protocol.MetaSampleRate: strconv.Itoa(seg.SampleRate),
				protocol.MetaQuestionID: strconv.Itoa(idx + 1),
				protocol.MetaSegment:    strconv.Itoa(idx),
				protocol.MetaDuration:   fmt.Sprintf("%.2f", seg.Duration()),
			},
			Payload: protocol.Payload{Samples: seg.Samples},
		}
		if err := publish(protocol.SubjectAudio, env); err != nil {
			return false, err
		}
	case pacer.Done:
		return true, nil
	}
	return false, nil
}
