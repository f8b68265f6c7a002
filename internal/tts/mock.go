package tts

import (
	"context"
	"encoding/binary"
	"math"
	"time"
)

// Mock synthesis pacing: 60ms of audio per input character, streamed in
// 0.5s fragments. Enough signal for timing and round-trip checks without
// an engine installed.
const (
	mockSecondsPerChar = 0.06
	mockFragmentSecs   = 0.5
	mockToneHz         = 440.0
)

type mockSynth struct {
	sampleRate int
	channels   int
}

func NewMockSynth(sampleRate, channels int) Synthesizer {
	return &mockSynth{sampleRate: sampleRate, channels: channels}
}

func (m *mockSynth) Synthesize(ctx context.Context, req SynthRequest) (<-chan SynthChunk, <-chan error) {
	chunks := make(chan SynthChunk, 4)
	errs := make(chan error, 1)
	go func() {
		defer close(chunks)
		defer close(errs)

		speed := req.Speed
		if speed <= 0 {
			speed = 1.0
		}
		seconds := float64(len([]rune(req.Text))) * mockSecondsPerChar / speed
		total := int(seconds * float64(m.sampleRate))
		if total < m.sampleRate/10 {
			total = m.sampleRate / 10
		}

		fragment := int(mockFragmentSecs * float64(m.sampleRate))
		sequence := 0
		for offset := 0; offset < total; offset += fragment {
			select {
			case <-ctx.Done():
				errs <- ctx.Err()
				return
			case <-time.After(5 * time.Millisecond):
			}

			n := fragment
			if offset+n > total {
				n = total - offset
			}
			chunks <- SynthChunk{
				SessionID:  req.SessionID,
				Sequence:   sequence,
				SampleRate: m.sampleRate,
				Channels:   m.channels,
				PCM:        m.tone(offset, n),
				Final:      offset+n >= total,
			}
			sequence++
		}
	}()
	return chunks, errs
}

// tone renders n mono samples of a fixed sine starting at sample offset,
// as 16-bit little-endian PCM.
func (m *mockSynth) tone(offset, n int) []byte {
	pcm := make([]byte, n*2)
	step := 2 * math.Pi * mockToneHz / float64(m.sampleRate)
	for i := 0; i < n; i++ {
		v := int16(math.Sin(float64(offset+i)*step) * 0.3 * 32767)
		binary.LittleEndian.PutUint16(pcm[i*2:], uint16(v))
	}
	return pcm
}
