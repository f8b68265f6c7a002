package protocol

import (
	"encoding/binary"
	"errors"
	"fmt"
	"time"
)

// Envelope is one unit of work published on the bus: an input name, a
// payload, and a string metadata map, mirroring what the dataflow runtime
// delivers to a node.
type Envelope struct {
	Input    string            `json:"input"`
	Metadata map[string]string `json:"metadata,omitempty"`
	Payload  Payload           `json:"payload"`
	SentAt   time.Time         `json:"sent_at"`
}

// Payload carries either text or audio samples. Audio may arrive in any of
// three wrapper variants; Flatten collapses them to one float32 sequence.
type Payload struct {
	Text    string      `json:"text,omitempty"`
	Samples []float32   `json:"samples,omitempty"`
	Chunks  [][]float32 `json:"chunks,omitempty"`
	// PCM16 is little-endian signed 16-bit mono samples.
	PCM16 []byte `json:"pcm16,omitempty"`
}

// ErrUnknownPayload reports a payload that matches none of the known
// audio wrapper variants.
var ErrUnknownPayload = errors.New("payload carries no known audio variant")

// Flatten returns the audio samples as one flat float32 sequence regardless
// of the wrapper variant the producer used.
func (p Payload) Flatten() ([]float32, error) {
	switch {
	case p.Samples != nil:
		return p.Samples, nil
	case p.Chunks != nil:
		var total int
		for _, c := range p.Chunks {
			total += len(c)
		}
		flat := make([]float32, 0, total)
		for _, c := range p.Chunks {
			flat = append(flat, c...)
		}
		return flat, nil
	case p.PCM16 != nil:
		if len(p.PCM16)%2 != 0 {
			return nil, fmt.Errorf("pcm16 payload not aligned: %d bytes", len(p.PCM16))
		}
		flat := make([]float32, len(p.PCM16)/2)
		for i := range flat {
			s := int16(binary.LittleEndian.Uint16(p.PCM16[i*2:]))
			flat[i] = float32(s) / 32768.0
		}
		return flat, nil
	}
	return nil, ErrUnknownPayload
}

// Tick is the periodic timing event that paces emission.
type Tick struct {
	Sequence int       `json:"sequence"`
	SentAt   time.Time `json:"sent_at"`
}

// Stop is the terminal signal that ends a node's event loop.
type Stop struct {
	Reason string    `json:"reason,omitempty"`
	SentAt time.Time `json:"sent_at"`
}

// Bus subjects for the harness dataflow.
const (
	SubjectTick            = "mofa.tick"
	SubjectStop            = "mofa.stop"
	SubjectText            = "mofa.text"
	SubjectAudio           = "mofa.audio"
	SubjectTranscript      = "mofa.transcript"
	SubjectSegmentComplete = "mofa.segment.complete"
)

// Input names as they appear inside an Envelope.
const (
	InputText            = "text"
	InputAudio           = "audio"
	InputTranscript      = "transcript"
	InputSegmentComplete = "segment_complete"
)

// Recognized metadata keys.
const (
	MetaQuestionID    = "question_id"
	MetaSegment       = "segment"
	MetaSegmentIndex  = "segment_index"
	MetaSessionStatus = "session_status"
	MetaTotalSegments = "total_segments"
	MetaSampleRate    = "sample_rate"
	MetaIsFinal       = "is_final"
	MetaFragmentIndex = "fragment_index"
	MetaDuration      = "duration"
	MetaError         = "error"
)

// Session status values carried under MetaSessionStatus.
const (
	StatusActive = "active"
	StatusEnded  = "ended"
	StatusError  = "error"
)
