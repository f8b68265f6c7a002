// Package segment splits a loaded audio buffer into fixed-duration chunks
// for paced emission.
package segment

// Segment is an ordered chunk of audio samples, immutable after creation.
type Segment struct {
	SampleRate int
	Start      int
	Samples    []float32
}

// Duration returns the segment length in seconds.
func (s Segment) Duration() float64 {
	if s.SampleRate <= 0 {
		return 0
	}
	return float64(len(s.Samples)) / float64(s.SampleRate)
}

// DefaultMinDuration is the minimum viable segment length in seconds.
// Trailing chunks shorter than this are dropped, not padded.
const DefaultMinDuration = 0.5

// Split produces up to maxSegments chunks of duration seconds each. All
// chunks before the last are exactly duration*sampleRate samples; the final
// one may be shorter. Chunks shorter than minDuration seconds are dropped.
// A source shorter than maxSegments worth of audio simply yields fewer
// segments. If duration is zero or negative the whole buffer becomes one
// segment.
func Split(samples []float32, sampleRate int, duration float64, maxSegments int, minDuration float64) []Segment {
	if len(samples) == 0 || sampleRate <= 0 || maxSegments <= 0 {
		return nil
	}
	if duration <= 0 {
		return []Segment{{SampleRate: sampleRate, Start: 0, Samples: samples}}
	}

	perSegment := int(duration * float64(sampleRate))
	if perSegment <= 0 {
		return nil
	}
	minSamples := minDuration * float64(sampleRate)

	var segments []Segment
	for i := 0; i < maxSegments; i++ {
		start := i * perSegment
		if start >= len(samples) {
			break
		}
		end := start + perSegment
		if end > len(samples) {
			end = len(samples)
		}
		chunk := samples[start:end]
		if float64(len(chunk)) > minSamples {
			segments = append(segments, Segment{SampleRate: sampleRate, Start: start, Samples: chunk})
		}
	}
	return segments
}
