// Package sink implements the consuming harness nodes: an audio sink that
// persists synthesized audio units, and a transcript sink that persists and
// scores transcription units. Both accumulate per-unit result records and
// render an end-of-run summary table.
package sink

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"text/tabwriter"
	"time"

	"github.com/guofoo/mofa-studio/internal/config"
	"github.com/guofoo/mofa-studio/internal/protocol"
	"github.com/guofoo/mofa-studio/internal/wavio"
)

// Record is one received unit, appended in arrival order and never mutated.
type Record struct {
	Seq         int
	QuestionID  string
	Duration    float64
	SampleCount int
	ReceivedAt  time.Time
}

// Summary is the end-of-run report of an aggregator.
type Summary struct {
	Records       []Record
	TotalDuration float64
	Elapsed       time.Duration
	Artifacts     int
	CombinedPath  string
}

// WriteTable renders the summary as a fixed-width table keyed by arrival
// order.
func (s Summary) WriteTable(w io.Writer) {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "SEQ\tQUESTION\tDURATION\tSAMPLES\tARRIVED")
	for _, r := range s.Records {
		fmt.Fprintf(tw, "%d\tq%s\t%.2fs\t%d\t+%.2fs\n",
			r.Seq, r.QuestionID, r.Duration, r.SampleCount, r.ReceivedAt.Sub(s.Records[0].ReceivedAt).Seconds())
	}
	fmt.Fprintf(tw, "TOTAL\t%d units\t%.2fs\t\t%.2fs elapsed\n",
		s.Artifacts, s.TotalDuration, s.Elapsed.Seconds())
	tw.Flush()
}

// AudioAggregator consumes audio units and completion signals. Each audio
// unit is written as an individually addressable WAV artifact and appended,
// with a fixed silence gap, to a combined buffer written once at the end of
// the run.
type AudioAggregator struct {
	cfg        config.SinkConfig
	logger     *slog.Logger
	combined   []float32
	records    []Record
	pending    []float32
	sampleRate int
	startedAt  time.Time
	clock      func() time.Time
}

// NewAudioAggregator creates the output directory (idempotent, keeps any
// pre-existing contents) and an empty aggregation state.
func NewAudioAggregator(cfg config.SinkConfig, log *slog.Logger) (*AudioAggregator, error) {
	if err := os.MkdirAll(cfg.OutputDir, 0o755); err != nil {
		return nil, fmt.Errorf("create output dir: %w", err)
	}
	return &AudioAggregator{
		cfg:        cfg,
		logger:     log,
		sampleRate: cfg.DefaultSampleRate,
		clock:      time.Now,
	}, nil
}

// HandleEnvelope processes one unit. A malformed payload returns an error
// for the caller to log; the aggregator stays consistent and the run
// continues with the next event.
func (a *AudioAggregator) HandleEnvelope(env protocol.Envelope) error {
	if a.startedAt.IsZero() {
		a.startedAt = a.clock()
	}
	switch env.Input {
	case protocol.InputAudio:
		return a.handleAudio(env)
	case protocol.InputSegmentComplete:
		a.handleCompletion(env)
		return nil
	default:
		return fmt.Errorf("unrecognized input %q", env.Input)
	}
}

func (a *AudioAggregator) handleAudio(env protocol.Envelope) error {
	samples, err := env.Payload.Flatten()
	if err != nil {
		return fmt.Errorf("decode audio unit: %w", err)
	}

	sampleRate := a.sampleRate
	if v, ok := env.Metadata[protocol.MetaSampleRate]; ok {
		if parsed, err := strconv.Atoi(v); err == nil && parsed > 0 {
			sampleRate = parsed
		}
	}
	a.sampleRate = sampleRate

	// A streaming producer marks partial fragments; they accumulate until
	// the final fragment completes the unit.
	if env.Metadata[protocol.MetaIsFinal] == "false" {
		a.pending = append(a.pending, samples...)
		a.logger.Debug("buffered audio fragment",
			slog.String("fragment_index", env.Metadata[protocol.MetaFragmentIndex]),
			slog.Int("samples", len(samples)))
		return nil
	}
	if len(a.pending) > 0 {
		samples = append(a.pending, samples...)
		a.pending = nil
	}

	questionID := env.Metadata[protocol.MetaQuestionID]
	if questionID == "" {
		questionID = "unknown"
	}

	seq := len(a.records) + 1
	path := filepath.Join(a.cfg.OutputDir, fmt.Sprintf("audio_%03d_q%s.wav", seq, questionID))
	if err := wavio.WriteFile(path, samples, sampleRate); err != nil {
		return fmt.Errorf("write audio artifact: %w", err)
	}

	if len(a.combined) > 0 {
		gap := make([]float32, int(a.cfg.GapDuration*float64(sampleRate)))
		a.combined = append(a.combined, gap...)
	}
	a.combined = append(a.combined, samples...)

	duration := float64(len(samples)) / float64(sampleRate)
	a.records = append(a.records, Record{
		Seq:         seq,
		QuestionID:  questionID,
		Duration:    duration,
		SampleCount: len(samples),
		ReceivedAt:  a.clock(),
	})

	a.logger.Info("saved audio unit",
		slog.String("path", path),
		slog.String("duration", fmt.Sprintf("%.2fs", duration)),
		slog.Int("samples", len(samples)))
	return nil
}

// handleCompletion reads the session status. An "error" status surfaces the
// carried error string; any other status is logged only. Completion is a
// terminal notification, never a failure of the sink.
func (a *AudioAggregator) handleCompletion(env protocol.Envelope) {
	status := env.Metadata[protocol.MetaSessionStatus]
	if status == "" {
		status = env.Payload.Text
	}
	questionID := env.Metadata[protocol.MetaQuestionID]
	if questionID == "" {
		questionID = "unknown"
	}
	a.logger.Info("segment complete",
		slog.String("status", status),
		slog.String("question_id", questionID))

	if status == protocol.StatusError {
		errMsg := env.Metadata[protocol.MetaError]
		if errMsg == "" {
			errMsg = "unknown error"
		}
		a.logger.Error("upstream reported failure", slog.String("error", errMsg))
	}
}

// Finalize writes the combined artifact once and returns the summary. Safe
// to call with zero received units.
func (a *AudioAggregator) Finalize() (Summary, error) {
	summary := Summary{
		Records:   a.records,
		Artifacts: len(a.records),
	}
	for _, r := range a.records {
		summary.TotalDuration += r.Duration
	}
	if !a.startedAt.IsZero() {
		summary.Elapsed = a.clock().Sub(a.startedAt)
	}

	if len(a.combined) > 0 {
		path := filepath.Join(a.cfg.OutputDir, a.cfg.CombinedName)
		if err := wavio.WriteFile(path, a.combined, a.sampleRate); err != nil {
			return summary, fmt.Errorf("write combined artifact: %w", err)
		}
		summary.CombinedPath = path
		a.logger.Info("wrote combined artifact",
			slog.String("path", path),
			slog.Int("samples", len(a.combined)))
	}
	return summary, nil
}

// Received reports how many units were aggregated so far.
func (a *AudioAggregator) Received() int { return len(a.records) }
