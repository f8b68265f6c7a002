package sink

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/guofoo/mofa-studio/internal/config"
	"github.com/guofoo/mofa-studio/internal/protocol"
	"github.com/guofoo/mofa-studio/internal/textcmp"
)

// TranscriptRecord is one received transcription unit in arrival order.
type TranscriptRecord struct {
	Seq        int
	QuestionID string
	Text       string
	Chars      int
	Similarity float64
	Scored     bool
	ReceivedAt time.Time
}

// TranscriptSummary is the end-of-run report of the transcript aggregator.
type TranscriptSummary struct {
	Records       []TranscriptRecord
	Elapsed       time.Duration
	Artifacts     int
	AvgSimilarity float64
	Scored        int
	CombinedPath  string
}

// WriteTable renders the transcript summary as a fixed-width table.
func (s TranscriptSummary) WriteTable(w io.Writer) {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "SEQ\tQUESTION\tCHARS\tSIMILARITY\tARRIVED")
	for _, r := range s.Records {
		sim := "-"
		if r.Scored {
			sim = fmt.Sprintf("%.3f", r.Similarity)
		}
		fmt.Fprintf(tw, "%d\tq%s\t%d\t%s\t+%.2fs\n",
			r.Seq, r.QuestionID, r.Chars, sim, r.ReceivedAt.Sub(s.Records[0].ReceivedAt).Seconds())
	}
	avg := "-"
	if s.Scored > 0 {
		avg = fmt.Sprintf("%.3f avg", s.AvgSimilarity)
	}
	fmt.Fprintf(tw, "TOTAL\t%d units\t\t%s\t%.2fs elapsed\n", s.Artifacts, avg, s.Elapsed.Seconds())
	tw.Flush()
}

// TranscriptAggregator consumes transcription units, persists each one,
// and scores it against the configured reference text by arrival order.
type TranscriptAggregator struct {
	cfg       config.SinkConfig
	logger    *slog.Logger
	records   []TranscriptRecord
	startedAt time.Time
	clock     func() time.Time
}

func NewTranscriptAggregator(cfg config.SinkConfig, log *slog.Logger) (*TranscriptAggregator, error) {
	if err := os.MkdirAll(cfg.OutputDir, 0o755); err != nil {
		return nil, fmt.Errorf("create output dir: %w", err)
	}
	return &TranscriptAggregator{cfg: cfg, logger: log, clock: time.Now}, nil
}

// HandleEnvelope processes one transcript or completion unit. Errors are
// per-unit; the caller logs and continues.
func (a *TranscriptAggregator) HandleEnvelope(env protocol.Envelope) error {
	if a.startedAt.IsZero() {
		a.startedAt = a.clock()
	}
	switch env.Input {
	case protocol.InputTranscript, protocol.InputText:
		return a.handleTranscript(env)
	case protocol.InputSegmentComplete:
		a.handleCompletion(env)
		return nil
	default:
		return fmt.Errorf("unrecognized input %q", env.Input)
	}
}

func (a *TranscriptAggregator) handleTranscript(env protocol.Envelope) error {
	text := env.Payload.Text
	if text == "" {
		return fmt.Errorf("transcript unit carries no text")
	}

	questionID := env.Metadata[protocol.MetaQuestionID]
	if questionID == "" {
		questionID = "unknown"
	}

	seq := len(a.records) + 1
	path := filepath.Join(a.cfg.OutputDir, fmt.Sprintf("transcript_%03d_q%s.txt", seq, questionID))
	if err := os.WriteFile(path, []byte(text+"\n"), 0o644); err != nil {
		return fmt.Errorf("write transcript artifact: %w", err)
	}

	rec := TranscriptRecord{
		Seq:        seq,
		QuestionID: questionID,
		Text:       text,
		Chars:      len([]rune(text)),
		ReceivedAt: a.clock(),
	}
	if idx := seq - 1; idx < len(a.cfg.Reference) {
		cmp := textcmp.Compare(a.cfg.Reference[idx], text)
		rec.Similarity = cmp.Similarity
		rec.Scored = true
	}
	a.records = append(a.records, rec)

	attrs := []any{
		slog.String("path", path),
		slog.Int("chars", rec.Chars),
	}
	if rec.Scored {
		attrs = append(attrs, slog.String("similarity", fmt.Sprintf("%.3f", rec.Similarity)))
	}
	a.logger.Info("saved transcript unit", attrs...)
	return nil
}

func (a *TranscriptAggregator) handleCompletion(env protocol.Envelope) {
	status := env.Metadata[protocol.MetaSessionStatus]
	if status == "" {
		status = env.Payload.Text
	}
	a.logger.Info("segment complete", slog.String("status", status))
	if status == protocol.StatusError {
		errMsg := env.Metadata[protocol.MetaError]
		if errMsg == "" {
			errMsg = "unknown error"
		}
		a.logger.Error("upstream reported failure", slog.String("error", errMsg))
	}
}

// Finalize writes the combined transcript once and returns the summary.
func (a *TranscriptAggregator) Finalize() (TranscriptSummary, error) {
	summary := TranscriptSummary{
		Records:   a.records,
		Artifacts: len(a.records),
	}
	var simSum float64
	for _, r := range a.records {
		if r.Scored {
			summary.Scored++
			simSum += r.Similarity
		}
	}
	if summary.Scored > 0 {
		summary.AvgSimilarity = simSum / float64(summary.Scored)
	}
	if !a.startedAt.IsZero() {
		summary.Elapsed = a.clock().Sub(a.startedAt)
	}

	if len(a.records) > 0 {
		var b strings.Builder
		for _, r := range a.records {
			fmt.Fprintf(&b, "[%d] q%s: %s\n", r.Seq, r.QuestionID, r.Text)
		}
		name := a.cfg.CombinedName
		if strings.HasSuffix(name, ".wav") || name == "" {
			name = "combined.txt"
		}
		path := filepath.Join(a.cfg.OutputDir, name)
		if err := os.WriteFile(path, []byte(b.String()), 0o644); err != nil {
			return summary, fmt.Errorf("write combined transcript: %w", err)
		}
		summary.CombinedPath = path
	}
	return summary, nil
}

// Received reports how many units were aggregated so far.
func (a *TranscriptAggregator) Received() int { return len(a.records) }
