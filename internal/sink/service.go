package sink

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/guofoo/mofa-studio/internal/bus"
	"github.com/guofoo/mofa-studio/internal/config"
	"github.com/guofoo/mofa-studio/internal/node"
	"github.com/guofoo/mofa-studio/internal/protocol"
	"github.com/guofoo/mofa-studio/internal/resultstore"
)

// Service drives an aggregator over the bus event stream until a stop event
// arrives, then finalizes, prints the summary table and records the run.
type Service struct {
	cfg        config.SinkConfig
	sessionID  string
	node       *node.Node
	audio      *AudioAggregator
	transcript *TranscriptAggregator
	store      *resultstore.Store
	logger     *slog.Logger
}

func NewService(cfg config.SinkConfig, sessionID string, busClient *bus.Client, store *resultstore.Store, log *slog.Logger) (*Service, error) {
	logger := log.With(slog.String("component", cfg.Mode+"-sink"))
	s := &Service{cfg: cfg, sessionID: sessionID, store: store, logger: logger}

	var subjects []string
	switch cfg.Mode {
	case "audio":
		agg, err := NewAudioAggregator(cfg, logger)
		if err != nil {
			return nil, err
		}
		s.audio = agg
		subjects = []string{protocol.SubjectAudio, protocol.SubjectSegmentComplete}
	case "transcript":
		agg, err := NewTranscriptAggregator(cfg, logger)
		if err != nil {
			return nil, err
		}
		s.transcript = agg
		subjects = []string{protocol.SubjectTranscript, protocol.SubjectText, protocol.SubjectSegmentComplete}
	default:
		return nil, fmt.Errorf("unknown sink mode %q", cfg.Mode)
	}

	n, err := node.New(busClient, logger, subjects...)
	if err != nil {
		return nil, err
	}
	s.node = n

	logger.Info("sink ready", slog.String("output_dir", cfg.OutputDir))
	return s, nil
}

// Run consumes the event stream to the terminal stop. A malformed unit is
// logged and skipped; partial failure never aborts the run.
func (s *Service) Run(ctx context.Context) error {
	defer s.node.Close()

	for {
		ev, err := s.node.Next(ctx)
		if err != nil {
			// Cancellation still flushes what was collected.
			s.finalize(context.Background())
			return err
		}
		switch ev.Kind {
		case node.KindInput:
			if handleErr := s.handle(ev.Input); handleErr != nil {
				countDecodeFailure(s.cfg.Mode)
				s.logger.Warn("skipping malformed unit", slog.String("error", handleErr.Error()))
			}
		case node.KindStop:
			s.logger.Info("stopping", slog.String("reason", ev.StopReason))
			s.finalize(ctx)
			return nil
		}
	}
}

func (s *Service) handle(env protocol.Envelope) error {
	if s.audio != nil {
		return s.audio.HandleEnvelope(env)
	}
	return s.transcript.HandleEnvelope(env)
}

func (s *Service) finalize(ctx context.Context) {
	runID := fmt.Sprintf("%s-%s-%d", s.sessionID, s.cfg.Mode, time.Now().Unix())

	if s.audio != nil {
		summary, err := s.audio.Finalize()
		if err != nil {
			s.logger.Error("finalize failed", slog.String("error", err.Error()))
		}
		summary.WriteTable(os.Stdout)
		s.recordAudio(ctx, runID, summary)
		return
	}

	summary, err := s.transcript.Finalize()
	if err != nil {
		s.logger.Error("finalize failed", slog.String("error", err.Error()))
	}
	summary.WriteTable(os.Stdout)
	s.recordTranscript(ctx, runID, summary)
}

func (s *Service) recordAudio(ctx context.Context, runID string, summary Summary) {
	if s.store == nil || len(summary.Records) == 0 {
		return
	}
	if err := s.store.BeginRun(ctx, runID, "audio-sink", s.sessionID); err != nil {
		s.logger.Warn("failed to record run", slog.String("error", err.Error()))
		return
	}
	for _, r := range summary.Records {
		unit := resultstore.Unit{
			RunID:       runID,
			Seq:         r.Seq,
			QuestionID:  r.QuestionID,
			Duration:    r.Duration,
			SampleCount: r.SampleCount,
			ReceivedAt:  r.ReceivedAt,
		}
		if err := s.store.AppendUnit(ctx, unit); err != nil {
			s.logger.Warn("failed to record unit", slog.String("error", err.Error()))
		}
	}
}

func (s *Service) recordTranscript(ctx context.Context, runID string, summary TranscriptSummary) {
	if s.store == nil || len(summary.Records) == 0 {
		return
	}
	if err := s.store.BeginRun(ctx, runID, "transcript-sink", s.sessionID); err != nil {
		s.logger.Warn("failed to record run", slog.String("error", err.Error()))
		return
	}
	for _, r := range summary.Records {
		unit := resultstore.Unit{
			RunID:      runID,
			Seq:        r.Seq,
			QuestionID: r.QuestionID,
			Similarity: r.Similarity,
			ReceivedAt: r.ReceivedAt,
		}
		if err := s.store.AppendUnit(ctx, unit); err != nil {
			s.logger.Warn("failed to record unit", slog.String("error", err.Error()))
		}
	}
}
