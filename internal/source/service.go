package source

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/guofoo/mofa-studio/internal/bus"
	"github.com/guofoo/mofa-studio/internal/config"
	"github.com/guofoo/mofa-studio/internal/node"
	"github.com/guofoo/mofa-studio/internal/protocol"
)

// Service drives a Run over the bus event stream. One blocking loop; all
// work happens synchronously in the loop body.
type Service struct {
	cfg    config.SourceConfig
	run    Run
	node   *node.Node
	logger *slog.Logger
}

func NewService(cfg config.SourceConfig, busClient *bus.Client, log *slog.Logger) (*Service, error) {
	logger := log.With(slog.String("component", cfg.Mode+"-source"))

	var run Run
	switch cfg.Mode {
	case "text":
		run = NewTextRun(cfg)
	case "audio":
		audioRun, err := NewAudioRun(cfg)
		if err != nil {
			return nil, err
		}
		logger.Info("audio source loaded",
			slog.Int("segments", audioRun.Total()),
			slog.Int("sample_rate", audioRun.SampleRate()))
		run = audioRun
	default:
		return nil, fmt.Errorf("unknown source mode %q", cfg.Mode)
	}

	n, err := node.New(busClient, logger)
	if err != nil {
		return nil, err
	}
	return &Service{cfg: cfg, run: run, node: n, logger: logger}, nil
}

// Run consumes the event stream until all units are emitted plus the
// trailing interval, or until a stop event or cancellation arrives. On
// normal completion it announces session end and broadcasts stop.
func (s *Service) Run(ctx context.Context) error {
	defer s.node.Close()

	s.logger.Info("source ready", slog.Int("units", s.run.Total()))

	for {
		ev, err := s.node.Next(ctx)
		if err != nil {
			return err
		}
		switch ev.Kind {
		case node.KindTick:
			done, err := s.run.HandleTick(s.publishUnit)
			if err != nil {
				s.logger.Warn("failed to publish unit", slog.String("error", err.Error()))
				continue
			}
			if done {
				s.logger.Info("all units sent", slog.Int("units", s.run.Emitted()))
				s.announceEnd()
				if err := s.node.PublishStop("source complete"); err != nil {
					s.logger.Warn("failed to broadcast stop", slog.String("error", err.Error()))
				}
				return nil
			}
		case node.KindStop:
			s.logger.Info("stopping", slog.String("reason", ev.StopReason))
			return nil
		}
	}
}

func (s *Service) publishUnit(subject string, env protocol.Envelope) error {
	s.logger.Info("sending unit",
		slog.String("question_id", env.Metadata[protocol.MetaQuestionID]),
		slog.Int("total", s.run.Total()))
	if err := s.node.Publish(subject, env); err != nil {
		return err
	}
	countEmitted(s.cfg.Mode)
	return nil
}

func (s *Service) announceEnd() {
	env := protocol.Envelope{
		Input: protocol.InputSegmentComplete,
		Metadata: map[string]string{
			protocol.MetaSessionStatus: protocol.StatusEnded,
			protocol.MetaTotalSegments: strconv.Itoa(s.run.Emitted()),
		},
		Payload: protocol.Payload{Text: protocol.StatusEnded},
	}
	if err := s.node.Publish(protocol.SubjectSegmentComplete, env); err != nil {
		s.logger.Warn("failed to announce session end", slog.String("error", err.Error()))
	}
}
