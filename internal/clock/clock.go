// Package clock publishes the periodic tick events that pace every source
// node. Harness nodes never run their own timers; they consume this stream.
package clock

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/guofoo/mofa-studio/internal/bus"
	"github.com/guofoo/mofa-studio/internal/config"
	"github.com/guofoo/mofa-studio/internal/protocol"
)

type Service struct {
	cfg    config.ClockConfig
	bus    *bus.Client
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
	logger *slog.Logger
}

func NewService(parent context.Context, cfg config.ClockConfig, busClient *bus.Client, log *slog.Logger) *Service {
	ctx, cancel := context.WithCancel(parent)
	return &Service{
		cfg:    cfg,
		bus:    busClient,
		ctx:    ctx,
		cancel: cancel,
		logger: log.With(slog.String("component", "clock")),
	}
}

func (s *Service) Start() error {
	if !s.cfg.Enabled {
		return nil
	}
	interval := time.Duration(s.cfg.IntervalMS) * time.Millisecond
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		sequence := 0
		for {
			select {
			case <-s.ctx.Done():
				return
			case <-ticker.C:
				sequence++
				s.publish(sequence)
			}
		}
	}()
	s.logger.Info("clock started", slog.Int("interval_ms", s.cfg.IntervalMS))
	return nil
}

func (s *Service) Close() {
	s.cancel()
	s.wg.Wait()
}

func (s *Service) publish(sequence int) {
	data, err := json.Marshal(protocol.Tick{Sequence: sequence, SentAt: time.Now().UTC()})
	if err != nil {
		s.logger.Warn("failed to marshal tick", slog.String("error", err.Error()))
		return
	}
	if err := s.bus.Conn().Publish(protocol.SubjectTick, data); err != nil {
		s.logger.Warn("failed to publish tick", slog.String("error", err.Error()))
	}
}
