// Package runtime wires the harness together: embedded bus, clock, the
// configured source and sink nodes, result persistence and the HTTP
// health/metrics surface.
package runtime

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/guofoo/mofa-studio/internal/bus"
	"github.com/guofoo/mofa-studio/internal/clock"
	"github.com/guofoo/mofa-studio/internal/config"
	"github.com/guofoo/mofa-studio/internal/natsserver"
	"github.com/guofoo/mofa-studio/internal/resultstore"
	"github.com/guofoo/mofa-studio/internal/sink"
	"github.com/guofoo/mofa-studio/internal/source"
)

type Runtime struct {
	cfg         config.Config
	logger      *slog.Logger
	httpServer  *http.Server
	bus         *bus.Client
	tracerClose func(context.Context) error
	ready       atomic.Bool
	wg          sync.WaitGroup
}

func New(cfg config.Config, logger *slog.Logger) *Runtime {
	return &Runtime{
		cfg:    cfg,
		logger: logger,
	}
}

// Start runs the harness until ctx is cancelled or every node finishes.
// Source and sink failures during startup are fatal; a finished source
// stops the run through the bus stop signal.
func (r *Runtime) Start(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	shutdownTelemetry, metricsHandler, err := setupTelemetry(r.cfg, r.logger)
	if err != nil {
		return fmt.Errorf("failed to setup telemetry: %w", err)
	}
	r.tracerClose = shutdownTelemetry

	embedded, err := natsserver.Start(r.cfg.Bus, r.logger)
	if err != nil {
		return fmt.Errorf("failed to start embedded bus: %w", err)
	}
	defer embedded.Shutdown()

	busClient, err := bus.Connect(ctx, r.cfg.Bus, r.logger)
	if err != nil {
		return fmt.Errorf("failed to connect to bus: %w", err)
	}
	defer busClient.Close()
	r.bus = busClient

	store, err := resultstore.Open(ctx, r.cfg.Results, r.logger)
	if err != nil {
		return fmt.Errorf("failed to open result store: %w", err)
	}
	defer store.Close()

	r.startHTTP(metricsHandler)

	clockService := clock.NewService(ctx, r.cfg.Clock, busClient, r.logger)
	if err := clockService.Start(); err != nil {
		return fmt.Errorf("failed to start clock: %w", err)
	}
	defer clockService.Close()

	nodeErrs := make(chan error, 2)
	nodes := 0

	if r.cfg.Sink.Mode != "none" {
		sinkService, err := sink.NewService(r.cfg.Sink, r.cfg.SessionID, busClient, store, r.logger)
		if err != nil {
			return fmt.Errorf("failed to start sink: %w", err)
		}
		nodes++
		r.wg.Add(1)
		go func() {
			defer r.wg.Done()
			nodeErrs <- sinkService.Run(ctx)
		}()
	}

	if r.cfg.Source.Mode != "none" {
		sourceService, err := source.NewService(r.cfg.Source, busClient, r.logger)
		if err != nil {
			return fmt.Errorf("failed to start source: %w", err)
		}
		nodes++
		r.wg.Add(1)
		go func() {
			defer r.wg.Done()
			nodeErrs <- sourceService.Run(ctx)
		}()
	}

	r.ready.Store(true)
	r.logger.Info("runtime started",
		slog.String("source", r.cfg.Source.Mode),
		slog.String("sink", r.cfg.Sink.Mode))

	var runErr error
	if nodes == 0 {
		<-ctx.Done()
	} else {
		for i := 0; i < nodes; i++ {
			if err := <-nodeErrs; err != nil && !errors.Is(err, context.Canceled) && runErr == nil {
				runErr = err
				cancel()
			}
		}
	}

	r.logger.Info("runtime stopping")
	r.shutdown()
	return runErr
}

func (r *Runtime) startHTTP(metricsHandler http.Handler) {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", r.handleHealth)
	mux.HandleFunc("/readyz", r.handleReady)
	if metricsHandler != nil {
		mux.Handle("/metrics", metricsHandler)
	}

	addr := fmt.Sprintf("%s:%d", r.cfg.HTTP.Bind, r.cfg.HTTP.Port)
	r.httpServer = &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		if err := r.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			r.logger.Error("http server failed", slog.String("error", err.Error()))
		}
	}()
	r.logger.Info("http listening", slog.String("addr", addr))
}

func (r *Runtime) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func (r *Runtime) handleReady(w http.ResponseWriter, _ *http.Request) {
	if r.ready.Load() && r.bus.Healthy() {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ready"))
		return
	}
	w.WriteHeader(http.StatusServiceUnavailable)
	_, _ = w.Write([]byte("not ready"))
}

func (r *Runtime) shutdown() {
	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancelShutdown()

	if r.httpServer != nil {
		if err := r.httpServer.Shutdown(shutdownCtx); err != nil {
			r.logger.Error("http shutdown error", slog.String("error", err.Error()))
		}
	}
	r.wg.Wait()

	if r.tracerClose != nil {
		if err := r.tracerClose(shutdownCtx); err != nil {
			r.logger.Error("telemetry shutdown error", slog.String("error", err.Error()))
		}
	}
}
