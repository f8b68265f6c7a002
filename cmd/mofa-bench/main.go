package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/guofoo/mofa-studio/internal/bench"
	"github.com/guofoo/mofa-studio/internal/config"
	"github.com/guofoo/mofa-studio/internal/resultstore"
)

var version = "0.1.0-dev"

func main() {
	var (
		configPath  string
		text        string
		iterations  int
		showVersion bool
	)

	flag.StringVar(&configPath, "config", "mofa.yaml", "Path to configuration file")
	flag.StringVar(&text, "text", "", "Override benchmark text")
	flag.IntVar(&iterations, "iterations", 0, "Override iteration count")
	flag.BoolVar(&showVersion, "version", false, "Print version and exit")
	flag.Parse()

	if showVersion {
		fmt.Println(version)
		return
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo}))

	cfg, err := config.Load(configPath)
	if err != nil {
		logger.Error("failed to load config", slog.String("error", err.Error()))
		os.Exit(1)
	}
	if text != "" {
		cfg.Bench.Text = text
	}
	if iterations > 0 {
		cfg.Bench.Iterations = iterations
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store, err := resultstore.Open(ctx, cfg.Results, logger)
	if err != nil {
		logger.Error("failed to open result store", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer store.Close()

	runner, err := bench.New(cfg.Bench, store, logger)
	if err != nil {
		logger.Error("failed to build benchmark", slog.String("error", err.Error()))
		os.Exit(1)
	}

	report, err := runner.Run(ctx)
	if err != nil {
		logger.Error("benchmark failed", slog.String("error", err.Error()))
		os.Exit(1)
	}
	report.WriteTable(os.Stdout)
}
