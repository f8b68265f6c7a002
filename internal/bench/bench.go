// Package bench measures text-to-speech latency and throughput and can
// round-trip the synthesized audio through a recognizer to score it.
package bench

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/guofoo/mofa-studio/internal/asr"
	"github.com/guofoo/mofa-studio/internal/config"
	"github.com/guofoo/mofa-studio/internal/protocol"
	"github.com/guofoo/mofa-studio/internal/resultstore"
	"github.com/guofoo/mofa-studio/internal/textcmp"
	"github.com/guofoo/mofa-studio/internal/tts"
	"github.com/guofoo/mofa-studio/internal/wavio"
)

// Iteration is one timed synthesis pass.
type Iteration struct {
	Seq           int
	SynthTime     time.Duration
	AudioDuration float64
	Fragments     int
	Bytes         int
}

// Report aggregates a benchmark run.
type Report struct {
	Iterations   []Iteration
	Min          time.Duration
	Max          time.Duration
	Avg          time.Duration
	Stdev        time.Duration
	RTF          float64
	CharsPerSec  float64
	ArtifactPath string
	RoundTrip    *textcmp.Comparison
}

// Runner executes the configured benchmark.
type Runner struct {
	cfg        config.BenchConfig
	synth      tts.Synthesizer
	recognizer asr.Recognizer
	store      *resultstore.Store
	logger     *slog.Logger
}

// New builds a runner from config. The synthesizer is chosen by mode;
// the recognizer is wired only when an ASR command is configured.
func New(cfg config.BenchConfig, store *resultstore.Store, log *slog.Logger) (*Runner, error) {
	logger := log.With(slog.String("component", "bench"))

	var synth tts.Synthesizer
	switch cfg.Mode {
	case "mock":
		synth = tts.NewMockSynth(cfg.SampleRate, cfg.Channels)
	case "exec":
		s, err := tts.NewExecSynth(cfg.Command, cfg.SampleRate, cfg.Channels)
		if err != nil {
			return nil, err
		}
		synth = s
	default:
		return nil, fmt.Errorf("unknown bench mode %q", cfg.Mode)
	}

	var recognizer asr.Recognizer
	if cfg.ASRCommand != "" {
		r, err := asr.NewExecRecognizer(cfg.ASRCommand)
		if err != nil {
			return nil, err
		}
		recognizer = r
	}

	return &Runner{cfg: cfg, synth: synth, recognizer: recognizer, store: store, logger: logger}, nil
}

// NewWithSynth builds a runner around an injected synthesizer and
// recognizer. Used by tests.
func NewWithSynth(cfg config.BenchConfig, synth tts.Synthesizer, recognizer asr.Recognizer, log *slog.Logger) *Runner {
	return &Runner{cfg: cfg, synth: synth, recognizer: recognizer, logger: log.With(slog.String("component", "bench"))}
}

// Run performs warmup passes, timed iterations, writes the artifact from
// the final pass, and optionally scores a recognizer round-trip.
func (r *Runner) Run(ctx context.Context) (Report, error) {
	for i := 0; i < r.cfg.Warmup; i++ {
		if _, _, err := r.synthesizeOnce(ctx); err != nil {
			return Report{}, fmt.Errorf("warmup %d: %w", i+1, err)
		}
	}

	report := Report{}
	var lastPCM []byte
	for i := 0; i < r.cfg.Iterations; i++ {
		start := time.Now()
		pcm, fragments, err := r.synthesizeOnce(ctx)
		if err != nil {
			return Report{}, fmt.Errorf("iteration %d: %w", i+1, err)
		}
		elapsed := time.Since(start)

		it := Iteration{
			Seq:           i + 1,
			SynthTime:     elapsed,
			AudioDuration: float64(len(pcm)/2) / float64(r.cfg.SampleRate*r.cfg.Channels),
			Fragments:     fragments,
			Bytes:         len(pcm),
		}
		report.Iterations = append(report.Iterations, it)
		lastPCM = pcm
		r.logger.Info("iteration complete",
			slog.Int("seq", it.Seq),
			slog.Duration("synth_time", it.SynthTime),
			slog.Float64("audio_seconds", it.AudioDuration))
	}

	r.summarize(&report)

	if r.cfg.OutputPath != "" && len(lastPCM) > 0 {
		samples, err := protocol.Payload{PCM16: lastPCM}.Flatten()
		if err != nil {
			return report, err
		}
		if err := wavio.WriteFile(r.cfg.OutputPath, samples, r.cfg.SampleRate); err != nil {
			return report, fmt.Errorf("write artifact: %w", err)
		}
		report.ArtifactPath = r.cfg.OutputPath
	}

	if r.recognizer != nil && len(lastPCM) > 0 {
		result, err := r.recognizer.Transcribe(ctx, lastPCM, r.cfg.SampleRate, r.cfg.Channels)
		if err != nil {
			// Round-trip failure is diagnostic output, not a run failure.
			r.logger.Warn("round-trip transcription failed", slog.String("error", err.Error()))
		} else {
			cmp := textcmp.Compare(r.cfg.Text, result.Text)
			report.RoundTrip = &cmp
		}
	}

	r.record(ctx, report)
	return report, nil
}

func (r *Runner) synthesizeOnce(ctx context.Context) ([]byte, int, error) {
	chunks, errs := r.synth.Synthesize(ctx, tts.SynthRequest{
		SessionID: "bench",
		Text:      r.cfg.Text,
		Voice:     r.cfg.Voice,
		Speed:     r.cfg.Speed,
	})

	var pcm []byte
	fragments := 0
	for chunk := range chunks {
		pcm = append(pcm, chunk.PCM...)
		fragments++
	}
	if err := <-errs; err != nil {
		return nil, 0, err
	}
	if len(pcm) == 0 {
		return nil, 0, fmt.Errorf("synthesizer produced no audio")
	}
	return pcm, fragments, nil
}

func (r *Runner) summarize(report *Report) {
	if len(report.Iterations) == 0 {
		return
	}
	report.Min = report.Iterations[0].SynthTime
	report.Max = report.Iterations[0].SynthTime
	var sum time.Duration
	var audioSum float64
	for _, it := range report.Iterations {
		if it.SynthTime < report.Min {
			report.Min = it.SynthTime
		}
		if it.SynthTime > report.Max {
			report.Max = it.SynthTime
		}
		sum += it.SynthTime
		audioSum += it.AudioDuration
	}
	report.Avg = sum / time.Duration(len(report.Iterations))

	var variance float64
	for _, it := range report.Iterations {
		d := float64(it.SynthTime - report.Avg)
		variance += d * d
	}
	report.Stdev = time.Duration(math.Sqrt(variance / float64(len(report.Iterations))))

	if audioSum > 0 {
		report.RTF = sum.Seconds() / audioSum
	}
	if sum > 0 {
		chars := float64(len([]rune(r.cfg.Text)) * len(report.Iterations))
		report.CharsPerSec = chars / sum.Seconds()
	}
}

func (r *Runner) record(ctx context.Context, report Report) {
	if r.store == nil || len(report.Iterations) == 0 {
		return
	}
	runID := fmt.Sprintf("bench-%s-%d", r.cfg.Mode, time.Now().Unix())
	if err := r.store.BeginRun(ctx, runID, "bench", "bench"); err != nil {
		r.logger.Warn("failed to record run", slog.String("error", err.Error()))
		return
	}
	for _, it := range report.Iterations {
		unit := resultstore.Unit{
			RunID:       runID,
			Seq:         it.Seq,
			Duration:    it.AudioDuration,
			SampleCount: it.Bytes / 2,
		}
		if report.RoundTrip != nil {
			unit.Similarity = report.RoundTrip.Similarity
		}
		if err := r.store.AppendUnit(ctx, unit); err != nil {
			r.logger.Warn("failed to record iteration", slog.String("error", err.Error()))
		}
	}
}
