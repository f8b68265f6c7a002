package config

import (
	"errors"
	"fmt"
	"io/ioutil"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

type TelemetryConfig struct {
	LogLevel       string `yaml:"log_level"`
	OTLPEndpoint   string `yaml:"otlp_endpoint"`
	OTLPInsecure   bool   `yaml:"otlp_insecure"`
	PrometheusBind string `yaml:"prometheus_bind"`
}

type HTTPConfig struct {
	Bind string `yaml:"bind"`
	Port int    `yaml:"port"`
}

type Config struct {
	RuntimeName string            `yaml:"runtime_name"`
	Environment string            `yaml:"environment"`
	SessionID   string            `yaml:"session_id"`
	HTTP        HTTPConfig        `yaml:"http"`
	Telemetry   TelemetryConfig   `yaml:"telemetry"`
	Bus         BusConfig         `yaml:"bus"`
	Clock       ClockConfig       `yaml:"clock"`
	Source      SourceConfig      `yaml:"source"`
	Sink        SinkConfig        `yaml:"sink"`
	Results     ResultStoreConfig `yaml:"results"`
	Bench       BenchConfig       `yaml:"bench"`
}

type BusConfig struct {
	Embedded       bool     `yaml:"embedded"`
	Port           int      `yaml:"port"`
	StoreDir       string   `yaml:"store_dir"`
	Servers        []string `yaml:"servers"`
	Username       string   `yaml:"username"`
	Password       string   `yaml:"password"`
	Token          string   `yaml:"token"`
	TLSInsecure    bool     `yaml:"tls_insecure"`
	ConnectTimeout int      `yaml:"connect_timeout_ms"`
}

// ClockConfig drives the tick publisher that paces every source node.
type ClockConfig struct {
	Enabled    bool `yaml:"enabled"`
	IntervalMS int  `yaml:"interval_ms"`
}

// SourceConfig selects and parameterizes the producing harness node.
type SourceConfig struct {
	Mode      string   `yaml:"mode"` // none, text, audio
	Sentences []string `yaml:"sentences"`

	AudioFile          string  `yaml:"audio_file"`
	SegmentDuration    float64 `yaml:"segment_duration_s"`
	MaxSegments        int     `yaml:"max_segments"`
	MinSegmentDuration float64 `yaml:"min_segment_duration_s"`

	WaitTicks        int `yaml:"wait_ticks"`
	InitialWaitTicks int `yaml:"initial_wait_ticks"`
}

// SinkConfig selects and parameterizes the consuming harness node.
type SinkConfig struct {
	Mode              string   `yaml:"mode"` // none, audio, transcript
	OutputDir         string   `yaml:"output_dir"`
	CombinedName      string   `yaml:"combined_name"`
	GapDuration       float64  `yaml:"gap_duration_s"`
	DefaultSampleRate int      `yaml:"default_sample_rate"`
	Reference         []string `yaml:"reference"`
}

type ResultStoreConfig struct {
	Path          string `yaml:"path"`
	RetentionMode string `yaml:"retention_mode"`
	RetentionDays int    `yaml:"retention_days"`
	MaxRuns       int    `yaml:"max_runs"`
	VacuumOnStart bool   `yaml:"vacuum_on_start"`
}

type BenchConfig struct {
	Mode       string  `yaml:"mode"` // mock, exec
	Command    string  `yaml:"command"`
	Voice      string  `yaml:"voice"`
	Text       string  `yaml:"text"`
	Iterations int     `yaml:"iterations"`
	Warmup     int     `yaml:"warmup"`
	SampleRate int     `yaml:"sample_rate"`
	Channels   int     `yaml:"channels"`
	OutputPath string  `yaml:"output_path"`
	ASRCommand string  `yaml:"asr_command"`
	Speed      float64 `yaml:"speed"`
}

// DefaultSentences are the built-in TTS test sentences (mixed Chinese and
// English), used when source.sentences is not set.
var DefaultSentences = []string{
	"你好，世界！这是一个测试。",
	"今天天气真好，我们去公园走走吧。",
	"Hello world, this is a test sentence.",
	"人工智能正在改变我们的生活方式。",
	"这是最后一句测试语音。",
}

func Default() Config {
	return Config{
		RuntimeName: "mofa-probe",
		Environment: "development",
		SessionID:   "probe-session-1",
		HTTP: HTTPConfig{
			Bind: "0.0.0.0",
			Port: 8080,
		},
		Telemetry: TelemetryConfig{
			LogLevel:       "info",
			OTLPEndpoint:   "",
			OTLPInsecure:   true,
			PrometheusBind: ":9091",
		},
		Bus: BusConfig{
			Embedded:       true,
			Port:           4222,
			StoreDir:       "./data/nats",
			Servers:        []string{"nats://localhost:4222"},
			ConnectTimeout: 2000,
		},
		Clock: ClockConfig{
			Enabled:    true,
			IntervalMS: 500,
		},
		Source: SourceConfig{
			Mode:               "none",
			SegmentDuration:    4.0,
			MaxSegments:        10,
			MinSegmentDuration: 0.5,
			WaitTicks:          20,
			InitialWaitTicks:   10,
		},
		Sink: SinkConfig{
			Mode:              "none",
			OutputDir:         "/tmp/mofa-studio-test",
			CombinedName:      "combined.wav",
			GapDuration:       0.3,
			DefaultSampleRate: 32000,
		},
		Results: ResultStoreConfig{
			Path:          "./data/mofa-results.db",
			RetentionMode: "session",
			RetentionDays: 30,
			MaxRuns:       10000,
		},
		Bench: BenchConfig{
			Mode:       "mock",
			Voice:      "luoxiang",
			Text:       "你好，欢迎使用语音合成基准测试。",
			Iterations: 5,
			Warmup:     2,
			SampleRate: 32000,
			Channels:   1,
			OutputPath: "/tmp/mofa-bench.wav",
			Speed:      1.0,
		},
	}
}

func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := ioutil.ReadFile(path)
		if err != nil {
			if os.IsNotExist(err) {
				return cfg, fmt.Errorf("config file not found: %w", err)
			}
			return cfg, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("failed to parse config file: %w", err)
		}
	}

	applyEnvOverrides(&cfg)
	if len(cfg.Source.Sentences) == 0 {
		cfg.Source.Sentences = append([]string(nil), DefaultSentences...)
	}
	if err := validate(cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func applyEnvOverrides(cfg *Config) {
	overrideString(&cfg.RuntimeName, "MOFA_RUNTIME_NAME")
	overrideString(&cfg.Environment, "MOFA_RUNTIME_ENVIRONMENT")
	overrideString(&cfg.SessionID, "MOFA_SESSION_ID")
	overrideString(&cfg.HTTP.Bind, "MOFA_HTTP_BIND")
	overrideInt(&cfg.HTTP.Port, "MOFA_HTTP_PORT")
	overrideString(&cfg.Telemetry.LogLevel, "MOFA_TELEMETRY_LOG_LEVEL")
	overrideString(&cfg.Telemetry.OTLPEndpoint, "MOFA_TELEMETRY_OTLP_ENDPOINT")
	overrideBool(&cfg.Telemetry.OTLPInsecure, "MOFA_TELEMETRY_OTLP_INSECURE")
	overrideString(&cfg.Telemetry.PrometheusBind, "MOFA_TELEMETRY_PROMETHEUS_BIND")
	overrideBool(&cfg.Bus.Embedded, "MOFA_BUS_EMBEDDED")
	overrideInt(&cfg.Bus.Port, "MOFA_BUS_PORT")
	overrideString(&cfg.Bus.StoreDir, "MOFA_BUS_STORE_DIR")
	overrideStringSlice(&cfg.Bus.Servers, "MOFA_BUS_SERVERS")
	overrideString(&cfg.Bus.Username, "MOFA_BUS_USERNAME")
	overrideString(&cfg.Bus.Password, "MOFA_BUS_PASSWORD")
	overrideString(&cfg.Bus.Token, "MOFA_BUS_TOKEN")
	overrideBool(&cfg.Bus.TLSInsecure, "MOFA_BUS_TLS_INSECURE")
	overrideInt(&cfg.Bus.ConnectTimeout, "MOFA_BUS_CONNECT_TIMEOUT_MS")
	overrideBool(&cfg.Clock.Enabled, "MOFA_CLOCK_ENABLED")
	overrideInt(&cfg.Clock.IntervalMS, "MOFA_CLOCK_INTERVAL_MS")
	overrideString(&cfg.Source.Mode, "MOFA_SOURCE_MODE")
	overrideString(&cfg.Source.AudioFile, "MOFA_SOURCE_AUDIO_FILE")
	overrideFloat(&cfg.Source.SegmentDuration, "MOFA_SOURCE_SEGMENT_DURATION_S")
	overrideInt(&cfg.Source.MaxSegments, "MOFA_SOURCE_MAX_SEGMENTS")
	overrideFloat(&cfg.Source.MinSegmentDuration, "MOFA_SOURCE_MIN_SEGMENT_DURATION_S")
	overrideInt(&cfg.Source.WaitTicks, "MOFA_SOURCE_WAIT_TICKS")
	overrideInt(&cfg.Source.InitialWaitTicks, "MOFA_SOURCE_INITIAL_WAIT_TICKS")
	overrideString(&cfg.Sink.Mode, "MOFA_SINK_MODE")
	overrideString(&cfg.Sink.OutputDir, "MOFA_SINK_OUTPUT_DIR")
	overrideString(&cfg.Sink.CombinedName, "MOFA_SINK_COMBINED_NAME")
	overrideFloat(&cfg.Sink.GapDuration, "MOFA_SINK_GAP_DURATION_S")
	overrideInt(&cfg.Sink.DefaultSampleRate, "MOFA_SINK_DEFAULT_SAMPLE_RATE")
	overrideString(&cfg.Results.Path, "MOFA_RESULTS_PATH")
	overrideString(&cfg.Results.RetentionMode, "MOFA_RESULTS_RETENTION_MODE")
	overrideInt(&cfg.Results.RetentionDays, "MOFA_RESULTS_RETENTION_DAYS")
	overrideInt(&cfg.Results.MaxRuns, "MOFA_RESULTS_MAX_RUNS")
	overrideBool(&cfg.Results.VacuumOnStart, "MOFA_RESULTS_VACUUM_ON_START")
	overrideString(&cfg.Bench.Mode, "MOFA_BENCH_MODE")
	overrideString(&cfg.Bench.Command, "MOFA_BENCH_COMMAND")
	overrideString(&cfg.Bench.Voice, "MOFA_BENCH_VOICE")
	overrideString(&cfg.Bench.Text, "MOFA_BENCH_TEXT")
	overrideInt(&cfg.Bench.Iterations, "MOFA_BENCH_ITERATIONS")
	overrideInt(&cfg.Bench.Warmup, "MOFA_BENCH_WARMUP")
	overrideInt(&cfg.Bench.SampleRate, "MOFA_BENCH_SAMPLE_RATE")
	overrideString(&cfg.Bench.OutputPath, "MOFA_BENCH_OUTPUT_PATH")
	overrideString(&cfg.Bench.ASRCommand, "MOFA_BENCH_ASR_COMMAND")

	// Legacy knobs from the original dataflow scripts, recognized verbatim.
	overrideString(&cfg.Source.AudioFile, "TEST_AUDIO_FILE")
	overrideFloat(&cfg.Source.SegmentDuration, "SEGMENT_DURATION")
	overrideInt(&cfg.Source.MaxSegments, "NUM_SEGMENTS")
	overrideInt(&cfg.Source.WaitTicks, "WAIT_TICKS")
}

func overrideString(target *string, envKey string) {
	if value, ok := os.LookupEnv(envKey); ok && strings.TrimSpace(value) != "" {
		*target = value
	}
}

func overrideInt(target *int, envKey string) {
	if value, ok := os.LookupEnv(envKey); ok {
		if parsed, err := strconv.Atoi(value); err == nil {
			*target = parsed
		}
	}
}

func overrideBool(target *bool, envKey string) {
	if value, ok := os.LookupEnv(envKey); ok {
		if parsed, err := strconv.ParseBool(value); err == nil {
			*target = parsed
		}
	}
}

func overrideStringSlice(target *[]string, envKey string) {
	if value, ok := os.LookupEnv(envKey); ok {
		parts := strings.Split(value, ",")
		var trimmed []string
		for _, p := range parts {
			if s := strings.TrimSpace(p); s != "" {
				trimmed = append(trimmed, s)
			}
		}
		if len(trimmed) > 0 {
			*target = trimmed
		}
	}
}

func overrideFloat(target *float64, envKey string) {
	if value, ok := os.LookupEnv(envKey); ok {
		if parsed, err := strconv.ParseFloat(value, 64); err == nil {
			*target = parsed
		}
	}
}

func validate(cfg Config) error {
	if cfg.RuntimeName == "" {
		return errors.New("runtime_name must not be empty")
	}
	if cfg.SessionID == "" {
		return errors.New("session_id must not be empty")
	}
	if cfg.HTTP.Port <= 0 || cfg.HTTP.Port > 65535 {
		return errors.New("http.port must be between 1 and 65535")
	}
	if cfg.Bus.Embedded {
		if cfg.Bus.Port <= 0 || cfg.Bus.Port > 65535 {
			return errors.New("bus.port must be between 1 and 65535 when embedded mode is enabled")
		}
	} else {
		if len(cfg.Bus.Servers) == 0 {
			return errors.New("bus.servers must not be empty when embedded mode is disabled")
		}
	}
	if cfg.Clock.Enabled && cfg.Clock.IntervalMS <= 0 {
		return errors.New("clock.interval_ms must be positive when the clock is enabled")
	}
	switch cfg.Source.Mode {
	case "none", "text", "audio":
	default:
		return errors.New("source.mode must be one of none|text|audio")
	}
	if cfg.Source.Mode == "audio" {
		if cfg.Source.AudioFile == "" {
			return errors.New("source.audio_file must be set when source.mode=audio")
		}
		if cfg.Source.MaxSegments <= 0 {
			return errors.New("source.max_segments must be positive")
		}
		if cfg.Source.MinSegmentDuration < 0 {
			return errors.New("source.min_segment_duration_s must be >= 0")
		}
	}
	if cfg.Source.Mode != "none" {
		if cfg.Source.WaitTicks <= 0 {
			return errors.New("source.wait_ticks must be positive")
		}
		if cfg.Source.InitialWaitTicks < 0 {
			return errors.New("source.initial_wait_ticks must be >= 0")
		}
	}
	switch cfg.Sink.Mode {
	case "none", "audio", "transcript":
	default:
		return errors.New("sink.mode must be one of none|audio|transcript")
	}
	if cfg.Sink.Mode != "none" {
		if cfg.Sink.OutputDir == "" {
			return errors.New("sink.output_dir must not be empty")
		}
		if cfg.Sink.GapDuration < 0 {
			return errors.New("sink.gap_duration_s must be >= 0")
		}
		if cfg.Sink.DefaultSampleRate <= 0 {
			return errors.New("sink.default_sample_rate must be positive")
		}
	}
	if cfg.Results.Path == "" {
		return errors.New("results.path must not be empty")
	}
	switch cfg.Results.RetentionMode {
	case "ephemeral", "session", "persistent":
		// ok
	default:
		return errors.New("results.retention_mode must be one of ephemeral|session|persistent")
	}
	if cfg.Results.RetentionDays < 0 {
		return errors.New("results.retention_days must be >= 0")
	}
	switch cfg.Bench.Mode {
	case "mock", "exec":
	default:
		return errors.New("bench.mode must be one of mock|exec")
	}
	if cfg.Bench.Mode == "exec" && cfg.Bench.Command == "" {
		return errors.New("bench.command must be set when bench.mode=exec")
	}
	if cfg.Bench.Iterations <= 0 {
		return errors.New("bench.iterations must be positive")
	}
	if cfg.Bench.Warmup < 0 {
		return errors.New("bench.warmup must be >= 0")
	}
	if cfg.Bench.SampleRate <= 0 {
		return errors.New("bench.sample_rate must be positive")
	}
	if cfg.Bench.Channels <= 0 {
		return errors.New("bench.channels must be positive")
	}
	if cfg.Telemetry.PrometheusBind == "" {
		return errors.New("telemetry.prometheus_bind must not be empty")
	}
	return nil
}
