package config

import "testing"

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Bus.Servers[0] != "nats://localhost:4222" {
		t.Fatalf("expected default server, got %v", cfg.Bus.Servers)
	}
	if len(cfg.Source.Sentences) != 5 {
		t.Fatalf("expected built-in sentences, got %d", len(cfg.Source.Sentences))
	}
	if cfg.Source.MinSegmentDuration != 0.5 {
		t.Fatalf("expected default min segment duration 0.5, got %f", cfg.Source.MinSegmentDuration)
	}
	if cfg.Sink.GapDuration != 0.3 {
		t.Fatalf("expected default gap 0.3, got %f", cfg.Sink.GapDuration)
	}
	if cfg.Results.RetentionMode != "session" {
		t.Fatalf("expected session retention by default, got %q", cfg.Results.RetentionMode)
	}
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("MOFA_BUS_SERVERS", "nats://one:4222, nats://two:4222")
	t.Setenv("MOFA_BUS_USERNAME", "alice")
	t.Setenv("MOFA_BUS_PASSWORD", "secret")
	t.Setenv("MOFA_BUS_TLS_INSECURE", "true")
	t.Setenv("MOFA_BUS_CONNECT_TIMEOUT_MS", "5000")
	t.Setenv("MOFA_SOURCE_MODE", "audio")
	t.Setenv("MOFA_SOURCE_AUDIO_FILE", "/tmp/test.wav")
	t.Setenv("MOFA_SOURCE_SEGMENT_DURATION_S", "2.5")
	t.Setenv("MOFA_SINK_MODE", "audio")
	t.Setenv("MOFA_SINK_OUTPUT_DIR", "/tmp/out")
	t.Setenv("MOFA_RESULTS_PATH", "./tmp.db")
	t.Setenv("MOFA_RESULTS_RETENTION_MODE", "persistent")
	t.Setenv("MOFA_RESULTS_RETENTION_DAYS", "7")
	t.Setenv("MOFA_RESULTS_MAX_RUNS", "123")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(cfg.Bus.Servers) != 2 {
		t.Fatalf("expected 2 servers, got %v", cfg.Bus.Servers)
	}
	if cfg.Bus.Username != "alice" || cfg.Bus.Password != "secret" {
		t.Fatalf("expected credentials override")
	}
	if !cfg.Bus.TLSInsecure {
		t.Fatal("expected tls insecure override true")
	}
	if cfg.Bus.ConnectTimeout != 5000 {
		t.Fatalf("expected timeout 5000, got %d", cfg.Bus.ConnectTimeout)
	}
	if cfg.Source.Mode != "audio" || cfg.Source.AudioFile != "/tmp/test.wav" {
		t.Fatalf("expected source override, got %+v", cfg.Source)
	}
	if cfg.Source.SegmentDuration != 2.5 {
		t.Fatalf("expected segment duration override, got %f", cfg.Source.SegmentDuration)
	}
	if cfg.Results.Path != "./tmp.db" {
		t.Fatalf("expected results path override")
	}
	if cfg.Results.RetentionMode != "persistent" {
		t.Fatalf("expected retention mode override")
	}
	if cfg.Results.RetentionDays != 7 {
		t.Fatalf("expected retention days override")
	}
	if cfg.Results.MaxRuns != 123 {
		t.Fatalf("expected max runs override")
	}
}

func TestLegacyEnvNames(t *testing.T) {
	t.Setenv("MOFA_SOURCE_MODE", "audio")
	t.Setenv("TEST_AUDIO_FILE", "/tmp/legacy.wav")
	t.Setenv("SEGMENT_DURATION", "3.0")
	t.Setenv("NUM_SEGMENTS", "7")
	t.Setenv("WAIT_TICKS", "50")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Source.AudioFile != "/tmp/legacy.wav" {
		t.Fatalf("expected legacy audio file, got %s", cfg.Source.AudioFile)
	}
	if cfg.Source.SegmentDuration != 3.0 {
		t.Fatalf("expected legacy segment duration, got %f", cfg.Source.SegmentDuration)
	}
	if cfg.Source.MaxSegments != 7 {
		t.Fatalf("expected legacy max segments, got %d", cfg.Source.MaxSegments)
	}
	if cfg.Source.WaitTicks != 50 {
		t.Fatalf("expected legacy wait ticks, got %d", cfg.Source.WaitTicks)
	}
}

func TestValidateRejectsBadModes(t *testing.T) {
	t.Setenv("MOFA_SOURCE_MODE", "video")
	if _, err := Load(""); err == nil {
		t.Fatal("expected error for unknown source mode")
	}
}

func TestValidateAudioSourceNeedsFile(t *testing.T) {
	t.Setenv("MOFA_SOURCE_MODE", "audio")
	if _, err := Load(""); err == nil {
		t.Fatal("expected error when source.audio_file is missing")
	}
}
