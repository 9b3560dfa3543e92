package bootstrap

import (
	"testing"
	"time"
)

func TestLoadConfig_Defaults(t *testing.T) {
	cfg := LoadConfig()

	if cfg.ServerAddr != ":8080" {
		t.Errorf("ServerAddr = %q", cfg.ServerAddr)
	}
	if cfg.BufferDurationMs != 250 {
		t.Errorf("BufferDurationMs = %d", cfg.BufferDurationMs)
	}
	if cfg.SilenceEnergyThreshold != 0.01 {
		t.Errorf("SilenceEnergyThreshold = %v", cfg.SilenceEnergyThreshold)
	}
	if cfg.PingIntervalMs != 2000 {
		t.Errorf("PingIntervalMs = %d", cfg.PingIntervalMs)
	}
}

func TestLoadConfig_EnvOverrides(t *testing.T) {
	t.Setenv("SERVER_ADDR", ":9999")
	t.Setenv("BUFFER_DURATION_MS", "400")
	t.Setenv("SILENCE_ENERGY_THRESHOLD", "0.05")
	t.Setenv("ADAPTIVE_BUFFERING", "true")
	t.Setenv("REDIS_DB", "not-a-number")

	cfg := LoadConfig()

	if cfg.ServerAddr != ":9999" {
		t.Errorf("ServerAddr = %q", cfg.ServerAddr)
	}
	if cfg.BufferDurationMs != 400 {
		t.Errorf("BufferDurationMs = %d", cfg.BufferDurationMs)
	}
	if cfg.SilenceEnergyThreshold != 0.05 {
		t.Errorf("SilenceEnergyThreshold = %v", cfg.SilenceEnergyThreshold)
	}
	if !cfg.AdaptiveBuffering {
		t.Error("AdaptiveBuffering should be enabled")
	}
	// unparseable values fall back to the default
	if cfg.RedisDB != 0 {
		t.Errorf("RedisDB = %d, want default 0", cfg.RedisDB)
	}
}

func TestConfig_Converters(t *testing.T) {
	cfg := &Config{
		SpeechEndpoint:     "wss://stt.example.com/stream",
		SpeechKey:          "key",
		BufferDurationMs:   300,
		MaxSilenceMs:       400,
		BackoffInitialMs:   100,
		BackoffMaxDelayMs:  1600,
		BackoffMaxAttempts: 4,
		PingIntervalMs:     2000,
	}

	eng := cfg.EngineConfig()
	if eng.Endpoint != cfg.SpeechEndpoint || eng.Key != cfg.SpeechKey {
		t.Errorf("EngineConfig = %+v", eng)
	}

	bo := cfg.BackoffConfig()
	if bo.Initial != 100*time.Millisecond || bo.MaxDelay != 1600*time.Millisecond || bo.MaxAttempts != 4 {
		t.Errorf("BackoffConfig = %+v", bo)
	}

	buf := cfg.BufferingConfig()
	if buf.BufferDuration != 300*time.Millisecond || buf.MaxSilence != 400*time.Millisecond {
		t.Errorf("BufferingConfig = %+v", buf)
	}
}
