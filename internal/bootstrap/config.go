package bootstrap

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"

	"github.com/eleven-am/speech-gateway/internal/audio"
	"github.com/eleven-am/speech-gateway/internal/recognition"
	"github.com/eleven-am/speech-gateway/internal/shared"
)

type Config struct {
	ServerAddr string

	SpeechEndpoint string
	SpeechKey      string

	RedisAddr     string
	RedisPassword string
	RedisDB       int

	AgentEndpoint string

	BufferDurationMs       int
	SilenceEnergyThreshold float64
	MaxSilenceMs           int
	AdaptiveBuffering      bool

	PingIntervalMs     int
	BackoffInitialMs   int
	BackoffMaxDelayMs  int
	BackoffMaxAttempts int
}

func LoadConfig() *Config {
	_ = godotenv.Load()

	return &Config{
		ServerAddr: getEnv("SERVER_ADDR", ":8080"),

		SpeechEndpoint: getEnv("SPEECH_ENDPOINT", ""),
		SpeechKey:      getEnv("SPEECH_KEY", ""),

		RedisAddr:     getEnv("REDIS_ADDR", "localhost:6379"),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisDB:       getEnvInt("REDIS_DB", 0),

		AgentEndpoint: getEnv("AGENT_ENDPOINT", ""),

		BufferDurationMs:       getEnvInt("BUFFER_DURATION_MS", 250),
		SilenceEnergyThreshold: getEnvFloat("SILENCE_ENERGY_THRESHOLD", 0.01),
		MaxSilenceMs:           getEnvInt("MAX_SILENCE_MS", 500),
		AdaptiveBuffering:      getEnv("ADAPTIVE_BUFFERING", "false") == "true",

		PingIntervalMs:     getEnvInt("PING_INTERVAL_MS", 2000),
		BackoffInitialMs:   getEnvInt("BACKOFF_INITIAL_MS", 500),
		BackoffMaxDelayMs:  getEnvInt("BACKOFF_MAX_DELAY_MS", 30000),
		BackoffMaxAttempts: getEnvInt("BACKOFF_MAX_ATTEMPTS", 10),
	}
}

func (c *Config) EngineConfig() recognition.Config {
	return recognition.Config{
		Endpoint: c.SpeechEndpoint,
		Key:      c.SpeechKey,
		Backoff:  c.BackoffConfig(),
	}
}

func (c *Config) BackoffConfig() shared.BackoffConfig {
	return shared.BackoffConfig{
		Initial:     time.Duration(c.BackoffInitialMs) * time.Millisecond,
		MaxAttempts: c.BackoffMaxAttempts,
		MaxDelay:    time.Duration(c.BackoffMaxDelayMs) * time.Millisecond,
	}
}

func (c *Config) BufferingConfig() audio.AccumulatorConfig {
	return audio.AccumulatorConfig{
		BufferDuration:   time.Duration(c.BufferDurationMs) * time.Millisecond,
		SilenceThreshold: c.SilenceEnergyThreshold,
		MaxSilence:       time.Duration(c.MaxSilenceMs) * time.Millisecond,
		Adaptive:         c.AdaptiveBuffering,
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultValue
}
