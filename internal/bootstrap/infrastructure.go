package bootstrap

import (
	"log/slog"
	"os"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	"go.uber.org/fx"

	"github.com/eleven-am/speech-gateway/internal/agent"
	"github.com/eleven-am/speech-gateway/internal/health"
	"github.com/eleven-am/speech-gateway/internal/metrics"
	"github.com/eleven-am/speech-gateway/internal/recognition"
	"github.com/eleven-am/speech-gateway/internal/stream"
)

func ProvideLogger() *slog.Logger {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)
	return logger
}

func ProvideRedisClient(cfg *Config) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
}

// ProvideEngine fails fast when the speech endpoint or key is missing: the
// gateway refuses to start rather than accept sessions it cannot serve.
func ProvideEngine(cfg *Config, logger *slog.Logger) (*recognition.WSEngine, error) {
	return recognition.NewWSEngine(cfg.EngineConfig(), logger)
}

func ProvideEnginePinger(engine *recognition.WSEngine) health.EnginePinger {
	return engine
}

func ProvideMetrics() *metrics.Metrics {
	return metrics.New(prometheus.DefaultRegisterer)
}

func ProvideNotifier(cfg *Config, redisClient *redis.Client, logger *slog.Logger) agent.Notifier {
	notifiers := agent.Multi{agent.NewPublisher(redisClient, logger)}
	if cfg.AgentEndpoint != "" {
		notifiers = append(notifiers, agent.NewForwarder(cfg.AgentEndpoint, logger))
	}
	return notifiers
}

func ProvideManager(engine *recognition.WSEngine, notifier agent.Notifier, m *metrics.Metrics, logger *slog.Logger) *stream.Manager {
	return stream.NewManager(stream.ManagerConfig{
		Engine:   engine,
		Notifier: notifier,
		Metrics:  m,
		Logger:   logger,
	})
}

var InfrastructureModule = fx.Options(
	fx.Provide(
		ProvideLogger,
		ProvideRedisClient,
		ProvideEngine,
		ProvideEnginePinger,
		ProvideMetrics,
		ProvideNotifier,
		ProvideManager,
	),
)
