package bootstrap

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/fx"

	"github.com/eleven-am/speech-gateway/internal/health"
	"github.com/eleven-am/speech-gateway/internal/stream"
)

func NewEchoServer() *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.Use(middleware.Recover())
	return e
}

func RegisterRoutes(
	e *echo.Echo,
	manager *stream.Manager,
	healthHandler *health.Handler,
	logger *slog.Logger,
) {
	stream.NewHandler(manager, logger).Register(e)
	healthHandler.RegisterRoutes(e)
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))
}

func StartServer(lc fx.Lifecycle, e *echo.Echo, cfg *Config, manager *stream.Manager, logger *slog.Logger) {
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			logger.Info("server starting", "addr", cfg.ServerAddr)
			go func() {
				if err := e.Start(cfg.ServerAddr); err != nil && err != http.ErrServerClosed {
					logger.Error("server stopped", "error", err)
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			_ = manager.Close()
			return e.Shutdown(ctx)
		},
	})
}

var ServerModule = fx.Options(
	fx.Provide(
		NewEchoServer,
		health.NewHandler,
	),
	fx.Invoke(RegisterRoutes),
	fx.Invoke(StartServer),
)

func Run() {
	fx.New(
		fx.Provide(LoadConfig),
		InfrastructureModule,
		ServerModule,
	).Run()
}
