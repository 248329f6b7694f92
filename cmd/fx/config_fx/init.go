package config_fx

import (
	"context"

	"go.uber.org/fx"
	"vinatravel/internal/config"
	"vinatravel/pkg/logger"
)

var Module = fx.Provide(
	config.Load, provideLogger)

func provideLogger(lc fx.Lifecycle, cfg *config.Config) logger.ILogger {
	log := logger.NewZapLogger(cfg.App.LogFilePath, cfg.App.IsProduction())
	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			// stdout cannot be fsynced on most platforms
			_ = log.Sync()
			return nil
		},
	})
	return log
}
