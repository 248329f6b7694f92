package sync_worker_fx

import (
	"context"

	"go.uber.org/fx"
	"vinatravel/internal/config"
	"vinatravel/internal/services"
	"vinatravel/pkg/logger"
)

var Module = fx.Invoke(startSyncWorker)

func startSyncWorker(lc fx.Lifecycle, cfg *config.Config, sync services.SyncServiceInterface, log logger.ILogger) {
	if !cfg.Sync.Enabled {
		log.Info("sync", "sync worker disabled", nil)
		return
	}
	worker := services.NewSyncWorker(sync, cfg.Sync.Interval, log)
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			worker.Start()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			return worker.Stop(ctx)
		},
	})
}
