package cache_fx

import (
	"context"

	"go.uber.org/fx"
	"vinatravel/internal/config"
	"vinatravel/internal/infra"
	"vinatravel/pkg/cache"
	"vinatravel/pkg/logger"
)

var Module = fx.Provide(provideResultCache)

// provideResultCache picks redis when configured and reachable, else the in-process cache.
func provideResultCache(lc fx.Lifecycle, cfg *config.Config, log logger.ILogger) cache.ResultCache {
	if cfg.Cache.Driver == "redis" {
		client, err := infra.InitRedis(cfg)
		if err == nil {
			lc.Append(fx.Hook{
				OnStop: func(ctx context.Context) error {
					infra.CloseRedis(client)
					return nil
				},
			})
			log.Info("cache", "using redis result cache", map[string]interface{}{"ttl": cfg.Cache.TTL.String()})
			return cache.NewRedisCache(client, cfg.Cache.TTL)
		}
		log.Warn("cache", "redis unavailable, falling back to memory cache", map[string]interface{}{"error": err.Error()})
	}
	return cache.NewMemoryCache(cfg.Cache.TTL)
}
