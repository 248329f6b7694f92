package partner_places_fx

import (
	"go.uber.org/fx"
	"gorm.io/gorm"
	"vinatravel/internal/config"
	"vinatravel/internal/repositories"
	"vinatravel/internal/services"
	"vinatravel/pkg/logger"
	"vinatravel/pkg/utils"
)

var Module = fx.Provide(
	providePartnerPlaceRepo, provideSyncService, providePartnerPlaceService)

func providePartnerPlaceRepo(db *gorm.DB) repositories.PartnerPlaceRepository {
	return repositories.NewPartnerPlaceRepository(db)
}

func provideSyncService(
	places repositories.PartnerPlaceRepository,
	index repositories.VectorIndexRepository,
	embedder utils.EmbeddingClientInterface,
	log logger.ILogger,
	cfg *config.Config,
) services.SyncServiceInterface {
	return services.NewSyncService(places, index, embedder, log, cfg.Sync.BatchSize, cfg.Sync.MaxRetries)
}

func providePartnerPlaceService(places repositories.PartnerPlaceRepository, sync services.SyncServiceInterface, log logger.ILogger) services.PartnerPlaceServiceInterface {
	return services.NewPartnerPlaceService(places, sync, log)
}
