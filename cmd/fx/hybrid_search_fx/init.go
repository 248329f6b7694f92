package hybrid_search_fx

import (
	"go.uber.org/fx"
	"vinatravel/internal/config"
	"vinatravel/internal/repositories"
	"vinatravel/internal/services"
	"vinatravel/pkg/cache"
	"vinatravel/pkg/logger"
	"vinatravel/pkg/utils"
)

var Module = fx.Provide(
	services.NewSearchMetrics, provideSemanticSearch, provideHybridSearch)

func provideSemanticSearch(index repositories.VectorIndexRepository, embedder utils.EmbeddingClientInterface, cfg *config.Config) services.SemanticSearchServiceInterface {
	return services.NewSemanticSearchService(index, embedder, cfg.Search.MinScore)
}

func provideHybridSearch(
	semantic services.SemanticSearchServiceInterface,
	gateway services.PlacesGatewayInterface,
	resultCache cache.ResultCache,
	metrics *services.SearchMetrics,
	log logger.ILogger,
	cfg *config.Config,
) services.HybridSearchServiceInterface {
	return services.NewHybridSearchService(semantic, gateway, resultCache, metrics, log, services.HybridSearchConfig{
		RequestTimeout:        cfg.Search.RequestTimeout,
		EnrichmentTimeout:     cfg.Search.EnrichmentTimeout,
		EnrichmentConcurrency: cfg.Search.EnrichmentConcurrency,
		DefaultRadiusKm:       cfg.Search.DefaultRadiusKm,
		CacheTTL:              cfg.Cache.TTL,
	})
}
