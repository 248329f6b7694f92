package main

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/fx"
	"vinatravel/cmd/fx/cache_fx"
	"vinatravel/cmd/fx/config_fx"
	"vinatravel/cmd/fx/controllers_fx"
	"vinatravel/cmd/fx/db_fx"
	"vinatravel/cmd/fx/embedding_fx"
	"vinatravel/cmd/fx/hybrid_search_fx"
	"vinatravel/cmd/fx/partner_places_fx"
	"vinatravel/cmd/fx/places_gateway_fx"
	"vinatravel/cmd/fx/sync_worker_fx"
	"vinatravel/internal/api/controllers"
	"vinatravel/internal/config"
	"vinatravel/pkg/logger"
	"vinatravel/pkg/middleware"
)

func main() {
	app := fx.New(
		config_fx.Module,
		db_fx.Module,
		cache_fx.Module,
		embedding_fx.Module,
		places_gateway_fx.Module,
		partner_places_fx.Module,
		hybrid_search_fx.Module,
		controllers_fx.Module,
		sync_worker_fx.Module,

		fx.Provide(ProvideRouter),
		fx.Invoke(StartServer),
	)

	app.Run()
}

func StartServer(lc fx.Lifecycle, cfg *config.Config, engine *gin.Engine, log logger.ILogger) {
	srv := &http.Server{
		Addr:              ":" + cfg.App.Port,
		Handler:           engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
				log.Info("server", "starting HTTP server", map[string]interface{}{"port": cfg.App.Port})
				if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					log.Error("server", "HTTP server stopped", map[string]interface{}{"error": err.Error()})
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			log.Info("server", "stopping HTTP server", nil)
			return srv.Shutdown(ctx)
		},
	})
}

func ProvideRouter(
	cfg *config.Config,
	log logger.ILogger,
	partnerPlaceController *controllers.PartnerPlaceController,
	hybridSearchController *controllers.HybridSearchController) *gin.Engine {

	if cfg.App.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.TraceIDMiddleware())
	r.Use(middleware.RequestLogger(log))
	r.Use(middleware.CORSMiddleware(cfg.App.CorsAllowedOrigins))
	r.Use(middleware.ActorMiddleware(cfg.Auth.JWTSecret))

	RegisterRoutes(r, partnerPlaceController, hybridSearchController)

	return r
}

func RegisterRoutes(r *gin.Engine,
	partnerPlaceController *controllers.PartnerPlaceController,
	hybridSearchController *controllers.HybridSearchController) {

	admin := r.Group("/admin/partner-places")
	admin.POST("", partnerPlaceController.CreatePartnerPlace)
	admin.GET("", partnerPlaceController.ListPartnerPlaces)
	admin.GET("/sync-status", partnerPlaceController.GetSyncStatus)
	admin.POST("/retry-sync", partnerPlaceController.RetrySync)
	admin.POST("/sync-one", partnerPlaceController.SyncOne)
	admin.POST("/reconcile", partnerPlaceController.Reconcile)
	admin.GET("/:id", partnerPlaceController.GetPartnerPlace)
	admin.PUT("/:id", partnerPlaceController.UpdatePartnerPlace)
	admin.PATCH("/:id/deactivate", partnerPlaceController.DeactivatePartnerPlace)
	admin.DELETE("/:id", partnerPlaceController.DeletePartnerPlace)

	search := r.Group("/hybrid-search")
	search.POST("/search", hybridSearchController.Search)
	search.POST("/search-near", hybridSearchController.SearchNear)
	search.GET("/stats", hybridSearchController.Stats)
	search.GET("/health", hybridSearchController.Health)
	search.DELETE("/cache", hybridSearchController.ClearCache)
	search.GET("/cache/stats", hybridSearchController.CacheStats)
	search.GET("/logs", hybridSearchController.Logs)
}
