package places_gateway_fx

import (
	"go.uber.org/fx"
	"vinatravel/internal/config"
	"vinatravel/internal/services"
	"vinatravel/pkg/logger"
)

var Module = fx.Provide(provideGateway)

func provideGateway(cfg *config.Config, log logger.ILogger) services.PlacesGatewayInterface {
	return services.NewGoogleMapsGateway(cfg.GoogleMaps, log)
}
