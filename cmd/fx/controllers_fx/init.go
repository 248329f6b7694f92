package controllers_fx

import (
	"go.uber.org/fx"
	"vinatravel/internal/api/controllers"
)

var Module = fx.Options(
	fx.Provide(controllers.NewPartnerPlaceController),
	fx.Provide(controllers.NewHybridSearchController))
