package settings

import (
	"github.com/openinvoice/openinvoice/internal/settings/repository"
	"github.com/openinvoice/openinvoice/internal/settings/service"
	"go.uber.org/fx"
)

var Module = fx.Module("settings.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.NewService),
)
