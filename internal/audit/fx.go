package audit

import (
	"github.com/openinvoice/openinvoice/internal/audit/repository"
	"github.com/openinvoice/openinvoice/internal/audit/service"
	"go.uber.org/fx"
)

var Module = fx.Module("audit.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.NewService),
)
