package invoice

import (
	"github.com/openinvoice/openinvoice/internal/invoice/repository"
	"github.com/openinvoice/openinvoice/internal/invoice/service"
	"go.uber.org/fx"
)

var Module = fx.Module("invoice.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.NewService),
	fx.Provide(service.NewLedger),
)
