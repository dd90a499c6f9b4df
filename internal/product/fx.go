package product

import (
	"github.com/openinvoice/openinvoice/internal/product/repository"
	"github.com/openinvoice/openinvoice/internal/product/service"
	"go.uber.org/fx"
)

var Module = fx.Module("product.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.NewService),
)
