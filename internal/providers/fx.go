package providers

import (
	"github.com/openinvoice/openinvoice/internal/providers/email"
	"github.com/openinvoice/openinvoice/internal/providers/pdf"
	"go.uber.org/fx"
)

var Module = fx.Options(
	email.Module,
	pdf.Module,
)
