package migration

import (
	auditdomain "github.com/openinvoice/openinvoice/internal/audit/domain"
	"github.com/openinvoice/openinvoice/internal/config"
	invoicedomain "github.com/openinvoice/openinvoice/internal/invoice/domain"
	productdomain "github.com/openinvoice/openinvoice/internal/product/domain"
	settingsdomain "github.com/openinvoice/openinvoice/internal/settings/domain"
	"go.uber.org/fx"
	"gorm.io/gorm"
)

var Module = fx.Module("migrations",
	fx.Invoke(func(conn *gorm.DB, cfg config.Config) error {
		if cfg.DBType == "postgres" {
			sqlDB, err := conn.DB()
			if err != nil {
				return err
			}
			return RunMigrations(sqlDB)
		}

		// sqlite and mysql installs are schema-managed by gorm.
		return conn.AutoMigrate(
			&productdomain.Product{},
			&invoicedomain.Invoice{},
			&invoicedomain.InvoiceItem{},
			&settingsdomain.Setting{},
			&auditdomain.AuditLog{},
		)
	}),
)
