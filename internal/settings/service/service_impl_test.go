package service

import (
	"context"
	"testing"

	auditdomain "github.com/openinvoice/openinvoice/internal/audit/domain"
	"github.com/openinvoice/openinvoice/internal/config"
	"github.com/openinvoice/openinvoice/internal/settings/domain"
	"github.com/openinvoice/openinvoice/internal/settings/repository"
	"github.com/openinvoice/openinvoice/pkg/db"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type noopAudit struct{}

func (noopAudit) Record(context.Context, string, string, *string, map[string]any) error {
	return nil
}

func (noopAudit) List(context.Context, auditdomain.ListAuditLogRequest) ([]auditdomain.AuditLog, error) {
	return nil, nil
}

func newTestService(t *testing.T) domain.Service {
	t.Helper()

	conn, err := db.NewTest()
	require.NoError(t, err)
	require.NoError(t, conn.AutoMigrate(&domain.Setting{}))

	return &Service{
		db:  conn,
		log: zap.NewNop(),
		cfg: config.Config{Store: config.StoreConfig{
			Name:           "Test Store",
			SellerID:       "NL001234567B01",
			DefaultVATRate: 21,
			ReceiptFooter:  "Thank you",
		}},
		repo:  repository.Provide(),
		audit: noopAudit{},
	}
}

func TestGetAllFallsBackToEnvDefaults(t *testing.T) {
	svc := newTestService(t)

	values, err := svc.GetAll(context.Background())
	require.NoError(t, err)
	require.Equal(t, "Test Store", values[domain.KeyStoreName])
	require.Equal(t, "NL001234567B01", values[domain.KeySellerID])
	require.Equal(t, "21", values[domain.KeyDefaultVATRate])
}

func TestUpdateManyOverridesDefaults(t *testing.T) {
	svc := newTestService(t)

	err := svc.UpdateMany(context.Background(), map[string]string{
		domain.KeyStoreName:      "Corner Bakery",
		domain.KeyDefaultVATRate: "9",
	})
	require.NoError(t, err)

	profile, err := svc.Profile(context.Background())
	require.NoError(t, err)
	require.Equal(t, "Corner Bakery", profile.StoreName)
	require.Equal(t, 9.0, profile.DefaultVATRate)
	require.Equal(t, "NL001234567B01", profile.SellerID)
}

func TestUpdateManyRejectsUnknownKey(t *testing.T) {
	svc := newTestService(t)

	err := svc.UpdateMany(context.Background(), map[string]string{"theme": "dark"})
	require.ErrorIs(t, err, domain.ErrUnknownKey)
}

func TestUpdateManyRejectsBadVATRate(t *testing.T) {
	svc := newTestService(t)

	err := svc.UpdateMany(context.Background(), map[string]string{
		domain.KeyDefaultVATRate: "twenty-one",
	})
	require.ErrorIs(t, err, domain.ErrInvalidValue)
}

func TestUpdateManyRejectsEmpty(t *testing.T) {
	svc := newTestService(t)

	require.ErrorIs(t, svc.UpdateMany(context.Background(), nil), domain.ErrEmptyUpdate)
}
