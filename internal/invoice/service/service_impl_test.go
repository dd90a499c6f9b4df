package service

import (
	"context"
	"testing"

	auditdomain "github.com/openinvoice/openinvoice/internal/audit/domain"
	"github.com/openinvoice/openinvoice/internal/hashchain"
	"github.com/openinvoice/openinvoice/internal/invoice/domain"
	"github.com/openinvoice/openinvoice/internal/invoice/repository"
	productdomain "github.com/openinvoice/openinvoice/internal/product/domain"
	productrepository "github.com/openinvoice/openinvoice/internal/product/repository"
	"github.com/openinvoice/openinvoice/internal/providers/email"
	"github.com/openinvoice/openinvoice/internal/providers/pdf"
	settingsdomain "github.com/openinvoice/openinvoice/internal/settings/domain"
	"github.com/openinvoice/openinvoice/internal/token"
	"github.com/openinvoice/openinvoice/internal/verification"
	"github.com/openinvoice/openinvoice/pkg/db"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type noopAudit struct{}

func (noopAudit) Record(context.Context, string, string, *string, map[string]any) error {
	return nil
}

func (noopAudit) List(context.Context, auditdomain.ListAuditLogRequest) ([]auditdomain.AuditLog, error) {
	return nil, nil
}

type staticSettings struct{}

func (staticSettings) GetAll(context.Context) (map[string]string, error) { return nil, nil }

func (staticSettings) Profile(context.Context) (settingsdomain.StoreProfile, error) {
	return settingsdomain.StoreProfile{
		StoreName:      "Test Store",
		SellerID:       "NL001234567B01",
		DefaultVATRate: 21,
	}, nil
}

func (staticSettings) UpdateMany(context.Context, map[string]string) error { return nil }

func newTestService(t *testing.T) (*Service, *gorm.DB) {
	t.Helper()

	conn, err := db.NewTest()
	require.NoError(t, err)
	require.NoError(t, conn.AutoMigrate(
		&productdomain.Product{},
		&domain.Invoice{},
		&domain.InvoiceItem{},
	))

	svc := &Service{
		db:          conn,
		log:         zap.NewNop(),
		repo:        repository.Provide(),
		productRepo: productrepository.Provide(),
		settings:    staticSettings{},
		audit:       noopAudit{},
		metrics:     nil,
		pdf:         &pdf.NoOpProvider{},
		email:       &email.NoOpProvider{},
	}
	return svc, conn
}

func seedProduct(t *testing.T, conn *gorm.DB, id string, price, vatRate float64, stock int64) {
	t.Helper()
	require.NoError(t, conn.Create(&productdomain.Product{
		ID:      id,
		Name:    "Product " + id,
		Price:   price,
		VATRate: vatRate,
		Stock:   stock,
		Status:  productdomain.ProductStatusActive,
	}).Error)
}

func TestCreateChainsInvoices(t *testing.T) {
	svc, conn := newTestService(t)
	seedProduct(t, conn, "coffee", 2.50, 21, 100)

	first, err := svc.Create(context.Background(), domain.CreateInvoiceRequest{
		Items:         []domain.CreateItemRequest{{ProductID: "coffee", Quantity: 2}},
		PaymentMethod: "cash",
	})
	require.NoError(t, err)
	require.Equal(t, hashchain.GenesisHash, first.PreviousHash)
	require.Len(t, first.CurrentHash, 64)

	second, err := svc.Create(context.Background(), domain.CreateInvoiceRequest{
		Items: []domain.CreateItemRequest{{ProductID: "coffee", Quantity: 1}},
	})
	require.NoError(t, err)
	require.Equal(t, first.CurrentHash, second.PreviousHash)
	require.Equal(t, first.ID+1, second.ID)
	require.Regexp(t, `^INV-\d{4}-0001$`, first.InvoiceNumber)
	require.Regexp(t, `^INV-\d{4}-0002$`, second.InvoiceNumber)
}

func TestCreateComputesTotalsWithVAT(t *testing.T) {
	svc, conn := newTestService(t)
	seedProduct(t, conn, "coffee", 2.50, 21, 100)

	invoice, err := svc.Create(context.Background(), domain.CreateInvoiceRequest{
		Items: []domain.CreateItemRequest{{ProductID: "coffee", Quantity: 2}},
	})
	require.NoError(t, err)
	require.Equal(t, 5.00, invoice.Subtotal)
	require.Equal(t, 1.05, invoice.VATAmount)
	require.Equal(t, 6.05, invoice.Total)
	require.Len(t, invoice.Items, 1)
	require.Equal(t, 5.00, invoice.Items[0].LineTotal)
}

func TestCreateDecrementsStock(t *testing.T) {
	svc, conn := newTestService(t)
	seedProduct(t, conn, "coffee", 2.50, 21, 3)

	_, err := svc.Create(context.Background(), domain.CreateInvoiceRequest{
		Items: []domain.CreateItemRequest{{ProductID: "coffee", Quantity: 2}},
	})
	require.NoError(t, err)

	var stock int64
	require.NoError(t, conn.Raw(`SELECT stock FROM products WHERE id = 'coffee'`).Scan(&stock).Error)
	require.EqualValues(t, 1, stock)

	_, err = svc.Create(context.Background(), domain.CreateInvoiceRequest{
		Items: []domain.CreateItemRequest{{ProductID: "coffee", Quantity: 2}},
	})
	require.ErrorIs(t, err, domain.ErrInsufficientStock)

	// The failed sale must not leak a partial decrement.
	require.NoError(t, conn.Raw(`SELECT stock FROM products WHERE id = 'coffee'`).Scan(&stock).Error)
	require.EqualValues(t, 1, stock)
}

func TestCreateValidation(t *testing.T) {
	svc, conn := newTestService(t)
	seedProduct(t, conn, "coffee", 2.50, 21, 10)

	_, err := svc.Create(context.Background(), domain.CreateInvoiceRequest{})
	require.ErrorIs(t, err, domain.ErrEmptyItems)

	_, err = svc.Create(context.Background(), domain.CreateInvoiceRequest{
		Items: []domain.CreateItemRequest{{ProductID: "coffee", Quantity: 0}},
	})
	require.ErrorIs(t, err, domain.ErrInvalidQuantity)

	_, err = svc.Create(context.Background(), domain.CreateInvoiceRequest{
		Items: []domain.CreateItemRequest{{ProductID: "ghost", Quantity: 1}},
	})
	require.ErrorIs(t, err, domain.ErrUnknownProduct)
}

func TestCreatedInvoiceVerifiesEndToEnd(t *testing.T) {
	svc, conn := newTestService(t)
	seedProduct(t, conn, "coffee", 2.50, 21, 100)

	invoice, err := svc.Create(context.Background(), domain.CreateInvoiceRequest{
		Items: []domain.CreateItemRequest{{ProductID: "coffee", Quantity: 2}},
	})
	require.NoError(t, err)

	fields, ok := token.Decode(invoice.QRData)
	require.True(t, ok)
	require.Equal(t, invoice.InvoiceNumber, fields.InvoiceNumber)
	require.Equal(t, token.HashPrefix(invoice.CurrentHash), fields.HashPrefix)

	validator := verification.NewValidator(NewLedger(conn, svc.repo), zap.NewNop())
	result, err := validator.Validate(context.Background(), invoice.QRData)
	require.NoError(t, err)
	require.True(t, result.Valid)
	require.True(t, result.Checks[verification.CheckHashVerified])

	chain, err := svc.VerifyChain(context.Background())
	require.NoError(t, err)
	require.True(t, chain.Valid)
	require.Equal(t, 1, chain.CheckedCount)
}

func TestTamperedTotalBreaksVerification(t *testing.T) {
	svc, conn := newTestService(t)
	seedProduct(t, conn, "coffee", 2.50, 21, 100)

	for i := 0; i < 3; i++ {
		_, err := svc.Create(context.Background(), domain.CreateInvoiceRequest{
			Items: []domain.CreateItemRequest{{ProductID: "coffee", Quantity: 1}},
		})
		require.NoError(t, err)
	}

	// Edit the second record's total behind the ledger's back.
	require.NoError(t, conn.Exec(`UPDATE invoices SET total = 999.99 WHERE id = 2`).Error)

	chain, err := svc.VerifyChain(context.Background())
	require.NoError(t, err)
	require.False(t, chain.Valid)
	require.Equal(t, hashchain.ErrorKindHashMismatch, chain.ErrorKind)
	require.EqualValues(t, 2, chain.FailedSequenceID)
	require.Equal(t, 1, chain.CheckedCount)

	var number string
	require.NoError(t, conn.Raw(`SELECT invoice_number FROM invoices WHERE id = 2`).Scan(&number).Error)

	validator := verification.NewValidator(NewLedger(conn, svc.repo), zap.NewNop())
	result, err := validator.ValidateByNumber(context.Background(), number)
	require.NoError(t, err)
	require.False(t, result.Valid)
	require.False(t, result.Checks[verification.CheckHashVerified])
}

func TestProcessReturnPartialAndFull(t *testing.T) {
	svc, conn := newTestService(t)
	seedProduct(t, conn, "coffee", 2.50, 21, 10)
	seedProduct(t, conn, "muffin", 3.00, 9, 10)

	invoice, err := svc.Create(context.Background(), domain.CreateInvoiceRequest{
		Items: []domain.CreateItemRequest{
			{ProductID: "coffee", Quantity: 2},
			{ProductID: "muffin", Quantity: 1},
		},
	})
	require.NoError(t, err)
	require.Len(t, invoice.Items, 2)

	partial, err := svc.ProcessReturn(context.Background(), invoice.InvoiceNumber, []int64{invoice.Items[0].ID})
	require.NoError(t, err)
	require.Equal(t, domain.InvoiceStatusPartialReturn, partial.Status)

	var stock int64
	require.NoError(t, conn.Raw(`SELECT stock FROM products WHERE id = 'coffee'`).Scan(&stock).Error)
	require.EqualValues(t, 10, stock)

	_, err = svc.ProcessReturn(context.Background(), invoice.InvoiceNumber, []int64{invoice.Items[0].ID})
	require.ErrorIs(t, err, domain.ErrItemAlreadyReturned)

	full, err := svc.ProcessReturn(context.Background(), invoice.InvoiceNumber, []int64{invoice.Items[1].ID})
	require.NoError(t, err)
	require.Equal(t, domain.InvoiceStatusReturned, full.Status)

	// Returns only flip status columns; the chain still verifies.
	chain, err := svc.VerifyChain(context.Background())
	require.NoError(t, err)
	require.True(t, chain.Valid)
}

func TestProcessReturnUnknownItem(t *testing.T) {
	svc, conn := newTestService(t)
	seedProduct(t, conn, "coffee", 2.50, 21, 10)

	invoice, err := svc.Create(context.Background(), domain.CreateInvoiceRequest{
		Items: []domain.CreateItemRequest{{ProductID: "coffee", Quantity: 1}},
	})
	require.NoError(t, err)

	_, err = svc.ProcessReturn(context.Background(), invoice.InvoiceNumber, []int64{9999})
	require.ErrorIs(t, err, domain.ErrItemNotOnInvoice)
}

func TestListDateRangeValidation(t *testing.T) {
	svc, _ := newTestService(t)

	_, err := svc.List(context.Background(), domain.ListInvoiceRequest{StartDate: "2025-06-02"})
	require.ErrorIs(t, err, domain.ErrInvalidDateRange)

	_, err = svc.List(context.Background(), domain.ListInvoiceRequest{
		StartDate: "2025-06-02",
		EndDate:   "2025-06-01",
	})
	require.ErrorIs(t, err, domain.ErrInvalidDateRange)
}
