package server

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	auditrepository "github.com/openinvoice/openinvoice/internal/audit/repository"
	auditservice "github.com/openinvoice/openinvoice/internal/audit/service"
	"github.com/openinvoice/openinvoice/internal/config"
	"github.com/openinvoice/openinvoice/internal/importer"
	invoicerepository "github.com/openinvoice/openinvoice/internal/invoice/repository"
	invoiceservice "github.com/openinvoice/openinvoice/internal/invoice/service"
	obsmetrics "github.com/openinvoice/openinvoice/internal/observability/metrics"
	productdomain "github.com/openinvoice/openinvoice/internal/product/domain"
	productrepository "github.com/openinvoice/openinvoice/internal/product/repository"
	productservice "github.com/openinvoice/openinvoice/internal/product/service"
	"github.com/openinvoice/openinvoice/internal/providers/email"
	"github.com/openinvoice/openinvoice/internal/providers/pdf"
	"github.com/openinvoice/openinvoice/internal/report"
	settingsrepository "github.com/openinvoice/openinvoice/internal/settings/repository"
	settingsservice "github.com/openinvoice/openinvoice/internal/settings/service"
	"github.com/openinvoice/openinvoice/internal/verification"
	"github.com/openinvoice/openinvoice/pkg/db"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"

	auditdomain "github.com/openinvoice/openinvoice/internal/audit/domain"
	invoicedomain "github.com/openinvoice/openinvoice/internal/invoice/domain"
	settingsdomain "github.com/openinvoice/openinvoice/internal/settings/domain"
)

func newTestServer(t *testing.T) (*Server, *gorm.DB) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	conn, err := db.NewTest()
	require.NoError(t, err)
	require.NoError(t, conn.AutoMigrate(
		&productdomain.Product{},
		&invoicedomain.Invoice{},
		&invoicedomain.InvoiceItem{},
		&settingsdomain.Setting{},
		&auditdomain.AuditLog{},
	))

	log := zap.NewNop()
	node, err := snowflake.NewNode(1)
	require.NoError(t, err)

	cfg := config.Config{
		Store: config.StoreConfig{
			Name:           "Test Store",
			SellerID:       "NL001234567B01",
			DefaultVATRate: 21,
			ReceiptFooter:  "Thank you",
		},
	}

	registry := prometheus.NewRegistry()
	appMetrics := obsmetrics.New(registry)
	httpMetrics := obsmetrics.NewHTTP(registry)

	auditSvc := auditservice.NewService(auditservice.Params{
		DB: conn, Log: log, GenID: node, Repo: auditrepository.Provide(),
	})
	settingsSvc := settingsservice.NewService(settingsservice.Params{
		DB: conn, Log: log, Config: cfg, Repo: settingsrepository.Provide(), Audit: auditSvc,
	})
	productSvc := productservice.NewService(productservice.Params{
		DB: conn, Log: log, Repo: productrepository.Provide(), Audit: auditSvc,
	})

	invoiceRepo := invoicerepository.Provide()
	invoiceSvc := invoiceservice.NewService(invoiceservice.Params{
		DB:          conn,
		Log:         log,
		Repo:        invoiceRepo,
		ProductRepo: productrepository.Provide(),
		Settings:    settingsSvc,
		Audit:       auditSvc,
		Metrics:     appMetrics,
		PDF:         &pdf.NoOpProvider{},
		Email:       &email.NoOpProvider{},
	})

	validator := verification.NewValidator(invoiceservice.NewLedger(conn, invoiceRepo), log)
	imp := importer.New(importer.Params{
		DB: conn, Log: log, Repo: productrepository.Provide(), Audit: auditSvc, Metrics: appMetrics,
	})
	reportSvc := report.New(report.Params{DB: conn, Log: log, Repo: invoiceRepo})

	engine := NewEngine(log, httpMetrics, registry)
	srv := NewServer(ServerParams{
		Gin:         engine,
		Cfg:         cfg,
		InvoiceSvc:  invoiceSvc,
		ProductSvc:  productSvc,
		SettingsSvc: settingsSvc,
		AuditSvc:    auditSvc,
		Validator:   validator,
		Importer:    imp,
		ReportSvc:   reportSvc,
		PDFProvider: &pdf.NoOpProvider{},
		EmailSvc:    &email.NoOpProvider{},
		Metrics:     appMetrics,
	})
	return srv, conn
}

func doJSON(t *testing.T, srv *Server, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}

	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	srv.Engine().ServeHTTP(rec, req)
	return rec
}

func seedCatalog(t *testing.T, conn *gorm.DB) {
	t.Helper()
	require.NoError(t, conn.Create(&productdomain.Product{
		ID: "coffee", Name: "Coffee", Price: 2.50, VATRate: 21, Stock: 100,
		Status: productdomain.ProductStatusActive,
	}).Error)
}

func TestCreateAndFetchInvoice(t *testing.T) {
	srv, conn := newTestServer(t)
	seedCatalog(t, conn)

	rec := doJSON(t, srv, http.MethodPost, "/v1/invoices", gin.H{
		"items":          []gin.H{{"product_id": "coffee", "quantity": 2}},
		"payment_method": "cash",
	})
	require.Equal(t, http.StatusCreated, rec.Code)

	var created invoicedomain.Invoice
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))
	require.NotEmpty(t, created.InvoiceNumber)
	require.NotEmpty(t, created.QRData)

	rec = doJSON(t, srv, http.MethodGet, "/v1/invoices/"+created.InvoiceNumber, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doJSON(t, srv, http.MethodGet, "/v1/invoices/INV-2099-9999", nil)
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestVerifyQREndpoint(t *testing.T) {
	srv, conn := newTestServer(t)
	seedCatalog(t, conn)

	rec := doJSON(t, srv, http.MethodPost, "/v1/invoices", gin.H{
		"items": []gin.H{{"product_id": "coffee", "quantity": 1}},
	})
	require.Equal(t, http.StatusCreated, rec.Code)

	var created invoicedomain.Invoice
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))

	rec = doJSON(t, srv, http.MethodPost, "/v1/verify/qr", gin.H{"qr_data": created.QRData})
	require.Equal(t, http.StatusOK, rec.Code)

	var result verification.Result
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &result))
	require.True(t, result.Valid)

	// Garbage scans come back as structured invalid results, not errors.
	rec = doJSON(t, srv, http.MethodPost, "/v1/verify/qr", gin.H{"qr_data": "not-a-token"})
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &result))
	require.False(t, result.Valid)
}

func TestVerifyChainEndpointDetectsTampering(t *testing.T) {
	srv, conn := newTestServer(t)
	seedCatalog(t, conn)

	for i := 0; i < 2; i++ {
		rec := doJSON(t, srv, http.MethodPost, "/v1/invoices", gin.H{
			"items": []gin.H{{"product_id": "coffee", "quantity": 1}},
		})
		require.Equal(t, http.StatusCreated, rec.Code)
	}

	rec := doJSON(t, srv, http.MethodPost, "/v1/verify/chain", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), `"valid":true`)

	require.NoError(t, conn.Exec(`UPDATE invoices SET total = 123.45 WHERE id = 1`).Error)

	rec = doJSON(t, srv, http.MethodPost, "/v1/verify/chain", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), `"valid":false`)
	require.Contains(t, rec.Body.String(), "HASH_MISMATCH")
}

func TestInsufficientStockConflict(t *testing.T) {
	srv, conn := newTestServer(t)
	require.NoError(t, conn.Create(&productdomain.Product{
		ID: "rare", Name: "Rare", Price: 10, VATRate: 21, Stock: 1,
		Status: productdomain.ProductStatusActive,
	}).Error)

	rec := doJSON(t, srv, http.MethodPost, "/v1/invoices", gin.H{
		"items": []gin.H{{"product_id": "rare", "quantity": 5}},
	})
	require.Equal(t, http.StatusConflict, rec.Code)
}

func TestEmailReceiptEndpoint(t *testing.T) {
	srv, conn := newTestServer(t)
	seedCatalog(t, conn)

	rec := doJSON(t, srv, http.MethodPost, "/v1/invoices", gin.H{
		"items": []gin.H{{"product_id": "coffee", "quantity": 1}},
	})
	require.Equal(t, http.StatusCreated, rec.Code)

	var created invoicedomain.Invoice
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))

	// No address on the sale and none supplied.
	rec = doJSON(t, srv, http.MethodPost, "/v1/invoices/"+created.InvoiceNumber+"/email", nil)
	require.Equal(t, http.StatusBadRequest, rec.Code)

	rec = doJSON(t, srv, http.MethodPost, "/v1/invoices/"+created.InvoiceNumber+"/email", gin.H{
		"to": "customer@example.com",
	})
	require.Equal(t, http.StatusAccepted, rec.Code)
}

func TestSettingsEndpoints(t *testing.T) {
	srv, _ := newTestServer(t)

	rec := doJSON(t, srv, http.MethodGet, "/v1/settings", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), "Test Store")

	rec = doJSON(t, srv, http.MethodPut, "/v1/settings", gin.H{"store_name": "New Name"})
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), "New Name")

	rec = doJSON(t, srv, http.MethodPut, "/v1/settings", gin.H{"bogus": "1"})
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestProductCRUDEndpoints(t *testing.T) {
	srv, _ := newTestServer(t)

	rec := doJSON(t, srv, http.MethodPost, "/v1/products", gin.H{
		"name": "Espresso", "price": 2.0, "vat_rate": 21, "stock": 10,
	})
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = doJSON(t, srv, http.MethodGet, "/v1/products/espresso", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doJSON(t, srv, http.MethodPatch, "/v1/products/espresso", gin.H{"price": 2.25})
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), "2.25")

	rec = doJSON(t, srv, http.MethodDelete, "/v1/products/espresso", nil)
	require.Equal(t, http.StatusNoContent, rec.Code)

	rec = doJSON(t, srv, http.MethodGet, "/v1/products/espresso", nil)
	require.Equal(t, http.StatusNotFound, rec.Code)
}
