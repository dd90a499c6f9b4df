package server

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/openinvoice/openinvoice/internal/audit"
	auditdomain "github.com/openinvoice/openinvoice/internal/audit/domain"
	"github.com/openinvoice/openinvoice/internal/config"
	"github.com/openinvoice/openinvoice/internal/importer"
	"github.com/openinvoice/openinvoice/internal/invoice"
	invoicedomain "github.com/openinvoice/openinvoice/internal/invoice/domain"
	obsmetrics "github.com/openinvoice/openinvoice/internal/observability/metrics"
	"github.com/openinvoice/openinvoice/internal/product"
	productdomain "github.com/openinvoice/openinvoice/internal/product/domain"
	"github.com/openinvoice/openinvoice/internal/providers"
	"github.com/openinvoice/openinvoice/internal/providers/email"
	"github.com/openinvoice/openinvoice/internal/providers/pdf"
	"github.com/openinvoice/openinvoice/internal/report"
	"github.com/openinvoice/openinvoice/internal/settings"
	settingsdomain "github.com/openinvoice/openinvoice/internal/settings/domain"
	"github.com/openinvoice/openinvoice/internal/verification"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var Module = fx.Module("http.server",
	obsmetrics.Module,
	fx.Provide(registerGin),
	audit.Module,
	providers.Module,
	settings.Module,
	product.Module,
	invoice.Module,
	verification.Module,
	importer.Module,
	report.Module,
	fx.Invoke(NewServer),
	fx.Invoke(run),
)

func NewEngine(log *zap.Logger, httpMetrics *obsmetrics.HTTPMetrics, gatherer prometheus.Gatherer) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(RequestLogger(log))
	r.Use(obsmetrics.GinMiddleware(httpMetrics))
	r.Use(ErrorHandlingMiddleware())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})))

	return r
}

func registerGin(log *zap.Logger, httpMetrics *obsmetrics.HTTPMetrics, gatherer prometheus.Gatherer) *gin.Engine {
	return NewEngine(log, httpMetrics, gatherer)
}

func run(lc fx.Lifecycle, r *gin.Engine, cfg config.Config, log *zap.Logger) {
	srv := &http.Server{
		Addr:    cfg.HTTPAddr,
		Handler: r,
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			log.Info("http server listening", zap.String("addr", cfg.HTTPAddr))
			go func() {
				if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					panic(err)
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		},
	})
}

type Server struct {
	engine      *gin.Engine
	cfg         config.Config
	invoiceSvc  invoicedomain.Service
	productSvc  productdomain.Service
	settingsSvc settingsdomain.Service
	auditSvc    auditdomain.Service
	validator   *verification.Validator
	importer    *importer.Importer
	reportSvc   *report.Service
	pdfProvider pdf.Provider
	emailSvc    email.Provider
	metrics     *obsmetrics.Metrics
}

type ServerParams struct {
	fx.In

	Gin         *gin.Engine
	Cfg         config.Config
	InvoiceSvc  invoicedomain.Service
	ProductSvc  productdomain.Service
	SettingsSvc settingsdomain.Service
	AuditSvc    auditdomain.Service
	Validator   *verification.Validator
	Importer    *importer.Importer
	ReportSvc   *report.Service
	PDFProvider pdf.Provider
	EmailSvc    email.Provider
	Metrics     *obsmetrics.Metrics
}

func NewServer(p ServerParams) *Server {
	svc := &Server{
		engine:      p.Gin,
		cfg:         p.Cfg,
		invoiceSvc:  p.InvoiceSvc,
		productSvc:  p.ProductSvc,
		settingsSvc: p.SettingsSvc,
		auditSvc:    p.AuditSvc,
		validator:   p.Validator,
		importer:    p.Importer,
		reportSvc:   p.ReportSvc,
		pdfProvider: p.PDFProvider,
		emailSvc:    p.EmailSvc,
		metrics:     p.Metrics,
	}

	svc.registerRoutes()
	return svc
}

func (s *Server) Engine() *gin.Engine {
	return s.engine
}

func (s *Server) registerRoutes() {
	v1 := s.engine.Group("/v1")

	// -------- Invoices --------
	v1.POST("/invoices", s.CreateInvoice)
	v1.GET("/invoices", s.ListInvoices)
	v1.GET("/invoices/:number", s.GetInvoiceByNumber)
	v1.POST("/invoices/:number/return", s.ProcessReturn)
	v1.POST("/invoices/:number/email", s.EmailReceipt)
	v1.GET("/invoices/:number/pdf", s.RenderReceiptPDF)
	v1.GET("/invoices/:number/qr", s.RenderReceiptQR)

	// -------- Verification --------
	v1.POST("/verify/qr", s.VerifyQR)
	v1.GET("/verify/invoice/:number", s.VerifyInvoiceByNumber)
	v1.POST("/verify/chain", s.VerifyChain)

	// -------- Products --------
	v1.GET("/products", s.ListProducts)
	v1.POST("/products", s.CreateProduct)
	v1.GET("/products/:id", s.GetProductByID)
	v1.PATCH("/products/:id", s.UpdateProduct)
	v1.DELETE("/products/:id", s.DeleteProduct)
	v1.GET("/products/barcode/:code", s.GetProductByBarcode)
	v1.POST("/products/import", s.ImportProducts)

	// -------- Settings --------
	v1.GET("/settings", s.GetSettings)
	v1.PUT("/settings", s.UpdateSettings)
	v1.POST("/settings/email/test", s.TestEmailConnection)

	// -------- Reports --------
	v1.GET("/reports/daily", s.DailyReport)
	v1.GET("/reports/period", s.PeriodReport)
	v1.GET("/reports/top-products", s.TopProducts)
	v1.GET("/reports/export", s.ExportReportCSV)

	// -------- Audit trail --------
	v1.GET("/audit-logs", s.ListAuditLogs)
}
