// Package metrics exposes the application's prometheus instruments,
// scraped via the /metrics endpoint.
package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/fx"
)

const (
	VerifyModeQR     = "qr"
	VerifyModeManual = "manual"
	VerifyModeChain  = "chain"

	ResultValid   = "valid"
	ResultInvalid = "invalid"
)

// Metrics captures invoice ledger health signals.
type Metrics struct {
	invoicesCreated *prometheus.CounterVec
	invoiceTotals   *prometheus.CounterVec
	verifications   *prometheus.CounterVec
	chainDuration   prometheus.Histogram
	importedRows    prometheus.Counter
	receiptsEmailed prometheus.Counter
	receiptPDFs     prometheus.Counter
}

func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		invoicesCreated: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "openinvoice_invoices_created_total",
			Help: "Invoices appended to the ledger.",
		}, []string{"payment_method"}),
		invoiceTotals: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "openinvoice_invoice_amount_total",
			Help: "Gross invoice amount appended to the ledger.",
		}, []string{"payment_method"}),
		verifications: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "openinvoice_verifications_total",
			Help: "Receipt and chain verification outcomes.",
		}, []string{"mode", "result"}),
		chainDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "openinvoice_chain_verify_duration_seconds",
			Help:    "Wall time of full ledger chain scans.",
			Buckets: prometheus.DefBuckets,
		}),
		importedRows: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "openinvoice_products_imported_total",
			Help: "Product rows imported from CSV.",
		}),
		receiptsEmailed: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "openinvoice_receipts_emailed_total",
			Help: "Receipts delivered by email.",
		}),
		receiptPDFs: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "openinvoice_receipt_pdfs_total",
			Help: "Receipt PDFs rendered.",
		}),
	}

	reg.MustRegister(
		m.invoicesCreated,
		m.invoiceTotals,
		m.verifications,
		m.chainDuration,
		m.importedRows,
		m.receiptsEmailed,
		m.receiptPDFs,
	)
	return m
}

func (m *Metrics) RecordInvoiceCreated(paymentMethod string, total float64) {
	if m == nil {
		return
	}
	if paymentMethod == "" {
		paymentMethod = "unknown"
	}
	m.invoicesCreated.WithLabelValues(paymentMethod).Inc()
	m.invoiceTotals.WithLabelValues(paymentMethod).Add(total)
}

func (m *Metrics) RecordVerification(mode string, valid bool) {
	if m == nil {
		return
	}
	result := ResultInvalid
	if valid {
		result = ResultValid
	}
	m.verifications.WithLabelValues(mode, result).Inc()
}

func (m *Metrics) ObserveChainScan(d time.Duration) {
	if m == nil {
		return
	}
	m.chainDuration.Observe(d.Seconds())
}

func (m *Metrics) RecordImportedRows(n int) {
	if m == nil {
		return
	}
	m.importedRows.Add(float64(n))
}

func (m *Metrics) RecordReceiptEmailed() {
	if m == nil {
		return
	}
	m.receiptsEmailed.Inc()
}

func (m *Metrics) RecordReceiptPDF() {
	if m == nil {
		return
	}
	m.receiptPDFs.Inc()
}

// HTTPMetrics instruments the gin request path.
type HTTPMetrics struct {
	requests *prometheus.CounterVec
	duration *prometheus.HistogramVec
}

func NewHTTP(reg prometheus.Registerer) *HTTPMetrics {
	h := &HTTPMetrics{
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "openinvoice_http_requests_total",
			Help: "HTTP requests by route, method and status.",
		}, []string{"route", "method", "status"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "openinvoice_http_request_duration_seconds",
			Help:    "HTTP request latency by route and method.",
			Buckets: prometheus.DefBuckets,
		}, []string{"route", "method"}),
	}
	reg.MustRegister(h.requests, h.duration)
	return h
}

func (h *HTTPMetrics) Observe(route, method string, status int, elapsed time.Duration) {
	if h == nil {
		return
	}
	h.requests.WithLabelValues(route, method, strconv.Itoa(status)).Inc()
	h.duration.WithLabelValues(route, method).Observe(elapsed.Seconds())
}

func newRegistry() *prometheus.Registry {
	reg := prometheus.NewRegistry()
	return reg
}

func provideRegisterer(reg *prometheus.Registry) prometheus.Registerer { return reg }

func provideGatherer(reg *prometheus.Registry) prometheus.Gatherer { return reg }

var Module = fx.Module("observability.metrics",
	fx.Provide(
		newRegistry,
		provideRegisterer,
		provideGatherer,
		New,
		NewHTTP,
	),
)
