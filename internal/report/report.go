// Package report aggregates the ledger into sales figures. Reports are
// computed from the stored invoices on demand; nothing here writes.
package report

import (
	"bytes"
	"context"
	"encoding/csv"
	"sort"
	"strconv"

	invoicedomain "github.com/openinvoice/openinvoice/internal/invoice/domain"
	"github.com/samber/lo"
	"github.com/shopspring/decimal"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type DailyReport struct {
	Date            string             `json:"date"`
	InvoiceCount    int                `json:"invoice_count"`
	GrossTotal      float64            `json:"gross_total"`
	VATTotal        float64            `json:"vat_total"`
	NetTotal        float64            `json:"net_total"`
	ByPaymentMethod map[string]float64 `json:"by_payment_method"`
}

type PeriodReport struct {
	StartDate    string        `json:"start_date"`
	EndDate      string        `json:"end_date"`
	InvoiceCount int           `json:"invoice_count"`
	GrossTotal   float64       `json:"gross_total"`
	VATTotal     float64       `json:"vat_total"`
	NetTotal     float64       `json:"net_total"`
	Days         []DailyReport `json:"days"`
}

type ProductSales struct {
	ProductID    string  `json:"product_id"`
	ProductName  string  `json:"product_name"`
	QuantitySold int64   `json:"quantity_sold"`
	Revenue      float64 `json:"revenue"`
}

type Params struct {
	fx.In

	DB   *gorm.DB
	Log  *zap.Logger
	Repo invoicedomain.Repository
}

type Service struct {
	db   *gorm.DB
	log  *zap.Logger
	repo invoicedomain.Repository
}

func New(p Params) *Service {
	return &Service{
		db:   p.DB,
		log:  p.Log.Named("report"),
		repo: p.Repo,
	}
}

func (s *Service) Daily(ctx context.Context, date string) (DailyReport, error) {
	invoices, err := s.repo.ListByDateRange(ctx, s.db, date, date)
	if err != nil {
		return DailyReport{}, err
	}
	return buildDaily(date, invoices), nil
}

func (s *Service) Period(ctx context.Context, startDate, endDate string) (PeriodReport, error) {
	invoices, err := s.repo.ListByDateRange(ctx, s.db, startDate, endDate)
	if err != nil {
		return PeriodReport{}, err
	}

	byDay := lo.GroupBy(invoices, func(inv invoicedomain.Invoice) string {
		return invoiceDate(inv)
	})

	days := make([]DailyReport, 0, len(byDay))
	for date, dayInvoices := range byDay {
		days = append(days, buildDaily(date, dayInvoices))
	}
	sort.Slice(days, func(i, j int) bool { return days[i].Date < days[j].Date })

	report := PeriodReport{
		StartDate: startDate,
		EndDate:   endDate,
		Days:      days,
	}
	gross, vat := decimal.Zero, decimal.Zero
	for _, day := range days {
		report.InvoiceCount += day.InvoiceCount
		gross = gross.Add(decimal.NewFromFloat(day.GrossTotal))
		vat = vat.Add(decimal.NewFromFloat(day.VATTotal))
	}
	report.GrossTotal = gross.InexactFloat64()
	report.VATTotal = vat.InexactFloat64()
	report.NetTotal = gross.Sub(vat).InexactFloat64()
	return report, nil
}

// TopProducts ranks products by revenue over a period. Returned lines do not
// count.
func (s *Service) TopProducts(ctx context.Context, startDate, endDate string, limit int) ([]ProductSales, error) {
	invoices, err := s.repo.ListByDateRange(ctx, s.db, startDate, endDate)
	if err != nil {
		return nil, err
	}

	type acc struct {
		name     string
		quantity int64
		revenue  decimal.Decimal
	}
	totals := map[string]*acc{}

	for _, invoice := range invoices {
		for _, item := range invoice.Items {
			if item.ReturnStatus == invoicedomain.ItemReturnReturned {
				continue
			}
			entry, ok := totals[item.ProductID]
			if !ok {
				entry = &acc{name: item.ProductName}
				totals[item.ProductID] = entry
			}
			entry.quantity += item.Quantity
			entry.revenue = entry.revenue.Add(decimal.NewFromFloat(item.LineTotal))
		}
	}

	ranking := make([]ProductSales, 0, len(totals))
	for id, entry := range totals {
		ranking = append(ranking, ProductSales{
			ProductID:    id,
			ProductName:  entry.name,
			QuantitySold: entry.quantity,
			Revenue:      entry.revenue.InexactFloat64(),
		})
	}
	sort.Slice(ranking, func(i, j int) bool {
		if ranking[i].Revenue != ranking[j].Revenue {
			return ranking[i].Revenue > ranking[j].Revenue
		}
		return ranking[i].ProductID < ranking[j].ProductID
	})

	if limit > 0 && len(ranking) > limit {
		ranking = ranking[:limit]
	}
	return ranking, nil
}

// ExportCSV renders the period's invoices as a bookkeeping export, one line
// per invoice.
func (s *Service) ExportCSV(ctx context.Context, startDate, endDate string) ([]byte, error) {
	invoices, err := s.repo.ListByDateRange(ctx, s.db, startDate, endDate)
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	w := csv.NewWriter(&buf)

	header := []string{"invoice_number", "created_at", "status", "payment_method", "subtotal", "vat_amount", "total", "current_hash"}
	if err := w.Write(header); err != nil {
		return nil, err
	}
	for _, invoice := range invoices {
		row := []string{
			invoice.InvoiceNumber,
			invoice.CreatedAt,
			string(invoice.Status),
			invoice.PaymentMethod,
			formatAmount(invoice.Subtotal),
			formatAmount(invoice.VATAmount),
			formatAmount(invoice.Total),
			invoice.CurrentHash,
		}
		if err := w.Write(row); err != nil {
			return nil, err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, err
	}

	s.log.Info("csv export generated",
		zap.String("start_date", startDate),
		zap.String("end_date", endDate),
		zap.Int("invoices", len(invoices)),
	)
	return buf.Bytes(), nil
}

func buildDaily(date string, invoices []invoicedomain.Invoice) DailyReport {
	report := DailyReport{
		Date:            date,
		ByPaymentMethod: map[string]float64{},
	}

	gross, vat := decimal.Zero, decimal.Zero
	byMethod := map[string]decimal.Decimal{}

	for _, invoice := range invoices {
		if invoice.Status == invoicedomain.InvoiceStatusReturned {
			continue
		}
		report.InvoiceCount++
		gross = gross.Add(decimal.NewFromFloat(invoice.Total))
		vat = vat.Add(decimal.NewFromFloat(invoice.VATAmount))

		method := invoice.PaymentMethod
		if method == "" {
			method = "unknown"
		}
		byMethod[method] = byMethod[method].Add(decimal.NewFromFloat(invoice.Total))
	}

	report.GrossTotal = gross.InexactFloat64()
	report.VATTotal = vat.InexactFloat64()
	report.NetTotal = gross.Sub(vat).InexactFloat64()
	for method, amount := range byMethod {
		report.ByPaymentMethod[method] = amount.InexactFloat64()
	}
	return report
}

func invoiceDate(invoice invoicedomain.Invoice) string {
	if len(invoice.CreatedAt) >= 10 {
		return invoice.CreatedAt[:10]
	}
	return invoice.CreatedAt
}

func formatAmount(v float64) string {
	return strconv.FormatFloat(v, 'f', 2, 64)
}
