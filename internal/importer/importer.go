// Package importer loads product catalogs from CSV exports. Column headers
// are matched loosely because every cash register vendor exports slightly
// different names for the same fields.
package importer

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/gosimple/slug"
	auditdomain "github.com/openinvoice/openinvoice/internal/audit/domain"
	"github.com/openinvoice/openinvoice/internal/observability/metrics"
	productdomain "github.com/openinvoice/openinvoice/internal/product/domain"
	"github.com/samber/lo"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// headerAliases maps vendor spellings onto canonical column names.
var headerAliases = map[string]string{
	"id":           "id",
	"sku":          "id",
	"code":         "id",
	"name":         "name",
	"product_name": "name",
	"title":        "name",
	"description":  "description",
	"price":        "price",
	"unit_price":   "price",
	"vat_rate":     "vat_rate",
	"vat":          "vat_rate",
	"tax_rate":     "vat_rate",
	"stock":        "stock",
	"qty":          "stock",
	"quantity":     "stock",
	"barcode":      "barcode",
	"ean":          "barcode",
	"upc":          "barcode",
}

// RowError pins a rejected row to its 1-based line number in the file.
type RowError struct {
	Line    int    `json:"line"`
	Message string `json:"message"`
}

type Summary struct {
	Created int        `json:"created"`
	Updated int        `json:"updated"`
	Errors  []RowError `json:"errors"`
}

type Params struct {
	fx.In

	DB      *gorm.DB
	Log     *zap.Logger
	Repo    productdomain.Repository
	Audit   auditdomain.Service
	Metrics *metrics.Metrics
}

type Importer struct {
	db      *gorm.DB
	log     *zap.Logger
	repo    productdomain.Repository
	audit   auditdomain.Service
	metrics *metrics.Metrics
}

func New(p Params) *Importer {
	return &Importer{
		db:      p.DB,
		log:     p.Log.Named("importer"),
		repo:    p.Repo,
		audit:   p.Audit,
		metrics: p.Metrics,
	}
}

// Import reads a CSV catalog. Rows are applied independently: a bad row is
// reported and skipped, it never aborts the rest of the file. Rows whose id
// (or slugified name) matches an existing product update it in place.
func (imp *Importer) Import(ctx context.Context, r io.Reader, defaultVATRate float64) (Summary, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		return Summary{}, fmt.Errorf("read csv header: %w", err)
	}

	columns := make(map[string]int, len(header))
	for i, name := range header {
		key := strings.ToLower(strings.TrimSpace(name))
		if canonical, ok := headerAliases[key]; ok {
			columns[canonical] = i
		}
	}
	if _, ok := columns["name"]; !ok {
		return Summary{}, fmt.Errorf("csv is missing a name column")
	}
	if _, ok := columns["price"]; !ok {
		return Summary{}, fmt.Errorf("csv is missing a price column")
	}

	var summary Summary
	line := 1

	for {
		line++
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			summary.Errors = append(summary.Errors, RowError{Line: line, Message: err.Error()})
			continue
		}

		created, err := imp.applyRow(ctx, columns, record, defaultVATRate)
		if err != nil {
			summary.Errors = append(summary.Errors, RowError{Line: line, Message: err.Error()})
			continue
		}
		if created {
			summary.Created++
		} else {
			summary.Updated++
		}
	}

	applied := summary.Created + summary.Updated
	imp.log.Info("catalog import finished",
		zap.Int("created", summary.Created),
		zap.Int("updated", summary.Updated),
		zap.Int("errors", len(summary.Errors)),
	)
	imp.metrics.RecordImportedRows(applied)
	_ = imp.audit.Record(ctx, auditdomain.ActionProductImported, "catalog", nil, map[string]any{
		"created": summary.Created,
		"updated": summary.Updated,
		"errors": lo.Map(summary.Errors, func(e RowError, _ int) int {
			return e.Line
		}),
	})
	return summary, nil
}

func (imp *Importer) applyRow(ctx context.Context, columns map[string]int, record []string, defaultVATRate float64) (bool, error) {
	field := func(name string) string {
		idx, ok := columns[name]
		if !ok || idx >= len(record) {
			return ""
		}
		return strings.TrimSpace(record[idx])
	}

	name := field("name")
	if name == "" {
		return false, fmt.Errorf("missing name")
	}

	priceRaw := field("price")
	if priceRaw == "" {
		return false, fmt.Errorf("missing price")
	}
	price, err := strconv.ParseFloat(normalizeDecimal(priceRaw), 64)
	if err != nil || price < 0 {
		return false, fmt.Errorf("invalid price %q", priceRaw)
	}

	vatRate := defaultVATRate
	if raw := field("vat_rate"); raw != "" {
		vatRate, err = strconv.ParseFloat(normalizeDecimal(raw), 64)
		if err != nil || vatRate < 0 {
			return false, fmt.Errorf("invalid vat rate %q", raw)
		}
	}

	var stock int64
	if raw := field("stock"); raw != "" {
		stock, err = strconv.ParseInt(raw, 10, 64)
		if err != nil || stock < 0 {
			return false, fmt.Errorf("invalid stock %q", raw)
		}
	}

	id := field("id")
	if id == "" {
		id = slug.Make(name)
	}

	var barcode *string
	if raw := field("barcode"); raw != "" {
		barcode = &raw
	}

	existing, err := imp.repo.FindByID(ctx, imp.db, id)
	if err != nil {
		return false, err
	}

	if existing != nil {
		existing.Name = name
		existing.Description = field("description")
		existing.Price = price
		existing.VATRate = vatRate
		existing.Stock = stock
		if barcode != nil {
			existing.Barcode = barcode
		}
		return false, imp.repo.Update(ctx, imp.db, existing)
	}

	return true, imp.repo.Create(ctx, imp.db, &productdomain.Product{
		ID:          id,
		Name:        name,
		Description: field("description"),
		Price:       price,
		VATRate:     vatRate,
		Barcode:     barcode,
		Stock:       stock,
		Status:      productdomain.ProductStatusActive,
	})
}

// normalizeDecimal accepts the comma decimal separator common in European
// exports.
func normalizeDecimal(value string) string {
	return strings.ReplaceAll(value, ",", ".")
}
