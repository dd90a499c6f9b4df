package repository

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/openinvoice/openinvoice/internal/hashchain"
	"github.com/openinvoice/openinvoice/internal/invoice/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

// Create inserts the invoice and its items in one transaction. The caller
// has already minted number, hashes and token; this only persists.
func (r *repo) Create(ctx context.Context, db *gorm.DB, invoice *domain.Invoice) error {
	return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		items := invoice.Items
		invoice.Items = nil
		if err := tx.Create(invoice).Error; err != nil {
			invoice.Items = items
			return err
		}
		for i := range items {
			items[i].InvoiceID = invoice.ID
		}
		if len(items) > 0 {
			if err := tx.Create(&items).Error; err != nil {
				return err
			}
		}
		invoice.Items = items
		return nil
	})
}

func (r *repo) GetByID(ctx context.Context, db *gorm.DB, id int64) (*domain.Invoice, error) {
	return r.getOne(ctx, db, "id = ?", id)
}

func (r *repo) GetByNumber(ctx context.Context, db *gorm.DB, invoiceNumber string) (*domain.Invoice, error) {
	return r.getOne(ctx, db, "invoice_number = ?", invoiceNumber)
}

func (r *repo) GetByHash(ctx context.Context, db *gorm.DB, currentHash string) (*domain.Invoice, error) {
	return r.getOne(ctx, db, "current_hash = ?", currentHash)
}

func (r *repo) getOne(ctx context.Context, db *gorm.DB, query string, arg any) (*domain.Invoice, error) {
	var invoice domain.Invoice
	err := db.WithContext(ctx).
		Preload("Items").
		Where(query, arg).
		First(&invoice).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &invoice, nil
}

// LatestHash returns the newest record's current hash, or the genesis
// sentinel on an empty ledger.
func (r *repo) LatestHash(ctx context.Context, db *gorm.DB) (string, error) {
	var hash string
	err := db.WithContext(ctx).Raw(
		`SELECT current_hash FROM invoices ORDER BY id DESC LIMIT 1`,
	).Scan(&hash).Error
	if err != nil {
		return "", err
	}
	if hash == "" {
		return hashchain.GenesisHash, nil
	}
	return hash, nil
}

// ListOrdered returns the full ledger ascending by sequence id, items
// preloaded, for chain verification.
func (r *repo) ListOrdered(ctx context.Context, db *gorm.DB) ([]domain.Invoice, error) {
	var invoices []domain.Invoice
	err := db.WithContext(ctx).
		Preload("Items", func(tx *gorm.DB) *gorm.DB { return tx.Order("invoice_items.id ASC") }).
		Order("id ASC").
		Find(&invoices).Error
	if err != nil {
		return nil, err
	}
	return invoices, nil
}

func (r *repo) ListByDateRange(ctx context.Context, db *gorm.DB, startDate, endDate string) ([]domain.Invoice, error) {
	var invoices []domain.Invoice
	err := db.WithContext(ctx).
		Preload("Items").
		Where("created_at >= ? AND created_at < ?", startDate, dayAfter(endDate)).
		Order("created_at DESC").
		Find(&invoices).Error
	if err != nil {
		return nil, err
	}
	return invoices, nil
}

func (r *repo) UpdateStatus(ctx context.Context, db *gorm.DB, id int64, status domain.InvoiceStatus) error {
	return db.WithContext(ctx).Exec(
		`UPDATE invoices SET status = ? WHERE id = ?`,
		status, id,
	).Error
}

func (r *repo) MarkItemReturned(ctx context.Context, db *gorm.DB, itemID int64) error {
	return db.WithContext(ctx).Exec(
		`UPDATE invoice_items SET return_status = ? WHERE id = ?`,
		domain.ItemReturnReturned, itemID,
	).Error
}

// NextInvoiceNumber generates INV-<year>-NNNN, continuing from the highest
// number already issued for that year.
func (r *repo) NextInvoiceNumber(ctx context.Context, db *gorm.DB, year int) (string, error) {
	prefix := fmt.Sprintf("INV-%d-", year)

	var last string
	err := db.WithContext(ctx).Raw(
		`SELECT invoice_number FROM invoices WHERE invoice_number LIKE ? ORDER BY id DESC LIMIT 1`,
		prefix+"%",
	).Scan(&last).Error
	if err != nil {
		return "", err
	}

	next := 1
	if last != "" {
		if n, err := strconv.Atoi(last[strings.LastIndex(last, "-")+1:]); err == nil {
			next = n + 1
		}
	}
	return fmt.Sprintf("%s%04d", prefix, next), nil
}

// dayAfter widens an inclusive YYYY-MM-DD end date into an exclusive upper
// bound. RFC3339 strings order lexicographically, so created_at < the next
// calendar day captures everything on the end date.
func dayAfter(date string) string {
	t, err := time.Parse("2006-01-02", date)
	if err != nil {
		return date
	}
	return t.AddDate(0, 0, 1).Format("2006-01-02")
}
