package service

import (
	"context"

	"github.com/openinvoice/openinvoice/internal/invoice/domain"
	"github.com/openinvoice/openinvoice/internal/verification"
	"gorm.io/gorm"
)

// ledgerAdapter exposes the invoice store to the receipt validator as a
// narrow read-only view.
type ledgerAdapter struct {
	db   *gorm.DB
	repo domain.Repository
}

func NewLedger(db *gorm.DB, repo domain.Repository) verification.Ledger {
	return &ledgerAdapter{db: db, repo: repo}
}

func (l *ledgerAdapter) GetByNumber(ctx context.Context, invoiceNumber string) (*verification.Record, error) {
	invoice, err := l.repo.GetByNumber(ctx, l.db, invoiceNumber)
	if err != nil {
		return nil, err
	}
	return toRecord(invoice), nil
}

func (l *ledgerAdapter) GetByHash(ctx context.Context, currentHash string) (*verification.Record, error) {
	invoice, err := l.repo.GetByHash(ctx, l.db, currentHash)
	if err != nil {
		return nil, err
	}
	return toRecord(invoice), nil
}

func toRecord(invoice *domain.Invoice) *verification.Record {
	if invoice == nil {
		return nil
	}

	items := make([]verification.ItemRecord, 0, len(invoice.Items))
	for _, item := range invoice.Items {
		items = append(items, verification.ItemRecord{
			ID:           item.ID,
			ProductID:    item.ProductID,
			ProductName:  item.ProductName,
			Quantity:     item.Quantity,
			UnitPrice:    item.UnitPrice,
			VATRate:      item.VATRate,
			LineTotal:    item.LineTotal,
			ReturnStatus: string(item.ReturnStatus),
		})
	}

	return &verification.Record{
		SequenceID:    invoice.ID,
		InvoiceNumber: invoice.InvoiceNumber,
		SellerID:      invoice.SellerID,
		StoreName:     invoice.StoreName,
		Subtotal:      invoice.Subtotal,
		VATAmount:     invoice.VATAmount,
		Total:         invoice.Total,
		PaymentMethod: invoice.PaymentMethod,
		Status:        string(invoice.Status),
		CreatedAt:     invoice.CreatedAt,
		PreviousHash:  invoice.PreviousHash,
		CurrentHash:   invoice.CurrentHash,
		QRData:        invoice.QRData,
		Items:         items,
	}
}
