package domain

import (
	"context"
	"errors"

	"github.com/openinvoice/openinvoice/internal/hashchain"
	"gorm.io/gorm"
)

type CreateItemRequest struct {
	ProductID string `json:"product_id"`
	Quantity  int64  `json:"quantity"`
}

type CreateInvoiceRequest struct {
	Items         []CreateItemRequest `json:"items"`
	PaymentMethod string              `json:"payment_method"`
	CustomerEmail string              `json:"customer_email"`
}

type ListInvoiceRequest struct {
	StartDate string `form:"start_date"`
	EndDate   string `form:"end_date"`
}

type Service interface {
	Create(ctx context.Context, req CreateInvoiceRequest) (*Invoice, error)
	GetByNumber(ctx context.Context, invoiceNumber string) (*Invoice, error)
	List(ctx context.Context, req ListInvoiceRequest) ([]Invoice, error)
	ProcessReturn(ctx context.Context, invoiceNumber string, itemIDs []int64) (*Invoice, error)
	VerifyChain(ctx context.Context) (hashchain.ChainResult, error)
	EmailReceipt(ctx context.Context, invoiceNumber, to string) error
}

type Repository interface {
	Create(ctx context.Context, db *gorm.DB, invoice *Invoice) error
	GetByID(ctx context.Context, db *gorm.DB, id int64) (*Invoice, error)
	GetByNumber(ctx context.Context, db *gorm.DB, invoiceNumber string) (*Invoice, error)
	GetByHash(ctx context.Context, db *gorm.DB, currentHash string) (*Invoice, error)
	LatestHash(ctx context.Context, db *gorm.DB) (string, error)
	ListOrdered(ctx context.Context, db *gorm.DB) ([]Invoice, error)
	ListByDateRange(ctx context.Context, db *gorm.DB, startDate, endDate string) ([]Invoice, error)
	UpdateStatus(ctx context.Context, db *gorm.DB, id int64, status InvoiceStatus) error
	MarkItemReturned(ctx context.Context, db *gorm.DB, itemID int64) error
	NextInvoiceNumber(ctx context.Context, db *gorm.DB, year int) (string, error)
}

var (
	ErrNotFound            = errors.New("invoice_not_found")
	ErrEmptyItems          = errors.New("invoice_requires_items")
	ErrInvalidQuantity     = errors.New("invalid_item_quantity")
	ErrUnknownProduct      = errors.New("unknown_product")
	ErrInsufficientStock   = errors.New("insufficient_stock")
	ErrItemNotOnInvoice    = errors.New("item_not_on_invoice")
	ErrItemAlreadyReturned = errors.New("item_already_returned")
	ErrInvalidDateRange    = errors.New("invalid_date_range")
	ErrMissingRecipient    = errors.New("missing_recipient")
)
