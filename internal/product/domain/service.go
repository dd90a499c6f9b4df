package domain

import (
	"context"
	"errors"

	"gorm.io/gorm"
)

type CreateProductRequest struct {
	ID          string  `json:"id"`
	Name        string  `json:"name"`
	Description string  `json:"description"`
	Price       float64 `json:"price"`
	VATRate     float64 `json:"vat_rate"`
	Barcode     *string `json:"barcode"`
	Stock       int64   `json:"stock"`
}

type UpdateProductRequest struct {
	Name        *string  `json:"name"`
	Description *string  `json:"description"`
	Price       *float64 `json:"price"`
	VATRate     *float64 `json:"vat_rate"`
	Barcode     *string  `json:"barcode"`
	Stock       *int64   `json:"stock"`
	Status      *string  `json:"status"`
}

type ListProductRequest struct {
	IncludeInactive bool   `form:"include_inactive"`
	Query           string `form:"q"`
}

type Service interface {
	Create(ctx context.Context, req CreateProductRequest) (*Product, error)
	Update(ctx context.Context, id string, req UpdateProductRequest) (*Product, error)
	// Delete deactivates a product that has been sold and removes one that
	// has not; invoices keep referring to sold products forever.
	Delete(ctx context.Context, id string) error
	GetByID(ctx context.Context, id string) (*Product, error)
	GetByBarcode(ctx context.Context, barcode string) (*Product, error)
	List(ctx context.Context, req ListProductRequest) ([]Product, error)
}

type Repository interface {
	Create(ctx context.Context, db *gorm.DB, product *Product) error
	Update(ctx context.Context, db *gorm.DB, product *Product) error
	Delete(ctx context.Context, db *gorm.DB, id string) error
	FindByID(ctx context.Context, db *gorm.DB, id string) (*Product, error)
	FindByBarcode(ctx context.Context, db *gorm.DB, barcode string) (*Product, error)
	List(ctx context.Context, db *gorm.DB, req ListProductRequest) ([]Product, error)
	// AdjustStock adds delta (negative on sale, positive on return) to the
	// product's stock inside the caller's transaction.
	AdjustStock(ctx context.Context, db *gorm.DB, id string, delta int64) error
	CountSales(ctx context.Context, db *gorm.DB, id string) (int64, error)
}

var (
	ErrNotFound         = errors.New("product_not_found")
	ErrDuplicateID      = errors.New("product_id_exists")
	ErrDuplicateBarcode = errors.New("product_barcode_exists")
	ErrInvalidPrice     = errors.New("invalid_product_price")
	ErrMissingName      = errors.New("missing_product_name")
)
