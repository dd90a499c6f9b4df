// Package domain contains catalog models for products.
package domain

import "time"

// ProductStatus represents catalog lifecycle states.
type ProductStatus string

const (
	ProductStatusActive   ProductStatus = "active"
	ProductStatusInactive ProductStatus = "inactive"
)

// Product is a catalog entry. ID is the merchant-facing SKU (slugified from
// the name on CSV import when absent), not a database surrogate.
type Product struct {
	ID          string        `gorm:"primaryKey;type:text" json:"id"`
	Name        string        `gorm:"type:text;not null" json:"name"`
	Description string        `gorm:"type:text" json:"description"`
	Price       float64       `gorm:"not null" json:"price"`
	VATRate     float64       `gorm:"not null;default:21.0" json:"vat_rate"`
	Barcode     *string       `gorm:"type:text;uniqueIndex" json:"barcode,omitempty"`
	Stock       int64         `gorm:"not null;default:0" json:"stock"`
	Status      ProductStatus `gorm:"type:text;not null;default:'active'" json:"status"`
	CreatedAt   time.Time     `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt   time.Time     `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

// TableName sets the database table name.
func (Product) TableName() string { return "products" }
