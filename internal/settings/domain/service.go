// Package domain defines store settings: a small key/value table holding the
// merchant identity printed on every receipt. Values live in the database so
// the store can change them without a restart; environment variables only
// seed the initial row set.
package domain

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
)

const (
	KeyStoreName      = "store_name"
	KeySellerID       = "seller_id"
	KeyDefaultVATRate = "default_vat_rate"
	KeyReceiptFooter  = "receipt_footer"
)

// Setting is one key/value row.
type Setting struct {
	Key       string    `gorm:"primaryKey;type:text" json:"key"`
	Value     string    `gorm:"type:text;not null" json:"value"`
	UpdatedAt time.Time `gorm:"not null" json:"updated_at"`
}

// TableName sets the database table name.
func (Setting) TableName() string { return "settings" }

// StoreProfile is the resolved identity stamped on invoices.
type StoreProfile struct {
	StoreName      string  `json:"store_name"`
	SellerID       string  `json:"seller_id"`
	DefaultVATRate float64 `json:"default_vat_rate"`
	ReceiptFooter  string  `json:"receipt_footer"`
}

type Service interface {
	GetAll(ctx context.Context) (map[string]string, error)
	Profile(ctx context.Context) (StoreProfile, error)
	// UpdateMany applies all changes in one transaction and audits the
	// changed keys. Unknown keys are rejected.
	UpdateMany(ctx context.Context, values map[string]string) error
}

type Repository interface {
	GetAll(ctx context.Context, db *gorm.DB) ([]Setting, error)
	Get(ctx context.Context, db *gorm.DB, key string) (*Setting, error)
	Upsert(ctx context.Context, db *gorm.DB, key, value string) error
}

var (
	ErrUnknownKey   = errors.New("unknown_setting_key")
	ErrEmptyUpdate  = errors.New("empty_settings_update")
	ErrInvalidValue = errors.New("invalid_setting_value")
)
