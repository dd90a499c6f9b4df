// Package domain defines the audit trail. Every state-changing operation
// writes an entry; the trail itself is append-only.
package domain

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const (
	ActionInvoiceCreated  = "invoice.created"
	ActionInvoiceReturned = "invoice.returned"
	ActionProductCreated  = "product.created"
	ActionProductUpdated  = "product.updated"
	ActionProductDeleted  = "product.deleted"
	ActionProductImported = "product.imported"
	ActionSettingsUpdated = "settings.updated"
	ActionChainVerified   = "chain.verified"
	ActionReceiptEmailed  = "receipt.emailed"
)

// AuditLog is one trail entry. Details carries action-specific payload such
// as the invoice number or the changed setting keys.
type AuditLog struct {
	ID         snowflake.ID      `gorm:"primaryKey" json:"id"`
	Action     string            `gorm:"type:text;not null;index" json:"action"`
	TargetType string            `gorm:"type:text;not null" json:"target_type"`
	TargetID   *string           `gorm:"type:text" json:"target_id,omitempty"`
	Details    datatypes.JSONMap `gorm:"type:jsonb" json:"details"`
	CreatedAt  time.Time         `gorm:"not null;index" json:"created_at"`
}

// TableName sets the database table name.
func (AuditLog) TableName() string { return "audit_logs" }

type ListAuditLogRequest struct {
	Action     string `form:"action"`
	TargetType string `form:"target_type"`
	TargetID   string `form:"target_id"`
	Limit      int    `form:"limit"`
}

type ListFilter struct {
	Action     string
	TargetType string
	TargetID   string
	Limit      int
}

type Service interface {
	// Record never fails the caller's operation: repository errors are
	// logged and returned, but callers treat them as advisory.
	Record(ctx context.Context, action, targetType string, targetID *string, details map[string]any) error
	List(ctx context.Context, req ListAuditLogRequest) ([]AuditLog, error)
}

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, entry *AuditLog) error
	List(ctx context.Context, db *gorm.DB, filter ListFilter) ([]AuditLog, error)
}

var ErrInvalidAction = errors.New("invalid_audit_action")
