// Package domain contains the ledger models for invoicing. Invoices are
// append-only: the hashed fields (totals, items, timestamps, chain hashes)
// are never updated after creation. Returns flip a separate status flag.
package domain

// InvoiceStatus represents invoice lifecycle states.
type InvoiceStatus string

const (
	InvoiceStatusCompleted     InvoiceStatus = "completed"
	InvoiceStatusReturned      InvoiceStatus = "returned"
	InvoiceStatusPartialReturn InvoiceStatus = "partial_return"
)

// ItemReturnStatus marks whether a single line has been returned.
type ItemReturnStatus string

const (
	ItemReturnNone     ItemReturnStatus = "none"
	ItemReturnReturned ItemReturnStatus = "returned"
)

// Invoice is one ledger record. ID doubles as the chain sequence id:
// autoincrement, assigned by the database, never reused. CreatedAt is stored
// as an RFC3339 text column because the hash covers the verbatim string; a
// native timestamp column would not round-trip byte-exactly across dialects.
type Invoice struct {
	ID            int64         `gorm:"primaryKey;autoIncrement" json:"id"`
	InvoiceNumber string        `gorm:"type:text;not null;uniqueIndex" json:"invoice_number"`
	SellerID      string        `gorm:"type:text;not null" json:"seller_id"`
	StoreName     string        `gorm:"type:text;not null" json:"store_name"`
	Subtotal      float64       `gorm:"not null" json:"subtotal"`
	VATAmount     float64       `gorm:"not null" json:"vat_amount"`
	Total         float64       `gorm:"not null" json:"total"`
	PaymentMethod string        `gorm:"type:text" json:"payment_method,omitempty"`
	CustomerEmail string        `gorm:"type:text" json:"customer_email,omitempty"`
	PreviousHash  string        `gorm:"type:text;not null;index" json:"previous_hash"`
	CurrentHash   string        `gorm:"type:text;not null;uniqueIndex" json:"current_hash"`
	QRData        string        `gorm:"type:text;not null" json:"qr_data"`
	Status        InvoiceStatus `gorm:"type:text;not null;default:'completed'" json:"status"`
	CreatedAt     string        `gorm:"type:text;not null;index" json:"created_at"`
	Items         []InvoiceItem `gorm:"foreignKey:InvoiceID" json:"items"`
}

// TableName sets the database table name.
func (Invoice) TableName() string { return "invoices" }

// InvoiceItem is a line on an invoice. The hashed fields are ProductID,
// Quantity, UnitPrice and LineTotal; ProductName, VATRate and ReturnStatus
// are display/lifecycle data outside the digest.
type InvoiceItem struct {
	ID           int64            `gorm:"primaryKey;autoIncrement" json:"id"`
	InvoiceID    int64            `gorm:"not null;index" json:"invoice_id"`
	ProductID    string           `gorm:"type:text;not null" json:"product_id"`
	ProductName  string           `gorm:"type:text;not null" json:"product_name"`
	Quantity     int64            `gorm:"not null" json:"quantity"`
	UnitPrice    float64          `gorm:"not null" json:"unit_price"`
	VATRate      float64          `gorm:"not null" json:"vat_rate"`
	LineTotal    float64          `gorm:"not null" json:"line_total"`
	ReturnStatus ItemReturnStatus `gorm:"type:text;not null;default:'none'" json:"return_status"`
}

// TableName sets the database table name.
func (InvoiceItem) TableName() string { return "invoice_items" }
