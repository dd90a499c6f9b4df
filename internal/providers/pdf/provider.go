// Package pdf renders printable receipts. The QR code on the receipt carries
// the same verification token that the API returns, so a paper copy can be
// checked against the ledger.
package pdf

import "context"

type ReceiptItem struct {
	Name      string
	Quantity  int64
	UnitPrice float64
	LineTotal float64
}

type ReceiptData struct {
	StoreName     string
	SellerID      string
	InvoiceNumber string
	CreatedAt     string
	Items         []ReceiptItem
	Subtotal      float64
	VATAmount     float64
	Total         float64
	PaymentMethod string
	QRData        string
	Footer        string
}

type Provider interface {
	GenerateReceipt(ctx context.Context, data ReceiptData) ([]byte, error)
}

type NoOpProvider struct{}

func (p *NoOpProvider) GenerateReceipt(ctx context.Context, data ReceiptData) ([]byte, error) {
	return nil, nil
}
