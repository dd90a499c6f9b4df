// Package verification answers "is this scanned receipt authentic" by tying
// a token back to the stored ledger record through a fixed sequence of
// checks. Tampering and bad input are normal operating conditions here, so
// every negative outcome is a structured result, never an error; only ledger
// infrastructure failures propagate as errors.
package verification

import (
	"context"
	"fmt"
	"math"

	"go.uber.org/zap"

	"github.com/openinvoice/openinvoice/internal/hashchain"
	"github.com/openinvoice/openinvoice/internal/token"
)

// Check names as they appear in results. Validate runs the first five in
// order; ValidateByNumber runs exists, verified and chain.
const (
	CheckFormatValid   = "format_valid"
	CheckInvoiceExists = "invoice_exists"
	CheckHashMatches   = "hash_matches"
	CheckTotalMatches  = "total_matches"
	CheckHashVerified  = "hash_verified"
	CheckChainValid    = "chain_valid"
)

// totalTolerance absorbs the 2dp rounding of the token encoding. Absolute,
// not relative: the store operates in a single 2-minor-unit currency.
const totalTolerance = 0.01

// ItemRecord mirrors a stored invoice line for validation and display.
type ItemRecord struct {
	ID           int64   `json:"id"`
	ProductID    string  `json:"product_id"`
	ProductName  string  `json:"product_name"`
	Quantity     int64   `json:"quantity"`
	UnitPrice    float64 `json:"unit_price"`
	VATRate      float64 `json:"vat_rate"`
	LineTotal    float64 `json:"line_total"`
	ReturnStatus string  `json:"return_status"`
}

// Record is the validator's read-only view of a ledger row.
type Record struct {
	SequenceID    int64        `json:"sequence_id"`
	InvoiceNumber string       `json:"invoice_number"`
	SellerID      string       `json:"seller_id"`
	StoreName     string       `json:"store_name"`
	Subtotal      float64      `json:"subtotal"`
	VATAmount     float64      `json:"vat_amount"`
	Total         float64      `json:"total"`
	PaymentMethod string       `json:"payment_method,omitempty"`
	Status        string       `json:"status"`
	CreatedAt     string       `json:"created_at"`
	PreviousHash  string       `json:"previous_hash"`
	CurrentHash   string       `json:"current_hash"`
	QRData        string       `json:"qr_data"`
	Items         []ItemRecord `json:"items"`
}

// Ledger is the narrow read contract the validator consumes. Lookups return
// (nil, nil) when no record matches; errors are infrastructure failures.
type Ledger interface {
	GetByNumber(ctx context.Context, invoiceNumber string) (*Record, error)
	GetByHash(ctx context.Context, currentHash string) (*Record, error)
}

// Result reports validity plus the per-check outcome, so a caller gets an
// actionable diagnosis (bad scan vs unknown invoice vs forged QR vs edited
// total vs edited ledger row) instead of a bare "invalid".
type Result struct {
	Valid         bool            `json:"valid"`
	InvoiceNumber string          `json:"invoice_number,omitempty"`
	Message       string          `json:"message,omitempty"`
	Invoice       *Record         `json:"invoice,omitempty"`
	Checks        map[string]bool `json:"checks"`
}

// Validator validates scanned tokens against an injected ledger handle.
type Validator struct {
	ledger Ledger
	log    *zap.Logger
}

func NewValidator(ledger Ledger, log *zap.Logger) *Validator {
	return &Validator{ledger: ledger, log: log.Named("verification")}
}

// Validate runs the five-stage pipeline over a scanned QR token,
// short-circuiting on the first failure while retaining every flag.
func (v *Validator) Validate(ctx context.Context, qrData string) (Result, error) {
	checks := map[string]bool{
		CheckFormatValid:   false,
		CheckInvoiceExists: false,
		CheckHashMatches:   false,
		CheckTotalMatches:  false,
		CheckHashVerified:  false,
	}

	fields, ok := token.Decode(qrData)
	if !ok {
		return Result{Valid: false, Message: "Invalid QR code format", Checks: checks}, nil
	}
	checks[CheckFormatValid] = true

	invoice, err := v.ledger.GetByNumber(ctx, fields.InvoiceNumber)
	if err != nil {
		return Result{}, err
	}
	if invoice == nil {
		return Result{
			Valid:         false,
			InvoiceNumber: fields.InvoiceNumber,
			Message:       fmt.Sprintf("Invoice %s not found", fields.InvoiceNumber),
			Checks:        checks,
		}, nil
	}
	checks[CheckInvoiceExists] = true

	// Prefix equality before the full recompute is intentional defense in
	// depth: a token whose prefix happens to collide with a different record
	// still has to survive the full digest below.
	if token.HashPrefix(invoice.CurrentHash) != fields.HashPrefix {
		return Result{
			Valid:         false,
			InvoiceNumber: invoice.InvoiceNumber,
			Message:       "Hash verification failed - receipt may be tampered",
			Checks:        checks,
		}, nil
	}
	checks[CheckHashMatches] = true

	if math.Abs(invoice.Total-fields.Total) > totalTolerance {
		return Result{
			Valid:         false,
			InvoiceNumber: invoice.InvoiceNumber,
			Message:       "Total amount mismatch - receipt may be tampered",
			Checks:        checks,
		}, nil
	}
	checks[CheckTotalMatches] = true

	if hashchain.ComputeHash(hashInput(invoice)) != invoice.CurrentHash {
		v.log.Warn("stored invoice fails integrity recompute",
			zap.String("invoice_number", invoice.InvoiceNumber),
			zap.Int64("sequence_id", invoice.SequenceID),
		)
		return Result{
			Valid:         false,
			InvoiceNumber: invoice.InvoiceNumber,
			Message:       "Invoice data integrity check failed",
			Checks:        checks,
		}, nil
	}
	checks[CheckHashVerified] = true

	return Result{
		Valid:         true,
		InvoiceNumber: invoice.InvoiceNumber,
		Invoice:       invoice,
		Checks:        checks,
	}, nil
}

// ValidateByNumber validates a stored invoice without a QR token: existence,
// full digest recompute, and that the predecessor the record points at is
// itself present in the ledger. Used for manual spot checks at the counter.
func (v *Validator) ValidateByNumber(ctx context.Context, invoiceNumber string) (Result, error) {
	checks := map[string]bool{
		CheckInvoiceExists: false,
		CheckHashVerified:  false,
		CheckChainValid:    false,
	}

	invoice, err := v.ledger.GetByNumber(ctx, invoiceNumber)
	if err != nil {
		return Result{}, err
	}
	if invoice == nil {
		return Result{
			Valid:         false,
			InvoiceNumber: invoiceNumber,
			Message:       fmt.Sprintf("Invoice %s not found", invoiceNumber),
			Checks:        checks,
		}, nil
	}
	checks[CheckInvoiceExists] = true

	if hashchain.ComputeHash(hashInput(invoice)) != invoice.CurrentHash {
		return Result{
			Valid:         false,
			InvoiceNumber: invoice.InvoiceNumber,
			Message:       "Invoice hash verification failed",
			Checks:        checks,
		}, nil
	}
	checks[CheckHashVerified] = true

	if invoice.PreviousHash != "" && invoice.PreviousHash != hashchain.GenesisHash {
		predecessor, err := v.ledger.GetByHash(ctx, invoice.PreviousHash)
		if err != nil {
			return Result{}, err
		}
		if predecessor == nil {
			return Result{
				Valid:         false,
				InvoiceNumber: invoice.InvoiceNumber,
				Message:       "Hash chain broken - previous invoice not found",
				Checks:        checks,
			}, nil
		}
	}
	checks[CheckChainValid] = true

	return Result{
		Valid:         true,
		InvoiceNumber: invoice.InvoiceNumber,
		Invoice:       invoice,
		Checks:        checks,
	}, nil
}

func hashInput(rec *Record) hashchain.HashInput {
	items := make([]hashchain.Item, 0, len(rec.Items))
	for _, item := range rec.Items {
		items = append(items, hashchain.Item{
			ProductID: item.ProductID,
			Quantity:  item.Quantity,
			UnitPrice: item.UnitPrice,
			LineTotal: item.LineTotal,
		})
	}

	previous := rec.PreviousHash
	if previous == "" {
		previous = hashchain.GenesisHash
	}

	return hashchain.HashInput{
		InvoiceNumber: rec.InvoiceNumber,
		SellerID:      rec.SellerID,
		Total:         rec.Total,
		Items:         items,
		CreatedAt:     rec.CreatedAt,
		PreviousHash:  previous,
	}
}
