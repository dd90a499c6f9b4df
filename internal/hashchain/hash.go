// Package hashchain implements the tamper-evident invoice ledger core: a
// deterministic SHA-256 digest over each invoice's financial content plus its
// chain link, and a verifier that replays the full ledger against those
// digests.
package hashchain

import (
	"crypto/sha256"
	"encoding/hex"
)

// GenesisHash marks the absence of a predecessor: the first record in the
// ledger carries it as previous hash, and chain verification seeds from it.
const GenesisHash = "GENESIS"

// Item is the fixed shape of a line item as it enters the digest. Anything
// else an invoice line carries (display name, VAT rate, return status) is
// deliberately excluded from the hash.
type Item struct {
	ProductID string
	Quantity  int64
	UnitPrice float64
	LineTotal float64
}

// HashInput carries exactly the fields the digest covers. Using a fixed
// struct instead of a loose map means a misspelled field cannot silently
// produce a different but valid-looking hash.
type HashInput struct {
	InvoiceNumber string
	SellerID      string
	Total         float64
	Items         []Item
	CreatedAt     string // verbatim timestamp string as stored in the ledger
	PreviousHash  string
}

// ComputeHash returns the lowercase hex SHA-256 digest of the canonical
// encoding of in. Total is rounded to two decimal places first; items are
// digested in the order supplied. Pure function: no clock, no I/O.
func ComputeHash(in HashInput) string {
	payload := appendCanonical(make([]byte, 0, 256), in)
	sum := sha256.Sum256(payload)
	return hex.EncodeToString(sum[:])
}
