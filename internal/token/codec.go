// Package token implements the compact verification token carried in a
// receipt's QR code. The wire format is versioned and bit-exact:
//
//	OPENINVOICE|v1|<invoice_number>|<total 2dp>|<8 hex chars>|<unix seconds>
//
// Pipe is the sole reserved character; invoice numbers must not contain it.
package token

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

const (
	// Prefix identifies this system's tokens.
	Prefix = "OPENINVOICE"
	// Version tags the token format. Bump on any wire change.
	Version = "v1"

	fieldCount    = 6
	hashPrefixLen = 8
	emptyPrefix   = "00000000"
)

var (
	ErrReservedCharacter = errors.New("invoice number contains reserved character '|'")
	ErrEmptyInvoice      = errors.New("invoice number is empty")
	ErrInvalidTimestamp  = errors.New("timestamp is not a recognized ISO-8601 form")
)

// timestampLayouts are the forms the ledger emits: RFC3339 (with or without
// sub-second precision) and the space-separated variant older SQLite rows
// carry. Anything else is rejected rather than silently replaced; a token
// must be exactly reproducible from its record.
var timestampLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
}

// Fields holds the decoded components of a token.
type Fields struct {
	Version       string  `json:"version"`
	InvoiceNumber string  `json:"invoice_number"`
	Total         float64 `json:"total"`
	HashPrefix    string  `json:"hash_prefix"`
	Timestamp     int64   `json:"timestamp"`
}

// Encode builds the token string for an invoice. createdAt is the record's
// stored timestamp string; it is converted to whole unix seconds so that a
// re-encode from the same record always yields the same token.
func Encode(invoiceNumber string, total float64, fullHash, createdAt string) (string, error) {
	if invoiceNumber == "" {
		return "", ErrEmptyInvoice
	}
	if strings.ContainsRune(invoiceNumber, '|') {
		return "", ErrReservedCharacter
	}

	unix, err := parseTimestamp(createdAt)
	if err != nil {
		return "", err
	}

	return fmt.Sprintf("%s|%s|%s|%.2f|%s|%d",
		Prefix, Version, invoiceNumber, total, HashPrefix(fullHash), unix), nil
}

// Decode parses a scanned token. The second return value reports whether the
// token was well formed; malformed input is absence of a token, never a
// panic or a partial result.
func Decode(token string) (Fields, bool) {
	parts := strings.Split(token, "|")
	if len(parts) != fieldCount {
		return Fields{}, false
	}
	if parts[0] != Prefix {
		return Fields{}, false
	}

	total, err := strconv.ParseFloat(parts[3], 64)
	if err != nil {
		return Fields{}, false
	}
	unix, err := strconv.ParseInt(parts[5], 10, 64)
	if err != nil {
		return Fields{}, false
	}

	return Fields{
		Version:       parts[1],
		InvoiceNumber: parts[2],
		Total:         total,
		HashPrefix:    parts[4],
		Timestamp:     unix,
	}, true
}

// HashPrefix returns the first 8 characters of a full digest. The token
// deliberately carries only a prefix: a scan proves "probably this hash" and
// the full digest is revalidated server-side.
func HashPrefix(fullHash string) string {
	if fullHash == "" {
		return emptyPrefix
	}
	if len(fullHash) < hashPrefixLen {
		return fullHash
	}
	return fullHash[:hashPrefixLen]
}

func parseTimestamp(value string) (int64, error) {
	value = strings.TrimSpace(value)
	for _, layout := range timestampLayouts {
		if ts, err := time.ParseInLocation(layout, value, time.UTC); err == nil {
			return ts.Unix(), nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrInvalidTimestamp, value)
}
