package hashchain

import "fmt"

// ErrorKind classifies the first violation found during chain verification.
type ErrorKind string

const (
	// ErrorKindHashMismatch means a record's stored hash does not match the
	// digest recomputed from its own fields.
	ErrorKindHashMismatch ErrorKind = "HASH_MISMATCH"
	// ErrorKindChainBreak means a record's stored previous hash does not
	// match its predecessor's current hash.
	ErrorKindChainBreak ErrorKind = "CHAIN_BREAK"
)

// ChainRecord is one ledger row as seen by the verifier.
type ChainRecord struct {
	SequenceID    int64
	InvoiceNumber string
	SellerID      string
	Total         float64
	Items         []Item
	CreatedAt     string
	PreviousHash  string
	CurrentHash   string
}

// ChainResult reports the outcome of a full chain scan. On failure it pins
// the first bad record so an operator can bound the damage to everything at
// or after FailedSequenceID.
type ChainResult struct {
	Valid            bool      `json:"valid"`
	ErrorKind        ErrorKind `json:"error_kind,omitempty"`
	ErrorMessage     string    `json:"error_message,omitempty"`
	FailedSequenceID int64     `json:"failed_sequence_id,omitempty"`
	CheckedCount     int       `json:"checked_count"`
}

// VerifyChain replays records (ascending sequence id, oldest first) and runs
// two independent checks per record: the record's own digest recomputed from
// its stored fields, then the link between its stored previous hash and the
// predecessor's current hash. Keeping the checks independent is what makes
// the failure report precise: an edited field surfaces as HASH_MISMATCH on
// that record, a re-forged record spliced into the sequence surfaces as a
// CHAIN_BREAK at the splice point.
func VerifyChain(records []ChainRecord) ChainResult {
	expectedPrevious := GenesisHash

	for i, rec := range records {
		expectedHash := ComputeHash(HashInput{
			InvoiceNumber: rec.InvoiceNumber,
			SellerID:      rec.SellerID,
			Total:         rec.Total,
			Items:         rec.Items,
			CreatedAt:     rec.CreatedAt,
			PreviousHash:  rec.PreviousHash,
		})

		if expectedHash != rec.CurrentHash {
			return ChainResult{
				Valid:            false,
				ErrorKind:        ErrorKindHashMismatch,
				ErrorMessage:     fmt.Sprintf("hash mismatch at invoice %s", rec.InvoiceNumber),
				FailedSequenceID: rec.SequenceID,
				CheckedCount:     i,
			}
		}

		if rec.PreviousHash != expectedPrevious {
			return ChainResult{
				Valid:            false,
				ErrorKind:        ErrorKindChainBreak,
				ErrorMessage:     fmt.Sprintf("chain break at invoice %s", rec.InvoiceNumber),
				FailedSequenceID: rec.SequenceID,
				CheckedCount:     i,
			}
		}

		expectedPrevious = rec.CurrentHash
	}

	return ChainResult{Valid: true, CheckedCount: len(records)}
}
