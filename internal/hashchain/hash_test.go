package hashchain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func baseInput() HashInput {
	return HashInput{
		InvoiceNumber: "INV-2025-0001",
		SellerID:      "B12345678",
		Total:         121.00,
		Items: []Item{
			{ProductID: "P1", Quantity: 1, UnitPrice: 100.00, LineTotal: 100.00},
			{ProductID: "P2", Quantity: 3, UnitPrice: 7.00, LineTotal: 21.00},
		},
		CreatedAt:    "2025-06-01T10:30:00Z",
		PreviousHash: GenesisHash,
	}
}

func TestComputeHashDeterministic(t *testing.T) {
	first := ComputeHash(baseInput())
	second := ComputeHash(baseInput())

	require.Equal(t, first, second)
	require.Len(t, first, 64)
	for _, c := range first {
		if !(c >= '0' && c <= '9' || c >= 'a' && c <= 'f') {
			t.Fatalf("digest contains non-hex character %q", c)
		}
	}
}

func TestComputeHashTamperSensitivity(t *testing.T) {
	base := ComputeHash(baseInput())

	mutations := map[string]func(*HashInput){
		"total":          func(in *HashInput) { in.Total = 122.00 },
		"item quantity":  func(in *HashInput) { in.Items[0].Quantity = 2 },
		"unit price":     func(in *HashInput) { in.Items[1].UnitPrice = 7.50 },
		"line total":     func(in *HashInput) { in.Items[1].LineTotal = 22.50 },
		"created at":     func(in *HashInput) { in.CreatedAt = "2025-06-01T10:30:01Z" },
		"previous hash":  func(in *HashInput) { in.PreviousHash = "0000000000000000" },
		"invoice number": func(in *HashInput) { in.InvoiceNumber = "INV-2025-0002" },
		"seller id":      func(in *HashInput) { in.SellerID = "B87654321" },
	}

	for name, mutate := range mutations {
		in := baseInput()
		mutate(&in)
		assert.NotEqual(t, base, ComputeHash(in), "mutating %s must change the digest", name)
	}
}

func TestComputeHashItemOrderMatters(t *testing.T) {
	in := baseInput()
	in.Items[0], in.Items[1] = in.Items[1], in.Items[0]
	assert.NotEqual(t, ComputeHash(baseInput()), ComputeHash(in))
}

func TestComputeHashTotalRoundedToCents(t *testing.T) {
	a := baseInput()
	a.Total = 121.004
	b := baseInput()
	b.Total = 121.0
	assert.Equal(t, ComputeHash(b), ComputeHash(a))
}
