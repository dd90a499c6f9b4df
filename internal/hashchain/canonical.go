package hashchain

import (
	"math"
	"strconv"
	"unicode/utf8"
)

// EncodingVersion identifies the canonical byte layout below. Any change to
// key order, number rendering or string escaping requires a bump, because
// every stored hash depends on these exact bytes.
const EncodingVersion = 1

// appendCanonical renders the hash input as canonical JSON: keys in fixed
// lexicographic order, no insignificant whitespace, numbers in shortest
// round-trip decimal form. A generic serializer is deliberately not used
// here; the byte layout must stay stable across library upgrades.
func appendCanonical(b []byte, in HashInput) []byte {
	b = append(b, `{"invoice_number":`...)
	b = appendString(b, in.InvoiceNumber)
	b = append(b, `,"items":[`...)
	for i, item := range in.Items {
		if i > 0 {
			b = append(b, ',')
		}
		b = appendItem(b, item)
	}
	b = append(b, `],"previous_hash":`...)
	b = appendString(b, in.PreviousHash)
	b = append(b, `,"seller_id":`...)
	b = appendString(b, in.SellerID)
	b = append(b, `,"timestamp":`...)
	b = appendString(b, in.CreatedAt)
	b = append(b, `,"total":`...)
	b = appendNumber(b, roundCents(in.Total))
	b = append(b, '}')
	return b
}

func appendItem(b []byte, item Item) []byte {
	b = append(b, `{"line_total":`...)
	b = appendNumber(b, item.LineTotal)
	b = append(b, `,"product_id":`...)
	b = appendString(b, item.ProductID)
	b = append(b, `,"quantity":`...)
	b = strconv.AppendInt(b, item.Quantity, 10)
	b = append(b, `,"unit_price":`...)
	b = appendNumber(b, item.UnitPrice)
	b = append(b, '}')
	return b
}

// appendNumber writes the shortest decimal representation that round-trips
// to the same float64. Integral values render without a fraction part.
func appendNumber(b []byte, v float64) []byte {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		// Financial inputs are finite; a non-finite value is a programming
		// error upstream, but the encoder still has to stay deterministic.
		return append(b, '0')
	}
	return strconv.AppendFloat(b, v, 'f', -1, 64)
}

const hexDigits = "0123456789abcdef"

// appendString writes a JSON string with minimal escaping (no HTML escaping,
// unlike encoding/json defaults).
func appendString(b []byte, s string) []byte {
	b = append(b, '"')
	for i := 0; i < len(s); {
		c := s[i]
		if c >= 0x20 && c != '"' && c != '\\' && c < utf8.RuneSelf {
			b = append(b, c)
			i++
			continue
		}
		if c >= utf8.RuneSelf {
			r, size := utf8.DecodeRuneInString(s[i:])
			if r == utf8.RuneError && size == 1 {
				b = append(b, `�`...)
			} else {
				b = append(b, s[i:i+size]...)
			}
			i += size
			continue
		}
		switch c {
		case '"':
			b = append(b, '\\', '"')
		case '\\':
			b = append(b, '\\', '\\')
		case '\n':
			b = append(b, '\\', 'n')
		case '\r':
			b = append(b, '\\', 'r')
		case '\t':
			b = append(b, '\\', 't')
		default:
			b = append(b, '\\', 'u', '0', '0', hexDigits[c>>4], hexDigits[c&0xf])
		}
		i++
	}
	return append(b, '"')
}

func roundCents(v float64) float64 {
	return math.Round(v*100) / 100
}
