package types

import (
	"bytes"
	"strings"

	"github.com/shopspring/decimal"
)

// LenientDecimal decodes JSON numbers that may arrive as numbers, numeric
// strings, null, or garbage from half-filled forms. Unparseable input decodes
// to zero instead of failing the request; Coerced reports when that happened
// so callers can log the coercion rather than mistake it for an intended zero.
type LenientDecimal struct {
	value   decimal.Decimal
	coerced bool
}

// NewLenientDecimal wraps an exact decimal value.
func NewLenientDecimal(d decimal.Decimal) LenientDecimal {
	return LenientDecimal{value: d}
}

// Decimal returns the decoded value.
func (l LenientDecimal) Decimal() decimal.Decimal {
	return l.value
}

// Coerced reports whether the original input was unparseable and replaced
// with zero.
func (l LenientDecimal) Coerced() bool {
	return l.coerced
}

// UnmarshalJSON implements json.Unmarshaler with the coerce-to-zero policy.
func (l *LenientDecimal) UnmarshalJSON(data []byte) error {
	raw := strings.TrimSpace(string(bytes.Trim(bytes.TrimSpace(data), `"`)))
	if raw == "" || raw == "null" {
		l.value = decimal.Zero
		l.coerced = false
		return nil
	}
	parsed, err := decimal.NewFromString(raw)
	if err != nil {
		l.value = decimal.Zero
		l.coerced = true
		return nil
	}
	l.value = parsed
	l.coerced = false
	return nil
}

// MarshalJSON renders the value the way decimal.Decimal does.
func (l LenientDecimal) MarshalJSON() ([]byte, error) {
	return l.value.MarshalJSON()
}
