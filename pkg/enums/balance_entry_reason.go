package enums

import "fmt"

// BalanceEntryReason records why a client balance delta was applied.
type BalanceEntryReason string

const (
	BalanceEntryReasonReceiptCreated  BalanceEntryReason = "receipt_created"
	BalanceEntryReasonReceiptUpdated  BalanceEntryReason = "receipt_updated"
	BalanceEntryReasonReceiptReversed BalanceEntryReason = "receipt_reversed"
	BalanceEntryReasonAdjustment      BalanceEntryReason = "adjustment"
)

var validBalanceEntryReasons = []BalanceEntryReason{
	BalanceEntryReasonReceiptCreated,
	BalanceEntryReasonReceiptUpdated,
	BalanceEntryReasonReceiptReversed,
	BalanceEntryReasonAdjustment,
}

// IsValid reports whether the value matches the canonical reason enum.
func (r BalanceEntryReason) IsValid() bool {
	for _, candidate := range validBalanceEntryReasons {
		if candidate == r {
			return true
		}
	}
	return false
}

// ParseBalanceEntryReason converts raw input into a BalanceEntryReason.
func ParseBalanceEntryReason(value string) (BalanceEntryReason, error) {
	for _, candidate := range validBalanceEntryReasons {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid balance entry reason %q", value)
}
