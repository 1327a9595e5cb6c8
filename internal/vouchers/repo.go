package vouchers

import (
	"context"
	"strconv"
	"strings"

	"gorm.io/gorm"
)

// Repository manages persistence for voucher sequences.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	NextValue(ctx context.Context, prefix string) (int64, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns a voucher repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

// NextValue increments and returns the sequence for prefix in a single
// statement, so concurrent mints can never observe the same value. The first
// mint for a prefix seeds the sequence from the highest numbered voucher
// already present on receipts.
func (r *repository) NextValue(ctx context.Context, prefix string) (int64, error) {
	var value int64
	res := r.db.WithContext(ctx).Raw(
		`UPDATE voucher_sequences
		 SET last_value = last_value + 1, updated_at = CURRENT_TIMESTAMP
		 WHERE prefix = ?
		 RETURNING last_value`,
		prefix,
	).Scan(&value)
	if res.Error != nil {
		return 0, res.Error
	}
	if res.RowsAffected > 0 {
		return value, nil
	}

	seed, err := r.highestExisting(ctx, prefix)
	if err != nil {
		return 0, err
	}

	// Another mint may insert the row between the UPDATE above and this
	// INSERT; the conflict branch keeps the increment atomic either way.
	res = r.db.WithContext(ctx).Raw(
		`INSERT INTO voucher_sequences (prefix, last_value, updated_at)
		 VALUES (?, ?, CURRENT_TIMESTAMP)
		 ON CONFLICT (prefix) DO UPDATE
		 SET last_value = voucher_sequences.last_value + 1, updated_at = CURRENT_TIMESTAMP
		 RETURNING last_value`,
		prefix, seed+1,
	).Scan(&value)
	if res.Error != nil {
		return 0, res.Error
	}
	return value, nil
}

func (r *repository) highestExisting(ctx context.Context, prefix string) (int64, error) {
	var voucherIDs []string
	if err := r.db.WithContext(ctx).
		Table("receipts").
		Where("voucher_id LIKE ?", prefix+"-%").
		Pluck("voucher_id", &voucherIDs).Error; err != nil {
		return 0, err
	}

	var highest int64
	for _, id := range voucherIDs {
		if n := TrailingNumber(id); n > highest {
			highest = n
		}
	}
	return highest, nil
}

// TrailingNumber parses the digits after the last separator of a voucher ID.
// Unparseable suffixes count as 0, so numbering silently restarts rather than
// failing the mint.
func TrailingNumber(voucherID string) int64 {
	idx := strings.LastIndex(voucherID, "-")
	if idx < 0 || idx == len(voucherID)-1 {
		return 0
	}
	n, err := strconv.ParseInt(voucherID[idx+1:], 10, 64)
	if err != nil || n < 0 {
		return 0
	}
	return n
}
