package models

import "time"

// VoucherSequence holds the last minted value for a voucher prefix. Rows are
// only ever touched through the atomic upsert-increment in the vouchers repo.
type VoucherSequence struct {
	Prefix    string    `gorm:"column:prefix;primaryKey"`
	LastValue int64     `gorm:"column:last_value;not null"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime"`
}
