package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/karatworks/goldbooks-backend/pkg/enums"
)

// BalanceEntry is one append-only line of a client's balance history. The sum
// of Delta across a client's entries must always equal the client's balance;
// the reconciliation job audits exactly that.
type BalanceEntry struct {
	ID           uuid.UUID                `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	ClientID     uuid.UUID                `gorm:"column:client_id;type:uuid;not null;index"`
	ReceiptID    *uuid.UUID               `gorm:"column:receipt_id;type:uuid;index"`
	Delta        decimal.Decimal          `gorm:"column:delta;type:numeric(14,3);not null"`
	BalanceAfter decimal.Decimal          `gorm:"column:balance_after;type:numeric(14,3);not null"`
	Reason       enums.BalanceEntryReason `gorm:"column:reason;type:text;not null"`
	Description  *string                  `gorm:"column:description"`
	CreatedAt    time.Time                `gorm:"column:created_at;autoCreateTime"`
}
