package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/karatworks/goldbooks-backend/pkg/enums"
	"github.com/karatworks/goldbooks-backend/pkg/types"
)

// Receipt records one exchange of metal with a client. Balance is the
// receipt's signed ledger delta (given final weight minus received final
// weight); PreviousBalance and NewBalance are immutable snapshots of the
// client balance around the moment the delta was applied.
type Receipt struct {
	ID              uuid.UUID            `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	VoucherID       string               `gorm:"column:voucher_id;not null;uniqueIndex"`
	ClientID        uuid.UUID            `gorm:"column:client_id;type:uuid;not null;index"`
	ClientInfo      types.ClientSnapshot `gorm:"column:client_info;type:jsonb;serializer:json"`
	MetalType       enums.MetalType      `gorm:"column:metal_type;type:text;not null;default:'gold'"`
	GivenItems      []types.GivenItem    `gorm:"column:given_items;type:jsonb;serializer:json"`
	ReceivedItems   []types.ReceivedItem `gorm:"column:received_items;type:jsonb;serializer:json"`
	Totals          types.ReceiptTotals  `gorm:"column:totals;type:jsonb;serializer:json"`
	Balance         decimal.Decimal      `gorm:"column:balance;type:numeric(14,3);not null;default:0"`
	PreviousBalance decimal.Decimal      `gorm:"column:previous_balance;type:numeric(14,3);not null;default:0"`
	NewBalance      decimal.Decimal      `gorm:"column:new_balance;type:numeric(14,3);not null;default:0"`
	IsCompleted     bool                 `gorm:"column:is_completed;not null;default:false"`
	Notes           *string              `gorm:"column:notes"`
	IssueDate       time.Time            `gorm:"column:issue_date;not null"`
	DeliveryDate    *time.Time           `gorm:"column:delivery_date"`
	CreatedAt       time.Time            `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt       time.Time            `gorm:"column:updated_at;autoUpdateTime"`
}
