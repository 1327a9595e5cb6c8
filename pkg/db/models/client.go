package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"

	"github.com/karatworks/goldbooks-backend/pkg/enums"
)

// Client is a jewelry-account holder. Balance is the running net amount owed
// between the client and the business, in grams of pure metal; positive means
// the business is owed, negative means the business owes. It is mutated only
// through the ledger service, never by client edits.
type Client struct {
	ID        uuid.UUID       `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	Name      string          `gorm:"column:name;not null"`
	ShopName  *string         `gorm:"column:shop_name"`
	Phone     *string         `gorm:"column:phone"`
	Address   *string         `gorm:"column:address"`
	Email     *string         `gorm:"column:email"`
	MetalType enums.MetalType `gorm:"column:metal_type;type:text;not null;default:'gold'"`
	Tags      pq.StringArray  `gorm:"column:tags;type:text[];default:ARRAY[]::text[]"`
	IsActive  bool            `gorm:"column:is_active;not null;default:true"`
	Balance   decimal.Decimal `gorm:"column:balance;type:numeric(14,3);not null;default:0"`
	CreatedAt time.Time       `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time       `gorm:"column:updated_at;autoUpdateTime"`
}
