package controllers

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/karatworks/goldbooks-backend/pkg/db/models"
	"github.com/karatworks/goldbooks-backend/pkg/enums"
	"github.com/karatworks/goldbooks-backend/pkg/types"
)

// The gorm models carry no json tags, so every payload that leaves the API
// goes through one of these response shapes.

type clientResponse struct {
	ID        uuid.UUID       `json:"id"`
	Name      string          `json:"name"`
	ShopName  *string         `json:"shop_name,omitempty"`
	Phone     *string         `json:"phone,omitempty"`
	Address   *string         `json:"address,omitempty"`
	Email     *string         `json:"email,omitempty"`
	MetalType enums.MetalType `json:"metal_type"`
	Tags      []string        `json:"tags"`
	IsActive  bool            `json:"is_active"`
	Balance   decimal.Decimal `json:"balance"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}

func toClientResponse(c *models.Client) clientResponse {
	tags := []string(c.Tags)
	if tags == nil {
		tags = []string{}
	}
	return clientResponse{
		ID:        c.ID,
		Name:      c.Name,
		ShopName:  c.ShopName,
		Phone:     c.Phone,
		Address:   c.Address,
		Email:     c.Email,
		MetalType: c.MetalType,
		Tags:      tags,
		IsActive:  c.IsActive,
		Balance:   c.Balance,
		CreatedAt: c.CreatedAt,
		UpdatedAt: c.UpdatedAt,
	}
}

type clientListResponse struct {
	Clients    []clientResponse `json:"clients"`
	NextCursor string           `json:"next_cursor,omitempty"`
}

type receiptResponse struct {
	ID              uuid.UUID            `json:"id"`
	VoucherID       string               `json:"voucher_id"`
	ClientID        uuid.UUID            `json:"client_id"`
	ClientInfo      types.ClientSnapshot `json:"client_info"`
	MetalType       enums.MetalType      `json:"metal_type"`
	GivenItems      []types.GivenItem    `json:"given_items"`
	ReceivedItems   []types.ReceivedItem `json:"received_items"`
	Totals          types.ReceiptTotals  `json:"totals"`
	Balance         decimal.Decimal      `json:"balance"`
	PreviousBalance decimal.Decimal      `json:"previous_balance"`
	NewBalance      decimal.Decimal      `json:"new_balance"`
	IsCompleted     bool                 `json:"is_completed"`
	Notes           *string              `json:"notes,omitempty"`
	IssueDate       time.Time            `json:"issue_date"`
	DeliveryDate    *time.Time           `json:"delivery_date,omitempty"`
	CreatedAt       time.Time            `json:"created_at"`
	UpdatedAt       time.Time            `json:"updated_at"`
}

func toReceiptResponse(rc *models.Receipt) receiptResponse {
	given := rc.GivenItems
	if given == nil {
		given = []types.GivenItem{}
	}
	received := rc.ReceivedItems
	if received == nil {
		received = []types.ReceivedItem{}
	}
	return receiptResponse{
		ID:              rc.ID,
		VoucherID:       rc.VoucherID,
		ClientID:        rc.ClientID,
		ClientInfo:      rc.ClientInfo,
		MetalType:       rc.MetalType,
		GivenItems:      given,
		ReceivedItems:   received,
		Totals:          rc.Totals,
		Balance:         rc.Balance,
		PreviousBalance: rc.PreviousBalance,
		NewBalance:      rc.NewBalance,
		IsCompleted:     rc.IsCompleted,
		Notes:           rc.Notes,
		IssueDate:       rc.IssueDate,
		DeliveryDate:    rc.DeliveryDate,
		CreatedAt:       rc.CreatedAt,
		UpdatedAt:       rc.UpdatedAt,
	}
}

type receiptListResponse struct {
	Receipts   []receiptResponse `json:"receipts"`
	NextCursor string            `json:"next_cursor,omitempty"`
}

type balanceEntryResponse struct {
	ID           uuid.UUID                `json:"id"`
	ClientID     uuid.UUID                `json:"client_id"`
	ReceiptID    *uuid.UUID               `json:"receipt_id,omitempty"`
	Delta        decimal.Decimal          `json:"delta"`
	BalanceAfter decimal.Decimal          `json:"balance_after"`
	Reason       enums.BalanceEntryReason `json:"reason"`
	Description  *string                  `json:"description,omitempty"`
	CreatedAt    time.Time                `json:"created_at"`
}

func toBalanceEntryResponse(e models.BalanceEntry) balanceEntryResponse {
	return balanceEntryResponse{
		ID:           e.ID,
		ClientID:     e.ClientID,
		ReceiptID:    e.ReceiptID,
		Delta:        e.Delta,
		BalanceAfter: e.BalanceAfter,
		Reason:       e.Reason,
		Description:  e.Description,
		CreatedAt:    e.CreatedAt,
	}
}

type statementResponse struct {
	Client     clientResponse         `json:"client"`
	Entries    []balanceEntryResponse `json:"entries"`
	NextCursor string                 `json:"next_cursor,omitempty"`
}
