package ledger

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/karatworks/goldbooks-backend/pkg/db/models"
	"github.com/karatworks/goldbooks-backend/pkg/enums"
	pkgerrors "github.com/karatworks/goldbooks-backend/pkg/errors"
	"github.com/karatworks/goldbooks-backend/pkg/pagination"
)

// Service maintains each client's running balance as an accumulation of
// signed deltas, with an append-only history entry per mutation. The sum of
// history deltas always equals the live balance.
type Service interface {
	WithTx(tx *gorm.DB) Service
	ApplyDelta(ctx context.Context, input ApplyDeltaInput) (*ApplyResult, error)
	ReverseDelta(ctx context.Context, input ApplyDeltaInput) (*ApplyResult, error)
	GetBalance(ctx context.Context, clientID uuid.UUID) (decimal.Decimal, error)
	Statement(ctx context.Context, clientID uuid.UUID, params pagination.Params) (*StatementResult, error)
}

// ApplyDeltaInput captures one balance mutation.
type ApplyDeltaInput struct {
	ClientID    uuid.UUID
	Delta       decimal.Decimal
	ReceiptID   *uuid.UUID
	Reason      enums.BalanceEntryReason
	Description *string
}

// ApplyResult reports the balance around a single applied delta.
type ApplyResult struct {
	PreviousBalance decimal.Decimal
	NewBalance      decimal.Decimal
}

// StatementResult bundles a client's live balance with a page of history.
type StatementResult struct {
	Client     *models.Client
	Entries    []models.BalanceEntry
	NextCursor string
}

type service struct {
	repo Repository
}

// NewService wires a balance ledger service with the provided repository.
func NewService(repo Repository) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("ledger repository required")
	}
	return &service{repo: repo}, nil
}

func (s *service) WithTx(tx *gorm.DB) Service {
	if tx == nil {
		return s
	}
	return &service{repo: s.repo.WithTx(tx)}
}

func (s *service) ApplyDelta(ctx context.Context, input ApplyDeltaInput) (*ApplyResult, error) {
	if input.ClientID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "client id is required")
	}
	if !input.Reason.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("invalid balance entry reason %q", input.Reason))
	}

	delta := input.Delta.Round(3)

	newBalance, err := s.repo.ApplyDelta(ctx, input.ClientID, delta)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "client not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "applying balance delta")
	}

	entry := &models.BalanceEntry{
		ID:           uuid.New(),
		ClientID:     input.ClientID,
		ReceiptID:    input.ReceiptID,
		Delta:        delta,
		BalanceAfter: newBalance,
		Reason:       input.Reason,
		Description:  input.Description,
	}
	if err := s.repo.AppendEntry(ctx, entry); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeConsistency, err, "balance mutated but history append failed")
	}

	return &ApplyResult{
		PreviousBalance: newBalance.Sub(delta).Round(3),
		NewBalance:      newBalance,
	}, nil
}

func (s *service) ReverseDelta(ctx context.Context, input ApplyDeltaInput) (*ApplyResult, error) {
	input.Delta = input.Delta.Neg()
	if input.Reason == "" {
		input.Reason = enums.BalanceEntryReasonReceiptReversed
	}
	return s.ApplyDelta(ctx, input)
}

func (s *service) GetBalance(ctx context.Context, clientID uuid.UUID) (decimal.Decimal, error) {
	if clientID == uuid.Nil {
		return decimal.Zero, pkgerrors.New(pkgerrors.CodeValidation, "client id is required")
	}
	client, err := s.repo.GetClient(ctx, clientID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return decimal.Zero, pkgerrors.New(pkgerrors.CodeNotFound, "client not found")
		}
		return decimal.Zero, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "loading client balance")
	}
	return client.Balance, nil
}

func (s *service) Statement(ctx context.Context, clientID uuid.UUID, params pagination.Params) (*StatementResult, error) {
	if clientID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "client id is required")
	}

	client, err := s.repo.GetClient(ctx, clientID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "client not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "loading client")
	}

	cursor, err := pagination.ParseCursor(params.Cursor)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
	}

	limit := pagination.NormalizeLimit(params.Limit)
	entries, err := s.repo.ListEntries(ctx, clientID, pagination.LimitWithBuffer(params.Limit), cursor)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "listing balance entries")
	}

	next := ""
	if len(entries) > limit {
		entries = entries[:limit]
		last := entries[len(entries)-1]
		next = pagination.EncodeCursor(pagination.Cursor{CreatedAt: last.CreatedAt, ID: last.ID})
	}

	return &StatementResult{
		Client:     client,
		Entries:    entries,
		NextCursor: next,
	}, nil
}
