package clients

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/karatworks/goldbooks-backend/internal/ledger"
	"github.com/karatworks/goldbooks-backend/pkg/db/models"
	"github.com/karatworks/goldbooks-backend/pkg/enums"
	pkgerrors "github.com/karatworks/goldbooks-backend/pkg/errors"
	"github.com/karatworks/goldbooks-backend/pkg/pagination"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// Service manages client accounts. Edits never touch the balance; only the
// ledger mutates it.
type Service interface {
	Create(ctx context.Context, input CreateClientInput) (*models.Client, error)
	Update(ctx context.Context, clientID uuid.UUID, input UpdateClientInput) (*models.Client, error)
	Delete(ctx context.Context, clientID uuid.UUID) error
	Get(ctx context.Context, clientID uuid.UUID) (*models.Client, error)
	List(ctx context.Context, filter ListFilter, params pagination.Params) (*ListResult, error)
}

// CreateClientInput captures a new client account.
type CreateClientInput struct {
	Name           string
	ShopName       *string
	Phone          *string
	Address        *string
	Email          *string
	MetalType      enums.MetalType
	Tags           []string
	OpeningBalance *decimal.Decimal
}

// UpdateClientInput carries a partial client edit. Balance is deliberately
// absent.
type UpdateClientInput struct {
	Name      *string
	ShopName  *string
	Phone     *string
	Address   *string
	Email     *string
	MetalType *enums.MetalType
	Tags      *[]string
	IsActive  *bool
}

// ListResult is one page of clients.
type ListResult struct {
	Clients    []models.Client
	NextCursor string
}

type service struct {
	repo   Repository
	ledger ledger.Service
	tx     txRunner
}

// NewService wires a client service with its repository and the ledger.
func NewService(repo Repository, ledgerSvc ledger.Service, tx txRunner) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("client repository required")
	}
	if ledgerSvc == nil {
		return nil, fmt.Errorf("ledger service required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	return &service{repo: repo, ledger: ledgerSvc, tx: tx}, nil
}

func (s *service) Create(ctx context.Context, input CreateClientInput) (*models.Client, error) {
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "client name is required")
	}
	if input.MetalType == "" {
		input.MetalType = enums.MetalTypeGold
	}
	if !input.MetalType.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("invalid metal type %q", input.MetalType))
	}

	client := &models.Client{
		ID:        uuid.New(),
		Name:      name,
		ShopName:  input.ShopName,
		Phone:     input.Phone,
		Address:   input.Address,
		Email:     input.Email,
		MetalType: input.MetalType,
		Tags:      pq.StringArray(input.Tags),
		IsActive:  true,
		Balance:   decimal.Zero,
	}

	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		if err := repo.Create(ctx, client); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "creating client")
		}

		if input.OpeningBalance != nil && !input.OpeningBalance.IsZero() {
			result, err := s.ledger.WithTx(tx).ApplyDelta(ctx, ledger.ApplyDeltaInput{
				ClientID:    client.ID,
				Delta:       *input.OpeningBalance,
				Reason:      enums.BalanceEntryReasonAdjustment,
				Description: strPtr("opening balance"),
			})
			if err != nil {
				return err
			}
			client.Balance = result.NewBalance
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return client, nil
}

func (s *service) Update(ctx context.Context, clientID uuid.UUID, input UpdateClientInput) (*models.Client, error) {
	if clientID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "client id is required")
	}
	if input.Name != nil && strings.TrimSpace(*input.Name) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "client name cannot be blank")
	}
	if input.MetalType != nil && !input.MetalType.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("invalid metal type %q", *input.MetalType))
	}

	client, err := s.repo.Get(ctx, clientID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "client not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "loading client")
	}

	if input.Name != nil {
		client.Name = strings.TrimSpace(*input.Name)
	}
	if input.ShopName != nil {
		client.ShopName = input.ShopName
	}
	if input.Phone != nil {
		client.Phone = input.Phone
	}
	if input.Address != nil {
		client.Address = input.Address
	}
	if input.Email != nil {
		client.Email = input.Email
	}
	if input.MetalType != nil {
		client.MetalType = *input.MetalType
	}
	if input.Tags != nil {
		client.Tags = pq.StringArray(*input.Tags)
	}
	if input.IsActive != nil {
		client.IsActive = *input.IsActive
	}

	if err := s.repo.Update(ctx, client); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "saving client")
	}
	return client, nil
}

// Delete removes the client together with its receipts and balance history.
// Other clients' balances are left as they are.
func (s *service) Delete(ctx context.Context, clientID uuid.UUID) error {
	if clientID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "client id is required")
	}

	return s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		if _, err := repo.Get(ctx, clientID); err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "client not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "loading client")
		}

		if err := repo.DeleteEntriesByClient(ctx, clientID); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "deleting balance entries")
		}
		if err := repo.DeleteReceiptsByClient(ctx, clientID); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "deleting receipts")
		}
		if err := repo.Delete(ctx, clientID); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "deleting client")
		}
		return nil
	})
}

func (s *service) Get(ctx context.Context, clientID uuid.UUID) (*models.Client, error) {
	if clientID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "client id is required")
	}
	client, err := s.repo.Get(ctx, clientID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "client not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "loading client")
	}
	return client, nil
}

func (s *service) List(ctx context.Context, filter ListFilter, params pagination.Params) (*ListResult, error) {
	cursor, err := pagination.ParseCursor(params.Cursor)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
	}

	limit := pagination.NormalizeLimit(params.Limit)
	clients, err := s.repo.List(ctx, filter, pagination.LimitWithBuffer(params.Limit), cursor)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "listing clients")
	}

	next := ""
	if len(clients) > limit {
		clients = clients[:limit]
		last := clients[len(clients)-1]
		next = pagination.EncodeCursor(pagination.Cursor{CreatedAt: last.CreatedAt, ID: last.ID})
	}

	return &ListResult{Clients: clients, NextCursor: next}, nil
}

func strPtr(s string) *string {
	return &s
}
