package receipts

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/karatworks/goldbooks-backend/internal/ledger"
	"github.com/karatworks/goldbooks-backend/internal/vouchers"
	"github.com/karatworks/goldbooks-backend/internal/weights"
	"github.com/karatworks/goldbooks-backend/pkg/db"
	"github.com/karatworks/goldbooks-backend/pkg/db/models"
	"github.com/karatworks/goldbooks-backend/pkg/enums"
	pkgerrors "github.com/karatworks/goldbooks-backend/pkg/errors"
	"github.com/karatworks/goldbooks-backend/pkg/metrics"
	"github.com/karatworks/goldbooks-backend/pkg/pagination"
	"github.com/karatworks/goldbooks-backend/pkg/types"
)

const defaultMintAttempts = 3

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// Service orchestrates the receipt lifecycle: voucher assignment, weight
// totals, and the client ledger move together in one transaction per
// operation.
type Service interface {
	Create(ctx context.Context, input CreateReceiptInput) (*models.Receipt, error)
	Update(ctx context.Context, receiptID uuid.UUID, input UpdateReceiptInput) (*models.Receipt, error)
	Delete(ctx context.Context, receiptID uuid.UUID) error
	Get(ctx context.Context, receiptID uuid.UUID) (*models.Receipt, error)
	List(ctx context.Context, filter ListFilter, params pagination.Params) (*ListResult, error)
}

// CreateReceiptInput captures a new receipt submission.
type CreateReceiptInput struct {
	ClientID      uuid.UUID
	GivenItems    []types.GivenItem
	ReceivedItems []types.ReceivedItem
	MetalType     enums.MetalType
	IssueDate     time.Time
	DeliveryDate  *time.Time
	Notes         *string
	IsCompleted   bool
	VoucherPrefix string
	VoucherID     *string
}

// UpdateReceiptInput carries a partial receipt update. Nil fields are left
// untouched; item lists, when present, trigger a ledger re-adjustment by the
// delta difference.
type UpdateReceiptInput struct {
	GivenItems    *[]types.GivenItem
	ReceivedItems *[]types.ReceivedItem
	MetalType     *enums.MetalType
	IssueDate     *time.Time
	DeliveryDate  *time.Time
	Notes         *string
	IsCompleted   *bool
}

// ListResult is one page of receipts.
type ListResult struct {
	Receipts   []models.Receipt
	NextCursor string
}

// Options tunes the service beyond its dependencies.
type Options struct {
	DefaultPrefix string
	MintAttempts  int
}

type service struct {
	repo     Repository
	ledger   ledger.Service
	vouchers vouchers.Service
	tx       txRunner
	metrics  *metrics.ReceiptMetrics
	opts     Options
}

// NewService wires the receipt lifecycle service.
func NewService(repo Repository, ledgerSvc ledger.Service, voucherSvc vouchers.Service, tx txRunner, m *metrics.ReceiptMetrics, opts Options) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("receipt repository required")
	}
	if ledgerSvc == nil {
		return nil, fmt.Errorf("ledger service required")
	}
	if voucherSvc == nil {
		return nil, fmt.Errorf("voucher service required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if opts.MintAttempts <= 0 {
		opts.MintAttempts = defaultMintAttempts
	}
	if opts.DefaultPrefix == "" {
		opts.DefaultPrefix = "GB"
	}
	return &service{
		repo:     repo,
		ledger:   ledgerSvc,
		vouchers: voucherSvc,
		tx:       tx,
		metrics:  m,
		opts:     opts,
	}, nil
}

func (s *service) Create(ctx context.Context, input CreateReceiptInput) (*models.Receipt, error) {
	if input.ClientID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "client id is required")
	}
	if input.MetalType == "" {
		input.MetalType = enums.MetalTypeGold
	}
	if !input.MetalType.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("invalid metal type %q", input.MetalType))
	}
	if input.IssueDate.IsZero() {
		input.IssueDate = time.Now().UTC()
	}
	if input.VoucherID != nil && strings.TrimSpace(*input.VoucherID) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "voucher id override cannot be blank")
	}

	given, received, totals, err := weights.Aggregate(input.GivenItems, input.ReceivedItems)
	if err != nil {
		return nil, err
	}
	delta := weights.ReceiptDelta(given, received)

	prefix := strings.TrimSpace(input.VoucherPrefix)
	if prefix == "" {
		prefix = fmt.Sprintf("%s-%s", s.opts.DefaultPrefix, input.IssueDate.Format("0601"))
	}

	// Fail fast before a sequence number is consumed.
	if _, err := s.repo.GetClient(ctx, input.ClientID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "client not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "loading client")
	}

	for attempt := 1; ; attempt++ {
		// The mint commits on its own, so a rollback of the write below
		// never rewinds the sequence; retries always get a fresh number.
		voucherID := ""
		if input.VoucherID != nil {
			voucherID = strings.TrimSpace(*input.VoucherID)
		} else {
			minted, err := s.vouchers.NextVoucherID(ctx, prefix)
			if err != nil {
				return nil, err
			}
			voucherID = minted
		}

		receipt, err := s.createOnce(ctx, input, given, received, totals, delta, voucherID)
		if err == nil {
			s.metrics.IncCreated()
			return receipt, nil
		}

		if db.IsUniqueViolation(err, "voucher_id") {
			if input.VoucherID != nil {
				return nil, pkgerrors.Wrap(pkgerrors.CodeConflict, err, "voucher id already in use")
			}
			if attempt < s.opts.MintAttempts {
				s.metrics.IncVoucherRetry()
				continue
			}
			return nil, pkgerrors.Wrap(pkgerrors.CodeConflict, err, "voucher minting retries exhausted")
		}
		return nil, err
	}
}

func (s *service) createOnce(
	ctx context.Context,
	input CreateReceiptInput,
	given []types.GivenItem,
	received []types.ReceivedItem,
	totals types.ReceiptTotals,
	delta decimal.Decimal,
	voucherID string,
) (*models.Receipt, error) {
	var receipt *models.Receipt

	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		ledgerSvc := s.ledger.WithTx(tx)

		client, err := repo.GetClient(ctx, input.ClientID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "client not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "loading client")
		}

		receiptID := uuid.New()
		result, err := ledgerSvc.ApplyDelta(ctx, ledger.ApplyDeltaInput{
			ClientID:    input.ClientID,
			Delta:       delta,
			ReceiptID:   &receiptID,
			Reason:      enums.BalanceEntryReasonReceiptCreated,
			Description: strPtr(fmt.Sprintf("receipt %s created", voucherID)),
		})
		if err != nil {
			return err
		}

		receipt = &models.Receipt{
			ID:        receiptID,
			VoucherID: voucherID,
			ClientID:  client.ID,
			ClientInfo: types.ClientSnapshot{
				Name:     client.Name,
				ShopName: deref(client.ShopName),
				Phone:    deref(client.Phone),
			},
			MetalType:       input.MetalType,
			GivenItems:      given,
			ReceivedItems:   received,
			Totals:          totals,
			Balance:         delta,
			PreviousBalance: result.PreviousBalance,
			NewBalance:      result.NewBalance,
			IsCompleted:     input.IsCompleted,
			Notes:           input.Notes,
			IssueDate:       input.IssueDate,
			DeliveryDate:    input.DeliveryDate,
		}
		return repo.Create(ctx, receipt)
	})
	if err != nil {
		return nil, err
	}
	return receipt, nil
}

func (s *service) Update(ctx context.Context, receiptID uuid.UUID, input UpdateReceiptInput) (*models.Receipt, error) {
	if receiptID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "receipt id is required")
	}
	if input.MetalType != nil && !input.MetalType.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("invalid metal type %q", *input.MetalType))
	}

	var updated *models.Receipt
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		ledgerSvc := s.ledger.WithTx(tx)

		receipt, err := repo.Get(ctx, receiptID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "receipt not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "loading receipt")
		}

		financial := input.GivenItems != nil || input.ReceivedItems != nil
		if financial {
			givenIn := receipt.GivenItems
			if input.GivenItems != nil {
				givenIn = *input.GivenItems
			}
			receivedIn := receipt.ReceivedItems
			if input.ReceivedItems != nil {
				receivedIn = *input.ReceivedItems
			}

			given, received, totals, err := weights.Aggregate(givenIn, receivedIn)
			if err != nil {
				return err
			}
			newDelta := weights.ReceiptDelta(given, received)
			adjustment := newDelta.Sub(receipt.Balance).Round(3)

			if !adjustment.IsZero() {
				if _, err := ledgerSvc.ApplyDelta(ctx, ledger.ApplyDeltaInput{
					ClientID:    receipt.ClientID,
					Delta:       adjustment,
					ReceiptID:   &receipt.ID,
					Reason:      enums.BalanceEntryReasonReceiptUpdated,
					Description: strPtr(fmt.Sprintf("receipt %s updated", receipt.VoucherID)),
				}); err != nil {
					return err
				}
			}

			// PreviousBalance stays the historical snapshot; only the
			// delta-dependent fields move.
			receipt.NewBalance = receipt.PreviousBalance.Add(newDelta).Round(3)

			receipt.GivenItems = given
			receipt.ReceivedItems = received
			receipt.Totals = totals
			receipt.Balance = newDelta
		}

		if input.MetalType != nil {
			receipt.MetalType = *input.MetalType
		}
		if input.IssueDate != nil {
			receipt.IssueDate = *input.IssueDate
		}
		if input.DeliveryDate != nil {
			receipt.DeliveryDate = input.DeliveryDate
		}
		if input.Notes != nil {
			receipt.Notes = input.Notes
		}
		if input.IsCompleted != nil {
			receipt.IsCompleted = *input.IsCompleted
		}

		if err := repo.Update(ctx, receipt); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "saving receipt")
		}
		updated = receipt
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.metrics.IncUpdated()
	return updated, nil
}

// Delete reverses the receipt's ledger effect before removing the record.
// A failed reversal aborts the transaction, so the receipt can never vanish
// while its balance effect lingers.
func (s *service) Delete(ctx context.Context, receiptID uuid.UUID) error {
	if receiptID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "receipt id is required")
	}

	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		ledgerSvc := s.ledger.WithTx(tx)

		receipt, err := repo.Get(ctx, receiptID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "receipt not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "loading receipt")
		}

		if _, err := ledgerSvc.ReverseDelta(ctx, ledger.ApplyDeltaInput{
			ClientID:    receipt.ClientID,
			Delta:       receipt.Balance,
			ReceiptID:   &receipt.ID,
			Description: strPtr(fmt.Sprintf("receipt %s deleted", receipt.VoucherID)),
		}); err != nil {
			return err
		}

		return repo.Delete(ctx, receipt.ID)
	})
	if err != nil {
		return err
	}
	s.metrics.IncDeleted()
	return nil
}

func (s *service) Get(ctx context.Context, receiptID uuid.UUID) (*models.Receipt, error) {
	if receiptID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "receipt id is required")
	}
	receipt, err := s.repo.Get(ctx, receiptID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "receipt not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "loading receipt")
	}
	return receipt, nil
}

func (s *service) List(ctx context.Context, filter ListFilter, params pagination.Params) (*ListResult, error) {
	cursor, err := pagination.ParseCursor(params.Cursor)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
	}

	limit := pagination.NormalizeLimit(params.Limit)
	receipts, err := s.repo.List(ctx, filter, pagination.LimitWithBuffer(params.Limit), cursor)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "listing receipts")
	}

	next := ""
	if len(receipts) > limit {
		receipts = receipts[:limit]
		last := receipts[len(receipts)-1]
		next = pagination.EncodeCursor(pagination.Cursor{CreatedAt: last.CreatedAt, ID: last.ID})
	}

	return &ListResult{Receipts: receipts, NextCursor: next}, nil
}

func strPtr(s string) *string {
	return &s
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
