package ledger

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/karatworks/goldbooks-backend/pkg/db/models"
	"github.com/karatworks/goldbooks-backend/pkg/pagination"
)

// Repository manages persistence for client balances and their history.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	GetClient(ctx context.Context, clientID uuid.UUID) (*models.Client, error)
	ApplyDelta(ctx context.Context, clientID uuid.UUID, delta decimal.Decimal) (decimal.Decimal, error)
	AppendEntry(ctx context.Context, entry *models.BalanceEntry) error
	ListEntries(ctx context.Context, clientID uuid.UUID, limit int, cursor *pagination.Cursor) ([]models.BalanceEntry, error)
	SumDeltas(ctx context.Context, clientID uuid.UUID) (decimal.Decimal, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns a ledger repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) GetClient(ctx context.Context, clientID uuid.UUID) (*models.Client, error) {
	var client models.Client
	if err := r.db.WithContext(ctx).First(&client, "id = ?", clientID).Error; err != nil {
		return nil, err
	}
	return &client, nil
}

// ApplyDelta adds delta to the client balance in a single statement and
// returns the balance after the update. Concurrent callers for the same
// client serialize on the row, so no read-modify-write window exists.
func (r *repository) ApplyDelta(ctx context.Context, clientID uuid.UUID, delta decimal.Decimal) (decimal.Decimal, error) {
	var balance decimal.Decimal
	res := r.db.WithContext(ctx).Raw(
		`UPDATE clients
		 SET balance = ROUND(balance + ?, 3), updated_at = CURRENT_TIMESTAMP
		 WHERE id = ?
		 RETURNING balance`,
		delta, clientID,
	).Scan(&balance)
	if res.Error != nil {
		return decimal.Zero, res.Error
	}
	if res.RowsAffected == 0 {
		return decimal.Zero, gorm.ErrRecordNotFound
	}
	return balance, nil
}

func (r *repository) AppendEntry(ctx context.Context, entry *models.BalanceEntry) error {
	return r.db.WithContext(ctx).Create(entry).Error
}

func (r *repository) ListEntries(ctx context.Context, clientID uuid.UUID, limit int, cursor *pagination.Cursor) ([]models.BalanceEntry, error) {
	query := r.db.WithContext(ctx).
		Where("client_id = ?", clientID).
		Order("created_at DESC, id DESC").
		Limit(limit)

	if cursor != nil {
		query = query.Where(
			"(created_at < ?) OR (created_at = ? AND id < ?)",
			cursor.CreatedAt, cursor.CreatedAt, cursor.ID,
		)
	}

	var entries []models.BalanceEntry
	if err := query.Find(&entries).Error; err != nil {
		return nil, err
	}
	return entries, nil
}

func (r *repository) SumDeltas(ctx context.Context, clientID uuid.UUID) (decimal.Decimal, error) {
	var raw *string
	err := r.db.WithContext(ctx).
		Model(&models.BalanceEntry{}).
		Where("client_id = ?", clientID).
		Select("CAST(ROUND(COALESCE(SUM(delta), 0), 3) AS TEXT)").
		Scan(&raw).Error
	if err != nil {
		return decimal.Zero, err
	}
	if raw == nil {
		return decimal.Zero, nil
	}
	sum, err := decimal.NewFromString(*raw)
	if err != nil {
		return decimal.Zero, errors.New("unparseable delta sum " + *raw)
	}
	return sum, nil
}
