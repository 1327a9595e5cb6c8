package ledger

import (
	"context"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/karatworks/goldbooks-backend/pkg/db/models"
)

// ClientBalance is the slim projection the reconciliation job walks.
type ClientBalance struct {
	ID      uuid.UUID
	Balance decimal.Decimal
}

// AuditRepository reads the data needed to cross-check stored balances
// against the entry history.
type AuditRepository struct {
	db *gorm.DB
}

// NewAuditRepository binds an audit repo to the provided GORM DB.
func NewAuditRepository(db *gorm.DB) *AuditRepository {
	return &AuditRepository{db: db}
}

// ListClientBalances returns up to limit clients ordered by id, starting
// after the given id. Pass uuid.Nil to start from the beginning.
func (r *AuditRepository) ListClientBalances(ctx context.Context, afterID uuid.UUID, limit int) ([]ClientBalance, error) {
	query := r.db.WithContext(ctx).
		Model(&models.Client{}).
		Select("id", "balance").
		Order("id").
		Limit(limit)
	if afterID != uuid.Nil {
		query = query.Where("id > ?", afterID)
	}

	var rows []ClientBalance
	if err := query.Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

// SumEntryDeltas totals the recorded deltas for a single client.
func (r *AuditRepository) SumEntryDeltas(ctx context.Context, clientID uuid.UUID) (decimal.Decimal, error) {
	return NewRepository(r.db).SumDeltas(ctx, clientID)
}
