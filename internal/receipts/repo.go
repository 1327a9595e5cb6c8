package receipts

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/karatworks/goldbooks-backend/pkg/db/models"
	"github.com/karatworks/goldbooks-backend/pkg/enums"
	"github.com/karatworks/goldbooks-backend/pkg/pagination"
)

// ListFilter narrows receipt listings.
type ListFilter struct {
	ClientID    *uuid.UUID
	IsCompleted *bool
	MetalType   *enums.MetalType
}

// Repository manages persistence for receipts.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, receipt *models.Receipt) error
	Get(ctx context.Context, id uuid.UUID) (*models.Receipt, error)
	Update(ctx context.Context, receipt *models.Receipt) error
	Delete(ctx context.Context, id uuid.UUID) error
	List(ctx context.Context, filter ListFilter, limit int, cursor *pagination.Cursor) ([]models.Receipt, error)
	GetClient(ctx context.Context, clientID uuid.UUID) (*models.Client, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns a receipt repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, receipt *models.Receipt) error {
	return r.db.WithContext(ctx).Create(receipt).Error
}

func (r *repository) Get(ctx context.Context, id uuid.UUID) (*models.Receipt, error) {
	var receipt models.Receipt
	if err := r.db.WithContext(ctx).First(&receipt, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &receipt, nil
}

func (r *repository) Update(ctx context.Context, receipt *models.Receipt) error {
	return r.db.WithContext(ctx).Save(receipt).Error
}

func (r *repository) Delete(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Delete(&models.Receipt{}, "id = ?", id).Error
}

func (r *repository) List(ctx context.Context, filter ListFilter, limit int, cursor *pagination.Cursor) ([]models.Receipt, error) {
	query := r.db.WithContext(ctx).
		Model(&models.Receipt{}).
		Order("created_at DESC, id DESC").
		Limit(limit)

	if filter.ClientID != nil {
		query = query.Where("client_id = ?", *filter.ClientID)
	}
	if filter.IsCompleted != nil {
		query = query.Where("is_completed = ?", *filter.IsCompleted)
	}
	if filter.MetalType != nil {
		query = query.Where("metal_type = ?", *filter.MetalType)
	}
	if cursor != nil {
		query = query.Where(
			"(created_at < ?) OR (created_at = ? AND id < ?)",
			cursor.CreatedAt, cursor.CreatedAt, cursor.ID,
		)
	}

	var receipts []models.Receipt
	if err := query.Find(&receipts).Error; err != nil {
		return nil, err
	}
	return receipts, nil
}

func (r *repository) GetClient(ctx context.Context, clientID uuid.UUID) (*models.Client, error) {
	var client models.Client
	if err := r.db.WithContext(ctx).First(&client, "id = ?", clientID).Error; err != nil {
		return nil, err
	}
	return &client, nil
}
