package clients

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/karatworks/goldbooks-backend/pkg/db/models"
	"github.com/karatworks/goldbooks-backend/pkg/enums"
	"github.com/karatworks/goldbooks-backend/pkg/pagination"
)

// ListFilter narrows client listings.
type ListFilter struct {
	Search    string
	MetalType *enums.MetalType
	IsActive  *bool
}

// Repository manages persistence for clients and their dependents.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, client *models.Client) error
	Get(ctx context.Context, id uuid.UUID) (*models.Client, error)
	Update(ctx context.Context, client *models.Client) error
	Delete(ctx context.Context, id uuid.UUID) error
	DeleteReceiptsByClient(ctx context.Context, clientID uuid.UUID) error
	DeleteEntriesByClient(ctx context.Context, clientID uuid.UUID) error
	List(ctx context.Context, filter ListFilter, limit int, cursor *pagination.Cursor) ([]models.Client, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns a client repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, client *models.Client) error {
	return r.db.WithContext(ctx).Create(client).Error
}

func (r *repository) Get(ctx context.Context, id uuid.UUID) (*models.Client, error) {
	var client models.Client
	if err := r.db.WithContext(ctx).First(&client, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &client, nil
}

func (r *repository) Update(ctx context.Context, client *models.Client) error {
	return r.db.WithContext(ctx).Save(client).Error
}

func (r *repository) Delete(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Delete(&models.Client{}, "id = ?", id).Error
}

func (r *repository) DeleteReceiptsByClient(ctx context.Context, clientID uuid.UUID) error {
	return r.db.WithContext(ctx).Delete(&models.Receipt{}, "client_id = ?", clientID).Error
}

func (r *repository) DeleteEntriesByClient(ctx context.Context, clientID uuid.UUID) error {
	return r.db.WithContext(ctx).Delete(&models.BalanceEntry{}, "client_id = ?", clientID).Error
}

func (r *repository) List(ctx context.Context, filter ListFilter, limit int, cursor *pagination.Cursor) ([]models.Client, error) {
	query := r.db.WithContext(ctx).
		Model(&models.Client{}).
		Order("created_at DESC, id DESC").
		Limit(limit)

	if filter.Search != "" {
		pattern := "%" + filter.Search + "%"
		query = query.Where("name LIKE ? OR shop_name LIKE ? OR phone LIKE ?", pattern, pattern, pattern)
	}
	if filter.MetalType != nil {
		query = query.Where("metal_type = ?", *filter.MetalType)
	}
	if filter.IsActive != nil {
		query = query.Where("is_active = ?", *filter.IsActive)
	}
	if cursor != nil {
		query = query.Where(
			"(created_at < ?) OR (created_at = ? AND id < ?)",
			cursor.CreatedAt, cursor.CreatedAt, cursor.ID,
		)
	}

	var clients []models.Client
	if err := query.Find(&clients).Error; err != nil {
		return nil, err
	}
	return clients, nil
}
