package shipping

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/abdul-hamid-achik/luzimarket-backend/pkg/db/models"
)

// Repository persists immutable shipping label rows.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, label *models.ShippingLabel) error
	ListByOrderID(ctx context.Context, orderID uuid.UUID) ([]models.ShippingLabel, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository builds a gorm-backed shipping repository.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, label *models.ShippingLabel) error {
	return r.db.WithContext(ctx).Create(label).Error
}

func (r *repository) ListByOrderID(ctx context.Context, orderID uuid.UUID) ([]models.ShippingLabel, error) {
	var labels []models.ShippingLabel
	err := r.db.WithContext(ctx).
		Where("order_id = ?", orderID).
		Order("created_at DESC").
		Find(&labels).Error
	if err != nil {
		return nil, err
	}
	return labels, nil
}
