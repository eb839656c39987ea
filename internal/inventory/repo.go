package inventory

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/abdul-hamid-achik/luzimarket-backend/pkg/db/models"
	"github.com/abdul-hamid-achik/luzimarket-backend/pkg/enums"
)

// Repository persists product stock, alert watches and vendor flags.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	FindProduct(ctx context.Context, productID uuid.UUID) (*models.Product, error)
	FindProductForUpdate(ctx context.Context, productID uuid.UUID) (*models.Product, error)
	IncrementStock(ctx context.Context, productID uuid.UUID, qty int) error
	DeactivateProduct(ctx context.Context, productID uuid.UUID) error
	UpsertAlert(ctx context.Context, alert *models.InventoryAlert) error
	FindAlert(ctx context.Context, vendorID, productID uuid.UUID, alertType enums.InventoryAlertType) (*models.InventoryAlert, error)
	ListActiveAlerts(ctx context.Context) ([]models.InventoryAlert, error)
	ListVendorAlerts(ctx context.Context, vendorID uuid.UUID) ([]models.InventoryAlert, error)
	MarkTriggered(ctx context.Context, alertID uuid.UUID, at time.Time) error
	FindVendor(ctx context.Context, vendorID uuid.UUID) (*models.Vendor, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository builds a gorm-backed inventory repository.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) FindProduct(ctx context.Context, productID uuid.UUID) (*models.Product, error) {
	var product models.Product
	err := r.db.WithContext(ctx).
		Where("id = ?", productID).
		First(&product).Error
	if err != nil {
		return nil, err
	}
	return &product, nil
}

func (r *repository) FindProductForUpdate(ctx context.Context, productID uuid.UUID) (*models.Product, error) {
	var product models.Product
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ?", productID).
		First(&product).Error
	if err != nil {
		return nil, err
	}
	return &product, nil
}

func (r *repository) IncrementStock(ctx context.Context, productID uuid.UUID, qty int) error {
	result := r.db.WithContext(ctx).
		Model(&models.Product{}).
		Where("id = ?", productID).
		Update("stock", gorm.Expr("stock + ?", qty))
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *repository) DeactivateProduct(ctx context.Context, productID uuid.UUID) error {
	return r.db.WithContext(ctx).
		Model(&models.Product{}).
		Where("id = ?", productID).
		Update("is_active", false).Error
}

func (r *repository) UpsertAlert(ctx context.Context, alert *models.InventoryAlert) error {
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{
				{Name: "vendor_id"}, {Name: "product_id"}, {Name: "type"},
			},
			DoUpdates: clause.Assignments(map[string]any{
				"threshold":  alert.Threshold,
				"is_active":  alert.IsActive,
				"updated_at": gorm.Expr("now()"),
			}),
		}).
		Create(alert).Error
}

func (r *repository) FindAlert(ctx context.Context, vendorID, productID uuid.UUID, alertType enums.InventoryAlertType) (*models.InventoryAlert, error) {
	var alert models.InventoryAlert
	err := r.db.WithContext(ctx).
		Where("vendor_id = ? AND product_id = ? AND type = ?", vendorID, productID, alertType).
		First(&alert).Error
	if err != nil {
		return nil, err
	}
	return &alert, nil
}

func (r *repository) ListActiveAlerts(ctx context.Context) ([]models.InventoryAlert, error) {
	var alerts []models.InventoryAlert
	err := r.db.WithContext(ctx).
		Where("is_active = ?", true).
		Order("created_at ASC").
		Find(&alerts).Error
	if err != nil {
		return nil, err
	}
	return alerts, nil
}

func (r *repository) ListVendorAlerts(ctx context.Context, vendorID uuid.UUID) ([]models.InventoryAlert, error) {
	var alerts []models.InventoryAlert
	err := r.db.WithContext(ctx).
		Where("vendor_id = ?", vendorID).
		Order("created_at ASC").
		Find(&alerts).Error
	if err != nil {
		return nil, err
	}
	return alerts, nil
}

func (r *repository) MarkTriggered(ctx context.Context, alertID uuid.UUID, at time.Time) error {
	result := r.db.WithContext(ctx).
		Model(&models.InventoryAlert{}).
		Where("id = ?", alertID).
		Update("last_triggered_at", at)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *repository) FindVendor(ctx context.Context, vendorID uuid.UUID) (*models.Vendor, error) {
	var vendor models.Vendor
	err := r.db.WithContext(ctx).
		Where("id = ?", vendorID).
		First(&vendor).Error
	if err != nil {
		return nil, err
	}
	return &vendor, nil
}
