package ledger

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/abdul-hamid-achik/luzimarket-backend/pkg/db/models"
	"github.com/abdul-hamid-achik/luzimarket-backend/pkg/enums"
)

// Repository persists vendor balances and their immutable transaction rows.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	// LockBalance loads the balance row for a vendor with a row-level write
	// lock, creating a zeroed row first when the vendor has none yet.
	LockBalance(ctx context.Context, vendorID uuid.UUID) (*models.VendorBalance, error)
	SaveBalance(ctx context.Context, balance *models.VendorBalance) error
	CreateTransaction(ctx context.Context, txn *models.Transaction) error
	FindTransaction(ctx context.Context, orderID uuid.UUID, txType enums.TransactionType) (*models.Transaction, error)
	MarkTransactionStatus(ctx context.Context, id uuid.UUID, status enums.TransactionStatus) error
	ListTransactionsByVendor(ctx context.Context, vendorID uuid.UUID, limit int) ([]models.Transaction, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository builds a gorm-backed ledger repository.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) LockBalance(ctx context.Context, vendorID uuid.UUID) (*models.VendorBalance, error) {
	var balance models.VendorBalance
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("vendor_id = ?", vendorID).
		First(&balance).Error
	if err == nil {
		return &balance, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	seed := models.VendorBalance{VendorID: vendorID}
	if err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "vendor_id"}},
			DoNothing: true,
		}).
		Create(&seed).Error; err != nil {
		return nil, err
	}
	err = r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("vendor_id = ?", vendorID).
		First(&balance).Error
	if err != nil {
		return nil, err
	}
	return &balance, nil
}

func (r *repository) SaveBalance(ctx context.Context, balance *models.VendorBalance) error {
	return r.db.WithContext(ctx).Save(balance).Error
}

func (r *repository) CreateTransaction(ctx context.Context, txn *models.Transaction) error {
	return r.db.WithContext(ctx).Create(txn).Error
}

func (r *repository) FindTransaction(ctx context.Context, orderID uuid.UUID, txType enums.TransactionType) (*models.Transaction, error) {
	var txn models.Transaction
	err := r.db.WithContext(ctx).
		Where("order_id = ? AND type = ?", orderID, txType).
		Order("created_at DESC").
		First(&txn).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &txn, nil
}

func (r *repository) MarkTransactionStatus(ctx context.Context, id uuid.UUID, status enums.TransactionStatus) error {
	result := r.db.WithContext(ctx).
		Model(&models.Transaction{}).
		Where("id = ?", id).
		Update("status", status)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *repository) ListTransactionsByVendor(ctx context.Context, vendorID uuid.UUID, limit int) ([]models.Transaction, error) {
	if limit <= 0 {
		limit = 50
	}
	var txns []models.Transaction
	err := r.db.WithContext(ctx).
		Where("vendor_id = ?", vendorID).
		Order("created_at DESC").
		Limit(limit).
		Find(&txns).Error
	if err != nil {
		return nil, err
	}
	return txns, nil
}
