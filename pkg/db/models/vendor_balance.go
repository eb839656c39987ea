package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// VendorBalance is the single running balance row per vendor. It is only
// mutated inside a transaction that also appends a Transaction row.
type VendorBalance struct {
	ID               uuid.UUID       `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	VendorID         uuid.UUID       `gorm:"column:vendor_id;type:uuid;not null;uniqueIndex"`
	AvailableBalance decimal.Decimal `gorm:"column:available_balance;type:numeric(12,2);not null;default:0"`
	PendingBalance   decimal.Decimal `gorm:"column:pending_balance;type:numeric(12,2);not null;default:0"`
	ReservedBalance  decimal.Decimal `gorm:"column:reserved_balance;type:numeric(12,2);not null;default:0"`
	Currency         string          `gorm:"column:currency;type:text;not null;default:'MXN'"`
	UpdatedAt        time.Time       `gorm:"column:updated_at;autoUpdateTime"`
}
