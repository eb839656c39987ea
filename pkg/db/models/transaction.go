package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/abdul-hamid-achik/luzimarket-backend/pkg/enums"
)

// BalanceSnapshot captures all three balance axes at a point in time. It is
// embedded into Transaction rows as jsonb so the ledger can be replayed
// without joining the mutable balance row.
type BalanceSnapshot struct {
	Available decimal.Decimal `json:"available"`
	Pending   decimal.Decimal `json:"pending"`
	Reserved  decimal.Decimal `json:"reserved"`
}

// SnapshotOf reads the current three-way balance of a vendor balance row.
func SnapshotOf(balance *VendorBalance) BalanceSnapshot {
	return BalanceSnapshot{
		Available: balance.AvailableBalance,
		Pending:   balance.PendingBalance,
		Reserved:  balance.ReservedBalance,
	}
}

// Transaction is an immutable ledger row recording one balance movement,
// including before/after snapshots of the vendor balance it touched.
type Transaction struct {
	ID              uuid.UUID               `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	VendorBalanceID uuid.UUID               `gorm:"column:vendor_balance_id;type:uuid;not null;index"`
	VendorID        uuid.UUID               `gorm:"column:vendor_id;type:uuid;not null;index"`
	OrderID         *uuid.UUID              `gorm:"column:order_id;type:uuid;index"`
	Type            enums.TransactionType   `gorm:"column:type;type:transaction_type;not null"`
	Status          enums.TransactionStatus `gorm:"column:status;type:transaction_status;not null;default:'pending'"`
	Amount          decimal.Decimal         `gorm:"column:amount;type:numeric(12,2);not null"`
	BalanceBefore   BalanceSnapshot         `gorm:"column:balance_before;type:jsonb;serializer:json;not null"`
	BalanceAfter    BalanceSnapshot         `gorm:"column:balance_after;type:jsonb;serializer:json;not null"`
	Currency        string                  `gorm:"column:currency;type:text;not null;default:'MXN'"`
	StripeRefundID  *string                 `gorm:"column:stripe_refund_id;type:text;index"`
	Description     string                  `gorm:"column:description;type:text;not null"`
	CreatedAt       time.Time               `gorm:"column:created_at;autoCreateTime"`
}
