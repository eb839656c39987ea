package payloads

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/abdul-hamid-achik/luzimarket-backend/pkg/enums"
)

// OrderPaidEvent is emitted when a payment intent succeeds for an order.
type OrderPaidEvent struct {
	OrderID         uuid.UUID       `json:"order_id"`
	VendorID        uuid.UUID       `json:"vendor_id"`
	PaymentIntentID string          `json:"payment_intent_id"`
	Total           decimal.Decimal `json:"total"`
	Currency        string          `json:"currency"`
	PaidAt          time.Time       `json:"paid_at"`
}

// PaymentFailedEvent records a failed payment attempt.
type PaymentFailedEvent struct {
	OrderID         uuid.UUID `json:"order_id"`
	VendorID        uuid.UUID `json:"vendor_id"`
	PaymentIntentID string    `json:"payment_intent_id"`
	FailedAt        time.Time `json:"failed_at"`
}

// OrderShippedEvent is emitted when a vendor dispatches an order.
type OrderShippedEvent struct {
	OrderID        uuid.UUID     `json:"order_id"`
	VendorID       uuid.UUID     `json:"vendor_id"`
	Carrier        enums.Carrier `json:"carrier"`
	TrackingNumber string        `json:"tracking_number"`
	ShippedAt      time.Time     `json:"shipped_at"`
}

// OrderDeliveredEvent closes the happy-path lifecycle.
type OrderDeliveredEvent struct {
	OrderID     uuid.UUID `json:"order_id"`
	VendorID    uuid.UUID `json:"vendor_id"`
	DeliveredAt time.Time `json:"delivered_at"`
}

// RefundRequestedEvent is emitted when a customer asks to cancel a paid order.
type RefundRequestedEvent struct {
	OrderID     uuid.UUID `json:"order_id"`
	VendorID    uuid.UUID `json:"vendor_id"`
	Reason      string    `json:"reason,omitempty"`
	RequestedAt time.Time `json:"requested_at"`
}

// RefundDecisionEvent covers vendor approval or rejection of a refund request.
type RefundDecisionEvent struct {
	OrderID   uuid.UUID                `json:"order_id"`
	VendorID  uuid.UUID                `json:"vendor_id"`
	Decision  enums.CancellationStatus `json:"decision"`
	DecidedAt time.Time                `json:"decided_at"`
}

// RefundResultEvent reports the gateway outcome of an approved refund.
type RefundResultEvent struct {
	OrderID        uuid.UUID          `json:"order_id"`
	VendorID       uuid.UUID          `json:"vendor_id"`
	StripeRefundID string             `json:"stripe_refund_id"`
	Status         enums.RefundStatus `json:"status"`
	Amount         decimal.Decimal    `json:"amount"`
	ResolvedAt     time.Time          `json:"resolved_at"`
}

// VendorBalanceEvent captures a ledger credit or reversal.
type VendorBalanceEvent struct {
	VendorID      uuid.UUID             `json:"vendor_id"`
	OrderID       *uuid.UUID            `json:"order_id,omitempty"`
	TransactionID uuid.UUID             `json:"transaction_id"`
	Type          enums.TransactionType `json:"type"`
	Amount        decimal.Decimal       `json:"amount"`
	BalanceAfter  decimal.Decimal       `json:"balance_after"`
}

// StockRestoredEvent is emitted once per order when cancellation returns stock.
type StockRestoredEvent struct {
	OrderID    uuid.UUID `json:"order_id"`
	VendorID   uuid.UUID `json:"vendor_id"`
	RestoredAt time.Time `json:"restored_at"`
}

// ProductDeactivatedEvent signals the sweep disabled an out-of-stock product.
type ProductDeactivatedEvent struct {
	ProductID     uuid.UUID `json:"product_id"`
	VendorID      uuid.UUID `json:"vendor_id"`
	DeactivatedAt time.Time `json:"deactivated_at"`
}

// InventoryAlertEvent tells downstream systems to alert a vendor about stock.
type InventoryAlertEvent struct {
	ProductID    uuid.UUID                `json:"product_id"`
	VendorID     uuid.UUID                `json:"vendor_id"`
	Type         enums.InventoryAlertType `json:"type"`
	Threshold    int                      `json:"threshold"`
	StockAtAlert int                      `json:"stock_at_alert"`
	NotifiedAt   time.Time                `json:"notified_at"`
}
