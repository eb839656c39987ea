package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/abdul-hamid-achik/luzimarket-backend/pkg/enums"
	"github.com/abdul-hamid-achik/luzimarket-backend/pkg/types"
)

// Order is the buyer-facing order aggregate. Lifecycle state is spread over
// four independent columns: status, payment_status, cancellation_status and
// refund_status. Ownership is user_id or guest_email, never both; the check
// constraint lives in the schema.
type Order struct {
	ID                 uuid.UUID                `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	OrderNumber        string                   `gorm:"column:order_number;type:text;not null;uniqueIndex"`
	VendorID           uuid.UUID                `gorm:"column:vendor_id;type:uuid;not null"`
	UserID             *uuid.UUID               `gorm:"column:user_id;type:uuid;index"`
	GuestEmail         *string                  `gorm:"column:guest_email;type:text"`
	CustomerName       string                   `gorm:"column:customer_name;type:text;not null"`
	Status             enums.OrderStatus        `gorm:"column:status;type:order_status;not null;default:'pending'"`
	PaymentStatus      enums.PaymentStatus      `gorm:"column:payment_status;type:payment_status;not null;default:'pending'"`
	CancellationStatus enums.CancellationStatus `gorm:"column:cancellation_status;type:cancellation_status;not null;default:'none'"`
	RefundStatus       enums.RefundStatus       `gorm:"column:refund_status;type:refund_status;not null;default:'none'"`
	PaymentIntentID    *string                  `gorm:"column:payment_intent_id;type:text;index"`
	RefundID           *string                  `gorm:"column:refund_id;type:text"`
	Currency           string                   `gorm:"column:currency;type:text;not null;default:'MXN'"`
	Subtotal           decimal.Decimal          `gorm:"column:subtotal;type:numeric(12,2);not null"`
	Tax                decimal.Decimal          `gorm:"column:tax;type:numeric(12,2);not null;default:0"`
	ShippingCost       decimal.Decimal          `gorm:"column:shipping_cost;type:numeric(12,2);not null;default:0"`
	Total              decimal.Decimal          `gorm:"column:total;type:numeric(12,2);not null"`
	ShippingAddress    *types.Address           `gorm:"column:shipping_address;type:jsonb;serializer:json"`
	TrackingNumber     *string                  `gorm:"column:tracking_number;type:text"`
	Carrier            *enums.Carrier           `gorm:"column:carrier;type:text"`
	TrackingURL        *string                  `gorm:"column:tracking_url;type:text"`
	EstimatedDeliveryDate *time.Time            `gorm:"column:estimated_delivery_date;type:date"`
	TrackingHistory    types.TrackingHistory    `gorm:"column:tracking_history;type:jsonb"`
	CancellationReason *string                  `gorm:"column:cancellation_reason;type:text"`
	StockRestoredAt    *time.Time               `gorm:"column:stock_restored_at"`
	PaidAt             *time.Time               `gorm:"column:paid_at"`
	ShippedAt          *time.Time               `gorm:"column:shipped_at"`
	DeliveredAt        *time.Time               `gorm:"column:delivered_at"`
	CancelledAt        *time.Time               `gorm:"column:cancelled_at"`
	RefundedAt         *time.Time               `gorm:"column:refunded_at"`
	Items              []OrderItem              `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`
	CreatedAt          time.Time                `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt          time.Time                `gorm:"column:updated_at;autoUpdateTime"`
}
