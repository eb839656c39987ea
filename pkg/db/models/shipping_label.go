package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/abdul-hamid-achik/luzimarket-backend/pkg/enums"
)

// ShippingLabel stores the carrier label generated when an order ships.
type ShippingLabel struct {
	ID             uuid.UUID       `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	OrderID        uuid.UUID       `gorm:"column:order_id;type:uuid;not null;index"`
	Carrier        enums.Carrier   `gorm:"column:carrier;type:text;not null"`
	TrackingNumber string          `gorm:"column:tracking_number;type:text;not null"`
	LabelURL       string          `gorm:"column:label_url;type:text;not null"`
	Cost           decimal.Decimal `gorm:"column:cost;type:numeric(12,2);not null;default:0"`
	Dimensions     *string         `gorm:"column:dimensions;type:text"`
	CreatedAt      time.Time       `gorm:"column:created_at;autoCreateTime"`
}
