package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/abdul-hamid-achik/luzimarket-backend/pkg/enums"
)

// InventoryAlert is a vendor-configured threshold watch on one product. One
// row exists per vendor+product+type tuple; the periodic sweep compares the
// product's stock against the stored threshold and uses last_triggered_at as
// the 24h debounce marker.
type InventoryAlert struct {
	ID              uuid.UUID                `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	ProductID       uuid.UUID                `gorm:"column:product_id;type:uuid;not null;uniqueIndex:idx_inventory_alerts_watch"`
	VendorID        uuid.UUID                `gorm:"column:vendor_id;type:uuid;not null;uniqueIndex:idx_inventory_alerts_watch"`
	Type            enums.InventoryAlertType `gorm:"column:type;type:inventory_alert_type;not null;uniqueIndex:idx_inventory_alerts_watch"`
	Threshold       int                      `gorm:"column:threshold;not null;default:0"`
	IsActive        bool                     `gorm:"column:is_active;not null;default:true"`
	LastTriggeredAt *time.Time               `gorm:"column:last_triggered_at"`
	CreatedAt       time.Time                `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt       time.Time                `gorm:"column:updated_at;autoUpdateTime"`
}
