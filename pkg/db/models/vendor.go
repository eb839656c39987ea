package models

import (
	"time"

	"github.com/google/uuid"
)

// Vendor is a marketplace seller.
type Vendor struct {
	ID                   uuid.UUID `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	Name                 string    `gorm:"column:name;type:text;not null"`
	Email                string    `gorm:"column:email;type:text;not null;uniqueIndex"`
	IsActive             bool      `gorm:"column:is_active;not null;default:true"`
	EnableAutoDeactivate bool      `gorm:"column:enable_auto_deactivate;not null;default:false"`
	CreatedAt            time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt            time.Time `gorm:"column:updated_at;autoUpdateTime"`
}
