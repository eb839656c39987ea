package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/abdul-hamid-achik/luzimarket-backend/pkg/enums"
)

// AuditLog is an append-only record of lifecycle decisions, including refund
// approvals and rejections.
type AuditLog struct {
	ID        uuid.UUID           `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	Category  enums.AuditCategory `gorm:"column:category;type:audit_category;not null"`
	Severity  enums.AuditSeverity `gorm:"column:severity;type:audit_severity;not null;default:'info'"`
	Action    string              `gorm:"column:action;type:text;not null"`
	Actor     *string             `gorm:"column:actor;type:text"`
	OrderID   *uuid.UUID          `gorm:"column:order_id;type:uuid;index"`
	Details   json.RawMessage     `gorm:"column:details;type:jsonb"`
	CreatedAt time.Time           `gorm:"column:created_at;autoCreateTime"`
}
