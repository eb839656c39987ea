package audit

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/abdul-hamid-achik/luzimarket-backend/pkg/db/models"
	"github.com/abdul-hamid-achik/luzimarket-backend/pkg/enums"
	pkgerrors "github.com/abdul-hamid-achik/luzimarket-backend/pkg/errors"
	"github.com/abdul-hamid-achik/luzimarket-backend/pkg/logger"
)

// Entry is one lifecycle decision to record.
type Entry struct {
	Category enums.AuditCategory
	Severity enums.AuditSeverity
	Action   string
	Actor    string
	OrderID  *uuid.UUID
	Details  any
}

// Recorder appends audit log rows. Error and critical entries are mirrored to
// the structured log so they show up in alerting.
type Recorder interface {
	Record(ctx context.Context, tx *gorm.DB, entry Entry) error
	ListByOrderID(ctx context.Context, orderID uuid.UUID) ([]models.AuditLog, error)
}

type recorder struct {
	db   *gorm.DB
	logg *logger.Logger
}

// NewRecorder builds the audit recorder.
func NewRecorder(db *gorm.DB, logg *logger.Logger) (Recorder, error) {
	if db == nil {
		return nil, fmt.Errorf("database handle required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &recorder{db: db, logg: logg}, nil
}

func (r *recorder) Record(ctx context.Context, tx *gorm.DB, entry Entry) error {
	if entry.Action == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "audit action required")
	}
	if !entry.Category.IsValid() {
		return pkgerrors.New(pkgerrors.CodeValidation, "invalid audit category")
	}
	if entry.Severity == "" {
		entry.Severity = enums.AuditSeverityInfo
	}
	if !entry.Severity.IsValid() {
		return pkgerrors.New(pkgerrors.CodeValidation, "invalid audit severity")
	}

	row := models.AuditLog{
		ID:       uuid.New(),
		Category: entry.Category,
		Severity: entry.Severity,
		Action:   entry.Action,
		OrderID:  entry.OrderID,
	}
	if entry.Actor != "" {
		actor := entry.Actor
		row.Actor = &actor
	}
	if entry.Details != nil {
		details, err := json.Marshal(entry.Details)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "marshal audit details")
		}
		row.Details = details
	}

	db := r.db
	if tx != nil {
		db = tx
	}
	if err := db.WithContext(ctx).Create(&row).Error; err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "store audit log")
	}

	if entry.Severity == enums.AuditSeverityError || entry.Severity == enums.AuditSeverityCritical {
		fields := map[string]any{
			"audit_category": entry.Category.String(),
			"audit_action":   entry.Action,
		}
		if entry.OrderID != nil {
			fields["order_id"] = entry.OrderID.String()
		}
		logCtx := r.logg.WithFields(ctx, fields)
		r.logg.Error(logCtx, "audit event recorded", nil)
	}
	return nil
}

func (r *recorder) ListByOrderID(ctx context.Context, orderID uuid.UUID) ([]models.AuditLog, error) {
	if orderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}
	var logs []models.AuditLog
	err := r.db.WithContext(ctx).
		Where("order_id = ?", orderID).
		Order("created_at DESC").
		Find(&logs).Error
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list audit logs")
	}
	return logs, nil
}
