package audit

import (
	"context"
	"io"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/abdul-hamid-achik/luzimarket-backend/pkg/enums"
	pkgerrors "github.com/abdul-hamid-achik/luzimarket-backend/pkg/errors"
	"github.com/abdul-hamid-achik/luzimarket-backend/pkg/logger"
)

func setupAuditTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{})
	require.NoError(t, err)

	schema := `
CREATE TABLE IF NOT EXISTS audit_logs (
  id TEXT PRIMARY KEY,
  category TEXT NOT NULL,
  severity TEXT NOT NULL DEFAULT 'info',
  action TEXT NOT NULL,
  actor TEXT,
  order_id TEXT,
  details TEXT,
  created_at DATETIME
);`
	require.NoError(t, db.Exec(schema).Error)
	return db
}

func newTestRecorder(t *testing.T) Recorder {
	t.Helper()
	logg := logger.New(logger.Options{ServiceName: "audit-test", Output: io.Discard})
	rec, err := NewRecorder(setupAuditTestDB(t), logg)
	require.NoError(t, err)
	return rec
}

func TestRecordAndList(t *testing.T) {
	rec := newTestRecorder(t)
	orderID := uuid.New()

	err := rec.Record(context.Background(), nil, Entry{
		Category: enums.AuditCategoryRefund,
		Severity: enums.AuditSeverityInfo,
		Action:   "refund_approved",
		Actor:    "vendor@example.com",
		OrderID:  &orderID,
		Details:  map[string]string{"refund_id": "re_123"},
	})
	require.NoError(t, err)

	err = rec.Record(context.Background(), nil, Entry{
		Category: enums.AuditCategoryRefund,
		Severity: enums.AuditSeverityError,
		Action:   "refund_gateway_failed",
		OrderID:  &orderID,
	})
	require.NoError(t, err)

	logs, err := rec.ListByOrderID(context.Background(), orderID)
	require.NoError(t, err)
	require.Len(t, logs, 2)
	require.Equal(t, "refund_gateway_failed", logs[0].Action)
	require.NotNil(t, logs[1].Actor)
	require.Equal(t, "vendor@example.com", *logs[1].Actor)
}

func TestRecordDefaultsSeverity(t *testing.T) {
	rec := newTestRecorder(t)
	orderID := uuid.New()

	err := rec.Record(context.Background(), nil, Entry{
		Category: enums.AuditCategoryOrder,
		Action:   "order_shipped",
		OrderID:  &orderID,
	})
	require.NoError(t, err)

	logs, err := rec.ListByOrderID(context.Background(), orderID)
	require.NoError(t, err)
	require.Len(t, logs, 1)
	require.Equal(t, enums.AuditSeverityInfo, logs[0].Severity)
}

func TestRecordValidation(t *testing.T) {
	rec := newTestRecorder(t)

	err := rec.Record(context.Background(), nil, Entry{
		Category: enums.AuditCategoryOrder,
	})
	require.Equal(t, pkgerrors.CodeValidation, pkgerrors.As(err).Code())

	err = rec.Record(context.Background(), nil, Entry{
		Category: enums.AuditCategory("billing"),
		Action:   "noop",
	})
	require.Equal(t, pkgerrors.CodeValidation, pkgerrors.As(err).Code())
}
