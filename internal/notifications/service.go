package notifications

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/abdul-hamid-achik/luzimarket-backend/pkg/db/models"
	"github.com/abdul-hamid-achik/luzimarket-backend/pkg/enums"
	pkgerrors "github.com/abdul-hamid-achik/luzimarket-backend/pkg/errors"
	"github.com/abdul-hamid-achik/luzimarket-backend/pkg/logger"
	"github.com/abdul-hamid-achik/luzimarket-backend/pkg/pagination"
)

// CreateInput is one in-app notification to store for a vendor.
type CreateInput struct {
	VendorID uuid.UUID
	Type     enums.NotificationType
	Title    string
	Message  string
	Link     string
}

// Service defines notification operations.
type Service interface {
	List(ctx context.Context, params ListParams) (*ListResult, error)
	MarkRead(ctx context.Context, vendorID, notificationID uuid.UUID) error
	MarkAllRead(ctx context.Context, vendorID uuid.UUID) (int64, error)
	Create(ctx context.Context, tx *gorm.DB, input CreateInput) (*models.Notification, error)
	NotifyInventoryAlert(ctx context.Context, product models.Product, alertType enums.InventoryAlertType) error
}

type service struct {
	repo   Repository
	mailer Mailer
	logg   *logger.Logger
}

// ListParams configures pagination for notifications.
type ListParams struct {
	VendorID   uuid.UUID
	Limit      int
	Cursor     string
	UnreadOnly bool
}

// ListResult wraps returned notifications and the cursor for the next page.
type ListResult struct {
	Items  []models.Notification `json:"items"`
	Cursor string                `json:"cursor"`
}

// NewService wires notifications dependencies.
func NewService(repo Repository, mailer Mailer, logg *logger.Logger) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("notifications repository required")
	}
	if mailer == nil {
		return nil, fmt.Errorf("mailer required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &service{repo: repo, mailer: mailer, logg: logg}, nil
}

func (s *service) List(ctx context.Context, params ListParams) (*ListResult, error) {
	if params.VendorID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "vendor id required")
	}

	query := listNotificationsParams{
		VendorID:   params.VendorID,
		Limit:      pagination.LimitWithBuffer(params.Limit),
		UnreadOnly: params.UnreadOnly,
	}
	if params.Cursor != "" {
		cursor, err := pagination.ParseCursor(params.Cursor)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
		}
		query.Cursor = cursor
	}

	rows, next, err := s.repo.List(ctx, query)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list notifications")
	}

	cursor := ""
	if next != nil {
		cursor = pagination.EncodeCursor(*next)
	}

	return &ListResult{
		Items:  rows,
		Cursor: cursor,
	}, nil
}

func (s *service) MarkRead(ctx context.Context, vendorID, notificationID uuid.UUID) error {
	if vendorID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "vendor id required")
	}
	if notificationID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "notification id required")
	}

	result, err := s.repo.MarkRead(ctx, vendorID, notificationID, time.Now().UTC())
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "mark notification read")
	}
	if !result.Found {
		return pkgerrors.New(pkgerrors.CodeNotFound, "notification not found")
	}
	return nil
}

func (s *service) MarkAllRead(ctx context.Context, vendorID uuid.UUID) (int64, error) {
	if vendorID == uuid.Nil {
		return 0, pkgerrors.New(pkgerrors.CodeValidation, "vendor id required")
	}

	count, err := s.repo.MarkAllRead(ctx, vendorID, time.Now().UTC())
	if err != nil {
		return 0, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "mark notifications read")
	}
	return count, nil
}

func (s *service) Create(ctx context.Context, tx *gorm.DB, input CreateInput) (*models.Notification, error) {
	if input.VendorID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "vendor id required")
	}
	if !input.Type.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid notification type")
	}
	if input.Title == "" || input.Message == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "title and message required")
	}

	notification := &models.Notification{
		ID:       uuid.New(),
		VendorID: input.VendorID,
		Type:     input.Type,
		Title:    input.Title,
		Message:  input.Message,
	}
	if input.Link != "" {
		link := input.Link
		notification.Link = &link
	}
	if err := s.repo.WithTx(tx).Create(ctx, notification); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "store notification")
	}
	return notification, nil
}

// NotifyInventoryAlert writes the in-app notification and sends the vendor an
// email. Email failures are logged and swallowed.
func (s *service) NotifyInventoryAlert(ctx context.Context, product models.Product, alertType enums.InventoryAlertType) error {
	notificationType := enums.NotificationTypeLowStock
	title := "Inventario bajo"
	message := fmt.Sprintf("El producto %q tiene %d unidades restantes.", product.Name, product.Stock)
	if alertType == enums.InventoryAlertTypeOutOfStock {
		notificationType = enums.NotificationTypeOutOfStock
		title = "Producto agotado"
		message = fmt.Sprintf("El producto %q se ha agotado.", product.Name)
	}

	if _, err := s.Create(ctx, nil, CreateInput{
		VendorID: product.VendorID,
		Type:     notificationType,
		Title:    title,
		Message:  message,
		Link:     "/vendor/products/" + product.ID.String(),
	}); err != nil {
		return err
	}

	vendor, err := s.repo.FindVendor(ctx, product.VendorID)
	if err != nil {
		logCtx := s.logg.WithVendorID(ctx, product.VendorID.String())
		s.logg.Warn(logCtx, "vendor lookup failed, skipping alert email")
		return nil
	}
	if err := s.mailer.Send(ctx, vendor.Email, title, message); err != nil {
		logCtx := s.logg.WithVendorID(ctx, product.VendorID.String())
		s.logg.Warn(logCtx, "alert email failed: "+err.Error())
	}
	return nil
}
