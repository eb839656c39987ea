package inventory

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/multierr"
	"gorm.io/gorm"

	"github.com/abdul-hamid-achik/luzimarket-backend/internal/orders"
	"github.com/abdul-hamid-achik/luzimarket-backend/pkg/config"
	"github.com/abdul-hamid-achik/luzimarket-backend/pkg/db/models"
	"github.com/abdul-hamid-achik/luzimarket-backend/pkg/enums"
	pkgerrors "github.com/abdul-hamid-achik/luzimarket-backend/pkg/errors"
	"github.com/abdul-hamid-achik/luzimarket-backend/pkg/logger"
	"github.com/abdul-hamid-achik/luzimarket-backend/pkg/outbox"
	"github.com/abdul-hamid-achik/luzimarket-backend/pkg/outbox/payloads"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type eventEmitter interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
	EmitIfNotExists(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

// AlertNotifier delivers the in-app and email side of an inventory alert.
// Failures are logged by the caller, never propagated.
type AlertNotifier interface {
	NotifyInventoryAlert(ctx context.Context, product models.Product, alertType enums.InventoryAlertType) error
}

// SweepResult summarizes one CheckLevels run.
type SweepResult struct {
	Scanned     int
	Alerted     int
	Skipped     int
	Deactivated int
}

// UpsertAlertInput configures a threshold watch for one vendor product.
// Threshold defaults to the configured low-stock level for low_stock watches;
// out_of_stock watches always trigger at zero.
type UpsertAlertInput struct {
	VendorID  uuid.UUID
	ProductID uuid.UUID
	Type      enums.InventoryAlertType
	Threshold *int
	IsActive  *bool
}

// Service reconciles product stock with the order lifecycle.
type Service interface {
	// RestoreStock returns each ordered quantity to the catalog. The second
	// call for the same order is a no-op and returns false.
	RestoreStock(ctx context.Context, tx *gorm.DB, orderID uuid.UUID) (bool, error)
	// UpsertAlert creates or reconfigures the watch for one
	// vendor+product+type tuple.
	UpsertAlert(ctx context.Context, input UpsertAlertInput) (*models.InventoryAlert, error)
	ListAlerts(ctx context.Context, vendorID uuid.UUID) ([]models.InventoryAlert, error)
	CheckLevels(ctx context.Context) (*SweepResult, error)
}

type service struct {
	repo     Repository
	orders   orders.Repository
	tx       txRunner
	events   eventEmitter
	notifier AlertNotifier
	logg     *logger.Logger
	cfg      config.InventoryConfig
}

// NewService builds the inventory service.
func NewService(
	repo Repository,
	ordersRepo orders.Repository,
	tx txRunner,
	events eventEmitter,
	notifier AlertNotifier,
	logg *logger.Logger,
	cfg config.InventoryConfig,
) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("inventory repository required")
	}
	if ordersRepo == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if events == nil {
		return nil, fmt.Errorf("outbox emitter required")
	}
	if notifier == nil {
		return nil, fmt.Errorf("alert notifier required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	if cfg.LowStockThreshold < 0 {
		return nil, fmt.Errorf("low stock threshold must be non-negative")
	}
	return &service{
		repo:     repo,
		orders:   ordersRepo,
		tx:       tx,
		events:   events,
		notifier: notifier,
		logg:     logg,
		cfg:      cfg,
	}, nil
}

func (s *service) RestoreStock(ctx context.Context, tx *gorm.DB, orderID uuid.UUID) (bool, error) {
	if orderID == uuid.Nil {
		return false, pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}
	ordersRepo := s.orders.WithTx(tx)

	order, err := ordersRepo.FindByIDForUpdate(ctx, orderID)
	if err != nil {
		if orders.IsNotFound(err) {
			return false, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		return false, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lock order")
	}
	if order.StockRestoredAt != nil {
		return false, nil
	}

	items, err := ordersRepo.ListItems(ctx, orderID)
	if err != nil {
		return false, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list order items")
	}

	repo := s.repo.WithTx(tx)
	for _, item := range items {
		if item.Quantity <= 0 {
			continue
		}
		if err := repo.IncrementStock(ctx, item.ProductID, item.Quantity); err != nil {
			return false, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "restore product stock")
		}
	}

	now := time.Now().UTC()
	if err := ordersRepo.Update(ctx, orderID, map[string]any{
		"stock_restored_at": now,
	}); err != nil {
		return false, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "mark stock restored")
	}

	event := outbox.DomainEvent{
		EventType:     enums.EventStockRestored,
		AggregateType: enums.AggregateOrder,
		AggregateID:   orderID,
		Version:       1,
		OccurredAt:    now,
		Data: payloads.StockRestoredEvent{
			OrderID:    orderID,
			VendorID:   order.VendorID,
			RestoredAt: now,
		},
	}
	if err := s.events.EmitIfNotExists(ctx, tx, event); err != nil {
		return false, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "emit stock restored event")
	}
	return true, nil
}

func (s *service) UpsertAlert(ctx context.Context, input UpsertAlertInput) (*models.InventoryAlert, error) {
	if input.VendorID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "vendor id required")
	}
	if input.ProductID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "product id required")
	}
	if !input.Type.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid alert type")
	}

	product, err := s.repo.FindProduct(ctx, input.ProductID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load product")
	}
	if product.VendorID != input.VendorID {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "product does not belong to vendor")
	}

	// Out-of-stock watches always fire at zero.
	threshold := 0
	if input.Type == enums.InventoryAlertTypeLowStock {
		threshold = s.cfg.LowStockThreshold
		if input.Threshold != nil {
			threshold = *input.Threshold
		}
	}
	if threshold < 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "threshold cannot be negative")
	}
	active := true
	if input.IsActive != nil {
		active = *input.IsActive
	}

	alert := &models.InventoryAlert{
		ID:        uuid.New(),
		ProductID: input.ProductID,
		VendorID:  input.VendorID,
		Type:      input.Type,
		Threshold: threshold,
		IsActive:  active,
	}
	if err := s.repo.UpsertAlert(ctx, alert); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "upsert inventory alert")
	}
	stored, err := s.repo.FindAlert(ctx, input.VendorID, input.ProductID, input.Type)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load inventory alert")
	}
	return stored, nil
}

func (s *service) ListAlerts(ctx context.Context, vendorID uuid.UUID) ([]models.InventoryAlert, error) {
	if vendorID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "vendor id required")
	}
	alerts, err := s.repo.ListVendorAlerts(ctx, vendorID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list inventory alerts")
	}
	return alerts, nil
}

func (s *service) CheckLevels(ctx context.Context) (*SweepResult, error) {
	alerts, err := s.repo.ListActiveAlerts(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list active alerts")
	}

	result := &SweepResult{Scanned: len(alerts)}
	now := time.Now().UTC()
	var errs []error

	for _, alert := range alerts {
		product, err := s.repo.FindProduct(ctx, alert.ProductID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				result.Skipped++
				continue
			}
			return result, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load product")
		}
		if product.Stock > alert.Threshold {
			continue
		}
		if alert.LastTriggeredAt != nil && now.Sub(*alert.LastTriggeredAt) < s.cfg.AlertDebounce {
			result.Skipped++
			continue
		}

		deactivated, err := s.trigger(ctx, alert, *product, now)
		if err != nil {
			logCtx := s.logg.WithField(ctx, "product_id", product.ID.String())
			s.logg.Error(logCtx, "inventory alert failed", err)
			errs = append(errs, fmt.Errorf("product %s: %w", product.ID, err))
			continue
		}
		result.Alerted++
		if deactivated {
			result.Deactivated++
		}

		if err := s.notifier.NotifyInventoryAlert(ctx, *product, alert.Type); err != nil {
			logCtx := s.logg.WithField(ctx, "product_id", product.ID.String())
			s.logg.Warn(logCtx, "inventory alert notification failed: "+err.Error())
		}
	}
	return result, multierr.Combine(errs...)
}

func (s *service) trigger(ctx context.Context, alert models.InventoryAlert, product models.Product, now time.Time) (bool, error) {
	deactivated := false
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		if err := repo.MarkTriggered(ctx, alert.ID, now); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "mark alert triggered")
		}

		if err := s.events.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventInventoryAlertRaised,
			AggregateType: enums.AggregateProduct,
			AggregateID:   product.ID,
			Version:       1,
			OccurredAt:    now,
			Data: payloads.InventoryAlertEvent{
				ProductID:    product.ID,
				VendorID:     product.VendorID,
				Type:         alert.Type,
				Threshold:    alert.Threshold,
				StockAtAlert: product.Stock,
				NotifiedAt:   now,
			},
		}); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "emit inventory alert event")
		}

		if product.Stock > 0 || !product.IsActive {
			return nil
		}
		vendor, err := repo.FindVendor(ctx, product.VendorID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load vendor")
		}
		if !vendor.EnableAutoDeactivate {
			return nil
		}
		if err := repo.DeactivateProduct(ctx, product.ID); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "deactivate product")
		}
		deactivated = true
		return s.events.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventProductDeactivated,
			AggregateType: enums.AggregateProduct,
			AggregateID:   product.ID,
			Version:       1,
			OccurredAt:    now,
			Data: payloads.ProductDeactivatedEvent{
				ProductID:     product.ID,
				VendorID:      product.VendorID,
				DeactivatedAt: now,
			},
		})
	})
	if err != nil {
		return false, err
	}
	return deactivated, nil
}
