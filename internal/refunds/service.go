package refunds

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	stripeapi "github.com/stripe/stripe-go/v84"
	"gorm.io/gorm"

	"github.com/abdul-hamid-achik/luzimarket-backend/internal/audit"
	"github.com/abdul-hamid-achik/luzimarket-backend/internal/ledger"
	"github.com/abdul-hamid-achik/luzimarket-backend/internal/notifications"
	"github.com/abdul-hamid-achik/luzimarket-backend/internal/orders"
	"github.com/abdul-hamid-achik/luzimarket-backend/pkg/db/models"
	"github.com/abdul-hamid-achik/luzimarket-backend/pkg/enums"
	pkgerrors "github.com/abdul-hamid-achik/luzimarket-backend/pkg/errors"
	"github.com/abdul-hamid-achik/luzimarket-backend/pkg/logger"
	"github.com/abdul-hamid-achik/luzimarket-backend/pkg/outbox"
	"github.com/abdul-hamid-achik/luzimarket-backend/pkg/outbox/payloads"
	"github.com/abdul-hamid-achik/luzimarket-backend/pkg/stripe"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type eventEmitter interface {
	EmitIfNotExists(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

// StockRestorer returns ordered quantities to the catalog. Satisfied by the
// inventory service.
type StockRestorer interface {
	RestoreStock(ctx context.Context, tx *gorm.DB, orderID uuid.UUID) (bool, error)
}

// BalanceLedger is the slice of the ledger service the refund saga needs.
type BalanceLedger interface {
	Reverse(ctx context.Context, tx *gorm.DB, input ledger.ReverseInput) (*models.Transaction, error)
	ConfirmTransaction(ctx context.Context, tx *gorm.DB, orderID uuid.UUID, txType enums.TransactionType) (*models.Transaction, error)
}

// Notifier creates the vendor-facing in-app notification for each step.
type Notifier interface {
	Create(ctx context.Context, tx *gorm.DB, input notifications.CreateInput) (*models.Notification, error)
}

// RequestInput opens a cancellation request on a paid order.
type RequestInput struct {
	OrderID uuid.UUID
	Reason  string
	Actor   string
}

// DecisionInput approves or rejects a pending cancellation request.
type DecisionInput struct {
	OrderID uuid.UUID
	Actor   string
}

// ResolveInput finishes an approved refund from the gateway webhook.
type ResolveInput struct {
	OrderID        uuid.UUID
	StripeRefundID string
}

// Service drives the four-step refund saga.
type Service interface {
	Request(ctx context.Context, input RequestInput) (*models.Order, error)
	Approve(ctx context.Context, input DecisionInput) (*models.Order, error)
	Reject(ctx context.Context, input DecisionInput) (*models.Order, error)
	ConfirmRefund(ctx context.Context, input ResolveInput) (*models.Order, error)
	FailRefund(ctx context.Context, input ResolveInput) (*models.Order, error)
	// Resume finishes a partially applied approval: the gateway refund went
	// through but the local transaction never committed.
	Resume(ctx context.Context, orderID uuid.UUID, stripeRefundID string) (*models.Order, error)
}

type service struct {
	repo      orders.Repository
	tx        txRunner
	events    eventEmitter
	gateway   stripe.PaymentGateway
	inventory StockRestorer
	ledger    BalanceLedger
	auditor   audit.Recorder
	notifier  Notifier
	logg      *logger.Logger
}

// NewService builds the refund service.
func NewService(
	repo orders.Repository,
	tx txRunner,
	events eventEmitter,
	gateway stripe.PaymentGateway,
	inventory StockRestorer,
	balances BalanceLedger,
	auditor audit.Recorder,
	notifier Notifier,
	logg *logger.Logger,
) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if events == nil {
		return nil, fmt.Errorf("outbox emitter required")
	}
	if gateway == nil {
		return nil, fmt.Errorf("payment gateway required")
	}
	if inventory == nil {
		return nil, fmt.Errorf("stock restorer required")
	}
	if balances == nil {
		return nil, fmt.Errorf("balance ledger required")
	}
	if auditor == nil {
		return nil, fmt.Errorf("audit recorder required")
	}
	if notifier == nil {
		return nil, fmt.Errorf("notifier required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &service{
		repo:      repo,
		tx:        tx,
		events:    events,
		gateway:   gateway,
		inventory: inventory,
		ledger:    balances,
		auditor:   auditor,
		notifier:  notifier,
		logg:      logg,
	}, nil
}

func (s *service) Request(ctx context.Context, input RequestInput) (*models.Order, error) {
	if input.OrderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}

	var requested *models.Order
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		order, err := repo.FindByIDForUpdate(ctx, input.OrderID)
		if err != nil {
			if orders.IsNotFound(err) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lock order")
		}
		if err := ensureCancellable(order); err != nil {
			return err
		}

		updates := map[string]any{
			"cancellation_status": enums.CancellationStatusRequested,
		}
		if input.Reason != "" {
			updates["cancellation_reason"] = input.Reason
		}
		if err := repo.Update(ctx, order.ID, updates); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "store cancellation request")
		}
		order.CancellationStatus = enums.CancellationStatusRequested
		if input.Reason != "" {
			reason := input.Reason
			order.CancellationReason = &reason
		}

		now := time.Now().UTC()
		if err := s.events.EmitIfNotExists(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventRefundRequested,
			AggregateType: enums.AggregateOrder,
			AggregateID:   order.ID,
			Version:       1,
			OccurredAt:    now,
			Data: payloads.RefundRequestedEvent{
				OrderID:     order.ID,
				VendorID:    order.VendorID,
				Reason:      input.Reason,
				RequestedAt: now,
			},
		}); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "emit refund requested event")
		}

		if err := s.auditor.Record(ctx, tx, audit.Entry{
			Category: enums.AuditCategoryRefund,
			Severity: enums.AuditSeverityInfo,
			Action:   "refund_requested",
			Actor:    input.Actor,
			OrderID:  &order.ID,
			Details:  map[string]string{"reason": input.Reason},
		}); err != nil {
			return err
		}
		requested = order
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.notifyVendor(ctx, requested, enums.NotificationTypeRefundRequested,
		"Solicitud de cancelación",
		fmt.Sprintf("El cliente solicitó cancelar el pedido %s.", requested.OrderNumber))
	return requested, nil
}

func (s *service) Approve(ctx context.Context, input DecisionInput) (*models.Order, error) {
	if input.OrderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}

	order, err := s.repo.FindByID(ctx, input.OrderID)
	if err != nil {
		if orders.IsNotFound(err) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
	}
	if order.CancellationStatus != enums.CancellationStatusRequested {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "No hay solicitud de cancelación pendiente")
	}
	if order.PaymentStatus != enums.PaymentStatusSucceeded {
		// Nothing was charged, so there is nothing to refund. The order is
		// cancelled directly without touching the gateway or the ledger.
		return s.cancelUnpaid(ctx, order.ID, input.Actor)
	}
	if order.PaymentIntentID == nil {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "El pedido no tiene un pago registrado para reembolsar")
	}

	// The gateway refund goes first. If it fails nothing local changes.
	params := &stripeapi.RefundParams{
		PaymentIntent: stripeapi.String(*order.PaymentIntentID),
		Reason:        stripeapi.String(string(stripeapi.RefundReasonRequestedByCustomer)),
	}
	params.AddMetadata("order_id", order.ID.String())
	refund, err := s.gateway.CreateRefund(ctx, params)
	if err != nil {
		auditErr := s.auditor.Record(ctx, nil, audit.Entry{
			Category: enums.AuditCategoryRefund,
			Severity: enums.AuditSeverityError,
			Action:   "refund_gateway_failed",
			Actor:    input.Actor,
			OrderID:  &order.ID,
			Details:  map[string]string{"error": err.Error()},
		})
		if auditErr != nil {
			logCtx := s.logg.WithOrderID(ctx, order.ID.String())
			s.logg.Error(logCtx, "audit write failed", auditErr)
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create gateway refund")
	}

	approved, err := s.applyApproval(ctx, order.ID, refund.ID, input.Actor)
	if err != nil {
		return nil, err
	}

	s.notifyVendor(ctx, approved, enums.NotificationTypeRefundApproved,
		"Cancelación aprobada",
		fmt.Sprintf("Se aprobó la cancelación del pedido %s y se inició el reembolso.", approved.OrderNumber))
	return approved, nil
}

func (s *service) cancelUnpaid(ctx context.Context, orderID uuid.UUID, actor string) (*models.Order, error) {
	var cancelled *models.Order
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		order, err := repo.FindByIDForUpdate(ctx, orderID)
		if err != nil {
			if orders.IsNotFound(err) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lock order")
		}
		if order.CancellationStatus != enums.CancellationStatusRequested {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "No hay solicitud de cancelación pendiente")
		}
		if err := orders.EnsureTransition(order.Status, enums.OrderStatusCancelled); err != nil {
			return err
		}

		now := time.Now().UTC()
		if err := repo.Update(ctx, order.ID, map[string]any{
			"status":              enums.OrderStatusCancelled,
			"cancellation_status": enums.CancellationStatusApproved,
			"cancelled_at":        now,
		}); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "cancel order")
		}
		order.Status = enums.OrderStatusCancelled
		order.CancellationStatus = enums.CancellationStatusApproved
		order.CancelledAt = &now

		if _, err := s.inventory.RestoreStock(ctx, tx, order.ID); err != nil {
			return err
		}

		if err := s.events.EmitIfNotExists(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventRefundApproved,
			AggregateType: enums.AggregateOrder,
			AggregateID:   order.ID,
			Version:       1,
			OccurredAt:    now,
			Data: payloads.RefundDecisionEvent{
				OrderID:   order.ID,
				VendorID:  order.VendorID,
				Decision:  enums.CancellationStatusApproved,
				DecidedAt: now,
			},
		}); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "emit cancellation event")
		}

		if err := s.auditor.Record(ctx, tx, audit.Entry{
			Category: enums.AuditCategoryOrder,
			Severity: enums.AuditSeverityInfo,
			Action:   "unpaid_order_cancelled",
			Actor:    actor,
			OrderID:  &order.ID,
		}); err != nil {
			return err
		}
		cancelled = order
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.notifyVendor(ctx, cancelled, enums.NotificationTypeRefundApproved,
		"Cancelación aprobada",
		fmt.Sprintf("Se canceló el pedido %s; no había pago que reembolsar.", cancelled.OrderNumber))
	return cancelled, nil
}

func (s *service) Reject(ctx context.Context, input DecisionInput) (*models.Order, error) {
	if input.OrderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}

	var rejected *models.Order
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		order, err := repo.FindByIDForUpdate(ctx, input.OrderID)
		if err != nil {
			if orders.IsNotFound(err) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lock order")
		}
		if order.CancellationStatus != enums.CancellationStatusRequested {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "No hay solicitud de cancelación pendiente")
		}

		if err := repo.Update(ctx, order.ID, map[string]any{
			"cancellation_status": enums.CancellationStatusRejected,
		}); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "store rejection")
		}
		order.CancellationStatus = enums.CancellationStatusRejected

		now := time.Now().UTC()
		if err := s.events.EmitIfNotExists(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventRefundRejected,
			AggregateType: enums.AggregateOrder,
			AggregateID:   order.ID,
			Version:       1,
			OccurredAt:    now,
			Data: payloads.RefundDecisionEvent{
				OrderID:   order.ID,
				VendorID:  order.VendorID,
				Decision:  enums.CancellationStatusRejected,
				DecidedAt: now,
			},
		}); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "emit refund rejected event")
		}

		if err := s.auditor.Record(ctx, tx, audit.Entry{
			Category: enums.AuditCategoryRefund,
			Severity: enums.AuditSeverityInfo,
			Action:   "refund_rejected",
			Actor:    input.Actor,
			OrderID:  &order.ID,
		}); err != nil {
			return err
		}
		rejected = order
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.notifyVendor(ctx, rejected, enums.NotificationTypeRefundRejected,
		"Cancelación rechazada",
		fmt.Sprintf("Se rechazó la solicitud de cancelación del pedido %s.", rejected.OrderNumber))
	return rejected, nil
}

func (s *service) ConfirmRefund(ctx context.Context, input ResolveInput) (*models.Order, error) {
	if input.OrderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}

	var confirmed *models.Order
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		order, err := repo.FindByIDForUpdate(ctx, input.OrderID)
		if err != nil {
			if orders.IsNotFound(err) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lock order")
		}
		if order.RefundStatus == enums.RefundStatusSucceeded {
			confirmed = order
			return nil
		}
		if order.RefundStatus != enums.RefundStatusPending {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "El pedido no tiene un reembolso pendiente")
		}

		now := time.Now().UTC()
		if err := repo.Update(ctx, order.ID, map[string]any{
			"refund_status": enums.RefundStatusSucceeded,
			"refunded_at":   now,
		}); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "mark refund succeeded")
		}
		order.RefundStatus = enums.RefundStatusSucceeded
		order.RefundedAt = &now

		if _, err := s.ledger.ConfirmTransaction(ctx, tx, order.ID, enums.TransactionTypeRefund); err != nil {
			if pkgerrors.As(err).Code() != pkgerrors.CodeNotFound {
				return err
			}
			logCtx := s.logg.WithOrderID(ctx, order.ID.String())
			s.logg.Warn(logCtx, "refund confirmed without a ledger transaction")
		}

		if err := s.events.EmitIfNotExists(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventRefundSucceeded,
			AggregateType: enums.AggregateOrder,
			AggregateID:   order.ID,
			Version:       1,
			OccurredAt:    now,
			Data: payloads.RefundResultEvent{
				OrderID:        order.ID,
				VendorID:       order.VendorID,
				StripeRefundID: input.StripeRefundID,
				Status:         enums.RefundStatusSucceeded,
				Amount:         order.Total,
				ResolvedAt:     now,
			},
		}); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "emit refund succeeded event")
		}

		if err := s.auditor.Record(ctx, tx, audit.Entry{
			Category: enums.AuditCategoryRefund,
			Severity: enums.AuditSeverityInfo,
			Action:   "refund_succeeded",
			OrderID:  &order.ID,
			Details:  map[string]string{"stripe_refund_id": input.StripeRefundID},
		}); err != nil {
			return err
		}
		confirmed = order
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.notifyVendor(ctx, confirmed, enums.NotificationTypeRefundCompleted,
		"Reembolso completado",
		fmt.Sprintf("El reembolso del pedido %s fue procesado por el banco.", confirmed.OrderNumber))
	return confirmed, nil
}

func (s *service) FailRefund(ctx context.Context, input ResolveInput) (*models.Order, error) {
	if input.OrderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}

	var failed *models.Order
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		order, err := repo.FindByIDForUpdate(ctx, input.OrderID)
		if err != nil {
			if orders.IsNotFound(err) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lock order")
		}
		if order.RefundStatus == enums.RefundStatusFailed {
			failed = order
			return nil
		}
		if order.RefundStatus != enums.RefundStatusPending {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "El pedido no tiene un reembolso pendiente")
		}

		if err := repo.Update(ctx, order.ID, map[string]any{
			"refund_status": enums.RefundStatusFailed,
		}); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "mark refund failed")
		}
		order.RefundStatus = enums.RefundStatusFailed

		now := time.Now().UTC()
		if err := s.events.EmitIfNotExists(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventRefundFailed,
			AggregateType: enums.AggregateOrder,
			AggregateID:   order.ID,
			Version:       1,
			OccurredAt:    now,
			Data: payloads.RefundResultEvent{
				OrderID:        order.ID,
				VendorID:       order.VendorID,
				StripeRefundID: input.StripeRefundID,
				Status:         enums.RefundStatusFailed,
				Amount:         order.Total,
				ResolvedAt:     now,
			},
		}); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "emit refund failed event")
		}

		// No automatic rollback. Operations follows up on the audit trail.
		if err := s.auditor.Record(ctx, tx, audit.Entry{
			Category: enums.AuditCategoryRefund,
			Severity: enums.AuditSeverityError,
			Action:   "refund_failed",
			OrderID:  &order.ID,
			Details:  map[string]string{"stripe_refund_id": input.StripeRefundID},
		}); err != nil {
			return err
		}
		failed = order
		return nil
	})
	if err != nil {
		return nil, err
	}
	return failed, nil
}

func (s *service) Resume(ctx context.Context, orderID uuid.UUID, stripeRefundID string) (*models.Order, error) {
	if orderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}
	if stripeRefundID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "stripe refund id required")
	}

	order, err := s.repo.FindByID(ctx, orderID)
	if err != nil {
		if orders.IsNotFound(err) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
	}
	switch order.CancellationStatus {
	case enums.CancellationStatusRequested, enums.CancellationStatusApproved:
	default:
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "El pedido no tiene una aprobación por completar")
	}

	return s.applyApproval(ctx, orderID, stripeRefundID, "system")
}

// applyApproval performs the local half of an approval in one transaction.
// Every step carries its own idempotency guard so a crashed approval can be
// replayed safely.
func (s *service) applyApproval(ctx context.Context, orderID uuid.UUID, stripeRefundID, actor string) (*models.Order, error) {
	var approved *models.Order
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		order, err := repo.FindByIDForUpdate(ctx, orderID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lock order")
		}

		if order.Status != enums.OrderStatusRefunded {
			if err := orders.EnsureTransition(order.Status, enums.OrderStatusRefunded); err != nil {
				return err
			}
			now := time.Now().UTC()
			if err := repo.Update(ctx, order.ID, map[string]any{
				"status":              enums.OrderStatusRefunded,
				"payment_status":      enums.PaymentStatusRefunded,
				"cancellation_status": enums.CancellationStatusApproved,
				"refund_status":       enums.RefundStatusPending,
				"refund_id":           stripeRefundID,
				"cancelled_at":        now,
			}); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "apply refund approval")
			}
			order.Status = enums.OrderStatusRefunded
			order.PaymentStatus = enums.PaymentStatusRefunded
			order.CancellationStatus = enums.CancellationStatusApproved
			order.RefundStatus = enums.RefundStatusPending
			order.RefundID = &stripeRefundID
			order.CancelledAt = &now
		}

		if _, err := s.inventory.RestoreStock(ctx, tx, order.ID); err != nil {
			return err
		}

		reversal, err := s.ledger.Reverse(ctx, tx, ledger.ReverseInput{
			VendorID:       order.VendorID,
			OrderID:        order.ID,
			Amount:         order.Total,
			StripeRefundID: stripeRefundID,
			Description:    fmt.Sprintf("Reembolso - pedido %s", order.OrderNumber),
		})
		if err != nil {
			return err
		}
		if reversal.BalanceAfter.Available.IsNegative() {
			if err := s.auditor.Record(ctx, tx, audit.Entry{
				Category: enums.AuditCategoryLedger,
				Severity: enums.AuditSeverityWarning,
				Action:   "balance_negative_after_reversal",
				Actor:    actor,
				OrderID:  &order.ID,
				Details: map[string]string{
					"vendor_id":     order.VendorID.String(),
					"balance_after": reversal.BalanceAfter.Available.String(),
				},
			}); err != nil {
				return err
			}
		}

		now := time.Now().UTC()
		if err := s.events.EmitIfNotExists(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventRefundApproved,
			AggregateType: enums.AggregateOrder,
			AggregateID:   order.ID,
			Version:       1,
			OccurredAt:    now,
			Data: payloads.RefundDecisionEvent{
				OrderID:   order.ID,
				VendorID:  order.VendorID,
				Decision:  enums.CancellationStatusApproved,
				DecidedAt: now,
			},
		}); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "emit refund approved event")
		}

		if err := s.auditor.Record(ctx, tx, audit.Entry{
			Category: enums.AuditCategoryRefund,
			Severity: enums.AuditSeverityInfo,
			Action:   "refund_approved",
			Actor:    actor,
			OrderID:  &order.ID,
			Details:  map[string]string{"stripe_refund_id": stripeRefundID},
		}); err != nil {
			return err
		}
		approved = order
		return nil
	})
	if err != nil {
		return nil, err
	}
	return approved, nil
}

func (s *service) notifyVendor(ctx context.Context, order *models.Order, notificationType enums.NotificationType, title, message string) {
	if order == nil {
		return
	}
	_, err := s.notifier.Create(ctx, nil, notifications.CreateInput{
		VendorID: order.VendorID,
		Type:     notificationType,
		Title:    title,
		Message:  message,
		Link:     "/vendor/orders/" + order.ID.String(),
	})
	if err != nil {
		logCtx := s.logg.WithOrderID(ctx, order.ID.String())
		s.logg.Warn(logCtx, "vendor notification failed: "+err.Error())
	}
}

func ensureCancellable(order *models.Order) error {
	switch order.Status {
	case enums.OrderStatusShipped:
		return pkgerrors.New(pkgerrors.CodeStateConflict, "No se puede cancelar un pedido que ya fue enviado")
	case enums.OrderStatusDelivered:
		return pkgerrors.New(pkgerrors.CodeStateConflict, "No se puede cancelar un pedido que ya fue entregado")
	case enums.OrderStatusCancelled:
		return pkgerrors.New(pkgerrors.CodeStateConflict, "El pedido ya está cancelado")
	case enums.OrderStatusRefunded:
		return pkgerrors.New(pkgerrors.CodeStateConflict, "El pedido ya fue reembolsado")
	}
	return nil
}
