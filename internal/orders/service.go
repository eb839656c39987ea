package orders

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	stripeapi "github.com/stripe/stripe-go/v84"
	"gorm.io/gorm"

	"github.com/abdul-hamid-achik/luzimarket-backend/pkg/db/models"
	"github.com/abdul-hamid-achik/luzimarket-backend/pkg/enums"
	pkgerrors "github.com/abdul-hamid-achik/luzimarket-backend/pkg/errors"
	"github.com/abdul-hamid-achik/luzimarket-backend/pkg/logger"
	"github.com/abdul-hamid-achik/luzimarket-backend/pkg/outbox"
	"github.com/abdul-hamid-achik/luzimarket-backend/pkg/outbox/payloads"
	"github.com/abdul-hamid-achik/luzimarket-backend/pkg/stripe"
	"github.com/abdul-hamid-achik/luzimarket-backend/pkg/types"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type eventEmitter interface {
	EmitIfNotExists(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

// TrackingValidator checks a tracking number against carrier-specific formats
// and resolves the carrier's public tracking page. Satisfied by the shipping
// service.
type TrackingValidator interface {
	ValidateTrackingNumber(number string, carrier enums.Carrier) error
	TrackingURL(number string, carrier enums.Carrier) string
}

// SaleConfirmer settles the vendor's sale transaction once an order is
// delivered. Satisfied by the ledger service.
type SaleConfirmer interface {
	ConfirmTransaction(ctx context.Context, tx *gorm.DB, orderID uuid.UUID, txType enums.TransactionType) (*models.Transaction, error)
}

// MarkPaidInput resolves the order through its payment intent.
type MarkPaidInput struct {
	PaymentIntentID string
	PaidAt          time.Time
}

// ShipInput carries the dispatch details a vendor submits.
type ShipInput struct {
	OrderID               uuid.UUID
	Carrier               enums.Carrier
	TrackingNumber        string
	EstimatedDeliveryDate *time.Time
}

// PaymentIntentResult is handed back to the storefront for checkout.
type PaymentIntentResult struct {
	PaymentIntentID string
	ClientSecret    string
}

// Service drives the order status machine.
type Service interface {
	CreatePaymentIntent(ctx context.Context, orderID uuid.UUID) (*PaymentIntentResult, error)
	// MarkPaid transitions pending orders to paid. The second return is true
	// when the order was already paid and nothing changed.
	MarkPaid(ctx context.Context, tx *gorm.DB, input MarkPaidInput) (*models.Order, bool, error)
	MarkPaymentFailed(ctx context.Context, tx *gorm.DB, paymentIntentID string) (*models.Order, error)
	Ship(ctx context.Context, input ShipInput) (*models.Order, error)
	MarkDelivered(ctx context.Context, orderID uuid.UUID) (*models.Order, error)
	AppendTrackingEvent(ctx context.Context, orderID uuid.UUID, event types.TrackingEvent) (*models.Order, error)
	FindOrder(ctx context.Context, orderID uuid.UUID) (*models.Order, error)
}

type service struct {
	repo      Repository
	tx        txRunner
	events    eventEmitter
	gateway   stripe.PaymentGateway
	validator TrackingValidator
	settler   SaleConfirmer
	logg      *logger.Logger
}

// NewService builds the order service.
func NewService(
	repo Repository,
	tx txRunner,
	events eventEmitter,
	gateway stripe.PaymentGateway,
	validator TrackingValidator,
	settler SaleConfirmer,
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
	if validator == nil {
		return nil, fmt.Errorf("tracking validator required")
	}
	if settler == nil {
		return nil, fmt.Errorf("sale confirmer required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &service{
		repo:      repo,
		tx:        tx,
		events:    events,
		gateway:   gateway,
		validator: validator,
		settler:   settler,
		logg:      logg,
	}, nil
}

func (s *service) CreatePaymentIntent(ctx context.Context, orderID uuid.UUID) (*PaymentIntentResult, error) {
	if orderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}
	order, err := s.repo.FindByID(ctx, orderID)
	if err != nil {
		if IsNotFound(err) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
	}
	if order.Status != enums.OrderStatusPending {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "order is not awaiting payment")
	}
	if order.PaymentStatus == enums.PaymentStatusSucceeded {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "order is already paid")
	}

	params := &stripeapi.PaymentIntentParams{
		Amount:   stripeapi.Int64(toCents(order.Total)),
		Currency: stripeapi.String(strings.ToLower(order.Currency)),
		AutomaticPaymentMethods: &stripeapi.PaymentIntentAutomaticPaymentMethodsParams{
			Enabled: stripeapi.Bool(true),
		},
	}
	params.AddMetadata("order_id", order.ID.String())
	params.AddMetadata("order_number", order.OrderNumber)

	intent, err := s.gateway.CreatePaymentIntent(ctx, params)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create payment intent")
	}

	if err := s.repo.Update(ctx, order.ID, map[string]any{
		"payment_intent_id": intent.ID,
		"payment_status":    enums.PaymentStatusProcessing,
	}); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "store payment intent")
	}

	return &PaymentIntentResult{
		PaymentIntentID: intent.ID,
		ClientSecret:    intent.ClientSecret,
	}, nil
}

func (s *service) MarkPaid(ctx context.Context, tx *gorm.DB, input MarkPaidInput) (*models.Order, bool, error) {
	if input.PaymentIntentID == "" {
		return nil, false, pkgerrors.New(pkgerrors.CodeValidation, "payment intent id required")
	}
	if input.PaidAt.IsZero() {
		input.PaidAt = time.Now().UTC()
	}
	repo := s.repo.WithTx(tx)

	order, err := repo.FindByPaymentIntentID(ctx, input.PaymentIntentID)
	if err != nil {
		if IsNotFound(err) {
			return nil, false, pkgerrors.New(pkgerrors.CodeNotFound, "order not found for payment intent")
		}
		return nil, false, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
	}
	order, err = repo.FindByIDForUpdate(ctx, order.ID)
	if err != nil {
		return nil, false, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lock order")
	}

	if order.Status == enums.OrderStatusPaid || order.PaymentStatus == enums.PaymentStatusSucceeded {
		return order, true, nil
	}
	if err := EnsureTransition(order.Status, enums.OrderStatusPaid); err != nil {
		return nil, false, err
	}

	paidAt := input.PaidAt
	if err := repo.Update(ctx, order.ID, map[string]any{
		"status":         enums.OrderStatusPaid,
		"payment_status": enums.PaymentStatusSucceeded,
		"paid_at":        paidAt,
	}); err != nil {
		return nil, false, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "mark order paid")
	}
	order.Status = enums.OrderStatusPaid
	order.PaymentStatus = enums.PaymentStatusSucceeded
	order.PaidAt = &paidAt

	event := outbox.DomainEvent{
		EventType:     enums.EventOrderPaid,
		AggregateType: enums.AggregateOrder,
		AggregateID:   order.ID,
		Version:       1,
		OccurredAt:    paidAt,
		Data: payloads.OrderPaidEvent{
			OrderID:         order.ID,
			VendorID:        order.VendorID,
			PaymentIntentID: input.PaymentIntentID,
			Total:           order.Total,
			Currency:        order.Currency,
			PaidAt:          paidAt,
		},
	}
	if err := s.events.EmitIfNotExists(ctx, tx, event); err != nil {
		return nil, false, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "emit order paid event")
	}
	return order, false, nil
}

func (s *service) MarkPaymentFailed(ctx context.Context, tx *gorm.DB, paymentIntentID string) (*models.Order, error) {
	if paymentIntentID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "payment intent id required")
	}
	repo := s.repo.WithTx(tx)

	order, err := repo.FindByPaymentIntentID(ctx, paymentIntentID)
	if err != nil {
		if IsNotFound(err) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found for payment intent")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
	}

	// A success that already landed wins over a late failure event.
	if order.PaymentStatus == enums.PaymentStatusSucceeded {
		return order, nil
	}
	if order.PaymentStatus == enums.PaymentStatusFailed {
		return order, nil
	}

	if err := repo.Update(ctx, order.ID, map[string]any{
		"payment_status": enums.PaymentStatusFailed,
	}); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "mark payment failed")
	}
	order.PaymentStatus = enums.PaymentStatusFailed

	event := outbox.DomainEvent{
		EventType:     enums.EventPaymentFailed,
		AggregateType: enums.AggregateOrder,
		AggregateID:   order.ID,
		Version:       1,
		Data: payloads.PaymentFailedEvent{
			OrderID:         order.ID,
			VendorID:        order.VendorID,
			PaymentIntentID: paymentIntentID,
			FailedAt:        time.Now().UTC(),
		},
	}
	if err := s.events.EmitIfNotExists(ctx, tx, event); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "emit payment failed event")
	}
	return order, nil
}

func (s *service) Ship(ctx context.Context, input ShipInput) (*models.Order, error) {
	if input.OrderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}
	if !input.Carrier.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid carrier")
	}
	if err := s.validator.ValidateTrackingNumber(input.TrackingNumber, input.Carrier); err != nil {
		return nil, err
	}

	var shipped *models.Order
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		order, err := repo.FindByIDForUpdate(ctx, input.OrderID)
		if err != nil {
			if IsNotFound(err) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lock order")
		}
		if err := EnsureTransition(order.Status, enums.OrderStatusShipped); err != nil {
			return err
		}

		now := time.Now().UTC()
		carrier := input.Carrier
		history := append(order.TrackingHistory, types.TrackingEvent{
			Status:    "shipped",
			Note:      "Paquete entregado a " + carrier.String(),
			Timestamp: now,
		})
		trackingURL := s.validator.TrackingURL(input.TrackingNumber, carrier)
		updates := map[string]any{
			"status":           enums.OrderStatusShipped,
			"tracking_number":  input.TrackingNumber,
			"carrier":          carrier,
			"tracking_history": history,
			"shipped_at":       now,
		}
		if trackingURL != "" {
			updates["tracking_url"] = trackingURL
		}
		if input.EstimatedDeliveryDate != nil {
			updates["estimated_delivery_date"] = *input.EstimatedDeliveryDate
		}
		if err := repo.Update(ctx, order.ID, updates); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "mark order shipped")
		}
		order.Status = enums.OrderStatusShipped
		order.TrackingNumber = &input.TrackingNumber
		order.Carrier = &carrier
		if trackingURL != "" {
			order.TrackingURL = &trackingURL
		}
		order.EstimatedDeliveryDate = input.EstimatedDeliveryDate
		order.TrackingHistory = history
		order.ShippedAt = &now

		event := outbox.DomainEvent{
			EventType:     enums.EventOrderShipped,
			AggregateType: enums.AggregateOrder,
			AggregateID:   order.ID,
			Version:       1,
			OccurredAt:    now,
			Data: payloads.OrderShippedEvent{
				OrderID:        order.ID,
				VendorID:       order.VendorID,
				Carrier:        carrier,
				TrackingNumber: input.TrackingNumber,
				ShippedAt:      now,
			},
		}
		if err := s.events.EmitIfNotExists(ctx, tx, event); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "emit order shipped event")
		}
		shipped = order
		return nil
	})
	if err != nil {
		return nil, err
	}
	return shipped, nil
}

func (s *service) MarkDelivered(ctx context.Context, orderID uuid.UUID) (*models.Order, error) {
	if orderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}

	var delivered *models.Order
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		order, err := repo.FindByIDForUpdate(ctx, orderID)
		if err != nil {
			if IsNotFound(err) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lock order")
		}
		order, err = s.deliverTx(ctx, tx, repo, order, types.TrackingEvent{
			Status:    "delivered",
			Timestamp: time.Now().UTC(),
		})
		if err != nil {
			return err
		}
		delivered = order
		return nil
	})
	if err != nil {
		return nil, err
	}
	return delivered, nil
}

func (s *service) AppendTrackingEvent(ctx context.Context, orderID uuid.UUID, event types.TrackingEvent) (*models.Order, error) {
	if orderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}
	if event.Status == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "tracking status required")
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}

	var updated *models.Order
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		order, err := repo.FindByIDForUpdate(ctx, orderID)
		if err != nil {
			if IsNotFound(err) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lock order")
		}
		if order.Status != enums.OrderStatusShipped {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "tracking updates require a shipped order")
		}

		if strings.Contains(strings.ToLower(event.Status), "delivered") {
			order, err = s.deliverTx(ctx, tx, repo, order, event)
			if err != nil {
				return err
			}
			updated = order
			return nil
		}

		history := append(order.TrackingHistory, event)
		if err := repo.Update(ctx, order.ID, map[string]any{
			"tracking_history": history,
		}); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "append tracking event")
		}
		order.TrackingHistory = history
		updated = order
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

func (s *service) FindOrder(ctx context.Context, orderID uuid.UUID) (*models.Order, error) {
	if orderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}
	order, err := s.repo.FindByID(ctx, orderID)
	if err != nil {
		if IsNotFound(err) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
	}
	return order, nil
}

// deliverTx finishes the shipped to delivered transition inside the caller's
// transaction. The tracking event is appended alongside the status change.
func (s *service) deliverTx(ctx context.Context, tx *gorm.DB, repo Repository, order *models.Order, event types.TrackingEvent) (*models.Order, error) {
	if err := EnsureTransition(order.Status, enums.OrderStatusDelivered); err != nil {
		return nil, err
	}

	now := event.Timestamp
	if now.IsZero() {
		now = time.Now().UTC()
	}
	history := append(order.TrackingHistory, event)
	if err := repo.Update(ctx, order.ID, map[string]any{
		"status":           enums.OrderStatusDelivered,
		"tracking_history": history,
		"delivered_at":     now,
	}); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "mark order delivered")
	}
	order.Status = enums.OrderStatusDelivered
	order.TrackingHistory = history
	order.DeliveredAt = &now

	// Delivery settles the vendor's sale transaction.
	if _, err := s.settler.ConfirmTransaction(ctx, tx, order.ID, enums.TransactionTypeSale); err != nil {
		if pkgerrors.As(err).Code() == pkgerrors.CodeNotFound {
			logCtx := s.logg.WithOrderID(ctx, order.ID.String())
			s.logg.Warn(logCtx, "delivered order has no sale transaction to settle")
		} else {
			return nil, err
		}
	}

	eventPayload := payloads.OrderDeliveredEvent{
		OrderID:     order.ID,
		VendorID:    order.VendorID,
		DeliveredAt: now,
	}
	if err := s.events.EmitIfNotExists(ctx, tx, outbox.DomainEvent{
		EventType:     enums.EventOrderDelivered,
		AggregateType: enums.AggregateOrder,
		AggregateID:   order.ID,
		Version:       1,
		OccurredAt:    now,
		Data:          eventPayload,
	}); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "emit order delivered event")
	}
	return order, nil
}

func toCents(amount decimal.Decimal) int64 {
	return amount.Mul(decimal.NewFromInt(100)).Round(0).IntPart()
}
