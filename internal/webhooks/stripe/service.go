package stripewebhook

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/stripe/stripe-go/v84"
	"gorm.io/gorm"

	"github.com/abdul-hamid-achik/luzimarket-backend/internal/ledger"
	"github.com/abdul-hamid-achik/luzimarket-backend/internal/orders"
	"github.com/abdul-hamid-achik/luzimarket-backend/internal/refunds"
	"github.com/abdul-hamid-achik/luzimarket-backend/pkg/db/models"
	"github.com/abdul-hamid-achik/luzimarket-backend/pkg/enums"
	pkgerrors "github.com/abdul-hamid-achik/luzimarket-backend/pkg/errors"
	"github.com/abdul-hamid-achik/luzimarket-backend/pkg/logger"
	"github.com/abdul-hamid-achik/luzimarket-backend/pkg/metrics"
)

type ordersService interface {
	MarkPaid(ctx context.Context, tx *gorm.DB, input orders.MarkPaidInput) (*models.Order, bool, error)
	MarkPaymentFailed(ctx context.Context, tx *gorm.DB, paymentIntentID string) (*models.Order, error)
}

type creditLedger interface {
	Credit(ctx context.Context, tx *gorm.DB, input ledger.CreditInput) (*models.Transaction, error)
}

type refundsService interface {
	ConfirmRefund(ctx context.Context, input refunds.ResolveInput) (*models.Order, error)
	FailRefund(ctx context.Context, input refunds.ResolveInput) (*models.Order, error)
	Resume(ctx context.Context, orderID uuid.UUID, stripeRefundID string) (*models.Order, error)
}

type orderFinder interface {
	FindByPaymentIntentID(ctx context.Context, paymentIntentID string) (*models.Order, error)
}

type eventGuard interface {
	CheckAndMark(ctx context.Context, eventID string) (bool, error)
	Delete(ctx context.Context, eventID string) error
}

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// ServiceParams collects the webhook service dependencies.
type ServiceParams struct {
	Orders            ordersService
	Ledger            creditLedger
	Refunds           refundsService
	OrderFinder       orderFinder
	Guard             eventGuard
	TransactionRunner txRunner
	Metrics           *metrics.WebhookMetrics
	Logger            *logger.Logger
}

// Service turns verified Stripe events into order lifecycle transitions.
type Service struct {
	orders   ordersService
	ledger   creditLedger
	refunds  refundsService
	finder   orderFinder
	guard    eventGuard
	txRunner txRunner
	metrics  *metrics.WebhookMetrics
	logg     *logger.Logger
}

// NewService wires the webhook dispatcher.
func NewService(params ServiceParams) (*Service, error) {
	if params.Orders == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "orders service required")
	}
	if params.Ledger == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "ledger service required")
	}
	if params.Refunds == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "refunds service required")
	}
	if params.OrderFinder == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "order finder required")
	}
	if params.Guard == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "idempotency guard required")
	}
	if params.TransactionRunner == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "transaction runner required")
	}
	if params.Logger == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "logger required")
	}
	return &Service{
		orders:   params.Orders,
		ledger:   params.Ledger,
		refunds:  params.Refunds,
		finder:   params.OrderFinder,
		guard:    params.Guard,
		txRunner: params.TransactionRunner,
		metrics:  params.Metrics,
		logg:     params.Logger,
	}, nil
}

// HandleEvent dispatches one verified Stripe event. Duplicate deliveries are
// acknowledged without reprocessing.
func (s *Service) HandleEvent(ctx context.Context, event *stripe.Event) error {
	if event == nil || event.Data == nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "stripe event data required")
	}
	eventType := string(event.Type)
	logCtx := s.logg.WithFields(ctx, map[string]any{
		"stripe_event_id":   event.ID,
		"stripe_event_type": eventType,
	})

	seen, err := s.guard.CheckAndMark(ctx, event.ID)
	if err != nil {
		s.metrics.IncFailed(eventType)
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check webhook idempotency")
	}
	if seen {
		s.logg.Info(logCtx, "duplicate webhook delivery skipped")
		s.metrics.IncSkipped(eventType)
		return nil
	}

	handled, err := s.dispatch(logCtx, event)
	if err != nil {
		// Clear the marker so Stripe's retry gets another attempt.
		if delErr := s.guard.Delete(ctx, event.ID); delErr != nil {
			s.logg.Error(logCtx, "failed to clear idempotency marker", delErr)
		}
		s.metrics.IncFailed(eventType)
		return err
	}
	if handled {
		s.metrics.IncProcessed(eventType)
	} else {
		s.metrics.IncSkipped(eventType)
	}
	return nil
}

func (s *Service) dispatch(ctx context.Context, event *stripe.Event) (bool, error) {
	switch event.Type {
	case stripe.EventTypePaymentIntentSucceeded:
		var intent stripe.PaymentIntent
		if err := json.Unmarshal(event.Data.Raw, &intent); err != nil {
			return false, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "decode payment intent")
		}
		return s.handlePaymentSucceeded(ctx, &intent, time.Unix(event.Created, 0).UTC())
	case stripe.EventTypePaymentIntentPaymentFailed:
		var intent stripe.PaymentIntent
		if err := json.Unmarshal(event.Data.Raw, &intent); err != nil {
			return false, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "decode payment intent")
		}
		return s.handlePaymentFailed(ctx, &intent)
	case stripe.EventTypeRefundUpdated, stripe.EventTypeRefundFailed:
		var refund stripe.Refund
		if err := json.Unmarshal(event.Data.Raw, &refund); err != nil {
			return false, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "decode refund")
		}
		return s.handleRefund(ctx, event.Type, &refund)
	default:
		s.logg.Info(ctx, "webhook event type has no handler")
		return false, nil
	}
}

// handlePaymentSucceeded moves the order to paid and credits the vendor's
// balance in the same transaction.
func (s *Service) handlePaymentSucceeded(ctx context.Context, intent *stripe.PaymentIntent, paidAt time.Time) (bool, error) {
	if intent.ID == "" {
		return false, pkgerrors.New(pkgerrors.CodeValidation, "payment intent id missing")
	}

	handled := false
	err := s.txRunner.WithTx(ctx, func(tx *gorm.DB) error {
		order, alreadyPaid, err := s.orders.MarkPaid(ctx, tx, orders.MarkPaidInput{
			PaymentIntentID: intent.ID,
			PaidAt:          paidAt,
		})
		if err != nil {
			return err
		}
		if alreadyPaid {
			s.logg.Info(s.logg.WithOrderID(ctx, order.ID.String()), "order already paid")
			return nil
		}

		if _, err := s.ledger.Credit(ctx, tx, ledger.CreditInput{
			VendorID:    order.VendorID,
			OrderID:     order.ID,
			Amount:      order.Total,
			Description: fmt.Sprintf("Venta - pedido %s", order.OrderNumber),
		}); err != nil {
			return err
		}
		handled = true
		return nil
	})
	if err != nil {
		return false, err
	}
	return handled, nil
}

func (s *Service) handlePaymentFailed(ctx context.Context, intent *stripe.PaymentIntent) (bool, error) {
	if intent.ID == "" {
		return false, pkgerrors.New(pkgerrors.CodeValidation, "payment intent id missing")
	}

	err := s.txRunner.WithTx(ctx, func(tx *gorm.DB) error {
		_, err := s.orders.MarkPaymentFailed(ctx, tx, intent.ID)
		return err
	})
	if err != nil {
		return false, err
	}
	return true, nil
}

// handleRefund resolves the gateway outcome of an approved refund. When the
// approval's local transaction never committed the saga is resumed first.
func (s *Service) handleRefund(ctx context.Context, eventType stripe.EventType, refund *stripe.Refund) (bool, error) {
	if refund.ID == "" || refund.PaymentIntent == nil || refund.PaymentIntent.ID == "" {
		return false, pkgerrors.New(pkgerrors.CodeValidation, "refund payment intent missing")
	}

	order, err := s.finder.FindByPaymentIntentID(ctx, refund.PaymentIntent.ID)
	if err != nil {
		if orders.IsNotFound(err) {
			s.logg.Warn(ctx, "refund event for unknown payment intent")
			return false, nil
		}
		return false, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order for refund")
	}

	if order.CancellationStatus == enums.CancellationStatusRequested {
		if _, err := s.refunds.Resume(ctx, order.ID, refund.ID); err != nil {
			return false, err
		}
	}

	input := refunds.ResolveInput{OrderID: order.ID, StripeRefundID: refund.ID}
	switch {
	case eventType == stripe.EventTypeRefundFailed || refund.Status == stripe.RefundStatusFailed:
		if _, err := s.refunds.FailRefund(ctx, input); err != nil {
			return false, err
		}
		return true, nil
	case refund.Status == stripe.RefundStatusSucceeded:
		if _, err := s.refunds.ConfirmRefund(ctx, input); err != nil {
			return false, err
		}
		return true, nil
	default:
		s.logg.Info(s.logg.WithOrderID(ctx, order.ID.String()), "refund still in flight")
		return false, nil
	}
}
