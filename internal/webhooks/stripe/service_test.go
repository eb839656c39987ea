package stripewebhook

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stripe/stripe-go/v84"
	"gorm.io/gorm"

	"github.com/abdul-hamid-achik/luzimarket-backend/internal/ledger"
	"github.com/abdul-hamid-achik/luzimarket-backend/internal/orders"
	"github.com/abdul-hamid-achik/luzimarket-backend/internal/refunds"
	"github.com/abdul-hamid-achik/luzimarket-backend/pkg/db/models"
	"github.com/abdul-hamid-achik/luzimarket-backend/pkg/enums"
	"github.com/abdul-hamid-achik/luzimarket-backend/pkg/logger"
	"github.com/abdul-hamid-achik/luzimarket-backend/pkg/metrics"
)

type fakeOrders struct {
	order       *models.Order
	alreadyPaid bool
	markPaidErr error
	paid        []orders.MarkPaidInput
	failed      []string
}

func (f *fakeOrders) MarkPaid(ctx context.Context, tx *gorm.DB, input orders.MarkPaidInput) (*models.Order, bool, error) {
	if f.markPaidErr != nil {
		return nil, false, f.markPaidErr
	}
	f.paid = append(f.paid, input)
	return f.order, f.alreadyPaid, nil
}

func (f *fakeOrders) MarkPaymentFailed(ctx context.Context, tx *gorm.DB, paymentIntentID string) (*models.Order, error) {
	f.failed = append(f.failed, paymentIntentID)
	return f.order, nil
}

type fakeCreditLedger struct {
	credits []ledger.CreditInput
}

func (f *fakeCreditLedger) Credit(ctx context.Context, tx *gorm.DB, input ledger.CreditInput) (*models.Transaction, error) {
	f.credits = append(f.credits, input)
	return &models.Transaction{ID: uuid.New()}, nil
}

type fakeRefunds struct {
	confirmed []refunds.ResolveInput
	failed    []refunds.ResolveInput
	resumed   []uuid.UUID
}

func (f *fakeRefunds) ConfirmRefund(ctx context.Context, input refunds.ResolveInput) (*models.Order, error) {
	f.confirmed = append(f.confirmed, input)
	return &models.Order{ID: input.OrderID}, nil
}

func (f *fakeRefunds) FailRefund(ctx context.Context, input refunds.ResolveInput) (*models.Order, error) {
	f.failed = append(f.failed, input)
	return &models.Order{ID: input.OrderID}, nil
}

func (f *fakeRefunds) Resume(ctx context.Context, orderID uuid.UUID, stripeRefundID string) (*models.Order, error) {
	f.resumed = append(f.resumed, orderID)
	return &models.Order{ID: orderID}, nil
}

type fakeFinder struct {
	order *models.Order
}

func (f *fakeFinder) FindByPaymentIntentID(ctx context.Context, paymentIntentID string) (*models.Order, error) {
	if f.order == nil {
		return nil, gorm.ErrRecordNotFound
	}
	return f.order, nil
}

type fakeGuard struct {
	seen    bool
	deleted []string
}

func (f *fakeGuard) CheckAndMark(ctx context.Context, eventID string) (bool, error) {
	return f.seen, nil
}

func (f *fakeGuard) Delete(ctx context.Context, eventID string) error {
	f.deleted = append(f.deleted, eventID)
	return nil
}

type fakeTxRunner struct{}

func (fakeTxRunner) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return fn(&gorm.DB{})
}

type webhookDeps struct {
	orders  *fakeOrders
	ledger  *fakeCreditLedger
	refunds *fakeRefunds
	finder  *fakeFinder
	guard   *fakeGuard
}

func newTestService(t *testing.T, deps webhookDeps) *Service {
	t.Helper()
	if deps.orders == nil {
		deps.orders = &fakeOrders{order: testOrder()}
	}
	if deps.ledger == nil {
		deps.ledger = &fakeCreditLedger{}
	}
	if deps.refunds == nil {
		deps.refunds = &fakeRefunds{}
	}
	if deps.finder == nil {
		deps.finder = &fakeFinder{}
	}
	if deps.guard == nil {
		deps.guard = &fakeGuard{}
	}
	logg := logger.New(logger.Options{ServiceName: "webhook-test", Output: io.Discard})
	svc, err := NewService(ServiceParams{
		Orders:            deps.orders,
		Ledger:            deps.ledger,
		Refunds:           deps.refunds,
		OrderFinder:       deps.finder,
		Guard:             deps.guard,
		TransactionRunner: fakeTxRunner{},
		Metrics:           metrics.NewWebhookMetrics(nil),
		Logger:            logg,
	})
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}
	return svc
}

func testOrder() *models.Order {
	return &models.Order{
		ID:          uuid.New(),
		OrderNumber: "LM-2026-0007",
		VendorID:    uuid.New(),
		Status:      enums.OrderStatusPaid,
		Total:       decimal.NewFromFloat(500.00),
	}
}

func stripeEvent(t *testing.T, eventType stripe.EventType, payload any) *stripe.Event {
	t.Helper()
	raw, err := json.Marshal(payload)
	if err != nil {
		t.Fatalf("marshal payload: %v", err)
	}
	return &stripe.Event{
		ID:      "evt_" + uuid.NewString(),
		Type:    eventType,
		Created: time.Now().Unix(),
		Data:    &stripe.EventData{Raw: raw},
	}
}

func TestPaymentSucceededCreditsVendor(t *testing.T) {
	order := testOrder()
	ordersFake := &fakeOrders{order: order}
	ledgerFake := &fakeCreditLedger{}
	svc := newTestService(t, webhookDeps{orders: ordersFake, ledger: ledgerFake})

	event := stripeEvent(t, stripe.EventTypePaymentIntentSucceeded, map[string]string{"id": "pi_123"})
	if err := svc.HandleEvent(context.Background(), event); err != nil {
		t.Fatalf("HandleEvent: %v", err)
	}
	if len(ordersFake.paid) != 1 || ordersFake.paid[0].PaymentIntentID != "pi_123" {
		t.Fatalf("unexpected MarkPaid calls %+v", ordersFake.paid)
	}
	if len(ledgerFake.credits) != 1 {
		t.Fatalf("expected one credit, got %d", len(ledgerFake.credits))
	}
	credit := ledgerFake.credits[0]
	if credit.VendorID != order.VendorID || !credit.Amount.Equal(order.Total) {
		t.Fatalf("unexpected credit %+v", credit)
	}
}

func TestPaymentSucceededAlreadyPaidSkipsCredit(t *testing.T) {
	ordersFake := &fakeOrders{order: testOrder(), alreadyPaid: true}
	ledgerFake := &fakeCreditLedger{}
	svc := newTestService(t, webhookDeps{orders: ordersFake, ledger: ledgerFake})

	event := stripeEvent(t, stripe.EventTypePaymentIntentSucceeded, map[string]string{"id": "pi_123"})
	if err := svc.HandleEvent(context.Background(), event); err != nil {
		t.Fatalf("HandleEvent: %v", err)
	}
	if len(ledgerFake.credits) != 0 {
		t.Fatal("replayed success must not credit twice")
	}
}

func TestDuplicateDeliverySkipped(t *testing.T) {
	ordersFake := &fakeOrders{order: testOrder()}
	guard := &fakeGuard{seen: true}
	svc := newTestService(t, webhookDeps{orders: ordersFake, guard: guard})

	event := stripeEvent(t, stripe.EventTypePaymentIntentSucceeded, map[string]string{"id": "pi_123"})
	if err := svc.HandleEvent(context.Background(), event); err != nil {
		t.Fatalf("HandleEvent: %v", err)
	}
	if len(ordersFake.paid) != 0 {
		t.Fatal("duplicate delivery must not dispatch")
	}
}

func TestHandlerFailureClearsIdempotencyMarker(t *testing.T) {
	ordersFake := &fakeOrders{markPaidErr: errors.New("db down")}
	guard := &fakeGuard{}
	svc := newTestService(t, webhookDeps{orders: ordersFake, guard: guard})

	event := stripeEvent(t, stripe.EventTypePaymentIntentSucceeded, map[string]string{"id": "pi_123"})
	if err := svc.HandleEvent(context.Background(), event); err == nil {
		t.Fatal("expected error")
	}
	if len(guard.deleted) != 1 {
		t.Fatal("marker must be cleared so Stripe can retry")
	}
}

func TestPaymentFailed(t *testing.T) {
	ordersFake := &fakeOrders{order: testOrder()}
	svc := newTestService(t, webhookDeps{orders: ordersFake})

	event := stripeEvent(t, stripe.EventTypePaymentIntentPaymentFailed, map[string]string{"id": "pi_999"})
	if err := svc.HandleEvent(context.Background(), event); err != nil {
		t.Fatalf("HandleEvent: %v", err)
	}
	if len(ordersFake.failed) != 1 || ordersFake.failed[0] != "pi_999" {
		t.Fatalf("unexpected MarkPaymentFailed calls %+v", ordersFake.failed)
	}
}

func TestRefundSucceeded(t *testing.T) {
	order := testOrder()
	order.CancellationStatus = enums.CancellationStatusApproved
	refundsFake := &fakeRefunds{}
	svc := newTestService(t, webhookDeps{refunds: refundsFake, finder: &fakeFinder{order: order}})

	event := stripeEvent(t, stripe.EventTypeRefundUpdated, map[string]any{
		"id":             "re_123",
		"status":         "succeeded",
		"payment_intent": map[string]string{"id": "pi_123"},
	})
	if err := svc.HandleEvent(context.Background(), event); err != nil {
		t.Fatalf("HandleEvent: %v", err)
	}
	if len(refundsFake.confirmed) != 1 || refundsFake.confirmed[0].StripeRefundID != "re_123" {
		t.Fatalf("unexpected confirmations %+v", refundsFake.confirmed)
	}
	if len(refundsFake.resumed) != 0 {
		t.Fatal("approved order needs no resume")
	}
}

func TestRefundFailed(t *testing.T) {
	order := testOrder()
	order.CancellationStatus = enums.CancellationStatusApproved
	refundsFake := &fakeRefunds{}
	svc := newTestService(t, webhookDeps{refunds: refundsFake, finder: &fakeFinder{order: order}})

	event := stripeEvent(t, stripe.EventTypeRefundFailed, map[string]any{
		"id":             "re_123",
		"status":         "failed",
		"payment_intent": map[string]string{"id": "pi_123"},
	})
	if err := svc.HandleEvent(context.Background(), event); err != nil {
		t.Fatalf("HandleEvent: %v", err)
	}
	if len(refundsFake.failed) != 1 {
		t.Fatalf("expected FailRefund, got %+v", refundsFake)
	}
}

func TestRefundResumesCrashedApproval(t *testing.T) {
	order := testOrder()
	order.CancellationStatus = enums.CancellationStatusRequested
	refundsFake := &fakeRefunds{}
	svc := newTestService(t, webhookDeps{refunds: refundsFake, finder: &fakeFinder{order: order}})

	event := stripeEvent(t, stripe.EventTypeRefundUpdated, map[string]any{
		"id":             "re_123",
		"status":         "succeeded",
		"payment_intent": map[string]string{"id": "pi_123"},
	})
	if err := svc.HandleEvent(context.Background(), event); err != nil {
		t.Fatalf("HandleEvent: %v", err)
	}
	if len(refundsFake.resumed) != 1 || refundsFake.resumed[0] != order.ID {
		t.Fatalf("expected resume for order, got %+v", refundsFake.resumed)
	}
	if len(refundsFake.confirmed) != 1 {
		t.Fatal("refund must still be confirmed after resume")
	}
}

func TestRefundPendingSkipped(t *testing.T) {
	order := testOrder()
	order.CancellationStatus = enums.CancellationStatusApproved
	refundsFake := &fakeRefunds{}
	svc := newTestService(t, webhookDeps{refunds: refundsFake, finder: &fakeFinder{order: order}})

	event := stripeEvent(t, stripe.EventTypeRefundUpdated, map[string]any{
		"id":             "re_123",
		"status":         "pending",
		"payment_intent": map[string]string{"id": "pi_123"},
	})
	if err := svc.HandleEvent(context.Background(), event); err != nil {
		t.Fatalf("HandleEvent: %v", err)
	}
	if len(refundsFake.confirmed) != 0 && len(refundsFake.failed) != 0 {
		t.Fatal("pending refund must not resolve")
	}
}

func TestUnknownEventAcknowledged(t *testing.T) {
	svc := newTestService(t, webhookDeps{})

	event := stripeEvent(t, stripe.EventType("charge.captured"), map[string]string{"id": "ch_1"})
	if err := svc.HandleEvent(context.Background(), event); err != nil {
		t.Fatalf("unhandled event types must be acknowledged: %v", err)
	}
}
