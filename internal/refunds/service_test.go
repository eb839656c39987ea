package refunds

import (
	"context"
	"errors"
	"io"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
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
)

type fakeOrdersRepo struct {
	orders  map[uuid.UUID]*models.Order
	updates []map[string]any
}

func newFakeOrdersRepo(rows ...*models.Order) *fakeOrdersRepo {
	repo := &fakeOrdersRepo{orders: map[uuid.UUID]*models.Order{}}
	for _, order := range rows {
		repo.orders[order.ID] = order
	}
	return repo
}

func (f *fakeOrdersRepo) WithTx(tx *gorm.DB) orders.Repository { return f }

func (f *fakeOrdersRepo) FindByID(ctx context.Context, orderID uuid.UUID) (*models.Order, error) {
	order, ok := f.orders[orderID]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return order, nil
}

func (f *fakeOrdersRepo) FindByIDForUpdate(ctx context.Context, orderID uuid.UUID) (*models.Order, error) {
	return f.FindByID(ctx, orderID)
}

func (f *fakeOrdersRepo) FindByPaymentIntentID(ctx context.Context, paymentIntentID string) (*models.Order, error) {
	for _, order := range f.orders {
		if order.PaymentIntentID != nil && *order.PaymentIntentID == paymentIntentID {
			return order, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (f *fakeOrdersRepo) Update(ctx context.Context, orderID uuid.UUID, updates map[string]any) error {
	order, ok := f.orders[orderID]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	f.updates = append(f.updates, updates)
	if v, ok := updates["status"]; ok {
		order.Status = v.(enums.OrderStatus)
	}
	if v, ok := updates["payment_status"]; ok {
		order.PaymentStatus = v.(enums.PaymentStatus)
	}
	if v, ok := updates["cancellation_status"]; ok {
		order.CancellationStatus = v.(enums.CancellationStatus)
	}
	if v, ok := updates["refund_status"]; ok {
		order.RefundStatus = v.(enums.RefundStatus)
	}
	return nil
}

func (f *fakeOrdersRepo) ListItems(ctx context.Context, orderID uuid.UUID) ([]models.OrderItem, error) {
	return nil, nil
}

type fakeTxRunner struct{}

func (fakeTxRunner) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return fn(&gorm.DB{})
}

type fakeEmitter struct {
	events []outbox.DomainEvent
}

func (f *fakeEmitter) EmitIfNotExists(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error {
	f.events = append(f.events, event)
	return nil
}

type fakeGateway struct {
	refund *stripeapi.Refund
	err    error
	params *stripeapi.RefundParams
}

func (f *fakeGateway) CreatePaymentIntent(ctx context.Context, params *stripeapi.PaymentIntentParams) (*stripeapi.PaymentIntent, error) {
	return nil, errors.New("not used")
}

func (f *fakeGateway) CreateRefund(ctx context.Context, params *stripeapi.RefundParams) (*stripeapi.Refund, error) {
	f.params = params
	if f.err != nil {
		return nil, f.err
	}
	return f.refund, nil
}

type fakeRestorer struct {
	calls int
	err   error
}

func (f *fakeRestorer) RestoreStock(ctx context.Context, tx *gorm.DB, orderID uuid.UUID) (bool, error) {
	if f.err != nil {
		return false, f.err
	}
	f.calls++
	return true, nil
}

type fakeLedger struct {
	reversed     []ledger.ReverseInput
	confirmed    []enums.TransactionType
	reverseErr   error
	balanceAfter decimal.Decimal
}

func (f *fakeLedger) Reverse(ctx context.Context, tx *gorm.DB, input ledger.ReverseInput) (*models.Transaction, error) {
	if f.reverseErr != nil {
		return nil, f.reverseErr
	}
	f.reversed = append(f.reversed, input)
	return &models.Transaction{ID: uuid.New(), BalanceAfter: models.BalanceSnapshot{Available: f.balanceAfter}}, nil
}

func (f *fakeLedger) ConfirmTransaction(ctx context.Context, tx *gorm.DB, orderID uuid.UUID, txType enums.TransactionType) (*models.Transaction, error) {
	f.confirmed = append(f.confirmed, txType)
	return &models.Transaction{Status: enums.TransactionStatusCompleted}, nil
}

type fakeAuditor struct {
	entries []audit.Entry
}

func (f *fakeAuditor) Record(ctx context.Context, tx *gorm.DB, entry audit.Entry) error {
	f.entries = append(f.entries, entry)
	return nil
}

func (f *fakeAuditor) ListByOrderID(ctx context.Context, orderID uuid.UUID) ([]models.AuditLog, error) {
	return nil, nil
}

type fakeNotifier struct {
	created []notifications.CreateInput
}

func (f *fakeNotifier) Create(ctx context.Context, tx *gorm.DB, input notifications.CreateInput) (*models.Notification, error) {
	f.created = append(f.created, input)
	return &models.Notification{ID: uuid.New()}, nil
}

type serviceDeps struct {
	repo     *fakeOrdersRepo
	emitter  *fakeEmitter
	gateway  *fakeGateway
	restorer *fakeRestorer
	ledger   *fakeLedger
	auditor  *fakeAuditor
	notifier *fakeNotifier
}

func newTestService(t *testing.T, deps serviceDeps) Service {
	t.Helper()
	if deps.repo == nil {
		deps.repo = newFakeOrdersRepo()
	}
	if deps.emitter == nil {
		deps.emitter = &fakeEmitter{}
	}
	if deps.gateway == nil {
		deps.gateway = &fakeGateway{refund: &stripeapi.Refund{ID: "re_test"}}
	}
	if deps.restorer == nil {
		deps.restorer = &fakeRestorer{}
	}
	if deps.ledger == nil {
		deps.ledger = &fakeLedger{}
	}
	if deps.auditor == nil {
		deps.auditor = &fakeAuditor{}
	}
	if deps.notifier == nil {
		deps.notifier = &fakeNotifier{}
	}
	logg := logger.New(logger.Options{ServiceName: "refunds-test", Output: io.Discard})
	svc, err := NewService(deps.repo, fakeTxRunner{}, deps.emitter, deps.gateway,
		deps.restorer, deps.ledger, deps.auditor, deps.notifier, logg)
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}
	return svc
}

func paidOrder() *models.Order {
	paymentIntentID := "pi_123"
	return &models.Order{
		ID:                 uuid.New(),
		OrderNumber:        "LM-2026-0042",
		VendorID:           uuid.New(),
		Status:             enums.OrderStatusPaid,
		PaymentStatus:      enums.PaymentStatusSucceeded,
		CancellationStatus: enums.CancellationStatusNone,
		RefundStatus:       enums.RefundStatusNone,
		PaymentIntentID:    &paymentIntentID,
		Total:              decimal.NewFromFloat(1044.50),
	}
}

func TestRequest(t *testing.T) {
	order := paidOrder()
	repo := newFakeOrdersRepo(order)
	emitter := &fakeEmitter{}
	auditor := &fakeAuditor{}
	notifier := &fakeNotifier{}
	svc := newTestService(t, serviceDeps{repo: repo, emitter: emitter, auditor: auditor, notifier: notifier})

	requested, err := svc.Request(context.Background(), RequestInput{
		OrderID: order.ID,
		Reason:  "Ya no necesito el pedido",
		Actor:   "customer",
	})
	if err != nil {
		t.Fatalf("Request: %v", err)
	}
	if requested.CancellationStatus != enums.CancellationStatusRequested {
		t.Fatalf("expected requested status, got %s", requested.CancellationStatus)
	}
	if len(emitter.events) != 1 || emitter.events[0].EventType != enums.EventRefundRequested {
		t.Fatalf("unexpected events %+v", emitter.events)
	}
	if len(auditor.entries) != 1 || auditor.entries[0].Action != "refund_requested" {
		t.Fatalf("unexpected audit entries %+v", auditor.entries)
	}
	if len(notifier.created) != 1 || notifier.created[0].Type != enums.NotificationTypeRefundRequested {
		t.Fatalf("unexpected notifications %+v", notifier.created)
	}
}

func TestRequestRejectsShippedOrder(t *testing.T) {
	order := paidOrder()
	order.Status = enums.OrderStatusShipped
	svc := newTestService(t, serviceDeps{repo: newFakeOrdersRepo(order)})

	_, err := svc.Request(context.Background(), RequestInput{OrderID: order.ID, Reason: "x"})
	if pkgerrors.As(err).Code() != pkgerrors.CodeStateConflict {
		t.Fatalf("expected state conflict, got %v", err)
	}
}

func TestRequestOrderNotFound(t *testing.T) {
	svc := newTestService(t, serviceDeps{})

	_, err := svc.Request(context.Background(), RequestInput{OrderID: uuid.New()})
	if pkgerrors.As(err).Code() != pkgerrors.CodeNotFound {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestApprove(t *testing.T) {
	order := paidOrder()
	order.CancellationStatus = enums.CancellationStatusRequested
	repo := newFakeOrdersRepo(order)
	gateway := &fakeGateway{refund: &stripeapi.Refund{ID: "re_123"}}
	restorer := &fakeRestorer{}
	balances := &fakeLedger{}
	emitter := &fakeEmitter{}
	notifier := &fakeNotifier{}
	svc := newTestService(t, serviceDeps{
		repo: repo, gateway: gateway, restorer: restorer,
		ledger: balances, emitter: emitter, notifier: notifier,
	})

	approved, err := svc.Approve(context.Background(), DecisionInput{OrderID: order.ID, Actor: "vendor"})
	if err != nil {
		t.Fatalf("Approve: %v", err)
	}
	if approved.Status != enums.OrderStatusRefunded {
		t.Fatalf("expected refunded status, got %s", approved.Status)
	}
	if approved.PaymentStatus != enums.PaymentStatusRefunded {
		t.Fatalf("expected refunded payment status, got %s", approved.PaymentStatus)
	}
	if approved.CancellationStatus != enums.CancellationStatusApproved {
		t.Fatalf("expected approved cancellation, got %s", approved.CancellationStatus)
	}
	if approved.RefundStatus != enums.RefundStatusPending {
		t.Fatalf("expected pending refund, got %s", approved.RefundStatus)
	}
	if gateway.params == nil || *gateway.params.PaymentIntent != "pi_123" {
		t.Fatalf("gateway refund not requested for payment intent: %+v", gateway.params)
	}
	if restorer.calls != 1 {
		t.Fatalf("expected one stock restore, got %d", restorer.calls)
	}
	if len(balances.reversed) != 1 {
		t.Fatalf("expected one reversal, got %d", len(balances.reversed))
	}
	reversal := balances.reversed[0]
	if !reversal.Amount.Equal(order.Total) || reversal.StripeRefundID != "re_123" {
		t.Fatalf("unexpected reversal %+v", reversal)
	}
	if len(emitter.events) != 1 || emitter.events[0].EventType != enums.EventRefundApproved {
		t.Fatalf("unexpected events %+v", emitter.events)
	}
	if len(notifier.created) != 1 || notifier.created[0].Type != enums.NotificationTypeRefundApproved {
		t.Fatalf("unexpected notifications %+v", notifier.created)
	}
}

func TestApproveAuditsNegativeBalance(t *testing.T) {
	order := paidOrder()
	order.CancellationStatus = enums.CancellationStatusRequested
	balances := &fakeLedger{balanceAfter: decimal.NewFromInt(-250)}
	auditor := &fakeAuditor{}
	svc := newTestService(t, serviceDeps{
		repo: newFakeOrdersRepo(order), ledger: balances, auditor: auditor,
	})

	if _, err := svc.Approve(context.Background(), DecisionInput{OrderID: order.ID, Actor: "vendor"}); err != nil {
		t.Fatalf("Approve: %v", err)
	}
	var found *audit.Entry
	for i := range auditor.entries {
		if auditor.entries[i].Action == "balance_negative_after_reversal" {
			found = &auditor.entries[i]
			break
		}
	}
	if found == nil {
		t.Fatalf("expected negative balance audit entry, got %+v", auditor.entries)
	}
	if found.Severity != enums.AuditSeverityWarning || found.Category != enums.AuditCategoryLedger {
		t.Fatalf("unexpected audit entry %+v", found)
	}
	details, _ := found.Details.(map[string]string)
	if details["balance_after"] != "-250" {
		t.Fatalf("unexpected balance detail %q", details["balance_after"])
	}
}

func TestApproveWithoutPendingRequest(t *testing.T) {
	order := paidOrder()
	svc := newTestService(t, serviceDeps{repo: newFakeOrdersRepo(order)})

	_, err := svc.Approve(context.Background(), DecisionInput{OrderID: order.ID})
	if pkgerrors.As(err).Code() != pkgerrors.CodeStateConflict {
		t.Fatalf("expected state conflict, got %v", err)
	}
}

func TestApproveGatewayFailureLeavesOrderUntouched(t *testing.T) {
	order := paidOrder()
	order.CancellationStatus = enums.CancellationStatusRequested
	repo := newFakeOrdersRepo(order)
	gateway := &fakeGateway{err: errors.New("stripe down")}
	restorer := &fakeRestorer{}
	balances := &fakeLedger{}
	auditor := &fakeAuditor{}
	svc := newTestService(t, serviceDeps{
		repo: repo, gateway: gateway, restorer: restorer,
		ledger: balances, auditor: auditor,
	})

	_, err := svc.Approve(context.Background(), DecisionInput{OrderID: order.ID, Actor: "vendor"})
	if pkgerrors.As(err).Code() != pkgerrors.CodeDependency {
		t.Fatalf("expected dependency error, got %v", err)
	}
	if len(repo.updates) != 0 {
		t.Fatalf("order must not change after gateway failure, got %+v", repo.updates)
	}
	if restorer.calls != 0 || len(balances.reversed) != 0 {
		t.Fatal("no stock or balance movement expected")
	}
	if len(auditor.entries) != 1 || auditor.entries[0].Severity != enums.AuditSeverityError {
		t.Fatalf("expected error audit entry, got %+v", auditor.entries)
	}
}

func TestApproveUnpaidOrderCancelsWithoutGateway(t *testing.T) {
	order := paidOrder()
	order.Status = enums.OrderStatusPending
	order.PaymentStatus = enums.PaymentStatusPending
	order.CancellationStatus = enums.CancellationStatusRequested
	order.PaymentIntentID = nil
	repo := newFakeOrdersRepo(order)
	gateway := &fakeGateway{}
	restorer := &fakeRestorer{}
	balances := &fakeLedger{}
	emitter := &fakeEmitter{}
	auditor := &fakeAuditor{}
	notifier := &fakeNotifier{}
	svc := newTestService(t, serviceDeps{
		repo: repo, gateway: gateway, restorer: restorer,
		ledger: balances, emitter: emitter, auditor: auditor, notifier: notifier,
	})

	cancelled, err := svc.Approve(context.Background(), DecisionInput{OrderID: order.ID, Actor: "vendor"})
	if err != nil {
		t.Fatalf("Approve: %v", err)
	}
	if cancelled.Status != enums.OrderStatusCancelled {
		t.Fatalf("expected cancelled status, got %s", cancelled.Status)
	}
	if cancelled.CancellationStatus != enums.CancellationStatusApproved {
		t.Fatalf("expected approved cancellation, got %s", cancelled.CancellationStatus)
	}
	if cancelled.CancelledAt == nil {
		t.Fatal("expected cancelled_at to be set")
	}
	if gateway.params != nil {
		t.Fatalf("gateway must not be called for an unpaid order: %+v", gateway.params)
	}
	if len(balances.reversed) != 0 {
		t.Fatalf("ledger must not be touched, got %+v", balances.reversed)
	}
	if restorer.calls != 1 {
		t.Fatalf("expected one stock restore, got %d", restorer.calls)
	}
	if len(emitter.events) != 1 || emitter.events[0].EventType != enums.EventRefundApproved {
		t.Fatalf("unexpected events %+v", emitter.events)
	}
	if len(auditor.entries) != 1 || auditor.entries[0].Action != "unpaid_order_cancelled" {
		t.Fatalf("unexpected audit entries %+v", auditor.entries)
	}
	if len(notifier.created) != 1 || notifier.created[0].Type != enums.NotificationTypeRefundApproved {
		t.Fatalf("unexpected notifications %+v", notifier.created)
	}
}

func TestReject(t *testing.T) {
	order := paidOrder()
	order.CancellationStatus = enums.CancellationStatusRequested
	repo := newFakeOrdersRepo(order)
	restorer := &fakeRestorer{}
	balances := &fakeLedger{}
	notifier := &fakeNotifier{}
	svc := newTestService(t, serviceDeps{repo: repo, restorer: restorer, ledger: balances, notifier: notifier})

	rejected, err := svc.Reject(context.Background(), DecisionInput{OrderID: order.ID, Actor: "vendor"})
	if err != nil {
		t.Fatalf("Reject: %v", err)
	}
	if rejected.CancellationStatus != enums.CancellationStatusRejected {
		t.Fatalf("expected rejected status, got %s", rejected.CancellationStatus)
	}
	if rejected.Status != enums.OrderStatusPaid {
		t.Fatalf("order status must not change, got %s", rejected.Status)
	}
	if restorer.calls != 0 || len(balances.reversed) != 0 {
		t.Fatal("rejection must not move stock or balance")
	}
	if len(notifier.created) != 1 || notifier.created[0].Type != enums.NotificationTypeRefundRejected {
		t.Fatalf("unexpected notifications %+v", notifier.created)
	}
}

func TestConfirmRefund(t *testing.T) {
	order := paidOrder()
	order.Status = enums.OrderStatusRefunded
	order.PaymentStatus = enums.PaymentStatusRefunded
	order.CancellationStatus = enums.CancellationStatusApproved
	order.RefundStatus = enums.RefundStatusPending
	repo := newFakeOrdersRepo(order)
	balances := &fakeLedger{}
	emitter := &fakeEmitter{}
	notifier := &fakeNotifier{}
	svc := newTestService(t, serviceDeps{repo: repo, ledger: balances, emitter: emitter, notifier: notifier})

	confirmed, err := svc.ConfirmRefund(context.Background(), ResolveInput{
		OrderID:        order.ID,
		StripeRefundID: "re_123",
	})
	if err != nil {
		t.Fatalf("ConfirmRefund: %v", err)
	}
	if confirmed.RefundStatus != enums.RefundStatusSucceeded {
		t.Fatalf("expected succeeded refund, got %s", confirmed.RefundStatus)
	}
	if len(balances.confirmed) != 1 || balances.confirmed[0] != enums.TransactionTypeRefund {
		t.Fatalf("expected refund transaction confirmed, got %+v", balances.confirmed)
	}
	if len(emitter.events) != 1 || emitter.events[0].EventType != enums.EventRefundSucceeded {
		t.Fatalf("unexpected events %+v", emitter.events)
	}
	if len(notifier.created) != 1 || notifier.created[0].Type != enums.NotificationTypeRefundCompleted {
		t.Fatalf("unexpected notifications %+v", notifier.created)
	}
}

func TestConfirmRefundIdempotent(t *testing.T) {
	order := paidOrder()
	order.RefundStatus = enums.RefundStatusSucceeded
	repo := newFakeOrdersRepo(order)
	balances := &fakeLedger{}
	svc := newTestService(t, serviceDeps{repo: repo, ledger: balances})

	if _, err := svc.ConfirmRefund(context.Background(), ResolveInput{OrderID: order.ID, StripeRefundID: "re_123"}); err != nil {
		t.Fatalf("ConfirmRefund: %v", err)
	}
	if len(repo.updates) != 0 {
		t.Fatalf("no updates expected, got %+v", repo.updates)
	}
	if len(balances.confirmed) != 0 {
		t.Fatal("ledger must not be touched on replay")
	}
}

func TestFailRefund(t *testing.T) {
	order := paidOrder()
	order.Status = enums.OrderStatusRefunded
	order.RefundStatus = enums.RefundStatusPending
	repo := newFakeOrdersRepo(order)
	auditor := &fakeAuditor{}
	emitter := &fakeEmitter{}
	svc := newTestService(t, serviceDeps{repo: repo, auditor: auditor, emitter: emitter})

	failed, err := svc.FailRefund(context.Background(), ResolveInput{OrderID: order.ID, StripeRefundID: "re_123"})
	if err != nil {
		t.Fatalf("FailRefund: %v", err)
	}
	if failed.RefundStatus != enums.RefundStatusFailed {
		t.Fatalf("expected failed refund, got %s", failed.RefundStatus)
	}
	if failed.Status != enums.OrderStatusRefunded {
		t.Fatalf("order status must not roll back, got %s", failed.Status)
	}
	if len(auditor.entries) != 1 || auditor.entries[0].Severity != enums.AuditSeverityError {
		t.Fatalf("expected error audit entry, got %+v", auditor.entries)
	}
	if len(emitter.events) != 1 || emitter.events[0].EventType != enums.EventRefundFailed {
		t.Fatalf("unexpected events %+v", emitter.events)
	}
}

func TestResumeAfterCrashedApproval(t *testing.T) {
	// The gateway refund succeeded but the local transaction never committed.
	order := paidOrder()
	order.CancellationStatus = enums.CancellationStatusRequested
	repo := newFakeOrdersRepo(order)
	restorer := &fakeRestorer{}
	balances := &fakeLedger{}
	svc := newTestService(t, serviceDeps{repo: repo, restorer: restorer, ledger: balances})

	resumed, err := svc.Resume(context.Background(), order.ID, "re_123")
	if err != nil {
		t.Fatalf("Resume: %v", err)
	}
	if resumed.Status != enums.OrderStatusRefunded || resumed.RefundStatus != enums.RefundStatusPending {
		t.Fatalf("unexpected order state %s/%s", resumed.Status, resumed.RefundStatus)
	}
	if restorer.calls != 1 || len(balances.reversed) != 1 {
		t.Fatal("resume must restore stock and reverse the balance")
	}
	if balances.reversed[0].StripeRefundID != "re_123" {
		t.Fatalf("unexpected reversal %+v", balances.reversed[0])
	}
}

func TestResumeAlreadyApplied(t *testing.T) {
	order := paidOrder()
	order.Status = enums.OrderStatusRefunded
	order.PaymentStatus = enums.PaymentStatusRefunded
	order.CancellationStatus = enums.CancellationStatusApproved
	order.RefundStatus = enums.RefundStatusPending
	repo := newFakeOrdersRepo(order)
	restorer := &fakeRestorer{}
	svc := newTestService(t, serviceDeps{repo: repo, restorer: restorer})

	if _, err := svc.Resume(context.Background(), order.ID, "re_123"); err != nil {
		t.Fatalf("Resume: %v", err)
	}
	if len(repo.updates) != 0 {
		t.Fatalf("status already applied, no updates expected: %+v", repo.updates)
	}
}

func TestResumeRequiresOpenApproval(t *testing.T) {
	order := paidOrder()
	svc := newTestService(t, serviceDeps{repo: newFakeOrdersRepo(order)})

	_, err := svc.Resume(context.Background(), order.ID, "re_123")
	if pkgerrors.As(err).Code() != pkgerrors.CodeStateConflict {
		t.Fatalf("expected state conflict, got %v", err)
	}
}
