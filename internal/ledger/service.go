package ledger

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/abdul-hamid-achik/luzimarket-backend/pkg/db/models"
	"github.com/abdul-hamid-achik/luzimarket-backend/pkg/enums"
	pkgerrors "github.com/abdul-hamid-achik/luzimarket-backend/pkg/errors"
	"github.com/abdul-hamid-achik/luzimarket-backend/pkg/logger"
	"github.com/abdul-hamid-achik/luzimarket-backend/pkg/outbox"
	"github.com/abdul-hamid-achik/luzimarket-backend/pkg/outbox/payloads"
)

// CreditInput credits a vendor's available balance when an order is paid.
type CreditInput struct {
	VendorID    uuid.UUID
	OrderID     uuid.UUID
	Amount      decimal.Decimal
	Description string
}

// ReverseInput debits a vendor's available balance for a refunded order.
// The amount is always the full order total.
type ReverseInput struct {
	VendorID       uuid.UUID
	OrderID        uuid.UUID
	Amount         decimal.Decimal
	StripeRefundID string
	Description    string
}

// Service maintains the per-vendor running balance. Every mutation locks the
// balance row and appends an immutable Transaction carrying before/after
// snapshots, inside the caller's database transaction.
type Service interface {
	Credit(ctx context.Context, tx *gorm.DB, input CreditInput) (*models.Transaction, error)
	Reverse(ctx context.Context, tx *gorm.DB, input ReverseInput) (*models.Transaction, error)
	ConfirmTransaction(ctx context.Context, tx *gorm.DB, orderID uuid.UUID, txType enums.TransactionType) (*models.Transaction, error)
	HasTransaction(ctx context.Context, orderID uuid.UUID, txType enums.TransactionType) (bool, error)
	ListTransactions(ctx context.Context, vendorID uuid.UUID, limit int) ([]models.Transaction, error)
}

// EventEmitter queues domain events inside the caller's transaction.
// Satisfied by *outbox.Service.
type EventEmitter interface {
	EmitIfNotExists(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

type service struct {
	repo   Repository
	events EventEmitter
	logg   *logger.Logger
}

// NewService builds the ledger service.
func NewService(repo Repository, events EventEmitter, logg *logger.Logger) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("ledger repository required")
	}
	if events == nil {
		return nil, fmt.Errorf("outbox service required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &service{repo: repo, events: events, logg: logg}, nil
}

func (s *service) Credit(ctx context.Context, tx *gorm.DB, input CreditInput) (*models.Transaction, error) {
	if err := validateMovement(input.VendorID, input.OrderID, input.Amount); err != nil {
		return nil, err
	}
	repo := s.repo.WithTx(tx)

	existing, err := repo.FindTransaction(ctx, input.OrderID, enums.TransactionTypeSale)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "find sale transaction")
	}
	if existing != nil {
		return existing, nil
	}

	description := input.Description
	if description == "" {
		description = fmt.Sprintf("Venta - pedido %s", input.OrderID)
	}
	txn, err := s.applyMovement(ctx, repo, movement{
		vendorID:    input.VendorID,
		orderID:     input.OrderID,
		txType:      enums.TransactionTypeSale,
		status:      enums.TransactionStatusPending,
		amount:      input.Amount,
		description: description,
	})
	if err != nil {
		return nil, err
	}
	if err := s.emitBalanceEvent(ctx, tx, enums.EventVendorCredited, txn); err != nil {
		return nil, err
	}
	return txn, nil
}

func (s *service) Reverse(ctx context.Context, tx *gorm.DB, input ReverseInput) (*models.Transaction, error) {
	if err := validateMovement(input.VendorID, input.OrderID, input.Amount); err != nil {
		return nil, err
	}
	repo := s.repo.WithTx(tx)

	existing, err := repo.FindTransaction(ctx, input.OrderID, enums.TransactionTypeRefund)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "find refund transaction")
	}
	if existing != nil {
		return existing, nil
	}

	description := input.Description
	if description == "" {
		description = fmt.Sprintf("Reembolso - pedido %s", input.OrderID)
	}
	txn, err := s.applyMovement(ctx, repo, movement{
		vendorID:       input.VendorID,
		orderID:        input.OrderID,
		txType:         enums.TransactionTypeRefund,
		status:         enums.TransactionStatusPending,
		amount:         input.Amount.Neg(),
		stripeRefundID: input.StripeRefundID,
		description:    description,
	})
	if err != nil {
		return nil, err
	}
	if txn.BalanceAfter.Available.IsNegative() {
		logCtx := s.logg.WithFields(ctx, map[string]any{
			"vendor_id":     input.VendorID.String(),
			"order_id":      input.OrderID.String(),
			"balance_after": txn.BalanceAfter.Available.String(),
		})
		s.logg.Warn(logCtx, "vendor balance went negative after reversal")
	}
	if err := s.emitBalanceEvent(ctx, tx, enums.EventVendorReversed, txn); err != nil {
		return nil, err
	}
	return txn, nil
}

func (s *service) ConfirmTransaction(ctx context.Context, tx *gorm.DB, orderID uuid.UUID, txType enums.TransactionType) (*models.Transaction, error) {
	if orderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}
	if !txType.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid transaction type")
	}
	repo := s.repo.WithTx(tx)

	txn, err := repo.FindTransaction(ctx, orderID, txType)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "find transaction")
	}
	if txn == nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "transaction not found")
	}
	if txn.Status == enums.TransactionStatusCompleted {
		return txn, nil
	}
	if err := repo.MarkTransactionStatus(ctx, txn.ID, enums.TransactionStatusCompleted); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "mark transaction completed")
	}
	txn.Status = enums.TransactionStatusCompleted
	return txn, nil
}

func (s *service) HasTransaction(ctx context.Context, orderID uuid.UUID, txType enums.TransactionType) (bool, error) {
	if orderID == uuid.Nil {
		return false, pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}
	txn, err := s.repo.FindTransaction(ctx, orderID, txType)
	if err != nil {
		return false, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "find transaction")
	}
	return txn != nil, nil
}

func (s *service) ListTransactions(ctx context.Context, vendorID uuid.UUID, limit int) ([]models.Transaction, error) {
	if vendorID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "vendor id required")
	}
	txns, err := s.repo.ListTransactionsByVendor(ctx, vendorID, limit)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list transactions")
	}
	return txns, nil
}

type movement struct {
	vendorID       uuid.UUID
	orderID        uuid.UUID
	txType         enums.TransactionType
	status         enums.TransactionStatus
	amount         decimal.Decimal
	stripeRefundID string
	description    string
}

func (s *service) applyMovement(ctx context.Context, repo Repository, mv movement) (*models.Transaction, error) {
	balance, err := repo.LockBalance(ctx, mv.vendorID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lock vendor balance")
	}

	before := models.SnapshotOf(balance)
	balance.AvailableBalance = balance.AvailableBalance.Add(mv.amount)
	after := models.SnapshotOf(balance)
	if err := repo.SaveBalance(ctx, balance); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "save vendor balance")
	}

	orderID := mv.orderID
	txn := &models.Transaction{
		VendorBalanceID: balance.ID,
		VendorID:        mv.vendorID,
		OrderID:         &orderID,
		Type:            mv.txType,
		Status:          mv.status,
		Amount:          mv.amount,
		BalanceBefore:   before,
		BalanceAfter:    after,
		Currency:        balance.Currency,
		Description:     mv.description,
	}
	if mv.stripeRefundID != "" {
		refundID := mv.stripeRefundID
		txn.StripeRefundID = &refundID
	}
	if err := repo.CreateTransaction(ctx, txn); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create transaction")
	}
	return txn, nil
}

func (s *service) emitBalanceEvent(ctx context.Context, tx *gorm.DB, eventType enums.OutboxEventType, txn *models.Transaction) error {
	event := outbox.DomainEvent{
		EventType:     eventType,
		AggregateType: enums.AggregateVendorBalance,
		AggregateID:   txn.VendorBalanceID,
		Version:       1,
		OccurredAt:    time.Now().UTC(),
		Data: payloads.VendorBalanceEvent{
			VendorID:      txn.VendorID,
			OrderID:       txn.OrderID,
			TransactionID: txn.ID,
			Type:          txn.Type,
			Amount:        txn.Amount,
			BalanceAfter:  txn.BalanceAfter.Available,
		},
	}
	if err := s.events.EmitIfNotExists(ctx, tx, event); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "emit balance event")
	}
	return nil
}

func validateMovement(vendorID, orderID uuid.UUID, amount decimal.Decimal) error {
	if vendorID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "vendor id required")
	}
	if orderID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}
	if !amount.IsPositive() {
		return pkgerrors.New(pkgerrors.CodeValidation, "amount must be positive")
	}
	return nil
}
