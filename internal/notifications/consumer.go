package notifications

import (
	"context"
	"encoding/json"
	"fmt"

	pubsub "cloud.google.com/go/pubsub/v2"
	"github.com/google/uuid"

	"github.com/abdul-hamid-achik/luzimarket-backend/pkg/db/models"
	"github.com/abdul-hamid-achik/luzimarket-backend/pkg/enums"
	"github.com/abdul-hamid-achik/luzimarket-backend/pkg/logger"
	"github.com/abdul-hamid-achik/luzimarket-backend/pkg/outbox"
	"github.com/abdul-hamid-achik/luzimarket-backend/pkg/outbox/idempotency"
	"github.com/abdul-hamid-achik/luzimarket-backend/pkg/outbox/payloads"
)

const balanceNotificationConsumer = "balance-notifications"

type repository interface {
	Create(ctx context.Context, notification *models.Notification) error
}

// Consumer watches the notification topic and turns vendor balance and
// catalog events into in-app notifications. Inventory alerts are skipped
// here because the sweep notifies vendors directly.
type Consumer struct {
	repo         repository
	subscription *pubsub.Subscriber
	idempotency  *idempotency.Manager
	logg         *logger.Logger
}

// NewConsumer builds a balance notification consumer.
func NewConsumer(repo repository, subscription *pubsub.Subscriber, manager *idempotency.Manager, logg *logger.Logger) (*Consumer, error) {
	if repo == nil {
		return nil, fmt.Errorf("notifications repository required")
	}
	if subscription == nil {
		return nil, fmt.Errorf("domain subscription required")
	}
	if manager == nil {
		return nil, fmt.Errorf("idempotency manager required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &Consumer{
		repo:         repo,
		subscription: subscription,
		idempotency:  manager,
		logg:         logg,
	}, nil
}

// Run starts the consumer loop until the context is canceled.
func (c *Consumer) Run(ctx context.Context) error {
	return c.subscription.Receive(ctx, func(ctx context.Context, msg *pubsub.Message) {
		result := c.process(ctx, msg)
		if result.nack {
			msg.Nack()
			return
		}
		msg.Ack()
	})
}

type processResult struct {
	ack  bool
	nack bool
}

func (c *Consumer) process(ctx context.Context, msg *pubsub.Message) processResult {
	eventType := enums.OutboxEventType(msg.Attributes["event_type"])
	fields := map[string]any{
		"message_id": msg.ID,
		"event_type": eventType,
	}
	logCtx := c.logg.WithFields(ctx, fields)

	switch eventType {
	case enums.EventVendorCredited, enums.EventVendorReversed, enums.EventProductDeactivated:
	default:
		c.logg.Info(logCtx, "skipping event without notification handler")
		return processResult{ack: true}
	}

	var envelope outbox.PayloadEnvelope
	if err := json.Unmarshal(msg.Data, &envelope); err != nil {
		c.logg.Error(logCtx, "failed to decode envelope", err)
		return processResult{ack: true}
	}

	eventID, err := uuid.Parse(envelope.EventID)
	if err != nil {
		c.logg.Error(logCtx, "invalid event id", err)
		return processResult{ack: true}
	}

	already, err := c.idempotency.CheckAndMarkProcessed(ctx, balanceNotificationConsumer, eventID)
	if err != nil {
		c.logg.Error(logCtx, "idempotency check failed", err)
		return processResult{nack: true}
	}
	if already {
		c.logg.Info(logCtx, "event already processed")
		return processResult{ack: true}
	}

	if err := c.handlePayload(ctx, eventType, envelope.Data, logCtx); err != nil {
		c.logg.Error(logCtx, "notification handling failed", err)
		_ = c.idempotency.Delete(ctx, balanceNotificationConsumer, eventID)
		return processResult{nack: true}
	}

	return processResult{ack: true}
}

func (c *Consumer) handlePayload(ctx context.Context, eventType enums.OutboxEventType, data json.RawMessage, logCtx context.Context) error {
	switch eventType {
	case enums.EventVendorCredited, enums.EventVendorReversed:
		var payload payloads.VendorBalanceEvent
		if err := json.Unmarshal(data, &payload); err != nil {
			return err
		}
		return c.createBalanceNotification(ctx, eventType, payload, logCtx)
	case enums.EventProductDeactivated:
		var payload payloads.ProductDeactivatedEvent
		if err := json.Unmarshal(data, &payload); err != nil {
			return err
		}
		return c.createDeactivationNotification(ctx, payload, logCtx)
	default:
		return nil
	}
}

func (c *Consumer) createBalanceNotification(ctx context.Context, eventType enums.OutboxEventType, payload payloads.VendorBalanceEvent, logCtx context.Context) error {
	if payload.VendorID == uuid.Nil {
		return fmt.Errorf("vendor id missing")
	}

	title := "Venta acreditada"
	notificationType := enums.NotificationTypeOrderPaid
	message := fmt.Sprintf("Se acreditaron $%s a tu balance. Balance actual: $%s.",
		payload.Amount.StringFixed(2), payload.BalanceAfter.StringFixed(2))
	if eventType == enums.EventVendorReversed {
		title = "Reembolso aplicado"
		notificationType = enums.NotificationTypeRefundCompleted
		message = fmt.Sprintf("Se descontaron $%s de tu balance por un reembolso. Balance actual: $%s.",
			payload.Amount.Abs().StringFixed(2), payload.BalanceAfter.StringFixed(2))
	}

	notification := &models.Notification{
		ID:       uuid.New(),
		VendorID: payload.VendorID,
		Type:     notificationType,
		Title:    title,
		Message:  message,
		Link:     stringPtr("/vendor/balance"),
	}
	if err := c.repo.Create(ctx, notification); err != nil {
		return err
	}
	c.logg.Info(logCtx, "vendor notified of balance change")
	return nil
}

func (c *Consumer) createDeactivationNotification(ctx context.Context, payload payloads.ProductDeactivatedEvent, logCtx context.Context) error {
	if payload.VendorID == uuid.Nil {
		return fmt.Errorf("vendor id missing")
	}
	notification := &models.Notification{
		ID:       uuid.New(),
		VendorID: payload.VendorID,
		Type:     enums.NotificationTypeOutOfStock,
		Title:    "Producto desactivado",
		Message:  "Un producto agotado fue desactivado automáticamente.",
		Link:     stringPtr("/vendor/products/" + payload.ProductID.String()),
	}
	if err := c.repo.Create(ctx, notification); err != nil {
		return err
	}
	c.logg.Info(logCtx, "vendor notified of product deactivation")
	return nil
}

func stringPtr(value string) *string {
	return &value
}
