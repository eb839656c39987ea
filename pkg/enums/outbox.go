package enums

import "fmt"

// OutboxAggregateType maps to the aggregate_type enum in Postgres.
type OutboxAggregateType string

const (
	AggregateOrder         OutboxAggregateType = "order"
	AggregateVendorBalance OutboxAggregateType = "vendor_balance"
	AggregateProduct       OutboxAggregateType = "product"
	AggregateNotification  OutboxAggregateType = "notification"
)

var validAggregateTypes = []OutboxAggregateType{
	AggregateOrder,
	AggregateVendorBalance,
	AggregateProduct,
	AggregateNotification,
}

// IsValid reports whether the value matches the canonical aggregate_type enum.
func (a OutboxAggregateType) IsValid() bool {
	for _, candidate := range validAggregateTypes {
		if candidate == a {
			return true
		}
	}
	return false
}

// ParseOutboxAggregateType converts raw input into OutboxAggregateType.
func ParseOutboxAggregateType(value string) (OutboxAggregateType, error) {
	for _, candidate := range validAggregateTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid aggregate type %q", value)
}

// OutboxEventType maps to the event_type enum in Postgres.
type OutboxEventType string

const (
	EventOrderPaid            OutboxEventType = "order_paid"
	EventOrderShipped         OutboxEventType = "order_shipped"
	EventOrderDelivered       OutboxEventType = "order_delivered"
	EventPaymentFailed        OutboxEventType = "payment_failed"
	EventRefundRequested      OutboxEventType = "refund_requested"
	EventRefundApproved       OutboxEventType = "refund_approved"
	EventRefundRejected       OutboxEventType = "refund_rejected"
	EventRefundSucceeded      OutboxEventType = "refund_succeeded"
	EventRefundFailed         OutboxEventType = "refund_failed"
	EventVendorCredited       OutboxEventType = "vendor_credited"
	EventVendorReversed       OutboxEventType = "vendor_reversed"
	EventStockRestored        OutboxEventType = "stock_restored"
	EventProductDeactivated   OutboxEventType = "product_deactivated"
	EventInventoryAlertRaised OutboxEventType = "inventory_alert_raised"
)

var validOutboxEventTypes = []OutboxEventType{
	EventOrderPaid,
	EventOrderShipped,
	EventOrderDelivered,
	EventPaymentFailed,
	EventRefundRequested,
	EventRefundApproved,
	EventRefundRejected,
	EventRefundSucceeded,
	EventRefundFailed,
	EventVendorCredited,
	EventVendorReversed,
	EventStockRestored,
	EventProductDeactivated,
	EventInventoryAlertRaised,
}

// IsValid reports whether the value matches the canonical event_type enum.
func (e OutboxEventType) IsValid() bool {
	for _, candidate := range validOutboxEventTypes {
		if candidate == e {
			return true
		}
	}
	return false
}

// ParseOutboxEventType converts raw input into OutboxEventType.
func ParseOutboxEventType(value string) (OutboxEventType, error) {
	for _, candidate := range validOutboxEventTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid event type %q", value)
}
