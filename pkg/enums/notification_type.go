package enums

import "fmt"

// NotificationType maps to the notification_type enum in Postgres.
type NotificationType string

const (
	NotificationTypeOrderPaid       NotificationType = "order_paid"
	NotificationTypeOrderShipped    NotificationType = "order_shipped"
	NotificationTypeOrderDelivered  NotificationType = "order_delivered"
	NotificationTypePaymentFailed   NotificationType = "payment_failed"
	NotificationTypeRefundRequested NotificationType = "refund_requested"
	NotificationTypeRefundApproved  NotificationType = "refund_approved"
	NotificationTypeRefundRejected  NotificationType = "refund_rejected"
	NotificationTypeRefundCompleted NotificationType = "refund_completed"
	NotificationTypeLowStock        NotificationType = "low_stock"
	NotificationTypeOutOfStock      NotificationType = "out_of_stock"
)

var validNotificationTypes = []NotificationType{
	NotificationTypeOrderPaid,
	NotificationTypeOrderShipped,
	NotificationTypeOrderDelivered,
	NotificationTypePaymentFailed,
	NotificationTypeRefundRequested,
	NotificationTypeRefundApproved,
	NotificationTypeRefundRejected,
	NotificationTypeRefundCompleted,
	NotificationTypeLowStock,
	NotificationTypeOutOfStock,
}

// String implements fmt.Stringer.
func (n NotificationType) String() string {
	return string(n)
}

// IsValid reports whether the value is a known NotificationType.
func (n NotificationType) IsValid() bool {
	for _, candidate := range validNotificationTypes {
		if candidate == n {
			return true
		}
	}
	return false
}

// ParseNotificationType converts raw input into a NotificationType.
func ParseNotificationType(value string) (NotificationType, error) {
	for _, candidate := range validNotificationTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid notification type %q", value)
}
