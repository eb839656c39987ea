package enums

import "fmt"

// CancellationStatus tracks the approval workflow of a cancellation request,
// independent of the order's fulfillment status.
type CancellationStatus string

const (
	CancellationStatusNone      CancellationStatus = "none"
	CancellationStatusRequested CancellationStatus = "requested"
	CancellationStatusApproved  CancellationStatus = "approved"
	CancellationStatusRejected  CancellationStatus = "rejected"
)

var validCancellationStatuses = []CancellationStatus{
	CancellationStatusNone,
	CancellationStatusRequested,
	CancellationStatusApproved,
	CancellationStatusRejected,
}

// String implements fmt.Stringer.
func (c CancellationStatus) String() string {
	return string(c)
}

// IsValid reports whether the value is a known CancellationStatus.
func (c CancellationStatus) IsValid() bool {
	for _, candidate := range validCancellationStatuses {
		if candidate == c {
			return true
		}
	}
	return false
}

// ParseCancellationStatus converts raw input into a CancellationStatus.
func ParseCancellationStatus(value string) (CancellationStatus, error) {
	for _, candidate := range validCancellationStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid cancellation status %q", value)
}
