package enums

import "fmt"

// AuditCategory groups audit log entries by subsystem.
type AuditCategory string

const (
	AuditCategoryOrder     AuditCategory = "order"
	AuditCategoryPayment   AuditCategory = "payment"
	AuditCategoryRefund    AuditCategory = "refund"
	AuditCategoryInventory AuditCategory = "inventory"
	AuditCategoryLedger    AuditCategory = "ledger"
)

var validAuditCategories = []AuditCategory{
	AuditCategoryOrder,
	AuditCategoryPayment,
	AuditCategoryRefund,
	AuditCategoryInventory,
	AuditCategoryLedger,
}

// String implements fmt.Stringer.
func (c AuditCategory) String() string {
	return string(c)
}

// IsValid reports whether the value is a known AuditCategory.
func (c AuditCategory) IsValid() bool {
	for _, candidate := range validAuditCategories {
		if candidate == c {
			return true
		}
	}
	return false
}

// ParseAuditCategory converts raw input into an AuditCategory.
func ParseAuditCategory(value string) (AuditCategory, error) {
	for _, candidate := range validAuditCategories {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid audit category %q", value)
}

// AuditSeverity ranks audit log entries for filtering.
type AuditSeverity string

const (
	AuditSeverityInfo     AuditSeverity = "info"
	AuditSeverityWarning  AuditSeverity = "warning"
	AuditSeverityError    AuditSeverity = "error"
	AuditSeverityCritical AuditSeverity = "critical"
)

var validAuditSeverities = []AuditSeverity{
	AuditSeverityInfo,
	AuditSeverityWarning,
	AuditSeverityError,
	AuditSeverityCritical,
}

// IsValid reports whether the value is a known AuditSeverity.
func (s AuditSeverity) IsValid() bool {
	for _, candidate := range validAuditSeverities {
		if candidate == s {
			return true
		}
	}
	return false
}
