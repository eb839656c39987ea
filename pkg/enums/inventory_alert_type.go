package enums

import "fmt"

// InventoryAlertType maps to the inventory_alert_type enum in Postgres.
type InventoryAlertType string

const (
	InventoryAlertTypeLowStock   InventoryAlertType = "low_stock"
	InventoryAlertTypeOutOfStock InventoryAlertType = "out_of_stock"
)

var validInventoryAlertTypes = []InventoryAlertType{
	InventoryAlertTypeLowStock,
	InventoryAlertTypeOutOfStock,
}

// IsValid reports whether the value matches the canonical alert type enum.
func (t InventoryAlertType) IsValid() bool {
	for _, candidate := range validInventoryAlertTypes {
		if candidate == t {
			return true
		}
	}
	return false
}

// ParseInventoryAlertType converts raw input into InventoryAlertType.
func ParseInventoryAlertType(value string) (InventoryAlertType, error) {
	for _, candidate := range validInventoryAlertTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid inventory alert type %q", value)
}
