package enums

import (
	"fmt"
	"strings"
)

// Carrier identifies a shipping carrier supported for tracking.
type Carrier string

const (
	CarrierUPS      Carrier = "ups"
	CarrierFedex    Carrier = "fedex"
	CarrierDHL      Carrier = "dhl"
	CarrierEstafeta Carrier = "estafeta"
	CarrierOther    Carrier = "other"
)

var validCarriers = []Carrier{
	CarrierUPS,
	CarrierFedex,
	CarrierDHL,
	CarrierEstafeta,
	CarrierOther,
}

// String implements fmt.Stringer.
func (c Carrier) String() string {
	return string(c)
}

// IsValid reports whether the value is a known Carrier.
func (c Carrier) IsValid() bool {
	for _, candidate := range validCarriers {
		if candidate == c {
			return true
		}
	}
	return false
}

// ParseCarrier converts raw input into a Carrier. Unknown carriers map to
// CarrierOther so vendor-entered values never block shipment updates.
func ParseCarrier(value string) (Carrier, error) {
	normalized := strings.ToLower(strings.TrimSpace(value))
	if normalized == "" {
		return "", fmt.Errorf("carrier is required")
	}
	for _, candidate := range validCarriers {
		if string(candidate) == normalized {
			return candidate, nil
		}
	}
	return CarrierOther, nil
}
