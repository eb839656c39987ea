package types

import (
	"database/sql/driver"
	"encoding/json"
	"time"
)

// TrackingEvent is a single append-only entry in an order's tracking history.
type TrackingEvent struct {
	Status    string    `json:"status"`
	Location  string    `json:"location,omitempty"`
	Note      string    `json:"note,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// TrackingHistory stores the ordered tracking events inside a JSONB column.
type TrackingHistory []TrackingEvent

// Value serializes the history to JSON.
func (h TrackingHistory) Value() (driver.Value, error) {
	if h == nil {
		return "[]", nil
	}
	return json.Marshal(h)
}

// Scan decodes JSONB into the history slice.
func (h *TrackingHistory) Scan(value interface{}) error {
	if value == nil {
		*h = TrackingHistory{}
		return nil
	}
	raw, err := asJSON(value)
	if err != nil {
		return err
	}
	var decoded TrackingHistory
	if err := json.Unmarshal(raw, &decoded); err != nil {
		return err
	}
	*h = decoded
	return nil
}
