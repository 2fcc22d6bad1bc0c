package models

import "time"

// Device is one registered incubator controller. Serial is the physical
// identifier printed on the unit (e.g. "INC-0001") and is globally unique;
// ID is the internal identifier used everywhere else.
type Device struct {
	ID              string     `json:"id"`
	Serial          string     `json:"serial"`
	Model           string     `json:"model,omitempty"`
	FirmwareVersion string     `json:"firmware_version,omitempty"`
	FarmID          string     `json:"farm_id,omitempty"` // empty when unassigned
	LastSeen        *time.Time `json:"last_seen,omitempty"`
	CreatedAt       time.Time  `json:"created_at"`
}
