package models

import "time"

// Command lifecycle states. pending means durably recorded but not yet
// attempted (or the process died mid-dispatch); sent and failed are set by
// the dispatcher; ack is set later from the device's response. failed and
// ack are terminal.
const (
	CommandPending      = "pending"
	CommandSent         = "sent"
	CommandFailed       = "failed"
	CommandAcknowledged = "ack"
)

// Command is one operator instruction tracked through its delivery states.
type Command struct {
	ID        string         `json:"id"`
	DeviceID  string         `json:"device_id"`
	FarmID    string         `json:"farm_id,omitempty"`
	Cmd       string         `json:"cmd"`
	Params    map[string]any `json:"params,omitempty"`
	Status    string         `json:"status"`
	CreatedAt time.Time      `json:"created_at"`
	SentAt    *time.Time     `json:"sent_at,omitempty"`
	Response  map[string]any `json:"response,omitempty"`
}
