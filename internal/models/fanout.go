package models

// FanOutMessage is the envelope broadcast to live dashboard subscribers for
// every accepted report. It exists only on the bus and on the wire; it is
// never persisted.
type FanOutMessage struct {
	Type         string          `json:"type"` // always "telemetry"
	DeviceID     string          `json:"device_id"`
	DeviceSerial string          `json:"device_serial"`
	FarmID       string          `json:"farm_id"`
	Data         TelemetryReport `json:"data"`
}
