package models

import (
	"encoding/json"
	"time"
)

// TelemetryReport is one normalized sensor/actuator snapshot from a
// controller. Identity is the (Timestamp, DeviceID) pair; a second report
// with the same pair is a duplicate. Reports are immutable once stored.
type TelemetryReport struct {
	Timestamp time.Time `json:"ts"`
	DeviceID  string    `json:"device_id"`
	FarmID    string    `json:"farm_id,omitempty"`

	Seq int64 `json:"seq,omitempty"` // monotonic hint from the device, not enforced

	TempC  float64 `json:"temp_c"`
	HumPct float64 `json:"hum_pct"`

	// Actuator states.
	PrimaryHeater   bool `json:"primary_heater"`
	SecondaryHeater bool `json:"secondary_heater"`
	ExhaustFan      bool `json:"exhaust_fan"`
	SvValve         bool `json:"sv_valve"`
	Fan             bool `json:"fan"`
	TurningMotor    bool `json:"turning_motor"`
	LimitSwitch     bool `json:"limit_switch"`
	DoorLight       bool `json:"door_light"`

	// Legacy fields kept for old firmware; Heater derives from PrimaryHeater
	// when not sent explicitly.
	Heater     bool   `json:"heater"`
	MotorState string `json:"motor_state,omitempty"`

	UptimeSec int64  `json:"uptime_s,omitempty"`
	RSSI      int64  `json:"rssi"`
	IP        string `json:"ip,omitempty"`

	// Raw is the inbound payload verbatim, kept for forward compatibility.
	Raw json.RawMessage `json:"payload,omitempty"`
}

// TelemetryStats are read-time aggregates over a device's history.
type TelemetryStats struct {
	Count    int64   `json:"count"`
	MinTempC float64 `json:"min_temp_c"`
	MaxTempC float64 `json:"max_temp_c"`
	AvgTempC float64 `json:"avg_temp_c"`
	MinHum   float64 `json:"min_hum_pct"`
	MaxHum   float64 `json:"max_hum_pct"`
	AvgHum   float64 `json:"avg_hum_pct"`
}
