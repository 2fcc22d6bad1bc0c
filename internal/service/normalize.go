package service

import (
	"encoding/json"
	"errors"
	"time"

	"incubator-backend/internal/models"
)

// ErrMalformedPayload is returned when an inbound frame is not a JSON object.
var ErrMalformedPayload = errors.New("malformed telemetry payload")

// Controllers in the field run several firmware generations, so most fields
// carry legacy aliases. Each canonical field lists its accepted keys in
// priority order; the first key present in the payload wins. New aliases are
// added here, not in code paths.
var (
	floatFields = []struct {
		aliases []string
		set     func(r *models.TelemetryReport, v float64)
	}{
		{[]string{"temp_c", "current_temp"}, func(r *models.TelemetryReport, v float64) { r.TempC = v }},
		{[]string{"hum_pct", "current_humidity"}, func(r *models.TelemetryReport, v float64) { r.HumPct = v }},
	}

	intFields = []struct {
		aliases []string
		set     func(r *models.TelemetryReport, v int64)
	}{
		{[]string{"seq"}, func(r *models.TelemetryReport, v int64) { r.Seq = v }},
		{[]string{"uptime_s"}, func(r *models.TelemetryReport, v int64) { r.UptimeSec = v }},
		{[]string{"rssi"}, func(r *models.TelemetryReport, v int64) { r.RSSI = v }},
	}

	boolFields = []struct {
		aliases []string
		set     func(r *models.TelemetryReport, v bool)
	}{
		{[]string{"primary_heater"}, func(r *models.TelemetryReport, v bool) { r.PrimaryHeater = v }},
		{[]string{"secondary_heater"}, func(r *models.TelemetryReport, v bool) { r.SecondaryHeater = v }},
		{[]string{"exhaust_fan"}, func(r *models.TelemetryReport, v bool) { r.ExhaustFan = v }},
		{[]string{"sv_valve"}, func(r *models.TelemetryReport, v bool) { r.SvValve = v }},
		{[]string{"fan"}, func(r *models.TelemetryReport, v bool) { r.Fan = v }},
		{[]string{"turning_motor"}, func(r *models.TelemetryReport, v bool) { r.TurningMotor = v }},
		{[]string{"limit_switch"}, func(r *models.TelemetryReport, v bool) { r.LimitSwitch = v }},
		{[]string{"door_light"}, func(r *models.TelemetryReport, v bool) { r.DoorLight = v }},
	}

	stringFields = []struct {
		aliases []string
		set     func(r *models.TelemetryReport, v string)
	}{
		{[]string{"motor_state"}, func(r *models.TelemetryReport, v string) { r.MotorState = v }},
		{[]string{"ip"}, func(r *models.TelemetryReport, v string) { r.IP = v }},
	}
)

// Normalize parses a raw report into its canonical form. It is a pure
// function of the payload and the arrival time.
//
// An unparsable "ts" is not an error: the report degrades to the arrival
// time, since dashboards tolerate an approximate timestamp better than a
// dropped report. Absent fields default to false/0. The legacy "heater"
// flag, when not sent, derives from primary_heater. The raw payload is kept
// verbatim on the report.
func Normalize(payload []byte, arrival time.Time) (models.TelemetryReport, error) {
	var fields map[string]any
	if err := json.Unmarshal(payload, &fields); err != nil || fields == nil {
		return models.TelemetryReport{}, ErrMalformedPayload
	}

	r := models.TelemetryReport{
		Timestamp: arrival.UTC(),
		Raw:       json.RawMessage(payload),
	}

	if s, ok := asString(fields["ts"]); ok {
		if ts, err := time.Parse(time.RFC3339, s); err == nil {
			r.Timestamp = ts.UTC()
		}
	}

	for _, f := range floatFields {
		for _, key := range f.aliases {
			if v, ok := asFloat(fields[key]); ok {
				f.set(&r, v)
				break
			}
		}
	}
	for _, f := range intFields {
		for _, key := range f.aliases {
			if v, ok := asFloat(fields[key]); ok {
				f.set(&r, int64(v))
				break
			}
		}
	}
	for _, f := range boolFields {
		for _, key := range f.aliases {
			if v, ok := asBool(fields[key]); ok {
				f.set(&r, v)
				break
			}
		}
	}
	for _, f := range stringFields {
		for _, key := range f.aliases {
			if v, ok := asString(fields[key]); ok {
				f.set(&r, v)
				break
			}
		}
	}

	// Legacy combined heater flag: explicit value wins, otherwise it mirrors
	// the primary heater.
	if v, ok := asBool(fields["heater"]); ok {
		r.Heater = v
	} else {
		r.Heater = r.PrimaryHeater
	}

	return r, nil
}

func asFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	}
	return 0, false
}

func asBool(v any) (bool, bool) {
	switch b := v.(type) {
	case bool:
		return b, true
	case float64:
		// some firmware sends 0/1
		return b != 0, true
	}
	return false, false
}

func asString(v any) (string, bool) {
	s, ok := v.(string)
	return s, ok && s != ""
}
