package service

import (
	"encoding/json"
	"errors"
	"testing"
	"time"
)

func TestNormalize_HeaterFallback(t *testing.T) {
	t.Parallel()

	arrival := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)

	cases := []struct {
		name       string
		payload    string
		wantHeater bool
		wantPrim   bool
	}{
		{
			name:       "explicit legacy heater only",
			payload:    `{"heater": true}`,
			wantHeater: true,
			wantPrim:   false,
		},
		{
			name:       "primary_heater derives legacy heater",
			payload:    `{"primary_heater": true}`,
			wantHeater: true,
			wantPrim:   true,
		},
		{
			name:       "explicit heater wins over primary",
			payload:    `{"heater": false, "primary_heater": true}`,
			wantHeater: false,
			wantPrim:   true,
		},
		{
			name:       "both absent defaults false",
			payload:    `{}`,
			wantHeater: false,
			wantPrim:   false,
		},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			got, err := Normalize([]byte(tc.payload), arrival)
			if err != nil {
				t.Fatalf("Normalize: %v", err)
			}
			if got.Heater != tc.wantHeater {
				t.Errorf("Heater: want %v, got %v", tc.wantHeater, got.Heater)
			}
			if got.PrimaryHeater != tc.wantPrim {
				t.Errorf("PrimaryHeater: want %v, got %v", tc.wantPrim, got.PrimaryHeater)
			}
		})
	}
}

func TestNormalize_FieldAliases(t *testing.T) {
	t.Parallel()

	arrival := time.Now().UTC()

	cases := []struct {
		name     string
		payload  string
		wantTemp float64
		wantHum  float64
	}{
		{
			name:     "current field names",
			payload:  `{"temp_c": 37.2, "hum_pct": 55.0}`,
			wantTemp: 37.2,
			wantHum:  55.0,
		},
		{
			name:     "legacy field names",
			payload:  `{"current_temp": 36.5, "current_humidity": 60.0}`,
			wantTemp: 36.5,
			wantHum:  60.0,
		},
		{
			name:     "current name wins over legacy",
			payload:  `{"temp_c": 37.2, "current_temp": 12.0}`,
			wantTemp: 37.2,
			wantHum:  0,
		},
		{
			name:     "absent numbers default to zero",
			payload:  `{}`,
			wantTemp: 0,
			wantHum:  0,
		},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			got, err := Normalize([]byte(tc.payload), arrival)
			if err != nil {
				t.Fatalf("Normalize: %v", err)
			}
			if got.TempC != tc.wantTemp {
				t.Errorf("TempC: want %v, got %v", tc.wantTemp, got.TempC)
			}
			if got.HumPct != tc.wantHum {
				t.Errorf("HumPct: want %v, got %v", tc.wantHum, got.HumPct)
			}
		})
	}
}

func TestNormalize_Timestamp(t *testing.T) {
	t.Parallel()

	arrival := time.Date(2026, 2, 3, 4, 5, 6, 0, time.UTC)

	cases := []struct {
		name    string
		payload string
		want    time.Time
	}{
		{
			name:    "valid zulu timestamp",
			payload: `{"ts": "2026-01-01T00:00:00Z"}`,
			want:    time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
		},
		{
			name:    "valid offset timestamp normalized to UTC",
			payload: `{"ts": "2026-01-01T02:00:00+02:00"}`,
			want:    time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
		},
		{
			name:    "unparsable ts degrades to arrival time",
			payload: `{"ts": "last tuesday"}`,
			want:    arrival,
		},
		{
			name:    "absent ts uses arrival time",
			payload: `{}`,
			want:    arrival,
		},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			got, err := Normalize([]byte(tc.payload), arrival)
			if err != nil {
				t.Fatalf("Normalize: %v", err)
			}
			if !got.Timestamp.Equal(tc.want) {
				t.Errorf("Timestamp: want %v, got %v", tc.want, got.Timestamp)
			}
		})
	}
}

func TestNormalize_MalformedPayload(t *testing.T) {
	t.Parallel()

	for _, payload := range []string{"", "not json", `"just a string"`, "null", "[1,2,3]"} {
		if _, err := Normalize([]byte(payload), time.Now()); !errors.Is(err, ErrMalformedPayload) {
			t.Errorf("payload %q: want ErrMalformedPayload, got %v", payload, err)
		}
	}
}

func TestNormalize_RawPreservedAndNumericBools(t *testing.T) {
	t.Parallel()

	payload := `{"fan": 1, "exhaust_fan": 0, "rssi": -61, "seq": 42, "ip": "10.0.0.7", "motor_state": "cw", "unknown_future_field": {"x": 1}}`
	got, err := Normalize([]byte(payload), time.Now())
	if err != nil {
		t.Fatalf("Normalize: %v", err)
	}

	if string(got.Raw) != payload {
		t.Errorf("raw payload not preserved verbatim: %s", got.Raw)
	}
	if !got.Fan {
		t.Error("fan: numeric 1 should coerce to true")
	}
	if got.ExhaustFan {
		t.Error("exhaust_fan: numeric 0 should coerce to false")
	}
	if got.RSSI != -61 {
		t.Errorf("rssi: want -61, got %d", got.RSSI)
	}
	if got.Seq != 42 {
		t.Errorf("seq: want 42, got %d", got.Seq)
	}
	if got.IP != "10.0.0.7" {
		t.Errorf("ip: want 10.0.0.7, got %q", got.IP)
	}
	if got.MotorState != "cw" {
		t.Errorf("motor_state: want cw, got %q", got.MotorState)
	}

	// the raw capture must survive a JSON round trip of the report
	b, err := json.Marshal(got)
	if err != nil {
		t.Fatalf("marshal report: %v", err)
	}
	var echo map[string]any
	if err := json.Unmarshal(b, &echo); err != nil {
		t.Fatalf("unmarshal report: %v", err)
	}
	if _, ok := echo["payload"]; !ok {
		t.Error("serialized report missing payload capture")
	}
}
