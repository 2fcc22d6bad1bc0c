package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"incubator-backend/internal/models"
)

type TelemetrySQLite struct {
	db *sql.DB
}

func NewTelemetrySQLite(db *sql.DB) *TelemetrySQLite { return &TelemetrySQLite{db: db} }

const (
	insertTelemetrySQL = `
		INSERT INTO telemetry (ts, device_id, farm_id, seq, temp_c, hum_pct,
			primary_heater, secondary_heater, exhaust_fan, sv_valve, fan,
			turning_motor, limit_switch, door_light, heater, motor_state,
			uptime_s, rssi, ip, payload)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	updateLastSeenSQL = `UPDATE devices SET last_seen = ? WHERE id = ?`

	selectTelemetryCols = `ts, device_id, farm_id, seq, temp_c, hum_pct,
		primary_heater, secondary_heater, exhaust_fan, sv_valve, fan,
		turning_motor, limit_switch, door_light, heater, motor_state,
		uptime_s, rssi, ip, payload`
)

// Append stores one report and advances the device's last_seen in a single
// transaction, so a stored report can never coexist with a stale last_seen.
// The (ts, device_id) primary key does the duplicate detection: on a
// collision the transaction is rolled back and Duplicate is returned with no
// other effect.
func (r *TelemetrySQLite) Append(ctx context.Context, rep models.TelemetryReport) (AppendResult, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin append: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	ts := rep.Timestamp.UTC()
	_, err = tx.ExecContext(ctx, insertTelemetrySQL,
		ts, rep.DeviceID, nullString(rep.FarmID), rep.Seq,
		rep.TempC, rep.HumPct,
		rep.PrimaryHeater, rep.SecondaryHeater, rep.ExhaustFan, rep.SvValve,
		rep.Fan, rep.TurningMotor, rep.LimitSwitch, rep.DoorLight,
		rep.Heater, nullString(rep.MotorState),
		rep.UptimeSec, rep.RSSI, nullString(rep.IP), nullString(string(rep.Raw)),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return Duplicate, nil
		}
		return 0, fmt.Errorf("insert telemetry: %w", err)
	}

	if _, err := tx.ExecContext(ctx, updateLastSeenSQL, ts, rep.DeviceID); err != nil {
		return 0, fmt.Errorf("update last_seen: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit append: %w", err)
	}
	return Accepted, nil
}

// Latest returns the most recent report for the device.
func (r *TelemetrySQLite) Latest(ctx context.Context, deviceID string) (models.TelemetryReport, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+selectTelemetryCols+` FROM telemetry WHERE device_id = ? ORDER BY ts DESC LIMIT 1`,
		deviceID)
	rep, err := scanTelemetry(row)
	if errors.Is(err, sql.ErrNoRows) {
		return models.TelemetryReport{}, sql.ErrNoRows
	}
	return rep, err
}

// Range returns reports in [from, to] for the device, newest first.
// Zero bounds are open; limit <= 0 means no limit.
func (r *TelemetrySQLite) Range(ctx context.Context, deviceID string, from, to time.Time, limit int) ([]models.TelemetryReport, error) {
	conds := []string{"device_id = ?"}
	args := []any{deviceID}

	if !from.IsZero() {
		conds = append(conds, "ts >= ?")
		args = append(args, from.UTC())
	}
	if !to.IsZero() {
		conds = append(conds, "ts <= ?")
		args = append(args, to.UTC())
	}

	q := `SELECT ` + selectTelemetryCols + ` FROM telemetry WHERE ` +
		strings.Join(conds, " AND ") + ` ORDER BY ts DESC`
	if limit > 0 {
		q += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]models.TelemetryReport, 0, 64)
	for rows.Next() {
		rep, err := scanTelemetryRow(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rep)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// Stats aggregates min/max/avg over the device's history at read time.
func (r *TelemetrySQLite) Stats(ctx context.Context, deviceID string, from, to time.Time) (models.TelemetryStats, error) {
	conds := []string{"device_id = ?"}
	args := []any{deviceID}

	if !from.IsZero() {
		conds = append(conds, "ts >= ?")
		args = append(args, from.UTC())
	}
	if !to.IsZero() {
		conds = append(conds, "ts <= ?")
		args = append(args, to.UTC())
	}

	q := `SELECT COUNT(*),
		COALESCE(MIN(temp_c), 0), COALESCE(MAX(temp_c), 0), COALESCE(AVG(temp_c), 0),
		COALESCE(MIN(hum_pct), 0), COALESCE(MAX(hum_pct), 0), COALESCE(AVG(hum_pct), 0)
		FROM telemetry WHERE ` + strings.Join(conds, " AND ")

	var s models.TelemetryStats
	err := r.db.QueryRowContext(ctx, q, args...).Scan(
		&s.Count, &s.MinTempC, &s.MaxTempC, &s.AvgTempC,
		&s.MinHum, &s.MaxHum, &s.AvgHum,
	)
	if err != nil {
		return models.TelemetryStats{}, err
	}
	return s, nil
}

func scanTelemetry(row *sql.Row) (models.TelemetryReport, error) {
	return scanTelemetryRow(row)
}

func scanTelemetryRow(s rowScanner) (models.TelemetryReport, error) {
	var (
		rep        models.TelemetryReport
		farmID     sql.NullString
		motorState sql.NullString
		ip         sql.NullString
		payload    sql.NullString
	)
	err := s.Scan(&rep.Timestamp, &rep.DeviceID, &farmID, &rep.Seq,
		&rep.TempC, &rep.HumPct,
		&rep.PrimaryHeater, &rep.SecondaryHeater, &rep.ExhaustFan, &rep.SvValve,
		&rep.Fan, &rep.TurningMotor, &rep.LimitSwitch, &rep.DoorLight,
		&rep.Heater, &motorState,
		&rep.UptimeSec, &rep.RSSI, &ip, &payload,
	)
	if err != nil {
		return models.TelemetryReport{}, err
	}
	rep.Timestamp = rep.Timestamp.UTC()
	if farmID.Valid {
		rep.FarmID = farmID.String
	}
	if motorState.Valid {
		rep.MotorState = motorState.String
	}
	if ip.Valid {
		rep.IP = ip.String
	}
	if payload.Valid && payload.String != "" {
		rep.Raw = []byte(payload.String)
	}
	return rep, nil
}

// isUniqueViolation matches the sqlite constraint error for the composite
// (ts, device_id) primary key.
func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}
