package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"

	"incubator-backend/internal/models"
)

type DeviceSQLite struct {
	db *sql.DB
}

func NewDeviceSQLite(db *sql.DB) *DeviceSQLite { return &DeviceSQLite{db: db} }

const (
	insertDeviceSQL = `
		INSERT INTO devices (id, serial, model, firmware_version, farm_id, last_seen, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`

	selectDeviceCols = `id, serial, model, firmware_version, farm_id, last_seen, created_at`
)

// Create inserts a new device record. ID and CreatedAt are set when empty.
func (r *DeviceSQLite) Create(ctx context.Context, d models.Device) (models.Device, error) {
	if d.ID == "" {
		d.ID = uuid.NewString()
	}
	if d.CreatedAt.IsZero() {
		d.CreatedAt = time.Now().UTC()
	} else {
		d.CreatedAt = d.CreatedAt.UTC()
	}

	_, err := r.db.ExecContext(ctx, insertDeviceSQL,
		d.ID, d.Serial, d.Model, d.FirmwareVersion,
		nullString(d.FarmID), nullTime(d.LastSeen), d.CreatedAt,
	)
	if err != nil {
		return models.Device{}, err
	}
	return d, nil
}

// GetBySerial resolves the physical serial printed on a controller to its
// internal record.
func (r *DeviceSQLite) GetBySerial(ctx context.Context, serial string) (models.Device, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+selectDeviceCols+` FROM devices WHERE serial = ?`, serial)
	return scanDevice(row)
}

func (r *DeviceSQLite) GetByID(ctx context.Context, id string) (models.Device, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+selectDeviceCols+` FROM devices WHERE id = ?`, id)
	return scanDevice(row)
}

func (r *DeviceSQLite) List(ctx context.Context) ([]models.Device, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+selectDeviceCols+` FROM devices ORDER BY created_at ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]models.Device, 0, 16)
	for rows.Next() {
		d, err := scanDeviceRow(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanDevice(row *sql.Row) (models.Device, error) {
	d, err := scanDeviceRow(row)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Device{}, ErrDeviceNotFound
	}
	return d, err
}

func scanDeviceRow(s rowScanner) (models.Device, error) {
	var (
		d        models.Device
		farmID   sql.NullString
		lastSeen sql.NullTime
	)
	if err := s.Scan(&d.ID, &d.Serial, &d.Model, &d.FirmwareVersion, &farmID, &lastSeen, &d.CreatedAt); err != nil {
		return models.Device{}, err
	}
	if farmID.Valid {
		d.FarmID = farmID.String
	}
	if lastSeen.Valid {
		ts := lastSeen.Time.UTC()
		d.LastSeen = &ts
	}
	d.CreatedAt = d.CreatedAt.UTC()
	return d, nil
}

func nullString(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func nullTime(t *time.Time) any {
	if t == nil {
		return nil
	}
	return t.UTC()
}
