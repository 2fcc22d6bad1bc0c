package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"incubator-backend/internal/models"
)

// ErrDeviceNotFound is returned by device lookups for unknown identifiers.
// Unknown serials are never auto-registered.
var ErrDeviceNotFound = errors.New("device not found")

// AppendResult is the outcome of a telemetry append.
type AppendResult int

const (
	Accepted AppendResult = iota
	Duplicate
)

type DeviceRepo interface {
	Create(ctx context.Context, d models.Device) (models.Device, error)
	GetBySerial(ctx context.Context, serial string) (models.Device, error)
	GetByID(ctx context.Context, id string) (models.Device, error)
	List(ctx context.Context) ([]models.Device, error)
}

// TelemetryRepo is the durable, time-ordered per-device report log. Append
// inserts the report and advances the device's last_seen in one transaction;
// on a (ts, device_id) collision it reports Duplicate and changes nothing.
type TelemetryRepo interface {
	Append(ctx context.Context, r models.TelemetryReport) (AppendResult, error)
	Latest(ctx context.Context, deviceID string) (models.TelemetryReport, error)
	Range(ctx context.Context, deviceID string, from, to time.Time, limit int) ([]models.TelemetryReport, error)
	Stats(ctx context.Context, deviceID string, from, to time.Time) (models.TelemetryStats, error)
}

type CommandRepo interface {
	Create(ctx context.Context, c models.Command) (models.Command, error)
	UpdateStatus(ctx context.Context, id, status string, sentAt *time.Time) error
	ListByDevice(ctx context.Context, deviceID string, limit int) ([]models.Command, error)
}

type Repository struct {
	Devices   DeviceRepo
	Telemetry TelemetryRepo
	Commands  CommandRepo
}

func NewRepository(db *sql.DB) *Repository {
	return &Repository{
		Devices:   NewDeviceSQLite(db),
		Telemetry: NewTelemetrySQLite(db),
		Commands:  NewCommandSQLite(db),
	}
}
