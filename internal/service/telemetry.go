package service

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"incubator-backend/internal/models"
	"incubator-backend/internal/repository"
)

// ErrNoTelemetry is returned when a device has no stored reports yet.
var ErrNoTelemetry = errors.New("no telemetry for device")

// TelemetryService serves read queries over the durable report log. All
// aggregates are computed by the storage engine at read time.
type TelemetryService struct {
	reports repository.TelemetryRepo
}

func NewTelemetryService(reports repository.TelemetryRepo) *TelemetryService {
	return &TelemetryService{reports: reports}
}

func (s *TelemetryService) Latest(ctx context.Context, deviceID string) (models.TelemetryReport, error) {
	rep, err := s.reports.Latest(ctx, deviceID)
	if errors.Is(err, sql.ErrNoRows) {
		return models.TelemetryReport{}, ErrNoTelemetry
	}
	return rep, err
}

func (s *TelemetryService) Range(ctx context.Context, deviceID string, from, to time.Time, limit int) ([]models.TelemetryReport, error) {
	return s.reports.Range(ctx, deviceID, from, to, limit)
}

func (s *TelemetryService) Stats(ctx context.Context, deviceID string, from, to time.Time) (models.TelemetryStats, error) {
	return s.reports.Stats(ctx, deviceID, from, to)
}
