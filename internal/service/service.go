package service

import (
	"context"
	"time"

	"incubator-backend/internal/bus"
	"incubator-backend/internal/logger"
	"incubator-backend/internal/models"
	"incubator-backend/internal/mqtt"
	"incubator-backend/internal/repository"
)

// Broker is the slice of the shared MQTT session the services use. One
// session instance backs both the ingestion listener and the dispatcher.
type Broker interface {
	Publish(topic string, payload []byte) error
	Subscribe(filter string, handler mqtt.MessageHandler) error
	IsConnected() bool
}

// Registry resolves and manages device identity. Lookups by serial are the
// hot path of ingestion and are cached.
type Registry interface {
	Create(ctx context.Context, d models.Device) (models.Device, error)
	LookupSerial(ctx context.Context, serial string) (models.Device, error)
	GetByID(ctx context.Context, id string) (models.Device, error)
	List(ctx context.Context) ([]models.Device, error)
}

// Telemetry exposes the read contracts over the durable report log.
type Telemetry interface {
	Latest(ctx context.Context, deviceID string) (models.TelemetryReport, error)
	Range(ctx context.Context, deviceID string, from, to time.Time, limit int) ([]models.TelemetryReport, error)
	Stats(ctx context.Context, deviceID string, from, to time.Time) (models.TelemetryStats, error)
}

// Commands dispatches operator commands toward controllers and tracks their
// delivery state.
type Commands interface {
	Dispatch(ctx context.Context, deviceID, cmd string, params map[string]any) (models.Command, error)
	History(ctx context.Context, deviceID string, limit int) ([]models.Command, error)
}

// Ingest is the long-lived listener driving normalize -> store -> fan-out
// for every inbound report.
type Ingest interface {
	Run(ctx context.Context) error
	HandleMessage(topic string, payload []byte)
}

// Service aggregates all sub-services.
type Service struct {
	Registry
	Telemetry
	Commands
	Ingest
}

// NewService wires the repository layer, fan-out bus and broker session into
// concrete services.
func NewService(repos *repository.Repository, fanout *bus.Bus, broker Broker, log *logger.Logger, cacheTTL time.Duration) *Service {
	registry := NewRegistryService(repos.Devices, cacheTTL)
	return &Service{
		Registry:  registry,
		Telemetry: NewTelemetryService(repos.Telemetry),
		Commands:  NewCommandService(repos.Commands, repos.Devices, broker, log),
		Ingest:    NewIngestService(registry, repos.Telemetry, fanout, broker, log),
	}
}
