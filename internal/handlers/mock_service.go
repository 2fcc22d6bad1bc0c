package handlers

import (
	"context"
	"time"

	"incubator-backend/internal/bus"
	"incubator-backend/internal/logger"
	"incubator-backend/internal/models"
	"incubator-backend/internal/service"
)

// ---- service mocks for handler tests ----

type mockRegistry struct {
	createResp models.Device
	createErr  error
	getResp    models.Device
	getErr     error
	listResp   []models.Device
	listErr    error

	lastCreate models.Device
}

func (m *mockRegistry) Create(ctx context.Context, d models.Device) (models.Device, error) {
	m.lastCreate = d
	return m.createResp, m.createErr
}

func (m *mockRegistry) LookupSerial(ctx context.Context, serial string) (models.Device, error) {
	return m.getResp, m.getErr
}

func (m *mockRegistry) GetByID(ctx context.Context, id string) (models.Device, error) {
	return m.getResp, m.getErr
}

func (m *mockRegistry) List(ctx context.Context) ([]models.Device, error) {
	return m.listResp, m.listErr
}

type mockTelemetry struct {
	latestResp models.TelemetryReport
	latestErr  error
	rangeResp  []models.TelemetryReport
	rangeErr   error
	statsResp  models.TelemetryStats
	statsErr   error

	lastRangeFrom  time.Time
	lastRangeTo    time.Time
	lastRangeLimit int
}

func (m *mockTelemetry) Latest(ctx context.Context, deviceID string) (models.TelemetryReport, error) {
	return m.latestResp, m.latestErr
}

func (m *mockTelemetry) Range(ctx context.Context, deviceID string, from, to time.Time, limit int) ([]models.TelemetryReport, error) {
	m.lastRangeFrom, m.lastRangeTo, m.lastRangeLimit = from, to, limit
	return m.rangeResp, m.rangeErr
}

func (m *mockTelemetry) Stats(ctx context.Context, deviceID string, from, to time.Time) (models.TelemetryStats, error) {
	return m.statsResp, m.statsErr
}

type mockCommands struct {
	dispatchResp models.Command
	dispatchErr  error
	historyResp  []models.Command
	historyErr   error

	lastDeviceID string
	lastCmd      string
	lastParams   map[string]any
}

func (m *mockCommands) Dispatch(ctx context.Context, deviceID, cmd string, params map[string]any) (models.Command, error) {
	m.lastDeviceID, m.lastCmd, m.lastParams = deviceID, cmd, params
	return m.dispatchResp, m.dispatchErr
}

func (m *mockCommands) History(ctx context.Context, deviceID string, limit int) ([]models.Command, error) {
	return m.historyResp, m.historyErr
}

type mockIngest struct{}

func (m *mockIngest) Run(ctx context.Context) error              { return nil }
func (m *mockIngest) HandleMessage(topic string, payload []byte) {}

type mocks struct {
	registry  *mockRegistry
	telemetry *mockTelemetry
	commands  *mockCommands
}

// newTestHandler builds a Handler over mocked services and a real bus.
func newTestHandler() (*Handler, *mocks, *bus.Bus) {
	m := &mocks{
		registry:  &mockRegistry{},
		telemetry: &mockTelemetry{},
		commands:  &mockCommands{},
	}
	svc := &service.Service{
		Registry:  m.registry,
		Telemetry: m.telemetry,
		Commands:  m.commands,
		Ingest:    &mockIngest{},
	}
	fanout := bus.New(4)
	return NewHandler(svc, fanout, logger.Get(logger.ErrorLevel)), m, fanout
}
