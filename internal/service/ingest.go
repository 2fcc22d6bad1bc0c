package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"incubator-backend/internal/bus"
	"incubator-backend/internal/logger"
	"incubator-backend/internal/models"
	"incubator-backend/internal/repository"
)

// telemetryFilter covers the whole device-report topic space:
// incubators/{farmId}/{deviceSerial}/telemetry.
const telemetryFilter = "incubators/+/+/telemetry"

const handleTimeout = 10 * time.Second

// IngestService consumes inbound report frames and drives
// normalize -> store -> fan-out for each. All per-message failures are
// logged and dropped; nothing a single bad frame does may take the
// listener down or affect the next frame.
type IngestService struct {
	registry Registry
	reports  repository.TelemetryRepo
	fanout   *bus.Bus
	broker   Broker
	log      *logger.Logger

	// now is swappable for tests; reports without a usable ts get this.
	now func() time.Time
}

func NewIngestService(registry Registry, reports repository.TelemetryRepo, fanout *bus.Bus, broker Broker, log *logger.Logger) *IngestService {
	return &IngestService{
		registry: registry,
		reports:  reports,
		fanout:   fanout,
		broker:   broker,
		log:      log,
		now:      time.Now,
	}
}

// Run subscribes to the report topic space and blocks until ctx is
// cancelled. The subscription lives for the process lifetime; the broker
// session re-establishes it across reconnects.
func (s *IngestService) Run(ctx context.Context) error {
	if err := s.broker.Subscribe(telemetryFilter, s.HandleMessage); err != nil {
		return err
	}
	s.log.Infow("ingest_listening", "filter", telemetryFilter)
	<-ctx.Done()
	return nil
}

// HandleMessage processes one inbound frame. Frames for one device arrive in
// order on the subscription; handling is synchronous so storage observes
// that order.
func (s *IngestService) HandleMessage(topic string, payload []byte) {
	serial, ok := serialFromTopic(topic)
	if !ok {
		s.log.Warnw("ingest_bad_topic", "topic", topic)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), handleTimeout)
	defer cancel()

	device, err := s.registry.LookupSerial(ctx, serial)
	if err != nil {
		if errors.Is(err, repository.ErrDeviceNotFound) {
			s.log.Warnw("ingest_unknown_device", "serial", serial)
		} else {
			s.log.Errorw("ingest_lookup_failed", "serial", serial, "err", err)
		}
		return
	}

	report, err := Normalize(payload, s.now())
	if err != nil {
		s.log.Warnw("ingest_malformed_payload", "serial", serial, "err", err)
		return
	}
	report.DeviceID = device.ID
	report.FarmID = device.FarmID

	result, err := s.reports.Append(ctx, report)
	if err != nil {
		s.log.Errorw("ingest_store_failed", "serial", serial, "err", err)
		return
	}
	if result == repository.Duplicate {
		// re-delivered frame; the first acceptance already fanned out
		s.log.Infow("ingest_duplicate", "serial", serial, "ts", report.Timestamp)
		return
	}

	if device.FarmID == "" {
		return
	}
	delivered := s.fanout.Publish(device.FarmID, models.FanOutMessage{
		Type:         "telemetry",
		DeviceID:     device.ID,
		DeviceSerial: device.Serial,
		FarmID:       device.FarmID,
		Data:         report,
	})
	s.log.Debugw("ingest_accepted", "serial", serial, "ts", report.Timestamp, "fanout", delivered)
}

// serialFromTopic extracts the device serial from
// incubators/{farmId}/{deviceSerial}/telemetry.
func serialFromTopic(topic string) (string, bool) {
	parts := strings.Split(topic, "/")
	if len(parts) != 4 || parts[0] != "incubators" || parts[3] != "telemetry" {
		return "", false
	}
	if parts[2] == "" {
		return "", false
	}
	return parts[2], true
}
