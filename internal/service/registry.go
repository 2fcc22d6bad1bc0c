package service

import (
	"context"
	"strings"
	"time"

	gocache "github.com/patrickmn/go-cache"

	"incubator-backend/internal/models"
	"incubator-backend/internal/repository"
)

const defaultCacheTTL = 30 * time.Second

// RegistryService resolves device identity. Serial lookups happen once per
// inbound report, so positive results are cached for a short TTL. Negative
// results are not cached: an unknown serial may be a device registered a
// moment ago.
type RegistryService struct {
	devices repository.DeviceRepo
	cache   *gocache.Cache
}

func NewRegistryService(devices repository.DeviceRepo, ttl time.Duration) *RegistryService {
	if ttl <= 0 {
		ttl = defaultCacheTTL
	}
	return &RegistryService{
		devices: devices,
		cache:   gocache.New(ttl, 2*ttl),
	}
}

// Create registers a new device. The serial is required and stored trimmed;
// uniqueness is enforced by the devices table.
func (s *RegistryService) Create(ctx context.Context, d models.Device) (models.Device, error) {
	d.Serial = strings.TrimSpace(d.Serial)
	created, err := s.devices.Create(ctx, d)
	if err != nil {
		return models.Device{}, err
	}
	// a stale negative hit cannot exist, but an update path may come later
	s.cache.Delete(created.Serial)
	return created, nil
}

// LookupSerial resolves an external serial to the internal device record.
// Returns repository.ErrDeviceNotFound for unknown serials; devices are
// never auto-registered from telemetry.
func (s *RegistryService) LookupSerial(ctx context.Context, serial string) (models.Device, error) {
	if cached, ok := s.cache.Get(serial); ok {
		return cached.(models.Device), nil
	}
	d, err := s.devices.GetBySerial(ctx, serial)
	if err != nil {
		return models.Device{}, err
	}
	s.cache.Set(serial, d, gocache.DefaultExpiration)
	return d, nil
}

func (s *RegistryService) GetByID(ctx context.Context, id string) (models.Device, error) {
	return s.devices.GetByID(ctx, id)
}

func (s *RegistryService) List(ctx context.Context) ([]models.Device, error) {
	return s.devices.List(ctx)
}
