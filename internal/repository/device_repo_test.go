package repository

import (
	"database/sql"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"

	"incubator-backend/internal/models"
)

func deviceColumns() []string {
	return []string{"id", "serial", "model", "firmware_version", "farm_id", "last_seen", "created_at"}
}

func TestDeviceGetBySerial_Found(t *testing.T) {
	t.Parallel()

	db, mock := newMock(t)
	repo := NewDeviceSQLite(db)

	seen := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	rows := sqlmock.NewRows(deviceColumns()).
		AddRow("dev-1", "INC-0001", "mk3", "1.2.0", "farm-1", seen, seen.Add(-time.Hour))

	mock.ExpectQuery("SELECT .+ FROM devices WHERE serial = \\?").
		WithArgs("INC-0001").
		WillReturnRows(rows)

	got, err := repo.GetBySerial(ctx(t), "INC-0001")
	if err != nil {
		t.Fatalf("GetBySerial: %v", err)
	}
	if got.ID != "dev-1" || got.FarmID != "farm-1" {
		t.Fatalf("unexpected device: %+v", got)
	}
	if got.LastSeen == nil || !got.LastSeen.Equal(seen) {
		t.Fatalf("last_seen not scanned: %+v", got.LastSeen)
	}
}

func TestDeviceGetBySerial_NotFound(t *testing.T) {
	t.Parallel()

	db, mock := newMock(t)
	repo := NewDeviceSQLite(db)

	mock.ExpectQuery("SELECT .+ FROM devices WHERE serial = \\?").
		WithArgs("NOPE").
		WillReturnError(sql.ErrNoRows)

	if _, err := repo.GetBySerial(ctx(t), "NOPE"); !errors.Is(err, ErrDeviceNotFound) {
		t.Fatalf("want ErrDeviceNotFound, got %v", err)
	}
}

func TestDeviceCreate_SetsDefaults(t *testing.T) {
	t.Parallel()

	db, mock := newMock(t)
	repo := NewDeviceSQLite(db)

	mock.ExpectExec(regexp.QuoteMeta(insertDeviceSQL)).
		WithArgs(sqlmock.AnyArg(), "INC-0002", "", "", nil, nil, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	got, err := repo.Create(ctx(t), models.Device{Serial: "INC-0002"})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if got.ID == "" || got.CreatedAt.IsZero() {
		t.Fatalf("defaults not applied: %+v", got)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("mock expectations: %v", err)
	}
}

func TestDeviceCreate_DuplicateSerial(t *testing.T) {
	t.Parallel()

	db, mock := newMock(t)
	repo := NewDeviceSQLite(db)

	mock.ExpectExec("INSERT INTO devices").
		WillReturnError(errors.New("UNIQUE constraint failed: devices.serial"))

	if _, err := repo.Create(ctx(t), models.Device{Serial: "INC-0001"}); err == nil {
		t.Fatal("expected unique violation to surface")
	}
}
