package repository

import (
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"

	"incubator-backend/internal/models"
)

func TestCommandCreate_DefaultsToPending(t *testing.T) {
	t.Parallel()

	db, mock := newMock(t)
	repo := NewCommandSQLite(db)

	mock.ExpectExec(regexp.QuoteMeta(insertCommandSQL)).
		WithArgs(sqlmock.AnyArg(), "dev-1", "farm-1", "set_temp", sqlmock.AnyArg(),
			models.CommandPending, sqlmock.AnyArg(), nil, nil).
		WillReturnResult(sqlmock.NewResult(0, 1))

	got, err := repo.Create(ctx(t), models.Command{
		DeviceID: "dev-1",
		FarmID:   "farm-1",
		Cmd:      "set_temp",
		Params:   map[string]any{"target": 37.5},
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if got.ID == "" {
		t.Error("expected a generated id")
	}
	if got.Status != models.CommandPending {
		t.Errorf("want pending, got %q", got.Status)
	}
	if got.CreatedAt.IsZero() {
		t.Error("expected CreatedAt to be set")
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("mock expectations: %v", err)
	}
}

func TestCommandCreate_DBError(t *testing.T) {
	t.Parallel()

	db, mock := newMock(t)
	repo := NewCommandSQLite(db)

	mock.ExpectExec("INSERT INTO commands").
		WillReturnError(errors.New("down"))

	if _, err := repo.Create(ctx(t), models.Command{DeviceID: "dev-1", Cmd: "reboot"}); err == nil {
		t.Fatal("expected error")
	}
}

func TestCommandUpdateStatus(t *testing.T) {
	t.Parallel()

	db, mock := newMock(t)
	repo := NewCommandSQLite(db)

	sentAt := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	mock.ExpectExec(regexp.QuoteMeta(updateCommandStatusSQL)).
		WithArgs(models.CommandSent, sentAt, "cmd-1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	if err := repo.UpdateStatus(ctx(t), "cmd-1", models.CommandSent, &sentAt); err != nil {
		t.Fatalf("UpdateStatus: %v", err)
	}

	// failed transition leaves sent_at NULL
	mock.ExpectExec(regexp.QuoteMeta(updateCommandStatusSQL)).
		WithArgs(models.CommandFailed, nil, "cmd-2").
		WillReturnResult(sqlmock.NewResult(0, 1))

	if err := repo.UpdateStatus(ctx(t), "cmd-2", models.CommandFailed, nil); err != nil {
		t.Fatalf("UpdateStatus failed transition: %v", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("mock expectations: %v", err)
	}
}

func TestCommandListByDevice(t *testing.T) {
	t.Parallel()

	db, mock := newMock(t)
	repo := NewCommandSQLite(db)

	created := time.Date(2026, 1, 2, 0, 0, 0, 0, time.UTC)
	sent := created.Add(time.Second)
	rows := sqlmock.NewRows([]string{"id", "device_id", "farm_id", "cmd", "params", "status", "created_at", "sent_at", "response"}).
		AddRow("c2", "dev-1", "farm-1", "reboot", nil, models.CommandSent, created, sent, nil).
		AddRow("c1", "dev-1", nil, "set_temp", `{"target":37.5}`, models.CommandFailed, created.Add(-time.Hour), nil, nil)

	mock.ExpectQuery("SELECT .+ FROM commands WHERE device_id = \\? ORDER BY created_at DESC LIMIT \\?").
		WithArgs("dev-1", 10).
		WillReturnRows(rows)

	got, err := repo.ListByDevice(ctx(t), "dev-1", 10)
	if err != nil {
		t.Fatalf("ListByDevice: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("want 2 commands, got %d", len(got))
	}
	if got[0].SentAt == nil || !got[0].SentAt.Equal(sent) {
		t.Errorf("sent command should carry sent_at: %+v", got[0])
	}
	if got[1].SentAt != nil {
		t.Errorf("failed command should not carry sent_at: %+v", got[1])
	}
	if got[1].Params["target"] != 37.5 {
		t.Errorf("params not parsed: %+v", got[1].Params)
	}
}
