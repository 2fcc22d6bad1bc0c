package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"incubator-backend/internal/models"
)

type CommandSQLite struct {
	db *sql.DB
}

func NewCommandSQLite(db *sql.DB) *CommandSQLite { return &CommandSQLite{db: db} }

const (
	insertCommandSQL = `
		INSERT INTO commands (id, device_id, farm_id, cmd, params, status, created_at, sent_at, response)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	updateCommandStatusSQL = `UPDATE commands SET status = ?, sent_at = ? WHERE id = ?`

	selectCommandCols = `id, device_id, farm_id, cmd, params, status, created_at, sent_at, response`
)

// Create durably records a command. ID, Status and CreatedAt are set when
// empty; the default status is pending.
func (r *CommandSQLite) Create(ctx context.Context, c models.Command) (models.Command, error) {
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	if c.Status == "" {
		c.Status = models.CommandPending
	}
	if c.CreatedAt.IsZero() {
		c.CreatedAt = time.Now().UTC()
	} else {
		c.CreatedAt = c.CreatedAt.UTC()
	}

	var paramsPtr *string
	if c.Params != nil {
		if b, err := json.Marshal(c.Params); err == nil {
			s := string(b)
			paramsPtr = &s
		}
	}

	_, err := r.db.ExecContext(ctx, insertCommandSQL,
		c.ID, c.DeviceID, nullString(c.FarmID), c.Cmd, paramsPtr,
		c.Status, c.CreatedAt, nullTime(c.SentAt), nil,
	)
	if err != nil {
		return models.Command{}, err
	}
	return c, nil
}

// UpdateStatus records a state transition. sentAt is only set on the
// pending -> sent transition and stays NULL otherwise.
func (r *CommandSQLite) UpdateStatus(ctx context.Context, id, status string, sentAt *time.Time) error {
	_, err := r.db.ExecContext(ctx, updateCommandStatusSQL, status, nullTime(sentAt), id)
	return err
}

// ListByDevice returns the device's commands, newest first.
func (r *CommandSQLite) ListByDevice(ctx context.Context, deviceID string, limit int) ([]models.Command, error) {
	q := `SELECT ` + selectCommandCols + ` FROM commands WHERE device_id = ? ORDER BY created_at DESC`
	args := []any{deviceID}
	if limit > 0 {
		q += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]models.Command, 0, 32)
	for rows.Next() {
		var (
			c        models.Command
			farmID   sql.NullString
			params   sql.NullString
			sentAt   sql.NullTime
			response sql.NullString
		)
		if err := rows.Scan(&c.ID, &c.DeviceID, &farmID, &c.Cmd, &params,
			&c.Status, &c.CreatedAt, &sentAt, &response); err != nil {
			return nil, err
		}
		c.CreatedAt = c.CreatedAt.UTC()
		if farmID.Valid {
			c.FarmID = farmID.String
		}
		if params.Valid && params.String != "" {
			_ = json.Unmarshal([]byte(params.String), &c.Params)
		}
		if sentAt.Valid {
			ts := sentAt.Time.UTC()
			c.SentAt = &ts
		}
		if response.Valid && response.String != "" {
			_ = json.Unmarshal([]byte(response.String), &c.Response)
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}
