package db

import (
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite"
)

const sqliteDriverName = "sqlite"

// InitDB opens/creates the SQLite database file and ensures tables exist.
func InitDB(path string) (*sql.DB, error) {
	db, err := sql.Open(sqliteDriverName, path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite at %q: %w", path, err)
	}

	// SQLite tolerates a single writer best.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	for _, pragma := range []string{
		"PRAGMA journal_mode = WAL;",
		"PRAGMA foreign_keys = ON;",
		"PRAGMA busy_timeout = 5000;",
	} {
		if _, err := db.Exec(pragma); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("set %s: %w", pragma, err)
		}
	}

	if err := ensureSchema(db); err != nil {
		_ = db.Close()
		return nil, err
	}

	// Fail fast if the DB cannot be reached.
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}

	return db, nil
}

const schemaDevices = `
CREATE TABLE IF NOT EXISTS devices (
    id TEXT PRIMARY KEY,
    serial TEXT UNIQUE NOT NULL,
    model TEXT NOT NULL DEFAULT '',
    firmware_version TEXT NOT NULL DEFAULT '',
    farm_id TEXT,
    last_seen TIMESTAMP,
    created_at TIMESTAMP NOT NULL
);
`

// Composite primary key (ts, device_id) is the natural identity of a report;
// the engine rejects duplicates so concurrent ingestors need no pre-check.
const schemaTelemetry = `
CREATE TABLE IF NOT EXISTS telemetry (
    ts TIMESTAMP NOT NULL,
    device_id TEXT NOT NULL REFERENCES devices(id) ON DELETE CASCADE,
    farm_id TEXT,
    seq INTEGER,
    temp_c REAL NOT NULL,
    hum_pct REAL NOT NULL,
    primary_heater BOOLEAN NOT NULL,
    secondary_heater BOOLEAN NOT NULL,
    exhaust_fan BOOLEAN NOT NULL,
    sv_valve BOOLEAN NOT NULL,
    fan BOOLEAN NOT NULL,
    turning_motor BOOLEAN NOT NULL,
    limit_switch BOOLEAN NOT NULL,
    door_light BOOLEAN NOT NULL,
    heater BOOLEAN NOT NULL,
    motor_state TEXT,
    uptime_s INTEGER,
    rssi INTEGER,
    ip TEXT,
    payload TEXT,
    PRIMARY KEY (ts, device_id)
);
`

const schemaCommands = `
CREATE TABLE IF NOT EXISTS commands (
    id TEXT PRIMARY KEY,
    device_id TEXT NOT NULL REFERENCES devices(id) ON DELETE CASCADE,
    farm_id TEXT,
    cmd TEXT NOT NULL,
    params TEXT,
    status TEXT NOT NULL,
    created_at TIMESTAMP NOT NULL,
    sent_at TIMESTAMP,
    response TEXT
);
`

func ensureSchema(db *sql.DB) error {
	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("begin schema transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	for i, stmt := range []string{
		schemaDevices,
		schemaTelemetry,
		schemaCommands,
	} {
		if _, err := tx.Exec(stmt); err != nil {
			return fmt.Errorf("apply schema statement %d: %w", i+1, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit schema transaction: %w", err)
	}
	return nil
}
