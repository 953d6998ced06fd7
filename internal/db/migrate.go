package db

import (
	"context"
	"fmt"
)

var postgresSchema = []string{
	`CREATE TABLE IF NOT EXISTS ai_threads (
		id         BIGSERIAL PRIMARY KEY,
		title      VARCHAR(255) NOT NULL DEFAULT '',
		model      VARCHAR(100) NOT NULL DEFAULT '',
		messages   TEXT NOT NULL,
		system_msg TEXT NOT NULL DEFAULT '',
		created_at TIMESTAMPTZ NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS ai_logs (
		id             BIGSERIAL PRIMARY KEY,
		thread_id      BIGINT,
		model          VARCHAR(100) NOT NULL DEFAULT '',
		engine         VARCHAR(50) NOT NULL DEFAULT '',
		input_tokens   INTEGER NOT NULL DEFAULT 0,
		output_tokens  INTEGER NOT NULL DEFAULT 0,
		total_tokens   INTEGER NOT NULL DEFAULT 0,
		response_time  DOUBLE PRECISION NOT NULL DEFAULT 0,
		status         VARCHAR(20) NOT NULL DEFAULT 'success',
		error_message  TEXT NOT NULL DEFAULT '',
		input_preview  TEXT NOT NULL DEFAULT '',
		output_preview TEXT NOT NULL DEFAULT '',
		created_at     TIMESTAMPTZ NOT NULL
	)`,
	`ALTER TABLE ai_logs ADD COLUMN IF NOT EXISTS cost DOUBLE PRECISION`,
	`CREATE INDEX IF NOT EXISTS ai_logs_thread_id ON ai_logs (thread_id)`,
	`CREATE INDEX IF NOT EXISTS ai_logs_model ON ai_logs (model)`,
	`CREATE INDEX IF NOT EXISTS ai_logs_status ON ai_logs (status)`,
	`CREATE INDEX IF NOT EXISTS ai_logs_created_at ON ai_logs (created_at)`,
	`CREATE TABLE IF NOT EXISTS ai_settings (
		name  VARCHAR(100) PRIMARY KEY,
		value TEXT NOT NULL DEFAULT ''
	)`,
	`CREATE TABLE IF NOT EXISTS admin_keys (
		id         BIGSERIAL PRIMARY KEY,
		label      VARCHAR(100) NOT NULL DEFAULT '',
		key_hash   CHAR(64) NOT NULL UNIQUE,
		active     BOOLEAN NOT NULL DEFAULT TRUE,
		created_at TIMESTAMPTZ NOT NULL
	)`,
}

var sqliteSchema = []string{
	`CREATE TABLE IF NOT EXISTS ai_threads (
		id         INTEGER PRIMARY KEY AUTOINCREMENT,
		title      TEXT NOT NULL DEFAULT '',
		model      TEXT NOT NULL DEFAULT '',
		messages   TEXT NOT NULL,
		system_msg TEXT NOT NULL DEFAULT '',
		created_at DATETIME NOT NULL,
		updated_at DATETIME NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS ai_logs (
		id             INTEGER PRIMARY KEY AUTOINCREMENT,
		thread_id      INTEGER,
		model          TEXT NOT NULL DEFAULT '',
		engine         TEXT NOT NULL DEFAULT '',
		input_tokens   INTEGER NOT NULL DEFAULT 0,
		output_tokens  INTEGER NOT NULL DEFAULT 0,
		total_tokens   INTEGER NOT NULL DEFAULT 0,
		response_time  REAL NOT NULL DEFAULT 0,
		status         TEXT NOT NULL DEFAULT 'success',
		error_message  TEXT NOT NULL DEFAULT '',
		input_preview  TEXT NOT NULL DEFAULT '',
		output_preview TEXT NOT NULL DEFAULT '',
		created_at     DATETIME NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS ai_logs_thread_id ON ai_logs (thread_id)`,
	`CREATE INDEX IF NOT EXISTS ai_logs_model ON ai_logs (model)`,
	`CREATE INDEX IF NOT EXISTS ai_logs_status ON ai_logs (status)`,
	`CREATE INDEX IF NOT EXISTS ai_logs_created_at ON ai_logs (created_at)`,
	`CREATE TABLE IF NOT EXISTS ai_settings (
		name  TEXT PRIMARY KEY,
		value TEXT NOT NULL DEFAULT ''
	)`,
	`CREATE TABLE IF NOT EXISTS admin_keys (
		id         INTEGER PRIMARY KEY AUTOINCREMENT,
		label      TEXT NOT NULL DEFAULT '',
		key_hash   TEXT NOT NULL UNIQUE,
		active     BOOLEAN NOT NULL DEFAULT 1,
		created_at DATETIME NOT NULL
	)`,
}

// Migrate creates missing tables and adds the cost column to log tables that
// predate it. Existing rows are left with a NULL cost for the billing store
// to backfill. Safe to run on every start.
func (d *DB) Migrate(ctx context.Context) error {
	schema := postgresSchema
	if d.Dialect == SQLite {
		schema = sqliteSchema
	}
	for _, stmt := range schema {
		if _, err := d.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to migrate: %w", err)
		}
	}

	if d.Dialect == SQLite {
		var n int
		err := d.QueryRowContext(ctx,
			`SELECT COUNT(*) FROM pragma_table_info('ai_logs') WHERE name = 'cost'`,
		).Scan(&n)
		if err != nil {
			return fmt.Errorf("failed to inspect ai_logs: %w", err)
		}
		if n == 0 {
			if _, err := d.ExecContext(ctx, `ALTER TABLE ai_logs ADD COLUMN cost REAL`); err != nil {
				return fmt.Errorf("failed to add cost column: %w", err)
			}
		}
	}
	return nil
}
