package db

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRebind(t *testing.T) {
	pg := &DB{Dialect: Postgres}
	assert.Equal(t, "SELECT * FROM t WHERE a = $1 AND b = $2", pg.Rebind("SELECT * FROM t WHERE a = ? AND b = ?"))

	lite := &DB{Dialect: SQLite}
	assert.Equal(t, "SELECT * FROM t WHERE a = ?", lite.Rebind("SELECT * FROM t WHERE a = ?"))
}

func TestMigrate_Idempotent(t *testing.T) {
	ctx := context.Background()
	d, err := Open(ctx, "sqlite", filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	defer d.Close()

	require.NoError(t, d.Migrate(ctx))
	require.NoError(t, d.Migrate(ctx))

	var n int
	require.NoError(t, d.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM pragma_table_info('ai_logs') WHERE name = 'cost'`).Scan(&n))
	assert.Equal(t, 1, n)
}

func TestMigrate_AddsCostToLegacyTable(t *testing.T) {
	ctx := context.Background()
	d, err := Open(ctx, "sqlite", filepath.Join(t.TempDir(), "legacy.db"))
	require.NoError(t, err)
	defer d.Close()

	_, err = d.ExecContext(ctx, `CREATE TABLE ai_logs (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		thread_id INTEGER,
		model TEXT NOT NULL DEFAULT '',
		engine TEXT NOT NULL DEFAULT '',
		input_tokens INTEGER NOT NULL DEFAULT 0,
		output_tokens INTEGER NOT NULL DEFAULT 0,
		total_tokens INTEGER NOT NULL DEFAULT 0,
		response_time REAL NOT NULL DEFAULT 0,
		status TEXT NOT NULL DEFAULT 'success',
		error_message TEXT NOT NULL DEFAULT '',
		input_preview TEXT NOT NULL DEFAULT '',
		output_preview TEXT NOT NULL DEFAULT '',
		created_at DATETIME NOT NULL
	)`)
	require.NoError(t, err)

	require.NoError(t, d.Migrate(ctx))

	var n int
	require.NoError(t, d.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM pragma_table_info('ai_logs') WHERE name = 'cost'`).Scan(&n))
	assert.Equal(t, 1, n)
}

func TestOpen_UnknownDriver(t *testing.T) {
	_, err := Open(context.Background(), "mysql", "")
	assert.Error(t, err)
}
