package seeder

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vnmchuo/ai-core/internal/auth"
	"github.com/vnmchuo/ai-core/internal/db"
	"github.com/vnmchuo/ai-core/internal/logger"
)

func TestSeedDevAdminKey_Idempotent(t *testing.T) {
	ctx := context.Background()
	database, err := db.Open(ctx, "sqlite", filepath.Join(t.TempDir(), "seed.db"))
	require.NoError(t, err)
	defer database.Close()
	require.NoError(t, database.Migrate(ctx))

	store := auth.NewSQLStore(database)
	require.NoError(t, SeedDevAdminKey(ctx, store, logger.Nop()))
	require.NoError(t, SeedDevAdminKey(ctx, store, logger.Nop()))

	key, err := store.GetByKey(ctx, DevAdminKey)
	require.NoError(t, err)
	assert.Equal(t, DevAdminLabel, key.Label)

	var n int
	require.NoError(t, database.QueryRowContext(ctx, `SELECT COUNT(*) FROM admin_keys`).Scan(&n))
	assert.Equal(t, 1, n)
}
