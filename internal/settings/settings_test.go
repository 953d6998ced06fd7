package settings

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vnmchuo/ai-core/config"
	"github.com/vnmchuo/ai-core/internal/db"
)

func newTestStore(t *testing.T) Store {
	t.Helper()
	ctx := context.Background()
	database, err := db.Open(ctx, "sqlite", filepath.Join(t.TempDir(), "settings.db"))
	require.NoError(t, err)
	t.Cleanup(func() { database.Close() })
	require.NoError(t, database.Migrate(ctx))
	return NewSQLStore(database)
}

func strPtr(s string) *string { return &s }

func TestStore_GetDefaultAndUpsert(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	v, err := store.Get(ctx, KeyDefaultModel, "gpt-4o")
	require.NoError(t, err)
	assert.Equal(t, "gpt-4o", v)

	require.NoError(t, store.Set(ctx, KeyDefaultModel, "claude-sonnet-4"))
	require.NoError(t, store.Set(ctx, KeyDefaultModel, "o3-mini"))

	v, err = store.Get(ctx, KeyDefaultModel, "gpt-4o")
	require.NoError(t, err)
	assert.Equal(t, "o3-mini", v)
}

func TestService_EnvDefaults(t *testing.T) {
	svc := NewService(newTestStore(t), &config.Config{OpenAIAPIKey: "sk-env"})

	v, err := svc.Values(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "sk-env", v.OpenAIKey)
	assert.Empty(t, v.AnthropicKey)
	assert.Equal(t, FallbackModel, v.DefaultModel)
}

func TestService_SaveTrimsAndOverrides(t *testing.T) {
	svc := NewService(newTestStore(t), &config.Config{OpenAIAPIKey: "sk-env", DefaultModel: "gpt-4o"})
	ctx := context.Background()

	require.NoError(t, svc.Save(ctx, Update{
		AnthropicKey: strPtr("  sk-ant-123 \n"),
		DefaultModel: strPtr("claude-sonnet-4"),
	}))

	v, err := svc.Values(ctx)
	require.NoError(t, err)
	assert.Equal(t, "sk-env", v.OpenAIKey)
	assert.Equal(t, "sk-ant-123", v.AnthropicKey)
	assert.Equal(t, "claude-sonnet-4", v.DefaultModel)

	keys, err := svc.APIKeys(ctx)
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"openai": "sk-env", "anthropic": "sk-ant-123"}, keys)
}

func TestService_BlankDefaultModelFallsBack(t *testing.T) {
	svc := NewService(newTestStore(t), &config.Config{DefaultModel: "claude-sonnet-4"})
	ctx := context.Background()

	require.NoError(t, svc.Save(ctx, Update{DefaultModel: strPtr("   ")}))

	v, err := svc.Values(ctx)
	require.NoError(t, err)
	assert.Equal(t, "claude-sonnet-4", v.DefaultModel)
}
