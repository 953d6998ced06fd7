package thread

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vnmchuo/ai-core/internal/db"
	"github.com/vnmchuo/ai-core/internal/provider"
)

func newTestStore(t *testing.T) Store {
	t.Helper()
	ctx := context.Background()
	database, err := db.Open(ctx, "sqlite", filepath.Join(t.TempDir(), "threads.db"))
	require.NoError(t, err)
	t.Cleanup(func() { database.Close() })
	require.NoError(t, database.Migrate(ctx))
	return NewSQLStore(database)
}

func TestCreateAndGet(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	id, err := store.Create(ctx, "Support", "gpt-4o", "Be brief.")
	require.NoError(t, err)
	assert.Positive(t, id)

	th, err := store.Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "Support", th.Title)
	assert.Equal(t, "gpt-4o", th.Model)
	assert.Equal(t, "Be brief.", th.SystemMessage)
	assert.Empty(t, th.Messages)
	assert.NotNil(t, th.Messages)
	assert.False(t, th.CreatedAt.IsZero())
}

func TestGet_NotFound(t *testing.T) {
	store := newTestStore(t)
	_, err := store.Get(context.Background(), 999)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestUpdateMessages_PreservesOrder(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	id, err := store.Create(ctx, "", "claude-sonnet-4", "")
	require.NoError(t, err)

	msgs := []provider.Message{
		{Role: provider.RoleUser, Content: "hello"},
		{Role: provider.RoleAssistant, Content: "hi there"},
		{Role: provider.RoleUser, Content: "how are you?"},
		{Role: provider.RoleAssistant, Content: "fine"},
	}
	require.NoError(t, store.UpdateMessages(ctx, id, msgs))

	th, err := store.Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, msgs, th.Messages)
	assert.False(t, th.UpdatedAt.Before(th.CreatedAt))
}

func TestUpdateMessages_Missing(t *testing.T) {
	store := newTestStore(t)
	err := store.UpdateMessages(context.Background(), 42, nil)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestList_OrderedByUpdatedAtDesc(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	first, err := store.Create(ctx, "first", "gpt-4o", "")
	require.NoError(t, err)
	time.Sleep(2 * time.Millisecond)
	second, err := store.Create(ctx, "second", "gpt-4o", "")
	require.NoError(t, err)
	time.Sleep(2 * time.Millisecond)
	require.NoError(t, store.UpdateMessages(ctx, first, []provider.Message{{Role: "user", Content: "bump"}}))

	list, err := store.List(ctx, 50, 0)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, first, list[0].ID)
	assert.Equal(t, second, list[1].ID)

	page, err := store.List(ctx, 1, 1)
	require.NoError(t, err)
	require.Len(t, page, 1)
	assert.Equal(t, second, page[0].ID)
}

func TestDelete(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	id, err := store.Create(ctx, "tmp", "gpt-4o", "")
	require.NoError(t, err)

	deleted, err := store.Delete(ctx, id)
	require.NoError(t, err)
	assert.True(t, deleted)

	deleted, err = store.Delete(ctx, id)
	require.NoError(t, err)
	assert.False(t, deleted)

	_, err = store.Get(ctx, id)
	assert.ErrorIs(t, err, ErrNotFound)
}
