package abilities

import (
	"context"
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vnmchuo/ai-core/config"
	"github.com/vnmchuo/ai-core/internal/aiclient"
	"github.com/vnmchuo/ai-core/internal/billing"
	"github.com/vnmchuo/ai-core/internal/db"
	"github.com/vnmchuo/ai-core/internal/pricing"
	"github.com/vnmchuo/ai-core/internal/provider"
	"github.com/vnmchuo/ai-core/internal/settings"
	"github.com/vnmchuo/ai-core/internal/thread"
)

type echoProvider struct {
	fail     bool
	requests []*provider.Request
}

func (p *echoProvider) Name() string       { return "openai" }
func (p *echoProvider) Detect(string) bool { return true }

func (p *echoProvider) Chat(_ context.Context, req *provider.Request) (*provider.Response, error) {
	p.requests = append(p.requests, req)
	if p.fail {
		return nil, &provider.ProviderError{Message: "model overloaded", StatusCode: 529}
	}
	last := req.Messages[len(req.Messages)-1]
	return &provider.Response{Content: "echo: " + last.Content, Engine: "openai", InputTokens: 4, OutputTokens: 6, TotalTokens: 10}, nil
}

func (p *echoProvider) ListModels(context.Context, string, bool) ([]provider.Model, error) {
	return nil, nil
}

func setupTest(t *testing.T) (*Abilities, *echoProvider, *aiclient.Factory) {
	t.Helper()
	ctx := context.Background()
	database, err := db.Open(ctx, "sqlite", filepath.Join(t.TempDir(), "abilities.db"))
	require.NoError(t, err)
	t.Cleanup(func() { database.Close() })
	require.NoError(t, database.Migrate(ctx))

	vendor := &echoProvider{}
	factory := &aiclient.Factory{
		Settings: settings.NewService(settings.NewSQLStore(database), &config.Config{OpenAIAPIKey: "sk-test", DefaultModel: "gpt-4o"}),
		Vendors:  []provider.Provider{vendor},
		Threads:  thread.NewSQLStore(database),
		Logs:     billing.NewSQLStore(database, pricing.Default()),
	}
	return New(factory, nil), vendor, factory
}

func toolRequest(args map[string]interface{}) mcp.CallToolRequest {
	var req mcp.CallToolRequest
	req.Params.Arguments = args
	return req
}

func decodeResult(t *testing.T, res *mcp.CallToolResult) map[string]interface{} {
	t.Helper()
	require.NotNil(t, res)
	require.False(t, res.IsError)
	require.Len(t, res.Content, 1)
	text, ok := res.Content[0].(mcp.TextContent)
	require.True(t, ok)

	var out map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(text.Text), &out))
	return out
}

func TestServer_ListsTools(t *testing.T) {
	a, _, _ := setupTest(t)
	s := a.Server()

	resp := s.HandleMessage(context.Background(), []byte(`{"jsonrpc":"2.0","id":1,"method":"tools/list"}`))
	data, err := json.Marshal(resp)
	require.NoError(t, err)
	for _, name := range []string{"send_message", "create_thread", "get_thread", "get_stats", "get_logs"} {
		assert.Contains(t, string(data), name)
	}
	assert.NotNil(t, a.HTTPHandler())
}

func TestSendMessage(t *testing.T) {
	a, _, _ := setupTest(t)

	res, err := a.SendMessage(context.Background(), toolRequest(map[string]interface{}{"message": "ping"}))
	require.NoError(t, err)
	out := decodeResult(t, res)

	assert.Equal(t, "echo: ping", out["response"])
	assert.Equal(t, "gpt-4o", out["model_used"])
	assert.Equal(t, float64(10), out["tokens_used"])
	assert.Equal(t, aiclient.EngineNative, out["engine"])
}

func TestSendMessage_Validation(t *testing.T) {
	a, _, _ := setupTest(t)

	res, err := a.SendMessage(context.Background(), toolRequest(map[string]interface{}{}))
	require.NoError(t, err)
	assert.True(t, res.IsError)

	res, err = a.SendMessage(context.Background(), toolRequest(map[string]interface{}{"message": "x", "thread_id": 77}))
	require.NoError(t, err)
	assert.True(t, res.IsError)
}

func TestSendMessage_ProviderFailure(t *testing.T) {
	a, vendor, factory := setupTest(t)
	vendor.fail = true

	res, err := a.SendMessage(context.Background(), toolRequest(map[string]interface{}{"message": "ping"}))
	require.NoError(t, err)
	assert.True(t, res.IsError)

	stats, err := factory.Logs.Stats(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(1), stats.TotalErrors)
}

func TestThreadTools(t *testing.T) {
	a, _, _ := setupTest(t)
	ctx := context.Background()

	res, err := a.CreateThread(ctx, toolRequest(map[string]interface{}{"title": "Agent chat"}))
	require.NoError(t, err)
	created := decodeResult(t, res)
	id := created["thread_id"].(float64)

	res, err = a.SendMessage(ctx, toolRequest(map[string]interface{}{"message": "hello", "thread_id": id}))
	require.NoError(t, err)
	sent := decodeResult(t, res)
	assert.Equal(t, id, sent["thread_id"])

	res, err = a.GetThread(ctx, toolRequest(map[string]interface{}{"thread_id": id}))
	require.NoError(t, err)
	got := decodeResult(t, res)
	assert.Equal(t, "Agent chat", got["title"])
	assert.Equal(t, float64(2), got["message_count"])

	res, err = a.GetThread(ctx, toolRequest(map[string]interface{}{"thread_id": 999}))
	require.NoError(t, err)
	assert.True(t, res.IsError)

	res, err = a.CreateThread(ctx, toolRequest(map[string]interface{}{}))
	require.NoError(t, err)
	assert.True(t, res.IsError)
}

func TestSendMessage_ThreadKeepsCallerSystemMessage(t *testing.T) {
	a, vendor, _ := setupTest(t)
	ctx := context.Background()

	res, err := a.CreateThread(ctx, toolRequest(map[string]interface{}{"title": "Translator"}))
	require.NoError(t, err)
	id := decodeResult(t, res)["thread_id"].(float64)

	res, err = a.SendMessage(ctx, toolRequest(map[string]interface{}{
		"message":        "Good morning",
		"thread_id":      id,
		"system_message": "Answer in Italian.",
	}))
	require.NoError(t, err)
	decodeResult(t, res)

	require.Len(t, vendor.requests, 1)
	assert.Equal(t, []provider.Message{
		{Role: provider.RoleSystem, Content: "Answer in Italian."},
		{Role: provider.RoleUser, Content: "Good morning"},
	}, vendor.requests[0].Messages)
}

func TestStatsAndLogs(t *testing.T) {
	a, vendor, _ := setupTest(t)
	ctx := context.Background()

	for _, msg := range []string{"a", "b", "c"} {
		_, err := a.SendMessage(ctx, toolRequest(map[string]interface{}{"message": msg}))
		require.NoError(t, err)
	}
	vendor.fail = true
	_, err := a.SendMessage(ctx, toolRequest(map[string]interface{}{"message": "d"}))
	require.NoError(t, err)

	res, err := a.GetStats(ctx, toolRequest(nil))
	require.NoError(t, err)
	stats := decodeResult(t, res)
	assert.Equal(t, float64(4), stats["total_calls"])
	assert.Equal(t, float64(30), stats["total_tokens"])
	assert.Equal(t, float64(75), stats["success_rate"])
	assert.Len(t, stats["by_model"], 1)

	res, err = a.GetLogs(ctx, toolRequest(map[string]interface{}{"limit": 2}))
	require.NoError(t, err)
	logs := decodeResult(t, res)
	assert.Equal(t, float64(4), logs["total"])
	assert.Len(t, logs["logs"], 2)

	res, err = a.GetLogs(ctx, toolRequest(map[string]interface{}{"status": billing.StatusError, "limit": 9999}))
	require.NoError(t, err)
	logs = decodeResult(t, res)
	assert.Equal(t, float64(1), logs["total"])
	entry := logs["logs"].([]interface{})[0].(map[string]interface{})
	assert.Equal(t, "d", entry["message"])
}
