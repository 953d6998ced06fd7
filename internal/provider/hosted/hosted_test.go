package hosted

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vnmchuo/ai-core/internal/cache"
	"github.com/vnmchuo/ai-core/internal/provider"
)

func TestChat_EstimatesWithoutUsage(t *testing.T) {
	var captured map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer host-key", r.Header.Get("Authorization"))
		body, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(body, &captured)
		_, _ = w.Write([]byte(`{"choices":[{"message":{"content":"` + strings.Repeat("b", 40) + `"}}]}`))
	}))
	defer server.Close()

	p := New(server.URL, "host-key", nil)
	resp, err := p.Chat(context.Background(), &provider.Request{
		Model:    "gpt-4o",
		Messages: []provider.Message{{Role: provider.RoleUser, Content: strings.Repeat("a", 20)}},
	})
	require.NoError(t, err)

	assert.Equal(t, "host", resp.Engine)
	assert.Equal(t, 5, resp.InputTokens)
	assert.Equal(t, 10, resp.OutputTokens)
	assert.Equal(t, 15, resp.TotalTokens)
	assert.Equal(t, "gpt-4o", captured["model"])
}

func TestChat_UsesReportedUsage(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"choices":[{"message":{"content":"ok"}}],"usage":{"prompt_tokens":7,"completion_tokens":2}}`))
	}))
	defer server.Close()

	resp, err := New(server.URL, "", nil).Chat(context.Background(), &provider.Request{
		Messages: []provider.Message{{Role: provider.RoleUser, Content: "hi"}},
	})
	require.NoError(t, err)
	assert.Equal(t, 7, resp.InputTokens)
	assert.Equal(t, 2, resp.OutputTokens)
	assert.Equal(t, 9, resp.TotalTokens)
}

func TestChat_Error(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	_, err := New(server.URL, "", nil).Chat(context.Background(), &provider.Request{
		Messages: []provider.Message{{Role: provider.RoleUser, Content: "hi"}},
	})

	var perr *provider.ProviderError
	require.True(t, errors.As(err, &perr))
	assert.Equal(t, "Host AI client error", perr.Message)
}

func TestListModels(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"data":[{"id":"b"},{"id":"a"}]}`))
	}))
	defer server.Close()

	models, err := New(server.URL, "", cache.NewMemoryCache()).ListModels(context.Background(), "", false)
	require.NoError(t, err)
	require.Len(t, models, 2)
	assert.Equal(t, "a", models[0].ID)
}

func TestChat_EstimateCountsSentMessageOnly(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"choices":[{"message":{"content":"okok"}}]}`))
	}))
	defer server.Close()

	p := New(server.URL, "", nil)
	resp, err := p.Chat(context.Background(), &provider.Request{
		Model: "gpt-4o",
		Messages: []provider.Message{
			{Role: provider.RoleSystem, Content: strings.Repeat("s", 400)},
			{Role: provider.RoleUser, Content: strings.Repeat("h", 400)},
			{Role: provider.RoleAssistant, Content: strings.Repeat("r", 400)},
			{Role: provider.RoleUser, Content: strings.Repeat("q", 8)},
		},
	})
	require.NoError(t, err)

	assert.Equal(t, 2, resp.InputTokens)
	assert.Equal(t, 1, resp.OutputTokens)
	assert.Equal(t, 3, resp.TotalTokens)
}

func TestEstimateTokens(t *testing.T) {
	assert.Equal(t, 0, EstimateTokens("abc"))
	assert.Equal(t, 2, EstimateTokens("àèìòùàèì"))
}
