package openai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sort"
	"strings"

	"github.com/tidwall/gjson"

	"github.com/vnmchuo/ai-core/internal/cache"
	"github.com/vnmchuo/ai-core/internal/provider"
)

const (
	Name            = "openai"
	modelsCacheKey  = "ai_openai_models"
	fallbackMessage = "OpenAI API error"
)

var chatPrefixes = []string{"gpt-", "o1-", "o3-", "o4-"}

type OpenAIProvider struct {
	baseURL       string
	httpClient    *http.Client
	catalogClient *http.Client
	cache         cache.Cache
}

type openAIMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// New returns the GPT-style adapter. c may be nil, in which case model
// catalogs are fetched on every call.
func New(c cache.Cache) *OpenAIProvider {
	return &OpenAIProvider{
		baseURL:       "https://api.openai.com/v1",
		httpClient:    &http.Client{Timeout: provider.ChatTimeout},
		catalogClient: &http.Client{Timeout: provider.CatalogTimeout},
		cache:         c,
	}
}

func (p *OpenAIProvider) Name() string {
	return Name
}

// Detect reports whether model is a chat model served by this adapter.
func Detect(model string) bool {
	for _, prefix := range chatPrefixes {
		if strings.HasPrefix(model, prefix) {
			return true
		}
	}
	return false
}

func (p *OpenAIProvider) Detect(model string) bool {
	return Detect(model)
}

func (p *OpenAIProvider) Chat(ctx context.Context, req *provider.Request) (*provider.Response, error) {
	if req.APIKey == "" {
		return nil, &provider.ConfigError{Message: "OpenAI API key is not configured"}
	}

	body, err := json.Marshal(p.mapRequest(req))
	if err != nil {
		return nil, err
	}

	url := fmt.Sprintf("%s/chat/completions", p.baseURL)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", fmt.Sprintf("Bearer %s", req.APIKey))

	status, respBody, err := provider.Do(p.httpClient, httpReq, Name)
	if err != nil {
		return nil, err
	}
	if !provider.IsSuccess(status) {
		return nil, provider.NewProviderError(status, respBody, fallbackMessage)
	}

	res := gjson.ParseBytes(respBody)
	usage := res.Get("usage")
	input := int(usage.Get("prompt_tokens").Int())
	output := int(usage.Get("completion_tokens").Int())
	total := input + output
	if t := usage.Get("total_tokens"); t.Exists() {
		total = int(t.Int())
	}

	return &provider.Response{
		Content:      res.Get("choices.0.message.content").String(),
		Engine:       Name,
		InputTokens:  input,
		OutputTokens: output,
		TotalTokens:  total,
	}, nil
}

func (p *OpenAIProvider) mapRequest(req *provider.Request) map[string]any {
	messages := make([]openAIMessage, len(req.Messages))
	for i, m := range req.Messages {
		messages[i] = openAIMessage{
			Role:    m.Role,
			Content: m.Content,
		}
	}

	body := map[string]any{
		"model":    req.Model,
		"messages": messages,
	}
	return provider.MergeOptions(body, req.Options)
}

// ListModels returns the chat-capable models visible to apiKey, sorted by id.
func (p *OpenAIProvider) ListModels(ctx context.Context, apiKey string, force bool) ([]provider.Model, error) {
	if apiKey == "" {
		return nil, &provider.ConfigError{Message: "OpenAI API key is not configured"}
	}
	return provider.CachedModels(ctx, p.cache, modelsCacheKey, force, func(ctx context.Context) ([]provider.Model, error) {
		return p.fetchModels(ctx, apiKey)
	})
}

func (p *OpenAIProvider) fetchModels(ctx context.Context, apiKey string) ([]provider.Model, error) {
	url := fmt.Sprintf("%s/models", p.baseURL)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Authorization", fmt.Sprintf("Bearer %s", apiKey))

	status, body, err := provider.Do(p.catalogClient, httpReq, Name)
	if err != nil {
		return nil, err
	}
	if !provider.IsSuccess(status) {
		return nil, provider.NewProviderError(status, body, fallbackMessage)
	}

	models := []provider.Model{}
	gjson.GetBytes(body, "data").ForEach(func(_, m gjson.Result) bool {
		id := m.Get("id").String()
		if Detect(id) {
			models = append(models, provider.Model{
				ID:      id,
				OwnedBy: m.Get("owned_by").String(),
				Created: m.Get("created").Int(),
			})
		}
		return true
	})

	sort.Slice(models, func(i, j int) bool { return models[i].ID < models[j].ID })
	return models, nil
}
