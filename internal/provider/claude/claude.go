package claude

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
	Name             = "anthropic"
	apiVersion       = "2023-06-01"
	defaultMaxTokens = 4096
	modelsCacheKey   = "ai_anthropic_models"
	fallbackMessage  = "Anthropic API error"
)

type ClaudeProvider struct {
	baseURL       string
	httpClient    *http.Client
	catalogClient *http.Client
	cache         cache.Cache
}

type claudeMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

func New(c cache.Cache) *ClaudeProvider {
	return &ClaudeProvider{
		baseURL:       "https://api.anthropic.com/v1",
		httpClient:    &http.Client{Timeout: provider.ChatTimeout},
		catalogClient: &http.Client{Timeout: provider.CatalogTimeout},
		cache:         c,
	}
}

func (p *ClaudeProvider) Name() string {
	return Name
}

func Detect(model string) bool {
	return strings.HasPrefix(model, "claude-")
}

func (p *ClaudeProvider) Detect(model string) bool {
	return Detect(model)
}

func (p *ClaudeProvider) Chat(ctx context.Context, req *provider.Request) (*provider.Response, error) {
	if req.APIKey == "" {
		return nil, &provider.ConfigError{Message: "Anthropic API key is not configured"}
	}

	body, err := json.Marshal(p.mapRequest(req))
	if err != nil {
		return nil, err
	}

	url := fmt.Sprintf("%s/messages", p.baseURL)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	p.setHeaders(httpReq, req.APIKey)
	httpReq.Header.Set("Content-Type", "application/json")

	status, respBody, err := provider.Do(p.httpClient, httpReq, Name)
	if err != nil {
		return nil, err
	}
	if !provider.IsSuccess(status) {
		return nil, provider.NewProviderError(status, respBody, fallbackMessage)
	}

	res := gjson.ParseBytes(respBody)
	input := int(res.Get("usage.input_tokens").Int())
	output := int(res.Get("usage.output_tokens").Int())

	return &provider.Response{
		Content:      res.Get("content.0.text").String(),
		Engine:       Name,
		InputTokens:  input,
		OutputTokens: output,
		TotalTokens:  input + output,
	}, nil
}

// mapRequest lifts every system message into the top-level system field,
// newline-joined in order, since the Messages API has no system turn.
func (p *ClaudeProvider) mapRequest(req *provider.Request) map[string]any {
	var system []string
	messages := []claudeMessage{}

	for _, m := range req.Messages {
		if m.Role == provider.RoleSystem {
			system = append(system, m.Content)
			continue
		}
		messages = append(messages, claudeMessage{
			Role:    m.Role,
			Content: m.Content,
		})
	}

	body := map[string]any{
		"model":      req.Model,
		"max_tokens": defaultMaxTokens,
		"messages":   messages,
	}
	if s := strings.Join(system, "\n"); s != "" {
		body["system"] = s
	}
	return provider.MergeOptions(body, req.Options)
}

func (p *ClaudeProvider) setHeaders(req *http.Request, apiKey string) {
	req.Header.Set("x-api-key", apiKey)
	req.Header.Set("anthropic-version", apiVersion)
}

// ListModels returns every model visible to apiKey, sorted by id.
func (p *ClaudeProvider) ListModels(ctx context.Context, apiKey string, force bool) ([]provider.Model, error) {
	if apiKey == "" {
		return nil, &provider.ConfigError{Message: "Anthropic API key is not configured"}
	}
	return provider.CachedModels(ctx, p.cache, modelsCacheKey, force, func(ctx context.Context) ([]provider.Model, error) {
		return p.fetchModels(ctx, apiKey)
	})
}

func (p *ClaudeProvider) fetchModels(ctx context.Context, apiKey string) ([]provider.Model, error) {
	url := fmt.Sprintf("%s/models?limit=1000", p.baseURL)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	p.setHeaders(httpReq, apiKey)

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
		name := m.Get("display_name").String()
		if name == "" {
			name = id
		}
		models = append(models, provider.Model{
			ID:          id,
			DisplayName: name,
			CreatedAt:   m.Get("created_at").String(),
		})
		return true
	})

	sort.Slice(models, func(i, j int) bool { return models[i].ID < models[j].ID })
	return models, nil
}
