// Package hosted talks to an AI client supplied by the host platform. The host
// exposes an OpenAI-compatible chat endpoint and picks the concrete vendor and
// model itself, so the model name sent is only a preference.
package hosted

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sort"
	"unicode/utf8"

	"github.com/tidwall/gjson"

	"github.com/vnmchuo/ai-core/internal/cache"
	"github.com/vnmchuo/ai-core/internal/provider"
)

const (
	Name            = "host"
	modelsCacheKey  = "ai_host_models"
	fallbackMessage = "Host AI client error"
)

type HostedProvider struct {
	baseURL       string
	apiKey        string
	httpClient    *http.Client
	catalogClient *http.Client
	cache         cache.Cache
}

func New(baseURL, apiKey string, c cache.Cache) *HostedProvider {
	return &HostedProvider{
		baseURL:       baseURL,
		apiKey:        apiKey,
		httpClient:    &http.Client{Timeout: provider.ChatTimeout},
		catalogClient: &http.Client{Timeout: provider.CatalogTimeout},
		cache:         c,
	}
}

func (p *HostedProvider) Name() string {
	return Name
}

// Detect accepts every model; the host decides what actually serves it.
func (p *HostedProvider) Detect(string) bool {
	return true
}

func (p *HostedProvider) Chat(ctx context.Context, req *provider.Request) (*provider.Response, error) {
	body := map[string]any{
		"messages": req.Messages,
	}
	if req.Model != "" {
		body["model"] = req.Model
	}
	data, err := json.Marshal(provider.MergeOptions(body, req.Options))
	if err != nil {
		return nil, err
	}

	url := fmt.Sprintf("%s/chat/completions", p.baseURL)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if key := p.key(req.APIKey); key != "" {
		httpReq.Header.Set("Authorization", fmt.Sprintf("Bearer %s", key))
	}

	status, respBody, err := provider.Do(p.httpClient, httpReq, Name)
	if err != nil {
		return nil, err
	}
	if !provider.IsSuccess(status) {
		return nil, provider.NewProviderError(status, respBody, fallbackMessage)
	}

	res := gjson.ParseBytes(respBody)
	content := res.Get("choices.0.message.content").String()

	usage := res.Get("usage")
	if !usage.Exists() {
		// Only the message being sent counts; system and history turns do not.
		input := 0
		if n := len(req.Messages); n > 0 {
			input = EstimateTokens(req.Messages[n-1].Content)
		}
		output := EstimateTokens(content)
		return &provider.Response{
			Content:      content,
			Engine:       Name,
			InputTokens:  input,
			OutputTokens: output,
			TotalTokens:  input + output,
		}, nil
	}

	input := int(usage.Get("prompt_tokens").Int())
	output := int(usage.Get("completion_tokens").Int())
	total := input + output
	if t := usage.Get("total_tokens"); t.Exists() {
		total = int(t.Int())
	}
	return &provider.Response{
		Content:      content,
		Engine:       Name,
		InputTokens:  input,
		OutputTokens: output,
		TotalTokens:  total,
	}, nil
}

func (p *HostedProvider) ListModels(ctx context.Context, apiKey string, force bool) ([]provider.Model, error) {
	return provider.CachedModels(ctx, p.cache, modelsCacheKey, force, func(ctx context.Context) ([]provider.Model, error) {
		url := fmt.Sprintf("%s/models", p.baseURL)
		httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return nil, err
		}
		if key := p.key(apiKey); key != "" {
			httpReq.Header.Set("Authorization", fmt.Sprintf("Bearer %s", key))
		}

		status, body, err := provider.Do(p.catalogClient, httpReq, Name)
		if err != nil {
			return nil, err
		}
		if !provider.IsSuccess(status) {
			return nil, provider.NewProviderError(status, body, fallbackMessage)
		}

		models := []provider.Model{}
		gjson.GetBytes(body, "data").ForEach(func(_, m gjson.Result) bool {
			models = append(models, provider.Model{
				ID:      m.Get("id").String(),
				OwnedBy: m.Get("owned_by").String(),
				Created: m.Get("created").Int(),
			})
			return true
		})
		sort.Slice(models, func(i, j int) bool { return models[i].ID < models[j].ID })
		return models, nil
	})
}

func (p *HostedProvider) key(override string) string {
	if override != "" {
		return override
	}
	return p.apiKey
}

// EstimateTokens approximates a token count at four characters per token.
func EstimateTokens(s string) int {
	return utf8.RuneCountInString(s) / 4
}
