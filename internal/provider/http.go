package provider

import (
	"context"
	"io"
	"net/http"

	"github.com/tidwall/gjson"

	"github.com/vnmchuo/ai-core/internal/cache"
)

// Do sends req and reads the whole body. Any failure before a status line is
// received is reported as a *TransportError.
func Do(client *http.Client, req *http.Request, providerName string) (int, []byte, error) {
	resp, err := client.Do(req)
	if err != nil {
		return 0, nil, &TransportError{Provider: providerName, Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, nil, &TransportError{Provider: providerName, Err: err}
	}
	return resp.StatusCode, body, nil
}

// NewProviderError builds the error for a non-2xx response, preferring the
// vendor's own error.message.
func NewProviderError(statusCode int, body []byte, fallback string) *ProviderError {
	msg := fallback
	if gjson.ValidBytes(body) {
		if m := gjson.GetBytes(body, "error.message").String(); m != "" {
			msg = m
		}
	}
	return &ProviderError{Message: msg, StatusCode: statusCode}
}

// CachedModels serves a catalog from c under key unless force is set, and
// stores freshly fetched catalogs for CatalogTTL. Cache failures degrade to a
// direct fetch.
func CachedModels(ctx context.Context, c cache.Cache, key string, force bool, fetch func(ctx context.Context) ([]Model, error)) ([]Model, error) {
	if c != nil && !force {
		var cached ModelList
		if ok, err := c.Get(ctx, key, &cached); err == nil && ok {
			return cached, nil
		}
	}

	models, err := fetch(ctx)
	if err != nil {
		return nil, err
	}

	if c != nil {
		_ = c.Set(ctx, key, ModelList(models), CatalogTTL)
	}
	return models, nil
}
