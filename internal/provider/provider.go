package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

const (
	// ChatTimeout bounds a single chat completion call.
	ChatTimeout = 120 * time.Second
	// CatalogTimeout bounds a model catalog fetch.
	CatalogTimeout = 30 * time.Second
	// CatalogTTL is how long a fetched model catalog is served from cache.
	CatalogTTL = time.Hour
)

type Request struct {
	Model    string
	APIKey   string
	Messages []Message
	// Options are merged over the provider's default request body; caller
	// values win.
	Options map[string]any
}

type Message struct {
	Role    string `json:"role"` // "user", "assistant", "system"
	Content string `json:"content"`
}

type Response struct {
	Content      string
	Engine       string
	InputTokens  int
	OutputTokens int
	TotalTokens  int
}

type Model struct {
	ID          string `json:"id"`
	DisplayName string `json:"display_name,omitempty"`
	OwnedBy     string `json:"owned_by,omitempty"`
	Created     int64  `json:"created,omitempty"`
	CreatedAt   string `json:"created_at,omitempty"`
}

// ModelList is the cached form of a vendor catalog.
type ModelList []Model

// MarshalBinary implements encoding.BinaryMarshaler for the catalog cache
func (l ModelList) MarshalBinary() ([]byte, error) {
	return json.Marshal([]Model(l))
}

// UnmarshalBinary implements encoding.BinaryUnmarshaler for the catalog cache
func (l *ModelList) UnmarshalBinary(data []byte) error {
	return json.Unmarshal(data, (*[]Model)(l))
}

type Provider interface {
	Name() string
	Detect(model string) bool
	Chat(ctx context.Context, req *Request) (*Response, error)
	ListModels(ctx context.Context, apiKey string, force bool) ([]Model, error)
}

// ConfigError reports a missing or unusable API key.
type ConfigError struct {
	Message string
}

func (e *ConfigError) Error() string { return e.Message }

// TransportError wraps a failure to reach the vendor at all.
type TransportError struct {
	Provider string
	Err      error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("%s transport error: %v", e.Provider, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// ProviderError is a non-2xx response from the vendor.
type ProviderError struct {
	Message    string
	StatusCode int
}

func (e *ProviderError) Error() string { return e.Message }

func IsSuccess(statusCode int) bool {
	return statusCode >= http.StatusOK && statusCode < http.StatusMultipleChoices
}

// MergeOptions copies opts over body.
func MergeOptions(body map[string]any, opts map[string]any) map[string]any {
	for k, v := range opts {
		body[k] = v
	}
	return body
}
