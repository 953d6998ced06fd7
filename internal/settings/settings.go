package settings

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/vnmchuo/ai-core/config"
)

const (
	KeyOpenAI       = "openai_key"
	KeyAnthropic    = "anthropic_key"
	KeyDefaultModel = "default_model"

	FallbackModel = "gpt-4o"
)

type DB interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	Rebind(query string) string
}

type Store interface {
	// Get returns def when the key has never been saved.
	Get(ctx context.Context, key, def string) (string, error)
	Set(ctx context.Context, key, value string) error
}

type SQLStore struct {
	db DB
}

func NewSQLStore(db DB) Store {
	return &SQLStore{db: db}
}

func (s *SQLStore) Get(ctx context.Context, key, def string) (string, error) {
	var value string
	err := s.db.QueryRowContext(ctx, s.db.Rebind(`SELECT value FROM ai_settings WHERE name = ?`), key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return def, nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to get setting %s: %w", key, err)
	}
	return value, nil
}

func (s *SQLStore) Set(ctx context.Context, key, value string) error {
	query := s.db.Rebind(`
		INSERT INTO ai_settings (name, value) VALUES (?, ?)
		ON CONFLICT (name) DO UPDATE SET value = excluded.value
	`)
	if _, err := s.db.ExecContext(ctx, query, key, value); err != nil {
		return fmt.Errorf("failed to save setting %s: %w", key, err)
	}
	return nil
}

// Values is the effective configuration seen by the REST surface.
type Values struct {
	OpenAIKey    string `json:"openai_key"`
	AnthropicKey string `json:"anthropic_key"`
	DefaultModel string `json:"default_model"`
}

// Update is a partial settings change; nil fields are left alone.
type Update struct {
	OpenAIKey    *string `json:"openai_key"`
	AnthropicKey *string `json:"anthropic_key"`
	DefaultModel *string `json:"default_model"`
}

// Service layers stored values over the environment defaults.
type Service struct {
	store    Store
	defaults Values
}

func NewService(store Store, cfg *config.Config) *Service {
	defaults := Values{
		OpenAIKey:    cfg.OpenAIAPIKey,
		AnthropicKey: cfg.AnthropicAPIKey,
		DefaultModel: cfg.DefaultModel,
	}
	if defaults.DefaultModel == "" {
		defaults.DefaultModel = FallbackModel
	}
	return &Service{store: store, defaults: defaults}
}

func (s *Service) Values(ctx context.Context) (Values, error) {
	var v Values
	var err error
	if v.OpenAIKey, err = s.store.Get(ctx, KeyOpenAI, s.defaults.OpenAIKey); err != nil {
		return Values{}, err
	}
	if v.AnthropicKey, err = s.store.Get(ctx, KeyAnthropic, s.defaults.AnthropicKey); err != nil {
		return Values{}, err
	}
	if v.DefaultModel, err = s.store.Get(ctx, KeyDefaultModel, s.defaults.DefaultModel); err != nil {
		return Values{}, err
	}
	if v.DefaultModel == "" {
		v.DefaultModel = s.defaults.DefaultModel
	}
	return v, nil
}

// APIKeys maps provider names to the configured keys.
func (s *Service) APIKeys(ctx context.Context) (map[string]string, error) {
	v, err := s.Values(ctx)
	if err != nil {
		return nil, err
	}
	return map[string]string{"openai": v.OpenAIKey, "anthropic": v.AnthropicKey}, nil
}

func (s *Service) Save(ctx context.Context, u Update) error {
	fields := []struct {
		key   string
		value *string
	}{
		{KeyOpenAI, u.OpenAIKey},
		{KeyAnthropic, u.AnthropicKey},
		{KeyDefaultModel, u.DefaultModel},
	}
	for _, f := range fields {
		if f.value == nil {
			continue
		}
		if err := s.store.Set(ctx, f.key, strings.TrimSpace(*f.value)); err != nil {
			return err
		}
	}
	return nil
}
