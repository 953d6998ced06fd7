package thread

import (
	"context"
	"errors"
	"time"

	"github.com/vnmchuo/ai-core/internal/provider"
)

var ErrNotFound = errors.New("thread not found")

type Thread struct {
	ID            int64              `json:"id"`
	Title         string             `json:"title"`
	Model         string             `json:"model"`
	Messages      []provider.Message `json:"messages"`
	SystemMessage string             `json:"system_msg"`
	CreatedAt     time.Time          `json:"created_at"`
	UpdatedAt     time.Time          `json:"updated_at"`
}

type Summary struct {
	ID        int64     `json:"id"`
	Title     string    `json:"title"`
	Model     string    `json:"model"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type Store interface {
	Create(ctx context.Context, title, model, systemMessage string) (int64, error)
	Get(ctx context.Context, id int64) (*Thread, error)
	List(ctx context.Context, limit, offset int) ([]Summary, error)
	UpdateMessages(ctx context.Context, id int64, messages []provider.Message) error
	Delete(ctx context.Context, id int64) (bool, error)
}
