package billing

import (
	"context"
	"time"
)

const (
	StatusSuccess = "success"
	StatusError   = "error"

	// PreviewLength caps input_preview and output_preview, in characters.
	PreviewLength = 500
)

// UsageLog is the audit record of one dispatch attempt.
type UsageLog struct {
	ID            int64     `json:"id"`
	ThreadID      *int64    `json:"thread_id"`
	Model         string    `json:"model"`
	Engine        string    `json:"engine"`
	InputTokens   int       `json:"input_tokens"`
	OutputTokens  int       `json:"output_tokens"`
	TotalTokens   int       `json:"total_tokens"`
	ResponseTime  float64   `json:"response_time"` // seconds
	Status        string    `json:"status"`
	ErrorMessage  string    `json:"error_message"`
	InputPreview  string    `json:"input_preview"`
	OutputPreview string    `json:"output_preview"`
	// Cost is computed from the pricing table on save unless already set.
	Cost      *float64  `json:"cost"`
	CreatedAt time.Time `json:"created_at"`
}

// Filter narrows List. Zero values are ignored. DateFrom and DateTo are days;
// DateTo includes the whole day.
type Filter struct {
	Model    string
	Engine   string
	Status   string
	DateFrom time.Time
	DateTo   time.Time
}

type Page struct {
	Items []UsageLog `json:"items"`
	Total int64      `json:"total"`
}

type Stats struct {
	TotalCalls        int64   `json:"total_calls"`
	TotalInputTokens  int64   `json:"total_input_tokens"`
	TotalOutputTokens int64   `json:"total_output_tokens"`
	TotalTokens       int64   `json:"total_tokens"`
	AvgResponseTime   float64 `json:"avg_response_time"`
	TotalErrors       int64   `json:"total_errors"`
	TotalSuccess      int64   `json:"total_success"`
	TotalCost         float64 `json:"total_cost"`
}

type ModelStats struct {
	Model     string  `json:"model"`
	Engine    string  `json:"engine"`
	Calls     int64   `json:"calls"`
	Tokens    int64   `json:"tokens"`
	AvgTime   float64 `json:"avg_time"`
	TotalCost float64 `json:"total_cost"`
}

type Store interface {
	Save(ctx context.Context, log *UsageLog) (int64, error)
	List(ctx context.Context, filter Filter, limit, offset int) (*Page, error)
	Stats(ctx context.Context) (*Stats, error)
	StatsByModel(ctx context.Context) ([]ModelStats, error)
	BackfillCost(ctx context.Context) (int64, error)
}

// Truncate cuts s to at most n characters.
func Truncate(s string, n int) string {
	i := 0
	for pos := range s {
		if i == n {
			return s[:pos]
		}
		i++
	}
	return s
}

// ParseDay parses a YYYY-MM-DD filter date. An empty string yields the zero
// time.
func ParseDay(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	return time.ParseInLocation(time.DateOnly, s, time.UTC)
}
