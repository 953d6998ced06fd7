package billing

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/vnmchuo/ai-core/internal/db"
	"github.com/vnmchuo/ai-core/internal/pricing"
)

type DB interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	Rebind(query string) string
}

type SQLStore struct {
	db      DB
	pricing *pricing.Table
}

func NewSQLStore(db DB, prices *pricing.Table) Store {
	return &SQLStore{db: db, pricing: prices}
}

const logColumns = `id, thread_id, model, engine, input_tokens, output_tokens, total_tokens,
	response_time, status, error_message, input_preview, output_preview, cost, created_at`

func (s *SQLStore) Save(ctx context.Context, log *UsageLog) (int64, error) {
	if log.Cost == nil {
		cost := s.pricing.Cost(log.Model, log.InputTokens, log.OutputTokens)
		log.Cost = &cost
	} else if *log.Cost < 0 {
		zero := 0.0
		log.Cost = &zero
	}
	if log.Status == "" {
		log.Status = StatusSuccess
	}
	log.InputPreview = Truncate(log.InputPreview, PreviewLength)
	log.OutputPreview = Truncate(log.OutputPreview, PreviewLength)
	log.CreatedAt = db.Now()

	query := s.db.Rebind(`
		INSERT INTO ai_logs (thread_id, model, engine, input_tokens, output_tokens, total_tokens,
			response_time, status, error_message, input_preview, output_preview, cost, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		RETURNING id
	`)
	err := s.db.QueryRowContext(ctx, query,
		log.ThreadID, log.Model, log.Engine, log.InputTokens, log.OutputTokens, log.TotalTokens,
		log.ResponseTime, log.Status, log.ErrorMessage, log.InputPreview, log.OutputPreview,
		*log.Cost, log.CreatedAt,
	).Scan(&log.ID)
	if err != nil {
		return 0, fmt.Errorf("failed to log usage: %w", err)
	}
	return log.ID, nil
}

func (s *SQLStore) List(ctx context.Context, filter Filter, limit, offset int) (*Page, error) {
	where := []string{"1=1"}
	var args []any

	if filter.Model != "" {
		where = append(where, "model = ?")
		args = append(args, filter.Model)
	}
	if filter.Engine != "" {
		where = append(where, "engine = ?")
		args = append(args, filter.Engine)
	}
	if filter.Status != "" {
		where = append(where, "status = ?")
		args = append(args, filter.Status)
	}
	if !filter.DateFrom.IsZero() {
		where = append(where, "created_at >= ?")
		args = append(args, filter.DateFrom.UTC())
	}
	if !filter.DateTo.IsZero() {
		where = append(where, "created_at < ?")
		args = append(args, filter.DateTo.UTC().AddDate(0, 0, 1))
	}
	whereSQL := strings.Join(where, " AND ")

	var total int64
	countQuery := s.db.Rebind("SELECT COUNT(*) FROM ai_logs WHERE " + whereSQL)
	if err := s.db.QueryRowContext(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, fmt.Errorf("failed to count usage logs: %w", err)
	}

	query := s.db.Rebind("SELECT " + logColumns + " FROM ai_logs WHERE " + whereSQL +
		" ORDER BY created_at DESC, id DESC LIMIT ? OFFSET ?")
	rows, err := s.db.QueryContext(ctx, query, append(args, limit, offset)...)
	if err != nil {
		return nil, fmt.Errorf("failed to query usage logs: %w", err)
	}
	defer rows.Close()

	items := []UsageLog{}
	for rows.Next() {
		var l UsageLog
		var threadID sql.NullInt64
		var cost sql.NullFloat64
		err := rows.Scan(
			&l.ID, &threadID, &l.Model, &l.Engine, &l.InputTokens, &l.OutputTokens, &l.TotalTokens,
			&l.ResponseTime, &l.Status, &l.ErrorMessage, &l.InputPreview, &l.OutputPreview, &cost, &l.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan usage log: %w", err)
		}
		if threadID.Valid {
			id := threadID.Int64
			l.ThreadID = &id
		}
		c := cost.Float64
		l.Cost = &c
		items = append(items, l)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating usage logs: %w", err)
	}

	return &Page{Items: items, Total: total}, nil
}

func (s *SQLStore) Stats(ctx context.Context) (*Stats, error) {
	query := `
		SELECT
			COUNT(*),
			COALESCE(SUM(input_tokens), 0),
			COALESCE(SUM(output_tokens), 0),
			COALESCE(SUM(total_tokens), 0),
			COALESCE(AVG(response_time), 0),
			COALESCE(SUM(CASE WHEN status = 'error' THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN status = 'success' THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(cost), 0)
		FROM ai_logs
	`
	var st Stats
	err := s.db.QueryRowContext(ctx, query).Scan(
		&st.TotalCalls, &st.TotalInputTokens, &st.TotalOutputTokens, &st.TotalTokens,
		&st.AvgResponseTime, &st.TotalErrors, &st.TotalSuccess, &st.TotalCost,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to get usage stats: %w", err)
	}
	return &st, nil
}

func (s *SQLStore) StatsByModel(ctx context.Context) ([]ModelStats, error) {
	query := `
		SELECT
			model,
			engine,
			COUNT(*) AS calls,
			COALESCE(SUM(total_tokens), 0),
			COALESCE(AVG(response_time), 0),
			COALESCE(SUM(cost), 0)
		FROM ai_logs
		GROUP BY model, engine
		ORDER BY calls DESC, model ASC
	`
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query model stats: %w", err)
	}
	defer rows.Close()

	out := []ModelStats{}
	for rows.Next() {
		var m ModelStats
		if err := rows.Scan(&m.Model, &m.Engine, &m.Calls, &m.Tokens, &m.AvgTime, &m.TotalCost); err != nil {
			return nil, fmt.Errorf("failed to scan model stats: %w", err)
		}
		out = append(out, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating model stats: %w", err)
	}
	return out, nil
}

// BackfillCost fills in cost for rows written before the column existed.
// Rows that already carry a cost are not touched.
func (s *SQLStore) BackfillCost(ctx context.Context) (int64, error) {
	type pending struct {
		id            int64
		model         string
		input, output int
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, model, input_tokens, output_tokens FROM ai_logs WHERE cost IS NULL`)
	if err != nil {
		return 0, fmt.Errorf("failed to query logs without cost: %w", err)
	}
	var todo []pending
	for rows.Next() {
		var p pending
		if err := rows.Scan(&p.id, &p.model, &p.input, &p.output); err != nil {
			rows.Close()
			return 0, fmt.Errorf("failed to scan log without cost: %w", err)
		}
		todo = append(todo, p)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return 0, fmt.Errorf("error iterating logs without cost: %w", err)
	}

	update := s.db.Rebind(`UPDATE ai_logs SET cost = ? WHERE id = ? AND cost IS NULL`)
	var updated int64
	for _, p := range todo {
		cost := s.pricing.Cost(p.model, p.input, p.output)
		res, err := s.db.ExecContext(ctx, update, cost, p.id)
		if err != nil {
			return updated, fmt.Errorf("failed to backfill cost for log %d: %w", p.id, err)
		}
		if n, err := res.RowsAffected(); err == nil {
			updated += n
		}
	}
	return updated, nil
}
