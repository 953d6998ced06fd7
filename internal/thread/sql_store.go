package thread

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/vnmchuo/ai-core/internal/db"
	"github.com/vnmchuo/ai-core/internal/provider"
)

type DB interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	Rebind(query string) string
}

type SQLStore struct {
	db DB
}

func NewSQLStore(db DB) Store {
	return &SQLStore{db: db}
}

func (s *SQLStore) Create(ctx context.Context, title, model, systemMessage string) (int64, error) {
	now := db.Now()
	query := s.db.Rebind(`
		INSERT INTO ai_threads (title, model, messages, system_msg, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
		RETURNING id
	`)

	var id int64
	err := s.db.QueryRowContext(ctx, query, title, model, "[]", systemMessage, now, now).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("failed to create thread: %w", err)
	}
	return id, nil
}

func (s *SQLStore) Get(ctx context.Context, id int64) (*Thread, error) {
	query := s.db.Rebind(`
		SELECT id, title, model, messages, system_msg, created_at, updated_at
		FROM ai_threads
		WHERE id = ?
	`)

	var t Thread
	var raw string
	err := s.db.QueryRowContext(ctx, query, id).Scan(
		&t.ID, &t.Title, &t.Model, &raw, &t.SystemMessage, &t.CreatedAt, &t.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get thread: %w", err)
	}

	// A corrupt message column reads as an empty history.
	if err := json.Unmarshal([]byte(raw), &t.Messages); err != nil || t.Messages == nil {
		t.Messages = []provider.Message{}
	}
	return &t, nil
}

func (s *SQLStore) List(ctx context.Context, limit, offset int) ([]Summary, error) {
	query := s.db.Rebind(`
		SELECT id, title, model, created_at, updated_at
		FROM ai_threads
		ORDER BY updated_at DESC, id DESC
		LIMIT ? OFFSET ?
	`)
	rows, err := s.db.QueryContext(ctx, query, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to query threads: %w", err)
	}
	defer rows.Close()

	threads := []Summary{}
	for rows.Next() {
		var t Summary
		if err := rows.Scan(&t.ID, &t.Title, &t.Model, &t.CreatedAt, &t.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan thread: %w", err)
		}
		threads = append(threads, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating threads: %w", err)
	}
	return threads, nil
}

func (s *SQLStore) UpdateMessages(ctx context.Context, id int64, messages []provider.Message) error {
	if messages == nil {
		messages = []provider.Message{}
	}
	raw, err := json.Marshal(messages)
	if err != nil {
		return fmt.Errorf("failed to encode messages: %w", err)
	}

	query := s.db.Rebind(`UPDATE ai_threads SET messages = ?, updated_at = ? WHERE id = ?`)
	res, err := s.db.ExecContext(ctx, query, string(raw), db.Now(), id)
	if err != nil {
		return fmt.Errorf("failed to update thread: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *SQLStore) Delete(ctx context.Context, id int64) (bool, error) {
	res, err := s.db.ExecContext(ctx, s.db.Rebind(`DELETE FROM ai_threads WHERE id = ?`), id)
	if err != nil {
		return false, fmt.Errorf("failed to delete thread: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to delete thread: %w", err)
	}
	return n > 0, nil
}
