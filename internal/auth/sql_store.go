package auth

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/vnmchuo/ai-core/internal/db"
)

type DB interface {
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

func (s *SQLStore) GetByKey(ctx context.Context, key string) (*AdminKey, error) {
	query := s.db.Rebind(`
		SELECT id, label, key_hash, active, created_at
		FROM admin_keys
		WHERE key_hash = ? AND active = ?
	`)

	var k AdminKey
	err := s.db.QueryRowContext(ctx, query, HashKey(key), true).Scan(
		&k.ID, &k.Label, &k.KeyHash, &k.Active, &k.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrKeyNotFound
		}
		return nil, fmt.Errorf("failed to get admin key: %w", err)
	}
	return &k, nil
}

func (s *SQLStore) Create(ctx context.Context, key *AdminKey) error {
	if key.KeyHash == "" {
		return fmt.Errorf("key_hash is required")
	}
	key.CreatedAt = db.Now()

	query := s.db.Rebind(`
		INSERT INTO admin_keys (label, key_hash, active, created_at)
		VALUES (?, ?, ?, ?)
		RETURNING id
	`)
	err := s.db.QueryRowContext(ctx, query, key.Label, key.KeyHash, key.Active, key.CreatedAt).Scan(&key.ID)
	if err != nil {
		return fmt.Errorf("failed to create admin key: %w", err)
	}
	return nil
}

func (s *SQLStore) Revoke(ctx context.Context, id int64) error {
	query := s.db.Rebind(`UPDATE admin_keys SET active = ? WHERE id = ?`)
	res, err := s.db.ExecContext(ctx, query, false, id)
	if err != nil {
		return fmt.Errorf("failed to revoke admin key: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrKeyNotFound
	}
	return nil
}
