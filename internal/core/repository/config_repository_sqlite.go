package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/duynhne/config-service/internal/core/domain"
)

// SQLiteConfigRepository implements domain.ConfigRepository on SQLite.
type SQLiteConfigRepository struct {
	db DBTX
}

// NewSQLiteConfigRepository creates a new SQLiteConfigRepository.
func NewSQLiteConfigRepository(db DBTX) *SQLiteConfigRepository {
	return &SQLiteConfigRepository{db: db}
}

// GetAll returns every pair ordered by key.
func (r *SQLiteConfigRepository) GetAll(ctx context.Context) ([]domain.ConfigPair, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT key, value FROM config ORDER BY key`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	pairs := []domain.ConfigPair{}
	for rows.Next() {
		var p domain.ConfigPair
		if err := rows.Scan(&p.Key, &p.Value); err != nil {
			return nil, err
		}
		pairs = append(pairs, p)
	}
	return pairs, rows.Err()
}

// Get returns the pair for key, or (nil, nil) when absent.
func (r *SQLiteConfigRepository) Get(ctx context.Context, key string) (*domain.ConfigPair, error) {
	p := domain.ConfigPair{Key: key}
	err := r.db.QueryRowContext(ctx, `SELECT value FROM config WHERE key = ?`, key).Scan(&p.Value)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &p, nil
}

// Set upserts the value for key.
func (r *SQLiteConfigRepository) Set(ctx context.Context, key, value string) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO config (key, value) VALUES (?, ?) ON CONFLICT (key) DO UPDATE SET value = excluded.value`,
		key, value,
	)
	return err
}

// Delete removes key. Reports whether it existed.
func (r *SQLiteConfigRepository) Delete(ctx context.Context, key string) (bool, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM config WHERE key = ?`, key)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n > 0, err
}
