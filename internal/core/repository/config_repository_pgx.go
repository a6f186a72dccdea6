package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"

	"github.com/duynhne/config-service/internal/core/domain"
)

// PgxConfigRepository implements domain.ConfigRepository using pgxpool.
type PgxConfigRepository struct {
	pool PgxQuerier
}

// NewConfigRepository creates a new PgxConfigRepository.
func NewConfigRepository(pool PgxQuerier) *PgxConfigRepository {
	return &PgxConfigRepository{pool: pool}
}

func (r *PgxConfigRepository) GetAll(ctx context.Context) ([]domain.ConfigPair, error) {
	rows, err := r.pool.Query(ctx, `SELECT key, value FROM config ORDER BY key`)
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

func (r *PgxConfigRepository) Get(ctx context.Context, key string) (*domain.ConfigPair, error) {
	p := domain.ConfigPair{Key: key}
	err := r.pool.QueryRow(ctx, `SELECT value FROM config WHERE key = $1`, key).Scan(&p.Value)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &p, nil
}

func (r *PgxConfigRepository) Set(ctx context.Context, key, value string) error {
	query := `
		INSERT INTO config (key, value) VALUES ($1, $2)
		ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value
	`
	_, err := r.pool.Exec(ctx, query, key, value)
	return err
}

func (r *PgxConfigRepository) Delete(ctx context.Context, key string) (bool, error) {
	tag, err := r.pool.Exec(ctx, `DELETE FROM config WHERE key = $1`, key)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}
