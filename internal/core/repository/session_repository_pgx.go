package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/duynhne/config-service/internal/core/domain"
)

// PgxSessionRepository implements domain.SessionRepository using pgxpool.
type PgxSessionRepository struct {
	pool PgxQuerier
}

// NewSessionRepository creates a new PgxSessionRepository.
func NewSessionRepository(pool PgxQuerier) *PgxSessionRepository {
	return &PgxSessionRepository{pool: pool}
}

// Create inserts a new session for the given user.
func (r *PgxSessionRepository) Create(ctx context.Context, s domain.Session) error {
	query := `INSERT INTO sessions (id, user_id, expiry_timestamp, long_lived) VALUES ($1, $2, $3, $4)`
	_, err := r.pool.Exec(ctx, query, s.ID, s.UserID, s.ExpiryTimestamp, s.LongLived)
	if err != nil {
		if pgErrorCode(err) == pgForeignKeyViolation {
			return fmt.Errorf("insert session for user %d: %w", s.UserID, domain.ErrForeignKeyViolation)
		}
		return fmt.Errorf("insert session: %w", err)
	}
	return nil
}

// GetWithUser looks up the session by digest and returns it together with
// the owning user. Returns (nil, nil) when the digest does not match.
func (r *PgxSessionRepository) GetWithUser(ctx context.Context, digest string) (*domain.SessionRow, error) {
	query := `
		SELECT u.id, u.username, s.id, s.user_id, s.expiry_timestamp, s.long_lived
		FROM sessions s
		JOIN users u ON s.user_id = u.id
		WHERE s.id = $1
	`

	var row domain.SessionRow
	err := r.pool.QueryRow(ctx, query, digest).Scan(
		&row.User.ID, &row.User.Username,
		&row.Session.ID, &row.Session.UserID, &row.Session.ExpiryTimestamp, &row.Session.LongLived,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}

	return &row, nil
}

// UpdateExpiry raises expiry_timestamp; it never lowers it.
func (r *PgxSessionRepository) UpdateExpiry(ctx context.Context, digest string, expiry int64) (int64, bool, error) {
	query := `
		UPDATE sessions SET expiry_timestamp = GREATEST(expiry_timestamp, $2)
		WHERE id = $1
		RETURNING expiry_timestamp
	`

	var stored int64
	err := r.pool.QueryRow(ctx, query, digest, expiry).Scan(&stored)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, false, nil
		}
		return 0, false, err
	}
	return stored, true, nil
}

// Delete removes one session.
func (r *PgxSessionRepository) Delete(ctx context.Context, digest string) (bool, error) {
	tag, err := r.pool.Exec(ctx, `DELETE FROM sessions WHERE id = $1`, digest)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

// DeleteByUserID removes all sessions of a user.
func (r *PgxSessionRepository) DeleteByUserID(ctx context.Context, userID int64) (int64, error) {
	tag, err := r.pool.Exec(ctx, `DELETE FROM sessions WHERE user_id = $1`, userID)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

// DeleteExpired removes sessions that expired before now.
func (r *PgxSessionRepository) DeleteExpired(ctx context.Context, now int64) (int64, error) {
	tag, err := r.pool.Exec(ctx, `DELETE FROM sessions WHERE expiry_timestamp < $1`, now)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

// List returns every session.
func (r *PgxSessionRepository) List(ctx context.Context) ([]domain.Session, error) {
	rows, err := r.pool.Query(ctx, `SELECT id, user_id, expiry_timestamp, long_lived FROM sessions ORDER BY expiry_timestamp`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	sessions := []domain.Session{}
	for rows.Next() {
		var s domain.Session
		if err := rows.Scan(&s.ID, &s.UserID, &s.ExpiryTimestamp, &s.LongLived); err != nil {
			return nil, err
		}
		sessions = append(sessions, s)
	}
	return sessions, rows.Err()
}
