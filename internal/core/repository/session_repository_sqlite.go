package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/mattn/go-sqlite3"

	"github.com/duynhne/config-service/internal/core/domain"
)

// SQLiteSessionRepository implements domain.SessionRepository on SQLite.
// Expiry timestamps are INTEGER columns, which SQLite stores as 64-bit.
type SQLiteSessionRepository struct {
	db DBTX
}

// NewSQLiteSessionRepository creates a new SQLiteSessionRepository.
func NewSQLiteSessionRepository(db DBTX) *SQLiteSessionRepository {
	return &SQLiteSessionRepository{db: db}
}

// Create inserts a session. An unknown user yields
// domain.ErrForeignKeyViolation.
func (r *SQLiteSessionRepository) Create(ctx context.Context, s domain.Session) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO sessions (id, user_id, expiry_timestamp, long_lived) VALUES (?, ?, ?, ?)`,
		s.ID, s.UserID, s.ExpiryTimestamp, s.LongLived,
	)
	if err != nil {
		if sqliteConstraint(err) == sqlite3.ErrConstraintForeignKey {
			return fmt.Errorf("insert session for user %d: %w", s.UserID, domain.ErrForeignKeyViolation)
		}
		return fmt.Errorf("insert session: %w", err)
	}
	return nil
}

// GetWithUser returns the session with the given digest joined with its
// user. Returns (nil, nil) when no session matches.
func (r *SQLiteSessionRepository) GetWithUser(ctx context.Context, digest string) (*domain.SessionRow, error) {
	query := `
		SELECT u.id, u.username, s.id, s.user_id, s.expiry_timestamp, s.long_lived
		FROM sessions s
		JOIN users u ON s.user_id = u.id
		WHERE s.id = ?
	`

	var row domain.SessionRow
	err := r.db.QueryRowContext(ctx, query, digest).Scan(
		&row.User.ID, &row.User.Username,
		&row.Session.ID, &row.Session.UserID, &row.Session.ExpiryTimestamp, &row.Session.LongLived,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &row, nil
}

// UpdateExpiry raises the stored expiry to expiry, never lowering it, and
// returns the value now stored. ok is false when the session is gone.
func (r *SQLiteSessionRepository) UpdateExpiry(ctx context.Context, digest string, expiry int64) (int64, bool, error) {
	var stored int64
	err := r.db.QueryRowContext(ctx,
		`UPDATE sessions SET expiry_timestamp = MAX(expiry_timestamp, ?) WHERE id = ? RETURNING expiry_timestamp`,
		expiry, digest,
	).Scan(&stored)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, false, nil
		}
		return 0, false, err
	}
	return stored, true, nil
}

// Delete removes one session. Reports whether it existed.
func (r *SQLiteSessionRepository) Delete(ctx context.Context, digest string) (bool, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM sessions WHERE id = ?`, digest)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n > 0, err
}

// DeleteByUserID removes every session of the user.
func (r *SQLiteSessionRepository) DeleteByUserID(ctx context.Context, userID int64) (int64, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM sessions WHERE user_id = ?`, userID)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// DeleteExpired removes sessions whose expiry is before now.
func (r *SQLiteSessionRepository) DeleteExpired(ctx context.Context, now int64) (int64, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM sessions WHERE expiry_timestamp < ?`, now)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// List returns all sessions ordered by expiry.
func (r *SQLiteSessionRepository) List(ctx context.Context) ([]domain.Session, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT id, user_id, expiry_timestamp, long_lived FROM sessions ORDER BY expiry_timestamp`)
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
