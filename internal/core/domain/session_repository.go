package domain

import "context"

// SessionRepository defines the data-access contract for session operations.
// Implementations live in internal/core/repository (Core layer).
// Every method is a single atomic statement.
type SessionRepository interface {
	// Create inserts a session. Returns ErrForeignKeyViolation when the
	// user does not exist.
	Create(ctx context.Context, s Session) error

	// GetWithUser looks up a session by digest joined with its user.
	// Returns (nil, nil) when the digest is unknown or the user is gone.
	GetWithUser(ctx context.Context, digest string) (*SessionRow, error)

	// UpdateExpiry raises the session expiry to expiry if it is later than
	// the stored value and returns the stored value after the update.
	// ok is false when the session no longer exists.
	UpdateExpiry(ctx context.Context, digest string, expiry int64) (stored int64, ok bool, err error)

	// Delete removes one session. Reports whether a row was removed.
	Delete(ctx context.Context, digest string) (bool, error)

	// DeleteByUserID removes every session of a user.
	DeleteByUserID(ctx context.Context, userID int64) (int64, error)

	// DeleteExpired removes sessions whose expiry is before now (ms epoch).
	DeleteExpired(ctx context.Context, now int64) (int64, error)

	// List returns every session ordered by expiry.
	List(ctx context.Context) ([]Session, error)
}
