package domain

import "context"

// UserRepository defines the data-access contract for user operations.
// Implementations live in internal/core/repository (Core layer).
// The Logic layer depends on this interface only, never on SQL directly.
type UserRepository interface {
	// Create inserts a new user and returns the generated user ID.
	// Returns ErrDuplicateUser when the username exists.
	Create(ctx context.Context, username, passwordHash string) (int64, error)

	// GetByUsername returns the user, including its password hash.
	// Returns (nil, nil) when no user is found.
	GetByUsername(ctx context.Context, username string) (*User, error)

	// GetByID returns the user without its password hash.
	// Returns (nil, nil) when no user is found.
	GetByID(ctx context.Context, id int64) (*User, error)

	// Delete removes the user row. The schema's ON DELETE CASCADE removes
	// the user's sessions with it. Reports whether a row was removed.
	Delete(ctx context.Context, id int64) (bool, error)

	// List returns all users ordered by ID, without password hashes.
	List(ctx context.Context) ([]User, error)
}
