package domain

import "errors"

// Storage-level errors returned by repository implementations.
var (
	// ErrDuplicateUser is returned when a username is already taken.
	ErrDuplicateUser = errors.New("duplicate user")

	// ErrForeignKeyViolation is returned when a session references a user
	// that does not exist.
	ErrForeignKeyViolation = errors.New("foreign key violation")
)
