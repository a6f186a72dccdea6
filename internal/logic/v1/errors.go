// Package v1 holds the business logic behind API v1: the session
// authority (AuthService), the key/value ConfigService and the expiry
// Sweeper.
//
// Failures the caller can act on are reported as the sentinel errors
// below, wrapped with %w and matched with errors.Is. Storage failures are
// never mapped onto these sentinels; they propagate unchanged so the
// boundary can answer with a 5xx.
package v1

import "errors"

// Sentinel errors for session authority operations.
var (
	// ErrInvalidCredentials indicates the username is unknown or the password
	// does not match. The two cases are deliberately indistinguishable.
	// HTTP Status: 401 Unauthorized
	ErrInvalidCredentials = errors.New("invalid credentials")

	// ErrUserNotFound indicates the target user does not exist.
	// HTTP Status: 404 Not Found
	ErrUserNotFound = errors.New("user not found")

	// ErrUserExists indicates the username is already registered.
	// HTTP Status: 409 Conflict
	ErrUserExists = errors.New("user already exists")

	// ErrUnauthorized indicates the caller did not prove a valid session
	// or valid credentials.
	// HTTP Status: 401 Unauthorized
	ErrUnauthorized = errors.New("unauthorized")

	// ErrSessionNotFound indicates no session matches the token digest.
	// HTTP Status: 401 Unauthorized
	ErrSessionNotFound = errors.New("session not found")

	// ErrSessionExpired indicates the session exists but has expired.
	// HTTP Status: 401 Unauthorized
	ErrSessionExpired = errors.New("session expired")

	// ErrInvalidInput indicates a malformed request (empty username, etc).
	// HTTP Status: 400 Bad Request
	ErrInvalidInput = errors.New("invalid input")

	// ErrConfigNotFound indicates the configuration key does not exist.
	// HTTP Status: 404 Not Found
	ErrConfigNotFound = errors.New("config key not found")
)
