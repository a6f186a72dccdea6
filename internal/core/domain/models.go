package domain

import "time"

// User is a registered account. PasswordHash is only populated by lookups
// that need it for verification and is never serialized.
type User struct {
	ID           int64  `json:"id"`
	Username     string `json:"username"`
	PasswordHash string `json:"-"`
}

// Session is a persisted session. ID is the hex digest of the bearer token;
// the token itself is never stored.
type Session struct {
	ID              string `json:"id"`
	UserID          int64  `json:"user_id"`
	ExpiryTimestamp int64  `json:"expiry_timestamp"`
	LongLived       bool   `json:"long_lived"`
}

// ExpiresAt returns the expiry as a time.Time.
func (s Session) ExpiresAt() time.Time {
	return time.UnixMilli(s.ExpiryTimestamp)
}

// SessionRow is a session joined with its owning user.
type SessionRow struct {
	User    User
	Session Session
}

// ConfigPair is one entry of the key/value configuration store.
type ConfigPair struct {
	Key   string `json:"key" binding:"required"`
	Value string `json:"value"`
}

// Credentials is a username/password pair. It is never persisted.
type Credentials struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// TokenResponse carries a freshly issued bearer token. It is the only
// place a plaintext token ever leaves the service.
type TokenResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
	LongLived bool      `json:"long_lived"`
}

// MeResponse describes the caller behind a validated token.
type MeResponse struct {
	User      User      `json:"user"`
	ExpiresAt time.Time `json:"expires_at"`
	LongLived bool      `json:"long_lived"`
}
