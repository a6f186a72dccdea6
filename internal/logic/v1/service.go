package v1

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/duynhne/config-service/internal/core/domain"
	"github.com/duynhne/config-service/internal/logger"
	"github.com/duynhne/config-service/internal/security/password"
	"github.com/duynhne/config-service/internal/security/token"
	"github.com/duynhne/config-service/middleware"
)

// PasswordStore hashes and verifies passwords.
type PasswordStore interface {
	Hash(ctx context.Context, password string) (string, error)
	Verify(ctx context.Context, password, hash string) (bool, error)
	// Burn spends the cost of one verification without a stored hash.
	Burn(ctx context.Context, password string)
}

// TokenIssuer generates opaque tokens together with their digest.
type TokenIssuer interface {
	Issue() (plain string, digest string, err error)
}

// Options tunes session issuance and renewal.
type Options struct {
	// BaseLifetime is the short-lived window L.
	BaseLifetime time.Duration
	// LongLivedMultiplier scales L for long-lived tokens.
	LongLivedMultiplier int
	// SweepOnIssue removes expired sessions before each issuance.
	SweepOnIssue bool
	// Now defaults to time.Now.
	Now func() time.Time
}

// AuthService is the session authority: it verifies credentials, issues
// and validates bearer tokens, and couples user and session lifecycles.
// It depends on repository interfaces (injected via constructor) and
// MUST NOT access the database or SQL directly.
type AuthService struct {
	users     domain.UserRepository
	sessions  domain.SessionRepository
	passwords PasswordStore
	tokens    TokenIssuer
	opts      Options
}

// NewAuthService creates a new AuthService with the given dependencies.
func NewAuthService(
	users domain.UserRepository,
	sessions domain.SessionRepository,
	passwords PasswordStore,
	tokens TokenIssuer,
	opts Options,
) *AuthService {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.LongLivedMultiplier < 1 {
		opts.LongLivedMultiplier = 1
	}
	return &AuthService{
		users:     users,
		sessions:  sessions,
		passwords: passwords,
		tokens:    tokens,
		opts:      opts,
	}
}

func (s *AuthService) nowMillis() int64 {
	return s.opts.Now().UnixMilli()
}

func (s *AuthService) baseLifetimeMillis() int64 {
	return s.opts.BaseLifetime.Milliseconds()
}

// lifetimeMillis is the lifetime granted at issuance.
func (s *AuthService) lifetimeMillis(longLived bool) int64 {
	if longLived {
		return s.baseLifetimeMillis() * int64(s.opts.LongLivedMultiplier)
	}
	return s.baseLifetimeMillis()
}

// needsRenewal reports whether less than half of the base window remains.
// The threshold ignores LongLived.
func (s *AuthService) needsRenewal(now int64, sess domain.Session) bool {
	return sess.ExpiryTimestamp-now < s.baseLifetimeMillis()/2
}

// renewalExpiry is the expiry granted by a sliding renewal. Long-lived
// sessions renew to the short window as well; changing that is a product
// decision, not a bug fix.
func (s *AuthService) renewalExpiry(now int64, _ domain.Session) int64 {
	return now + s.baseLifetimeMillis()
}

// normalizeUsername is the single canonical form for usernames. Every
// path that stores or looks up a username goes through it.
func normalizeUsername(username string) string {
	return strings.TrimSpace(username)
}

// Register creates a user with a freshly hashed password.
func (s *AuthService) Register(ctx context.Context, creds domain.Credentials) (*domain.User, error) {
	username := normalizeUsername(creds.Username)
	ctx, span := middleware.StartSpan(ctx, "auth.register", trace.WithAttributes(
		attribute.String("layer", "logic"),
		attribute.String("username", username),
	))
	defer span.End()

	if username == "" || creds.Password == "" {
		return nil, fmt.Errorf("register user: username and password required: %w", ErrInvalidInput)
	}

	hash, err := s.passwords.Hash(ctx, creds.Password)
	if err != nil {
		if errors.Is(err, password.ErrTooLong) {
			return nil, fmt.Errorf("register user: %w: %w", ErrInvalidInput, err)
		}
		span.RecordError(err)
		return nil, fmt.Errorf("hash password: %w", err)
	}

	userID, err := s.users.Create(ctx, username, hash)
	if err != nil {
		if errors.Is(err, domain.ErrDuplicateUser) {
			span.SetAttributes(attribute.Bool("registration.success", false))
			return nil, fmt.Errorf("register user %q: %w", username, ErrUserExists)
		}
		span.RecordError(err)
		return nil, fmt.Errorf("insert user: %w", err)
	}

	span.SetAttributes(
		attribute.Int64("user.id", userID),
		attribute.Bool("registration.success", true),
	)
	span.AddEvent("user.registered")

	return &domain.User{ID: userID, Username: username}, nil
}

// verifyCredentials returns the user behind valid credentials, or
// ErrInvalidCredentials without revealing which part was wrong.
func (s *AuthService) verifyCredentials(ctx context.Context, creds domain.Credentials) (*domain.User, error) {
	username := normalizeUsername(creds.Username)
	user, err := s.users.GetByUsername(ctx, username)
	if err != nil {
		return nil, fmt.Errorf("query user %q: %w", username, err)
	}
	if user == nil {
		s.passwords.Burn(ctx, creds.Password)
		return nil, fmt.Errorf("authenticate user %q: %w", username, ErrInvalidCredentials)
	}

	ok, err := s.passwords.Verify(ctx, creds.Password, user.PasswordHash)
	if err != nil {
		return nil, fmt.Errorf("verify password: %w", err)
	}
	if !ok {
		return nil, fmt.Errorf("authenticate user %q: %w", username, ErrInvalidCredentials)
	}

	user.PasswordHash = ""
	return user, nil
}

// Login verifies credentials and issues a short-lived session token.
func (s *AuthService) Login(ctx context.Context, creds domain.Credentials) (*domain.TokenResponse, error) {
	ctx, span := middleware.StartSpan(ctx, "auth.login", trace.WithAttributes(
		attribute.String("layer", "logic"),
		attribute.String("username", normalizeUsername(creds.Username)),
	))
	defer span.End()

	user, err := s.verifyCredentials(ctx, creds)
	if err != nil {
		if errors.Is(err, ErrInvalidCredentials) {
			authAttempts.WithLabelValues("invalid_credentials").Inc()
			span.SetAttributes(attribute.Bool("auth.success", false))
			span.AddEvent("authentication.failed")
		} else {
			authAttempts.WithLabelValues("error").Inc()
			span.RecordError(err)
		}
		return nil, err
	}

	resp, err := s.issueSession(ctx, user.ID, false)
	if err != nil {
		authAttempts.WithLabelValues("error").Inc()
		span.RecordError(err)
		return nil, err
	}

	authAttempts.WithLabelValues("success").Inc()
	span.SetAttributes(
		attribute.Int64("user.id", user.ID),
		attribute.Bool("auth.success", true),
	)
	span.AddEvent("user.authenticated")

	return resp, nil
}

// CreateLongLivedToken issues a long-lived session for userID without a
// password check. Callers must have validated a session for userID first.
func (s *AuthService) CreateLongLivedToken(ctx context.Context, userID int64) (*domain.TokenResponse, error) {
	ctx, span := middleware.StartSpan(ctx, "auth.create_long_lived_token", trace.WithAttributes(
		attribute.String("layer", "logic"),
		attribute.Int64("user.id", userID),
	))
	defer span.End()

	if userID <= 0 {
		return nil, fmt.Errorf("create long-lived token: missing user id: %w", ErrInvalidInput)
	}

	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("query user %d: %w", userID, err)
	}
	if user == nil {
		return nil, fmt.Errorf("create long-lived token for user %d: %w", userID, ErrUserNotFound)
	}

	// The foreign key still guards a delete racing this insert.
	resp, err := s.issueSession(ctx, user.ID, true)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	return resp, nil
}

// issueSession creates a session row and returns the plaintext token.
// The token is never persisted; only its digest is.
func (s *AuthService) issueSession(ctx context.Context, userID int64, longLived bool) (*domain.TokenResponse, error) {
	log := logger.FromContext(ctx)

	if s.opts.SweepOnIssue {
		if _, err := s.SweepExpired(ctx); err != nil {
			log.Warn().Err(err).Msg("Lazy session sweep failed")
		}
	}

	now := s.nowMillis()
	expiry := now + s.lifetimeMillis(longLived)

	plain, digest, err := s.tokens.Issue()
	if err != nil {
		return nil, fmt.Errorf("generate token: %w", err)
	}

	sess := domain.Session{
		ID:              digest,
		UserID:          userID,
		ExpiryTimestamp: expiry,
		LongLived:       longLived,
	}
	if err := s.sessions.Create(ctx, sess); err != nil {
		if errors.Is(err, domain.ErrForeignKeyViolation) {
			return nil, fmt.Errorf("issue session for user %d: %w: %w", userID, ErrUserNotFound, err)
		}
		return nil, fmt.Errorf("create session: %w", err)
	}

	sessionsIssued.WithLabelValues(sessionKind(longLived)).Inc()
	log.Info().
		Int64("user_id", userID).
		Str("session", logger.DigestPrefix(digest)).
		Bool("long_lived", longLived).
		Msg("Session issued")

	return &domain.TokenResponse{
		Token:     plain,
		ExpiresAt: sess.ExpiresAt(),
		LongLived: longLived,
	}, nil
}

// Validate resolves a bearer token to its user and session. A session with
// less than half the base window left is extended to now+L; the returned
// session carries the stored post-renewal expiry.
func (s *AuthService) Validate(ctx context.Context, tok string) (*domain.SessionRow, error) {
	ctx, span := middleware.StartSpan(ctx, "auth.validate", trace.WithAttributes(
		attribute.String("layer", "logic"),
	))
	defer span.End()

	if tok == "" {
		sessionValidations.WithLabelValues("not_found").Inc()
		return nil, fmt.Errorf("lookup session: empty token: %w", ErrSessionNotFound)
	}

	digest := token.DigestOf(tok)
	prefix := logger.DigestPrefix(digest)

	row, err := s.sessions.GetWithUser(ctx, digest)
	if err != nil {
		sessionValidations.WithLabelValues("error").Inc()
		span.RecordError(err)
		return nil, fmt.Errorf("query session: %w", err)
	}
	if row == nil {
		sessionValidations.WithLabelValues("not_found").Inc()
		span.SetAttributes(attribute.Bool("session.valid", false))
		return nil, fmt.Errorf("lookup session %s: %w", prefix, ErrSessionNotFound)
	}

	now := s.nowMillis()
	if now > row.Session.ExpiryTimestamp {
		sessionValidations.WithLabelValues("expired").Inc()
		span.SetAttributes(attribute.Bool("session.valid", false))
		return nil, fmt.Errorf("session %s expired at %v: %w", prefix, row.Session.ExpiresAt(), ErrSessionExpired)
	}

	if s.needsRenewal(now, row.Session) {
		stored, ok, err := s.sessions.UpdateExpiry(ctx, digest, s.renewalExpiry(now, row.Session))
		if err != nil {
			sessionValidations.WithLabelValues("error").Inc()
			span.RecordError(err)
			return nil, fmt.Errorf("renew session: %w", err)
		}
		if !ok {
			// Revoked between lookup and renewal.
			sessionValidations.WithLabelValues("not_found").Inc()
			return nil, fmt.Errorf("renew session %s: %w", prefix, ErrSessionNotFound)
		}
		row.Session.ExpiryTimestamp = stored
		sessionRenewals.Inc()
		span.AddEvent("session.renewed")
		logger.FromContext(ctx).Debug().
			Str("session", prefix).
			Time("expires_at", row.Session.ExpiresAt()).
			Msg("Session renewed")
	}

	sessionValidations.WithLabelValues("valid").Inc()
	span.SetAttributes(
		attribute.Int64("user.id", row.User.ID),
		attribute.Bool("session.valid", true),
	)

	return row, nil
}

// Logout revokes the session behind tok.
func (s *AuthService) Logout(ctx context.Context, tok string) error {
	ctx, span := middleware.StartSpan(ctx, "auth.logout", trace.WithAttributes(
		attribute.String("layer", "logic"),
	))
	defer span.End()

	removed, err := s.sessions.Delete(ctx, token.DigestOf(tok))
	if err != nil {
		span.RecordError(err)
		return fmt.Errorf("delete session: %w", err)
	}
	if !removed {
		return fmt.Errorf("logout: %w", ErrSessionNotFound)
	}
	return nil
}

// DeleteUser removes username on behalf of the holder of a valid token.
// Sessions of the removed user are purged first.
func (s *AuthService) DeleteUser(ctx context.Context, tok, username string) error {
	username = normalizeUsername(username)
	ctx, span := middleware.StartSpan(ctx, "auth.delete_user", trace.WithAttributes(
		attribute.String("layer", "logic"),
		attribute.String("username", username),
	))
	defer span.End()

	if _, err := s.Validate(ctx, tok); err != nil {
		if errors.Is(err, ErrSessionNotFound) || errors.Is(err, ErrSessionExpired) {
			return fmt.Errorf("delete user %q: %w: %w", username, ErrUnauthorized, err)
		}
		span.RecordError(err)
		return err
	}

	target, err := s.users.GetByUsername(ctx, username)
	if err != nil {
		span.RecordError(err)
		return fmt.Errorf("query user %q: %w", username, err)
	}
	if target == nil {
		return fmt.Errorf("delete user %q: %w", username, ErrUserNotFound)
	}

	return s.removeUser(ctx, target.ID, username)
}

// DeleteUserWithCredentials removes the user proven by creds.
func (s *AuthService) DeleteUserWithCredentials(ctx context.Context, creds domain.Credentials) error {
	username := normalizeUsername(creds.Username)
	ctx, span := middleware.StartSpan(ctx, "auth.delete_user_with_credentials", trace.WithAttributes(
		attribute.String("layer", "logic"),
		attribute.String("username", username),
	))
	defer span.End()

	user, err := s.verifyCredentials(ctx, creds)
	if err != nil {
		if errors.Is(err, ErrInvalidCredentials) {
			return fmt.Errorf("delete user %q: %w: %w", username, ErrUnauthorized, err)
		}
		span.RecordError(err)
		return err
	}

	return s.removeUser(ctx, user.ID, user.Username)
}

func (s *AuthService) removeUser(ctx context.Context, userID int64, username string) error {
	purged, err := s.sessions.DeleteByUserID(ctx, userID)
	if err != nil {
		return fmt.Errorf("purge sessions of user %d: %w", userID, err)
	}

	removed, err := s.users.Delete(ctx, userID)
	if err != nil {
		return fmt.Errorf("delete user %d: %w", userID, err)
	}
	if !removed {
		return fmt.Errorf("delete user %q: %w", username, ErrUserNotFound)
	}

	logger.FromContext(ctx).Info().
		Int64("user_id", userID).
		Int64("sessions_purged", purged).
		Msg("User deleted")
	return nil
}

// ListUsers returns every user without password hashes.
func (s *AuthService) ListUsers(ctx context.Context) ([]domain.User, error) {
	users, err := s.users.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	return users, nil
}

// ListSessions returns every stored session (digests, not tokens).
func (s *AuthService) ListSessions(ctx context.Context) ([]domain.Session, error) {
	sessions, err := s.sessions.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	return sessions, nil
}

// SweepExpired deletes sessions that are already past their expiry.
// Validate rejects expired sessions regardless, so this is hygiene only.
func (s *AuthService) SweepExpired(ctx context.Context) (int64, error) {
	n, err := s.sessions.DeleteExpired(ctx, s.nowMillis())
	if err != nil {
		return 0, fmt.Errorf("delete expired sessions: %w", err)
	}
	if n > 0 {
		sessionsSwept.Add(float64(n))
		logger.FromContext(ctx).Debug().Int64("count", n).Msg("Expired sessions swept")
	}
	return n, nil
}
