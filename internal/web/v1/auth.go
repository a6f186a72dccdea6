package v1

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/attribute"

	"github.com/duynhne/config-service/internal/core/domain"
	"github.com/duynhne/config-service/internal/logger"
)

// Login handles HTTP request for user login.
func (h *Handler) Login(c *gin.Context) {
	ctx, span := startSpan(c, "login")
	defer span.End()

	var req domain.Credentials
	if !bindJSON(ctx, c, span, &req) {
		return
	}

	resp, err := h.auth.Login(ctx, req)
	if err != nil {
		respondError(ctx, c, span, err, "Login failed")
		return
	}

	logger.FromContext(ctx).Info().Str("username", req.Username).Msg("Login successful")
	c.JSON(http.StatusOK, resp)
}

// Register handles HTTP request for user registration.
func (h *Handler) Register(c *gin.Context) {
	ctx, span := startSpan(c, "register")
	defer span.End()

	var req domain.Credentials
	if !bindJSON(ctx, c, span, &req) {
		return
	}

	user, err := h.auth.Register(ctx, req)
	if err != nil {
		respondError(ctx, c, span, err, "Registration failed")
		return
	}

	logger.FromContext(ctx).Info().Int64("user_id", user.ID).Msg("Registration successful")
	c.JSON(http.StatusCreated, user)
}

// Unregister deletes the account proven by the posted credentials.
func (h *Handler) Unregister(c *gin.Context) {
	ctx, span := startSpan(c, "unregister")
	defer span.End()

	var req domain.Credentials
	if !bindJSON(ctx, c, span, &req) {
		return
	}

	if err := h.auth.DeleteUserWithCredentials(ctx, req); err != nil {
		respondError(ctx, c, span, err, "Unregister failed")
		return
	}
	c.Status(http.StatusNoContent)
}

// DeleteUser deletes the named user on behalf of any bearer of a valid
// session. The session check happens inside the service call.
func (h *Handler) DeleteUser(c *gin.Context) {
	ctx, span := startSpan(c, "delete_user")
	defer span.End()

	username := c.Param("username")
	span.SetAttributes(attribute.String("username", username))

	if err := h.auth.DeleteUser(ctx, BearerToken(c.GetHeader("Authorization")), username); err != nil {
		respondError(ctx, c, span, err, "Delete user failed")
		return
	}
	c.Status(http.StatusNoContent)
}

// GetMe returns the caller behind the presented token.
func (h *Handler) GetMe(c *gin.Context) {
	row := currentSession(c)
	c.JSON(http.StatusOK, domain.MeResponse{
		User:      row.User,
		ExpiresAt: row.Session.ExpiresAt(),
		LongLived: row.Session.LongLived,
	})
}

// Logout revokes the presented token.
func (h *Handler) Logout(c *gin.Context) {
	ctx, span := startSpan(c, "logout")
	defer span.End()

	if err := h.auth.Logout(ctx, c.GetString(tokenKey)); err != nil {
		respondError(ctx, c, span, err, "Logout failed")
		return
	}
	c.Status(http.StatusNoContent)
}

// CreateLongLivedToken issues a long-lived token for the caller.
func (h *Handler) CreateLongLivedToken(c *gin.Context) {
	ctx, span := startSpan(c, "create_long_lived_token")
	defer span.End()

	row := currentSession(c)
	resp, err := h.auth.CreateLongLivedToken(ctx, row.User.ID)
	if err != nil {
		respondError(ctx, c, span, err, "Token creation failed")
		return
	}

	logger.FromContext(ctx).Info().Int64("user_id", row.User.ID).Msg("Long-lived token created")
	c.JSON(http.StatusCreated, resp)
}

// ListUsers returns every user.
func (h *Handler) ListUsers(c *gin.Context) {
	ctx, span := startSpan(c, "list_users")
	defer span.End()

	users, err := h.auth.ListUsers(ctx)
	if err != nil {
		respondError(ctx, c, span, err, "List users failed")
		return
	}
	if users == nil {
		users = []domain.User{}
	}
	c.JSON(http.StatusOK, users)
}

// ListSessions returns every stored session by digest.
func (h *Handler) ListSessions(c *gin.Context) {
	ctx, span := startSpan(c, "list_sessions")
	defer span.End()

	sessions, err := h.auth.ListSessions(ctx)
	if err != nil {
		respondError(ctx, c, span, err, "List sessions failed")
		return
	}
	if sessions == nil {
		sessions = []domain.Session{}
	}
	c.JSON(http.StatusOK, sessions)
}
