package v1

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	logicv1 "github.com/duynhne/config-service/internal/logic/v1"
	"github.com/duynhne/config-service/internal/logger"
	"github.com/duynhne/config-service/middleware"
)

// Handler groups HTTP handlers for the API v1.
// Dependencies are injected via the constructor, no global state.
type Handler struct {
	auth   *logicv1.AuthService
	config *logicv1.ConfigService
}

// NewHandler creates a new Handler.
func NewHandler(auth *logicv1.AuthService, config *logicv1.ConfigService) *Handler {
	return &Handler{auth: auth, config: config}
}

// RegisterRoutes registers all v1 routes on the given router group.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/auth/login", h.Login)
	rg.POST("/auth/register", h.Register)
	rg.POST("/auth/unregister", h.Unregister)
	rg.DELETE("/users/:username", h.DeleteUser)

	protected := rg.Group("", h.RequireSession())
	protected.GET("/auth/me", h.GetMe)
	protected.POST("/auth/logout", h.Logout)
	protected.POST("/auth/tokens", h.CreateLongLivedToken)
	protected.GET("/users", h.ListUsers)
	protected.GET("/sessions", h.ListSessions)

	protected.GET("/config", h.GetAllConfig)
	protected.GET("/config/:key", h.GetConfig)
	protected.PUT("/config", h.SetConfig)
	protected.DELETE("/config/:key", h.DeleteConfig)
}

func startSpan(c *gin.Context, op string) (context.Context, trace.Span) {
	return middleware.StartSpan(c.Request.Context(), "http.request", trace.WithAttributes(
		attribute.String("layer", "web"),
		attribute.String("operation", op),
		attribute.String("method", c.Request.Method),
		attribute.String("path", c.FullPath()),
	))
}

// bindJSON decodes the body into dst, answering 400 on failure.
func bindJSON(ctx context.Context, c *gin.Context, span trace.Span, dst any) bool {
	if err := c.ShouldBindJSON(dst); err != nil {
		span.SetAttributes(attribute.Bool("request.valid", false))
		span.RecordError(err)
		logger.FromContext(ctx).Warn().Err(err).Msg("Invalid request")
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return false
	}
	span.SetAttributes(attribute.Bool("request.valid", true))
	return true
}

// respondError maps logic errors to HTTP statuses. Anything unrecognised is
// a storage or internal failure and is reported as 500 without detail.
func respondError(ctx context.Context, c *gin.Context, span trace.Span, err error, msg string) {
	span.RecordError(err)
	log := logger.FromContext(ctx)

	var (
		status int
		body   string
	)
	switch {
	case errors.Is(err, logicv1.ErrInvalidCredentials):
		status, body = http.StatusUnauthorized, "Invalid credentials"
	case errors.Is(err, logicv1.ErrUnauthorized),
		errors.Is(err, logicv1.ErrSessionNotFound),
		errors.Is(err, logicv1.ErrSessionExpired):
		status, body = http.StatusUnauthorized, "Unauthorized"
	case errors.Is(err, logicv1.ErrUserExists):
		status, body = http.StatusConflict, "User already exists"
	case errors.Is(err, logicv1.ErrUserNotFound):
		status, body = http.StatusNotFound, "User not found"
	case errors.Is(err, logicv1.ErrConfigNotFound):
		status, body = http.StatusNotFound, "Config key not found"
	case errors.Is(err, logicv1.ErrInvalidInput):
		status, body = http.StatusBadRequest, "Invalid input"
	default:
		status, body = http.StatusInternalServerError, "Internal server error"
	}

	if status >= http.StatusInternalServerError {
		log.Error().Err(err).Msg(msg)
	} else {
		log.Warn().Err(err).Int("status", status).Msg(msg)
	}
	c.AbortWithStatusJSON(status, gin.H{"error": body})
}
