package v1

import (
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/duynhne/config-service/internal/core/domain"
)

const (
	sessionKey = "session"
	tokenKey   = "token"
)

// BearerToken extracts the token from an Authorization header value. Any
// scheme prefix is dropped, so "Bearer x", "Token x" and a bare "x" all
// yield "x".
func BearerToken(header string) string {
	fields := strings.Fields(header)
	if len(fields) == 0 {
		return ""
	}
	return fields[len(fields)-1]
}

// RequireSession validates the bearer token and stores the resolved
// session for downstream handlers. Validation renews the session when due.
func (h *Handler) RequireSession() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, span := startSpan(c, "require_session")
		defer span.End()

		tok := BearerToken(c.GetHeader("Authorization"))
		row, err := h.auth.Validate(ctx, tok)
		if err != nil {
			respondError(ctx, c, span, err, "Session rejected")
			return
		}

		c.Set(sessionKey, row)
		c.Set(tokenKey, tok)
		c.Next()
	}
}

func currentSession(c *gin.Context) *domain.SessionRow {
	row, _ := c.MustGet(sessionKey).(*domain.SessionRow)
	return row
}
