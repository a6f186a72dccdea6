package v1

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/duynhne/config-service/internal/core/domain"
)

func (h *Handler) GetAllConfig(c *gin.Context) {
	ctx, span := startSpan(c, "get_all_config")
	defer span.End()

	pairs, err := h.config.GetAll(ctx)
	if err != nil {
		respondError(ctx, c, span, err, "Read config failed")
		return
	}
	if pairs == nil {
		pairs = []domain.ConfigPair{}
	}
	c.JSON(http.StatusOK, pairs)
}

// GetConfig returns the bare value for key as text/plain.
func (h *Handler) GetConfig(c *gin.Context) {
	ctx, span := startSpan(c, "get_config")
	defer span.End()

	pair, err := h.config.Get(ctx, c.Param("key"))
	if err != nil {
		respondError(ctx, c, span, err, "Read config failed")
		return
	}
	c.String(http.StatusOK, pair.Value)
}

// SetConfig upserts one key/value pair.
func (h *Handler) SetConfig(c *gin.Context) {
	ctx, span := startSpan(c, "set_config")
	defer span.End()

	var pair domain.ConfigPair
	if !bindJSON(ctx, c, span, &pair) {
		return
	}

	if err := h.config.Set(ctx, pair); err != nil {
		respondError(ctx, c, span, err, "Write config failed")
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *Handler) DeleteConfig(c *gin.Context) {
	ctx, span := startSpan(c, "delete_config")
	defer span.End()

	if err := h.config.Delete(ctx, c.Param("key")); err != nil {
		respondError(ctx, c, span, err, "Delete config failed")
		return
	}
	c.Status(http.StatusNoContent)
}
