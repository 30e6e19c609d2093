package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

// HealthHandler answers liveness probes. With a check configured it also
// verifies the graph database is reachable.
type HealthHandler struct {
	check func(ctx context.Context) error
}

func NewHealthHandler(check func(ctx context.Context) error) *HealthHandler {
	return &HealthHandler{check: check}
}

func (h *HealthHandler) HealthCheck(c *gin.Context) {
	if h.check != nil {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 3*time.Second)
		defer cancel()
		if err := h.check(ctx); err != nil {
			c.String(http.StatusServiceUnavailable, "graph unavailable")
			return
		}
	}
	c.String(http.StatusOK, "ok")
}
