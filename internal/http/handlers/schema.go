package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/graphrag-cypher/internal/http/response"
)

type SchemaHandler struct {
	pipeline Pipeline
}

func NewSchemaHandler(p Pipeline) *SchemaHandler {
	return &SchemaHandler{pipeline: p}
}

// GET /api/schema
func (h *SchemaHandler) GetSchema(c *gin.Context) {
	s, err := h.pipeline.FullSchema(c.Request.Context())
	if err != nil {
		response.RespondError(c, http.StatusServiceUnavailable, "schema_unavailable", err)
		return
	}
	response.RespondOK(c, gin.H{"schema": s})
}

// POST /api/schema/refresh
func (h *SchemaHandler) RefreshSchema(c *gin.Context) {
	s, err := h.pipeline.Refresh(c.Request.Context())
	if err != nil {
		response.RespondError(c, http.StatusServiceUnavailable, "schema_unavailable", err)
		return
	}
	response.RespondOK(c, gin.H{"schema": s})
}
