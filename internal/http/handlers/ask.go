package handlers

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/graphrag-cypher/internal/http/response"
)

const maxBatchQuestions = 100

type AskHandler struct {
	pipeline Pipeline
}

func NewAskHandler(p Pipeline) *AskHandler {
	return &AskHandler{pipeline: p}
}

type askRequest struct {
	Question string `json:"question" binding:"required"`
}

type batchRequest struct {
	Questions []string `json:"questions" binding:"required"`
}

// POST /api/ask
func (h *AskHandler) Ask(c *gin.Context) {
	var req askRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	o := h.pipeline.RunOne(c.Request.Context(), strings.TrimSpace(req.Question))
	if o.Err != nil {
		response.RespondPipelineError(c, o.Err)
		return
	}
	response.RespondOK(c, gin.H{"outcome": o})
}

// POST /api/batch
// Per-question failures are reported inside each outcome with status 200.
func (h *AskHandler) Batch(c *gin.Context) {
	var req batchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	if len(req.Questions) == 0 {
		response.RespondError(c, http.StatusBadRequest, "empty_batch", fmt.Errorf("questions must not be empty"))
		return
	}
	if len(req.Questions) > maxBatchQuestions {
		response.RespondError(c, http.StatusBadRequest, "batch_too_large", fmt.Errorf("at most %d questions per batch", maxBatchQuestions))
		return
	}
	outcomes, err := h.pipeline.RunBatch(c.Request.Context(), req.Questions)
	if err != nil {
		response.RespondError(c, http.StatusServiceUnavailable, "schema_unavailable", err)
		return
	}
	response.RespondOK(c, gin.H{"outcomes": outcomes})
}
