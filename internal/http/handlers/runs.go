package handlers

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/yungbote/graphrag-cypher/internal/data/repos"
	"github.com/yungbote/graphrag-cypher/internal/http/response"
	"github.com/yungbote/graphrag-cypher/internal/pkg/dbctx"
)

type RunsHandler struct {
	runs repos.QuestionRunRepo
}

func NewRunsHandler(runs repos.QuestionRunRepo) *RunsHandler {
	return &RunsHandler{runs: runs}
}

// GET /api/runs?batch_id=...&limit=...
func (h *RunsHandler) ListRuns(c *gin.Context) {
	dbc := dbctx.Context{Ctx: c.Request.Context()}
	if raw := strings.TrimSpace(c.Query("batch_id")); raw != "" {
		batchID, err := uuid.Parse(raw)
		if err != nil {
			response.RespondError(c, http.StatusBadRequest, "invalid_batch_id", err)
			return
		}
		rows, err := h.runs.ListByBatch(dbc, batchID)
		if err != nil {
			response.RespondError(c, http.StatusInternalServerError, "runs_unavailable", err)
			return
		}
		response.RespondOK(c, gin.H{"runs": rows})
		return
	}
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	rows, err := h.runs.ListRecent(dbc, limit)
	if err != nil {
		response.RespondError(c, http.StatusInternalServerError, "runs_unavailable", err)
		return
	}
	response.RespondOK(c, gin.H{"runs": rows})
}
