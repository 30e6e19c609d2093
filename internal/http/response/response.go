package response

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/graphrag-cypher/internal/graphrag"
	"github.com/yungbote/graphrag-cypher/internal/platform/llm"
)

type APIError struct {
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
}

type ErrorEnvelope struct {
	Error APIError `json:"error"`
}

func RespondError(c *gin.Context, status int, code string, err error) {
	msg := "unknown error"
	if err != nil {
		msg = err.Error()
		_ = c.Error(err)
	}
	c.JSON(status, ErrorEnvelope{
		Error: APIError{
			Message: msg,
			Code:    code,
		},
	})
}

func RespondOK(c *gin.Context, payload any) {
	c.JSON(http.StatusOK, payload)
}

// RespondPipelineError maps a question failure to a status and error code.
func RespondPipelineError(c *gin.Context, err error) {
	var httpErr *llm.HTTPError
	switch {
	case errors.Is(err, graphrag.ErrEmptyQuestion):
		RespondError(c, http.StatusBadRequest, "empty_question", err)
	case errors.Is(err, graphrag.ErrSchemaUnavailable):
		RespondError(c, http.StatusServiceUnavailable, "schema_unavailable", err)
	case errors.Is(err, graphrag.ErrStructuredOutput):
		RespondError(c, http.StatusBadGateway, "model_output_invalid", err)
	case errors.Is(err, graphrag.ErrEmptyQuery):
		RespondError(c, http.StatusBadGateway, "empty_query", err)
	case errors.As(err, &httpErr):
		RespondError(c, http.StatusBadGateway, "model_unavailable", err)
	default:
		RespondError(c, http.StatusInternalServerError, "pipeline_failed", err)
	}
}
