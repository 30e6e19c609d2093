package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/graphrag-cypher/internal/graphrag"
)

type fakePipeline struct {
	runOne    func(question string) graphrag.Outcome
	batchErr  error
	schema    graphrag.GraphSchema
	schemaErr error
	refreshed int
	batchSize int
}

func (f *fakePipeline) RunOne(ctx context.Context, question string) graphrag.Outcome {
	if f.runOne != nil {
		return f.runOne(question)
	}
	return graphrag.Outcome{Question: question, Query: "RETURN 1", Context: graphrag.QueryResult{int64(1)}, Answer: &graphrag.Answer{Response: "one"}}
}

func (f *fakePipeline) RunBatch(ctx context.Context, questions []string) ([]graphrag.Outcome, error) {
	f.batchSize = len(questions)
	if f.batchErr != nil {
		return nil, f.batchErr
	}
	out := make([]graphrag.Outcome, len(questions))
	for i, q := range questions {
		out[i] = f.RunOne(ctx, q)
	}
	return out, nil
}

func (f *fakePipeline) FullSchema(ctx context.Context) (graphrag.GraphSchema, error) {
	return f.schema, f.schemaErr
}

func (f *fakePipeline) Refresh(ctx context.Context) (graphrag.GraphSchema, error) {
	f.refreshed++
	return f.schema, f.schemaErr
}

func serve(t *testing.T, method, path, body string, register func(r *gin.Engine)) *httptest.ResponseRecorder {
	t.Helper()
	gin.SetMode(gin.TestMode)
	r := gin.New()
	register(r)
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func errorCode(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var env struct {
		Error struct {
			Code string `json:"code"`
		} `json:"error"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &env); err != nil {
		t.Fatalf("decode error envelope: %v body=%s", err, rec.Body.String())
	}
	return env.Error.Code
}

func TestAskReturnsOutcome(t *testing.T) {
	h := NewAskHandler(&fakePipeline{})
	rec := serve(t, http.MethodPost, "/api/ask", `{"question":"How many?"}`, func(r *gin.Engine) {
		r.POST("/api/ask", h.Ask)
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("status: want=200 got=%d body=%s", rec.Code, rec.Body.String())
	}
	var body struct {
		Outcome struct {
			Question string `json:"question"`
			Status   string `json:"status"`
			Answer   struct {
				Response string `json:"response"`
			} `json:"answer"`
		} `json:"outcome"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.Outcome.Question != "How many?" || body.Outcome.Status != graphrag.StatusAnswered || body.Outcome.Answer.Response != "one" {
		t.Fatalf("outcome: got=%+v", body.Outcome)
	}
}

func TestAskMapsPipelineErrors(t *testing.T) {
	cases := []struct {
		err    error
		status int
		code   string
	}{
		{graphrag.ErrEmptyQuestion, http.StatusBadRequest, "empty_question"},
		{fmt.Errorf("%w: bad json", graphrag.ErrStructuredOutput), http.StatusBadGateway, "model_output_invalid"},
		{fmt.Errorf("%w: %w", graphrag.ErrSchemaUnavailable, errors.New("neo4j down")), http.StatusServiceUnavailable, "schema_unavailable"},
		{errors.New("boom"), http.StatusInternalServerError, "pipeline_failed"},
	}
	for _, tc := range cases {
		p := &fakePipeline{runOne: func(q string) graphrag.Outcome { return graphrag.Outcome{Question: q, Err: tc.err} }}
		h := NewAskHandler(p)
		rec := serve(t, http.MethodPost, "/api/ask", `{"question":"Q"}`, func(r *gin.Engine) {
			r.POST("/api/ask", h.Ask)
		})
		if rec.Code != tc.status || errorCode(t, rec) != tc.code {
			t.Fatalf("%v: want=%d/%s got=%d body=%s", tc.err, tc.status, tc.code, rec.Code, rec.Body.String())
		}
	}
}

func TestAskRejectsMissingQuestion(t *testing.T) {
	h := NewAskHandler(&fakePipeline{})
	rec := serve(t, http.MethodPost, "/api/ask", `{}`, func(r *gin.Engine) {
		r.POST("/api/ask", h.Ask)
	})
	if rec.Code != http.StatusBadRequest || errorCode(t, rec) != "invalid_request" {
		t.Fatalf("got=%d body=%s", rec.Code, rec.Body.String())
	}
}

func TestBatchKeepsFailuresInsideOutcomes(t *testing.T) {
	p := &fakePipeline{runOne: func(q string) graphrag.Outcome {
		if q == "bad" {
			return graphrag.Outcome{Question: q, Err: errors.New("boom")}
		}
		return graphrag.Outcome{Question: q, Answer: &graphrag.Answer{Response: "ok"}}
	}}
	h := NewAskHandler(p)
	rec := serve(t, http.MethodPost, "/api/batch", `{"questions":["good","bad"]}`, func(r *gin.Engine) {
		r.POST("/api/batch", h.Batch)
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("status: got=%d body=%s", rec.Code, rec.Body.String())
	}
	var body struct {
		Outcomes []struct {
			Question string `json:"question"`
			Status   string `json:"status"`
			Error    string `json:"error"`
		} `json:"outcomes"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(body.Outcomes) != 2 || body.Outcomes[0].Status != graphrag.StatusAnswered || body.Outcomes[1].Error != "boom" {
		t.Fatalf("outcomes: got=%+v", body.Outcomes)
	}
}

func TestBatchLimits(t *testing.T) {
	h := NewAskHandler(&fakePipeline{})
	rec := serve(t, http.MethodPost, "/api/batch", `{"questions":[]}`, func(r *gin.Engine) {
		r.POST("/api/batch", h.Batch)
	})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("empty batch: got=%d", rec.Code)
	}

	qs := make([]string, maxBatchQuestions+1)
	for i := range qs {
		qs[i] = fmt.Sprintf("q%d", i)
	}
	raw, _ := json.Marshal(map[string]any{"questions": qs})
	rec = serve(t, http.MethodPost, "/api/batch", string(raw), func(r *gin.Engine) {
		r.POST("/api/batch", h.Batch)
	})
	if rec.Code != http.StatusBadRequest || errorCode(t, rec) != "batch_too_large" {
		t.Fatalf("oversized batch: got=%d body=%s", rec.Code, rec.Body.String())
	}
}

func TestBatchSchemaFailure(t *testing.T) {
	h := NewAskHandler(&fakePipeline{batchErr: errors.New("neo4j down")})
	rec := serve(t, http.MethodPost, "/api/batch", `{"questions":["Q"]}`, func(r *gin.Engine) {
		r.POST("/api/batch", h.Batch)
	})
	if rec.Code != http.StatusServiceUnavailable || errorCode(t, rec) != "schema_unavailable" {
		t.Fatalf("got=%d body=%s", rec.Code, rec.Body.String())
	}
}

func TestSchemaEndpoints(t *testing.T) {
	p := &fakePipeline{schema: graphrag.GraphSchema{Nodes: []graphrag.Node{{Label: "Person", Properties: []graphrag.Property{}}}, Edges: []graphrag.Edge{}}}
	h := NewSchemaHandler(p)
	register := func(r *gin.Engine) {
		r.GET("/api/schema", h.GetSchema)
		r.POST("/api/schema/refresh", h.RefreshSchema)
	}

	rec := serve(t, http.MethodGet, "/api/schema", "", register)
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), `"label":"Person"`) {
		t.Fatalf("get: got=%d body=%s", rec.Code, rec.Body.String())
	}
	rec = serve(t, http.MethodPost, "/api/schema/refresh", "", register)
	if rec.Code != http.StatusOK || p.refreshed != 1 {
		t.Fatalf("refresh: got=%d refreshed=%d", rec.Code, p.refreshed)
	}

	p.schemaErr = errors.New("neo4j down")
	rec = serve(t, http.MethodGet, "/api/schema", "", register)
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("get failure: got=%d", rec.Code)
	}
}

func TestHealthCheck(t *testing.T) {
	ok := NewHealthHandler(nil)
	rec := serve(t, http.MethodGet, "/healthcheck", "", func(r *gin.Engine) { r.GET("/healthcheck", ok.HealthCheck) })
	if rec.Code != http.StatusOK {
		t.Fatalf("healthy: got=%d", rec.Code)
	}

	down := NewHealthHandler(func(ctx context.Context) error { return errors.New("unreachable") })
	rec = serve(t, http.MethodGet, "/healthcheck", "", func(r *gin.Engine) { r.GET("/healthcheck", down.HealthCheck) })
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("unhealthy: got=%d", rec.Code)
	}
}
