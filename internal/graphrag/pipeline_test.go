package graphrag

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strings"
	"sync/atomic"
	"testing"
	"time"
)

func newTestPipeline(t *testing.T, cfg Config, cat Catalog, r Runner, m Model, rec Recorder) *Pipeline {
	t.Helper()
	p, err := New(cfg, Deps{Log: testLogger(t), Catalog: cat, Runner: r, Model: m, Recorder: rec})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return p
}

func TestRunBatchIsolatesFailuresAndKeepsOrder(t *testing.T) {
	q1Release := make(chan struct{})
	q2Done := make(chan struct{})

	m := &fakeModel{
		generate: func(ctx context.Context, question string, pruned GraphSchema) (QueryDraft, error) {
			switch question {
			case "Q1":
				// Q1 finishes after Q2 has already failed.
				select {
				case <-q1Release:
				case <-time.After(5 * time.Second):
				}
				return QueryDraft{Query: Query{Query: "RETURN 42"}}, nil
			default:
				defer close(q2Done)
				return QueryDraft{}, fmt.Errorf("%w: not json", ErrStructuredOutput)
			}
		},
		synthesize: func(ctx context.Context, question, cypher, contextJSON string) (Answer, error) {
			return Answer{Response: "Answer from " + contextJSON}, nil
		},
	}
	r := runnerFunc(func(ctx context.Context, cypher string) ([][]any, error) {
		return [][]any{{int64(42)}}, nil
	})
	rec := &memRecorder{}
	p := newTestPipeline(t, Config{}, ldbcCatalog(), r, m, rec)

	go func() {
		<-q2Done
		close(q1Release)
	}()

	out, err := p.RunBatch(context.Background(), []string{"Q1", "Q2"})
	if err != nil {
		t.Fatalf("RunBatch: %v", err)
	}
	if len(out) != 2 {
		t.Fatalf("outcomes: want=2 got=%d", len(out))
	}
	if out[0].Question != "Q1" || out[0].Err != nil || out[0].Answer == nil || out[0].Answer.Response != "Answer from [42]" {
		t.Fatalf("outcome[0]: got=%+v", out[0])
	}
	if out[1].Question != "Q2" || out[1].Answer != nil || !errors.Is(out[1].Err, ErrStructuredOutput) {
		t.Fatalf("outcome[1]: got=%+v", out[1])
	}
	if out[1].Status() != StatusFailed || out[0].Status() != StatusAnswered {
		t.Fatalf("status: got=%s,%s", out[0].Status(), out[1].Status())
	}
	if len(rec.recs) != 2 {
		t.Fatalf("records: want=2 got=%d", len(rec.recs))
	}
	if rec.recs[0].BatchID == "" || rec.recs[0].BatchID != rec.recs[1].BatchID {
		t.Fatalf("batch ids: %q %q", rec.recs[0].BatchID, rec.recs[1].BatchID)
	}
}

func TestRunBatchExecuteFailureLeavesNoAnswer(t *testing.T) {
	q2Done := make(chan struct{})

	m := &fakeModel{
		generate: func(ctx context.Context, question string, pruned GraphSchema) (QueryDraft, error) {
			if question == "Q1" {
				return QueryDraft{Query: Query{Query: "RETURN 42"}}, nil
			}
			return QueryDraft{Query: Query{Query: "MATCH (x:Missing) RETURN x.y"}}, nil
		},
		synthesize: func(ctx context.Context, question, cypher, contextJSON string) (Answer, error) {
			return Answer{Response: "Answer from " + contextJSON}, nil
		},
	}
	r := runnerFunc(func(ctx context.Context, cypher string) ([][]any, error) {
		if cypher == "RETURN 42" {
			// Q1 completes after Q2's query has already failed.
			select {
			case <-q2Done:
			case <-time.After(5 * time.Second):
			}
			return [][]any{{int64(42)}}, nil
		}
		defer close(q2Done)
		return nil, errors.New("Neo.ClientError.Statement.SyntaxError")
	})
	p := newTestPipeline(t, Config{}, ldbcCatalog(), r, m, nil)

	out, err := p.RunBatch(context.Background(), []string{"Q1", "Q2"})
	if err != nil {
		t.Fatalf("RunBatch: %v", err)
	}
	if len(out) != 2 {
		t.Fatalf("outcomes: want=2 got=%d", len(out))
	}
	if out[0].Err != nil || out[0].Answer == nil || out[0].Answer.Response != "Answer from [42]" {
		t.Fatalf("outcome[0]: got=%+v", out[0])
	}
	if out[1].Question != "Q2" || out[1].Answer != nil || out[1].Err != nil || out[1].Context != nil {
		t.Fatalf("outcome[1]: got=%+v", out[1])
	}
	if n := atomic.LoadInt32(&m.synthCalls); n != 1 {
		t.Fatalf("synthesizer calls: want=1 got=%d", n)
	}
}

func TestRunBatchRecoversPanic(t *testing.T) {
	m := &fakeModel{prune: func(ctx context.Context, question string, full GraphSchema) (GraphSchema, error) {
		if question == "boom" {
			panic("bad state")
		}
		return full, nil
	}}
	r := runnerFunc(func(ctx context.Context, cypher string) ([][]any, error) { return [][]any{{1}}, nil })
	p := newTestPipeline(t, Config{MaxConcurrency: 1}, ldbcCatalog(), r, m, nil)

	out, err := p.RunBatch(context.Background(), []string{"boom", "fine"})
	if err != nil {
		t.Fatalf("RunBatch: %v", err)
	}
	if !errors.Is(out[0].Err, ErrTaskPanic) {
		t.Fatalf("outcome[0]: want ErrTaskPanic got=%v", out[0].Err)
	}
	if out[0].Question != "boom" {
		t.Fatalf("outcome[0].Question: got=%q", out[0].Question)
	}
	if out[1].Err != nil || out[1].Answer == nil {
		t.Fatalf("outcome[1]: got=%+v", out[1])
	}
}

func TestRunBatchQueryErrorYieldsNoAnswer(t *testing.T) {
	m := &fakeModel{}
	r := runnerFunc(func(ctx context.Context, cypher string) ([][]any, error) {
		return nil, errors.New("syntax error")
	})
	p := newTestPipeline(t, Config{}, ldbcCatalog(), r, m, nil)

	out, err := p.RunBatch(context.Background(), []string{"Q"})
	if err != nil {
		t.Fatalf("RunBatch: %v", err)
	}
	o := out[0]
	if o.Err != nil || o.Answer != nil || o.Context != nil || o.Query == "" {
		t.Fatalf("outcome: got=%+v", o)
	}
	if o.Status() != StatusNoContext {
		t.Fatalf("status: got=%s", o.Status())
	}
	if n := atomic.LoadInt32(&m.synthCalls); n != 0 {
		t.Fatalf("synthesizer called %d times", n)
	}
}

func TestRunBatchRespectsConcurrencyLimit(t *testing.T) {
	var inflight, peak int32
	r := runnerFunc(func(ctx context.Context, cypher string) ([][]any, error) {
		n := atomic.AddInt32(&inflight, 1)
		for {
			p := atomic.LoadInt32(&peak)
			if n <= p || atomic.CompareAndSwapInt32(&peak, p, n) {
				break
			}
		}
		time.Sleep(10 * time.Millisecond)
		atomic.AddInt32(&inflight, -1)
		return [][]any{{"x"}}, nil
	})
	p := newTestPipeline(t, Config{MaxConcurrency: 2}, ldbcCatalog(), r, &fakeModel{}, nil)

	qs := []string{"a", "b", "c", "d", "e", "f"}
	out, err := p.RunBatch(context.Background(), qs)
	if err != nil {
		t.Fatalf("RunBatch: %v", err)
	}
	for i, o := range out {
		if o.Question != qs[i] {
			t.Fatalf("position %d: want=%q got=%q", i, qs[i], o.Question)
		}
	}
	if got := atomic.LoadInt32(&peak); got > 2 {
		t.Fatalf("peak concurrency: want<=2 got=%d", got)
	}
}

type failingCatalog struct{ fakeCatalog }

func (c *failingCatalog) NodeTables(ctx context.Context) ([]string, error) {
	return nil, errors.New("connection refused")
}

func TestRunBatchFailsWhenSchemaUnavailable(t *testing.T) {
	p := newTestPipeline(t, Config{}, &failingCatalog{}, runnerFunc(nil), &fakeModel{}, nil)
	if _, err := p.RunBatch(context.Background(), []string{"Q"}); !errors.Is(err, ErrSchemaUnavailable) {
		t.Fatalf("want ErrSchemaUnavailable got=%v", err)
	}
	if o := p.RunOne(context.Background(), "Q"); !errors.Is(o.Err, ErrSchemaUnavailable) {
		t.Fatalf("RunOne: want ErrSchemaUnavailable got=%v", o.Err)
	}
}

func TestFullSchemaIsCachedUntilRefresh(t *testing.T) {
	cat := ldbcCatalog()
	p := newTestPipeline(t, Config{}, cat, runnerFunc(nil), &fakeModel{}, nil)

	if _, err := p.FullSchema(context.Background()); err != nil {
		t.Fatalf("FullSchema: %v", err)
	}
	calls := cat.calls
	if _, err := p.FullSchema(context.Background()); err != nil {
		t.Fatalf("FullSchema: %v", err)
	}
	if cat.calls != calls {
		t.Fatalf("catalog re-queried: before=%d after=%d", calls, cat.calls)
	}

	cat.nodes = append(cat.nodes, "Post")
	s, err := p.Refresh(context.Background())
	if err != nil {
		t.Fatalf("Refresh: %v", err)
	}
	if len(s.Nodes) != 5 {
		t.Fatalf("refreshed nodes: want=5 got=%d", len(s.Nodes))
	}
}

func TestAskEmptyQuestion(t *testing.T) {
	p := newTestPipeline(t, Config{}, ldbcCatalog(), runnerFunc(nil), &fakeModel{}, nil)
	if _, err := p.Ask(context.Background(), "  "); !errors.Is(err, ErrEmptyQuestion) {
		t.Fatalf("want ErrEmptyQuestion got=%v", err)
	}
}

func TestOutcomeJSON(t *testing.T) {
	o := Outcome{Question: "Q", Err: errors.New("boom")}
	b, err := json.Marshal(o)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	want := `{"question":"Q","status":"failed","context":null,"answer":null,"error":"boom"}`
	if string(b) != want {
		t.Fatalf("json: want=%s got=%s", want, b)
	}
}

func TestOutcomeJSONEncodesNonFiniteFloats(t *testing.T) {
	o := Outcome{
		Question: "Q",
		Query:    "RETURN 0.0/0.0",
		Context:  QueryResult{math.NaN(), []any{math.Inf(1)}, map[string]any{"x": math.Inf(-1)}, 1.5},
		Answer:   &Answer{Response: "undefined"},
	}
	b, err := json.Marshal(o)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if !strings.Contains(string(b), `"context":["NaN",["+Inf"],{"x":"-Inf"},1.5]`) {
		t.Fatalf("json: got=%s", b)
	}
	if !math.IsNaN(o.Context[0].(float64)) {
		t.Fatalf("Encodable mutated the original context")
	}
	if got := RenderContext(o.Context); got != `["NaN",["+Inf"],{"x":"-Inf"},1.5]` {
		t.Fatalf("RenderContext: got=%s", got)
	}
}
