package graphrag

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/yungbote/graphrag-cypher/internal/platform/llm"
	"github.com/yungbote/graphrag-cypher/internal/platform/logger"
)

func testLogger(t *testing.T) *logger.Logger {
	t.Helper()
	log, err := logger.New("nop")
	if err != nil {
		t.Fatalf("logger.New: %v", err)
	}
	return log
}

type fakeCatalog struct {
	nodes []string
	rels  []string
	props map[string][]Property
	conns map[string][]Connection

	mu    sync.Mutex
	calls int
}

func (c *fakeCatalog) bump() {
	c.mu.Lock()
	c.calls++
	c.mu.Unlock()
}

func (c *fakeCatalog) NodeTables(ctx context.Context) ([]string, error) {
	c.bump()
	return c.nodes, nil
}

func (c *fakeCatalog) RelTables(ctx context.Context) ([]string, error) {
	c.bump()
	return c.rels, nil
}

func (c *fakeCatalog) TableInfo(ctx context.Context, table string) ([]Property, error) {
	c.bump()
	return c.props[table], nil
}

func (c *fakeCatalog) Connections(ctx context.Context, relTable string) ([]Connection, error) {
	c.bump()
	return c.conns[relTable], nil
}

func ldbcCatalog() *fakeCatalog {
	return &fakeCatalog{
		nodes: []string{"Person", "Forum", "Tag", "City"},
		rels:  []string{"hasModerator", "hasTag", "isLocatedIn", "hasInterest"},
		props: map[string][]Property{
			"Person":       {{Name: "firstName", Type: "STRING"}, {Name: "lastName", Type: "STRING"}},
			"Forum":        {{Name: "title", Type: "STRING"}},
			"Tag":          {{Name: "name", Type: "STRING"}},
			"City":         {{Name: "name", Type: "STRING"}},
			"hasModerator": {{Name: "since", Type: "DATE_TIME"}},
		},
		conns: map[string][]Connection{
			"hasModerator": {{From: "Forum", To: "Person"}},
			"hasTag":       {{From: "Forum", To: "Tag"}},
			"isLocatedIn":  {{From: "Person", To: "City"}},
			"hasInterest":  {{From: "Person", To: "Tag"}},
		},
	}
}

type runnerFunc func(ctx context.Context, cypher string) ([][]any, error)

func (f runnerFunc) Run(ctx context.Context, cypher string) ([][]any, error) { return f(ctx, cypher) }

type fakeModel struct {
	prune      func(ctx context.Context, question string, full GraphSchema) (GraphSchema, error)
	generate   func(ctx context.Context, question string, pruned GraphSchema) (QueryDraft, error)
	synthesize func(ctx context.Context, question, cypher, contextJSON string) (Answer, error)

	synthCalls int32
}

func (m *fakeModel) PruneSchema(ctx context.Context, question string, full GraphSchema) (GraphSchema, error) {
	if m.prune == nil {
		return full, nil
	}
	return m.prune(ctx, question, full)
}

func (m *fakeModel) GenerateQuery(ctx context.Context, question string, pruned GraphSchema) (QueryDraft, error) {
	if m.generate == nil {
		return QueryDraft{Query: Query{Query: "MATCH (n) RETURN count(n)"}}, nil
	}
	return m.generate(ctx, question, pruned)
}

func (m *fakeModel) SynthesizeAnswer(ctx context.Context, question, cypher, contextJSON string) (Answer, error) {
	atomic.AddInt32(&m.synthCalls, 1)
	if m.synthesize == nil {
		return Answer{Response: "answer"}, nil
	}
	return m.synthesize(ctx, question, cypher, contextJSON)
}

type fakeLLM struct {
	reply []byte
	err   error

	mu      sync.Mutex
	schemas []llm.JSONSchema
	users   []string
}

func (f *fakeLLM) GenerateJSON(ctx context.Context, system string, user string, schema llm.JSONSchema) ([]byte, error) {
	f.mu.Lock()
	f.schemas = append(f.schemas, schema)
	f.users = append(f.users, user)
	f.mu.Unlock()
	return f.reply, f.err
}

func (f *fakeLLM) Model() string { return "fake-model" }

type memRecorder struct {
	mu   sync.Mutex
	recs []RunRecord
}

func (r *memRecorder) Record(ctx context.Context, rec RunRecord) error {
	r.mu.Lock()
	r.recs = append(r.recs, rec)
	r.mu.Unlock()
	return nil
}
