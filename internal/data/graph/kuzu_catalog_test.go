package graph

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/yungbote/graphrag-cypher/internal/graphrag"
	"github.com/yungbote/graphrag-cypher/internal/platform/logger"
)

type fakeKuzu struct {
	rows    map[string][][]any
	err     error
	queries []string
}

func (f *fakeKuzu) Query(ctx context.Context, cypher string) ([][]any, error) {
	f.queries = append(f.queries, cypher)
	if f.err != nil {
		return nil, f.err
	}
	return f.rows[cypher], nil
}

func ldbcKuzu() *fakeKuzu {
	return &fakeKuzu{rows: map[string][][]any{
		"CALL SHOW_TABLES() WHERE type = 'NODE' RETURN *;": {
			{int64(1), "Person", "NODE", "local(kuzu)", ""},
			{int64(0), "City", "NODE", "local(kuzu)", ""},
		},
		"CALL SHOW_TABLES() WHERE type = 'REL' RETURN *;": {
			{int64(2), "isLocatedIn", "REL", "local(kuzu)", ""},
		},
		"CALL TABLE_INFO('Person') RETURN *;": {
			{int64(0), "id", "INT64", "NULL", true},
			{int64(1), "firstName", "STRING", "NULL", false},
		},
		"CALL TABLE_INFO('City') RETURN *;": {
			{int64(0), "name", "STRING", "NULL", true},
		},
		"CALL TABLE_INFO('isLocatedIn') RETURN *;": nil,
		"CALL SHOW_CONNECTION('isLocatedIn') RETURN *;": {
			{"Person", "City", "id", "name"},
		},
	}}
}

func TestKuzuCatalogBuildsSchema(t *testing.T) {
	log, _ := logger.New("nop")
	cat, err := NewKuzuCatalog(log, ldbcKuzu())
	if err != nil {
		t.Fatalf("NewKuzuCatalog: %v", err)
	}
	in, err := graphrag.NewIntrospector(log, cat)
	if err != nil {
		t.Fatalf("NewIntrospector: %v", err)
	}
	s, err := in.Schema(context.Background())
	if err != nil {
		t.Fatalf("Schema: %v", err)
	}
	if len(s.Nodes) != 2 || s.Nodes[0].Label != "City" || s.Nodes[1].Label != "Person" {
		t.Fatalf("nodes: got=%+v", s.Nodes)
	}
	if len(s.Nodes[1].Properties) != 2 || s.Nodes[1].Properties[1].Name != "firstName" || s.Nodes[1].Properties[1].Type != "STRING" {
		t.Fatalf("Person props: got=%+v", s.Nodes[1].Properties)
	}
	if len(s.Edges) != 1 {
		t.Fatalf("edges: got=%+v", s.Edges)
	}
	e := s.Edges[0]
	if e.Label != "isLocatedIn" || e.From.Label != "Person" || e.To.Label != "City" {
		t.Fatalf("edge: got=%+v", e)
	}
}

func TestKuzuCatalogQuotesTableNames(t *testing.T) {
	log, _ := logger.New("nop")
	f := &fakeKuzu{}
	cat, _ := NewKuzuCatalog(log, f)
	if _, err := cat.TableInfo(context.Background(), `O'Brien\x`); err != nil {
		t.Fatalf("TableInfo: %v", err)
	}
	want := `CALL TABLE_INFO('O\'Brien\\x') RETURN *;`
	if len(f.queries) != 1 || f.queries[0] != want {
		t.Fatalf("query: want=%q got=%q", want, f.queries)
	}
}

func TestKuzuCatalogWrapsErrors(t *testing.T) {
	log, _ := logger.New("nop")
	boom := errors.New("boom")
	cat, _ := NewKuzuCatalog(log, &fakeKuzu{err: boom})
	_, err := cat.NodeTables(context.Background())
	if !errors.Is(err, boom) || !strings.HasPrefix(err.Error(), "kuzu catalog:") {
		t.Fatalf("want wrapped boom got=%v", err)
	}
}

func TestKuzuRunnerNormalizesRows(t *testing.T) {
	q := "MATCH (p:Person) RETURN p.id, p.firstName"
	runner, err := NewKuzuRunner(&fakeKuzu{rows: map[string][][]any{
		q: {{int32(7), "Ana"}, {uint64(8), "Bo"}},
	}})
	if err != nil {
		t.Fatalf("NewKuzuRunner: %v", err)
	}
	rows, err := runner.Run(context.Background(), q)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(rows) != 2 || rows[0][0] != int64(7) || rows[1][0] != int64(8) || rows[1][1] != "Bo" {
		t.Fatalf("rows: got=%#v", rows)
	}
}
