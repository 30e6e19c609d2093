package graph

import (
	"context"
	"fmt"
	"time"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j/dbtype"

	"github.com/yungbote/graphrag-cypher/internal/graphrag"
	"github.com/yungbote/graphrag-cypher/internal/platform/neo4jdb"
)

// Neo4jRunner runs generated Cypher in auto-commit read sessions. Statements
// are never retried.
type Neo4jRunner struct {
	client *neo4jdb.Client
}

func NewNeo4jRunner(client *neo4jdb.Client) (*Neo4jRunner, error) {
	if client == nil || client.Driver == nil {
		return nil, fmt.Errorf("graph: neo4j client required")
	}
	return &Neo4jRunner{client: client}, nil
}

var _ graphrag.Runner = (*Neo4jRunner)(nil)

func (r *Neo4jRunner) Run(ctx context.Context, cypher string) ([][]any, error) {
	session := r.client.ReadSession(ctx)
	defer session.Close(ctx)

	res, err := session.Run(ctx, cypher, nil)
	if err != nil {
		return nil, err
	}
	records, err := res.Collect(ctx)
	if err != nil {
		return nil, err
	}
	rows := make([][]any, 0, len(records))
	for _, rec := range records {
		row := make([]any, len(rec.Values))
		for i, v := range rec.Values {
			row[i] = NormalizeValue(v)
		}
		rows = append(rows, row)
	}
	return rows, nil
}

// NormalizeValue converts driver values into JSON-friendly scalars. Nodes and
// relationships become their property maps; temporal values and non-finite
// floats become strings.
func NormalizeValue(v any) any {
	switch t := v.(type) {
	case nil, bool, int64, string:
		return t
	case float64:
		return finiteOrString(t)
	case dbtype.Node:
		return normalizeMap(t.Props)
	case dbtype.Relationship:
		return normalizeMap(t.Props)
	case dbtype.Path:
		nodes := make([]any, len(t.Nodes))
		for i, n := range t.Nodes {
			nodes[i] = normalizeMap(n.Props)
		}
		return nodes
	case time.Time:
		return t.Format(time.RFC3339Nano)
	case dbtype.Date:
		return time.Time(t).Format("2006-01-02")
	case dbtype.LocalDateTime:
		return time.Time(t).Format("2006-01-02T15:04:05.999999999")
	case dbtype.LocalTime:
		return time.Time(t).Format("15:04:05.999999999")
	case dbtype.Time:
		return time.Time(t).Format("15:04:05.999999999Z07:00")
	case dbtype.Duration:
		return t.String()
	case dbtype.Point2D:
		return t.String()
	case dbtype.Point3D:
		return t.String()
	case []any:
		out := make([]any, len(t))
		for i, item := range t {
			out[i] = NormalizeValue(item)
		}
		return out
	case map[string]any:
		return normalizeMap(t)
	case []byte:
		return string(t)
	default:
		return t
	}
}

func normalizeMap(m map[string]any) map[string]any {
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = NormalizeValue(v)
	}
	return out
}
