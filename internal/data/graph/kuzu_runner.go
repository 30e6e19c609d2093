package graph

import (
	"context"
	"fmt"
	"math"
	"strconv"
	"time"

	"github.com/kuzudb/go-kuzu"

	"github.com/yungbote/graphrag-cypher/internal/graphrag"
)

// KuzuRunner runs generated Cypher against a database opened read-only, so a
// write statement fails inside Kuzu instead of mutating the graph.
type KuzuRunner struct {
	db KuzuQuerier
}

func NewKuzuRunner(db KuzuQuerier) (*KuzuRunner, error) {
	if db == nil {
		return nil, fmt.Errorf("graph: kuzu database required")
	}
	return &KuzuRunner{db: db}, nil
}

var _ graphrag.Runner = (*KuzuRunner)(nil)

func (r *KuzuRunner) Run(ctx context.Context, cypher string) ([][]any, error) {
	rows, err := r.db.Query(ctx, cypher)
	if err != nil {
		return nil, err
	}
	out := make([][]any, 0, len(rows))
	for _, row := range rows {
		vals := make([]any, len(row))
		for i, v := range row {
			vals[i] = NormalizeKuzuValue(v)
		}
		out = append(out, vals)
	}
	return out, nil
}

// NormalizeKuzuValue is the Kuzu counterpart of NormalizeValue. Integers widen
// to int64, nodes and rels become their property maps, and anything with a
// String method (uuid, decimal, interval) becomes that string.
func NormalizeKuzuValue(v any) any {
	switch t := v.(type) {
	case nil, bool, string, int64:
		return t
	case int8:
		return int64(t)
	case int16:
		return int64(t)
	case int32:
		return int64(t)
	case uint8:
		return int64(t)
	case uint16:
		return int64(t)
	case uint32:
		return int64(t)
	case uint64:
		if t > math.MaxInt64 {
			return strconv.FormatUint(t, 10)
		}
		return int64(t)
	case float32:
		return finiteOrString(float64(t))
	case float64:
		return finiteOrString(t)
	case time.Time:
		return t.Format(time.RFC3339Nano)
	case time.Duration:
		return t.String()
	case kuzu.Node:
		return normalizeKuzuMap(t.Properties)
	case kuzu.Relationship:
		return normalizeKuzuMap(t.Properties)
	case kuzu.RecursiveRelationship:
		nodes := make([]any, len(t.Nodes))
		for i, n := range t.Nodes {
			nodes[i] = normalizeKuzuMap(n.Properties)
		}
		return nodes
	case kuzu.InternalID:
		return fmt.Sprintf("%d:%d", t.TableID, t.Offset)
	case []kuzu.MapItem:
		out := make([]any, len(t))
		for i, item := range t {
			out[i] = map[string]any{
				"key":   NormalizeKuzuValue(item.Key),
				"value": NormalizeKuzuValue(item.Value),
			}
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i, item := range t {
			out[i] = NormalizeKuzuValue(item)
		}
		return out
	case map[string]any:
		return normalizeKuzuMap(t)
	case []byte:
		return string(t)
	case fmt.Stringer:
		return t.String()
	default:
		return t
	}
}

func normalizeKuzuMap(m map[string]any) map[string]any {
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = NormalizeKuzuValue(v)
	}
	return out
}

func finiteOrString(f float64) any {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return strconv.FormatFloat(f, 'g', -1, 64)
	}
	return f
}
