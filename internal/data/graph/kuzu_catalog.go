package graph

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/yungbote/graphrag-cypher/internal/graphrag"
	"github.com/yungbote/graphrag-cypher/internal/platform/logger"
)

// KuzuQuerier runs one statement against an embedded Kuzu database.
// *kuzudb.Client satisfies it.
type KuzuQuerier interface {
	Query(ctx context.Context, cypher string) ([][]any, error)
}

// KuzuCatalog reads node tables, rel tables and their FROM/TO pairs from the
// Kuzu catalog. Unlike Neo4j the connections are declared, so a relationship
// table with no instances still reports its endpoints.
type KuzuCatalog struct {
	db  KuzuQuerier
	log *logger.Logger
}

func NewKuzuCatalog(log *logger.Logger, db KuzuQuerier) (*KuzuCatalog, error) {
	if log == nil {
		return nil, fmt.Errorf("graph: logger required")
	}
	if db == nil {
		return nil, fmt.Errorf("graph: kuzu database required")
	}
	return &KuzuCatalog{db: db, log: log.With("repo", "KuzuCatalog")}, nil
}

var _ graphrag.Catalog = (*KuzuCatalog)(nil)

func (c *KuzuCatalog) NodeTables(ctx context.Context) ([]string, error) {
	return c.tables(ctx, "NODE")
}

func (c *KuzuCatalog) RelTables(ctx context.Context) ([]string, error) {
	return c.tables(ctx, "REL")
}

// TableInfo lists the declared properties of a node or rel table. Rows are
// (property id, name, type, ...).
func (c *KuzuCatalog) TableInfo(ctx context.Context, table string) ([]graphrag.Property, error) {
	rows, err := c.query(ctx, "CALL TABLE_INFO("+quoteKuzuString(table)+") RETURN *;")
	if err != nil {
		return nil, err
	}
	out := make([]graphrag.Property, 0, len(rows))
	for _, row := range rows {
		name := stringAt(row, 1)
		if name == "" {
			continue
		}
		out = append(out, graphrag.Property{Name: name, Type: stringAt(row, 2)})
	}
	return out, nil
}

// Connections lists the declared (source table, destination table) pairs of
// relTable.
func (c *KuzuCatalog) Connections(ctx context.Context, relTable string) ([]graphrag.Connection, error) {
	rows, err := c.query(ctx, "CALL SHOW_CONNECTION("+quoteKuzuString(relTable)+") RETURN *;")
	if err != nil {
		return nil, err
	}
	out := make([]graphrag.Connection, 0, len(rows))
	for _, row := range rows {
		from, to := stringAt(row, 0), stringAt(row, 1)
		if from == "" || to == "" {
			continue
		}
		out = append(out, graphrag.Connection{From: from, To: to})
	}
	return out, nil
}

// tables returns the names of every table of the given kind, sorted so the
// schema text is stable across runs.
func (c *KuzuCatalog) tables(ctx context.Context, kind string) ([]string, error) {
	rows, err := c.query(ctx, "CALL SHOW_TABLES() WHERE type = "+quoteKuzuString(kind)+" RETURN *;")
	if err != nil {
		return nil, err
	}
	out := make([]string, 0, len(rows))
	for _, row := range rows {
		if name := stringAt(row, 1); name != "" {
			out = append(out, name)
		}
	}
	sort.Strings(out)
	return out, nil
}

func (c *KuzuCatalog) query(ctx context.Context, cypher string) ([][]any, error) {
	rows, err := c.db.Query(ctx, cypher)
	if err != nil {
		c.log.Warn("catalog query failed", "query", cypher, "error", err)
		return nil, fmt.Errorf("kuzu catalog: %w", err)
	}
	return rows, nil
}

func quoteKuzuString(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	return "'" + strings.ReplaceAll(s, "'", `\'`) + "'"
}

func stringAt(row []any, i int) string {
	if i >= len(row) {
		return ""
	}
	s, _ := row[i].(string)
	return s
}
