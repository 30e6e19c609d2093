package graph

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"

	"github.com/yungbote/graphrag-cypher/internal/graphrag"
	"github.com/yungbote/graphrag-cypher/internal/platform/logger"
	"github.com/yungbote/graphrag-cypher/internal/platform/neo4jdb"
)

const (
	cypherNodeTables = `CALL db.labels() YIELD label RETURN label ORDER BY label`
	cypherRelTables  = `CALL db.relationshipTypes() YIELD relationshipType RETURN relationshipType ORDER BY relationshipType`

	cypherNodeProps = `
CALL db.schema.nodeTypeProperties() YIELD nodeLabels, propertyName, propertyTypes
WITH nodeLabels, propertyName, propertyTypes
WHERE $table IN nodeLabels AND propertyName IS NOT NULL
RETURN DISTINCT propertyName, propertyTypes
ORDER BY propertyName`

	cypherRelProps = `
CALL db.schema.relTypeProperties() YIELD relType, propertyName, propertyTypes
WITH relType, propertyName, propertyTypes
WHERE relType = $relType AND propertyName IS NOT NULL
RETURN DISTINCT propertyName, propertyTypes
ORDER BY propertyName`

	cypherConnections = `
MATCH (a)-[r]->(b) WHERE type(r) = $rel
UNWIND labels(a) AS f
UNWIND labels(b) AS t
RETURN DISTINCT f, t
ORDER BY f, t`
)

type tableKind int

const (
	kindUnknown tableKind = iota
	kindNode
	kindRel
)

// Neo4jCatalog reads the label/relationship catalog through read-only sessions.
type Neo4jCatalog struct {
	client *neo4jdb.Client
	log    *logger.Logger

	mu    sync.Mutex
	kinds map[string]tableKind
}

func NewNeo4jCatalog(log *logger.Logger, client *neo4jdb.Client) (*Neo4jCatalog, error) {
	if log == nil {
		return nil, fmt.Errorf("graph: logger required")
	}
	if client == nil || client.Driver == nil {
		return nil, fmt.Errorf("graph: neo4j client required")
	}
	return &Neo4jCatalog{
		client: client,
		log:    log.With("repo", "Neo4jCatalog"),
		kinds:  map[string]tableKind{},
	}, nil
}

var _ graphrag.Catalog = (*Neo4jCatalog)(nil)

func (c *Neo4jCatalog) NodeTables(ctx context.Context) ([]string, error) {
	out, err := c.stringColumn(ctx, cypherNodeTables, nil, "label")
	if err != nil {
		return nil, err
	}
	c.remember(out, kindNode)
	return out, nil
}

func (c *Neo4jCatalog) RelTables(ctx context.Context) ([]string, error) {
	out, err := c.stringColumn(ctx, cypherRelTables, nil, "relationshipType")
	if err != nil {
		return nil, err
	}
	c.remember(out, kindRel)
	return out, nil
}

// TableInfo lists the properties of a label or relationship type. The type of
// a property seen with several types is the types joined by "|".
func (c *Neo4jCatalog) TableInfo(ctx context.Context, table string) ([]graphrag.Property, error) {
	switch c.kind(table) {
	case kindNode:
		return c.props(ctx, cypherNodeProps, map[string]any{"table": table})
	case kindRel:
		return c.props(ctx, cypherRelProps, map[string]any{"relType": relTypeKey(table)})
	}
	props, err := c.props(ctx, cypherNodeProps, map[string]any{"table": table})
	if err != nil || len(props) > 0 {
		return props, err
	}
	return c.props(ctx, cypherRelProps, map[string]any{"relType": relTypeKey(table)})
}

// Connections returns the distinct (start label, end label) pairs of relTable
// exactly as stored.
func (c *Neo4jCatalog) Connections(ctx context.Context, relTable string) ([]graphrag.Connection, error) {
	records, err := c.collect(ctx, cypherConnections, map[string]any{"rel": relTable})
	if err != nil {
		return nil, err
	}
	out := make([]graphrag.Connection, 0, len(records))
	for _, rec := range records {
		from, _ := rec.Get("f")
		to, _ := rec.Get("t")
		fs, _ := from.(string)
		ts, _ := to.(string)
		if fs == "" || ts == "" {
			continue
		}
		out = append(out, graphrag.Connection{From: fs, To: ts})
	}
	return out, nil
}

func (c *Neo4jCatalog) props(ctx context.Context, cypher string, params map[string]any) ([]graphrag.Property, error) {
	records, err := c.collect(ctx, cypher, params)
	if err != nil {
		return nil, err
	}
	out := make([]graphrag.Property, 0, len(records))
	for _, rec := range records {
		name, _ := rec.Get("propertyName")
		types, _ := rec.Get("propertyTypes")
		n, _ := name.(string)
		if n == "" {
			continue
		}
		out = append(out, graphrag.Property{Name: n, Type: joinTypes(types)})
	}
	return out, nil
}

func (c *Neo4jCatalog) stringColumn(ctx context.Context, cypher string, params map[string]any, key string) ([]string, error) {
	records, err := c.collect(ctx, cypher, params)
	if err != nil {
		return nil, err
	}
	out := make([]string, 0, len(records))
	for _, rec := range records {
		v, _ := rec.Get(key)
		if s, ok := v.(string); ok && s != "" {
			out = append(out, s)
		}
	}
	return out, nil
}

func (c *Neo4jCatalog) collect(ctx context.Context, cypher string, params map[string]any) ([]*neo4j.Record, error) {
	session := c.client.ReadSession(ctx)
	defer session.Close(ctx)

	res, err := session.ExecuteRead(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		r, err := tx.Run(ctx, cypher, params)
		if err != nil {
			return nil, err
		}
		return r.Collect(ctx)
	})
	if err != nil {
		c.log.Warn("catalog query failed", "error", err)
		return nil, fmt.Errorf("neo4j catalog: %w", err)
	}
	records, _ := res.([]*neo4j.Record)
	return records, nil
}

func (c *Neo4jCatalog) remember(tables []string, k tableKind) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, t := range tables {
		c.kinds[t] = k
	}
}

func (c *Neo4jCatalog) kind(table string) tableKind {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.kinds[table]
}

// relTypeKey matches the ":`TYPE`" form db.schema.relTypeProperties yields.
func relTypeKey(rel string) string {
	return ":`" + strings.ReplaceAll(rel, "`", "``") + "`"
}

func joinTypes(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case []any:
		parts := make([]string, 0, len(t))
		for _, p := range t {
			if s, ok := p.(string); ok && s != "" {
				parts = append(parts, s)
			}
		}
		return strings.Join(parts, "|")
	case []string:
		return strings.Join(t, "|")
	default:
		return ""
	}
}
