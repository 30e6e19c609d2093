package graphrag

import (
	"context"
	"errors"
	"fmt"

	"github.com/yungbote/graphrag-cypher/internal/platform/logger"
)

// Connection is one (source label, target label) pair of a relationship table.
type Connection struct {
	From string
	To   string
}

// Catalog is the read-only view of the database catalog used to build a
// GraphSchema. Implementations must not mutate the database.
type Catalog interface {
	NodeTables(ctx context.Context) ([]string, error)
	RelTables(ctx context.Context) ([]string, error)
	TableInfo(ctx context.Context, table string) ([]Property, error)
	Connections(ctx context.Context, relTable string) ([]Connection, error)
}

type Introspector struct {
	log     *logger.Logger
	catalog Catalog
}

func NewIntrospector(log *logger.Logger, catalog Catalog) (*Introspector, error) {
	if log == nil {
		return nil, errors.New("graphrag: logger required")
	}
	if catalog == nil {
		return nil, errors.New("graphrag: catalog required")
	}
	return &Introspector{log: log.With("component", "Introspector"), catalog: catalog}, nil
}

// Schema flattens the catalog into a GraphSchema. Edges are emitted once per
// (relationship table, connection) pair in catalog order.
func (i *Introspector) Schema(ctx context.Context) (out GraphSchema, err error) {
	ctx, end := beginStage(ctx, stageIntrospect)
	defer func() { end(err) }()

	nodeTables, err := i.catalog.NodeTables(ctx)
	if err != nil {
		return GraphSchema{}, fmt.Errorf("list node tables: %w", err)
	}
	relTables, err := i.catalog.RelTables(ctx)
	if err != nil {
		return GraphSchema{}, fmt.Errorf("list rel tables: %w", err)
	}

	out = GraphSchema{
		Nodes: make([]Node, 0, len(nodeTables)),
		Edges: make([]Edge, 0, len(relTables)),
	}
	for _, label := range nodeTables {
		props, err := i.catalog.TableInfo(ctx, label)
		if err != nil {
			return GraphSchema{}, fmt.Errorf("table info %q: %w", label, err)
		}
		out.Nodes = append(out.Nodes, Node{Label: label, Properties: nonNilProps(props)})
	}

	for _, rel := range relTables {
		conns, err := i.catalog.Connections(ctx, rel)
		if err != nil {
			return GraphSchema{}, fmt.Errorf("connections %q: %w", rel, err)
		}
		if len(conns) == 0 {
			continue
		}
		props, err := i.catalog.TableInfo(ctx, rel)
		if err != nil {
			return GraphSchema{}, fmt.Errorf("table info %q: %w", rel, err)
		}
		for _, c := range conns {
			out.Edges = append(out.Edges, Edge{
				Label:      rel,
				From:       Node{Label: c.From},
				To:         Node{Label: c.To},
				Properties: cloneProps(nonNilProps(props)),
			})
		}
	}

	i.log.Info("graph schema introspected",
		"nodes", len(out.Nodes),
		"edges", len(out.Edges),
	)
	return out, nil
}

func nonNilProps(p []Property) []Property {
	if p == nil {
		return []Property{}
	}
	return p
}
