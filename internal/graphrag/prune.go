package graphrag

import (
	"context"
	"errors"
	"fmt"

	"github.com/yungbote/graphrag-cypher/internal/platform/ctxutil"
	"github.com/yungbote/graphrag-cypher/internal/platform/logger"
)

type Pruner struct {
	log   *logger.Logger
	model Model
}

func NewPruner(log *logger.Logger, model Model) (*Pruner, error) {
	if log == nil {
		return nil, errors.New("graphrag: logger required")
	}
	if model == nil {
		return nil, errors.New("graphrag: model required")
	}
	return &Pruner{log: log.With("component", "Pruner"), model: model}, nil
}

// Prune asks the model for the subset of full relevant to question. An empty
// subset is returned as-is.
func (p *Pruner) Prune(ctx context.Context, question string, full GraphSchema) (out GraphSchema, err error) {
	ctx, end := beginStage(ctx, stagePrune)
	defer func() { end(err) }()

	pruned, err := p.model.PruneSchema(ctx, question, full)
	if err != nil {
		return GraphSchema{}, fmt.Errorf("prune schema: %w", err)
	}
	out = pruned.normalized()
	if len(out.Nodes) == 0 && len(out.Edges) == 0 {
		p.log.Warn("pruned schema is empty", ctxutil.LogFields(ctx)...)
	}
	p.log.Debug("schema pruned", append(ctxutil.LogFields(ctx),
		"nodes", len(out.Nodes),
		"edges", len(out.Edges),
	)...)
	return out, nil
}
