package handlers

import (
	"context"

	"github.com/yungbote/graphrag-cypher/internal/graphrag"
)

// Pipeline is the part of *graphrag.Pipeline the HTTP handlers use.
type Pipeline interface {
	RunOne(ctx context.Context, question string) graphrag.Outcome
	RunBatch(ctx context.Context, questions []string) ([]graphrag.Outcome, error)
	FullSchema(ctx context.Context) (graphrag.GraphSchema, error)
	Refresh(ctx context.Context) (graphrag.GraphSchema, error)
}
