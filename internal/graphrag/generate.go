package graphrag

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/yungbote/graphrag-cypher/internal/platform/ctxutil"
	"github.com/yungbote/graphrag-cypher/internal/platform/logger"
)

var lineBreaks = regexp.MustCompile(`[\r\n]+`)

type Generator struct {
	log   *logger.Logger
	model Model
}

func NewGenerator(log *logger.Logger, model Model) (*Generator, error) {
	if log == nil {
		return nil, errors.New("graphrag: logger required")
	}
	if model == nil {
		return nil, errors.New("graphrag: model required")
	}
	return &Generator{log: log.With("component", "Generator"), model: model}, nil
}

// Generate translates question into a single-line Cypher query over pruned.
func (g *Generator) Generate(ctx context.Context, question string, pruned GraphSchema) (q Query, err error) {
	ctx, end := beginStage(ctx, stageGenerate)
	defer func() { end(err) }()

	draft, err := g.model.GenerateQuery(ctx, question, pruned)
	if err != nil {
		return Query{}, fmt.Errorf("generate query: %w", err)
	}
	q = Query{Query: SingleLine(draft.Query.Query)}
	if q.Query == "" {
		return Query{}, ErrEmptyQuery
	}
	g.log.Debug("query generated", append(ctxutil.LogFields(ctx),
		"query", q.Query,
		"reasoning", draft.Reasoning,
	)...)
	return q, nil
}

// SingleLine replaces every run of CR/LF characters with one space and trims
// the result.
func SingleLine(s string) string {
	return strings.TrimSpace(lineBreaks.ReplaceAllString(s, " "))
}
