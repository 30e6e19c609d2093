package graphrag

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"go.opentelemetry.io/otel/attribute"

	"github.com/yungbote/graphrag-cypher/internal/observability"
	"github.com/yungbote/graphrag-cypher/internal/platform/ctxutil"
	"github.com/yungbote/graphrag-cypher/internal/platform/logger"
)

// Runner executes one Cypher statement on a read-only connection and returns
// its rows.
type Runner interface {
	Run(ctx context.Context, cypher string) ([][]any, error)
}

type Executor struct {
	log    *logger.Logger
	runner Runner
}

func NewExecutor(log *logger.Logger, runner Runner) (*Executor, error) {
	if log == nil {
		return nil, errors.New("graphrag: logger required")
	}
	if runner == nil {
		return nil, errors.New("graphrag: runner required")
	}
	return &Executor{log: log.With("component", "Executor"), runner: runner}, nil
}

// Execute runs q and returns its text with the flattened rows. Database
// failures are logged and reported as a nil result, never as an error.
func (e *Executor) Execute(ctx context.Context, q Query) (string, QueryResult) {
	ctx, end := beginStage(ctx, stageExecute, attribute.String("db.statement", q.Query))

	rows, err := e.run(ctx, q.Query)
	if err != nil {
		end(err)
		observability.Current().IncQueryError()
		e.log.Warn("Error running query", append(ctxutil.LogFields(ctx),
			"query", q.Query,
			"error", err,
		)...)
		return q.Query, nil
	}
	end(nil)

	out := make(QueryResult, 0, len(rows))
	for _, row := range rows {
		out = append(out, row...)
	}
	e.log.Debug("query executed", append(ctxutil.LogFields(ctx),
		"rows", len(rows),
		"values", len(out),
	)...)
	return q.Query, out
}

func (e *Executor) run(ctx context.Context, cypher string) (rows [][]any, err error) {
	defer func() {
		if r := recover(); r != nil {
			rows, err = nil, fmt.Errorf("runner panic: %v", r)
		}
	}()
	return e.runner.Run(ctx, cypher)
}

// RenderContext formats a result for the answer prompt.
func RenderContext(r QueryResult) string {
	if r == nil {
		return "null"
	}
	b, err := json.Marshal(r.Encodable())
	if err != nil {
		return fmt.Sprint([]any(r))
	}
	return string(b)
}
