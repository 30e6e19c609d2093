package graphrag

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"github.com/yungbote/graphrag-cypher/internal/observability"
)

const (
	stageIntrospect = "introspect"
	stagePrune      = "prune"
	stageGenerate   = "generate"
	stageExecute    = "execute"
	stageSynthesize = "synthesize"
)

// beginStage opens a span for one pipeline stage; the returned func ends it
// and records the stage latency.
func beginStage(ctx context.Context, stage string, attrs ...attribute.KeyValue) (context.Context, func(error)) {
	ctx, span := observability.StartSpan(ctx, "graphrag."+stage, attrs...)
	start := time.Now()
	return ctx, func(err error) {
		status := "ok"
		if err != nil {
			status = "error"
		}
		observability.Current().ObserveStage(stage, status, time.Since(start))
		observability.EndSpan(span, err)
	}
}
