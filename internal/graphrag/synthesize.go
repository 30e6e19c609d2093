package graphrag

import (
	"context"
	"errors"
	"fmt"

	"github.com/yungbote/graphrag-cypher/internal/platform/ctxutil"
	"github.com/yungbote/graphrag-cypher/internal/platform/logger"
)

const emptyContextMessage = "Empty results obtained from the graph database. Please retry with a different question."

type Synthesizer struct {
	log   *logger.Logger
	model Model
}

func NewSynthesizer(log *logger.Logger, model Model) (*Synthesizer, error) {
	if log == nil {
		return nil, errors.New("graphrag: logger required")
	}
	if model == nil {
		return nil, errors.New("graphrag: model required")
	}
	return &Synthesizer{log: log.With("component", "Synthesizer"), model: model}, nil
}

// Synthesize answers question from the query context. A nil context yields a
// nil answer and the model is not called.
func (s *Synthesizer) Synthesize(ctx context.Context, question string, queryText string, result QueryResult) (ans *Answer, err error) {
	if result == nil {
		s.log.Info(emptyContextMessage, ctxutil.LogFields(ctx)...)
		return nil, nil
	}
	ctx, end := beginStage(ctx, stageSynthesize)
	defer func() { end(err) }()

	a, err := s.model.SynthesizeAnswer(ctx, question, queryText, RenderContext(result))
	if err != nil {
		return nil, fmt.Errorf("synthesize answer: %w", err)
	}
	return &a, nil
}
