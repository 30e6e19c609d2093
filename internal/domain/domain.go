package domain

import (
	"github.com/yungbote/graphrag-cypher/internal/domain/runs"
	"github.com/yungbote/graphrag-cypher/internal/graphrag"
)

const (
	RunStatusAnswered  = graphrag.StatusAnswered
	RunStatusNoContext = graphrag.StatusNoContext
	RunStatusFailed    = graphrag.StatusFailed
)

type QuestionRun = runs.QuestionRun
