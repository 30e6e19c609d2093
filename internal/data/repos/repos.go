package repos

import (
	"gorm.io/gorm"

	"github.com/yungbote/graphrag-cypher/internal/data/repos/runs"
	"github.com/yungbote/graphrag-cypher/internal/platform/logger"
)

type QuestionRunRepo = runs.QuestionRunRepo

func NewQuestionRunRepo(db *gorm.DB, baseLog *logger.Logger, model string) QuestionRunRepo {
	return runs.NewQuestionRunRepo(db, baseLog, model)
}
