package db

import (
	"gorm.io/gorm"

	types "github.com/yungbote/graphrag-cypher/internal/domain"
)

func AutoMigrateAll(db *gorm.DB) error {
	return db.AutoMigrate(
		&types.QuestionRun{},
	)
}
