package runs

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// QuestionRun is one answered (or failed) question. Status holds one of the
// graphrag.Status* values. Context holds the flattened query result as JSON
// and is "null" when the query failed.
type QuestionRun struct {
	ID         uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	BatchID    uuid.UUID      `gorm:"type:uuid;not null;index:idx_question_run_batch_pos,priority:1" json:"batch_id"`
	Position   int            `gorm:"column:position;not null;index:idx_question_run_batch_pos,priority:2" json:"position"`
	Question   string         `gorm:"column:question;not null" json:"question"`
	Query      string         `gorm:"column:query" json:"query,omitempty"`
	Context    datatypes.JSON `gorm:"column:context" json:"context"`
	Answer     *string        `gorm:"column:answer" json:"answer,omitempty"`
	Status     string         `gorm:"column:status;not null;index" json:"status"`
	Error      string         `gorm:"column:error" json:"error,omitempty"`
	Model      string         `gorm:"column:model" json:"model,omitempty"`
	DurationMS int64          `gorm:"column:duration_ms;not null;default:0" json:"duration_ms"`
	CreatedAt  time.Time      `gorm:"not null;index" json:"created_at"`
	UpdatedAt  time.Time      `gorm:"not null" json:"updated_at"`
	DeletedAt  gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`
}

func (QuestionRun) TableName() string { return "question_run" }

func (r *QuestionRun) BeforeCreate(tx *gorm.DB) error {
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	return nil
}
