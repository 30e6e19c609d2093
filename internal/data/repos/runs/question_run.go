package runs

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	types "github.com/yungbote/graphrag-cypher/internal/domain"
	"github.com/yungbote/graphrag-cypher/internal/graphrag"
	"github.com/yungbote/graphrag-cypher/internal/pkg/dbctx"
	"github.com/yungbote/graphrag-cypher/internal/platform/logger"
)

type QuestionRunRepo interface {
	Create(dbc dbctx.Context, runs []*types.QuestionRun) ([]*types.QuestionRun, error)
	ListByBatch(dbc dbctx.Context, batchID uuid.UUID) ([]*types.QuestionRun, error)
	ListRecent(dbc dbctx.Context, limit int) ([]*types.QuestionRun, error)
	// Record persists one pipeline outcome.
	Record(ctx context.Context, rec graphrag.RunRecord) error
}

type questionRunRepo struct {
	db    *gorm.DB
	log   *logger.Logger
	model string
}

// NewQuestionRunRepo returns a repo that also serves as the pipeline's
// graphrag.Recorder. model is stored on every recorded row.
func NewQuestionRunRepo(db *gorm.DB, baseLog *logger.Logger, model string) QuestionRunRepo {
	return &questionRunRepo{
		db:    db,
		log:   baseLog.With("repo", "QuestionRunRepo"),
		model: model,
	}
}

func (r *questionRunRepo) Create(dbc dbctx.Context, runs []*types.QuestionRun) ([]*types.QuestionRun, error) {
	if len(runs) == 0 {
		return []*types.QuestionRun{}, nil
	}
	if err := dbc.DB(r.db).Create(&runs).Error; err != nil {
		return nil, err
	}
	return runs, nil
}

func (r *questionRunRepo) ListByBatch(dbc dbctx.Context, batchID uuid.UUID) ([]*types.QuestionRun, error) {
	var out []*types.QuestionRun
	if batchID == uuid.Nil {
		return out, nil
	}
	if err := dbc.DB(r.db).
		Where("batch_id = ?", batchID).
		Order("position ASC").
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *questionRunRepo) ListRecent(dbc dbctx.Context, limit int) ([]*types.QuestionRun, error) {
	if limit <= 0 || limit > 500 {
		limit = 50
	}
	var out []*types.QuestionRun
	if err := dbc.DB(r.db).
		Order("created_at DESC").
		Limit(limit).
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *questionRunRepo) Record(ctx context.Context, rec graphrag.RunRecord) error {
	row, err := r.toRow(rec)
	if err != nil {
		return err
	}
	_, err = r.Create(dbctx.Context{Ctx: ctx}, []*types.QuestionRun{row})
	return err
}

func (r *questionRunRepo) toRow(rec graphrag.RunRecord) (*types.QuestionRun, error) {
	// Single questions outside a batch get a batch of their own.
	batchID := uuid.New()
	if s := strings.TrimSpace(rec.BatchID); s != "" {
		id, err := uuid.Parse(s)
		if err != nil {
			return nil, fmt.Errorf("invalid batch id %q: %w", s, err)
		}
		batchID = id
	}
	o := rec.Outcome
	contextJSON, err := json.Marshal(o.Context.Encodable())
	if err != nil {
		return nil, fmt.Errorf("marshal context: %w", err)
	}
	row := &types.QuestionRun{
		BatchID:    batchID,
		Position:   rec.Position,
		Question:   o.Question,
		Query:      o.Query,
		Context:    datatypes.JSON(contextJSON),
		Status:     o.Status(),
		Model:      r.model,
		DurationMS: rec.Duration.Milliseconds(),
	}
	if o.Answer != nil {
		ans := o.Answer.Response
		row.Answer = &ans
	}
	if o.Err != nil {
		row.Error = o.Err.Error()
	}
	return row, nil
}
