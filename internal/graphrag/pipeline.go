package graphrag

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/sync/errgroup"

	"github.com/yungbote/graphrag-cypher/internal/observability"
	"github.com/yungbote/graphrag-cypher/internal/platform/ctxutil"
	"github.com/yungbote/graphrag-cypher/internal/platform/logger"
)

type Config struct {
	// MaxConcurrency bounds how many questions of a batch run at once.
	// Zero means every question starts immediately.
	MaxConcurrency int
	// Model is the model name, for logs only.
	Model string
}

// RunRecord is one finished question handed to a Recorder.
type RunRecord struct {
	BatchID  string
	Position int
	Outcome  Outcome
	Duration time.Duration
}

// Recorder persists finished questions. Recording errors are logged and never
// change an Outcome.
type Recorder interface {
	Record(ctx context.Context, rec RunRecord) error
}

type Deps struct {
	Log      *logger.Logger
	Catalog  Catalog
	Runner   Runner
	Model    Model
	Recorder Recorder
}

type Pipeline struct {
	cfg Config
	log *logger.Logger

	introspector *Introspector
	pruner       *Pruner
	generator    *Generator
	executor     *Executor
	synthesizer  *Synthesizer
	recorder     Recorder

	mu     sync.RWMutex
	schema *GraphSchema
}

func New(cfg Config, deps Deps) (*Pipeline, error) {
	if deps.Log == nil {
		return nil, errors.New("graphrag: logger required")
	}
	if cfg.MaxConcurrency < 0 {
		return nil, fmt.Errorf("graphrag: invalid max concurrency %d", cfg.MaxConcurrency)
	}
	introspector, err := NewIntrospector(deps.Log, deps.Catalog)
	if err != nil {
		return nil, err
	}
	pruner, err := NewPruner(deps.Log, deps.Model)
	if err != nil {
		return nil, err
	}
	generator, err := NewGenerator(deps.Log, deps.Model)
	if err != nil {
		return nil, err
	}
	executor, err := NewExecutor(deps.Log, deps.Runner)
	if err != nil {
		return nil, err
	}
	synthesizer, err := NewSynthesizer(deps.Log, deps.Model)
	if err != nil {
		return nil, err
	}
	return &Pipeline{
		cfg:          cfg,
		log:          deps.Log.With("component", "Pipeline", "model", cfg.Model),
		introspector: introspector,
		pruner:       pruner,
		generator:    generator,
		executor:     executor,
		synthesizer:  synthesizer,
		recorder:     deps.Recorder,
	}, nil
}

// FullSchema returns the introspected schema, fetching it on first use.
func (p *Pipeline) FullSchema(ctx context.Context) (GraphSchema, error) {
	p.mu.RLock()
	cached := p.schema
	p.mu.RUnlock()
	if cached != nil {
		return *cached, nil
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.schema != nil {
		return *p.schema, nil
	}
	s, err := p.introspector.Schema(ctx)
	if err != nil {
		return GraphSchema{}, err
	}
	p.schema = &s
	return s, nil
}

// Refresh re-introspects the database and replaces the cached schema.
// Batches already running keep the schema they started with.
func (p *Pipeline) Refresh(ctx context.Context) (GraphSchema, error) {
	s, err := p.introspector.Schema(ctx)
	if err != nil {
		return GraphSchema{}, err
	}
	p.mu.Lock()
	p.schema = &s
	p.mu.Unlock()
	return s, nil
}

// Ask answers one question. A nil answer with a nil error means the query
// produced no usable context.
func (p *Pipeline) Ask(ctx context.Context, question string) (*Answer, error) {
	o := p.RunOne(ctx, question)
	return o.Answer, o.Err
}

// RunOne runs a single question outside of any batch.
func (p *Pipeline) RunOne(ctx context.Context, question string) Outcome {
	full, err := p.FullSchema(ctx)
	if err != nil {
		return Outcome{Question: question, Err: fmt.Errorf("%w: %w", ErrSchemaUnavailable, err)}
	}
	return p.runTask(ctx, "", 0, question, full)
}

// RunBatch answers every question concurrently against one schema snapshot.
// Outcomes are positional. A failing question never affects the others; only a
// schema failure fails the batch.
func (p *Pipeline) RunBatch(ctx context.Context, questions []string) ([]Outcome, error) {
	full, err := p.FullSchema(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSchemaUnavailable, err)
	}
	batchID := uuid.New().String()
	observability.Current().IncBatch()

	ctx, span := observability.StartSpan(ctx, "graphrag.batch",
		attribute.String("graphrag.batch_id", batchID),
		attribute.Int("graphrag.questions", len(questions)),
	)
	defer span.End()

	p.log.Info("batch started", "batch_id", batchID, "questions", len(questions), "max_concurrency", p.cfg.MaxConcurrency)
	start := time.Now()

	outcomes := make([]Outcome, len(questions))
	// No WithContext: one question's failure must not cancel its siblings.
	var g errgroup.Group
	if p.cfg.MaxConcurrency > 0 {
		g.SetLimit(p.cfg.MaxConcurrency)
	}
	for i, q := range questions {
		g.Go(func() error {
			outcomes[i] = p.runTask(ctx, batchID, i, q, full)
			return nil
		})
	}
	_ = g.Wait()

	failed := 0
	for _, o := range outcomes {
		if o.Err != nil {
			failed++
		}
	}
	p.log.Info("batch finished",
		"batch_id", batchID,
		"questions", len(questions),
		"failed", failed,
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return outcomes, nil
}

func (p *Pipeline) runTask(ctx context.Context, batchID string, pos int, question string, full GraphSchema) (out Outcome) {
	ctx = ctxutil.WithQuestionData(ctx, &ctxutil.QuestionData{BatchID: batchID, Position: pos})
	metrics := observability.Current()
	metrics.InflightInc()
	start := time.Now()

	defer func() {
		if r := recover(); r != nil {
			p.log.Error("question task panicked", append(ctxutil.LogFields(ctx),
				"panic", r,
				"stack", string(debug.Stack()),
			)...)
			out = Outcome{Question: question, Err: fmt.Errorf("%w: %v", ErrTaskPanic, r)}
		}
		metrics.InflightDec()
		metrics.IncOutcome(out.Status())
		if out.Err != nil {
			p.log.Warn("question failed", append(ctxutil.LogFields(ctx), "error", out.Err)...)
		}
		p.record(ctx, RunRecord{BatchID: batchID, Position: pos, Outcome: out, Duration: time.Since(start)})
	}()

	return p.answer(ctx, question, full)
}

// answer runs prune, generate, execute and synthesize in that fixed order.
func (p *Pipeline) answer(ctx context.Context, question string, full GraphSchema) Outcome {
	out := Outcome{Question: question}
	if strings.TrimSpace(question) == "" {
		out.Err = ErrEmptyQuestion
		return out
	}

	pruned, err := p.pruner.Prune(ctx, question, full)
	if err != nil {
		out.Err = err
		return out
	}
	q, err := p.generator.Generate(ctx, question, pruned)
	if err != nil {
		out.Err = err
		return out
	}
	out.Query, out.Context = p.executor.Execute(ctx, q)

	out.Answer, out.Err = p.synthesizer.Synthesize(ctx, question, out.Query, out.Context)
	return out
}

func (p *Pipeline) record(ctx context.Context, rec RunRecord) {
	if p.recorder == nil {
		return
	}
	defer func() {
		if r := recover(); r != nil {
			p.log.Error("run recorder panicked", "panic", r)
		}
	}()
	if err := p.recorder.Record(context.WithoutCancel(ctx), rec); err != nil {
		p.log.Warn("run record failed", append(ctxutil.LogFields(ctx), "error", err)...)
	}
}
