package app

import (
	"context"
	"fmt"
	"os"

	"gorm.io/gorm"

	dbpkg "github.com/yungbote/graphrag-cypher/internal/data/db"
	"github.com/yungbote/graphrag-cypher/internal/data/graph"
	"github.com/yungbote/graphrag-cypher/internal/data/repos"
	"github.com/yungbote/graphrag-cypher/internal/graphrag"
	"github.com/yungbote/graphrag-cypher/internal/observability"
	"github.com/yungbote/graphrag-cypher/internal/platform/envutil"
	"github.com/yungbote/graphrag-cypher/internal/platform/kuzudb"
	"github.com/yungbote/graphrag-cypher/internal/platform/llm"
	"github.com/yungbote/graphrag-cypher/internal/platform/logger"
	"github.com/yungbote/graphrag-cypher/internal/platform/neo4jdb"
)

type App struct {
	Log      *logger.Logger
	Cfg      Config
	Neo4j    *neo4jdb.Client
	Kuzu     *kuzudb.Client
	DB       *gorm.DB
	Runs     repos.QuestionRunRepo
	Metrics  *observability.Metrics
	Pipeline *graphrag.Pipeline

	shutdownOtel func(context.Context) error
}

// New wires every dependency of the pipeline. The run log is optional and only
// opened when RUNLOG_DRIVER is set.
func New(ctx context.Context) (*App, error) {
	log, err := logger.New(envutil.String("LOG_MODE", "development"))
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}

	log.Info("Loading environment variables...")
	cfg := LoadConfig(log)

	a := &App{Log: log, Cfg: cfg}
	a.shutdownOtel = observability.InitOTel(ctx, log, cfg.Otel)
	a.Metrics = observability.Init(log)

	catalog, runner, err := a.openGraph(cfg)
	if err != nil {
		a.Close()
		return nil, err
	}

	llmClient, err := llm.New(log, cfg.LLM)
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("init llm client: %w", err)
	}

	if cfg.RunLog.Enabled() {
		a.DB, err = dbpkg.Open(log, cfg.RunLog)
		if err != nil {
			a.Close()
			return nil, fmt.Errorf("init run log: %w", err)
		}
		a.Runs = repos.NewQuestionRunRepo(a.DB, log, llmClient.Model())
	}

	a.Pipeline, err = wirePipeline(log, cfg, catalog, runner, llmClient, a.Runs)
	if err != nil {
		a.Close()
		return nil, err
	}
	return a, nil
}

// openGraph connects the backend named by GRAPH_BACKEND and returns its
// catalog and runner.
func (a *App) openGraph(cfg Config) (graphrag.Catalog, graphrag.Runner, error) {
	switch cfg.GraphBackend {
	case "", GraphBackendNeo4j:
		client, err := neo4jdb.New(a.Log, cfg.Neo4j)
		if err != nil {
			return nil, nil, fmt.Errorf("init neo4j: %w", err)
		}
		a.Neo4j = client
		catalog, err := graph.NewNeo4jCatalog(a.Log, client)
		if err != nil {
			return nil, nil, err
		}
		runner, err := graph.NewNeo4jRunner(client)
		if err != nil {
			return nil, nil, err
		}
		return catalog, runner, nil
	case GraphBackendKuzu:
		client, err := kuzudb.New(a.Log, cfg.Kuzu)
		if err != nil {
			return nil, nil, fmt.Errorf("init kuzu: %w", err)
		}
		a.Kuzu = client
		catalog, err := graph.NewKuzuCatalog(a.Log, client)
		if err != nil {
			return nil, nil, err
		}
		runner, err := graph.NewKuzuRunner(client)
		if err != nil {
			return nil, nil, err
		}
		return catalog, runner, nil
	default:
		return nil, nil, fmt.Errorf("unknown GRAPH_BACKEND %q (want %s or %s)", cfg.GraphBackend, GraphBackendNeo4j, GraphBackendKuzu)
	}
}

func wirePipeline(log *logger.Logger, cfg Config, catalog graphrag.Catalog, runner graphrag.Runner, llmClient llm.Client, runs repos.QuestionRunRepo) (*graphrag.Pipeline, error) {
	log.Info("Wiring pipeline...")
	model, err := graphrag.NewStructuredModel(log, llmClient)
	if err != nil {
		return nil, err
	}
	deps := graphrag.Deps{
		Log:     log,
		Catalog: catalog,
		Runner:  runner,
		Model:   model,
	}
	if runs != nil {
		deps.Recorder = runs
	}
	return graphrag.New(graphrag.Config{
		MaxConcurrency: cfg.MaxConcurrency,
		Model:          llmClient.Model(),
	}, deps)
}

// StartMetrics serves /metrics on METRICS_ADDR for processes without the HTTP API.
func (a *App) StartMetrics(ctx context.Context) {
	if a == nil {
		return
	}
	a.Metrics.StartServer(ctx, a.Log, a.Cfg.MetricsAddr)
}

func (a *App) Close() {
	if a == nil {
		return
	}
	ctx := context.Background()
	if a.Neo4j != nil {
		if err := a.Neo4j.Close(ctx); err != nil && a.Log != nil {
			a.Log.Warn("neo4j close failed", "error", err)
		}
		a.Neo4j = nil
	}
	if a.Kuzu != nil {
		a.Kuzu.Close()
		a.Kuzu = nil
	}
	if a.DB != nil {
		if sqlDB, err := a.DB.DB(); err == nil {
			_ = sqlDB.Close()
		}
		a.DB = nil
	}
	if a.shutdownOtel != nil {
		if err := a.shutdownOtel(ctx); err != nil {
			fmt.Fprintf(os.Stderr, "otel shutdown: %v\n", err)
		}
		a.shutdownOtel = nil
	}
	if a.Log != nil {
		a.Log.Sync()
	}
}
