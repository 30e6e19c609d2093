package app

import (
	"strings"
	"time"

	dbpkg "github.com/yungbote/graphrag-cypher/internal/data/db"
	"github.com/yungbote/graphrag-cypher/internal/observability"
	"github.com/yungbote/graphrag-cypher/internal/platform/envutil"
	"github.com/yungbote/graphrag-cypher/internal/platform/kuzudb"
	"github.com/yungbote/graphrag-cypher/internal/platform/llm"
	"github.com/yungbote/graphrag-cypher/internal/platform/logger"
	"github.com/yungbote/graphrag-cypher/internal/platform/neo4jdb"
	"github.com/yungbote/graphrag-cypher/internal/questions"
)

const (
	GraphBackendNeo4j = "neo4j"
	GraphBackendKuzu  = "kuzu"
)

type Config struct {
	LogMode string

	// GraphBackend selects the database questions run against.
	GraphBackend string

	// MaxConcurrency bounds questions in flight per batch; 0 = unbounded.
	MaxConcurrency int

	HTTPAddr        string
	MetricsAddr     string
	ShutdownTimeout time.Duration
	QuestionsFile   string

	Neo4j  neo4jdb.Config
	Kuzu   kuzudb.Config
	LLM    llm.Config
	RunLog dbpkg.Config
	Otel   observability.OtelConfig
}

func LoadConfig(log *logger.Logger) Config {
	cfg := Config{
		LogMode:         envutil.String("LOG_MODE", "development"),
		GraphBackend:    strings.ToLower(strings.TrimSpace(envutil.String("GRAPH_BACKEND", GraphBackendNeo4j))),
		MaxConcurrency:  envutil.Int("GRAPHRAG_MAX_CONCURRENCY", 0),
		HTTPAddr:        envutil.String("HTTP_ADDR", ":8080"),
		MetricsAddr:     envutil.String("METRICS_ADDR", ""),
		ShutdownTimeout: envutil.Seconds("SHUTDOWN_TIMEOUT_SECONDS", 15*time.Second),
		QuestionsFile:   envutil.String(questions.FileEnv, ""),
		Neo4j:           neo4jdb.ConfigFromEnv(),
		Kuzu:            kuzudb.ConfigFromEnv(),
		LLM:             llm.ConfigFromEnv(),
		RunLog:          dbpkg.ConfigFromEnv(),
		Otel: observability.OtelConfig{
			ServiceName: envutil.String("OTEL_SERVICE_NAME", "graphrag"),
			Environment: envutil.String("APP_ENV", ""),
			Version:     envutil.String("APP_VERSION", ""),
		},
	}
	if cfg.MaxConcurrency < 0 {
		if log != nil {
			log.Warn("ignoring negative GRAPHRAG_MAX_CONCURRENCY", "value", cfg.MaxConcurrency)
		}
		cfg.MaxConcurrency = 0
	}
	if log != nil {
		log.Debug("config loaded",
			"graph_backend", cfg.GraphBackend,
			"max_concurrency", cfg.MaxConcurrency,
			"llm_model", cfg.LLM.Model,
			"llm_base_url", cfg.LLM.BaseURL,
			"neo4j_uri", cfg.Neo4j.URI,
			"run_log_driver", cfg.RunLog.Driver,
		)
	}
	return cfg
}
