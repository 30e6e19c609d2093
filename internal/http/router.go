package http

import (
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	httpH "github.com/yungbote/graphrag-cypher/internal/http/handlers"
	httpMW "github.com/yungbote/graphrag-cypher/internal/http/middleware"
	"github.com/yungbote/graphrag-cypher/internal/observability"
	"github.com/yungbote/graphrag-cypher/internal/platform/logger"
)

type RouterConfig struct {
	Log     *logger.Logger
	Metrics *observability.Metrics

	AskHandler    *httpH.AskHandler
	SchemaHandler *httpH.SchemaHandler
	RunsHandler   *httpH.RunsHandler
	HealthHandler *httpH.HealthHandler
}

func NewRouter(cfg RouterConfig) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(otelgin.Middleware("graphrag"))
	r.Use(httpMW.AttachTraceContext())
	if cfg.Log != nil {
		r.Use(httpMW.RequestLogger(cfg.Log))
	}
	if cfg.Metrics != nil {
		r.Use(httpMW.Metrics(cfg.Metrics))
	}
	r.Use(httpMW.CORS())

	// Health
	if cfg.HealthHandler != nil {
		r.GET("/healthcheck", cfg.HealthHandler.HealthCheck)
	}
	if cfg.Metrics != nil {
		r.GET("/metrics", gin.WrapF(cfg.Metrics.WriteHTTP))
	}

	api := r.Group("/api")
	{
		if cfg.AskHandler != nil {
			api.POST("/ask", cfg.AskHandler.Ask)
			api.POST("/batch", cfg.AskHandler.Batch)
		}

		if cfg.SchemaHandler != nil {
			api.GET("/schema", cfg.SchemaHandler.GetSchema)
			api.POST("/schema/refresh", cfg.SchemaHandler.RefreshSchema)
		}

		// Run log (only when persistence is configured)
		if cfg.RunsHandler != nil {
			api.GET("/runs", cfg.RunsHandler.ListRuns)
		}
	}

	return r
}
