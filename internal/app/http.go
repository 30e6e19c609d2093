package app

import (
	"context"

	"github.com/gin-gonic/gin"

	apphttp "github.com/yungbote/graphrag-cypher/internal/http"
	httpH "github.com/yungbote/graphrag-cypher/internal/http/handlers"
)

type Handlers struct {
	Health *httpH.HealthHandler
	Ask    *httpH.AskHandler
	Schema *httpH.SchemaHandler
	Runs   *httpH.RunsHandler
}

func (a *App) wireHandlers() Handlers {
	a.Log.Info("Wiring handlers...")
	h := Handlers{
		Health: httpH.NewHealthHandler(a.pingGraph),
		Ask:    httpH.NewAskHandler(a.Pipeline),
		Schema: httpH.NewSchemaHandler(a.Pipeline),
	}
	if a.Runs != nil {
		h.Runs = httpH.NewRunsHandler(a.Runs)
	}
	return h
}

func (a *App) pingGraph(ctx context.Context) error {
	switch {
	case a.Neo4j != nil && a.Neo4j.Driver != nil:
		return a.Neo4j.Driver.VerifyConnectivity(ctx)
	case a.Kuzu != nil:
		_, err := a.Kuzu.Query(ctx, "RETURN 1;")
		return err
	}
	return nil
}

func (a *App) routerConfig() apphttp.RouterConfig {
	h := a.wireHandlers()
	return apphttp.RouterConfig{
		Log:           a.Log,
		Metrics:       a.Metrics,
		AskHandler:    h.Ask,
		SchemaHandler: h.Schema,
		RunsHandler:   h.Runs,
		HealthHandler: h.Health,
	}
}

func (a *App) Router() *gin.Engine {
	return apphttp.NewRouter(a.routerConfig())
}

// Serve runs the HTTP API on Cfg.HTTPAddr until ctx is cancelled.
func (a *App) Serve(ctx context.Context) error {
	return apphttp.NewServer(a.routerConfig()).Run(ctx, a.Cfg.HTTPAddr, a.Cfg.ShutdownTimeout)
}
