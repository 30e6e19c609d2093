package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/yungbote/graphrag-cypher/internal/app"
	"github.com/yungbote/graphrag-cypher/internal/mcpserver"
)

// Serves the MCP tools over stdio. Logs go to stderr; stdout carries protocol
// frames only.
func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	application, err := app.New(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "init app: %v\n", err)
		os.Exit(1)
	}
	defer application.Close()
	application.StartMetrics(ctx)

	srv, err := mcpserver.New(application.Log, application.Pipeline, application.Cfg.Otel.Version)
	if err != nil {
		application.Log.Error("init mcp server", "error", err)
		return
	}
	if err := srv.RunStdio(ctx); err != nil {
		application.Log.Error("mcp server stopped", "error", err)
		application.Close()
		os.Exit(1)
	}
}
