package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/graphrag-cypher/internal/app"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if os.Getenv("GIN_MODE") == "" {
		gin.SetMode(gin.ReleaseMode)
	}

	application, err := app.New(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "init app: %v\n", err)
		os.Exit(1)
	}
	defer application.Close()

	// Warm the schema cache so the first request does not pay for introspection.
	if _, err := application.Pipeline.FullSchema(ctx); err != nil {
		application.Log.Warn("schema warmup failed", "error", err)
	}

	if err := application.Serve(ctx); err != nil {
		application.Log.Error("http server failed", "error", err)
		application.Close()
		os.Exit(1)
	}
}
