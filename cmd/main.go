package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/yungbote/graphrag-cypher/internal/app"
	"github.com/yungbote/graphrag-cypher/internal/graphrag"
	"github.com/yungbote/graphrag-cypher/internal/questions"
)

// Runs one batch over the configured question list and prints one JSON outcome
// per line, in input order. Failed questions are part of the output; the exit
// code is non-zero only when the batch itself cannot run.
func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "graphrag: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	set, err := questions.LoadFromEnv()
	if err != nil {
		return fmt.Errorf("load questions: %w", err)
	}

	application, err := app.New(ctx)
	if err != nil {
		return fmt.Errorf("init app: %w", err)
	}
	defer application.Close()
	application.StartMetrics(ctx)

	application.Log.Info("running batch", "question_set", set.Name, "questions", len(set.Questions))
	outcomes, err := application.Pipeline.RunBatch(ctx, set.Questions)
	if err != nil {
		return err
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetEscapeHTML(false)
	for i, o := range outcomes {
		if err := enc.Encode(o); err != nil {
			application.Log.Warn("outcome not printable", "position", i, "question", o.Question, "error", err)
			_ = enc.Encode(graphrag.Outcome{Question: o.Question, Err: fmt.Errorf("encode outcome: %w", err)})
		}
	}
	return nil
}
