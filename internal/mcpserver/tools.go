package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/yungbote/graphrag-cypher/internal/graphrag"
)

type AskArgs struct {
	Question string `json:"question" jsonschema:"A natural-language question about the graph"`
}

type AskBatchArgs struct {
	Questions []string `json:"questions" jsonschema:"Questions to answer concurrently; results keep input order"`
}

func (s *Server) registerTools() {
	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name:        "ask_graph",
		Description: "Answers a question by generating and running a Cypher query against the graph",
	}, func(ctx context.Context, req *mcp.CallToolRequest, args AskArgs) (*mcp.CallToolResult, any, error) {
		q := strings.TrimSpace(args.Question)
		if q == "" {
			return errorResult("question must not be empty"), nil, nil
		}
		o := s.pipeline.RunOne(ctx, q)
		if o.Err != nil {
			s.log.Warn("ask_graph failed", "error", o.Err)
			return errorResult(fmt.Sprintf("Question failed: %v", o.Err)), nil, nil
		}
		return jsonResult(o)
	})

	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name:        "ask_graph_batch",
		Description: "Answers several questions concurrently; a failed question is reported in its own outcome",
	}, func(ctx context.Context, req *mcp.CallToolRequest, args AskBatchArgs) (*mcp.CallToolResult, any, error) {
		if len(args.Questions) == 0 {
			return errorResult("questions must not be empty"), nil, nil
		}
		if len(args.Questions) > maxBatchQuestions {
			return errorResult(fmt.Sprintf("at most %d questions per batch", maxBatchQuestions)), nil, nil
		}
		outcomes, err := s.pipeline.RunBatch(ctx, args.Questions)
		if err != nil {
			return errorResult(fmt.Sprintf("Batch failed: %v", err)), nil, nil
		}
		return jsonResult(map[string][]graphrag.Outcome{"outcomes": outcomes})
	})
}

func jsonResult(v any) (*mcp.CallToolResult, any, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return errorResult(fmt.Sprintf("encode result: %v", err)), nil, nil
	}
	return textResult(string(b)), nil, nil
}

func textResult(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: text}},
	}
}

func errorResult(msg string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: msg}},
		IsError: true,
	}
}
