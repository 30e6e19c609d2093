package mcpserver

import (
	"context"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/yungbote/graphrag-cypher/internal/graphrag"
	"github.com/yungbote/graphrag-cypher/internal/platform/logger"
)

const (
	serverName = "graphrag-cypher"
	schemaURI  = "graphrag://schema"

	maxBatchQuestions = 100
)

// Pipeline is the part of *graphrag.Pipeline exposed over MCP.
type Pipeline interface {
	RunOne(ctx context.Context, question string) graphrag.Outcome
	RunBatch(ctx context.Context, questions []string) ([]graphrag.Outcome, error)
	FullSchema(ctx context.Context) (graphrag.GraphSchema, error)
}

// Server exposes question answering over the graph as MCP tools, plus the
// introspected schema as a resource.
type Server struct {
	log       *logger.Logger
	pipeline  Pipeline
	mcpServer *mcp.Server
}

func New(log *logger.Logger, pipeline Pipeline, version string) (*Server, error) {
	if log == nil {
		return nil, fmt.Errorf("mcpserver: logger required")
	}
	if pipeline == nil {
		return nil, fmt.Errorf("mcpserver: pipeline required")
	}
	if version == "" {
		version = "dev"
	}
	s := &Server{
		log:      log.With("component", "MCPServer"),
		pipeline: pipeline,
		mcpServer: mcp.NewServer(&mcp.Implementation{
			Name:    serverName,
			Version: version,
		}, nil),
	}
	s.registerTools()
	s.registerResources()
	return s, nil
}

// MCP returns the underlying server, for connecting custom transports.
func (s *Server) MCP() *mcp.Server { return s.mcpServer }

// RunStdio serves over stdin/stdout until the client disconnects or ctx ends.
func (s *Server) RunStdio(ctx context.Context) error {
	s.log.Info("mcp server starting", "transport", "stdio")
	if err := s.mcpServer.Run(ctx, &mcp.StdioTransport{}); err != nil && ctx.Err() == nil {
		return fmt.Errorf("mcp server: %w", err)
	}
	return nil
}
