package mcpserver

import (
	"context"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

func (s *Server) registerResources() {
	s.mcpServer.AddResource(&mcp.Resource{
		URI:         schemaURI,
		Name:        "Graph Schema",
		Description: "Node labels, relationship types, and their properties as introspected from the database",
		MIMEType:    "application/json",
	}, func(ctx context.Context, req *mcp.ReadResourceRequest) (*mcp.ReadResourceResult, error) {
		full, err := s.pipeline.FullSchema(ctx)
		if err != nil {
			return nil, fmt.Errorf("introspect schema: %w", err)
		}
		text, err := full.JSON()
		if err != nil {
			return nil, err
		}
		return &mcp.ReadResourceResult{
			Contents: []*mcp.ResourceContents{
				{
					URI:      schemaURI,
					MIMEType: "application/json",
					Text:     text,
				},
			},
		}, nil
	})
}
