package mcpserver

import (
	"context"
	"encoding/json"

	"github.com/mark3labs/mcp-go/mcp"
)

func (s *Server) registerResources() {
	// ── datablocks://blocks ────────────────────────────
	s.mcp.AddResource(mcp.NewResource(
		"datablocks://blocks",
		"All Data Blocks",
		mcp.WithMIMEType("application/json"),
	), s.handleBlocksResource)

	// ── datablocks://aliases ───────────────────────────
	s.mcp.AddResource(mcp.NewResource(
		"datablocks://aliases",
		"All Aliases",
		mcp.WithMIMEType("application/json"),
	), s.handleAliasesResource)
}

func (s *Server) handleBlocksResource(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	blocks, err := s.blocks.ListBlocks(ctx, false)
	if err != nil {
		return nil, err
	}
	return jsonResource("datablocks://blocks", blocks)
}

func (s *Server) handleAliasesResource(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	aliases, err := s.manager.ListAliases(ctx)
	if err != nil {
		return nil, err
	}
	return jsonResource("datablocks://aliases", aliases)
}

func jsonResource(uri string, v any) ([]mcp.ResourceContents, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, err
	}
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      uri,
			MIMEType: "application/json",
			Text:     string(data),
		},
	}, nil
}
