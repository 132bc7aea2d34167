package mcpserver

import (
	"context"
	"fmt"

	"datablocks/internal/domain"

	"github.com/mark3labs/mcp-go/mcp"
)

func (s *Server) registerAliasTools() {
	s.mcp.AddTool(mcp.NewTool("create_alias",
		mcp.WithDescription("Point a stable name at a block. A durable realization is preferred; the alias moves if it already exists."),
		mcp.WithString("blockId", mcp.Description("Data block ID"), mcp.Required()),
		mcp.WithString("name", mcp.Description("Alias name"), mcp.Required()),
	), s.handleCreateAlias)

	s.mcp.AddTool(mcp.NewTool("resolve_alias",
		mcp.WithDescription("Resolve an alias to its block and stored realization"),
		mcp.WithString("name", mcp.Description("Alias name"), mcp.Required()),
	), s.handleResolveAlias)

	s.mcp.AddTool(mcp.NewTool("list_aliases",
		mcp.WithDescription("List every alias"),
	), s.handleListAliases)
}

func (s *Server) handleCreateAlias(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := req.GetArguments()
	id, err := requireString(args, "blockId")
	if err != nil {
		return nil, err
	}
	name, err := requireString(args, "name")
	if err != nil {
		return nil, err
	}
	block, err := s.blocks.GetBlock(ctx, id)
	if err != nil {
		return errorResult(err), nil
	}
	alias, err := s.manager.CreateAlias(ctx, block, name)
	if err != nil {
		return errorResult(err), nil
	}
	return jsonResult(alias)
}

func (s *Server) handleResolveAlias(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	name, err := requireString(req.GetArguments(), "name")
	if err != nil {
		return nil, err
	}
	block, sdb, err := s.manager.ResolveAlias(ctx, name)
	if err != nil {
		return errorResult(fmt.Errorf("resolve alias %s: %w", name, err)), nil
	}
	return jsonResult(map[string]any{"block": block, "stored": sdb})
}

func (s *Server) handleListAliases(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	aliases, err := s.manager.ListAliases(ctx)
	if err != nil {
		return nil, err
	}
	if aliases == nil {
		aliases = []domain.Alias{}
	}
	return jsonResult(aliases)
}
