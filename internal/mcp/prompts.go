package mcpserver

import (
	"context"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
)

func (s *Server) registerPrompts() {
	s.mcp.AddPrompt(mcp.NewPrompt("import_and_publish",
		mcp.WithPromptDescription("Import a source into a block, make it durable and publish it under an alias"),
		mcp.WithArgument("target",
			mcp.ArgumentDescription("File path or URL to import"),
			mcp.RequiredArgument(),
		),
		mcp.WithArgument("alias",
			mcp.ArgumentDescription("Alias to publish the block under"),
			mcp.RequiredArgument(),
		),
	), s.handleImportAndPublishPrompt)
}

func (s *Server) handleImportAndPublishPrompt(ctx context.Context, req mcp.GetPromptRequest) (*mcp.GetPromptResult, error) {
	target := req.Params.Arguments["target"]
	alias := req.Params.Arguments["alias"]
	return &mcp.GetPromptResult{
		Description: fmt.Sprintf("Import %s as %s", target, alias),
		Messages: []mcp.PromptMessage{
			{
				Role: mcp.RoleUser,
				Content: mcp.TextContent{
					Type: "text",
					Text: fmt.Sprintf(`Import %q and publish it as %q. Follow these steps:

1. Use import_source with target %q to create a block
2. Use get_block to check the inferred schema and record count
3. Use realize_block with format "database_table" so the block has a durable copy
4. Use create_alias with name %q on the block
5. Confirm with resolve_alias that the alias points at the database table`, target, alias, target, alias),
				},
			},
		},
	}, nil
}
