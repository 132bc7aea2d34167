package mcpserver

import (
	"context"

	"datablocks/internal/domain"
	"datablocks/internal/format"
	"datablocks/internal/schema"

	"github.com/mark3labs/mcp-go/mcp"
)

func (s *Server) registerBlockTools() {
	s.mcp.AddTool(mcp.NewTool("list_blocks",
		mcp.WithDescription("List data blocks, newest last"),
		mcp.WithBoolean("includeDeleted", mcp.Description("Include soft-deleted blocks")),
	), s.handleListBlocks)

	s.mcp.AddTool(mcp.NewTool("get_block",
		mcp.WithDescription("Get a data block with its schemas, record count and every stored realization"),
		mcp.WithString("blockId", mcp.Description("Data block ID"), mcp.Required()),
	), s.handleGetBlock)

	s.mcp.AddTool(mcp.NewTool("preview_block",
		mcp.WithDescription("Return the first records of a data block"),
		mcp.WithString("blockId", mcp.Description("Data block ID"), mcp.Required()),
		mcp.WithNumber("limit", mcp.Description("Maximum records to return (default 20)")),
	), s.handlePreviewBlock)

	s.mcp.AddTool(mcp.NewTool("realize_block",
		mcp.WithDescription("Get or create a realization of a block in a format on a storage, converting along the cheapest path"),
		mcp.WithString("blockId", mcp.Description("Data block ID"), mcp.Required()),
		mcp.WithString("format", mcp.Description("Target format, e.g. records_list, data_frame, database_table"), mcp.Required()),
		mcp.WithString("storageUrl", mcp.Description("Target storage URL (optional, defaults to the first configured storage; memory:// is this process)")),
	), s.handleRealizeBlock)

	s.mcp.AddTool(mcp.NewTool("delete_block",
		mcp.WithDescription("🛑 DESTRUCTIVE: Soft-delete a data block. Lineage rows are kept."),
		mcp.WithString("blockId", mcp.Description("Data block ID"), mcp.Required()),
		mcp.WithToolAnnotation(mcp.ToolAnnotation{DestructiveHint: boolPtr(true)}),
	), s.handleDeleteBlock)
}

func (s *Server) handleListBlocks(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	includeDeleted, _ := req.GetArguments()["includeDeleted"].(bool)
	blocks, err := s.blocks.ListBlocks(ctx, includeDeleted)
	if err != nil {
		return nil, err
	}
	if blocks == nil {
		blocks = []*domain.DataBlock{}
	}
	return jsonResult(blocks)
}

// blockDetail is the get_block payload.
type blockDetail struct {
	Block          *domain.DataBlock         `json:"block"`
	ExpectedSchema schema.Schema             `json:"expectedSchema"`
	RealizedSchema schema.Schema             `json:"realizedSchema"`
	RecordCount    *int64                    `json:"recordCount,omitempty"`
	Stored         []*domain.StoredDataBlock `json:"stored"`
}

func (s *Server) handleGetBlock(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := requireString(req.GetArguments(), "blockId")
	if err != nil {
		return nil, err
	}
	block, err := s.blocks.GetBlock(ctx, id)
	if err != nil {
		return errorResult(err), nil
	}

	detail := blockDetail{Block: block}
	if detail.ExpectedSchema, err = s.manager.ExpectedSchema(ctx, block); err != nil {
		return nil, err
	}
	if detail.RealizedSchema, err = s.manager.RealizedSchema(ctx, block); err != nil {
		return nil, err
	}
	if n, err := s.manager.RecordCount(ctx, block); err == nil {
		detail.RecordCount = &n
	} else {
		s.logTool("get_block").WithError(err).Debug("record count unavailable")
	}
	if detail.Stored, err = s.blocks.ListStoredBlocks(ctx, id); err != nil {
		return nil, err
	}
	return jsonResult(detail)
}

func (s *Server) handlePreviewBlock(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := req.GetArguments()
	id, err := requireString(args, "blockId")
	if err != nil {
		return nil, err
	}
	limit := intArg(args, "limit", 20)

	block, err := s.blocks.GetBlock(ctx, id)
	if err != nil {
		return errorResult(err), nil
	}
	records, err := s.manager.Records(ctx, block)
	if err != nil {
		return errorResult(err), nil
	}
	if limit > 0 && len(records) > limit {
		records = records[:limit]
	}
	if records == nil {
		records = schema.Records{}
	}
	return jsonResult(records)
}

func (s *Server) handleRealizeBlock(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := req.GetArguments()
	id, err := requireString(args, "blockId")
	if err != nil {
		return nil, err
	}
	f, err := requireString(args, "format")
	if err != nil {
		return nil, err
	}
	target, err := s.storage(stringArg(args, "storageUrl"))
	if err != nil {
		return errorResult(err), nil
	}

	block, err := s.blocks.GetBlock(ctx, id)
	if err != nil {
		return errorResult(err), nil
	}
	sdb, err := s.manager.GetOrCreateRealization(ctx, block, format.Format(f), target)
	if err != nil {
		s.logTool("realize_block").WithField("block", id).WithError(err).Warn("realization failed")
		return errorResult(err), nil
	}
	return jsonResult(sdb)
}

func (s *Server) handleDeleteBlock(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := requireString(req.GetArguments(), "blockId")
	if err != nil {
		return nil, err
	}
	if err := s.manager.DeleteBlock(ctx, id); err != nil {
		return errorResult(err), nil
	}
	return textResult("Deleted block " + id), nil
}
