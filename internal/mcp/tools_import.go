package mcpserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"datablocks/internal/ingest"
	"datablocks/internal/service"

	"github.com/mark3labs/mcp-go/mcp"
)

func (s *Server) registerImportTools() {
	s.mcp.AddTool(mcp.NewTool("list_sources",
		mcp.WithDescription("List available import source types with their configuration fields"),
	), s.handleListSources)

	s.mcp.AddTool(mcp.NewTool("import_source",
		mcp.WithDescription("Load external data (CSV/JSON file, HTTP endpoint, database table) into a new data block"),
		mcp.WithString("target", mcp.Description("File path or URL; the source type is detected from it when sourceType is omitted")),
		mcp.WithString("sourceType", mcp.Description("Source type (use list_sources to see available types)")),
		mcp.WithString("sourceConfigJSON", mcp.Description("Source configuration as JSON; merged over what target implies")),
		mcp.WithString("transformsJSON", mcp.Description(`Optional JSON array of transforms applied before the block is created. Each has {type, config}:
- filter: {field, op (eq|neq|gt|lt|contains), value}
- rename: {mapping: {old: new}}
- select: {fields: ["a","b"]}
- dedupe: {key}
- sort: {field, direction (asc|desc)}
- limit: {count}
- type_cast: {field, castType (number|integer|string|bool|datetime|json)}
- default_value: {field, defaultValue}`)),
		mcp.WithString("alias", mcp.Description("Alias to point at the new block (optional)")),
		mcp.WithString("createdBy", mcp.Description("Producer label recorded on the block (optional)")),
	), s.handleImportSource)

	s.mcp.AddTool(mcp.NewTool("persist_now",
		mcp.WithDescription("Realize every block not yet on the persist database storage"),
	), s.handlePersistNow)
}

func (s *Server) handleListSources(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return jsonResult(ingest.ListSources())
}

func (s *Server) handleImportSource(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := req.GetArguments()
	target := stringArg(args, "target")
	sourceType := stringArg(args, "sourceType")

	extra, err := objectArg(args, "sourceConfigJSON")
	if err != nil {
		return nil, err
	}

	cfg := ingest.SourceConfig{}
	if target != "" {
		detected, detectedCfg, err := ingest.Detect(target)
		switch {
		case err == nil:
			cfg = detectedCfg
			if sourceType == "" {
				sourceType = detected
			}
		case sourceType == "":
			return errorResult(err), nil
		}
	}
	for k, v := range extra {
		cfg[k] = v
	}
	if sourceType == "" {
		return errorResult(errors.New("sourceType or target is required")), nil
	}

	var transforms []ingest.TransformSpec
	switch v := args["transformsJSON"].(type) {
	case string:
		if v != "" {
			if err := parseJSON(v, &transforms); err != nil {
				return errorResult(fmt.Errorf("parse transformsJSON: %w", err)), nil
			}
		}
	case nil:
	default:
		b, _ := json.Marshal(v)
		if err := json.Unmarshal(b, &transforms); err != nil {
			return errorResult(fmt.Errorf("parse transformsJSON: %w", err)), nil
		}
	}

	createdBy := stringArg(args, "createdBy")
	if createdBy == "" {
		createdBy = "mcp.import." + sourceType
	}
	block, err := s.importer.Import(ctx, service.ImportJob{
		SourceType:    sourceType,
		Config:        cfg,
		CreateOptions: service.CreateOptions{CreatedBy: createdBy},
		Alias:         stringArg(args, "alias"),
		Transforms:    transforms,
	})
	if err != nil {
		s.logTool("import_source").WithField("source", sourceType).WithError(err).Warn("import failed")
		if block == nil {
			return errorResult(err), nil
		}
	}
	return jsonResult(block)
}

func (s *Server) handlePersistNow(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	if s.persister == nil {
		return errorResult(errors.New("no database storage configured to persist to")), nil
	}
	res, err := s.persister.RunOnce(ctx)
	if err != nil {
		return errorResult(err), nil
	}
	return jsonResult(res)
}
