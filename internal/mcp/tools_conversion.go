package mcpserver

import (
	"context"
	"fmt"

	"datablocks/internal/conversion"
	"datablocks/internal/domain"

	"github.com/mark3labs/mcp-go/mcp"
)

func (s *Server) registerConversionTools() {
	s.mcp.AddTool(mcp.NewTool("list_converters",
		mcp.WithDescription("List registered converters with their cost and supported storage formats"),
	), s.handleListConverters)

	s.mcp.AddTool(mcp.NewTool("find_conversion_path",
		mcp.WithDescription("Find the cheapest converter chain between two storage formats, using only storage types this process can write to"),
		mcp.WithString("from", mcp.Description("Source as type:format, e.g. memory:records_list"), mcp.Required()),
		mcp.WithString("to", mcp.Description("Target as type:format, e.g. database:database_table"), mcp.Required()),
	), s.handleFindConversionPath)
}

type converterSummary struct {
	Name    string                 `json:"name"`
	Cost    string                 `json:"cost"`
	Inputs  []domain.StorageFormat `json:"inputs"`
	Outputs []domain.StorageFormat `json:"outputs"`
}

func (s *Server) handleListConverters(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var out []converterSummary
	for _, c := range s.lookup.Converters() {
		out = append(out, converterSummary{
			Name:    c.Name(),
			Cost:    c.Cost().String(),
			Inputs:  c.SupportedInputs(),
			Outputs: c.SupportedOutputs(),
		})
	}
	return jsonResult(out)
}

type pathStep struct {
	Converter string `json:"converter"`
	From      string `json:"from"`
	To        string `json:"to"`
	Cost      string `json:"cost"`
}

func describePath(p *conversion.ConversionPath) map[string]any {
	steps := make([]pathStep, 0, p.Len())
	for _, e := range p.Edges {
		steps = append(steps, pathStep{
			Converter: e.Converter.Name(),
			From:      e.Source.String(),
			To:        e.Target.String(),
			Cost:      e.Cost.String(),
		})
	}
	return map[string]any{"steps": steps, "totalCost": p.TotalCost()}
}

func (s *Server) handleFindConversionPath(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := req.GetArguments()
	fromStr, err := requireString(args, "from")
	if err != nil {
		return nil, err
	}
	toStr, err := requireString(args, "to")
	if err != nil {
		return nil, err
	}
	from, err := domain.ParseStorageFormat(fromStr)
	if err != nil {
		return errorResult(err), nil
	}
	to, err := domain.ParseStorageFormat(toStr)
	if err != nil {
		return errorResult(err), nil
	}

	path, err := s.lookup.GetLowestCostPath(from, to, s.placement().AvailableTypes())
	if err != nil {
		return errorResult(fmt.Errorf("%s → %s: %w", from, to, err)), nil
	}
	return jsonResult(describePath(path))
}
