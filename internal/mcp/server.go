package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"datablocks/internal/conversion"
	"datablocks/internal/domain"
	"datablocks/internal/service"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/sirupsen/logrus"
)

// Server is the MCP server for datablocks.
// It exposes tools and resources so agents can create, realize and alias blocks.
type Server struct {
	mcp    *server.MCPServer
	logger logrus.FieldLogger

	// Services (injected from app layer)
	blocks    *service.BlockService
	manager   *service.DataBlockManager
	importer  *service.Importer
	persister *service.Persister
	lookup    *conversion.Lookup
	placement func() conversion.Placement
	storage   func(rawURL string) (domain.Storage, error)
}

// Deps holds all dependencies passed from the App layer to the MCP server.
type Deps struct {
	Blocks    *service.BlockService
	Manager   *service.DataBlockManager
	Importer  *service.Importer
	Persister *service.Persister // optional
	Lookup    *conversion.Lookup
	Placement func() conversion.Placement
	// Storage resolves a storage URL; "" selects the default storage.
	Storage func(rawURL string) (domain.Storage, error)
	Logger  logrus.FieldLogger
}

// New creates and configures a new MCP server with all tools and resources.
func New(deps Deps) *Server {
	s := &Server{
		logger:    deps.Logger,
		blocks:    deps.Blocks,
		manager:   deps.Manager,
		importer:  deps.Importer,
		persister: deps.Persister,
		lookup:    deps.Lookup,
		placement: deps.Placement,
		storage:   deps.Storage,
	}
	if s.logger == nil {
		s.logger = logrus.StandardLogger()
	}

	s.mcp = server.NewMCPServer(
		"datablocks-mcp",
		"1.0.0",
		server.WithToolCapabilities(true),
		server.WithResourceCapabilities(true, false),
		server.WithPromptCapabilities(true),
	)

	s.registerBlockTools()
	s.registerAliasTools()
	s.registerConversionTools()
	s.registerImportTools()
	s.registerResources()
	s.registerPrompts()

	return s
}

// ServeStdio serves on stdin/stdout until ctx ends or stdin closes.
func (s *Server) ServeStdio(ctx context.Context) error {
	return server.NewStdioServer(s.mcp).Listen(ctx, os.Stdin, os.Stdout)
}

// ── Helpers ────────────────────────────────────────────────

// textResult creates a simple text tool result.
func textResult(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			mcp.TextContent{Type: "text", Text: text},
		},
	}
}

// jsonResult serializes v to JSON and wraps it in a text tool result.
func jsonResult(v any) (*mcp.CallToolResult, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal result: %w", err)
	}
	return textResult(string(data)), nil
}

// errorResult reports a tool failure to the agent without failing the call.
func errorResult(err error) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{mcp.TextContent{Type: "text", Text: err.Error()}},
		IsError: true,
	}
}

func (s *Server) logTool(tool string) logrus.FieldLogger {
	return s.logger.WithField("action", "mcp_tool").WithField("tool", tool)
}

func boolPtr(v bool) *bool { return &v }
