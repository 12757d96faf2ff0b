package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"canvas/internal/domain"
	"canvas/internal/log"
	"canvas/internal/service"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

// Server is the MCP server for the canvas.
// It exposes tools, resources, and prompts so AI agents can paste content,
// arrange blocks and wire graph edges.
type Server struct {
	mcp      *server.MCPServer
	approval *ApprovalQueue
	canvas   *service.CanvasService
	logger   *slog.Logger
}

// Deps holds all dependencies passed from the App layer to the MCP server.
type Deps struct {
	Canvas *service.CanvasService
	// Approvals is where destructive tool calls wait for the desktop app.
	Approvals domain.ApprovalStore
	// AutoApprove skips the approval prompt for destructive tools.
	AutoApprove bool
}

// New creates and configures a new MCP server with all tools and resources.
func New(ctx context.Context, deps Deps) *Server {
	approval := NewApprovalQueue(ctx, deps.Approvals)
	approval.SetAutoApprove(deps.AutoApprove)

	s := &Server{
		approval: approval,
		canvas:   deps.Canvas,
		logger:   log.WithComponent("mcp"),
	}

	s.mcp = server.NewMCPServer(
		"canvas-mcp",
		"1.0.0",
		server.WithToolCapabilities(true),
		server.WithResourceCapabilities(true, false),
		server.WithPromptCapabilities(true),
	)

	s.registerBlockTools()
	s.registerGraphTools()
	s.registerResources()
	s.registerPrompts()

	return s
}

// ServeStdio starts the MCP server on stdin/stdout.
func (s *Server) ServeStdio() error {
	s.logger.Info("starting stdio server", slog.String("canvas", s.canvas.CanvasID()))
	return server.ServeStdio(s.mcp)
}

// MCP exposes the underlying server, mainly for tests.
func (s *Server) MCP() *server.MCPServer { return s.mcp }

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

// getBlockForTool retrieves a block and validates it exists.
func (s *Server) getBlockForTool(args map[string]any) (domain.BlockInstance, error) {
	blockID, ok := args["blockId"].(string)
	if !ok || blockID == "" {
		return domain.BlockInstance{}, fmt.Errorf("blockId is required")
	}
	return s.canvas.Get(blockID)
}
