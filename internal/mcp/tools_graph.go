package mcpserver

import (
	"context"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
)

func (s *Server) registerGraphTools() {
	// ── connect_blocks ─────────────────────────────────
	s.mcp.AddTool(mcp.NewTool("connect_blocks",
		mcp.WithDescription("Draw a directed edge between two nodes. Connecting a block to an aggregator attaches it as context."),
		mcp.WithString("fromId", mcp.Description("Source node ID"), mcp.Required()),
		mcp.WithString("toId", mcp.Description("Target node ID"), mcp.Required()),
	), s.handleConnectBlocks)

	// ── disconnect_blocks ──────────────────────────────
	s.mcp.AddTool(mcp.NewTool("disconnect_blocks",
		mcp.WithDescription("Remove the edge between two nodes"),
		mcp.WithString("fromId", mcp.Description("Source node ID"), mcp.Required()),
		mcp.WithString("toId", mcp.Description("Target node ID"), mcp.Required()),
	), s.handleDisconnectBlocks)

	// ── list_edges ─────────────────────────────────────
	s.mcp.AddTool(mcp.NewTool("list_edges",
		mcp.WithDescription("List all edges on the graph canvas"),
	), s.handleListEdges)

	// ── add_aggregator ─────────────────────────────────
	s.mcp.AddTool(mcp.NewTool("add_aggregator",
		mcp.WithDescription("Add an aggregator node (e.g. a chat panel) that collects connected blocks"),
		mcp.WithString("id", mcp.Description("Aggregator ID"), mcp.Required()),
	), s.handleAddAggregator)

	// ── arrange_blocks ─────────────────────────────────
	s.mcp.AddTool(mcp.NewTool("arrange_blocks",
		mcp.WithDescription("Auto-arrange graph nodes in rows on a grid"),
		mcp.WithString("blockIds", mcp.Description("Comma-separated node IDs (optional, defaults to all)")),
		mcp.WithNumber("startX", mcp.Description("Starting X position (default 0)")),
		mcp.WithNumber("startY", mcp.Description("Starting Y position (default 0)")),
	), s.handleArrangeBlocks)
}

func (s *Server) handleConnectBlocks(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := req.GetArguments()
	from, to := getString(args, "fromId"), getString(args, "toId")
	if from == "" || to == "" {
		return nil, fmt.Errorf("fromId and toId are required")
	}
	e, err := s.canvas.Connect(from, to)
	if err != nil {
		return nil, err
	}
	return jsonResult(e)
}

func (s *Server) handleDisconnectBlocks(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := req.GetArguments()
	from, to := getString(args, "fromId"), getString(args, "toId")
	ok, err := s.canvas.Disconnect(from, to)
	if err != nil {
		return nil, err
	}
	if !ok {
		return textResult(fmt.Sprintf("No edge from %s to %s", from, to)), nil
	}
	return textResult(fmt.Sprintf("Disconnected %s from %s", from, to)), nil
}

func (s *Server) handleListEdges(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	edges, err := s.canvas.Edges()
	if err != nil {
		return nil, err
	}
	return jsonResult(edges)
}

func (s *Server) handleAddAggregator(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id := getString(req.GetArguments(), "id")
	if id == "" {
		return nil, fmt.Errorf("id is required")
	}
	n, err := s.canvas.AddAggregator(id)
	if err != nil {
		return nil, err
	}
	return jsonResult(n)
}

func (s *Server) handleArrangeBlocks(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := req.GetArguments()
	nodes, err := s.canvas.Arrange(splitIDs(getString(args, "blockIds")), pixelArg(args, "startX", "startY"))
	if err != nil {
		return nil, err
	}
	return textResult(fmt.Sprintf("Arranged %d node(s)", len(nodes))), nil
}
