package mcpserver

import (
	"context"
	"fmt"

	"canvas/internal/coords"
	"canvas/internal/domain"
	"canvas/internal/service"

	"github.com/mark3labs/mcp-go/mcp"
)

func (s *Server) registerBlockTools() {
	// ── paste_content ──────────────────────────────────
	s.mcp.AddTool(mcp.NewTool("paste_content",
		mcp.WithDescription("Paste text, a URL or a local file onto the canvas. The content is classified (video, audio, image, document, text, web-link) and one block is created."),
		mcp.WithString("text", mcp.Description("Text or URL to paste")),
		mcp.WithString("path", mcp.Description("Local file path to paste instead of text")),
		mcp.WithString("mime", mcp.Description("MIME type of the file (optional, inferred from extension)")),
	), s.handlePasteContent)

	// ── create_block ───────────────────────────────────
	s.mcp.AddTool(mcp.NewTool("create_block",
		mcp.WithDescription("Create a block of an explicit kind without classification. Position is auto-calculated if not provided."),
		mcp.WithString("kind",
			mcp.Description("Block kind: video, audio, image, document, text, web-link, folder"),
			mcp.Required(),
		),
		mcp.WithString("platform", mcp.Description("Video platform (youtube, vimeo, instagram, facebook, tiktok, twitter, direct)")),
		mcp.WithString("text", mcp.Description("Text or URL content")),
		mcp.WithString("path", mcp.Description("Local file path for file kinds")),
		mcp.WithNumber("x", mcp.Description("X position (optional, auto-layout if omitted)")),
		mcp.WithNumber("y", mcp.Description("Y position (optional, auto-layout if omitted)")),
	), s.handleCreateBlock)

	// ── update_block_content ───────────────────────────
	s.mcp.AddTool(mcp.NewTool("update_block_content",
		mcp.WithDescription("Replace the text of an existing block. The kind never changes."),
		mcp.WithString("blockId", mcp.Description("Block ID"), mcp.Required()),
		mcp.WithString("text", mcp.Description("New content"), mcp.Required()),
	), s.handleUpdateBlockContent)

	// ── list_blocks ────────────────────────────────────
	s.mcp.AddTool(mcp.NewTool("list_blocks",
		mcp.WithDescription("List all blocks on the canvas, optionally filtered by kind"),
		mcp.WithString("kind", mcp.Description("Filter by block kind (optional)")),
	), s.handleListBlocks)

	// ── remove_block (destructive) ─────────────────────
	s.mcp.AddTool(mcp.NewTool("remove_block",
		mcp.WithDescription("🛑 DESTRUCTIVE: Remove one or more blocks. Requires user approval."),
		mcp.WithString("blockIds",
			mcp.Description("Comma-separated block IDs to remove"),
			mcp.Required(),
		),
		mcp.WithToolAnnotation(mcp.ToolAnnotation{DestructiveHint: boolPtr(true)}),
	), s.handleRemoveBlock)

	// ── move_block ─────────────────────────────────────
	s.mcp.AddTool(mcp.NewTool("move_block",
		mcp.WithDescription("Move a block. Floating canvases use percent of the viewport, graph canvases use pixels."),
		mcp.WithString("blockId", mcp.Description("Block ID"), mcp.Required()),
		mcp.WithNumber("x", mcp.Description("New X position"), mcp.Required()),
		mcp.WithNumber("y", mcp.Description("New Y position"), mcp.Required()),
		mcp.WithString("space", mcp.Description("percent or pixel (optional, defaults to the canvas mode)")),
	), s.handleMoveBlock)

	// ── classify_content ───────────────────────────────
	s.mcp.AddTool(mcp.NewTool("classify_content",
		mcp.WithDescription("Report what kind of block some content would become, without creating it"),
		mcp.WithString("text", mcp.Description("Text or URL")),
		mcp.WithString("path", mcp.Description("Local file path")),
		mcp.WithString("mime", mcp.Description("MIME type of the file (optional)")),
	), s.handleClassifyContent)
}

// ── Handlers ───────────────────────────────────────────────

func (s *Server) handlePasteContent(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	p, err := payloadFromArgs(req.GetArguments())
	if err != nil {
		return nil, fmt.Errorf("read payload: %w", err)
	}
	if p.IsEmpty() {
		return nil, fmt.Errorf("text or path is required")
	}

	b, err := s.canvas.Paste(p)
	if err != nil {
		return nil, fmt.Errorf("paste: %w", err)
	}
	return jsonResult(summarizeBlock(b))
}

func (s *Server) handleCreateBlock(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := req.GetArguments()
	kind := domain.Kind(getString(args, "kind"))
	if !kind.Valid() {
		return nil, fmt.Errorf("kind must be one of %v", domain.Kinds)
	}

	p, err := payloadFromArgs(args)
	if err != nil {
		return nil, fmt.Errorf("read payload: %w", err)
	}

	var pos domain.Position
	x, hasX := args["x"].(float64)
	y, hasY := args["y"].(float64)
	if hasX && hasY {
		pos = s.position(x, y, "")
	}

	b, err := s.canvas.Create(kind, domain.Platform(getString(args, "platform")), p, pos)
	if err != nil {
		return nil, fmt.Errorf("create block: %w", err)
	}
	return jsonResult(summarizeBlock(b))
}

func (s *Server) handleUpdateBlockContent(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := req.GetArguments()
	block, err := s.getBlockForTool(args)
	if err != nil {
		return nil, err
	}

	if !s.canvas.UpdateData(block.ID, domain.TextPayload(getString(args, "text"))) {
		return nil, fmt.Errorf("update block %s: not found", block.ID)
	}
	return textResult(fmt.Sprintf("Block %s content updated", block.ID)), nil
}

func (s *Server) handleListBlocks(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	filter := domain.Kind(getString(req.GetArguments(), "kind"))

	summaries := []blockSummary{}
	for _, b := range s.canvas.List() {
		if filter != "" && b.Kind != filter {
			continue
		}
		summaries = append(summaries, summarizeBlock(b))
	}
	return jsonResult(summaries)
}

func (s *Server) handleRemoveBlock(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	ids := splitIDs(getString(req.GetArguments(), "blockIds"))
	if len(ids) == 0 {
		return nil, fmt.Errorf("blockIds is required")
	}
	for _, id := range ids {
		if _, err := s.canvas.Get(id); err != nil {
			return nil, err
		}
	}

	// Require approval (with metadata for frontend highlight)
	meta, _ := marshalJSON(map[string]any{"blockIds": ids})
	approved, err := s.approval.Request("remove_block",
		fmt.Sprintf("Remove %d block(s)", len(ids)), string(meta))
	if err != nil || !approved {
		return textResult("Action rejected by user"), nil
	}

	removed := 0
	for _, id := range ids {
		if s.canvas.Remove(id) {
			removed++
		}
	}
	return textResult(fmt.Sprintf("Removed %d block(s)", removed)), nil
}

func (s *Server) handleMoveBlock(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := req.GetArguments()
	block, err := s.getBlockForTool(args)
	if err != nil {
		return nil, err
	}

	x := getFloat(args, "x", 0)
	y := getFloat(args, "y", 0)
	if !s.canvas.Move(block.ID, s.position(x, y, getString(args, "space"))) {
		return nil, fmt.Errorf("move block %s failed", block.ID)
	}

	moved, err := s.canvas.Get(block.ID)
	if err != nil {
		return nil, err
	}
	return jsonResult(summarizeBlock(moved))
}

func (s *Server) handleClassifyContent(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	p, err := payloadFromArgs(req.GetArguments())
	if err != nil {
		return nil, fmt.Errorf("read payload: %w", err)
	}
	if p.IsEmpty() {
		return nil, fmt.Errorf("text or path is required")
	}
	return jsonResult(s.canvas.Classify(p))
}

// position interprets x,y in space, or in the canvas's native space.
func (s *Server) position(x, y float64, space string) domain.Position {
	switch space {
	case "percent":
		return domain.AtPercent(x, y)
	case "pixel":
		return domain.AtPixel(x, y)
	}
	if s.canvas.Mode() == service.ModeGraph {
		return domain.AtPixel(x, y)
	}
	return domain.AtPercent(x, y)
}

func pixelArg(args map[string]any, xKey, yKey string) coords.Pixel {
	return coords.Pixel{X: getFloat(args, xKey, 0), Y: getFloat(args, yKey, 0)}
}
