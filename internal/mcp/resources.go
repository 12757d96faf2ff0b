package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
)

func (s *Server) registerResources() {
	// ── canvas://blocks ────────────────────────────────
	s.mcp.AddResource(mcp.NewResource(
		"canvas://blocks",
		"All Blocks",
		mcp.WithMIMEType("application/json"),
	), s.handleBlocksResource)

	// ── canvas://block/{blockId} ───────────────────────
	s.mcp.AddResourceTemplate(
		mcp.NewResourceTemplate(
			"canvas://block/{blockId}",
			"A Single Block",
		),
		s.handleBlockResource,
	)
}

func (s *Server) handleBlocksResource(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	blocks := s.canvas.List()
	summaries := make([]blockSummary, 0, len(blocks))
	for _, b := range blocks {
		summaries = append(summaries, summarizeBlock(b))
	}

	data, _ := json.MarshalIndent(summaries, "", "  ")
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      "canvas://blocks",
			MIMEType: "application/json",
			Text:     string(data),
		},
	}, nil
}

func (s *Server) handleBlockResource(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	uri := req.Params.URI
	id := strings.TrimPrefix(uri, "canvas://block/")
	if id == "" || id == uri {
		return nil, fmt.Errorf("invalid block URI: %s", uri)
	}

	b, err := s.canvas.Get(id)
	if err != nil {
		return nil, err
	}
	data, _ := json.MarshalIndent(b, "", "  ")
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      uri,
			MIMEType: "application/json",
			Text:     string(data),
		},
	}, nil
}
