package mcpserver

import (
	"context"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
)

func (s *Server) registerPrompts() {
	s.mcp.AddPrompt(mcp.NewPrompt("research_board",
		mcp.WithPromptDescription("Collect links and notes on a topic into a connected research board"),
		mcp.WithArgument("topic",
			mcp.ArgumentDescription("Topic to research"),
			mcp.RequiredArgument(),
		),
	), s.handleResearchBoardPrompt)
}

func (s *Server) handleResearchBoardPrompt(ctx context.Context, req mcp.GetPromptRequest) (*mcp.GetPromptResult, error) {
	topic := req.Params.Arguments["topic"]
	return &mcp.GetPromptResult{
		Description: fmt.Sprintf("Build a research board for: %s", topic),
		Messages: []mcp.PromptMessage{
			{
				Role: mcp.RoleUser,
				Content: mcp.TextContent{
					Type: "text",
					Text: fmt.Sprintf(`Build a research board about "%s" on the canvas. Follow these steps:

1. Use paste_content for each video, article link or note you want to keep; classification picks the block kind
2. Add an aggregator with add_aggregator (id "%s") to collect the sources
3. Connect each relevant block to the aggregator with connect_blocks
4. Finish with arrange_blocks so nothing overlaps

Check list_blocks before removing anything; remove_block asks the user first.`, topic, topic),
				},
			},
		},
	}, nil
}
