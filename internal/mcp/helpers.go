package mcpserver

import (
	"encoding/json"
	"mime"
	"os"
	"path/filepath"
	"strings"

	"canvas/internal/domain"
)

func getFloat(args map[string]any, key string, fallback float64) float64 {
	if v, ok := args[key].(float64); ok {
		return v
	}
	return fallback
}

func getString(args map[string]any, key string) string {
	v, _ := args[key].(string)
	return strings.TrimSpace(v)
}

func splitIDs(s string) []string {
	var ids []string
	for _, part := range strings.Split(s, ",") {
		if id := strings.TrimSpace(part); id != "" {
			ids = append(ids, id)
		}
	}
	return ids
}

// payloadFromArgs builds a payload from "path" (a local file, MIME from
// "mime" or the extension) or "text".
func payloadFromArgs(args map[string]any) (domain.Payload, error) {
	if path := getString(args, "path"); path != "" {
		abs, err := filepath.Abs(path)
		if err != nil {
			return domain.Payload{}, err
		}
		info, err := os.Stat(abs)
		if err != nil {
			return domain.Payload{}, err
		}
		mt := getString(args, "mime")
		if mt == "" {
			mt = mime.TypeByExtension(strings.ToLower(filepath.Ext(abs)))
		}
		return domain.FilePayload(domain.File{Name: info.Name(), MIME: mt, Size: info.Size(), Path: abs}), nil
	}
	return domain.TextPayload(getString(args, "text")), nil
}

// blockSummary is the agent-facing view of a block.
type blockSummary struct {
	ID       string  `json:"id"`
	Kind     string  `json:"kind"`
	Label    string  `json:"label"`
	MediaID  string  `json:"mediaId,omitempty"`
	X        float64 `json:"x"`
	Y        float64 `json:"y"`
	Space    string  `json:"space"`
	Degraded bool    `json:"degraded,omitempty"`
	Preview  string  `json:"preview"` // first 200 chars of text, or the file name
}

func summarizeBlock(b domain.BlockInstance) blockSummary {
	preview := b.Payload.Text
	switch {
	case b.Payload.File != nil:
		preview = b.Payload.File.Name
	case len(b.Payload.Files) > 0:
		names := make([]string, 0, len(b.Payload.Files))
		for _, f := range b.Payload.Files {
			names = append(names, f.Name)
		}
		preview = strings.Join(names, ", ")
	}
	if r := []rune(preview); len(r) > 200 {
		preview = string(r[:200]) + "..."
	}

	x, y := b.Position.Percent.X, b.Position.Percent.Y
	if b.Position.Space == domain.SpacePixel {
		x, y = b.Position.Pixel.X, b.Position.Pixel.Y
	}
	return blockSummary{
		ID:       b.ID,
		Kind:     string(b.Kind),
		Label:    b.Label(),
		MediaID:  b.MediaID,
		X:        x,
		Y:        y,
		Space:    string(b.Position.Space),
		Degraded: b.Degraded,
		Preview:  preview,
	}
}

func boolPtr(v bool) *bool { return &v }

// marshalJSON serializes a value to JSON bytes.
func marshalJSON(v any) ([]byte, error) {
	return json.Marshal(v)
}
