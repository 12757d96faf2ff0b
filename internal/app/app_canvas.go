package app

import (
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	"github.com/atotto/clipboard"

	"canvas/internal/classify"
	"canvas/internal/coords"
	"canvas/internal/domain"
	"canvas/internal/drag"
	"canvas/internal/graph"
)

// ============================================================
// Paste & drop
// ============================================================

// PasteClipboard reads the system clipboard and pastes its text.
func (a *App) PasteClipboard() (domain.BlockInstance, error) {
	text, err := clipboard.ReadAll()
	if err != nil {
		return domain.BlockInstance{}, fmt.Errorf("read clipboard: %w", err)
	}
	return a.eng.canvas.Paste(domain.TextPayload(text))
}

// PasteText pastes text the frontend captured from a paste event.
func (a *App) PasteText(text string) (domain.BlockInstance, error) {
	return a.eng.canvas.Paste(domain.TextPayload(text))
}

// PasteFiles pastes files the frontend captured from a paste event.
func (a *App) PasteFiles(files []FileInput) (domain.BlockInstance, error) {
	p, err := payloadOf(files)
	if err != nil {
		return domain.BlockInstance{}, err
	}
	return a.eng.canvas.Paste(p)
}

// DropText handles text or a link dropped at (x, y).
func (a *App) DropText(text string, x, y float64) (domain.BlockInstance, error) {
	return a.eng.canvas.Drop(domain.TextPayload(text), coords.Pixel{X: x, Y: y})
}

// DropFiles handles files dropped at (x, y). Several files become one folder block.
func (a *App) DropFiles(files []FileInput, x, y float64) (domain.BlockInstance, error) {
	p, err := payloadOf(files)
	if err != nil {
		return domain.BlockInstance{}, err
	}
	return a.eng.canvas.Drop(p, coords.Pixel{X: x, Y: y})
}

// CopyBlockText puts a block's text or URL on the system clipboard.
func (a *App) CopyBlockText(id string) error {
	b, err := a.eng.canvas.Get(id)
	if err != nil {
		return err
	}
	if b.Payload.Text == "" {
		return fmt.Errorf("block %s has no text", id)
	}
	return clipboard.WriteAll(b.Payload.Text)
}

func payloadOf(files []FileInput) (domain.Payload, error) {
	out := make([]domain.File, 0, len(files))
	for _, f := range files {
		data, err := base64.StdEncoding.DecodeString(f.Data)
		if err != nil {
			return domain.Payload{}, fmt.Errorf("decode %s: %w", f.Name, err)
		}
		out = append(out, domain.File{Name: f.Name, MIME: f.MIME, Size: int64(len(data)), Path: f.Path, Data: data})
	}
	return domain.FilesPayload(out), nil
}

// ============================================================
// Blocks
// ============================================================

func (a *App) CreateBlock(kind, platform, text string, x, y float64) (domain.BlockInstance, error) {
	return a.eng.canvas.Create(domain.Kind(kind), domain.Platform(platform), domain.TextPayload(text), a.position(x, y))
}

func (a *App) RemoveBlock(id string) bool {
	return a.eng.canvas.Remove(id)
}

func (a *App) UpdateBlockText(id, text string) bool {
	return a.eng.canvas.UpdateData(id, domain.TextPayload(text))
}

func (a *App) ListBlocks() []domain.BlockInstance {
	return a.eng.canvas.List()
}

func (a *App) GetBlock(id string) (domain.BlockInstance, error) {
	return a.eng.canvas.Get(id)
}

func (a *App) MoveBlock(id string, x, y float64) bool {
	return a.eng.canvas.Move(id, a.position(x, y))
}

func (a *App) Classify(text string) classify.Result {
	return a.eng.canvas.Classify(domain.TextPayload(text))
}

// ResolveHandle returns the file behind a block's display handle.
func (a *App) ResolveHandle(handle string) (FileView, error) {
	f, ok := a.eng.canvas.ResolveHandle(handle)
	if !ok {
		return FileView{}, fmt.Errorf("unknown handle %s", handle)
	}
	v := FileView{Name: f.Name, MIME: f.MIME, Size: f.Size, Path: f.Path}
	if len(f.Data) > 0 {
		v.Data = base64.StdEncoding.EncodeToString(f.Data)
	}
	return v, nil
}

func (a *App) position(x, y float64) domain.Position {
	if a.cfg.Canvas.Mode == "graph" {
		return domain.AtPixel(x, y)
	}
	return domain.AtPercent(x, y)
}

// ============================================================
// Drag
// ============================================================

func (a *App) SetViewport(width, height float64) {
	a.eng.canvas.SetViewport(coords.Size{W: width, H: height})
}

// Pointer feeds one pointer event to the block's drag controller and returns
// the resulting drag state.
func (a *App) Pointer(id string, in PointerInput) (string, error) {
	ev, err := pointerEvent(in)
	if err != nil {
		return "", err
	}
	a.eng.canvas.HandlePointer(id, ev)
	return a.eng.canvas.DragState(id).String(), nil
}

func (a *App) CloseMenu(id string) bool {
	return a.eng.canvas.CloseMenu(id)
}

func pointerEvent(in PointerInput) (drag.Event, error) {
	ev := drag.Event{PointerID: in.PointerID, Point: coords.Pixel{X: in.X, Y: in.Y}}
	switch strings.ToLower(in.Type) {
	case "down", "pointerdown", "touchstart":
		ev.Type = drag.Down
	case "move", "pointermove", "touchmove":
		ev.Type = drag.Move
	case "up", "pointerup", "touchend":
		ev.Type = drag.Up
	case "cancel", "pointercancel", "touchcancel":
		ev.Type = drag.Cancel
	default:
		return drag.Event{}, fmt.Errorf("unknown pointer event %q", in.Type)
	}
	if strings.EqualFold(in.Device, "touch") {
		ev.Device = drag.Touch
	}
	return ev, nil
}

// ============================================================
// Graph
// ============================================================

func (a *App) AddAggregator(id string) (graph.Node, error) {
	return a.eng.canvas.AddAggregator(id)
}

func (a *App) Connect(from, to string) (domain.Edge, error) {
	return a.eng.canvas.Connect(from, to)
}

func (a *App) Disconnect(from, to string) (bool, error) {
	return a.eng.canvas.Disconnect(from, to)
}

func (a *App) ListNodes() ([]graph.Node, error) {
	return a.eng.canvas.Nodes()
}

func (a *App) ListEdges() ([]domain.Edge, error) {
	return a.eng.canvas.Edges()
}

func (a *App) Attached(aggregatorID string) ([]string, error) {
	return a.eng.canvas.Attached(aggregatorID)
}

func (a *App) Arrange(ids []string, startX, startY float64) ([]graph.Node, error) {
	return a.eng.canvas.Arrange(ids, coords.Pixel{X: startX, Y: startY})
}

// ============================================================
// MCP approvals
// ============================================================

var errNoApprovals = errors.New("no store configured for MCP approvals")

// PendingActions lists destructive MCP calls waiting for an answer.
func (a *App) PendingActions() ([]domain.Approval, error) {
	if a.eng == nil || a.eng.approvals == nil {
		return nil, errNoApprovals
	}
	return a.eng.approvals.PendingApprovals()
}

func (a *App) ApproveAction(id string) error {
	return a.resolveAction(id, true)
}

func (a *App) RejectAction(id string) error {
	return a.resolveAction(id, false)
}

func (a *App) resolveAction(id string, approved bool) error {
	if a.eng == nil || a.eng.approvals == nil {
		return errNoApprovals
	}
	if err := a.eng.approvals.ResolveApproval(id, approved); err != nil {
		return fmt.Errorf("answer %s: %w", id, err)
	}
	return nil
}
