package service_test

import (
	"errors"
	"math"
	"slices"
	"sync"
	"testing"
	"time"

	"canvas/internal/coords"
	"canvas/internal/domain"
	"canvas/internal/drag"
	"canvas/internal/log"
	"canvas/internal/service"
)

type manualTimer struct{ stopped bool }

func (t *manualTimer) Stop() bool {
	was := !t.stopped
	t.stopped = true
	return was
}

// manualScheduler holds callbacks until fire is called.
type manualScheduler struct {
	mu    sync.Mutex
	funcs []func()
}

func (s *manualScheduler) AfterFunc(_ time.Duration, f func()) drag.Timer {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.funcs = append(s.funcs, f)
	return &manualTimer{}
}

func (s *manualScheduler) fire() {
	s.mu.Lock()
	fns := s.funcs
	s.funcs = nil
	s.mu.Unlock()
	for _, f := range fns {
		f()
	}
}

func newFloating(t *testing.T, em *service.MockEmitter, sched drag.Scheduler) *service.CanvasService {
	t.Helper()
	svc := service.NewCanvasService(service.CanvasOptions{
		Mode:         service.ModeFloating,
		Emitter:      em,
		Viewport:     coords.Size{W: 1000, H: 500},
		HandleHeight: 32,
		Scheduler:    sched,
		Logger:       log.Discard(),
	})
	t.Cleanup(svc.Close)
	return svc
}

func newGraph(t *testing.T, em *service.MockEmitter) *service.CanvasService {
	t.Helper()
	svc := service.NewCanvasService(service.CanvasOptions{
		Mode:    service.ModeGraph,
		Emitter: em,
		Logger:  log.Discard(),
	})
	t.Cleanup(svc.Close)
	return svc
}

func near(a, b float64) bool { return math.Abs(a-b) < 1e-6 }

// ─────────────────────────────────────────────────────────────
// Paste scenarios
// ─────────────────────────────────────────────────────────────

func TestPaste_PDFBecomesDocument(t *testing.T) {
	em := &service.MockEmitter{}
	svc := newFloating(t, em, nil)

	b, err := svc.Paste(domain.FilePayload(domain.File{Name: "report.pdf", MIME: "application/pdf", Data: []byte("%PDF-1.4")}))
	if err != nil {
		t.Fatalf("paste: %v", err)
	}
	if b.Kind != domain.KindDocument {
		t.Errorf("kind = %s, want document", b.Kind)
	}
	if len(svc.List()) != 1 {
		t.Errorf("blocks = %d, want 1", len(svc.List()))
	}
	if got := em.Names(); !slices.Equal(got, []string{"block:added"}) {
		t.Errorf("events = %v", got)
	}
	if b.Handle == "" {
		t.Fatal("file block has no handle")
	}
	if f, ok := svc.ResolveHandle(b.Handle); !ok || f.Name != "report.pdf" {
		t.Errorf("ResolveHandle = (%+v, %v)", f, ok)
	}
}

func TestPaste_EmbeddedYouTubeLink(t *testing.T) {
	svc := newFloating(t, &service.MockEmitter{}, nil)

	b, err := svc.Paste(domain.TextPayload("check this out https://youtu.be/abc123 thanks"))
	if err != nil {
		t.Fatalf("paste: %v", err)
	}
	if b.Kind != domain.KindVideo || b.Platform != domain.PlatformYouTube || b.MediaID != "abc123" {
		t.Errorf("got %s/%s/%s, want video/youtube/abc123", b.Kind, b.Platform, b.MediaID)
	}
	if len(svc.List()) != 1 {
		t.Errorf("blocks = %d, want 1", len(svc.List()))
	}
}

func TestPaste_PlainText(t *testing.T) {
	svc := newFloating(t, &service.MockEmitter{}, nil)

	b, err := svc.Paste(domain.TextPayload("just some notes"))
	if err != nil {
		t.Fatalf("paste: %v", err)
	}
	if b.Kind != domain.KindText || b.Payload.Text != "just some notes" {
		t.Errorf("got %+v", b)
	}
}

func TestPaste_EmptyPayloadToasts(t *testing.T) {
	em := &service.MockEmitter{}
	svc := newFloating(t, em, nil)

	_, err := svc.Paste(domain.Payload{})
	if !errors.Is(err, service.ErrRejected) {
		t.Errorf("err = %v, want ErrRejected", err)
	}
	if len(svc.List()) != 0 {
		t.Error("empty paste created a block")
	}
	if got := em.Names(); !slices.Equal(got, []string{"toast"}) {
		t.Errorf("events = %v, want [toast]", got)
	}
}

// ─────────────────────────────────────────────────────────────
// Floating mode
// ─────────────────────────────────────────────────────────────

func TestFloating_PastedBlocksCascade(t *testing.T) {
	svc := newFloating(t, &service.MockEmitter{}, nil)
	a, _ := svc.Paste(domain.TextPayload("one"))
	b, _ := svc.Paste(domain.TextPayload("two"))

	if a.Position.Space != domain.SpacePercent || b.Position.Space != domain.SpacePercent {
		t.Fatalf("spaces = %s, %s", a.Position.Space, b.Position.Space)
	}
	if a.Position.Percent == b.Position.Percent {
		t.Errorf("both blocks at %+v", a.Position.Percent)
	}
}

func TestFloating_DropConvertsPixelsToPercent(t *testing.T) {
	svc := newFloating(t, &service.MockEmitter{}, nil)

	b, err := svc.Drop(domain.TextPayload("dropped"), coords.Pixel{X: 250, Y: 100})
	if err != nil {
		t.Fatalf("drop: %v", err)
	}
	if b.Position.Space != domain.SpacePercent {
		t.Fatalf("space = %s", b.Position.Space)
	}
	if !near(b.Position.Percent.X, 25) || !near(b.Position.Percent.Y, 20) {
		t.Errorf("percent = %+v, want (25,20)", b.Position.Percent)
	}
}

func TestFloating_PointerDrag(t *testing.T) {
	em := &service.MockEmitter{}
	svc := newFloating(t, em, nil)
	b, err := svc.Create(domain.KindText, "", domain.TextPayload("drag me"), domain.AtPercent(10, 10))
	if err != nil {
		t.Fatal(err)
	}
	em.Reset()

	// block sits at (100,50) px; grab inside the 32px header
	if !svc.HandlePointer(b.ID, drag.Event{Type: drag.Down, Device: drag.Mouse, PointerID: 1, Point: coords.Pixel{X: 110, Y: 60}}) {
		t.Fatal("down on header not accepted")
	}
	if svc.DragState(b.ID) != drag.Dragging {
		t.Fatalf("state = %s", svc.DragState(b.ID))
	}
	svc.HandlePointer(b.ID, drag.Event{Type: drag.Move, Device: drag.Mouse, PointerID: 1, Point: coords.Pixel{X: 160, Y: 110}})
	svc.HandlePointer(b.ID, drag.Event{Type: drag.Up, Device: drag.Mouse, PointerID: 1, Point: coords.Pixel{X: 160, Y: 110}})

	got, _ := svc.Get(b.ID)
	if !near(got.Position.Percent.X, 15) || !near(got.Position.Percent.Y, 20) {
		t.Errorf("percent = %+v, want (15,20)", got.Position.Percent)
	}
	if svc.DragState(b.ID) != drag.Idle {
		t.Errorf("state after up = %s", svc.DragState(b.ID))
	}
	if got := em.Names(); !slices.Equal(got, []string{"block:position-changed"}) {
		t.Errorf("events = %v", got)
	}
}

func TestFloating_PointerOnUnknownBlock(t *testing.T) {
	svc := newFloating(t, &service.MockEmitter{}, nil)
	if svc.HandlePointer("nope", drag.Event{Type: drag.Down, Point: coords.Pixel{X: 1, Y: 1}}) {
		t.Error("pointer on unknown block accepted")
	}
}

func TestFloating_LongPressOpensMenu(t *testing.T) {
	em := &service.MockEmitter{}
	sched := &manualScheduler{}
	svc := newFloating(t, em, sched)
	b, _ := svc.Create(domain.KindImage, "", domain.FilePayload(domain.File{Name: "a.png", MIME: "image/png"}), domain.AtPercent(10, 10))
	em.Reset()

	// below the header, so touch waits for a long press
	if !svc.HandlePointer(b.ID, drag.Event{Type: drag.Down, Device: drag.Touch, PointerID: 7, Point: coords.Pixel{X: 150, Y: 150}}) {
		t.Fatal("touch not accepted")
	}
	if svc.DragState(b.ID) != drag.PendingLongPress {
		t.Fatalf("state = %s", svc.DragState(b.ID))
	}

	sched.fire()

	if svc.DragState(b.ID) != drag.MenuOpen {
		t.Fatalf("state = %s, want menu-open", svc.DragState(b.ID))
	}
	if len(em.Events) != 1 || em.Events[0].Event != "block:menu" {
		t.Fatalf("events = %v", em.Names())
	}
	menu := em.Events[0].Data.(service.MenuEvent)
	if menu.ID != b.ID || menu.X != 150 || menu.Y != 150 {
		t.Errorf("menu = %+v", menu)
	}

	if !svc.CloseMenu(b.ID) || svc.DragState(b.ID) != drag.Idle {
		t.Error("CloseMenu did not return to idle")
	}
}

func TestFloating_MoveClampsPercent(t *testing.T) {
	svc := newFloating(t, &service.MockEmitter{}, nil)
	b, _ := svc.Create(domain.KindText, "", domain.TextPayload("x"), domain.AtPercent(10, 10))

	if !svc.Move(b.ID, domain.AtPercent(140, -5)) {
		t.Fatal("move rejected")
	}
	got, _ := svc.Get(b.ID)
	if got.Position.Percent.X != 100 || got.Position.Percent.Y != 0 {
		t.Errorf("percent = %+v, want (100,0)", got.Position.Percent)
	}
}

func TestRemoveAndUpdate(t *testing.T) {
	em := &service.MockEmitter{}
	svc := newFloating(t, em, nil)
	b, _ := svc.Create(domain.KindText, "", domain.TextPayload("before"), domain.Position{})

	if !svc.UpdateData(b.ID, domain.TextPayload("after")) {
		t.Fatal("update rejected")
	}
	got, _ := svc.Get(b.ID)
	if got.Payload.Text != "after" || got.Kind != domain.KindText {
		t.Errorf("got %+v", got)
	}

	if !svc.Remove(b.ID) {
		t.Fatal("remove failed")
	}
	if svc.Remove(b.ID) {
		t.Error("second remove succeeded")
	}
	if _, err := svc.Get(b.ID); !errors.Is(err, service.ErrNotFound) {
		t.Errorf("Get after remove err = %v", err)
	}
	if got := em.Names(); !slices.Equal(got, []string{"block:added", "block:updated", "block:removed"}) {
		t.Errorf("events = %v", got)
	}
}

func TestCreateRejectsUnknownKind(t *testing.T) {
	svc := newFloating(t, &service.MockEmitter{}, nil)
	if _, err := svc.Create("hologram", "", domain.TextPayload("x"), domain.Position{}); err == nil {
		t.Error("expected error")
	}
}

func TestGraphOpsOutsideGraphMode(t *testing.T) {
	svc := newFloating(t, &service.MockEmitter{}, nil)
	if _, err := svc.Connect("a", "b"); !errors.Is(err, service.ErrNotGraph) {
		t.Errorf("Connect err = %v", err)
	}
	if _, err := svc.AddAggregator("chat"); !errors.Is(err, service.ErrNotGraph) {
		t.Errorf("AddAggregator err = %v", err)
	}
	if _, err := svc.Nodes(); !errors.Is(err, service.ErrNotGraph) {
		t.Errorf("Nodes err = %v", err)
	}
}

// ─────────────────────────────────────────────────────────────
// Graph mode
// ─────────────────────────────────────────────────────────────

func TestGraph_BlocksBecomeNodes(t *testing.T) {
	svc := newGraph(t, &service.MockEmitter{})
	a, _ := svc.Paste(domain.TextPayload("one"))
	b, _ := svc.Paste(domain.TextPayload("two"))

	if a.Position.Space != domain.SpacePixel {
		t.Fatalf("space = %s, want pixel", a.Position.Space)
	}
	if a.Position.Pixel == b.Position.Pixel {
		t.Errorf("nodes overlap at %+v", a.Position.Pixel)
	}
	nodes, _ := svc.Nodes()
	if len(nodes) != 2 {
		t.Errorf("nodes = %d", len(nodes))
	}
}

func TestGraph_ConnectAggregatorAndRemove(t *testing.T) {
	em := &service.MockEmitter{}
	svc := newGraph(t, em)
	a, _ := svc.Paste(domain.TextPayload("context"))
	if _, err := svc.AddAggregator("chat"); err != nil {
		t.Fatal(err)
	}
	if _, err := svc.AddAggregator("chat"); err == nil {
		t.Error("duplicate aggregator accepted")
	}

	e, err := svc.Connect(a.ID, "chat")
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	if e.FromID != a.ID || e.ToID != "chat" {
		t.Errorf("edge = %+v", e)
	}
	attached, _ := svc.Attached("chat")
	if !slices.Equal(attached, []string{a.ID}) {
		t.Errorf("attached = %v", attached)
	}
	if !slices.Contains(em.Names(), "edge:added") {
		t.Errorf("events = %v", em.Names())
	}

	if _, err := svc.Connect(a.ID, "ghost"); !errors.Is(err, service.ErrNotFound) {
		t.Errorf("connect to unknown err = %v", err)
	}

	if ok, _ := svc.RemoveNode(a.ID); !ok {
		t.Fatal("remove failed")
	}
	edges, _ := svc.Edges()
	if len(edges) != 0 {
		t.Errorf("edges = %v", edges)
	}
	attached, _ = svc.Attached("chat")
	if len(attached) != 0 {
		t.Errorf("attached = %v", attached)
	}
	if len(svc.List()) != 0 {
		t.Error("block still registered")
	}
}

func TestGraph_DragInPixels(t *testing.T) {
	svc := newGraph(t, &service.MockEmitter{})
	b, _ := svc.Create(domain.KindText, "", domain.TextPayload("x"), domain.AtPixel(100, 100))

	svc.HandlePointer(b.ID, drag.Event{Type: drag.Down, Point: coords.Pixel{X: 110, Y: 110}})
	svc.HandlePointer(b.ID, drag.Event{Type: drag.Move, Point: coords.Pixel{X: 60, Y: 210}})
	svc.HandlePointer(b.ID, drag.Event{Type: drag.Up, Point: coords.Pixel{X: 60, Y: 210}})

	got, _ := svc.Get(b.ID)
	if got.Position.Pixel != (coords.Pixel{X: 50, Y: 200}) {
		t.Errorf("pixel = %+v, want (50,200)", got.Position.Pixel)
	}
	nodes, _ := svc.Nodes()
	if len(nodes) != 1 || nodes[0].Position != (coords.Pixel{X: 50, Y: 200}) {
		t.Errorf("node = %+v", nodes)
	}
}

func TestGraph_Arrange(t *testing.T) {
	svc := newGraph(t, &service.MockEmitter{})
	svc.Create(domain.KindText, "", domain.TextPayload("a"), domain.AtPixel(900, 900))
	svc.Create(domain.KindText, "", domain.TextPayload("b"), domain.AtPixel(5, 700))

	nodes, err := svc.Arrange(nil, coords.Pixel{X: 0, Y: 0})
	if err != nil {
		t.Fatal(err)
	}
	if len(nodes) != 2 {
		t.Fatalf("arranged %d nodes", len(nodes))
	}
	if nodes[0].Position.Y != nodes[1].Position.Y {
		t.Errorf("not on one row: %+v", nodes)
	}
}
