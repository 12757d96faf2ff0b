package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"canvas/internal/bus"
	"canvas/internal/classify"
	"canvas/internal/coords"
	"canvas/internal/domain"
	"canvas/internal/drag"
	"canvas/internal/graph"
	"canvas/internal/log"
	"canvas/internal/preview"
	"canvas/internal/registry"
	"canvas/internal/resource"
	"canvas/internal/router"
)

// ─────────────────────────────────────────────────────────────
// Canvas Service — host facade over bus, registry and drag
// ─────────────────────────────────────────────────────────────

type Mode string

const (
	ModeFloating Mode = "floating" // percent positions
	ModeGraph    Mode = "graph"    // pixel positions, edges, aggregators
)

var (
	ErrNotGraph = errors.New("canvas is not in graph mode")
	ErrRejected = errors.New("block was not created")
	ErrNotFound = errors.New("block not found")
)

// MenuEvent is emitted as "block:menu" when a long press opens a block's menu.
type MenuEvent struct {
	ID string  `json:"id"`
	X  float64 `json:"x"`
	Y  float64 `json:"y"`
}

// Toast is emitted as "toast" for router notifications.
type Toast struct {
	Level   string `json:"level"`
	Message string `json:"message"`
}

type CanvasOptions struct {
	Mode          Mode
	CanvasID      string
	Emitter       EventEmitter
	Notifier      router.Notifier // defaults to emitting "toast"
	Classifier    *classify.Classifier
	Prober        preview.Prober
	LongPress     time.Duration
	MoveThreshold float64
	HandleHeight  float64
	Scheduler     drag.Scheduler
	Viewport      coords.Size
	Logger        *slog.Logger
}

// CanvasService serializes every entry into the canvas engine. Wails
// bindings, MCP handlers and the drop watcher all call in from their own
// goroutines.
type CanvasService struct {
	mu sync.Mutex

	opts     CanvasOptions
	ctx      context.Context
	emitter  EventEmitter
	bus      *bus.Bus
	res      *resource.Table
	reg      *registry.Registry
	graph    *graph.Graph
	router   *router.Router
	drags    map[string]*drag.Controller
	viewport coords.Size
	added    []string
	graphFns []func(graph.Event)
	detach   []func()
	logger   *slog.Logger
}

// NewCanvasService wires a bus, registry, router and (in graph mode) a graph.
func NewCanvasService(opts CanvasOptions) *CanvasService {
	if opts.Mode == "" {
		opts.Mode = ModeFloating
	}
	if opts.CanvasID == "" {
		opts.CanvasID = "default"
	}
	if opts.Emitter == nil {
		opts.Emitter = NopEmitter{}
	}
	logger := opts.Logger
	if logger == nil {
		logger = log.WithComponent("canvas")
	}

	s := &CanvasService{
		opts:     opts,
		ctx:      context.Background(),
		emitter:  opts.Emitter,
		res:      resource.NewTable(),
		drags:    make(map[string]*drag.Controller),
		viewport: coords.Viewport(opts.Viewport),
		logger:   logger.With(slog.String("canvas", opts.CanvasID), slog.String("mode", string(opts.Mode))),
	}
	s.bus = bus.New(s.logger.With(slog.String("component", "bus")))
	s.reg = registry.New(s.res, s.logger.With(slog.String("component", "registry")))

	notifier := opts.Notifier
	if notifier == nil {
		notifier = router.NotifierFunc(func(l router.Level, msg string) {
			s.emitter.Emit(s.ctx, "toast", Toast{Level: string(l), Message: msg})
		})
	}
	s.router = router.New(s.bus,
		router.WithClassifier(opts.Classifier),
		router.WithProber(opts.Prober),
		router.WithNotifier(notifier),
		router.WithLogger(s.logger.With(slog.String("component", "router"))),
	)

	if opts.Mode == ModeGraph {
		s.graph = graph.New(opts.CanvasID,
			graph.WithPositionWriter(s.reg),
			graph.WithListener(s.onGraphEvent),
			graph.WithLogger(s.logger.With(slog.String("component", "graph"))),
		)
		s.reg.SetPlacer(s.graph)
		s.reg.Observe(s.graph)
	} else {
		s.reg.SetPlacer(registry.PlacerFunc(s.placeFloating))
	}
	s.reg.Observe(registry.ObserverFunc(s.onChange))

	s.detach = append(s.detach, s.reg.Attach(s.bus), s.router.Attach(s.bus))
	return s
}

// SetContext sets the context passed to the emitter (the Wails startup ctx).
func (s *CanvasService) SetContext(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ctx = ctx
}

func (s *CanvasService) Mode() Mode       { return s.opts.Mode }
func (s *CanvasService) CanvasID() string { return s.opts.CanvasID }

// Observe registers an extra registry observer (asset sync). It runs with the
// service lock held and must not call back into the service.
func (s *CanvasService) Observe(o registry.Observer) func() {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.reg.Observe(o)
}

// ObserveGraph registers fn for edge and attachment events.
func (s *CanvasService) ObserveGraph(fn func(graph.Event)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.graphFns = append(s.graphFns, fn)
}

// ── Creation and removal ───────────────────────────────────

// Create publishes a create-block message, the toolbar path.
func (s *CanvasService) Create(kind domain.Kind, platform domain.Platform, payload domain.Payload, pos domain.Position) (domain.BlockInstance, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !kind.Valid() {
		return domain.BlockInstance{}, fmt.Errorf("create block: unknown kind %q", kind)
	}
	return s.publishAndCollect(bus.CreateBlock{Kind: kind, Platform: platform, Payload: payload, Position: pos})
}

// Restore re-adds a previously persisted block under its own id.
func (s *CanvasService) Restore(b domain.BlockInstance) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, err := s.publishAndCollect(bus.CreateBlock{
		ID: b.ID, Kind: b.Kind, Platform: b.Platform, MediaID: b.MediaID,
		Payload: b.Payload, Position: b.Position, Degraded: b.Degraded,
	})
	return err == nil
}

// Paste classifies a clipboard payload and creates one block for it.
func (s *CanvasService) Paste(p domain.Payload) (domain.BlockInstance, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.added = s.added[:0]
	if _, ok := s.router.Paste(p); !ok {
		return domain.BlockInstance{}, fmt.Errorf("paste: %w", ErrRejected)
	}
	return s.collect()
}

// Drop routes an external drop through the bus.
func (s *CanvasService) Drop(p domain.Payload, at coords.Pixel) (domain.BlockInstance, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.publishAndCollect(bus.ExternalDrop{Payload: p, DropPosition: at})
}

func (s *CanvasService) Remove(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.reg.Get(id); !ok {
		return false
	}
	s.bus.Publish(bus.RemoveBlock{ID: id})
	_, still := s.reg.Get(id)
	return !still
}

// UpdateData replaces a block's payload. The kind never changes.
func (s *CanvasService) UpdateData(id string, p domain.Payload) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.reg.Get(id); !ok {
		return false
	}
	s.bus.Publish(bus.UpdateBlockData{ID: id, Patch: domain.Patch{Payload: &p}})
	return true
}

func (s *CanvasService) publishAndCollect(m bus.Message) (domain.BlockInstance, error) {
	s.added = s.added[:0]
	s.bus.Publish(m)
	return s.collect()
}

func (s *CanvasService) collect() (domain.BlockInstance, error) {
	if len(s.added) == 0 {
		return domain.BlockInstance{}, ErrRejected
	}
	b, _ := s.reg.Get(s.added[len(s.added)-1])
	return b, nil
}

// ── Queries ────────────────────────────────────────────────

func (s *CanvasService) List() []domain.BlockInstance {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.reg.List()
}

func (s *CanvasService) Get(id string) (domain.BlockInstance, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.reg.Get(id)
	if !ok {
		return domain.BlockInstance{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return b, nil
}

// Classify reports what a payload would become without creating anything.
func (s *CanvasService) Classify(p domain.Payload) classify.Result {
	c := s.opts.Classifier
	if c == nil {
		return classify.Classify(p)
	}
	return c.Classify(p)
}

// ResolveHandle returns the file behind a block's display handle.
func (s *CanvasService) ResolveHandle(handle string) (domain.File, bool) {
	return s.res.Resolve(handle)
}

// ── Positions and drag ─────────────────────────────────────

func (s *CanvasService) SetViewport(size coords.Size) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.viewport = coords.Viewport(size)
}

func (s *CanvasService) Viewport() coords.Size {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.viewport
}

// Move sets a block position directly (MCP, keyboard nudges). Positions in
// the other coordinate space are converted with the current viewport.
func (s *CanvasService) Move(id string, pos domain.Position) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.graph != nil {
		if pos.Space == domain.SpacePercent {
			pos.Pixel = coords.ToPixel(pos.Percent, s.viewport)
		}
		return s.graph.MoveNode(id, pos.Pixel)
	}
	b, ok := s.reg.Get(id)
	if !ok {
		return false
	}
	return s.reg.SetPosition(id, s.toPercent(pos, graph.SizeOf(b.Kind)))
}

// HandlePointer feeds a pointer or touch event to the block's drag controller.
func (s *CanvasService) HandlePointer(id string, ev drag.Event) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	c := s.controller(id)
	if c == nil {
		return false
	}
	return c.Handle(ev)
}

// DragState reports the drag state of a block, Idle for unknown ids.
func (s *CanvasService) DragState(id string) drag.State {
	s.mu.Lock()
	defer s.mu.Unlock()
	if c, ok := s.drags[id]; ok {
		return c.State()
	}
	return drag.Idle
}

func (s *CanvasService) CloseMenu(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if c, ok := s.drags[id]; ok {
		return c.CloseMenu()
	}
	return false
}

func (s *CanvasService) controller(id string) *drag.Controller {
	if c, ok := s.drags[id]; ok {
		return c
	}
	b, ok := s.reg.Get(id)
	if !ok {
		return nil
	}
	size := graph.SizeOf(b.Kind)
	blockSize := func() coords.Size { return size }

	var space drag.Space
	if s.graph != nil {
		space = drag.PixelSpace{Block: blockSize}
	} else {
		// called with s.mu held, so read the field directly
		space = drag.PercentSpace{Viewport: func() coords.Size { return s.viewport }, Block: blockSize}
	}

	c := drag.New(drag.Options{
		BlockID:       id,
		Space:         space,
		Target:        s.reg,
		HandleHeight:  s.opts.HandleHeight,
		LongPress:     s.opts.LongPress,
		MoveThreshold: s.opts.MoveThreshold,
		Scheduler:     s.opts.Scheduler,
		OnMenu:        s.openMenu,
		Logger:        s.logger.With(slog.String("component", "drag")),
	})
	s.drags[id] = c
	return c
}

// openMenu runs on the long-press timer goroutine.
func (s *CanvasService) openMenu(id string, at coords.Pixel) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.emitter.Emit(s.ctx, "block:menu", MenuEvent{ID: id, X: at.X, Y: at.Y})
}

// placeFloating keeps percent positions, converts pixel drops and cascades
// blocks created without a position.
func (s *CanvasService) placeFloating(b domain.BlockInstance) domain.Position {
	if b.Position.Space == domain.SpaceNone {
		step := float64(s.reg.Len() % 10)
		return domain.AtPercent(5+step*4, 5+step*4)
	}
	return s.toPercent(b.Position, graph.SizeOf(b.Kind))
}

func (s *CanvasService) toPercent(pos domain.Position, size coords.Size) domain.Position {
	if pos.Space == domain.SpacePixel {
		px := coords.ClampPixel(pos.Pixel, s.viewport, size)
		return domain.Position{Space: domain.SpacePercent, Percent: coords.ToPercent(px, s.viewport), Pixel: px}
	}
	pos.Percent = coords.ClampPercent(pos.Percent)
	pos.Space = domain.SpacePercent
	return pos
}

// ── Graph ──────────────────────────────────────────────────

func (s *CanvasService) AddAggregator(id string) (graph.Node, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.graph == nil {
		return graph.Node{}, ErrNotGraph
	}
	n, ok := s.graph.AddAggregator(id)
	if !ok {
		return graph.Node{}, fmt.Errorf("aggregator %q already exists", id)
	}
	return n, nil
}

// RestoreAggregator re-adds a persisted aggregator at its stored position.
func (s *CanvasService) RestoreAggregator(id string, at coords.Pixel) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.graph == nil {
		return false
	}
	_, ok := s.graph.RestoreAggregator(id, at)
	return ok
}

// RestoreEdge re-adds a persisted edge under its stored id. Edges whose
// endpoints are gone are refused.
func (s *CanvasService) RestoreEdge(e domain.Edge) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.graph == nil {
		return false
	}
	return s.graph.RestoreEdge(e)
}

func (s *CanvasService) Connect(from, to string) (domain.Edge, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.graph == nil {
		return domain.Edge{}, ErrNotGraph
	}
	if _, ok := s.graph.Node(from); !ok {
		return domain.Edge{}, fmt.Errorf("connect: %w: %s", ErrNotFound, from)
	}
	if _, ok := s.graph.Node(to); !ok {
		return domain.Edge{}, fmt.Errorf("connect: %w: %s", ErrNotFound, to)
	}
	e, _ := s.graph.Connect(from, to)
	if e.ID == "" {
		return domain.Edge{}, fmt.Errorf("connect %s to itself", from)
	}
	return e, nil
}

func (s *CanvasService) Disconnect(from, to string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.graph == nil {
		return false, ErrNotGraph
	}
	return s.graph.Disconnect(from, to), nil
}

// RemoveNode removes aggregators directly and blocks through the bus.
func (s *CanvasService) RemoveNode(id string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.graph == nil {
		return false, ErrNotGraph
	}
	if _, ok := s.reg.Get(id); ok {
		s.bus.Publish(bus.RemoveBlock{ID: id})
		return true, nil
	}
	return s.graph.RemoveNode(id), nil
}

func (s *CanvasService) Nodes() ([]graph.Node, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.graph == nil {
		return nil, ErrNotGraph
	}
	return s.graph.Nodes(), nil
}

func (s *CanvasService) Edges() ([]domain.Edge, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.graph == nil {
		return nil, ErrNotGraph
	}
	return s.graph.Edges(), nil
}

func (s *CanvasService) Attached(aggregatorID string) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.graph == nil {
		return nil, ErrNotGraph
	}
	return s.graph.Attached(aggregatorID), nil
}

// Arrange lays out the given nodes (all nodes when ids is empty) in rows.
func (s *CanvasService) Arrange(ids []string, start coords.Pixel) ([]graph.Node, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.graph == nil {
		return nil, ErrNotGraph
	}
	if len(ids) == 0 {
		for _, n := range s.graph.Nodes() {
			ids = append(ids, n.ID)
		}
	}
	return s.graph.Arrange(ids, start), nil
}

// ── Outbound ───────────────────────────────────────────────

func (s *CanvasService) onChange(c registry.Change) {
	switch c.Type {
	case registry.Added:
		s.added = append(s.added, c.Block.ID)
	case registry.Removed:
		if d, ok := s.drags[c.Block.ID]; ok {
			d.Cancel()
			delete(s.drags, c.Block.ID)
		}
	}
	s.emitter.Emit(s.ctx, c.Type.String(), c.Block)
}

func (s *CanvasService) onGraphEvent(e graph.Event) {
	s.emitter.Emit(s.ctx, string(e.Type), e)
	for _, fn := range s.graphFns {
		fn(e)
	}
}

// Close detaches the registry and router from the bus.
func (s *CanvasService) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, d := range s.drags {
		d.Cancel()
	}
	for _, fn := range s.detach {
		fn()
	}
	s.detach = nil
}
