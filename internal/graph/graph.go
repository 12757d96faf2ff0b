// Package graph projects registry blocks onto a pixel-positioned node graph
// with directed edges. Aggregator nodes (chat panels) collect the assets
// connected to them.
package graph

import (
	"log/slog"
	"time"

	"github.com/google/uuid"

	"canvas/internal/coords"
	"canvas/internal/domain"
	"canvas/internal/log"
	"canvas/internal/registry"
)

// Dimensions is the default node size per block kind.
var Dimensions = map[domain.Kind]coords.Size{
	domain.KindVideo:    {W: 475, H: 409},
	domain.KindImage:    {W: 296, H: 224},
	domain.KindAudio:    {W: 400, H: 200},
	domain.KindDocument: {W: 300, H: 145},
	domain.KindWebLink:  {W: 300, H: 145},
	domain.KindText:     {W: 300, H: 200},
	domain.KindFolder:   {W: 300, H: 200},
}

var AggregatorSize = coords.Size{W: 420, H: 520}

// SizeOf returns the node size for k.
func SizeOf(k domain.Kind) coords.Size {
	if s, ok := Dimensions[k]; ok {
		return s
	}
	return coords.Size{W: 300, H: 200}
}

type Node struct {
	ID         string       `json:"id"`
	Kind       domain.Kind  `json:"kind,omitempty"`
	Aggregator bool         `json:"aggregator,omitempty"`
	Position   coords.Pixel `json:"position"`
	Size       coords.Size  `json:"size"`
}

func (n Node) Bounds() coords.Rect { return coords.RectAt(n.Position, n.Size) }

type EventType string

const (
	EdgeAdded    EventType = "edge:added"
	EdgeRemoved  EventType = "edge:removed"
	NodeAttached EventType = "node:attached"
	NodeDetached EventType = "node:detached"

	// Aggregator lifecycle. Asset nodes follow the registry and have no
	// events of their own.
	NodeAdded   EventType = "node:added"
	NodeMoved   EventType = "node:moved"
	NodeRemoved EventType = "node:removed"
)

type Event struct {
	Type       EventType   `json:"type"`
	Edge       domain.Edge `json:"edge,omitempty"`
	Node       *Node       `json:"node,omitempty"`
	NodeID     string      `json:"nodeId,omitempty"`
	Aggregator string      `json:"aggregator,omitempty"`
}

// PositionWriter receives position changes made through the graph, normally
// the registry.
type PositionWriter interface {
	SetPosition(id string, pos domain.Position) bool
}

// Graph is not safe for concurrent use.
type Graph struct {
	canvasID string
	nodes    map[string]*Node
	order    []string
	edges    []domain.Edge
	attached map[string][]string
	layout   *LayoutEngine
	writer   PositionWriter
	listener func(Event)
	logger   *slog.Logger
}

type Option func(*Graph)

func WithPositionWriter(w PositionWriter) Option { return func(g *Graph) { g.writer = w } }
func WithListener(fn func(Event)) Option         { return func(g *Graph) { g.listener = fn } }
func WithLogger(l *slog.Logger) Option           { return func(g *Graph) { g.logger = l } }

func New(canvasID string, opts ...Option) *Graph {
	g := &Graph{
		canvasID: canvasID,
		nodes:    make(map[string]*Node),
		attached: make(map[string][]string),
		layout:   NewLayoutEngine(),
	}
	for _, o := range opts {
		o(g)
	}
	if g.logger == nil {
		g.logger = log.WithComponent("graph")
	}
	return g
}

// Place keeps pixel positions and auto-lays-out everything else.
func (g *Graph) Place(b domain.BlockInstance) domain.Position {
	if b.Position.Space == domain.SpacePixel {
		return b.Position
	}
	p := g.layout.NextPosition(g.Nodes(), SizeOf(b.Kind))
	return domain.Position{Space: domain.SpacePixel, Pixel: p}
}

// OnChange keeps the node set in step with the registry.
func (g *Graph) OnChange(c registry.Change) {
	b := c.Block
	switch c.Type {
	case registry.Added:
		if _, ok := g.nodes[b.ID]; ok {
			return
		}
		pos := b.Position.Pixel
		if b.Position.Space != domain.SpacePixel {
			pos = g.Place(b).Pixel
		}
		g.insert(&Node{ID: b.ID, Kind: b.Kind, Position: pos, Size: SizeOf(b.Kind)})
	case registry.Moved:
		if n, ok := g.nodes[b.ID]; ok && b.Position.Space == domain.SpacePixel {
			n.Position = b.Position.Pixel
		}
	case registry.Removed:
		g.RemoveNode(b.ID)
	}
}

func (g *Graph) insert(n *Node) {
	g.nodes[n.ID] = n
	g.order = append(g.order, n.ID)
}

// AddAggregator adds a chat node at the next free grid spot. An empty id
// gets a fresh uuid.
func (g *Graph) AddAggregator(id string) (Node, bool) {
	return g.addAggregator(id, g.layout.NextPosition(g.Nodes(), AggregatorSize))
}

// RestoreAggregator re-adds a persisted aggregator where it was.
func (g *Graph) RestoreAggregator(id string, at coords.Pixel) (Node, bool) {
	if id == "" {
		return Node{}, false
	}
	return g.addAggregator(id, at)
}

func (g *Graph) addAggregator(id string, at coords.Pixel) (Node, bool) {
	if id == "" {
		id = uuid.NewString()
	}
	if _, ok := g.nodes[id]; ok {
		return Node{}, false
	}
	n := &Node{ID: id, Aggregator: true, Position: at, Size: AggregatorSize}
	g.insert(n)
	g.attached[id] = nil
	cp := *n
	g.emit(Event{Type: NodeAdded, Node: &cp})
	return *n, true
}

// Connect adds a directed edge. Connecting an asset to an aggregator attaches
// it; an asset and an aggregator are one link whichever way it was drawn.
// An existing edge is returned with false.
func (g *Graph) Connect(from, to string) (domain.Edge, bool) {
	return g.link(domain.Edge{ID: uuid.NewString(), CanvasID: g.canvasID, FromID: from, ToID: to, CreatedAt: time.Now()})
}

// RestoreEdge re-adds a persisted edge under its stored id.
func (g *Graph) RestoreEdge(e domain.Edge) bool {
	if e.ID == "" {
		return false
	}
	if e.CanvasID == "" {
		e.CanvasID = g.canvasID
	}
	_, ok := g.link(e)
	return ok
}

func (g *Graph) link(e domain.Edge) (domain.Edge, bool) {
	from, to := e.FromID, e.ToID
	if from == to {
		return domain.Edge{}, false
	}
	a, okA := g.nodes[from]
	b, okB := g.nodes[to]
	if !okA || !okB {
		g.logger.Debug("connect: unknown node", slog.String("from", from), slog.String("to", to))
		return domain.Edge{}, false
	}
	if i := g.find(from, to); i >= 0 {
		return g.edges[i], false
	}
	for _, cur := range g.edges {
		if cur.ID == e.ID {
			return cur, false
		}
	}

	g.edges = append(g.edges, e)
	g.emit(Event{Type: EdgeAdded, Edge: e})

	switch {
	case b.Aggregator && !a.Aggregator:
		g.attach(to, from)
	case a.Aggregator && !b.Aggregator:
		g.attach(from, to)
	}
	return e, true
}

// find returns the index of the from→to edge, or -1. For an asset and an
// aggregator the reverse edge matches too.
func (g *Graph) find(from, to string) int {
	mixed := g.isAggregator(from) != g.isAggregator(to)
	for i, e := range g.edges {
		if e.FromID == from && e.ToID == to {
			return i
		}
		if mixed && e.FromID == to && e.ToID == from {
			return i
		}
	}
	return -1
}

func (g *Graph) isAggregator(id string) bool {
	n, ok := g.nodes[id]
	return ok && n.Aggregator
}

// Disconnect removes the from→to edge, or for an asset and an aggregator
// the one link between them, detaching the asset.
func (g *Graph) Disconnect(from, to string) bool {
	idx := g.find(from, to)
	if idx < 0 {
		return false
	}
	e := g.edges[idx]
	g.edges = append(g.edges[:idx], g.edges[idx+1:]...)
	g.emit(Event{Type: EdgeRemoved, Edge: e})

	if g.isAggregator(to) {
		g.detach(to, from)
	}
	if g.isAggregator(from) {
		g.detach(from, to)
	}
	return true
}

// RemoveNode drops the node, its edges and its aggregator memberships.
func (g *Graph) RemoveNode(id string) bool {
	n, ok := g.nodes[id]
	if !ok {
		return false
	}

	kept := g.edges[:0]
	for _, e := range g.edges {
		if e.FromID == id || e.ToID == id {
			g.emit(Event{Type: EdgeRemoved, Edge: e})
			continue
		}
		kept = append(kept, e)
	}
	g.edges = kept

	if n.Aggregator {
		delete(g.attached, id)
	}
	for agg := range g.attached {
		g.detach(agg, id)
	}

	delete(g.nodes, id)
	for i, cur := range g.order {
		if cur == id {
			g.order = append(g.order[:i], g.order[i+1:]...)
			break
		}
	}
	if n.Aggregator {
		g.emit(Event{Type: NodeRemoved, Node: n, NodeID: id})
	}
	return true
}

// MoveNode sets a node's pixel position, writing through to the registry
// for asset nodes.
func (g *Graph) MoveNode(id string, p coords.Pixel) bool {
	n, ok := g.nodes[id]
	if !ok {
		return false
	}
	p.X = max(p.X, 0)
	p.Y = max(p.Y, 0)
	if !n.Aggregator && g.writer != nil {
		return g.writer.SetPosition(id, domain.Position{Space: domain.SpacePixel, Pixel: p})
	}
	if n.Position == p {
		return true
	}
	n.Position = p
	if n.Aggregator {
		cp := *n
		g.emit(Event{Type: NodeMoved, Node: &cp, NodeID: id})
	}
	return true
}

// Arrange lays the given nodes out in rows from start. Unknown ids are skipped.
func (g *Graph) Arrange(ids []string, start coords.Pixel) []Node {
	var group []Node
	for _, id := range ids {
		if n, ok := g.nodes[id]; ok {
			group = append(group, *n)
		}
	}
	group = g.layout.ArrangeGroup(group, start)
	for _, n := range group {
		g.MoveNode(n.ID, n.Position)
	}
	out := make([]Node, 0, len(group))
	for _, n := range group {
		out = append(out, *g.nodes[n.ID])
	}
	return out
}

func (g *Graph) Node(id string) (Node, bool) {
	n, ok := g.nodes[id]
	if !ok {
		return Node{}, false
	}
	return *n, true
}

// Nodes returns nodes in insertion order.
func (g *Graph) Nodes() []Node {
	out := make([]Node, 0, len(g.order))
	for _, id := range g.order {
		out = append(out, *g.nodes[id])
	}
	return out
}

func (g *Graph) Edges() []domain.Edge {
	return append([]domain.Edge(nil), g.edges...)
}

// Attached returns the assets attached to an aggregator, in attach order.
func (g *Graph) Attached(aggregatorID string) []string {
	return append([]string(nil), g.attached[aggregatorID]...)
}

func (g *Graph) attach(agg, id string) {
	for _, cur := range g.attached[agg] {
		if cur == id {
			return
		}
	}
	g.attached[agg] = append(g.attached[agg], id)
	g.emit(Event{Type: NodeAttached, NodeID: id, Aggregator: agg})
}

func (g *Graph) detach(agg, id string) {
	set := g.attached[agg]
	for i, cur := range set {
		if cur == id {
			g.attached[agg] = append(set[:i:i], set[i+1:]...)
			g.emit(Event{Type: NodeDetached, NodeID: id, Aggregator: agg})
			return
		}
	}
}

func (g *Graph) emit(e Event) {
	if g.listener != nil {
		g.listener(e)
	}
}
