package graph_test

import (
	"testing"

	"canvas/internal/coords"
	"canvas/internal/domain"
	"canvas/internal/graph"
	"canvas/internal/log"
	"canvas/internal/registry"
)

func setup(t *testing.T) (*registry.Registry, *graph.Graph, *[]graph.Event) {
	t.Helper()
	var events []graph.Event
	reg := registry.New(nil, log.Discard())
	g := graph.New("c1",
		graph.WithPositionWriter(reg),
		graph.WithListener(func(e graph.Event) { events = append(events, e) }),
		graph.WithLogger(log.Discard()),
	)
	reg.SetPlacer(g)
	reg.Observe(g)
	return reg, g, &events
}

func TestNodesFollowRegistry(t *testing.T) {
	reg, g, _ := setup(t)
	a, _ := reg.Add(domain.BlockInstance{Kind: domain.KindVideo})
	b, _ := reg.Add(domain.BlockInstance{Kind: domain.KindText})

	nodes := g.Nodes()
	if len(nodes) != 2 || nodes[0].ID != a || nodes[1].ID != b {
		t.Fatalf("nodes = %+v", nodes)
	}
	if nodes[0].Size != (coords.Size{W: 475, H: 409}) {
		t.Fatalf("video size = %v", nodes[0].Size)
	}

	// auto layout wrote pixel positions back and they don't collide
	pa, _ := reg.Position(a)
	pb, _ := reg.Position(b)
	if pa.Space != domain.SpacePixel || pb.Space != domain.SpacePixel {
		t.Fatalf("positions not pixel: %+v %+v", pa, pb)
	}
	if pa.Pixel == pb.Pixel {
		t.Fatalf("auto layout stacked nodes at %v", pa.Pixel)
	}

	reg.Remove(a)
	if _, ok := g.Node(a); ok {
		t.Fatal("node survived registry removal")
	}
}

func TestExplicitPixelPositionKept(t *testing.T) {
	reg, g, _ := setup(t)
	id, _ := reg.Add(domain.BlockInstance{Kind: domain.KindImage, Position: domain.AtPixel(900, 300)})
	n, _ := g.Node(id)
	if n.Position != (coords.Pixel{X: 900, Y: 300}) {
		t.Fatalf("position = %v", n.Position)
	}
}

func TestMoveNodeWritesThroughRegistry(t *testing.T) {
	reg, g, _ := setup(t)
	id, _ := reg.Add(domain.BlockInstance{Kind: domain.KindAudio})
	if !g.MoveNode(id, coords.Pixel{X: 120, Y: -40}) {
		t.Fatal("MoveNode failed")
	}
	pos, _ := reg.Position(id)
	n, _ := g.Node(id)
	if pos.Pixel != (coords.Pixel{X: 120, Y: 0}) || n.Position != pos.Pixel {
		t.Fatalf("registry %v, node %v", pos.Pixel, n.Position)
	}
}

// ─────────────────────────────────────────────────────────────
// Edges and aggregators
// ─────────────────────────────────────────────────────────────

func TestConnectAttachesToAggregator(t *testing.T) {
	reg, g, events := setup(t)
	asset, _ := reg.Add(domain.BlockInstance{Kind: domain.KindDocument})
	chat, ok := g.AddAggregator("chat")
	if !ok {
		t.Fatal("AddAggregator failed")
	}
	if len(*events) != 1 || (*events)[0].Type != graph.NodeAdded || (*events)[0].Node.ID != "chat" {
		t.Fatalf("add events = %+v", *events)
	}
	*events = nil

	if _, ok := g.Connect(asset, chat.ID); !ok {
		t.Fatal("Connect failed")
	}
	if _, ok := g.Connect(asset, chat.ID); ok {
		t.Fatal("reconnect should be a no-op")
	}
	if got := g.Attached(chat.ID); len(got) != 1 || got[0] != asset {
		t.Fatalf("attached = %v", got)
	}
	if len(g.Edges()) != 1 {
		t.Fatalf("edges = %v", g.Edges())
	}

	var kinds []graph.EventType
	for _, e := range *events {
		kinds = append(kinds, e.Type)
	}
	if len(kinds) != 2 || kinds[0] != graph.EdgeAdded || kinds[1] != graph.NodeAttached {
		t.Fatalf("events = %v", kinds)
	}
}

func TestConnectRejectsUnknownAndSelf(t *testing.T) {
	reg, g, _ := setup(t)
	a, _ := reg.Add(domain.BlockInstance{Kind: domain.KindText})
	if _, ok := g.Connect(a, a); ok {
		t.Fatal("self edge accepted")
	}
	if _, ok := g.Connect(a, "ghost"); ok {
		t.Fatal("edge to unknown node accepted")
	}
}

func TestAggregatorLinkIgnoresDirection(t *testing.T) {
	reg, g, _ := setup(t)
	asset, _ := reg.Add(domain.BlockInstance{Kind: domain.KindImage})
	g.AddAggregator("chat")

	first, ok := g.Connect(asset, "chat")
	if !ok {
		t.Fatal("Connect failed")
	}
	again, ok := g.Connect("chat", asset)
	if ok || again.ID != first.ID {
		t.Fatalf("reverse connect = (%+v, %v), want the existing edge", again, ok)
	}
	if len(g.Edges()) != 1 {
		t.Fatalf("edges = %v", g.Edges())
	}

	// asset to asset edges stay directed
	other, _ := reg.Add(domain.BlockInstance{Kind: domain.KindText})
	g.Connect(asset, other)
	if _, ok := g.Connect(other, asset); !ok {
		t.Fatal("reverse edge between assets rejected")
	}
}

func TestDisconnectDetaches(t *testing.T) {
	reg, g, _ := setup(t)
	asset, _ := reg.Add(domain.BlockInstance{Kind: domain.KindImage})
	g.AddAggregator("chat")
	g.Connect("chat", asset)

	if !g.Disconnect(asset, "chat") {
		t.Fatal("Disconnect from the asset side failed")
	}
	if len(g.Attached("chat")) != 0 || len(g.Edges()) != 0 {
		t.Fatalf("attached = %v, edges = %v", g.Attached("chat"), g.Edges())
	}
	if g.Disconnect(asset, "chat") {
		t.Fatal("second Disconnect should be a no-op")
	}
}

// ─────────────────────────────────────────────────────────────
// Restore
// ─────────────────────────────────────────────────────────────

func TestRestoreKeepsStoredIdentity(t *testing.T) {
	reg, g, events := setup(t)
	asset, _ := reg.Add(domain.BlockInstance{Kind: domain.KindText, Position: domain.AtPixel(0, 0)})

	n, ok := g.RestoreAggregator("chat", coords.Pixel{X: 900, Y: 60})
	if !ok || n.Position != (coords.Pixel{X: 900, Y: 60}) {
		t.Fatalf("RestoreAggregator = (%+v, %v)", n, ok)
	}
	if !g.RestoreEdge(domain.Edge{ID: "edge-1", FromID: asset, ToID: "chat"}) {
		t.Fatal("RestoreEdge failed")
	}
	if g.RestoreEdge(domain.Edge{ID: "edge-2", FromID: "chat", ToID: asset}) {
		t.Fatal("reverse duplicate restored")
	}
	if g.RestoreEdge(domain.Edge{ID: "edge-3", FromID: asset, ToID: "gone"}) {
		t.Fatal("edge to a missing node restored")
	}

	edges := g.Edges()
	if len(edges) != 1 || edges[0].ID != "edge-1" || edges[0].CanvasID != "c1" {
		t.Fatalf("edges = %+v", edges)
	}
	if got := g.Attached("chat"); len(got) != 1 || got[0] != asset {
		t.Fatalf("attached = %v", got)
	}

	*events = nil
	g.Disconnect(asset, "chat")
	if len(*events) == 0 || (*events)[0].Type != graph.EdgeRemoved || (*events)[0].Edge.ID != "edge-1" {
		t.Fatalf("events = %+v", *events)
	}
}

func TestAggregatorEvents(t *testing.T) {
	_, g, events := setup(t)
	g.AddAggregator("chat")
	g.MoveNode("chat", coords.Pixel{X: 120, Y: 90})
	g.MoveNode("chat", coords.Pixel{X: 120, Y: 90})
	g.RemoveNode("chat")

	var kinds []graph.EventType
	for _, e := range *events {
		kinds = append(kinds, e.Type)
	}
	want := []graph.EventType{graph.NodeAdded, graph.NodeMoved, graph.NodeRemoved}
	if len(kinds) != len(want) {
		t.Fatalf("events = %v", kinds)
	}
	for i := range want {
		if kinds[i] != want[i] {
			t.Fatalf("events = %v", kinds)
		}
	}
	if (*events)[1].Node.Position != (coords.Pixel{X: 120, Y: 90}) {
		t.Errorf("moved node = %+v", (*events)[1].Node)
	}
}

func TestRemoveNodeLeavesNoDanglingEdges(t *testing.T) {
	reg, g, _ := setup(t)
	a, _ := reg.Add(domain.BlockInstance{Kind: domain.KindText})
	b, _ := reg.Add(domain.BlockInstance{Kind: domain.KindWebLink})
	c, _ := reg.Add(domain.BlockInstance{Kind: domain.KindVideo})
	g.AddAggregator("chat")
	g.Connect(a, b)
	g.Connect(b, c)
	g.Connect(b, "chat")
	g.Connect(a, "chat")

	reg.Remove(b)

	for _, e := range g.Edges() {
		if e.FromID == b || e.ToID == b {
			t.Fatalf("dangling edge %+v", e)
		}
	}
	if got := g.Attached("chat"); len(got) != 1 || got[0] != a {
		t.Fatalf("attached = %v", got)
	}

	g.RemoveNode("chat")
	if len(g.Edges()) != 0 {
		t.Fatalf("edges left after removing aggregator: %v", g.Edges())
	}
	if g.Attached("chat") != nil {
		t.Fatal("aggregator set survived removal")
	}
}

func TestArrange(t *testing.T) {
	reg, g, _ := setup(t)
	var ids []string
	for i := 0; i < 3; i++ {
		id, _ := reg.Add(domain.BlockInstance{Kind: domain.KindText, Position: domain.AtPixel(0, 0)})
		ids = append(ids, id)
	}
	out := g.Arrange(append(ids, "ghost"), coords.Pixel{X: 30, Y: 30})
	if len(out) != 3 {
		t.Fatalf("arranged %d nodes", len(out))
	}
	seen := map[coords.Pixel]bool{}
	for _, n := range out {
		if seen[n.Position] {
			t.Fatalf("two nodes at %v", n.Position)
		}
		seen[n.Position] = true
		if pos, _ := reg.Position(n.ID); pos.Pixel != n.Position {
			t.Fatalf("registry not updated for %s", n.ID)
		}
	}
}
