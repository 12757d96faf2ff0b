package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"canvas/internal/coords"
	"canvas/internal/domain"
	"canvas/internal/graph"
	"canvas/internal/log"
	"canvas/internal/registry"
)

// ─────────────────────────────────────────────────────────────
// AssetSync — mirrors registry changes into an AssetStore
// ─────────────────────────────────────────────────────────────

// AssetSync writes asset records as blocks come and go. Positions change on
// every pointer move, so those are only marked dirty and written by Flush,
// which a cron schedule drives. Aggregator nodes are kept the same way.
type AssetSync struct {
	store    domain.AssetStore
	canvasID string
	logger   *slog.Logger

	mu       sync.Mutex
	dirty    map[string]domain.Position
	dirtyAgg map[string]coords.Pixel
	loading  bool

	// flushing holds one token while a flush runs.
	flushing  chan struct{}
	cronSched *cron.Cron
}

func NewAssetSync(store domain.AssetStore, canvasID string, logger *slog.Logger) *AssetSync {
	if logger == nil {
		logger = log.WithComponent("asset-sync")
	}
	return &AssetSync{
		store:    store,
		canvasID: canvasID,
		logger:   logger,
		dirty:    make(map[string]domain.Position),
		dirtyAgg: make(map[string]coords.Pixel),
		flushing: make(chan struct{}, 1),
	}
}

// AssetFromBlock builds the persisted record for b.
func AssetFromBlock(canvasID string, b domain.BlockInstance) domain.Asset {
	a := domain.Asset{
		ID:        b.ID,
		CanvasID:  canvasID,
		Kind:      b.Kind,
		Platform:  b.Platform,
		MediaID:   b.MediaID,
		Space:     b.Position.Space,
		CreatedAt: b.CreatedAt,
	}
	a.X, a.Y = coordsOf(b.Position)
	switch {
	case b.Payload.File != nil:
		a.Title = b.Payload.File.Name
		a.Source = b.Payload.File.Path
	case len(b.Payload.Files) > 0:
		a.Title = fmt.Sprintf("%d files", len(b.Payload.Files))
	default:
		a.Source = b.Payload.Text
		a.Title = truncate(b.Payload.Text, 80)
	}
	return a
}

// BlockFromAsset is the inverse used when a canvas is reopened. File
// contents are not persisted, so file blocks come back by path only.
func BlockFromAsset(a domain.Asset) domain.BlockInstance {
	b := domain.BlockInstance{
		ID:        a.ID,
		Kind:      a.Kind,
		Platform:  a.Platform,
		MediaID:   a.MediaID,
		CreatedAt: a.CreatedAt,
	}
	switch a.Space {
	case domain.SpacePixel:
		b.Position = domain.AtPixel(a.X, a.Y)
	case domain.SpacePercent:
		b.Position = domain.AtPercent(a.X, a.Y)
	}
	switch a.Kind {
	case domain.KindImage, domain.KindAudio, domain.KindDocument:
		b.Payload = domain.FilePayload(domain.File{Name: a.Title, Path: a.Source})
	case domain.KindVideo:
		if a.Platform == domain.PlatformDirect && !isRemote(a.Source) {
			b.Payload = domain.FilePayload(domain.File{Name: a.Title, Path: a.Source})
		} else {
			b.Payload = domain.TextPayload(a.Source)
		}
	case domain.KindFolder:
		b.Payload = domain.FilesPayload(nil)
	default:
		b.Payload = domain.TextPayload(a.Source)
	}
	return b
}

// Attach subscribes s to svc's block and graph changes.
func (s *AssetSync) Attach(svc *CanvasService) func() {
	stop := svc.Observe(s)
	svc.ObserveGraph(s.OnGraphEvent)
	return stop
}

// OnChange implements registry.Observer.
func (s *AssetSync) OnChange(c registry.Change) {
	s.mu.Lock()
	if s.loading {
		s.mu.Unlock()
		return
	}
	s.mu.Unlock()

	b := c.Block
	var err error
	switch c.Type {
	case registry.Added:
		a := AssetFromBlock(s.canvasID, b)
		err = s.store.CreateAsset(&a)
	case registry.Updated:
		a := AssetFromBlock(s.canvasID, b)
		err = s.store.UpdateAsset(&a)
	case registry.Removed:
		s.mu.Lock()
		delete(s.dirty, b.ID)
		s.mu.Unlock()
		if err = s.store.DeleteEdgesByAsset(b.ID); err == nil {
			err = s.store.DeleteAsset(b.ID)
		}
	case registry.Moved:
		s.mu.Lock()
		s.dirty[b.ID] = b.Position
		s.mu.Unlock()
	}
	if err != nil {
		s.logger.Error("asset write failed",
			slog.String("change", c.Type.String()), slog.String("id", b.ID), slog.String("err", err.Error()))
	}
}

// OnGraphEvent persists edge and aggregator changes.
func (s *AssetSync) OnGraphEvent(e graph.Event) {
	s.mu.Lock()
	loading := s.loading
	s.mu.Unlock()
	if loading {
		return
	}

	var err error
	switch e.Type {
	case graph.EdgeAdded:
		edge := e.Edge
		err = s.store.CreateEdge(&edge)
	case graph.EdgeRemoved:
		err = s.store.DeleteEdge(e.Edge.ID)
	case graph.NodeAdded:
		if e.Node == nil {
			return
		}
		agg := domain.Aggregator{
			ID:        e.Node.ID,
			CanvasID:  s.canvasID,
			X:         e.Node.Position.X,
			Y:         e.Node.Position.Y,
			CreatedAt: time.Now(),
		}
		err = s.store.CreateAggregator(&agg)
	case graph.NodeMoved:
		if e.Node == nil {
			return
		}
		s.mu.Lock()
		s.dirtyAgg[e.Node.ID] = e.Node.Position
		s.mu.Unlock()
	case graph.NodeRemoved:
		s.mu.Lock()
		delete(s.dirtyAgg, e.NodeID)
		s.mu.Unlock()
		err = s.store.DeleteAggregator(e.NodeID)
	}
	if err != nil {
		s.logger.Error("graph write failed",
			slog.String("event", string(e.Type)), slog.String("edge", e.Edge.ID),
			slog.String("node", e.NodeID), slog.String("err", err.Error()))
	}
}

// Pending returns the number of positions waiting for a flush.
func (s *AssetSync) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.dirty) + len(s.dirtyAgg)
}

// Flush writes dirty positions. A call made while another flush is running
// returns nil at once and leaves its work to the next tick.
func (s *AssetSync) Flush() error {
	select {
	case s.flushing <- struct{}{}:
	default:
		return nil
	}
	defer func() { <-s.flushing }()
	return s.flush()
}

func (s *AssetSync) flush() error {
	s.mu.Lock()
	batch, aggs := s.dirty, s.dirtyAgg
	s.dirty = make(map[string]domain.Position)
	s.dirtyAgg = make(map[string]coords.Pixel)
	s.mu.Unlock()

	var errs []error
	for id, pos := range batch {
		x, y := coordsOf(pos)
		if err := s.store.UpdateAssetPosition(id, x, y); err != nil {
			errs = append(errs, fmt.Errorf("flush %s: %w", id, err))
		}
	}
	for id, p := range aggs {
		if err := s.store.UpdateAggregatorPosition(id, p.X, p.Y); err != nil {
			errs = append(errs, fmt.Errorf("flush aggregator %s: %w", id, err))
		}
	}
	if n := len(batch) + len(aggs); n > 0 {
		s.logger.Debug("positions flushed", slog.Int("count", n), slog.Int("failed", len(errs)))
	}
	return errors.Join(errs...)
}

// Start flushes on a five-field cron spec or a descriptor such as "@every 5s".
func (s *AssetSync) Start(spec string) error {
	c := cron.New()
	if _, err := c.AddFunc(spec, func() {
		if err := s.Flush(); err != nil {
			s.logger.Warn("scheduled flush failed", slog.String("err", err.Error()))
		}
	}); err != nil {
		return fmt.Errorf("flush schedule %q: %w", spec, err)
	}
	c.Start()
	s.cronSched = c
	s.logger.Info("asset sync started", slog.String("schedule", spec))
	return nil
}

// Stop halts the schedule, waits for a running flush and writes what is left.
func (s *AssetSync) Stop(ctx context.Context) error {
	if s.cronSched != nil {
		<-s.cronSched.Stop().Done()
		s.cronSched = nil
	}
	select {
	case s.flushing <- struct{}{}:
	case <-ctx.Done():
		return fmt.Errorf("final flush: %w", ctx.Err())
	}
	defer func() { <-s.flushing }()
	return s.flush()
}

// Load restores the persisted canvas into svc without writing it back.
func (s *AssetSync) Load(svc *CanvasService) (int, error) {
	assets, err := s.store.ListAssets(s.canvasID)
	if err != nil {
		return 0, fmt.Errorf("list assets: %w", err)
	}

	s.mu.Lock()
	s.loading = true
	s.mu.Unlock()
	defer func() {
		s.mu.Lock()
		s.loading = false
		s.mu.Unlock()
	}()

	n := 0
	for _, a := range assets {
		if svc.Restore(BlockFromAsset(a)) {
			n++
		}
	}

	if svc.Mode() == ModeGraph {
		aggs, err := s.store.ListAggregators(s.canvasID)
		if err != nil {
			return n, fmt.Errorf("list aggregators: %w", err)
		}
		for _, a := range aggs {
			svc.RestoreAggregator(a.ID, coords.Pixel{X: a.X, Y: a.Y})
		}

		edges, err := s.store.ListEdges(s.canvasID)
		if err != nil {
			return n, fmt.Errorf("list edges: %w", err)
		}
		for _, e := range edges {
			if svc.RestoreEdge(e) {
				continue
			}
			s.logger.Warn("dropping stale edge", slog.String("edge", e.ID),
				slog.String("from", e.FromID), slog.String("to", e.ToID))
			if err := s.store.DeleteEdge(e.ID); err != nil {
				s.logger.Error("stale edge delete failed", slog.String("edge", e.ID), slog.String("err", err.Error()))
			}
		}
	}
	s.logger.Info("canvas restored", slog.Int("blocks", n))
	return n, nil
}

func coordsOf(p domain.Position) (float64, float64) {
	if p.Space == domain.SpacePixel {
		return p.Pixel.X, p.Pixel.Y
	}
	return p.Percent.X, p.Percent.Y
}

// isRemote reports whether src is an absolute URL rather than a file path.
func isRemote(src string) bool {
	u, err := url.Parse(src)
	return err == nil && u.Scheme != "" && u.Host != ""
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}
