// Package registry is the authoritative set of live blocks on a canvas.
//
// The registry is not safe for concurrent use; the host serializes access.
// Observers are called synchronously after each mutation and may read the
// registry, but must not mutate it.
package registry

import (
	"log/slog"
	"time"

	"github.com/google/uuid"

	"canvas/internal/bus"
	"canvas/internal/domain"
	"canvas/internal/log"
)

type ChangeType int

const (
	Added ChangeType = iota
	Removed
	Updated
	Moved
)

// String returns the outbound event name for the change.
func (t ChangeType) String() string {
	switch t {
	case Added:
		return "block:added"
	case Removed:
		return "block:removed"
	case Updated:
		return "block:updated"
	case Moved:
		return "block:position-changed"
	}
	return "block:unknown"
}

type Change struct {
	Type  ChangeType
	Block domain.BlockInstance
}

type Observer interface {
	OnChange(Change)
}

type ObserverFunc func(Change)

func (f ObserverFunc) OnChange(c Change) { f(c) }

// Placer picks the initial position of a block being added.
type Placer interface {
	Place(b domain.BlockInstance) domain.Position
}

type PlacerFunc func(domain.BlockInstance) domain.Position

func (f PlacerFunc) Place(b domain.BlockInstance) domain.Position { return f(b) }

// Resources hands out and takes back transient display handles.
type Resources interface {
	Acquire(f domain.File) string
	Release(handle string) bool
}

type Registry struct {
	order     []string
	blocks    map[string]*domain.BlockInstance
	retired   map[string]struct{}
	observers []*observer
	res       Resources
	placer    Placer
	logger    *slog.Logger
	now       func() time.Time
}

type observer struct{ o Observer }

// New creates an empty registry. res may be nil when no file payloads are used.
func New(res Resources, logger *slog.Logger) *Registry {
	if logger == nil {
		logger = log.WithComponent("registry")
	}
	return &Registry{
		blocks:  make(map[string]*domain.BlockInstance),
		retired: make(map[string]struct{}),
		res:     res,
		logger:  logger,
		now:     time.Now,
	}
}

// SetPlacer installs p; nil keeps positions as given.
func (r *Registry) SetPlacer(p Placer) { r.placer = p }

// Add inserts b and returns its id. An empty ID gets a fresh uuid. Ids that
// are live or were used before are rejected.
func (r *Registry) Add(b domain.BlockInstance) (string, bool) {
	if !b.Kind.Valid() {
		r.logger.Warn("rejecting block with unknown kind", slog.String("kind", string(b.Kind)))
		return "", false
	}
	if b.ID == "" {
		b.ID = uuid.NewString()
	}
	if _, ok := r.blocks[b.ID]; ok {
		r.logger.Warn("duplicate block id", slog.String("id", b.ID))
		return "", false
	}
	if _, ok := r.retired[b.ID]; ok {
		r.logger.Warn("block id was already used", slog.String("id", b.ID))
		return "", false
	}
	if b.CreatedAt.IsZero() {
		b.CreatedAt = r.now()
	}
	if r.placer != nil {
		b.Position = r.placer.Place(b)
	}
	b.Handle = r.acquire(b.Payload)

	r.blocks[b.ID] = &b
	r.order = append(r.order, b.ID)
	r.logger.Debug("block added", slog.String("id", b.ID), slog.String("kind", b.Label()))
	r.notify(Change{Type: Added, Block: b})
	return b.ID, true
}

// Remove deletes the block and releases its display handle.
func (r *Registry) Remove(id string) bool {
	b, ok := r.blocks[id]
	if !ok {
		r.logger.Debug("remove: unknown block", slog.String("id", id))
		return false
	}
	r.release(b)
	delete(r.blocks, id)
	r.retired[id] = struct{}{}
	for i, cur := range r.order {
		if cur == id {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
	r.logger.Debug("block removed", slog.String("id", id))
	r.notify(Change{Type: Removed, Block: *b})
	return true
}

// Update applies p. A replaced payload releases the old handle first.
func (r *Registry) Update(id string, p domain.Patch) bool {
	b, ok := r.blocks[id]
	if !ok {
		r.logger.Debug("update: unknown block", slog.String("id", id))
		return false
	}
	if p.Payload == nil && p.Degraded == nil {
		return false
	}
	if p.Payload != nil {
		r.release(b)
		b.Payload = *p.Payload
		b.Handle = r.acquire(b.Payload)
	}
	if p.Degraded != nil {
		b.Degraded = *p.Degraded
	}
	r.notify(Change{Type: Updated, Block: *b})
	return true
}

// SetPosition is the one mutation that does not go through the bus: the
// drag controller writes here on every pointer move.
func (r *Registry) SetPosition(id string, pos domain.Position) bool {
	b, ok := r.blocks[id]
	if !ok {
		return false
	}
	b.Position = pos
	r.notify(Change{Type: Moved, Block: *b})
	return true
}

func (r *Registry) Position(id string) (domain.Position, bool) {
	b, ok := r.blocks[id]
	if !ok {
		return domain.Position{}, false
	}
	return b.Position, true
}

func (r *Registry) Get(id string) (domain.BlockInstance, bool) {
	b, ok := r.blocks[id]
	if !ok {
		return domain.BlockInstance{}, false
	}
	return *b, true
}

// List returns blocks in insertion order.
func (r *Registry) List() []domain.BlockInstance {
	out := make([]domain.BlockInstance, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, *r.blocks[id])
	}
	return out
}

func (r *Registry) Len() int { return len(r.order) }

// Observe registers o and returns a func that unregisters it.
func (r *Registry) Observe(o Observer) func() {
	entry := &observer{o: o}
	r.observers = append(r.observers, entry)
	return func() {
		for i, cur := range r.observers {
			if cur == entry {
				r.observers = append(r.observers[:i:i], r.observers[i+1:]...)
				return
			}
		}
	}
}

// Attach makes the registry the consumer of create, remove and update
// messages on b. The returned func detaches it.
func (r *Registry) Attach(b *bus.Bus) func() {
	subs := []bus.Subscription{
		b.SubscribeKind(bus.KindCreateBlock, func(m bus.Message) {
			c := m.(bus.CreateBlock)
			r.Add(domain.BlockInstance{
				ID:       c.ID,
				Kind:     c.Kind,
				Platform: c.Platform,
				MediaID:  c.MediaID,
				Payload:  c.Payload,
				Position: c.Position,
				Degraded: c.Degraded,
			})
		}),
		b.SubscribeKind(bus.KindRemoveBlock, func(m bus.Message) {
			r.Remove(m.(bus.RemoveBlock).ID)
		}),
		b.SubscribeKind(bus.KindUpdateBlockData, func(m bus.Message) {
			u := m.(bus.UpdateBlockData)
			r.Update(u.ID, u.Patch)
		}),
	}
	return func() {
		for _, s := range subs {
			s.Unsubscribe()
		}
	}
}

func (r *Registry) acquire(p domain.Payload) string {
	if r.res == nil || p.File == nil {
		return ""
	}
	return r.res.Acquire(*p.File)
}

func (r *Registry) release(b *domain.BlockInstance) {
	if r.res == nil || b.Handle == "" {
		return
	}
	r.res.Release(b.Handle)
	b.Handle = ""
}

func (r *Registry) notify(c Change) {
	obs := make([]*observer, len(r.observers))
	copy(obs, r.observers)
	for _, o := range obs {
		o.o.OnChange(c)
	}
}
