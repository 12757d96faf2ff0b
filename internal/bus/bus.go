// Package bus is the typed publish/subscribe channel between the canvas
// toolbar, the content router and the instance registry.
//
// Delivery is synchronous on the publishing goroutine. A Publish issued from
// inside a handler is queued and delivered once the current message has
// reached every subscriber, so subscribers always observe messages in the
// order they were published.
package bus

import (
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"

	"canvas/internal/coords"
	"canvas/internal/domain"
	"canvas/internal/log"
)

type Kind string

const (
	KindCreateBlock     Kind = "create-block"
	KindRemoveBlock     Kind = "remove-block"
	KindUpdateBlockData Kind = "update-block-data"
	KindExternalDrop    Kind = "external-drop"
)

type Message interface {
	MessageKind() Kind
}

// CreateBlock asks the registry to add a block. ID is normally empty and
// assigned by the registry.
type CreateBlock struct {
	ID       string
	Kind     domain.Kind
	Platform domain.Platform
	MediaID  string
	Payload  domain.Payload
	Position domain.Position
	Degraded bool
}

type RemoveBlock struct {
	ID string
}

type UpdateBlockData struct {
	ID    string
	Patch domain.Patch
}

// ExternalDrop carries a raw payload dropped from outside the canvas.
type ExternalDrop struct {
	Payload      domain.Payload
	DropPosition coords.Pixel
}

func (CreateBlock) MessageKind() Kind     { return KindCreateBlock }
func (RemoveBlock) MessageKind() Kind     { return KindRemoveBlock }
func (UpdateBlockData) MessageKind() Kind { return KindUpdateBlockData }
func (ExternalDrop) MessageKind() Kind    { return KindExternalDrop }

type Handler func(Message)

type subscriber struct {
	id     uint64
	kind   Kind // empty matches everything
	fn     Handler
	active atomic.Bool
}

// Subscription is returned by Subscribe; call Unsubscribe to stop delivery.
type Subscription struct {
	bus *Bus
	sub *subscriber
}

// Unsubscribe is idempotent. A subscriber removed mid-delivery does not
// receive any further messages, including the one in flight.
func (s Subscription) Unsubscribe() {
	if s.bus == nil || s.sub == nil {
		return
	}
	s.bus.remove(s.sub)
}

type Bus struct {
	mu         sync.Mutex
	subs       []*subscriber
	nextID     uint64
	queue      []Message
	delivering bool
	logger     *slog.Logger
}

// New creates a bus. A nil logger uses the process logger.
func New(logger *slog.Logger) *Bus {
	if logger == nil {
		logger = log.WithComponent("bus")
	}
	return &Bus{logger: logger}
}

// Subscribe registers fn for every message kind.
func (b *Bus) Subscribe(fn Handler) Subscription {
	return b.add("", fn)
}

// SubscribeKind registers fn for messages of one kind only.
func (b *Bus) SubscribeKind(kind Kind, fn Handler) Subscription {
	return b.add(kind, fn)
}

func (b *Bus) add(kind Kind, fn Handler) Subscription {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.nextID++
	s := &subscriber{id: b.nextID, kind: kind, fn: fn}
	s.active.Store(true)
	b.subs = append(b.subs, s)
	return Subscription{bus: b, sub: s}
}

func (b *Bus) remove(s *subscriber) {
	b.mu.Lock()
	defer b.mu.Unlock()
	s.active.Store(false)
	for i, cur := range b.subs {
		if cur == s {
			b.subs = append(b.subs[:i:i], b.subs[i+1:]...)
			return
		}
	}
}

// Len reports the number of live subscribers.
func (b *Bus) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subs)
}

// Publish delivers m to every matching subscriber before returning, unless
// it is called from inside a handler, in which case m is queued behind the
// message currently being delivered.
func (b *Bus) Publish(m Message) {
	if m == nil {
		return
	}
	b.mu.Lock()
	b.queue = append(b.queue, m)
	if b.delivering {
		b.mu.Unlock()
		return
	}
	b.delivering = true

	for len(b.queue) > 0 {
		next := b.queue[0]
		b.queue[0] = nil
		b.queue = b.queue[1:]
		subs := make([]*subscriber, len(b.subs))
		copy(subs, b.subs)
		b.mu.Unlock()

		b.deliver(next, subs)

		b.mu.Lock()
	}
	b.queue = nil
	b.delivering = false
	b.mu.Unlock()
}

func (b *Bus) deliver(m Message, subs []*subscriber) {
	kind := m.MessageKind()
	n := 0
	for _, s := range subs {
		if s.kind != "" && s.kind != kind {
			continue
		}
		if !s.active.Load() {
			continue
		}
		n++
		b.call(s, m)
	}
	if n == 0 {
		b.logger.Debug("message dropped, no subscribers", slog.String("kind", string(kind)))
	}
}

func (b *Bus) call(s *subscriber, m Message) {
	defer func() {
		if r := recover(); r != nil {
			b.logger.Error("subscriber panicked",
				slog.String("kind", string(m.MessageKind())),
				slog.Uint64("subscriber", s.id),
				slog.String("panic", fmt.Sprint(r)))
		}
	}()
	s.fn(m)
}
