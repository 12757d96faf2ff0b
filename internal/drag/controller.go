// Package drag turns pointer and touch input into block position writes.
//
// One Controller serves one block. It is parameterised by a Space (percent
// or pixel coordinates), a handle predicate and a Target that owns the
// position. The Target is written on every move; the position at the moment
// the pointer is released is the committed one.
package drag

import (
	"log/slog"
	"sync"
	"time"

	"canvas/internal/coords"
	"canvas/internal/domain"
	"canvas/internal/log"
)

type State int

const (
	Idle State = iota
	Dragging
	PendingLongPress
	MenuOpen
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Dragging:
		return "dragging"
	case PendingLongPress:
		return "pending-long-press"
	case MenuOpen:
		return "menu-open"
	}
	return "unknown"
}

type EventType int

const (
	Down EventType = iota
	Move
	Up
	Cancel
)

type Device int

const (
	Mouse Device = iota
	Touch
)

// Event is one pointer sample. Point is in viewport pixels.
type Event struct {
	Type      EventType
	Device    Device
	PointerID int
	Point     coords.Pixel
}

// Target owns block positions.
type Target interface {
	Position(id string) (domain.Position, bool)
	SetPosition(id string, pos domain.Position) bool
}

// Session is the state of an active drag.
type Session struct {
	PointerID       int
	Device          Device
	PointerOrigin   coords.Pixel
	ComponentOrigin coords.Pixel
	Start           domain.Position // restored on cancel
	Last            domain.Position
}

type Options struct {
	BlockID string
	Space   Space
	Target  Target
	// IsHandle reports whether a down at p may start a drag. When nil and
	// HandleHeight > 0 the top HandleHeight pixels of the block are the
	// handle; when both are unset the whole plane is.
	IsHandle      func(p coords.Pixel) bool
	HandleHeight  float64
	LongPress     time.Duration
	MoveThreshold float64
	Scheduler     Scheduler
	// OnMenu runs when a long press opens the context menu. It is called
	// without the controller lock held.
	OnMenu func(blockID string, at coords.Pixel)
	Logger *slog.Logger
}

const (
	DefaultLongPress     = 200 * time.Millisecond
	DefaultMoveThreshold = 10.0
)

type pending struct {
	pointerID int
	start     coords.Pixel
	timer     Timer
}

type Controller struct {
	mu      sync.Mutex
	opts    Options
	state   State
	session *Session
	press   *pending
	gen     uint64
	logger  *slog.Logger
}

func New(opts Options) *Controller {
	if opts.LongPress <= 0 {
		opts.LongPress = DefaultLongPress
	}
	if opts.MoveThreshold <= 0 {
		opts.MoveThreshold = DefaultMoveThreshold
	}
	if opts.Scheduler == nil {
		opts.Scheduler = RealScheduler{}
	}
	if opts.Space == nil {
		opts.Space = PixelSpace{}
	}
	l := opts.Logger
	if l == nil {
		l = log.WithComponent("drag")
	}
	return &Controller{opts: opts, logger: l.With(slog.String("block", opts.BlockID))}
}

func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Session returns a copy of the active drag session.
func (c *Controller) Session() (Session, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.session == nil {
		return Session{}, false
	}
	return *c.session, true
}

func (c *Controller) PointerDown(id int, p coords.Pixel) bool {
	return c.Handle(Event{Type: Down, Device: Mouse, PointerID: id, Point: p})
}

func (c *Controller) PointerMove(id int, p coords.Pixel) bool {
	return c.Handle(Event{Type: Move, Device: Mouse, PointerID: id, Point: p})
}

func (c *Controller) PointerUp(id int, p coords.Pixel) bool {
	return c.Handle(Event{Type: Up, Device: Mouse, PointerID: id, Point: p})
}

func (c *Controller) TouchStart(id int, p coords.Pixel) bool {
	return c.Handle(Event{Type: Down, Device: Touch, PointerID: id, Point: p})
}

func (c *Controller) TouchMove(id int, p coords.Pixel) bool {
	return c.Handle(Event{Type: Move, Device: Touch, PointerID: id, Point: p})
}

func (c *Controller) TouchEnd(id int, p coords.Pixel) bool {
	return c.Handle(Event{Type: Up, Device: Touch, PointerID: id, Point: p})
}

// Cancel aborts whatever is in progress. An active drag snaps back to the
// position it started from.
func (c *Controller) Cancel() bool {
	return c.Handle(Event{Type: Cancel})
}

// CloseMenu dismisses a long-press menu.
func (c *Controller) CloseMenu() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state != MenuOpen {
		return false
	}
	c.setState(Idle)
	return true
}

// Handle feeds one event through the state machine and reports whether it
// changed anything.
func (c *Controller) Handle(ev Event) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	switch ev.Type {
	case Down:
		return c.down(ev)
	case Move:
		return c.move(ev)
	case Up:
		return c.up(ev)
	case Cancel:
		return c.cancel()
	}
	return false
}

func (c *Controller) down(ev Event) bool {
	switch c.state {
	case Dragging:
		if ev.Device == Touch && ev.PointerID != c.session.PointerID {
			c.logger.Debug("second touch, cancelling drag")
			return c.cancel()
		}
		return false
	case PendingLongPress:
		if ev.PointerID != c.press.pointerID {
			return c.cancel()
		}
		return false
	case MenuOpen:
		return false
	}

	if c.onHandle(ev.Point) {
		pos, ok := c.opts.Target.Position(c.opts.BlockID)
		if !ok {
			return false
		}
		c.session = &Session{
			PointerID:       ev.PointerID,
			Device:          ev.Device,
			PointerOrigin:   ev.Point,
			ComponentOrigin: c.opts.Space.ToPixel(pos),
			Start:           pos,
			Last:            pos,
		}
		c.setState(Dragging)
		return true
	}

	if ev.Device != Touch {
		return false
	}
	c.gen++
	gen := c.gen
	c.press = &pending{pointerID: ev.PointerID, start: ev.Point}
	c.press.timer = c.opts.Scheduler.AfterFunc(c.opts.LongPress, func() { c.fire(gen) })
	c.setState(PendingLongPress)
	return true
}

func (c *Controller) move(ev Event) bool {
	switch c.state {
	case Dragging:
		s := c.session
		if ev.PointerID != s.PointerID {
			return false
		}
		next := s.ComponentOrigin.Add(ev.Point.Sub(s.PointerOrigin))
		pos := c.opts.Space.FromPixel(next)
		if !c.opts.Target.SetPosition(c.opts.BlockID, pos) {
			return false
		}
		s.Last = pos
		return true
	case PendingLongPress:
		if ev.PointerID != c.press.pointerID {
			return false
		}
		if ev.Point.Dist(c.press.start) > c.opts.MoveThreshold {
			return c.cancel()
		}
	}
	return false
}

func (c *Controller) up(ev Event) bool {
	switch c.state {
	case Dragging:
		if ev.PointerID != c.session.PointerID {
			return false
		}
		c.logger.Debug("drag committed", slog.Any("position", c.session.Last))
		c.session = nil
		c.setState(Idle)
		return true
	case PendingLongPress:
		if ev.PointerID != c.press.pointerID {
			return false
		}
		return c.cancel()
	}
	return false
}

func (c *Controller) cancel() bool {
	switch c.state {
	case Dragging:
		c.opts.Target.SetPosition(c.opts.BlockID, c.session.Start)
		c.session = nil
	case PendingLongPress:
		c.press.timer.Stop()
		c.press = nil
		c.gen++
	case MenuOpen:
	default:
		return false
	}
	c.setState(Idle)
	return true
}

// fire runs on the scheduler's goroutine.
func (c *Controller) fire(gen uint64) {
	c.mu.Lock()
	if gen != c.gen || c.state != PendingLongPress {
		c.mu.Unlock()
		return
	}
	at := c.press.start
	c.press = nil
	c.setState(MenuOpen)
	onMenu := c.opts.OnMenu
	c.mu.Unlock()

	if onMenu != nil {
		onMenu(c.opts.BlockID, at)
	}
}

func (c *Controller) onHandle(p coords.Pixel) bool {
	if c.opts.IsHandle != nil {
		return c.opts.IsHandle(p)
	}
	if c.opts.HandleHeight <= 0 {
		return true
	}
	pos, ok := c.opts.Target.Position(c.opts.BlockID)
	if !ok {
		return false
	}
	return HeaderRegion(c.opts.Space.ToPixel(pos), c.opts.Space.BlockSize().W, c.opts.HandleHeight, p)
}

func (c *Controller) setState(s State) {
	if c.state == s {
		return
	}
	c.logger.Debug("state", slog.String("from", c.state.String()), slog.String("to", s.String()))
	c.state = s
}
