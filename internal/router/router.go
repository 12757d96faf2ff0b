// Package router turns raw pasted or dropped payloads into create-block
// messages. It is the only place that decides what kind a new block is.
package router

import (
	"fmt"
	"log/slog"

	"canvas/internal/bus"
	"canvas/internal/classify"
	"canvas/internal/coords"
	"canvas/internal/domain"
	"canvas/internal/log"
	"canvas/internal/preview"
)

type Level string

const (
	Info  Level = "info"
	Warn  Level = "warn"
	Error Level = "error"
)

// Notifier surfaces short user-facing messages (toasts).
type Notifier interface {
	Notify(level Level, message string)
}

type NotifierFunc func(Level, string)

func (f NotifierFunc) Notify(l Level, msg string) { f(l, msg) }

type Publisher interface {
	Publish(m bus.Message)
}

type Router struct {
	pub    Publisher
	cls    *classify.Classifier
	probe  preview.Prober
	notify Notifier
	logger *slog.Logger
}

type Option func(*Router)

func WithClassifier(c *classify.Classifier) Option { return func(r *Router) { r.cls = c } }
func WithProber(p preview.Prober) Option           { return func(r *Router) { r.probe = p } }
func WithNotifier(n Notifier) Option               { return func(r *Router) { r.notify = n } }
func WithLogger(l *slog.Logger) Option             { return func(r *Router) { r.logger = l } }

func New(pub Publisher, opts ...Option) *Router {
	r := &Router{pub: pub}
	for _, o := range opts {
		o(r)
	}
	if r.cls == nil {
		r.cls = classify.New()
	}
	if r.probe == nil {
		r.probe = preview.Default
	}
	if r.logger == nil {
		r.logger = log.WithComponent("router")
	}
	if r.notify == nil {
		r.notify = NotifierFunc(func(l Level, msg string) {
			r.logger.Info("notify", slog.String("level", string(l)), slog.String("message", msg))
		})
	}
	return r
}

// Paste routes a clipboard payload. The host decides where it lands.
func (r *Router) Paste(p domain.Payload) (bus.CreateBlock, bool) {
	return r.Route(p, domain.Position{})
}

// Drop routes a payload dropped at a viewport pixel.
func (r *Router) Drop(p domain.Payload, at coords.Pixel) (bus.CreateBlock, bool) {
	return r.Route(p, domain.Position{Space: domain.SpacePixel, Pixel: at})
}

// Route classifies p and publishes exactly one create-block message for it.
// Empty payloads publish nothing.
func (r *Router) Route(p domain.Payload, pos domain.Position) (bus.CreateBlock, bool) {
	if p.IsEmpty() {
		r.notify.Notify(Info, "Nothing to paste")
		return bus.CreateBlock{}, false
	}

	res := r.cls.Classify(p)
	msg := bus.CreateBlock{
		Kind:     res.Kind,
		Platform: res.Platform,
		MediaID:  res.MediaID,
		Position: pos,
	}

	switch res.Kind {
	case domain.KindFolder:
		msg.Payload = domain.FilesPayload(p.Files)
	case domain.KindImage, domain.KindAudio, domain.KindDocument:
		msg.Payload, msg.Degraded = r.filePayload(p)
	case domain.KindVideo:
		if res.URL != "" {
			msg.Payload = domain.TextPayload(res.URL)
		} else {
			msg.Payload, msg.Degraded = r.filePayload(p)
		}
	case domain.KindWebLink:
		msg.Payload = domain.TextPayload(res.URL)
	case domain.KindText:
		msg.Payload = domain.TextPayload(p.Text)
	default:
		r.logger.Error("classifier returned unknown kind", slog.String("kind", string(res.Kind)))
		return bus.CreateBlock{}, false
	}

	r.logger.Debug("routing payload", slog.String("kind", res.Label()), slog.Bool("degraded", msg.Degraded))
	r.pub.Publish(msg)
	return msg, true
}

func (r *Router) filePayload(p domain.Payload) (domain.Payload, bool) {
	var f domain.File
	switch {
	case p.File != nil:
		f = *p.File
	case len(p.Files) == 1:
		f = p.Files[0]
	default:
		return p, false
	}

	if _, err := r.probe.Probe(f); err != nil {
		r.logger.Warn("preview failed", slog.String("file", f.Name), slog.String("err", err.Error()))
		r.notify.Notify(Warn, fmt.Sprintf("Couldn't preview %s", displayName(f)))
		return domain.FilePayload(f), true
	}
	return domain.FilePayload(f), false
}

// Attach routes external-drop messages from b. The returned func detaches.
func (r *Router) Attach(b *bus.Bus) func() {
	sub := b.SubscribeKind(bus.KindExternalDrop, func(m bus.Message) {
		d := m.(bus.ExternalDrop)
		r.Drop(d.Payload, d.DropPosition)
	})
	return sub.Unsubscribe
}

func displayName(f domain.File) string {
	if f.Name == "" {
		return "file"
	}
	return f.Name
}
