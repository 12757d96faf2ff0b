package app

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"canvas/internal/domain"
	"canvas/internal/log"
	"canvas/internal/service"
)

// approvalWatcher polls the store for approvals written by a standalone MCP
// process and tells the frontend about each one once.
type approvalWatcher struct {
	ctx      context.Context
	store    domain.ApprovalStore
	emitter  service.EventEmitter
	interval time.Duration
	logger   *slog.Logger

	mu      sync.Mutex
	emitted map[string]bool
	stopCh  chan struct{}
	done    chan struct{}
}

func newApprovalWatcher(ctx context.Context, store domain.ApprovalStore, emitter service.EventEmitter) *approvalWatcher {
	return &approvalWatcher{
		ctx:      ctx,
		store:    store,
		emitter:  emitter,
		interval: time.Second,
		logger:   log.WithComponent("approvals"),
		emitted:  map[string]bool{},
	}
}

// Start begins the polling loop.
func (w *approvalWatcher) Start() {
	w.stopCh = make(chan struct{})
	w.done = make(chan struct{})
	go w.pollLoop()
}

// Stop terminates the polling loop and waits for it.
func (w *approvalWatcher) Stop() {
	if w.stopCh == nil {
		return
	}
	close(w.stopCh)
	<-w.done
	w.stopCh = nil
}

func (w *approvalWatcher) pollLoop() {
	defer close(w.done)
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			w.check()
		case <-w.stopCh:
			return
		case <-w.ctx.Done():
			return
		}
	}
}

func (w *approvalWatcher) check() {
	pending, err := w.store.PendingApprovals()
	if err != nil {
		w.logger.Warn("list approvals", slog.String("err", err.Error()))
		return
	}

	live := make(map[string]bool, len(pending))
	var fresh []domain.Approval
	w.mu.Lock()
	for _, a := range pending {
		live[a.ID] = true
		if !w.emitted[a.ID] {
			w.emitted[a.ID] = true
			fresh = append(fresh, a)
		}
	}
	// answered, timed out or deleted by the requesting process
	var gone []string
	for id := range w.emitted {
		if !live[id] {
			delete(w.emitted, id)
			gone = append(gone, id)
		}
	}
	w.mu.Unlock()

	for _, a := range fresh {
		w.emitter.Emit(w.ctx, "mcp:approval-required", a)
	}
	for _, id := range gone {
		w.emitter.Emit(w.ctx, "mcp:approval-dismissed", map[string]string{"id": id})
	}
}
