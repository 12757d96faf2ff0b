package service_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"canvas/internal/domain"
	"canvas/internal/service"
)

// blockingStore holds UpdateAssetPosition until release is closed.
type blockingStore struct {
	domain.AssetStore
	entered chan string
	release chan struct{}
}

func (s *blockingStore) UpdateAssetPosition(id string, x, y float64) error {
	select {
	case s.entered <- id:
	default:
	}
	<-s.release
	return s.AssetStore.UpdateAssetPosition(id, x, y)
}

func newBlockingSync(t *testing.T) (*service.CanvasService, *service.AssetSync, *blockingStore) {
	t.Helper()
	store := &blockingStore{
		AssetStore: newAssetStore(t),
		entered:    make(chan string, 1),
		release:    make(chan struct{}),
	}
	svc, sync := newSynced(t, store, service.ModeFloating)
	return svc, sync, store
}

// ─────────────────────────────────────────────────────────────
// Flush overlap
// ─────────────────────────────────────────────────────────────

func TestAssetSync_OverlappingFlushSkips(t *testing.T) {
	svc, sync, store := newBlockingSync(t)

	a, _ := svc.Paste(domain.TextPayload("a"))
	svc.Move(a.ID, domain.AtPercent(20, 20))

	first := make(chan error, 1)
	go func() { first <- sync.Flush() }()
	select {
	case <-store.entered:
	case <-time.After(time.Second):
		t.Fatal("first flush never reached the store")
	}

	b, _ := svc.Paste(domain.TextPayload("b"))
	svc.Move(b.ID, domain.AtPercent(30, 30))

	second := make(chan error, 1)
	go func() { second <- sync.Flush() }()
	select {
	case err := <-second:
		if err != nil {
			t.Fatalf("second flush: %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("second flush waited for the first")
	}
	if sync.Pending() != 1 {
		t.Errorf("pending = %d, want the second move kept for the next tick", sync.Pending())
	}

	close(store.release)
	if err := <-first; err != nil {
		t.Fatal(err)
	}
	if err := sync.Flush(); err != nil {
		t.Fatal(err)
	}
	if sync.Pending() != 0 {
		t.Errorf("pending after follow-up flush = %d", sync.Pending())
	}
	got, _ := store.GetAsset(b.ID)
	if got.X != 30 || got.Y != 30 {
		t.Errorf("b stored at (%v,%v)", got.X, got.Y)
	}
}

func TestAssetSync_StopWaitsForRunningFlush(t *testing.T) {
	svc, sync, store := newBlockingSync(t)

	a, _ := svc.Paste(domain.TextPayload("a"))
	svc.Move(a.ID, domain.AtPercent(20, 20))

	first := make(chan error, 1)
	go func() { first <- sync.Flush() }()
	<-store.entered

	b, _ := svc.Paste(domain.TextPayload("b"))
	svc.Move(b.ID, domain.AtPercent(40, 50))

	stopped := make(chan error, 1)
	go func() { stopped <- sync.Stop(context.Background()) }()
	select {
	case <-stopped:
		t.Fatal("stop returned while a flush was running")
	case <-time.After(50 * time.Millisecond):
	}

	close(store.release)
	if err := <-first; err != nil {
		t.Fatal(err)
	}
	select {
	case err := <-stopped:
		if err != nil {
			t.Fatal(err)
		}
	case <-time.After(time.Second):
		t.Fatal("stop never finished")
	}
	got, _ := store.GetAsset(b.ID)
	if got.X != 40 || got.Y != 50 {
		t.Errorf("final flush missed b: (%v,%v)", got.X, got.Y)
	}
}

func TestAssetSync_StopHonoursContext(t *testing.T) {
	svc, sync, store := newBlockingSync(t)
	defer close(store.release)

	a, _ := svc.Paste(domain.TextPayload("a"))
	svc.Move(a.ID, domain.AtPercent(20, 20))
	go sync.Flush()
	<-store.entered

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if err := sync.Stop(ctx); !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("stop = %v, want deadline exceeded", err)
	}
}

// ─────────────────────────────────────────────────────────────
// MockEmitter tests
// ─────────────────────────────────────────────────────────────

func TestMockEmitter_RecordsEvents(t *testing.T) {
	m := &service.MockEmitter{}
	ctx := context.Background()

	m.Emit(ctx, "test:event", map[string]string{"foo": "bar"})
	m.Emit(ctx, "test:event2", nil)

	if len(m.Events) != 2 {
		t.Fatalf("expected 2 events, got %d", len(m.Events))
	}
	if m.Events[0].Event != "test:event" {
		t.Errorf("expected 'test:event', got %q", m.Events[0].Event)
	}
}

func TestMockEmitter_LastEvent(t *testing.T) {
	m := &service.MockEmitter{}
	ctx := context.Background()

	m.Emit(ctx, "a", "first")
	m.Emit(ctx, "b", "second")

	if m.Events[len(m.Events)-1].Event != "b" {
		t.Errorf("expected last event 'b', got %q", m.Events[len(m.Events)-1].Event)
	}
}
