package app

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"canvas/internal/classify"
	"canvas/internal/config"
	"canvas/internal/domain"
	"canvas/internal/log"
	"canvas/internal/secret"
	"canvas/internal/service"
	"canvas/internal/storage"
	"canvas/internal/watch"
)

// engine is everything behind the canvas that both the desktop app and the
// standalone MCP server need: the service, its store and the drop watcher.
type engine struct {
	canvas    *service.CanvasService
	store     domain.AssetStore
	approvals domain.ApprovalStore
	sync      *service.AssetSync
	watcher   *watch.DropWatcher
	logger    *slog.Logger
}

// NewClassifier applies the classifier section of cfg.
func NewClassifier(cfg config.ClassifierConfig) *classify.Classifier {
	var opts []classify.Option
	if len(cfg.DisabledPlatforms) > 0 {
		ps := make([]domain.Platform, len(cfg.DisabledPlatforms))
		for i, p := range cfg.DisabledPlatforms {
			ps[i] = domain.Platform(p)
		}
		opts = append(opts, classify.WithoutPlatforms(ps...))
	}
	if len(cfg.DocumentSuffixes) > 0 {
		opts = append(opts, classify.WithDocumentSuffixes(cfg.DocumentSuffixes...))
	}
	return classify.New(opts...)
}

func startEngine(cfg config.Config, emitter service.EventEmitter, secrets secret.SecretStore) (*engine, error) {
	logger := log.WithComponent("app")

	e := &engine{logger: logger}
	e.canvas = service.NewCanvasService(service.CanvasOptions{
		Mode:          service.Mode(cfg.Canvas.Mode),
		CanvasID:      cfg.Canvas.ID,
		Emitter:       emitter,
		Classifier:    NewClassifier(cfg.Classifier),
		LongPress:     cfg.Drag.LongPress(),
		MoveThreshold: cfg.Drag.MoveThresholdPx,
		HandleHeight:  cfg.Drag.HandleHeightPx,
	})

	var password string
	if secrets != nil && cfg.Storage.Driver != "" && cfg.Storage.Driver != "sqlite" && cfg.Storage.Driver != "none" {
		pw, err := secrets.Get(secret.StorageKey(cfg.Storage.Driver))
		if err != nil {
			logger.Warn("storage password unavailable", slog.String("err", err.Error()))
		}
		password = string(pw)
	}

	store, err := storage.OpenStore(cfg.Storage, password)
	if err != nil {
		e.canvas.Close()
		return nil, fmt.Errorf("open store: %w", err)
	}
	if store != nil {
		e.store = store
		e.approvals, _ = store.(domain.ApprovalStore)
		e.sync = service.NewAssetSync(store, cfg.Canvas.ID, nil)
		if _, err := e.sync.Load(e.canvas); err != nil {
			logger.Error("restore canvas", slog.String("err", err.Error()))
		}
		e.sync.Attach(e.canvas)
		if err := e.sync.Start(cfg.Sync.FlushSchedule); err != nil {
			e.close(context.Background())
			return nil, err
		}
	}

	if cfg.Watch.DropDir != "" {
		w, err := watch.New(cfg.Watch.DropDir, func(d watch.Drop) {
			if _, err := e.canvas.Drop(d.Payload, d.At); err != nil {
				logger.Warn("folder drop rejected", slog.String("err", err.Error()))
			}
		})
		if err != nil {
			logger.Error("drop folder disabled", slog.String("dir", cfg.Watch.DropDir), slog.String("err", err.Error()))
		} else {
			e.watcher = w
		}
	}
	return e, nil
}

// close stops the watcher, flushes positions and closes the store.
func (e *engine) close(ctx context.Context) {
	if e.watcher != nil {
		e.watcher.Close()
		e.watcher = nil
	}
	if e.sync != nil {
		ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
		if err := e.sync.Stop(ctx); err != nil {
			e.logger.Error("final flush", slog.String("err", err.Error()))
		}
		cancel()
		e.sync = nil
	}
	e.canvas.Close()
	if e.store != nil {
		e.store.Close()
		e.store = nil
		e.approvals = nil
	}
}
