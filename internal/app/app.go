package app

import (
	"context"
	"log/slog"

	wailsRuntime "github.com/wailsapp/wails/v2/pkg/runtime"

	"canvas/internal/config"
	"canvas/internal/log"
	"canvas/internal/secret"
	"canvas/internal/service"
)

// App is the main Wails application struct.
// All exported methods are available as Wails bindings.
type App struct {
	ctx     context.Context
	cfg     config.Config
	emitter service.EventEmitter
	secrets secret.SecretStore
	eng     *engine
	pending *approvalWatcher
	logger  *slog.Logger
}

// New creates a new App.
func New(cfg config.Config) *App {
	return &App{
		cfg:     cfg,
		emitter: wailsEmitter{},
		secrets: secret.NewKeyringStore(),
		logger:  log.WithComponent("app"),
	}
}

// Startup is called when the app starts.
func (a *App) Startup(ctx context.Context) {
	a.ctx = ctx

	eng, err := startEngine(a.cfg, a.emitter, a.secrets)
	if err != nil {
		wailsRuntime.LogFatalf(ctx, "Failed to start canvas: %v", err)
		return
	}
	eng.canvas.SetContext(ctx)
	a.eng = eng
	if eng.approvals != nil {
		a.pending = newApprovalWatcher(ctx, eng.approvals, a.emitter)
		a.pending.Start()
	}
	a.logger.Info("canvas ready", slog.String("mode", a.cfg.Canvas.Mode), slog.Int("blocks", len(eng.canvas.List())))
}

// Shutdown is called when the app is closing.
func (a *App) Shutdown(ctx context.Context) {
	if a.pending != nil {
		a.pending.Stop()
		a.pending = nil
	}
	if a.eng != nil {
		a.eng.close(ctx)
		a.eng = nil
	}
}

// SetStoragePassword stores the database password in the OS keyring. It is
// read on the next start.
func (a *App) SetStoragePassword(password string) error {
	return a.secrets.Set(secret.StorageKey(a.cfg.Storage.Driver), []byte(password))
}
