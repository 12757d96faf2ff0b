package app

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"canvas/internal/config"
	mcpserver "canvas/internal/mcp"
	"canvas/internal/secret"
	"canvas/internal/service"
)

// ServeMCP runs the canvas as a standalone MCP server on stdin/stdout with
// no GUI. Destructive tools wait for the desktop app to answer through the
// store, unless autoApprove is set. Without a store they are refused.
func ServeMCP(cfg config.Config, autoApprove bool) error {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	eng, err := startEngine(cfg, service.NopEmitter{}, secret.NewKeyringStore())
	if err != nil {
		return fmt.Errorf("start canvas: %w", err)
	}
	defer eng.close(context.Background())

	mcpSrv := mcpserver.New(ctx, mcpserver.Deps{
		Canvas:      eng.canvas,
		Approvals:   eng.approvals,
		AutoApprove: autoApprove,
	})
	return mcpSrv.ServeStdio()
}

// ServeWatch runs the canvas headless with only the drop folder feeding it,
// until ctx is done. emitter sees every canvas event.
func ServeWatch(ctx context.Context, cfg config.Config, emitter service.EventEmitter) error {
	if cfg.Watch.DropDir == "" {
		return fmt.Errorf("no drop folder configured (watch.drop_dir or %s)", config.EnvDropDir)
	}
	eng, err := startEngine(cfg, emitter, secret.NewKeyringStore())
	if err != nil {
		return fmt.Errorf("start canvas: %w", err)
	}
	defer eng.close(context.Background())
	if eng.watcher == nil {
		return fmt.Errorf("drop folder %s could not be watched", cfg.Watch.DropDir)
	}

	<-ctx.Done()
	return nil
}
