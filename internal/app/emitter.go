package app

import (
	"context"

	wailsRuntime "github.com/wailsapp/wails/v2/pkg/runtime"
)

// wailsEmitter forwards canvas events to the frontend.
type wailsEmitter struct{}

func (wailsEmitter) Emit(ctx context.Context, event string, data any) {
	if ctx == nil || ctx.Value("events") == nil {
		// not a Wails context (before startup or in tests)
		return
	}
	wailsRuntime.EventsEmit(ctx, event, data)
}
