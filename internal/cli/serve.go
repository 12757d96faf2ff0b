package cli

import (
	"context"
	"encoding/json"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"canvas/internal/app"
)

func newMCPCmd(a *App) *cobra.Command {
	var yes bool

	cmd := &cobra.Command{
		Use:   "mcp",
		Short: "Serve the canvas over MCP on stdin/stdout",
		Long: "Serve the canvas over MCP on stdin/stdout.\n\n" +
			"There is no window to confirm destructive tools in, so remove_block\n" +
			"is rejected unless --yes is passed.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return app.ServeMCP(a.cfg, yes)
		},
	}
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "Approve destructive tool calls without asking")
	return cmd
}

// lineEmitter prints canvas events as JSON lines.
type lineEmitter struct {
	enc *json.Encoder
}

func (e lineEmitter) Emit(_ context.Context, event string, data any) {
	_ = e.enc.Encode(map[string]any{"event": event, "data": data})
}

func newWatchCmd(a *App) *cobra.Command {
	var dir string

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Turn files dropped into a folder into canvas blocks",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := a.cfg
			if dir != "" {
				cfg.Watch.DropDir = dir
			}
			ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer cancel()
			if err := app.ServeWatch(ctx, cfg, lineEmitter{enc: json.NewEncoder(cmd.OutOrStdout())}); err != nil {
				return writeErr(cmd, err)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&dir, "dir", "", "Folder to watch (default: watch.drop_dir)")
	return cmd
}
