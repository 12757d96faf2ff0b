// Package cli is the canvasctl command tree.
package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"canvas/internal/config"
	"canvas/internal/log"
	"canvas/internal/secret"
)

type App struct {
	ConfigPath string
	PrettyJSON bool

	// Secrets defaults to the OS keychain.
	Secrets secret.SecretStore

	cfg config.Config
}

func NewRootCmd() *cobra.Command {
	return newRootCmd(&App{Secrets: secret.NewKeyringStore()})
}

func newRootCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:          "canvasctl",
		Short:        "Canvas engine tools: classify content, serve MCP, watch a drop folder",
		SilenceUsage: true,
		Example: strings.TrimSpace(`
  # What would this paste become?
  canvasctl classify "check this out https://youtu.be/abc123"
  canvasctl classify --file ~/Downloads/report.pdf

  # Serve the canvas to an MCP client over stdio
  canvasctl mcp

  # Turn files landing in a folder into blocks
  canvasctl watch --dir ~/CanvasInbox
`),
	}

	cmd.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		return loadConfig(app)
	}

	cmd.PersistentFlags().StringVar(&app.ConfigPath, "config", envOr(config.EnvConfigOverride, ""), "Path to config.yaml")
	cmd.PersistentFlags().BoolVar(&app.PrettyJSON, "pretty", false, "Pretty-print JSON output")

	cmd.AddCommand(newClassifyCmd(app))
	cmd.AddCommand(newMCPCmd(app))
	cmd.AddCommand(newWatchCmd(app))
	cmd.AddCommand(newConfigCmd(app))

	return cmd
}

func loadConfig(app *App) error {
	var (
		cfg config.Config
		err error
	)
	if app.ConfigPath != "" {
		cfg, err = config.LoadFrom(app.ConfigPath)
	} else {
		cfg, err = config.Load()
	}
	if err != nil && !errors.Is(err, config.ErrNoConfigDir) {
		return err
	}
	app.cfg = cfg

	// stdout belongs to command output (and the MCP protocol)
	log.Init(log.Options{
		Level:     cfg.Logging.Level,
		Format:    cfg.Logging.Format,
		AddSource: cfg.Logging.Source,
		File:      cfg.Logging.File,
		Writer:    os.Stderr,
	})
	return nil
}

func writeOut(cmd *cobra.Command, app *App, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	if app.PrettyJSON {
		enc.SetIndent("", "  ")
	}
	return enc.Encode(v)
}

func writeErr(cmd *cobra.Command, err error) error {
	fmt.Fprintln(cmd.ErrOrStderr(), err.Error())
	return err
}

func envOr(k, d string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return d
}
