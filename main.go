package main

import (
	"embed"
	"errors"
	"fmt"
	"os"

	"github.com/wailsapp/wails/v2"
	"github.com/wailsapp/wails/v2/pkg/menu"
	"github.com/wailsapp/wails/v2/pkg/options"
	"github.com/wailsapp/wails/v2/pkg/options/assetserver"
	"github.com/wailsapp/wails/v2/pkg/options/mac"

	canvasApp "canvas/internal/app"
	"canvas/internal/config"
	"canvas/internal/log"
)

//go:embed all:frontend/dist
var assets embed.FS

func main() {
	cfg, err := config.Load()
	if err != nil && !errors.Is(err, config.ErrNoConfigDir) {
		fmt.Fprintln(os.Stderr, "config:", err)
	}
	log.Init(log.Options{
		Level:     cfg.Logging.Level,
		Format:    cfg.Logging.Format,
		AddSource: cfg.Logging.Source,
		File:      cfg.Logging.File,
	})

	// "canvas mcp" serves the same canvas to an MCP client without a window
	if len(os.Args) > 1 && os.Args[1] == "mcp" {
		yes := len(os.Args) > 2 && (os.Args[2] == "--yes" || os.Args[2] == "-y")
		if err := canvasApp.ServeMCP(cfg, yes); err != nil {
			log.L().Error("mcp server stopped", "err", err)
			os.Exit(1)
		}
		return
	}

	app := canvasApp.New(cfg)

	// macOS needs an Edit menu for Cmd+C/V/X/A to reach the WebView
	appMenu := menu.NewMenu()
	appMenu.Append(menu.EditMenu())

	err = wails.Run(&options.App{
		Title:     "Canvas",
		Width:     1440,
		Height:    900,
		MinWidth:  800,
		MinHeight: 600,
		AssetServer: &assetserver.Options{
			Assets: assets,
		},
		BackgroundColour: &options.RGBA{R: 15, G: 15, B: 20, A: 1},
		Menu:             appMenu,
		OnStartup:        app.Startup,
		OnShutdown:       app.Shutdown,
		Bind: []interface{}{
			app,
		},
		Mac: &mac.Options{
			TitleBar: &mac.TitleBar{
				TitlebarAppearsTransparent: true,
				HideTitle:                  true,
				FullSizeContent:            true,
				UseToolbar:                 true,
				HideToolbarSeparator:       true,
			},
			About: &mac.AboutInfo{
				Title:   "Canvas",
				Message: "Paste or drop anything onto a board",
			},
		},
	})

	if err != nil {
		println("Error:", err.Error())
	}
}
