package cli

import (
	"errors"
	"mime"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"canvas/internal/app"
	"canvas/internal/domain"
	"canvas/internal/preview"
)

type classifyOutput struct {
	Kind     domain.Kind     `json:"kind"`
	Platform domain.Platform `json:"platform,omitempty"`
	MediaID  string          `json:"mediaId,omitempty"`
	URL      string          `json:"url,omitempty"`
	Label    string          `json:"label"`
	Fallback bool            `json:"fallback,omitempty"`
	Preview  *preview.Info   `json:"preview,omitempty"`
}

func newClassifyCmd(a *App) *cobra.Command {
	var file, mimeType string

	cmd := &cobra.Command{
		Use:   "classify [text]",
		Short: "Print the block kind a paste would become",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var p domain.Payload
			switch {
			case file != "":
				info, err := os.Stat(file)
				if err != nil {
					return writeErr(cmd, err)
				}
				mt := mimeType
				if mt == "" {
					mt = mime.TypeByExtension(strings.ToLower(filepath.Ext(file)))
				}
				p = domain.FilePayload(domain.File{Name: info.Name(), MIME: mt, Size: info.Size(), Path: file})
			case len(args) == 1:
				p = domain.TextPayload(args[0])
			default:
				return writeErr(cmd, errors.New("pass text or --file"))
			}

			r := app.NewClassifier(a.cfg.Classifier).Classify(p)
			out := classifyOutput{
				Kind: r.Kind, Platform: r.Platform, MediaID: r.MediaID,
				URL: r.URL, Label: r.Label(), Fallback: r.Fallback,
			}
			if p.File != nil && r.Kind == domain.KindImage {
				if info, err := preview.Probe(*p.File); err == nil {
					out.Preview = &info
				}
			}
			return writeOut(cmd, a, out)
		},
	}
	cmd.Flags().StringVar(&file, "file", "", "Classify a local file instead of text")
	cmd.Flags().StringVar(&mimeType, "mime", "", "MIME type for --file (default: from extension)")
	return cmd
}
