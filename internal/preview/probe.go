// Package preview decodes just enough of an image payload to tell whether
// the canvas can display it.
package preview

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"os"
	"strings"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"

	"canvas/internal/domain"
)

// ErrUnreadable means the payload could not be decoded.
var ErrUnreadable = errors.New("preview: unreadable resource")

type Info struct {
	Width  int    `json:"width"`
	Height int    `json:"height"`
	Format string `json:"format"`
}

// Prober is satisfied by ProbeFunc and by test fakes.
type Prober interface {
	Probe(f domain.File) (Info, error)
}

type ProbeFunc func(domain.File) (Info, error)

func (fn ProbeFunc) Probe(f domain.File) (Info, error) { return fn(f) }

// Default probes images with the registered decoders and accepts everything else.
var Default Prober = ProbeFunc(Probe)

// Probe reads the image header of f. Non-image files are not inspected and
// return a zero Info.
func Probe(f domain.File) (Info, error) {
	if !strings.HasPrefix(strings.ToLower(f.MIME), "image/") {
		return Info{}, nil
	}
	// svg has no raster header to check
	if strings.HasPrefix(strings.ToLower(f.MIME), "image/svg") {
		return Info{Format: "svg"}, nil
	}

	r, closeFn, err := open(f)
	if err != nil {
		return Info{}, fmt.Errorf("%w: %s: %v", ErrUnreadable, f.Name, err)
	}
	defer closeFn()

	cfg, format, err := image.DecodeConfig(r)
	if err != nil {
		return Info{}, fmt.Errorf("%w: %s: %v", ErrUnreadable, f.Name, err)
	}
	return Info{Width: cfg.Width, Height: cfg.Height, Format: format}, nil
}

func open(f domain.File) (io.Reader, func(), error) {
	if len(f.Data) > 0 {
		return bytes.NewReader(f.Data), func() {}, nil
	}
	if f.Path == "" {
		return nil, nil, errors.New("no data")
	}
	fh, err := os.Open(f.Path)
	if err != nil {
		return nil, nil, err
	}
	return fh, func() { fh.Close() }, nil
}
