package drag

import (
	"canvas/internal/coords"
	"canvas/internal/domain"
)

// Space converts between a block's stored position and the pixel plane the
// pointer moves in.
type Space interface {
	ToPixel(pos domain.Position) coords.Pixel
	// FromPixel clamps p and returns it in the space's own coordinates.
	FromPixel(p coords.Pixel) domain.Position
	BlockSize() coords.Size
}

// PercentSpace stores positions as viewport percentages (floating canvas).
type PercentSpace struct {
	Viewport func() coords.Size
	Block    func() coords.Size
}

func (s PercentSpace) viewport() coords.Size {
	if s.Viewport == nil {
		return coords.MinViewport
	}
	return coords.Viewport(s.Viewport())
}

func (s PercentSpace) BlockSize() coords.Size {
	if s.Block == nil {
		return coords.Size{}
	}
	return s.Block()
}

func (s PercentSpace) ToPixel(pos domain.Position) coords.Pixel {
	if pos.Space == domain.SpacePixel {
		return pos.Pixel
	}
	return coords.ToPixel(pos.Percent, s.viewport())
}

func (s PercentSpace) FromPixel(p coords.Pixel) domain.Position {
	vp := s.viewport()
	px := coords.ClampPixel(p, vp, s.BlockSize())
	pc := coords.ClampPercent(coords.ToPercent(px, vp))
	return domain.Position{Space: domain.SpacePercent, Percent: pc, Pixel: px}
}

// PixelSpace stores absolute pixels (graph canvas). Without a viewport only
// the lower bound of 0 is enforced.
type PixelSpace struct {
	Viewport func() coords.Size
	Block    func() coords.Size
}

func (s PixelSpace) BlockSize() coords.Size {
	if s.Block == nil {
		return coords.Size{}
	}
	return s.Block()
}

func (s PixelSpace) ToPixel(pos domain.Position) coords.Pixel {
	if pos.Space == domain.SpacePercent && s.Viewport != nil {
		return coords.ToPixel(pos.Percent, s.Viewport())
	}
	return pos.Pixel
}

func (s PixelSpace) FromPixel(p coords.Pixel) domain.Position {
	if s.Viewport != nil {
		p = coords.ClampPixel(p, s.Viewport(), s.BlockSize())
	} else {
		p.X = max(p.X, 0)
		p.Y = max(p.Y, 0)
	}
	return domain.Position{Space: domain.SpacePixel, Pixel: p}
}

// HeaderRegion reports whether p falls in the top strip of a block whose
// top-left corner is origin.
func HeaderRegion(origin coords.Pixel, width, height float64, p coords.Pixel) bool {
	return p.X >= origin.X && p.X <= origin.X+width &&
		p.Y >= origin.Y && p.Y <= origin.Y+height
}
