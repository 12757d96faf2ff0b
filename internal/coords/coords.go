// Package coords holds the two coordinate systems blocks can live in:
// viewport-relative percentages (floating canvas) and absolute pixels
// (graph canvas). They are distinct types and only convert explicitly.
package coords

import "math"

// Epsilon is the tolerance used when comparing converted coordinates.
const Epsilon = 1e-6

// MinViewport replaces degenerate viewport dimensions.
var MinViewport = Size{W: 1, H: 1}

// Percent is a position relative to the viewport, each axis in [0,100].
type Percent struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Pixel is an absolute position in canvas pixels.
type Pixel struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Rect is an axis-aligned rectangle in canvas pixels.
type Rect struct {
	Min  Pixel
	Size Size
}

func RectAt(p Pixel, s Size) Rect { return Rect{Min: p, Size: s} }

// Max is the corner opposite Min.
func (r Rect) Max() Pixel { return Pixel{X: r.Min.X + r.Size.W, Y: r.Min.Y + r.Size.H} }

// Inflate grows r by d on every side.
func (r Rect) Inflate(d float64) Rect {
	return Rect{Min: Pixel{X: r.Min.X - d, Y: r.Min.Y - d}, Size: Size{W: r.Size.W + 2*d, H: r.Size.H + 2*d}}
}

// Overlaps reports whether r and o share interior area. Touching edges do not count.
func (r Rect) Overlaps(o Rect) bool {
	rm, om := r.Max(), o.Max()
	return r.Min.X < om.X && o.Min.X < rm.X && r.Min.Y < om.Y && o.Min.Y < rm.Y
}

type Size struct {
	W float64 `json:"w"`
	H float64 `json:"h"`
}

// Add returns p shifted by d.
func (p Pixel) Add(d Pixel) Pixel { return Pixel{X: p.X + d.X, Y: p.Y + d.Y} }

// Sub returns p - q.
func (p Pixel) Sub(q Pixel) Pixel { return Pixel{X: p.X - q.X, Y: p.Y - q.Y} }

// Dist is the euclidean distance between p and q.
func (p Pixel) Dist(q Pixel) float64 { return math.Hypot(p.X-q.X, p.Y-q.Y) }

func (p Pixel) Near(q Pixel) bool {
	return math.Abs(p.X-q.X) <= Epsilon && math.Abs(p.Y-q.Y) <= Epsilon
}

func (p Percent) Near(q Percent) bool {
	return math.Abs(p.X-q.X) <= Epsilon && math.Abs(p.Y-q.Y) <= Epsilon
}

// Viewport substitutes MinViewport for zero, negative or NaN dimensions.
func Viewport(s Size) Size {
	if !(s.W > 0) {
		s.W = MinViewport.W
	}
	if !(s.H > 0) {
		s.H = MinViewport.H
	}
	return s
}

func ToPercent(p Pixel, viewport Size) Percent {
	v := Viewport(viewport)
	return Percent{X: p.X / v.W * 100, Y: p.Y / v.H * 100}
}

func ToPixel(p Percent, viewport Size) Pixel {
	v := Viewport(viewport)
	return Pixel{X: p.X / 100 * v.W, Y: p.Y / 100 * v.H}
}

// ClampPercent bounds both axes to [0,100].
func ClampPercent(p Percent) Percent {
	return Percent{X: clamp(p.X, 0, 100), Y: clamp(p.Y, 0, 100)}
}

// ClampPixel keeps a block of the given size inside the viewport. When the
// block is at least as large as the viewport on an axis, that axis pins to 0.
func ClampPixel(p Pixel, viewport, block Size) Pixel {
	v := Viewport(viewport)
	return Pixel{
		X: clamp(p.X, 0, v.W-block.W),
		Y: clamp(p.Y, 0, v.H-block.H),
	}
}

// Resolve turns a stored percentage into a clamped pixel position for the
// current viewport. Calling it again after a resize re-derives from the
// percentage, so nothing drifts.
func Resolve(p Percent, viewport, block Size) Pixel {
	return ClampPixel(ToPixel(ClampPercent(p), viewport), viewport, block)
}

func clamp(v, lo, hi float64) float64 {
	if hi < lo {
		hi = lo
	}
	if math.IsNaN(v) || v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
