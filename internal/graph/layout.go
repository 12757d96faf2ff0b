package graph

import (
	"math"

	"canvas/internal/coords"
)

const (
	GridSize = 30.0
	Padding  = 60.0 // clear space kept around every node
	MaxRowW  = 1800.0
)

// LayoutEngine places nodes on a 30px grid without overlapping the ones
// already on the canvas.
type LayoutEngine struct {
	grid    float64
	padding float64
	rowW    float64
}

func NewLayoutEngine() *LayoutEngine {
	return &LayoutEngine{grid: GridSize, padding: Padding, rowW: MaxRowW}
}

// Snap rounds v to the nearest grid line.
func (le *LayoutEngine) Snap(v float64) float64 {
	return math.Round(v/le.grid) * le.grid
}

// ceil rounds v up to the next grid line.
func (le *LayoutEngine) ceil(v float64) float64 {
	return math.Ceil(v/le.grid) * le.grid
}

// NextPosition returns the top-most, then left-most grid point where a node
// of the given size keeps its padding from every existing node. Within a row
// the scan jumps past whatever it hits instead of stepping cell by cell.
func (le *LayoutEngine) NextPosition(existing []Node, size coords.Size) coords.Pixel {
	if len(existing) == 0 {
		return coords.Pixel{}
	}

	blocked := make([]coords.Rect, len(existing))
	bottom := 0.0
	for i, n := range existing {
		blocked[i] = n.Bounds().Inflate(le.padding)
		bottom = max(bottom, blocked[i].Max().Y)
	}

	for y := 0.0; y < bottom; y += le.grid {
		x := 0.0
		for x+size.W <= le.rowW {
			at := coords.Pixel{X: x, Y: y}
			hit, ok := firstOverlap(coords.RectAt(at, size), blocked)
			if !ok {
				return at
			}
			x = le.ceil(hit.Max().X)
		}
	}
	return coords.Pixel{Y: le.ceil(bottom)}
}

func firstOverlap(r coords.Rect, blocked []coords.Rect) (coords.Rect, bool) {
	for _, b := range blocked {
		if r.Overlaps(b) {
			return b, true
		}
	}
	return coords.Rect{}, false
}

// ArrangeGroup lays nodes out left to right from start, wrapping when a node
// would run past the row width. Positions are written into nodes, which is
// also returned.
func (le *LayoutEngine) ArrangeGroup(nodes []Node, start coords.Pixel) []Node {
	origin := coords.Pixel{X: le.Snap(start.X), Y: le.Snap(start.Y)}
	cursor := origin
	rowH := 0.0

	for i := range nodes {
		w := nodes[i].Size.W
		if cursor.X > origin.X && cursor.X+w > origin.X+le.rowW {
			cursor = coords.Pixel{X: origin.X, Y: cursor.Y + le.ceil(rowH+le.padding)}
			rowH = 0
		}
		nodes[i].Position = cursor
		rowH = max(rowH, nodes[i].Size.H)
		cursor.X += le.ceil(w + le.padding)
	}
	return nodes
}
