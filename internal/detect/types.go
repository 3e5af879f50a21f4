package detect

import (
	"image"
	"math"

	"github.com/cwbudde/dotscan/internal/palette"
)

// Circle is a finalized detection in image coordinates. Centers and radii
// stay continuous through the whole pipeline; rounding happens only in
// output formatting.
type Circle struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	R float64 `json:"r"`

	// Color is the palette color this circle was fit for.
	Color palette.Color `json:"color"`

	// Coverage is the fraction of the circumference supported by convex
	// edge evidence, in [0,1]. The primary quality signal.
	Coverage float64 `json:"coverage"`

	// Confidence is Coverage scaled to 0-100, rounded to one decimal.
	Confidence float64 `json:"confidence"`

	// Tile is the index of the tile that produced this circle, or -1 for
	// whole-image processing. Centers are always global coordinates.
	Tile int `json:"tile,omitempty"`
}

// Translate returns a copy of the circle shifted by (dx, dy). Tile
// results are never offset in place.
func (c Circle) Translate(dx, dy float64) Circle {
	c.X += dx
	c.Y += dy
	return c
}

// Dist returns the center distance to another circle.
func (c Circle) Dist(o Circle) float64 {
	dx := c.X - o.X
	dy := c.Y - o.Y
	return math.Sqrt(dx*dx + dy*dy)
}

// confidenceFromCoverage maps the coverage fraction onto the 0-100
// confidence scale, rounded to one decimal place.
func confidenceFromCoverage(coverage float64) float64 {
	c := coverage * 100
	if c > 100 {
		c = 100
	}
	return math.Round(c*10) / 10
}

// Blob is a connected region of same-labeled pixels.
type Blob struct {
	// Contour is the ordered outer boundary, every boundary pixel in walk
	// order (no simplification).
	Contour []image.Point

	// Area is the number of pixels in the region.
	Area int

	// Bounds is the axis-aligned bounding box.
	Bounds image.Rectangle
}

// ConvexArc is a run of contour points judged to be genuine, unoccluded
// circular boundary.
type ConvexArc struct {
	Points []image.Point
}

// LabelMap assigns every pixel the index of its nearest palette color.
// Replaced wholesale on recomputation, never mutated.
type LabelMap struct {
	W, H   int
	Labels []uint8
}

// At returns the palette index at (x, y).
func (m *LabelMap) At(x, y int) int {
	return int(m.Labels[y*m.W+x])
}
