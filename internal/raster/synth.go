package raster

import (
	"image"
	"image/color"
	"math"
	"math/rand"
)

// CircleSpec describes one circle of a synthetic ground-truth image.
type CircleSpec struct {
	X, Y, R float64
	Color   color.NRGBA
}

// NewCanvas creates a solid-color canvas.
func NewCanvas(width, height int, bg color.NRGBA) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		i := y * img.Stride
		for x := 0; x < width; x++ {
			img.Pix[i+0] = bg.R
			img.Pix[i+1] = bg.G
			img.Pix[i+2] = bg.B
			img.Pix[i+3] = bg.A
			i += 4
		}
	}
	return img
}

// FillCircle draws a solid circle with hard edges. Pixels whose centers
// fall within the radius are painted; no anti-aliasing, so quantization
// sees clean color boundaries.
func FillCircle(img *image.NRGBA, cx, cy, r float64, c color.NRGBA) {
	b := img.Bounds()
	minX := int(math.Max(float64(b.Min.X), math.Floor(cx-r)))
	maxX := int(math.Min(float64(b.Max.X-1), math.Ceil(cx+r)))
	minY := int(math.Max(float64(b.Min.Y), math.Floor(cy-r)))
	maxY := int(math.Min(float64(b.Max.Y-1), math.Ceil(cy+r)))

	r2 := r * r
	for y := minY; y <= maxY; y++ {
		dy := float64(y) - cy
		for x := minX; x <= maxX; x++ {
			dx := float64(x) - cx
			if dx*dx+dy*dy > r2 {
				continue
			}
			i := img.PixOffset(x, y)
			img.Pix[i+0] = c.R
			img.Pix[i+1] = c.G
			img.Pix[i+2] = c.B
			img.Pix[i+3] = c.A
		}
	}
}

// Draw renders all specs onto the canvas in order.
func Draw(img *image.NRGBA, specs []CircleSpec) {
	for _, s := range specs {
		FillCircle(img, s.X, s.Y, s.R, s.Color)
	}
}

// PlaceGrid lays out cols x rows circles of radius r on an even grid,
// cycling through the given colors, and draws them. Cell spacing is
// derived from the image size so neighboring circles never touch as long
// as r is below half the cell pitch. Returns the drawn specs.
func PlaceGrid(img *image.NRGBA, cols, rows int, r float64, colors []color.NRGBA) []CircleSpec {
	b := img.Bounds()
	pitchX := float64(b.Dx()) / float64(cols)
	pitchY := float64(b.Dy()) / float64(rows)

	specs := make([]CircleSpec, 0, cols*rows)
	for row := 0; row < rows; row++ {
		for col := 0; col < cols; col++ {
			s := CircleSpec{
				X:     float64(b.Min.X) + (float64(col)+0.5)*pitchX,
				Y:     float64(b.Min.Y) + (float64(row)+0.5)*pitchY,
				R:     r,
				Color: colors[(row*cols+col)%len(colors)],
			}
			specs = append(specs, s)
		}
	}
	Draw(img, specs)
	return specs
}

// PlaceRandom scatters n circles with radii in [minR, maxR] such that no
// two centers come closer than 2*maxR+gap, so the drawn circles stay
// disjoint. Placement is rejection-sampled with the given seed; returns
// the placements actually made, which may be fewer than n on a crowded
// canvas.
func PlaceRandom(img *image.NRGBA, n int, minR, maxR, gap float64, colors []color.NRGBA, seed int64) []CircleSpec {
	b := img.Bounds()
	rng := rand.New(rand.NewSource(seed))
	minDist := 2*maxR + gap
	minDist2 := minDist * minDist

	specs := make([]CircleSpec, 0, n)
	const maxAttempts = 200
	for len(specs) < n {
		placed := false
		for attempt := 0; attempt < maxAttempts; attempt++ {
			r := minR + rng.Float64()*(maxR-minR)
			x := float64(b.Min.X) + maxR + rng.Float64()*(float64(b.Dx())-2*maxR)
			y := float64(b.Min.Y) + maxR + rng.Float64()*(float64(b.Dy())-2*maxR)

			ok := true
			for _, s := range specs {
				dx, dy := s.X-x, s.Y-y
				if dx*dx+dy*dy < minDist2 {
					ok = false
					break
				}
			}
			if ok {
				specs = append(specs, CircleSpec{
					X: x, Y: y, R: r,
					Color: colors[len(specs)%len(colors)],
				})
				placed = true
				break
			}
		}
		if !placed {
			break
		}
	}
	Draw(img, specs)
	return specs
}
