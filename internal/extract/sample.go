package extract

import (
	"image"
	"image/color"
	"math"
	"sort"

	"github.com/anthonynsimon/bild/blur"
	"github.com/anthonynsimon/bild/effect"

	"github.com/cwbudde/dotscan/internal/detect"
	"github.com/cwbudde/dotscan/internal/palette"
)

const (
	// rimSamples is the number of evenly spaced circumference samples.
	rimSamples = 36

	// bandWidth bounds the annulus and edge bands around the rim, in px.
	bandWidth = 3

	cannyBlurRadius    = 2.0
	cannyEdgeThreshold = 128

	// paletteVoteSamples rim points each vote for the first palette entry
	// within paletteVoteDistance.
	paletteVoteSamples  = 32
	paletteVoteDistance = 30.0

	// darkColorSum marks a palette entry as dark ink; darkBiasRatio is
	// the vote fraction at which a runner-up beats a dark winner.
	darkColorSum  = 50
	darkBiasRatio = 0.75
)

func sampleArea(s *Sampler, c detect.Circle) palette.Color {
	var rSum, gSum, bSum float64
	n := 0
	forEachDiscPixel(s.img, c, func(p palette.Color) {
		rSum += float64(p.R)
		gSum += float64(p.G)
		bSum += float64(p.B)
		n++
	})
	if n == 0 {
		return palette.Color{}
	}
	return colorFromFloats(rSum/float64(n), gSum/float64(n), bSum/float64(n))
}

func sampleCircumference(s *Sampler, c detect.Circle) palette.Color {
	return medianAt(s.img, rimPoints(s.img.Bounds(), c, rimSamples))
}

func sampleBand(s *Sampler, c detect.Circle) palette.Color {
	inner := math.Max(0, c.R-bandWidth)
	outer := c.R + bandWidth
	b := s.img.Bounds()

	var rs, gs, bs []float64
	minX, maxX, minY, maxY := clampBox(b, c.X, c.Y, outer)
	for y := minY; y <= maxY; y++ {
		dy := float64(y) - c.Y
		for x := minX; x <= maxX; x++ {
			dx := float64(x) - c.X
			d := math.Sqrt(dx*dx + dy*dy)
			if d < inner || d > outer {
				continue
			}
			p := pixel(s.img, x, y)
			rs = append(rs, float64(p.R))
			gs = append(gs, float64(p.G))
			bs = append(bs, float64(p.B))
		}
	}
	if len(rs) == 0 {
		return fallbackArea(s, c)
	}
	return colorFromFloats(median(rs), median(gs), median(bs))
}

func sampleCanny(s *Sampler, c detect.Circle) palette.Color {
	edges := s.edgeMap()
	b := s.img.Bounds()

	var pts []image.Point
	minX, maxX, minY, maxY := clampBox(b, c.X, c.Y, c.R+bandWidth)
	for y := minY; y <= maxY; y++ {
		dy := float64(y) - c.Y
		for x := minX; x <= maxX; x++ {
			if edges.GrayAt(x, y).Y == 0 {
				continue
			}
			dx := float64(x) - c.X
			if math.Abs(math.Sqrt(dx*dx+dy*dy)-c.R) > bandWidth {
				continue
			}
			pts = append(pts, image.Point{X: x, Y: y})
		}
	}
	if len(pts) == 0 {
		return fallbackArea(s, c)
	}
	return medianAt(s.img, pts)
}

func sampleExposed(s *Sampler, c detect.Circle) palette.Color {
	pts := rimPoints(s.img.Bounds(), c, rimSamples)
	exposed := make([]image.Point, 0, len(pts))
	for _, p := range pts {
		if !s.occluded(p, c) {
			exposed = append(exposed, p)
		}
	}
	// A fully covered rim keeps every sample; reporting the occluder's
	// color beats reporting nothing.
	if len(exposed) == 0 {
		exposed = pts
	}
	return medianAt(s.img, exposed)
}

// occluded reports whether a rim point lies inside another circle with a
// strictly larger radius. Equal or smaller circles sit behind the
// sampled rim and never cover it.
func (s *Sampler) occluded(p image.Point, c detect.Circle) bool {
	for _, o := range s.circles {
		if o.X == c.X && o.Y == c.Y && o.R == c.R {
			continue
		}
		if o.R <= c.R {
			continue
		}
		dx := float64(p.X) - o.X
		dy := float64(p.Y) - o.Y
		if dx*dx+dy*dy < o.R*o.R {
			return true
		}
	}
	return false
}

// edgeMap lazily builds the gradient edge map: grayscale, gaussian blur,
// Sobel magnitude, thresholded.
func (s *Sampler) edgeMap() *image.Gray {
	if s.edges != nil {
		return s.edges
	}
	grad := effect.Sobel(blur.Gaussian(effect.Grayscale(s.img), cannyBlurRadius))
	b := grad.Bounds()
	edges := image.NewGray(b)
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			if grad.RGBAAt(x, y).R >= cannyEdgeThreshold {
				edges.SetGray(x, y, color.Gray{Y: 255})
			}
		}
	}
	s.edges = edges
	return s.edges
}

// fallbackArea returns the most common exact color inside the disc, for
// edge methods that found nothing to sample.
func fallbackArea(s *Sampler, c detect.Circle) palette.Color {
	var samples []palette.Color
	forEachDiscPixel(s.img, c, func(p palette.Color) {
		samples = append(samples, p)
	})
	if len(samples) == 0 {
		return palette.Color{}
	}
	return commonColor(samples)
}

// MatchPalette assigns a circle the palette color its rim supports most.
// Each of 32 rim samples votes for the first palette entry within RGB
// distance 30; background-like entries sit out the vote. When the
// darkest entry wins, a runner-up reaching 75% of its votes takes the
// match instead, compensating for dark ink covering overlapped rims.
// With no palette support at all, the most common sampled color is
// returned as-is.
func MatchPalette(img *image.NRGBA, c detect.Circle, pal palette.Palette) palette.Color {
	b := img.Bounds()
	var samples []palette.Color
	for i := 0; i < paletteVoteSamples; i++ {
		a := 2 * math.Pi * float64(i) / float64(paletteVoteSamples)
		x := int(c.X + c.R*math.Cos(a))
		y := int(c.Y + c.R*math.Sin(a))
		if x < b.Min.X || x >= b.Max.X || y < b.Min.Y || y >= b.Max.Y {
			continue
		}
		samples = append(samples, pixel(img, x, y))
	}
	if len(samples) == 0 {
		return palette.Color{}
	}

	votes := make([]int, len(pal))
	for _, smp := range samples {
		for i, entry := range pal {
			if entry.IsWhiteLike() {
				continue
			}
			if palette.Distance(smp, entry) <= paletteVoteDistance {
				votes[i]++
				break
			}
		}
	}

	best := -1
	for i, n := range votes {
		if n > 0 && (best == -1 || n > votes[best]) {
			best = i
		}
	}
	if best == -1 {
		return commonColor(samples)
	}

	dark := -1
	for i, entry := range pal {
		if int(entry.R)+int(entry.G)+int(entry.B) < darkColorSum {
			dark = i
			break
		}
	}
	if best == dark {
		runner := -1
		for i, n := range votes {
			if i == dark || n == 0 {
				continue
			}
			if runner == -1 || n > votes[runner] {
				runner = i
			}
		}
		if runner != -1 && float64(votes[runner]) >= darkBiasRatio*float64(votes[dark]) {
			return pal[runner]
		}
	}
	return pal[best]
}

// rimPoints returns n integer sample points evenly spaced around the
// circle, clamped to the image bounds.
func rimPoints(b image.Rectangle, c detect.Circle, n int) []image.Point {
	pts := make([]image.Point, 0, n)
	for i := 0; i < n; i++ {
		a := 2 * math.Pi * float64(i) / float64(n)
		x := clampInt(int(c.X+c.R*math.Cos(a)), b.Min.X, b.Max.X-1)
		y := clampInt(int(c.Y+c.R*math.Sin(a)), b.Min.Y, b.Max.Y-1)
		pts = append(pts, image.Point{X: x, Y: y})
	}
	return pts
}

// forEachDiscPixel visits every in-bounds pixel within the circle's
// radius.
func forEachDiscPixel(img *image.NRGBA, c detect.Circle, fn func(p palette.Color)) {
	b := img.Bounds()
	r2 := c.R * c.R
	minX, maxX, minY, maxY := clampBox(b, c.X, c.Y, c.R)
	for y := minY; y <= maxY; y++ {
		dy := float64(y) - c.Y
		for x := minX; x <= maxX; x++ {
			dx := float64(x) - c.X
			if dx*dx+dy*dy > r2 {
				continue
			}
			fn(pixel(img, x, y))
		}
	}
}

// clampBox intersects the radius-reach box around (cx, cy) with the image
// bounds. The returned ranges are inclusive and empty when min > max.
func clampBox(b image.Rectangle, cx, cy, reach float64) (minX, maxX, minY, maxY int) {
	minX = int(math.Max(float64(b.Min.X), math.Floor(cx-reach)))
	maxX = int(math.Min(float64(b.Max.X-1), math.Ceil(cx+reach)))
	minY = int(math.Max(float64(b.Min.Y), math.Floor(cy-reach)))
	maxY = int(math.Min(float64(b.Max.Y-1), math.Ceil(cy+reach)))
	return minX, maxX, minY, maxY
}

// pixel reads the pixel at (x, y) as a palette color.
func pixel(img *image.NRGBA, x, y int) palette.Color {
	i := img.PixOffset(x, y)
	return palette.Color{R: img.Pix[i], G: img.Pix[i+1], B: img.Pix[i+2]}
}

// medianAt returns the per-channel median of the pixels at pts.
func medianAt(img *image.NRGBA, pts []image.Point) palette.Color {
	rs := make([]float64, len(pts))
	gs := make([]float64, len(pts))
	bs := make([]float64, len(pts))
	for i, p := range pts {
		px := pixel(img, p.X, p.Y)
		rs[i] = float64(px.R)
		gs[i] = float64(px.G)
		bs[i] = float64(px.B)
	}
	return colorFromFloats(median(rs), median(gs), median(bs))
}

// median sorts vals in place. Even lengths average the two middle values.
func median(vals []float64) float64 {
	sort.Float64s(vals)
	n := len(vals)
	if n%2 == 1 {
		return vals[n/2]
	}
	return (vals[n/2-1] + vals[n/2]) / 2
}

// commonColor returns the most frequent color among the samples, the
// first to reach the top count on ties.
func commonColor(samples []palette.Color) palette.Color {
	counts := make(map[palette.Color]int, len(samples))
	var best palette.Color
	bestN := 0
	for _, smp := range samples {
		counts[smp]++
		if counts[smp] > bestN {
			bestN = counts[smp]
			best = smp
		}
	}
	return best
}

// colorFromFloats rounds per-channel values into a clamped color.
func colorFromFloats(r, g, b float64) palette.Color {
	return palette.Color{R: clampChan(r), G: clampChan(g), B: clampChan(b)}
}

func clampChan(v float64) uint8 {
	v = math.Round(v)
	if v < 0 {
		return 0
	}
	if v > 255 {
		return 255
	}
	return uint8(v)
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
