package detect

import (
	"image"
	"math"
)

// fitSelectTol is the band, in pixels, used when ranking candidates
// against each other. cfg.CoverageTol is too wide to tell neighboring
// radii apart on a clean ring, so ranking uses a 1 px band and leaves the
// score uncapped. Every vote reaching the accumulator peak came from a
// point within 0.71 px of its radius, so any candidate past the vote
// floor has support here.
const fitSelectTol = 1.0

// FitBlob fits one circle to a blob's convex arc points with a circular
// Hough transform. For every integer radius within the configured bounds it
// accumulates center votes from all arc points and rescores the per-radius
// vote peak by circumference coverage: a tight band ranks the candidates,
// the configured tolerance gates them and is what the winner reports. The
// returned circle carries its coverage and confidence; color and tile are
// left for the caller. ok is false when no candidate reaches the
// sensitivity preset's coverage floor.
func FitBlob(arcs []ConvexArc, cfg Config) (Circle, bool) {
	pts := flattenArcs(arcs)
	if len(pts) == 0 {
		return Circle{}, false
	}
	rmin := int(math.Ceil(cfg.MinRadius))
	if rmin < 1 {
		rmin = 1
	}
	rmax := int(math.Floor(cfg.MaxRadius))
	if rmax < rmin {
		return Circle{}, false
	}

	// Candidate centers lie within rmax of some arc point, so the
	// accumulator spans the arc bounding box grown by rmax. Votes cannot
	// land outside it.
	bb := pointBounds(pts)
	ox, oy := bb.Min.X-rmax, bb.Min.Y-rmax
	aw := bb.Dx() + 2*rmax
	ah := bb.Dy() + 2*rmax

	acc := make([]int32, aw*ah)
	voted := make([]int, 0, 4096)
	params := cfg.fitterParams()

	var best Circle
	bestScore := 0.0
	found := false

	for r := rmin; r <= rmax; r++ {
		dx, dy := circleOffsets(r)

		var peak int32
		peakIdx := -1
		for _, p := range pts {
			for k := range dx {
				cx := p.X - dx[k]
				cy := p.Y - dy[k]
				idx := (cy-oy)*aw + (cx - ox)
				if acc[idx] == 0 {
					voted = append(voted, idx)
				}
				acc[idx]++
				if acc[idx] > peak {
					peak = acc[idx]
					peakIdx = idx
				}
			}
		}

		if peakIdx >= 0 && int(peak) >= params.VoteFloor {
			cx := float64(ox + peakIdx%aw)
			cy := float64(oy + peakIdx/aw)
			support := circleSupport(pts, cx, cy, float64(r), fitSelectTol)
			score := float64(support) / (2 * math.Pi * float64(r))
			if score > bestScore {
				cov := circleCoverage(pts, cx, cy, float64(r), cfg.CoverageTol)
				if cov >= params.MinCoverage {
					best = Circle{X: cx, Y: cy, R: float64(r), Coverage: cov}
					bestScore = score
					found = true
				}
			}
		}

		for _, idx := range voted {
			acc[idx] = 0
		}
		voted = voted[:0]
	}

	if !found {
		return Circle{}, false
	}
	best.Confidence = confidenceFromCoverage(best.Coverage)
	return best, true
}

// circleCoverage is the fraction of a circle's circumference supported by
// points, counting points within tol of the circumference and dividing by
// the theoretical perimeter. Capped at 1 since dense point sets can put
// more than one point per circumference pixel.
func circleCoverage(pts []image.Point, cx, cy, r, tol float64) float64 {
	if r <= 0 {
		return 0
	}
	cov := float64(circleSupport(pts, cx, cy, r, tol)) / (2 * math.Pi * r)
	if cov > 1 {
		cov = 1
	}
	return cov
}

// circleSupport counts the points within tol of the circumference.
func circleSupport(pts []image.Point, cx, cy, r, tol float64) int {
	count := 0
	for _, p := range pts {
		d := math.Hypot(float64(p.X)-cx, float64(p.Y)-cy)
		if math.Abs(d-r) <= tol {
			count++
		}
	}
	return count
}

// circleOffsets samples integer offsets along a circle of radius r, spaced
// about two pixels apart along the arc, with consecutive duplicates from
// rounding collapsed.
func circleOffsets(r int) ([]int, []int) {
	steps := int(math.Ceil(math.Pi * float64(r)))
	if steps < 60 {
		steps = 60
	}
	if steps > 720 {
		steps = 720
	}
	dx := make([]int, 0, steps)
	dy := make([]int, 0, steps)
	fr := float64(r)
	for k := 0; k < steps; k++ {
		th := 2 * math.Pi * float64(k) / float64(steps)
		x := int(math.Round(fr * math.Cos(th)))
		y := int(math.Round(fr * math.Sin(th)))
		if n := len(dx); n > 0 && dx[n-1] == x && dy[n-1] == y {
			continue
		}
		dx = append(dx, x)
		dy = append(dy, y)
	}
	return dx, dy
}

func flattenArcs(arcs []ConvexArc) []image.Point {
	n := 0
	for _, a := range arcs {
		n += len(a.Points)
	}
	if n == 0 {
		return nil
	}
	pts := make([]image.Point, 0, n)
	for _, a := range arcs {
		pts = append(pts, a.Points...)
	}
	return pts
}

func pointBounds(pts []image.Point) image.Rectangle {
	bb := image.Rectangle{Min: pts[0], Max: pts[0].Add(image.Pt(1, 1))}
	for _, p := range pts[1:] {
		if p.X < bb.Min.X {
			bb.Min.X = p.X
		}
		if p.Y < bb.Min.Y {
			bb.Min.Y = p.Y
		}
		if p.X >= bb.Max.X {
			bb.Max.X = p.X + 1
		}
		if p.Y >= bb.Max.Y {
			bb.Max.Y = p.Y + 1
		}
	}
	return bb
}
