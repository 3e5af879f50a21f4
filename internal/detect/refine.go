package detect

import (
	"math"

	"github.com/cwbudde/dotscan/internal/opt"
)

// Refinement search window around the Hough pose, in pixels, and the
// optimizer budget for the three-parameter polish.
const (
	refineWindow = 2.0
	refineIters  = 60
	refinePop    = 24
)

// RefineCircle polishes a fitted circle's center and radius with a short
// mayfly run over a small pose window, minimizing the trimmed squared
// radial residual of the arc points. Hough votes land on integer cells;
// the polish recovers the sub-pixel pose. The refined pose is kept only
// when it does not lose circumference coverage.
func RefineCircle(c Circle, arcs []ConvexArc, cfg Config) Circle {
	pts := flattenArcs(arcs)
	if len(pts) == 0 {
		return c
	}
	tol := cfg.CoverageTol

	eval := func(v []float64) float64 {
		cx := c.X + v[0]
		cy := c.Y + v[1]
		r := clampF(c.R+v[2], cfg.MinRadius, cfg.MaxRadius)
		sum := 0.0
		for _, p := range pts {
			d := math.Hypot(float64(p.X)-cx, float64(p.Y)-cy)
			res := math.Abs(d - r)
			if res > tol {
				res = tol
			}
			sum += res * res
		}
		return sum / float64(len(pts))
	}

	lower := []float64{-refineWindow, -refineWindow, -refineWindow}
	upper := []float64{refineWindow, refineWindow, refineWindow}
	best, _ := opt.NewMayfly(refineIters, refinePop, cfg.RefineSeed).Run(eval, lower, upper, 3)

	refined := c
	refined.X = c.X + best[0]
	refined.Y = c.Y + best[1]
	refined.R = clampF(c.R+best[2], cfg.MinRadius, cfg.MaxRadius)
	refined.Coverage = circleCoverage(pts, refined.X, refined.Y, refined.R, tol)
	if refined.Coverage < c.Coverage {
		return c
	}
	refined.Confidence = confidenceFromCoverage(refined.Coverage)
	return refined
}

func clampF(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
