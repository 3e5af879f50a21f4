package detect

import (
	"image"
	"math"
	"sort"
)

// Contours shorter than this carry too little shape to analyze.
const minContourPoints = 5

// ExtractArcs splits a blob contour into its reliable convex arcs. The
// convex hull marks where the boundary should run for an unoccluded circle;
// convexity defects deeper than cfg.DefectDepth mark spans where an
// overlapping shape interrupts the true boundary. Points within
// cfg.NonConvexMargin contour steps of such a defect are dropped, and the
// surviving points form maximal runs along the contour. A blob whose
// surviving points number fewer than cfg.MinConvexPoints yields no arcs.
func ExtractArcs(contour []image.Point, cfg Config) []ConvexArc {
	n := len(contour)
	if n < minContourPoints {
		return nil
	}

	hull := hullIndices(contour)
	if len(hull) < 4 {
		// Too few hull vertices for defect analysis. Keep the whole
		// contour and let coverage scoring sort it out.
		return []ConvexArc{{Points: append([]image.Point(nil), contour...)}}
	}

	good := make([]bool, n)
	for i := range good {
		good[i] = true
	}
	for _, d := range convexityDefects(contour, hull) {
		if d.depth <= cfg.DefectDepth {
			continue
		}
		// Defect spans are cyclic: a hull gap can cross the contour's
		// start point, and the margin wraps with it.
		span := d.end - d.start
		if span < 0 {
			span += n
		}
		from := d.start - cfg.NonConvexMargin
		to := d.start + span + cfg.NonConvexMargin
		if to-from >= n {
			from, to = 0, n
		}
		for k := from; k < to; k++ {
			i := k % n
			if i < 0 {
				i += n
			}
			good[i] = false
		}
	}

	kept := 0
	for _, g := range good {
		if g {
			kept++
		}
	}
	if kept < cfg.MinConvexPoints {
		return nil
	}

	return collectArcs(contour, good)
}

// collectArcs gathers maximal runs of retained contour points, joining a
// run that ends at the last point with one starting at the first.
func collectArcs(contour []image.Point, good []bool) []ConvexArc {
	n := len(contour)
	var arcs []ConvexArc
	i := 0
	for i < n {
		if !good[i] {
			i++
			continue
		}
		j := i
		for j < n && good[j] {
			j++
		}
		arcs = append(arcs, ConvexArc{Points: append([]image.Point(nil), contour[i:j]...)})
		i = j
	}
	// The contour is cyclic: a run touching both ends is one arc.
	if len(arcs) > 1 && good[0] && good[n-1] {
		last := arcs[len(arcs)-1]
		arcs[0].Points = append(last.Points, arcs[0].Points...)
		arcs = arcs[:len(arcs)-1]
	}
	return arcs
}

type convexityDefect struct {
	start, end, far int
	depth           float64
}

// convexityDefects finds, for each hull gap, the contour point deviating
// farthest inward from the hull chord. Hull indices must be sorted in
// contour order.
func convexityDefects(contour []image.Point, hull []int) []convexityDefect {
	n := len(contour)
	var defects []convexityDefect
	for k := range hull {
		s := hull[k]
		e := hull[(k+1)%len(hull)]
		gap := e - s
		if gap < 0 {
			gap += n
		}
		if gap < 2 {
			continue
		}
		a, b := contour[s], contour[e]
		far, depth := s, 0.0
		for step := 1; step < gap; step++ {
			i := (s + step) % n
			if d := chordDist(a, b, contour[i]); d > depth {
				far, depth = i, d
			}
		}
		if far != s {
			defects = append(defects, convexityDefect{start: s, end: e, far: far, depth: depth})
		}
	}
	return defects
}

// chordDist is the perpendicular distance from p to the line through a and b.
func chordDist(a, b, p image.Point) float64 {
	vx, vy := float64(b.X-a.X), float64(b.Y-a.Y)
	wx, wy := float64(p.X-a.X), float64(p.Y-a.Y)
	norm := math.Hypot(vx, vy)
	if norm == 0 {
		return math.Hypot(wx, wy)
	}
	return math.Abs(vx*wy-vy*wx) / norm
}

// hullIndices computes the convex hull of the contour with the monotone
// chain construction and returns the hull vertices as contour indices
// sorted in contour order.
func hullIndices(contour []image.Point) []int {
	type vertex struct {
		p   image.Point
		idx int
	}

	// A traced contour can revisit a pixel; keep the first visit so every
	// hull vertex maps to one contour position.
	seen := make(map[image.Point]int, len(contour))
	for i, p := range contour {
		if _, ok := seen[p]; !ok {
			seen[p] = i
		}
	}
	pts := make([]vertex, 0, len(seen))
	for p, i := range seen {
		pts = append(pts, vertex{p: p, idx: i})
	}
	sort.Slice(pts, func(i, j int) bool {
		if pts[i].p.X != pts[j].p.X {
			return pts[i].p.X < pts[j].p.X
		}
		return pts[i].p.Y < pts[j].p.Y
	})

	if len(pts) < 3 {
		idx := make([]int, len(pts))
		for i, v := range pts {
			idx[i] = v.idx
		}
		sort.Ints(idx)
		return idx
	}

	cross := func(o, a, b image.Point) int {
		return (a.X-o.X)*(b.Y-o.Y) - (a.Y-o.Y)*(b.X-o.X)
	}

	var lower, upper []vertex
	for _, v := range pts {
		for len(lower) >= 2 && cross(lower[len(lower)-2].p, lower[len(lower)-1].p, v.p) <= 0 {
			lower = lower[:len(lower)-1]
		}
		lower = append(lower, v)
	}
	for i := len(pts) - 1; i >= 0; i-- {
		v := pts[i]
		for len(upper) >= 2 && cross(upper[len(upper)-2].p, upper[len(upper)-1].p, v.p) <= 0 {
			upper = upper[:len(upper)-1]
		}
		upper = append(upper, v)
	}

	idx := make([]int, 0, len(lower)+len(upper)-2)
	for _, v := range lower[:len(lower)-1] {
		idx = append(idx, v.idx)
	}
	for _, v := range upper[:len(upper)-1] {
		idx = append(idx, v.idx)
	}
	sort.Ints(idx)
	return idx
}
