package detect

import (
	"sort"

	"github.com/cwbudde/dotscan/internal/spatial"
)

// Deduplicate collapses detections whose centers sit within dist of each
// other, keeping the highest-coverage member of each cluster and relative
// input order among the survivors. Claims run in coverage order, so a chain
// of near detections collapses onto its strongest members; equal coverage
// falls back to input order.
func Deduplicate(circles []Circle, dist float64) []Circle {
	if dist <= 0 || len(circles) < 2 {
		return circles
	}

	pts := make([]spatial.Point, len(circles))
	for i, c := range circles {
		pts[i] = spatial.Point{X: c.X, Y: c.Y}
	}
	idx := spatial.NewIndex(dist)
	idx.Build(pts)

	order := make([]int, len(circles))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		return circles[order[a]].Coverage > circles[order[b]].Coverage
	})

	claimed := make([]bool, len(circles))
	kept := make([]int, 0, len(circles))
	for _, i := range order {
		if claimed[i] {
			continue
		}
		kept = append(kept, i)
		for _, j := range idx.QueryIndex(i, dist) {
			claimed[j] = true
		}
	}

	sort.Ints(kept)
	out := make([]Circle, len(kept))
	for k, i := range kept {
		out[k] = circles[i]
	}
	return out
}
