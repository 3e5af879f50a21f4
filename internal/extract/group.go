package extract

import (
	"math"
	"math/rand"

	"github.com/lucasb-eyer/go-colorful"

	"github.com/cwbudde/dotscan/internal/detect"
	"github.com/cwbudde/dotscan/internal/palette"
)

// DefaultGroupTolerance is the Lab distance under which two measured
// colors are treated as the same ink. go-colorful scales L to [0,1], so
// 0.2 corresponds to a delta-E of 20 on the classic scale.
const DefaultGroupTolerance = 0.2

const (
	kmeansSeed     = 42
	kmeansRestarts = 10
	kmeansMaxIter  = 100
)

// Group is a set of circles sharing one representative color.
type Group struct {
	Color   palette.Color
	Circles []detect.Circle
}

// GroupByTolerance partitions circles by color, merging each circle into
// the first existing group whose representative lies within tol in Lab
// space. Groups keep first-appearance order; the representative is the
// first member's color.
func GroupByTolerance(circles []detect.Circle, tol float64) []Group {
	var groups []Group
	for _, c := range circles {
		placed := false
		for i := range groups {
			if labDistance(groups[i].Color, c.Color) <= tol {
				groups[i].Circles = append(groups[i].Circles, c)
				placed = true
				break
			}
		}
		if !placed {
			groups = append(groups, Group{Color: c.Color, Circles: []detect.Circle{c}})
		}
	}
	return groups
}

// GroupCircles partitions circles by their assigned colors. A positive
// maxColors first reduces the distinct colors by k-means; otherwise
// greedy Lab grouping at tol applies.
func GroupCircles(circles []detect.Circle, tol float64, maxColors int) []Group {
	if maxColors <= 0 {
		return GroupByTolerance(circles, tol)
	}

	distinct := make([]palette.Color, 0, 8)
	seen := make(map[palette.Color]bool)
	for _, c := range circles {
		if !seen[c.Color] {
			seen[c.Color] = true
			distinct = append(distinct, c.Color)
		}
	}
	mapping := GroupKMeans(distinct, maxColors)

	var groups []Group
	index := make(map[palette.Color]int)
	for _, c := range circles {
		rep := mapping[c.Color]
		i, ok := index[rep]
		if !ok {
			i = len(groups)
			index[rep] = i
			groups = append(groups, Group{Color: rep})
		}
		groups[i].Circles = append(groups[i].Circles, c)
	}
	return groups
}

// GroupKMeans reduces the color set to at most k representatives with
// k-means over RGB and returns the original to representative mapping.
// Seeding is fixed, so the mapping is stable across runs. Fewer colors
// than k yields one cluster per color; a single color maps to itself.
func GroupKMeans(colors []palette.Color, k int) map[palette.Color]palette.Color {
	if len(colors) == 0 {
		return map[palette.Color]palette.Color{}
	}
	if len(colors) == 1 {
		return map[palette.Color]palette.Color{colors[0]: colors[0]}
	}
	if k > len(colors) {
		k = len(colors)
	}
	if k < 1 {
		k = 1
	}

	points := make([][3]float64, len(colors))
	for i, c := range colors {
		points[i] = [3]float64{float64(c.R), float64(c.G), float64(c.B)}
	}
	centers, labels := kmeans(points, k)

	mapping := make(map[palette.Color]palette.Color, len(colors))
	for i, c := range colors {
		ctr := centers[labels[i]]
		mapping[c] = colorFromFloats(ctr[0], ctr[1], ctr[2])
	}
	return mapping
}

// labDistance returns the CIE76 distance between two colors.
func labDistance(a, b palette.Color) float64 {
	ca := colorful.Color{R: float64(a.R) / 255, G: float64(a.G) / 255, B: float64(a.B) / 255}
	cb := colorful.Color{R: float64(b.R) / 255, G: float64(b.G) / 255, B: float64(b.B) / 255}
	return ca.DistanceLab(cb)
}

// kmeans runs Lloyd's algorithm with k-means++ seeding, keeping the best
// of kmeansRestarts runs by total squared distance.
func kmeans(points [][3]float64, k int) ([][3]float64, []int) {
	rng := rand.New(rand.NewSource(kmeansSeed))

	var bestCenters [][3]float64
	var bestLabels []int
	bestCost := math.Inf(1)

	for run := 0; run < kmeansRestarts; run++ {
		centers := seedCenters(points, k, rng)
		labels := make([]int, len(points))

		for iter := 0; iter < kmeansMaxIter; iter++ {
			changed := false
			for i, p := range points {
				best := 0
				bestD := dist3(p, centers[0])
				for j := 1; j < k; j++ {
					if d := dist3(p, centers[j]); d < bestD {
						bestD = d
						best = j
					}
				}
				if labels[i] != best {
					labels[i] = best
					changed = true
				}
			}
			if !changed && iter > 0 {
				break
			}

			sums := make([][4]float64, k)
			for i, p := range points {
				l := labels[i]
				sums[l][0] += p[0]
				sums[l][1] += p[1]
				sums[l][2] += p[2]
				sums[l][3]++
			}
			for j := 0; j < k; j++ {
				// An emptied cluster keeps its center.
				if sums[j][3] == 0 {
					continue
				}
				centers[j] = [3]float64{
					sums[j][0] / sums[j][3],
					sums[j][1] / sums[j][3],
					sums[j][2] / sums[j][3],
				}
			}
		}

		cost := 0.0
		for i, p := range points {
			cost += dist3(p, centers[labels[i]])
		}
		if cost < bestCost {
			bestCost = cost
			bestCenters = centers
			bestLabels = labels
		}
	}
	return bestCenters, bestLabels
}

// seedCenters picks k initial centers, each subsequent one weighted by
// squared distance to the nearest already chosen center.
func seedCenters(points [][3]float64, k int, rng *rand.Rand) [][3]float64 {
	centers := make([][3]float64, 0, k)
	centers = append(centers, points[rng.Intn(len(points))])

	for len(centers) < k {
		weights := make([]float64, len(points))
		total := 0.0
		for i, p := range points {
			d := math.Inf(1)
			for _, ctr := range centers {
				if dd := dist3(p, ctr); dd < d {
					d = dd
				}
			}
			weights[i] = d
			total += d
		}
		if total == 0 {
			// Every point coincides with a center already.
			centers = append(centers, points[rng.Intn(len(points))])
			continue
		}

		target := rng.Float64() * total
		idx := -1
		for i, w := range weights {
			if w == 0 {
				continue
			}
			idx = i
			target -= w
			if target <= 0 {
				break
			}
		}
		centers = append(centers, points[idx])
	}
	return centers
}

// dist3 is the squared euclidean distance.
func dist3(a, b [3]float64) float64 {
	dx := a[0] - b[0]
	dy := a[1] - b[1]
	dz := a[2] - b[2]
	return dx*dx + dy*dy + dz*dz
}
