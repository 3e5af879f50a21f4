// Package spatial provides a uniform-grid index for fast fixed-radius
// neighbor queries over 2D points. Cell size should approximately match
// the query radius so a 3x3 cell neighborhood covers every candidate.
package spatial

import "math"

// Point is a position in image coordinates.
type Point struct {
	X, Y float64
}

// Index is a regular-grid spatial index. Grid maps a cell key to the
// indices of the points that fall inside that cell, in insertion order.
type Index struct {
	CellSize float64
	Grid     map[int64][]int

	points []Point
}

// estimatedPointsPerCell sizes the initial grid allocation.
const estimatedPointsPerCell = 4

// NewIndex creates an index with the given cell size.
func NewIndex(cellSize float64) *Index {
	return &Index{
		CellSize: cellSize,
		Grid:     make(map[int64][]int),
	}
}

// Build populates the index from the point set, replacing any previous
// contents. The slice is retained for queries; callers must not mutate it
// while the index is in use.
func (idx *Index) Build(points []Point) {
	idx.points = points
	idx.Grid = make(map[int64][]int, len(points)/estimatedPointsPerCell+1)

	for i, p := range points {
		key := idx.cellKey(idx.cellOf(p.X), idx.cellOf(p.Y))
		idx.Grid[key] = append(idx.Grid[key], i)
	}
}

// Len returns the number of indexed points.
func (idx *Index) Len() int {
	return len(idx.points)
}

// Query returns the indices of all points within eps of center, in
// ascending cell then insertion order. The center itself is included when
// it is an indexed point.
func (idx *Index) Query(center Point, eps float64) []int {
	var neighbors []int
	eps2 := eps * eps

	cellX := idx.cellOf(center.X)
	cellY := idx.cellOf(center.Y)

	// 3x3 cell neighborhood covers eps as long as CellSize >= eps.
	for dx := int64(-1); dx <= 1; dx++ {
		for dy := int64(-1); dy <= 1; dy++ {
			key := idx.cellKey(cellX+dx, cellY+dy)
			for _, candidate := range idx.Grid[key] {
				p := idx.points[candidate]
				ddx := p.X - center.X
				ddy := p.Y - center.Y
				if ddx*ddx+ddy*ddy <= eps2 {
					neighbors = append(neighbors, candidate)
				}
			}
		}
	}
	return neighbors
}

// QueryIndex returns the neighbors of the i-th indexed point within eps.
func (idx *Index) QueryIndex(i int, eps float64) []int {
	return idx.Query(idx.points[i], eps)
}

func (idx *Index) cellOf(v float64) int64 {
	return int64(math.Floor(v / idx.CellSize))
}

// cellKey maps a signed cell coordinate pair to a unique non-negative key
// using zigzag encoding followed by Szudzik's pairing function.
func (idx *Index) cellKey(cellX, cellY int64) int64 {
	var a, b int64
	if cellX >= 0 {
		a = 2 * cellX
	} else {
		a = -2*cellX - 1
	}
	if cellY >= 0 {
		b = 2 * cellY
	} else {
		b = -2*cellY - 1
	}

	if a >= b {
		return a*a + a + b
	}
	return a + b*b
}
