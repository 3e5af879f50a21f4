package detect

import "image"

// Mask pixel states used during component labeling.
const (
	maskEmpty   = 0
	maskPresent = 1
	maskVisited = 2
)

// BuildMask returns a binary mask selecting the pixels of one palette entry.
// The mask shares the label map's row-major layout.
func BuildMask(labels *LabelMap, index uint8) []uint8 {
	mask := make([]uint8, len(labels.Labels))
	for i, l := range labels.Labels {
		if l == index {
			mask[i] = maskPresent
		}
	}
	return mask
}

// Isolate extracts the connected regions of one palette color from a label
// map. Regions smaller than cfg.MinBlobArea are discarded. With
// cfg.EnhanceEdges set, the mask is morphologically cleaned first to
// reconnect fragmented regions of occluded circles.
func Isolate(labels *LabelMap, index uint8, cfg Config) []Blob {
	mask := BuildMask(labels, index)
	if cfg.EnhanceEdges {
		mask = EnhanceMask(mask, labels.W, labels.H)
	}
	return FindBlobs(mask, labels.W, labels.H, cfg.MinBlobArea)
}

// FindBlobs labels 8-connected components in a binary mask and traces the
// outer contour of every component with at least minArea pixels. The mask is
// consumed: visited pixels are overwritten.
func FindBlobs(mask []uint8, w, h, minArea int) []Blob {
	var blobs []Blob
	stack := make([]int, 0, 256)

	for y := 0; y < h; y++ {
		row := y * w
		for x := 0; x < w; x++ {
			if mask[row+x] != maskPresent {
				continue
			}
			// Scan order guarantees (x, y) is the topmost, leftmost
			// pixel of its component, which the contour tracer needs
			// as its start.
			area, bounds := fillComponent(mask, w, h, x, y, &stack)
			if area < minArea {
				continue
			}
			blobs = append(blobs, Blob{
				Contour: traceContour(mask, w, h, x, y),
				Area:    area,
				Bounds:  bounds,
			})
		}
	}
	return blobs
}

// fillComponent flood-fills the 8-connected component seeded at (x, y),
// marking its pixels visited. It returns the pixel count and bounding box.
func fillComponent(mask []uint8, w, h, x, y int, stack *[]int) (int, image.Rectangle) {
	s := (*stack)[:0]
	s = append(s, y*w+x)
	mask[y*w+x] = maskVisited

	area := 0
	minX, minY, maxX, maxY := x, y, x, y

	for len(s) > 0 {
		idx := s[len(s)-1]
		s = s[:len(s)-1]
		px, py := idx%w, idx/w

		area++
		if px < minX {
			minX = px
		}
		if px > maxX {
			maxX = px
		}
		if py < minY {
			minY = py
		}
		if py > maxY {
			maxY = py
		}

		for dy := -1; dy <= 1; dy++ {
			ny := py + dy
			if ny < 0 || ny >= h {
				continue
			}
			for dx := -1; dx <= 1; dx++ {
				nx := px + dx
				if nx < 0 || nx >= w {
					continue
				}
				ni := ny*w + nx
				if mask[ni] == maskPresent {
					mask[ni] = maskVisited
					s = append(s, ni)
				}
			}
		}
	}

	*stack = s[:0]
	return area, image.Rect(minX, minY, maxX+1, maxY+1)
}

// Clockwise Moore neighborhood starting east.
var (
	mooreDX = [8]int{1, 1, 0, -1, -1, -1, 0, 1}
	mooreDY = [8]int{0, 1, 1, 1, 0, -1, -1, -1}
)

// traceContour walks the outer boundary of the component containing
// (sx, sy) using Moore-neighbor tracing. (sx, sy) must be the component's
// topmost, leftmost pixel. Every boundary pixel is kept so that downstream
// arc analysis can count contour steps; thin spurs appear twice, once per
// side, like any border-following trace reports them.
func traceContour(mask []uint8, w, h, sx, sy int) []image.Point {
	set := func(x, y int) bool {
		return x >= 0 && y >= 0 && x < w && y < h && mask[y*w+x] != maskEmpty
	}

	contour := make([]image.Point, 0, 64)
	contour = append(contour, image.Pt(sx, sy))

	// The backtrack is the last background pixel examined. It starts west
	// of the seed, which is background for a topmost-leftmost start pixel.
	cx, cy := sx, sy
	bx, by := sx-1, sy

	// Arrivals at the start pixel, keyed by backtrack. The walk ends when
	// one repeats. Plain Jacob's criterion (stop on the initial backtrack
	// alone) never fires on single-pixel-wide diagonals, whose boundary
	// cycle re-enters the start from other directions only.
	arrived := map[image.Point]bool{{X: sx - 1, Y: sy}: true}

	maxSteps := 4*w*h + 8
	for step := 0; step < maxSteps; step++ {
		dir := 0
		for i := range mooreDX {
			if cx+mooreDX[i] == bx && cy+mooreDY[i] == by {
				dir = i
				break
			}
		}

		// Scan clockwise from just past the backtrack, remembering the
		// last background pixel seen before the next boundary pixel.
		px, py := bx, by
		found := false
		for k := 1; k <= 8; k++ {
			i := (dir + k) % 8
			nx, ny := cx+mooreDX[i], cy+mooreDY[i]
			if set(nx, ny) {
				bx, by = px, py
				cx, cy = nx, ny
				found = true
				break
			}
			px, py = nx, ny
		}
		if !found {
			// Isolated pixel.
			break
		}
		if cx == sx && cy == sy {
			b := image.Pt(bx, by)
			if arrived[b] {
				break
			}
			arrived[b] = true
		}
		contour = append(contour, image.Pt(cx, cy))
	}
	return contour
}
