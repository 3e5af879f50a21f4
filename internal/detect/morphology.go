package detect

import (
	"image"
	"math"
)

// EnhanceMask dilates and then erodes a binary mask with small elliptical
// kernels. Dilation bridges nearby fragments of one color region, the
// slightly smaller erosion pulls touching regions back apart. Helps with
// occluded circles whose visible area quantizes into fragments.
func EnhanceMask(mask []uint8, w, h int) []uint8 {
	mask = dilate(mask, w, h, ellipseKernel(3))
	return erode(mask, w, h, ellipseKernel(2))
}

// ellipseKernel returns the pixel offsets of an elliptical structuring
// element of the given size, relative to its anchor at (size/2, size/2).
func ellipseKernel(size int) []image.Point {
	r := size / 2
	c := size / 2
	var offs []image.Point
	for i := 0; i < size; i++ {
		dy := i - r
		if dy < -r || dy > r {
			continue
		}
		dx := c
		if r > 0 {
			dx = int(math.Round(float64(c) * math.Sqrt(float64(r*r-dy*dy)) / float64(r)))
		}
		j1 := c - dx
		if j1 < 0 {
			j1 = 0
		}
		j2 := c + dx + 1
		if j2 > size {
			j2 = size
		}
		for j := j1; j < j2; j++ {
			offs = append(offs, image.Pt(j-c, dy))
		}
	}
	return offs
}

// dilate sets a pixel when any kernel-covered pixel is set. Pixels outside
// the mask count as background.
func dilate(mask []uint8, w, h int, kernel []image.Point) []uint8 {
	out := make([]uint8, len(mask))
	for y := 0; y < h; y++ {
		row := y * w
		for x := 0; x < w; x++ {
			for _, o := range kernel {
				nx, ny := x+o.X, y+o.Y
				if nx >= 0 && ny >= 0 && nx < w && ny < h && mask[ny*w+nx] != maskEmpty {
					out[row+x] = maskPresent
					break
				}
			}
		}
	}
	return out
}

// erode keeps a pixel only when every kernel-covered pixel is set. Pixels
// outside the mask count as foreground so the image border does not erode.
func erode(mask []uint8, w, h int, kernel []image.Point) []uint8 {
	out := make([]uint8, len(mask))
	for y := 0; y < h; y++ {
		row := y * w
		for x := 0; x < w; x++ {
			keep := uint8(maskPresent)
			for _, o := range kernel {
				nx, ny := x+o.X, y+o.Y
				if nx < 0 || ny < 0 || nx >= w || ny >= h {
					continue
				}
				if mask[ny*w+nx] == maskEmpty {
					keep = maskEmpty
					break
				}
			}
			out[row+x] = keep
		}
	}
	return out
}
