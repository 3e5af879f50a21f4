package detect

import (
	"image"

	"github.com/cwbudde/dotscan/internal/palette"
)

// Quantize maps every pixel to its nearest palette color by squared
// Euclidean RGB distance. Pure: the image and palette are read-only and
// the result is freshly allocated.
//
// The hot loop runs over the raw pixel buffer with precomputed palette
// channels; per-pixel interface calls or allocations would make
// multi-megapixel inputs unusably slow.
func Quantize(img *image.NRGBA, pal palette.Palette) (*LabelMap, error) {
	if len(pal) == 0 {
		return nil, &ConfigurationError{Param: "palette", Reason: "must contain at least one color"}
	}
	if len(pal) > 255 {
		return nil, &ConfigurationError{Param: "palette", Reason: "must not exceed 255 colors"}
	}

	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	m := &LabelMap{W: w, H: h, Labels: make([]uint8, w*h)}

	pr := make([]int32, len(pal))
	pg := make([]int32, len(pal))
	pb := make([]int32, len(pal))
	for i, c := range pal {
		pr[i] = int32(c.R)
		pg[i] = int32(c.G)
		pb[i] = int32(c.B)
	}

	for y := 0; y < h; y++ {
		off := img.PixOffset(b.Min.X, b.Min.Y+y)
		src := img.Pix[off : off+w*4]
		dst := m.Labels[y*w : (y+1)*w]
		for x := 0; x < w; x++ {
			r := int32(src[x*4+0])
			g := int32(src[x*4+1])
			bl := int32(src[x*4+2])

			best := uint8(0)
			bestDist := int32(1 << 30)
			for i := range pr {
				dr := r - pr[i]
				dg := g - pg[i]
				db := bl - pb[i]
				d := dr*dr + dg*dg + db*db
				if d < bestDist {
					bestDist = d
					best = uint8(i)
				}
			}
			dst[x] = best
		}
	}
	return m, nil
}
