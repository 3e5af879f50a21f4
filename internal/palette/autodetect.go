package palette

import (
	"image"
	"log/slog"
	"sort"
)

// DetectOptions tunes automatic palette detection.
type DetectOptions struct {
	// MaxColors is the maximum number of non-white colors to admit.
	MaxColors int

	// MinPresence is the minimum fraction of sampled pixels a color needs
	// to be admitted. Filters anti-aliasing noise.
	MinPresence float64

	// SampleStep subsamples every Nth pixel in both dimensions.
	SampleStep int

	// BucketSize quantizes each channel to multiples of this value before
	// counting, merging near-identical shades.
	BucketSize int
}

// DefaultDetectOptions returns the detection defaults: up to 6 colors,
// 0.5% presence, every 10th pixel, bucket size 20.
func DefaultDetectOptions() DetectOptions {
	return DetectOptions{
		MaxColors:   6,
		MinPresence: 0.005,
		SampleStep:  10,
		BucketSize:  20,
	}
}

type countedColor struct {
	c     Color
	count int
}

// Detect builds a working palette from image content: subsampled pixels
// are bucket-quantized and counted; colors above the presence threshold
// survive. White-like colors are excluded from detection but white is
// always prepended as the background entry, and the dominant black-like
// color is always included first among the detected colors when present.
func Detect(img *image.NRGBA, opts DetectOptions) Palette {
	if opts.SampleStep <= 0 {
		opts.SampleStep = 1
	}
	if opts.BucketSize <= 0 {
		opts.BucketSize = 1
	}

	counts := make(map[Color]int)
	total := 0
	b := img.Bounds()
	for y := b.Min.Y; y < b.Max.Y; y += opts.SampleStep {
		row := img.Pix[(y-b.Min.Y)*img.Stride:]
		for x := b.Min.X; x < b.Max.X; x += opts.SampleStep {
			off := (x - b.Min.X) * 4
			c := Color{
				R: quantizeChannel(row[off+0], opts.BucketSize),
				G: quantizeChannel(row[off+1], opts.BucketSize),
				B: quantizeChannel(row[off+2], opts.BucketSize),
			}
			counts[c]++
			total++
		}
	}
	if total == 0 {
		return Palette{{Name: "white", R: 255, G: 255, B: 255}}
	}

	var admitted []countedColor
	var black Color
	blackCount := 0
	for c, n := range counts {
		if float64(n)/float64(total) < opts.MinPresence {
			continue
		}
		if c.IsBlackLike() {
			if n > blackCount {
				black, blackCount = c, n
			}
			continue
		}
		if c.IsWhiteLike() {
			continue
		}
		admitted = append(admitted, countedColor{c: c, count: n})
	}

	sort.SliceStable(admitted, func(i, j int) bool {
		if admitted[i].count != admitted[j].count {
			return admitted[i].count > admitted[j].count
		}
		return lessRGB(admitted[i].c, admitted[j].c)
	})

	p := Palette{{Name: "white", R: 255, G: 255, B: 255}}
	if blackCount > 0 {
		black.Name, _ = MatchName(black)
		p = append(p, black)
	}
	for _, cc := range admitted {
		if len(p)-1 >= opts.MaxColors {
			break
		}
		c := cc.c
		c.Name, _ = MatchName(c)
		p = append(p, c)
	}

	slog.Debug("palette detected",
		"sampled", total,
		"candidates", len(counts),
		"colors", len(p)-1,
	)
	return p
}

func quantizeChannel(v uint8, bucket int) uint8 {
	q := (int(v) + bucket/2) / bucket * bucket
	if q > 255 {
		q = 255
	}
	return uint8(q)
}

func lessRGB(a, b Color) bool {
	if a.R != b.R {
		return a.R < b.R
	}
	if a.G != b.G {
		return a.G < b.G
	}
	return a.B < b.B
}
