// Package extract measures the color of detected circles from the source
// image and groups detections by color for per-layer output. Detection
// only knows the quantization target each circle was fit against; this
// package answers what color the print actually shows, which matters
// wherever overlap ink covers part of a dot.
package extract

import (
	"fmt"
	"image"
	"strings"

	"github.com/cwbudde/dotscan/internal/detect"
	"github.com/cwbudde/dotscan/internal/palette"
)

// SampleMethod selects the strategy used to measure a circle's color.
type SampleMethod string

const (
	// MethodArea averages every pixel inside the disc. Robust for
	// isolated circles, biased by overlap ink for occluded ones.
	MethodArea SampleMethod = "area"

	// MethodCircumference takes the per-channel median of 36 evenly
	// spaced rim samples.
	MethodCircumference SampleMethod = "circumference"

	// MethodBand takes the median over the annulus within 3 px of the
	// rim.
	MethodBand SampleMethod = "band"

	// MethodCanny takes the median over gradient-edge pixels within 3 px
	// of the rim, after a gaussian pre-blur. Samples the same evidence
	// the detector fit against.
	MethodCanny SampleMethod = "canny"

	// MethodExposed samples the rim like MethodCircumference but drops
	// points occluded by larger circles.
	MethodExposed SampleMethod = "exposed"
)

// SupportedMethods returns the sampling methods in documentation order.
func SupportedMethods() []SampleMethod {
	return []SampleMethod{MethodArea, MethodCircumference, MethodBand, MethodCanny, MethodExposed}
}

// NormalizeMethod folds case and validates a method name. The empty
// string selects area sampling.
func NormalizeMethod(name string) (SampleMethod, error) {
	if name == "" {
		return MethodArea, nil
	}
	m := SampleMethod(strings.ToLower(strings.TrimSpace(name)))
	for _, s := range SupportedMethods() {
		if m == s {
			return m, nil
		}
	}
	supported := make([]string, 0, len(SupportedMethods()))
	for _, s := range SupportedMethods() {
		supported = append(supported, string(s))
	}
	return "", &detect.ConfigurationError{
		Param:  "method",
		Reason: fmt.Sprintf("%q is not a sampling method (supported: %s)", name, strings.Join(supported, ", ")),
	}
}

// SampleFunc measures one circle on a sampler's source image.
type SampleFunc func(s *Sampler, c detect.Circle) palette.Color

// samplers is the strategy table. NormalizeMethod guarantees lookups hit.
var samplers = map[SampleMethod]SampleFunc{
	MethodArea:          sampleArea,
	MethodCircumference: sampleCircumference,
	MethodBand:          sampleBand,
	MethodCanny:         sampleCanny,
	MethodExposed:       sampleExposed,
}

// SamplerForMethod returns the strategy implementing a normalized method,
// or nil for an unknown one. NormalizeMethod validates names.
func SamplerForMethod(m SampleMethod) SampleFunc {
	return samplers[m]
}

// Sampler measures circle colors on one source image. It carries the
// shared state the strategies need: the full detection list for occlusion
// tests and a lazily built edge map for gradient sampling. Not safe for
// concurrent use.
type Sampler struct {
	img     *image.NRGBA
	circles []detect.Circle
	method  SampleMethod
	edges   *image.Gray
}

// NewSampler validates the method name and builds a sampler over img.
// The circle list is only consulted by the exposed method; other methods
// accept nil.
func NewSampler(img *image.NRGBA, circles []detect.Circle, method string) (*Sampler, error) {
	m, err := NormalizeMethod(method)
	if err != nil {
		return nil, err
	}
	return &Sampler{img: img, circles: circles, method: m}, nil
}

// Color measures one circle with the configured method.
func (s *Sampler) Color(c detect.Circle) palette.Color {
	return SamplerForMethod(s.method)(s, c)
}

// Extract measures every circle's color from the source image and returns
// a copy of the list with the measured colors applied, in input order.
// The input slice is left untouched.
func Extract(img *image.NRGBA, circles []detect.Circle, method string) ([]detect.Circle, error) {
	s, err := NewSampler(img, circles, method)
	if err != nil {
		return nil, err
	}
	out := make([]detect.Circle, len(circles))
	for i, c := range circles {
		out[i] = c
		out[i].Color = s.Color(c)
	}
	return out, nil
}
