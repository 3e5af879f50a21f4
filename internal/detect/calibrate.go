package detect

import (
	"context"
	"fmt"
	"image"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/cwbudde/dotscan/internal/palette"
)

// Radius bounds for the wide calibration scan, and the smallest usable
// lower bound.
const (
	calScanMin = 5.0
	calScanMax = 500.0
	calFloor   = 5.0
)

// minCalibrationCircles is the number of reference detections a radius
// estimate needs to be statistically meaningful.
const minCalibrationCircles = 3

// Calibrate derives radius bounds from the dots of a reference color,
// normally the darkest palette entry since dark ink prints on top and its
// dots stay unoccluded. A wide scan detects the reference dots, then the
// bounds are set to mean +/- 2 sigma with 10% padding. refName selects the
// reference color; empty picks the darkest automatically.
//
// Returns InsufficientDataError when fewer than three reference circles
// are found, and ConfigurationError when the palette has no usable
// reference entry.
func Calibrate(ctx context.Context, img *image.NRGBA, pal palette.Palette, refName string, cfg Config) (minR, maxR float64, err error) {
	ref, err := referenceIndex(pal, refName)
	if err != nil {
		return 0, 0, err
	}

	wide := cfg
	wide.MinRadius = calScanMin
	wide.MaxRadius = calScanMax
	wide.Sensitivity = NormalizeSensitivity(string(wide.Sensitivity))
	if err := wide.Validate(); err != nil {
		return 0, 0, err
	}

	labels, err := Quantize(img, pal)
	if err != nil {
		return 0, 0, err
	}

	s, err := measureRadii(ctx, labels, pal, ref, wide)
	if err != nil {
		return 0, 0, err
	}
	if s.count < minCalibrationCircles {
		return 0, 0, &InsufficientDataError{
			Color:    pal[ref].String(),
			Found:    s.count,
			Required: minCalibrationCircles,
		}
	}

	minR = (s.mean - 2*s.std) * 0.9
	if minR < calFloor {
		minR = calFloor
	}
	maxR = (s.mean + 2*s.std) * 1.1
	return minR, maxR, nil
}

// CalibrateOptions tunes the iterative calibration loop.
type CalibrateOptions struct {
	// InitialMin and InitialMax are the starting search bounds; the loop
	// never widens past them.
	InitialMin float64
	InitialMax float64

	// Tolerance is the radius error below which the loop stops.
	Tolerance float64

	// MaxIterations caps the number of detection passes.
	MaxIterations int

	// TargetMean anchors the error to a known dot radius; 0 uses the
	// first-pass mean as reference.
	TargetMean float64
}

// DefaultCalibrateOptions returns the iterative calibration defaults.
func DefaultCalibrateOptions() CalibrateOptions {
	return CalibrateOptions{
		InitialMin:    10,
		InitialMax:    300,
		Tolerance:     2,
		MaxIterations: 20,
	}
}

// CalibrationStep records one pass of the iterative loop.
type CalibrationStep struct {
	Iteration  int     `json:"iteration"`
	MinRadius  float64 `json:"min_radius"`
	MaxRadius  float64 `json:"max_radius"`
	Count      int     `json:"detected_count"`
	MeanRadius float64 `json:"detected_mean_radius"`
	StdRadius  float64 `json:"detected_std_radius"`
	Error      float64 `json:"error"`
}

// CalibrationResult is the outcome of iterative calibration.
type CalibrationResult struct {
	MinRadius  float64           `json:"optimal_min_radius"`
	MaxRadius  float64           `json:"optimal_max_radius"`
	FinalError float64           `json:"final_error"`
	Iterations int               `json:"iterations"`
	Converged  bool              `json:"converged"`
	History    []CalibrationStep `json:"history,omitempty"`
	Message    string            `json:"message"`
}

// CalibrateIterative tightens radius bounds over repeated detection
// passes. Each pass detects the reference dots with the current bounds,
// then pulls the bounds toward the detected radius range with a margin.
// The loop stops when the bounds settle within a pixel, the radius error
// drops under the tolerance, or the iteration budget runs out; the result
// reports which and keeps the full step history.
//
// A run that finds no reference circles at all is reported through the
// result, not an error, so callers can show the partial history.
func CalibrateIterative(ctx context.Context, img *image.NRGBA, pal palette.Palette, refName string, cfg Config, opts CalibrateOptions) (*CalibrationResult, error) {
	ref, err := referenceIndex(pal, refName)
	if err != nil {
		return nil, err
	}

	base := cfg
	base.MinRadius = opts.InitialMin
	base.MaxRadius = opts.InitialMax
	base.Sensitivity = NormalizeSensitivity(string(base.Sensitivity))
	if err := base.Validate(); err != nil {
		return nil, err
	}

	labels, err := Quantize(img, pal)
	if err != nil {
		return nil, err
	}

	measure := func(lo, hi float64) (radiusSample, error) {
		c := base
		c.MinRadius = lo
		c.MaxRadius = hi
		return measureRadii(ctx, labels, pal, ref, c)
	}

	minR, maxR := opts.InitialMin, opts.InitialMax
	s, err := measure(minR, maxR)
	if err != nil {
		return nil, err
	}
	if s.count == 0 {
		return &CalibrationResult{
			MinRadius:  opts.InitialMin,
			MaxRadius:  opts.InitialMax,
			FinalError: math.Inf(1),
			Message:    "no reference circles detected, cannot calibrate",
		}, nil
	}

	target := opts.TargetMean
	if target <= 0 {
		target = s.mean
	}

	res := &CalibrationResult{}
	initial := calibrationError(s.mean, s.std, target)
	res.History = append(res.History, CalibrationStep{
		Iteration:  0,
		MinRadius:  minR,
		MaxRadius:  maxR,
		Count:      s.count,
		MeanRadius: s.mean,
		StdRadius:  s.std,
		Error:      initial,
	})
	if initial < opts.Tolerance {
		res.MinRadius = minR
		res.MaxRadius = maxR
		res.FinalError = initial
		res.Iterations = 1
		res.Converged = true
		res.Message = "already within tolerance with initial bounds"
		return res, nil
	}

	bestErr, bestMin, bestMax := initial, minR, maxR

	for it := 1; it <= opts.MaxIterations; it++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		margin := (s.max - s.min) * 0.1
		if margin < 5 {
			margin = 5
		}
		newMin := s.min - margin
		if newMin < opts.InitialMin {
			newMin = opts.InitialMin
		}
		newMax := s.max + margin
		if newMax > opts.InitialMax {
			newMax = opts.InitialMax
		}
		if newMax <= newMin {
			newMax = newMin + 2*margin
		}

		if math.Abs(newMin-minR) < 1 && math.Abs(newMax-maxR) < 1 {
			res.MinRadius = bestMin
			res.MaxRadius = bestMax
			res.FinalError = bestErr
			res.Iterations = it
			res.Converged = true
			res.Message = fmt.Sprintf("bounds settled after %d iterations", it)
			return res, nil
		}
		minR, maxR = newMin, newMax

		s, err = measure(minR, maxR)
		if err != nil {
			return nil, err
		}
		if s.count == 0 {
			res.MinRadius = bestMin
			res.MaxRadius = bestMax
			res.FinalError = bestErr
			res.Iterations = it
			res.Message = fmt.Sprintf("stopped at iteration %d: tighter bounds lost all circles", it)
			return res, nil
		}

		e := calibrationError(s.mean, s.std, target)
		res.History = append(res.History, CalibrationStep{
			Iteration:  it,
			MinRadius:  minR,
			MaxRadius:  maxR,
			Count:      s.count,
			MeanRadius: s.mean,
			StdRadius:  s.std,
			Error:      e,
		})
		if e < bestErr {
			bestErr, bestMin, bestMax = e, minR, maxR
		}
		if e < opts.Tolerance {
			res.MinRadius = minR
			res.MaxRadius = maxR
			res.FinalError = e
			res.Iterations = it + 1
			res.Converged = true
			res.Message = fmt.Sprintf("converged after %d iterations (error %.2f)", it+1, e)
			return res, nil
		}
	}

	res.MinRadius = bestMin
	res.MaxRadius = bestMax
	res.FinalError = bestErr
	res.Iterations = opts.MaxIterations
	res.Message = fmt.Sprintf("iteration budget exhausted, best error %.2f", bestErr)
	return res, nil
}

// calibrationError scores a detection pass: distance of the mean radius
// from the target plus half the spread. The spread term keeps bounds that
// admit wildly mixed radii from scoring well.
func calibrationError(mean, std, target float64) float64 {
	if mean == 0 {
		return math.Inf(1)
	}
	e := std * 0.5
	if target > 0 {
		e += math.Abs(mean - target)
	}
	return e
}

// radiusSample summarizes the radii of one detection pass.
type radiusSample struct {
	count               int
	mean, std, min, max float64
}

// measureRadii detects the reference color with the given config and
// summarizes the resulting radii.
func measureRadii(ctx context.Context, labels *LabelMap, pal palette.Palette, ref int, cfg Config) (radiusSample, error) {
	circles, err := detectColor(ctx, labels, pal, ref, cfg, -1)
	if err != nil {
		return radiusSample{}, err
	}
	if len(circles) == 0 {
		return radiusSample{}, nil
	}
	radii := make([]float64, len(circles))
	for i, c := range circles {
		radii[i] = c.R
	}
	return radiusSample{
		count: len(circles),
		mean:  stat.Mean(radii, nil),
		std:   stat.PopStdDev(radii, nil),
		min:   floats.Min(radii),
		max:   floats.Max(radii),
	}, nil
}

// referenceIndex resolves the calibration reference color: the named
// palette entry, or the darkest non-background entry when name is empty.
func referenceIndex(pal palette.Palette, name string) (int, error) {
	if name != "" {
		i := pal.IndexOf(name)
		if i < 0 {
			return 0, &ConfigurationError{
				Param:  "reference",
				Reason: fmt.Sprintf("color %q not in palette", name),
			}
		}
		return i, nil
	}
	i := pal.Darkest()
	if i < 0 {
		return 0, &ConfigurationError{
			Param:  "reference",
			Reason: "palette has no non-background color to calibrate against",
		}
	}
	return i, nil
}
