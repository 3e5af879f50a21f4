package detect

import (
	"fmt"
	"strings"
)

// Sensitivity identifies a detection sensitivity preset.
type Sensitivity string

const (
	SensitivityStrict  Sensitivity = "strict"
	SensitivityNormal  Sensitivity = "normal"
	SensitivityRelaxed Sensitivity = "relaxed"
)

// sensitivityParams holds the fitter thresholds a preset maps to.
type sensitivityParams struct {
	// VoteFloor is the minimum accumulator votes a Hough peak needs to
	// become a candidate at all.
	VoteFloor int

	// MinCoverage is the circumference support fraction below which a
	// candidate is discarded as spurious.
	MinCoverage float64
}

var sensitivityTable = map[Sensitivity]sensitivityParams{
	SensitivityStrict:  {VoteFloor: 6, MinCoverage: 0.30},
	SensitivityNormal:  {VoteFloor: 4, MinCoverage: 0.20},
	SensitivityRelaxed: {VoteFloor: 3, MinCoverage: 0.12},
}

// NormalizeSensitivity maps arbitrary user input to a canonical preset.
func NormalizeSensitivity(name string) Sensitivity {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "normal", "default":
		return SensitivityNormal
	case "strict", "high":
		return SensitivityStrict
	case "relaxed", "low", "sensitive":
		return SensitivityRelaxed
	default:
		return Sensitivity(name)
	}
}

// SupportedSensitivities returns the presets understood by the fitter.
func SupportedSensitivities() []Sensitivity {
	return []Sensitivity{SensitivityStrict, SensitivityNormal, SensitivityRelaxed}
}

// Config carries all detection tuning parameters. The zero value is not
// usable; start from DefaultConfig.
type Config struct {
	// MinRadius and MaxRadius bound every fitted circle. Explicit values,
	// or derived by the calibrator.
	MinRadius float64
	MaxRadius float64

	// DedupDistance is the center distance below which two detections
	// count as the same physical circle. The global cross-tile pass uses
	// max(DedupDistance, MaxRadius/2).
	DedupDistance float64

	// MinBlobArea drops connected regions smaller than this many pixels.
	MinBlobArea int

	// DefectDepth is the convexity defect depth (px) above which the
	// surrounding contour span counts as occluded.
	DefectDepth float64

	// NonConvexMargin extends the excluded span this many contour points
	// on each side of a defect.
	NonConvexMargin int

	// MinConvexPoints is the minimum number of reliable convex edge
	// points a blob needs to produce a candidate.
	MinConvexPoints int

	// CoverageTol is the max distance (px) from the circumference at
	// which a convex edge point counts as supporting a candidate.
	CoverageTol float64

	// Sensitivity selects vote floor and minimum coverage thresholds.
	Sensitivity Sensitivity

	// MinCoverage overrides the preset's coverage threshold when > 0.
	MinCoverage float64

	// EnhanceEdges applies morphological dilate/erode to each color mask
	// before segmentation, closing pinholes from anti-aliasing.
	EnhanceEdges bool

	// Refine polishes each winning candidate's center and radius with a
	// derivative-free optimizer for sub-pixel accuracy.
	Refine bool

	// RefineSeed seeds the optimizer for reproducible runs.
	RefineSeed int64

	// TileThreshold is the pixel count above which the image is processed
	// in overlapping tiles. DisableTiling forces whole-image processing.
	TileThreshold int
	DisableTiling bool

	// TileSize fixes the tile edge length in pixels; 0 derives it from
	// MaxRadius. Values below 3x the tile overlap are raised to that
	// minimum.
	TileSize int

	// Workers bounds pipeline parallelism; 0 means GOMAXPROCS.
	Workers int
}

// DefaultConfig returns the detection defaults for halftone print scans.
func DefaultConfig() Config {
	return Config{
		MinRadius:       80,
		MaxRadius:       350,
		DedupDistance:   20,
		MinBlobArea:     1000,
		DefectDepth:     5,
		NonConvexMargin: 20,
		MinConvexPoints: 20,
		CoverageTol:     10,
		Sensitivity:     SensitivityNormal,
		Refine:          true,
		TileThreshold:   20_000_000,
	}
}

// Validate checks parameter consistency. All violations are
// ConfigurationErrors: fatal, surfaced immediately.
func (c Config) Validate() error {
	if c.MinRadius <= 0 {
		return &ConfigurationError{Param: "min_radius", Reason: fmt.Sprintf("must be positive, got %g", c.MinRadius)}
	}
	if c.MaxRadius < c.MinRadius {
		return &ConfigurationError{Param: "max_radius", Reason: fmt.Sprintf("%g is below min_radius %g", c.MaxRadius, c.MinRadius)}
	}
	if c.DedupDistance <= 0 {
		return &ConfigurationError{Param: "dedup_distance", Reason: fmt.Sprintf("must be positive, got %g", c.DedupDistance)}
	}
	if c.MinCoverage < 0 || c.MinCoverage > 1 {
		return &ConfigurationError{Param: "min_coverage", Reason: fmt.Sprintf("must be in [0,1], got %g", c.MinCoverage)}
	}
	if c.CoverageTol <= 0 {
		return &ConfigurationError{Param: "coverage_tolerance", Reason: fmt.Sprintf("must be positive, got %g", c.CoverageTol)}
	}
	if _, ok := sensitivityTable[c.Sensitivity]; !ok {
		return &ConfigurationError{
			Param:  "sensitivity",
			Reason: fmt.Sprintf("unknown preset %q (supported: %v)", c.Sensitivity, SupportedSensitivities()),
		}
	}
	if c.TileSize < 0 {
		return &ConfigurationError{Param: "tile_size", Reason: "must not be negative"}
	}
	if c.Workers < 0 {
		return &ConfigurationError{Param: "workers", Reason: "must not be negative"}
	}
	return nil
}

// fitterParams resolves the effective fitter thresholds, letting an
// explicit MinCoverage override the preset.
func (c Config) fitterParams() sensitivityParams {
	p := sensitivityTable[c.Sensitivity]
	if c.MinCoverage > 0 {
		p.MinCoverage = c.MinCoverage
	}
	return p
}
