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

// FieldReport summarizes detection health for one reference color. The
// reference dots act as ground truth for the whole field: when their
// detection looks wrong, the configured bounds are usually off for every
// color.
type FieldReport struct {
	Color       string   `json:"color"`
	Count       int      `json:"circles_detected"`
	Density     float64  `json:"density_per_megapixel"`
	CoveragePct float64  `json:"coverage_percent"`
	RadiusMean  float64  `json:"radius_mean"`
	RadiusStd   float64  `json:"radius_std"`
	RadiusMin   float64  `json:"radius_min"`
	RadiusMax   float64  `json:"radius_max"`
	Warnings    []string `json:"warnings"`
	Passed      bool     `json:"passed"`
}

// VerifyField detects the reference color with the configured bounds and
// reports count, density, ink coverage, and radius statistics, plus
// warnings when the numbers point at misconfiguration. Passed is true only
// with zero warnings.
func VerifyField(ctx context.Context, img *image.NRGBA, pal palette.Palette, refName string, cfg Config) (*FieldReport, error) {
	ref, err := referenceIndex(pal, refName)
	if err != nil {
		return nil, err
	}
	cfg.Sensitivity = NormalizeSensitivity(string(cfg.Sensitivity))
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	labels, err := Quantize(img, pal)
	if err != nil {
		return nil, err
	}
	circles, err := detectColor(ctx, labels, pal, ref, cfg, -1)
	if err != nil {
		return nil, err
	}

	rep := &FieldReport{
		Color:    pal[ref].String(),
		Count:    len(circles),
		Warnings: []string{},
	}
	if len(circles) == 0 {
		rep.Warnings = append(rep.Warnings, fmt.Sprintf(
			"no %s circles detected; check the radius bounds or confirm the image contains halftone dots",
			rep.Color))
		return rep, nil
	}

	pixels := float64(img.Bounds().Dx() * img.Bounds().Dy())
	radii := make([]float64, len(circles))
	area := 0.0
	for i, c := range circles {
		radii[i] = c.R
		area += math.Pi * c.R * c.R
	}
	rep.Density = float64(len(circles)) / (pixels / 1e6)
	rep.CoveragePct = area / pixels * 100
	rep.RadiusMean = stat.Mean(radii, nil)
	rep.RadiusStd = stat.PopStdDev(radii, nil)
	rep.RadiusMin = floats.Min(radii)
	rep.RadiusMax = floats.Max(radii)

	rep.Warnings = fieldWarnings(rep, pixels, cfg)
	rep.Passed = len(rep.Warnings) == 0
	return rep, nil
}

// fieldWarnings flags detection results that suggest misconfigured
// bounds. Count expectations assume typical halftone spacing of one dot
// per 50 to 200 pixels in each direction.
func fieldWarnings(rep *FieldReport, pixels float64, cfg Config) []string {
	warnings := []string{}

	expectedMin := pixels / (200 * 200)
	if float64(rep.Count) < expectedMin*0.5 {
		warnings = append(warnings, fmt.Sprintf(
			"only %d circles detected, at least %.0f expected for this field size; consider widening the radius bounds",
			rep.Count, expectedMin))
	}

	if rep.RadiusMean > 0 {
		margin := (cfg.MaxRadius - cfg.MinRadius) * 0.15
		if rep.RadiusMean < cfg.MinRadius+margin {
			warnings = append(warnings, fmt.Sprintf(
				"mean radius %.1f sits near min_radius %.0f, smaller dots may be cut off",
				rep.RadiusMean, cfg.MinRadius))
		}
		if rep.RadiusMean > cfg.MaxRadius-margin {
			warnings = append(warnings, fmt.Sprintf(
				"mean radius %.1f sits near max_radius %.0f, larger dots may be cut off",
				rep.RadiusMean, cfg.MaxRadius))
		}
	}

	if rep.RadiusMean > 0 && rep.RadiusStd > 0 {
		if cv := rep.RadiusStd / rep.RadiusMean; cv > 0.4 {
			warnings = append(warnings, fmt.Sprintf(
				"radius variation is high (cv %.0f%%), detection may be inconsistent",
				cv*100))
		}
	}

	if rep.CoveragePct < 0.1 {
		warnings = append(warnings, fmt.Sprintf(
			"ink coverage is only %.2f%%, many dots may be going undetected",
			rep.CoveragePct))
	}

	return warnings
}
