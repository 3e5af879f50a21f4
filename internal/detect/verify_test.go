package detect

import (
	"context"
	"errors"
	"math"
	"strings"
	"testing"

	"github.com/cwbudde/dotscan/internal/palette"
	"github.com/cwbudde/dotscan/internal/raster"
)

func TestVerifyFieldHealthy(t *testing.T) {
	pal, _ := palette.Preset("cmyk")
	img := raster.NewCanvas(400, 400, white)
	raster.PlaceGrid(img, 4, 4, 30, blackInk)

	rep, err := VerifyField(context.Background(), img, pal, "", gridConfig())
	if err != nil {
		t.Fatalf("VerifyField: %v", err)
	}
	if !rep.Passed {
		t.Errorf("healthy field failed verification: %v", rep.Warnings)
	}
	if len(rep.Warnings) != 0 {
		t.Errorf("warnings = %v, want none", rep.Warnings)
	}
	if rep.Color != "black" || rep.Count != 16 {
		t.Errorf("report %s/%d, want black/16", rep.Color, rep.Count)
	}
	if math.Abs(rep.Density-100) > 1e-6 {
		t.Errorf("density = %g per megapixel, want 100", rep.Density)
	}
	if rep.RadiusMean < 27 || rep.RadiusMean > 31 {
		t.Errorf("mean radius = %g, want near 30", rep.RadiusMean)
	}
	if rep.RadiusMin > rep.RadiusMean || rep.RadiusMax < rep.RadiusMean {
		t.Errorf("radius stats inconsistent: min %g, mean %g, max %g",
			rep.RadiusMin, rep.RadiusMean, rep.RadiusMax)
	}
	if rep.CoveragePct < 20 || rep.CoveragePct > 35 {
		t.Errorf("coverage = %g%%, want about 27%%", rep.CoveragePct)
	}
}

func TestVerifyFieldEmpty(t *testing.T) {
	pal, _ := palette.Preset("cmyk")
	img := raster.NewCanvas(200, 200, white)

	rep, err := VerifyField(context.Background(), img, pal, "", gridConfig())
	if err != nil {
		t.Fatalf("VerifyField: %v", err)
	}
	if rep.Passed {
		t.Error("empty field passed verification")
	}
	if rep.Count != 0 || rep.Density != 0 {
		t.Errorf("count %d, density %g on an empty field", rep.Count, rep.Density)
	}
	if len(rep.Warnings) != 1 || !strings.Contains(rep.Warnings[0], "no black circles") {
		t.Errorf("warnings = %v", rep.Warnings)
	}
}

func TestVerifyFieldWarnsNearBound(t *testing.T) {
	pal, _ := palette.Preset("cmyk")
	img := raster.NewCanvas(400, 400, white)
	raster.PlaceGrid(img, 4, 4, 30, blackInk)

	cfg := gridConfig()
	cfg.MinRadius = 28
	cfg.MaxRadius = 60

	rep, err := VerifyField(context.Background(), img, pal, "", cfg)
	if err != nil {
		t.Fatalf("VerifyField: %v", err)
	}
	if rep.Passed {
		t.Error("field with dots at the lower bound passed")
	}
	found := false
	for _, w := range rep.Warnings {
		if strings.Contains(w, "near min_radius") {
			found = true
		}
	}
	if !found {
		t.Errorf("warnings = %v, want one about min_radius", rep.Warnings)
	}
}

func TestVerifyFieldWarnsSparse(t *testing.T) {
	pal, _ := palette.Preset("cmyk")
	img := raster.NewCanvas(2000, 2000, white)
	raster.FillCircle(img, 1000, 1000, 30, blackInk[0])

	rep, err := VerifyField(context.Background(), img, pal, "", gridConfig())
	if err != nil {
		t.Fatalf("VerifyField: %v", err)
	}
	if rep.Passed {
		t.Error("near-empty field passed")
	}
	var sparse, thin bool
	for _, w := range rep.Warnings {
		if strings.Contains(w, "expected for this field size") {
			sparse = true
		}
		if strings.Contains(w, "ink coverage") {
			thin = true
		}
	}
	if !sparse || !thin {
		t.Errorf("warnings = %v, want low count and low coverage flagged", rep.Warnings)
	}
}

func TestVerifyFieldReferenceError(t *testing.T) {
	img := raster.NewCanvas(50, 50, white)
	bgOnly := palette.Palette{{Name: "white", R: 255, G: 255, B: 255}}

	if _, err := VerifyField(context.Background(), img, bgOnly, "", gridConfig()); !errors.Is(err, ErrConfiguration) {
		t.Errorf("err = %v, want configuration error", err)
	}
}
