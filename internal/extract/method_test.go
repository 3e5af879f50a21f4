package extract

import (
	"errors"
	"strings"
	"testing"

	"github.com/cwbudde/dotscan/internal/detect"
	"github.com/cwbudde/dotscan/internal/palette"
	"github.com/cwbudde/dotscan/internal/raster"
)

func TestNormalizeMethod(t *testing.T) {
	cases := []struct {
		name string
		in   string
		want SampleMethod
	}{
		{"empty defaults to area", "", MethodArea},
		{"area", "area", MethodArea},
		{"folds case", "AREA", MethodArea},
		{"trims space", " canny ", MethodCanny},
		{"circumference", "circumference", MethodCircumference},
		{"band", "band", MethodBand},
		{"exposed", "exposed", MethodExposed},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := NormalizeMethod(tc.in)
			if err != nil {
				t.Fatalf("NormalizeMethod(%q): %v", tc.in, err)
			}
			if got != tc.want {
				t.Errorf("NormalizeMethod(%q) = %q, want %q", tc.in, got, tc.want)
			}
		})
	}
}

func TestNormalizeMethodUnknown(t *testing.T) {
	_, err := NormalizeMethod("sobel")
	if !errors.Is(err, detect.ErrConfiguration) {
		t.Fatalf("unknown method error = %v, want a configuration error", err)
	}
	// The message names the supported methods.
	for _, m := range SupportedMethods() {
		if !strings.Contains(err.Error(), string(m)) {
			t.Errorf("error %q does not mention %q", err, m)
		}
	}
}

func TestSupportedMethodsOrder(t *testing.T) {
	want := []SampleMethod{MethodArea, MethodCircumference, MethodBand, MethodCanny, MethodExposed}
	got := SupportedMethods()
	if len(got) != len(want) {
		t.Fatalf("SupportedMethods() = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("SupportedMethods()[%d] = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestSamplerForMethod(t *testing.T) {
	for _, m := range SupportedMethods() {
		if SamplerForMethod(m) == nil {
			t.Errorf("no sampler for %q", m)
		}
	}
	if SamplerForMethod(SampleMethod("bogus")) != nil {
		t.Error("sampler returned for an unknown method")
	}
}

func TestExtractAppliesColors(t *testing.T) {
	img := dotImage(150, 80,
		raster.CircleSpec{X: 40, Y: 40, R: 15, Color: inkMagenta},
		raster.CircleSpec{X: 110, Y: 40, R: 15, Color: inkYellow},
	)
	circles := []detect.Circle{
		{X: 40, Y: 40, R: 14, Color: palette.Color{Name: "black"}},
		{X: 110, Y: 40, R: 14, Color: palette.Color{Name: "black"}},
	}

	got, err := Extract(img, circles, "area")
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("Extract returned %d circles, want 2", len(got))
	}
	if got[0].Color != wantMagenta {
		t.Errorf("first circle color = %+v, want %+v", got[0].Color, wantMagenta)
	}
	if (got[1].Color != palette.Color{R: 238, G: 206, B: 94}) {
		t.Errorf("second circle color = %+v, want yellow", got[1].Color)
	}
	if got[0].X != 40 || got[1].X != 110 {
		t.Errorf("circle order changed: %+v", got)
	}
	// The input list keeps its colors.
	if circles[0].Color.Name != "black" {
		t.Errorf("input slice mutated: %+v", circles[0])
	}
}

func TestExtractBadMethod(t *testing.T) {
	img := dotImage(10, 10)
	if _, err := Extract(img, nil, "hough"); !errors.Is(err, detect.ErrConfiguration) {
		t.Errorf("Extract with bad method = %v, want a configuration error", err)
	}
}
