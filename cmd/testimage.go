package main

import (
	"fmt"
	"image/color"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/cwbudde/dotscan/internal/detect"
	"github.com/cwbudde/dotscan/internal/export"
	"github.com/cwbudde/dotscan/internal/palette"
	"github.com/cwbudde/dotscan/internal/raster"
)

var (
	testWidth   int
	testHeight  int
	testCols    int
	testRows    int
	testRadius  float64
	testRandom  int
	testMinR    float64
	testMaxR    float64
	testGap     float64
	testSeed    int64
	testPalette string
	testTruth   string
)

var testimageCmd = &cobra.Command{
	Use:   "testimage <output>",
	Short: "Generate a synthetic dot image",
	Long: `Writes a synthetic image of filled circles, either on a grid or
randomly placed with --random. --truth records the placed circles in the
same JSON schema detect emits, for comparing detection against known
positions.`,
	Args: cobra.ExactArgs(1),
	RunE: runTestimage,
}

func init() {
	testimageCmd.Flags().IntVar(&testWidth, "width", 1024, "Canvas width in pixels")
	testimageCmd.Flags().IntVar(&testHeight, "height", 1024, "Canvas height in pixels")
	testimageCmd.Flags().IntVar(&testCols, "cols", 8, "Grid columns")
	testimageCmd.Flags().IntVar(&testRows, "rows", 8, "Grid rows")
	testimageCmd.Flags().Float64Var(&testRadius, "radius", 30, "Grid dot radius")
	testimageCmd.Flags().IntVar(&testRandom, "random", 0, "Place this many random dots instead of a grid")
	testimageCmd.Flags().Float64Var(&testMinR, "min-radius", 20, "Random mode: minimum radius")
	testimageCmd.Flags().Float64Var(&testMaxR, "max-radius", 60, "Random mode: maximum radius")
	testimageCmd.Flags().Float64Var(&testGap, "gap", 4, "Random mode: minimum gap between dots")
	testimageCmd.Flags().Int64Var(&testSeed, "seed", 42, "Random mode: placement seed")
	testimageCmd.Flags().StringVar(&testPalette, "palette", "cmyk", "Dot colors: a preset or \"R,G,B;R,G,B\"")
	testimageCmd.Flags().StringVar(&testTruth, "truth", "", "Write ground-truth circles to this JSON file")

	rootCmd.AddCommand(testimageCmd)
}

func runTestimage(cmd *cobra.Command, args []string) error {
	output := args[0]

	pal, err := palette.Parse(testPalette)
	if err != nil {
		return err
	}
	inks := make([]color.NRGBA, 0, len(pal)-1)
	for _, c := range pal[1:] {
		inks = append(inks, color.NRGBA{R: c.R, G: c.G, B: c.B, A: 255})
	}
	if len(inks) == 0 {
		return fmt.Errorf("palette %q has no ink colors", testPalette)
	}

	img := raster.NewCanvas(testWidth, testHeight, color.NRGBA{R: 255, G: 255, B: 255, A: 255})

	var specs []raster.CircleSpec
	if testRandom > 0 {
		specs = raster.PlaceRandom(img, testRandom, testMinR, testMaxR, testGap, inks, testSeed)
		if len(specs) < testRandom {
			slog.Warn("Canvas too crowded", "requested", testRandom, "placed", len(specs))
		}
	} else {
		specs = raster.PlaceGrid(img, testCols, testRows, testRadius, inks)
	}

	if err := raster.Save(output, img); err != nil {
		return err
	}
	fmt.Printf("Wrote %s with %d circle(s)\n", output, len(specs))

	if testTruth != "" {
		truth := make([]detect.Circle, 0, len(specs))
		for _, s := range specs {
			truth = append(truth, detect.Circle{
				X:          s.X,
				Y:          s.Y,
				R:          s.R,
				Color:      truthColor(pal, s.Color),
				Coverage:   1,
				Confidence: 100,
				Tile:       -1,
			})
		}
		if err := export.WriteJSON(testTruth, truth); err != nil {
			return fmt.Errorf("failed to write ground truth: %w", err)
		}
		fmt.Printf("Wrote ground truth to %s\n", testTruth)
	}
	return nil
}

// truthColor maps a placed ink back to its palette entry so the ground
// truth carries color names.
func truthColor(pal palette.Palette, c color.NRGBA) palette.Color {
	for _, p := range pal {
		if p.R == c.R && p.G == c.G && p.B == c.B {
			return p
		}
	}
	return palette.Color{R: c.R, G: c.G, B: c.B}
}
