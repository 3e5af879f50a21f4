package main

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/cwbudde/dotscan/internal/detect"
	"github.com/cwbudde/dotscan/internal/palette"
	"github.com/cwbudde/dotscan/internal/raster"
)

var (
	calPalette   string
	calNumColors int
	calReference string
	calSens      string
	calMin       float64
	calMax       float64
	calTolerance float64
	calMaxIter   int
	calTarget    float64
	calJSON      bool
)

var calibrateCmd = &cobra.Command{
	Use:   "calibrate <image>",
	Short: "Find radius bounds for an image",
	Long: `Runs iterative calibration against a reference color (the darkest
palette color unless --reference is given) and prints the radius bounds
to use with detect --min-radius / --max-radius.`,
	Args: cobra.ExactArgs(1),
	RunE: runCalibrate,
}

func init() {
	def := detect.DefaultCalibrateOptions()

	calibrateCmd.Flags().StringVar(&calPalette, "palette", "cmyk", "Palette: auto, a preset, or \"R,G,B;R,G,B\"")
	calibrateCmd.Flags().IntVar(&calNumColors, "num-colors", 6, "Colors to detect with --palette auto")
	calibrateCmd.Flags().StringVar(&calReference, "reference", "", "Reference color name (default: darkest)")
	calibrateCmd.Flags().StringVar(&calSens, "sensitivity", "normal", "Detection sensitivity: strict, normal, relaxed")
	calibrateCmd.Flags().Float64Var(&calMin, "initial-min", def.InitialMin, "Starting minimum radius")
	calibrateCmd.Flags().Float64Var(&calMax, "initial-max", def.InitialMax, "Starting maximum radius")
	calibrateCmd.Flags().Float64Var(&calTolerance, "tolerance", def.Tolerance, "Radius error at which to stop")
	calibrateCmd.Flags().IntVar(&calMaxIter, "max-iterations", def.MaxIterations, "Iteration budget")
	calibrateCmd.Flags().Float64Var(&calTarget, "target-mean", 0, "Known dot radius to anchor the error (0 = first-pass mean)")
	calibrateCmd.Flags().BoolVar(&calJSON, "json", false, "Print the full calibration result as JSON")

	rootCmd.AddCommand(calibrateCmd)
}

func runCalibrate(cmd *cobra.Command, args []string) error {
	source := args[0]

	img, err := raster.Load(source)
	if err != nil {
		return fmt.Errorf("failed to load image: %w", err)
	}

	var pal palette.Palette
	if strings.EqualFold(calPalette, "auto") {
		opts := palette.DefaultDetectOptions()
		opts.MaxColors = calNumColors
		pal = palette.Detect(img, opts)
	} else {
		pal, err = palette.Parse(calPalette)
		if err != nil {
			return err
		}
	}
	slog.Info("Calibrating", "path", source, "palette", pal.Names(), "reference", calReference)

	cfg := detect.DefaultConfig()
	cfg.Sensitivity = detect.NormalizeSensitivity(calSens)

	opts := detect.CalibrateOptions{
		InitialMin:    calMin,
		InitialMax:    calMax,
		Tolerance:     calTolerance,
		MaxIterations: calMaxIter,
		TargetMean:    calTarget,
	}

	result, err := detect.CalibrateIterative(cmd.Context(), img, pal, calReference, cfg, opts)
	if err != nil {
		return fmt.Errorf("calibration failed: %w", err)
	}

	if calJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(result)
	}

	for _, step := range result.History {
		fmt.Printf("round %d: bounds %.1f..%.1f  detected %d  mean radius %.1f  error %.2f\n",
			step.Iteration, step.MinRadius, step.MaxRadius, step.Count, step.MeanRadius, step.Error)
	}
	fmt.Printf("\n%s\n", result.Message)
	fmt.Printf("Optimal bounds: --min-radius %.1f --max-radius %.1f\n", result.MinRadius, result.MaxRadius)
	return nil
}
