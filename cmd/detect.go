package main

import (
	"fmt"
	"image"
	"log/slog"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/cwbudde/dotscan/internal/detect"
	"github.com/cwbudde/dotscan/internal/export"
	"github.com/cwbudde/dotscan/internal/extract"
	"github.com/cwbudde/dotscan/internal/palette"
	"github.com/cwbudde/dotscan/internal/raster"
	"github.com/cwbudde/dotscan/internal/runs"
)

var (
	detectOutput     string
	detectFormat     string
	detectPalette    string
	detectNumColors  int
	detectMinRadius  float64
	detectMaxRadius  float64
	detectMinDist    float64
	detectSens       string
	detectEnhance    bool
	detectNoRefine   bool
	detectWorkers    int
	detectChunkSize  string
	detectCalibrate  bool
	detectCalFrom    string
	detectVerify     bool
	detectExtractDir string
	detectMethod     string
	detectTolerance  float64
	detectMaxColors  int
	detectReport     string
	detectRunName    string
	detectNoOrganize bool
	detectNoManifest bool
	detectQuantized  string
)

var detectCmd = &cobra.Command{
	Use:   "detect <image>",
	Short: "Detect circles in an image",
	Long: `Detects every circle in a raster image and reports center, radius,
and color per circle. Results go to stdout (or --output) as JSON or CSV;
--extract additionally writes per-color layer images into an organized
run directory with a manifest and progress trace.`,
	Args: cobra.ExactArgs(1),
	RunE: runDetect,
}

func init() {
	def := detect.DefaultConfig()

	detectCmd.Flags().StringVarP(&detectOutput, "output", "o", "", "Output file path (default: stdout)")
	detectCmd.Flags().StringVarP(&detectFormat, "format", "f", "json", "Output format: json, csv")
	detectCmd.Flags().StringVar(&detectPalette, "palette", "cmyk", "Palette: auto, a preset (cmyk, rgb, grayscale), or \"R,G,B;R,G,B\"")
	detectCmd.Flags().IntVar(&detectNumColors, "num-colors", 6, "Colors to detect with --palette auto")
	detectCmd.Flags().Float64Var(&detectMinRadius, "min-radius", def.MinRadius, "Minimum circle radius in pixels")
	detectCmd.Flags().Float64Var(&detectMaxRadius, "max-radius", def.MaxRadius, "Maximum circle radius in pixels")
	detectCmd.Flags().Float64Var(&detectMinDist, "min-distance", def.DedupDistance, "Minimum distance between circle centers")
	detectCmd.Flags().StringVar(&detectSens, "sensitivity", "normal", "Detection sensitivity: strict, normal, relaxed")
	detectCmd.Flags().BoolVar(&detectEnhance, "enhance-edges", false, "Morphological enhancement for fragmented regions")
	detectCmd.Flags().BoolVar(&detectNoRefine, "no-refine", false, "Skip mayfly refinement of fitted circles")
	detectCmd.Flags().IntVar(&detectWorkers, "workers", 0, "Tile workers (0 = all cores)")
	detectCmd.Flags().StringVar(&detectChunkSize, "chunk-size", "auto", "Tile size: auto, off, or a pixel count")
	detectCmd.Flags().BoolVar(&detectCalibrate, "calibrate", false, "Auto-calibrate radius bounds from the darkest color")
	detectCmd.Flags().StringVar(&detectCalFrom, "calibrate-from", "", "Calibrate from a specific color (e.g. black)")
	detectCmd.Flags().BoolVar(&detectVerify, "verify", false, "Verify reference-color detection before the full pass")
	detectCmd.Flags().StringVarP(&detectExtractDir, "extract", "e", "", "Extract per-color layer images into this directory")
	detectCmd.Flags().StringVar(&detectMethod, "extract-method", "", "Resample circle colors: area, circumference, band, canny, exposed")
	detectCmd.Flags().Float64Var(&detectTolerance, "color-tolerance", extract.DefaultGroupTolerance, "Color grouping tolerance for layers")
	detectCmd.Flags().IntVar(&detectMaxColors, "max-colors", 0, "Cap layer color groups with k-means (0 = no cap)")
	detectCmd.Flags().StringVar(&detectReport, "report", "", "Write a per-color radius histogram PNG")
	detectCmd.Flags().StringVar(&detectRunName, "run-name", "", "Custom name for the run directory")
	detectCmd.Flags().BoolVar(&detectNoOrganize, "no-organize", false, "Write run artifacts directly into the --extract directory")
	detectCmd.Flags().BoolVar(&detectNoManifest, "no-manifest", false, "Skip manifest.json generation")
	detectCmd.Flags().StringVar(&detectQuantized, "quantize-output", "", "Save the quantized image (debug)")

	rootCmd.AddCommand(detectCmd)
}

func runDetect(cmd *cobra.Command, args []string) error {
	source := args[0]

	format := strings.ToLower(detectFormat)
	if format != "json" && format != "csv" {
		return fmt.Errorf("unknown format: %s (use json or csv)", detectFormat)
	}
	if detectMethod != "" {
		if _, err := extract.NormalizeMethod(detectMethod); err != nil {
			return err
		}
	}

	img, err := raster.Load(source)
	if err != nil {
		return fmt.Errorf("failed to load image: %w", err)
	}
	slog.Info("Loaded image", "path", source, "width", img.Bounds().Dx(), "height", img.Bounds().Dy())

	pal, err := resolveDetectPalette(img)
	if err != nil {
		return err
	}
	slog.Info("Using palette", "colors", pal.Names())

	cfg, err := detectConfigFromFlags()
	if err != nil {
		return err
	}

	ctx := cmd.Context()

	// Run organization starts before detection so calibration lands in
	// the trace.
	var (
		runDir string
		trace  *runs.TraceWriter
	)
	if detectExtractDir != "" {
		runDir, err = runs.CreateDir(detectExtractDir, detectRunName, !detectNoOrganize)
		if err != nil {
			return fmt.Errorf("failed to create run directory: %w", err)
		}
		slog.Info("Writing run artifacts", "dir", runDir)

		trace, err = runs.NewTraceWriter(runDir)
		if err != nil {
			return fmt.Errorf("failed to create trace: %w", err)
		}
		defer trace.Close()
	}

	if detectCalibrate || detectCalFrom != "" {
		minR, maxR, err := detect.Calibrate(ctx, img, pal, detectCalFrom, cfg)
		if err != nil {
			return fmt.Errorf("calibration failed: %w", err)
		}
		cfg.MinRadius, cfg.MaxRadius = minR, maxR
		slog.Info("Calibrated radius bounds", "min_radius", minR, "max_radius", maxR)
		if trace != nil {
			trace.Write(runs.CalibrationRound(1, fmt.Sprintf("radius bounds %.1f..%.1f", minR, maxR)))
		}
	}

	if detectVerify {
		report, err := detect.VerifyField(ctx, img, pal, detectCalFrom, cfg)
		if err != nil {
			return fmt.Errorf("verification failed: %w", err)
		}
		for _, warning := range report.Warnings {
			slog.Warn("Verification warning", "color", report.Color, "warning", warning)
		}
		if report.Passed {
			slog.Info("Verification passed",
				"color", report.Color,
				"circles", report.Count,
				"mean_radius", report.RadiusMean)
		}
	}

	if detectQuantized != "" {
		if err := saveQuantized(img, pal, detectQuantized); err != nil {
			return fmt.Errorf("failed to save quantized image: %w", err)
		}
		slog.Info("Saved quantized image", "path", detectQuantized)
	}

	start := time.Now()
	circles, err := detect.Run(ctx, img, pal, cfg)
	if err != nil {
		return err
	}
	slog.Info("Detection complete", "circles", len(circles), "elapsed", time.Since(start))

	if detectMethod != "" {
		circles, err = extract.Extract(img, circles, detectMethod)
		if err != nil {
			return err
		}
		slog.Info("Resampled circle colors", "method", detectMethod)
	}

	if trace != nil {
		counts := runs.CountByColor(circles)
		names := make([]string, 0, len(counts))
		for name := range counts {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			trace.Write(runs.ColorDone(name, counts[name]))
		}
	}

	var outputFiles []string
	if runDir != "" {
		groups := extract.GroupCircles(circles, detectTolerance, detectMaxColors)
		layers, err := extract.WriteColorLayers(runDir, img, groups)
		if err != nil {
			return fmt.Errorf("failed to write color layers: %w", err)
		}
		outputFiles = append(outputFiles, layers...)
		fmt.Fprintf(os.Stderr, "Extracted %d color layer(s) to %s\n", len(layers), runDir)

		if !detectNoManifest {
			settings := runs.Settings{
				Detect:         cfg,
				Palette:        pal.Names(),
				AutoPalette:    strings.EqualFold(detectPalette, "auto"),
				Calibrate:      detectCalibrate || detectCalFrom != "",
				Verify:         detectVerify,
				ExtractMethod:  detectMethod,
				GroupTolerance: detectTolerance,
				MaxColors:      detectMaxColors,
				Format:         format,
				ChunkSize:      detectChunkSize,
			}
			manifest, err := runs.NewManifest(version, source, settings, circles, outputFiles)
			if err != nil {
				return fmt.Errorf("failed to build manifest: %w", err)
			}
			if err := runs.WriteManifest(runDir, manifest); err != nil {
				return fmt.Errorf("failed to write manifest: %w", err)
			}
		}
	}

	if detectReport != "" {
		if err := export.WriteReport(detectReport, circles); err != nil {
			return fmt.Errorf("failed to write report: %w", err)
		}
		slog.Info("Wrote radius report", "path", detectReport)
	}

	if err := emitResults(circles, format); err != nil {
		return err
	}

	fmt.Fprintf(os.Stderr, "Detected %d circle(s)\n", len(circles))
	return nil
}

// resolveDetectPalette picks the quantization palette: "auto" clusters
// the image itself, anything else is a preset name or an explicit spec.
func resolveDetectPalette(img *image.NRGBA) (palette.Palette, error) {
	if strings.EqualFold(detectPalette, "auto") {
		opts := palette.DefaultDetectOptions()
		opts.MaxColors = detectNumColors
		return palette.Detect(img, opts), nil
	}
	return palette.Parse(detectPalette)
}

func detectConfigFromFlags() (detect.Config, error) {
	cfg := detect.DefaultConfig()
	cfg.MinRadius = detectMinRadius
	cfg.MaxRadius = detectMaxRadius
	cfg.DedupDistance = detectMinDist
	cfg.Sensitivity = detect.NormalizeSensitivity(detectSens)
	cfg.EnhanceEdges = detectEnhance
	cfg.Refine = !detectNoRefine
	cfg.Workers = detectWorkers
	if err := applyChunkSize(&cfg, detectChunkSize); err != nil {
		return cfg, err
	}
	return cfg, cfg.Validate()
}

// applyChunkSize maps --chunk-size onto the tiling config: "auto" keeps
// the pixel-count threshold, "off" or "0" disables tiling, and a number
// forces that tile size.
func applyChunkSize(cfg *detect.Config, spec string) error {
	switch strings.ToLower(strings.TrimSpace(spec)) {
	case "", "auto":
		return nil
	case "off", "0":
		cfg.DisableTiling = true
		return nil
	}
	n, err := strconv.Atoi(strings.TrimSpace(spec))
	if err != nil || n <= 0 {
		return fmt.Errorf("invalid chunk size %q (use auto, off, or a pixel count)", spec)
	}
	cfg.TileSize = n
	return nil
}

// emitResults writes the circle list to --output or stdout.
func emitResults(circles []detect.Circle, format string) error {
	if detectOutput == "" {
		if format == "csv" {
			return export.EncodeCSV(os.Stdout, circles)
		}
		return export.EncodeJSON(os.Stdout, circles)
	}

	var err error
	if format == "csv" {
		err = export.WriteCSV(detectOutput, circles)
	} else {
		err = export.WriteJSON(detectOutput, circles)
	}
	if err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	fmt.Fprintf(os.Stderr, "Wrote %s\n", detectOutput)
	return nil
}

// saveQuantized renders the label map back through the palette, showing
// what the detector actually sees.
func saveQuantized(img *image.NRGBA, pal palette.Palette, path string) error {
	labels, err := detect.Quantize(img, pal)
	if err != nil {
		return err
	}
	out := image.NewNRGBA(image.Rect(0, 0, labels.W, labels.H))
	for y := 0; y < labels.H; y++ {
		for x := 0; x < labels.W; x++ {
			c := pal[labels.At(x, y)]
			i := out.PixOffset(x, y)
			out.Pix[i+0] = c.R
			out.Pix[i+1] = c.G
			out.Pix[i+2] = c.B
			out.Pix[i+3] = 255
		}
	}
	return raster.Save(path, out)
}
