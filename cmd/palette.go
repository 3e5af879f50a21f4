package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/cwbudde/dotscan/internal/palette"
	"github.com/cwbudde/dotscan/internal/raster"
)

var (
	palColors      int
	palMinPresence float64
)

var paletteCmd = &cobra.Command{
	Use:   "palette <image>",
	Short: "Detect the dominant colors of an image",
	Long: `Clusters the image into its dominant colors and prints the palette
detection would use with --palette auto. Near matches to well-known ink
colors are prefixed with "~".`,
	Args: cobra.ExactArgs(1),
	RunE: runPalette,
}

func init() {
	paletteCmd.Flags().IntVar(&palColors, "colors", 6, "Maximum colors to detect")
	paletteCmd.Flags().Float64Var(&palMinPresence, "min-presence", palette.DefaultDetectOptions().MinPresence, "Minimum pixel share for a color to count")

	rootCmd.AddCommand(paletteCmd)
}

func runPalette(cmd *cobra.Command, args []string) error {
	img, err := raster.Load(args[0])
	if err != nil {
		return fmt.Errorf("failed to load image: %w", err)
	}

	opts := palette.DefaultDetectOptions()
	opts.MaxColors = palColors
	opts.MinPresence = palMinPresence
	pal := palette.Detect(img, opts)

	w := tabwriter.NewWriter(os.Stdout, 0, 8, 2, ' ', 0)
	fmt.Fprintln(w, "#\tNAME\tRGB\t")
	for i, c := range pal {
		name := c.String()
		if i == 0 {
			name += " (background)"
		}
		fmt.Fprintf(w, "%d\t%s\t%d,%d,%d\t\n", i, name, c.R, c.G, c.B)
	}
	return w.Flush()
}
