package extract

import (
	"fmt"
	"image"
	"image/color"
	"os"
	"path/filepath"
	"strings"

	"github.com/cwbudde/dotscan/internal/palette"
	"github.com/cwbudde/dotscan/internal/raster"
)

// WriteColorLayers renders one PNG per color group into dir: the group's
// circles drawn filled in the group color over transparency, on a canvas
// matching the source bounds. Files are named after the group color
// ("magenta.png") when it matches a known reference, by RGB triplet
// otherwise; colliding names get a numeric suffix. Returns the written
// file names in group order.
func WriteColorLayers(dir string, img image.Image, groups []Group) ([]string, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create layer directory %s: %w", dir, err)
	}

	b := img.Bounds()
	names := make([]string, 0, len(groups))
	used := make(map[string]int)
	for _, g := range groups {
		layer := image.NewNRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
		ink := color.NRGBA{R: g.Color.R, G: g.Color.G, B: g.Color.B, A: 255}
		for _, c := range g.Circles {
			raster.FillCircle(layer, c.X-float64(b.Min.X), c.Y-float64(b.Min.Y), c.R, ink)
		}

		name := layerFileName(g.Color, used)
		if err := raster.Save(filepath.Join(dir, name), layer); err != nil {
			return nil, err
		}
		names = append(names, name)
	}
	return names, nil
}

// layerFileName derives a unique file name for a group color.
func layerFileName(c palette.Color, used map[string]int) string {
	base := strings.TrimPrefix(c.Name, "~")
	if base == "" {
		if name, ok := palette.MatchName(c); ok {
			base = strings.TrimPrefix(name, "~")
		} else {
			base = fmt.Sprintf("color_%03d_%03d_%03d", c.R, c.G, c.B)
		}
	}
	used[base]++
	if n := used[base]; n > 1 {
		return fmt.Sprintf("%s_%d.png", base, n)
	}
	return base + ".png"
}
