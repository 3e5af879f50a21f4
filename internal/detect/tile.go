package detect

import (
	"fmt"
	"image"
	"math"
)

// Auto-sized tiles aim for about this many pixels each.
const tileTargetPixels = 4_000_000

// Tile is one overlapping crop of a large input, in image coordinates.
type Tile struct {
	Index int
	Rect  image.Rectangle
}

// tileOverlap is the shared border between adjacent tiles. Twice the
// maximum radius guarantees every circle crossing a tile boundary lies
// fully inside at least one tile.
func tileOverlap(cfg Config) int {
	return 2 * int(math.Ceil(cfg.MaxRadius))
}

func shouldTile(w, h int, cfg Config) bool {
	if cfg.DisableTiling || cfg.TileThreshold <= 0 {
		return false
	}
	return w*h > cfg.TileThreshold
}

// autoTileSize picks a tile edge length from the radius bounds: large
// enough to hold a grid of the biggest circles, near the target pixel
// count, and never beyond the image itself.
func autoTileSize(w, h int, cfg Config) int {
	size := 50 * int(math.Ceil(cfg.MaxRadius))
	if size < 2000 {
		size = 2000
	}
	if t := int(math.Sqrt(tileTargetPixels)); t > size {
		size = t
	}
	if size > w {
		size = w
	}
	if size > h {
		size = h
	}
	return size
}

// resolveTileSize applies the configured tile size, or derives one, and
// enforces the minimum of three overlaps so the unique interior of each
// tile stays larger than its shared borders.
func resolveTileSize(w, h int, cfg Config) int {
	size := cfg.TileSize
	if size <= 0 {
		size = autoTileSize(w, h, cfg)
	}
	if m := 3 * tileOverlap(cfg); size < m {
		size = m
	}
	return size
}

// generateTiles lays out an overlapping tile grid covering the image. Tiles
// start at multiples of size-overlap and are clipped to the image, so rows
// and columns near the far edges can be narrow.
func generateTiles(w, h, size, overlap int) ([]Tile, error) {
	if size <= overlap {
		return nil, &ConfigurationError{
			Param:  "tile_size",
			Reason: fmt.Sprintf("size %d must exceed overlap %d", size, overlap),
		}
	}
	step := size - overlap

	var tiles []Tile
	for y := 0; y < h; y += step {
		for x := 0; x < w; x += step {
			x2 := x + size
			if x2 > w {
				x2 = w
			}
			y2 := y + size
			if y2 > h {
				y2 = h
			}
			tiles = append(tiles, Tile{Index: len(tiles), Rect: image.Rect(x, y, x2, y2)})
		}
	}
	return tiles, nil
}
