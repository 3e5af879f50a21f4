// Package detect finds overlapping circles in quantized raster images.
//
// The pipeline quantizes the input to a reference palette, isolates each
// color into connected blobs, strips the occluded spans off every blob
// contour, fits circles to the surviving convex arcs with a circular Hough
// transform, and collapses duplicate detections spatially. Inputs above a
// pixel threshold are processed as overlapping tiles so memory stays
// bounded on scanner-sized images.
package detect

import (
	"context"
	"image"
	"log/slog"
	"runtime"
	"sort"
	"sync"

	"github.com/cwbudde/dotscan/internal/palette"
	"github.com/cwbudde/dotscan/internal/raster"
)

// Run detects all circles in img against pal. The first palette entry is
// treated as background and never searched. Results are ordered by palette
// position, then top to bottom, left to right.
func Run(ctx context.Context, img *image.NRGBA, pal palette.Palette, cfg Config) ([]Circle, error) {
	cfg.Sensitivity = NormalizeSensitivity(string(cfg.Sensitivity))
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if len(pal) == 0 {
		return nil, &ConfigurationError{Param: "palette", Reason: "must not be empty"}
	}

	w, h := img.Bounds().Dx(), img.Bounds().Dy()
	if !shouldTile(w, h, cfg) {
		circles, err := detectRegion(ctx, img, pal, cfg, -1)
		if err != nil {
			return nil, err
		}
		sortCircles(circles, pal)
		return circles, nil
	}

	size := resolveTileSize(w, h, cfg)
	overlap := tileOverlap(cfg)
	tiles, err := generateTiles(w, h, size, overlap)
	if err != nil {
		return nil, err
	}
	if len(tiles) == 1 {
		circles, err := detectRegion(ctx, img, pal, cfg, -1)
		if err != nil {
			return nil, err
		}
		sortCircles(circles, pal)
		return circles, nil
	}

	workers := cfg.Workers
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	if workers > len(tiles) {
		workers = len(tiles)
	}
	slog.Info("processing tiled",
		"width", w, "height", h,
		"tiles", len(tiles), "tile_size", size, "overlap", overlap,
		"workers", workers)

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	results := make([][]Circle, len(tiles))
	jobs := make(chan Tile)
	var (
		wg       sync.WaitGroup
		errMu    sync.Mutex
		firstErr error
	)
	fail := func(err error) {
		errMu.Lock()
		if firstErr == nil {
			firstErr = err
		}
		errMu.Unlock()
		cancel()
	}

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for t := range jobs {
				if runCtx.Err() != nil {
					continue
				}
				crop := raster.Crop(img, t.Rect)
				circles, err := detectRegion(runCtx, crop, pal, cfg, t.Index)
				if err != nil {
					fail(err)
					continue
				}
				dx := float64(t.Rect.Min.X)
				dy := float64(t.Rect.Min.Y)
				for j := range circles {
					circles[j] = circles[j].Translate(dx, dy)
				}
				results[t.Index] = circles
				slog.Debug("tile done", "tile", t.Index, "circles", len(circles))
			}
		}()
	}
	for _, t := range tiles {
		jobs <- t
	}
	close(jobs)
	wg.Wait()

	if firstErr != nil {
		return nil, firstErr
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var all []Circle
	for _, r := range results {
		all = append(all, r...)
	}

	// Tiles overlap, so the same physical circle can surface in several of
	// them. The cross-tile pass merges at a radius-derived distance.
	globalDist := cfg.DedupDistance
	if d := cfg.MaxRadius / 2; d > globalDist {
		globalDist = d
	}
	all = dedupByColor(all, globalDist)
	sortCircles(all, pal)
	return all, nil
}

// detectRegion runs the untiled pipeline over one image region. The region
// is quantized once; each non-background color is segmented, fitted, and
// deduplicated independently. tileIdx tags the produced circles, -1 for
// whole-image runs.
func detectRegion(ctx context.Context, img *image.NRGBA, pal palette.Palette, cfg Config, tileIdx int) ([]Circle, error) {
	labels, err := Quantize(img, pal)
	if err != nil {
		return nil, err
	}

	// Tile workers already saturate the CPU, so only the whole-image path
	// fans out across colors.
	if tileIdx == -1 && len(pal) > 2 {
		return detectColorsParallel(ctx, labels, pal, cfg)
	}

	var all []Circle
	for ci := 1; ci < len(pal); ci++ {
		circles, err := detectColor(ctx, labels, pal, ci, cfg, tileIdx)
		if err != nil {
			return nil, err
		}
		all = append(all, circles...)
	}
	return all, nil
}

// detectColorsParallel runs the per-color passes on a bounded pool. Colors
// share only the read-only label map; each worker fills private result
// slots, merged here in palette order.
func detectColorsParallel(ctx context.Context, labels *LabelMap, pal palette.Palette, cfg Config) ([]Circle, error) {
	workers := cfg.Workers
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	if n := len(pal) - 1; workers > n {
		workers = n
	}

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	results := make([][]Circle, len(pal))
	jobs := make(chan int)
	var (
		wg       sync.WaitGroup
		errMu    sync.Mutex
		firstErr error
	)
	fail := func(err error) {
		errMu.Lock()
		if firstErr == nil {
			firstErr = err
		}
		errMu.Unlock()
		cancel()
	}

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for ci := range jobs {
				if runCtx.Err() != nil {
					continue
				}
				circles, err := detectColor(runCtx, labels, pal, ci, cfg, -1)
				if err != nil {
					fail(err)
					continue
				}
				results[ci] = circles
			}
		}()
	}
	for ci := 1; ci < len(pal); ci++ {
		jobs <- ci
	}
	close(jobs)
	wg.Wait()

	if firstErr != nil {
		return nil, firstErr
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var all []Circle
	for _, r := range results {
		all = append(all, r...)
	}
	return all, nil
}

// detectColor runs segmentation, fitting, and per-color deduplication for
// one palette entry of an already quantized region.
func detectColor(ctx context.Context, labels *LabelMap, pal palette.Palette, ci int, cfg Config, tileIdx int) ([]Circle, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	blobs := Isolate(labels, uint8(ci), cfg)
	var candidates []Circle
	for _, blob := range blobs {
		arcs := ExtractArcs(blob.Contour, cfg)
		if len(arcs) == 0 {
			continue
		}
		c, ok := FitBlob(arcs, cfg)
		if !ok {
			continue
		}
		if cfg.Refine {
			c = RefineCircle(c, arcs, cfg)
		}
		c.Color = pal[ci]
		c.Tile = tileIdx
		candidates = append(candidates, c)
	}

	deduped := Deduplicate(candidates, cfg.DedupDistance)
	slog.Debug("color done",
		"color", pal[ci].String(),
		"blobs", len(blobs),
		"candidates", len(candidates),
		"circles", len(deduped))
	return deduped, nil
}

// dedupByColor deduplicates each color group separately. Differently
// colored circles never merge, even concentric ones.
func dedupByColor(circles []Circle, dist float64) []Circle {
	groups := make(map[palette.Color][]Circle)
	var order []palette.Color
	for _, c := range circles {
		if _, ok := groups[c.Color]; !ok {
			order = append(order, c.Color)
		}
		groups[c.Color] = append(groups[c.Color], c)
	}
	out := make([]Circle, 0, len(circles))
	for _, col := range order {
		out = append(out, Deduplicate(groups[col], dist)...)
	}
	return out
}

// sortCircles orders results by palette position, then position on the page.
func sortCircles(circles []Circle, pal palette.Palette) {
	rank := make(map[palette.Color]int, len(pal))
	for i, c := range pal {
		rank[c] = i
	}
	sort.SliceStable(circles, func(i, j int) bool {
		a, b := circles[i], circles[j]
		if ra, rb := rank[a.Color], rank[b.Color]; ra != rb {
			return ra < rb
		}
		if a.Y != b.Y {
			return a.Y < b.Y
		}
		if a.X != b.X {
			return a.X < b.X
		}
		return a.R < b.R
	})
}
