package detect

import (
	"image"
	"math"
	"testing"
)

func maskFromRows(t *testing.T, rows []string) ([]uint8, int, int) {
	t.Helper()
	h := len(rows)
	w := len(rows[0])
	m := make([]uint8, w*h)
	for y, row := range rows {
		if len(row) != w {
			t.Fatalf("row %d has width %d, want %d", y, len(row), w)
		}
		for x := 0; x < w; x++ {
			if row[x] == '#' {
				m[y*w+x] = maskPresent
			}
		}
	}
	return m, w, h
}

func TestBuildMask(t *testing.T) {
	labels := &LabelMap{W: 3, H: 2, Labels: []uint8{0, 1, 2, 1, 1, 0}}
	mask := BuildMask(labels, 1)
	want := []uint8{0, 1, 0, 1, 1, 0}
	for i := range want {
		if mask[i] != want[i] {
			t.Errorf("mask[%d] = %d, want %d", i, mask[i], want[i])
		}
	}
}

func TestFindBlobsSquare(t *testing.T) {
	mask, w, h := maskFromRows(t, []string{
		"......",
		".###..",
		".###..",
		".###..",
		"......",
		"......",
	})
	blobs := FindBlobs(mask, w, h, 1)
	if len(blobs) != 1 {
		t.Fatalf("got %d blobs, want 1", len(blobs))
	}
	b := blobs[0]
	if b.Area != 9 {
		t.Errorf("Area = %d, want 9", b.Area)
	}
	if want := image.Rect(1, 1, 4, 4); b.Bounds != want {
		t.Errorf("Bounds = %v, want %v", b.Bounds, want)
	}
	wantContour := []image.Point{
		{1, 1}, {2, 1}, {3, 1}, {3, 2}, {3, 3}, {2, 3}, {1, 3}, {1, 2},
	}
	if len(b.Contour) != len(wantContour) {
		t.Fatalf("contour has %d points, want %d: %v", len(b.Contour), len(wantContour), b.Contour)
	}
	for i, p := range wantContour {
		if b.Contour[i] != p {
			t.Errorf("contour[%d] = %v, want %v", i, b.Contour[i], p)
		}
	}
}

func TestFindBlobsMinArea(t *testing.T) {
	mask, w, h := maskFromRows(t, []string{
		"##....",
		"##....",
		"....##",
		"....##",
	})
	if blobs := FindBlobs(mask, w, h, 5); len(blobs) != 0 {
		t.Errorf("got %d blobs with minArea 5, want 0", len(blobs))
	}
}

func TestFindBlobsSeparateComponents(t *testing.T) {
	mask, w, h := maskFromRows(t, []string{
		"##...#",
		"##...#",
		"......",
		"...##.",
		"...##.",
	})
	blobs := FindBlobs(mask, w, h, 1)
	if len(blobs) != 3 {
		t.Fatalf("got %d blobs, want 3", len(blobs))
	}
	// Scan order: first blob starts at the topmost, leftmost pixel.
	if blobs[0].Contour[0] != image.Pt(0, 0) {
		t.Errorf("first blob starts at %v, want (0,0)", blobs[0].Contour[0])
	}
	if blobs[0].Area != 4 || blobs[1].Area != 2 || blobs[2].Area != 4 {
		t.Errorf("areas = %d, %d, %d, want 4, 2, 4",
			blobs[0].Area, blobs[1].Area, blobs[2].Area)
	}
}

func TestFindBlobsDiagonalConnectivity(t *testing.T) {
	mask, w, h := maskFromRows(t, []string{
		"#.",
		".#",
	})
	blobs := FindBlobs(mask, w, h, 1)
	if len(blobs) != 1 {
		t.Fatalf("got %d blobs, want 1 (diagonal pixels are 8-connected)", len(blobs))
	}
	if blobs[0].Area != 2 {
		t.Errorf("Area = %d, want 2", blobs[0].Area)
	}
	// A single-pixel-wide diagonal is traced once per side.
	want := []image.Point{{0, 0}, {1, 1}, {0, 0}, {1, 1}}
	if len(blobs[0].Contour) != len(want) {
		t.Fatalf("contour = %v, want %v", blobs[0].Contour, want)
	}
	for i, p := range want {
		if blobs[0].Contour[i] != p {
			t.Errorf("contour[%d] = %v, want %v", i, blobs[0].Contour[i], p)
		}
	}
}

func TestFindBlobsSinglePixel(t *testing.T) {
	mask, w, h := maskFromRows(t, []string{
		"...",
		".#.",
		"...",
	})
	blobs := FindBlobs(mask, w, h, 1)
	if len(blobs) != 1 || blobs[0].Area != 1 {
		t.Fatalf("blobs = %+v, want one single-pixel blob", blobs)
	}
	if len(blobs[0].Contour) != 1 || blobs[0].Contour[0] != image.Pt(1, 1) {
		t.Errorf("contour = %v, want [(1,1)]", blobs[0].Contour)
	}
}

func TestTraceContourDisk(t *testing.T) {
	const (
		size = 32
		cx   = 16.0
		cy   = 16.0
		r    = 10.0
	)
	mask := make([]uint8, size*size)
	for y := 0; y < size; y++ {
		for x := 0; x < size; x++ {
			dx, dy := float64(x)-cx, float64(y)-cy
			if dx*dx+dy*dy <= r*r {
				mask[y*size+x] = maskPresent
			}
		}
	}
	blobs := FindBlobs(mask, size, size, 1)
	if len(blobs) != 1 {
		t.Fatalf("got %d blobs, want 1", len(blobs))
	}
	contour := blobs[0].Contour
	if len(contour) < 40 || len(contour) > 100 {
		t.Errorf("contour has %d points, want a ring of roughly 2*pi*r", len(contour))
	}
	for _, p := range contour {
		d := math.Hypot(float64(p.X)-cx, float64(p.Y)-cy)
		if d < r-1.5 || d > r {
			t.Errorf("contour point %v at distance %.2f, want within [%.1f, %.1f]", p, d, r-1.5, r)
		}
	}
}

func TestIsolateSelectsColor(t *testing.T) {
	labels := &LabelMap{W: 6, H: 4, Labels: make([]uint8, 24)}
	// Color 1 square at (0,0)-(1,1), color 2 square at (4,2)-(5,3).
	for _, p := range []image.Point{{0, 0}, {1, 0}, {0, 1}, {1, 1}} {
		labels.Labels[p.Y*6+p.X] = 1
	}
	for _, p := range []image.Point{{4, 2}, {5, 2}, {4, 3}, {5, 3}} {
		labels.Labels[p.Y*6+p.X] = 2
	}

	cfg := DefaultConfig()
	cfg.MinBlobArea = 1

	blobs := Isolate(labels, 1, cfg)
	if len(blobs) != 1 {
		t.Fatalf("color 1: got %d blobs, want 1", len(blobs))
	}
	if want := image.Rect(0, 0, 2, 2); blobs[0].Bounds != want {
		t.Errorf("color 1 bounds = %v, want %v", blobs[0].Bounds, want)
	}

	blobs = Isolate(labels, 2, cfg)
	if len(blobs) != 1 {
		t.Fatalf("color 2: got %d blobs, want 1", len(blobs))
	}
	if want := image.Rect(4, 2, 6, 4); blobs[0].Bounds != want {
		t.Errorf("color 2 bounds = %v, want %v", blobs[0].Bounds, want)
	}
}
