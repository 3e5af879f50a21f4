package server

import (
	"context"
	"image/color"
	"path/filepath"
	"testing"

	"github.com/cwbudde/dotscan/internal/palette"
	"github.com/cwbudde/dotscan/internal/raster"
)

// writeDotGrid renders a 4x4 grid of palette-colored dots to path and
// returns the number of dots drawn.
func writeDotGrid(t *testing.T, path string) int {
	t.Helper()

	pal, _ := palette.Preset("cmyk")
	inks := make([]color.NRGBA, 0, len(pal)-1)
	for _, c := range pal[1:] {
		inks = append(inks, color.NRGBA{R: c.R, G: c.G, B: c.B, A: 255})
	}

	img := raster.NewCanvas(400, 400, color.NRGBA{R: 255, G: 255, B: 255, A: 255})
	specs := raster.PlaceGrid(img, 4, 4, 30, inks)

	if err := raster.Save(path, img); err != nil {
		t.Fatalf("Failed to write test image: %v", err)
	}
	return len(specs)
}

// gridRequest bounds the radius search to the drawn dot size.
func gridRequest(path string) JobRequest {
	return JobRequest{
		Source:    path,
		MinRadius: 20,
		MaxRadius: 40,
	}
}

func TestRunJob_Success(t *testing.T) {
	imgPath := filepath.Join(t.TempDir(), "grid.png")
	want := writeDotGrid(t, imgPath)

	jm := NewJobManager()
	job := jm.CreateJob(gridRequest(imgPath))

	if err := runJob(context.Background(), jm, job.ID); err != nil {
		t.Fatalf("runJob should succeed: %v", err)
	}

	updated, _ := jm.GetJob(job.ID)
	if updated.State != StateCompleted {
		t.Fatalf("Job should be completed, got %s (error %q)", updated.State, updated.Error)
	}

	if len(updated.Circles) != want {
		t.Errorf("Detected %d circles, want %d", len(updated.Circles), want)
	}

	if updated.Stage != StageDone {
		t.Errorf("Expected done stage, got %s", updated.Stage)
	}

	if updated.EndTime == nil {
		t.Error("EndTime should be set")
	}
}

func TestRunJob_WithExtract(t *testing.T) {
	imgPath := filepath.Join(t.TempDir(), "grid.png")
	writeDotGrid(t, imgPath)

	jm := NewJobManager()
	req := gridRequest(imgPath)
	req.ExtractMethod = "area"
	job := jm.CreateJob(req)

	if err := runJob(context.Background(), jm, job.ID); err != nil {
		t.Fatalf("runJob should succeed: %v", err)
	}

	updated, _ := jm.GetJob(job.ID)
	if updated.State != StateCompleted {
		t.Fatalf("Job should be completed, got %s (error %q)", updated.State, updated.Error)
	}

	// Sampled colors stay close to the drawn inks on a clean synthetic
	// image, even with some background pixels inside the fitted circle.
	pal, _ := palette.Preset("cmyk")
	for _, c := range updated.Circles {
		nearest := 256.0
		for _, ink := range pal[1:] {
			if d := palette.Distance(c.Color, ink); d < nearest {
				nearest = d
			}
		}
		if nearest > 60 {
			t.Errorf("circle at (%g, %g): sampled color %v far from every ink (distance %g)",
				c.X, c.Y, c.Color, nearest)
		}
	}
}

func TestRunJob_InvalidImage(t *testing.T) {
	jm := NewJobManager()
	job := jm.CreateJob(gridRequest("/nonexistent/image.png"))

	err := runJob(context.Background(), jm, job.ID)
	if err == nil {
		t.Error("runJob should fail with invalid image path")
	}

	updated, _ := jm.GetJob(job.ID)
	if updated.State != StateFailed {
		t.Errorf("Job should be failed, got %s", updated.State)
	}

	if updated.Error == "" {
		t.Error("Error message should be set")
	}

	if updated.EndTime == nil {
		t.Error("EndTime should be set")
	}
}

func TestRunJob_BadPalette(t *testing.T) {
	imgPath := filepath.Join(t.TempDir(), "grid.png")
	writeDotGrid(t, imgPath)

	jm := NewJobManager()
	req := gridRequest(imgPath)
	req.Palette = "1,2"
	job := jm.CreateJob(req)

	if err := runJob(context.Background(), jm, job.ID); err == nil {
		t.Error("runJob should fail on a malformed palette spec")
	}

	updated, _ := jm.GetJob(job.ID)
	if updated.State != StateFailed {
		t.Errorf("Job should be failed, got %s", updated.State)
	}
}

func TestRunJob_Cancellation(t *testing.T) {
	imgPath := filepath.Join(t.TempDir(), "grid.png")
	writeDotGrid(t, imgPath)

	jm := NewJobManager()
	job := jm.CreateJob(gridRequest(imgPath))

	// Cancel before the worker reaches the detection pass.
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := runJob(ctx, jm, job.ID)
	if err == nil {
		t.Error("runJob should return error when cancelled")
	}

	updated, _ := jm.GetJob(job.ID)
	if updated.State != StateCancelled {
		t.Errorf("Job should be cancelled, got %s", updated.State)
	}

	if updated.EndTime == nil {
		t.Error("EndTime should be set")
	}
}

func TestRunJob_UnknownJob(t *testing.T) {
	jm := NewJobManager()

	if err := runJob(context.Background(), jm, "nonexistent"); err == nil {
		t.Error("runJob should fail for an unknown job ID")
	}
}
