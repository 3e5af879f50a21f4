package runs

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/cwbudde/dotscan/internal/detect"
	"github.com/cwbudde/dotscan/internal/palette"
)

func writeSourceFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "scan.png")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("Failed to write source file: %v", err)
	}
	return path
}

func TestHashFile(t *testing.T) {
	path := writeSourceFile(t, "hello world")

	hash, err := HashFile(path)
	if err != nil {
		t.Fatalf("HashFile: %v", err)
	}
	want := "sha256:b94d27b9934d3e08a52e52d7da7dabfac484efe37a5380ee9088f7ace2efcde9"
	if hash != want {
		t.Errorf("hash = %s, want %s", hash, want)
	}
}

func TestHashFile_Missing(t *testing.T) {
	if _, err := HashFile(filepath.Join(t.TempDir(), "absent.png")); err == nil {
		t.Error("Expected error for missing file")
	}
}

func TestCountByColor(t *testing.T) {
	circles := []detect.Circle{
		{Color: palette.Color{Name: "magenta", R: 217, G: 93, B: 155}},
		{Color: palette.Color{Name: "~magenta", R: 220, G: 95, B: 150}},
		{Color: palette.Color{R: 118, G: 193, B: 241}},
		{Color: palette.Color{R: 10, G: 200, B: 30}},
	}

	counts := CountByColor(circles)
	if counts["magenta"] != 2 {
		t.Errorf("magenta count = %d, want 2", counts["magenta"])
	}
	if counts["cyan"] != 1 {
		t.Errorf("cyan count = %d, want 1 (named via reference match)", counts["cyan"])
	}
	if counts["rgb(10,200,30)"] != 1 {
		t.Errorf("rgb fallback count = %d, want 1", counts["rgb(10,200,30)"])
	}
}

func TestNewManifest(t *testing.T) {
	source := writeSourceFile(t, "fake image bytes")
	settings := Settings{Detect: detect.DefaultConfig(), ExtractMethod: "band"}
	circles := []detect.Circle{
		{X: 10, Y: 10, R: 5, Color: palette.Color{Name: "magenta", R: 217, G: 93, B: 155}},
		{X: 30, Y: 10, R: 5, Color: palette.Color{Name: "magenta", R: 217, G: 93, B: 155}},
		{X: 50, Y: 10, R: 5, Color: palette.Color{Name: "cyan", R: 118, G: 193, B: 241}},
	}

	m, err := NewManifest("1.2.3", source, settings, circles, []string{"circles.json", "magenta.png"})
	if err != nil {
		t.Fatalf("NewManifest: %v", err)
	}

	if m.Version != "1.2.3" {
		t.Errorf("version = %s, want 1.2.3", m.Version)
	}
	if _, err := uuid.Parse(m.RunID); err != nil {
		t.Errorf("run ID %q is not a UUID: %v", m.RunID, err)
	}
	if m.Source.Name != "scan.png" {
		t.Errorf("source name = %s, want scan.png", m.Source.Name)
	}
	if !filepath.IsAbs(m.Source.Path) {
		t.Errorf("source path %q is not absolute", m.Source.Path)
	}
	if !strings.HasPrefix(m.Source.Hash, "sha256:") {
		t.Errorf("hash %q missing sha256 prefix", m.Source.Hash)
	}
	if m.Results.TotalCircles != 3 {
		t.Errorf("total = %d, want 3", m.Results.TotalCircles)
	}
	if m.Results.CirclesByColor["magenta"] != 2 || m.Results.CirclesByColor["cyan"] != 1 {
		t.Errorf("by color = %v, want magenta=2 cyan=1", m.Results.CirclesByColor)
	}
	if len(m.OutputFiles) != 2 || m.OutputFiles[0] != "circles.json" {
		t.Errorf("output files = %v", m.OutputFiles)
	}
}

func TestWriteReadManifest(t *testing.T) {
	dir := t.TempDir()
	m := &Manifest{
		Version:   "1.0.0",
		RunID:     uuid.NewString(),
		Timestamp: time.Date(2026, 8, 25, 9, 0, 0, 0, time.UTC),
		Source:    SourceFile{Path: "/data/scan.png", Name: "scan.png", Hash: "sha256:abc"},
		Settings:  Settings{Detect: detect.DefaultConfig()},
		Results:   Results{TotalCircles: 7, CirclesByColor: map[string]int{"magenta": 7}},
	}

	if err := WriteManifest(dir, m); err != nil {
		t.Fatalf("WriteManifest: %v", err)
	}

	// No temp file may survive the atomic rename.
	leftovers, err := filepath.Glob(filepath.Join(dir, "*.tmp"))
	if err != nil {
		t.Fatalf("Glob: %v", err)
	}
	if len(leftovers) != 0 {
		t.Errorf("temp files left behind: %v", leftovers)
	}

	got, err := ReadManifest(dir)
	if err != nil {
		t.Fatalf("ReadManifest: %v", err)
	}
	if got.RunID != m.RunID {
		t.Errorf("run ID = %s, want %s", got.RunID, m.RunID)
	}
	if got.Settings.Detect.MinRadius != m.Settings.Detect.MinRadius {
		t.Errorf("min radius = %g, want %g", got.Settings.Detect.MinRadius, m.Settings.Detect.MinRadius)
	}
	if got.Results.TotalCircles != 7 {
		t.Errorf("total = %d, want 7", got.Results.TotalCircles)
	}
}

func TestReadManifest_NotFound(t *testing.T) {
	_, err := ReadManifest(filepath.Join(t.TempDir(), "no_such_run"))
	if err == nil {
		t.Fatal("Expected error for missing manifest")
	}
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("Expected NotFoundError, got: %v", err)
	}
}

func TestManifest_Replay(t *testing.T) {
	m := &Manifest{
		Source:   SourceFile{Path: "/data/scan.png"},
		Settings: Settings{ExtractMethod: "canny"},
	}

	source, settings, err := m.Replay()
	if err != nil {
		t.Fatalf("Replay: %v", err)
	}
	if source != "/data/scan.png" {
		t.Errorf("source = %s, want /data/scan.png", source)
	}
	if settings.ExtractMethod != "canny" {
		t.Errorf("extract method = %s, want canny", settings.ExtractMethod)
	}
	// Missing radius bounds fall back to defaults.
	if settings.Detect.MinRadius != detect.DefaultConfig().MinRadius {
		t.Errorf("min radius = %g, want default %g", settings.Detect.MinRadius, detect.DefaultConfig().MinRadius)
	}
}

func TestManifest_ReplayKeepsExplicitBounds(t *testing.T) {
	cfg := detect.DefaultConfig()
	cfg.MinRadius = 12
	cfg.MaxRadius = 60
	m := &Manifest{
		Source:   SourceFile{Path: "/data/scan.png"},
		Settings: Settings{Detect: cfg},
	}

	_, settings, err := m.Replay()
	if err != nil {
		t.Fatalf("Replay: %v", err)
	}
	if settings.Detect.MinRadius != 12 || settings.Detect.MaxRadius != 60 {
		t.Errorf("bounds = [%g,%g], want [12,60]", settings.Detect.MinRadius, settings.Detect.MaxRadius)
	}
}

func TestManifest_ReplayNoSource(t *testing.T) {
	m := &Manifest{}
	if _, _, err := m.Replay(); err == nil {
		t.Error("Expected error for manifest without source path")
	}
}

func TestManifest_Summary(t *testing.T) {
	m := &Manifest{
		Timestamp: time.Date(2026, 8, 25, 9, 30, 0, 0, time.UTC),
		Source:    SourceFile{Name: "scan.png"},
		Results: Results{
			TotalCircles:   3,
			CirclesByColor: map[string]int{"magenta": 2, "cyan": 1},
		},
	}

	summary := m.Summary()
	for _, want := range []string{
		"Source: scan.png",
		"Date: 2026-08-25 09:30:00",
		"Circles: 3",
		"By color: cyan=1, magenta=2",
	} {
		if !strings.Contains(summary, want) {
			t.Errorf("summary missing %q:\n%s", want, summary)
		}
	}
}
