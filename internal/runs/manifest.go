package runs

import (
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/cwbudde/dotscan/internal/detect"
	"github.com/cwbudde/dotscan/internal/palette"
)

// ManifestName is the file every run directory is identified by.
const ManifestName = "manifest.json"

// SourceFile identifies the image a run processed.
type SourceFile struct {
	Path string `json:"path"`
	Name string `json:"name"`
	Hash string `json:"hash"`
}

// Settings is the flag-level snapshot of a run, enough to repeat it.
type Settings struct {
	Detect         detect.Config `json:"detect"`
	Palette        []string      `json:"palette,omitempty"`
	AutoPalette    bool          `json:"auto_palette,omitempty"`
	Calibrate      bool          `json:"calibrate,omitempty"`
	Verify         bool          `json:"verify,omitempty"`
	ExtractMethod  string        `json:"extract_method,omitempty"`
	GroupTolerance float64       `json:"group_tolerance,omitempty"`
	MaxColors      int           `json:"max_colors,omitempty"`
	Format         string        `json:"format,omitempty"`
	ChunkSize      string        `json:"chunk_size,omitempty"`
}

// Results summarizes what a run found.
type Results struct {
	TotalCircles   int            `json:"total_circles"`
	CirclesByColor map[string]int `json:"circles_by_color"`
}

// Manifest records everything about a detection run needed to audit or
// replay it later.
type Manifest struct {
	Version     string     `json:"dotscan_version"`
	RunID       string     `json:"run_id"`
	Timestamp   time.Time  `json:"timestamp"`
	Source      SourceFile `json:"source_file"`
	Settings    Settings   `json:"settings"`
	Results     Results    `json:"results"`
	OutputFiles []string   `json:"output_files"`
}

// NewManifest assembles the manifest for a finished run. The source file
// is hashed; output names are base names relative to the run directory.
func NewManifest(version, sourcePath string, settings Settings, circles []detect.Circle, outputs []string) (*Manifest, error) {
	abs, err := filepath.Abs(sourcePath)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve source path: %w", err)
	}
	hash, err := HashFile(abs)
	if err != nil {
		return nil, err
	}

	return &Manifest{
		Version:   version,
		RunID:     uuid.NewString(),
		Timestamp: time.Now(),
		Source: SourceFile{
			Path: abs,
			Name: filepath.Base(abs),
			Hash: hash,
		},
		Settings: settings,
		Results: Results{
			TotalCircles:   len(circles),
			CirclesByColor: CountByColor(circles),
		},
		OutputFiles: outputs,
	}, nil
}

// HashFile returns the SHA256 of the file at path, hex encoded with a
// "sha256:" prefix.
func HashFile(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", fmt.Errorf("failed to hash %s: %w", path, err)
	}
	return fmt.Sprintf("sha256:%x", h.Sum(nil)), nil
}

// CountByColor tallies circles per color, keyed by color name or an
// rgb(r,g,b) literal for colors without a known name.
func CountByColor(circles []detect.Circle) map[string]int {
	counts := make(map[string]int)
	for _, c := range circles {
		counts[colorKey(c.Color)]++
	}
	return counts
}

func colorKey(c palette.Color) string {
	if name := strings.TrimPrefix(c.Name, "~"); name != "" {
		return name
	}
	if name, ok := palette.MatchName(c); ok {
		return strings.TrimPrefix(name, "~")
	}
	return fmt.Sprintf("rgb(%d,%d,%d)", c.R, c.G, c.B)
}

// WriteManifest atomically writes the manifest into dir as manifest.json
// using a temp file plus rename.
func WriteManifest(dir string, m *Manifest) error {
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to serialize manifest: %w", err)
	}

	final := filepath.Join(dir, ManifestName)
	tmp := final + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return fmt.Errorf("failed to write temp manifest: %w", err)
	}
	if err := os.Rename(tmp, final); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("failed to rename manifest: %w", err)
	}
	return nil
}

// ReadManifest loads the manifest from a run directory.
func ReadManifest(dir string) (*Manifest, error) {
	path := filepath.Join(dir, ManifestName)
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, &NotFoundError{Run: filepath.Base(dir)}
		}
		return nil, fmt.Errorf("failed to read manifest: %w", err)
	}

	var m Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("failed to parse manifest: %w", err)
	}
	return &m, nil
}

// Replay returns the source path and settings needed to repeat this run.
// Manifests recorded without radius bounds fall back to the detection
// defaults.
func (m *Manifest) Replay() (string, Settings, error) {
	if m.Source.Path == "" {
		return "", Settings{}, fmt.Errorf("manifest %s has no source path", m.RunID)
	}
	s := m.Settings
	if s.Detect.MinRadius == 0 && s.Detect.MaxRadius == 0 {
		s.Detect = detect.DefaultConfig()
	}
	return m.Source.Path, s, nil
}

// Summary renders the manifest as a short human-readable block.
func (m *Manifest) Summary() string {
	lines := []string{
		"Source: " + m.Source.Name,
		"Date: " + m.Timestamp.Format("2006-01-02 15:04:05"),
		fmt.Sprintf("Circles: %d", m.Results.TotalCircles),
	}
	if len(m.Results.CirclesByColor) > 0 {
		names := make([]string, 0, len(m.Results.CirclesByColor))
		for name := range m.Results.CirclesByColor {
			names = append(names, name)
		}
		sort.Strings(names)
		parts := make([]string, len(names))
		for i, name := range names {
			parts[i] = fmt.Sprintf("%s=%d", name, m.Results.CirclesByColor[name])
		}
		lines = append(lines, "By color: "+strings.Join(parts, ", "))
	}
	return strings.Join(lines, "\n")
}
