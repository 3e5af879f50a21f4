package runs

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

// ErrNotFound matches missing runs via errors.Is.
var ErrNotFound = &NotFoundError{}

// NotFoundError reports a run directory that does not exist or carries no
// manifest.
type NotFoundError struct {
	Run string
}

func (e *NotFoundError) Error() string {
	if e.Run != "" {
		return "run not found: " + e.Run
	}
	return "run not found"
}

func (e *NotFoundError) Is(target error) bool {
	_, ok := target.(*NotFoundError)
	return ok
}

// Info summarizes one run directory for listings.
type Info struct {
	Name     string
	Path     string
	Date     time.Time
	Source   string
	Circles  int
	Manifest *Manifest
}

// Filter narrows List results. Zero values match everything.
type Filter struct {
	// Source keeps runs whose source file name contains this substring,
	// case-insensitive.
	Source string

	// After keeps runs recorded at or after this instant.
	After time.Time
}

func (f Filter) matches(info Info) bool {
	if f.Source != "" && !strings.Contains(strings.ToLower(info.Source), strings.ToLower(f.Source)) {
		return false
	}
	if !f.After.IsZero() && info.Date.Before(f.After) {
		return false
	}
	return true
}

// List returns all runs under baseDir matching the filter, newest first by
// manifest timestamp. Directories without a manifest are ignored; ones
// with an unreadable manifest are skipped with a warning.
func List(baseDir string, f Filter) ([]Info, error) {
	entries, err := os.ReadDir(baseDir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read runs directory: %w", err)
	}

	var infos []Info
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		dir := filepath.Join(baseDir, entry.Name())
		m, err := ReadManifest(dir)
		if err != nil {
			if !errors.Is(err, ErrNotFound) {
				slog.Warn("Skipping run with unreadable manifest", "run", entry.Name(), "error", err)
			}
			continue
		}

		info := Info{
			Name:     entry.Name(),
			Path:     dir,
			Date:     m.Timestamp,
			Source:   m.Source.Name,
			Circles:  m.Results.TotalCircles,
			Manifest: m,
		}
		if f.matches(info) {
			infos = append(infos, info)
		}
	}

	sort.Slice(infos, func(i, j int) bool {
		return infos[i].Date.After(infos[j].Date)
	})
	return infos, nil
}

// Find locates a run directory by name and verifies it has a manifest.
func Find(baseDir, name string) (string, error) {
	dir := filepath.Join(baseDir, name)
	if _, err := os.Stat(filepath.Join(dir, ManifestName)); err != nil {
		if os.IsNotExist(err) {
			return "", &NotFoundError{Run: name}
		}
		return "", fmt.Errorf("failed to stat manifest: %w", err)
	}
	return dir, nil
}

// FormatTable renders runs as an aligned text table for the CLI.
func FormatTable(infos []Info) string {
	if len(infos) == 0 {
		return "No runs found."
	}

	nameW, sourceW := len("NAME"), len("SOURCE")
	for _, info := range infos {
		if len(info.Name) > nameW {
			nameW = len(info.Name)
		}
		if len(info.Source) > sourceW {
			sourceW = len(info.Source)
		}
	}
	if nameW > 40 {
		nameW = 40
	}
	if sourceW > 30 {
		sourceW = 30
	}

	var b strings.Builder
	header := fmt.Sprintf("%-*s  %-16s  %-*s  %7s", nameW, "NAME", "DATE", sourceW, "SOURCE", "CIRCLES")
	b.WriteString(header)
	b.WriteByte('\n')
	b.WriteString(strings.Repeat("-", len(header)))
	for _, info := range infos {
		b.WriteByte('\n')
		fmt.Fprintf(&b, "%-*s  %-16s  %-*s  %7d",
			nameW, truncate(info.Name, nameW),
			info.Date.Format("2006-01-02 15:04"),
			sourceW, truncate(info.Source, sourceW),
			info.Circles)
	}
	return b.String()
}

func truncate(s string, n int) string {
	if len(s) > n {
		return s[:n]
	}
	return s
}
