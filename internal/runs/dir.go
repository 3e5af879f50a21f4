// Package runs organizes detection output into per-run directories, each
// with a manifest and a progress trace, and finds them again later for
// listing and replay.
package runs

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"
)

// maxNameLength caps sanitized run names.
const maxNameLength = 50

var (
	unsafeChars = regexp.MustCompile(`[^\w\-.]`)
	separators  = regexp.MustCompile(`[-_]+`)
)

// SanitizeName makes a string safe for use as a directory name: spaces
// become underscores, anything outside [A-Za-z0-9_.-] is dropped, runs of
// separators collapse to one underscore, and the result is trimmed and
// capped at 50 characters. An empty result becomes "unnamed".
func SanitizeName(name string) string {
	s := strings.ReplaceAll(name, " ", "_")
	s = unsafeChars.ReplaceAllString(s, "")
	s = separators.ReplaceAllString(s, "_")
	s = strings.Trim(s, "_-.")
	if len(s) > maxNameLength {
		s = strings.TrimRight(s[:maxNameLength], "_-.")
	}
	if s == "" {
		s = "unnamed"
	}
	return s
}

// Timestamp formats t for run directory names.
func Timestamp(t time.Time) string {
	return t.Format("20060102_150405")
}

// dirName builds the run subdirectory name. Custom names get a timestamp
// suffix so repeated runs stay distinct.
func dirName(runName string, now time.Time) string {
	if runName != "" {
		return SanitizeName(runName) + "_" + Timestamp(now)
	}
	return "run_" + Timestamp(now)
}

// CreateDir creates the directory detection outputs should be written to.
// With organize set, a timestamped subdirectory of baseDir is created
// ("run_20260825_143000", or "<name>_20260825_143000" for a custom run
// name); otherwise baseDir itself is used as a flat output directory.
func CreateDir(baseDir, runName string, organize bool) (string, error) {
	dir := baseDir
	if organize {
		dir = filepath.Join(baseDir, dirName(runName, time.Now()))
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create run directory: %w", err)
	}
	return dir, nil
}
