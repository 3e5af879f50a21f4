package runs

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestSanitizeName(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"scan of page 3", "scan_of_page_3"},
		{"My Photo (1).png", "My_Photo_1.png"},
		{"hello--world__test", "hello_world_test"},
		{"__init__", "init"},
		{"a b/c\\d", "a_bcd"},
		{"???", "unnamed"},
		{"", "unnamed"},
		{strings.Repeat("a", 60), strings.Repeat("a", 50)},
		{strings.Repeat("a", 49) + "_bcd", strings.Repeat("a", 49)},
	}
	for _, tc := range cases {
		if got := SanitizeName(tc.in); got != tc.want {
			t.Errorf("SanitizeName(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestDirName(t *testing.T) {
	fixed := time.Date(2026, 8, 25, 14, 30, 0, 0, time.UTC)

	if got := dirName("", fixed); got != "run_20260825_143000" {
		t.Errorf("default name = %q, want run_20260825_143000", got)
	}
	if got := dirName("My Scan", fixed); got != "My_Scan_20260825_143000" {
		t.Errorf("custom name = %q, want My_Scan_20260825_143000", got)
	}
}

func TestCreateDir_Flat(t *testing.T) {
	base := filepath.Join(t.TempDir(), "out")

	dir, err := CreateDir(base, "ignored", false)
	if err != nil {
		t.Fatalf("CreateDir: %v", err)
	}
	if dir != base {
		t.Errorf("flat mode returned %q, want base dir %q", dir, base)
	}
	if _, err := os.Stat(dir); err != nil {
		t.Errorf("directory was not created: %v", err)
	}
}

func TestCreateDir_Organized(t *testing.T) {
	base := t.TempDir()

	dir, err := CreateDir(base, "", true)
	if err != nil {
		t.Fatalf("CreateDir: %v", err)
	}
	if !strings.HasPrefix(filepath.Base(dir), "run_") {
		t.Errorf("organized dir %q should start with run_", filepath.Base(dir))
	}
	if filepath.Dir(dir) != base {
		t.Errorf("run dir %q is not directly under base", dir)
	}
	if _, err := os.Stat(dir); err != nil {
		t.Errorf("directory was not created: %v", err)
	}
}
