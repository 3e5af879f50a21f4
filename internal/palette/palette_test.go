package palette

import (
	"strings"
	"testing"
)

func TestPresetCMYK(t *testing.T) {
	p, ok := Preset("cmyk")
	if !ok {
		t.Fatal("cmyk preset missing")
	}
	if len(p) != 5 {
		t.Fatalf("expected 5 colors, got %d", len(p))
	}
	if p[0].Name != "white" || p[0].R != 255 || p[0].G != 255 || p[0].B != 255 {
		t.Errorf("first color should be white, got %+v", p[0])
	}
	if p[2].Name != "cyan" || p[2].R != 118 || p[2].G != 193 || p[2].B != 241 {
		t.Errorf("unexpected cyan entry: %+v", p[2])
	}
}

func TestPresetCaseInsensitive(t *testing.T) {
	if _, ok := Preset("CMYK"); !ok {
		t.Error("preset lookup should ignore case")
	}
}

func TestParse(t *testing.T) {
	tests := []struct {
		name    string
		spec    string
		wantLen int
		wantErr bool
	}{
		{"preset", "rgb", 5, false},
		{"custom single", "255,0,0", 2, false},
		{"custom pair", "255,0,0;0,255,0", 3, false},
		{"spaces", " 10 , 20 , 30 ; 40,50,60 ", 3, false},
		{"missing channel", "255,0", 0, true},
		{"out of range", "300,0,0", 0, true},
		{"garbage", "not-a-palette", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := Parse(tt.spec)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("Parse(%q) expected error", tt.spec)
				}
				return
			}
			if err != nil {
				t.Fatalf("Parse(%q): %v", tt.spec, err)
			}
			if len(p) != tt.wantLen {
				t.Errorf("Parse(%q) len = %d, want %d", tt.spec, len(p), tt.wantLen)
			}
			if p[0].Name != "white" {
				t.Errorf("custom palettes must start with white, got %q", p[0].Name)
			}
		})
	}
}

func TestParseNamesCustomColors(t *testing.T) {
	p, err := Parse("255,0,0;12,34,200")
	if err != nil {
		t.Fatal(err)
	}
	if p[1].Name != "red" {
		t.Errorf("exact red should be named red, got %q", p[1].Name)
	}
	if !strings.HasPrefix(p[2].Name, "~") && p[2].Name != "" {
		t.Errorf("near match should be ~-prefixed or empty, got %q", p[2].Name)
	}
}

func TestDarkest(t *testing.T) {
	p, _ := Preset("cmyk")
	if got := p.Darkest(); got != 1 {
		t.Errorf("Darkest() = %d, want 1 (black)", got)
	}

	// White-only palette has no valid reference color.
	white := Palette{{Name: "white", R: 255, G: 255, B: 255}}
	if got := white.Darkest(); got != -1 {
		t.Errorf("Darkest() on white-only palette = %d, want -1", got)
	}
}

func TestLuminance(t *testing.T) {
	if got := Luminance(255, 255, 255); got != 255 {
		t.Errorf("white luminance = %v, want 255", got)
	}
	if got := Luminance(0, 0, 0); got != 0 {
		t.Errorf("black luminance = %v, want 0", got)
	}
	// Green weighs more than red, red more than blue.
	if Luminance(0, 255, 0) <= Luminance(255, 0, 0) {
		t.Error("green should be brighter than red")
	}
	if Luminance(255, 0, 0) <= Luminance(0, 0, 255) {
		t.Error("red should be brighter than blue")
	}
}

func TestMatchName(t *testing.T) {
	tests := []struct {
		c    Color
		want string
		ok   bool
	}{
		{Color{R: 0, G: 0, B: 0}, "black", true},
		{Color{R: 5, G: 5, B: 5}, "~black", true},
		{Color{R: 120, G: 190, B: 240}, "~cyan", true},
		{Color{R: 100, G: 100, B: 0}, "", false},
	}
	for _, tt := range tests {
		got, ok := MatchName(tt.c)
		if got != tt.want || ok != tt.ok {
			t.Errorf("MatchName(%v) = %q,%v want %q,%v", tt.c, got, ok, tt.want, tt.ok)
		}
	}
}

func TestIndexOf(t *testing.T) {
	p, _ := Preset("cmyk")
	if got := p.IndexOf("magenta"); got != 3 {
		t.Errorf("IndexOf(magenta) = %d, want 3", got)
	}
	if got := p.IndexOf("Black"); got != 1 {
		t.Errorf("IndexOf should ignore case, got %d", got)
	}
	if got := p.IndexOf("orange"); got != -1 {
		t.Errorf("IndexOf(orange) = %d, want -1", got)
	}
}

func TestColorString(t *testing.T) {
	if got := (Color{Name: "cyan", R: 118, G: 193, B: 241}).String(); got != "cyan" {
		t.Errorf("named color String() = %q", got)
	}
	if got := (Color{R: 1, G: 2, B: 3}).String(); got != "rgb(1,2,3)" {
		t.Errorf("unnamed color String() = %q", got)
	}
}
