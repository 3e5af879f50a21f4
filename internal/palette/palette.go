// Package palette defines the working color palettes used as quantization
// targets during detection: built-in presets, custom parsing, and automatic
// detection from image content.
package palette

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Color is a single palette entry. Name may be empty for custom colors;
// auto-detected colors carry a "~"-prefixed name when they resemble a
// known reference color.
type Color struct {
	Name string
	R    uint8
	G    uint8
	B    uint8
}

// Palette is an ordered list of quantization target colors. By convention
// index 0 is the background color (white); detection skips it.
type Palette []Color

// Presets returns the available preset names in stable order.
func Presets() []string {
	return []string{"cmyk", "rgb", "grayscale"}
}

// Preset returns a built-in palette by name.
func Preset(name string) (Palette, bool) {
	switch strings.ToLower(name) {
	case "cmyk":
		return Palette{
			{Name: "white", R: 255, G: 255, B: 255},
			{Name: "black", R: 0, G: 0, B: 0},
			{Name: "cyan", R: 118, G: 193, B: 241},
			{Name: "magenta", R: 217, G: 93, B: 155},
			{Name: "yellow", R: 238, G: 206, B: 94},
		}, true
	case "rgb":
		return Palette{
			{Name: "white", R: 255, G: 255, B: 255},
			{Name: "black", R: 0, G: 0, B: 0},
			{Name: "red", R: 255, G: 0, B: 0},
			{Name: "green", R: 0, G: 255, B: 0},
			{Name: "blue", R: 0, G: 0, B: 255},
		}, true
	case "grayscale":
		return Palette{
			{Name: "white", R: 255, G: 255, B: 255},
			{Name: "black", R: 0, G: 0, B: 0},
			{Name: "gray", R: 128, G: 128, B: 128},
		}, true
	}
	return nil, false
}

// Parse interprets a palette string: either a preset name ("cmyk",
// "rgb", "grayscale") or semicolon-separated RGB triples like
// "255,0,0;0,255,0". Custom palettes always get white prepended as the
// background color.
func Parse(spec string) (Palette, error) {
	if p, ok := Preset(spec); ok {
		return p, nil
	}

	p := Palette{{Name: "white", R: 255, G: 255, B: 255}}
	for _, part := range strings.Split(spec, ";") {
		fields := strings.Split(strings.TrimSpace(part), ",")
		if len(fields) != 3 {
			return nil, fmt.Errorf("invalid palette %q: color %q is not R,G,B (use a preset name or 'R,G,B;R,G,B')", spec, part)
		}
		var ch [3]uint8
		for i, f := range fields {
			v, err := strconv.Atoi(strings.TrimSpace(f))
			if err != nil {
				return nil, fmt.Errorf("invalid palette %q: %w", spec, err)
			}
			if v < 0 || v > 255 {
				return nil, fmt.Errorf("invalid palette %q: channel %d out of range 0-255", spec, v)
			}
			ch[i] = uint8(v)
		}
		c := Color{R: ch[0], G: ch[1], B: ch[2]}
		c.Name, _ = MatchName(c)
		p = append(p, c)
	}
	return p, nil
}

// Luminance returns the perceived brightness of a color (ITU-R BT.601).
func Luminance(r, g, b uint8) float64 {
	return 0.299*float64(r) + 0.587*float64(g) + 0.114*float64(b)
}

// Luminance returns the perceived brightness of the color.
func (c Color) Luminance() float64 {
	return Luminance(c.R, c.G, c.B)
}

// Distance returns the Euclidean RGB distance between two colors.
func Distance(a, b Color) float64 {
	dr := float64(a.R) - float64(b.R)
	dg := float64(a.G) - float64(b.G)
	db := float64(a.B) - float64(b.B)
	return math.Sqrt(dr*dr + dg*dg + db*db)
}

// IsWhiteLike reports whether all channels are at or above 240.
func (c Color) IsWhiteLike() bool {
	return c.R >= 240 && c.G >= 240 && c.B >= 240
}

// IsBlackLike reports whether all channels are at or below 30.
func (c Color) IsBlackLike() bool {
	return c.R <= 30 && c.G <= 30 && c.B <= 30
}

// String renders the color as its name when known, otherwise rgb(r,g,b).
func (c Color) String() string {
	if c.Name != "" {
		return c.Name
	}
	return fmt.Sprintf("rgb(%d,%d,%d)", c.R, c.G, c.B)
}

// Darkest returns the index of the lowest-luminance non-background color,
// or -1 for an empty or background-only palette. Used to pick the
// calibration reference color.
func (p Palette) Darkest() int {
	best := -1
	bestLum := math.Inf(1)
	for i, c := range p {
		if c.IsWhiteLike() {
			continue
		}
		if l := c.Luminance(); l < bestLum {
			bestLum = l
			best = i
		}
	}
	return best
}

// IndexOf finds a color by name (case-insensitive), returning -1 when the
// palette has no such entry.
func (p Palette) IndexOf(name string) int {
	name = strings.ToLower(name)
	for i, c := range p {
		if strings.ToLower(c.Name) == name || strings.ToLower(strings.TrimPrefix(c.Name, "~")) == name {
			return i
		}
	}
	return -1
}

// Names returns the display names of all palette entries.
func (p Palette) Names() []string {
	names := make([]string, len(p))
	for i, c := range p {
		names[i] = c.String()
	}
	return names
}

// referenceColors are the well-known colors used to name detected or
// custom palette entries.
var referenceColors = []Color{
	{Name: "white", R: 255, G: 255, B: 255},
	{Name: "black", R: 0, G: 0, B: 0},
	{Name: "cyan", R: 118, G: 193, B: 241},
	{Name: "magenta", R: 217, G: 93, B: 155},
	{Name: "yellow", R: 238, G: 206, B: 94},
	{Name: "red", R: 255, G: 0, B: 0},
	{Name: "green", R: 0, G: 255, B: 0},
	{Name: "blue", R: 0, G: 0, B: 255},
	{Name: "gray", R: 128, G: 128, B: 128},
}

// MatchName finds the closest reference color within distance 30 and
// returns its name. Exact matches return the bare name, near matches a
// "~"-prefixed one.
func MatchName(c Color) (string, bool) {
	bestName := ""
	bestDist := math.Inf(1)
	for _, ref := range referenceColors {
		if d := Distance(c, ref); d < bestDist {
			bestDist = d
			bestName = ref.Name
		}
	}
	if bestDist == 0 {
		return bestName, true
	}
	if bestDist <= 30 {
		return "~" + bestName, true
	}
	return "", false
}
