package detect

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	"testing"

	"github.com/cwbudde/dotscan/internal/palette"
)

func TestQuantizeMapsToNearest(t *testing.T) {
	pal, _ := palette.Preset("cmyk")

	pixels := []struct {
		rgb  [3]uint8
		want uint8
	}{
		{[3]uint8{255, 255, 255}, 0},
		{[3]uint8{250, 250, 250}, 0},
		{[3]uint8{10, 5, 8}, 1},
		{[3]uint8{120, 190, 240}, 2},
		{[3]uint8{210, 90, 150}, 3},
		{[3]uint8{230, 210, 100}, 4},
	}

	img := image.NewNRGBA(image.Rect(0, 0, len(pixels), 1))
	for i, p := range pixels {
		img.SetNRGBA(i, 0, color.NRGBA{R: p.rgb[0], G: p.rgb[1], B: p.rgb[2], A: 255})
	}

	m, err := Quantize(img, pal)
	if err != nil {
		t.Fatalf("Quantize: %v", err)
	}
	for i, p := range pixels {
		if got := m.At(i, 0); got != int(p.want) {
			t.Errorf("pixel %v labeled %d (%s), want %d (%s)",
				p.rgb, got, pal[got].String(), p.want, pal[p.want].String())
		}
	}
}

func TestQuantizeTieKeepsFirstEntry(t *testing.T) {
	pal := palette.Palette{
		{Name: "white", R: 255, G: 255, B: 255},
		{Name: "first", R: 10, G: 10, B: 10},
		{Name: "second", R: 10, G: 10, B: 10},
	}
	img := image.NewNRGBA(image.Rect(0, 0, 1, 1))
	img.SetNRGBA(0, 0, color.NRGBA{R: 10, G: 10, B: 10, A: 255})

	m, err := Quantize(img, pal)
	if err != nil {
		t.Fatalf("Quantize: %v", err)
	}
	if got := m.At(0, 0); got != 1 {
		t.Errorf("tied pixel labeled %d, want the earlier entry 1", got)
	}
}

func TestQuantizePaletteBounds(t *testing.T) {
	img := image.NewNRGBA(image.Rect(0, 0, 1, 1))

	if _, err := Quantize(img, nil); !errors.Is(err, ErrConfiguration) {
		t.Errorf("empty palette: err = %v, want configuration error", err)
	}

	big := make(palette.Palette, 256)
	for i := range big {
		big[i] = palette.Color{Name: fmt.Sprintf("c%d", i), R: uint8(i), G: uint8(i), B: uint8(i)}
	}
	if _, err := Quantize(img, big); !errors.Is(err, ErrConfiguration) {
		t.Errorf("256-color palette: err = %v, want configuration error", err)
	}
}

func TestQuantizeSubImage(t *testing.T) {
	pal, _ := palette.Preset("grayscale")

	// Bounds do not start at the origin; labels must still be addressed
	// relative to Min.
	img := image.NewNRGBA(image.Rect(8, 4, 12, 6))
	for y := 4; y < 6; y++ {
		for x := 8; x < 12; x++ {
			c := color.NRGBA{R: 255, G: 255, B: 255, A: 255}
			if x < 10 {
				c = color.NRGBA{A: 255}
			}
			img.SetNRGBA(x, y, c)
		}
	}

	m, err := Quantize(img, pal)
	if err != nil {
		t.Fatalf("Quantize: %v", err)
	}
	if m.W != 4 || m.H != 2 {
		t.Fatalf("label map %dx%d, want 4x2", m.W, m.H)
	}
	for y := 0; y < 2; y++ {
		for x := 0; x < 4; x++ {
			want := 0
			if x < 2 {
				want = 1
			}
			if got := m.At(x, y); got != want {
				t.Errorf("label at (%d,%d) = %d, want %d", x, y, got, want)
			}
		}
	}
}
