// Package raster handles image decoding, encoding, and synthetic image
// generation for the detection pipeline. All pipeline code works on
// *image.NRGBA; this package is the only place format handling lives.
package raster

import (
	"fmt"
	"image"
	"os"
	"path/filepath"
	"strings"

	"github.com/HugoSmits86/nativewebp"
	"github.com/disintegration/imaging"

	_ "github.com/ftrvxmtrx/tga"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

// Load decodes the image at path and converts it to NRGBA. Supported
// formats: PNG, JPEG, GIF, BMP, TIFF, TGA, WebP.
func Load(path string) (*image.NRGBA, error) {
	img, err := imaging.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load image %s: %w", path, err)
	}
	return imaging.Clone(img), nil
}

// Save encodes the image to path, choosing the format from the file
// extension. WebP goes through the native encoder; everything else is
// delegated to the imaging library (PNG, JPEG, GIF, BMP, TIFF).
func Save(path string, img image.Image) error {
	if strings.EqualFold(filepath.Ext(path), ".webp") {
		f, err := os.Create(path)
		if err != nil {
			return fmt.Errorf("failed to create %s: %w", path, err)
		}
		defer f.Close()
		if err := nativewebp.Encode(f, img, nil); err != nil {
			return fmt.Errorf("failed to encode webp: %w", err)
		}
		return nil
	}
	if err := imaging.Save(img, path); err != nil {
		return fmt.Errorf("failed to save image %s: %w", path, err)
	}
	return nil
}

// ToNRGBA returns img as *image.NRGBA, copying only when necessary.
func ToNRGBA(img image.Image) *image.NRGBA {
	if n, ok := img.(*image.NRGBA); ok && n.Bounds().Min == (image.Point{}) {
		return n
	}
	return imaging.Clone(img)
}

// Crop returns a copy of the rectangular region. The result has its own
// pixel buffer with bounds starting at (0,0); mutating it never touches
// the source.
func Crop(img image.Image, rect image.Rectangle) *image.NRGBA {
	return imaging.Crop(img, rect)
}
