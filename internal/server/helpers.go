package server

import (
	"encoding/json"
	"image"
	"log/slog"
	"net/http"

	"github.com/cwbudde/dotscan/internal/palette"
)

// resolvePalette picks the quantization palette for a job: an explicit
// spec wins, auto detection clusters the image itself, and the CMYK
// preset is the fallback.
func resolvePalette(img *image.NRGBA, req JobRequest) (palette.Palette, error) {
	if req.Palette != "" {
		return palette.Parse(req.Palette)
	}
	if req.AutoPalette {
		return palette.Detect(img, palette.DefaultDetectOptions()), nil
	}
	pal, _ := palette.Preset("cmyk")
	return pal, nil
}

// writeJSON writes v as a JSON response with the given status code
func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("Failed to encode response", "error", err)
	}
}
