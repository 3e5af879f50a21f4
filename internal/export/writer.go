// Package export renders finalized detections as JSON, CSV, and a summary
// plot. Rounding to output precision happens here; upstream stages keep
// full float64 coordinates.
package export

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"

	"github.com/cwbudde/dotscan/internal/detect"
)

// csvHeader is the fixed column order for CSV output.
var csvHeader = []string{
	"center_x", "center_y", "radius",
	"color_r", "color_g", "color_b",
	"coverage", "confidence",
}

// circleRecord is the serialized form of one detection. Struct field order
// is the output field order.
type circleRecord struct {
	Center     [2]float64 `json:"center"`
	Radius     float64    `json:"radius"`
	Color      [3]uint8   `json:"color"`
	Coverage   float64    `json:"coverage"`
	Confidence float64    `json:"confidence"`
}

func newRecord(c detect.Circle) circleRecord {
	return circleRecord{
		Center:     [2]float64{round2(c.X), round2(c.Y)},
		Radius:     round2(c.R),
		Color:      [3]uint8{c.Color.R, c.Color.G, c.Color.B},
		Coverage:   round3(c.Coverage),
		Confidence: c.Confidence,
	}
}

func round2(v float64) float64 { return math.Round(v*100) / 100 }
func round3(v float64) float64 { return math.Round(v*1000) / 1000 }

// EncodeJSON writes the circle list to w as an indented JSON array. An
// empty or nil list encodes as [].
func EncodeJSON(w io.Writer, circles []detect.Circle) error {
	records := make([]circleRecord, 0, len(circles))
	for _, c := range circles {
		records = append(records, newRecord(c))
	}

	data, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to serialize circles: %w", err)
	}
	data = append(data, '\n')

	if _, err := w.Write(data); err != nil {
		return fmt.Errorf("failed to write JSON: %w", err)
	}
	return nil
}

// EncodeCSV writes the circle list to w as CSV rows under a fixed header.
// Centers and radii carry two decimals, coverage three, confidence one.
func EncodeCSV(w io.Writer, circles []detect.Circle) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(csvHeader); err != nil {
		return fmt.Errorf("failed to write CSV header: %w", err)
	}

	for _, c := range circles {
		row := []string{
			strconv.FormatFloat(c.X, 'f', 2, 64),
			strconv.FormatFloat(c.Y, 'f', 2, 64),
			strconv.FormatFloat(c.R, 'f', 2, 64),
			strconv.Itoa(int(c.Color.R)),
			strconv.Itoa(int(c.Color.G)),
			strconv.Itoa(int(c.Color.B)),
			strconv.FormatFloat(c.Coverage, 'f', 3, 64),
			strconv.FormatFloat(c.Confidence, 'f', 1, 64),
		}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("failed to write CSV row: %w", err)
		}
	}

	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("failed to flush CSV: %w", err)
	}
	return nil
}

// WriteJSON writes the circle list to path as indented JSON.
func WriteJSON(path string, circles []detect.Circle) error {
	var buf bytes.Buffer
	if err := EncodeJSON(&buf, circles); err != nil {
		return err
	}
	if err := os.WriteFile(path, buf.Bytes(), 0644); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}

// WriteCSV writes the circle list to path as CSV.
func WriteCSV(path string, circles []detect.Circle) error {
	var buf bytes.Buffer
	if err := EncodeCSV(&buf, circles); err != nil {
		return err
	}
	if err := os.WriteFile(path, buf.Bytes(), 0644); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}
