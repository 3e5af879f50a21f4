package export

import (
	"fmt"
	"image/color"
	"math"
	"strings"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"github.com/cwbudde/dotscan/internal/detect"
	"github.com/cwbudde/dotscan/internal/palette"
)

// reportBins is the number of radius buckets in the report histogram.
const reportBins = 10

// reportSeries collects the radii of one color for plotting.
type reportSeries struct {
	name  string
	color color.NRGBA
	radii []float64
}

// WriteReport renders a radius histogram of the detections, one bar series
// per color, and saves it as a PNG at path. Nothing is written when the
// circle list is empty.
func WriteReport(path string, circles []detect.Circle) error {
	if len(circles) == 0 {
		return nil
	}

	minR, maxR := circles[0].R, circles[0].R
	for _, c := range circles[1:] {
		minR = math.Min(minR, c.R)
		maxR = math.Max(maxR, c.R)
	}
	// A single radius value still needs a non-degenerate bin range.
	if maxR == minR {
		minR -= 0.5
		maxR += 0.5
	}
	binW := (maxR - minR) / reportBins

	p := plot.New()
	p.Title.Text = "Radius distribution by color"
	p.X.Label.Text = "Radius (px)"
	p.Y.Label.Text = "Circles"

	series := collectSeries(circles)
	barW := vg.Points(24) / vg.Length(len(series))
	for i, s := range series {
		bars, err := plotter.NewBarChart(binCounts(s.radii, minR, binW), barW)
		if err != nil {
			return fmt.Errorf("failed to build histogram for %s: %w", s.name, err)
		}
		bars.Color = s.color
		bars.LineStyle.Width = vg.Points(0.5)
		bars.Offset = vg.Length(float64(i)-float64(len(series)-1)/2) * barW
		p.Add(bars)
		p.Legend.Add(s.name, bars)
	}

	labels := make([]string, reportBins)
	for i := range labels {
		labels[i] = fmt.Sprintf("%.1f", minR+(float64(i)+0.5)*binW)
	}
	p.NominalX(labels...)
	p.Legend.Top = true

	if err := p.Save(8*vg.Inch, 5*vg.Inch, path); err != nil {
		return fmt.Errorf("failed to save report plot: %w", err)
	}
	return nil
}

// collectSeries groups radii by circle color, in first-seen order.
func collectSeries(circles []detect.Circle) []reportSeries {
	idx := make(map[[3]uint8]int)
	var series []reportSeries
	for _, c := range circles {
		key := [3]uint8{c.Color.R, c.Color.G, c.Color.B}
		i, ok := idx[key]
		if !ok {
			i = len(series)
			idx[key] = i
			series = append(series, reportSeries{
				name:  colorLabel(c.Color),
				color: color.NRGBA{R: c.Color.R, G: c.Color.G, B: c.Color.B, A: 255},
			})
		}
		series[i].radii = append(series[i].radii, c.R)
	}
	return series
}

// binCounts buckets radii into reportBins equal-width bins starting at minR.
func binCounts(radii []float64, minR, binW float64) plotter.Values {
	counts := make(plotter.Values, reportBins)
	for _, r := range radii {
		b := int((r - minR) / binW)
		if b >= reportBins {
			b = reportBins - 1
		}
		if b < 0 {
			b = 0
		}
		counts[b]++
	}
	return counts
}

// colorLabel picks a legend label for a circle color: its own name, a
// known reference name, or the raw RGB triplet.
func colorLabel(c palette.Color) string {
	if name := strings.TrimPrefix(c.Name, "~"); name != "" {
		return name
	}
	if name, ok := palette.MatchName(c); ok {
		return strings.TrimPrefix(name, "~")
	}
	return fmt.Sprintf("rgb(%d,%d,%d)", c.R, c.G, c.B)
}
