package report

import (
	"bytes"
	"fmt"
	"image/color"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"github.com/banshee-data/nusconv/internal/convert"
)

// maxGapSeries caps the number of scenes drawn in one gap plot.
const maxGapSeries = 24

// RenderGapPlot draws the timestamp gap between consecutive samples of
// each scene as a PNG, with threshold as a reference line when positive.
func RenderGapPlot(sum *convert.Summary, threshold int64) ([]byte, error) {
	if sum == nil {
		return nil, fmt.Errorf("nil summary")
	}

	p := plot.New()
	p.Title.Text = "Inter-frame gaps per scene"
	p.X.Label.Text = "Sample index"
	p.Y.Label.Text = "Gap (timestamp units)"

	var series []convert.SceneStats
	for _, st := range sum.SceneStats {
		if len(st.Gaps) > 0 {
			series = append(series, st)
		}
	}
	if len(series) > maxGapSeries {
		series = series[:maxGapSeries]
	}

	colors := generateColors(len(series))
	maxX := 1.0
	for i, st := range series {
		pts := make(plotter.XYs, len(st.Gaps))
		for j, g := range st.Gaps {
			pts[j] = plotter.XY{X: float64(j + 1), Y: float64(g)}
		}
		if x := float64(len(st.Gaps)); x > maxX {
			maxX = x
		}
		line, err := plotter.NewLine(pts)
		if err != nil {
			return nil, fmt.Errorf("scene %s: %w", st.Scene, err)
		}
		line.Color = colors[i]
		line.Width = vg.Points(1)
		p.Add(line)
		p.Legend.Add(fmt.Sprintf("%s/%s", st.Team, st.Scene), line)
	}

	if threshold > 0 {
		ref, err := plotter.NewLine(plotter.XYs{{X: 1, Y: float64(threshold)}, {X: maxX, Y: float64(threshold)}})
		if err != nil {
			return nil, err
		}
		ref.Color = color.RGBA{R: 200, A: 255}
		ref.Dashes = []vg.Length{vg.Points(4), vg.Points(2)}
		p.Add(ref)
		p.Legend.Add("first-frame gap threshold", ref)
	}

	p.Legend.Top = true
	p.Legend.Left = false
	p.Legend.XOffs = -10
	p.Legend.YOffs = -10

	wt, err := p.WriterTo(14*vg.Inch, 6*vg.Inch, "png")
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	if _, err := wt.WriteTo(&buf); err != nil {
		return nil, fmt.Errorf("encode gap plot: %w", err)
	}
	return buf.Bytes(), nil
}

// generateColors spreads n hues evenly around the colour wheel.
func generateColors(n int) []color.Color {
	if n <= 0 {
		return nil
	}
	colors := make([]color.Color, n)
	for i := 0; i < n; i++ {
		r, g, b := hslToRGB(float64(i)/float64(n), 0.7, 0.5)
		colors[i] = color.RGBA{R: r, G: g, B: b, A: 255}
	}
	return colors
}

// hslToRGB converts HSL to RGB (0-255 range)
func hslToRGB(h, s, l float64) (r, g, b uint8) {
	if s == 0 {
		v := uint8(l * 255)
		return v, v, v
	}
	q := l + s - l*s
	if l < 0.5 {
		q = l * (1 + s)
	}
	p := 2*l - q
	return uint8(hueToRGB(p, q, h+1.0/3.0) * 255),
		uint8(hueToRGB(p, q, h) * 255),
		uint8(hueToRGB(p, q, h-1.0/3.0) * 255)
}

func hueToRGB(p, q, t float64) float64 {
	switch {
	case t < 0:
		t += 1
	case t > 1:
		t -= 1
	}
	switch {
	case t < 1.0/6.0:
		return p + (q-p)*6*t
	case t < 1.0/2.0:
		return q
	case t < 2.0/3.0:
		return p + (q-p)*(2.0/3.0-t)*6
	}
	return p
}
