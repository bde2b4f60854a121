// Package report renders a conversion summary as an HTML chart page and a
// PNG plot of inter-frame gaps.
package report

import (
	"bytes"
	"fmt"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/components"
	"github.com/go-echarts/go-echarts/v2/opts"

	"github.com/banshee-data/nusconv/internal/convert"
)

// RenderHTML renders per-scene and total counts as a go-echarts page.
func RenderHTML(sum *convert.Summary, title string) ([]byte, error) {
	if sum == nil {
		return nil, fmt.Errorf("nil summary")
	}

	labels := make([]string, 0, len(sum.SceneStats))
	var samples, annotations, instances, radar, occluded []opts.BarData
	for _, st := range sum.SceneStats {
		labels = append(labels, fmt.Sprintf("%s/%s/%s", st.Log, st.Team, st.Scene))
		samples = append(samples, opts.BarData{Value: st.Samples})
		annotations = append(annotations, opts.BarData{Value: st.Annotations})
		instances = append(instances, opts.BarData{Value: st.Instances})
		radar = append(radar, opts.BarData{Value: st.RadarFrames})
		occluded = append(occluded, opts.BarData{Value: st.Occluded})
	}

	scenes := charts.NewBar()
	scenes.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{PageTitle: title, Width: "100%", Height: "720px"}),
		charts.WithTitleOpts(opts.Title{Title: "Rows per scene", Subtitle: fmt.Sprintf("scenes=%d empty=%d", sum.Scenes, sum.EmptyScenes)}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
		charts.WithLegendOpts(opts.Legend{Show: opts.Bool(true)}),
		charts.WithXAxisOpts(opts.XAxis{Name: "scene", AxisLabel: &opts.AxisLabel{Rotate: 30}}),
		charts.WithDataZoomOpts(opts.DataZoom{Type: "slider"}),
	)
	scenes.SetXAxis(labels).
		AddSeries("samples", samples).
		AddSeries("annotations", annotations).
		AddSeries("instances", instances).
		AddSeries("radar frames", radar).
		AddSeries("occluded dropped", occluded)

	var totalLabels []string
	var totalValues []opts.BarData
	for _, l := range sum.Lines() {
		totalLabels = append(totalLabels, l.Label)
		totalValues = append(totalValues, opts.BarData{Value: l.Value})
	}
	totals := charts.NewBar()
	totals.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{Width: "100%", Height: "480px"}),
		charts.WithTitleOpts(opts.Title{Title: "Summary", Subtitle: fmt.Sprintf("payloads=%d", sum.Payloads)}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
	)
	totals.SetXAxis(totalLabels).
		AddSeries("total", totalValues,
			charts.WithLabelOpts(opts.Label{Show: opts.Bool(true), Position: "top"}),
		)

	page := components.NewPage()
	page.PageTitle = title
	page.AddCharts(totals, scenes)

	var buf bytes.Buffer
	if err := page.Render(&buf); err != nil {
		return nil, fmt.Errorf("render report: %w", err)
	}
	return buf.Bytes(), nil
}
