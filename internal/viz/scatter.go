// Package viz renders debugging scatter plots of point clouds and voxel
// centers as standalone HTML using go-echarts.
package viz

import (
	"fmt"
	"math"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"
)

// CloudScatter builds a top-down (XY) scatter of a packed point buffer,
// colored by Z. Buffers larger than maxPoints are strided down so the page
// stays responsive.
func CloudScatter(title string, points []float32, maxPoints int) *charts.Scatter {
	n := len(points) / 3
	if maxPoints <= 0 {
		maxPoints = 8000
	}
	stride := 1
	if n > maxPoints {
		stride = int(math.Ceil(float64(n) / float64(maxPoints)))
	}

	data := make([]opts.ScatterData, 0, n/stride+1)
	maxAbs := 0.0
	minZ := math.Inf(1)
	maxZ := math.Inf(-1)
	for i := 0; i < n; i += stride {
		i3 := i * 3
		x := float64(points[i3])
		y := float64(points[i3+1])
		z := float64(points[i3+2])
		if math.Abs(x) > maxAbs {
			maxAbs = math.Abs(x)
		}
		if math.Abs(y) > maxAbs {
			maxAbs = math.Abs(y)
		}
		if z < minZ {
			minZ = z
		}
		if z > maxZ {
			maxZ = z
		}
		data = append(data, opts.ScatterData{Value: []interface{}{x, y, z}})
	}

	// Pad the axes a little so edge points stay visible, and keep the plot
	// square with symmetric ranges.
	pad := maxAbs * 1.05
	if pad == 0 {
		pad = 1.0
	}
	if len(data) == 0 {
		minZ, maxZ = 0, 1
	}
	if minZ == maxZ {
		maxZ = minZ + 1
	}

	scatter := charts.NewScatter()
	scatter.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{PageTitle: title, Theme: "dark", Width: "900px", Height: "900px"}),
		charts.WithTitleOpts(opts.Title{Title: title, Subtitle: fmt.Sprintf("points=%d stride=%d", len(data), stride)}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
		charts.WithXAxisOpts(opts.XAxis{Min: -pad, Max: pad, Name: "X", NameLocation: "middle", NameGap: 25}),
		charts.WithYAxisOpts(opts.YAxis{Min: -pad, Max: pad, Name: "Y", NameLocation: "middle", NameGap: 30}),
		charts.WithVisualMapOpts(opts.VisualMap{
			Show:       opts.Bool(true),
			Calculable: opts.Bool(true),
			Min:        float32(minZ),
			Max:        float32(maxZ),
			Dimension:  "2",
			InRange:    &opts.VisualMapInRange{Color: []string{"#440154", "#3e4989", "#26828e", "#35b779", "#b5de2b", "#fde725"}},
		}),
	)
	scatter.AddSeries("points", data, charts.WithScatterChartOpts(opts.ScatterChart{SymbolSize: 3}))
	return scatter
}
