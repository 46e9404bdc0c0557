// Package charts assembles the fixed set of air-quality figures from a parsed
// dataset. It only groups and places values; statistics such as box-plot
// quartiles are left to the renderer.
package charts

import (
	"fmt"
	"math"
	"slices"
	"strconv"
	"strings"

	"aqi-estimator/internal/modules/airquality/types"
)

const (
	unitPPM  = "ppm"
	unitDust = "µg/m³"
)

type metric struct {
	name  string
	box   string
	unit  string
	value func(types.Reading) float64
}

// Row order of the time-series chart and order of the box charts.
var metrics = []metric{
	{name: "CO", box: COBox, unit: unitPPM, value: func(r types.Reading) float64 { return r.CO }},
	{name: "H2", box: H2Box, unit: unitPPM, value: func(r types.Reading) float64 { return r.H2 }},
	{name: "Dust", box: DustBox, unit: unitDust, value: func(r types.Reading) float64 { return r.Dust }},
}

type Builder struct {
	opts Options
}

func NewBuilder(opts Options) *Builder {
	return &Builder{opts: opts}
}

// Build returns every chart in Names using DefaultOptions.
func Build(readings []types.Reading) Charts {
	return NewBuilder(DefaultOptions()).Build(readings)
}

// Build returns every chart in Names. An empty dataset yields figures without
// traces (and an empty 3D point set).
func (b *Builder) Build(readings []types.Reading) Charts {
	g := groupByAltitude(readings)

	out := make(Charts, len(Names))
	out[TimeSeries] = b.timeSeries(g)
	out[Scatter3D] = b.scatter3D(readings)
	for _, m := range metrics {
		out[m.box] = b.box(g, m)
	}
	return out
}

// altitudeGroups keeps the readings of each altitude in dataset order. Keys
// compare with exact float equality.
type altitudeGroups struct {
	firstSeen []float64
	byAlt     map[float64][]types.Reading
}

func groupByAltitude(readings []types.Reading) altitudeGroups {
	g := altitudeGroups{byAlt: make(map[float64][]types.Reading)}
	for _, r := range readings {
		if _, ok := g.byAlt[r.Altitude]; !ok {
			g.firstSeen = append(g.firstSeen, r.Altitude)
		}
		g.byAlt[r.Altitude] = append(g.byAlt[r.Altitude], r)
	}
	return g
}

func (g altitudeGroups) ascending() []float64 {
	s := slices.Clone(g.firstSeen)
	slices.Sort(s)
	return s
}

func (b *Builder) timeSeries(g altitudeGroups) Figure {
	rows := len(metrics)
	traces := make([]Trace, 0, rows*len(g.firstSeen))
	for i, m := range metrics {
		for _, alt := range g.firstSeen {
			rs := g.byAlt[alt]
			xs := make([]string, len(rs))
			ys := make([]float64, len(rs))
			for j, r := range rs {
				xs[j] = r.Time
				ys[j] = m.value(r)
			}
			traces = append(traces, Trace{
				Type:  "scatter",
				Name:  fmt.Sprintf("%s at %sm", m.name, formatNumber(alt)),
				Mode:  "lines+markers",
				X:     xs,
				Y:     ys,
				XAxis: axisRef("x", i+1),
				YAxis: axisRef("y", i+1),
			})
		}
	}

	bottom := axisRef("x", rows)
	xAxes := make([]*Axis, rows)
	yAxes := make([]*Axis, rows)
	annotations := make([]Annotation, rows)
	for i, m := range metrics {
		lo, hi := rowDomain(i, rows, b.opts.VerticalSpacing)
		x := &Axis{Domain: []float64{0, 1}, Anchor: axisRef("y", i+1)}
		if i < rows-1 {
			x.Matches = bottom
			x.ShowTickLabels = boolPtr(false)
		} else {
			x.Title = title("Time")
		}
		xAxes[i] = x
		yAxes[i] = &Axis{Domain: []float64{lo, hi}, Anchor: axisRef("x", i+1), Title: title(m.unit)}
		annotations[i] = Annotation{
			Text:    m.name + " Concentration",
			X:       0.5,
			Y:       hi,
			XRef:    "paper",
			YRef:    "paper",
			XAnchor: "center",
			YAnchor: "bottom",
		}
	}

	return Figure{
		Data: traces,
		Layout: Layout{
			Title:       Title{Text: b.opts.TimeSeriesTitle},
			Height:      b.opts.TimeSeriesHeight,
			ShowLegend:  boolPtr(true),
			Legend:      &Legend{Title: Title{Text: b.opts.LegendTitle}},
			XAxis:       xAxes[0],
			XAxis2:      xAxes[1],
			XAxis3:      xAxes[2],
			YAxis:       yAxes[0],
			YAxis2:      yAxes[1],
			YAxis3:      yAxes[2],
			Annotations: annotations,
		},
	}
}

func (b *Builder) scatter3D(readings []types.Reading) Figure {
	n := len(readings)
	xs := make([]float64, 0, n)
	ys := make([]float64, 0, n)
	zs := make([]float64, 0, n)
	colors := make([]float64, 0, n)
	text := make([]string, 0, n)
	for _, r := range readings {
		xs = append(xs, r.CO)
		ys = append(ys, r.H2)
		zs = append(zs, r.Dust)
		colors = append(colors, r.Altitude)
		text = append(text, hoverText(r))
	}

	marker := &Marker{
		Size:       b.opts.MarkerSize,
		Color:      colors,
		ColorScale: b.opts.ColorScale,
		Opacity:    b.opts.MarkerOpacity,
		ShowScale:  true,
		ColorBar:   &ColorBar{Title: Title{Text: "Altitude (m)"}},
	}
	if n > 0 {
		marker.CMin = floatPtr(slices.Min(colors))
		marker.CMax = floatPtr(slices.Max(colors))
	}

	return Figure{
		Data: []Trace{{
			Type:      "scatter3d",
			Mode:      "markers",
			X:         xs,
			Y:         ys,
			Z:         zs,
			Marker:    marker,
			Text:      text,
			HoverInfo: "text",
		}},
		Layout: Layout{
			Title: Title{Text: b.opts.ScatterTitle},
			Scene: &Scene{
				XAxis: Axis{Title: title("CO (" + unitPPM + ")")},
				YAxis: Axis{Title: title("H2 (" + unitPPM + ")")},
				ZAxis: Axis{Title: title("Dust (" + unitDust + ")")},
			},
		},
	}
}

func (b *Builder) box(g altitudeGroups, m metric) Figure {
	alts := g.ascending()
	traces := make([]Trace, 0, len(alts))
	for _, alt := range alts {
		rs := g.byAlt[alt]
		ys := make([]float64, len(rs))
		for j, r := range rs {
			ys[j] = m.value(r)
		}
		traces = append(traces, Trace{
			Type: "box",
			Name: formatNumber(alt) + "m",
			Y:    ys,
		})
	}
	return Figure{
		Data: traces,
		Layout: Layout{
			Title: Title{Text: strings.ReplaceAll(b.opts.BoxTitle, "{metric}", m.name)},
			XAxis: &Axis{Title: title("Altitude (m)")},
			YAxis: &Axis{Title: title(fmt.Sprintf("%s Concentration (%s)", m.name, m.unit))},
		},
	}
}

func hoverText(r types.Reading) string {
	return fmt.Sprintf("Altitude: %sm<br>Time: %s<br>CO: %s %s<br>H2: %s %s<br>Dust: %s %s",
		formatNumber(r.Altitude), r.Time,
		formatNumber(r.CO), unitPPM,
		formatNumber(r.H2), unitPPM,
		formatNumber(r.Dust), unitDust,
	)
}

// rowDomain returns the paper-coordinate span of row i (0 = top) in a stack of
// rows separated by spacing.
func rowDomain(i, rows int, spacing float64) (lo, hi float64) {
	h := (1 - spacing*float64(rows-1)) / float64(rows)
	hi = 1 - float64(i)*(h+spacing)
	lo = hi - h
	if i == rows-1 || lo < 0 {
		lo = 0
	}
	return lo, hi
}

// axisRef names the n-th axis of a kind: "x", "x2", "x3".
func axisRef(kind string, n int) string {
	if n <= 1 {
		return kind
	}
	return kind + strconv.Itoa(n)
}

// formatNumber keeps one decimal on integral values (150 -> "150.0") so labels
// read the same as the values in the source log.
func formatNumber(v float64) string {
	if v == math.Trunc(v) && math.Abs(v) < 1e16 {
		return strconv.FormatFloat(v, 'f', 1, 64)
	}
	return strconv.FormatFloat(v, 'g', -1, 64)
}
