package charts

import (
	"encoding/json"
	"fmt"
)

// Chart names. Clients look these up verbatim.
const (
	TimeSeries = "time_series"
	Scatter3D  = "3d_scatter"
	COBox      = "co_box"
	H2Box      = "h2_box"
	DustBox    = "dust_box"
)

// Names lists every chart Build produces.
var Names = []string{TimeSeries, Scatter3D, COBox, H2Box, DustBox}

// Charts maps a chart name to its figure.
type Charts map[string]Figure

// Encode marshals each figure separately, for storage keyed by chart name.
func (c Charts) Encode() (map[string]json.RawMessage, error) {
	out := make(map[string]json.RawMessage, len(c))
	for name, fig := range c {
		b, err := json.Marshal(fig)
		if err != nil {
			return nil, fmt.Errorf("encode chart %s: %w", name, err)
		}
		out[name] = b
	}
	return out, nil
}

// Figure is a declarative chart description in the shape Plotly's
// Plotly.newPlot(el, data, layout) expects.
type Figure struct {
	Data   []Trace `json:"data"`
	Layout Layout  `json:"layout"`
}

// Trace is one plotted series. X holds []string for time axes and []float64
// otherwise; Z is []float64 for 3D traces only.
type Trace struct {
	Type      string    `json:"type"`
	Name      string    `json:"name,omitempty"`
	Mode      string    `json:"mode,omitempty"`
	X         any       `json:"x,omitempty"`
	Y         []float64 `json:"y"`
	Z         any       `json:"z,omitempty"`
	XAxis     string    `json:"xaxis,omitempty"`
	YAxis     string    `json:"yaxis,omitempty"`
	Marker    *Marker   `json:"marker,omitempty"`
	Text      []string  `json:"text,omitempty"`
	HoverInfo string    `json:"hoverinfo,omitempty"`
}

type Marker struct {
	Size       float64   `json:"size,omitempty"`
	Color      []float64 `json:"color"`
	ColorScale string    `json:"colorscale,omitempty"`
	CMin       *float64  `json:"cmin,omitempty"`
	CMax       *float64  `json:"cmax,omitempty"`
	Opacity    float64   `json:"opacity,omitempty"`
	ShowScale  bool      `json:"showscale"`
	ColorBar   *ColorBar `json:"colorbar,omitempty"`
}

type ColorBar struct {
	Title Title `json:"title"`
}

type Title struct {
	Text string `json:"text"`
}

type Axis struct {
	Title          *Title    `json:"title,omitempty"`
	Domain         []float64 `json:"domain,omitempty"`
	Anchor         string    `json:"anchor,omitempty"`
	Matches        string    `json:"matches,omitempty"`
	ShowTickLabels *bool     `json:"showticklabels,omitempty"`
}

type Scene struct {
	XAxis Axis `json:"xaxis"`
	YAxis Axis `json:"yaxis"`
	ZAxis Axis `json:"zaxis"`
}

type Legend struct {
	Title Title `json:"title"`
}

type Annotation struct {
	Text      string  `json:"text"`
	X         float64 `json:"x"`
	Y         float64 `json:"y"`
	XRef      string  `json:"xref"`
	YRef      string  `json:"yref"`
	XAnchor   string  `json:"xanchor"`
	YAnchor   string  `json:"yanchor"`
	ShowArrow bool    `json:"showarrow"`
}

// Layout carries the axis and figure metadata. The numbered axes are used by
// the stacked time-series chart only.
type Layout struct {
	Title       Title        `json:"title"`
	Height      int          `json:"height,omitempty"`
	ShowLegend  *bool        `json:"showlegend,omitempty"`
	Legend      *Legend      `json:"legend,omitempty"`
	XAxis       *Axis        `json:"xaxis,omitempty"`
	XAxis2      *Axis        `json:"xaxis2,omitempty"`
	XAxis3      *Axis        `json:"xaxis3,omitempty"`
	YAxis       *Axis        `json:"yaxis,omitempty"`
	YAxis2      *Axis        `json:"yaxis2,omitempty"`
	YAxis3      *Axis        `json:"yaxis3,omitempty"`
	Scene       *Scene       `json:"scene,omitempty"`
	Annotations []Annotation `json:"annotations,omitempty"`
}

func title(s string) *Title { return &Title{Text: s} }

func boolPtr(b bool) *bool { return &b }

func floatPtr(f float64) *float64 { return &f }
