package charts

import (
	"errors"
	"fmt"
	"os"
	"strings"

	toml "github.com/pelletier/go-toml/v2"
)

// Options holds the presentation settings of the built figures. Data and
// grouping are never affected by options.
type Options struct {
	TimeSeriesTitle  string
	TimeSeriesHeight int
	LegendTitle      string
	VerticalSpacing  float64

	ScatterTitle  string
	ColorScale    string
	MarkerSize    float64
	MarkerOpacity float64

	// BoxTitle is expanded with "{metric}" replaced by CO, H2 or Dust.
	BoxTitle string
}

func DefaultOptions() Options {
	return Options{
		TimeSeriesTitle:  "Air Quality Metrics Over Time at Different Altitudes",
		TimeSeriesHeight: 900,
		LegendTitle:      "Metrics and Altitudes",
		VerticalSpacing:  0.02,
		ScatterTitle:     "3D Scatter Plot of Air Quality Metrics",
		ColorScale:       "Viridis",
		MarkerSize:       5,
		MarkerOpacity:    0.8,
		BoxTitle:         "{metric} Distribution by Altitude",
	}
}

// LoadOptions reads chart options from a TOML file. An empty path yields the
// defaults; keys missing from the file keep their default value.
//
//	[time_series]
//	title = "Kathmandu valley survey"
//	height = 1200
//
//	[scatter_3d]
//	colorscale = "Cividis"
func LoadOptions(path string) (Options, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return DefaultOptions(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return Options{}, fmt.Errorf("read chart options: %w", err)
	}
	opts, err := ParseOptions(data)
	if err != nil {
		return Options{}, fmt.Errorf("chart options %s: %w", path, err)
	}
	return opts, nil
}

// ParseOptions decodes TOML chart options on top of DefaultOptions.
func ParseOptions(data []byte) (Options, error) {
	var raw struct {
		TimeSeries struct {
			Title           string   `toml:"title"`
			Height          int      `toml:"height"`
			LegendTitle     string   `toml:"legend_title"`
			VerticalSpacing *float64 `toml:"vertical_spacing"`
		} `toml:"time_series"`
		Scatter3D struct {
			Title         string  `toml:"title"`
			ColorScale    string  `toml:"colorscale"`
			MarkerSize    float64 `toml:"marker_size"`
			MarkerOpacity float64 `toml:"marker_opacity"`
		} `toml:"scatter_3d"`
		Box struct {
			Title string `toml:"title"`
		} `toml:"box"`
	}
	if err := toml.Unmarshal(data, &raw); err != nil {
		return Options{}, fmt.Errorf("parse: %w", err)
	}

	opts := DefaultOptions()
	setString(&opts.TimeSeriesTitle, raw.TimeSeries.Title)
	setString(&opts.LegendTitle, raw.TimeSeries.LegendTitle)
	setString(&opts.ScatterTitle, raw.Scatter3D.Title)
	setString(&opts.ColorScale, raw.Scatter3D.ColorScale)
	setString(&opts.BoxTitle, raw.Box.Title)
	if raw.TimeSeries.Height != 0 {
		opts.TimeSeriesHeight = raw.TimeSeries.Height
	}
	if raw.TimeSeries.VerticalSpacing != nil {
		opts.VerticalSpacing = *raw.TimeSeries.VerticalSpacing
	}
	if raw.Scatter3D.MarkerSize != 0 {
		opts.MarkerSize = raw.Scatter3D.MarkerSize
	}
	if raw.Scatter3D.MarkerOpacity != 0 {
		opts.MarkerOpacity = raw.Scatter3D.MarkerOpacity
	}

	if err := opts.validate(); err != nil {
		return Options{}, err
	}
	return opts, nil
}

func (o Options) validate() error {
	var errs []error
	if o.TimeSeriesHeight < 0 {
		errs = append(errs, fmt.Errorf("time_series.height must be >= 0, got %d", o.TimeSeriesHeight))
	}
	// Three rows need two gaps that leave room for the plots.
	if o.VerticalSpacing < 0 || o.VerticalSpacing >= 0.5 {
		errs = append(errs, fmt.Errorf("time_series.vertical_spacing must be in [0, 0.5), got %v", o.VerticalSpacing))
	}
	if o.MarkerSize < 0 {
		errs = append(errs, fmt.Errorf("scatter_3d.marker_size must be >= 0, got %v", o.MarkerSize))
	}
	if o.MarkerOpacity < 0 || o.MarkerOpacity > 1 {
		errs = append(errs, fmt.Errorf("scatter_3d.marker_opacity must be in [0, 1], got %v", o.MarkerOpacity))
	}
	return errors.Join(errs...)
}

func setString(dst *string, v string) {
	if v = strings.TrimSpace(v); v != "" {
		*dst = v
	}
}
