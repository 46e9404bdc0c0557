package charts

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadOptions_emptyPathDefaults(t *testing.T) {
	got, err := LoadOptions("  ")
	if err != nil {
		t.Fatalf("LoadOptions() err = %v; want nil", err)
	}
	if got != DefaultOptions() {
		t.Errorf("LoadOptions(\"\") = %+v; want defaults", got)
	}
}

func TestLoadOptions_missingFile(t *testing.T) {
	_, err := LoadOptions(filepath.Join(t.TempDir(), "nope.toml"))
	if err == nil {
		t.Fatal("LoadOptions(missing) err = nil; want error")
	}
}

func TestLoadOptions_overrides(t *testing.T) {
	path := filepath.Join(t.TempDir(), "charts.toml")
	body := `
[time_series]
title = "Valley survey"
height = 1200
vertical_spacing = 0.05

[scatter_3d]
colorscale = "Cividis"
marker_opacity = 0.5

[box]
title = "{metric} spread"
`
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	got, err := LoadOptions(path)
	if err != nil {
		t.Fatalf("LoadOptions() err = %v; want nil", err)
	}
	want := DefaultOptions()
	want.TimeSeriesTitle = "Valley survey"
	want.TimeSeriesHeight = 1200
	want.VerticalSpacing = 0.05
	want.ColorScale = "Cividis"
	want.MarkerOpacity = 0.5
	want.BoxTitle = "{metric} spread"
	if got != want {
		t.Errorf("LoadOptions() = %+v; want %+v", got, want)
	}
}

func TestParseOptions_invalid(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{name: "not toml", body: "[time_series\nheight ="},
		{name: "wrong type", body: "[time_series]\nheight = \"tall\""},
		{name: "negative height", body: "[time_series]\nheight = -1"},
		{name: "spacing too large", body: "[time_series]\nvertical_spacing = 0.6"},
		{name: "opacity above one", body: "[scatter_3d]\nmarker_opacity = 1.5"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := ParseOptions([]byte(tt.body)); err == nil {
				t.Fatalf("ParseOptions(%q) err = nil; want error", tt.body)
			}
		})
	}
}

func TestParseOptions_zeroSpacingAllowed(t *testing.T) {
	got, err := ParseOptions([]byte("[time_series]\nvertical_spacing = 0.0"))
	if err != nil {
		t.Fatalf("ParseOptions() err = %v", err)
	}
	if got.VerticalSpacing != 0 {
		t.Errorf("VerticalSpacing = %v; want 0", got.VerticalSpacing)
	}
}
