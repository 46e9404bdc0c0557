package parser

import (
	"errors"
	"reflect"
	"strconv"
	"strings"
	"testing"

	"aqi-estimator/internal/modules/airquality/types"
)

const (
	kathmanduHeader = "Altitude=150m; Location=Kathmandu; Windspeed=12km/hr; Temperature=18'C; Timestamp=2023-01-01T10:00"
	kathmanduRow    = "Time:Extra:Extra:10:05 | CO Concentration: 3.2 ppm | H2 Concentration: 0.8 ppm | Dust Concentration: 45.1 µg/m³"
)

func header(alt string) string {
	return "Altitude=" + alt + "m; Location=Pokhara; Windspeed=8km/hr; Temperature=21'C; Timestamp=2023-02-01T09:00"
}

func row(tm string, co, h2, dust string) string {
	return "Time:Extra:Extra:" + tm + " | CO Concentration: " + co + " ppm | H2 Concentration: " + h2 + " ppm | Dust Concentration: " + dust + " µg/m³"
}

func TestParse_singleReading(t *testing.T) {
	got, err := Parse(kathmanduHeader + "\n" + kathmanduRow)
	if err != nil {
		t.Fatalf("Parse() err = %v; want nil", err)
	}
	want := []types.Reading{{
		Altitude:    150,
		Location:    "Kathmandu",
		Windspeed:   12,
		Temperature: 18,
		Timestamp:   "2023-01-01T10:00",
		Time:        "10:05",
		CO:          3.2,
		H2:          0.8,
		Dust:        45.1,
	}}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Parse() = %+v; want %+v", got, want)
	}
}

func TestParse_emptyInput(t *testing.T) {
	tests := []struct {
		name string
		in   string
	}{
		{name: "empty string", in: ""},
		{name: "blank lines", in: "\n\n  \n"},
		{name: "header only", in: kathmanduHeader},
		{name: "noise only", in: "boot ok\nsensor warmup\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Parse(tt.in)
			if err != nil {
				t.Fatalf("Parse() err = %v; want nil", err)
			}
			if got == nil || len(got) != 0 {
				t.Errorf("Parse() = %#v; want empty non-nil slice", got)
			}
		})
	}
}

func TestParse_headerCarriedForward(t *testing.T) {
	in := strings.Join([]string{
		kathmanduHeader,
		row("10:05", "3.2", "0.8", "45.1"),
		"some unrelated diagnostic line",
		row("10:06", "3.4", "0.9", "47"),
	}, "\n")

	got, err := Parse(in)
	if err != nil {
		t.Fatalf("Parse() err = %v; want nil", err)
	}
	if len(got) != 2 {
		t.Fatalf("len(Parse()) = %d; want 2", len(got))
	}
	if got[0].Header() != got[1].Header() {
		t.Errorf("header fields differ: %+v vs %+v", got[0].Header(), got[1].Header())
	}
	if got[0].Time != "10:05" || got[1].Time != "10:06" {
		t.Errorf("times = %q, %q; want 10:05, 10:06", got[0].Time, got[1].Time)
	}
}

func TestParse_headerReplacedInFull(t *testing.T) {
	in := strings.Join([]string{
		header("300"),
		row("09:00", "1", "2", "3"),
		kathmanduHeader,
		row("10:05", "4", "5", "6"),
		header("200"),
		row("11:00", "7", "8", "9"),
	}, "\n")

	got, err := Parse(in)
	if err != nil {
		t.Fatalf("Parse() err = %v; want nil", err)
	}
	wantAlt := []float64{300, 150, 200}
	wantLoc := []string{"Pokhara", "Kathmandu", "Pokhara"}
	if len(got) != len(wantAlt) {
		t.Fatalf("len(Parse()) = %d; want %d", len(got), len(wantAlt))
	}
	for i := range got {
		if got[i].Altitude != wantAlt[i] || got[i].Location != wantLoc[i] {
			t.Errorf("reading[%d] = (%v, %q); want (%v, %q)", i, got[i].Altitude, got[i].Location, wantAlt[i], wantLoc[i])
		}
	}
}

func TestParse_preservesLineOrder(t *testing.T) {
	var lines []string
	lines = append(lines, kathmanduHeader)
	for i := 9; i >= 0; i-- {
		lines = append(lines, row("10:0"+strconv.Itoa(i), strconv.Itoa(i), "1", "1"))
	}
	got, err := Parse(strings.Join(lines, "\n"))
	if err != nil {
		t.Fatalf("Parse() err = %v; want nil", err)
	}
	for i, r := range got {
		if want := float64(9 - i); r.CO != want {
			t.Errorf("reading[%d].CO = %v; want %v", i, r.CO, want)
		}
	}
}

func TestParse_crlf(t *testing.T) {
	got, err := Parse(kathmanduHeader + "\r\n" + kathmanduRow + "\r\n")
	if err != nil {
		t.Fatalf("Parse() err = %v; want nil", err)
	}
	if len(got) != 1 {
		t.Fatalf("len(Parse()) = %d; want 1", len(got))
	}
	if got[0].Timestamp != "2023-01-01T10:00" || got[0].Dust != 45.1 {
		t.Errorf("reading = %+v; want CR stripped", got[0])
	}
}

func TestParse_idempotent(t *testing.T) {
	in := strings.Join([]string{header("300"), row("09:00", "1", "2", "3"), kathmanduHeader, kathmanduRow}, "\n")
	a, err := Parse(in)
	if err != nil {
		t.Fatalf("Parse() err = %v", err)
	}
	b, err := Parse(in)
	if err != nil {
		t.Fatalf("Parse() err = %v", err)
	}
	if !reflect.DeepEqual(a, b) {
		t.Errorf("Parse() not idempotent: %+v vs %+v", a, b)
	}
}

func TestParse_readingBeforeHeader(t *testing.T) {
	in := "intro\n" + kathmanduRow + "\n" + kathmanduHeader
	for i := 0; i < 3; i++ {
		got, err := Parse(in)
		if err == nil {
			t.Fatalf("Parse() err = nil; want ErrNoActiveHeader")
		}
		if !errors.Is(err, ErrNoActiveHeader) {
			t.Errorf("errors.Is(err, ErrNoActiveHeader) = false; err = %v", err)
		}
		var perr *ParseError
		if !errors.As(err, &perr) {
			t.Fatalf("err is %T; want *ParseError", err)
		}
		if perr.Line != 2 {
			t.Errorf("Line = %d; want 2", perr.Line)
		}
		if got != nil {
			t.Errorf("Parse() = %v; want nil on error", got)
		}
	}
}

func TestParse_malformed(t *testing.T) {
	tests := []struct {
		name      string
		in        string
		wantLine  int
		wantField string
	}{
		{
			name:      "header with four fields",
			in:        "Altitude=150m; Location=Kathmandu; Windspeed=12km/hr; Temperature=18'C",
			wantLine:  1,
			wantField: "header",
		},
		{
			name:      "header with six fields",
			in:        kathmanduHeader + "; Extra=1",
			wantLine:  1,
			wantField: "header",
		},
		{
			name:      "header field without equals",
			in:        "Altitude=150m; Kathmandu; Windspeed=12km/hr; Temperature=18'C; Timestamp=x",
			wantLine:  1,
			wantField: "location",
		},
		{
			name:      "altitude not numeric",
			in:        "Altitude=highm; Location=K; Windspeed=12km/hr; Temperature=18'C; Timestamp=x",
			wantLine:  1,
			wantField: "altitude",
		},
		{
			name:      "windspeed missing unit",
			in:        "Altitude=150m; Location=K; Windspeed=12kph; Temperature=18'C; Timestamp=x",
			wantLine:  1,
			wantField: "windspeed",
		},
		{
			name:      "temperature with degree sign",
			in:        "Altitude=150m; Location=K; Windspeed=12km/hr; Temperature=18°C; Timestamp=x",
			wantLine:  1,
			wantField: "temperature",
		},
		{
			name:      "altitude NaN",
			in:        "Altitude=NaNm; Location=K; Windspeed=12km/hr; Temperature=18'C; Timestamp=x",
			wantLine:  1,
			wantField: "altitude",
		},
		{
			name:      "reading with three segments",
			in:        kathmanduHeader + "\nTime:a:b:10:05 | CO Concentration: 3.2 ppm | H2 Concentration: 0.8 ppm",
			wantLine:  2,
			wantField: "reading",
		},
		{
			name:      "reading time too short",
			in:        kathmanduHeader + "\nTime:10 | CO Concentration: 3.2 ppm | H2 Concentration: 0.8 ppm | Dust Concentration: 1 µg/m³",
			wantLine:  2,
			wantField: "time",
		},
		{
			name:      "co not numeric",
			in:        kathmanduHeader + "\n" + row("10:05", "n/a", "0.8", "45.1"),
			wantLine:  2,
			wantField: "co",
		},
		{
			name:      "h2 missing unit",
			in:        kathmanduHeader + "\nTime:a:b:10:05 | CO Concentration: 3.2 ppm | H2 Concentration: 0.8 | Dust Concentration: 1 µg/m³",
			wantLine:  2,
			wantField: "h2",
		},
		{
			name:      "dust missing colon",
			in:        kathmanduHeader + "\nTime:a:b:10:05 | CO Concentration: 3.2 ppm | H2 Concentration: 0.8 ppm | Dust 1 µg/m³",
			wantLine:  2,
			wantField: "dust",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Parse(tt.in)
			if err == nil {
				t.Fatalf("Parse() err = nil; want *ParseError (got %+v)", got)
			}
			var perr *ParseError
			if !errors.As(err, &perr) {
				t.Fatalf("err is %T; want *ParseError", err)
			}
			if perr.Line != tt.wantLine {
				t.Errorf("Line = %d; want %d", perr.Line, tt.wantLine)
			}
			if perr.Field != tt.wantField {
				t.Errorf("Field = %q; want %q (err = %v)", perr.Field, tt.wantField, err)
			}
			if !strings.Contains(err.Error(), "line "+strconv.Itoa(tt.wantLine)) {
				t.Errorf("Error() = %q; want line number", err.Error())
			}
		})
	}
}

func TestParse_numericErrorUnwrapsToStrconv(t *testing.T) {
	_, err := Parse(kathmanduHeader + "\n" + row("10:05", "abc", "0.8", "45.1"))
	var numErr *strconv.NumError
	if !errors.As(err, &numErr) {
		t.Fatalf("errors.As(err, *strconv.NumError) = false; err = %v", err)
	}
}

func TestParse_lenientValues(t *testing.T) {
	tests := []struct {
		name string
		line string
		want float64
	}{
		{name: "spaces around value", line: "Altitude=  150 m ; Location=K; Windspeed=12km/hr; Temperature=18'C; Timestamp=x", want: 150},
		{name: "key ignored", line: "Altitude=150m; Place=K; Speed=12km/hr; Temp=18'C; When=x", want: 150},
		{name: "negative altitude", line: "Altitude=-5.5m; Location=K; Windspeed=12km/hr; Temperature=-3'C; Timestamp=x", want: -5.5},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Parse(tt.line + "\n" + kathmanduRow)
			if err != nil {
				t.Fatalf("Parse() err = %v; want nil", err)
			}
			if got[0].Altitude != tt.want {
				t.Errorf("Altitude = %v; want %v", got[0].Altitude, tt.want)
			}
		})
	}
}
