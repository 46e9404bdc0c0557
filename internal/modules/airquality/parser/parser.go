// Package parser turns a raw sensor log into an ordered slice of readings.
//
// A log interleaves header lines, which declare the altitude, location,
// windspeed, temperature and timestamp in effect, with reading lines carrying
// one CO/H2/Dust sample each:
//
//	Altitude=150m; Location=Kathmandu; Windspeed=12km/hr; Temperature=18'C; Timestamp=2023-01-01T10:00
//	Time:Extra:Extra:10:05 | CO Concentration: 3.2 ppm | H2 Concentration: 0.8 ppm | Dust Concentration: 45.1 µg/m³
//
// Every other line is skipped.
package parser

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"aqi-estimator/internal/modules/airquality/types"
)

const (
	headerPrefix  = "Altitude="
	readingMarker = "CO Concentration:"

	lineSep    = "\n"
	fieldSep   = ";"
	kvSep      = "="
	segmentSep = "|"
	labelSep   = ":"

	altitudeUnit    = "m"
	windspeedUnit   = "km/hr"
	temperatureUnit = "'C"

	headerFields    = 5
	readingSegments = 4
	timeTokens      = 4
)

var headerFieldNames = [headerFields]string{"altitude", "location", "windspeed", "temperature", "timestamp"}

var metricNames = [readingSegments - 1]string{"co", "h2", "dust"}

// ErrNoActiveHeader is wrapped by the ParseError returned for a reading line
// that appears before any header line.
var ErrNoActiveHeader = errors.New("no active header")

// ParseError reports a header or reading line that matched its pattern but
// could not be decoded.
type ParseError struct {
	Line   int    // 1-based
	Field  string // e.g. "altitude", "co", "header"
	Reason string
	Err    error
}

func (e *ParseError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "parse error at line %d", e.Line)
	if e.Field != "" {
		b.WriteString(": " + e.Field)
	}
	if e.Reason != "" {
		b.WriteString(": " + e.Reason)
	}
	if e.Err != nil {
		b.WriteString(": " + e.Err.Error())
	}
	return b.String()
}

func (e *ParseError) Unwrap() error { return e.Err }

// state is the accumulator folded over the input lines.
type state struct {
	header   *types.HeaderContext
	readings []types.Reading
}

// Parse decodes text line by line. The result preserves input order. On the
// first malformed header or reading line it returns a *ParseError and no
// readings.
func Parse(text string) ([]types.Reading, error) {
	st := state{readings: []types.Reading{}}
	for i, line := range strings.Split(text, lineSep) {
		next, perr := st.step(strings.TrimSuffix(line, "\r"))
		if perr != nil {
			perr.Line = i + 1
			return nil, perr
		}
		st = next
	}
	return st.readings, nil
}

func (s state) step(line string) (state, *ParseError) {
	switch {
	case strings.HasPrefix(line, headerPrefix):
		h, perr := parseHeader(line)
		if perr != nil {
			return s, perr
		}
		s.header = &h
		return s, nil

	case strings.Contains(line, readingMarker):
		if s.header == nil {
			return s, &ParseError{Field: "reading", Err: ErrNoActiveHeader}
		}
		r, perr := parseReading(*s.header, line)
		if perr != nil {
			return s, perr
		}
		s.readings = append(s.readings, r)
		return s, nil
	}
	return s, nil
}

func parseHeader(line string) (types.HeaderContext, *ParseError) {
	fields := strings.Split(line, fieldSep)
	if len(fields) != headerFields {
		return types.HeaderContext{}, &ParseError{
			Field:  "header",
			Reason: fmt.Sprintf("expected %d %q-separated fields, got %d", headerFields, fieldSep, len(fields)),
		}
	}

	var values [headerFields]string
	for i, f := range fields {
		_, v, ok := strings.Cut(f, kvSep)
		if !ok {
			return types.HeaderContext{}, &ParseError{Field: headerFieldNames[i], Reason: fmt.Sprintf("missing %q", kvSep)}
		}
		values[i] = strings.TrimSpace(v)
	}

	altitude, perr := numberWithUnit(headerFieldNames[0], values[0], altitudeUnit)
	if perr != nil {
		return types.HeaderContext{}, perr
	}
	windspeed, perr := numberWithUnit(headerFieldNames[2], values[2], windspeedUnit)
	if perr != nil {
		return types.HeaderContext{}, perr
	}
	temperature, perr := numberWithUnit(headerFieldNames[3], values[3], temperatureUnit)
	if perr != nil {
		return types.HeaderContext{}, perr
	}

	return types.HeaderContext{
		Altitude:    altitude,
		Location:    values[1],
		Windspeed:   windspeed,
		Temperature: temperature,
		Timestamp:   values[4],
	}, nil
}

func parseReading(h types.HeaderContext, line string) (types.Reading, *ParseError) {
	segments := strings.Split(line, segmentSep)
	if len(segments) != readingSegments {
		return types.Reading{}, &ParseError{
			Field:  "reading",
			Reason: fmt.Sprintf("expected %d %q-separated segments, got %d", readingSegments, segmentSep, len(segments)),
		}
	}

	// The time itself contains ':' so everything from the fourth token on is kept.
	tokens := strings.SplitN(segments[0], labelSep, timeTokens)
	if len(tokens) < timeTokens {
		return types.Reading{}, &ParseError{
			Field:  "time",
			Reason: fmt.Sprintf("expected at least %d %q-separated tokens, got %d", timeTokens, labelSep, len(tokens)),
		}
	}

	var metrics [readingSegments - 1]float64
	for i, name := range metricNames {
		v, perr := labeledValue(name, segments[i+1])
		if perr != nil {
			return types.Reading{}, perr
		}
		metrics[i] = v
	}

	return types.NewReading(h, strings.TrimSpace(tokens[3]), metrics[0], metrics[1], metrics[2]), nil
}

// labeledValue extracts <number> from "Label: <number> <unit>".
func labeledValue(field, segment string) (float64, *ParseError) {
	_, rest, ok := strings.Cut(segment, labelSep)
	if !ok {
		return 0, &ParseError{Field: field, Reason: fmt.Sprintf("missing %q", labelSep)}
	}
	tokens := strings.Fields(rest)
	if len(tokens) < 2 {
		return 0, &ParseError{Field: field, Reason: fmt.Sprintf("expected \"<number> <unit>\", got %q", strings.TrimSpace(rest))}
	}
	return number(field, tokens[0])
}

// numberWithUnit parses the text before the first occurrence of unit.
func numberWithUnit(field, value, unit string) (float64, *ParseError) {
	before, _, ok := strings.Cut(value, unit)
	if !ok {
		return 0, &ParseError{Field: field, Reason: fmt.Sprintf("missing unit %q in %q", unit, value)}
	}
	return number(field, before)
}

func number(field, s string) (float64, *ParseError) {
	s = strings.TrimSpace(s)
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, &ParseError{Field: field, Reason: fmt.Sprintf("invalid number %q", s), Err: err}
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, &ParseError{Field: field, Reason: fmt.Sprintf("non-finite number %q", s)}
	}
	return v, nil
}
