package types

import "time"

// HeaderContext is the environmental context declared by a header line. It
// applies to every reading line that follows until the next header.
type HeaderContext struct {
	Altitude    float64 // meters
	Location    string
	Windspeed   float64 // km/h
	Temperature float64 // °C
	Timestamp   string
}

// Reading is one gas/dust sample together with the header context that was
// active when its line was parsed.
type Reading struct {
	Altitude    float64 `json:"altitude"`
	Location    string  `json:"location"`
	Windspeed   float64 `json:"windspeed"`
	Temperature float64 `json:"temperature"`
	Timestamp   string  `json:"timestamp"`
	Time        string  `json:"time"`
	CO          float64 `json:"co"`
	H2          float64 `json:"h2"`
	Dust        float64 `json:"dust"`
}

// NewReading copies the header fields into a reading.
func NewReading(h HeaderContext, time string, co, h2, dust float64) Reading {
	return Reading{
		Altitude:    h.Altitude,
		Location:    h.Location,
		Windspeed:   h.Windspeed,
		Temperature: h.Temperature,
		Timestamp:   h.Timestamp,
		Time:        time,
		CO:          co,
		H2:          h2,
		Dust:        dust,
	}
}

// Header returns the header-derived part of the reading.
func (r Reading) Header() HeaderContext {
	return HeaderContext{
		Altitude:    r.Altitude,
		Location:    r.Location,
		Windspeed:   r.Windspeed,
		Temperature: r.Temperature,
		Timestamp:   r.Timestamp,
	}
}

// Upload describes one processed log, whether it came from the upload form,
// the JSON API or MQTT.
type Upload struct {
	ID            string    `json:"id"`
	Source        string    `json:"source"`
	Filename      string    `json:"filename"`
	CreatedAt     time.Time `json:"createdAt"`
	ExpiresAt     time.Time `json:"expiresAt"`
	ReadingCount  int       `json:"readingCount"`
	AltitudeCount int       `json:"altitudeCount"`
}
