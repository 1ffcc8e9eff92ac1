package types

import (
	"errors"
	"fmt"
	"time"
)

// TimestampLayout is how readings are stored and served by the dev API.
const TimestampLayout = time.DateTime

// Reading is one stored sample.
type Reading struct {
	Timestamp   time.Time
	Temperature float64
	Humidity    float64
}

// Telemetry is the message a sensor publishes over MQTT or POSTs to /readings.
// Pointer fields distinguish a missing value from zero.
type Telemetry struct {
	Timestamp   time.Time `json:"timestamp"`
	Temperature *float64  `json:"temperature"`
	Humidity    *float64  `json:"humidity"`
}

// ReadingRow is the JSON row served by GET /get_sensor_data.
type ReadingRow struct {
	Timestamp   string  `json:"timestamp"`
	Temperature float64 `json:"temperature"`
	Humidity    float64 `json:"humidity"`
}

func (r Reading) Row() ReadingRow {
	return ReadingRow{
		Timestamp:   r.Timestamp.UTC().Format(TimestampLayout),
		Temperature: r.Temperature,
		Humidity:    r.Humidity,
	}
}

// Reading converts t after checking that every field is present and humidity
// is within 0-100.
func (t Telemetry) Reading() (Reading, error) {
	if t.Timestamp.IsZero() {
		return Reading{}, errors.New("timestamp is required")
	}
	if t.Temperature == nil {
		return Reading{}, errors.New("temperature is required")
	}
	if t.Humidity == nil {
		return Reading{}, errors.New("humidity is required")
	}
	if *t.Humidity < 0 || *t.Humidity > 100 {
		return Reading{}, fmt.Errorf("humidity out of range: %f (must be 0-100)", *t.Humidity)
	}
	return Reading{Timestamp: t.Timestamp, Temperature: *t.Temperature, Humidity: *t.Humidity}, nil
}
