package types

import "time"

// RawRow is one decoded object from the readings endpoint, keys as sent.
type RawRow map[string]any

// RawTable holds rows in the order the endpoint returned them.
type RawTable []RawRow

// Reading is one sample plus its trailing moving averages.
// TempMA and HumMA are nil until the averaging window is full.
type Reading struct {
	Timestamp   time.Time `json:"timestamp"`
	Temperature float64   `json:"temperature"`
	Humidity    float64   `json:"humidity"`
	TempMA      *float64  `json:"temp_ma"`
	HumMA       *float64  `json:"hum_ma"`
}

type Table struct {
	Readings []Reading `json:"readings"`
}

func (t Table) Len() int {
	return len(t.Readings)
}
