package transform

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"thermograph/internal/modules/sensor/types"
)

// Window is the number of trailing samples averaged per row.
const Window = 31

const (
	ColTimestamp   = "timestamp"
	ColTemperature = "temperature"
	ColHumidity    = "humidity"
)

var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02 15:04:05.999999999",
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04",
	"2006-01-02T15:04",
	time.DateOnly,
}

// Augment converts raw rows into readings and fills the moving-average columns.
// Row order is kept as received. The first malformed row fails the whole table.
func Augment(raw types.RawTable) (types.Table, error) {
	readings := make([]types.Reading, len(raw))
	temps := make([]float64, len(raw))
	hums := make([]float64, len(raw))

	for i, row := range raw {
		tsVal, ok := row[ColTimestamp]
		if !ok {
			return types.Table{}, missingColumn(i, ColTimestamp)
		}
		ts, err := ParseTimestamp(tsVal)
		if err != nil {
			return types.Table{}, fmt.Errorf("row %d: %s: %w", i, ColTimestamp, err)
		}

		temp, err := numberColumn(row, i, ColTemperature)
		if err != nil {
			return types.Table{}, err
		}
		hum, err := numberColumn(row, i, ColHumidity)
		if err != nil {
			return types.Table{}, err
		}

		readings[i] = types.Reading{Timestamp: ts, Temperature: temp, Humidity: hum}
		temps[i] = temp
		hums[i] = hum
	}

	tempMA := RollingMean(temps, Window)
	humMA := RollingMean(hums, Window)
	for i := range readings {
		readings[i].TempMA = tempMA[i]
		readings[i].HumMA = humMA[i]
	}

	return types.Table{Readings: readings}, nil
}

// RollingMean returns the trailing mean over window samples for every index.
// Entries before the window is full are nil. The output has len(values) entries.
func RollingMean(values []float64, window int) []*float64 {
	out := make([]*float64, len(values))
	if window <= 0 {
		return out
	}
	for i := window - 1; i < len(values); i++ {
		win := values[i-window+1 : i+1]
		// Sum deviations from the first sample; a constant window then averages
		// to exactly that sample.
		base := win[0]
		var dev float64
		for _, v := range win {
			dev += v - base
		}
		mean := base + dev/float64(window)
		out[i] = &mean
	}
	return out
}

// ParseTimestamp accepts the textual layouts the readings endpoint may send,
// or a number of Unix seconds. Zone-less values are taken as UTC.
func ParseTimestamp(v any) (time.Time, error) {
	switch x := v.(type) {
	case string:
		s := strings.TrimSpace(x)
		if s == "" {
			return time.Time{}, fmt.Errorf("empty timestamp")
		}
		for _, layout := range timestampLayouts {
			if t, err := time.Parse(layout, s); err == nil {
				return t, nil
			}
		}
		if secs, err := strconv.ParseFloat(s, 64); err == nil {
			return unixSeconds(secs)
		}
		return time.Time{}, fmt.Errorf("unrecognized timestamp %q", x)
	case float64:
		return unixSeconds(x)
	case json.Number:
		f, err := x.Float64()
		if err != nil {
			return time.Time{}, fmt.Errorf("invalid timestamp %q: %w", x.String(), err)
		}
		return unixSeconds(f)
	case nil:
		return time.Time{}, fmt.Errorf("null timestamp")
	default:
		return time.Time{}, fmt.Errorf("unsupported timestamp type %T", v)
	}
}

func unixSeconds(secs float64) (time.Time, error) {
	if math.IsNaN(secs) || math.IsInf(secs, 0) {
		return time.Time{}, fmt.Errorf("invalid unix timestamp %v", secs)
	}
	whole, frac := math.Modf(secs)
	return time.Unix(int64(whole), int64(frac*1e9)).UTC(), nil
}

func numberColumn(row types.RawRow, i int, col string) (float64, error) {
	v, ok := row[col]
	if !ok {
		return 0, missingColumn(i, col)
	}
	f, err := toFloat(v)
	if err != nil {
		return 0, fmt.Errorf("row %d: %s: %w", i, col, err)
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, fmt.Errorf("row %d: %s: not a finite number: %v", i, col, f)
	}
	return f, nil
}

func toFloat(v any) (float64, error) {
	switch x := v.(type) {
	case float64:
		return x, nil
	case json.Number:
		return x.Float64()
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(x), 64)
		if err != nil {
			return 0, fmt.Errorf("not a number: %q", x)
		}
		return f, nil
	case nil:
		return 0, fmt.Errorf("null value")
	default:
		return 0, fmt.Errorf("unsupported type %T", v)
	}
}

func missingColumn(i int, col string) error {
	return fmt.Errorf("row %d: missing column %q", i, col)
}
