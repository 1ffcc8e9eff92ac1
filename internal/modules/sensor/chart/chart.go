// Package chart builds the dual-axis temperature/humidity line chart.
package chart

import (
	"errors"
	"io"
	"time"

	gochart "github.com/wcharczuk/go-chart/v2"
	"github.com/wcharczuk/go-chart/v2/drawing"

	"thermograph/internal/modules/sensor/types"
)

const (
	Width  = 1000
	Height = 500

	XAxisLabel         = "date/time"
	TemperatureLabel   = "temperature (°C)"
	HumidityLabel      = "humidity (%)"
	TemperatureMALabel = "temperature moving average"
	HumidityMALabel    = "humidity moving average"

	timeFormat = "01-02 15:04"
)

var (
	ColorTemperature   = drawing.ColorFromHex("ff0000")
	ColorTemperatureMA = drawing.ColorFromHex("ffa500")
	ColorHumidity      = drawing.ColorFromHex("0000ff")
	ColorHumidityMA    = drawing.ColorFromHex("87ceeb")

	dashed = []float64{6, 4}
)

// go-chart draws its primary y axis on the right, so humidity is primary and
// temperature sits on the secondary (left) axis.
const (
	temperatureAxis = gochart.YAxisSecondary
	humidityAxis    = gochart.YAxisPrimary
)

var ErrEmptyTable = errors.New("chart: no readings to plot")

// Build returns the chart for table. Undefined moving-average rows are left out
// of their series; a series with no points at all is not added.
func Build(table types.Table) gochart.Chart {
	n := table.Len()
	xs := make([]time.Time, 0, n)
	temps := make([]float64, 0, n)
	hums := make([]float64, 0, n)
	var tempMAXs, humMAXs []time.Time
	var tempMA, humMA []float64

	for _, r := range table.Readings {
		xs = append(xs, r.Timestamp)
		temps = append(temps, r.Temperature)
		hums = append(hums, r.Humidity)
		if r.TempMA != nil {
			tempMAXs = append(tempMAXs, r.Timestamp)
			tempMA = append(tempMA, *r.TempMA)
		}
		if r.HumMA != nil {
			humMAXs = append(humMAXs, r.Timestamp)
			humMA = append(humMA, *r.HumMA)
		}
	}

	var series []gochart.Series
	if n > 0 {
		series = append(series, gochart.TimeSeries{
			Name:    TemperatureLabel,
			YAxis:   temperatureAxis,
			Style:   lineStyle(ColorTemperature, false),
			XValues: xs,
			YValues: temps,
		})
	}
	if len(tempMA) > 0 {
		series = append(series, gochart.TimeSeries{
			Name:    TemperatureMALabel,
			YAxis:   temperatureAxis,
			Style:   lineStyle(ColorTemperatureMA, true),
			XValues: tempMAXs,
			YValues: tempMA,
		})
	}
	if n > 0 {
		series = append(series, gochart.TimeSeries{
			Name:    HumidityLabel,
			YAxis:   humidityAxis,
			Style:   lineStyle(ColorHumidity, false),
			XValues: xs,
			YValues: hums,
		})
	}
	if len(humMA) > 0 {
		series = append(series, gochart.TimeSeries{
			Name:    HumidityMALabel,
			YAxis:   humidityAxis,
			Style:   lineStyle(ColorHumidityMA, true),
			XValues: humMAXs,
			YValues: humMA,
		})
	}

	c := gochart.Chart{
		Width:  Width,
		Height: Height,
		Background: gochart.Style{
			Padding: gochart.Box{Top: 20, Left: 20, Right: 20, Bottom: 20},
		},
		XAxis: gochart.XAxis{
			Name:           XAxisLabel,
			ValueFormatter: gochart.TimeValueFormatterWithFormat(timeFormat),
			Range:          timeRange(xs),
		},
		YAxisSecondary: gochart.YAxis{
			Name:  TemperatureLabel,
			Range: valueRange(temps),
		},
		YAxis: gochart.YAxis{
			Name:  HumidityLabel,
			Range: valueRange(hums),
		},
		Series: series,
	}
	// Legend draws at the top-left corner of the plot area.
	c.Elements = []gochart.Renderable{gochart.Legend(&c)}
	return c
}

// RenderSVG builds the chart for table and writes it to w as SVG.
func RenderSVG(w io.Writer, table types.Table) error {
	if table.Len() == 0 {
		return ErrEmptyTable
	}
	c := Build(table)
	return c.Render(gochart.SVG, w)
}

func lineStyle(color drawing.Color, dash bool) gochart.Style {
	s := gochart.Style{
		StrokeColor: color,
		StrokeWidth: 2,
	}
	if dash {
		s.StrokeDashArray = dashed
	}
	return s
}

func timeRange(xs []time.Time) gochart.Range {
	if len(xs) == 0 {
		return nil
	}
	lo, hi := xs[0], xs[0]
	for _, x := range xs[1:] {
		if x.Before(lo) {
			lo = x
		}
		if x.After(hi) {
			hi = x
		}
	}
	if lo.Equal(hi) {
		lo = lo.Add(-30 * time.Minute)
		hi = hi.Add(30 * time.Minute)
	}
	return &gochart.ContinuousRange{
		Min: gochart.TimeToFloat64(lo),
		Max: gochart.TimeToFloat64(hi),
	}
}

func valueRange(vs []float64) gochart.Range {
	if len(vs) == 0 {
		return nil
	}
	lo, hi := vs[0], vs[0]
	for _, v := range vs[1:] {
		lo = min(lo, v)
		hi = max(hi, v)
	}
	pad := (hi - lo) * 0.05
	if pad == 0 {
		pad = 1
	}
	return &gochart.ContinuousRange{Min: lo - pad, Max: hi + pad}
}
