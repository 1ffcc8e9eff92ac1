package controller

import (
	"fmt"
	"net/http"
	"time"
)

const (
	pageTitle        = "Temperature & Humidity"
	defaultRangeDays = 7

	msgStartAfterEnd = "start date must be on or before end date"
	msgNoData        = "no data found for the selected range"
	msgFetchError    = "data fetch error: %v"
)

// dateRange is the selected range as the user typed it and, when valid, parsed.
type dateRange struct {
	Start, End     string
	StartAt, EndAt time.Time
}

// parseDateRange reads start/end (YYYY-MM-DD) from the query. Missing values
// default to [today - 7 days, today] in the location of now.
func parseDateRange(r *http.Request, now time.Time) (dateRange, error) {
	q := r.URL.Query()
	today := now.Format(time.DateOnly)
	rng := dateRange{
		Start: q.Get("start"),
		End:   q.Get("end"),
	}
	if rng.Start == "" {
		rng.Start = now.AddDate(0, 0, -defaultRangeDays).Format(time.DateOnly)
	}
	if rng.End == "" {
		rng.End = today
	}

	var err error
	rng.StartAt, err = time.Parse(time.DateOnly, rng.Start)
	if err != nil {
		return rng, fmt.Errorf("invalid start date %q (expected YYYY-MM-DD)", rng.Start)
	}
	rng.EndAt, err = time.Parse(time.DateOnly, rng.End)
	if err != nil {
		return rng, fmt.Errorf("invalid end date %q (expected YYYY-MM-DD)", rng.End)
	}
	return rng, nil
}

func (d dateRange) params() string {
	return fmt.Sprintf("start=%s end=%s", d.Start, d.End)
}
