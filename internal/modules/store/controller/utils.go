package controller

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"thermograph/internal/modules/store/types"
)

// maxPostBody bounds POST /readings bodies.
const maxPostBody = 1 << 20

var errBodyTooLarge = fmt.Errorf("body larger than %d bytes", maxPostBody)

func parseDayRange(r *http.Request) (from, to time.Time, err error) {
	q := r.URL.Query()
	start, end := q.Get("start"), q.Get("end")
	if start == "" || end == "" {
		return time.Time{}, time.Time{}, errors.New("'start' and 'end' are required (YYYY-MM-DD)")
	}
	from, err = time.Parse(time.DateOnly, start)
	if err != nil {
		return time.Time{}, time.Time{}, errors.New("invalid 'start' (expected YYYY-MM-DD)")
	}
	to, err = time.Parse(time.DateOnly, end)
	if err != nil {
		return time.Time{}, time.Time{}, errors.New("invalid 'end' (expected YYYY-MM-DD)")
	}
	if from.After(to) {
		return time.Time{}, time.Time{}, errors.New("'start' must be <= 'end'")
	}
	return from, to, nil
}

// decodeTelemetry accepts a single JSON object or an array of them.
func decodeTelemetry(body io.Reader) ([]types.Telemetry, error) {
	raw, err := io.ReadAll(io.LimitReader(body, maxPostBody+1))
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}
	if len(raw) > maxPostBody {
		return nil, errBodyTooLarge
	}
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return nil, errors.New("empty body")
	}

	if raw[0] == '[' {
		var batch []types.Telemetry
		if err := json.Unmarshal(raw, &batch); err != nil {
			return nil, fmt.Errorf("decode readings: %w", err)
		}
		if len(batch) == 0 {
			return nil, errors.New("empty readings array")
		}
		return batch, nil
	}
	var one types.Telemetry
	if err := json.Unmarshal(raw, &one); err != nil {
		return nil, fmt.Errorf("decode reading: %w", err)
	}
	return []types.Telemetry{one}, nil
}

// toReadings checks that each message carries every field.
func toReadings(msgs []types.Telemetry) ([]types.Reading, error) {
	out := make([]types.Reading, 0, len(msgs))
	for i, m := range msgs {
		rec, err := m.Reading()
		if err != nil {
			if len(msgs) > 1 {
				return nil, fmt.Errorf("reading %d: %w", i, err)
			}
			return nil, err
		}
		out = append(out, rec)
	}
	return out, nil
}
