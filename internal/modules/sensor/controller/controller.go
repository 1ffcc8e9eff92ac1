package controller

import (
	"log/slog"
	"net/http"
	"time"

	"thermograph/internal/readings"
)

type SensorController interface {
	RegisterRoutes(mux *http.ServeMux)
}

type sensorControllerImpl struct {
	fetcher readings.Fetcher
	now     func() time.Time
	logger  *slog.Logger
}

// NewSensorController returns the UI shell controller. now supplies "today"
// for the default date range; nil means time.Now.
func NewSensorController(fetcher readings.Fetcher, now func() time.Time, logger *slog.Logger) SensorController {
	if now == nil {
		now = time.Now
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &sensorControllerImpl{fetcher: fetcher, now: now, logger: logger}
}

func (c *sensorControllerImpl) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /", c.handleIndex)
	mux.HandleFunc("GET /partials/result", c.handleResultPartial)
}
