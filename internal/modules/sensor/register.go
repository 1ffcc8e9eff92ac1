package sensor

import (
	"log/slog"
	"net/http"
	"time"

	"thermograph/internal/modules/sensor/controller"
	"thermograph/internal/readings"
)

func RegisterFeature(mux *http.ServeMux, fetcher readings.Fetcher, logger *slog.Logger) {
	sensorController := controller.NewSensorController(fetcher, time.Now, logger)
	sensorController.RegisterRoutes(mux)
}
