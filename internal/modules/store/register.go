package store

import (
	"database/sql"
	"log/slog"
	"net/http"

	"thermograph/internal/modules/store/controller"
	"thermograph/internal/modules/store/ingest"
	"thermograph/internal/modules/store/repository"
	"thermograph/internal/mqtt"
)

// RegisterFeature serves the readings endpoints and, when subscriber is not
// nil, stores MQTT telemetry.
func RegisterFeature(mux *http.ServeMux, db *sql.DB, subscriber mqtt.HandlerSetter, logger *slog.Logger) {
	readingRepository := repository.NewRepository(db)
	storeController := controller.NewStoreController(readingRepository, logger)
	storeController.RegisterRoutes(mux)
	if subscriber != nil {
		ingest.Register(subscriber, readingRepository, logger)
	}
}
