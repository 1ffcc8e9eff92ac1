package controller

import (
	"log/slog"
	"net/http"

	"thermograph/internal/modules/store/repository"
)

type StoreController interface {
	RegisterRoutes(mux *http.ServeMux)
}

type storeControllerImpl struct {
	repository repository.ReadingRepository
	logger     *slog.Logger
}

func NewStoreController(repository repository.ReadingRepository, logger *slog.Logger) StoreController {
	if logger == nil {
		logger = slog.Default()
	}
	return &storeControllerImpl{repository: repository, logger: logger}
}

func (c *storeControllerImpl) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /get_sensor_data", c.handleGetSensorData)
	mux.HandleFunc("POST /readings", c.handlePostReadings)
}
