package controller

import (
	"errors"
	"net/http"

	"thermograph/internal/modules/store/types"
	"thermograph/internal/utils"
)

func (c *storeControllerImpl) handleGetSensorData(w http.ResponseWriter, r *http.Request) {
	from, to, err := parseDayRange(r)
	if err != nil {
		utils.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	readings, err := c.repository.GetReadings(r.Context(), from, to)
	if err != nil {
		c.logger.Error("get sensor data: query failed", "start", from, "end", to, "error", err)
		utils.WriteError(w, http.StatusInternalServerError, "failed to load readings")
		return
	}

	rows := make([]types.ReadingRow, 0, len(readings))
	for _, rec := range readings {
		rows = append(rows, rec.Row())
	}
	utils.WriteJSON(w, http.StatusOK, rows)
}

func (c *storeControllerImpl) handlePostReadings(w http.ResponseWriter, r *http.Request) {
	msgs, err := decodeTelemetry(r.Body)
	if errors.Is(err, errBodyTooLarge) {
		utils.WriteError(w, http.StatusRequestEntityTooLarge, err.Error())
		return
	}
	if err != nil {
		utils.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}
	readings, err := toReadings(msgs)
	if err != nil {
		utils.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	if len(readings) == 1 {
		err = c.repository.InsertReading(r.Context(), readings[0])
	} else {
		err = c.repository.InsertReadings(r.Context(), readings)
	}
	if err != nil {
		c.logger.Error("post readings: insert failed", "count", len(readings), "error", err)
		utils.WriteError(w, http.StatusInternalServerError, "failed to store readings")
		return
	}

	c.logger.Debug("readings stored", "count", len(readings))
	utils.WriteJSON(w, http.StatusCreated, map[string]int{"stored": len(readings)})
}
