// Package ingest stores readings that arrive over MQTT.
package ingest

import (
	"context"
	"log/slog"

	"thermograph/internal/modules/store/repository"
	"thermograph/internal/modules/store/types"
	"thermograph/internal/mqtt"
)

// Register attaches the store handler to subscriber.
func Register(subscriber mqtt.HandlerSetter, repo repository.ReadingRepository, logger *slog.Logger) {
	if logger == nil {
		logger = slog.Default()
	}
	subscriber.SetMessageHandler(func(ctx context.Context, reading types.Reading) error {
		logger.Debug("processing telemetry message", "timestamp", reading.Timestamp)

		if err := repo.InsertReading(ctx, reading); err != nil {
			logger.Error("failed to insert reading",
				"timestamp", reading.Timestamp,
				"error", err,
			)
			return err
		}

		logger.Debug("successfully stored telemetry", "timestamp", reading.Timestamp)
		return nil
	})
}
