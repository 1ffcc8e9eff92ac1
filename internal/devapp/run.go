// Package devapp runs the local readings API the viewer can point at during
// development: SQLite storage fed by MQTT telemetry or POST /readings.
package devapp

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"thermograph/internal/config"
	"thermograph/internal/db"
	"thermograph/internal/httpapi"
	"thermograph/internal/migrate"
	"thermograph/internal/modules/store"
	"thermograph/internal/mqtt"
)

// Migrate opens the database, applies pending migrations and closes it.
func Migrate(ctx context.Context, cfg config.DevAPIConfig, logger *slog.Logger) error {
	dbConn, err := db.Open(cfg, logger)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := db.Close(dbConn); closeErr != nil {
			logger.Error("db close", "error", closeErr)
		}
	}()

	applied, err := migrate.Run(ctx, dbConn, logger)
	if err != nil {
		return err
	}
	logger.Info("migrations applied", "count", len(applied))
	return nil
}

func Run(ctx context.Context, cfg config.DevAPIConfig, logger *slog.Logger) error {
	logger.Info("config loaded",
		"appEnv", cfg.AppEnv,
		"logLevel", cfg.LogLevel.String(),
		"httpAddr", cfg.HTTPAddr,
		"sqliteDriver", cfg.SQLiteDriver,
		"sqlitePath", cfg.SQLitePath,
		"sqliteMaxOpenConns", cfg.SQLiteMaxOpenConns,
		"sqliteMaxIdleConns", cfg.SQLiteMaxIdleConns,
		"sqliteConnMaxLifetime", cfg.SQLiteConnMaxLifetime,
		"sqlLog", cfg.SQLLog,
		"mqttBroker", cfg.MQTTBroker,
		"mqttPort", cfg.MQTTPort,
		"mqttTopic", cfg.MQTTTopic,
	)

	dbConn, err := db.Open(cfg, logger)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := db.Close(dbConn); closeErr != nil {
			logger.Error("db close", "error", closeErr)
		}
	}()

	if _, err := migrate.Run(ctx, dbConn, logger); err != nil {
		return err
	}
	logger.Info("database ready")

	mux := httpapi.NewMux(httpapi.NewDBChecker(dbConn))

	var subscriber *mqtt.Subscriber
	if cfg.MQTTBroker != "" {
		subscriber = mqtt.NewSubscriber(cfg, logger)
		// Handler goes on before Connect so queued messages are not lost.
		store.RegisterFeature(mux, dbConn, subscriber, logger)

		connectCtx, connectCancel := context.WithTimeout(ctx, 5*time.Second)
		err := subscriber.Connect(connectCtx)
		connectCancel()
		if err != nil {
			// HTTP ingestion and /healthz still work without the broker.
			logger.Warn("mqtt connection failed (continuing without mqtt)", "error", err)
		}
	} else {
		logger.Info("mqtt disabled (MQTT_BROKER empty)")
		store.RegisterFeature(mux, dbConn, nil, logger)
	}

	srv := httpapi.NewServer(cfg.HTTPAddr, mux, logger)

	errCh := make(chan error, 1)
	go func() {
		logger.Info("http listening", "addr", cfg.HTTPAddr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
	case err := <-errCh:
		if subscriber != nil {
			subscriber.Disconnect()
		}
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if subscriber != nil {
		logger.Info("mqtt disconnecting")
		subscriber.Disconnect()
	}

	logger.Info("http shutting down")
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}

	err = <-errCh
	if err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}

	return ctx.Err()
}
