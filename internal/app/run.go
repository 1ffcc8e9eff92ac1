package app

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"thermograph/internal/config"
	"thermograph/internal/httpapi"
	"thermograph/internal/modules/sensor"
	"thermograph/internal/modules/sensor/views"
	"thermograph/internal/readings"
)

// Run serves the viewer until ctx is cancelled, then shuts down gracefully.
func Run(ctx context.Context, cfg config.Config, logger *slog.Logger) error {
	logger.Info("config loaded",
		"appEnv", cfg.AppEnv,
		"logLevel", cfg.LogLevel.String(),
		"httpAddr", cfg.HTTPAddr,
		"sensorAPIURL", cfg.SensorAPIURL,
	)

	if err := views.LoadTemplates(); err != nil {
		return err
	}

	client, err := readings.NewClient(cfg.SensorAPIURL, nil, logger)
	if err != nil {
		return err
	}

	mux := httpapi.NewMux(nil)
	sensor.RegisterFeature(mux, client, logger)

	srv := httpapi.NewServer(cfg.HTTPAddr, mux, logger)
	return Serve(ctx, srv, logger)
}

// Serve runs srv until ctx is done or the listener fails.
func Serve(ctx context.Context, srv *http.Server, logger *slog.Logger) error {
	errCh := make(chan error, 1)
	go func() {
		logger.Info("http listening", "addr", srv.Addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	logger.Info("http shutting down")
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}

	err := <-errCh
	if err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}

	return ctx.Err()
}
