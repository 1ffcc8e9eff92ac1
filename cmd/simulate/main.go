package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"thermograph/internal/config"
	"thermograph/internal/logging"
	"thermograph/internal/mqtt"
	"thermograph/internal/simulator"
)

const appName = "simulate"

// Default version is "dev" if not set with -ldflags "-X main.version=..."
var version = "dev"

func main() {
	_ = godotenv.Load()

	cfg, err := config.LoadSimulatorFromEnv()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config error: %v\n", err)
		os.Exit(1)
	}

	logger := logging.New(logging.Options{
		Level:   cfg.LogLevel,
		AppEnv:  cfg.AppEnv,
		Version: version,
		AppName: appName,
	})
	slog.SetDefault(logger)

	logger.Info("starting",
		"app", appName,
		"version", version,
		"broker", cfg.MQTTBroker,
		"topic", cfg.MQTTTopic,
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	pub := mqtt.NewPublisher(cfg, logger)
	defer pub.Disconnect()

	connectCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	err = pub.Connect(connectCtx)
	cancel()
	if err != nil {
		logger.Error("mqtt connect failed", "err", err)
		os.Exit(1)
	}

	if err := simulator.Run(ctx, cfg, pub, time.Now, logger); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("run failed", "err", err)
		os.Exit(1)
	}

	logger.Info("shutting down")
}
