package config

import (
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"
)

// DefaultSensorAPIURL is the readings endpoint of the sensor-logging host.
const DefaultSensorAPIURL = "https://hisseki-misaki.sakura.ne.jp/raspberrypi/get_sensor_data.php"

// Config is the viewer configuration.
type Config struct {
	AppEnv   string
	LogLevel slog.Level
	HTTPAddr string

	// SensorAPIURL is the base URL the readings are fetched from; start and end
	// are appended as query parameters.
	SensorAPIURL string
}

// DevAPIConfig configures the local readings endpoint used for development.
type DevAPIConfig struct {
	AppEnv   string
	LogLevel slog.Level
	HTTPAddr string

	SQLiteDriver          string
	SQLiteDSN             string
	SQLitePath            string
	SQLiteMaxOpenConns    int
	SQLiteMaxIdleConns    int
	SQLiteConnMaxLifetime time.Duration
	SQLLog                bool

	// MQTTBroker empty disables MQTT ingestion.
	MQTTBroker   string
	MQTTPort     int
	MQTTTopic    string
	MQTTClientID string
}

// SimulatorConfig configures the synthetic sensor that publishes readings to
// the broker.
type SimulatorConfig struct {
	AppEnv   string
	LogLevel slog.Level

	MQTTBroker   string
	MQTTPort     int
	MQTTTopic    string
	MQTTClientID string

	// Backfill publishes this much history, one reading per Step, before the
	// live loop starts. Zero skips the backfill.
	Backfill time.Duration
	Step     time.Duration
	// Interval zero exits after the backfill.
	Interval time.Duration
	Seed     uint64
}

func LoadFromEnv() (Config, error) {
	appEnv, level, err := loadCommon()
	if err != nil {
		return Config{}, err
	}

	httpAddr := envOr("HTTP_ADDR", ":8080")

	apiURL := envOr("SENSOR_API_URL", DefaultSensorAPIURL)
	u, err := url.Parse(apiURL)
	if err != nil {
		return Config{}, fmt.Errorf("invalid SENSOR_API_URL %q: %w", apiURL, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return Config{}, fmt.Errorf("invalid SENSOR_API_URL %q (scheme must be http or https)", apiURL)
	}
	if u.Host == "" {
		return Config{}, fmt.Errorf("invalid SENSOR_API_URL %q (missing host)", apiURL)
	}

	return Config{
		AppEnv:       appEnv,
		LogLevel:     level,
		HTTPAddr:     httpAddr,
		SensorAPIURL: apiURL,
	}, nil
}

func LoadDevAPIFromEnv() (DevAPIConfig, error) {
	appEnv, level, err := loadCommon()
	if err != nil {
		return DevAPIConfig{}, err
	}

	httpAddr := envOr("HTTP_ADDR", ":8081")

	driver := envOr("DB_DRIVER", "sqlite3")
	dsn := strings.TrimSpace(os.Getenv("DB_DSN"))
	path := envOr("SQLITE_PATH", "dev/sqlite/readings.db")

	maxOpenConns, err := envInt("DB_MAX_OPEN_CONNS", "1")
	if err != nil {
		return DevAPIConfig{}, err
	}
	maxIdleConns, err := envInt("DB_MAX_IDLE_CONNS", "1")
	if err != nil {
		return DevAPIConfig{}, err
	}

	connMaxLifetimeStr := envOr("DB_CONN_MAX_LIFETIME", "0s")
	connMaxLifetime, err := time.ParseDuration(connMaxLifetimeStr)
	if err != nil {
		return DevAPIConfig{}, fmt.Errorf("invalid DB_CONN_MAX_LIFETIME %q: %w", connMaxLifetimeStr, err)
	}

	sqlLogStr := envOr("SQL_LOG", "false")
	sqlLog, err := strconv.ParseBool(sqlLogStr)
	if err != nil {
		return DevAPIConfig{}, fmt.Errorf("invalid SQL_LOG %q: %w", sqlLogStr, err)
	}

	mqttPort, err := envInt("MQTT_PORT", "1883")
	if err != nil {
		return DevAPIConfig{}, err
	}
	if mqttPort <= 0 || mqttPort > 65535 {
		return DevAPIConfig{}, fmt.Errorf("invalid MQTT_PORT %d (must be 1-65535)", mqttPort)
	}

	return DevAPIConfig{
		AppEnv:                appEnv,
		LogLevel:              level,
		HTTPAddr:              httpAddr,
		SQLiteDriver:          driver,
		SQLiteDSN:             dsn,
		SQLitePath:            path,
		SQLiteMaxOpenConns:    maxOpenConns,
		SQLiteMaxIdleConns:    maxIdleConns,
		SQLiteConnMaxLifetime: connMaxLifetime,
		SQLLog:                sqlLog,
		MQTTBroker:            strings.TrimSpace(os.Getenv("MQTT_BROKER")),
		MQTTPort:              mqttPort,
		MQTTTopic:             envOr("MQTT_TOPIC", "sensors/readings"),
		MQTTClientID:          envOr("MQTT_CLIENT_ID", "thermograph-devapi"),
	}, nil
}

func LoadSimulatorFromEnv() (SimulatorConfig, error) {
	appEnv, level, err := loadCommon()
	if err != nil {
		return SimulatorConfig{}, err
	}

	broker := strings.TrimSpace(os.Getenv("MQTT_BROKER"))
	if broker == "" {
		return SimulatorConfig{}, fmt.Errorf("MQTT_BROKER is required")
	}
	port, err := envInt("MQTT_PORT", "1883")
	if err != nil {
		return SimulatorConfig{}, err
	}
	if port <= 0 || port > 65535 {
		return SimulatorConfig{}, fmt.Errorf("invalid MQTT_PORT %d (must be 1-65535)", port)
	}

	backfill, err := envDuration("SIM_BACKFILL", "168h")
	if err != nil {
		return SimulatorConfig{}, err
	}
	step, err := envDuration("SIM_STEP", "10m")
	if err != nil {
		return SimulatorConfig{}, err
	}
	if step <= 0 {
		return SimulatorConfig{}, fmt.Errorf("invalid SIM_STEP %s (must be positive)", step)
	}
	interval, err := envDuration("SIM_INTERVAL", "1m")
	if err != nil {
		return SimulatorConfig{}, err
	}
	if backfill < 0 || interval < 0 {
		return SimulatorConfig{}, fmt.Errorf("SIM_BACKFILL and SIM_INTERVAL must not be negative")
	}

	seedStr := envOr("SIM_SEED", "1")
	seed, err := strconv.ParseUint(seedStr, 10, 64)
	if err != nil {
		return SimulatorConfig{}, fmt.Errorf("invalid SIM_SEED %q: %w", seedStr, err)
	}

	return SimulatorConfig{
		AppEnv:       appEnv,
		LogLevel:     level,
		MQTTBroker:   broker,
		MQTTPort:     port,
		MQTTTopic:    envOr("MQTT_TOPIC", "sensors/readings"),
		MQTTClientID: envOr("MQTT_CLIENT_ID", "thermograph-simulator"),
		Backfill:     backfill,
		Step:         step,
		Interval:     interval,
		Seed:         seed,
	}, nil
}

func loadCommon() (string, slog.Level, error) {
	appEnv := envOr("APP_ENV", "dev")
	switch appEnv {
	case "dev", "prod":
	default:
		return "", slog.LevelInfo, fmt.Errorf("invalid APP_ENV %q (allowed: dev, prod)", appEnv)
	}

	level, err := parseLogLevel(envOr("LOG_LEVEL", "info"))
	if err != nil {
		return "", slog.LevelInfo, err
	}
	return appEnv, level, nil
}

func envOr(key, def string) string {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	return v
}

func envInt(key, def string) (int, error) {
	s := envOr(key, def)
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, s, err)
	}
	return n, nil
}

func envDuration(key, def string) (time.Duration, error) {
	s := envOr(key, def)
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, s, err)
	}
	return d, nil
}

func parseLogLevel(s string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug, nil
	case "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("invalid LOG_LEVEL %q (allowed: debug, info, warn, error)", s)
	}
}
