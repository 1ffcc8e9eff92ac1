package devapp

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net"
	"net/http"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"thermograph/internal/config"
	"thermograph/internal/modules/sensor/transform"
	"thermograph/internal/readings"
)

func quietLogger() *slog.Logger { return slog.New(slog.NewTextHandler(io.Discard, nil)) }

func testConfig(t *testing.T) config.DevAPIConfig {
	t.Helper()
	l, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	addr := l.Addr().String()
	_ = l.Close()

	return config.DevAPIConfig{
		AppEnv:             "dev",
		LogLevel:           slog.LevelInfo,
		HTTPAddr:           addr,
		SQLiteDriver:       "sqlite3",
		SQLitePath:         filepath.Join(t.TempDir(), "readings.db"),
		SQLiteMaxOpenConns: 1,
		SQLiteMaxIdleConns: 1,
	}
}

func waitForOK(t *testing.T, url string) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		resp, err := http.Get(url)
		if err == nil {
			_ = resp.Body.Close()
			if resp.StatusCode == http.StatusOK {
				return
			}
		}
		time.Sleep(20 * time.Millisecond)
	}
	t.Fatalf("%s never returned 200", url)
}

func TestMigrate(t *testing.T) {
	cfg := testConfig(t)
	if err := Migrate(context.Background(), cfg, quietLogger()); err != nil {
		t.Fatalf("Migrate() err = %v", err)
	}
	if err := Migrate(context.Background(), cfg, quietLogger()); err != nil {
		t.Fatalf("second Migrate() err = %v", err)
	}
}

func TestRun_postThenFetch(t *testing.T) {
	cfg := testConfig(t)
	base := "http://" + cfg.HTTPAddr

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- Run(ctx, cfg, quietLogger()) }()
	t.Cleanup(func() {
		cancel()
		if err := <-done; err != nil && !errors.Is(err, context.Canceled) {
			t.Errorf("Run() = %v", err)
		}
	})

	waitForOK(t, base+"/healthz")

	var body strings.Builder
	body.WriteString("[")
	start := time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 40; i++ {
		if i > 0 {
			body.WriteString(",")
		}
		ts := start.Add(time.Duration(i) * 10 * time.Minute).Format(time.RFC3339)
		body.WriteString(`{"timestamp":"` + ts + `","temperature":21,"humidity":50}`)
	}
	body.WriteString("]")

	resp, err := http.Post(base+"/readings", "application/json", strings.NewReader(body.String()))
	if err != nil {
		t.Fatalf("post: %v", err)
	}
	_ = resp.Body.Close()
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("POST /readings status = %d; want %d", resp.StatusCode, http.StatusCreated)
	}

	client, err := readings.NewClient(base+"/get_sensor_data", nil, quietLogger())
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	raw, err := client.Fetch(context.Background(), "2024-02-01", "2024-02-01")
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if len(raw) != 40 {
		t.Fatalf("Fetch returned %d rows; want 40", len(raw))
	}

	table, err := transform.Augment(raw)
	if err != nil {
		t.Fatalf("Augment: %v", err)
	}
	last := table.Readings[len(table.Readings)-1]
	if last.TempMA == nil || *last.TempMA != 21 {
		t.Errorf("last TempMA = %v; want 21", last.TempMA)
	}

	outside, err := client.Fetch(context.Background(), "2024-02-02", "2024-02-03")
	if err != nil {
		t.Fatalf("Fetch outside range: %v", err)
	}
	if len(outside) != 0 {
		t.Errorf("rows outside range = %d; want 0", len(outside))
	}

	var se *readings.StatusError
	if _, err := client.Fetch(context.Background(), "2024-02-03", "2024-02-01"); !errors.As(err, &se) || se.StatusCode != http.StatusBadRequest {
		t.Errorf("reversed range err = %v; want 400 StatusError", err)
	}
}

func TestRun_badDatabase(t *testing.T) {
	cfg := testConfig(t)
	cfg.SQLiteDriver = "nope"
	if err := Run(context.Background(), cfg, quietLogger()); err == nil {
		t.Fatal("Run() = nil; want db open error")
	}
}
