//go:build e2e

package e2e

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"testing"
	"time"

	"github.com/docker/go-connections/nat"
	tc "github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"thermograph/internal/config"
	"thermograph/internal/modules/store/types"
	"thermograph/internal/mqtt"
	"thermograph/internal/simulator"
)

const (
	repoRootRel = ".." // relative to ./e2e
	topic       = "sensors/readings"
)

var mqttPort = nat.Port("1883/tcp")

func TestSmoke_MQTTToChart(t *testing.T) {
	repoRoot := repoRootPath(t)
	brokerHost, brokerPort := startMosquitto(t)

	devapiBin := buildBinary(t, repoRoot, "./cmd/devapi")
	viewerBin := buildBinary(t, repoRoot, "./cmd/viewer")

	client := &http.Client{Timeout: 5 * time.Second}

	devapiAddr := pickFreeAddr(t)
	devapi := startProcess(t, devapiBin,
		"APP_ENV=dev",
		"LOG_LEVEL=debug",
		"HTTP_ADDR="+devapiAddr,
		"DB_DRIVER=sqlite3",
		"SQLITE_PATH="+filepath.Join(t.TempDir(), "readings.db"),
		"MQTT_BROKER="+brokerHost,
		"MQTT_PORT="+brokerPort.Port(),
		"MQTT_TOPIC="+topic,
		"MQTT_CLIENT_ID=thermograph-e2e-devapi",
	)
	waitForOK(t, client, "http://"+devapiAddr+"/healthz", 10*time.Second)

	publishReadings(t, brokerHost, brokerPort, 40)

	dataURL := "http://" + devapiAddr + "/get_sensor_data"
	waitForRows(t, client, dataURL+"?start=2024-02-01&end=2024-02-01", 40, 10*time.Second)

	viewerAddr := pickFreeAddr(t)
	viewer := startProcess(t, viewerBin,
		"APP_ENV=dev",
		"LOG_LEVEL=info",
		"HTTP_ADDR="+viewerAddr,
		"SENSOR_API_URL="+dataURL,
	)
	waitForOK(t, client, "http://"+viewerAddr+"/healthz", 5*time.Second)

	page := getBody(t, client, "http://"+viewerAddr+"/?start=2024-02-01&end=2024-02-01")
	for _, want := range []string{"<svg", "date/time", "start=2024-02-01 end=2024-02-01"} {
		if !strings.Contains(page, want) {
			t.Errorf("viewer page missing %q", want)
		}
	}

	empty := getBody(t, client, "http://"+viewerAddr+"/partials/result?start=2023-01-01&end=2023-01-02")
	if !strings.Contains(empty, "no data found for the selected range") {
		t.Errorf("empty range partial = %q; want no-data warning", empty)
	}

	reversed := getBody(t, client, "http://"+viewerAddr+"/partials/result?start=2024-02-02&end=2024-02-01")
	if !strings.Contains(reversed, "start date must be on or before end date") {
		t.Errorf("reversed range partial = %q; want input error", reversed)
	}

	stopServer(t, viewer)
	stopServer(t, devapi)
}

func startMosquitto(t *testing.T) (string, nat.Port) {
	t.Helper()
	ctx := context.Background()

	// 1.6 accepts anonymous clients on 1883 without a config file.
	req := tc.ContainerRequest{
		Image:        "eclipse-mosquitto:1.6",
		ExposedPorts: []string{string(mqttPort)},
		WaitingFor:   wait.ForListeningPort(mqttPort).WithStartupTimeout(30 * time.Second),
	}
	c, err := tc.GenericContainer(ctx, tc.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		t.Fatalf("start mosquitto container: %v", err)
	}
	t.Cleanup(func() { _ = c.Terminate(ctx) })

	host, err := c.Host(ctx)
	if err != nil {
		t.Fatalf("container host: %v", err)
	}
	port, err := c.MappedPort(ctx, mqttPort)
	if err != nil {
		t.Fatalf("mapped port: %v", err)
	}
	return host, port
}

func publishReadings(t *testing.T, host string, port nat.Port, n int) {
	t.Helper()

	portNum, err := strconv.Atoi(port.Port())
	if err != nil {
		t.Fatalf("mapped port %q: %v", port, err)
	}
	pub := mqtt.NewPublisher(config.SimulatorConfig{
		MQTTBroker:   host,
		MQTTPort:     portNum,
		MQTTTopic:    topic,
		MQTTClientID: "thermograph-e2e-publisher",
	}, slog.New(slog.NewTextHandler(io.Discard, nil)))
	defer pub.Disconnect()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := pub.Connect(ctx); err != nil {
		t.Fatalf("publisher connect: %v", err)
	}

	start := time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC)
	step := 10 * time.Minute
	sent, err := simulator.Backfill(ctx, pub, simulator.NewGenerator(1), start, start.Add(time.Duration(n)*step), step)
	if err != nil {
		t.Fatalf("backfill: %v", err)
	}
	if sent != n {
		t.Fatalf("backfill sent %d; want %d", sent, n)
	}

	// Dropped by validation; must not show up in the data.
	temp, hum := 20.0, 150.0
	if err := pub.Publish(ctx, types.Telemetry{
		Timestamp:   start.Add(23 * time.Hour),
		Temperature: &temp,
		Humidity:    &hum,
	}); err != nil {
		t.Fatalf("publish invalid reading: %v", err)
	}
}

func waitForRows(t *testing.T, client *http.Client, url string, want int, timeout time.Duration) {
	t.Helper()

	deadline := time.Now().Add(timeout)
	var got int
	for time.Now().Before(deadline) {
		var rows []map[string]any
		if err := json.Unmarshal([]byte(getBody(t, client, url)), &rows); err == nil {
			got = len(rows)
			if got == want {
				// Give the invalid message time to arrive, then check again.
				time.Sleep(500 * time.Millisecond)
				if err := json.Unmarshal([]byte(getBody(t, client, url)), &rows); err == nil && len(rows) == want {
					return
				}
				got = len(rows)
			}
		}
		time.Sleep(200 * time.Millisecond)
	}
	t.Fatalf("%s returned %d rows; want %d", url, got, want)
}

func startProcess(t *testing.T, bin string, env ...string) *exec.Cmd {
	t.Helper()

	cmd := exec.Command(bin)
	cmd.Env = append(os.Environ(), env...)
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr

	if err := cmd.Start(); err != nil {
		t.Fatalf("start %s: %v", filepath.Base(bin), err)
	}
	t.Cleanup(func() {
		if cmd.ProcessState == nil {
			_ = cmd.Process.Kill()
			_, _ = cmd.Process.Wait()
		}
	})
	return cmd
}

func repoRootPath(t *testing.T) string {
	t.Helper()

	wd, err := os.Getwd()
	if err != nil {
		t.Fatalf("getwd: %v", err)
	}

	repo := filepath.Clean(filepath.Join(wd, repoRootRel))
	if _, err := os.Stat(filepath.Join(repo, "go.mod")); err != nil {
		t.Fatalf("repo root %q does not contain go.mod: %v", repo, err)
	}

	return repo
}

func buildBinary(t *testing.T, repoRoot, pkg string) string {
	t.Helper()

	out := filepath.Join(t.TempDir(), filepath.Base(pkg))

	build := exec.Command("go", "build", "-o", out, pkg)
	build.Dir = repoRoot
	build.Env = os.Environ()

	b, err := build.CombinedOutput()
	if err != nil {
		t.Fatalf("go build %s failed: %v\n%s", pkg, err, string(b))
	}

	return out
}

func pickFreeAddr(t *testing.T) string {
	t.Helper()

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen :0: %v", err)
	}
	defer ln.Close()

	return ln.Addr().String()
}

func getBody(t *testing.T, client *http.Client, url string) string {
	t.Helper()

	resp, err := client.Get(url)
	if err != nil {
		t.Fatalf("GET %s: %v", url, err)
	}
	defer resp.Body.Close()
	b, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read %s: %v", url, err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("GET %s: status=%d body=%s", url, resp.StatusCode, b)
	}
	return string(b)
}

func waitForOK(t *testing.T, client *http.Client, url string, timeout time.Duration) {
	t.Helper()

	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		resp, err := client.Get(url)
		if err == nil {
			_ = resp.Body.Close()
			if resp.StatusCode == http.StatusOK {
				return
			}
		}
		time.Sleep(100 * time.Millisecond)
	}
	t.Fatalf("server not healthy after %s: %s", timeout, url)
}

func stopServer(t *testing.T, cmd *exec.Cmd) {
	t.Helper()

	_ = cmd.Process.Signal(syscall.SIGTERM)

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	done := make(chan error, 1)
	go func() { done <- cmd.Wait() }()

	select {
	case <-ctx.Done():
		_ = cmd.Process.Kill()
		t.Fatalf("server did not exit in time")
	case err := <-done:
		if err != nil {
			var exitErr *exec.ExitError
			if errors.As(err, &exitErr) {
				t.Fatalf("server exited non-zero: %v", err)
			}
			t.Fatalf("server wait error: %v", err)
		}
	}
}
