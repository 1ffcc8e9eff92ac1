package logging

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"
)

func TestNew_prodWritesJSON(t *testing.T) {
	var buf bytes.Buffer
	logger := newWithWriter(&buf, Options{
		Level:   slog.LevelInfo,
		AppEnv:  "prod",
		Version: "1.2.3",
		AppName: "viewer",
	})

	logger.Info("hello", "k", "v")

	var rec map[string]any
	if err := json.Unmarshal(buf.Bytes(), &rec); err != nil {
		t.Fatalf("output is not JSON: %v (%q)", err, buf.String())
	}
	for key, want := range map[string]string{
		"msg": "hello", "app": "viewer", "version": "1.2.3", "env": "prod", "k": "v",
	} {
		if rec[key] != want {
			t.Errorf("%s = %v; want %q", key, rec[key], want)
		}
	}
}

func TestNew_respectsLevel(t *testing.T) {
	var buf bytes.Buffer
	logger := newWithWriter(&buf, Options{Level: slog.LevelWarn, Version: "1.0.0", AppName: "viewer"})

	logger.Info("dropped")
	if buf.Len() != 0 {
		t.Fatalf("info record written at warn level: %q", buf.String())
	}
	logger.Warn("kept")
	if !strings.Contains(buf.String(), "kept") {
		t.Fatalf("warn record missing: %q", buf.String())
	}
}

func TestNew_devUsesTint(t *testing.T) {
	var buf bytes.Buffer
	logger := newWithWriter(&buf, Options{Level: slog.LevelDebug, Version: "dev", AppName: "viewer"})

	logger.Debug("tinted")

	out := buf.String()
	if !strings.Contains(out, "tinted") {
		t.Fatalf("output missing message: %q", out)
	}
	if json.Valid(bytes.TrimSpace(buf.Bytes())) {
		t.Errorf("dev output should not be JSON: %q", out)
	}
	if !strings.Contains(out, "viewer") {
		t.Errorf("output missing app attribute: %q", out)
	}
}
