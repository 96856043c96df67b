package telemetry

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"

	"github.com/ghostnote/ghost-note/backend/internal/config"
)

func TestInitLoggerRejectsUnknownLevel(t *testing.T) {
	if _, err := InitLogger(config.LogConfig{Level: "chatty"}); err == nil {
		t.Fatal("expected an error for an unknown level")
	}
}

func TestInitLoggerWritesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "app.log")
	closer, err := InitLogger(config.LogConfig{Level: "debug", File: path})
	if err != nil {
		t.Fatalf("init logger: %v", err)
	}
	t.Cleanup(func() {
		logrus.SetOutput(os.Stderr)
		logrus.SetLevel(logrus.InfoLevel)
	})

	logrus.Debug("[test] hello file")
	if err := closer.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read log: %v", err)
	}
	if len(data) == 0 {
		t.Fatal("expected log output in file")
	}
}

func TestInitDisabledIsNoop(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "telemetry")
	shutdown, err := Init(context.Background(), config.TelemetryConfig{Enabled: false, Dir: dir})
	if err != nil {
		t.Fatalf("init: %v", err)
	}
	shutdown()

	if _, err := os.Stat(dir); !os.IsNotExist(err) {
		t.Fatalf("disabled telemetry must not create %s", dir)
	}
}

func TestInitExportsToDir(t *testing.T) {
	dir := t.TempDir()
	shutdown, err := Init(context.Background(), config.TelemetryConfig{Enabled: true, Dir: dir})
	if err != nil {
		t.Fatalf("init: %v", err)
	}

	_, span := otel.Tracer("test").Start(context.Background(), "unit")
	span.End()
	shutdown()

	data, err := os.ReadFile(filepath.Join(dir, "traces.log"))
	if err != nil {
		t.Fatalf("read traces: %v", err)
	}
	if len(data) == 0 {
		t.Fatal("expected exported span")
	}
}
