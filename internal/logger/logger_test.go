package logger

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestNew_WritesJSONLinesToFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "tanker.log")

	log, err := New("tanker", path, "debug")
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	log.Info("hello", String("uid", "u1"))
	_ = log.Sync()

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	line := string(data)
	if !strings.Contains(line, `"msg":"hello"`) || !strings.Contains(line, `"uid":"u1"`) {
		t.Fatalf("log line = %q, want msg and uid fields", line)
	}
	if !strings.Contains(line, `"namespace":"tanker"`) {
		t.Fatalf("log line = %q, want namespace field", line)
	}
}

func TestNew_EmptyPathIsNop(t *testing.T) {
	log, err := New("tanker", "", "info")
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	log.Warn("dropped")
}

func TestWith_CarriesFields(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	log := FromZap(zap.New(core)).With(String("store", "pool"))

	log.Warn("stale")

	entries := logs.All()
	if len(entries) != 1 {
		t.Fatalf("entries = %d, want 1", len(entries))
	}
	if got := entries[0].ContextMap()["store"]; got != "pool" {
		t.Fatalf("store field = %v, want pool", got)
	}
}
