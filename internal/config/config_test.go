package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.json")
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoad_AppliesDefaults(t *testing.T) {
	cfg, err := Load(writeConfig(t, `{"url":"ws://localhost:4000/rspc"}`))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.LogLevel != DefaultLogLevel {
		t.Errorf("LogLevel = %q, want %q", cfg.LogLevel, DefaultLogLevel)
	}
	if cfg.MaxBatchSize != DefaultMaxBatchSize {
		t.Errorf("MaxBatchSize = %d, want %d", cfg.MaxBatchSize, DefaultMaxBatchSize)
	}
	if cfg.GetBatchWindowDuration() != time.Duration(DefaultBatchWindow)*time.Millisecond {
		t.Errorf("BatchWindow = %v", cfg.GetBatchWindowDuration())
	}
	if cfg.GetRequestTimeoutDuration() != 5*time.Second {
		t.Errorf("RequestTimeout = %v", cfg.GetRequestTimeoutDuration())
	}
}

func TestLoad_RejectsMissingURL(t *testing.T) {
	if _, err := Load(writeConfig(t, `{}`)); err == nil {
		t.Fatal("config without url validated")
	}
}

func TestLoad_RejectsNonWebsocketURL(t *testing.T) {
	if _, err := Load(writeConfig(t, `{"url":"http://localhost:4000"}`)); err == nil {
		t.Fatal("http url validated")
	}
}

func TestLoad_RejectsBadLogLevel(t *testing.T) {
	if _, err := Load(writeConfig(t, `{"url":"ws://h/","logLevel":"loud"}`)); err == nil {
		t.Fatal("bad log level validated")
	}
}

func TestLoad_RejectsNegativeLimits(t *testing.T) {
	if _, err := Load(writeConfig(t, `{"url":"ws://h/","maxBatchSize":-1}`)); err == nil {
		t.Fatal("negative maxBatchSize validated")
	}
}
