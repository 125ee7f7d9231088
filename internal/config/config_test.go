package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestLoad_MissingConfigFallsBackToDefaults(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	t.Chdir(t.TempDir())

	cfg, err := Load(filepath.Join(home, "does-not-exist.toml"))
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.APIURL != defaultAPIURL {
		t.Fatalf("APIURL = %q, want %q", cfg.APIURL, defaultAPIURL)
	}
	if cfg.StorageDriver != DriverFile {
		t.Fatalf("StorageDriver = %q, want %q", cfg.StorageDriver, DriverFile)
	}

	wantStorage, err := ExpandPath(defaultStoragePath)
	if err != nil {
		t.Fatalf("ExpandPath(defaultStoragePath) returned error: %v", err)
	}
	if cfg.StoragePath != wantStorage {
		t.Fatalf("StoragePath = %q, want %q", cfg.StoragePath, wantStorage)
	}
	if cfg.RequestTimeout != defaultRequestTimeout || cfg.PollInterval != defaultPollInterval {
		t.Fatalf("durations = %v/%v, want defaults", cfg.RequestTimeout, cfg.PollInterval)
	}
}

func TestLoad_ParsesAndTrimsConfig(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	t.Chdir(t.TempDir())

	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte(`
api_url = "  https://api.example.com  "
maps_api_key = "k-123"
storage_driver = "SQLite"
log_path = "  ~/.tanker/app.log  "
request_timeout = "3s"
poll_interval = "1m"
nearby_radius_km = 7.5
`), 0o600); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.APIURL != "https://api.example.com" {
		t.Fatalf("APIURL = %q", cfg.APIURL)
	}
	if cfg.MapsAPIKey != "k-123" {
		t.Fatalf("MapsAPIKey = %q", cfg.MapsAPIKey)
	}
	if cfg.StorageDriver != DriverSQLite {
		t.Fatalf("StorageDriver = %q, want sqlite", cfg.StorageDriver)
	}
	if !strings.HasSuffix(cfg.StoragePath, "storage.db") {
		t.Fatalf("StoragePath = %q, want sqlite default", cfg.StoragePath)
	}
	if !strings.HasPrefix(cfg.LogPath, home) {
		t.Fatalf("LogPath = %q, want it under HOME %q", cfg.LogPath, home)
	}
	if cfg.RequestTimeout != 3*time.Second || cfg.PollInterval != time.Minute {
		t.Fatalf("durations = %v/%v", cfg.RequestTimeout, cfg.PollInterval)
	}
	if cfg.NearbyRadiusKm != 7.5 {
		t.Fatalf("NearbyRadiusKm = %v, want 7.5", cfg.NearbyRadiusKm)
	}
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	t.Chdir(t.TempDir())

	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte(`api_url = "https://file.example.com"`), 0o600); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	t.Setenv("TANKER_API_URL", "https://env.example.com")
	t.Setenv("TANKER_POLL_INTERVAL", "5s")
	t.Setenv("TANKER_NEARBY_RADIUS_KM", "12")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.APIURL != "https://env.example.com" {
		t.Fatalf("APIURL = %q, want env override", cfg.APIURL)
	}
	if cfg.PollInterval != 5*time.Second {
		t.Fatalf("PollInterval = %v, want 5s", cfg.PollInterval)
	}
	if cfg.NearbyRadiusKm != 12 {
		t.Fatalf("NearbyRadiusKm = %v, want 12", cfg.NearbyRadiusKm)
	}
}

func TestLoad_DotEnvFileIsRead(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	dir := t.TempDir()
	t.Chdir(dir)
	t.Setenv("TANKER_MAPS_API_KEY", "")
	if err := os.WriteFile(filepath.Join(dir, ".env"), []byte("TANKER_MAPS_API_KEY=from-dotenv\n"), 0o600); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	// godotenv does not override variables that are already set, even to "".
	os.Unsetenv("TANKER_MAPS_API_KEY")

	cfg, err := Load(filepath.Join(dir, "missing.toml"))
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.MapsAPIKey != "from-dotenv" {
		t.Fatalf("MapsAPIKey = %q, want from-dotenv", cfg.MapsAPIKey)
	}
}

func TestLoad_InvalidValuesFail(t *testing.T) {
	t.Chdir(t.TempDir())

	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte(`api_url = [`), 0o600); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	if _, err := Load(path); err == nil || !strings.Contains(err.Error(), "parse config") {
		t.Fatalf("Load error = %v, want parse config error", err)
	}

	if err := os.WriteFile(path, []byte(`poll_interval = "soon"`), 0o600); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	if _, err := Load(path); err == nil || !strings.Contains(err.Error(), "poll_interval") {
		t.Fatalf("Load error = %v, want poll_interval error", err)
	}

	t.Setenv("TANKER_REQUEST_TIMEOUT", "forever")
	if _, err := Load(filepath.Join(t.TempDir(), "none.toml")); err == nil {
		t.Fatal("Load returned nil error for invalid env duration")
	}
}
