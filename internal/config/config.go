package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	toml "github.com/pelletier/go-toml/v2"
	"github.com/spf13/cast"
)

// Config captures every setting tanker reads at startup.
type Config struct {
	APIURL         string
	MapsURL        string
	MapsAPIKey     string
	StorageDriver  string
	StoragePath    string
	LogPath        string
	LogLevel       string
	RequestTimeout time.Duration
	PollInterval   time.Duration
	NearbyRadiusKm float64
}

const (
	defaultConfigPath     = "~/.config/tanker/config.toml"
	defaultAPIURL         = "http://127.0.0.1:8080"
	defaultMapsURL        = "https://maps.googleapis.com/maps/api"
	defaultStorageDriver  = DriverFile
	defaultStoragePath    = "~/.local/share/tanker/storage.toml"
	defaultSQLitePath     = "~/.local/share/tanker/storage.db"
	defaultLogPath        = "~/.local/share/tanker/tanker.log"
	defaultLogLevel       = "info"
	defaultRequestTimeout = 10 * time.Second
	defaultPollInterval   = 15 * time.Second
	defaultNearbyRadiusKm = 25.0

	envPrefix = "TANKER_"
)

// Storage drivers understood by keystore.Open.
const (
	DriverFile   = "file"
	DriverSQLite = "sqlite"
)

// Load reads the TOML config (missing file means defaults), then applies a
// .env file and TANKER_* environment overrides.
func Load(path string) (Config, error) {
	resolved, err := resolvePath(path)
	if err != nil {
		return Config{}, err
	}

	cfg := Default()

	file, err := os.Open(resolved)
	switch {
	case err == nil:
		defer file.Close()
		if err := decode(file, &cfg); err != nil {
			return Config{}, err
		}
	case errors.Is(err, os.ErrNotExist):
	default:
		return Config{}, fmt.Errorf("open config: %w", err)
	}

	_ = godotenv.Load(".env")
	if err := applyEnv(&cfg); err != nil {
		return Config{}, err
	}

	cfg.normalize()
	return cfg, nil
}

// Default returns the built-in settings.
func Default() Config {
	return Config{
		APIURL:         defaultAPIURL,
		MapsURL:        defaultMapsURL,
		StorageDriver:  defaultStorageDriver,
		LogLevel:       defaultLogLevel,
		RequestTimeout: defaultRequestTimeout,
		PollInterval:   defaultPollInterval,
		NearbyRadiusKm: defaultNearbyRadiusKm,
	}
}

func decode(r io.Reader, cfg *Config) error {
	bytes, err := io.ReadAll(r)
	if err != nil {
		return fmt.Errorf("read config: %w", err)
	}

	var raw struct {
		APIURL         string   `toml:"api_url"`
		MapsURL        string   `toml:"maps_url"`
		MapsAPIKey     string   `toml:"maps_api_key"`
		StorageDriver  string   `toml:"storage_driver"`
		StoragePath    string   `toml:"storage_path"`
		LogPath        string   `toml:"log_path"`
		LogLevel       string   `toml:"log_level"`
		RequestTimeout string   `toml:"request_timeout"`
		PollInterval   string   `toml:"poll_interval"`
		NearbyRadiusKm *float64 `toml:"nearby_radius_km"`
	}
	if err := toml.Unmarshal(bytes, &raw); err != nil {
		return fmt.Errorf("parse config: %w", err)
	}

	setString(&cfg.APIURL, raw.APIURL)
	setString(&cfg.MapsURL, raw.MapsURL)
	setString(&cfg.MapsAPIKey, raw.MapsAPIKey)
	setString(&cfg.StorageDriver, raw.StorageDriver)
	setString(&cfg.StoragePath, raw.StoragePath)
	setString(&cfg.LogPath, raw.LogPath)
	setString(&cfg.LogLevel, raw.LogLevel)
	if err := setDuration(&cfg.RequestTimeout, "request_timeout", raw.RequestTimeout); err != nil {
		return err
	}
	if err := setDuration(&cfg.PollInterval, "poll_interval", raw.PollInterval); err != nil {
		return err
	}
	if raw.NearbyRadiusKm != nil {
		cfg.NearbyRadiusKm = *raw.NearbyRadiusKm
	}
	return nil
}

func applyEnv(cfg *Config) error {
	setString(&cfg.APIURL, os.Getenv(envPrefix+"API_URL"))
	setString(&cfg.MapsURL, os.Getenv(envPrefix+"MAPS_URL"))
	setString(&cfg.MapsAPIKey, os.Getenv(envPrefix+"MAPS_API_KEY"))
	setString(&cfg.StorageDriver, os.Getenv(envPrefix+"STORAGE_DRIVER"))
	setString(&cfg.StoragePath, os.Getenv(envPrefix+"STORAGE_PATH"))
	setString(&cfg.LogPath, os.Getenv(envPrefix+"LOG_PATH"))
	setString(&cfg.LogLevel, os.Getenv(envPrefix+"LOG_LEVEL"))

	for key, dst := range map[string]*time.Duration{
		"REQUEST_TIMEOUT": &cfg.RequestTimeout,
		"POLL_INTERVAL":   &cfg.PollInterval,
	} {
		if value := strings.TrimSpace(os.Getenv(envPrefix + key)); value != "" {
			d, err := cast.ToDurationE(value)
			if err != nil {
				return fmt.Errorf("invalid %s%s: %w", envPrefix, key, err)
			}
			*dst = d
		}
	}

	if value := strings.TrimSpace(os.Getenv(envPrefix + "NEARBY_RADIUS_KM")); value != "" {
		radius, err := cast.ToFloat64E(value)
		if err != nil {
			return fmt.Errorf("invalid %sNEARBY_RADIUS_KM: %w", envPrefix, err)
		}
		cfg.NearbyRadiusKm = radius
	}
	return nil
}

func (c *Config) normalize() {
	c.StorageDriver = strings.ToLower(c.StorageDriver)
	if c.StorageDriver != DriverSQLite {
		c.StorageDriver = DriverFile
	}
	if c.StoragePath == "" {
		if c.StorageDriver == DriverSQLite {
			c.StoragePath = defaultSQLitePath
		} else {
			c.StoragePath = defaultStoragePath
		}
	}
	c.StoragePath = mustExpand(c.StoragePath)
	if c.LogPath == "" {
		c.LogPath = defaultLogPath
	}
	c.LogPath = mustExpand(c.LogPath)
	if c.RequestTimeout <= 0 {
		c.RequestTimeout = defaultRequestTimeout
	}
	if c.PollInterval <= 0 {
		c.PollInterval = defaultPollInterval
	}
}

func setString(dst *string, value string) {
	if trimmed := strings.TrimSpace(value); trimmed != "" {
		*dst = trimmed
	}
}

func setDuration(dst *time.Duration, key, value string) error {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return nil
	}
	d, err := time.ParseDuration(trimmed)
	if err != nil {
		return fmt.Errorf("parse config %s: %w", key, err)
	}
	*dst = d
	return nil
}

func resolvePath(path string) (string, error) {
	if strings.TrimSpace(path) == "" {
		return ExpandPath(defaultConfigPath)
	}
	return ExpandPath(path)
}

func mustExpand(path string) string {
	expanded, err := ExpandPath(path)
	if err != nil {
		return path
	}
	return expanded
}

// ExpandPath resolves a leading ~ and returns an absolute path.
func ExpandPath(path string) (string, error) {
	trimmed := strings.TrimSpace(path)
	if trimmed == "" {
		return "", fmt.Errorf("path is empty")
	}
	if strings.HasPrefix(trimmed, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home dir: %w", err)
		}
		trimmed = filepath.Join(home, strings.TrimPrefix(trimmed, "~"))
	}
	return filepath.Abs(trimmed)
}
