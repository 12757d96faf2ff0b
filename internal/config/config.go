// Package config loads the user-editable YAML configuration. Environment
// variables override file values at runtime and are never written back.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// ErrNoConfigDir is returned when no per-user config directory can be resolved.
var ErrNoConfigDir = errors.New("config: cannot resolve config directory")

type DragConfig struct {
	LongPressMs     int     `yaml:"long_press_ms"`
	MoveThresholdPx float64 `yaml:"move_threshold_px"`
	HandleHeightPx  float64 `yaml:"handle_height_px"`
}

// LongPress returns the long-press delay, falling back to the default for non-positive values.
func (d DragConfig) LongPress() time.Duration {
	if d.LongPressMs <= 0 {
		return time.Duration(Defaults().Drag.LongPressMs) * time.Millisecond
	}
	return time.Duration(d.LongPressMs) * time.Millisecond
}

type ClassifierConfig struct {
	// DisabledPlatforms lists platform names (youtube, vimeo, ...) whose URLs
	// should be treated as plain web links.
	DisabledPlatforms []string `yaml:"disabled_platforms"`
	DocumentSuffixes  []string `yaml:"document_suffixes"`
}

type CanvasConfig struct {
	Mode string `yaml:"mode"` // floating | graph
	ID   string `yaml:"id"`   // canvas id used for asset records
}

type StorageConfig struct {
	Driver   string `yaml:"driver"` // sqlite | postgres | mysql | mongodb | none
	Path     string `yaml:"path"`   // sqlite file
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Database string `yaml:"database"`
	Username string `yaml:"username"`
	SSLMode  string `yaml:"ssl_mode"`
	// Password is never stored here; it lives in the OS keyring.
}

type WatchConfig struct {
	DropDir string `yaml:"drop_dir"`
}

type SyncConfig struct {
	FlushSchedule string `yaml:"flush_schedule"` // cron spec, e.g. "@every 5s"
}

type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Source bool   `yaml:"source"`
	File   string `yaml:"file"`
}

type Config struct {
	ConfigVersion int              `yaml:"config_version"`
	Canvas        CanvasConfig     `yaml:"canvas"`
	Drag          DragConfig       `yaml:"drag"`
	Classifier    ClassifierConfig `yaml:"classifier"`
	Storage       StorageConfig    `yaml:"storage"`
	Watch         WatchConfig      `yaml:"watch"`
	Sync          SyncConfig       `yaml:"sync"`
	Logging       LoggingConfig    `yaml:"logging"`
}

// Defaults returns the built-in configuration.
func Defaults() Config {
	return Config{
		ConfigVersion: 1,
		Canvas:        CanvasConfig{Mode: "floating", ID: "default"},
		Drag:          DragConfig{LongPressMs: 200, MoveThresholdPx: 10, HandleHeightPx: 32},
		Storage:       StorageConfig{Driver: "sqlite", SSLMode: "disable"},
		Sync:          SyncConfig{FlushSchedule: "@every 5s"},
		Logging:       LoggingConfig{Level: "info", Format: "console"},
	}
}

// Env var names used as overrides.
const (
	EnvMode           = "CANVAS_MODE"
	EnvLongPressMs    = "CANVAS_LONG_PRESS_MS"
	EnvStorageDriver  = "CANVAS_STORAGE_DRIVER"
	EnvStoragePath    = "CANVAS_STORAGE_PATH"
	EnvStorageHost    = "CANVAS_STORAGE_HOST"
	EnvDropDir        = "CANVAS_DROP_DIR"
	EnvFlushSchedule  = "CANVAS_FLUSH_SCHEDULE"
	EnvLogLevel       = "CANVAS_LOG_LEVEL"
	EnvLogFormat      = "CANVAS_LOG_FORMAT"
	EnvLogFile        = "CANVAS_LOG_FILE"
	EnvConfigOverride = "CANVAS_CONFIG"
)

// Path returns the per-user config file path. CANVAS_CONFIG wins when set.
func Path() (string, error) {
	if p := strings.TrimSpace(os.Getenv(EnvConfigOverride)); p != "" {
		return p, nil
	}
	dir, err := os.UserConfigDir()
	if err != nil || dir == "" {
		return "", ErrNoConfigDir
	}
	return filepath.Join(dir, "canvas", "config.yaml"), nil
}

// DataDir is where the default sqlite file and drop folder live.
func DataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(os.TempDir(), "canvas")
	}
	return filepath.Join(home, ".local", "share", "canvas")
}

// Load reads the user config (when present) and applies env overrides.
func Load() (Config, error) {
	path, err := Path()
	if err != nil {
		cfg := Defaults()
		applyEnv(&cfg)
		return cfg, err
	}
	return LoadFrom(path)
}

// LoadFrom reads path (a missing file is not an error) and applies env overrides.
func LoadFrom(path string) (Config, error) {
	cfg := Defaults()
	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		var file Config
		if err := yaml.Unmarshal(data, &file); err != nil {
			return cfg, fmt.Errorf("parse %s: %w", path, err)
		}
		merge(&cfg, &file)
	case !errors.Is(err, os.ErrNotExist):
		return cfg, fmt.Errorf("read %s: %w", path, err)
	}
	applyEnv(&cfg)
	return cfg, nil
}

// Save writes cfg as YAML to path, creating parent directories.
func Save(path string, cfg Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	return os.WriteFile(path, data, 0o600)
}

func merge(dst, src *Config) {
	if src.ConfigVersion != 0 {
		dst.ConfigVersion = src.ConfigVersion
	}
	if v := strings.ToLower(strings.TrimSpace(src.Canvas.Mode)); v != "" {
		dst.Canvas.Mode = v
	}
	if v := strings.TrimSpace(src.Canvas.ID); v != "" {
		dst.Canvas.ID = v
	}

	if src.Drag.LongPressMs > 0 {
		dst.Drag.LongPressMs = src.Drag.LongPressMs
	}
	if src.Drag.MoveThresholdPx > 0 {
		dst.Drag.MoveThresholdPx = src.Drag.MoveThresholdPx
	}
	if src.Drag.HandleHeightPx > 0 {
		dst.Drag.HandleHeightPx = src.Drag.HandleHeightPx
	}

	if len(src.Classifier.DisabledPlatforms) > 0 {
		dst.Classifier.DisabledPlatforms = src.Classifier.DisabledPlatforms
	}
	if len(src.Classifier.DocumentSuffixes) > 0 {
		dst.Classifier.DocumentSuffixes = src.Classifier.DocumentSuffixes
	}

	s := src.Storage
	if v := strings.ToLower(strings.TrimSpace(s.Driver)); v != "" {
		dst.Storage.Driver = v
	}
	if s.Path != "" {
		dst.Storage.Path = s.Path
	}
	if s.Host != "" {
		dst.Storage.Host = s.Host
	}
	if s.Port != 0 {
		dst.Storage.Port = s.Port
	}
	if s.Database != "" {
		dst.Storage.Database = s.Database
	}
	if s.Username != "" {
		dst.Storage.Username = s.Username
	}
	if s.SSLMode != "" {
		dst.Storage.SSLMode = s.SSLMode
	}

	if src.Watch.DropDir != "" {
		dst.Watch.DropDir = src.Watch.DropDir
	}
	if src.Sync.FlushSchedule != "" {
		dst.Sync.FlushSchedule = src.Sync.FlushSchedule
	}

	if v := strings.TrimSpace(src.Logging.Level); v != "" {
		dst.Logging.Level = strings.ToLower(v)
	}
	if v := strings.TrimSpace(src.Logging.Format); v != "" {
		dst.Logging.Format = strings.ToLower(v)
	}
	dst.Logging.Source = src.Logging.Source
	if v := strings.TrimSpace(src.Logging.File); v != "" {
		dst.Logging.File = v
	}
}

func applyEnv(cfg *Config) {
	if v := env(EnvMode); v != "" {
		cfg.Canvas.Mode = strings.ToLower(v)
	}
	if v := env(EnvLongPressMs); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.Drag.LongPressMs = n
		}
	}
	if v := env(EnvStorageDriver); v != "" {
		cfg.Storage.Driver = strings.ToLower(v)
	}
	if v := env(EnvStoragePath); v != "" {
		cfg.Storage.Path = v
	}
	if v := env(EnvStorageHost); v != "" {
		cfg.Storage.Host = v
	}
	if v := env(EnvDropDir); v != "" {
		cfg.Watch.DropDir = v
	}
	if v := env(EnvFlushSchedule); v != "" {
		cfg.Sync.FlushSchedule = v
	}
	if v := env(EnvLogLevel); v != "" {
		cfg.Logging.Level = strings.ToLower(v)
	}
	if v := env(EnvLogFormat); v != "" {
		cfg.Logging.Format = strings.ToLower(v)
	}
	if v := env(EnvLogFile); v != "" {
		cfg.Logging.File = v
	}
}

func env(key string) string { return strings.TrimSpace(os.Getenv(key)) }
