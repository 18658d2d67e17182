package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/BurntSushi/toml"
	"go.uber.org/zap/zapcore"
)

const (
	DefaultProbeInterval = 15 * time.Second
	DefaultMirrorTimeout = 10 * time.Second
)

// Config represents the global ~/.moodtrack/config.toml.
type Config struct {
	DefaultProfile string `toml:"default_profile"`
	MirrorURL      string `toml:"mirror_url"`
	DeviceID       string `toml:"device_id"`
	LogLevel       string `toml:"log_level"`
	Timezone       string `toml:"timezone"`
	ProbeInterval  string `toml:"probe_interval"`
	MirrorTimeout  string `toml:"mirror_timeout"`
}

// Load reads config from the given path. Returns zero config and error if file missing.
func Load(path string) (*Config, error) {
	var cfg Config
	_, err := toml.DecodeFile(path, &cfg)
	if err != nil {
		return nil, err
	}
	return &cfg, nil
}

// LoadOrDefault is like Load but treats a missing file as an empty config.
func LoadOrDefault(path string) (*Config, error) {
	cfg, err := Load(path)
	if errors.Is(err, fs.ErrNotExist) {
		return &Config{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load config %s: %w", path, err)
	}
	return cfg, nil
}

// Save writes config to the given path, creating parent dirs as needed.
func Save(path string, cfg *Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return err
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600)
	if err != nil {
		return err
	}
	encErr := toml.NewEncoder(f).Encode(cfg)
	if closeErr := f.Close(); closeErr != nil && encErr == nil {
		return closeErr
	}
	return encErr
}

// Level parses log_level, defaulting to info.
func (c *Config) Level() (zapcore.Level, error) {
	if c.LogLevel == "" {
		return zapcore.InfoLevel, nil
	}
	return zapcore.ParseLevel(c.LogLevel)
}

// Location resolves timezone, defaulting to the system zone.
func (c *Config) Location() (*time.Location, error) {
	if c.Timezone == "" {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return nil, fmt.Errorf("timezone %q: %w", c.Timezone, err)
	}
	return loc, nil
}

// ProbeEvery returns how often the mirror is probed for reachability.
func (c *Config) ProbeEvery() (time.Duration, error) {
	return duration("probe_interval", c.ProbeInterval, DefaultProbeInterval)
}

// MirrorDeadline returns the per-request mirror timeout.
func (c *Config) MirrorDeadline() (time.Duration, error) {
	return duration("mirror_timeout", c.MirrorTimeout, DefaultMirrorTimeout)
}

func duration(key, raw string, def time.Duration) (time.Duration, error) {
	if raw == "" {
		return def, nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	if d <= 0 {
		return 0, fmt.Errorf("%s: must be positive, got %s", key, raw)
	}
	return d, nil
}
