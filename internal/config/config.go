package config

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	defaultListen       = "127.0.0.1:8080"
	defaultDataFile     = "/var/lib/rxremind/data.yaml"
	defaultDispatch     = "* * * * *"
	defaultRefillTime   = "09:00"
	defaultUpcomingDays = 7
	defaultPrintDir     = "/var/lib/rxremind/print"
	defaultPrintTimeout = 30
)

// LogConfig controls log verbosity and optional file output.
type LogConfig struct {
	// Level is one of debug, info, warn, error.
	Level string `yaml:"level" json:"level"`
	// File, if set, receives a rotated copy of the log.
	File       string `yaml:"file,omitempty" json:"file,omitempty"`
	MaxSizeMB  int    `yaml:"max_size_mb" json:"max_size_mb"`
	MaxBackups int    `yaml:"max_backups" json:"max_backups"`
}

// PrintConfig controls PDF export of prescriptions.
type PrintConfig struct {
	// BaseURL is how headless Chromium reaches this server. Empty means
	// "http://" + Listen.
	BaseURL        string `yaml:"base_url,omitempty" json:"base_url,omitempty"`
	OutputDir      string `yaml:"output_dir" json:"output_dir"`
	TimeoutSeconds int    `yaml:"timeout_seconds" json:"timeout_seconds"`
}

// BasicAuthConfig holds HTTP Basic Auth credentials for the API.
type BasicAuthConfig struct {
	Username string `yaml:"username" json:"username"`
	Password string `yaml:"password" json:"password"`
}

// Config is the top-level application configuration.
type Config struct {
	// Listen is the HTTP listen address.
	Listen string `yaml:"listen" json:"listen"`

	// DataFile is the YAML file holding prescriptions and reminders.
	DataFile string `yaml:"data_file" json:"data_file"`

	// Dispatch is a 5-field cron expression for the notification loop.
	Dispatch string `yaml:"dispatch" json:"dispatch"`

	// RefillTime is the "HH:MM" at which refill reminders fire on their date.
	RefillTime string `yaml:"refill_time" json:"refill_time"`

	// UpcomingDays is the default window of /api/upcoming.
	UpcomingDays int `yaml:"upcoming_days" json:"upcoming_days"`

	Log   LogConfig   `yaml:"log" json:"log"`
	Print PrintConfig `yaml:"print" json:"print"`

	// BasicAuth, if set, protects every endpoint except /health.
	BasicAuth *BasicAuthConfig `yaml:"basic_auth,omitempty" json:"basic_auth,omitempty"`
}

func DefaultConfig() *Config {
	return &Config{
		Listen:       defaultListen,
		DataFile:     defaultDataFile,
		Dispatch:     defaultDispatch,
		RefillTime:   defaultRefillTime,
		UpcomingDays: defaultUpcomingDays,
		Log: LogConfig{
			Level:      "info",
			MaxSizeMB:  10,
			MaxBackups: 3,
		},
		Print: PrintConfig{
			OutputDir:      defaultPrintDir,
			TimeoutSeconds: defaultPrintTimeout,
		},
	}
}

// Normalize fills missing or invalid values with defaults so older or
// hand-edited files still load.
func (c *Config) Normalize() {
	if c.Listen == "" {
		c.Listen = defaultListen
	}
	if c.DataFile == "" {
		c.DataFile = defaultDataFile
	}
	if c.Dispatch == "" {
		c.Dispatch = defaultDispatch
	}
	if _, err := time.Parse("15:04", c.RefillTime); err != nil || len(c.RefillTime) != 5 {
		c.RefillTime = defaultRefillTime
	}
	if c.UpcomingDays <= 0 {
		c.UpcomingDays = defaultUpcomingDays
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.MaxSizeMB <= 0 {
		c.Log.MaxSizeMB = 10
	}
	if c.Log.MaxBackups < 0 {
		c.Log.MaxBackups = 0
	}
	if c.Print.OutputDir == "" {
		c.Print.OutputDir = defaultPrintDir
	}
	if c.Print.TimeoutSeconds <= 0 {
		c.Print.TimeoutSeconds = defaultPrintTimeout
	}
}

// PrintBaseURL is the URL prefix headless Chromium uses to reach the server.
func (c *Config) PrintBaseURL() string {
	if c.Print.BaseURL != "" {
		return c.Print.BaseURL
	}
	return "http://" + c.Listen
}

// Load reads the YAML config at path. On first run (file missing) it writes
// the defaults with 0600 permissions and returns them.
func Load(path string) (*Config, error) {
	if path == "" {
		return nil, errors.New("config path is empty")
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			cfg := DefaultConfig()
			if err := Save(path, cfg); err != nil {
				// caller decides whether running without a file is fine
				return cfg, err
			}
			return cfg, nil
		}
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	cfg.Normalize()

	return &cfg, nil
}

// Save normalizes cfg and writes it atomically (temp file + rename, 0600).
func Save(path string, cfg *Config) error {
	if path == "" {
		return errors.New("config path is empty")
	}
	if cfg == nil {
		return errors.New("config is nil")
	}

	cfg.Normalize()

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return err
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, ".rxremind-config-*.tmp")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Chmod(tmpName, 0o600); err != nil {
		return err
	}
	return os.Rename(tmpName, path)
}
