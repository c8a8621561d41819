// Package config provides configuration management for the transfer engine.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"gopkg.in/ini.v1"
)

// Region selects the pCloud API endpoint.
type Region string

const (
	RegionUS Region = "US"
	RegionEU Region = "EU"
)

// BaseURL returns the region's API origin, defaulting to US for an unset or
// unrecognized value.
func (r Region) BaseURL() string {
	if r == RegionEU {
		return "https://eapi.pcloud.com"
	}
	return "https://api.pcloud.com"
}

// Config is the engine's configuration surface.
//
// INI format:
//
//	[pcloud]
//	region = US
//	username =
//	token =
//
//	[engine]
//	workers = 0
//	max_retries = 3
//	chunk_size_mb = 10
//	duplicate_mode = rename
type Config struct {
	Region   Region `ini:"region"`
	Username string `ini:"username"`
	// Token, when set, is used instead of username/password login. Never
	// persisted by Save unless explicitly present on the struct already -
	// the engine does not cache tokens it obtains itself (Non-goal).
	Token string `ini:"token"`

	// Workers overrides the adaptive worker count from internal/resources when
	// greater than zero.
	Workers int `ini:"workers"`

	MaxRetries    int    `ini:"max_retries"`
	ChunkSizeMB   int    `ini:"chunk_size_mb"`
	DuplicateMode string `ini:"duplicate_mode"`
}

var (
	ErrMissingCredentials = errors.New("pcloud: no token or username/password configured")
	ErrInvalidRegion      = errors.New("pcloud: region must be US or EU")
)

// DefaultConfigPath returns the default config file location:
//   - Windows: %USERPROFILE%\.config\pcloud-engine\config
//   - Unix: ~/.config/pcloud-engine/config
func DefaultConfigPath() (string, error) {
	var dir string
	if runtime.GOOS == "windows" {
		userProfile := os.Getenv("USERPROFILE")
		if userProfile == "" {
			return "", errors.New("USERPROFILE environment variable not set")
		}
		dir = filepath.Join(userProfile, ".config", "pcloud-engine")
	} else {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("failed to get home directory: %w", err)
		}
		dir = filepath.Join(home, ".config", "pcloud-engine")
	}
	return filepath.Join(dir, "config"), nil
}

// New returns a Config populated with defaults.
func New() *Config {
	return &Config{
		Region:        RegionUS,
		MaxRetries:    3,
		ChunkSizeMB:   10,
		DuplicateMode: "rename",
	}
}

// Load reads configuration from an INI file, falling back to defaults if the
// file does not exist. PCLOUD_TOKEN, PCLOUD_USERNAME and PCLOUD_REGION from
// the environment take precedence over the file. No password is read from
// the environment or the file; Config has no password field.
func Load(path string) (*Config, error) {
	cfg := New()

	if path == "" {
		var err error
		path, err = DefaultConfigPath()
		if err != nil {
			return cfg, nil
		}
	}

	if _, err := os.Stat(path); !os.IsNotExist(err) {
		iniFile, loadErr := ini.Load(path)
		if loadErr != nil {
			return nil, fmt.Errorf("failed to load config: %w", loadErr)
		}
		section := iniFile.Section("pcloud")
		cfg.Region = Region(strings.ToUpper(section.Key("region").MustString(string(RegionUS))))
		cfg.Username = section.Key("username").String()
		cfg.Token = section.Key("token").String()

		engine := iniFile.Section("engine")
		cfg.Workers = engine.Key("workers").MustInt(0)
		cfg.MaxRetries = engine.Key("max_retries").MustInt(cfg.MaxRetries)
		cfg.ChunkSizeMB = engine.Key("chunk_size_mb").MustInt(cfg.ChunkSizeMB)
		cfg.DuplicateMode = engine.Key("duplicate_mode").MustString(cfg.DuplicateMode)
	}

	if tok := os.Getenv("PCLOUD_TOKEN"); tok != "" {
		cfg.Token = tok
	}
	if user := os.Getenv("PCLOUD_USERNAME"); user != "" {
		cfg.Username = user
	}
	if region := os.Getenv("PCLOUD_REGION"); region != "" {
		cfg.Region = Region(strings.ToUpper(region))
	}

	return cfg, nil
}

// Save persists configuration to an INI file with an atomic write-then-rename
// and restrictive permissions, since the file may carry a token.
func Save(cfg *Config, path string) error {
	if path == "" {
		var err error
		path, err = DefaultConfigPath()
		if err != nil {
			return fmt.Errorf("failed to determine config path: %w", err)
		}
	}

	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	iniFile := ini.Empty()

	pcloud, err := iniFile.NewSection("pcloud")
	if err != nil {
		return fmt.Errorf("failed to create pcloud section: %w", err)
	}
	pcloud.Key("region").SetValue(string(cfg.Region))
	pcloud.Key("username").SetValue(cfg.Username)
	pcloud.Key("token").SetValue(cfg.Token)

	engine, err := iniFile.NewSection("engine")
	if err != nil {
		return fmt.Errorf("failed to create engine section: %w", err)
	}
	engine.Key("workers").SetValue(fmt.Sprintf("%d", cfg.Workers))
	engine.Key("max_retries").SetValue(fmt.Sprintf("%d", cfg.MaxRetries))
	engine.Key("chunk_size_mb").SetValue(fmt.Sprintf("%d", cfg.ChunkSizeMB))
	engine.Key("duplicate_mode").SetValue(cfg.DuplicateMode)

	tmpPath := path + ".tmp"
	if err := iniFile.SaveTo(tmpPath); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	if runtime.GOOS != "windows" {
		if err := os.Chmod(tmpPath, 0600); err != nil {
			os.Remove(tmpPath)
			return fmt.Errorf("failed to set config permissions: %w", err)
		}
	}
	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to save config: %w", err)
	}
	return nil
}

// Validate checks that the config carries usable credentials and a known
// region.
func (cfg *Config) Validate() error {
	if cfg.Region != RegionUS && cfg.Region != RegionEU {
		return ErrInvalidRegion
	}
	if cfg.Token == "" && cfg.Username == "" {
		return ErrMissingCredentials
	}
	return nil
}
