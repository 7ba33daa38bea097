package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/tailscale/hujson"

	"github.com/srediag/shmregion/pkg/shm"
)

// DefaultListen is the address `serve` binds when nothing else is configured.
const DefaultListen = "127.0.0.1:9430"

// Config holds the companion tool's settings.
type Config struct {
	Dir      string `json:"dir,omitempty"`
	Name     string `json:"name,omitempty"`
	Capacity int    `json:"capacity,omitempty"`
	LogLevel *int   `json:"log_level,omitempty"`
	Listen   string `json:"listen,omitempty"`

	// Source is the config file that was loaded, if any.
	Source string `json:"-"`
}

// DefaultConfig returns the protocol defaults with Dir resolved from env.
func DefaultConfig(env map[string]string) Config {
	dir := env["TMPDIR"]
	if dir == "" {
		dir = os.TempDir()
	}
	return Config{
		Dir:      dir,
		Name:     shm.DefaultName,
		Capacity: shm.Capacity,
		Listen:   DefaultListen,
	}
}

// Region returns a fresh shm.Config for this configuration.
func (c Config) Region(policy shm.Policy) *shm.Config {
	return &shm.Config{
		Dir:      c.Dir,
		Name:     c.Name,
		Capacity: c.Capacity,
		Policy:   policy,
	}
}

// globalConfigPath returns $XDG_CONFIG_HOME/shmemctl/config.json, falling back to
// ~/.config/shmemctl/config.json. Returns empty string if neither can be resolved.
func globalConfigPath(env map[string]string) string {
	if xdgConfig := env["XDG_CONFIG_HOME"]; xdgConfig != "" {
		return filepath.Join(xdgConfig, "shmemctl", "config.json")
	}

	if home := env["HOME"]; home != "" {
		return filepath.Join(home, ".config", "shmemctl", "config.json")
	}

	return ""
}

// LoadConfig loads configuration with the following precedence (highest wins):
// 1. Defaults
// 2. The explicit config file at configPath, or the global user config if
// configPath is empty
// 3. Flag overrides, applied by the caller.
func LoadConfig(configPath string, env map[string]string) (Config, error) {
	cfg := DefaultConfig(env)

	path := configPath
	mustExist := path != ""
	if !mustExist {
		path = globalConfigPath(env)
		if path == "" {
			return cfg, nil
		}
	}

	fileCfg, loaded, err := loadConfigFile(path, mustExist)
	if err != nil {
		return Config{}, err
	}
	if !loaded {
		return cfg, nil
	}

	cfg = mergeConfig(cfg, fileCfg)
	cfg.Source = path
	return cfg, nil
}

// loadConfigFile loads a config file. If mustExist is false, missing files return zero config.
func loadConfigFile(path string, mustExist bool) (Config, bool, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			if mustExist {
				return Config{}, false, fmt.Errorf("%w: %s", ErrConfigFileNotFound, path)
			}
			return Config{}, false, nil
		}
		return Config{}, false, fmt.Errorf("%w: %s: %w", ErrConfigFileRead, path, err)
	}

	cfg, err := parseConfig(data)
	if err != nil {
		return Config{}, false, fmt.Errorf("%w %s: %w", ErrConfigInvalid, path, err)
	}

	return cfg, true, nil
}

func parseConfig(data []byte) (Config, error) {
	// Standardize JSONC to JSON
	standardized, err := hujson.Standardize(data)
	if err != nil {
		return Config{}, fmt.Errorf("invalid JSONC: %w", err)
	}

	var cfg Config

	if err := json.Unmarshal(standardized, &cfg); err != nil {
		return Config{}, fmt.Errorf("invalid JSON: %w", err)
	}

	return cfg, nil
}

func mergeConfig(base, overlay Config) Config {
	if overlay.Dir != "" {
		base.Dir = overlay.Dir
	}
	if overlay.Name != "" {
		base.Name = overlay.Name
	}
	if overlay.Capacity != 0 {
		base.Capacity = overlay.Capacity
	}
	if overlay.LogLevel != nil {
		base.LogLevel = overlay.LogLevel
	}
	if overlay.Listen != "" {
		base.Listen = overlay.Listen
	}
	return base
}

// validate checks the resolved values against the region rules.
func (c Config) validate() error {
	if err := shm.VerifyConfig(c.Region(shm.PolicyOpenOnly)); err != nil {
		return fmt.Errorf("%w: %w", ErrConfigInvalid, err)
	}
	return nil
}

// FormatConfig renders c as indented JSON.
func FormatConfig(c Config) (string, error) {
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return "", fmt.Errorf("formatting config: %w", err)
	}
	return string(data), nil
}
