package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"

	"github.com/dmcp-project/dmcp/internal/files"
)

const (
	// DefaultSettingsFileName is the name of the settings file inside the user's MCP config directory.
	DefaultSettingsFileName = "settings.toml"

	// DefaultBroker is the elevation broker used when none is configured.
	DefaultBroker = "pkexec"
)

// DefaultSettingsFile returns the default location of the settings file (~/.config/mcp/settings.toml).
func DefaultSettingsFile() (string, error) {
	dir, err := files.UserSpecificConfigDir()
	if err != nil {
		return "", err
	}

	return filepath.Join(dir, DefaultSettingsFileName), nil
}

// Defaults returns settings populated with built-in defaults.
func Defaults() *Settings {
	return &Settings{
		Elevation: ElevationSettings{Broker: DefaultBroker},
	}
}

// Load reads the settings file at path.
// A missing file is not an error: built-in defaults are returned instead.
// An empty path means the default settings file location.
func (d *DefaultLoader) Load(path string) (*Settings, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		p, err := DefaultSettingsFile()
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrConfigLoadFailed, err)
		}
		path = p
	}

	cfg := Defaults()

	_, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return cfg, nil
		}
		return nil, fmt.Errorf("%w: failed to stat settings file (%s): %w", ErrConfigLoadFailed, path, err)
	}

	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return nil, fmt.Errorf("%w: failed to decode settings from file (%s): %w", ErrConfigLoadFailed, path, err)
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("%w: failed to validate settings (%s): %w", ErrConfigLoadFailed, path, err)
	}

	return cfg, nil
}

// validate orchestrates validation of the settings structure.
func (s *Settings) validate() error {
	s.Elevation.Broker = strings.TrimSpace(s.Elevation.Broker)
	if s.Elevation.Broker == "" {
		s.Elevation.Broker = DefaultBroker
	}
	if strings.ContainsAny(s.Elevation.Broker, " \t") {
		return NewErrInvalidValue("elevation.broker", s.Elevation.Broker)
	}

	for key, value := range map[string]string{
		"paths.user_sources":       s.Paths.UserSources,
		"paths.user_install_dir":   s.Paths.UserInstallDir,
		"paths.system_sources":     s.Paths.SystemSources,
		"paths.system_install_dir": s.Paths.SystemInstallDir,
	} {
		v := strings.TrimSpace(value)
		if v == "" {
			continue
		}
		if !filepath.IsAbs(v) && !strings.HasPrefix(v, "~") {
			return NewErrInvalidValue(key, value)
		}
	}

	return nil
}
