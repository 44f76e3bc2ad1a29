package app

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
)

// File names inside the configuration and resource directories.
const (
	DatabaseFile     = "kron.db"
	SettingsFile     = "config.json"
	DaemonConfigFile = "kron.yaml"
	DefaultSoundFile = "default_sound.mp3"
)

// Paths locates everything the daemon reads. ConfigDir is shared with the UI.
type Paths struct {
	ConfigDir   string
	ResourceDir string
	// ConfigFile overrides <ConfigDir>/kron.yaml.
	ConfigFile string
}

// DefaultConfigDir is <user config dir>/kron.
func DefaultConfigDir() (string, error) {
	base, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(base, "kron"), nil
}

func (p Paths) Validate() error {
	if strings.TrimSpace(p.ConfigDir) == "" {
		return errors.New("config dir is required")
	}
	return nil
}

func (p Paths) Database() string { return filepath.Join(p.ConfigDir, DatabaseFile) }

func (p Paths) Settings() string { return filepath.Join(p.ConfigDir, SettingsFile) }

func (p Paths) DaemonConfig() string {
	if f := strings.TrimSpace(p.ConfigFile); f != "" {
		return f
	}
	return filepath.Join(p.ConfigDir, DaemonConfigFile)
}

// DefaultSound is the bundled fallback asset, or "" without a resource dir.
func (p Paths) DefaultSound() string {
	if strings.TrimSpace(p.ResourceDir) == "" {
		return ""
	}
	return filepath.Join(p.ResourceDir, DefaultSoundFile)
}
