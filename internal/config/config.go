package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"

	"github.com/arduino/go-paths-helper"
	"github.com/goccy/go-yaml"
)

// settings is the on-disk shape of <config dir>/config.yaml. Every key is
// optional; absent keys keep their defaults.
type settings struct {
	DefaultMode       string `yaml:"default-mode"`
	Journal           bool   `yaml:"journal"`
	JournalMaxEntries int    `yaml:"journal-max-entries"`
}

type Configuration struct {
	configDir   *paths.Path
	dataDir     *paths.Path
	defaultMode os.FileMode
	settings    settings
}

// NewFromEnv assembles the configuration from the environment and the
// optional config.yaml inside the config directory.
//
// STAGEFILE__CONFIG_DIR and STAGEFILE__DATA_DIR override the platform
// defaults; relative overrides are resolved against the working directory.
func NewFromEnv() (Configuration, error) {
	configDir := paths.New(os.Getenv("STAGEFILE__CONFIG_DIR"))
	if configDir == nil {
		xdgConfig, err := os.UserConfigDir()
		if err != nil {
			return Configuration{}, err
		}
		configDir = paths.New(xdgConfig).Join("stagefile")
	}
	if !configDir.IsAbs() {
		wd, err := paths.Getwd()
		if err != nil {
			return Configuration{}, err
		}
		configDir = wd.JoinPath(configDir)
	}

	dataDir := paths.New(os.Getenv("STAGEFILE__DATA_DIR"))
	if dataDir == nil {
		home, err := os.UserHomeDir()
		if err != nil {
			return Configuration{}, err
		}
		dataDir = paths.New(home).Join(".local", "share", "stagefile")
	}
	if !dataDir.IsAbs() {
		wd, err := paths.Getwd()
		if err != nil {
			return Configuration{}, err
		}
		dataDir = wd.JoinPath(dataDir)
	}

	set, err := loadSettings(configDir.Join("config.yaml"))
	if err != nil {
		return Configuration{}, err
	}
	mode, err := ParseMode(set.DefaultMode)
	if err != nil {
		return Configuration{}, fmt.Errorf("invalid default-mode: %w", err)
	}

	c := Configuration{
		configDir:   configDir,
		dataDir:     dataDir,
		defaultMode: mode,
		settings:    set,
	}
	if err := c.DataDir().MkdirAll(); err != nil {
		return Configuration{}, err
	}
	return c, nil
}

func loadSettings(file *paths.Path) (settings, error) {
	set := settings{
		Journal:           true,
		JournalMaxEntries: 100,
	}
	content, err := file.ReadFile()
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return set, nil
		}
		return settings{}, err
	}
	if err := yaml.Unmarshal(content, &set); err != nil {
		return settings{}, fmt.Errorf("cannot parse %s: %w", file, err)
	}
	return set, nil
}

// ParseMode parses octal mode bits like "0644". An empty value means "no
// override" and maps to zero.
func ParseMode(s string) (os.FileMode, error) {
	if s == "" {
		return 0, nil
	}
	bits, err := strconv.ParseUint(s, 8, 32)
	if err != nil || bits > 0o777 {
		return 0, fmt.Errorf("invalid mode %q: must be octal permission bits like 0644", s)
	}
	return os.FileMode(bits), nil
}

func (c *Configuration) ConfigDir() *paths.Path {
	return c.configDir
}

func (c *Configuration) DataDir() *paths.Path {
	return c.dataDir
}

func (c *Configuration) JournalPath() *paths.Path {
	return c.dataDir.Join("journal.msgpack")
}

func (c *Configuration) JournalEnabled() bool {
	return c.settings.Journal
}

func (c *Configuration) JournalMaxEntries() int {
	return c.settings.JournalMaxEntries
}

// DefaultMode returns the configured mode bits for new files, or zero when
// the built-in policy (0644 for new files, preserved bits for replacements)
// should apply.
func (c *Configuration) DefaultMode() os.FileMode {
	return c.defaultMode
}
