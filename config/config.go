package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/viper"
)

const (
	defaultLoader      = "fabric"
	defaultGameVersion = "1.21.5"
	configFileName     = "modsync"
)

// Profile is the flattened view handed to the update pipeline: one mod
// folder plus the compatibility and behavior settings that apply to it.
type Profile struct {
	Name         string
	Folder       string
	GameVersions []string
	Loaders      []string
	AutoUpdate   bool
	BackupMods   bool
}

// Config holds all configuration for the application.
// Values are loaded by Viper from a JSON config file and/or environment
// variables (MODSYNC_* prefix).
type Config struct {
	ModFolders        map[string]string `mapstructure:"mod_folders" json:"mod_folders"`
	CurrentFolder     string            `mapstructure:"current_folder" json:"current_folder"`
	GameVersions      []string          `mapstructure:"game_versions" json:"game_versions"`
	Loaders           []string          `mapstructure:"loaders" json:"loaders"`
	AutoUpdate        bool              `mapstructure:"auto_update" json:"auto_update"`
	BackupMods        bool              `mapstructure:"backup_mods" json:"backup_mods"`
	CheckIntervalDays int               `mapstructure:"check_interval_days" json:"check_interval_days"`
	LastCheck         string            `mapstructure:"last_check" json:"last_check"`
	UserAgent         string            `mapstructure:"useragent" json:"useragent,omitempty"`
	DatabasePath      string            `mapstructure:"-" json:"-"`

	path string // file the config was loaded from, used by Save
}

// LoadConfig reads configuration from file and environment variables.
func LoadConfig(path string) (config Config, err error) {
	v := viper.New()
	v.AddConfigPath(path)
	v.SetConfigName(configFileName)
	v.SetConfigType("json")

	v.SetEnvPrefix("MODSYNC")
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return Config{}, fmt.Errorf("fatal error config file: %w", err)
		}
		// No config file yet; defaults plus environment are enough.
	}

	if err := v.Unmarshal(&config); err != nil {
		return Config{}, fmt.Errorf("unable to decode into struct, %w", err)
	}

	processConfigDefaults(&config)

	config.path = filepath.Join(path, configFileName+".json")
	config.DatabasePath = filepath.Join(path, "modsync.db")

	return config, nil
}

// processConfigDefaults fills in the values the original defaults provide
// when the file or environment leaves them unset.
func processConfigDefaults(cfg *Config) {
	if cfg.ModFolders == nil {
		cfg.ModFolders = map[string]string{}
	}
	if cfg.CurrentFolder == "" {
		cfg.CurrentFolder = "client"
	}
	if len(cfg.Loaders) == 0 {
		cfg.Loaders = []string{defaultLoader}
	}
	if len(cfg.GameVersions) == 0 {
		cfg.GameVersions = []string{defaultGameVersion}
	}
	if cfg.CheckIntervalDays <= 0 {
		cfg.CheckIntervalDays = 7
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = "modsync/1.0 (github.com/modsync)"
	}
}

// Save writes the configuration back to the file it was loaded from.
func (c *Config) Save() error {
	if c.path == "" {
		return fmt.Errorf("config has no backing file")
	}
	if err := os.MkdirAll(filepath.Dir(c.path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	data, err := json.MarshalIndent(c, "", "    ")
	if err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	if err := os.WriteFile(c.path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// Resolve builds the Profile for the named folder entry. An empty name
// selects the current folder.
func (c *Config) Resolve(name string) (Profile, error) {
	if name == "" {
		name = c.CurrentFolder
	}
	folder, ok := c.ModFolders[name]
	if !ok {
		return Profile{}, fmt.Errorf("profile %q is not configured", name)
	}
	return Profile{
		Name:         name,
		Folder:       folder,
		GameVersions: c.GameVersions,
		Loaders:      c.Loaders,
		AutoUpdate:   c.AutoUpdate,
		BackupMods:   c.BackupMods,
	}, nil
}

// AddProfile registers a named mod folder.
func (c *Config) AddProfile(name, folder string) error {
	if name == "" || folder == "" {
		return fmt.Errorf("profile name and folder are required")
	}
	if _, exists := c.ModFolders[name]; exists {
		return fmt.Errorf("profile %q already exists", name)
	}
	c.ModFolders[name] = folder
	return nil
}

// RemoveProfile deletes a named mod folder entry. The active profile
// cannot be removed.
func (c *Config) RemoveProfile(name string) error {
	if _, exists := c.ModFolders[name]; !exists {
		return fmt.Errorf("profile %q is not configured", name)
	}
	if name == c.CurrentFolder {
		return fmt.Errorf("profile %q is active; switch profiles before removing it", name)
	}
	delete(c.ModFolders, name)
	return nil
}

// SetActiveProfile switches the current folder to a configured profile.
func (c *Config) SetActiveProfile(name string) error {
	if _, exists := c.ModFolders[name]; !exists {
		return fmt.Errorf("profile %q is not configured", name)
	}
	c.CurrentFolder = name
	return nil
}

// WithinCheckInterval reports whether the last recorded check is more
// recent than the configured interval.
func (c *Config) WithinCheckInterval(now time.Time) bool {
	if c.LastCheck == "" {
		return false
	}
	last, err := time.Parse(time.RFC3339, c.LastCheck)
	if err != nil {
		return false
	}
	return now.Sub(last) < time.Duration(c.CheckIntervalDays)*24*time.Hour
}

// TouchLastCheck records the time of a completed check and persists it.
func (c *Config) TouchLastCheck(now time.Time) error {
	c.LastCheck = now.Format(time.RFC3339)
	return c.Save()
}
