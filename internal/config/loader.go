package config

import (
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// DefaultConfigFile is the default configuration file name.
const DefaultConfigFile = ".pwasmoke"

// File represents the structure of the .pwasmoke configuration file.
// Pointer fields distinguish "not set" from an explicit false.
type File struct {
	// Root is the project root, relative to the directory holding the file.
	Root string `yaml:"root,omitempty"`

	// Strict enables the strict audit.
	Strict *bool `yaml:"strict,omitempty"`

	// Batch is the number of roots checked concurrently.
	Batch int `yaml:"batch,omitempty"`

	// History enables recording runs in the history database.
	History *bool `yaml:"history,omitempty"`

	// Manifest holds manifest.json parsing options.
	Manifest ManifestConfig `yaml:"manifest,omitempty"`

	// Watch holds watch mode options.
	Watch WatchConfig `yaml:"watch,omitempty"`
}

// ManifestConfig holds manifest.json parsing options.
type ManifestConfig struct {
	// AllowComments strips comments and trailing commas before parsing.
	AllowComments bool `yaml:"allowComments,omitempty"`
}

// WatchConfig holds watch mode options.
type WatchConfig struct {
	// Debounce is a Go duration string such as "300ms".
	Debounce time.Duration `yaml:"debounce,omitempty"`
}

// LoadConfigFile loads a configuration file.
// If the file does not exist, it returns ErrConfigNotFound.
// Callers should handle this error appropriately based on whether
// the config file path was explicitly specified by the user.
func LoadConfigFile(path string) (*File, error) {
	data, err := os.ReadFile(path) //nolint:gosec // User-provided config path is intentional
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrConfigNotFound
		}
		return nil, err
	}

	var cf File
	if err := yaml.Unmarshal(data, &cf); err != nil {
		return nil, err
	}
	return &cf, nil
}

// ResolveRoot returns the project root described by the file loaded from
// configPath. Without a root key the directory holding the file is the root.
func (cf *File) ResolveRoot(configPath string) string {
	dir := filepath.Dir(configPath)
	if cf == nil || cf.Root == "" {
		return dir
	}
	if filepath.IsAbs(cf.Root) {
		return filepath.Clean(cf.Root)
	}
	return filepath.Join(dir, cf.Root)
}

// FindConfigFile searches for the configuration file in the following order:
// 1. If configPath is specified, use it directly
// 2. Look for .pwasmoke in the current directory and each of its parents
//
// Returns the path to the configuration file if found, or empty string if not found.
func FindConfigFile(configPath string) string {
	if configPath != "" {
		if _, err := os.Stat(configPath); err == nil {
			return configPath
		}
		return ""
	}

	cwd, err := os.Getwd()
	if err != nil {
		return ""
	}
	return FindConfigFileFrom(cwd)
}

// FindConfigFileFrom walks up from start to the filesystem root and returns
// the first .pwasmoke file found, or empty string if there is none.
func FindConfigFileFrom(start string) string {
	dir, err := filepath.Abs(start)
	if err != nil {
		return ""
	}

	for {
		candidate := filepath.Join(dir, DefaultConfigFile)
		if info, err := os.Stat(candidate); err == nil && !info.IsDir() {
			return candidate
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			return ""
		}
		dir = parent
	}
}
