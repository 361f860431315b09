package app

import (
	"fmt"
	"os"
	"path/filepath"
)

// Defaults are the paths and identity used when no config overrides them.
type Defaults struct {
	ConfigPath string
	BaseDir    string
	LogDir     string
	UserID     string
}

// GetDefaults returns application defaults, checking environment variables first.
// Environment variables:
//   - WISHLIST_CONFIG_PATH: config file location (default: ~/.config/wishlist.toml)
//   - WISHLIST_HOME: base directory for drafts, images and logs (default: ~/.local/share/wishlist)
//   - WISHLIST_USER: user id written by `config init` (default: anonymous)
func GetDefaults() (*Defaults, error) {
	configPath, err := envOrHome("WISHLIST_CONFIG_PATH", ".config", "wishlist.toml")
	if err != nil {
		return nil, err
	}

	baseDir, err := envOrHome("WISHLIST_HOME", ".local", "share", "wishlist")
	if err != nil {
		return nil, err
	}

	return &Defaults{
		ConfigPath: configPath,
		BaseDir:    baseDir,
		LogDir:     filepath.Join(baseDir, "log"),
		UserID:     os.Getenv("WISHLIST_USER"),
	}, nil
}

// envOrHome returns the named env var, or a path under the home directory.
func envOrHome(env string, elem ...string) (string, error) {
	if path := os.Getenv(env); path != "" {
		return path, nil
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("cannot determine home directory: %w", err)
	}
	return filepath.Join(append([]string{homeDir}, elem...)...), nil
}
