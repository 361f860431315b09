package app

import (
	"os"
	"path/filepath"
	"testing"
)

func TestGetDefaults(t *testing.T) {
	t.Run("uses env vars when set", func(t *testing.T) {
		t.Setenv("WISHLIST_CONFIG_PATH", "/custom/config.toml")
		t.Setenv("WISHLIST_HOME", "/custom/wishlist")
		t.Setenv("WISHLIST_USER", "user-123")

		d, err := GetDefaults()
		if err != nil {
			t.Fatalf("GetDefaults() error = %v", err)
		}

		want := Defaults{
			ConfigPath: "/custom/config.toml",
			BaseDir:    "/custom/wishlist",
			LogDir:     "/custom/wishlist/log",
			UserID:     "user-123",
		}
		if *d != want {
			t.Errorf("GetDefaults() = %+v, want %+v", *d, want)
		}
	})

	t.Run("falls back to home dir defaults", func(t *testing.T) {
		t.Setenv("WISHLIST_CONFIG_PATH", "")
		t.Setenv("WISHLIST_HOME", "")
		t.Setenv("WISHLIST_USER", "")

		d, err := GetDefaults()
		if err != nil {
			t.Fatalf("GetDefaults() error = %v", err)
		}

		homeDir, _ := os.UserHomeDir()

		wantConfig := filepath.Join(homeDir, ".config", "wishlist.toml")
		if d.ConfigPath != wantConfig {
			t.Errorf("ConfigPath = %q, want %q", d.ConfigPath, wantConfig)
		}

		wantBase := filepath.Join(homeDir, ".local", "share", "wishlist")
		if d.BaseDir != wantBase {
			t.Errorf("BaseDir = %q, want %q", d.BaseDir, wantBase)
		}

		if d.LogDir != filepath.Join(wantBase, "log") {
			t.Errorf("LogDir = %q", d.LogDir)
		}
		if d.UserID != "" {
			t.Errorf("UserID = %q, want anonymous", d.UserID)
		}
	})
}
