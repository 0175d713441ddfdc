// Package xdg resolves XDG Base Directory paths for supersetctl.
//
// Config holds config.yaml. State holds the reports written after batch runs.
// Both directories are created private (0700) because they may hold credentials
// or resource listings.
package xdg

import (
	"os"
	"path/filepath"
)

// AppName is the directory name used under every XDG base.
const AppName = "supersetctl"

// ConfigDir returns the XDG config directory for supersetctl, creating it if missing.
// It falls back to ~/.config/supersetctl when XDG_CONFIG_HOME is unset.
func ConfigDir() (string, error) {
	return appDir("XDG_CONFIG_HOME", ".config")
}

// StateDir returns the XDG state directory for supersetctl, creating it if missing.
// It falls back to ~/.local/state/supersetctl when XDG_STATE_HOME is unset.
func StateDir() (string, error) {
	return appDir("XDG_STATE_HOME", filepath.Join(".local", "state"))
}

func appDir(envKey, homeRel string) (string, error) {
	base := os.Getenv(envKey)
	if base == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		base = filepath.Join(home, homeRel)
	}
	dir := filepath.Join(base, AppName)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return "", err
	}
	return dir, nil
}
