// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 tutorcab Contributors

// Package xdg resolves XDG Base Directory paths for tutorcab.
package xdg

import (
	"os"
	"path/filepath"
)

const appName = "tutorcab"

// ConfigDir returns the XDG config directory for tutorcab.
// Checks XDG_CONFIG_HOME first, falls back to ~/.config.
func ConfigDir() string {
	base := os.Getenv("XDG_CONFIG_HOME")
	if base == "" {
		base = filepath.Join(os.Getenv("HOME"), ".config")
	}
	return filepath.Join(base, appName)
}

// ConfigFile returns the path of the default config file.
func ConfigFile() string {
	return filepath.Join(ConfigDir(), "config.yaml")
}

// DefaultConfigFile returns ConfigFile when that file exists, otherwise "".
func DefaultConfigFile() string {
	path := ConfigFile()
	if _, err := os.Stat(path); err != nil {
		return ""
	}
	return path
}
