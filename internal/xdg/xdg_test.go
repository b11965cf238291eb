// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 tutorcab Contributors

package xdg

import (
	"os"
	"path/filepath"
	"testing"
)

func TestConfigDir_EnvVar(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", "/custom/config")
	want := "/custom/config/tutorcab"
	if got := ConfigDir(); got != want {
		t.Errorf("ConfigDir() = %q, want %q", got, want)
	}
}

func TestConfigDir_Default(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", "")
	t.Setenv("HOME", "/home/testuser")
	want := "/home/testuser/.config/tutorcab"
	if got := ConfigDir(); got != want {
		t.Errorf("ConfigDir() = %q, want %q", got, want)
	}
}

func TestConfigFile(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", "/custom/config")
	want := "/custom/config/tutorcab/config.yaml"
	if got := ConfigFile(); got != want {
		t.Errorf("ConfigFile() = %q, want %q", got, want)
	}
}

func TestDefaultConfigFile(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", dir)

	if got := DefaultConfigFile(); got != "" {
		t.Errorf("DefaultConfigFile() = %q before the file exists, want empty", got)
	}

	path := filepath.Join(dir, "tutorcab", "config.yaml")
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		t.Fatalf("MkdirAll() error = %v", err)
	}
	if err := os.WriteFile(path, []byte("http:\n  addr: :9090\n"), 0o600); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}

	if got := DefaultConfigFile(); got != path {
		t.Errorf("DefaultConfigFile() = %q, want %q", got, path)
	}
}
