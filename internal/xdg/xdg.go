// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Accountd Contributors

// Package xdg provides XDG Base Directory paths for accountd.
package xdg

import (
	"os"
	"path/filepath"

	"github.com/samber/oops"
)

const appName = "accountd"

// ConfigDir returns the XDG config directory for accountd.
// Checks XDG_CONFIG_HOME first, falls back to ~/.config.
func ConfigDir() string {
	base := os.Getenv("XDG_CONFIG_HOME")
	if base == "" {
		base = filepath.Join(os.Getenv("HOME"), ".config")
	}
	return filepath.Join(base, appName)
}

// StateDir returns the XDG state directory for accountd.
// Checks XDG_STATE_HOME first, falls back to ~/.local/state.
func StateDir() string {
	base := os.Getenv("XDG_STATE_HOME")
	if base == "" {
		base = filepath.Join(os.Getenv("HOME"), ".local", "state")
	}
	return filepath.Join(base, appName)
}

// ConfigFile returns the config file read when --config is not given.
func ConfigFile() string {
	return filepath.Join(ConfigDir(), "config.yaml")
}

// MailDir returns the directory the dev mail transport writes to.
func MailDir() string {
	return filepath.Join(StateDir(), "mail")
}

// FindConfigFile returns ConfigFile if it exists, or "" otherwise.
func FindConfigFile() string {
	path := ConfigFile()
	if info, err := os.Stat(path); err == nil && !info.IsDir() {
		return path
	}
	return ""
}

// EnsureDir creates a directory and all parent directories if they don't exist.
// Directories are created with 0700 permissions.
func EnsureDir(path string) error {
	if err := os.MkdirAll(path, 0o700); err != nil {
		return oops.Code("XDG_MKDIR_FAILED").With("path", path).Wrap(err)
	}
	return nil
}
