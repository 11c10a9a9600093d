// Package store provides the BadgerDB-backed implementations of the
// persistence ports: the replay store and the lobby store.
package store

import (
	"os"
	"path/filepath"
)

const appName = "kungfuchess"

// DataDir returns the server's data directory, creating it if needed.
// KFCHESS_DATA overrides the default of ~/.local/share/kungfuchess (or
// $XDG_DATA_HOME/kungfuchess when set).
func DataDir() (string, error) {
	if dir := os.Getenv("KFCHESS_DATA"); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return "", err
		}
		return dir, nil
	}

	baseDir := os.Getenv("XDG_DATA_HOME")
	if baseDir == "" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		baseDir = filepath.Join(homeDir, ".local", "share")
	}

	dataDir := filepath.Join(baseDir, appName)
	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return "", err
	}
	return dataDir, nil
}

// DatabaseDir returns the directory holding the BadgerDB database.
func DatabaseDir() (string, error) {
	dataDir, err := DataDir()
	if err != nil {
		return "", err
	}
	dbDir := filepath.Join(dataDir, "db")
	if err := os.MkdirAll(dbDir, 0755); err != nil {
		return "", err
	}
	return dbDir, nil
}
