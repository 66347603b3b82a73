package config

import (
	"path/filepath"

	"github.com/adrg/xdg"
)

// StoragePaths contains paths for application storage
type StoragePaths struct {
	DatabasePath string
	LogPath      string
}

// GetDefaultStoragePaths returns default storage paths using XDG base
// directories. State data (the snapshot database) goes to XDG_STATE_HOME.
func GetDefaultStoragePaths() StoragePaths {
	return StoragePaths{
		DatabasePath: filepath.Join(xdg.StateHome, "chatfold", "chatfold.db"),
		LogPath:      filepath.Join(xdg.StateHome, "chatfold", "logs", "chatfold.log"),
	}
}
