package config

import (
	"os"
	"path/filepath"
	"strings"
)

// StorageKind selects the durable credential backend.
type StorageKind string

const (
	StorageFile   StorageKind = "file"
	StorageSQLite StorageKind = "sqlite"
	StorageMemory StorageKind = "memory"
	StorageNone   StorageKind = "none" // no durable tier; refresh state is never persisted
)

type StorageConfig interface {
	GetStorageKind() StorageKind
	GetStoragePath() string
	GetPassphrase() string
}

type Storage struct {
	Kind       string `yaml:"kind" env:"TASKFLOW_STORAGE" env-default:"file"`
	Path       string `yaml:"path" env:"TASKFLOW_STORAGE_PATH"`
	Passphrase string `yaml:"passphrase" env:"TASKFLOW_PASSPHRASE"`
}

var _ StorageConfig = Storage{}

func (s Storage) GetStorageKind() StorageKind {
	switch k := StorageKind(strings.ToLower(s.Kind)); k {
	case StorageFile, StorageSQLite, StorageMemory, StorageNone:
		return k
	default:
		return StorageFile
	}
}

// GetStoragePath returns the configured path, defaulting to a file under the
// user's config directory.
func (s Storage) GetStoragePath() string {
	if s.Path != "" {
		return s.Path
	}
	dir, err := os.UserConfigDir()
	if err != nil {
		dir = "."
	}
	name := "credentials.json"
	if s.GetStorageKind() == StorageSQLite {
		name = "credentials.db"
	}
	return filepath.Join(dir, "taskflow", name)
}

func (s Storage) GetPassphrase() string {
	return s.Passphrase
}
