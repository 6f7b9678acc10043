package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/jrsteele09/taskflow-client/internal/config"
	"github.com/jrsteele09/taskflow-client/token"
	"github.com/jrsteele09/taskflow-client/token/filerepo"
	"github.com/jrsteele09/taskflow-client/token/sqliterepo"
	"github.com/rs/zerolog"
)

func nopClose() error { return nil }

// openRepo selects the durable credential tier. "memory" and "none" keep
// nothing across runs, so every invocation starts signed out.
func openRepo(cfg config.StorageConfig, logger zerolog.Logger) (token.Repo, func() error, error) {
	switch kind := cfg.GetStorageKind(); kind {
	case config.StorageFile:
		repo, err := filerepo.New(cfg.GetStoragePath(),
			filerepo.WithPassphrase(cfg.GetPassphrase()),
			filerepo.WithLogger(logger))
		if err != nil {
			return nil, nil, fmt.Errorf("[openRepo] %w", err)
		}
		return repo, nopClose, nil

	case config.StorageSQLite:
		path := cfg.GetStoragePath()
		if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
			return nil, nil, fmt.Errorf("[openRepo] %w", err)
		}
		repo, err := sqliterepo.New(path)
		if err != nil {
			return nil, nil, fmt.Errorf("[openRepo] %w", err)
		}
		return repo, repo.Close, nil

	case config.StorageMemory:
		return token.NewMemoryRepo(), nopClose, nil

	default:
		logger.Debug().Str("kind", string(kind)).Msg("Credential persistence disabled")
		return token.NopRepo{}, nopClose, nil
	}
}
