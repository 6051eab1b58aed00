package main

import (
	"fmt"

	"github.com/rs/zerolog"

	"github.com/eitopstats/topstats/internal/config"
	"github.com/eitopstats/topstats/internal/logging"
	"github.com/eitopstats/topstats/internal/storage"
	"github.com/eitopstats/topstats/internal/storage/factory"
)

func createStorageBackend(storageCfg config.StorageConfig, logManager *logging.SlogManager, dbLogger zerolog.Logger) (*storage.Multi, error) {
	backend, err := factory.New(storageCfg, factory.Dependencies{
		LogManager:     logManager,
		Logger:         logManager.Logger(),
		DatabaseLogger: dbLogger,
		LogsDir:        config.GetString("logsDir"),
	})
	if err != nil {
		return nil, fmt.Errorf("create storage backend: %w", err)
	}
	logManager.Logger().Info("Storage backends created", "backends", storageCfg.Backends)
	return backend, nil
}
