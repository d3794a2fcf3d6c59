package main

import (
	"fmt"
	"path/filepath"

	"github.com/gunline/firecontrol/internal/config"
	"github.com/gunline/firecontrol/internal/storage"
	"github.com/gunline/firecontrol/internal/storage/memory"
	pgstorage "github.com/gunline/firecontrol/internal/storage/postgres"
	sqlitestorage "github.com/gunline/firecontrol/internal/storage/sqlite"
	wsstorage "github.com/gunline/firecontrol/internal/storage/websocket"
)

func createStorageBackend(a *app, cfg config.StorageConfig) (storage.Backend, error) {
	switch cfg.Type {
	case "postgres":
		fallback := filepath.Join(recordingsDir(cfg), fmt.Sprintf("%s_%s.db", appName, a.startedAt.UTC().Format("20060102_150405")))
		a.logger.Info("Postgres storage backend selected", "host", cfg.Postgres.Host, "fallback", fallback)
		return pgstorage.New(pgstorage.Dependencies{
			Config:       cfg.Postgres,
			FallbackPath: fallback,
			Log:          a.zerolog("postgres"),
			Version:      Version,
		}), nil

	case "sqlite":
		backend, err := sqlitestorage.New(cfg.SQLite, a.zerolog("sqlite"), Version)
		if err != nil {
			return nil, fmt.Errorf("failed to create SQLite backend: %w", err)
		}
		a.logger.Info("SQLite storage backend selected", "path", cfg.SQLite.Path, "dumpInterval", cfg.SQLite.DumpInterval)
		return backend, nil

	case "websocket":
		a.logger.Info("WebSocket storage backend selected", "url", cfg.WebSocket.URL)
		return wsstorage.New(cfg.WebSocket, a.logger), nil

	case "memory", "":
		a.logger.Info("Memory storage backend selected", "outputDir", cfg.Memory.OutputDir)
		return memory.New(cfg.Memory), nil

	default:
		return nil, fmt.Errorf("unknown storage type %q", cfg.Type)
	}
}
