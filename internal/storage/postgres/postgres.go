// Package postgres stores sessions in PostgreSQL through the GORM backend,
// falling back to a local SQLite file when the server cannot be reached.
package postgres

import (
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/gunline/firecontrol/internal/config"
	"github.com/gunline/firecontrol/internal/database"
	gormstorage "github.com/gunline/firecontrol/internal/storage/gorm"
)

// Dependencies holds everything the PostgreSQL backend needs.
type Dependencies struct {
	Config        config.DBConfig
	FallbackPath  string
	Log           zerolog.Logger
	Version       string
	FlushInterval time.Duration
}

// Backend is the GORM backend bound to a database.Manager connection.
type Backend struct {
	*gormstorage.Backend
	deps    Dependencies
	manager *database.Manager
}

func New(deps Dependencies) *Backend {
	return &Backend{deps: deps, manager: database.NewManager(deps.Log, deps.FallbackPath)}
}

// Init connects, migrates and starts the writer.
func (b *Backend) Init() error {
	if err := b.manager.Connect(b.deps.Config, b.deps.Version); err != nil {
		return fmt.Errorf("failed to connect: %w", err)
	}
	b.Backend = gormstorage.New(gormstorage.Dependencies{
		DB:            b.manager.DB,
		Log:           b.deps.Log,
		Version:       b.deps.Version,
		FlushInterval: b.deps.FlushInterval,
		Migrated:      true,
	})
	return b.Backend.Init()
}

// Close is safe to call when Init failed.
func (b *Backend) Close() error {
	if b.Backend == nil {
		return nil
	}
	return b.Backend.Close()
}

// IsLocal reports whether the SQLite fallback is in use.
func (b *Backend) IsLocal() bool { return b.manager.IsLocal }
