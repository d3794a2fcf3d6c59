// Package sqlitestorage records into an in-memory SQLite database through
// the GORM backend and periodically snapshots it to disk with VACUUM INTO.
package sqlitestorage

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/gunline/firecontrol/internal/config"
	"github.com/gunline/firecontrol/internal/database"
	gormstorage "github.com/gunline/firecontrol/internal/storage/gorm"
)

// Backend wraps the GORM backend for SQLite-specific behavior.
type Backend struct {
	*gormstorage.Backend
	cfg       config.SQLiteConfig
	log       zerolog.Logger
	stopChan  chan struct{}
	done      chan struct{}
	closeOnce sync.Once
}

// New creates the in-memory database. cfg.Path is the dump target.
func New(cfg config.SQLiteConfig, log zerolog.Logger, version string) (*Backend, error) {
	db, err := database.OpenSQLite("")
	if err != nil {
		return nil, fmt.Errorf("failed to create in-memory SQLite DB: %w", err)
	}
	return &Backend{
		Backend: gormstorage.New(gormstorage.Dependencies{
			DB:      db,
			Log:     log,
			Version: version,
		}),
		cfg:      cfg,
		log:      log,
		stopChan: make(chan struct{}),
		done:     make(chan struct{}),
	}, nil
}

// Init initializes the embedded GORM backend and starts the dump goroutine.
func (b *Backend) Init() error {
	if err := b.Backend.Init(); err != nil {
		return err
	}
	if b.cfg.Path != "" && b.cfg.DumpInterval > 0 {
		go b.dumpLoop()
	} else {
		close(b.done)
	}
	return nil
}

// EndSession closes the session and writes a snapshot.
func (b *Backend) EndSession() error {
	if err := b.Backend.EndSession(); err != nil {
		return err
	}
	return b.Dump()
}

// Close stops the dump loop, flushes and writes a final snapshot.
func (b *Backend) Close() error {
	var err error
	b.closeOnce.Do(func() {
		close(b.stopChan)
		<-b.done
		err = b.Backend.Close()
		if b.cfg.Path != "" {
			err = errors.Join(err, b.Dump())
		}
	})
	return err
}

// Dump snapshots the in-memory database to cfg.Path.
func (b *Backend) Dump() error {
	if err := b.Backend.Flush(); err != nil {
		b.log.Warn().Err(err).Msg("Dumping with rows still queued")
	}
	return database.DumpToDisk(b.DB(), b.cfg.Path)
}

// dumpLoop periodically dumps the in-memory SQLite database to disk.
func (b *Backend) dumpLoop() {
	defer close(b.done)
	ticker := time.NewTicker(b.cfg.DumpInterval)
	defer ticker.Stop()

	for {
		select {
		case <-b.stopChan:
			return
		case <-ticker.C:
			start := time.Now()
			if err := b.Dump(); err != nil {
				b.log.Error().Err(err).Msg("Error dumping to disk")
			} else {
				b.log.Debug().Dur("took", time.Since(start)).Msg("Dumped to disk")
			}
		}
	}
}
