// Package gormstorage implements storage.Backend on any GORM dialect with
// internal queues and a background writer goroutine.
package gormstorage

import (
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/gunline/firecontrol/internal/database"
	"github.com/gunline/firecontrol/internal/model"
	"github.com/gunline/firecontrol/internal/model/convert"
	"github.com/gunline/firecontrol/internal/queue"
	"github.com/gunline/firecontrol/internal/storage"
	"github.com/gunline/firecontrol/pkg/core"
)

const (
	defaultFlushInterval = 2 * time.Second
	// maxFlushAttempts is how many consecutive failed writes a table's
	// batch survives before it is dropped.
	maxFlushAttempts = 5
)

var ErrNoDB = errors.New("gorm backend has no database")

// Dependencies holds all dependencies for the GORM storage backend.
type Dependencies struct {
	DB            *gorm.DB
	Log           zerolog.Logger
	Version       string
	FlushInterval time.Duration
	// Migrated skips database.Setup when the caller already ran it.
	Migrated bool
	// Now stamps session end times; defaults to time.Now.
	Now func() time.Time
}

// queues holds the write queues for batch insertion.
type queues struct {
	Shots        *queue.Queue[model.Shot]
	Hits         *queue.Queue[model.Hit]
	Kills        *queue.Queue[model.Kill]
	WeaponEvents *queue.Queue[model.WeaponEvent]
}

func newQueues() *queues {
	return &queues{
		Shots:        queue.New[model.Shot](),
		Hits:         queue.New[model.Hit](),
		Kills:        queue.New[model.Kill](),
		WeaponEvents: queue.New[model.WeaponEvent](),
	}
}

// Backend implements storage.Backend with queue-based batch writes.
type Backend struct {
	deps   Dependencies
	queues *queues

	sessionMu sync.RWMutex
	sessionID string

	flushMu   sync.Mutex
	failures  map[string]int
	dropped   atomic.Int64
	lastWrite atomic.Int64

	stopChan  chan struct{}
	done      chan struct{}
	closeOnce sync.Once
}

// New creates a new GORM storage backend. Init must be called before use.
func New(deps Dependencies) *Backend {
	if deps.FlushInterval <= 0 {
		deps.FlushInterval = defaultFlushInterval
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}
	return &Backend{deps: deps, queues: newQueues(), failures: make(map[string]int)}
}

// DB exposes the underlying connection.
func (b *Backend) DB() *gorm.DB { return b.deps.DB }

// Init migrates the schema and starts the writer.
func (b *Backend) Init() error {
	if b.deps.DB == nil {
		return ErrNoDB
	}
	if !b.deps.Migrated {
		if err := database.Setup(b.deps.DB, b.deps.Log, b.deps.Version); err != nil {
			return fmt.Errorf("failed to setup DB: %w", err)
		}
	}
	b.stopChan = make(chan struct{})
	b.done = make(chan struct{})
	go b.writer()
	return nil
}

// Close stops the writer and flushes whatever is still queued.
func (b *Backend) Close() error {
	var err error
	b.closeOnce.Do(func() {
		if b.stopChan != nil {
			close(b.stopChan)
			<-b.done
		}
		if b.deps.DB != nil {
			err = b.Flush()
		}
	})
	return err
}

// StartSession inserts the session row synchronously so queued events
// always reference an existing session.
func (b *Backend) StartSession(s *core.Session) error {
	row := convert.SessionToModel(*s)
	if err := b.deps.DB.Create(&row).Error; err != nil {
		return fmt.Errorf("create session: %w", err)
	}
	b.sessionMu.Lock()
	b.sessionID = s.ID
	b.sessionMu.Unlock()
	b.deps.Log.Info().Str("session", s.ID).Str("name", s.Name).Msg("Session started")
	return nil
}

// EndSession flushes the queues and stamps the session end time.
func (b *Backend) EndSession() error {
	id := b.currentSession()
	if id == "" {
		return storage.ErrNoSession
	}
	flushErr := b.Flush()

	end := b.deps.Now()
	if err := b.deps.DB.Model(&model.Session{}).Where("id = ?", id).Update("end_time", end).Error; err != nil {
		return errors.Join(flushErr, fmt.Errorf("end session: %w", err))
	}

	b.sessionMu.Lock()
	b.sessionID = ""
	b.sessionMu.Unlock()
	b.deps.Log.Info().Str("session", id).Msg("Session ended")
	return flushErr
}

func (b *Backend) currentSession() string {
	b.sessionMu.RLock()
	defer b.sessionMu.RUnlock()
	return b.sessionID
}

func (b *Backend) RecordShot(e *core.ShotEvent) error {
	id := b.currentSession()
	if id == "" {
		return storage.ErrNoSession
	}
	row := convert.ShotToModel(*e)
	row.SessionID = id
	b.queues.Shots.Push(row)
	return nil
}

func (b *Backend) RecordHit(e *core.HitEvent) error {
	id := b.currentSession()
	if id == "" {
		return storage.ErrNoSession
	}
	row := convert.HitToModel(*e)
	row.SessionID = id
	b.queues.Hits.Push(row)
	return nil
}

func (b *Backend) RecordKill(e *core.KillEvent) error {
	id := b.currentSession()
	if id == "" {
		return storage.ErrNoSession
	}
	row := convert.KillToModel(*e)
	row.SessionID = id
	b.queues.Kills.Push(row)
	return nil
}

func (b *Backend) RecordDryFire(e *core.DryFireEvent) error {
	id := b.currentSession()
	if id == "" {
		return storage.ErrNoSession
	}
	row := convert.DryFireToModel(*e)
	row.SessionID = id
	b.queues.WeaponEvents.Push(row)
	return nil
}

func (b *Backend) RecordReload(e *core.ReloadEvent) error {
	id := b.currentSession()
	if id == "" {
		return storage.ErrNoSession
	}
	row := convert.ReloadToModel(*e)
	row.SessionID = id
	b.queues.WeaponEvents.Push(row)
	return nil
}

// Pending is the number of rows waiting for the writer.
func (b *Backend) Pending() int {
	return b.queues.Shots.Len() + b.queues.Hits.Len() + b.queues.Kills.Len() + b.queues.WeaponEvents.Len()
}

// LastWriteDuration is how long the most recent flush took.
func (b *Backend) LastWriteDuration() time.Duration {
	return time.Duration(b.lastWrite.Load())
}

// Dropped is the number of rows discarded after maxFlushAttempts failures.
func (b *Backend) Dropped() int64 {
	return b.dropped.Load()
}

// Flush drains every queue into the database. Failed batches are put back
// at the front of their queue until a table has failed maxFlushAttempts
// times in a row; that table's queue is then dropped.
func (b *Backend) Flush() error {
	b.flushMu.Lock()
	defer b.flushMu.Unlock()

	start := time.Now()
	err := errors.Join(
		flushQueue(b, b.queues.Shots, "shots"),
		flushQueue(b, b.queues.Hits, "hits"),
		flushQueue(b, b.queues.Kills, "kills"),
		flushQueue(b, b.queues.WeaponEvents, "weapon events"),
	)
	b.lastWrite.Store(int64(time.Since(start)))
	return err
}

// flushQueue writes one queue and tracks its consecutive failures. Callers
// hold flushMu.
func flushQueue[T any](b *Backend, q *queue.Queue[T], name string) error {
	items := q.GetAndEmpty()
	if len(items) == 0 {
		return nil
	}
	err := writeBatch(b.deps.DB, items, name, b.deps.Log)
	if err == nil {
		delete(b.failures, name)
		return nil
	}

	b.failures[name]++
	if b.failures[name] < maxFlushAttempts {
		q.Requeue(items...)
		return err
	}
	delete(b.failures, name)
	b.dropped.Add(int64(len(items)))
	b.deps.Log.Error().Err(err).Str("table", name).Int("rows", len(items)).
		Int("attempts", maxFlushAttempts).Msg("Dropping rows after repeated write failures")
	return err
}

// writeBatch writes items to the database in a transaction.
func writeBatch[T any](db *gorm.DB, items []T, name string, log zerolog.Logger) error {
	tx := db.Begin()
	if tx.Error != nil {
		return fmt.Errorf("begin %s: %w", name, tx.Error)
	}
	if err := tx.Create(&items).Error; err != nil {
		log.Error().Err(err).Str("table", name).Int("rows", len(items)).Msg("Error creating rows")
		tx.Rollback()
		return fmt.Errorf("write %s: %w", name, err)
	}
	if err := tx.Commit().Error; err != nil {
		return fmt.Errorf("commit %s: %w", name, err)
	}
	log.Debug().Str("table", name).Int("rows", len(items)).Msg("Wrote rows")
	return nil
}

func (b *Backend) writer() {
	defer close(b.done)
	ticker := time.NewTicker(b.deps.FlushInterval)
	defer ticker.Stop()

	for {
		select {
		case <-b.stopChan:
			return
		case <-ticker.C:
			// errors are logged per table and the rows stay queued
			_ = b.Flush()
		}
	}
}
