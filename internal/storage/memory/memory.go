// Package memory keeps a session's events in memory and exports them as
// (optionally gzipped) JSON when the session ends.
package memory

import (
	"fmt"
	"sync"

	"github.com/gunline/firecontrol/internal/config"
	"github.com/gunline/firecontrol/internal/storage"
	"github.com/gunline/firecontrol/pkg/core"
)

// Backend stores session data in memory and exports to JSON
type Backend struct {
	cfg     config.MemoryConfig
	session *core.Session

	shots    []core.ShotEvent
	hits     []core.HitEvent
	kills    []core.KillEvent
	dryFires []core.DryFireEvent
	reloads  []core.ReloadEvent

	lastExportPath string
	mu             sync.RWMutex
}

func New(cfg config.MemoryConfig) *Backend {
	return &Backend{cfg: cfg}
}

func (b *Backend) Init() error  { return nil }
func (b *Backend) Close() error { return nil }

// StartSession begins a new session and discards anything recorded before.
func (b *Backend) StartSession(s *core.Session) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	cp := *s
	b.session = &cp
	b.shots = nil
	b.hits = nil
	b.kills = nil
	b.dryFires = nil
	b.reloads = nil
	return nil
}

// EndSession exports the session. Calling it without a session is an error.
func (b *Backend) EndSession() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.session == nil {
		return storage.ErrNoSession
	}
	if err := b.exportJSON(); err != nil {
		return fmt.Errorf("export session %s: %w", b.session.ID, err)
	}
	b.session = nil
	return nil
}

func (b *Backend) RecordShot(e *core.ShotEvent) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.shots = append(b.shots, *e)
	return nil
}

func (b *Backend) RecordHit(e *core.HitEvent) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.hits = append(b.hits, *e)
	return nil
}

func (b *Backend) RecordKill(e *core.KillEvent) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.kills = append(b.kills, *e)
	return nil
}

func (b *Backend) RecordDryFire(e *core.DryFireEvent) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.dryFires = append(b.dryFires, *e)
	return nil
}

func (b *Backend) RecordReload(e *core.ReloadEvent) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.reloads = append(b.reloads, *e)
	return nil
}

// Summary returns per-weapon totals for the session recorded so far.
func (b *Backend) Summary() []WeaponStats {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.weaponStats()
}

// ExportedFilePath is the file written by the last EndSession.
func (b *Backend) ExportedFilePath() string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.lastExportPath
}
