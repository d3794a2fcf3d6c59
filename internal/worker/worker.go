// Package worker turns weapon and health callbacks into dispatcher events
// and persists those events through a storage backend.
package worker

import (
	"errors"
	"log/slog"
	"time"

	"github.com/gunline/firecontrol/internal/storage"
	"github.com/gunline/firecontrol/pkg/core"
)

// Commands recorded combat events are dispatched under.
const (
	CmdShot    = ":SHOT:"
	CmdHit     = ":HIT:"
	CmdKill    = ":KILL:"
	CmdDryFire = ":DRYFIRE:"
	CmdReload  = ":RELOAD:"
)

var ErrBadPayload = errors.New("unexpected event payload")

// MetricsWriter receives a point per shot, hit and kill.
type MetricsWriter interface {
	WriteShot(core.ShotEvent) error
	WriteHit(core.HitEvent) error
	WriteKill(core.KillEvent) error
}

// Dependencies holds all dependencies for the worker manager
type Dependencies struct {
	Logger *slog.Logger
	// Metrics is optional.
	Metrics MetricsWriter
	// BufferSize is the per-command queue length; 0 uses 1000.
	BufferSize int
}

// Manager persists dispatched combat events.
type Manager struct {
	deps    Dependencies
	backend storage.Backend
}

// NewManager creates a new worker manager
func NewManager(deps Dependencies, backend storage.Backend) *Manager {
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	if deps.BufferSize <= 0 {
		deps.BufferSize = 1000
	}
	return &Manager{deps: deps, backend: backend}
}

// WriteDurationProvider is implemented by backends that batch writes.
type WriteDurationProvider interface {
	LastWriteDuration() time.Duration
}

// LastWriteDuration returns the duration of the last batch write, or 0 if
// the backend does not batch.
func (m *Manager) LastWriteDuration() time.Duration {
	if p, ok := m.backend.(WriteDurationProvider); ok {
		return p.LastWriteDuration()
	}
	return 0
}
