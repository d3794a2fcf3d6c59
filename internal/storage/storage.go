// internal/storage/storage.go
package storage

import (
	"errors"

	"github.com/gunline/firecontrol/pkg/core"
)

// ErrNoSession is returned when an event arrives outside a session.
var ErrNoSession = errors.New("no active session")

// Backend is the interface all storage implementations must satisfy
type Backend interface {
	// Lifecycle
	Init() error
	Close() error

	// Session management
	StartSession(s *core.Session) error
	EndSession() error

	// Event recording
	RecordShot(e *core.ShotEvent) error
	RecordHit(e *core.HitEvent) error
	RecordKill(e *core.KillEvent) error
	RecordDryFire(e *core.DryFireEvent) error
	RecordReload(e *core.ReloadEvent) error
}

// Exporter is implemented by backends that write a file per session.
type Exporter interface {
	ExportedFilePath() string
}
