// Package monitor periodically writes a status snapshot of the recording
// pipeline to a JSON file.
package monitor

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/gunline/firecontrol/internal/session"
	"github.com/gunline/firecontrol/pkg/core"
)

const defaultInterval = time.Second

// PendingReporter is implemented by backends with a write queue.
type PendingReporter interface {
	Pending() int
}

// WriteTimer reports the duration of the last batch write.
type WriteTimer interface {
	LastWriteDuration() time.Duration
}

// Dependencies holds all dependencies for the monitor service
type Dependencies struct {
	Session *session.Context
	// Backend is inspected for PendingReporter.
	Backend any
	Writes  WriteTimer
	// Path is the status file. Empty disables the file and keeps Snapshot.
	Path     string
	Interval time.Duration
	Logger   *slog.Logger
	Now      func() time.Time
}

// Status is one snapshot.
type Status struct {
	Time          time.Time     `json:"time"`
	Session       *core.Session `json:"session,omitempty"`
	PendingWrites int           `json:"pendingWrites"`
	LastWriteMs   float64       `json:"lastWriteMs"`
}

// Service manages status monitoring
type Service struct {
	deps      Dependencies
	isRunning bool
	mu        sync.RWMutex
	stopChan  chan struct{}
	done      chan struct{}
}

// NewService creates a new monitor service
func NewService(deps Dependencies) *Service {
	if deps.Interval <= 0 {
		deps.Interval = defaultInterval
	}
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}
	return &Service{deps: deps}
}

// IsRunning returns whether the status monitor is running
func (s *Service) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.isRunning
}

// Snapshot collects the current status.
func (s *Service) Snapshot() Status {
	st := Status{Time: s.deps.Now().UTC()}
	if s.deps.Session != nil {
		if cur, ok := s.deps.Session.Current(); ok {
			st.Session = &cur
		}
	}
	if p, ok := s.deps.Backend.(PendingReporter); ok {
		st.PendingWrites = p.Pending()
	}
	if s.deps.Writes != nil {
		st.LastWriteMs = float64(s.deps.Writes.LastWriteDuration().Microseconds()) / 1000
	}
	return st
}

// WriteStatus writes one snapshot to the status file, replacing it whole.
func (s *Service) WriteStatus() error {
	if s.deps.Path == "" {
		return nil
	}
	data, err := json.MarshalIndent(s.Snapshot(), "", "  ")
	if err != nil {
		return fmt.Errorf("marshal status: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(s.deps.Path), 0755); err != nil {
		return fmt.Errorf("create status directory: %w", err)
	}
	tmp := s.deps.Path + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return fmt.Errorf("write status file: %w", err)
	}
	return os.Rename(tmp, s.deps.Path)
}

// Start starts the status monitor goroutine
func (s *Service) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.isRunning {
		return
	}
	s.isRunning = true
	s.stopChan = make(chan struct{})
	s.done = make(chan struct{})
	go s.run(s.stopChan, s.done)
}

func (s *Service) run(stop <-chan struct{}, done chan<- struct{}) {
	defer close(done)
	s.deps.Logger.Debug("Starting status monitor", "path", s.deps.Path, "interval", s.deps.Interval)

	ticker := time.NewTicker(s.deps.Interval)
	defer ticker.Stop()
	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			if err := s.WriteStatus(); err != nil {
				s.deps.Logger.Error("Error writing status file", "error", err)
			}
		}
	}
}

// Stop stops the status monitor and waits for it to exit.
func (s *Service) Stop() {
	s.mu.Lock()
	if !s.isRunning {
		s.mu.Unlock()
		return
	}
	s.isRunning = false
	close(s.stopChan)
	done := s.done
	s.mu.Unlock()
	<-done
}
