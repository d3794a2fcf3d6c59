// Package session tracks the recording session events are stamped with.
package session

import (
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/gunline/firecontrol/pkg/core"
)

var ErrActive = errors.New("session already active")

// Context holds the current session. It is safe for concurrent use.
type Context struct {
	mu      sync.RWMutex
	current *core.Session
	now     func() time.Time
}

// NewContext creates an idle Context. A nil now uses time.Now.
func NewContext(now func() time.Time) *Context {
	if now == nil {
		now = time.Now
	}
	return &Context{now: now}
}

// Start opens a session with a fresh ID.
func (c *Context) Start(name, mapName string, tickRate int) (core.Session, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.current != nil {
		return *c.current, ErrActive
	}
	s := &core.Session{
		ID:        uuid.NewString(),
		Name:      name,
		Map:       mapName,
		StartTime: c.now().UTC(),
		TickRate:  tickRate,
	}
	c.current = s
	return *s, nil
}

// End closes the current session and returns it with EndTime set.
func (c *Context) End() (core.Session, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.current == nil {
		return core.Session{}, false
	}
	s := *c.current
	s.EndTime = c.now().UTC()
	c.current = nil
	return s, true
}

// Current returns the active session.
func (c *Context) Current() (core.Session, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.current == nil {
		return core.Session{}, false
	}
	return *c.current, true
}

// ID is the active session ID or "".
func (c *Context) ID() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.current == nil {
		return ""
	}
	return c.current.ID
}

// LogAttrs matches logging.ContextProvider.
func (c *Context) LogAttrs() []slog.Attr {
	s, ok := c.Current()
	if !ok {
		return nil
	}
	return []slog.Attr{
		slog.String("session", s.ID),
		slog.String("sessionName", s.Name),
	}
}
