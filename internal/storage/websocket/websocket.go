// Package websocket streams session events to a remote collector.
package websocket

import (
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/gunline/firecontrol/internal/config"
	"github.com/gunline/firecontrol/internal/storage"
	"github.com/gunline/firecontrol/pkg/core"
	"github.com/gunline/firecontrol/pkg/streaming"
)

var ErrNotConnected = errors.New("collector not connected")

// Backend streams events over a websocket. Session start and end wait for
// the collector's ack; every other event is fire and forget.
type Backend struct {
	cfg    config.WebSocketConfig
	logger *slog.Logger
	// ReconnectBackoff overrides the first reconnect delay.
	ReconnectBackoff time.Duration

	mu      sync.Mutex
	conn    *collectorConn
	session string
}

func New(cfg config.WebSocketConfig, logger *slog.Logger) *Backend {
	if logger == nil {
		logger = slog.Default()
	}
	return &Backend{cfg: cfg, logger: logger.With("component", "collector")}
}

// Init dials the collector.
func (b *Backend) Init() error {
	conn, err := newCollectorConn(b.cfg.URL, b.cfg.Secret, b.logger)
	if err != nil {
		return err
	}
	if b.ReconnectBackoff > 0 {
		conn.backoff = b.ReconnectBackoff
	}
	if err := conn.connect(); err != nil {
		return err
	}
	b.mu.Lock()
	b.conn = conn
	b.mu.Unlock()
	return nil
}

func (b *Backend) Close() error {
	b.mu.Lock()
	conn := b.conn
	b.conn = nil
	b.mu.Unlock()
	if conn == nil {
		return nil
	}
	return conn.close()
}

func (b *Backend) connection() (*collectorConn, string, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.conn == nil {
		return nil, "", ErrNotConnected
	}
	return b.conn, b.session, nil
}

// StartSession announces the session and caches it for reconnect replay.
func (b *Backend) StartSession(s *core.Session) error {
	conn, _, err := b.connection()
	if err != nil {
		return err
	}
	data, err := streaming.Marshal(streaming.TypeStartSession, streaming.StartSessionPayload{Session: s})
	if err != nil {
		return err
	}
	conn.cacheSession(data)
	if err := conn.request(data, streaming.TypeStartSession, ackTimeout); err != nil {
		return err
	}
	b.mu.Lock()
	b.session = s.ID
	b.mu.Unlock()
	return nil
}

// EndSession waits for the collector to ack. The cached session is cleared
// even when the ack never arrives.
func (b *Backend) EndSession() error {
	conn, session, err := b.connection()
	if err != nil {
		return err
	}
	if session == "" {
		return storage.ErrNoSession
	}
	data, err := streaming.Marshal(streaming.TypeEndSession, map[string]string{"sessionId": session})
	if err != nil {
		return err
	}
	err = conn.request(data, streaming.TypeEndSession, ackTimeout)

	conn.cacheSession(nil)
	b.mu.Lock()
	b.session = ""
	b.mu.Unlock()
	return err
}

func (b *Backend) post(msgType string, payload any) error {
	conn, _, err := b.connection()
	if err != nil {
		return err
	}
	data, err := streaming.Marshal(msgType, payload)
	if err != nil {
		return err
	}
	conn.send(data)
	return nil
}

func (b *Backend) RecordShot(e *core.ShotEvent) error {
	return b.post(streaming.TypeShotEvent, e)
}

func (b *Backend) RecordHit(e *core.HitEvent) error {
	return b.post(streaming.TypeHitEvent, e)
}

func (b *Backend) RecordKill(e *core.KillEvent) error {
	return b.post(streaming.TypeKillEvent, e)
}

func (b *Backend) RecordDryFire(e *core.DryFireEvent) error {
	return b.post(streaming.TypeDryFireEvent, e)
}

func (b *Backend) RecordReload(e *core.ReloadEvent) error {
	return b.post(streaming.TypeReloadEvent, e)
}
