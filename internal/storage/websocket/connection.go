package websocket

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"sync"
	"time"

	ws "github.com/gorilla/websocket"

	"github.com/gunline/firecontrol/pkg/streaming"
)

const (
	outboxSize   = 10_000
	maxReconnect = 10
	minBackoff   = 250 * time.Millisecond
	maxBackoff   = 30 * time.Second
	writeWait    = 10 * time.Second
	ackTimeout   = 10 * time.Second
)

var errCollectorClosed = errors.New("collector connection closed")

// collectorConn is a reconnecting client for the remote event collector.
// One writer goroutine per dialed socket drains the shared outbox; each
// reconnect bumps gen and closes stop so loops from a dead socket exit.
type collectorConn struct {
	mu      sync.Mutex
	conn    *ws.Conn
	gen     uint64
	stop    chan struct{}
	closed  bool
	waiters map[string][]chan struct{}
	// replayed first after every reconnect
	session []byte
	// message whose write failed, resent before the outbox
	carry []byte

	outbox chan []byte
	done   chan struct{}

	target *url.URL
	dialer *ws.Dialer
	// backoff starts here and doubles up to maxBackoff
	backoff time.Duration
	logger  *slog.Logger
}

func newCollectorConn(rawURL, secret string, logger *slog.Logger) (*collectorConn, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("invalid websocket URL: %w", err)
	}
	if secret != "" {
		q := u.Query()
		q.Set("secret", secret)
		u.RawQuery = q.Encode()
	}
	return &collectorConn{
		waiters: make(map[string][]chan struct{}),
		outbox:  make(chan []byte, outboxSize),
		done:    make(chan struct{}),
		target:  u,
		dialer:  ws.DefaultDialer,
		backoff: minBackoff,
		logger:  logger,
	}, nil
}

func (c *collectorConn) connect() error {
	conn, _, err := c.dialer.Dial(c.target.String(), nil)
	if err != nil {
		return fmt.Errorf("websocket dial failed: %w", err)
	}
	c.attach(conn)
	return nil
}

// attach installs conn as the live socket and starts its loops.
func (c *collectorConn) attach(conn *ws.Conn) {
	c.mu.Lock()
	c.conn = conn
	c.gen++
	gen := c.gen
	stop := make(chan struct{})
	c.stop = stop
	c.mu.Unlock()

	go c.writeLoop(conn, gen, stop)
	go c.readLoop(conn, gen)
}

// current reports whether gen still owns the socket.
func (c *collectorConn) current(gen uint64) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return !c.closed && c.gen == gen
}

func (c *collectorConn) writeLoop(conn *ws.Conn, gen uint64, stop <-chan struct{}) {
	write := func(data []byte) bool {
		if err := writeText(conn, data); err != nil {
			c.logger.Warn("Collector write error", "error", err)
			c.setCarry(data)
			go c.reconnect(gen)
			return false
		}
		return true
	}

	if data := c.takeCarry(); data != nil && !write(data) {
		return
	}
	for {
		select {
		case <-c.done:
			return
		case <-stop:
			return
		case data := <-c.outbox:
			if !c.current(gen) {
				c.setCarry(data)
				return
			}
			if !write(data) {
				return
			}
		}
	}
}

func (c *collectorConn) setCarry(data []byte) {
	c.mu.Lock()
	c.carry = data
	c.mu.Unlock()
}

func (c *collectorConn) takeCarry() []byte {
	c.mu.Lock()
	defer c.mu.Unlock()
	data := c.carry
	c.carry = nil
	return data
}

func (c *collectorConn) readLoop(conn *ws.Conn, gen uint64) {
	for {
		_, message, err := conn.ReadMessage()
		if err != nil {
			if !c.current(gen) {
				return
			}
			c.logger.Warn("Collector read error", "error", err)
			go c.reconnect(gen)
			return
		}

		var ack streaming.AckMessage
		if err := json.Unmarshal(message, &ack); err != nil || ack.Type != streaming.TypeAck {
			c.logger.Debug("Ignoring collector message", "raw", string(message))
			continue
		}
		c.resolve(ack.For)
	}
}

// resolve wakes the oldest waiter for msgType.
func (c *collectorConn) resolve(msgType string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	waiting := c.waiters[msgType]
	if len(waiting) == 0 {
		c.logger.Debug("Unexpected ack", "for", msgType)
		return
	}
	close(waiting[0])
	c.waiters[msgType] = waiting[1:]
}

// reconnect replaces the socket owned by gen, replaying the cached session
// start before the writer resumes.
func (c *collectorConn) reconnect(gen uint64) {
	c.mu.Lock()
	if c.closed || c.gen != gen {
		c.mu.Unlock()
		return
	}
	// retire gen so the other loop does not reconnect too
	c.gen++
	if c.conn != nil {
		_ = c.conn.Close()
		c.conn = nil
	}
	if c.stop != nil {
		close(c.stop)
		c.stop = nil
	}
	c.mu.Unlock()

	backoff := c.backoff
	for attempt := 1; attempt <= maxReconnect; attempt++ {
		select {
		case <-c.done:
			return
		case <-time.After(backoff):
		}
		backoff = min(backoff*2, maxBackoff)

		conn, _, err := c.dialer.Dial(c.target.String(), nil)
		if err != nil {
			c.logger.Warn("Reconnect dial failed", "attempt", attempt, "error", err)
			continue
		}

		c.mu.Lock()
		session := c.session
		c.mu.Unlock()
		if session != nil {
			if err := writeText(conn, session); err != nil {
				c.logger.Warn("Failed to replay start_session", "error", err)
				_ = conn.Close()
				continue
			}
		}

		c.logger.Info("Collector reconnected", "attempt", attempt)
		c.attach(conn)
		return
	}
	c.logger.Error("Collector reconnect failed", "maxAttempts", maxReconnect)
}

func writeText(conn *ws.Conn, data []byte) error {
	if err := conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		return err
	}
	return conn.WriteMessage(ws.TextMessage, data)
}

// send queues data without blocking. Returns false if the outbox is full.
func (c *collectorConn) send(data []byte) bool {
	select {
	case c.outbox <- data:
		return true
	default:
		c.logger.Warn("Collector outbox full, dropping message")
		return false
	}
}

// request sends data and waits for the collector to ack msgType.
func (c *collectorConn) request(data []byte, msgType string, timeout time.Duration) error {
	wait := make(chan struct{})
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return errCollectorClosed
	}
	c.waiters[msgType] = append(c.waiters[msgType], wait)
	c.mu.Unlock()

	if !c.send(data) {
		c.forget(msgType, wait)
		return fmt.Errorf("send %s: outbox full", msgType)
	}

	timer := time.NewTimer(timeout)
	defer timer.Stop()
	select {
	case <-wait:
		return nil
	case <-timer.C:
		c.forget(msgType, wait)
		return fmt.Errorf("timeout waiting for ack of %q", msgType)
	case <-c.done:
		return errCollectorClosed
	}
}

func (c *collectorConn) forget(msgType string, wait chan struct{}) {
	c.mu.Lock()
	defer c.mu.Unlock()
	waiting := c.waiters[msgType]
	for i, w := range waiting {
		if w == wait {
			c.waiters[msgType] = append(waiting[:i], waiting[i+1:]...)
			return
		}
	}
}

func (c *collectorConn) cacheSession(data []byte) {
	c.mu.Lock()
	c.session = data
	c.mu.Unlock()
}

// close sends a close frame and stops every loop.
func (c *collectorConn) close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	close(c.done)
	conn := c.conn
	c.conn = nil
	c.mu.Unlock()

	if conn == nil {
		return nil
	}
	_ = conn.WriteControl(ws.CloseMessage,
		ws.FormatCloseMessage(ws.CloseNormalClosure, ""),
		time.Now().Add(time.Second))
	return conn.Close()
}
