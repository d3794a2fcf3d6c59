package replication

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"sync"
	"time"

	ws "github.com/gorilla/websocket"

	"github.com/gunline/firecontrol/pkg/streaming"
)

const (
	sendChSize  = 1024
	writeWait   = 10 * time.Second
	helloWait   = 5 * time.Second
	maxReadSize = 64 << 10
)

// WSLink is a Link over a gorilla websocket connection. A single write
// goroutine owns the connection's writer side.
type WSLink struct {
	conn   *ws.Conn
	sendCh chan []byte
	done   chan struct{}
	once   sync.Once
	logger *slog.Logger
}

func newWSLink(conn *ws.Conn, logger *slog.Logger) *WSLink {
	conn.SetReadLimit(maxReadSize)
	l := &WSLink{
		conn:   conn,
		sendCh: make(chan []byte, sendChSize),
		done:   make(chan struct{}),
		logger: logger,
	}
	go l.writeLoop()
	return l
}

// Send queues a message. Best-effort types are dropped when the queue is
// full; reliable ones wait up to writeWait.
func (l *WSLink) Send(msgType string, payload any) error {
	data, err := streaming.Marshal(msgType, payload)
	if err != nil {
		return err
	}
	select {
	case <-l.done:
		return ErrLinkClosed
	default:
	}

	if !streaming.Reliable(msgType) {
		select {
		case l.sendCh <- data:
		default:
			l.logger.Debug("WebSocket send queue full, dropping", "type", msgType)
		}
		return nil
	}

	timer := time.NewTimer(writeWait)
	defer timer.Stop()
	select {
	case l.sendCh <- data:
		return nil
	case <-l.done:
		return ErrLinkClosed
	case <-timer.C:
		return fmt.Errorf("send %s: queue full", msgType)
	}
}

func (l *WSLink) writeLoop() {
	for {
		select {
		case <-l.done:
			return
		case data := <-l.sendCh:
			if err := l.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
				l.logger.Warn("WebSocket SetWriteDeadline error", "error", err)
				_ = l.Close()
				return
			}
			if err := l.conn.WriteMessage(ws.TextMessage, data); err != nil {
				l.logger.Warn("WebSocket write error", "error", err)
				_ = l.Close()
				return
			}
		}
	}
}

// ReadLoop hands every received message to receive until the connection
// closes. Decode errors are logged and skipped.
func (l *WSLink) ReadLoop(receive func([]byte) error) error {
	defer l.Close()
	for {
		_, msg, err := l.conn.ReadMessage()
		if err != nil {
			select {
			case <-l.done:
				return nil
			default:
			}
			if ws.IsCloseError(err, ws.CloseNormalClosure, ws.CloseGoingAway) {
				return nil
			}
			return fmt.Errorf("websocket read: %w", err)
		}
		if err := receive(msg); err != nil {
			l.logger.Debug("Dropped message", "error", err)
		}
	}
}

// Close sends a close frame and stops the write loop.
func (l *WSLink) Close() error {
	var err error
	l.once.Do(func() {
		close(l.done)
		_ = l.conn.WriteControl(ws.CloseMessage,
			ws.FormatCloseMessage(ws.CloseNormalClosure, ""),
			time.Now().Add(time.Second))
		err = l.conn.Close()
	})
	return err
}

// Done is closed once the link is closed.
func (l *WSLink) Done() <-chan struct{} { return l.done }

// DialWebSocket connects to a replication server and announces playerID.
func DialWebSocket(ctx context.Context, rawURL, secret, playerID string, logger *slog.Logger) (*WSLink, error) {
	if logger == nil {
		logger = slog.Default()
	}
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("invalid websocket URL: %w", err)
	}
	if secret != "" {
		q := u.Query()
		q.Set("secret", secret)
		u.RawQuery = q.Encode()
	}

	conn, _, err := ws.DefaultDialer.DialContext(ctx, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("websocket dial failed: %w", err)
	}
	link := newWSLink(conn, logger.With("peer", "server"))
	if err := link.Send(streaming.TypeHello, streaming.HelloPayload{PlayerID: playerID}); err != nil {
		_ = link.Close()
		return nil, err
	}
	return link, nil
}

// Handler upgrades requests to websocket clients of s. The first message
// must be a hello naming the player; a non-empty secret must match the
// "secret" query parameter.
func (s *Server) Handler(upgrader ws.Upgrader, secret string) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if secret != "" && r.URL.Query().Get("secret") != secret {
			http.Error(w, "forbidden", http.StatusForbidden)
			return
		}
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			s.logger.Warn("WebSocket upgrade failed", "error", err)
			return
		}

		peer, err := readHello(conn)
		if err != nil {
			s.logger.Warn("Rejected client", "remote", r.RemoteAddr, "error", err)
			_ = conn.Close()
			return
		}

		link := newWSLink(conn, s.logger.With("peer", peer))
		s.Connect(peer, link)
		defer s.release(peer, link)

		if err := link.ReadLoop(func(data []byte) error { return s.Receive(peer, data) }); err != nil {
			s.logger.Info("Client read ended", "peer", peer, "error", err)
		}
	})
}

func readHello(conn *ws.Conn) (string, error) {
	if err := conn.SetReadDeadline(time.Now().Add(helloWait)); err != nil {
		return "", err
	}
	_, msg, err := conn.ReadMessage()
	if err != nil {
		return "", fmt.Errorf("read hello: %w", err)
	}
	if err := conn.SetReadDeadline(time.Time{}); err != nil {
		return "", err
	}
	env, err := streaming.Unmarshal(msg)
	if err != nil {
		return "", err
	}
	if env.Type != streaming.TypeHello {
		return "", fmt.Errorf("expected %s, got %s", streaming.TypeHello, env.Type)
	}
	hello, err := streaming.Decode[streaming.HelloPayload](env)
	if err != nil {
		return "", err
	}
	if hello.PlayerID == "" {
		return "", errors.New("hello without player id")
	}
	return hello.PlayerID, nil
}
