// Package replication carries weapon commands from owning clients to the
// authoritative server and fire effects back to every client.
package replication

import (
	"errors"
	"sync/atomic"

	"github.com/gunline/firecontrol/pkg/streaming"
)

var (
	ErrLinkClosed    = errors.New("link closed")
	ErrUnknownPeer   = errors.New("unknown peer")
	ErrUnknownWeapon = errors.New("unknown weapon")
	ErrNotOwner      = errors.New("peer does not own weapon")
	ErrNotAuthority  = errors.New("weapon is not the authority copy")
)

// Link sends protocol messages to the other side of a connection.
type Link interface {
	Send(msgType string, payload any) error
	Close() error
}

// Loopback is an in-process Link that hands each encoded envelope to a
// receive function, as a listen server or a test would.
type Loopback struct {
	deliver func([]byte) error
	closed  atomic.Bool
}

// NewLoopback creates a link delivering to deliver.
func NewLoopback(deliver func([]byte) error) *Loopback {
	return &Loopback{deliver: deliver}
}

func (l *Loopback) Send(msgType string, payload any) error {
	if l.closed.Load() {
		return ErrLinkClosed
	}
	data, err := streaming.Marshal(msgType, payload)
	if err != nil {
		return err
	}
	return l.deliver(data)
}

func (l *Loopback) Close() error {
	l.closed.Store(true)
	return nil
}
