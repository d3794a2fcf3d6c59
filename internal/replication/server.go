package replication

import (
	"fmt"
	"log/slog"
	"sync"

	"github.com/gunline/firecontrol/internal/dispatcher"
	"github.com/gunline/firecontrol/internal/weapon"
	"github.com/gunline/firecontrol/pkg/core"
	"github.com/gunline/firecontrol/pkg/streaming"
)

type ownedWeapon struct {
	weapon *weapon.Weapon
	peer   string
}

// Server is the authoritative side. Incoming commands are decoded on the
// network goroutine and executed on the simulation loop.
type Server struct {
	disp   *dispatcher.Dispatcher
	loop   dispatcher.Poster
	logger *slog.Logger

	mu      sync.RWMutex
	peers   map[string]Link
	weapons map[string]ownedWeapon
	onPeer  []func(peerID string, joined bool)
	onEquip []func(peerID string, w *weapon.Weapon)
}

// OnPeer registers a callback run on the loop whenever a peer joins or
// leaves. Register before serving.
func (s *Server) OnPeer(fn func(peerID string, joined bool)) {
	s.onPeer = append(s.onPeer, fn)
}

// OnEquip registers a callback run on the loop when a peer asks to equip
// one of its weapons. Register before serving.
func (s *Server) OnEquip(fn func(peerID string, w *weapon.Weapon)) {
	s.onEquip = append(s.onEquip, fn)
}

func (s *Server) notifyPeer(peerID string, joined bool) {
	for _, fn := range s.onPeer {
		s.loop.Post(func() { fn(peerID, joined) })
	}
}

// NewServer creates a server whose command handlers run on loop.
func NewServer(loop dispatcher.Poster, logger *slog.Logger) (*Server, error) {
	if logger == nil {
		logger = slog.Default()
	}
	d, err := dispatcher.New(logger)
	if err != nil {
		return nil, fmt.Errorf("replication dispatcher: %w", err)
	}
	s := &Server{
		disp:    d,
		loop:    loop,
		logger:  logger.With("component", "replication.server"),
		peers:   make(map[string]Link),
		weapons: make(map[string]ownedWeapon),
	}

	d.Register(streaming.TypeServerStartFire, s.handleCommand(func(w *weapon.Weapon) { w.HandleServerStartFire() }), dispatcher.OnLoop(loop), dispatcher.Logged())
	d.Register(streaming.TypeServerStopFire, s.handleCommand(func(w *weapon.Weapon) { w.HandleServerStopFire() }), dispatcher.OnLoop(loop), dispatcher.Logged())
	d.Register(streaming.TypeServerReload, s.handleCommand(func(w *weapon.Weapon) { w.HandleServerReload() }), dispatcher.OnLoop(loop), dispatcher.Logged())
	d.Register(streaming.TypeServerEquip, s.handleEquip, dispatcher.OnLoop(loop), dispatcher.Logged())
	d.Register(streaming.TypeServerSetAiming, s.handleSetAiming, dispatcher.OnLoop(loop), dispatcher.Logged())
	d.Register(streaming.TypeServerFireOnce, s.handleFireOnce, dispatcher.OnLoop(loop))
	return s, nil
}

// Connect attaches a client link under peerID, replacing any previous link.
func (s *Server) Connect(peerID string, link Link) {
	s.mu.Lock()
	old := s.peers[peerID]
	s.peers[peerID] = link
	s.mu.Unlock()
	if old != nil && old != link {
		_ = old.Close()
	}
	if old == nil {
		s.notifyPeer(peerID, true)
	}
	s.logger.Info("Peer connected", "peer", peerID)
}

// Disconnect drops a peer's link. Triggers of weapons it owns are released.
func (s *Server) Disconnect(peerID string) {
	s.mu.Lock()
	link := s.peers[peerID]
	delete(s.peers, peerID)
	var owned []*weapon.Weapon
	for _, ow := range s.weapons {
		if ow.peer == peerID {
			owned = append(owned, ow.weapon)
		}
	}
	s.mu.Unlock()

	for _, w := range owned {
		s.loop.Post(w.HandleServerStopFire)
	}
	if link != nil {
		_ = link.Close()
		s.notifyPeer(peerID, false)
	}
	s.logger.Info("Peer disconnected", "peer", peerID, "weapons", len(owned))
}

// release disconnects peer only while link is still its current link.
func (s *Server) release(peer string, link Link) {
	s.mu.RLock()
	current := s.peers[peer]
	s.mu.RUnlock()
	if current == link {
		s.Disconnect(peer)
	}
}

// Peers is the number of connected clients.
func (s *Server) Peers() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.peers)
}

// RegisterWeapon makes w addressable by peer, the client that owns it. An
// empty peer means the weapon is driven by the server itself.
func (s *Server) RegisterWeapon(w *weapon.Weapon, peer string) error {
	if w.Role() != core.RoleAuthority {
		return fmt.Errorf("%w: %s", ErrNotAuthority, w.ID())
	}
	s.mu.Lock()
	s.weapons[w.ID()] = ownedWeapon{weapon: w, peer: peer}
	s.mu.Unlock()
	return nil
}

// UnregisterWeapon forgets a weapon.
func (s *Server) UnregisterWeapon(id string) {
	s.mu.Lock()
	delete(s.weapons, id)
	s.mu.Unlock()
}

// Receive decodes one envelope from peerID and queues it for the loop.
func (s *Server) Receive(peerID string, data []byte) error {
	env, err := streaming.Unmarshal(data)
	if err != nil {
		return err
	}
	_, err = s.disp.Dispatch(dispatcher.Event{Command: env.Type, Source: peerID, Payload: env})
	return err
}

// MulticastPlayFireFX sends an authoritative shot to every connected client.
// Send failures are logged and skipped.
func (s *Server) MulticastPlayFireFX(weaponID, ownerID string, shot core.ShotResult) {
	payload := streaming.FireFXPayload{WeaponID: weaponID, OwnerID: ownerID, Shot: shot}

	s.mu.RLock()
	links := make(map[string]Link, len(s.peers))
	for id, l := range s.peers {
		links[id] = l
	}
	s.mu.RUnlock()

	for id, l := range links {
		if err := l.Send(streaming.TypeMulticastFireFX, payload); err != nil {
			s.logger.Debug("Multicast send failed", "peer", id, "error", err)
		}
	}
}

func (s *Server) lookup(peer, weaponID string) (*weapon.Weapon, error) {
	s.mu.RLock()
	ow, ok := s.weapons[weaponID]
	s.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownWeapon, weaponID)
	}
	if ow.peer != peer {
		return nil, fmt.Errorf("%w: %s by %s", ErrNotOwner, weaponID, peer)
	}
	return ow.weapon, nil
}

func (s *Server) handleCommand(apply func(*weapon.Weapon)) dispatcher.HandlerFunc {
	return func(e dispatcher.Event) (any, error) {
		env, err := envelopeOf(e)
		if err != nil {
			return nil, err
		}
		cmd, err := streaming.Decode[streaming.WeaponCommand](env)
		if err != nil {
			return nil, err
		}
		w, err := s.lookup(e.Source, cmd.WeaponID)
		if err != nil {
			return nil, err
		}
		apply(w)
		return nil, nil
	}
}

func (s *Server) handleEquip(e dispatcher.Event) (any, error) {
	env, err := envelopeOf(e)
	if err != nil {
		return nil, err
	}
	cmd, err := streaming.Decode[streaming.WeaponCommand](env)
	if err != nil {
		return nil, err
	}
	w, err := s.lookup(e.Source, cmd.WeaponID)
	if err != nil {
		return nil, err
	}
	for _, fn := range s.onEquip {
		fn(e.Source, w)
	}
	return nil, nil
}

func (s *Server) handleSetAiming(e dispatcher.Event) (any, error) {
	env, err := envelopeOf(e)
	if err != nil {
		return nil, err
	}
	cmd, err := streaming.Decode[streaming.AimCommand](env)
	if err != nil {
		return nil, err
	}
	w, err := s.lookup(e.Source, cmd.WeaponID)
	if err != nil {
		return nil, err
	}
	w.HandleServerSetAiming(cmd.Aiming)
	return nil, nil
}

// handleFireOnce resolves a client shot. Rejected shots are silently
// dropped; the client is never told.
func (s *Server) handleFireOnce(e dispatcher.Event) (any, error) {
	env, err := envelopeOf(e)
	if err != nil {
		return nil, err
	}
	req, err := streaming.Decode[core.ShotRequest](env)
	if err != nil {
		return nil, err
	}
	w, err := s.lookup(e.Source, req.WeaponID)
	if err != nil {
		return nil, err
	}
	return w.HandleServerFireOnce(req), nil
}

func envelopeOf(e dispatcher.Event) (streaming.Envelope, error) {
	env, ok := e.Payload.(streaming.Envelope)
	if !ok {
		return streaming.Envelope{}, fmt.Errorf("%s: payload is %T, not an envelope", e.Command, e.Payload)
	}
	return env, nil
}
