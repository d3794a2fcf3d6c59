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

// Client is a remote player's side. It implements weapon.ServerRPC for its
// own weapons and plays multicast fire effects on the weapons it mirrors.
type Client struct {
	link   Link
	disp   *dispatcher.Dispatcher
	logger *slog.Logger

	mu      sync.RWMutex
	weapons map[string]*weapon.Weapon
}

// NewClient creates a client sending over link. Multicasts run on loop.
func NewClient(link Link, loop dispatcher.Poster, logger *slog.Logger) (*Client, error) {
	if logger == nil {
		logger = slog.Default()
	}
	d, err := dispatcher.New(logger)
	if err != nil {
		return nil, fmt.Errorf("replication dispatcher: %w", err)
	}
	c := &Client{
		link:    link,
		disp:    d,
		logger:  logger.With("component", "replication.client"),
		weapons: make(map[string]*weapon.Weapon),
	}
	d.Register(streaming.TypeMulticastFireFX, c.handleFireFX, dispatcher.OnLoop(loop))
	return c, nil
}

// RegisterWeapon mirrors a weapon copy on this client.
func (c *Client) RegisterWeapon(w *weapon.Weapon) {
	c.mu.Lock()
	c.weapons[w.ID()] = w
	c.mu.Unlock()
}

// UnregisterWeapon forgets a mirrored weapon.
func (c *Client) UnregisterWeapon(id string) {
	c.mu.Lock()
	delete(c.weapons, id)
	c.mu.Unlock()
}

func (c *Client) ServerStartFire(weaponID string) {
	c.send(streaming.TypeServerStartFire, streaming.WeaponCommand{WeaponID: weaponID})
}

func (c *Client) ServerStopFire(weaponID string) {
	c.send(streaming.TypeServerStopFire, streaming.WeaponCommand{WeaponID: weaponID})
}

func (c *Client) ServerReload(weaponID string) {
	c.send(streaming.TypeServerReload, streaming.WeaponCommand{WeaponID: weaponID})
}

func (c *Client) ServerSetAiming(weaponID string, aiming bool) {
	c.send(streaming.TypeServerSetAiming, streaming.AimCommand{WeaponID: weaponID, Aiming: aiming})
}

// ServerEquip asks the authority to equip weaponID in place of the current
// weapon. Call it from the loadout's weapon-changed callback.
func (c *Client) ServerEquip(weaponID string) {
	c.send(streaming.TypeServerEquip, streaming.WeaponCommand{WeaponID: weaponID})
}

func (c *Client) ServerFireOnce(req core.ShotRequest) {
	c.send(streaming.TypeServerFireOnce, req)
}

// Receive decodes one envelope from the server and queues it for the loop.
// Acks and unknown message types are ignored.
func (c *Client) Receive(data []byte) error {
	env, err := streaming.Unmarshal(data)
	if err != nil {
		return err
	}
	if !c.disp.HasHandler(env.Type) {
		c.logger.Debug("Ignoring message", "type", env.Type)
		return nil
	}
	_, err = c.disp.Dispatch(dispatcher.Event{Command: env.Type, Source: "server", Payload: env})
	return err
}

// Close closes the link.
func (c *Client) Close() error {
	return c.link.Close()
}

func (c *Client) send(msgType string, payload any) {
	if err := c.link.Send(msgType, payload); err != nil {
		c.logger.Warn("Failed to send to server", "type", msgType, "error", err)
	}
}

func (c *Client) handleFireFX(e dispatcher.Event) (any, error) {
	env, err := envelopeOf(e)
	if err != nil {
		return nil, err
	}
	fx, err := streaming.Decode[streaming.FireFXPayload](env)
	if err != nil {
		return nil, err
	}
	c.mu.RLock()
	w, ok := c.weapons[fx.WeaponID]
	c.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownWeapon, fx.WeaponID)
	}
	return w.HandleMulticastFireFX(fx.Shot), nil
}
