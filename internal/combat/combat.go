// Package combat owns a character's loadout and routes trigger, reload and
// scope input to the equipped weapon.
package combat

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/gunline/firecontrol/internal/weapon"
	"github.com/gunline/firecontrol/pkg/core"
)

// NoSlot is the slot index reported when nothing is equipped.
const NoSlot = -1

var (
	ErrEmptyLoadout = errors.New("loadout has no weapons")
	ErrNoOwner      = errors.New("combat component has no owner")
)

// Factory creates a weapon instance by definition name for owner.
type Factory func(name string, owner core.Pawn) (*weapon.Weapon, error)

// Config is a character's starting loadout.
type Config struct {
	Loadout         []string
	StarterWeapon   string
	InitialSlot     int
	ScopeOverlayTag string
}

// WeaponChange is broadcast when the equipped weapon changes.
type WeaponChange struct {
	Previous *weapon.Weapon
	Current  *weapon.Weapon
	Slot     int
	TypeTag  string
}

// Component holds the spawned loadout and the currently equipped weapon.
type Component struct {
	owner   core.Pawn
	cfg     Config
	factory Factory
	logger  *slog.Logger

	loadout []*weapon.Weapon
	current *weapon.Weapon
	slot    int
	scoping bool

	onChanged []func(WeaponChange)
}

// New creates an empty component. Call InitializeLoadout to spawn weapons.
func New(owner core.Pawn, cfg Config, factory Factory, logger *slog.Logger) *Component {
	if logger == nil {
		logger = slog.Default()
	}
	return &Component{
		owner:   owner,
		cfg:     cfg,
		factory: factory,
		logger:  logger,
		slot:    NoSlot,
	}
}

// OnCurrentWeaponChanged registers a weapon switch callback.
func (c *Component) OnCurrentWeaponChanged(fn func(WeaponChange)) {
	c.onChanged = append(c.onChanged, fn)
}

func (c *Component) CurrentWeapon() *weapon.Weapon { return c.current }
func (c *Component) CurrentSlot() int              { return c.slot }
func (c *Component) IsScoping() bool               { return c.scoping }

// Loadout returns the spawned weapons in slot order.
func (c *Component) Loadout() []*weapon.Weapon {
	out := make([]*weapon.Weapon, len(c.loadout))
	copy(out, c.loadout)
	return out
}

// InitializeLoadout destroys any existing weapons, spawns the configured
// loadout (or the starter weapon when the loadout is empty) and equips the
// initial slot.
func (c *Component) InitializeLoadout() error {
	if c.owner == nil {
		return ErrNoOwner
	}
	c.StopScope()
	c.destroyAll()

	names := make([]string, 0, len(c.cfg.Loadout))
	for _, name := range c.cfg.Loadout {
		if name != "" {
			names = append(names, name)
		}
	}
	if len(names) == 0 && c.cfg.StarterWeapon != "" {
		names = append(names, c.cfg.StarterWeapon)
	}
	if len(names) == 0 {
		c.logger.Warn("No loadout configured", "owner", c.owner.ID())
		return ErrEmptyLoadout
	}

	var errs []error
	for _, name := range names {
		w, err := c.factory(name, c.owner)
		if err != nil {
			c.logger.Warn("Failed to spawn loadout weapon", "weapon", name, "error", err)
			errs = append(errs, err)
			continue
		}
		c.setActive(w, false)
		c.loadout = append(c.loadout, w)
	}
	if len(c.loadout) == 0 {
		return fmt.Errorf("%w: %w", ErrEmptyLoadout, errors.Join(errs...))
	}

	slot := min(max(c.cfg.InitialSlot, 0), len(c.loadout)-1)
	c.EquipWeaponSlot(slot)
	return nil
}

// EquipWeaponSlot equips the weapon in slot. Switching stops the scope and
// deactivates the previous weapon.
func (c *Component) EquipWeaponSlot(slot int) bool {
	if slot < 0 || slot >= len(c.loadout) {
		return false
	}
	next := c.loadout[slot]
	if next == nil || !next.Valid() {
		return false
	}
	if c.current == next && c.slot == slot {
		c.setActive(next, true)
		return true
	}
	if c.scoping {
		c.StopScope()
	}

	prev := c.current
	if prev != nil && prev != next {
		c.setActive(prev, false)
	}
	c.current = next
	c.slot = slot
	if next.Owner() != c.owner {
		next.SetOwner(c.owner)
	}
	c.setActive(next, true)
	c.broadcast(prev, next, slot)
	return true
}

// EquipNextWeapon cycles forward through the loadout, wrapping around.
func (c *Component) EquipNextWeapon() bool {
	n := len(c.loadout)
	if n <= 1 {
		return false
	}
	return c.EquipWeaponSlot((c.baseSlot() + 1) % n)
}

// EquipPreviousWeapon cycles backward through the loadout, wrapping around.
func (c *Component) EquipPreviousWeapon() bool {
	n := len(c.loadout)
	if n <= 1 {
		return false
	}
	return c.EquipWeaponSlot((c.baseSlot() - 1 + n) % n)
}

// EquipWeapon spawns a weapon by name and makes it the whole loadout.
func (c *Component) EquipWeapon(name string) bool {
	if c.owner == nil {
		return false
	}
	w, err := c.factory(name, c.owner)
	if err != nil {
		c.logger.Warn("Failed to spawn weapon", "weapon", name, "error", err)
		return false
	}
	return c.EquipSpawnedWeapon(w)
}

// EquipSpawnedWeapon replaces the loadout with w and equips it.
func (c *Component) EquipSpawnedWeapon(w *weapon.Weapon) bool {
	if w == nil || !w.Valid() || c.owner == nil {
		return false
	}
	if c.current == w && c.slot != NoSlot {
		return true
	}
	if c.scoping {
		c.StopScope()
	}
	for _, existing := range c.loadout {
		if existing != w {
			existing.Destroy()
		}
	}
	w.SetOwner(c.owner)
	c.setActive(w, false)
	c.loadout = []*weapon.Weapon{w}
	c.current = nil
	c.slot = NoSlot
	return c.EquipWeaponSlot(0)
}

// UnequipCurrentWeapon removes the equipped weapon from the loadout,
// destroying it when destroy is set.
func (c *Component) UnequipCurrentWeapon(destroy bool) {
	if c.current == nil {
		return
	}
	c.StopScope()

	prev := c.current
	c.setActive(prev, false)
	for i, w := range c.loadout {
		if w == prev {
			c.loadout = append(c.loadout[:i], c.loadout[i+1:]...)
			break
		}
	}
	if destroy {
		prev.Destroy()
	}
	c.current = nil
	c.slot = NoSlot
	c.broadcast(prev, nil, NoSlot)
}

func (c *Component) StartFire() {
	if c.current != nil {
		c.current.StartFire()
	}
}

func (c *Component) StopFire() {
	if c.current != nil {
		c.current.StopFire()
	}
}

func (c *Component) Reload() bool {
	return c.current != nil && c.current.Reload()
}

func (c *Component) AmmoInMagazine() int {
	if c.current == nil {
		return 0
	}
	return c.current.AmmoInMagazine()
}

func (c *Component) AmmoInReserve() int {
	if c.current == nil {
		return 0
	}
	return c.current.ReserveAmmo()
}

func (c *Component) AmmoTotalAvailable() int {
	return c.AmmoInMagazine() + c.AmmoInReserve()
}

// StartScope aims the current weapon down sights.
func (c *Component) StartScope() {
	c.scoping = true
	if c.current != nil {
		c.current.SetAiming(true)
	}
}

// StopScope releases aim-down-sights.
func (c *Component) StopScope() {
	c.scoping = false
	if c.current != nil {
		c.current.SetAiming(false)
	}
}

// IsScopeOverlayActive is true while scoping with a weapon whose type tag
// matches the configured overlay tag.
func (c *Component) IsScopeOverlayActive() bool {
	return c.scoping && c.current != nil && c.cfg.ScopeOverlayTag != "" &&
		c.current.TypeTag() == c.cfg.ScopeOverlayTag
}

// CurrentWeaponTypeTag returns the equipped weapon's tag, or "".
func (c *Component) CurrentWeaponTypeTag() string {
	if c.current == nil {
		return ""
	}
	return c.current.TypeTag()
}

func (c *Component) baseSlot() int {
	if c.slot == NoSlot {
		return 0
	}
	return c.slot
}

func (c *Component) setActive(w *weapon.Weapon, active bool) {
	if w == nil {
		return
	}
	w.SetActive(active)
}

func (c *Component) broadcast(prev, next *weapon.Weapon, slot int) {
	change := WeaponChange{Previous: prev, Current: next, Slot: slot}
	if next != nil {
		change.TypeTag = next.TypeTag()
	}
	for _, fn := range c.onChanged {
		fn(change)
	}
}

func (c *Component) destroyAll() {
	for _, w := range c.loadout {
		w.Destroy()
	}
	c.loadout = nil
	c.current = nil
	c.slot = NoSlot
}
