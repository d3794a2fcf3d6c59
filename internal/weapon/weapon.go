// Package weapon implements the hitscan fire pipeline: trigger handling and
// ammo, shot resolution, damage dispatch and camera recoil.
package weapon

import (
	"fmt"
	"log/slog"
	"math/rand/v2"
	"time"

	"github.com/google/uuid"

	"github.com/gunline/firecontrol/internal/scheduler"
	"github.com/gunline/firecontrol/pkg/core"
)

// ServerRPC carries an owning client's trigger commands to the authority.
type ServerRPC interface {
	ServerStartFire(weaponID string)
	ServerStopFire(weaponID string)
	ServerReload(weaponID string)
	ServerSetAiming(weaponID string, aiming bool)
	ServerFireOnce(req core.ShotRequest)
}

// FXBroadcaster sends an authoritative shot to every observer.
type FXBroadcaster interface {
	MulticastPlayFireFX(weaponID, ownerID string, shot core.ShotResult)
}

// Dependencies are the collaborators a weapon needs. Scheduler and
// Collision are required.
type Dependencies struct {
	Scheduler scheduler.Scheduler
	Collision core.CollisionQuery
	ViewPoint core.ViewPointProvider
	Damage    core.DamageSystem
	Server    ServerRPC
	FX        FXBroadcaster
	Logger    *slog.Logger
	Rand      *rand.Rand
}

// Option configures a weapon instance.
type Option func(*Weapon)

// WithID sets the instance ID. Client and server copies of one weapon must
// share it.
func WithID(id string) Option {
	return func(w *Weapon) { w.id = id }
}

// WithOwner sets the pawn carrying the weapon.
func WithOwner(p core.Pawn) Option {
	return func(w *Weapon) { w.owner = p }
}

// WithRole sets the replication role. The default is RoleAuthority.
func WithRole(r core.NetRole) Option {
	return func(w *Weapon) { w.role = r }
}

// Weapon is one weapon instance. It is not safe for concurrent use; every
// call must come from the scheduler goroutine.
type Weapon struct {
	id    string
	cfg   Config
	deps  Dependencies
	owner core.Pawn
	role  core.NetRole

	magazine int
	reserve  int

	triggerHeld bool
	aiming      bool
	destroyed   bool
	fireTimer   scheduler.Handle
	// holstered weapons ignore trigger input until made active again
	holstered bool

	burstIndex int
	lastShotAt time.Duration
	hasShot    bool

	lastServerShotAt time.Duration
	hasServerShot    bool

	rng     *rand.Rand
	recoil  *Recoil
	metrics *metrics
	logger  *slog.Logger
	events  listeners
}

// New creates a weapon with a full magazine.
func New(cfg Config, deps Dependencies, opts ...Option) (*Weapon, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if deps.Scheduler == nil {
		return nil, fmt.Errorf("%w: scheduler", ErrMissingCollaborator)
	}
	if deps.Collision == nil {
		return nil, fmt.Errorf("%w: collision query", ErrMissingCollaborator)
	}

	w := &Weapon{
		cfg:      cfg,
		deps:     deps,
		role:     core.RoleAuthority,
		magazine: cfg.MagazineCapacity,
		reserve:  cfg.ReserveAmmo,
	}
	for _, opt := range opts {
		opt(w)
	}
	if w.id == "" {
		w.id = uuid.NewString()
	}

	w.rng = deps.Rand
	if w.rng == nil {
		w.rng = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}

	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	w.logger = logger.With("weapon", cfg.Name, "weaponId", w.id, "role", w.role.String())

	m, err := newMetrics(cfg.Name)
	if err != nil {
		return nil, err
	}
	w.metrics = m

	w.recoil = newRecoil(cfg.Recoil, deps.Scheduler, w.localController,
		func() bool { return w.triggerHeld },
		rand.New(rand.NewPCG(w.rng.Uint64(), w.rng.Uint64())), w.logger)

	return w, nil
}

func (w *Weapon) ID() string { return w.id }

// Location is the owner's location, or the origin when unowned.
func (w *Weapon) Location() core.Vec3 {
	if w.owner == nil {
		return core.Vec3{}
	}
	return w.owner.Location()
}

func (w *Weapon) Valid() bool { return !w.destroyed }

func (w *Weapon) Config() Config        { return w.cfg }
func (w *Weapon) Name() string          { return w.cfg.Name }
func (w *Weapon) TypeTag() string       { return w.cfg.TypeTag }
func (w *Weapon) Role() core.NetRole    { return w.role }
func (w *Weapon) Owner() core.Pawn      { return w.owner }
func (w *Weapon) Recoil() *Recoil       { return w.recoil }
func (w *Weapon) AmmoInMagazine() int   { return w.magazine }
func (w *Weapon) ReserveAmmo() int      { return w.reserve }
func (w *Weapon) MagazineCapacity() int { return w.cfg.MagazineCapacity }
func (w *Weapon) TriggerHeld() bool     { return w.triggerHeld }
func (w *Weapon) IsAiming() bool        { return w.aiming }

// BurstIndex is the number of shots in the current spray.
func (w *Weapon) BurstIndex() int { return w.burstIndex }

// SetOwner moves the weapon to a new pawn, stopping any fire in progress.
func (w *Weapon) SetOwner(p core.Pawn) {
	w.StopFire()
	w.recoil.Reset()
	w.owner = p
}

// SetAiming toggles aim-down-sights, which narrows spread and softens recoil.
// An owning client forwards the change to the authority.
func (w *Weapon) SetAiming(aiming bool) {
	if w.aiming == aiming {
		return
	}
	w.aiming = aiming
	if w.role == core.RoleAutonomousProxy && w.deps.Server != nil {
		w.deps.Server.ServerSetAiming(w.id, aiming)
	}
}

// Active reports whether the weapon is equipped rather than holstered.
func (w *Weapon) Active() bool { return !w.holstered }

// SetActive equips or holsters the weapon. Holstering releases the trigger
// and drops aim; a holstered weapon ignores local and replicated fire.
func (w *Weapon) SetActive(active bool) {
	if !active {
		w.StopFire()
		w.SetAiming(false)
	}
	w.holstered = !active
}

// SetInfiniteAmmo toggles the infinite ammo flag.
func (w *Weapon) SetInfiniteAmmo(on bool) {
	w.cfg.InfiniteAmmo = on
}

// CanFire is true with infinite ammo or a non-empty magazine.
func (w *Weapon) CanFire() bool {
	return w.cfg.InfiniteAmmo || w.magazine > 0
}

// DamageMultiplier returns the weapon table multiplier for zone.
func (w *Weapon) DamageMultiplier(zone core.HitZone) float64 {
	return w.cfg.Multipliers.Resolve(zone)
}

// Reload moves min(capacity - magazine, reserve) rounds into the magazine.
// It reports false when nothing moved.
func (w *Weapon) Reload() bool {
	if w.destroyed {
		return false
	}
	moved := w.reload()
	if moved == 0 {
		return false
	}
	if w.role == core.RoleAutonomousProxy && w.deps.Server != nil {
		w.deps.Server.ServerReload(w.id)
	}
	w.events.reloaded(w, moved)
	return true
}

func (w *Weapon) reload() int {
	missing := w.cfg.MagazineCapacity - w.magazine
	if missing <= 0 || w.reserve <= 0 {
		return 0
	}
	moved := min(missing, w.reserve)
	w.magazine += moved
	w.reserve -= moved
	w.logger.Debug("Reloaded", "moved", moved, "magazine", w.magazine, "reserve", w.reserve)
	return moved
}

// Destroy stops the weapon for good. Weak references to it stop resolving.
func (w *Weapon) Destroy() {
	w.StopFire()
	w.recoil.Reset()
	w.destroyed = true
}

func (w *Weapon) consumeRound() {
	if w.cfg.InfiniteAmmo {
		return
	}
	if w.magazine > 0 {
		w.magazine--
	}
}

// advanceBurst returns the spray index for a shot fired now. A gap longer
// than SprayResetDelay restarts the spray.
func (w *Weapon) advanceBurst() int {
	now := w.deps.Scheduler.Now()
	if w.hasShot && now-w.lastShotAt > w.cfg.SprayResetDelay {
		w.burstIndex = 0
	}
	idx := w.burstIndex
	w.burstIndex++
	w.lastShotAt = now
	w.hasShot = true
	return idx
}

// controller returns the owner's controller, local or not.
func (w *Weapon) controller() core.Controller {
	if w.owner == nil {
		return nil
	}
	return w.owner.Controller()
}

// localController returns the owner's controller only when it is driven on
// this side.
func (w *Weapon) localController() core.Controller {
	c := w.controller()
	if c == nil || !c.IsLocalController() {
		return nil
	}
	return c
}
