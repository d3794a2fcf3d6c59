// pkg/core/actor.go
package core

// Actor is anything placed in the world that can own, cause or receive a shot.
type Actor interface {
	ID() string
	Location() Vec3
	// Valid is false once the actor has been destroyed.
	Valid() bool
}

// ActorRef is a weak handle: it never keeps a destroyed actor usable.
type ActorRef struct {
	actor Actor
}

// Ref wraps a possibly nil actor.
func Ref(a Actor) ActorRef {
	return ActorRef{actor: a}
}

// Get returns the actor if it is still valid.
func (r ActorRef) Get() (Actor, bool) {
	if r.actor == nil || !r.actor.Valid() {
		return nil, false
	}
	return r.actor, true
}

// ID returns the referenced actor's ID, or "" for an empty handle.
func (r ActorRef) ID() string {
	if r.actor == nil {
		return ""
	}
	return r.actor.ID()
}

// Controller drives a pawn's view. Only locally controlled controllers
// receive camera recoil.
type Controller interface {
	ID() string
	ControlRotation() Rotator
	SetControlRotation(Rotator)
	IsLocalController() bool
	Pawn() Actor
}

// PitchLimiter is implemented by controllers whose camera has a pitch range.
type PitchLimiter interface {
	ViewPitchRange() (min, max float64)
}

// Pawn is an actor that may be possessed by a controller.
type Pawn interface {
	Actor
	// Controller returns nil while unpossessed.
	Controller() Controller
}

// SocketProvider exposes named attachment points such as a muzzle.
type SocketProvider interface {
	SocketLocation(name string) (Vec3, bool)
}

// Damageable receives point damage and returns the amount actually applied.
type Damageable interface {
	TakePointDamage(ev PointDamage) float64
}

// HitZoneProvider classifies a struck part into a zone.
type HitZoneProvider interface {
	ResolveZone(part string) HitZone
}

// ZoneMultiplierProvider exposes the multiplier a matching rule carries.
type ZoneMultiplierProvider interface {
	ZoneMultiplier(zone HitZone) (float64, bool)
}

// Aimable toggles aim-down-sights.
type Aimable interface {
	SetAiming(bool)
	IsAiming() bool
}

// Fireable is the trigger surface of a weapon.
type Fireable interface {
	StartFire()
	StopFire()
	FireOnce() bool
	Reload() bool
	CanFire() bool
}

// CollisionQuery answers ray casts against world geometry.
type CollisionQuery interface {
	LineTrace(start, end Vec3, channel TraceChannel, ignore []string) TraceHit
}

// ViewPointProvider returns the eye origin and facing for a controller.
type ViewPointProvider interface {
	GetViewPoint(c Controller) (origin, direction Vec3)
}

// DamageSystem routes point damage to its target.
type DamageSystem interface {
	ApplyPointDamage(ev PointDamage) float64
}
