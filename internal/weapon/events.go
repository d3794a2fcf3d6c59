package weapon

import (
	"time"

	"github.com/gunline/firecontrol/pkg/core"
)

// ShotReport describes a shot the authority resolved.
type ShotReport struct {
	Weapon     *Weapon
	Shot       core.ShotResult
	BurstIndex int
	At         time.Duration
}

// DamageReport describes damage a shot delivered.
type DamageReport struct {
	Weapon  *Weapon
	Shot    core.ShotResult
	Target  core.Actor
	Zone    core.HitZone
	Damage  float64
	Applied float64
}

type listeners struct {
	fx     []func(shot core.ShotResult, predicted bool)
	dry    []func(w *Weapon)
	reload []func(w *Weapon, moved int)
	shot   []func(ShotReport)
	damage []func(DamageReport)
}

// OnFireFX registers a cosmetic callback for muzzle flash, tracer and
// impact effects. predicted is true for a client's own unconfirmed shot.
func (w *Weapon) OnFireFX(fn func(shot core.ShotResult, predicted bool)) {
	w.events.fx = append(w.events.fx, fn)
}

// OnDryFire registers the empty-magazine cue.
func (w *Weapon) OnDryFire(fn func(w *Weapon)) {
	w.events.dry = append(w.events.dry, fn)
}

// OnReload registers a callback receiving the number of rounds moved.
func (w *Weapon) OnReload(fn func(w *Weapon, moved int)) {
	w.events.reload = append(w.events.reload, fn)
}

// OnShot registers a callback for every authoritative shot.
func (w *Weapon) OnShot(fn func(ShotReport)) {
	w.events.shot = append(w.events.shot, fn)
}

// OnDamage registers a callback for every damage event the weapon submits.
func (w *Weapon) OnDamage(fn func(DamageReport)) {
	w.events.damage = append(w.events.damage, fn)
}

func (l *listeners) playFX(shot core.ShotResult, predicted bool) {
	for _, fn := range l.fx {
		fn(shot, predicted)
	}
}

func (l *listeners) dryFired(w *Weapon) {
	for _, fn := range l.dry {
		fn(w)
	}
}

func (l *listeners) reloaded(w *Weapon, moved int) {
	for _, fn := range l.reload {
		fn(w, moved)
	}
}

func (l *listeners) shotResolved(r ShotReport) {
	for _, fn := range l.shot {
		fn(r)
	}
}

func (l *listeners) damaged(r DamageReport) {
	for _, fn := range l.damage {
		fn(r)
	}
}
