package worker

import (
	"log/slog"
	"time"

	"github.com/gunline/firecontrol/internal/dispatcher"
	"github.com/gunline/firecontrol/internal/health"
	"github.com/gunline/firecontrol/internal/session"
	"github.com/gunline/firecontrol/internal/weapon"
	"github.com/gunline/firecontrol/pkg/core"
)

// Dispatcher is the part of dispatcher.Dispatcher the recorder needs.
type Dispatcher interface {
	Dispatch(dispatcher.Event) (any, error)
}

// Clock supplies simulation time, normally the scheduler loop.
type Clock interface {
	Now() time.Duration
}

// Recorder listens to weapons and health containers and dispatches a
// combat event for each callback while a session is active.
type Recorder struct {
	dispatch Dispatcher
	session  *session.Context
	clock    Clock
	now      func() time.Time
	logger   *slog.Logger
}

// NewRecorder creates a recorder. A nil now uses time.Now.
func NewRecorder(d Dispatcher, s *session.Context, clock Clock, now func() time.Time, logger *slog.Logger) *Recorder {
	if now == nil {
		now = time.Now
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Recorder{dispatch: d, session: s, clock: clock, now: now, logger: logger}
}

// WatchWeapon subscribes to the weapon's authoritative callbacks.
func (r *Recorder) WatchWeapon(w *weapon.Weapon) {
	w.OnShot(r.shot)
	w.OnDamage(r.damage)
	w.OnDryFire(r.dryFire)
	w.OnReload(r.reload)
}

// WatchHealth subscribes to killing blows on h.
func (r *Recorder) WatchHealth(h *health.Health) {
	h.OnKilled(r.kill)
}

func (r *Recorder) shot(rep weapon.ShotReport) {
	id := r.session.ID()
	if id == "" {
		return
	}
	w := rep.Weapon
	r.emit(CmdShot, w.Name(), &core.ShotEvent{
		SessionID:  id,
		Time:       r.now().UTC(),
		SimTime:    rep.At,
		WeaponID:   w.ID(),
		WeaponName: w.Name(),
		ShooterID:  ownerID(w),
		FireMode:   w.Config().FireMode.String(),
		BurstIndex: rep.BurstIndex,
		Origin:     rep.Shot.TraceStart,
		End:        rep.Shot.TraceEnd,
		Hit:        rep.Shot.Hit,
		Seed:       rep.Shot.Seed,
	})
}

func (r *Recorder) damage(rep weapon.DamageReport) {
	id := r.session.ID()
	if id == "" {
		return
	}
	w := rep.Weapon
	victim := ""
	if rep.Target != nil {
		victim = rep.Target.ID()
	}
	r.emit(CmdHit, w.Name(), &core.HitEvent{
		SessionID:  id,
		Time:       r.now().UTC(),
		SimTime:    r.simTime(),
		WeaponID:   w.ID(),
		WeaponName: w.Name(),
		ShooterID:  ownerID(w),
		VictimID:   victim,
		Part:       rep.Shot.Part,
		Zone:       rep.Zone.String(),
		Damage:     rep.Damage,
		Applied:    rep.Applied,
		Position:   rep.Shot.ImpactPoint,
		Normal:     rep.Shot.ImpactNormal,
		Distance:   rep.Shot.ImpactPoint.Sub(rep.Shot.TraceStart).Len(),
	})
}

func (r *Recorder) kill(k health.Kill) {
	id := r.session.ID()
	if id == "" {
		return
	}
	ev := &core.KillEvent{
		SessionID: id,
		Time:      r.now().UTC(),
		SimTime:   r.simTime(),
		Zone:      k.Damage.Zone.String(),
		Distance:  k.Damage.Hit.Distance,
		Reward:    k.Rewards,
	}
	if named, ok := k.Damage.Causer.(interface{ Name() string }); ok {
		ev.WeaponName = named.Name()
	}
	if k.Killer != nil {
		ev.KillerID = k.Killer.ID()
	}
	if k.Victim != nil {
		ev.VictimID = k.Victim.ID()
	}
	r.emit(CmdKill, ev.WeaponName, ev)
}

func (r *Recorder) dryFire(w *weapon.Weapon) {
	id := r.session.ID()
	if id == "" {
		return
	}
	r.emit(CmdDryFire, w.Name(), &core.DryFireEvent{
		SessionID:  id,
		Time:       r.now().UTC(),
		SimTime:    r.simTime(),
		WeaponID:   w.ID(),
		WeaponName: w.Name(),
		ShooterID:  ownerID(w),
	})
}

func (r *Recorder) reload(w *weapon.Weapon, moved int) {
	id := r.session.ID()
	if id == "" {
		return
	}
	r.emit(CmdReload, w.Name(), &core.ReloadEvent{
		SessionID:  id,
		Time:       r.now().UTC(),
		SimTime:    r.simTime(),
		WeaponID:   w.ID(),
		WeaponName: w.Name(),
		ShooterID:  ownerID(w),
		Moved:      moved,
		Magazine:   w.AmmoInMagazine(),
		Reserve:    w.ReserveAmmo(),
	})
}

func (r *Recorder) emit(command, source string, payload any) {
	if _, err := r.dispatch.Dispatch(dispatcher.Event{
		Command:   command,
		Source:    source,
		Payload:   payload,
		Timestamp: r.now(),
	}); err != nil {
		r.logger.Warn("Failed to dispatch combat event", "command", command, "error", err)
	}
}

func (r *Recorder) simTime() time.Duration {
	if r.clock == nil {
		return 0
	}
	return r.clock.Now()
}

func ownerID(w *weapon.Weapon) string {
	if p := w.Owner(); p != nil {
		return p.ID()
	}
	return ""
}
