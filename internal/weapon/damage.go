package weapon

import (
	"github.com/gunline/firecontrol/pkg/core"
)

// dispatchDamage submits the shot's damage to the damage system. Nothing is
// sent for zero damage or a missing damage system.
func (w *Weapon) dispatchDamage(shot core.ShotResult, hit core.TraceHit, target core.Actor, dir core.Vec3) {
	if shot.Damage <= 0 {
		return
	}
	if w.deps.Damage == nil {
		w.logger.Debug("No damage system, hit not applied", "target", target.ID())
		return
	}

	applied := w.deps.Damage.ApplyPointDamage(core.PointDamage{
		Target:     core.Ref(target),
		Amount:     shot.Damage,
		Direction:  dir,
		Hit:        hit,
		Zone:       shot.Zone,
		Instigator: w.controller(),
		Causer:     w,
		DamageType: w.cfg.DamageType,
	})
	w.metrics.damaged(applied)
	w.logger.Debug("Damage dispatched",
		"target", target.ID(),
		"zone", shot.Zone.String(),
		"damage", shot.Damage,
		"applied", applied,
	)
	w.events.damaged(DamageReport{
		Weapon:  w,
		Shot:    shot,
		Target:  target,
		Zone:    shot.Zone,
		Damage:  shot.Damage,
		Applied: applied,
	})
}
