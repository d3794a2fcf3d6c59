package weapon

import (
	"time"

	"github.com/gunline/firecontrol/pkg/core"
)

// serverShotTolerance is the fraction of the fire interval the authority
// accepts between replicated shots.
const serverShotTolerance = 0.9

// minAimLength is the shortest replicated aim direction the authority traces.
const minAimLength = 1e-6

// StartFire presses the trigger. SemiAuto fires one shot; FullAuto fires one
// shot and then repeats every fire interval until StopFire or the magazine
// runs dry.
func (w *Weapon) StartFire() {
	if w.destroyed || w.holstered || w.triggerHeld {
		return
	}
	if w.localController() == nil {
		w.logger.Debug("StartFire ignored without a local controller")
		return
	}
	if !w.CanFire() {
		w.dryFire()
		return
	}
	interval := w.cfg.Interval()
	if w.hasShot && w.deps.Scheduler.Now()-w.lastShotAt < interval {
		return
	}

	w.triggerHeld = true
	if w.role == core.RoleAutonomousProxy && w.deps.Server != nil {
		w.deps.Server.ServerStartFire(w.id)
	}

	if !w.FireOnce() {
		w.StopFire()
		return
	}
	if w.cfg.FireMode == core.FullAuto {
		w.fireTimer = w.deps.Scheduler.ScheduleRepeating(interval, interval, w.fireTick)
	}
}

// StopFire releases the trigger and cancels any pending automatic shot.
func (w *Weapon) StopFire() {
	if w.fireTimer != nil {
		w.fireTimer.Cancel()
		w.fireTimer = nil
	}
	if !w.triggerHeld {
		return
	}
	w.triggerHeld = false
	if w.role == core.RoleAutonomousProxy && w.deps.Server != nil {
		w.deps.Server.ServerStopFire(w.id)
	}
}

func (w *Weapon) fireTick() {
	if !w.triggerHeld {
		w.StopFire()
		return
	}
	if !w.FireOnce() {
		w.StopFire()
	}
}

// FireOnce fires a single shot from the local view point. It returns false,
// after playing the dry-fire cue, when the magazine is empty.
func (w *Weapon) FireOnce() bool {
	if w.destroyed || w.holstered {
		return false
	}
	ctrl := w.localController()
	if ctrl == nil {
		w.logger.Debug("FireOnce ignored without a local controller")
		return false
	}
	if !w.CanFire() {
		w.dryFire()
		return false
	}

	origin, dir := w.viewPoint(ctrl)
	dir = w.recoilAdjusted(dir)
	seed := w.rng.Int64()
	burst := w.advanceBurst()
	w.consumeRound()

	if w.role == core.RoleAuthority {
		shot := w.resolveShot(origin, dir, seed, w.aiming, true)
		w.finishAuthoritativeShot(shot, burst)
		w.events.playFX(shot, false)
	} else {
		shot := w.resolveShot(origin, dir, seed, w.aiming, false)
		w.events.playFX(shot, true)
		if w.deps.Server != nil {
			w.deps.Server.ServerFireOnce(core.ShotRequest{
				WeaponID:  w.id,
				Origin:    origin,
				Direction: dir,
				Seed:      seed,
			})
		}
	}

	w.recoil.Kick(burst, w.aiming)
	return true
}

func (w *Weapon) dryFire() {
	w.metrics.dryFired()
	w.logger.Debug("Dry fire", "magazine", w.magazine, "reserve", w.reserve)
	w.events.dryFired(w)
}

// HandleServerStartFire records the remote owner's trigger press. A
// holstered weapon ignores it.
func (w *Weapon) HandleServerStartFire() {
	if w.role != core.RoleAuthority || w.destroyed {
		return
	}
	if w.holstered {
		w.reject("weapon holstered")
		return
	}
	w.triggerHeld = true
}

// HandleServerStopFire records the remote owner's trigger release.
func (w *Weapon) HandleServerStopFire() {
	if w.role != core.RoleAuthority {
		return
	}
	w.triggerHeld = false
}

// HandleServerReload performs the remote owner's reload on the authority.
func (w *Weapon) HandleServerReload() bool {
	if w.role != core.RoleAuthority || w.destroyed || w.holstered {
		return false
	}
	moved := w.reload()
	if moved > 0 {
		w.events.reloaded(w, moved)
	}
	return moved > 0
}

// HandleServerSetAiming records the remote owner's aim-down-sights state.
// Replicated shots use it for spread.
func (w *Weapon) HandleServerSetAiming(aiming bool) {
	if w.role != core.RoleAuthority || w.destroyed {
		return
	}
	if aiming && w.holstered {
		w.reject("weapon holstered")
		return
	}
	w.aiming = aiming
}

// HandleServerFireOnce resolves a shot requested by the remote owner. Shots
// on a holstered weapon, while the trigger is released, with a malformed
// aim, on an empty magazine, or faster than the fire rate allows are dropped
// without a reply.
func (w *Weapon) HandleServerFireOnce(req core.ShotRequest) bool {
	if w.role != core.RoleAuthority || w.destroyed {
		return false
	}
	if w.holstered {
		w.reject("weapon holstered")
		return false
	}
	if !w.triggerHeld {
		w.reject("trigger released")
		return false
	}
	if !validAim(req) {
		w.reject("invalid aim")
		return false
	}
	if !w.CanFire() {
		w.reject("magazine empty")
		return false
	}
	if !w.acceptServerShot() {
		w.reject("fire rate exceeded")
		return false
	}

	burst := w.advanceBurst()
	w.consumeRound()
	shot := w.resolveShot(req.Origin, req.Direction, req.Seed, w.aiming, true)
	w.finishAuthoritativeShot(shot, burst)
	return true
}

// HandleMulticastFireFX plays an authoritative shot on an observer. The
// locally controlled owner already played its predicted effects and skips it.
func (w *Weapon) HandleMulticastFireFX(shot core.ShotResult) bool {
	if w.localController() != nil {
		return false
	}
	w.events.playFX(shot, false)
	return true
}

func validAim(req core.ShotRequest) bool {
	return core.IsFinite(req.Origin) && core.IsFinite(req.Direction) &&
		req.Direction.Len() >= minAimLength
}

func (w *Weapon) acceptServerShot() bool {
	now := w.deps.Scheduler.Now()
	minGap := time.Duration(float64(w.cfg.Interval()) * serverShotTolerance)
	if w.hasServerShot && now-w.lastServerShotAt < minGap {
		return false
	}
	w.lastServerShotAt = now
	w.hasServerShot = true
	return true
}

func (w *Weapon) reject(reason string) {
	w.metrics.shotRejected()
	w.logger.Debug("Dropped replicated shot", "reason", reason)
}

func (w *Weapon) finishAuthoritativeShot(shot core.ShotResult, burst int) {
	w.metrics.shotFired()
	w.events.shotResolved(ShotReport{
		Weapon:     w,
		Shot:       shot,
		BurstIndex: burst,
		At:         w.deps.Scheduler.Now(),
	})
	if w.deps.FX != nil {
		ownerID := ""
		if w.owner != nil {
			ownerID = w.owner.ID()
		}
		w.deps.FX.MulticastPlayFireFX(w.id, ownerID, shot)
	}
}
