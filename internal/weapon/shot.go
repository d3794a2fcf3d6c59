package weapon

import (
	"math"
	"math/rand/v2"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/gunline/firecontrol/internal/hitzone"
	"github.com/gunline/firecontrol/pkg/core"
)

// EffectiveSpread is the cone half-angle in degrees for the aiming state.
func (w *Weapon) EffectiveSpread(aiming bool) float64 {
	spread := w.cfg.SpreadAngle
	if aiming {
		spread *= w.cfg.AimSpreadMultiplier
	}
	return math.Max(spread, 0)
}

// viewPoint returns where the controller is looking from. Without a view
// provider the owner location and control rotation are used.
func (w *Weapon) viewPoint(ctrl core.Controller) (core.Vec3, core.Vec3) {
	if w.deps.ViewPoint != nil {
		origin, dir := w.deps.ViewPoint.GetViewPoint(ctrl)
		if dir.Len() > 0 {
			return origin, dir.Normalize()
		}
	}
	return w.Location(), ctrl.ControlRotation().Vector()
}

// recoilAdjusted rotates dir by the recoil the camera has not caught up on.
func (w *Weapon) recoilAdjusted(dir core.Vec3) core.Vec3 {
	if !w.cfg.Recoil.EnableCameraRecoil {
		return dir
	}
	return core.OffsetDirection(dir, w.recoil.Pending())
}

func (w *Weapon) muzzleLocation(fallback core.Vec3) core.Vec3 {
	if w.owner == nil {
		return fallback
	}
	if sp, ok := w.owner.(core.SocketProvider); ok && w.cfg.MuzzleSocket != "" {
		if loc, ok := sp.SocketLocation(w.cfg.MuzzleSocket); ok {
			return loc
		}
	}
	w.logger.Debug("Muzzle socket missing, using owner location", "socket", w.cfg.MuzzleSocket)
	return w.owner.Location()
}

func (w *Weapon) ignoreSet() []string {
	ignore := []string{w.id}
	if w.owner != nil {
		ignore = append(ignore, w.owner.ID())
	}
	return ignore
}

// resolveShot traces from the eye to find the aim point, then from the muzzle
// toward it. The muzzle trace decides what was hit. Damage is only submitted
// when applyDamage is set.
func (w *Weapon) resolveShot(origin, dir core.Vec3, seed int64, aiming, applyDamage bool) core.ShotResult {
	shotDir := SpreadDirection(dir, w.EffectiveSpread(aiming), seed)
	ignore := w.ignoreSet()

	aimEnd := origin.Add(shotDir.Mul(w.cfg.MaxRange))
	aimHit := w.deps.Collision.LineTrace(origin, aimEnd, core.ChannelVisibility, ignore)
	aimPoint := aimEnd
	if aimHit.Blocking {
		aimPoint = aimHit.Point
	}

	muzzle := w.muzzleLocation(origin)
	muzzleDir := shotDir
	if toAim := aimPoint.Sub(muzzle); toAim.Len() > 1e-6 {
		muzzleDir = toAim.Normalize()
	}
	muzzleEnd := muzzle.Add(muzzleDir.Mul(w.cfg.MaxRange))
	hit := w.deps.Collision.LineTrace(muzzle, muzzleEnd, core.ChannelVisibility, ignore)

	result := core.ShotResult{
		TraceStart: muzzle,
		TraceEnd:   muzzleEnd,
		Seed:       seed,
	}
	if !hit.Blocking {
		return result
	}

	result.Hit = true
	result.TraceEnd = hit.Point
	result.ImpactPoint = hit.Point
	result.ImpactNormal = hit.Normal
	result.HitActor = hit.Actor
	result.HitActorID = hit.Actor.ID()
	result.Part = hit.Part

	target, ok := hit.Actor.Get()
	if !ok {
		return result
	}
	zone, rule := hitzone.Classify(target, hit.Part)
	result.Zone = zone
	result.Damage = w.cfg.Damage * hitzone.Multiplier(w.cfg.Multipliers, zone, rule)

	if applyDamage {
		w.dispatchDamage(result, hit, target, muzzleDir)
	}
	return result
}

// SpreadDirection perturbs dir uniformly within a cone of halfAngleDeg. The
// same seed always yields the same direction.
func SpreadDirection(dir core.Vec3, halfAngleDeg float64, seed int64) core.Vec3 {
	d := dir.Normalize()
	if halfAngleDeg <= 0 {
		return d
	}
	rng := rand.New(rand.NewPCG(uint64(seed), uint64(seed)^0x9e3779b97f4a7c15))

	cosMax := math.Cos(mgl64.DegToRad(halfAngleDeg))
	cosTheta := 1 - rng.Float64()*(1-cosMax)
	sinTheta := math.Sqrt(math.Max(0, 1-cosTheta*cosTheta))
	phi := rng.Float64() * 2 * math.Pi

	up := core.Vec3{0, 0, 1}
	if math.Abs(d.Dot(up)) > 0.999 {
		up = core.Vec3{0, 1, 0}
	}
	u := d.Cross(up).Normalize()
	v := d.Cross(u)

	return d.Mul(cosTheta).
		Add(u.Mul(sinTheta * math.Cos(phi))).
		Add(v.Mul(sinTheta * math.Sin(phi))).
		Normalize()
}
