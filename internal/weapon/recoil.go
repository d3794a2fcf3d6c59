package weapon

import (
	"log/slog"
	"math"
	"math/rand/v2"
	"time"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/gunline/firecontrol/internal/scheduler"
	"github.com/gunline/firecontrol/pkg/core"
)

// Recoil accumulates a target camera offset per shot and eases the camera
// toward it every frame. It only ticks while an offset is outstanding.
//
// Target is where recoil wants the camera to be, Applied is how much of that
// the camera already received. Player input against the recoil direction is
// treated as compensation and removed from both.
type Recoil struct {
	cfg        RecoilConfig
	sched      scheduler.Scheduler
	controller func() core.Controller
	firing     func() bool
	rng        *rand.Rand
	logger     *slog.Logger

	target      core.Rotator
	applied     core.Rotator
	lastView    core.Rotator
	hasBaseline bool
	frame       scheduler.Handle

	lastCompensation core.Rotator
}

func newRecoil(cfg RecoilConfig, sched scheduler.Scheduler, controller func() core.Controller,
	firing func() bool, rng *rand.Rand, logger *slog.Logger) *Recoil {
	return &Recoil{
		cfg:        cfg,
		sched:      sched,
		controller: controller,
		firing:     firing,
		rng:        rng,
		logger:     logger,
	}
}

func (r *Recoil) Target() core.Rotator  { return r.target }
func (r *Recoil) Applied() core.Rotator { return r.applied }

// Pending is the part of the target the camera has not received yet.
func (r *Recoil) Pending() core.Rotator { return r.target.Sub(r.applied) }

// Active reports whether the per-frame update is registered.
func (r *Recoil) Active() bool { return r.frame != nil }

// LastCompensation is the counter-recoil removed on the most recent frame.
func (r *Recoil) LastCompensation() core.Rotator { return r.lastCompensation }

// Contribution computes one shot's raw recoil: the pattern entry for
// burstIndex plus random jitter, reduced while aiming.
func (r *Recoil) Contribution(burstIndex int, aiming bool) core.Rotator {
	base := r.patternEntry(burstIndex)

	jitter := 1.0
	if aiming {
		jitter = r.cfg.AimJitterMultiplier
	}
	base.Pitch += r.symmetric(r.cfg.RandomPitch) * jitter
	base.Yaw += r.symmetric(r.cfg.RandomYaw) * jitter
	return base
}

func (r *Recoil) patternEntry(i int) core.Rotator {
	n := len(r.cfg.Pattern)
	if n == 0 {
		return core.Rotator{Pitch: r.cfg.BasePitch, Yaw: r.symmetric(r.cfg.BaseYaw)}
	}
	if i < n {
		return r.cfg.Pattern[i]
	}
	switch r.cfg.Overflow {
	case OverflowLoop:
		return r.cfg.Pattern[i%n]
	case OverflowStop:
		return core.Rotator{}
	default:
		return r.cfg.Pattern[n-1]
	}
}

func (r *Recoil) symmetric(limit float64) float64 {
	if limit <= 0 {
		return 0
	}
	return (r.rng.Float64()*2 - 1) * limit
}

// Kick computes and applies the recoil for one shot.
func (r *Recoil) Kick(burstIndex int, aiming bool) core.Rotator {
	c := r.Contribution(burstIndex, aiming)
	r.Apply(c, aiming)
	return c
}

// Apply scales a contribution by the axis and aiming multipliers and adds it
// to the clamped target offset.
func (r *Recoil) Apply(contribution core.Rotator, aiming bool) {
	if !r.cfg.EnableCameraRecoil {
		r.Reset()
		return
	}
	ctrl := r.controller()
	if ctrl == nil {
		r.Reset()
		return
	}

	scale := 1.0
	if aiming {
		scale = r.cfg.AimMultiplier
	}
	r.target.Pitch += contribution.Pitch * r.cfg.PitchMultiplier * scale
	r.target.Yaw += contribution.Yaw * r.cfg.YawMultiplier * scale
	r.target.Pitch = mgl64.Clamp(r.target.Pitch, -r.cfg.MaxPitch, r.cfg.MaxPitch)
	r.target.Yaw = mgl64.Clamp(r.target.Yaw, -r.cfg.MaxYaw, r.cfg.MaxYaw)

	if r.frame == nil {
		r.lastView = ctrl.ControlRotation()
		r.hasBaseline = true
		r.frame = r.sched.EveryFrame(r.tick)
	}
}

// Reset zeroes every offset and stops ticking.
func (r *Recoil) Reset() {
	r.target = core.Rotator{}
	r.applied = core.Rotator{}
	r.lastCompensation = core.Rotator{}
	r.hasBaseline = false
	if r.frame != nil {
		r.frame.Cancel()
		r.frame = nil
	}
}

func (r *Recoil) tick(dt time.Duration) {
	ctrl := r.controller()
	if ctrl == nil || !r.cfg.EnableCameraRecoil {
		r.Reset()
		return
	}
	secs := dt.Seconds()
	view := ctrl.ControlRotation()

	r.lastCompensation = core.Rotator{}
	if r.hasBaseline {
		input := core.Rotator{
			Pitch: view.Pitch - r.lastView.Pitch,
			Yaw:   core.NormalizeAxis(view.Yaw - r.lastView.Yaw),
		}
		var comp core.Rotator
		r.target.Pitch, r.applied.Pitch, comp.Pitch = compensateAxis(input.Pitch, r.target.Pitch, r.applied.Pitch)
		r.target.Yaw, r.applied.Yaw, comp.Yaw = compensateAxis(input.Yaw, r.target.Yaw, r.applied.Yaw)
		r.lastCompensation = comp
	}

	if !(r.cfg.HoldWhileFiring && r.firing()) {
		r.target = interpRotator(r.target, core.Rotator{}, secs, r.cfg.ReturnSpeed)
	}
	next := interpRotator(r.applied, r.target, secs, r.cfg.KickSpeed)
	delta := next.Sub(r.applied)
	r.applied = next

	if delta != (core.Rotator{}) {
		lo, hi := r.pitchRange(ctrl)
		kicked := view.Add(delta)
		kicked.Pitch = mgl64.Clamp(kicked.Pitch, lo, hi)
		kicked.Yaw = core.NormalizeAxis(kicked.Yaw)
		ctrl.SetControlRotation(kicked)
	}
	r.lastView = ctrl.ControlRotation()
	r.hasBaseline = true

	if r.target.IsNearlyZero(r.cfg.SettleThreshold) && r.applied.IsNearlyZero(r.cfg.SettleThreshold) {
		r.logger.Debug("Recoil settled")
		r.Reset()
	}
}

func (r *Recoil) pitchRange(ctrl core.Controller) (float64, float64) {
	if pl, ok := ctrl.(core.PitchLimiter); ok {
		return pl.ViewPitchRange()
	}
	return r.cfg.MinViewPitch, r.cfg.MaxViewPitch
}

// compensateAxis removes player input that opposes outstanding recoil. The
// removed amount never exceeds the outstanding magnitude and never flips the
// sign of either offset.
func compensateAxis(input, target, applied float64) (newTarget, newApplied, comp float64) {
	if applied == 0 || input == 0 || math.Signbit(input) == math.Signbit(applied) {
		return target, applied, 0
	}
	comp = math.Min(math.Abs(input), math.Abs(applied))
	newApplied = applied - math.Copysign(comp, applied)

	newTarget = target
	if target != 0 {
		newTarget = target - math.Copysign(math.Min(comp, math.Abs(target)), target)
	}
	return newTarget, newApplied, comp
}

// interpTo eases current toward target at speed per second. A non-positive
// speed jumps straight to target.
func interpTo(current, target, dt, speed float64) float64 {
	if speed <= 0 {
		return target
	}
	dist := target - current
	if dist*dist < 1e-10 {
		return target
	}
	return current + dist*mgl64.Clamp(dt*speed, 0, 1)
}

func interpRotator(current, target core.Rotator, dt, speed float64) core.Rotator {
	return core.Rotator{
		Pitch: interpTo(current.Pitch, target.Pitch, dt, speed),
		Yaw:   interpTo(current.Yaw, target.Yaw, dt, speed),
	}
}
