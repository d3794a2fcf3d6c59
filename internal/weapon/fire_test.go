package weapon

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/gunline/firecontrol/internal/hitzone"
	"github.com/gunline/firecontrol/pkg/core"
)

func TestCanFireMatchesMagazine(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		r := newSeededRig(rt, quietConfig(), 1)
		r.weapon.magazine = rapid.IntRange(0, 30).Draw(rt, "magazine")
		infinite := rapid.Bool().Draw(rt, "infinite")
		r.weapon.SetInfiniteAmmo(infinite)

		want := infinite || r.weapon.magazine > 0
		if r.weapon.CanFire() != want {
			rt.Fatalf("CanFire() = %v with magazine %d infinite %v", r.weapon.CanFire(), r.weapon.magazine, infinite)
		}
	})
}

func TestFireOnceEmptyMagazine(t *testing.T) {
	r := newRig(t, quietConfig())
	r.weapon.magazine = 0
	dry := 0
	r.weapon.OnDryFire(func(*Weapon) { dry++ })

	assert.False(t, r.weapon.FireOnce())
	assert.Equal(t, 0, r.weapon.AmmoInMagazine())
	assert.Equal(t, 90, r.weapon.ReserveAmmo())
	assert.Equal(t, 1, dry)
	assert.Empty(t, r.collision.calls, "dry fire must not trace")
}

func TestFireOnceConsumesOneRound(t *testing.T) {
	r := newRig(t, quietConfig())
	require.True(t, r.weapon.FireOnce())
	assert.Equal(t, 29, r.weapon.AmmoInMagazine())

	r.weapon.magazine = 1
	require.True(t, r.weapon.FireOnce())
	assert.Equal(t, 0, r.weapon.AmmoInMagazine())
	assert.False(t, r.weapon.FireOnce())
	assert.Equal(t, 0, r.weapon.AmmoInMagazine())
}

func TestInfiniteAmmoDoesNotConsume(t *testing.T) {
	cfg := quietConfig()
	cfg.InfiniteAmmo = true
	r := newRig(t, cfg)
	r.weapon.magazine = 0

	assert.True(t, r.weapon.FireOnce())
	assert.Equal(t, 0, r.weapon.AmmoInMagazine())
}

func TestReloadTransfer(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		cfg := quietConfig()
		cfg.MagazineCapacity = rapid.IntRange(1, 60).Draw(rt, "capacity")
		r := newSeededRig(rt, cfg, 1)
		current := rapid.IntRange(0, cfg.MagazineCapacity).Draw(rt, "current")
		reserve := rapid.IntRange(0, 200).Draw(rt, "reserve")
		r.weapon.magazine = current
		r.weapon.reserve = reserve

		ok := r.weapon.Reload()
		moved := min(cfg.MagazineCapacity-current, reserve)
		if ok != (moved > 0) {
			rt.Fatalf("Reload() = %v, expected moved %d", ok, moved)
		}
		if r.weapon.magazine != current+moved || r.weapon.reserve != reserve-moved {
			rt.Fatalf("magazine %d reserve %d after moving %d", r.weapon.magazine, r.weapon.reserve, moved)
		}
		if r.weapon.magazine > cfg.MagazineCapacity {
			rt.Fatalf("magazine %d over capacity %d", r.weapon.magazine, cfg.MagazineCapacity)
		}
	})
}

func TestReloadNoOp(t *testing.T) {
	r := newRig(t, quietConfig())
	reloads := 0
	r.weapon.OnReload(func(*Weapon, int) { reloads++ })

	assert.False(t, r.weapon.Reload(), "full magazine")

	r.weapon.magazine = 5
	r.weapon.reserve = 0
	assert.False(t, r.weapon.Reload(), "empty reserve")
	assert.Equal(t, 0, reloads)
}

func TestFullAutoThirtyOneShots(t *testing.T) {
	r := newRig(t, quietConfig())
	shots, dry := 0, 0
	r.weapon.OnShot(func(ShotReport) { shots++ })
	r.weapon.OnDryFire(func(*Weapon) { dry++ })

	r.weapon.StartFire()
	assert.Equal(t, 29, r.weapon.AmmoInMagazine(), "first shot is immediate")
	assert.True(t, r.weapon.TriggerHeld())

	r.loop.AdvanceBy(10*time.Millisecond, 400)

	assert.Equal(t, 30, shots)
	assert.Equal(t, 1, dry, "shot 31 is a dry fire")
	assert.Equal(t, 0, r.weapon.AmmoInMagazine())
	assert.Equal(t, 90, r.weapon.ReserveAmmo())
	assert.False(t, r.weapon.TriggerHeld(), "auto fire halts")

	timers, _ := r.loop.Pending()
	assert.Equal(t, 0, timers)
}

func TestFullAutoCadence(t *testing.T) {
	r := newRig(t, quietConfig())
	var at []time.Duration
	r.weapon.OnShot(func(rep ShotReport) { at = append(at, rep.At) })

	r.weapon.StartFire()
	r.loop.Advance(250 * time.Millisecond)
	r.weapon.StopFire()
	r.loop.Advance(time.Second)

	assert.Equal(t, []time.Duration{0, 100 * time.Millisecond, 200 * time.Millisecond}, at)
	assert.Equal(t, 27, r.weapon.AmmoInMagazine())
}

func TestSemiAutoFiresOnce(t *testing.T) {
	cfg := quietConfig()
	cfg.FireMode = core.SemiAuto
	r := newRig(t, cfg)

	r.weapon.StartFire()
	r.loop.Advance(time.Second)
	assert.Equal(t, 29, r.weapon.AmmoInMagazine())

	r.weapon.StartFire()
	assert.Equal(t, 29, r.weapon.AmmoInMagazine(), "trigger still held")

	r.weapon.StopFire()
	r.weapon.StartFire()
	assert.Equal(t, 28, r.weapon.AmmoInMagazine())
}

func TestStartFireEmptyPlaysDryFire(t *testing.T) {
	r := newRig(t, quietConfig())
	r.weapon.magazine = 0
	dry := 0
	r.weapon.OnDryFire(func(*Weapon) { dry++ })

	r.weapon.StartFire()
	assert.Equal(t, 1, dry)
	assert.False(t, r.weapon.TriggerHeld())
}

func TestStartFireWithoutLocalController(t *testing.T) {
	r := newRig(t, quietConfig())
	r.controller.local = false

	r.weapon.StartFire()
	assert.False(t, r.weapon.TriggerHeld())
	assert.False(t, r.weapon.FireOnce())
	assert.Equal(t, 30, r.weapon.AmmoInMagazine())

	r.pawn.controller = nil
	assert.False(t, r.weapon.FireOnce())
}

func TestSprayResetsAfterIdleGap(t *testing.T) {
	cfg := quietConfig()
	cfg.FireMode = core.SemiAuto
	cfg.Recoil.Pattern = []core.Rotator{{Pitch: 1}, {Pitch: 2}, {Pitch: 3}}
	r := newRig(t, cfg)
	var bursts []int
	r.weapon.OnShot(func(rep ShotReport) { bursts = append(bursts, rep.BurstIndex) })

	tap := func() {
		r.weapon.StartFire()
		r.weapon.StopFire()
	}

	tap()
	r.loop.Advance(150 * time.Millisecond)
	tap()
	r.loop.Advance(500 * time.Millisecond)
	tap()

	assert.Equal(t, []int{0, 1, 0}, bursts)
	assert.Equal(t, 1, r.weapon.BurstIndex())
}

func TestAutonomousProxyPredictsAndSends(t *testing.T) {
	srv := &fakeServer{}
	r := newRig(t, quietConfig(), WithRole(core.RoleAutonomousProxy))
	r.weapon.deps.Server = srv
	r.collision.hitActor = &fakeTarget{Component: hitzone.New(nil, nil), id: "dummy"}

	var predicted []bool
	r.weapon.OnFireFX(func(_ core.ShotResult, p bool) { predicted = append(predicted, p) })

	r.weapon.StartFire()
	r.loop.Advance(50 * time.Millisecond)
	r.weapon.StopFire()

	assert.Equal(t, 1, srv.started)
	assert.Equal(t, 1, srv.stopped)
	require.Len(t, srv.shots, 1)
	assert.Equal(t, "w1", srv.shots[0].WeaponID)
	assert.Equal(t, []bool{true}, predicted)
	assert.Empty(t, r.damage.events, "clients never apply damage")

	assert.True(t, r.weapon.Reload())
	assert.Equal(t, 1, srv.reloads)
}

func TestServerGuardDropsFastShots(t *testing.T) {
	fx := &fakeFX{}
	r := newRig(t, quietConfig())
	r.controller.local = false
	r.weapon.deps.FX = fx

	req := core.ShotRequest{WeaponID: "w1", Direction: core.Vec3{1, 0, 0}, Seed: 7}

	assert.False(t, r.weapon.HandleServerFireOnce(req), "trigger not held")

	r.weapon.HandleServerStartFire()
	assert.True(t, r.weapon.HandleServerFireOnce(req))

	r.loop.Advance(80 * time.Millisecond)
	assert.False(t, r.weapon.HandleServerFireOnce(req), "under 0.9 x interval")

	r.loop.Advance(15 * time.Millisecond)
	assert.True(t, r.weapon.HandleServerFireOnce(req), "95ms is past 90ms")

	r.weapon.HandleServerStopFire()
	r.loop.Advance(time.Second)
	assert.False(t, r.weapon.HandleServerFireOnce(req))

	assert.Equal(t, 28, r.weapon.AmmoInMagazine())
	assert.Len(t, fx.shots, 2)
}

func TestServerReload(t *testing.T) {
	r := newRig(t, quietConfig())
	r.controller.local = false
	r.weapon.magazine = 10

	assert.True(t, r.weapon.HandleServerReload())
	assert.Equal(t, 30, r.weapon.AmmoInMagazine())
	assert.Equal(t, 70, r.weapon.ReserveAmmo())
}

func TestMulticastSkippedForLocalOwner(t *testing.T) {
	r := newRig(t, quietConfig(), WithRole(core.RoleAutonomousProxy))
	played := 0
	r.weapon.OnFireFX(func(core.ShotResult, bool) { played++ })

	assert.False(t, r.weapon.HandleMulticastFireFX(core.ShotResult{}))
	assert.Equal(t, 0, played)

	r.controller.local = false
	assert.True(t, r.weapon.HandleMulticastFireFX(core.ShotResult{}))
	assert.Equal(t, 1, played)
}

func TestDestroyedWeaponIsInert(t *testing.T) {
	r := newRig(t, quietConfig())
	r.weapon.StartFire()
	r.weapon.Destroy()

	assert.False(t, r.weapon.Valid())
	assert.False(t, r.weapon.TriggerHeld())
	assert.False(t, r.weapon.FireOnce())
	assert.False(t, r.weapon.Reload())
}

func TestNewValidates(t *testing.T) {
	cfg := quietConfig()
	cfg.MaxRange = 0
	_, err := New(cfg, Dependencies{})
	assert.ErrorIs(t, err, ErrInvalidConfig)

	_, err = New(quietConfig(), Dependencies{})
	assert.ErrorIs(t, err, ErrMissingCollaborator)
}

func TestInterval(t *testing.T) {
	cfg := DefaultConfig()
	assert.Equal(t, 100*time.Millisecond, cfg.Interval())

	cfg.RoundsPerMinute = 0
	assert.Equal(t, time.Minute, cfg.Interval())
}

func TestServerDropsMalformedShotRequests(t *testing.T) {
	nan, inf := math.NaN(), math.Inf(1)
	cases := []struct {
		name string
		req  core.ShotRequest
	}{
		{"zero direction", core.ShotRequest{Direction: core.Vec3{}}},
		{"tiny direction", core.ShotRequest{Direction: core.Vec3{1e-9, 0, 0}}},
		{"NaN direction", core.ShotRequest{Direction: core.Vec3{nan, 0, 0}}},
		{"infinite direction", core.ShotRequest{Direction: core.Vec3{1, inf, 0}}},
		{"NaN origin", core.ShotRequest{Origin: core.Vec3{0, nan, 0}, Direction: core.Vec3{1, 0, 0}}},
		{"infinite origin", core.ShotRequest{Origin: core.Vec3{-inf, 0, 0}, Direction: core.Vec3{1, 0, 0}}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			fx := &fakeFX{}
			r := newRig(t, quietConfig())
			r.controller.local = false
			r.weapon.deps.FX = fx
			r.collision.hitActor = &fakeTarget{Component: hitzone.New(nil, nil), id: "bystander"}
			r.weapon.HandleServerStartFire()

			req := tc.req
			req.WeaponID, req.Seed = "w1", 7
			assert.False(t, r.weapon.HandleServerFireOnce(req))
			assert.Equal(t, 30, r.weapon.AmmoInMagazine())
			assert.Zero(t, r.weapon.BurstIndex())
			assert.Empty(t, r.collision.calls)
			assert.Empty(t, r.damage.events)
			assert.Empty(t, fx.shots)

			// the dropped request does not use up the fire-rate window
			assert.True(t, r.weapon.HandleServerFireOnce(core.ShotRequest{WeaponID: "w1", Direction: core.Vec3{1, 0, 0}, Seed: 7}))
			assert.Equal(t, 29, r.weapon.AmmoInMagazine())
		})
	}
}

func TestServerEmptyMagazineKeepsFireWindow(t *testing.T) {
	r := newRig(t, quietConfig())
	r.controller.local = false
	r.weapon.magazine = 0
	req := core.ShotRequest{WeaponID: "w1", Direction: core.Vec3{1, 0, 0}, Seed: 7}

	r.weapon.HandleServerStartFire()
	assert.False(t, r.weapon.HandleServerFireOnce(req), "magazine empty")

	require.True(t, r.weapon.HandleServerReload())
	assert.True(t, r.weapon.HandleServerFireOnce(req), "same tick as the dry request")
	assert.Equal(t, 29, r.weapon.AmmoInMagazine())
}

func TestHolsteredWeaponIgnoresFire(t *testing.T) {
	r := newRig(t, quietConfig())
	req := core.ShotRequest{WeaponID: "w1", Direction: core.Vec3{1, 0, 0}, Seed: 7}

	r.weapon.SetAiming(true)
	r.weapon.SetActive(false)
	assert.False(t, r.weapon.Active())
	assert.False(t, r.weapon.IsAiming())

	r.weapon.StartFire()
	assert.False(t, r.weapon.TriggerHeld())
	assert.False(t, r.weapon.FireOnce())

	r.controller.local = false
	r.weapon.HandleServerStartFire()
	assert.False(t, r.weapon.TriggerHeld())
	r.weapon.triggerHeld = true
	assert.False(t, r.weapon.HandleServerFireOnce(req))
	r.weapon.HandleServerSetAiming(true)
	assert.False(t, r.weapon.IsAiming())
	r.weapon.magazine = 10
	assert.False(t, r.weapon.HandleServerReload())
	assert.Equal(t, 10, r.weapon.AmmoInMagazine())

	r.weapon.SetActive(true)
	r.weapon.HandleServerStartFire()
	assert.True(t, r.weapon.HandleServerFireOnce(req))
	assert.Equal(t, 9, r.weapon.AmmoInMagazine())
}

func TestServerSpreadUsesAuthorityAimState(t *testing.T) {
	cfg := quietConfig()
	cfg.SpreadAngle = 10
	cfg.AimSpreadMultiplier = 0
	r := newRig(t, cfg)
	r.controller.local = false
	r.weapon.HandleServerStartFire()

	r.weapon.HandleServerSetAiming(true)
	require.True(t, r.weapon.HandleServerFireOnce(core.ShotRequest{WeaponID: "w1", Direction: core.Vec3{1, 0, 0}, Seed: 7}))
	require.NotEmpty(t, r.collision.calls)
	aimEnd := r.collision.calls[0].end
	assert.InDelta(t, cfg.MaxRange, aimEnd.X(), 1e-6)
	assert.InDelta(t, 0, aimEnd.Y(), 1e-6)
	assert.InDelta(t, 0, aimEnd.Z(), 1e-6)
}

func TestProxyForwardsAimChanges(t *testing.T) {
	srv := &fakeServer{}
	r := newRig(t, quietConfig(), WithRole(core.RoleAutonomousProxy))
	r.weapon.deps.Server = srv

	r.weapon.SetAiming(true)
	r.weapon.SetAiming(true)
	r.weapon.SetAiming(false)
	assert.Equal(t, []bool{true, false}, srv.aims)
}
