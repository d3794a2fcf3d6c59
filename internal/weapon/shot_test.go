package weapon

import (
	"math"
	"testing"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/gunline/firecontrol/internal/hitzone"
	"github.com/gunline/firecontrol/pkg/core"
)

func TestSpreadStaysInsideCone(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		dir := core.Vec3{
			rapid.Float64Range(-1, 1).Draw(rt, "x"),
			rapid.Float64Range(-1, 1).Draw(rt, "y"),
			rapid.Float64Range(-1, 1).Draw(rt, "z"),
		}
		if dir.Len() < 1e-3 {
			return
		}
		half := rapid.Float64Range(0, 15).Draw(rt, "half")
		seed := rapid.Int64().Draw(rt, "seed")

		out := SpreadDirection(dir, half, seed)
		angle := mgl64.RadToDeg(math.Acos(mgl64.Clamp(out.Dot(dir.Normalize()), -1, 1)))
		if angle > half+1e-4 {
			rt.Fatalf("angle %v outside cone %v", angle, half)
		}
		if !out.ApproxEqualThreshold(SpreadDirection(dir, half, seed), 1e-12) {
			rt.Fatalf("same seed gave different directions")
		}
	})
}

func TestSpreadZeroIsExact(t *testing.T) {
	out := SpreadDirection(core.Vec3{0, 2, 0}, 0, 99)
	assert.True(t, out.ApproxEqual(core.Vec3{0, 1, 0}))
}

func TestEffectiveSpread(t *testing.T) {
	r := newRig(t, DefaultConfig())
	assert.InDelta(t, 0.6, r.weapon.EffectiveSpread(false), 1e-12)
	assert.InDelta(t, 0.3, r.weapon.EffectiveSpread(true), 1e-12)
}

func TestMissStillReturnsTraceGeometry(t *testing.T) {
	r := newRig(t, quietConfig())
	var shots []core.ShotResult
	r.weapon.OnFireFX(func(s core.ShotResult, _ bool) { shots = append(shots, s) })

	require.True(t, r.weapon.FireOnce())
	require.Len(t, shots, 1)
	require.Len(t, r.collision.calls, 2)

	aim, muzzle := r.collision.calls[0], r.collision.calls[1]
	assert.Equal(t, core.Vec3{0, 0, 0}, aim.start, "aim trace starts at the eye")
	assert.InDelta(t, 20000, aim.end.X(), 1e-6)
	assert.Equal(t, core.Vec3{20, 10, -5}, muzzle.start, "second trace starts at the muzzle")
	assert.ElementsMatch(t, []string{"w1", "shooter"}, aim.ignore)

	shot := shots[0]
	assert.False(t, shot.Hit)
	assert.Equal(t, core.Vec3{20, 10, -5}, shot.TraceStart)
	assert.InDelta(t, 20000, shot.TraceEnd.Sub(shot.TraceStart).Len(), 1e-6)
}

func TestMuzzleFallsBackToOwnerLocation(t *testing.T) {
	r := newRig(t, quietConfig())
	r.pawn.sockets = nil
	r.pawn.location = core.Vec3{5, 5, 5}

	require.True(t, r.weapon.FireOnce())
	assert.Equal(t, core.Vec3{5, 5, 5}, r.collision.calls[1].start)
}

func TestHeadRuleDoublesDamage(t *testing.T) {
	two := 2.0
	target := &fakeTarget{
		id: "dummy",
		Component: hitzone.New([]core.HitZoneRule{
			{Zone: core.ZoneHead, Parts: []string{"head", "neck"}, Multiplier: &two},
		}, nil),
	}
	r := newRig(t, quietConfig())
	r.collision.hitActor = target
	r.collision.hitPart = "head"

	var reports []DamageReport
	r.weapon.OnDamage(func(rep DamageReport) { reports = append(reports, rep) })

	require.True(t, r.weapon.FireOnce())
	require.Len(t, r.damage.events, 1)

	ev := r.damage.events[0]
	assert.Equal(t, 40.0, ev.Amount)
	assert.Equal(t, core.ZoneHead, ev.Zone)
	assert.Equal(t, "dummy", ev.Target.ID())
	assert.Equal(t, "bullet", ev.DamageType)
	assert.Equal(t, r.controller, ev.Instigator)
	assert.Equal(t, r.weapon, ev.Causer)
	assert.InDelta(t, 1.0, ev.Direction.Len(), 1e-9)
	assert.True(t, ev.Hit.Blocking)

	require.Len(t, reports, 1)
	assert.Equal(t, 40.0, reports[0].Applied)
}

func TestWeaponTableOverridesRule(t *testing.T) {
	two := 2.0
	cfg := quietConfig()
	cfg.Multipliers = core.DamageMultiplierTable{
		Multipliers: map[core.HitZone]float64{core.ZoneHead: 4},
		Default:     1,
	}
	r := newRig(t, cfg)
	r.collision.hitActor = &fakeTarget{
		id: "dummy",
		Component: hitzone.New([]core.HitZoneRule{
			{Zone: core.ZoneHead, Parts: []string{"head"}, Multiplier: &two},
		}, nil),
	}
	r.collision.hitPart = "head"

	require.True(t, r.weapon.FireOnce())
	require.Len(t, r.damage.events, 1)
	assert.Equal(t, 80.0, r.damage.events[0].Amount)
	assert.Equal(t, 4.0, r.weapon.DamageMultiplier(core.ZoneHead))
	assert.Equal(t, 1.0, r.weapon.DamageMultiplier(core.ZoneLimb))
}

func TestUnknownPartUsesDefault(t *testing.T) {
	r := newRig(t, quietConfig())
	r.collision.hitActor = &fakeTarget{id: "dummy", Component: hitzone.New(hitzone.HumanoidRules(), nil)}
	r.collision.hitPart = "antenna"

	require.True(t, r.weapon.FireOnce())
	require.Len(t, r.damage.events, 1)
	assert.Equal(t, core.ZoneUnknown, r.damage.events[0].Zone)
	assert.Equal(t, 20.0, r.damage.events[0].Amount)
}

func TestZeroMultiplierSendsNoDamage(t *testing.T) {
	cfg := quietConfig()
	cfg.Multipliers = core.DamageMultiplierTable{Default: 0}
	r := newRig(t, cfg)
	r.collision.hitActor = &fakeTarget{id: "dummy", Component: hitzone.New(nil, nil)}

	require.True(t, r.weapon.FireOnce())
	assert.Empty(t, r.damage.events)
}

type plainWall struct{}

func (plainWall) ID() string          { return "wall" }
func (plainWall) Location() core.Vec3 { return core.Vec3{} }
func (plainWall) Valid() bool         { return true }

func TestActorWithoutZonesIsUnknown(t *testing.T) {
	r := newRig(t, quietConfig())
	r.collision.hitActor = plainWall{}

	require.True(t, r.weapon.FireOnce())
	require.Len(t, r.damage.events, 1)
	assert.Equal(t, core.ZoneUnknown, r.damage.events[0].Zone)
}
