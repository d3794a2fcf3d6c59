package weapon

import (
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/gunline/firecontrol/internal/hitzone"
	"github.com/gunline/firecontrol/internal/scheduler"
	"github.com/gunline/firecontrol/pkg/core"
)

type fakeController struct {
	id       string
	rotation core.Rotator
	local    bool
	pawn     core.Actor
}

func (c *fakeController) ID() string                        { return c.id }
func (c *fakeController) ControlRotation() core.Rotator     { return c.rotation }
func (c *fakeController) SetControlRotation(r core.Rotator) { c.rotation = r }
func (c *fakeController) IsLocalController() bool           { return c.local }
func (c *fakeController) Pawn() core.Actor                  { return c.pawn }

type fakePawn struct {
	id         string
	location   core.Vec3
	controller core.Controller
	sockets    map[string]core.Vec3
}

func (p *fakePawn) ID() string                  { return p.id }
func (p *fakePawn) Location() core.Vec3         { return p.location }
func (p *fakePawn) Valid() bool                 { return true }
func (p *fakePawn) Controller() core.Controller { return p.controller }

func (p *fakePawn) SocketLocation(name string) (core.Vec3, bool) {
	loc, ok := p.sockets[name]
	return loc, ok
}

type traceCall struct {
	start, end core.Vec3
	ignore     []string
}

// fakeCollision answers every trace with hit, placing the impact along the
// ray at hitDistance. A nil hit actor means every trace misses.
type fakeCollision struct {
	hitActor    core.Actor
	hitPart     string
	hitDistance float64
	calls       []traceCall
}

func (f *fakeCollision) LineTrace(start, end core.Vec3, _ core.TraceChannel, ignore []string) core.TraceHit {
	f.calls = append(f.calls, traceCall{start: start, end: end, ignore: ignore})
	if f.hitActor == nil {
		return core.TraceHit{}
	}
	dir := end.Sub(start).Normalize()
	point := start.Add(dir.Mul(f.hitDistance))
	return core.TraceHit{
		Blocking: true,
		Point:    point,
		Normal:   dir.Mul(-1),
		Distance: f.hitDistance,
		Actor:    core.Ref(f.hitActor),
		Part:     f.hitPart,
	}
}

type fakeDamage struct {
	events []core.PointDamage
}

func (f *fakeDamage) ApplyPointDamage(ev core.PointDamage) float64 {
	f.events = append(f.events, ev)
	return ev.Amount
}

type fakeTarget struct {
	*hitzone.Component
	id string
}

func (t *fakeTarget) ID() string          { return t.id }
func (t *fakeTarget) Location() core.Vec3 { return core.Vec3{1000, 0, 0} }
func (t *fakeTarget) Valid() bool         { return true }

type fakeServer struct {
	started, stopped, reloads int
	aims                      []bool
	shots                     []core.ShotRequest
}

func (f *fakeServer) ServerStartFire(string)            { f.started++ }
func (f *fakeServer) ServerStopFire(string)             { f.stopped++ }
func (f *fakeServer) ServerReload(string)               { f.reloads++ }
func (f *fakeServer) ServerFireOnce(r core.ShotRequest) { f.shots = append(f.shots, r) }
func (f *fakeServer) ServerSetAiming(_ string, on bool) { f.aims = append(f.aims, on) }

type fakeFX struct {
	shots []core.ShotResult
}

func (f *fakeFX) MulticastPlayFireFX(_, _ string, shot core.ShotResult) {
	f.shots = append(f.shots, shot)
}

type rig struct {
	loop       *scheduler.Loop
	collision  *fakeCollision
	damage     *fakeDamage
	controller *fakeController
	pawn       *fakePawn
	weapon     *Weapon
}

type testingT interface {
	require.TestingT
	Helper()
}

func newRig(t *testing.T, cfg Config, opts ...Option) *rig {
	t.Helper()
	return newSeededRig(t, cfg, 1, opts...)
}

func newSeededRig(t testingT, cfg Config, seed uint64, opts ...Option) *rig {
	t.Helper()
	r := &rig{
		loop:      scheduler.New(nil),
		collision: &fakeCollision{hitDistance: 1000},
		damage:    &fakeDamage{},
	}
	r.controller = &fakeController{id: "pc", local: true}
	r.pawn = &fakePawn{
		id:         "shooter",
		location:   core.Vec3{0, 0, 0},
		controller: r.controller,
		sockets:    map[string]core.Vec3{"Muzzle": {20, 10, -5}},
	}
	r.controller.pawn = r.pawn

	opts = append([]Option{WithOwner(r.pawn), WithID("w1")}, opts...)
	w, err := New(cfg, Dependencies{
		Scheduler: r.loop,
		Collision: r.collision,
		Damage:    r.damage,
		Rand:      rand.New(rand.NewPCG(seed, seed+1)),
	}, opts...)
	require.NoError(t, err)
	r.weapon = w
	return r
}

// quietConfig is a weapon with no spread and no random recoil.
func quietConfig() Config {
	cfg := DefaultConfig()
	cfg.SpreadAngle = 0
	cfg.Recoil.RandomPitch = 0
	cfg.Recoil.RandomYaw = 0
	cfg.Recoil.BaseYaw = 0
	return cfg
}
