package world

import (
	"log/slog"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/gunline/firecontrol/internal/health"
	"github.com/gunline/firecontrol/internal/hitzone"
	"github.com/gunline/firecontrol/pkg/core"
)

// DefaultEyeHeight is the eye offset above a pawn's location.
const DefaultEyeHeight = 64.0

// PlayerController holds a view rotation and possesses at most one pawn.
type PlayerController struct {
	id           string
	rotation     core.Rotator
	local        bool
	pawn         *Pawn
	minPitch     float64
	maxPitch     float64
	onRotChanged []func(core.Rotator)
}

// NewPlayerController creates a controller. local marks the controller as
// driven on this process (the owning client or a listen server host).
func NewPlayerController(id string, local bool) *PlayerController {
	return &PlayerController{id: id, local: local, minPitch: -89, maxPitch: 89}
}

func (c *PlayerController) ID() string                    { return c.id }
func (c *PlayerController) ControlRotation() core.Rotator { return c.rotation }
func (c *PlayerController) IsLocalController() bool       { return c.local }

// SetControlRotation sets the view, clamping pitch to the view range.
func (c *PlayerController) SetControlRotation(r core.Rotator) {
	r.Pitch = mgl64.Clamp(r.Pitch, c.minPitch, c.maxPitch)
	r.Yaw = core.NormalizeAxis(r.Yaw)
	c.rotation = r
	for _, fn := range c.onRotChanged {
		fn(r)
	}
}

// AddInput applies player look input in degrees.
func (c *PlayerController) AddInput(delta core.Rotator) {
	c.SetControlRotation(c.rotation.Add(delta))
}

// OnRotationChanged registers a callback for every view change.
func (c *PlayerController) OnRotationChanged(fn func(core.Rotator)) {
	c.onRotChanged = append(c.onRotChanged, fn)
}

// SetViewPitchRange sets the camera pitch limits.
func (c *PlayerController) SetViewPitchRange(lo, hi float64) {
	c.minPitch, c.maxPitch = lo, hi
}

func (c *PlayerController) ViewPitchRange() (float64, float64) {
	return c.minPitch, c.maxPitch
}

// Pawn returns the possessed pawn, or nil.
func (c *PlayerController) Pawn() core.Actor {
	if c.pawn == nil {
		return nil
	}
	return c.pawn
}

// Possess attaches the controller to p, releasing any previous pawn.
func (c *PlayerController) Possess(p *Pawn) {
	if c.pawn != nil {
		c.pawn.controller = nil
	}
	c.pawn = p
	if p != nil {
		if p.controller != nil && p.controller != c {
			p.controller.pawn = nil
		}
		p.controller = c
	}
}

// PawnConfig describes a character.
type PawnConfig struct {
	EyeHeight float64
	// Sockets are offsets in the pawn's yaw frame.
	Sockets  map[string]core.Vec3
	Currency int
	Health   *health.Config
	Zones    []core.HitZoneRule
}

// Pawn is a character. It carries a wallet, optionally health with hit
// zones, and named sockets for weapon muzzles.
type Pawn struct {
	id         string
	location   core.Vec3
	cfg        PawnConfig
	controller *PlayerController
	wallet     *health.Wallet
	health     *health.Health
	zones      *hitzone.Component
	destroyed  bool
}

// NewPawn creates a pawn at location.
func NewPawn(id string, location core.Vec3, cfg PawnConfig, logger *slog.Logger) *Pawn {
	if cfg.EyeHeight == 0 {
		cfg.EyeHeight = DefaultEyeHeight
	}
	p := &Pawn{
		id:       id,
		location: location,
		cfg:      cfg,
		wallet:   health.NewWallet(cfg.Currency),
		zones:    hitzone.New(cfg.Zones, logger),
	}
	if cfg.Health != nil {
		p.health = health.New(p, *cfg.Health, logger)
	}
	return p
}

func (p *Pawn) ID() string              { return p.id }
func (p *Pawn) Location() core.Vec3     { return p.location }
func (p *Pawn) Valid() bool             { return !p.destroyed }
func (p *Pawn) Wallet() *health.Wallet  { return p.wallet }
func (p *Pawn) Health() *health.Health  { return p.health }
func (p *Pawn) SetLocation(v core.Vec3) { p.location = v }
func (p *Pawn) Destroy()                { p.destroyed = true }

// Controller returns the possessing controller, or nil.
func (p *Pawn) Controller() core.Controller {
	if p.controller == nil {
		return nil
	}
	return p.controller
}

// EyeLocation is the camera origin.
func (p *Pawn) EyeLocation() core.Vec3 {
	return p.location.Add(core.Vec3{0, 0, p.cfg.EyeHeight})
}

// SocketLocation returns a named socket rotated by the controller's yaw.
func (p *Pawn) SocketLocation(name string) (core.Vec3, bool) {
	off, ok := p.cfg.Sockets[name]
	if !ok {
		return core.Vec3{}, false
	}
	yaw := 0.0
	if p.controller != nil {
		yaw = p.controller.rotation.Yaw
	}
	rot := mgl64.Rotate3DZ(mgl64.DegToRad(yaw))
	return p.location.Add(rot.Mul3x1(off)), true
}

func (p *Pawn) ResolveZone(part string) core.HitZone { return p.zones.ResolveZone(part) }

func (p *Pawn) ZoneMultiplier(zone core.HitZone) (float64, bool) {
	return p.zones.ZoneMultiplier(zone)
}

// TakePointDamage forwards to health. Pawns without health take nothing.
func (p *Pawn) TakePointDamage(ev core.PointDamage) float64 {
	if p.health == nil {
		return 0
	}
	return p.health.TakePointDamage(ev)
}

// HumanoidShapes is a coarse character collision rig around the pawn
// location, which sits at the feet.
func HumanoidShapes() []Shape {
	return []Shape{
		Sphere{Name: "head", Offset: core.Vec3{0, 0, 68}, Radius: 10},
		Sphere{Name: "neck", Offset: core.Vec3{0, 0, 56}, Radius: 5},
		Box{Name: "spine", Min: core.Vec3{-12, -18, 30}, Max: core.Vec3{12, 18, 52}},
		Box{Name: "pelvis", Min: core.Vec3{-12, -16, 20}, Max: core.Vec3{12, 16, 30}},
		Box{Name: "upperarm_l", Min: core.Vec3{-6, -28, 34}, Max: core.Vec3{6, -18, 52}},
		Box{Name: "upperarm_r", Min: core.Vec3{-6, 18, 34}, Max: core.Vec3{6, 28, 52}},
		Box{Name: "thigh_l", Min: core.Vec3{-8, -14, 0}, Max: core.Vec3{8, -2, 20}},
		Box{Name: "thigh_r", Min: core.Vec3{-8, 2, 0}, Max: core.Vec3{8, 14, 20}},
	}
}
