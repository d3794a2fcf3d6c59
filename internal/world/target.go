package world

import (
	"log/slog"

	"github.com/gunline/firecontrol/internal/health"
	"github.com/gunline/firecontrol/internal/hitzone"
	"github.com/gunline/firecontrol/pkg/core"
)

// TargetConfig describes a static damageable target.
type TargetConfig struct {
	Health         health.Config
	Zones          []core.HitZoneRule
	DestroyOnDeath bool
}

// Target is a damageable actor with hit zones, such as a practice dummy.
type Target struct {
	id        string
	location  core.Vec3
	cfg       TargetConfig
	health    *health.Health
	zones     *hitzone.Component
	world     *World
	destroyed bool
	logger    *slog.Logger
}

// NewTarget creates a target at location and registers its shapes in w.
// A target that dies with DestroyOnDeath set removes itself from w.
func NewTarget(w *World, id string, location core.Vec3, cfg TargetConfig, shapes []Shape, logger *slog.Logger) *Target {
	if logger == nil {
		logger = slog.Default()
	}
	t := &Target{
		id:       id,
		location: location,
		cfg:      cfg,
		zones:    hitzone.New(cfg.Zones, logger),
		world:    w,
		logger:   logger.With("target", id),
	}
	t.health = health.New(t, cfg.Health, logger)
	t.health.OnOutOfHealth(func(*health.Health) {
		if t.cfg.DestroyOnDeath {
			t.Destroy()
		}
	})
	if w != nil {
		w.Add(&Body{Actor: t, Shapes: shapes})
	}
	return t
}

// NewDamageTestCube creates a 100 unit cube with 100 health that grants no
// reward and stays in the world after dying.
func NewDamageTestCube(w *World, id string, location core.Vec3, logger *slog.Logger) *Target {
	cfg := TargetConfig{Health: health.Config{MaxHealth: 100}}
	shapes := []Shape{Box{Name: "cube", Min: core.Vec3{-50, -50, -50}, Max: core.Vec3{50, 50, 50}}}
	return NewTarget(w, id, location, cfg, shapes, logger)
}

// NewDummy creates a humanoid practice dummy with humanoid hit zones.
func NewDummy(w *World, id string, location core.Vec3, cfg health.Config, logger *slog.Logger) *Target {
	tc := TargetConfig{Health: cfg, Zones: hitzone.HumanoidRules(), DestroyOnDeath: true}
	return NewTarget(w, id, location, tc, HumanoidShapes(), logger)
}

func (t *Target) ID() string             { return t.id }
func (t *Target) Location() core.Vec3    { return t.location }
func (t *Target) Valid() bool            { return !t.destroyed }
func (t *Target) Health() *health.Health { return t.health }

func (t *Target) ResolveZone(part string) core.HitZone { return t.zones.ResolveZone(part) }

func (t *Target) ZoneMultiplier(zone core.HitZone) (float64, bool) {
	return t.zones.ZoneMultiplier(zone)
}

// TakePointDamage applies weapon damage to the target's health.
func (t *Target) TakePointDamage(ev core.PointDamage) float64 {
	if t.destroyed {
		return 0
	}
	applied := t.health.TakePointDamage(ev)
	if applied > 0 {
		t.logger.Debug("Target hit", "zone", ev.Zone.String(), "applied", applied, "health", t.health.Current())
	}
	return applied
}

// Reset restores full health.
func (t *Target) Reset() {
	t.health.RestoreFullHealth()
}

// Destroy removes the target from its world.
func (t *Target) Destroy() {
	if t.destroyed {
		return
	}
	t.destroyed = true
	if t.world != nil {
		t.world.Remove(t.id)
	}
	t.logger.Info("Target destroyed")
}
