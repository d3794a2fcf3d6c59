// Package hitzone maps struck bones or parts to body zones and resolves the
// damage multiplier a shot should use.
package hitzone

import (
	"log/slog"
	"math"
	"strings"

	"github.com/gunline/firecontrol/pkg/core"
)

// Component classifies parts through an ordered rule list. The first rule
// naming the part wins.
type Component struct {
	rules  []core.HitZoneRule
	index  map[string]int
	logger *slog.Logger
}

// New builds a component from rules. Part names match case-insensitively.
func New(rules []core.HitZoneRule, logger *slog.Logger) *Component {
	if logger == nil {
		logger = slog.Default()
	}
	c := &Component{
		rules:  rules,
		index:  make(map[string]int),
		logger: logger,
	}
	for i, rule := range rules {
		for _, part := range rule.Parts {
			key := strings.ToLower(part)
			if _, dup := c.index[key]; dup {
				continue
			}
			c.index[key] = i
		}
	}
	return c
}

// ResolveZone returns the zone for part, or ZoneUnknown.
func (c *Component) ResolveZone(part string) core.HitZone {
	if part == "" {
		c.logger.Debug("Hit without part name")
		return core.ZoneUnknown
	}
	i, ok := c.index[strings.ToLower(part)]
	if !ok {
		c.logger.Debug("No hit zone rule for part", "part", part)
		return core.ZoneUnknown
	}
	return c.rules[i].Zone
}

// ZoneMultiplier returns the multiplier of the first rule for zone that
// carries one, floored at zero.
func (c *Component) ZoneMultiplier(zone core.HitZone) (float64, bool) {
	for _, rule := range c.rules {
		if rule.Zone == zone && rule.Multiplier != nil {
			return math.Max(*rule.Multiplier, 0), true
		}
	}
	return 0, false
}

// Rules returns a copy of the configured rules.
func (c *Component) Rules() []core.HitZoneRule {
	out := make([]core.HitZoneRule, len(c.rules))
	copy(out, c.rules)
	return out
}

// Classify resolves the zone for a hit on target. Targets that do not
// provide zones report ZoneUnknown. The second result is the rule
// multiplier, when the target supplies one for that zone.
func Classify(target core.Actor, part string) (core.HitZone, *float64) {
	provider, ok := target.(core.HitZoneProvider)
	if !ok {
		return core.ZoneUnknown, nil
	}
	zone := provider.ResolveZone(part)
	if mp, ok := target.(core.ZoneMultiplierProvider); ok {
		if m, ok := mp.ZoneMultiplier(zone); ok {
			return zone, &m
		}
	}
	return zone, nil
}

// Multiplier picks the damage multiplier for a zone: an explicit weapon
// table entry first, then the target's rule multiplier, then the table
// default. The result is never negative.
func Multiplier(table core.DamageMultiplierTable, zone core.HitZone, rule *float64) float64 {
	if m, ok := table.Lookup(zone); ok {
		return m
	}
	if rule != nil {
		return math.Max(*rule, 0)
	}
	return table.Resolve(zone)
}

// HumanoidRules is the default bone layout used by world targets.
func HumanoidRules() []core.HitZoneRule {
	return []core.HitZoneRule{
		{Zone: core.ZoneHead, Parts: []string{"head", "neck"}},
		{Zone: core.ZoneTorso, Parts: []string{"spine", "chest", "pelvis"}},
		{Zone: core.ZoneLimb, Parts: []string{
			"upperarm_l", "upperarm_r", "lowerarm_l", "lowerarm_r", "hand_l", "hand_r",
			"thigh_l", "thigh_r", "calf_l", "calf_r", "foot_l", "foot_r",
		}},
	}
}
