// pkg/core/hitzone.go
package core

import "math"

// HitZoneRule maps a set of bone or part names to a zone, with an optional
// multiplier that overrides the weapon table default.
type HitZoneRule struct {
	Zone       HitZone  `json:"zone"`
	Parts      []string `json:"parts"`
	Multiplier *float64 `json:"multiplier,omitempty"`
}

// DamageMultiplierTable is a per-weapon zone to multiplier mapping.
type DamageMultiplierTable struct {
	Multipliers map[HitZone]float64 `json:"multipliers"`
	Default     float64             `json:"default"`
}

// DefaultMultiplierTable returns an empty table whose default is 1.
func DefaultMultiplierTable() DamageMultiplierTable {
	return DamageMultiplierTable{Multipliers: map[HitZone]float64{}, Default: 1}
}

// Lookup returns the explicit entry for zone, floored at zero.
func (t DamageMultiplierTable) Lookup(zone HitZone) (float64, bool) {
	m, ok := t.Multipliers[zone]
	if !ok {
		return 0, false
	}
	return math.Max(m, 0), true
}

// Resolve returns the explicit entry for zone or the table default.
func (t DamageMultiplierTable) Resolve(zone HitZone) float64 {
	if m, ok := t.Lookup(zone); ok {
		return m
	}
	return math.Max(t.Default, 0)
}
