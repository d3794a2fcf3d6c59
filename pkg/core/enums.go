// pkg/core/enums.go
package core

import (
	"fmt"
	"strings"
)

// FireMode selects how holding the trigger produces shots.
type FireMode uint8

const (
	SemiAuto FireMode = iota
	FullAuto
)

func (m FireMode) String() string {
	switch m {
	case SemiAuto:
		return "semi"
	case FullAuto:
		return "auto"
	default:
		return fmt.Sprintf("FireMode(%d)", uint8(m))
	}
}

// ParseFireMode accepts "semi", "single", "auto" or "full".
func ParseFireMode(s string) (FireMode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "semi", "single", "semiauto":
		return SemiAuto, nil
	case "auto", "full", "fullauto":
		return FullAuto, nil
	}
	return SemiAuto, fmt.Errorf("unknown fire mode: %q", s)
}

// HitZone is the coarse body region a trace struck.
type HitZone uint8

const (
	ZoneUnknown HitZone = iota
	ZoneHead
	ZoneTorso
	ZoneLimb
)

var zoneNames = map[HitZone]string{
	ZoneUnknown: "unknown",
	ZoneHead:    "head",
	ZoneTorso:   "torso",
	ZoneLimb:    "limb",
}

func (z HitZone) String() string {
	if name, ok := zoneNames[z]; ok {
		return name
	}
	return fmt.Sprintf("HitZone(%d)", uint8(z))
}

// ParseHitZone maps a zone name back to its value.
func ParseHitZone(s string) (HitZone, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	for zone, name := range zoneNames {
		if name == s {
			return zone, nil
		}
	}
	return ZoneUnknown, fmt.Errorf("unknown hit zone: %q", s)
}

// TraceChannel selects which collision responses a trace considers.
type TraceChannel uint8

const (
	ChannelVisibility TraceChannel = iota
	ChannelCamera
)

// NetRole describes which side of the replication boundary a weapon lives on.
type NetRole uint8

const (
	// RoleAuthority owns the simulation and applies damage.
	RoleAuthority NetRole = iota
	// RoleAutonomousProxy is the owning client predicting its own shots.
	RoleAutonomousProxy
	// RoleSimulatedProxy is a remote observer that only plays effects.
	RoleSimulatedProxy
)

func (r NetRole) String() string {
	switch r {
	case RoleAuthority:
		return "authority"
	case RoleAutonomousProxy:
		return "autonomous"
	case RoleSimulatedProxy:
		return "simulated"
	}
	return fmt.Sprintf("NetRole(%d)", uint8(r))
}
