// pkg/core/shot.go
package core

// TraceHit is the result of a single line trace.
type TraceHit struct {
	Blocking bool
	Point    Vec3
	Normal   Vec3
	Distance float64
	Actor    ActorRef
	Part     string
}

// ShotResult describes one resolved shot. TraceStart is the muzzle and
// TraceEnd is the impact point, or the end of the trace on a miss.
type ShotResult struct {
	TraceStart   Vec3     `json:"traceStart"`
	TraceEnd     Vec3     `json:"traceEnd"`
	Hit          bool     `json:"hit"`
	ImpactPoint  Vec3     `json:"impactPoint"`
	ImpactNormal Vec3     `json:"impactNormal"`
	HitActor     ActorRef `json:"-"`
	HitActorID   string   `json:"hitActorId,omitempty"`
	Part         string   `json:"part,omitempty"`
	Zone         HitZone  `json:"zone"`
	Damage       float64  `json:"damage"`
	Seed         int64    `json:"seed"`
}

// ShotRequest is what an owning client sends the authority for each shot.
// Direction already includes the client's recoil offset, spread is applied
// by the authority from Seed using its own aiming state.
type ShotRequest struct {
	WeaponID  string `json:"weaponId"`
	Origin    Vec3   `json:"origin"`
	Direction Vec3   `json:"direction"`
	Seed      int64  `json:"seed"`
}

// PointDamage carries everything a damage receiver needs.
type PointDamage struct {
	Target     ActorRef
	Amount     float64
	Direction  Vec3
	Hit        TraceHit
	Zone       HitZone
	Instigator Controller
	Causer     Actor
	DamageType string
}
