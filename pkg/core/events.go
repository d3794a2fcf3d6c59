// pkg/core/events.go
package core

import (
	"time"
)

// Session is one recorded simulation or server run.
type Session struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Map       string    `json:"map"`
	StartTime time.Time `json:"startTime"`
	EndTime   time.Time `json:"endTime,omitempty"`
	TickRate  int       `json:"tickRate"`
}

// ShotEvent records a shot the authority resolved.
type ShotEvent struct {
	SessionID  string        `json:"sessionId"`
	Time       time.Time     `json:"time"`
	SimTime    time.Duration `json:"simTime"`
	WeaponID   string        `json:"weaponId"`
	WeaponName string        `json:"weaponName"`
	ShooterID  string        `json:"shooterId"`
	FireMode   string        `json:"fireMode"`
	BurstIndex int           `json:"burstIndex"`
	Origin     Vec3          `json:"origin"`
	End        Vec3          `json:"end"`
	Hit        bool          `json:"hit"`
	Seed       int64         `json:"seed"`
}

// HitEvent records damage delivered by a shot.
type HitEvent struct {
	SessionID  string        `json:"sessionId"`
	Time       time.Time     `json:"time"`
	SimTime    time.Duration `json:"simTime"`
	WeaponID   string        `json:"weaponId"`
	WeaponName string        `json:"weaponName"`
	ShooterID  string        `json:"shooterId"`
	VictimID   string        `json:"victimId"`
	Part       string        `json:"part"`
	Zone       string        `json:"zone"`
	Damage     float64       `json:"damage"`
	Applied    float64       `json:"applied"`
	Position   Vec3          `json:"position"`
	Normal     Vec3          `json:"normal"`
	Distance   float64       `json:"distance"`
}

// KillEvent records a killing blow.
type KillEvent struct {
	SessionID  string        `json:"sessionId"`
	Time       time.Time     `json:"time"`
	SimTime    time.Duration `json:"simTime"`
	WeaponName string        `json:"weaponName"`
	KillerID   string        `json:"killerId"`
	VictimID   string        `json:"victimId"`
	Zone       string        `json:"zone"`
	Distance   float64       `json:"distance"`
	Reward     int           `json:"reward"`
}

// DryFireEvent records a trigger pull on an empty magazine.
type DryFireEvent struct {
	SessionID  string        `json:"sessionId"`
	Time       time.Time     `json:"time"`
	SimTime    time.Duration `json:"simTime"`
	WeaponID   string        `json:"weaponId"`
	WeaponName string        `json:"weaponName"`
	ShooterID  string        `json:"shooterId"`
}

// ReloadEvent records rounds moved from reserve into the magazine.
type ReloadEvent struct {
	SessionID  string        `json:"sessionId"`
	Time       time.Time     `json:"time"`
	SimTime    time.Duration `json:"simTime"`
	WeaponID   string        `json:"weaponId"`
	WeaponName string        `json:"weaponName"`
	ShooterID  string        `json:"shooterId"`
	Moved      int           `json:"moved"`
	Magazine   int           `json:"magazine"`
	Reserve    int           `json:"reserve"`
}
