// Package model holds the GORM schema for recorded sessions and combat
// events. Positions are stored as simplefeatures geometries (WKB), loose
// metadata as JSON columns.
package model

import (
	"time"

	geom "github.com/peterstace/simplefeatures/geom"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// DatabaseModels lists every table AutoMigrate creates.
var DatabaseModels = []any{
	&ServerInfo{},
	&Session{},
	&Shot{},
	&Hit{},
	&Kill{},
	&WeaponEvent{},
}

// Weapon event kinds stored in WeaponEvent.Kind.
const (
	KindDryFire = "dry_fire"
	KindReload  = "reload"
)

// ServerInfo is a single descriptive row seeded on first setup.
type ServerInfo struct {
	gorm.Model
	Name        string `json:"name" gorm:"size:127"`
	Description string `json:"description" gorm:"size:255"`
	Version     string `json:"version" gorm:"size:64"`
}

func (*ServerInfo) TableName() string { return "server_infos" }

// Session is one recorded run.
type Session struct {
	ID        string     `json:"id" gorm:"primaryKey;size:36"`
	CreatedAt time.Time  `json:"createdAt"`
	Name      string     `json:"name" gorm:"size:127"`
	Map       string     `json:"map" gorm:"size:127"`
	StartTime time.Time  `json:"startTime" gorm:"index:idx_session_start"`
	EndTime   *time.Time `json:"endTime"`
	TickRate  int        `json:"tickRate"`
}

func (*Session) TableName() string { return "sessions" }

// Shot is one authoritative shot. Trace runs from muzzle to impact, or to
// the end of the trace on a miss.
type Shot struct {
	ID         uint            `json:"id" gorm:"primarykey;autoIncrement"`
	SessionID  string          `json:"sessionId" gorm:"size:36;index:idx_shot_session_id"`
	Time       time.Time       `json:"time"`
	SimTimeMs  int64           `json:"simTimeMs"`
	WeaponID   string          `json:"weaponId" gorm:"size:64;index:idx_shot_weapon_id"`
	WeaponName string          `json:"weaponName" gorm:"size:64"`
	ShooterID  string          `json:"shooterId" gorm:"size:64"`
	FireMode   string          `json:"fireMode" gorm:"size:16"`
	BurstIndex int             `json:"burstIndex"`
	Trace      geom.LineString `json:"trace"`
	Hit        bool            `json:"hit"`
	Seed       int64           `json:"seed"`
}

func (*Shot) TableName() string { return "shots" }

// Hit is damage one shot delivered to one victim.
type Hit struct {
	ID         uint           `json:"id" gorm:"primarykey;autoIncrement"`
	SessionID  string         `json:"sessionId" gorm:"size:36;index:idx_hit_session_id"`
	Time       time.Time      `json:"time"`
	SimTimeMs  int64          `json:"simTimeMs"`
	WeaponID   string         `json:"weaponId" gorm:"size:64"`
	WeaponName string         `json:"weaponName" gorm:"size:64"`
	ShooterID  string         `json:"shooterId" gorm:"size:64;index:idx_hit_shooter_id"`
	VictimID   string         `json:"victimId" gorm:"size:64;index:idx_hit_victim_id"`
	Part       string         `json:"part" gorm:"size:64"`
	Zone       string         `json:"zone" gorm:"size:16"`
	Damage     float64        `json:"damage"`
	Applied    float64        `json:"applied"`
	Position   geom.Point     `json:"position"`
	Meta       datatypes.JSON `json:"meta"`
}

func (*Hit) TableName() string { return "hits" }

// HitMeta is the JSON stored in Hit.Meta.
type HitMeta struct {
	Normal   [3]float64 `json:"normal"`
	Distance float64    `json:"distance"`
}

// Kill is a killing blow.
type Kill struct {
	ID         uint      `json:"id" gorm:"primarykey;autoIncrement"`
	SessionID  string    `json:"sessionId" gorm:"size:36;index:idx_kill_session_id"`
	Time       time.Time `json:"time"`
	SimTimeMs  int64     `json:"simTimeMs"`
	WeaponName string    `json:"weaponName" gorm:"size:64"`
	KillerID   string    `json:"killerId" gorm:"size:64;index:idx_kill_killer_id"`
	VictimID   string    `json:"victimId" gorm:"size:64"`
	Zone       string    `json:"zone" gorm:"size:16"`
	Distance   float64   `json:"distance"`
	Reward     int       `json:"reward"`
}

func (*Kill) TableName() string { return "kills" }

// WeaponEvent is a dry fire or reload. Extra carries kind specific fields.
type WeaponEvent struct {
	ID         uint           `json:"id" gorm:"primarykey;autoIncrement"`
	SessionID  string         `json:"sessionId" gorm:"size:36;index:idx_weaponevent_session_id"`
	Time       time.Time      `json:"time"`
	SimTimeMs  int64          `json:"simTimeMs"`
	Kind       string         `json:"kind" gorm:"size:16"`
	WeaponID   string         `json:"weaponId" gorm:"size:64"`
	WeaponName string         `json:"weaponName" gorm:"size:64"`
	ShooterID  string         `json:"shooterId" gorm:"size:64"`
	Extra      datatypes.JSON `json:"extra"`
}

func (*WeaponEvent) TableName() string { return "weapon_events" }

// ReloadExtra is the JSON stored in WeaponEvent.Extra for reloads.
type ReloadExtra struct {
	Moved    int `json:"moved"`
	Magazine int `json:"magazine"`
	Reserve  int `json:"reserve"`
}
