package weapon

import (
	"fmt"
	"time"

	"github.com/gunline/firecontrol/pkg/core"
)

// PatternOverflow selects what a spray pattern yields past its last entry.
type PatternOverflow uint8

const (
	// OverflowHold repeats the last entry.
	OverflowHold PatternOverflow = iota
	// OverflowLoop restarts from the first entry.
	OverflowLoop
	// OverflowStop yields no pattern offset.
	OverflowStop
)

func (o PatternOverflow) String() string {
	switch o {
	case OverflowHold:
		return "hold"
	case OverflowLoop:
		return "loop"
	case OverflowStop:
		return "stop"
	}
	return fmt.Sprintf("PatternOverflow(%d)", uint8(o))
}

// ParsePatternOverflow accepts "hold" (or "clamp"), "loop" and "stop".
func ParsePatternOverflow(s string) (PatternOverflow, error) {
	switch s {
	case "", "hold", "clamp":
		return OverflowHold, nil
	case "loop":
		return OverflowLoop, nil
	case "stop":
		return OverflowStop, nil
	}
	return OverflowHold, fmt.Errorf("%w: unknown pattern overflow %q", ErrInvalidConfig, s)
}

// RecoilConfig tunes the camera recoil model. Angles are degrees, speeds are
// interpolation rates per second.
type RecoilConfig struct {
	EnableCameraRecoil bool

	// BasePitch and BaseYaw are used when Pattern is empty. Yaw is drawn
	// uniformly from [-BaseYaw, BaseYaw].
	BasePitch float64
	BaseYaw   float64

	Pattern  []core.Rotator
	Overflow PatternOverflow

	RandomPitch         float64
	RandomYaw           float64
	AimJitterMultiplier float64

	PitchMultiplier float64
	YawMultiplier   float64
	AimMultiplier   float64

	MaxPitch float64
	MaxYaw   float64

	KickSpeed       float64
	ReturnSpeed     float64
	HoldWhileFiring bool
	SettleThreshold float64

	MinViewPitch float64
	MaxViewPitch float64
}

// Config is a weapon definition shared by every instance of that weapon.
type Config struct {
	Name    string
	TypeTag string

	Damage     float64
	DamageType string
	MaxRange   float64

	RoundsPerMinute float64
	FireMode        core.FireMode

	SpreadAngle         float64
	AimSpreadMultiplier float64

	MagazineCapacity int
	ReserveAmmo      int
	InfiniteAmmo     bool

	SprayResetDelay time.Duration
	MuzzleSocket    string

	Multipliers core.DamageMultiplierTable
	Recoil      RecoilConfig
}

// DefaultRecoilConfig returns rifle-like recoil tuning.
func DefaultRecoilConfig() RecoilConfig {
	return RecoilConfig{
		EnableCameraRecoil:  true,
		BasePitch:           0.7,
		BaseYaw:             0.25,
		Overflow:            OverflowHold,
		RandomPitch:         0.08,
		RandomYaw:           0.08,
		AimJitterMultiplier: 0.5,
		PitchMultiplier:     1,
		YawMultiplier:       1,
		AimMultiplier:       0.6,
		MaxPitch:            10,
		MaxYaw:              5,
		KickSpeed:           25,
		ReturnSpeed:         8,
		HoldWhileFiring:     true,
		SettleThreshold:     0.01,
		MinViewPitch:        -89,
		MaxViewPitch:        89,
	}
}

// DefaultConfig returns a full-auto rifle definition.
func DefaultConfig() Config {
	return Config{
		Name:                "rifle",
		TypeTag:             "Weapon.Rifle",
		Damage:              20,
		DamageType:          "bullet",
		MaxRange:            20000,
		RoundsPerMinute:     600,
		FireMode:            core.FullAuto,
		SpreadAngle:         0.6,
		AimSpreadMultiplier: 0.5,
		MagazineCapacity:    30,
		ReserveAmmo:         90,
		SprayResetDelay:     350 * time.Millisecond,
		MuzzleSocket:        "Muzzle",
		Multipliers:         core.DefaultMultiplierTable(),
		Recoil:              DefaultRecoilConfig(),
	}
}

// Interval is the time between automatic shots, 60/RPM with RPM floored at 1.
func (c Config) Interval() time.Duration {
	rpm := c.RoundsPerMinute
	if rpm < 1 {
		rpm = 1
	}
	return time.Duration(60 / rpm * float64(time.Second))
}

// Validate checks the ranges the fire controller relies on.
func (c Config) Validate() error {
	switch {
	case c.Name == "":
		return fmt.Errorf("%w: name is required", ErrInvalidConfig)
	case c.Damage < 0:
		return fmt.Errorf("%w: %s: damage must be >= 0", ErrInvalidConfig, c.Name)
	case c.MaxRange <= 0:
		return fmt.Errorf("%w: %s: max range must be > 0", ErrInvalidConfig, c.Name)
	case c.SpreadAngle < 0:
		return fmt.Errorf("%w: %s: spread must be >= 0", ErrInvalidConfig, c.Name)
	case c.MagazineCapacity < 0 || c.ReserveAmmo < 0:
		return fmt.Errorf("%w: %s: ammo counts must be >= 0", ErrInvalidConfig, c.Name)
	case c.Recoil.MaxPitch <= 0 || c.Recoil.MaxYaw <= 0:
		return fmt.Errorf("%w: %s: recoil max accumulation must be > 0", ErrInvalidConfig, c.Name)
	case c.Recoil.MinViewPitch > c.Recoil.MaxViewPitch:
		return fmt.Errorf("%w: %s: view pitch range is inverted", ErrInvalidConfig, c.Name)
	}
	return nil
}
