// pkg/core/math.go
package core

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

// Vec3 is a world-space vector. X is forward, Y is right, Z is up.
type Vec3 = mgl64.Vec3

// Rotator is a view orientation in degrees.
type Rotator struct {
	Pitch float64 `json:"pitch"`
	Yaw   float64 `json:"yaw"`
}

func (r Rotator) Add(o Rotator) Rotator {
	return Rotator{Pitch: r.Pitch + o.Pitch, Yaw: r.Yaw + o.Yaw}
}

func (r Rotator) Sub(o Rotator) Rotator {
	return Rotator{Pitch: r.Pitch - o.Pitch, Yaw: r.Yaw - o.Yaw}
}

func (r Rotator) Scale(s float64) Rotator {
	return Rotator{Pitch: r.Pitch * s, Yaw: r.Yaw * s}
}

// IsNearlyZero reports whether both axes are within tolerance of zero.
func (r Rotator) IsNearlyZero(tolerance float64) bool {
	return math.Abs(r.Pitch) <= tolerance && math.Abs(r.Yaw) <= tolerance
}

// Vector returns the unit direction the rotator faces.
func (r Rotator) Vector() Vec3 {
	p := mgl64.DegToRad(r.Pitch)
	y := mgl64.DegToRad(r.Yaw)
	cp := math.Cos(p)
	return Vec3{cp * math.Cos(y), cp * math.Sin(y), math.Sin(p)}
}

// RotatorFromVector returns the rotator facing along v. Zero vectors face forward.
func RotatorFromVector(v Vec3) Rotator {
	if v.Len() == 0 {
		return Rotator{}
	}
	horizontal := math.Hypot(v.X(), v.Y())
	return Rotator{
		Pitch: mgl64.RadToDeg(math.Atan2(v.Z(), horizontal)),
		Yaw:   mgl64.RadToDeg(math.Atan2(v.Y(), v.X())),
	}
}

// NormalizeAxis wraps an angle in degrees into (-180, 180].
func NormalizeAxis(deg float64) float64 {
	deg = math.Mod(deg, 360)
	if deg > 180 {
		deg -= 360
	} else if deg <= -180 {
		deg += 360
	}
	return deg
}

// OffsetDirection rotates dir by the given pitch/yaw offset.
func OffsetDirection(dir Vec3, offset Rotator) Vec3 {
	if offset == (Rotator{}) {
		return dir.Normalize()
	}
	return RotatorFromVector(dir).Add(offset).Vector()
}

// IsFinite reports whether every component of v is a real number.
func IsFinite(v Vec3) bool {
	for _, c := range v {
		if math.IsNaN(c) || math.IsInf(c, 0) {
			return false
		}
	}
	return true
}
