package world

import (
	"math"

	"github.com/gunline/firecontrol/pkg/core"
)

// Shape is a collision primitive positioned relative to its body's actor.
type Shape interface {
	// Part is the physical part name reported on a hit.
	Part() string
	// intersect returns the distance along the unit ray dir from start to the
	// first surface hit within maxDist, and the surface normal there.
	intersect(origin, start, dir core.Vec3, maxDist float64) (float64, core.Vec3, bool)
}

// Sphere is a ball of Radius centred at Offset from the actor location.
type Sphere struct {
	Name   string
	Offset core.Vec3
	Radius float64
}

func (s Sphere) Part() string { return s.Name }

func (s Sphere) intersect(origin, start, dir core.Vec3, maxDist float64) (float64, core.Vec3, bool) {
	center := origin.Add(s.Offset)
	oc := start.Sub(center)
	c := oc.Dot(oc) - s.Radius*s.Radius
	if c <= 0 {
		// starts inside
		return 0, dir.Mul(-1), true
	}
	b := oc.Dot(dir)
	if b > 0 {
		return 0, core.Vec3{}, false
	}
	disc := b*b - c
	if disc < 0 {
		return 0, core.Vec3{}, false
	}
	t := -b - math.Sqrt(disc)
	if t > maxDist {
		return 0, core.Vec3{}, false
	}
	point := start.Add(dir.Mul(t))
	return t, point.Sub(center).Normalize(), true
}

// Box is an axis-aligned box spanning Min..Max relative to the actor location.
type Box struct {
	Name     string
	Min, Max core.Vec3
}

func (b Box) Part() string { return b.Name }

func (b Box) intersect(origin, start, dir core.Vec3, maxDist float64) (float64, core.Vec3, bool) {
	lo := origin.Add(b.Min)
	hi := origin.Add(b.Max)

	tmin, tmax := 0.0, maxDist
	axis, sign := -1, 0.0
	for i := range 3 {
		if math.Abs(dir[i]) < 1e-12 {
			if start[i] < lo[i] || start[i] > hi[i] {
				return 0, core.Vec3{}, false
			}
			continue
		}
		inv := 1 / dir[i]
		t1 := (lo[i] - start[i]) * inv
		t2 := (hi[i] - start[i]) * inv
		s := -1.0
		if t1 > t2 {
			t1, t2 = t2, t1
			s = 1
		}
		if t1 > tmin {
			tmin, axis, sign = t1, i, s
		}
		tmax = math.Min(tmax, t2)
		if tmin > tmax {
			return 0, core.Vec3{}, false
		}
	}
	if axis < 0 {
		return 0, dir.Mul(-1), true
	}
	var normal core.Vec3
	normal[axis] = sign
	return tmin, normal, true
}
