package core

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"pgregory.net/rapid"
)

func TestRotatorVector(t *testing.T) {
	v := Rotator{}.Vector()
	assert.InDelta(t, 1.0, v.X(), 1e-9)
	assert.InDelta(t, 0.0, v.Y(), 1e-9)
	assert.InDelta(t, 0.0, v.Z(), 1e-9)

	up := Rotator{Pitch: 90}.Vector()
	assert.InDelta(t, 1.0, up.Z(), 1e-9)

	right := Rotator{Yaw: 90}.Vector()
	assert.InDelta(t, 1.0, right.Y(), 1e-9)
}

func TestRotatorRoundTrip(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		r := Rotator{
			Pitch: rapid.Float64Range(-89, 89).Draw(t, "pitch"),
			Yaw:   rapid.Float64Range(-179, 179).Draw(t, "yaw"),
		}
		back := RotatorFromVector(r.Vector())
		if math.Abs(back.Pitch-r.Pitch) > 1e-6 || math.Abs(back.Yaw-r.Yaw) > 1e-6 {
			t.Fatalf("round trip %v -> %v", r, back)
		}
	})
}

func TestNormalizeAxis(t *testing.T) {
	assert.InDelta(t, -170.0, NormalizeAxis(190), 1e-9)
	assert.InDelta(t, 180.0, NormalizeAxis(-180), 1e-9)
	assert.InDelta(t, 10.0, NormalizeAxis(370), 1e-9)
	assert.InDelta(t, -10.0, NormalizeAxis(-370), 1e-9)
}

func TestOffsetDirection(t *testing.T) {
	dir := OffsetDirection(Vec3{1, 0, 0}, Rotator{Pitch: 10})
	assert.InDelta(t, 10.0, RotatorFromVector(dir).Pitch, 1e-9)
	assert.InDelta(t, 1.0, dir.Len(), 1e-9)
}

func TestMultiplierTable(t *testing.T) {
	table := DamageMultiplierTable{
		Multipliers: map[HitZone]float64{ZoneHead: 2.5, ZoneLimb: -1},
		Default:     1,
	}
	m, ok := table.Lookup(ZoneHead)
	assert.True(t, ok)
	assert.Equal(t, 2.5, m)

	m, ok = table.Lookup(ZoneLimb)
	assert.True(t, ok)
	assert.Equal(t, 0.0, m, "negative entries floor at zero")

	_, ok = table.Lookup(ZoneTorso)
	assert.False(t, ok)
	assert.Equal(t, 1.0, table.Resolve(ZoneTorso))
}

func TestActorRef(t *testing.T) {
	var empty ActorRef
	_, ok := empty.Get()
	assert.False(t, ok)
	assert.Equal(t, "", empty.ID())

	a := &stubActor{id: "a", valid: true}
	ref := Ref(a)
	got, ok := ref.Get()
	assert.True(t, ok)
	assert.Equal(t, a, got)

	a.valid = false
	_, ok = ref.Get()
	assert.False(t, ok)
	assert.Equal(t, "a", ref.ID())
}

func TestParseEnums(t *testing.T) {
	m, err := ParseFireMode("AUTO")
	assert.NoError(t, err)
	assert.Equal(t, FullAuto, m)
	_, err = ParseFireMode("burst")
	assert.Error(t, err)

	z, err := ParseHitZone("head")
	assert.NoError(t, err)
	assert.Equal(t, ZoneHead, z)
	assert.Equal(t, "head", z.String())
}

type stubActor struct {
	id    string
	valid bool
}

func (s *stubActor) ID() string     { return s.id }
func (s *stubActor) Location() Vec3 { return Vec3{} }
func (s *stubActor) Valid() bool    { return s.valid }
