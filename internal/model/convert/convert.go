// Package convert maps core event types onto GORM models and back.
package convert

import (
	"encoding/json"
	"time"

	geom "github.com/peterstace/simplefeatures/geom"
	"gorm.io/datatypes"

	"github.com/gunline/firecontrol/internal/model"
	"github.com/gunline/firecontrol/pkg/core"
)

// VecToPoint stores v as a 3D point.
func VecToPoint(v core.Vec3) geom.Point {
	return geom.NewPoint(geom.Coordinates{
		XY:   geom.XY{X: v.X(), Y: v.Y()},
		Z:    v.Z(),
		Type: geom.DimXYZ,
	})
}

// PointToVec reads a point back. Empty points map to the origin.
func PointToVec(p geom.Point) core.Vec3 {
	c, ok := p.Coordinates()
	if !ok {
		return core.Vec3{}
	}
	return core.Vec3{c.X, c.Y, c.Z}
}

// SegmentToLineString stores a shot trace from start to end.
func SegmentToLineString(start, end core.Vec3) geom.LineString {
	seq := geom.NewSequence([]float64{
		start.X(), start.Y(), start.Z(),
		end.X(), end.Y(), end.Z(),
	}, geom.DimXYZ)
	return geom.NewLineString(seq)
}

// LineStringEnds returns the first and last vertex of ls.
func LineStringEnds(ls geom.LineString) (start, end core.Vec3, ok bool) {
	seq := ls.Coordinates()
	n := seq.Length()
	if n == 0 {
		return start, end, false
	}
	a, b := seq.Get(0), seq.Get(n-1)
	return core.Vec3{a.X, a.Y, a.Z}, core.Vec3{b.X, b.Y, b.Z}, true
}

func SessionToModel(s core.Session) model.Session {
	out := model.Session{
		ID:        s.ID,
		Name:      s.Name,
		Map:       s.Map,
		StartTime: s.StartTime,
		TickRate:  s.TickRate,
	}
	if !s.EndTime.IsZero() {
		end := s.EndTime
		out.EndTime = &end
	}
	return out
}

func SessionToCore(s model.Session) core.Session {
	out := core.Session{
		ID:        s.ID,
		Name:      s.Name,
		Map:       s.Map,
		StartTime: s.StartTime,
		TickRate:  s.TickRate,
	}
	if s.EndTime != nil {
		out.EndTime = *s.EndTime
	}
	return out
}

func ShotToModel(e core.ShotEvent) model.Shot {
	return model.Shot{
		SessionID:  e.SessionID,
		Time:       e.Time,
		SimTimeMs:  e.SimTime.Milliseconds(),
		WeaponID:   e.WeaponID,
		WeaponName: e.WeaponName,
		ShooterID:  e.ShooterID,
		FireMode:   e.FireMode,
		BurstIndex: e.BurstIndex,
		Trace:      SegmentToLineString(e.Origin, e.End),
		Hit:        e.Hit,
		Seed:       e.Seed,
	}
}

func ShotToCore(s model.Shot) core.ShotEvent {
	origin, end, _ := LineStringEnds(s.Trace)
	return core.ShotEvent{
		SessionID:  s.SessionID,
		Time:       s.Time,
		SimTime:    time.Duration(s.SimTimeMs) * time.Millisecond,
		WeaponID:   s.WeaponID,
		WeaponName: s.WeaponName,
		ShooterID:  s.ShooterID,
		FireMode:   s.FireMode,
		BurstIndex: s.BurstIndex,
		Origin:     origin,
		End:        end,
		Hit:        s.Hit,
		Seed:       s.Seed,
	}
}

func HitToModel(e core.HitEvent) model.Hit {
	meta, _ := json.Marshal(model.HitMeta{
		Normal:   [3]float64{e.Normal.X(), e.Normal.Y(), e.Normal.Z()},
		Distance: e.Distance,
	})
	return model.Hit{
		SessionID:  e.SessionID,
		Time:       e.Time,
		SimTimeMs:  e.SimTime.Milliseconds(),
		WeaponID:   e.WeaponID,
		WeaponName: e.WeaponName,
		ShooterID:  e.ShooterID,
		VictimID:   e.VictimID,
		Part:       e.Part,
		Zone:       e.Zone,
		Damage:     e.Damage,
		Applied:    e.Applied,
		Position:   VecToPoint(e.Position),
		Meta:       datatypes.JSON(meta),
	}
}

func HitToCore(h model.Hit) core.HitEvent {
	var meta model.HitMeta
	if len(h.Meta) > 0 {
		_ = json.Unmarshal(h.Meta, &meta)
	}
	return core.HitEvent{
		SessionID:  h.SessionID,
		Time:       h.Time,
		SimTime:    time.Duration(h.SimTimeMs) * time.Millisecond,
		WeaponID:   h.WeaponID,
		WeaponName: h.WeaponName,
		ShooterID:  h.ShooterID,
		VictimID:   h.VictimID,
		Part:       h.Part,
		Zone:       h.Zone,
		Damage:     h.Damage,
		Applied:    h.Applied,
		Position:   PointToVec(h.Position),
		Normal:     core.Vec3(meta.Normal),
		Distance:   meta.Distance,
	}
}

func KillToModel(e core.KillEvent) model.Kill {
	return model.Kill{
		SessionID:  e.SessionID,
		Time:       e.Time,
		SimTimeMs:  e.SimTime.Milliseconds(),
		WeaponName: e.WeaponName,
		KillerID:   e.KillerID,
		VictimID:   e.VictimID,
		Zone:       e.Zone,
		Distance:   e.Distance,
		Reward:     e.Reward,
	}
}

func KillToCore(k model.Kill) core.KillEvent {
	return core.KillEvent{
		SessionID:  k.SessionID,
		Time:       k.Time,
		SimTime:    time.Duration(k.SimTimeMs) * time.Millisecond,
		WeaponName: k.WeaponName,
		KillerID:   k.KillerID,
		VictimID:   k.VictimID,
		Zone:       k.Zone,
		Distance:   k.Distance,
		Reward:     k.Reward,
	}
}

func DryFireToModel(e core.DryFireEvent) model.WeaponEvent {
	return model.WeaponEvent{
		SessionID:  e.SessionID,
		Time:       e.Time,
		SimTimeMs:  e.SimTime.Milliseconds(),
		Kind:       model.KindDryFire,
		WeaponID:   e.WeaponID,
		WeaponName: e.WeaponName,
		ShooterID:  e.ShooterID,
		Extra:      datatypes.JSON("{}"),
	}
}

func ReloadToModel(e core.ReloadEvent) model.WeaponEvent {
	extra, _ := json.Marshal(model.ReloadExtra{Moved: e.Moved, Magazine: e.Magazine, Reserve: e.Reserve})
	return model.WeaponEvent{
		SessionID:  e.SessionID,
		Time:       e.Time,
		SimTimeMs:  e.SimTime.Milliseconds(),
		Kind:       model.KindReload,
		WeaponID:   e.WeaponID,
		WeaponName: e.WeaponName,
		ShooterID:  e.ShooterID,
		Extra:      datatypes.JSON(extra),
	}
}
