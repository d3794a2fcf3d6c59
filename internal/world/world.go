// Package world is a small in-process scene: collision bodies answering
// line traces, player pawns and controllers, and damageable targets.
package world

import (
	"log/slog"
	"math"
	"slices"
	"sync"

	"github.com/gunline/firecontrol/pkg/core"
)

// Body attaches collision shapes to an actor. An empty Channels list blocks
// every trace channel.
type Body struct {
	Actor    core.Actor
	Shapes   []Shape
	Channels []core.TraceChannel
}

func (b *Body) blocks(ch core.TraceChannel) bool {
	return len(b.Channels) == 0 || slices.Contains(b.Channels, ch)
}

// World holds the registered bodies. It is safe for concurrent use.
type World struct {
	mu     sync.RWMutex
	bodies map[string]*Body
	logger *slog.Logger
}

// New creates an empty world.
func New(logger *slog.Logger) *World {
	if logger == nil {
		logger = slog.Default()
	}
	return &World{bodies: make(map[string]*Body), logger: logger}
}

// Add registers a body, replacing any body already registered for the same
// actor ID.
func (w *World) Add(b *Body) {
	if b == nil || b.Actor == nil {
		return
	}
	w.mu.Lock()
	w.bodies[b.Actor.ID()] = b
	w.mu.Unlock()
	w.logger.Debug("Body added", "actor", b.Actor.ID(), "shapes", len(b.Shapes))
}

// Remove unregisters the body of actor id.
func (w *World) Remove(id string) {
	w.mu.Lock()
	delete(w.bodies, id)
	w.mu.Unlock()
}

// Len is the number of registered bodies.
func (w *World) Len() int {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return len(w.bodies)
}

// LineTrace returns the nearest blocking hit on the segment start..end.
// Bodies whose actor is destroyed or listed in ignore are skipped. A segment
// with a non-finite end point never hits.
func (w *World) LineTrace(start, end core.Vec3, channel core.TraceChannel, ignore []string) core.TraceHit {
	if !core.IsFinite(start) || !core.IsFinite(end) {
		return core.TraceHit{}
	}
	seg := end.Sub(start)
	length := seg.Len()
	if length < 1e-9 {
		return core.TraceHit{}
	}
	dir := seg.Mul(1 / length)

	w.mu.RLock()
	defer w.mu.RUnlock()

	best := core.TraceHit{Distance: math.Inf(1)}
	for id, b := range w.bodies {
		if slices.Contains(ignore, id) || !b.Actor.Valid() || !b.blocks(channel) {
			continue
		}
		origin := b.Actor.Location()
		for _, s := range b.Shapes {
			t, normal, ok := s.intersect(origin, start, dir, length)
			if !ok || t >= best.Distance {
				continue
			}
			best = core.TraceHit{
				Blocking: true,
				Point:    start.Add(dir.Mul(t)),
				Normal:   normal,
				Distance: t,
				Actor:    core.Ref(b.Actor),
				Part:     s.Part(),
			}
		}
	}
	if !best.Blocking {
		return core.TraceHit{}
	}
	return best
}

// GetViewPoint returns the eye location and view direction of c's pawn.
// Pawns without an eye fall back to their location.
func (w *World) GetViewPoint(c core.Controller) (core.Vec3, core.Vec3) {
	dir := c.ControlRotation().Vector()
	pawn := c.Pawn()
	if pawn == nil {
		return core.Vec3{}, dir
	}
	if eye, ok := pawn.(interface{ EyeLocation() core.Vec3 }); ok {
		return eye.EyeLocation(), dir
	}
	return pawn.Location(), dir
}
