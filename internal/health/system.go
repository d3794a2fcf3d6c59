package health

import (
	"log/slog"

	"github.com/gunline/firecontrol/pkg/core"
)

// System routes point damage to targets that accept it.
type System struct {
	logger *slog.Logger
}

// NewSystem creates a damage system. A nil logger uses slog.Default.
func NewSystem(logger *slog.Logger) *System {
	if logger == nil {
		logger = slog.Default()
	}
	return &System{logger: logger}
}

// ApplyPointDamage delivers ev to its target and returns the damage applied.
// Destroyed targets and actors without health take nothing.
func (s *System) ApplyPointDamage(ev core.PointDamage) float64 {
	target, ok := ev.Target.Get()
	if !ok {
		s.logger.Debug("Damage target gone", "target", ev.Target.ID())
		return 0
	}
	d, ok := target.(core.Damageable)
	if !ok {
		s.logger.Debug("Target is not damageable", "target", target.ID())
		return 0
	}
	return d.TakePointDamage(ev)
}
