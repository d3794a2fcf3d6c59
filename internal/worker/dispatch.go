package worker

import (
	"errors"
	"fmt"

	"github.com/gunline/firecontrol/internal/dispatcher"
	"github.com/gunline/firecontrol/pkg/core"
)

// RegisterHandlers registers the combat event handlers. Every handler is
// buffered so recording never blocks the simulation loop.
func (m *Manager) RegisterHandlers(d *dispatcher.Dispatcher) {
	size := m.deps.BufferSize
	d.Register(CmdShot, m.handleShot, dispatcher.Buffered(size*5), dispatcher.Logged())
	d.Register(CmdHit, m.handleHit, dispatcher.Buffered(size*2), dispatcher.Logged())
	d.Register(CmdKill, m.handleKill, dispatcher.Buffered(size), dispatcher.Logged())

	// weapon housekeeping
	d.Register(CmdDryFire, m.handleDryFire, dispatcher.Buffered(size), dispatcher.Logged())
	d.Register(CmdReload, m.handleReload, dispatcher.Buffered(size), dispatcher.Logged())
}

func payload[T any](e dispatcher.Event) (*T, error) {
	v, ok := e.Payload.(*T)
	if !ok || v == nil {
		return nil, fmt.Errorf("%w: %s got %T", ErrBadPayload, e.Command, e.Payload)
	}
	return v, nil
}

func (m *Manager) handleShot(e dispatcher.Event) (any, error) {
	shot, err := payload[core.ShotEvent](e)
	if err != nil {
		return nil, err
	}
	if err := m.backend.RecordShot(shot); err != nil {
		return nil, fmt.Errorf("failed to record shot: %w", err)
	}
	return nil, m.metric(func(w MetricsWriter) error { return w.WriteShot(*shot) })
}

func (m *Manager) handleHit(e dispatcher.Event) (any, error) {
	hit, err := payload[core.HitEvent](e)
	if err != nil {
		return nil, err
	}
	if err := m.backend.RecordHit(hit); err != nil {
		return nil, fmt.Errorf("failed to record hit: %w", err)
	}
	return nil, m.metric(func(w MetricsWriter) error { return w.WriteHit(*hit) })
}

func (m *Manager) handleKill(e dispatcher.Event) (any, error) {
	kill, err := payload[core.KillEvent](e)
	if err != nil {
		return nil, err
	}
	if err := m.backend.RecordKill(kill); err != nil {
		return nil, fmt.Errorf("failed to record kill: %w", err)
	}
	m.deps.Logger.Info("Kill recorded",
		"killer", kill.KillerID,
		"victim", kill.VictimID,
		"weapon", kill.WeaponName,
		"zone", kill.Zone,
	)
	return nil, m.metric(func(w MetricsWriter) error { return w.WriteKill(*kill) })
}

func (m *Manager) handleDryFire(e dispatcher.Event) (any, error) {
	ev, err := payload[core.DryFireEvent](e)
	if err != nil {
		return nil, err
	}
	if err := m.backend.RecordDryFire(ev); err != nil {
		return nil, fmt.Errorf("failed to record dry fire: %w", err)
	}
	return nil, nil
}

func (m *Manager) handleReload(e dispatcher.Event) (any, error) {
	ev, err := payload[core.ReloadEvent](e)
	if err != nil {
		return nil, err
	}
	if err := m.backend.RecordReload(ev); err != nil {
		return nil, fmt.Errorf("failed to record reload: %w", err)
	}
	return nil, nil
}

// metric writes through the optional metrics sink. Failures are reported
// but the event stays recorded.
func (m *Manager) metric(write func(MetricsWriter) error) error {
	if m.deps.Metrics == nil {
		return nil
	}
	if err := write(m.deps.Metrics); err != nil {
		return errors.Join(errMetrics, err)
	}
	return nil
}

var errMetrics = errors.New("metrics write failed")
