package weapon

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const instrumentationName = "github.com/gunline/firecontrol/internal/weapon"

func meter() metric.Meter {
	return otel.Meter(instrumentationName)
}

type metrics struct {
	fired    metric.Int64Counter
	dry      metric.Int64Counter
	rejected metric.Int64Counter
	damage   metric.Float64Counter
	attrs    metric.MeasurementOption
}

func newMetrics(weaponName string) (*metrics, error) {
	m := meter()
	out := &metrics{
		attrs: metric.WithAttributes(attribute.String("weapon", weaponName)),
	}

	var err error
	out.fired, err = m.Int64Counter(
		"weapon.shots.fired",
		metric.WithDescription("Shots that consumed a round"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating fired counter: %w", err)
	}

	out.dry, err = m.Int64Counter(
		"weapon.shots.dry",
		metric.WithDescription("Trigger pulls on an empty magazine"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating dry counter: %w", err)
	}

	out.rejected, err = m.Int64Counter(
		"weapon.shots.rejected",
		metric.WithDescription("Replicated shots dropped by the authority"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating rejected counter: %w", err)
	}

	out.damage, err = m.Float64Counter(
		"weapon.damage.applied",
		metric.WithDescription("Damage applied by authoritative shots"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating damage counter: %w", err)
	}

	return out, nil
}

func (m *metrics) shotFired()          { m.fired.Add(context.Background(), 1, m.attrs) }
func (m *metrics) dryFired()           { m.dry.Add(context.Background(), 1, m.attrs) }
func (m *metrics) shotRejected()       { m.rejected.Add(context.Background(), 1, m.attrs) }
func (m *metrics) damaged(amt float64) { m.damage.Add(context.Background(), amt, m.attrs) }
