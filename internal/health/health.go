// Package health tracks hit points and currency for damageable actors and
// routes point damage from weapons to them.
package health

import (
	"log/slog"
	"math"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/gunline/firecontrol/pkg/core"
)

const nearlyZero = 1e-6

// Config tunes a health container.
type Config struct {
	MaxHealth float64
	// InitialHealth overrides starting at MaxHealth.
	InitialHealth *float64

	GrantCurrencyOnDeath bool
	CurrencyReward       int
}

// DefaultConfig is 100 HP with a 10 currency kill reward.
func DefaultConfig() Config {
	return Config{
		MaxHealth:            100,
		GrantCurrencyOnDeath: true,
		CurrencyReward:       10,
	}
}

// Change is broadcast whenever current health moves.
type Change struct {
	Health  *Health
	Current float64
	Max     float64
	Delta   float64
}

// Kill describes a killing blow.
type Kill struct {
	Victim  core.Actor
	Killer  core.Actor
	Damage  core.PointDamage
	Rewards int
}

// WalletOwner is implemented by actors that can receive currency.
type WalletOwner interface {
	Wallet() *Wallet
}

// Health holds current and max health for one owner actor.
type Health struct {
	owner        core.Actor
	cfg          Config
	max          float64
	current      float64
	canBeDamaged bool
	outNotified  bool
	logger       *slog.Logger

	onChanged []func(Change)
	onOut     []func(*Health)
	onKilled  []func(Kill)
}

// New creates a container for owner. MaxHealth is floored at 1.
func New(owner core.Actor, cfg Config, logger *slog.Logger) *Health {
	if logger == nil {
		logger = slog.Default()
	}
	h := &Health{
		owner:        owner,
		cfg:          cfg,
		max:          math.Max(cfg.MaxHealth, 1),
		canBeDamaged: true,
		logger:       logger,
	}
	h.current = h.max
	if cfg.InitialHealth != nil {
		h.current = mgl64.Clamp(*cfg.InitialHealth, 0, h.max)
	}
	h.outNotified = h.current <= 0
	return h
}

func (h *Health) Current() float64 { return h.current }
func (h *Health) Max() float64     { return h.max }
func (h *Health) IsAlive() bool    { return h.current > 0 }

// Percent is current/max in [0, 1].
func (h *Health) Percent() float64 {
	return h.current / h.max
}

// CanBeDamaged is false while invulnerable or dead.
func (h *Health) CanBeDamaged() bool { return h.canBeDamaged }

// SetCanBeDamaged toggles invulnerability.
func (h *Health) SetCanBeDamaged(on bool) { h.canBeDamaged = on }

// OnHealthChanged registers a callback for every non-zero health change.
func (h *Health) OnHealthChanged(fn func(Change)) { h.onChanged = append(h.onChanged, fn) }

// OnOutOfHealth registers a callback fired once each time health hits zero.
func (h *Health) OnOutOfHealth(fn func(*Health)) { h.onOut = append(h.onOut, fn) }

// OnKilled registers a callback for killing blows delivered as point damage.
func (h *Health) OnKilled(fn func(Kill)) { h.onKilled = append(h.onKilled, fn) }

// ApplyDamage removes health and returns the amount actually removed.
// Non-positive amounts and dead owners are ignored.
func (h *Health) ApplyDamage(amount float64) float64 {
	if amount <= 0 || h.current <= 0 {
		return 0
	}
	return math.Max(0, -h.setHealth(h.current-amount))
}

// ApplyHealing adds health up to max and returns the amount added.
func (h *Health) ApplyHealing(amount float64) float64 {
	if amount <= 0 || h.current >= h.max {
		return 0
	}
	return math.Max(0, h.setHealth(h.current+amount))
}

// RestoreFullHealth sets health to max, reviving a dead owner.
func (h *Health) RestoreFullHealth() {
	h.setHealth(h.max)
	h.canBeDamaged = true
}

// TakePointDamage applies weapon damage. A killing blow makes the owner
// undamageable and grants the kill reward to the instigator.
func (h *Health) TakePointDamage(ev core.PointDamage) float64 {
	if ev.Amount <= 0 || !h.canBeDamaged {
		return 0
	}
	wasAlive := h.IsAlive()
	applied := h.ApplyDamage(ev.Amount)
	if applied <= 0 {
		return 0
	}
	h.logger.Debug("Took damage",
		"owner", h.ownerID(),
		"applied", applied,
		"current", h.current,
		"max", h.max,
	)
	if wasAlive && !h.IsAlive() {
		h.handleKill(ev)
	}
	return applied
}

func (h *Health) handleKill(ev core.PointDamage) {
	h.canBeDamaged = false
	killer := rewardReceiver(ev)
	kill := Kill{Victim: h.owner, Killer: killer, Damage: ev}
	kill.Rewards = h.grantReward(killer)
	for _, fn := range h.onKilled {
		fn(kill)
	}
}

// rewardReceiver is the instigating controller's pawn, falling back to the
// damage causer's owner.
func rewardReceiver(ev core.PointDamage) core.Actor {
	if ev.Instigator != nil {
		if pawn := ev.Instigator.Pawn(); pawn != nil {
			return pawn
		}
	}
	if owned, ok := ev.Causer.(interface{ Owner() core.Pawn }); ok {
		if pawn := owned.Owner(); pawn != nil {
			return pawn
		}
	}
	return nil
}

func (h *Health) grantReward(receiver core.Actor) int {
	if !h.cfg.GrantCurrencyOnDeath || h.cfg.CurrencyReward <= 0 || receiver == nil {
		return 0
	}
	if h.owner != nil && receiver.ID() == h.owner.ID() {
		return 0
	}
	wo, ok := receiver.(WalletOwner)
	if !ok || wo.Wallet() == nil {
		return 0
	}
	added := wo.Wallet().AddCurrency(h.cfg.CurrencyReward)
	if added > 0 {
		h.logger.Info("Granted kill reward", "victim", h.ownerID(), "receiver", receiver.ID(), "amount", added)
	}
	return added
}

func (h *Health) setHealth(v float64) float64 {
	prev := h.current
	h.current = mgl64.Clamp(v, 0, h.max)
	delta := h.current - prev

	if math.Abs(delta) > nearlyZero {
		change := Change{Health: h, Current: h.current, Max: h.max, Delta: delta}
		for _, fn := range h.onChanged {
			fn(change)
		}
	}

	out := h.current <= 0
	if out && !h.outNotified {
		h.outNotified = true
		for _, fn := range h.onOut {
			fn(h)
		}
	} else if !out {
		h.outNotified = false
	}
	return delta
}

func (h *Health) ownerID() string {
	if h.owner == nil {
		return ""
	}
	return h.owner.ID()
}
