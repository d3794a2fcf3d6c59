package main

import (
	"errors"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/gunline/firecontrol/internal/combat"
	"github.com/gunline/firecontrol/internal/config"
	"github.com/gunline/firecontrol/internal/health"
	"github.com/gunline/firecontrol/internal/scheduler"
	"github.com/gunline/firecontrol/internal/weapon"
	"github.com/gunline/firecontrol/internal/world"
	"github.com/gunline/firecontrol/pkg/core"
)

type simulateOptions struct {
	weapon   string
	hold     time.Duration
	tick     time.Duration
	distance float64
	target   string
	aim      bool
	reload   bool
}

func newSimulateCmd(a *app) *cobra.Command {
	opts := simulateOptions{}
	cmd := &cobra.Command{
		Use:   "simulate",
		Short: "Run a scripted firing drill against a target and record it",
		Long: "Equips a configured weapon, holds the trigger against a target " +
			"for the given time on a simulated clock and records every shot, " +
			"hit and kill to the configured storage backend.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runSimulate(cmd, a, opts)
		},
	}
	flags := cmd.Flags()
	flags.StringVarP(&opts.weapon, "weapon", "w", "", "weapon to equip (default: configured loadout)")
	flags.DurationVar(&opts.hold, "hold", 3*time.Second, "how long the trigger is held")
	flags.DurationVar(&opts.tick, "tick", 16*time.Millisecond, "simulation frame time")
	flags.Float64Var(&opts.distance, "distance", 1000, "distance to the target in world units")
	flags.StringVar(&opts.target, "target", "dummy", "target type: dummy or cube")
	flags.BoolVar(&opts.aim, "aim", false, "aim down sights while firing")
	flags.BoolVar(&opts.reload, "reload", false, "reload after releasing the trigger")
	return cmd
}

// drillTally counts what the equipped weapons did during the drill.
type drillTally struct {
	shots, hits, headshots, kills, dryFires int
	damage                                  float64
}

func (t *drillTally) watch(w *weapon.Weapon) {
	w.OnShot(func(r weapon.ShotReport) {
		t.shots++
		if r.Shot.Hit {
			t.hits++
		}
	})
	w.OnDamage(func(r weapon.DamageReport) {
		t.damage += r.Applied
		if r.Zone == core.ZoneHead {
			t.headshots++
		}
	})
	w.OnDryFire(func(*weapon.Weapon) { t.dryFires++ })
}

type drillTarget interface {
	core.Actor
	Health() *health.Health
}

func runSimulate(cmd *cobra.Command, a *app, opts simulateOptions) (err error) {
	if opts.tick <= 0 {
		return errors.New("tick must be positive")
	}
	ctx := cmd.Context()
	logger := a.logger

	loop := scheduler.New(logger)
	w := world.New(logger)
	damage := health.NewSystem(logger)

	p, err := newPipeline(ctx, a, loop)
	if err != nil {
		return err
	}
	defer func() {
		err = errors.Join(err, p.close(ctx))
	}()

	shooter := world.NewPawn("shooter", core.Vec3{}, world.PawnConfig{
		Sockets: map[string]core.Vec3{"Muzzle": {0, 0, world.DefaultEyeHeight}},
	}, logger)
	w.Add(&world.Body{Actor: shooter, Shapes: world.HumanoidShapes()})
	world.NewPlayerController("local", true).Possess(shooter)

	var target drillTarget
	switch opts.target {
	case "dummy":
		target = world.NewDummy(w, "dummy", core.Vec3{opts.distance, 0, world.DefaultEyeHeight - 68}, health.DefaultConfig(), logger)
	case "cube":
		target = world.NewDamageTestCube(w, "cube", core.Vec3{opts.distance, 0, world.DefaultEyeHeight}, logger)
	default:
		return fmt.Errorf("unknown target %q", opts.target)
	}
	p.recorder.WatchHealth(target.Health())

	tally := &drillTally{}
	kills := 0
	target.Health().OnKilled(func(health.Kill) { kills++ })

	factory := func(name string, owner core.Pawn) (*weapon.Weapon, error) {
		cfg, err := config.GetWeaponConfig(name)
		if err != nil {
			return nil, err
		}
		wpn, err := weapon.New(cfg, weapon.Dependencies{
			Scheduler: loop,
			Collision: w,
			ViewPoint: w,
			Damage:    damage,
			Logger:    logger,
		}, weapon.WithOwner(owner))
		if err != nil {
			return nil, err
		}
		p.recorder.WatchWeapon(wpn)
		tally.watch(wpn)
		return wpn, nil
	}

	comp := combat.New(shooter, config.GetLoadoutConfig(), factory, logger)
	if opts.weapon != "" {
		if !comp.EquipWeapon(opts.weapon) {
			return fmt.Errorf("%w: %s", config.ErrUnknownWeapon, opts.weapon)
		}
	} else if err := comp.InitializeLoadout(); err != nil {
		return err
	}
	current := comp.CurrentWeapon()
	if current == nil {
		return errors.New("no weapon equipped")
	}

	tickRate := int(time.Second / opts.tick)
	if _, err := p.startSession(config.GetString("session.name"), config.GetString("session.map"), tickRate); err != nil {
		return err
	}

	if opts.aim {
		comp.StartScope()
	}
	comp.StartFire()
	loop.AdvanceBy(opts.tick, int(opts.hold/opts.tick))
	comp.StopFire()
	comp.StopScope()
	// let recoil settle
	loop.AdvanceBy(opts.tick, tickRate)
	if opts.reload {
		comp.Reload()
	}

	if err := p.endSession(ctx); err != nil {
		return err
	}

	tally.kills = kills
	printDrill(cmd.OutOrStdout(), current, comp, target, shooter, tally)
	fmt.Fprintf(cmd.OutOrStdout(), "\nlog file: %s\n", a.logFilePath)
	return nil
}

func printDrill(out io.Writer, w *weapon.Weapon, comp *combat.Component, target drillTarget, shooter *world.Pawn, t *drillTally) {
	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	defer tw.Flush()

	accuracy := 0.0
	if t.shots > 0 {
		accuracy = float64(t.hits) / float64(t.shots) * 100
	}
	fmt.Fprintf(tw, "weapon\t%s (%s)\n", w.Name(), w.Config().FireMode)
	fmt.Fprintf(tw, "ammo\t%d in magazine, %d reserve\n", comp.AmmoInMagazine(), comp.AmmoInReserve())
	fmt.Fprintf(tw, "shots\t%d (%d hit, %.1f%%)\n", t.shots, t.hits, accuracy)
	fmt.Fprintf(tw, "headshots\t%d\n", t.headshots)
	fmt.Fprintf(tw, "dry fires\t%d\n", t.dryFires)
	fmt.Fprintf(tw, "damage\t%.1f\n", t.damage)
	fmt.Fprintf(tw, "target\t%s %.1f/%.1f hp, %d kills\n", target.ID(), target.Health().Current(), target.Health().Max(), t.kills)
	fmt.Fprintf(tw, "wallet\t%d\n", shooter.Wallet().Balance())
}
