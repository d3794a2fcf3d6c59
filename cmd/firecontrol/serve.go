package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	ws "github.com/gorilla/websocket"
	"github.com/spf13/cobra"

	"github.com/gunline/firecontrol/internal/combat"
	"github.com/gunline/firecontrol/internal/config"
	"github.com/gunline/firecontrol/internal/health"
	"github.com/gunline/firecontrol/internal/replication"
	"github.com/gunline/firecontrol/internal/scheduler"
	"github.com/gunline/firecontrol/internal/weapon"
	"github.com/gunline/firecontrol/internal/world"
	"github.com/gunline/firecontrol/pkg/core"
)

type serveOptions struct {
	dummies int
}

func newServeCmd(a *app) *cobra.Command {
	opts := serveOptions{}
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the authoritative websocket server",
		Long: "Runs the simulation loop and accepts players over websocket. " +
			"Each player gets a pawn and the configured loadout; weapon IDs " +
			"are <player>/<weapon>; only the equipped weapon fires, and clients " +
			"switch it with server_equip. Every session event is recorded to the " +
			"configured storage backend.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd, a, opts)
		},
	}
	cmd.Flags().IntVar(&opts.dummies, "dummies", 3, "practice dummies spawned on the range")
	return cmd
}

// arena is the server-side world. Every method runs on the loop.
type arena struct {
	app     *app
	loop    *scheduler.Loop
	world   *world.World
	damage  *health.System
	server  *replication.Server
	pipe    *pipeline
	players map[string]*combat.Component
}

func (ar *arena) spawnDummies(n int) {
	for i := range n {
		loc := core.Vec3{1000, float64(i-n/2) * 150, world.DefaultEyeHeight - 68}
		d := world.NewDummy(ar.world, fmt.Sprintf("dummy-%d", i+1), loc, health.DefaultConfig(), ar.app.logger)
		ar.pipe.recorder.WatchHealth(d.Health())
	}
}

func (ar *arena) peer(id string, joined bool) {
	if joined {
		ar.join(id)
		return
	}
	ar.leave(id)
}

// equip switches the player's loadout to w, which the client equipped.
func (ar *arena) equip(id string, w *weapon.Weapon) {
	comp, ok := ar.players[id]
	if !ok {
		return
	}
	for slot, owned := range comp.Loadout() {
		if owned == w {
			comp.EquipWeaponSlot(slot)
			return
		}
	}
}

func (ar *arena) join(id string) {
	if _, ok := ar.players[id]; ok {
		return
	}
	logger := ar.app.logger.With("player", id)
	hc := health.DefaultConfig()
	spawn := core.Vec3{0, float64(len(ar.players)) * 200, 0}
	pawn := world.NewPawn(id, spawn, world.PawnConfig{
		Sockets: map[string]core.Vec3{"Muzzle": {0, 0, world.DefaultEyeHeight}},
		Health:  &hc,
	}, logger)
	ar.world.Add(&world.Body{Actor: pawn, Shapes: world.HumanoidShapes()})
	world.NewPlayerController(id, false).Possess(pawn)
	ar.pipe.recorder.WatchHealth(pawn.Health())

	factory := func(name string, owner core.Pawn) (*weapon.Weapon, error) {
		cfg, err := config.GetWeaponConfig(name)
		if err != nil {
			return nil, err
		}
		wpn, err := weapon.New(cfg, weapon.Dependencies{
			Scheduler: ar.loop,
			Collision: ar.world,
			ViewPoint: ar.world,
			Damage:    ar.damage,
			FX:        ar.server,
			Logger:    logger,
		}, weapon.WithOwner(owner), weapon.WithID(id+"/"+name))
		if err != nil {
			return nil, err
		}
		if err := ar.server.RegisterWeapon(wpn, id); err != nil {
			return nil, err
		}
		ar.pipe.recorder.WatchWeapon(wpn)
		return wpn, nil
	}

	comp := combat.New(pawn, config.GetLoadoutConfig(), factory, logger)
	if err := comp.InitializeLoadout(); err != nil {
		logger.Error("Failed to spawn loadout", "error", err)
	}
	ar.players[id] = comp
	logger.Info("Player joined", "weapons", len(comp.Loadout()))
}

func (ar *arena) leave(id string) {
	comp, ok := ar.players[id]
	if !ok {
		return
	}
	for _, wpn := range comp.Loadout() {
		ar.server.UnregisterWeapon(wpn.ID())
		wpn.Destroy()
	}
	ar.world.Remove(id)
	delete(ar.players, id)
	ar.app.logger.Info("Player left", "player", id)
}

func runServe(cmd *cobra.Command, a *app, opts serveOptions) (err error) {
	srvCfg, err := config.GetServerConfig()
	if err != nil {
		return err
	}
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	loop := scheduler.New(a.logger)
	server, err := replication.NewServer(loop, a.logger)
	if err != nil {
		return err
	}
	p, err := newPipeline(ctx, a, loop)
	if err != nil {
		return err
	}
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), drainTimeout)
		defer cancel()
		err = errors.Join(err, p.close(closeCtx))
	}()

	ar := &arena{
		app:     a,
		loop:    loop,
		world:   world.New(a.logger),
		damage:  health.NewSystem(a.logger),
		server:  server,
		pipe:    p,
		players: make(map[string]*combat.Component),
	}
	ar.spawnDummies(opts.dummies)
	server.OnPeer(ar.peer)
	server.OnEquip(ar.equip)

	tickRate := int(time.Second / max(srvCfg.TickRate, time.Millisecond))
	if _, err := p.startSession(config.GetString("session.name"), config.GetString("session.map"), tickRate); err != nil {
		return err
	}

	upgrader := ws.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     func(*http.Request) bool { return true },
	}
	mux := http.NewServeMux()
	mux.Handle(srvCfg.Path, server.Handler(upgrader, srvCfg.Secret))
	httpSrv := &http.Server{
		Addr:              srvCfg.Listen,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		a.logger.Info("Listening", "addr", srvCfg.Listen, "path", srvCfg.Path)
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	loopCtx, cancelLoop := context.WithCancel(ctx)
	defer cancelLoop()
	go func() {
		if err, ok := <-serveErr; ok {
			a.logger.Error("HTTP server failed", "error", err)
			cancelLoop()
		}
	}()
	fmt.Fprintf(cmd.OutOrStdout(), "serving on %s%s (log file: %s)\n", srvCfg.Listen, srvCfg.Path, a.logFilePath)
	_ = loop.Run(loopCtx, srvCfg.TickRate)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		a.logger.Warn("HTTP shutdown failed", "error", err)
	}
	a.logger.Info("Server stopped", "players", len(ar.players))
	return nil
}
