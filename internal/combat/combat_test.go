package combat

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gunline/firecontrol/internal/scheduler"
	"github.com/gunline/firecontrol/internal/weapon"
	"github.com/gunline/firecontrol/pkg/core"
)

type missWorld struct{}

func (missWorld) LineTrace(_, _ core.Vec3, _ core.TraceChannel, _ []string) core.TraceHit {
	return core.TraceHit{}
}

type player struct {
	rotation core.Rotator
	pawn     core.Actor
}

func (c *player) ID() string                        { return "pc" }
func (c *player) ControlRotation() core.Rotator     { return c.rotation }
func (c *player) SetControlRotation(r core.Rotator) { c.rotation = r }
func (c *player) IsLocalController() bool           { return true }
func (c *player) Pawn() core.Actor                  { return c.pawn }

type character struct {
	ctrl *player
}

func (p *character) ID() string                  { return "hero" }
func (p *character) Location() core.Vec3         { return core.Vec3{} }
func (p *character) Valid() bool                 { return true }
func (p *character) Controller() core.Controller { return p.ctrl }

func newCharacter() *character {
	p := &character{ctrl: &player{}}
	p.ctrl.pawn = p
	return p
}

func armory(loop *scheduler.Loop) Factory {
	defs := map[string]weapon.Config{}

	rifle := weapon.DefaultConfig()
	defs["rifle"] = rifle

	pistol := weapon.DefaultConfig()
	pistol.Name = "pistol"
	pistol.TypeTag = "Weapon.Pistol"
	pistol.FireMode = core.SemiAuto
	pistol.MagazineCapacity = 12
	pistol.ReserveAmmo = 24
	defs["pistol"] = pistol

	sniper := weapon.DefaultConfig()
	sniper.Name = "sniper"
	sniper.TypeTag = "Weapon.Sniper"
	sniper.FireMode = core.SemiAuto
	sniper.MagazineCapacity = 5
	defs["sniper"] = sniper

	return func(name string, owner core.Pawn) (*weapon.Weapon, error) {
		cfg, ok := defs[name]
		if !ok {
			return nil, fmt.Errorf("unknown weapon %q", name)
		}
		return weapon.New(cfg, weapon.Dependencies{Scheduler: loop, Collision: missWorld{}}, weapon.WithOwner(owner))
	}
}

func newComponent(t *testing.T, cfg Config) (*Component, *[]WeaponChange) {
	t.Helper()
	loop := scheduler.New(nil)
	c := New(newCharacter(), cfg, armory(loop), nil)
	var changes []WeaponChange
	c.OnCurrentWeaponChanged(func(ch WeaponChange) { changes = append(changes, ch) })
	return c, &changes
}

func TestInitializeLoadoutClampsInitialSlot(t *testing.T) {
	c, changes := newComponent(t, Config{Loadout: []string{"rifle", "", "pistol"}, InitialSlot: 7})
	require.NoError(t, c.InitializeLoadout())

	require.Len(t, c.Loadout(), 2)
	assert.Equal(t, 1, c.CurrentSlot())
	assert.Equal(t, "pistol", c.CurrentWeapon().Name())
	require.Len(t, *changes, 1)
	assert.Nil(t, (*changes)[0].Previous)
	assert.Equal(t, "Weapon.Pistol", (*changes)[0].TypeTag)
	assert.Equal(t, 1, (*changes)[0].Slot)
}

func TestInitializeLoadoutFallsBackToStarter(t *testing.T) {
	c, _ := newComponent(t, Config{StarterWeapon: "pistol"})
	require.NoError(t, c.InitializeLoadout())
	assert.Equal(t, "pistol", c.CurrentWeapon().Name())
	assert.Equal(t, 0, c.CurrentSlot())
}

func TestInitializeLoadoutErrors(t *testing.T) {
	c, _ := newComponent(t, Config{})
	assert.ErrorIs(t, c.InitializeLoadout(), ErrEmptyLoadout)

	c, _ = newComponent(t, Config{Loadout: []string{"railgun"}})
	assert.ErrorIs(t, c.InitializeLoadout(), ErrEmptyLoadout)
	assert.Nil(t, c.CurrentWeapon())
	assert.Equal(t, NoSlot, c.CurrentSlot())

	orphan := New(nil, Config{Loadout: []string{"rifle"}}, nil, nil)
	assert.ErrorIs(t, orphan.InitializeLoadout(), ErrNoOwner)
}

func TestInitializeLoadoutSkipsFailedSpawns(t *testing.T) {
	c, _ := newComponent(t, Config{Loadout: []string{"railgun", "rifle"}})
	require.NoError(t, c.InitializeLoadout())
	require.Len(t, c.Loadout(), 1)
	assert.Equal(t, "rifle", c.CurrentWeapon().Name())
}

func TestReinitializeDestroysOldWeapons(t *testing.T) {
	c, _ := newComponent(t, Config{Loadout: []string{"rifle", "pistol"}})
	require.NoError(t, c.InitializeLoadout())
	old := c.Loadout()

	require.NoError(t, c.InitializeLoadout())
	for _, w := range old {
		assert.False(t, w.Valid())
	}
	for _, w := range c.Loadout() {
		assert.True(t, w.Valid())
	}
}

func TestCycleWraps(t *testing.T) {
	c, changes := newComponent(t, Config{Loadout: []string{"rifle", "pistol", "sniper"}})
	require.NoError(t, c.InitializeLoadout())

	assert.True(t, c.EquipPreviousWeapon())
	assert.Equal(t, 2, c.CurrentSlot())
	assert.True(t, c.EquipNextWeapon())
	assert.Equal(t, 0, c.CurrentSlot())
	assert.True(t, c.EquipNextWeapon())
	assert.Equal(t, 1, c.CurrentSlot())

	last := (*changes)[len(*changes)-1]
	assert.Equal(t, "rifle", last.Previous.Name())
	assert.Equal(t, "pistol", last.Current.Name())
}

func TestCycleNeedsTwoWeapons(t *testing.T) {
	c, _ := newComponent(t, Config{Loadout: []string{"rifle"}})
	require.NoError(t, c.InitializeLoadout())
	assert.False(t, c.EquipNextWeapon())
	assert.False(t, c.EquipPreviousWeapon())
}

func TestEquipSameSlotDoesNotBroadcast(t *testing.T) {
	c, changes := newComponent(t, Config{Loadout: []string{"rifle", "pistol"}})
	require.NoError(t, c.InitializeLoadout())
	assert.True(t, c.EquipWeaponSlot(0))
	assert.Len(t, *changes, 1)
	assert.False(t, c.EquipWeaponSlot(2))
	assert.False(t, c.EquipWeaponSlot(-1))
}

func TestSwitchingStopsPreviousWeapon(t *testing.T) {
	c, _ := newComponent(t, Config{Loadout: []string{"rifle", "pistol"}})
	require.NoError(t, c.InitializeLoadout())
	rifle := c.CurrentWeapon()

	c.StartScope()
	c.StartFire()
	require.True(t, rifle.TriggerHeld())
	require.True(t, rifle.IsAiming())

	require.True(t, c.EquipNextWeapon())
	assert.False(t, rifle.TriggerHeld())
	assert.False(t, rifle.IsAiming())
	assert.False(t, c.IsScoping())
}

func TestHolsteredWeaponDropsReplicatedShots(t *testing.T) {
	c, _ := newComponent(t, Config{Loadout: []string{"rifle", "pistol"}})
	require.NoError(t, c.InitializeLoadout())
	rifle, pistol := c.Loadout()[0], c.Loadout()[1]
	require.Same(t, rifle, c.CurrentWeapon())
	assert.True(t, rifle.Active())
	assert.False(t, pistol.Active())

	req := core.ShotRequest{Direction: core.Vec3{1, 0, 0}, Seed: 3}
	pistol.HandleServerStartFire()
	assert.False(t, pistol.TriggerHeld())
	assert.False(t, pistol.HandleServerFireOnce(req))
	assert.Equal(t, 12, pistol.AmmoInMagazine())

	require.True(t, c.EquipNextWeapon())
	assert.False(t, rifle.Active())
	assert.True(t, pistol.Active())

	rifle.HandleServerStartFire()
	assert.False(t, rifle.HandleServerFireOnce(req))
	assert.Equal(t, 30, rifle.AmmoInMagazine())

	pistol.HandleServerStartFire()
	assert.True(t, pistol.HandleServerFireOnce(req))
	assert.Equal(t, 11, pistol.AmmoInMagazine())
}

func TestFireAndReloadRouteToCurrentWeapon(t *testing.T) {
	c, _ := newComponent(t, Config{Loadout: []string{"pistol"}})
	require.NoError(t, c.InitializeLoadout())

	c.StartFire()
	c.StopFire()
	assert.Equal(t, 11, c.AmmoInMagazine())
	assert.Equal(t, 24, c.AmmoInReserve())
	assert.Equal(t, 35, c.AmmoTotalAvailable())

	assert.True(t, c.Reload())
	assert.Equal(t, 12, c.AmmoInMagazine())
	assert.Equal(t, 23, c.AmmoInReserve())
}

func TestNoWeaponIsHarmless(t *testing.T) {
	c, _ := newComponent(t, Config{})
	c.StartFire()
	c.StopFire()
	c.StartScope()
	assert.False(t, c.Reload())
	assert.Equal(t, 0, c.AmmoTotalAvailable())
	assert.Empty(t, c.CurrentWeaponTypeTag())
	assert.False(t, c.IsScopeOverlayActive())
}

func TestScopeOverlay(t *testing.T) {
	c, _ := newComponent(t, Config{Loadout: []string{"rifle", "sniper"}, ScopeOverlayTag: "Weapon.Sniper"})
	require.NoError(t, c.InitializeLoadout())

	c.StartScope()
	assert.False(t, c.IsScopeOverlayActive())

	require.True(t, c.EquipNextWeapon())
	c.StartScope()
	assert.True(t, c.IsScopeOverlayActive())
	assert.True(t, c.CurrentWeapon().IsAiming())

	c.StopScope()
	assert.False(t, c.IsScopeOverlayActive())
	assert.False(t, c.CurrentWeapon().IsAiming())
}

func TestUnequipCurrentWeapon(t *testing.T) {
	c, changes := newComponent(t, Config{Loadout: []string{"rifle", "pistol"}})
	require.NoError(t, c.InitializeLoadout())
	rifle := c.CurrentWeapon()

	c.UnequipCurrentWeapon(true)
	assert.False(t, rifle.Valid())
	assert.Nil(t, c.CurrentWeapon())
	assert.Equal(t, NoSlot, c.CurrentSlot())
	require.Len(t, c.Loadout(), 1)

	last := (*changes)[len(*changes)-1]
	assert.Equal(t, rifle, last.Previous)
	assert.Nil(t, last.Current)
	assert.Equal(t, NoSlot, last.Slot)

	assert.False(t, c.EquipNextWeapon(), "one weapon left")
	assert.True(t, c.EquipWeaponSlot(0))
	assert.Equal(t, "pistol", c.CurrentWeapon().Name())

	pistol := c.CurrentWeapon()
	c.UnequipCurrentWeapon(false)
	assert.True(t, pistol.Valid())
	assert.Empty(t, c.Loadout())
}

func TestEquipSpawnedWeaponReplacesLoadout(t *testing.T) {
	loop := scheduler.New(nil)
	factory := armory(loop)
	c := New(newCharacter(), Config{Loadout: []string{"rifle", "pistol"}}, factory, nil)
	require.NoError(t, c.InitializeLoadout())
	old := c.Loadout()

	sniper, err := factory("sniper", nil)
	require.NoError(t, err)
	require.True(t, c.EquipSpawnedWeapon(sniper))

	for _, w := range old {
		assert.False(t, w.Valid())
	}
	assert.Equal(t, []*weapon.Weapon{sniper}, c.Loadout())
	assert.Equal(t, 0, c.CurrentSlot())
	assert.NotNil(t, sniper.Owner())
	assert.True(t, c.EquipSpawnedWeapon(sniper), "already equipped")

	assert.False(t, c.EquipSpawnedWeapon(nil))
	assert.False(t, c.EquipWeapon("railgun"))
	assert.True(t, c.EquipWeapon("pistol"))
	assert.False(t, sniper.Valid())
}

func TestFactoryErrorIsWrapped(t *testing.T) {
	boom := errors.New("boom")
	c := New(newCharacter(), Config{Loadout: []string{"x"}}, func(string, core.Pawn) (*weapon.Weapon, error) {
		return nil, boom
	}, nil)
	err := c.InitializeLoadout()
	assert.ErrorIs(t, err, ErrEmptyLoadout)
	assert.ErrorIs(t, err, boom)
}
