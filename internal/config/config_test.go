package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gunline/firecontrol/internal/weapon"
	"github.com/gunline/firecontrol/pkg/core"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, FileName), []byte(body), 0644))
	return dir
}

func TestLoad_WithValidConfigFile(t *testing.T) {
	t.Cleanup(viper.Reset)

	dir := writeConfig(t, `{
		"logLevel": "debug",
		"server": { "listen": ":9000", "tickRate": "8ms" },
		"storage": { "type": "sqlite", "sqlite": { "dumpInterval": "30s" } }
	}`)
	require.NoError(t, Load(dir))

	assert.Equal(t, "debug", GetString("logLevel"))

	srv, err := GetServerConfig()
	require.NoError(t, err)
	assert.Equal(t, ":9000", srv.Listen)
	assert.Equal(t, "/ws", srv.Path)
	assert.Equal(t, 8*time.Millisecond, srv.TickRate)

	st, err := GetStorageConfig()
	require.NoError(t, err)
	assert.Equal(t, "sqlite", st.Type)
	assert.Equal(t, 30*time.Second, st.SQLite.DumpInterval)
	assert.Equal(t, "./recordings/firecontrol.db", st.SQLite.Path)
}

func TestLoad_DefaultValues(t *testing.T) {
	t.Cleanup(viper.Reset)

	require.NoError(t, Load(writeConfig(t, `{}`)))

	assert.Equal(t, "info", GetString("logLevel"))
	assert.Equal(t, "./logs", GetString("logsDir"))
	assert.Equal(t, "drill", GetString("session.name"))
	assert.False(t, GetBool("graylog.enabled"))
	assert.Equal(t, "localhost:12201", GetString("graylog.address"))

	st, err := GetStorageConfig()
	require.NoError(t, err)
	assert.Equal(t, "memory", st.Type)
	assert.Equal(t, "./recordings", st.Memory.OutputDir)
	assert.True(t, st.Memory.CompressOutput)
	assert.Equal(t, 3*time.Minute, st.SQLite.DumpInterval)
	assert.Equal(t, "firecontrol", st.Postgres.Database)
	assert.Equal(t, "5432", st.Postgres.Port)

	ot, err := GetOTelConfig()
	require.NoError(t, err)
	assert.False(t, ot.Enabled)
	assert.Equal(t, "firecontrol", ot.ServiceName)
	assert.Equal(t, 5*time.Second, ot.BatchTimeout)
	assert.True(t, ot.Insecure)

	in, err := GetInfluxConfig()
	require.NoError(t, err)
	assert.False(t, in.Enabled)
	assert.Equal(t, "combat_metrics", in.Bucket)
	assert.Equal(t, "firecontrol", in.Org)

	srv, err := GetServerConfig()
	require.NoError(t, err)
	assert.Equal(t, 16*time.Millisecond, srv.TickRate)

	up, err := GetUploadConfig()
	require.NoError(t, err)
	assert.False(t, up.Enabled)
	assert.Equal(t, "http://localhost:5000", up.URL)
	assert.Equal(t, time.Second, GetDuration("status.interval"))

	lo := GetLoadoutConfig()
	assert.Equal(t, []string{"rifle"}, lo.Loadout)
	assert.Equal(t, "rifle", lo.StarterWeapon)
	assert.Equal(t, "Weapon.Sniper", lo.ScopeOverlayTag)
}

func TestLoad_MissingFile(t *testing.T) {
	t.Cleanup(viper.Reset)

	err := Load("/nonexistent/path")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "error reading config file")
}

func TestGetters(t *testing.T) {
	t.Cleanup(viper.Reset)
	viper.Set("testKey", "testValue")
	viper.Set("count", 42)
	viper.Set("flag", true)
	viper.Set("delay", "350ms")

	assert.Equal(t, "testValue", GetString("testKey"))
	assert.Equal(t, 42, GetInt("count"))
	assert.True(t, GetBool("flag"))
	assert.Equal(t, 350*time.Millisecond, GetDuration("delay"))
}

func TestWeaponDefinitions(t *testing.T) {
	t.Cleanup(viper.Reset)

	dir := writeConfig(t, `{
		"weapons": {
			"pistol": {
				"typeTag": "Weapon.Pistol",
				"damage": 25,
				"fireMode": "semi",
				"roundsPerMinute": 300,
				"magazineCapacity": 12,
				"sprayResetDelay": "200ms",
				"multipliers": { "head": 3, "default": 0.9 },
				"recoil": {
					"pattern": [[1.0, 0.1], [1.2, -0.2]],
					"overflow": "loop"
				}
			}
		}
	}`)
	require.NoError(t, Load(dir))

	assert.Equal(t, []string{"pistol", "rifle"}, WeaponNames())

	pistol, err := GetWeaponConfig("pistol")
	require.NoError(t, err)
	assert.Equal(t, "pistol", pistol.Name)
	assert.Equal(t, "Weapon.Pistol", pistol.TypeTag)
	assert.Equal(t, 25.0, pistol.Damage)
	assert.Equal(t, core.SemiAuto, pistol.FireMode)
	assert.Equal(t, 12, pistol.MagazineCapacity)
	assert.Equal(t, 200*time.Millisecond, pistol.SprayResetDelay)
	assert.Equal(t, 200*time.Millisecond, pistol.Interval())
	assert.Equal(t, 3.0, pistol.Multipliers.Resolve(core.ZoneHead))
	assert.Equal(t, 0.9, pistol.Multipliers.Resolve(core.ZoneLimb))
	assert.Equal(t, []core.Rotator{{Pitch: 1, Yaw: 0.1}, {Pitch: 1.2, Yaw: -0.2}}, pistol.Recoil.Pattern)
	assert.Equal(t, weapon.OverflowLoop, pistol.Recoil.Overflow)

	// unset fields keep the rifle defaults
	def := weapon.DefaultConfig()
	assert.Equal(t, def.ReserveAmmo, pistol.ReserveAmmo)
	assert.Equal(t, def.Recoil.MaxPitch, pistol.Recoil.MaxPitch)
	assert.True(t, pistol.Recoil.EnableCameraRecoil)

	rifle, err := GetWeaponConfig("rifle")
	require.NoError(t, err)
	assert.Equal(t, def.Name, rifle.Name)

	_, err = GetWeaponConfig("railgun")
	assert.ErrorIs(t, err, ErrUnknownWeapon)

	all, err := GetWeaponConfigs()
	require.NoError(t, err)
	assert.Len(t, all, 2)
}

func TestWeaponDefinitionErrors(t *testing.T) {
	t.Cleanup(viper.Reset)

	dir := writeConfig(t, `{
		"weapons": {
			"broken": { "fireMode": "burst" },
			"badzone": { "multipliers": { "tail": 2 } },
			"badpattern": { "recoil": { "pattern": [[1, 2, 3]] } },
			"negative": { "damage": -1 }
		}
	}`)
	require.NoError(t, Load(dir))

	for _, name := range []string{"broken", "badzone", "badpattern", "negative"} {
		_, err := GetWeaponConfig(name)
		assert.ErrorIs(t, err, weapon.ErrInvalidConfig, name)
	}

	all, err := GetWeaponConfigs()
	require.Error(t, err)
	assert.Contains(t, all, "rifle")
}
