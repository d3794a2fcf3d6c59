package config

import (
	"errors"
	"fmt"
	"maps"
	"slices"
	"time"

	"github.com/spf13/viper"

	"github.com/gunline/firecontrol/internal/combat"
	"github.com/gunline/firecontrol/internal/weapon"
	"github.com/gunline/firecontrol/pkg/core"
)

// FileName is the config file looked up in the config directory.
const FileName = "firecontrol.cfg.json"

var ErrUnknownWeapon = errors.New("unknown weapon")

// MemoryConfig holds in-memory/JSON storage backend settings
type MemoryConfig struct {
	OutputDir      string `json:"outputDir" mapstructure:"outputDir"`
	CompressOutput bool   `json:"compressOutput" mapstructure:"compressOutput"`
}

// SQLiteConfig holds the in-memory SQLite backend settings.
type SQLiteConfig struct {
	Path         string        `json:"path" mapstructure:"path"`
	DumpInterval time.Duration `json:"dumpInterval" mapstructure:"dumpInterval"`
}

// DBConfig holds PostgreSQL connection settings.
type DBConfig struct {
	Host     string `json:"host" mapstructure:"host"`
	Port     string `json:"port" mapstructure:"port"`
	Username string `json:"username" mapstructure:"username"`
	Password string `json:"password" mapstructure:"password"`
	Database string `json:"database" mapstructure:"database"`
}

// WebSocketConfig points at a remote event collector.
type WebSocketConfig struct {
	URL    string `json:"url" mapstructure:"url"`
	Secret string `json:"secret" mapstructure:"secret"`
}

// StorageConfig selects and configures the event storage backend.
type StorageConfig struct {
	Type      string          `json:"type" mapstructure:"type"`
	Memory    MemoryConfig    `json:"memory" mapstructure:"memory"`
	SQLite    SQLiteConfig    `json:"sqlite" mapstructure:"sqlite"`
	Postgres  DBConfig        `json:"postgres" mapstructure:"postgres"`
	WebSocket WebSocketConfig `json:"websocket" mapstructure:"websocket"`
}

// OTelConfig configures the OpenTelemetry log and metric providers.
type OTelConfig struct {
	Enabled      bool          `json:"enabled" mapstructure:"enabled"`
	ServiceName  string        `json:"serviceName" mapstructure:"serviceName"`
	BatchTimeout time.Duration `json:"batchTimeout" mapstructure:"batchTimeout"`
	Endpoint     string        `json:"endpoint" mapstructure:"endpoint"`
	Insecure     bool          `json:"insecure" mapstructure:"insecure"`
}

// InfluxConfig configures the combat metrics writer.
type InfluxConfig struct {
	Enabled    bool   `json:"enabled" mapstructure:"enabled"`
	Host       string `json:"host" mapstructure:"host"`
	Port       string `json:"port" mapstructure:"port"`
	Protocol   string `json:"protocol" mapstructure:"protocol"`
	Token      string `json:"token" mapstructure:"token"`
	Org        string `json:"org" mapstructure:"org"`
	Bucket     string `json:"bucket" mapstructure:"bucket"`
	BackupPath string `json:"backupPath" mapstructure:"backupPath"`
}

// ServerConfig configures the authoritative replication server.
type ServerConfig struct {
	Listen   string        `json:"listen" mapstructure:"listen"`
	Path     string        `json:"path" mapstructure:"path"`
	Secret   string        `json:"secret" mapstructure:"secret"`
	TickRate time.Duration `json:"tickRate" mapstructure:"tickRate"`
}

// UploadConfig points at the stats server finished recordings go to.
type UploadConfig struct {
	Enabled bool   `json:"enabled" mapstructure:"enabled"`
	URL     string `json:"url" mapstructure:"url"`
	APIKey  string `json:"apiKey" mapstructure:"apiKey"`
	Tag     string `json:"tag" mapstructure:"tag"`
}

// Load reads configuration from JSON file and sets default values.
// configDir is the directory containing the config file.
func Load(configDir string) error {
	viper.SetDefault("logLevel", "info")
	viper.SetDefault("logsDir", "./logs")

	viper.SetDefault("session.name", "drill")
	viper.SetDefault("session.map", "range")

	viper.SetDefault("server.listen", ":7777")
	viper.SetDefault("server.path", "/ws")
	viper.SetDefault("server.secret", "")
	viper.SetDefault("server.tickRate", "16ms")

	viper.SetDefault("storage.type", "memory")
	viper.SetDefault("storage.memory.outputDir", "./recordings")
	viper.SetDefault("storage.memory.compressOutput", true)
	viper.SetDefault("storage.sqlite.path", "./recordings/firecontrol.db")
	viper.SetDefault("storage.sqlite.dumpInterval", "3m")
	viper.SetDefault("storage.postgres.host", "localhost")
	viper.SetDefault("storage.postgres.port", "5432")
	viper.SetDefault("storage.postgres.username", "postgres")
	viper.SetDefault("storage.postgres.password", "postgres")
	viper.SetDefault("storage.postgres.database", "firecontrol")
	viper.SetDefault("storage.websocket.url", "ws://localhost:5000/ingest")
	viper.SetDefault("storage.websocket.secret", "")

	viper.SetDefault("influx.enabled", false)
	viper.SetDefault("influx.host", "localhost")
	viper.SetDefault("influx.port", "8086")
	viper.SetDefault("influx.protocol", "http")
	viper.SetDefault("influx.token", "supersecrettoken")
	viper.SetDefault("influx.org", "firecontrol")
	viper.SetDefault("influx.bucket", "combat_metrics")
	viper.SetDefault("influx.backupPath", "./logs/influx_backup.log.gz")

	viper.SetDefault("upload.enabled", false)
	viper.SetDefault("upload.url", "http://localhost:5000")
	viper.SetDefault("upload.apiKey", "")
	viper.SetDefault("upload.tag", "")

	viper.SetDefault("status.path", "./logs/status.json")
	viper.SetDefault("status.interval", "1s")

	viper.SetDefault("graylog.enabled", false)
	viper.SetDefault("graylog.address", "localhost:12201")

	viper.SetDefault("otel.enabled", false)
	viper.SetDefault("otel.serviceName", "firecontrol")
	viper.SetDefault("otel.batchTimeout", "5s")
	viper.SetDefault("otel.endpoint", "")
	viper.SetDefault("otel.insecure", true)

	viper.SetDefault("player.loadout", []string{"rifle"})
	viper.SetDefault("player.starterWeapon", "rifle")
	viper.SetDefault("player.initialSlot", 0)
	viper.SetDefault("player.scopeOverlayTag", "Weapon.Sniper")

	viper.SetConfigName(FileName)
	viper.AddConfigPath(configDir)
	viper.SetConfigType("json")

	err := viper.ReadInConfig()
	if err != nil {
		return fmt.Errorf("error reading config file: %w", err)
	}

	return nil
}

// GetString returns a string config value.
func GetString(key string) string {
	return viper.GetString(key)
}

// GetInt returns an int config value.
func GetInt(key string) int {
	return viper.GetInt(key)
}

// GetBool returns a bool config value.
func GetBool(key string) bool {
	return viper.GetBool(key)
}

// GetDuration returns a duration config value such as "350ms".
func GetDuration(key string) time.Duration {
	return viper.GetDuration(key)
}

func GetStorageConfig() (StorageConfig, error) {
	var cfg StorageConfig
	if err := viper.UnmarshalKey("storage", &cfg); err != nil {
		return cfg, fmt.Errorf("decode storage config: %w", err)
	}
	return cfg, nil
}

func GetOTelConfig() (OTelConfig, error) {
	var cfg OTelConfig
	if err := viper.UnmarshalKey("otel", &cfg); err != nil {
		return cfg, fmt.Errorf("decode otel config: %w", err)
	}
	return cfg, nil
}

func GetInfluxConfig() (InfluxConfig, error) {
	var cfg InfluxConfig
	if err := viper.UnmarshalKey("influx", &cfg); err != nil {
		return cfg, fmt.Errorf("decode influx config: %w", err)
	}
	return cfg, nil
}

func GetServerConfig() (ServerConfig, error) {
	var cfg ServerConfig
	if err := viper.UnmarshalKey("server", &cfg); err != nil {
		return cfg, fmt.Errorf("decode server config: %w", err)
	}
	return cfg, nil
}

func GetUploadConfig() (UploadConfig, error) {
	var cfg UploadConfig
	if err := viper.UnmarshalKey("upload", &cfg); err != nil {
		return cfg, fmt.Errorf("decode upload config: %w", err)
	}
	return cfg, nil
}

// GetLoadoutConfig returns the player loadout.
func GetLoadoutConfig() combat.Config {
	return combat.Config{
		Loadout:         viper.GetStringSlice("player.loadout"),
		StarterWeapon:   viper.GetString("player.starterWeapon"),
		InitialSlot:     viper.GetInt("player.initialSlot"),
		ScopeOverlayTag: viper.GetString("player.scopeOverlayTag"),
	}
}

// WeaponNames lists the configured weapon definitions, sorted. The built-in
// rifle is always available.
func WeaponNames() []string {
	names := map[string]struct{}{weapon.DefaultConfig().Name: {}}
	for name := range viper.GetStringMap("weapons") {
		names[name] = struct{}{}
	}
	return slices.Sorted(maps.Keys(names))
}

// GetWeaponConfig decodes the named weapon on top of the rifle defaults.
// Weapon names are case-insensitive.
func GetWeaponConfig(name string) (weapon.Config, error) {
	base := weapon.DefaultConfig()
	key := "weapons." + name
	if !viper.IsSet(key) {
		if name == base.Name {
			return base, nil
		}
		return weapon.Config{}, fmt.Errorf("%w: %s", ErrUnknownWeapon, name)
	}

	def := fromWeaponConfig(base)
	if err := viper.UnmarshalKey(key, &def); err != nil {
		return weapon.Config{}, fmt.Errorf("decode weapon %s: %w", name, err)
	}
	cfg, err := def.toWeaponConfig(name)
	if err != nil {
		return weapon.Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return weapon.Config{}, err
	}
	return cfg, nil
}

// GetWeaponConfigs decodes every configured weapon keyed by name.
func GetWeaponConfigs() (map[string]weapon.Config, error) {
	out := make(map[string]weapon.Config)
	var errs []error
	for _, name := range WeaponNames() {
		cfg, err := GetWeaponConfig(name)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		out[name] = cfg
	}
	return out, errors.Join(errs...)
}

// weaponDef is the file representation of weapon.Config.
type weaponDef struct {
	TypeTag             string             `mapstructure:"typeTag"`
	Damage              float64            `mapstructure:"damage"`
	DamageType          string             `mapstructure:"damageType"`
	MaxRange            float64            `mapstructure:"maxRange"`
	RoundsPerMinute     float64            `mapstructure:"roundsPerMinute"`
	FireMode            string             `mapstructure:"fireMode"`
	SpreadAngle         float64            `mapstructure:"spreadAngle"`
	AimSpreadMultiplier float64            `mapstructure:"aimSpreadMultiplier"`
	MagazineCapacity    int                `mapstructure:"magazineCapacity"`
	ReserveAmmo         int                `mapstructure:"reserveAmmo"`
	InfiniteAmmo        bool               `mapstructure:"infiniteAmmo"`
	SprayResetDelay     time.Duration      `mapstructure:"sprayResetDelay"`
	MuzzleSocket        string             `mapstructure:"muzzleSocket"`
	Multipliers         map[string]float64 `mapstructure:"multipliers"`
	Recoil              recoilDef          `mapstructure:"recoil"`
}

type recoilDef struct {
	Enabled             bool        `mapstructure:"enabled"`
	BasePitch           float64     `mapstructure:"basePitch"`
	BaseYaw             float64     `mapstructure:"baseYaw"`
	Pattern             [][]float64 `mapstructure:"pattern"`
	Overflow            string      `mapstructure:"overflow"`
	RandomPitch         float64     `mapstructure:"randomPitch"`
	RandomYaw           float64     `mapstructure:"randomYaw"`
	AimJitterMultiplier float64     `mapstructure:"aimJitterMultiplier"`
	PitchMultiplier     float64     `mapstructure:"pitchMultiplier"`
	YawMultiplier       float64     `mapstructure:"yawMultiplier"`
	AimMultiplier       float64     `mapstructure:"aimMultiplier"`
	MaxPitch            float64     `mapstructure:"maxPitch"`
	MaxYaw              float64     `mapstructure:"maxYaw"`
	KickSpeed           float64     `mapstructure:"kickSpeed"`
	ReturnSpeed         float64     `mapstructure:"returnSpeed"`
	HoldWhileFiring     bool        `mapstructure:"holdWhileFiring"`
	SettleThreshold     float64     `mapstructure:"settleThreshold"`
	MinViewPitch        float64     `mapstructure:"minViewPitch"`
	MaxViewPitch        float64     `mapstructure:"maxViewPitch"`
}

func fromWeaponConfig(c weapon.Config) weaponDef {
	r := c.Recoil
	return weaponDef{
		TypeTag:             c.TypeTag,
		Damage:              c.Damage,
		DamageType:          c.DamageType,
		MaxRange:            c.MaxRange,
		RoundsPerMinute:     c.RoundsPerMinute,
		FireMode:            c.FireMode.String(),
		SpreadAngle:         c.SpreadAngle,
		AimSpreadMultiplier: c.AimSpreadMultiplier,
		MagazineCapacity:    c.MagazineCapacity,
		ReserveAmmo:         c.ReserveAmmo,
		InfiniteAmmo:        c.InfiniteAmmo,
		SprayResetDelay:     c.SprayResetDelay,
		MuzzleSocket:        c.MuzzleSocket,
		Recoil: recoilDef{
			Enabled:             r.EnableCameraRecoil,
			BasePitch:           r.BasePitch,
			BaseYaw:             r.BaseYaw,
			Overflow:            r.Overflow.String(),
			RandomPitch:         r.RandomPitch,
			RandomYaw:           r.RandomYaw,
			AimJitterMultiplier: r.AimJitterMultiplier,
			PitchMultiplier:     r.PitchMultiplier,
			YawMultiplier:       r.YawMultiplier,
			AimMultiplier:       r.AimMultiplier,
			MaxPitch:            r.MaxPitch,
			MaxYaw:              r.MaxYaw,
			KickSpeed:           r.KickSpeed,
			ReturnSpeed:         r.ReturnSpeed,
			HoldWhileFiring:     r.HoldWhileFiring,
			SettleThreshold:     r.SettleThreshold,
			MinViewPitch:        r.MinViewPitch,
			MaxViewPitch:        r.MaxViewPitch,
		},
	}
}

func (d weaponDef) toWeaponConfig(name string) (weapon.Config, error) {
	mode, err := core.ParseFireMode(d.FireMode)
	if err != nil {
		return weapon.Config{}, fmt.Errorf("%w: %s: %w", weapon.ErrInvalidConfig, name, err)
	}
	overflow, err := weapon.ParsePatternOverflow(d.Recoil.Overflow)
	if err != nil {
		return weapon.Config{}, fmt.Errorf("%s: %w", name, err)
	}

	table := core.DefaultMultiplierTable()
	for zoneName, m := range d.Multipliers {
		if zoneName == "default" {
			table.Default = m
			continue
		}
		zone, err := core.ParseHitZone(zoneName)
		if err != nil {
			return weapon.Config{}, fmt.Errorf("%w: %s: %w", weapon.ErrInvalidConfig, name, err)
		}
		table.Multipliers[zone] = m
	}

	pattern := make([]core.Rotator, 0, len(d.Recoil.Pattern))
	for i, p := range d.Recoil.Pattern {
		if len(p) != 2 {
			return weapon.Config{}, fmt.Errorf("%w: %s: recoil pattern entry %d needs [pitch, yaw]", weapon.ErrInvalidConfig, name, i)
		}
		pattern = append(pattern, core.Rotator{Pitch: p[0], Yaw: p[1]})
	}

	r := d.Recoil
	return weapon.Config{
		Name:                name,
		TypeTag:             d.TypeTag,
		Damage:              d.Damage,
		DamageType:          d.DamageType,
		MaxRange:            d.MaxRange,
		RoundsPerMinute:     d.RoundsPerMinute,
		FireMode:            mode,
		SpreadAngle:         d.SpreadAngle,
		AimSpreadMultiplier: d.AimSpreadMultiplier,
		MagazineCapacity:    d.MagazineCapacity,
		ReserveAmmo:         d.ReserveAmmo,
		InfiniteAmmo:        d.InfiniteAmmo,
		SprayResetDelay:     d.SprayResetDelay,
		MuzzleSocket:        d.MuzzleSocket,
		Multipliers:         table,
		Recoil: weapon.RecoilConfig{
			EnableCameraRecoil:  r.Enabled,
			BasePitch:           r.BasePitch,
			BaseYaw:             r.BaseYaw,
			Pattern:             pattern,
			Overflow:            overflow,
			RandomPitch:         r.RandomPitch,
			RandomYaw:           r.RandomYaw,
			AimJitterMultiplier: r.AimJitterMultiplier,
			PitchMultiplier:     r.PitchMultiplier,
			YawMultiplier:       r.YawMultiplier,
			AimMultiplier:       r.AimMultiplier,
			MaxPitch:            r.MaxPitch,
			MaxYaw:              r.MaxYaw,
			KickSpeed:           r.KickSpeed,
			ReturnSpeed:         r.ReturnSpeed,
			HoldWhileFiring:     r.HoldWhileFiring,
			SettleThreshold:     r.SettleThreshold,
			MinViewPitch:        r.MinViewPitch,
			MaxViewPitch:        r.MaxViewPitch,
		},
	}, nil
}
