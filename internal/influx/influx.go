// Package influx writes combat metrics to InfluxDB, or to a gzipped
// line-protocol backup file when the server cannot be reached.
package influx

import (
	"compress/gzip"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	influxdb2_api "github.com/influxdata/influxdb-client-go/v2/api"
	influxdb2_write "github.com/influxdata/influxdb-client-go/v2/api/write"
	"github.com/influxdata/influxdb-client-go/v2/domain"
	"github.com/rs/zerolog"

	"github.com/gunline/firecontrol/internal/config"
	"github.com/gunline/firecontrol/pkg/core"
)

// retention applied to buckets this manager creates
const retentionSeconds = 60 * 60 * 24 * 90

var ErrDisabled = errors.New("influx disabled")

// Manager handles InfluxDB connections and writes.
type Manager struct {
	cfg    config.InfluxConfig
	Logger zerolog.Logger

	mu         sync.Mutex
	client     influxdb2.Client
	writer     influxdb2_api.WriteAPI
	backupFile *os.File
	backup     *gzip.Writer
	online     bool
}

// NewManager creates an unconnected manager.
func NewManager(cfg config.InfluxConfig, log zerolog.Logger) *Manager {
	return &Manager{cfg: cfg, Logger: log}
}

// Online reports whether points go to the server rather than the backup.
func (m *Manager) Online() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.online
}

// Connect pings the server and prepares the bucket, falling back to the
// backup file when the server does not answer.
func (m *Manager) Connect(ctx context.Context) error {
	if !m.cfg.Enabled {
		return ErrDisabled
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	url := fmt.Sprintf("%s://%s:%s", m.cfg.Protocol, m.cfg.Host, m.cfg.Port)
	m.client = influxdb2.NewClientWithOptions(url, m.cfg.Token,
		influxdb2.DefaultOptions().
			SetBatchSize(2500).
			SetFlushInterval(1000))

	running, err := m.client.Ping(ctx)
	if err != nil || !running {
		m.Logger.Warn().Err(err).Str("url", url).Str("backupPath", m.cfg.BackupPath).
			Msg("InfluxDB unreachable, writing to backup file")
		m.client.Close()
		m.client = nil
		return m.openBackup()
	}

	if err := m.ensureBucket(ctx); err != nil {
		return err
	}
	m.writer = m.client.WriteAPI(m.cfg.Org, m.cfg.Bucket)
	go func(errs <-chan error) {
		for writeErr := range errs {
			m.Logger.Error().Err(writeErr).Str("bucket", m.cfg.Bucket).Msg("Error sending data to InfluxDB")
		}
	}(m.writer.Errors())
	m.online = true
	m.Logger.Info().Str("bucket", m.cfg.Bucket).Msg("InfluxDB client initialized")
	return nil
}

func (m *Manager) openBackup() error {
	if m.backup != nil {
		return nil
	}
	if m.cfg.BackupPath == "" {
		return errors.New("influx backup path not set")
	}
	if err := os.MkdirAll(filepath.Dir(m.cfg.BackupPath), 0755); err != nil {
		return fmt.Errorf("error creating backup directory: %w", err)
	}
	file, err := os.OpenFile(m.cfg.BackupPath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("error creating backup file: %w", err)
	}
	m.backupFile = file
	m.backup = gzip.NewWriter(file)
	return nil
}

func (m *Manager) ensureBucket(ctx context.Context) error {
	orgs := m.client.OrganizationsAPI()
	org, err := orgs.FindOrganizationByName(ctx, m.cfg.Org)
	if err != nil {
		m.Logger.Info().Str("org", m.cfg.Org).Msg("Organization not found, creating")
		if org, err = orgs.CreateOrganizationWithName(ctx, m.cfg.Org); err != nil {
			return fmt.Errorf("create organization %s: %w", m.cfg.Org, err)
		}
	}

	buckets := m.client.BucketsAPI()
	if _, err := buckets.FindBucketByName(ctx, m.cfg.Bucket); err == nil {
		return nil
	}
	m.Logger.Info().Str("bucket", m.cfg.Bucket).Msg("Bucket not found, creating")
	rule := domain.RetentionRuleTypeExpire
	if _, err := buckets.CreateBucketWithName(ctx, org, m.cfg.Bucket, domain.RetentionRule{
		Type:         &rule,
		EverySeconds: retentionSeconds,
	}); err != nil {
		return fmt.Errorf("create bucket %s: %w", m.cfg.Bucket, err)
	}
	return nil
}

// WritePoint sends point to the server or appends it to the backup file.
func (m *Manager) WritePoint(point *influxdb2_write.Point) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.online {
		m.writer.WritePoint(point)
		return nil
	}
	if m.backup == nil {
		return errors.New("influxDB client not initialized and backup writer not available")
	}
	line := influxdb2_write.PointToLineProtocol(point, time.Nanosecond)
	if _, err := m.backup.Write([]byte(line + "\n")); err != nil {
		return fmt.Errorf("error writing to InfluxDB backup file: %w", err)
	}
	return nil
}

func (m *Manager) WriteShot(e core.ShotEvent) error { return m.WritePoint(ShotPoint(e)) }
func (m *Manager) WriteHit(e core.HitEvent) error   { return m.WritePoint(HitPoint(e)) }
func (m *Manager) WriteKill(e core.KillEvent) error { return m.WritePoint(KillPoint(e)) }

// Close flushes pending points and closes the backup file.
func (m *Manager) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.writer != nil {
		m.writer.Flush()
	}
	if m.client != nil {
		m.client.Close()
		m.client = nil
	}
	m.online = false

	var err error
	if m.backup != nil {
		err = errors.Join(m.backup.Close(), m.backupFile.Close())
		m.backup = nil
		m.backupFile = nil
	}
	return err
}

// ShotPoint is measurement "shot" tagged by weapon and shooter.
func ShotPoint(e core.ShotEvent) *influxdb2_write.Point {
	return influxdb2.NewPoint("shot",
		tags("session", e.SessionID, "weapon", e.WeaponName, "shooter", e.ShooterID, "fireMode", e.FireMode),
		map[string]any{
			"hit":        e.Hit,
			"burstIndex": e.BurstIndex,
			"range":      e.End.Sub(e.Origin).Len(),
		},
		e.Time)
}

// HitPoint is measurement "hit" tagged by weapon and zone.
func HitPoint(e core.HitEvent) *influxdb2_write.Point {
	return influxdb2.NewPoint("hit",
		tags("session", e.SessionID, "weapon", e.WeaponName, "shooter", e.ShooterID, "victim", e.VictimID, "zone", e.Zone),
		map[string]any{
			"damage":   e.Damage,
			"applied":  e.Applied,
			"distance": e.Distance,
		},
		e.Time)
}

// KillPoint is measurement "kill".
func KillPoint(e core.KillEvent) *influxdb2_write.Point {
	return influxdb2.NewPoint("kill",
		tags("session", e.SessionID, "weapon", e.WeaponName, "killer", e.KillerID, "victim", e.VictimID, "zone", e.Zone),
		map[string]any{
			"distance": e.Distance,
			"reward":   e.Reward,
		},
		e.Time)
}

// tags builds a tag set from key/value pairs, skipping empty values which
// line protocol cannot carry.
func tags(kv ...string) map[string]string {
	out := make(map[string]string, len(kv)/2)
	for i := 0; i+1 < len(kv); i += 2 {
		if kv[i+1] != "" {
			out[kv[i]] = kv[i+1]
		}
	}
	return out
}
