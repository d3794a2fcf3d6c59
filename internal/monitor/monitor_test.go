package monitor

import (
	"encoding/json"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gunline/firecontrol/internal/session"
)

var at = time.Date(2026, 3, 1, 14, 0, 0, 0, time.UTC)

type queueBackend struct{ n int }

func (b queueBackend) Pending() int { return b.n }

type fixedWrites time.Duration

func (w fixedWrites) LastWriteDuration() time.Duration { return time.Duration(w) }

func quiet() *slog.Logger { return slog.New(slog.NewTextHandler(io.Discard, nil)) }

func TestSnapshot(t *testing.T) {
	sessions := session.NewContext(func() time.Time { return at })
	svc := NewService(Dependencies{
		Session: sessions,
		Backend: queueBackend{n: 7},
		Writes:  fixedWrites(1500 * time.Microsecond),
		Now:     func() time.Time { return at },
		Logger:  quiet(),
	})

	st := svc.Snapshot()
	assert.Nil(t, st.Session)
	assert.Equal(t, 7, st.PendingWrites)
	assert.InDelta(t, 1.5, st.LastWriteMs, 1e-9)

	s, err := sessions.Start("drill", "range", 60)
	require.NoError(t, err)
	st = svc.Snapshot()
	require.NotNil(t, st.Session)
	assert.Equal(t, s.ID, st.Session.ID)
}

func TestSnapshotWithoutQueue(t *testing.T) {
	svc := NewService(Dependencies{Backend: struct{}{}, Logger: quiet()})
	st := svc.Snapshot()
	assert.Zero(t, st.PendingWrites)
	assert.Zero(t, st.LastWriteMs)
}

func TestStatusFileLoop(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "status.json")
	svc := NewService(Dependencies{
		Backend:  queueBackend{n: 3},
		Path:     path,
		Interval: 10 * time.Millisecond,
		Logger:   quiet(),
	})

	svc.Start()
	svc.Start()
	assert.True(t, svc.IsRunning())

	require.Eventually(t, func() bool {
		_, err := os.Stat(path)
		return err == nil
	}, 2*time.Second, 10*time.Millisecond)

	svc.Stop()
	svc.Stop()
	assert.False(t, svc.IsRunning())

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	var st Status
	require.NoError(t, json.Unmarshal(raw, &st))
	assert.Equal(t, 3, st.PendingWrites)
}

func TestWriteStatusWithoutPath(t *testing.T) {
	assert.NoError(t, NewService(Dependencies{}).WriteStatus())
}
