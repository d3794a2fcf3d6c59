package otel

import (
	"bytes"
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/contrib/bridges/otelslog"

	"github.com/gunline/firecontrol/internal/config"
)

func TestNew_Disabled(t *testing.T) {
	p, err := New(config.OTelConfig{}, nil, "test")
	require.NoError(t, err)

	assert.False(t, p.Enabled())
	assert.Nil(t, p.LoggerProvider())
	assert.NotNil(t, p.Meter("firecontrol"))
	assert.NoError(t, p.Flush(context.Background()))
	assert.NoError(t, p.Shutdown(context.Background()))
}

func TestNew_EnabledWithoutExporter(t *testing.T) {
	_, err := New(config.OTelConfig{Enabled: true, ServiceName: "firecontrol"}, nil, "test")
	assert.ErrorIs(t, err, ErrNoExporter)
}

func TestNew_FileExporter(t *testing.T) {
	var buf bytes.Buffer
	p, err := New(config.OTelConfig{
		Enabled:      true,
		ServiceName:  "firecontrol",
		BatchTimeout: time.Second,
	}, &buf, "test")
	require.NoError(t, err)
	require.NotNil(t, p.LoggerProvider())

	logger := slog.New(otelslog.NewHandler("test", otelslog.WithLoggerProvider(p.LoggerProvider())))
	logger.Info("shot resolved", "weapon", "rifle")

	require.NoError(t, p.Flush(context.Background()))
	assert.Contains(t, buf.String(), "shot resolved")
	assert.Contains(t, buf.String(), "firecontrol")
	require.NoError(t, p.Shutdown(context.Background()))
}
