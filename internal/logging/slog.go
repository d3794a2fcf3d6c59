package logging

import (
	"context"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"go.opentelemetry.io/contrib/bridges/otelslog"
	sdklog "go.opentelemetry.io/otel/sdk/log"
)

const instrumentationName = "firecontrol"

// Options selects the sinks Setup wires up.
type Options struct {
	Level string
	// File receives text logs. When nil, logs go to stdout instead.
	File io.Writer
	// Provider enables the OTel log bridge.
	Provider *sdklog.LoggerProvider
	// Graylog enables GELF shipping.
	Graylog GELFWriter
	// Context adds per-record attributes such as the active session.
	Context ContextProvider
}

// SlogManager manages slog-based logging with optional OTel integration.
type SlogManager struct {
	logger      *slog.Logger
	level       *slog.LevelVar
	logProvider *sdklog.LoggerProvider
}

// NewSlogManager creates a new slog-based logging manager.
func NewSlogManager() *SlogManager {
	return &SlogManager{level: new(slog.LevelVar)}
}

// ParseLevel converts a string log level to slog.Level. Unknown values map
// to info.
func ParseLevel(level string) slog.Level {
	switch strings.ToUpper(level) {
	case "DEBUG":
		return slog.LevelDebug
	case "WARN", "WARNING":
		return slog.LevelWarn
	case "ERROR":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// Setup builds the handler chain and installs it as the manager's logger.
func (m *SlogManager) Setup(opts Options) {
	m.level.Set(ParseLevel(opts.Level))
	m.logProvider = opts.Provider

	handlerOpts := &slog.HandlerOptions{
		Level: m.level,
		ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
			if a.Key == slog.TimeKey {
				if t, ok := a.Value.Any().(time.Time); ok {
					a.Value = slog.StringValue(t.UTC().Format(time.RFC3339))
				}
			}
			return a
		},
	}

	var handlers []slog.Handler
	if opts.File != nil {
		handlers = append(handlers, slog.NewTextHandler(opts.File, handlerOpts))
	} else {
		handlers = append(handlers, slog.NewTextHandler(os.Stdout, handlerOpts))
	}
	if opts.Provider != nil {
		handlers = append(handlers, otelslog.NewHandler(instrumentationName, otelslog.WithLoggerProvider(opts.Provider)))
	}
	if opts.Graylog != nil {
		handlers = append(handlers, NewGELFHandler(opts.Graylog, m.level))
	}

	var h slog.Handler = NewMultiHandler(handlers...)
	h = NewContextHandler(h, opts.Context)

	m.logger = slog.New(h)
	m.logger.Info("Logging initialized", "level", strings.ToLower(m.level.Level().String()))
}

// SetLevel changes the minimum level of every sink at runtime.
func (m *SlogManager) SetLevel(level string) {
	m.level.Set(ParseLevel(level))
}

// Logger returns the configured logger, or slog.Default before Setup.
func (m *SlogManager) Logger() *slog.Logger {
	if m.logger == nil {
		return slog.Default()
	}
	return m.logger
}

// Flush forces a flush of OTel logs if available.
func (m *SlogManager) Flush(ctx context.Context) error {
	if m.logProvider != nil {
		return m.logProvider.ForceFlush(ctx)
	}
	return nil
}
