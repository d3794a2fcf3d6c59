package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"

	"github.com/gunline/firecontrol/internal/config"
	"github.com/gunline/firecontrol/internal/logging"
	intOtel "github.com/gunline/firecontrol/internal/otel"
	"github.com/gunline/firecontrol/internal/session"
)

// app holds process-wide state shared by every subcommand.
type app struct {
	configDir string
	startedAt time.Time

	logs        *logging.SlogManager
	logger      *slog.Logger
	logFile     *os.File
	logFilePath string
	otel        *intOtel.Provider
	graylog     io.Closer

	sessions *session.Context
}

// setup loads the config and wires the logging sinks. A missing config
// file is logged and defaults are used.
func (a *app) setup() error {
	a.startedAt = time.Now()
	a.sessions = session.NewContext(nil)
	a.logs = logging.NewSlogManager()
	a.logs.Setup(logging.Options{Level: "info", File: os.Stderr})
	a.logger = a.logs.Logger()

	if err := config.Load(a.configDir); err != nil {
		a.logger.Warn("Failed to load config, using defaults!", "error", err)
	}

	logsDir := config.GetString("logsDir")
	if err := os.MkdirAll(logsDir, 0755); err != nil {
		return fmt.Errorf("create logs dir: %w", err)
	}
	a.logFilePath = logging.LogFilePath(logsDir, appName, a.startedAt)
	if _, err := os.Stat(a.logFilePath); err == nil {
		_ = os.Rename(a.logFilePath, a.logFilePath+".old")
	}
	f, err := os.OpenFile(a.logFilePath, os.O_RDWR|os.O_CREATE|os.O_APPEND, 0644)
	if err != nil {
		return fmt.Errorf("open log file: %w", err)
	}
	a.logFile = f

	opts := logging.Options{
		Level:   config.GetString("logLevel"),
		File:    f,
		Context: a.sessions.LogAttrs,
	}

	otelCfg, err := config.GetOTelConfig()
	if err != nil {
		a.logger.Error("Invalid otel config", "error", err)
	} else if otelCfg.Enabled {
		provider, err := intOtel.New(otelCfg, f, Version)
		if err != nil {
			a.logger.Error("Failed to initialize OTel provider", "error", err)
		} else {
			a.otel = provider
			opts.Provider = provider.LoggerProvider()
		}
	}

	if config.GetBool("graylog.enabled") {
		addr := config.GetString("graylog.address")
		w, err := logging.NewGraylogWriter(addr)
		if err != nil {
			a.logger.Error("Failed to connect to Graylog", "address", addr, "error", err)
		} else {
			a.graylog = w
			opts.Graylog = w
		}
	}

	a.logs.Setup(opts)
	a.logger = a.logs.Logger()
	a.logger.Info("Starting up", "version", Version, "buildDate", BuildDate, "logFile", a.logFilePath)
	return nil
}

// zerolog returns a zerolog logger writing to the log file.
func (a *app) zerolog(component string) zerolog.Logger {
	var w io.Writer = os.Stderr
	if a.logFile != nil {
		w = a.logFile
	}
	return logging.NewZerolog(w, config.GetString("logLevel"), component)
}

// close flushes telemetry and closes the log sinks. Safe before setup.
func (a *app) close() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if a.otel != nil {
		if err := a.otel.Shutdown(ctx); err != nil {
			a.logger.Warn("Failed to shut down OTel provider", "error", err)
		}
	}
	if a.graylog != nil {
		_ = a.graylog.Close()
	}
	if a.logFile != nil {
		_ = a.logFile.Close()
		a.logFile = nil
	}
}

// recordingsDir is where sqlite fallback files land.
func recordingsDir(cfg config.StorageConfig) string {
	if cfg.SQLite.Path != "" {
		return filepath.Dir(cfg.SQLite.Path)
	}
	return cfg.Memory.OutputDir
}
