package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gunline/firecontrol/internal/api"
	"github.com/gunline/firecontrol/internal/config"
	"github.com/gunline/firecontrol/internal/dispatcher"
	"github.com/gunline/firecontrol/internal/influx"
	"github.com/gunline/firecontrol/internal/logging"
	"github.com/gunline/firecontrol/internal/monitor"
	"github.com/gunline/firecontrol/internal/storage"
	"github.com/gunline/firecontrol/internal/worker"
	"github.com/gunline/firecontrol/pkg/core"
)

const drainTimeout = 10 * time.Second

// pipeline records combat events: recorder -> dispatcher -> worker ->
// storage backend and InfluxDB.
type pipeline struct {
	app        *app
	dispatcher *dispatcher.Dispatcher
	backend    storage.Backend
	workers    *worker.Manager
	recorder   *worker.Recorder
	influx     *influx.Manager
	monitor    *monitor.Service
	uploader   *api.Client
	uploadTag  string
}

func newPipeline(ctx context.Context, a *app, clock worker.Clock) (*pipeline, error) {
	storageCfg, err := config.GetStorageConfig()
	if err != nil {
		return nil, err
	}
	backend, err := createStorageBackend(a, storageCfg)
	if err != nil {
		return nil, err
	}
	if err := backend.Init(); err != nil {
		return nil, fmt.Errorf("failed to initialize %s storage: %w", storageCfg.Type, err)
	}

	d, err := dispatcher.New(logging.NewDispatcherLogger(a.zerolog("dispatcher")))
	if err != nil {
		_ = backend.Close()
		return nil, fmt.Errorf("create dispatcher: %w", err)
	}

	p := &pipeline{app: a, dispatcher: d, backend: backend}

	deps := worker.Dependencies{Logger: a.logger.With("component", "worker")}
	if influxCfg, err := config.GetInfluxConfig(); err != nil {
		a.logger.Error("Invalid influx config", "error", err)
	} else if influxCfg.Enabled {
		m := influx.NewManager(influxCfg, a.zerolog("influx"))
		if err := m.Connect(ctx); err != nil {
			a.logger.Error("Failed to set up InfluxDB metrics", "error", err)
		} else {
			p.influx = m
			deps.Metrics = m
		}
	}

	p.workers = worker.NewManager(deps, backend)
	p.workers.RegisterHandlers(d)
	p.recorder = worker.NewRecorder(d, a.sessions, clock, nil, a.logger.With("component", "recorder"))

	p.monitor = monitor.NewService(monitor.Dependencies{
		Session:  a.sessions,
		Backend:  backend,
		Writes:   p.workers,
		Path:     config.GetString("status.path"),
		Interval: config.GetDuration("status.interval"),
		Logger:   a.logger.With("component", "monitor"),
	})
	p.monitor.Start()

	if uploadCfg, err := config.GetUploadConfig(); err != nil {
		a.logger.Error("Invalid upload config", "error", err)
	} else if uploadCfg.Enabled {
		p.uploader = api.New(uploadCfg.URL, uploadCfg.APIKey)
		p.uploadTag = uploadCfg.Tag
		if err := p.uploader.Healthcheck(ctx); err != nil {
			a.logger.Warn("Stats server not reachable", "url", uploadCfg.URL, "error", err)
		}
	}
	return p, nil
}

// startSession opens a session in the app context and the backend.
func (p *pipeline) startSession(name, mapName string, tickRate int) (core.Session, error) {
	s, err := p.app.sessions.Start(name, mapName, tickRate)
	if err != nil {
		return s, err
	}
	if err := p.backend.StartSession(&s); err != nil {
		p.app.sessions.End()
		return s, fmt.Errorf("start session in storage: %w", err)
	}
	p.app.logger.Info("Session started", "session", s.ID, "name", s.Name, "map", s.Map)
	return s, nil
}

// endSession waits for queued events, closes the session and uploads the
// exported recording when the backend wrote one.
func (p *pipeline) endSession(ctx context.Context) error {
	drainCtx, cancel := context.WithTimeout(ctx, drainTimeout)
	defer cancel()
	drainErr := p.dispatcher.Drain(drainCtx)
	if drainErr != nil {
		p.app.logger.Warn("Event queues not drained before session end", "error", drainErr)
	}

	s, ok := p.app.sessions.End()
	if !ok {
		return storage.ErrNoSession
	}
	if err := p.backend.EndSession(); err != nil {
		return errors.Join(drainErr, fmt.Errorf("end session: %w", err))
	}
	p.app.logger.Info("Session ended", "session", s.ID, "duration", s.EndTime.Sub(s.StartTime))

	if p.app.otel != nil {
		if err := p.app.otel.Flush(ctx); err != nil {
			p.app.logger.Warn("Failed to flush OTel data", "error", err)
		}
	}
	return p.upload(ctx, s)
}

func (p *pipeline) upload(ctx context.Context, s core.Session) error {
	exp, ok := p.backend.(storage.Exporter)
	if p.uploader == nil || !ok || exp.ExportedFilePath() == "" {
		return nil
	}
	path := exp.ExportedFilePath()
	if err := p.uploader.Upload(ctx, path, api.MetadataFor(s, p.uploadTag)); err != nil {
		return fmt.Errorf("upload %s: %w", path, err)
	}
	p.app.logger.Info("Recording uploaded", "file", path)
	return nil
}

// close ends any open session and shuts every sink down.
func (p *pipeline) close(ctx context.Context) error {
	var errs []error
	if _, ok := p.app.sessions.Current(); ok {
		errs = append(errs, p.endSession(ctx))
	}
	p.monitor.Stop()
	errs = append(errs, p.backend.Close())
	if p.influx != nil {
		errs = append(errs, p.influx.Close())
	}
	return errors.Join(errs...)
}
