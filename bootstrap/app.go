package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/kbukum/scopecache/cache"
	"github.com/kbukum/scopecache/component"
	"github.com/kbukum/scopecache/config"
	"github.com/kbukum/scopecache/di"
	"github.com/kbukum/scopecache/inspect"
	"github.com/kbukum/scopecache/logger"
	"github.com/kbukum/scopecache/observability"
)

// App owns the lifecycle of a service built around a scope cache.
type App struct {
	Cfg        *config.Config
	Logger     *logger.Logger
	Components *component.Registry
	Cache      *cache.Component

	// Container and Admin are set by Start. Admin stays nil unless the
	// admin surface is enabled.
	Container *di.Container
	Admin     *inspect.Server

	gracefulTimeout time.Duration
	shutdown        []func(context.Context) error
	onStart         []Hook
	onStop          []Hook
}

// NewApp validates cfg, initializes logging and telemetry and registers the
// cache component. Nothing is started until Start or Run.
func NewApp(cfg *config.Config, opts ...Option) (*App, error) {
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation: %w", err)
	}

	o := resolveOptions(opts)
	log := o.logger
	if log == nil {
		logger.Init(&cfg.Logging)
		log = logger.GetGlobalLogger()
	}

	app := &App{
		Cfg:             cfg,
		Logger:          log,
		Components:      component.NewRegistry(log),
		gracefulTimeout: o.gracefulTimeout,
	}

	var cacheOpts []cache.Option
	if cfg.Telemetry.Enabled {
		metrics, err := app.initTelemetry(context.Background())
		if err != nil {
			return nil, err
		}
		cacheOpts = append(cacheOpts, cache.WithMetrics(metrics))
	}

	app.Cache = cache.NewComponent(cfg.Cache, o.pipeline, log, cacheOpts...)
	if err := app.Components.Register(app.Cache); err != nil {
		return nil, err
	}
	return app, nil
}

// Telemetry provider constructors, replaced in tests.
var (
	initMeter  = observability.InitMeter
	initTracer = observability.InitTracer
)

func (a *App) initTelemetry(ctx context.Context) (*observability.CacheMetrics, error) {
	t := a.Cfg.Telemetry

	mp, err := initMeter(ctx, &observability.MeterConfig{
		ServiceName: a.Cfg.Name,
		Environment: a.Cfg.Environment,
		Endpoint:    t.Endpoint,
		Insecure:    t.Insecure,
		Interval:    t.Interval,
	})
	if err != nil {
		return nil, fmt.Errorf("telemetry: %w", err)
	}

	tp, err := initTracer(ctx, observability.TracerConfig{
		ServiceName: a.Cfg.Name,
		Environment: a.Cfg.Environment,
		Endpoint:    t.Endpoint,
		Insecure:    t.Insecure,
		SampleRate:  t.SampleRate,
	})
	if err != nil {
		if serr := mp.Shutdown(ctx); serr != nil {
			a.Logger.WithError(serr).Warn("Meter shutdown failed")
		}
		return nil, fmt.Errorf("telemetry: %w", err)
	}
	a.shutdown = append(a.shutdown, mp.Shutdown, tp.Shutdown)

	return observability.NewCacheMetrics(observability.Meter("scopecache"))
}

// Start starts the cache, builds the container on it, starts the admin
// server when enabled and runs OnStart hooks.
func (a *App) Start(ctx context.Context) error {
	a.Logger.Info("Starting application", logger.Fields(
		"name", a.Cfg.Name,
		"environment", a.Cfg.Environment,
	))

	if err := a.Components.StartAll(ctx); err != nil {
		return fmt.Errorf("initialization failed: %w", err)
	}
	a.Container = di.NewContainer(di.WithCache(a.Cache.Cache()), di.WithLogger(a.Logger))

	if a.Cfg.Admin.Enabled {
		a.Admin = inspect.NewServer(a.Cfg.Admin, a.Cache.Cache(), a.Logger)
		if err := a.Components.Register(a.Admin); err != nil {
			return err
		}
		if err := a.Components.StartAll(ctx); err != nil {
			return fmt.Errorf("admin server: %w", err)
		}
	}

	if err := runHooks(ctx, a.onStart); err != nil {
		return fmt.Errorf("onStart hook failed: %w", err)
	}
	return nil
}

// Stop runs OnStop hooks, stops components in reverse order and flushes
// telemetry, all within the graceful timeout.
func (a *App) Stop() error {
	ctx, cancel := context.WithTimeout(context.Background(), a.gracefulTimeout)
	defer cancel()

	var errs []error
	if err := runHooks(ctx, a.onStop); err != nil {
		errs = append(errs, fmt.Errorf("onStop hook failed: %w", err))
	}
	if err := a.Components.StopAll(ctx); err != nil {
		errs = append(errs, err)
	}
	if a.Container != nil {
		_ = a.Container.Close()
	}
	for i := len(a.shutdown) - 1; i >= 0; i-- {
		if err := a.shutdown[i](ctx); err != nil {
			errs = append(errs, fmt.Errorf("telemetry shutdown: %w", err))
		}
	}

	if err := errors.Join(errs...); err != nil {
		a.Logger.WithError(err).Error("Shutdown finished with errors")
		return err
	}
	a.Logger.Info("Application stopped")
	return nil
}

// Run starts the application, blocks until ctx is done or SIGINT/SIGTERM
// arrives, then stops it.
func (a *App) Run(ctx context.Context) error {
	if err := a.Start(ctx); err != nil {
		_ = a.Stop()
		return err
	}
	a.Logger.Info("Application ready, waiting for shutdown signal")
	a.WaitForSignal(ctx)
	return a.Stop()
}

// WaitForSignal blocks until ctx is done or the process receives SIGINT or
// SIGTERM.
func (a *App) WaitForSignal(ctx context.Context) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	select {
	case sig := <-sigCh:
		a.Logger.Info("Received shutdown signal", logger.Fields("signal", sig.String()))
	case <-ctx.Done():
	}
}
