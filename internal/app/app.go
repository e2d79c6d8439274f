// Package app wires the configured engine, plugin registry, cache, watcher
// and metrics for the xview binaries.
package app

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/go-logr/logr"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/goliatone/go-xview/internal/config"
	"github.com/goliatone/go-xview/pkg/plugin"
	"github.com/goliatone/go-xview/pkg/plugins"
	"github.com/goliatone/go-xview/pkg/render"
	"github.com/goliatone/go-xview/pkg/transform"
)

// App holds the running components. Close releases them.
type App struct {
	Config   *config.Config
	Logger   logr.Logger
	Engine   *render.Engine
	Registry *plugin.Registry
	Cache    *transform.Cache
	Metrics  *prometheus.Registry

	closers []io.Closer
}

// Build assembles an App from cfg.
func Build(ctx context.Context, cfg *config.Config, logger logr.Logger) (*App, error) {
	if cfg == nil {
		return nil, errors.New("app: config is required")
	}
	a := &App{Config: cfg, Logger: logger, Metrics: prometheus.NewRegistry()}
	if cfg.Server.Metrics {
		a.Metrics.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	}

	loader, settings, err := pluginLoader(cfg)
	if err != nil {
		return nil, err
	}
	registry, err := plugin.Discover(ctx, loader,
		plugin.WithLogger(logger),
		plugin.WithAppRoot(cfg.Views.AppRoot),
		plugin.WithSettings(settings),
		plugin.WithSettings(cfg.Plugins.Settings))
	if err != nil {
		return nil, fmt.Errorf("app: discover plugins: %w", err)
	}
	a.Registry = registry
	a.closers = append(a.closers, registry)

	cacheMetrics, err := transform.NewMetrics(a.Metrics)
	if err != nil {
		return nil, a.fail(fmt.Errorf("app: cache metrics: %w", err))
	}
	cache, err := transform.NewCache(
		transform.WithAppRoot(cfg.Views.AppRoot),
		transform.WithViewRoot(cfg.Views.Dir),
		transform.WithLogger(logger),
		transform.WithMetrics(cacheMetrics))
	if err != nil {
		return nil, a.fail(fmt.Errorf("app: transform cache: %w", err))
	}
	a.Cache = cache

	if cfg.Views.Watch {
		watcher, err := transform.NewWatcher(cache, logger, cache.Resolver().ViewRoot)
		if err != nil {
			return nil, a.fail(fmt.Errorf("app: watch views: %w", err))
		}
		a.closers = append(a.closers, watcher)
	}

	renderMetrics, err := render.NewMetrics(a.Metrics)
	if err != nil {
		return nil, a.fail(fmt.Errorf("app: render metrics: %w", err))
	}
	engine, err := render.New(cache, registry,
		render.WithLogger(logger),
		render.WithMetrics(renderMetrics),
		render.WithExtension(cfg.Views.Extension),
		render.WithDefaultContentType(cfg.Views.ContentType),
		render.WithMaxChainDepth(cfg.Views.MaxChainDepth))
	if err != nil {
		return nil, a.fail(err)
	}
	a.Engine = engine
	return a, nil
}

// pluginLoader selects the built-in modules named by the manifest or the
// module list; with neither, every built-in module loads.
func pluginLoader(cfg *config.Config) (plugin.Loader, map[string]string, error) {
	catalog := plugins.Catalog()
	switch {
	case cfg.Plugins.Manifest != "":
		loader, err := plugin.LoadManifest(catalog, cfg.Plugins.Manifest)
		if err != nil {
			return nil, nil, fmt.Errorf("app: %w", err)
		}
		return loader, loader.Settings(), nil
	case len(cfg.Plugins.Modules) > 0:
		return plugin.NewManifestLoader(catalog, plugin.Manifest{Modules: cfg.Plugins.Modules}), nil, nil
	default:
		return catalog, nil, nil
	}
}

func (a *App) fail(err error) error {
	if closeErr := a.Close(); closeErr != nil {
		return errors.Join(err, closeErr)
	}
	return err
}

// Close stops the watcher and closes plugins, most recent first.
func (a *App) Close() error {
	var errs []error
	for idx := len(a.closers) - 1; idx >= 0; idx-- {
		if err := a.closers[idx].Close(); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}
