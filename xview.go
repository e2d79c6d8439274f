// Package xview renders views written as template programs. Programs are
// compiled once and cached until their files change, plugins are bound to
// namespaces every program can call, and a program may name another program
// as its output type to have its output transformed further.
package xview

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/go-logr/logr"

	"github.com/goliatone/go-xview/pkg/plugin"
	"github.com/goliatone/go-xview/pkg/plugins"
	"github.com/goliatone/go-xview/pkg/render"
	"github.com/goliatone/go-xview/pkg/transform"
)

// Engine aliases render.Engine for callers importing only the root package.
type Engine = render.Engine

// ViewContext carries the model and view state of one render.
type ViewContext = render.ViewContext

// Output is the result of a render.
type Output = render.Output

// Errors reported while locating, compiling and rendering views.
type (
	ViewNotFoundError = render.ViewNotFoundError
	ChainCycleError   = render.ChainCycleError
	CompileError      = transform.CompileError
	ExecuteError      = transform.ExecuteError
	StartupError      = plugin.StartupError
)

// ErrViewNotFound matches every ViewNotFoundError.
var ErrViewNotFound = render.ErrViewNotFound

// SiteOptions configures Open.
type SiteOptions struct {
	// AppRoot is the directory "~" denotes. Views live under AppRoot/Views.
	AppRoot string
	// Loader supplies plugins; nil loads every built-in plugin.
	Loader   plugin.Loader
	Settings map[string]string
	Watch    bool
	Logger   logr.Logger
	Engine   []render.Option
}

// Site bundles an engine with the registry and cache it renders through.
type Site struct {
	Engine   *render.Engine
	Registry *plugin.Registry
	Cache    *transform.Cache

	watcher *transform.Watcher
}

// Open discovers plugins, builds the program cache and returns a ready
// engine. Close the site to release plugins and the file watcher.
func Open(ctx context.Context, opts SiteOptions) (*Site, error) {
	logger := opts.Logger
	if logger.GetSink() == nil {
		logger = logr.Discard()
	}
	loader := opts.Loader
	if loader == nil {
		loader = plugins.Catalog()
	}
	registry, err := plugin.Discover(ctx, loader,
		plugin.WithLogger(logger),
		plugin.WithAppRoot(opts.AppRoot),
		plugin.WithSettings(opts.Settings))
	if err != nil {
		return nil, err
	}
	site := &Site{Registry: registry}

	site.Cache, err = transform.NewCache(transform.WithAppRoot(opts.AppRoot), transform.WithLogger(logger))
	if err != nil {
		return nil, errors.Join(err, site.Close())
	}
	if opts.Watch {
		site.watcher, err = transform.NewWatcher(site.Cache, logger, site.Cache.Resolver().ViewRoot)
		if err != nil {
			return nil, errors.Join(err, site.Close())
		}
	}
	engineOpts := append([]render.Option{render.WithLogger(logger)}, opts.Engine...)
	site.Engine, err = render.New(site.Cache, registry, engineOpts...)
	if err != nil {
		return nil, errors.Join(err, site.Close())
	}
	return site, nil
}

// Render renders "controller/name" with model.
func (s *Site) Render(ctx context.Context, view string, model any) (Output, error) {
	controller, name := "", strings.Trim(view, "/")
	if idx := strings.LastIndex(name, "/"); idx >= 0 {
		controller, name = name[:idx], name[idx+1:]
	}
	found, err := s.Engine.FindView(controller, name)
	if err != nil {
		return Output{}, err
	}
	vc := render.NewViewContext(model)
	vc.Route.Controller = controller
	vc.Route.Action = name
	out, err := found.Execute(ctx, vc)
	if err != nil {
		return Output{}, fmt.Errorf("xview: render %s: %w", view, err)
	}
	return out, nil
}

// Close stops the watcher and closes the plugins.
func (s *Site) Close() error {
	var errs []error
	if s.watcher != nil {
		errs = append(errs, s.watcher.Close())
	}
	if s.Registry != nil {
		errs = append(errs, s.Registry.Close())
	}
	return errors.Join(errs...)
}
