package plugin

import (
	"context"
	"errors"
	"fmt"
	"io"
	"reflect"
	"regexp"
	"strings"

	"github.com/go-logr/logr"
	"github.com/samber/lo"
)

// Option configures discovery.
type Option func(*config)

type config struct {
	logger logr.Logger
	env    Env
}

// WithLogger sets the logger used for discovery and passed to plugins.
func WithLogger(logger logr.Logger) Option {
	return func(cfg *config) {
		cfg.logger = logger
	}
}

// WithAppRoot sets Env.AppRoot for initialising plugins.
func WithAppRoot(root string) Option {
	return func(cfg *config) {
		cfg.env.AppRoot = strings.TrimSpace(root)
	}
}

// WithSettings merges settings into Env.Settings. Later calls win.
func WithSettings(settings map[string]string) Option {
	return func(cfg *config) {
		if len(settings) == 0 {
			return
		}
		if cfg.env.Settings == nil {
			cfg.env.Settings = make(map[string]string, len(settings))
		}
		for key, value := range settings {
			cfg.env.Settings[key] = value
		}
	}
}

// Registry holds the discovered plugin descriptors. It is read-only once
// Discover returns and safe for concurrent use.
type Registry struct {
	descriptors []Descriptor
	byType      map[string]int
	byNamespace map[string]int
	strip       *regexp.Regexp
	logger      logr.Logger
}

// Discover loads every candidate module, instantiates one plugin per
// implementation type and returns the resulting Registry. Modules that fail
// to load are skipped. Factory failures, panics, nil instances and Init
// errors abort discovery with a *StartupError.
func Discover(ctx context.Context, loader Loader, opts ...Option) (*Registry, error) {
	cfg := config{logger: logr.Discard()}
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}
	logger := cfg.logger.WithName("plugin")
	cfg.env.Logger = logger

	builder := &Builder{}
	if loader != nil {
		for _, name := range loader.Candidates() {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			module, err := loader.Load(name)
			if err != nil || module == nil {
				logger.V(1).Info("skipping plugin module", "module", name, "err", err)
				continue
			}
			builder.module = name
			module.Register(builder)
		}
	}

	reg := &Registry{
		byType:      make(map[string]int),
		byNamespace: make(map[string]int),
		logger:      logger,
	}
	for _, entry := range builder.factories {
		instance, err := construct(entry.factory)
		if err != nil {
			return nil, &StartupError{Module: entry.module, Err: err}
		}

		t := reflect.TypeOf(instance)
		typeName := TypeNameOf(t)
		if _, exists := reg.byType[typeName]; exists {
			logger.V(1).Info("duplicate plugin type skipped", "type", typeName, "module", entry.module)
			continue
		}

		if initializer, ok := instance.(Initializer); ok {
			if err := initializer.Init(cfg.env); err != nil {
				return nil, &StartupError{Module: entry.module, TypeName: typeName, Err: err}
			}
		}

		desc := Descriptor{
			Type:      t,
			TypeName:  typeName,
			Namespace: NamespaceFor(t),
			Instance:  instance,
		}
		if previous, taken := reg.byNamespace[desc.Namespace]; taken {
			logger.Info("plugin namespace collision, later type wins",
				"namespace", desc.Namespace,
				"previous", reg.descriptors[previous].TypeName,
				"type", typeName)
		}
		reg.byType[typeName] = len(reg.descriptors)
		reg.byNamespace[desc.Namespace] = len(reg.descriptors)
		reg.descriptors = append(reg.descriptors, desc)
		logger.V(1).Info("plugin registered", "type", typeName, "namespace", desc.Namespace)
	}

	reg.strip = stripPattern(reg.Namespaces())
	return reg, nil
}

func construct(factory Factory) (instance Plugin, err error) {
	defer func() {
		if r := recover(); r != nil {
			instance = nil
			err = fmt.Errorf("factory panicked: %v", r)
		}
	}()
	instance, err = factory()
	if err != nil {
		return nil, err
	}
	if instance == nil || isNilInstance(instance) {
		return nil, errors.New("factory returned a nil plugin")
	}
	return instance, nil
}

func isNilInstance(instance Plugin) bool {
	rv := reflect.ValueOf(instance)
	return rv.Kind() == reflect.Pointer && rv.IsNil()
}

func stripPattern(namespaces []string) *regexp.Regexp {
	if len(namespaces) == 0 {
		return nil
	}
	quoted := lo.Map(namespaces, func(ns string, _ int) string {
		return regexp.QuoteMeta(ns)
	})
	return regexp.MustCompile(`(?i)\s*xmlns:\w+="(` + strings.Join(quoted, "|") + `)-"`)
}

// Descriptors returns the descriptors in discovery order.
func (r *Registry) Descriptors() []Descriptor {
	if r == nil {
		return nil
	}
	return append([]Descriptor(nil), r.descriptors...)
}

// Lookup returns the descriptor bound to namespace.
func (r *Registry) Lookup(namespace string) (Descriptor, bool) {
	if r == nil {
		return Descriptor{}, false
	}
	idx, ok := r.byNamespace[namespace]
	if !ok {
		return Descriptor{}, false
	}
	return r.descriptors[idx], true
}

// Get returns the descriptor for a fully qualified type name.
func (r *Registry) Get(typeName string) (Descriptor, bool) {
	if r == nil {
		return Descriptor{}, false
	}
	idx, ok := r.byType[typeName]
	if !ok {
		return Descriptor{}, false
	}
	return r.descriptors[idx], true
}

// Namespaces returns the distinct namespace identifiers in discovery order.
func (r *Registry) Namespaces() []string {
	if r == nil {
		return nil
	}
	return lo.Uniq(lo.Map(r.descriptors, func(desc Descriptor, _ int) string {
		return desc.Namespace
	}))
}

// Len reports the number of descriptors.
func (r *Registry) Len() int {
	if r == nil {
		return 0
	}
	return len(r.descriptors)
}

// StripNamespaceArtifacts removes the namespace declarations that programs
// leave behind for plugin namespaces. It is a textual, best-effort clean up
// and does not parse the output.
func (r *Registry) StripNamespaceArtifacts(text string) string {
	if r == nil || r.strip == nil {
		return text
	}
	return r.strip.ReplaceAllString(text, "")
}

// Close closes plugins implementing io.Closer in reverse discovery order.
func (r *Registry) Close() error {
	if r == nil {
		return nil
	}
	var errs []error
	for idx := len(r.descriptors) - 1; idx >= 0; idx-- {
		closer, ok := r.descriptors[idx].Instance.(io.Closer)
		if !ok {
			continue
		}
		if err := closer.Close(); err != nil {
			errs = append(errs, fmt.Errorf("plugin: close %s: %w", r.descriptors[idx].TypeName, err))
		}
	}
	return errors.Join(errs...)
}
