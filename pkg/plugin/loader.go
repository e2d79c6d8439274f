package plugin

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/elliotchance/orderedmap/v2"
	"gopkg.in/yaml.v3"
)

// Module registers the factories of one plugin package.
type Module interface {
	Register(b *Builder)
}

// ModuleFunc adapts a function to Module.
type ModuleFunc func(b *Builder)

func (f ModuleFunc) Register(b *Builder) { f(b) }

// Builder collects factories while modules register.
type Builder struct {
	module    string
	factories []registration
}

type registration struct {
	module  string
	factory Factory
}

// Provide adds factories for the module being registered. Nil factories are
// ignored.
func (b *Builder) Provide(factories ...Factory) {
	for _, factory := range factories {
		if factory == nil {
			continue
		}
		b.factories = append(b.factories, registration{module: b.module, factory: factory})
	}
}

// Loader enumerates and loads plugin modules. A failing Load is not fatal;
// discovery skips the candidate.
type Loader interface {
	Candidates() []string
	Load(name string) (Module, error)
}

// ErrModuleNotFound is returned by loaders for unknown module names.
var ErrModuleNotFound = errors.New("plugin: module not found")

// StaticLoader loads modules compiled into the binary. Candidates are
// returned in insertion order.
type StaticLoader struct {
	modules *orderedmap.OrderedMap[string, Module]
}

// NewStaticLoader returns an empty loader.
func NewStaticLoader() *StaticLoader {
	return &StaticLoader{modules: orderedmap.NewOrderedMap[string, Module]()}
}

// Add registers module under name, replacing an earlier module with the same
// name.
func (l *StaticLoader) Add(name string, module Module) *StaticLoader {
	name = strings.TrimSpace(name)
	if name == "" || module == nil {
		return l
	}
	l.modules.Set(name, module)
	return l
}

func (l *StaticLoader) Candidates() []string {
	return l.modules.Keys()
}

func (l *StaticLoader) Load(name string) (Module, error) {
	module, ok := l.modules.Get(name)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrModuleNotFound, name)
	}
	return module, nil
}

// Manifest lists the modules to enable and their settings.
type Manifest struct {
	Modules  []string          `yaml:"modules"`
	Settings map[string]string `yaml:"settings"`
}

// ManifestLoader restricts a catalog to the modules named in a manifest,
// keeping the manifest's order. Names missing from the catalog fail to load.
type ManifestLoader struct {
	catalog  Loader
	manifest Manifest
}

// NewManifestLoader builds a loader from an already decoded manifest.
func NewManifestLoader(catalog Loader, manifest Manifest) *ManifestLoader {
	return &ManifestLoader{catalog: catalog, manifest: manifest}
}

// LoadManifest reads a YAML manifest from path.
func LoadManifest(catalog Loader, path string) (*ManifestLoader, error) {
	if catalog == nil {
		return nil, errors.New("plugin: catalog is required")
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("plugin: read manifest: %w", err)
	}
	var manifest Manifest
	if err := yaml.Unmarshal(raw, &manifest); err != nil {
		return nil, fmt.Errorf("plugin: decode manifest %s: %w", path, err)
	}
	return NewManifestLoader(catalog, manifest), nil
}

// Settings returns the manifest settings.
func (l *ManifestLoader) Settings() map[string]string {
	return l.manifest.Settings
}

func (l *ManifestLoader) Candidates() []string {
	out := make([]string, 0, len(l.manifest.Modules))
	for _, name := range l.manifest.Modules {
		if trimmed := strings.TrimSpace(name); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

func (l *ManifestLoader) Load(name string) (Module, error) {
	return l.catalog.Load(name)
}
