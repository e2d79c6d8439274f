package render

import (
	"errors"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/go-logr/logr"

	"github.com/goliatone/go-xview/pkg/document"
	"github.com/goliatone/go-xview/pkg/plugin"
	"github.com/goliatone/go-xview/pkg/transform"
)

const (
	// HelperNamespace is the namespace the markup helper is bound to.
	HelperNamespace = "urn:HtmlHelper"
	// ModelParam names the parameter holding the view model.
	ModelParam = "Model"

	defaultExtension   = ".tpl"
	defaultContentType = "text/html"
	defaultChainDepth  = 8
	maxPartialDepth    = 16
)

// DefaultLocations are the view location formats searched by FindView. {0}
// is the view name and {1} the controller.
var DefaultLocations = []string{"{1}/{0}", "Shared/{0}"}

// Option configures an Engine.
type Option func(*Engine)

// WithLocations replaces the view location formats.
func WithLocations(formats ...string) Option {
	return func(e *Engine) {
		if len(formats) > 0 {
			e.locations = append([]string(nil), formats...)
		}
	}
}

// WithMarshaller sets the marshaller used to project models.
func WithMarshaller(m *document.Marshaller) Option {
	return func(e *Engine) {
		if m != nil {
			e.marshaller = m
		}
	}
}

// WithMarkup sets the host markup the helper forwards to.
func WithMarkup(markup Markup) Option {
	return func(e *Engine) {
		if markup != nil {
			e.markup = markup
		}
	}
}

// WithLogger sets the engine logger.
func WithLogger(logger logr.Logger) Option {
	return func(e *Engine) {
		e.logger = logger
	}
}

// WithMaxChainDepth bounds the number of programs one render may execute.
func WithMaxChainDepth(depth int) Option {
	return func(e *Engine) {
		if depth > 0 {
			e.maxChainDepth = depth
		}
	}
}

// WithDefaultContentType sets the content type used when the last program
// declares none.
func WithDefaultContentType(contentType string) Option {
	return func(e *Engine) {
		if contentType = strings.TrimSpace(contentType); contentType != "" {
			e.defaultContentType = contentType
		}
	}
}

// WithExtension sets the program file extension, ".tpl" by default.
func WithExtension(ext string) Option {
	return func(e *Engine) {
		ext = strings.TrimSpace(ext)
		if ext == "" {
			return
		}
		if !strings.HasPrefix(ext, ".") {
			ext = "." + ext
		}
		e.extension = ext
	}
}

// WithMetrics records render outcomes on m.
func WithMetrics(m *Metrics) Option {
	return func(e *Engine) {
		e.metrics = m
	}
}

// Engine locates views and renders them through the transform cache with
// the plugins of a registry bound as extension objects.
type Engine struct {
	cache      *transform.Cache
	registry   *plugin.Registry
	marshaller *document.Marshaller
	markup     Markup
	logger     logr.Logger
	metrics    *Metrics

	locations          []string
	extension          string
	maxChainDepth      int
	defaultContentType string

	extensions *extensionRegistry
}

// New builds an engine. The registry may be nil when no plugins are used.
func New(cache *transform.Cache, registry *plugin.Registry, opts ...Option) (*Engine, error) {
	if cache == nil {
		return nil, errors.New("render: transform cache is required")
	}
	e := &Engine{
		cache:              cache,
		registry:           registry,
		marshaller:         document.NewMarshaller(),
		markup:             HTMLMarkup{},
		logger:             logr.Discard(),
		locations:          append([]string(nil), DefaultLocations...),
		extension:          defaultExtension,
		maxChainDepth:      defaultChainDepth,
		defaultContentType: defaultContentType,
		extensions:         newExtensionRegistry(),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(e)
		}
	}
	e.logger = e.logger.WithName("render")
	return e, nil
}

// Cache returns the transform cache.
func (e *Engine) Cache() *transform.Cache { return e.cache }

// Registry returns the plugin registry.
func (e *Engine) Registry() *plugin.Registry { return e.registry }

// Marshaller returns the marshaller used for models.
func (e *Engine) Marshaller() *document.Marshaller { return e.marshaller }

// Extension returns the program file extension.
func (e *Engine) Extension() string { return e.extension }

// AddExtension binds ctor to namespace for every later render. A second
// registration for the same namespace replaces the first.
func (e *Engine) AddExtension(namespace string, ctor ExtensionConstructor) error {
	replaced, err := e.extensions.register(namespace, ctor)
	if err != nil {
		return err
	}
	if replaced {
		e.logger.V(1).Info("engine extension replaced", "namespace", namespace)
	}
	return nil
}

// Extensions lists the namespaces of engine extensions in registration
// order.
func (e *Engine) Extensions() []string {
	return e.extensions.list()
}

// FindView locates the view name for controller.
func (e *Engine) FindView(controller, name string) (*View, error) {
	return e.find(controller, name, false)
}

// FindPartialView locates a view rendered inside another view.
func (e *Engine) FindPartialView(controller, name string) (*View, error) {
	return e.find(controller, name, true)
}

// View binds an explicit program path without searching locations.
func (e *Engine) View(path string) *View {
	return &View{engine: e, path: e.cache.Resolver().Resolve(path, "")}
}

func (e *Engine) find(controller, name string, partial bool) (*View, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, &ViewNotFoundError{Name: name}
	}
	resolver := e.cache.Resolver()

	candidates := e.candidates(controller, name)
	searched := make([]string, 0, len(candidates))
	for _, ref := range candidates {
		path := resolver.Resolve(ref, "")
		searched = append(searched, path)
		if info, err := os.Stat(path); err == nil && !info.IsDir() {
			return &View{engine: e, path: path, partial: partial}, nil
		}
	}
	return nil, &ViewNotFoundError{Name: name, Searched: searched}
}

func (e *Engine) candidates(controller, name string) []string {
	if e.isExplicit(name) {
		return []string{e.withExtension(name)}
	}
	controller = strings.Trim(strings.TrimSpace(controller), "/")
	out := make([]string, 0, len(e.locations))
	for _, format := range e.locations {
		if strings.Contains(format, "{1}") && controller == "" {
			continue
		}
		ref := strings.NewReplacer("{0}", name, "{1}", controller).Replace(format)
		out = append(out, e.withExtension(ref))
	}
	return out
}

func (e *Engine) isExplicit(name string) bool {
	return strings.HasPrefix(name, "~") || filepath.IsAbs(name) || strings.HasSuffix(name, e.extension)
}

func (e *Engine) withExtension(ref string) string {
	if strings.HasSuffix(ref, e.extension) {
		return ref
	}
	return ref + e.extension
}

// isProgramRef reports whether a declared media type names another program.
func (e *Engine) isProgramRef(mediaType string) bool {
	return strings.HasSuffix(strings.TrimSpace(mediaType), e.extension)
}

// Views lists the views under the view root as "controller/name" without
// the extension, sorted.
func (e *Engine) Views() ([]string, error) {
	root := e.cache.Resolver().ViewRoot
	var views []string
	err := filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if path != root && strings.HasPrefix(d.Name(), ".") {
				return filepath.SkipDir
			}
			return nil
		}
		if !strings.HasSuffix(d.Name(), e.extension) {
			return nil
		}
		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		views = append(views, strings.TrimSuffix(filepath.ToSlash(rel), e.extension))
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Strings(views)
	return views, nil
}
