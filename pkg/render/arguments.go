package render

import (
	"github.com/elliotchance/orderedmap/v2"
	"github.com/go-logr/logr"

	"github.com/goliatone/go-xview/pkg/transform"
)

// Arguments is the parameter set of one render: named parameters and
// extension objects keyed by namespace identifier, both in insertion order.
// A later write to the same name or namespace replaces the earlier value.
type Arguments struct {
	params     *orderedmap.OrderedMap[string, any]
	extensions *orderedmap.OrderedMap[string, any]
	logger     logr.Logger
}

// NewArguments returns an empty set that logs overwrites to logger.
func NewArguments(logger logr.Logger) *Arguments {
	return &Arguments{
		params:     orderedmap.NewOrderedMap[string, any](),
		extensions: orderedmap.NewOrderedMap[string, any](),
		logger:     logger,
	}
}

// AddParam binds value to name. Nil values are omitted.
func (a *Arguments) AddParam(name string, value any) {
	if value == nil || name == "" {
		return
	}
	if _, exists := a.params.Get(name); exists {
		a.logger.V(1).Info("parameter overwritten", "name", name)
	}
	a.params.Set(name, value)
}

// AddExtension binds obj to namespace. Nil objects are omitted.
func (a *Arguments) AddExtension(namespace string, obj any) {
	if obj == nil || namespace == "" {
		return
	}
	if _, exists := a.extensions.Get(namespace); exists {
		a.logger.V(1).Info("extension overwritten", "namespace", namespace)
	}
	a.extensions.Set(namespace, obj)
}

// Param returns the value bound to name.
func (a *Arguments) Param(name string) (any, bool) {
	return a.params.Get(name)
}

// Extension returns the object bound to namespace.
func (a *Arguments) Extension(namespace string) (any, bool) {
	return a.extensions.Get(namespace)
}

// ParamNames returns parameter names in insertion order.
func (a *Arguments) ParamNames() []string {
	return a.params.Keys()
}

// Namespaces returns extension namespaces in insertion order.
func (a *Arguments) Namespaces() []string {
	return a.extensions.Keys()
}

// Bindings snapshots the set for program execution.
func (a *Arguments) Bindings() transform.Bindings {
	b := transform.Bindings{
		Params:     make(map[string]any, a.params.Len()),
		Extensions: make(map[string]any, a.extensions.Len()),
	}
	for el := a.params.Front(); el != nil; el = el.Next() {
		b.Params[el.Key] = el.Value
	}
	for el := a.extensions.Front(); el != nil; el = el.Next() {
		b.Extensions[el.Key] = el.Value
	}
	return b
}
