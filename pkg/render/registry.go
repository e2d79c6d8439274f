package render

import (
	"fmt"
	"strings"
	"sync"

	"github.com/elliotchance/orderedmap/v2"
)

// ExtensionConstructor builds the object bound to a namespace for one
// render. Returning nil leaves the namespace unbound for that render.
type ExtensionConstructor func(vc *ViewContext, view *View) any

// extensionRegistry stores engine extensions by namespace in registration
// order. Registering a namespace again replaces the constructor.
type extensionRegistry struct {
	mu      sync.RWMutex
	entries *orderedmap.OrderedMap[string, ExtensionConstructor]
}

type namedExtension struct {
	namespace string
	construct ExtensionConstructor
}

func newExtensionRegistry() *extensionRegistry {
	return &extensionRegistry{entries: orderedmap.NewOrderedMap[string, ExtensionConstructor]()}
}

// register stores ctor under namespace and reports whether it replaced an
// existing constructor.
func (r *extensionRegistry) register(namespace string, ctor ExtensionConstructor) (bool, error) {
	namespace = strings.TrimSpace(namespace)
	if namespace == "" {
		return false, fmt.Errorf("render: extension namespace is required")
	}
	if ctor == nil {
		return false, fmt.Errorf("render: extension constructor for %q is required", namespace)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	_, exists := r.entries.Get(namespace)
	r.entries.Set(namespace, ctor)
	return exists, nil
}

func (r *extensionRegistry) list() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.entries.Keys()
}

func (r *extensionRegistry) snapshot() []namedExtension {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]namedExtension, 0, r.entries.Len())
	for el := r.entries.Front(); el != nil; el = el.Next() {
		out = append(out, namedExtension{namespace: el.Key, construct: el.Value})
	}
	return out
}
