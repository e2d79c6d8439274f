// Package plugin discovers the extension objects exposed to transform
// programs. Each implementation type is instantiated once, gets a namespace
// identifier derived from its simple type name ("urn:DataPlugin") and is
// shared by every render for the life of the Registry.
package plugin

import (
	"reflect"

	"github.com/go-logr/logr"

	"github.com/goliatone/go-xview/pkg/document"
)

// NamespacePrefix precedes the simple type name in every namespace
// identifier.
const NamespacePrefix = "urn:"

// Plugin is implemented by extension objects. Implementations embed Base;
// exported methods become callable from programs bound to the plugin's
// namespace.
type Plugin interface {
	isPlugin()
}

// Base marks a type as a Plugin.
type Base struct{}

func (Base) isPlugin() {}

// Factory builds the singleton instance of one implementation type.
type Factory func() (Plugin, error)

// Env carries process settings to plugins that implement Initializer.
type Env struct {
	AppRoot  string
	Settings map[string]string
	Logger   logr.Logger
}

// Setting returns the named setting or fallback when unset.
func (e Env) Setting(name, fallback string) string {
	if value, ok := e.Settings[name]; ok && value != "" {
		return value
	}
	return fallback
}

// Initializer is implemented by plugins that need setup after construction.
// A returned error aborts discovery.
type Initializer interface {
	Init(env Env) error
}

// Descriptor describes one discovered implementation type.
type Descriptor struct {
	Type      reflect.Type
	TypeName  string
	Namespace string
	Instance  Plugin
}

// TypeNameOf returns the fully qualified name of t ("pkgpath.Name"),
// dereferencing pointer types.
func TypeNameOf(t reflect.Type) string {
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if t.PkgPath() == "" {
		return t.String()
	}
	return t.PkgPath() + "." + t.Name()
}

// NamespaceFor derives the namespace identifier for t. Two types with the
// same simple name in different packages share an identifier; the Registry
// binds it to the later descriptor.
func NamespaceFor(t reflect.Type) string {
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	return NamespacePrefix + t.Name()
}

// Nothing returns an empty document for plugin methods that have no result.
func Nothing() *document.Node {
	return document.Empty()
}
