package plugin_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/goliatone/go-xview/pkg/plugin"
	"github.com/goliatone/go-xview/pkg/plugin/internal/fixtures/alpha"
	"github.com/goliatone/go-xview/pkg/plugin/internal/fixtures/beta"
)

type GreetPlugin struct {
	plugin.Base
	greeting string
	closed   *bool
}

func (p *GreetPlugin) Init(env plugin.Env) error {
	p.greeting = env.Setting("greet.word", "hello")
	return nil
}

func (p *GreetPlugin) Close() error {
	if p.closed != nil {
		*p.closed = true
	}
	return nil
}

type CountPlugin struct {
	plugin.Base
}

type failingInit struct {
	plugin.Base
}

func (failingInit) Init(plugin.Env) error { return errors.New("boom") }

func greetModule(closed *bool) plugin.Module {
	return plugin.ModuleFunc(func(b *plugin.Builder) {
		b.Provide(func() (plugin.Plugin, error) { return &GreetPlugin{closed: closed}, nil })
	})
}

func countModule() plugin.Module {
	return plugin.ModuleFunc(func(b *plugin.Builder) {
		b.Provide(func() (plugin.Plugin, error) { return &CountPlugin{}, nil })
	})
}

func TestDiscoverBuildsDescriptors(t *testing.T) {
	var closed bool
	loader := plugin.NewStaticLoader().
		Add("greet", greetModule(&closed)).
		Add("count", countModule())

	reg, err := plugin.Discover(context.Background(), loader, plugin.WithSettings(map[string]string{"greet.word": "hi"}))
	if err != nil {
		t.Fatalf("discover: %v", err)
	}

	if diff := cmp.Diff([]string{"urn:GreetPlugin", "urn:CountPlugin"}, reg.Namespaces()); diff != "" {
		t.Fatalf("namespaces mismatch (-want +got):\n%s", diff)
	}
	desc, ok := reg.Lookup("urn:GreetPlugin")
	if !ok {
		t.Fatalf("greet plugin not found")
	}
	if desc.TypeName != "github.com/goliatone/go-xview/pkg/plugin_test.GreetPlugin" {
		t.Fatalf("type name = %q", desc.TypeName)
	}
	if got := desc.Instance.(*GreetPlugin).greeting; got != "hi" {
		t.Fatalf("Init did not receive settings, greeting = %q", got)
	}
	if _, ok := reg.Get(desc.TypeName); !ok {
		t.Fatalf("Get by type name failed")
	}

	if err := reg.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	if !closed {
		t.Fatalf("Close should reach io.Closer plugins")
	}
}

func TestDiscoverSkipsDuplicateTypes(t *testing.T) {
	loader := plugin.NewStaticLoader().
		Add("count", countModule()).
		Add("count-again", countModule())

	reg, err := plugin.Discover(context.Background(), loader)
	if err != nil {
		t.Fatalf("discover: %v", err)
	}
	if reg.Len() != 1 {
		t.Fatalf("expected one descriptor per type, got %d", reg.Len())
	}
}

func TestNamespacesAreDistinctPerType(t *testing.T) {
	types := []any{&GreetPlugin{}, &CountPlugin{}, alpha.Echo{}}
	seen := map[string]bool{}
	for _, value := range types {
		ns := plugin.NamespaceFor(reflect.TypeOf(value))
		if seen[ns] {
			t.Fatalf("namespace %s assigned twice", ns)
		}
		seen[ns] = true
	}
}

func TestSimpleNameCollisionIsDeterministic(t *testing.T) {
	loader := plugin.NewStaticLoader().
		Add("alpha", plugin.ModuleFunc(func(b *plugin.Builder) {
			b.Provide(func() (plugin.Plugin, error) { return alpha.Echo{}, nil })
		})).
		Add("beta", plugin.ModuleFunc(func(b *plugin.Builder) {
			b.Provide(func() (plugin.Plugin, error) { return beta.Echo{}, nil })
		}))

	for run := 0; run < 3; run++ {
		reg, err := plugin.Discover(context.Background(), loader)
		if err != nil {
			t.Fatalf("discover: %v", err)
		}
		if reg.Len() != 2 {
			t.Fatalf("both types should be described, got %d", reg.Len())
		}
		if diff := cmp.Diff([]string{"urn:Echo"}, reg.Namespaces()); diff != "" {
			t.Fatalf("namespaces mismatch (-want +got):\n%s", diff)
		}
		desc, ok := reg.Lookup("urn:Echo")
		if !ok {
			t.Fatalf("namespace not bound")
		}
		if _, isBeta := desc.Instance.(beta.Echo); !isBeta {
			t.Fatalf("later descriptor should win, got %s", desc.TypeName)
		}
	}
}

func TestDiscoverStartupErrors(t *testing.T) {
	cases := map[string]plugin.Factory{
		"factory error": func() (plugin.Plugin, error) { return nil, errors.New("no config") },
		"factory panic": func() (plugin.Plugin, error) { panic("bad wiring") },
		"nil instance":  func() (plugin.Plugin, error) { return (*GreetPlugin)(nil), nil },
		"init failure":  func() (plugin.Plugin, error) { return failingInit{}, nil },
	}
	for name, factory := range cases {
		t.Run(name, func(t *testing.T) {
			loader := plugin.NewStaticLoader().Add("broken", plugin.ModuleFunc(func(b *plugin.Builder) {
				b.Provide(factory)
			}))
			_, err := plugin.Discover(context.Background(), loader)
			var startup *plugin.StartupError
			if !errors.As(err, &startup) {
				t.Fatalf("expected StartupError, got %v", err)
			}
			if startup.Module != "broken" {
				t.Fatalf("module = %q", startup.Module)
			}
		})
	}
}

func TestManifestLoaderSkipsUnknownModules(t *testing.T) {
	catalog := plugin.NewStaticLoader().
		Add("greet", greetModule(nil)).
		Add("count", countModule())

	path := filepath.Join(t.TempDir(), "plugins.yaml")
	manifest := "modules:\n  - count\n  - missing\nsettings:\n  greet.word: hey\n"
	if err := os.WriteFile(path, []byte(manifest), 0o644); err != nil {
		t.Fatalf("write manifest: %v", err)
	}

	loader, err := plugin.LoadManifest(catalog, path)
	if err != nil {
		t.Fatalf("load manifest: %v", err)
	}
	if loader.Settings()["greet.word"] != "hey" {
		t.Fatalf("settings not decoded: %v", loader.Settings())
	}
	if _, err := loader.Load("missing"); !errors.Is(err, plugin.ErrModuleNotFound) {
		t.Fatalf("expected ErrModuleNotFound, got %v", err)
	}

	reg, err := plugin.Discover(context.Background(), loader)
	if err != nil {
		t.Fatalf("discover: %v", err)
	}
	if diff := cmp.Diff([]string{"urn:CountPlugin"}, reg.Namespaces()); diff != "" {
		t.Fatalf("namespaces mismatch (-want +got):\n%s", diff)
	}
}

func TestStripNamespaceArtifacts(t *testing.T) {
	loader := plugin.NewStaticLoader().Add("count", countModule())
	reg, err := plugin.Discover(context.Background(), loader)
	if err != nil {
		t.Fatalf("discover: %v", err)
	}

	input := `<div xmlns:c="urn:countplugin-" xmlns:o="urn:Other-" class="x">3</div>`
	want := `<div xmlns:o="urn:Other-" class="x">3</div>`
	if diff := cmp.Diff(want, reg.StripNamespaceArtifacts(input)); diff != "" {
		t.Fatalf("strip mismatch (-want +got):\n%s", diff)
	}

	empty, err := plugin.Discover(context.Background(), plugin.NewStaticLoader())
	if err != nil {
		t.Fatalf("discover: %v", err)
	}
	if empty.StripNamespaceArtifacts(input) != input {
		t.Fatalf("empty registry should leave text untouched")
	}
}

func TestNothingIsEmpty(t *testing.T) {
	if !plugin.Nothing().IsEmpty() {
		t.Fatalf("Nothing should be an empty document")
	}
}
