package transform

import (
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"github.com/flosch/pongo2/v6"
	"github.com/google/go-cmp/cmp"

	"github.com/goliatone/go-xview/pkg/document"
	"github.com/goliatone/go-xview/pkg/testsupport"
)

func newSet(t *testing.T, viewRoot string) *pongo2.TemplateSet {
	t.Helper()
	loader, err := pongo2.NewLocalFileSystemLoader(viewRoot)
	if err != nil {
		t.Fatalf("loader: %v", err)
	}
	registerDefaultFilters()
	return pongo2.NewSet(t.Name(), loader)
}

func TestSplitFrontMatter(t *testing.T) {
	src := "---\r\noutput:\r\n  method: XML\r\n  media-type: Shared/layout.tpl\r\nnamespaces:\r\n  data: urn:DataPlugin\r\nrequired: [ Model ]\r\n---\r\n<p>{{ Model }}</p>"
	header, body, err := splitFrontMatter([]byte(src))
	if err != nil {
		t.Fatalf("split: %v", err)
	}
	want := Header{
		Output: Output{
			Method:    MethodXML,
			MediaType: "Shared/layout.tpl",
			Encoding:  "utf-8",
		},
		Namespaces: map[string]string{"data": "urn:DataPlugin"},
		Required:   []string{"Model"},
	}
	if diff := cmp.Diff(want, header); diff != "" {
		t.Fatalf("header mismatch (-want +got):\n%s", diff)
	}
	if string(body) != "<p>{{ Model }}</p>" {
		t.Fatalf("body = %q", body)
	}

	plain, body, err := splitFrontMatter([]byte("hello"))
	if err != nil || string(body) != "hello" || plain.Output.Method != MethodHTML {
		t.Fatalf("plain source = %+v, %q, %v", plain, body, err)
	}
}

func TestSplitFrontMatterErrors(t *testing.T) {
	cases := map[string]string{
		"unterminated":   "---\noutput:\n  method: xml\n",
		"unknown field":  "---\noutptu:\n  method: xml\n---\n",
		"unknown method": "---\noutput:\n  method: pdf\n---\n",
		"bad prefix":     "---\nnamespaces:\n  my-data: urn:DataPlugin\n---\n",
		"reserved":       "---\nnamespaces:\n  Input: urn:DataPlugin\n---\n",
	}
	for name, src := range cases {
		t.Run(name, func(t *testing.T) {
			if _, _, err := splitFrontMatter([]byte(src)); err == nil {
				t.Fatalf("expected error")
			}
		})
	}
}

func TestCompileAndExecute(t *testing.T) {
	root := testsupport.ViewTree(t, map[string]string{
		"Home/list.tpl": "---\noutput:\n  media-type: text/html\nnamespaces:\n  t: urn:Echo\nrequired: [Model]\n---\n" +
			`<ul {{ xmlns }}>{% for item in Model.Select("item") %}<li>{{ t.Say(item.Text) }}</li>{% endfor %}</ul>`,
		"Shared/_part.tpl": "part",
	})
	path := filepath.Join(root, "Views", "Home", "list.tpl")

	program, err := Compile(newSet(t, filepath.Join(root, "Views")), path)
	if err != nil {
		t.Fatalf("compile: %v", err)
	}
	if program.MediaType() != "text/html" || program.Path() != path || program.Checksum() == 0 {
		t.Fatalf("unexpected program metadata: %+v", program.Output())
	}

	model := &document.Node{Name: "list"}
	model.Element("item", "a")
	model.Element("item", "b<")
	out, err := program.Execute(Bindings{
		Params:     map[string]any{"Model": model},
		Extensions: map[string]any{"urn:Echo": echo{}},
	}, nil)
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	want := `<ul xmlns:t="urn:Echo-"><li>echo:a</li><li>echo:b&lt;</li></ul>`
	if diff := cmp.Diff(want, out); diff != "" {
		t.Fatalf("output mismatch (-want +got):\n%s", diff)
	}
}

type echo struct{}

func (echo) Say(s string) string { return "echo:" + s }

func TestExecuteErrors(t *testing.T) {
	root := testsupport.ViewTree(t, map[string]string{
		"required.tpl":  "---\nrequired: [Model]\n---\n{{ Model }}",
		"namespace.tpl": "---\nnamespaces:\n  d: urn:Missing\n---\nx",
	})
	set := newSet(t, filepath.Join(root, "Views"))

	for _, name := range []string{"required.tpl", "namespace.tpl"} {
		program, err := Compile(set, filepath.Join(root, "Views", name))
		if err != nil {
			t.Fatalf("compile %s: %v", name, err)
		}
		_, err = program.Execute(Bindings{}, nil)
		var execErr *ExecuteError
		if !errors.As(err, &execErr) || execErr.Path != program.Path() {
			t.Fatalf("%s: expected ExecuteError, got %v", name, err)
		}
	}
}

func TestCompileErrors(t *testing.T) {
	root := testsupport.ViewTree(t, map[string]string{
		"broken.tpl":   "{% for %}",
		"encoding.tpl": "---\noutput:\n  method: xml\n  encoding: x-klingon\n---\n<a/>",
	})
	set := newSet(t, filepath.Join(root, "Views"))

	for _, path := range []string{
		filepath.Join(root, "Views", "broken.tpl"),
		filepath.Join(root, "Views", "encoding.tpl"),
		filepath.Join(root, "Views", "missing.tpl"),
	} {
		_, err := Compile(set, path)
		var compileErr *CompileError
		if !errors.As(err, &compileErr) || compileErr.Path != path {
			t.Fatalf("expected CompileError for %s, got %v", path, err)
		}
	}
}

func TestXMLOutputSettings(t *testing.T) {
	root := testsupport.ViewTree(t, map[string]string{
		"indent.tpl": "---\noutput:\n  method: xml\n  indent: true\n---\n<a><b>{{ Input.Value(\"x\") }}</b></a>",
		"bare.tpl":   "---\noutput:\n  method: xml\n  omit-xml-declaration: true\n---\n  <a/>  ",
	})
	set := newSet(t, filepath.Join(root, "Views"))

	indent, err := Compile(set, filepath.Join(root, "Views", "indent.tpl"))
	if err != nil {
		t.Fatalf("compile: %v", err)
	}
	input := &document.Node{Name: "in"}
	input.Element("x", "1")
	out, err := indent.Execute(Bindings{}, input)
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	want := "<?xml version=\"1.0\" encoding=\"utf-8\"?>\n<a>\n  <b>1</b>\n</a>"
	if diff := cmp.Diff(want, out); diff != "" {
		t.Fatalf("indent mismatch (-want +got):\n%s", diff)
	}

	bare, err := Compile(set, filepath.Join(root, "Views", "bare.tpl"))
	if err != nil {
		t.Fatalf("compile: %v", err)
	}
	out, err = bare.Execute(Bindings{}, nil)
	if err != nil || out != "<a/>" {
		t.Fatalf("bare output = %q, %v", out, err)
	}
}

func TestDefaultFilters(t *testing.T) {
	registerDefaultFilters()
	tpl, err := pongo2.FromString(`{{ a|trim }}|{{ b|lowerfirst }}|{{ n|xml }}`)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	out, err := tpl.Execute(pongo2.Context{
		"a": "  x  ",
		"b": "  Hello",
		"n": document.NewElement("v", "1"),
	})
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	if !strings.HasPrefix(out, "x|  hello|") || !strings.HasSuffix(out, "<v>1</v>") {
		t.Fatalf("filters output = %q", out)
	}
}

func TestResolver(t *testing.T) {
	r := Resolver{AppRoot: "/app", ViewRoot: "/app/Views"}
	cases := []struct {
		ref, base, want string
	}{
		{ref: "~", want: "/app"},
		{ref: "~/Views/Shared/x.tpl", want: "/app/Views/Shared/x.tpl"},
		{ref: "/etc/x.tpl", want: "/etc/x.tpl"},
		{ref: "inner.tpl", base: "/app/Views/Home", want: "/app/Views/Home/inner.tpl"},
		{ref: "../Shared/x.tpl", base: "/app/Views/Home", want: "/app/Views/Shared/x.tpl"},
		{ref: "Home/index.tpl", want: "/app/Views/Home/index.tpl"},
	}
	for _, tc := range cases {
		if got := r.Resolve(tc.ref, tc.base); got != filepath.FromSlash(tc.want) {
			t.Fatalf("Resolve(%q, %q) = %q, want %q", tc.ref, tc.base, got, tc.want)
		}
	}
}
