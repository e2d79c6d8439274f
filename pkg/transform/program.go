package transform

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/cespare/xxhash/v2"
	"github.com/flosch/pongo2/v6"

	"github.com/goliatone/go-xview/pkg/document"
)

const (
	// InputParam names the template variable holding the input document.
	InputParam = "Input"
	// NamespacesParam names the template variable holding the namespace
	// declarations for the program's extension prefixes.
	NamespacesParam = "xmlns"
)

// Bindings are the values a program executes with: named parameters and
// extension objects keyed by namespace identifier.
type Bindings struct {
	Params     map[string]any
	Extensions map[string]any
}

// Program is a compiled transform program. It is immutable and safe for
// concurrent use.
type Program struct {
	path     string
	header   Header
	tpl      *pongo2.Template
	checksum uint64
}

// Compile reads and compiles the program at path using the template set for
// includes and globals. Any failure is a *CompileError.
func Compile(set *pongo2.TemplateSet, path string) (*Program, error) {
	if set == nil {
		return nil, &CompileError{Path: path, Err: errors.New("template set is nil")}
	}
	src, err := os.ReadFile(path)
	if err != nil {
		return nil, &CompileError{Path: path, Err: err}
	}
	header, body, err := splitFrontMatter(src)
	if err != nil {
		return nil, &CompileError{Path: path, Err: err}
	}
	tpl, err := set.FromBytes(body)
	if err != nil {
		return nil, &CompileError{Path: path, Err: err}
	}
	return &Program{
		path:     path,
		header:   header,
		tpl:      tpl,
		checksum: xxhash.Sum64(src),
	}, nil
}

// Path returns the absolute source path.
func (p *Program) Path() string { return p.path }

// Dir returns the directory holding the source.
func (p *Program) Dir() string { return filepath.Dir(p.path) }

// Header returns the decoded front matter.
func (p *Program) Header() Header { return p.header }

// Output returns the declared output settings.
func (p *Program) Output() Output { return p.header.Output }

// MediaType returns the declared media type, which may name another program.
func (p *Program) MediaType() string { return p.header.Output.MediaType }

// Checksum identifies the source the program was compiled from.
func (p *Program) Checksum() uint64 { return p.checksum }

// Execute applies the program to input. Parameters and the extensions for
// every declared namespace prefix are exposed as template variables. A nil
// input is treated as an empty document.
func (p *Program) Execute(b Bindings, input *document.Node) (string, error) {
	for _, name := range p.header.Required {
		if _, ok := b.Params[name]; !ok {
			return "", &ExecuteError{Path: p.path, Err: fmt.Errorf("missing required parameter %q", name)}
		}
	}

	ctx := make(pongo2.Context, len(b.Params)+len(p.header.Namespaces)+2)
	for name, value := range b.Params {
		ctx[name] = value
	}
	for prefix, namespace := range p.header.Namespaces {
		ext, ok := b.Extensions[namespace]
		if !ok {
			return "", &ExecuteError{Path: p.path, Err: fmt.Errorf("no extension object for namespace %q", namespace)}
		}
		ctx[prefix] = ext
	}
	if input == nil {
		input = document.Empty()
	}
	ctx[InputParam] = input
	ctx[NamespacesParam] = pongo2.AsSafeValue(p.declarations())

	out, err := p.tpl.Execute(ctx)
	if err != nil {
		return "", &ExecuteError{Path: p.path, Err: err}
	}
	out, err = p.finish(out)
	if err != nil {
		return "", &ExecuteError{Path: p.path, Err: err}
	}
	return out, nil
}

// declarations renders the namespace declarations for the declared prefixes
// in the form the registry strips from final output.
func (p *Program) declarations() string {
	if len(p.header.Namespaces) == 0 {
		return ""
	}
	prefixes := make([]string, 0, len(p.header.Namespaces))
	for prefix := range p.header.Namespaces {
		prefixes = append(prefixes, prefix)
	}
	sort.Strings(prefixes)

	parts := make([]string, 0, len(prefixes))
	for _, prefix := range prefixes {
		parts = append(parts, fmt.Sprintf(`xmlns:%s="%s-"`, prefix, p.header.Namespaces[prefix]))
	}
	return strings.Join(parts, " ")
}

func (p *Program) finish(out string) (string, error) {
	settings := p.header.Output
	if settings.Method != MethodXML {
		return out, nil
	}
	if settings.Indent {
		root, err := document.ParseString(out)
		if err != nil {
			return "", fmt.Errorf("indent output: %w", err)
		}
		out = root.Indent("  ")
	} else {
		out = strings.TrimSpace(out)
	}
	if !settings.OmitXMLDeclaration && !strings.HasPrefix(out, "<?xml") {
		out = fmt.Sprintf("<?xml version=\"1.0\" encoding=%q?>\n", settings.Encoding) + out
	}
	return out, nil
}
